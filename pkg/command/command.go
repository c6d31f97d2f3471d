package command

import (
	"context"
	"reflect"
	"time"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/conn"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
)

// commandName derives a metrics label from a Command's concrete type
// (e.g. "Get", "Operate") without requiring every command to implement
// a Name method.
func commandName(cmd Command) string {
	t := reflect.TypeOf(cmd)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Command is one request/response round trip a Command engine can
// execute with retry (spec §4.5): it knows how to write its request
// into a byte arena, how to parse a response payload, and whether it
// mutates server state.
type Command interface {
	// WriteRequest encodes the request payload (the bytes that follow
	// the 8-byte proto header) into buf.
	WriteRequest(buf *codec.Buffer) error
	// ParseResponse interprets one response payload. Returning an error
	// wrapped with aeroerr.Server is how a command signals a non-zero
	// wire result code.
	ParseResponse(payload []byte) error
	// IsWrite reports whether this command mutates server state, which
	// gates the write-safety retry invariant (spec §4.5).
	IsWrite() bool
}

// Target names which partition (and therefore which replica list) a
// single-key Command addresses.
type Target struct {
	Namespace   string
	PartitionID int
}

// Execute runs cmd to completion against clu, following the attempt
// loop from spec §4.5: select a replica, acquire a connection, write
// and read, then classify any failure into retry-and-continue or
// surface-to-caller.
func Execute(ctx context.Context, clu *cluster.Cluster, target Target, pol policy.Policy, cmd Command) error {
	name := commandName(cmd)
	timer := metrics.NewTimer()
	start := time.Now()
	deadline := pol.Deadline(start)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			if lastErr != nil {
				return recordCommand(name, timer, lastErr)
			}
			return recordCommand(name, timer, aeroerr.New(aeroerr.Timeout, "total timeout exceeded before first attempt"))
		}

		replicas, err := clu.ReplicasFor(target.Namespace, target.PartitionID)
		if err != nil {
			return recordCommand(name, timer, err)
		}
		n, err := cluster.SelectReplica(replicas, pol.Replica, attempt)
		if err != nil {
			return recordCommand(name, timer, err)
		}

		attemptCtx, cancel := attemptContext(ctx, pol, start, deadline)
		delivered, err := runAttempt(attemptCtx, n, cmd)
		cancel()

		if err == nil {
			n.RecordSuccess()
			return recordCommand(name, timer, nil)
		}
		lastErr = err
		n.RecordFailure()

		if !shouldRetry(err, cmd, pol, delivered) {
			return recordCommand(name, timer, err)
		}
		if !deadline.IsZero() && time.Now().Add(pol.SleepBetween).After(deadline) {
			return recordCommand(name, timer, err)
		}
		if attempt >= pol.MaxRetries {
			return recordCommand(name, timer, err)
		}
		metrics.CommandRetriesTotal.WithLabelValues(name).Inc()
		time.Sleep(pol.SleepBetween)
	}
}

// recordCommand reports the outcome and latency of a completed command
// attempt loop, then returns err unchanged so callers can `return
// recordCommand(...)` without an extra branch.
func recordCommand(name string, timer *metrics.Timer, err error) error {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.CommandsTotal.WithLabelValues(name, result).Inc()
	timer.ObserveDurationVec(metrics.CommandDuration, name)
	return err
}

// ExecuteOnNode runs cmd to completion against a single, already-chosen
// node rather than re-deriving it from a partition each attempt. Batch
// uses this: it groups keys by their owning node up front (spec §4.6
// "one batch request per node"), so retries must stay pinned to that
// node instead of re-selecting a replica.
func ExecuteOnNode(ctx context.Context, n *node.Node, pol policy.Policy, cmd Command) error {
	name := commandName(cmd)
	timer := metrics.NewTimer()
	start := time.Now()
	deadline := pol.Deadline(start)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			if lastErr != nil {
				return recordCommand(name, timer, lastErr)
			}
			return recordCommand(name, timer, aeroerr.New(aeroerr.Timeout, "total timeout exceeded before first attempt"))
		}

		attemptCtx, cancel := attemptContext(ctx, pol, start, deadline)
		delivered, err := runAttempt(attemptCtx, n, cmd)
		cancel()

		if err == nil {
			n.RecordSuccess()
			return recordCommand(name, timer, nil)
		}
		lastErr = err
		n.RecordFailure()

		if !shouldRetry(err, cmd, pol, delivered) {
			return recordCommand(name, timer, err)
		}
		if !deadline.IsZero() && time.Now().Add(pol.SleepBetween).After(deadline) {
			return recordCommand(name, timer, err)
		}
		if attempt >= pol.MaxRetries {
			return recordCommand(name, timer, err)
		}
		metrics.CommandRetriesTotal.WithLabelValues(name).Inc()
		time.Sleep(pol.SleepBetween)
	}
}

// attemptContext derives the per-attempt context, bounded by the
// earlier of the socket timeout and the overall deadline (spec §4.5
// step 3.b).
func attemptContext(ctx context.Context, pol policy.Policy, now, overall time.Time) (context.Context, context.CancelFunc) {
	d := pol.AttemptDeadline(now, overall)
	if d.IsZero() {
		return context.WithCancel(ctx)
	}
	return context.WithDeadline(ctx, d)
}

// runAttempt performs one connection acquire/write/read cycle. delivered
// reports whether the request bytes reached the wire (true once
// WriteMessage succeeds), independent of whether a response or error
// came back — the write-safety invariant keys off this.
func runAttempt(ctx context.Context, n *node.Node, cmd Command) (delivered bool, err error) {
	c, err := n.Acquire(ctx)
	if err != nil {
		return false, err
	}

	buf := codec.NewBuffer(256)
	if err := cmd.WriteRequest(buf); err != nil {
		n.Release(c)
		return false, aeroerr.Wrap(aeroerr.Protocol, err, "request encoding failed")
	}

	if err := c.WriteMessage(ctx, conn.MessageTypeAerospike, buf.Bytes()); err != nil {
		n.Discard(c)
		return false, err
	}

	_, payload, err := c.ReadMessage(ctx)
	if err != nil {
		n.Discard(c)
		return true, err
	}

	if err := cmd.ParseResponse(payload); err != nil {
		n.Release(c)
		return true, err
	}

	n.Release(c)
	return true, nil
}

// shouldRetry classifies a failed attempt per spec §4.5/§7: connection
// and timeout errors retry per policy; server errors retry only for a
// specific retryable subset; writes additionally require the retry
// invariant to hold.
func shouldRetry(err error, cmd Command, pol policy.Policy, delivered bool) bool {
	kind, ok := aeroerr.KindOf(err)
	if !ok {
		return false
	}

	switch kind {
	case aeroerr.Connection:
		// retried, subject to the write-safety check below: a write whose
		// request reached the wire before the connection failed is not
		// retried unless the policy makes that safe.
	case aeroerr.Timeout:
		if !pol.RetryOnTimeout {
			return false
		}
	case aeroerr.Server:
		if !aeroerr.Retryable(err) {
			return false
		}
	default:
		return false
	}

	if cmd.IsWrite() && !pol.WriteSafe(delivered) {
		return false
	}
	return true
}
