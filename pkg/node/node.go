package node

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/conn"
	"github.com/cuemby/aerospike-go/pkg/info"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/pool"
	"github.com/rs/zerolog"
)

// Config carries everything a Node needs to dial connections to its
// server, supplied once at construction by the owning Cluster.
type Config struct {
	Name               string
	Host               string
	Port               int
	TLSName            string
	ConnectionsPerNode int
	IdleTimeout        time.Duration
	DialTimeout        time.Duration
	Credentials        conn.Credentials
	FailureThreshold   int
	Log                zerolog.Logger
}

// Node is a handle to one Aerospike server: a connection pool, info
// query surface, and a health counter (spec §4.3).
type Node struct {
	name string
	addr string
	log  zerolog.Logger

	pool *pool.Pool

	failureThreshold int32
	failures         atomic.Int32
	active           atomic.Bool

	seq atomic.Uint64
}

// New builds a Node and its connection pool. The Node starts active;
// the tend loop marks it inactive once its failure counter crosses
// FailureThreshold (spec §4.4 step 4).
func New(cfg Config) *Node {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	n := &Node{
		name:             cfg.Name,
		addr:             addr,
		log:              cfg.Log.With().Str("node", cfg.Name).Logger(),
		failureThreshold: int32(cfg.FailureThreshold),
	}
	n.active.Store(true)

	dial := func(ctx context.Context) (*conn.Connection, error) {
		dialCtx := ctx
		if cfg.DialTimeout > 0 {
			var cancel context.CancelFunc
			dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
			defer cancel()
		}
		return conn.Dial(dialCtx, addr, cfg.Name, cfg.IdleTimeout, cfg.Credentials, nil)
	}
	n.pool = pool.New(dial, cfg.ConnectionsPerNode)
	return n
}

// Name returns the server-assigned node name used as the cluster's node
// set key.
func (n *Node) Name() string { return n.name }

// Address returns the host:port this node dials.
func (n *Node) Address() string { return n.addr }

// IsActive reports whether tend still considers this node reachable.
func (n *Node) IsActive() bool { return n.active.Load() }

// Deactivate marks the node inactive. The Cluster keeps it in its node
// set; replica selection and later partition-table rebuilds skip it, and
// nothing marks it active again.
func (n *Node) Deactivate() { n.active.Store(false) }

// RecordSuccess resets the failure counter (spec §4.3: "reset to zero
// on any success").
func (n *Node) RecordSuccess() { n.failures.Store(0) }

// RecordFailure increments the failure counter and reports whether it
// has now crossed the configured threshold.
func (n *Node) RecordFailure() (exceeded bool) {
	count := n.failures.Add(1)
	return n.failureThreshold > 0 && count >= n.failureThreshold
}

// Acquire borrows a Connection from the node's pool.
func (n *Node) Acquire(ctx context.Context) (*conn.Connection, error) {
	c, err := n.pool.Acquire(ctx)
	if err != nil {
		stats := n.pool.Stats()
		if stats.InUse >= stats.Cap {
			metrics.PoolExhaustedTotal.WithLabelValues(n.name).Inc()
		} else {
			metrics.ConnectionErrorsTotal.WithLabelValues(n.name).Inc()
		}
		return nil, aeroerr.Wrap(aeroerr.Connection, err, "acquire failed").WithNode(n.name)
	}
	return c, nil
}

// Release returns a Connection to the node's pool.
func (n *Node) Release(c *conn.Connection) { n.pool.Release(c) }

// Discard closes a Connection without returning it to the pool.
func (n *Node) Discard(c *conn.Connection) { n.pool.Discard(c) }

// EvictIdleConnections closes idle-expired connections in this node's
// pool, called by the tend loop's upkeep pass.
func (n *Node) EvictIdleConnections() { n.pool.EvictIdle() }

// PoolStats reports the node's connection pool accounting for metrics.
func (n *Node) PoolStats() pool.Stats { return n.pool.Stats() }

// Close shuts the node's connection pool down.
func (n *Node) Close() { n.pool.Close() }

// NextSequence returns a monotonically increasing counter used by the
// Sequence replica policy to round-robin across replicas (spec §4.3).
func (n *Node) NextSequence() uint64 { return n.seq.Add(1) }

// Info issues a combined Info request for the given keys over a
// borrowed connection, releasing it back to the pool on success or
// discarding it on failure (spec §4.3, §6).
func (n *Node) Info(ctx context.Context, keys ...string) (info.Response, error) {
	c, err := n.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	req := info.BuildRequest(keys...)
	if err := c.WriteMessage(ctx, conn.MessageTypeInfo, []byte(req)); err != nil {
		n.log.Debug().Str("conn", c.ID()).Err(err).Msg("discarding connection after info write failure")
		n.Discard(c)
		return nil, err
	}

	_, payload, err := c.ReadMessage(ctx)
	if err != nil {
		n.log.Debug().Str("conn", c.ID()).Err(err).Msg("discarding connection after info read failure")
		n.Discard(c)
		return nil, err
	}

	resp, err := info.ParseResponse(payload)
	if err != nil {
		n.log.Debug().Str("conn", c.ID()).Err(err).Msg("discarding connection after malformed info response")
		n.Discard(c)
		return nil, err
	}

	n.Release(c)
	return resp, nil
}

// randSource backs ReplicaRandom selection; package-level so tests can
// observe it without plumbing a source through every call.
var randSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// RandomIndex returns a uniformly chosen index in [0, n).
func RandomIndex(n int) int {
	if n <= 0 {
		return 0
	}
	return randSource.Intn(n)
}
