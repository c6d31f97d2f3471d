package aerospike

import (
	"context"
	"net/http"
	"time"

	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/command"
	"github.com/cuemby/aerospike-go/pkg/hostparse"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/ops"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/rs/zerolog"
)

// Client is the entry point for every operation this package exposes.
// It owns a Cluster (topology, partition map, node pools) and a default
// Policy applied to calls that don't supply their own.
type Client struct {
	clu        *cluster.Cluster
	defaultPol policy.Policy
	log        zerolog.Logger
}

// New resolves hosts (comma-separated host[:tls-name][:port] entries,
// spec §6) into a connected Client. Construction fails if no seed
// responds within clientPolicy.ConnectionTimeout.
func New(ctx context.Context, hosts string, clientPolicy policy.ClientPolicy, defaultPolicy policy.Policy, log zerolog.Logger) (*Client, error) {
	seeds, err := hostparse.ParseHosts(hosts)
	if err != nil {
		return nil, err
	}

	clu, err := cluster.New(ctx, seeds, clientPolicy, log)
	if err != nil {
		return nil, err
	}

	return &Client{clu: clu, defaultPol: defaultPolicy, log: log}, nil
}

// resolvePolicy returns pol if it is non-zero, else the client's
// configured default: a caller selects that default by passing
// policy.Policy{}.
func (c *Client) resolvePolicy(pol policy.Policy) policy.Policy {
	if pol == (policy.Policy{}) {
		return c.defaultPol
	}
	return pol
}

func (c *Client) target(k *types.Key) command.Target {
	return command.Target{Namespace: k.Namespace, PartitionID: cluster.PartitionForDigest(k.Digest)}
}

// Put writes bins to a record, creating it if absent (spec §4.6).
func (c *Client) Put(ctx context.Context, key *types.Key, bins []*types.Bin, pol policy.Policy) error {
	cmd := &ops.Put{Key: key, Bins: bins, Policy: c.resolvePolicy(pol)}
	return command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd)
}

// Get fetches a record's bins (spec §4.6). An empty BinSelector reads
// every bin.
func (c *Client) Get(ctx context.Context, key *types.Key, selector ops.BinSelector, pol policy.Policy) (*types.Record, error) {
	cmd := &ops.Get{Key: key, Selector: selector, Policy: c.resolvePolicy(pol)}
	if err := command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd); err != nil {
		return nil, err
	}
	return cmd.Result, nil
}

// Delete removes a record, reporting whether it existed (spec §4.6).
func (c *Client) Delete(ctx context.Context, key *types.Key, pol policy.Policy) (existed bool, err error) {
	cmd := &ops.Delete{Key: key, Policy: c.resolvePolicy(pol)}
	if err := command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd); err != nil {
		return false, err
	}
	return cmd.Existed, nil
}

// Touch refreshes a record's expiration without reading or writing
// bins (spec §4.6).
func (c *Client) Touch(ctx context.Context, key *types.Key, pol policy.Policy) error {
	cmd := &ops.Touch{Key: key, Policy: c.resolvePolicy(pol)}
	return command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd)
}

// Exists reports whether a record is present (spec §4.6).
func (c *Client) Exists(ctx context.Context, key *types.Key, pol policy.Policy) (bool, error) {
	cmd := &ops.Exists{Key: key, Policy: c.resolvePolicy(pol)}
	if err := command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd); err != nil {
		return false, err
	}
	return cmd.Found, nil
}

// Operate runs an ordered sub-operation list atomically against one
// record (spec §4.6).
func (c *Client) Operate(ctx context.Context, key *types.Key, subOps []ops.SubOp, pol policy.Policy) (*types.Record, error) {
	cmd := &ops.Operate{Key: key, Ops: subOps, Policy: c.resolvePolicy(pol)}
	if err := command.Execute(ctx, c.clu, c.target(key), cmd.Policy, cmd); err != nil {
		return nil, err
	}
	return cmd.Result, nil
}

// Batch resolves every read's owning node and returns results in the
// caller's input order (spec §4.6).
func (c *Client) Batch(ctx context.Context, namespace string, reads []ops.BatchRead, pol policy.Policy) ([]ops.BatchResult, error) {
	return ops.Batch(ctx, c.clu, namespace, reads, c.resolvePolicy(pol))
}

// Scan streams every record of a namespace/set as a lazy sequence
// (spec §4.6). The caller must drain the channel to completion or
// cancel ctx to stop early.
func (c *Client) Scan(ctx context.Context, namespace, setName string, selector ops.BinSelector, pol policy.Policy) (<-chan ops.StreamResult, error) {
	s := &ops.Scan{Namespace: namespace, SetName: setName, Selector: selector, Policy: c.resolvePolicy(pol)}
	return s.Run(ctx, c.clu)
}

// Query streams records matching one or more secondary-index
// predicates (spec §4.6), with the same streaming semantics as Scan.
func (c *Client) Query(ctx context.Context, q *ops.Query) (<-chan ops.StreamResult, error) {
	if q.Policy == (policy.Policy{}) {
		q.Policy = c.defaultPol
	}
	return q.Run(ctx, c.clu)
}

// HealthHandler serves the client's overall health (cluster tend reach,
// pool capacity), tracked via pkg/metrics and updated every tend cycle.
func (c *Client) HealthHandler() http.HandlerFunc { return metrics.HealthHandler() }

// ReadyHandler serves whether the "cluster" and "pool" components are
// both healthy, suitable for a readiness probe in front of this client.
func (c *Client) ReadyHandler() http.HandlerFunc { return metrics.ReadyHandler() }

// LivenessHandler serves a bare liveness check: 200 as long as the
// process is up, independent of cluster or pool state.
func (c *Client) LivenessHandler() http.HandlerFunc { return metrics.LivenessHandler() }

// Close stops the tend task and drains every node's idle connections,
// waiting up to grace for that teardown to finish (spec §4.7 "Shutdown").
// In-flight commands are not tracked or waited for. If grace elapses
// first, Close logs a warning and returns while the teardown continues
// in the background.
func (c *Client) Close(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		c.clu.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(grace):
		c.log.Warn().Msg("client close grace period elapsed before cluster teardown completed")
	}
}
