package cluster

import (
	"context"
	"sync"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/conn"
	"github.com/cuemby/aerospike-go/pkg/hostparse"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/rs/zerolog"
)

// Cluster owns the node set, the per-namespace partition map, and the
// tend task that keeps both synchronized with the server (spec §4.4).
type Cluster struct {
	cfg   policy.ClientPolicy
	log   zerolog.Logger
	creds conn.Credentials

	mu    sync.RWMutex
	nodes map[string]*node.Node

	tablesMu sync.RWMutex
	tables   map[string]*PartitionTable

	nodeGen map[string]string
	peerGen map[string]string

	stopCh chan struct{}
	doneCh chan struct{}
}

// New resolves seed hosts into an initial node set and returns a
// Cluster with its tend task running. Construction fails if no seed
// responds within cfg.ConnectionTimeout (spec §4.4 "Seed discovery").
func New(ctx context.Context, seeds []hostparse.Host, cfg policy.ClientPolicy, log zerolog.Logger) (*Cluster, error) {
	c := &Cluster{
		cfg:     cfg,
		log:     log,
		creds:   conn.Credentials{User: cfg.User, Password: cfg.Password},
		nodes:   make(map[string]*node.Node),
		tables:  make(map[string]*PartitionTable),
		nodeGen: make(map[string]string),
		peerGen: make(map[string]string),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}

	discoverCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if err := c.seedDiscovery(discoverCtx, seeds); err != nil {
		return nil, err
	}

	go c.tendLoop()
	return c, nil
}

// seedDiscovery dials every seed in parallel, confirms each responder's
// true node name via an Info probe, and inserts it into the node set.
// Discovery succeeds if at least one seed responded; it waits for every
// seed's result, or for ctx to expire, before returning.
func (c *Cluster) seedDiscovery(ctx context.Context, seeds []hostparse.Host) error {
	type result struct {
		n   *node.Node
		err error
	}

	results := make(chan result, len(seeds))
	for _, seed := range seeds {
		seed := seed
		go func() {
			n := node.New(node.Config{
				Name:               seed.Name,
				Host:               seed.Name,
				Port:               seed.Port,
				TLSName:            seed.TLSName,
				ConnectionsPerNode: c.cfg.ConnectionsPerNode,
				IdleTimeout:        c.cfg.IdleTimeout,
				DialTimeout:        c.cfg.ConnectionTimeout,
				Credentials:        c.creds,
				FailureThreshold:   c.cfg.FailureThreshold,
				Log:                c.log,
			})
			resp, err := n.Info(ctx, "node")
			if err != nil {
				n.Close()
				results <- result{nil, err}
				return
			}
			name, err := resp.Require("node")
			if err != nil {
				n.Close()
				results <- result{nil, err}
				return
			}
			renamed := node.New(node.Config{
				Name:               name,
				Host:               seed.Name,
				Port:               seed.Port,
				TLSName:            seed.TLSName,
				ConnectionsPerNode: c.cfg.ConnectionsPerNode,
				IdleTimeout:        c.cfg.IdleTimeout,
				DialTimeout:        c.cfg.ConnectionTimeout,
				Credentials:        c.creds,
				FailureThreshold:   c.cfg.FailureThreshold,
				Log:                c.log,
			})
			n.Close()
			results <- result{renamed, nil}
		}()
	}

	var lastErr error
	discovered := 0
	for range seeds {
		select {
		case r := <-results:
			if r.err != nil {
				lastErr = r.err
				continue
			}
			c.mu.Lock()
			c.nodes[r.n.Name()] = r.n
			c.mu.Unlock()
			discovered++
		case <-ctx.Done():
			if discovered == 0 {
				return aeroerr.Wrap(aeroerr.Connection, ctx.Err(), "seed discovery timed out")
			}
		}
	}

	if discovered == 0 {
		if lastErr != nil {
			return aeroerr.Wrap(aeroerr.Connection, lastErr, "no seed host responded")
		}
		return aeroerr.New(aeroerr.Connection, "no seed host responded")
	}
	return nil
}

// Nodes returns a snapshot slice of every node currently in the set,
// active or not.
func (c *Cluster) Nodes() []*node.Node {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*node.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// ActiveNodes returns only the nodes tend still considers reachable.
func (c *Cluster) ActiveNodes() []*node.Node {
	all := c.Nodes()
	out := make([]*node.Node, 0, len(all))
	for _, n := range all {
		if n.IsActive() {
			out = append(out, n)
		}
	}
	return out
}

// Table returns the current partition table for namespace, or nil if
// the namespace hasn't been observed yet. Safe to call concurrently
// with tend's swaps — it always returns a complete, self-consistent
// snapshot (spec §5).
func (c *Cluster) Table(namespace string) *PartitionTable {
	c.tablesMu.RLock()
	defer c.tablesMu.RUnlock()
	return c.tables[namespace]
}

// ReplicasFor returns the replica list for a key's partition in
// namespace, or a NoAvailableNode error if the namespace or partition
// has no known table yet.
func (c *Cluster) ReplicasFor(namespace string, partitionID int) ([]*node.Node, error) {
	t := c.Table(namespace)
	if t == nil {
		return nil, aeroerr.Newf(aeroerr.NoAvailableNode, "no partition table for namespace %q", namespace)
	}
	replicas := t.Replicas(partitionID)
	if len(replicas) == 0 {
		return nil, aeroerr.New(aeroerr.NoAvailableNode, "no replicas known for partition")
	}
	return replicas, nil
}

// Close stops the tend task, closes every node's connection pool, and
// waits for the tend goroutine to exit (spec §4.7 "Shutdown").
func (c *Cluster) Close() {
	close(c.stopCh)
	<-c.doneCh

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, n := range c.nodes {
		n.Close()
	}
}

