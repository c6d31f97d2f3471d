package cluster

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuemby/aerospike-go/pkg/hostparse"
	"github.com/cuemby/aerospike-go/pkg/info"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/node"
)

// tendLoop runs every ClientPolicy.TendInterval until Close, refreshing
// the node set and partition map (spec §4.4).
func (c *Cluster) tendLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.cfg.TendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.tendOnce(context.Background())
		}
	}
}

// tendOnce runs one full tend pass: per-node generation checks, a
// partition-table rebuild when any generation changed, peer validation,
// and failure-threshold deactivation (spec §4.4 steps 1-4). A node past
// its failure threshold is marked inactive but is not removed from the
// node set, and it is not marked active again if it later answers.
func (c *Cluster) tendOnce(ctx context.Context) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.TendDuration)

	nodes := c.Nodes()
	anyPartitionChange := false
	reached := 0
	peerCandidates := make(map[string]hostparse.Host)

	for _, n := range nodes {
		resp, err := n.Info(ctx, "node", "partition-generation", "peers-generation", "peers")
		if err != nil {
			exceeded := n.RecordFailure()
			if exceeded {
				n.Deactivate()
				c.log.Warn().Str("node", n.Name()).Err(err).Msg("node deactivated after exceeding failure threshold")
			}
			continue
		}
		reached++
		n.RecordSuccess()

		if gen, ok := resp["partition-generation"]; ok && gen != c.nodeGen[n.Name()] {
			c.nodeGen[n.Name()] = gen
			anyPartitionChange = true
		}

		if gen, ok := resp["peers-generation"]; ok && gen != c.peerGen[n.Name()] {
			c.peerGen[n.Name()] = gen
			for name, host := range parsePeers(resp["peers"]) {
				peerCandidates[name] = host
			}
		}
	}

	if len(nodes) > 0 && reached == 0 {
		metrics.TendFailuresTotal.Inc()
	}

	if len(peerCandidates) > 0 {
		c.validatePeers(ctx, peerCandidates)
	}

	if anyPartitionChange {
		c.rebuildPartitionTables(ctx)
	}

	c.evictIdleConnections()
	activeCount := len(c.ActiveNodes())
	metrics.ClusterNodesTotal.Set(float64(len(c.Nodes())))

	if len(nodes) == 0 {
		metrics.UpdateComponent("cluster", true, "no seed nodes configured yet")
	} else if activeCount == 0 {
		metrics.UpdateComponent("cluster", false, "no active node reachable")
	} else {
		metrics.UpdateComponent("cluster", true, fmt.Sprintf("%d/%d node(s) active", activeCount, len(nodes)))
	}
}

// validatePeers opens a probe connection to every candidate peer whose
// name isn't already known, confirms its identity, and inserts it into
// the node set (spec §4.4 step 3).
func (c *Cluster) validatePeers(ctx context.Context, candidates map[string]hostparse.Host) {
	c.mu.RLock()
	unknown := make(map[string]hostparse.Host)
	for name, host := range candidates {
		if _, ok := c.nodes[name]; !ok {
			unknown[name] = host
		}
	}
	c.mu.RUnlock()

	for name, host := range unknown {
		n := node.New(node.Config{
			Name:               name,
			Host:               host.Name,
			Port:               host.Port,
			TLSName:            host.TLSName,
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
			continue
		}
		confirmed, err := resp.Require("node")
		if err != nil || confirmed != name {
			n.Close()
			continue
		}

		c.mu.Lock()
		c.nodes[name] = n
		c.mu.Unlock()
	}
}

// rebuildPartitionTables fetches replicas-master and replicas-all from
// every active node and swaps in a fresh PartitionTable per namespace
// (spec §4.4 step 2). Any namespace reported by at least one node gets
// a full table; a node that fails mid-pass is simply skipped for this
// cycle rather than aborting the rebuild.
func (c *Cluster) rebuildPartitionTables(ctx context.Context) {
	fresh := make(map[string]*PartitionTable)

	for _, n := range c.ActiveNodes() {
		resp, err := n.Info(ctx, "replicas-master", "replicas-all")
		if err != nil {
			continue
		}

		applyBitmaps(fresh, n, resp["replicas-master"], true)
		applyBitmaps(fresh, n, resp["replicas-all"], false)
	}

	c.tablesMu.Lock()
	for ns, table := range fresh {
		c.tables[ns] = table
	}
	c.tablesMu.Unlock()

	var unavailable int
	for _, table := range fresh {
		for _, replicas := range table {
			if len(replicas) == 0 {
				unavailable++
			}
		}
	}
	metrics.PartitionsUnavailable.Set(float64(unavailable))
}

// applyBitmaps decodes one "ns1:base64,ns2:base64" info value and
// records n as master (masterOnly) or as any replica into fresh's
// per-namespace table, allocating tables on first touch.
func applyBitmaps(fresh map[string]*PartitionTable, n *node.Node, value string, masterOnly bool) {
	for _, entry := range info.Fields(value) {
		ns, b64, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}
		bitmap, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			continue
		}

		table := fresh[ns]
		if table == nil {
			table = &PartitionTable{}
			fresh[ns] = table
		}

		for p := 0; p < NumPartitions; p++ {
			byteIdx := p / 8
			if byteIdx >= len(bitmap) {
				break
			}
			bit := bitmap[byteIdx] & (1 << uint(p%8))
			if bit == 0 {
				continue
			}
			if masterOnly {
				table[p] = append([]*node.Node{n}, table[p]...)
			} else if !containsNode(table[p], n) {
				table[p] = append(table[p], n)
			}
		}
	}
}

func containsNode(list []*node.Node, n *node.Node) bool {
	for _, existing := range list {
		if existing == n {
			return true
		}
	}
	return false
}

// parsePeers decodes the "peers" info value's semicolon-separated
// (name,tls-name,host:port) tuples into candidate hosts (spec §4.4).
func parsePeers(value string) map[string]hostparse.Host {
	out := make(map[string]hostparse.Host)
	for _, entry := range strings.Split(value, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		fields := strings.Split(entry, ",")
		if len(fields) < 3 {
			continue
		}
		name, tlsName, hostport := fields[0], fields[1], fields[2]
		host, portStr, ok := strings.Cut(hostport, ":")
		if !ok {
			continue
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		out[name] = hostparse.Host{Name: host, TLSName: tlsName, Port: port}
	}
	return out
}

// evictIdleConnections sweeps every node's pool for idle-expired
// connections, folding the idle pruner into the tend task (spec §5:
// "one idle-pruner may be folded into it").
func (c *Cluster) evictIdleConnections() {
	active := c.ActiveNodes()
	spareCapacity := false

	for _, n := range c.Nodes() {
		n.EvictIdleConnections()
		stats := n.PoolStats()
		metrics.PoolConnectionsOpen.WithLabelValues(n.Name(), "idle").Set(float64(stats.Idle))
		metrics.PoolConnectionsOpen.WithLabelValues(n.Name(), "in_use").Set(float64(stats.InUse))
		if n.IsActive() && stats.InUse < stats.Cap {
			spareCapacity = true
		}
	}

	if len(active) == 0 {
		metrics.UpdateComponent("pool", false, "no active node to pool connections for")
	} else if !spareCapacity {
		metrics.UpdateComponent("pool", false, "every active node's connection pool is exhausted")
	} else {
		metrics.UpdateComponent("pool", true, fmt.Sprintf("spare capacity on %d active node(s)", len(active)))
	}
}
