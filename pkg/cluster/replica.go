package cluster

import (
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
)

// SelectReplica picks a Node from replicas per the given policy and
// attempt count (spec §4.3, §4.4 "Partition lookup"). Under
// ReplicaMaster only replicas[0] qualifies, and the call fails when that
// master is inactive rather than falling through to a prole. The other
// policies choose among the active replicas only, so inactive ones are
// skipped.
func SelectReplica(replicas []*node.Node, pol policy.ReplicaPolicy, attempt int) (*node.Node, error) {
	active := make([]*node.Node, 0, len(replicas))
	for _, n := range replicas {
		if n != nil && n.IsActive() {
			active = append(active, n)
		}
	}
	if len(active) == 0 {
		return nil, aeroerr.New(aeroerr.NoAvailableNode, "no available node for partition")
	}

	switch pol {
	case policy.ReplicaMaster:
		// Only the master itself qualifies (spec §4.3); a prole never
		// stands in for a down master under this policy.
		if len(replicas) == 0 || replicas[0] == nil || !replicas[0].IsActive() {
			return nil, aeroerr.New(aeroerr.NoAvailableNode, "master replica not active")
		}
		return replicas[0], nil
	case policy.ReplicaMasterProles:
		idx := attempt % len(active)
		return active[idx], nil
	case policy.ReplicaRandom:
		return active[node.RandomIndex(len(active))], nil
	case policy.ReplicaSequence:
		// The master's NextSequence counter persists across calls, giving
		// genuine round-robin distribution instead of resetting to index 0
		// on every new command the way a per-call attempt counter would.
		idx := int(active[0].NextSequence() % uint64(len(active)))
		return active[idx], nil
	default:
		return active[0], nil
	}
}
