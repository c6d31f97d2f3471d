package cluster

import (
	"encoding/binary"

	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// NumPartitions is the fixed partition count every namespace is divided
// into (spec §4.4).
const NumPartitions = 4096

// PartitionTable is one namespace's replica assignment, master-first per
// partition. It is never mutated after construction — the tend loop
// always builds a fresh one and swaps it in, so readers never observe a
// half-updated array (spec §4.4, §5).
type PartitionTable [NumPartitions][]*node.Node

// PartitionForDigest computes the partition id a record's digest maps
// to: the first four digest bytes read as a little-endian u32, modulo
// NumPartitions (spec §4.4).
func PartitionForDigest(d types.Digest) int {
	return int(binary.LittleEndian.Uint32(d[0:4]) % NumPartitions)
}

// Replicas returns the replica list for partition id, or nil if the
// table has none (an as-yet-undiscovered or evacuated partition).
func (t *PartitionTable) Replicas(partitionID int) []*node.Node {
	return t[partitionID]
}
