// Package cluster implements the Cluster handle (spec §4.4): seed
// discovery, the node set, the per-namespace partition map with
// atomic-pointer-swap snapshots, and the periodic tend loop that keeps
// both current.
package cluster
