// Package aerospike is a client library for Aerospike, a distributed
// key-value/row store. It speaks Aerospike's binary wire protocol
// directly: maintaining cluster membership and partition ownership,
// pooling connections per node, and exposing record-level CRUD,
// multi-op, batch, scan, and query operations as typed commands.
//
// A Client is constructed from one or more seed hosts and stays current
// with cluster topology changes via a background tend task; callers
// never address a node directly. See pkg/cluster for the topology
// engine and pkg/ops for the operation builders this package wraps.
package aerospike
