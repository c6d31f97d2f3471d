// Package pool implements the per-node idle connection pool described
// in spec §4.3 and §5: a bounded queue of Connections, a CAS-enforced
// cap on total connections, and immediate failure when the pool is
// exhausted rather than blocking a caller.
package pool
