// Package policy defines the shared request policy fields (spec §4.5):
// priority, consistency level, replica selection, timeouts, and retry
// behavior, plus the ClientPolicy governing cluster tend cadence and
// connection pool sizing.
package policy
