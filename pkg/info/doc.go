// Package info implements the textual Info sub-protocol (spec §4.3,
// §6): newline-terminated ASCII requests ("key\n" per name queried) and
// tab-separated key/value responses, used for node identity, cluster
// topology, and administrative queries.
package info
