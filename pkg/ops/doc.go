// Package ops implements the operation builders (spec §4.6): request
// header and field/op TLV encoding shared by every operation, and the
// Command implementations for Put, Get, Delete, Touch, Exists, Operate,
// Batch, Scan, and Query.
package ops
