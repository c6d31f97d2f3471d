// Package codec implements the value model's wire encoding (spec §4.1):
// a reusable growable byte Buffer with length-prefix reservation and
// back-patching, scalar particle encode/decode, and a MessagePack-derived
// packed format (with an Aerospike extension tag for map ordering) for
// List and Map values.
package codec
