/*
Package types defines the value universe and record model of the
Aerospike wire protocol: keys, typed bin values, bins, and records
(spec §3).

# Value universe

Value is a tagged union over Nil, Bool, Int, UInt, Float, String, Blob,
List, Map, GeoJSON, and HLL. Every variant carries a particle-type byte
(ParticleType) that identifies it on the wire; encode/decode of the byte
representation lives in pkg/codec, which depends on this package, not
the other way around.

# Keys and digests

A Key is the triple (namespace, set, user key). Its wire identity is a
20-byte digest computed deterministically from (set, value type byte,
user key bytes) — see NewKey and the Digest field.

# Records

A Record pairs a Key with a generation counter, an expiration value
(§3's three sentinels plus absolute TTL), and an unordered set of
uniquely-named Bins.
*/
package types
