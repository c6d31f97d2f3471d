package types

import "time"

// Expiration sentinels (spec §3).
const (
	TTLNamespaceDefault int32 = -1 // use the namespace's configured default TTL
	TTLDontUpdate       int32 = -2 // leave the record's current expiration unchanged
	TTLNever            int32 = 0  // record never expires
)

// Record is the unit a Get/Operate/Scan/Query returns: a key, the
// server-maintained generation counter, an expiration, and the bins
// (spec §3).
type Record struct {
	Key        *Key
	Generation uint32
	Expiration int32 // seconds; see the TTL* sentinels above
	Bins       []*Bin
}

// Bin looks up a bin by name, returning (nil, false) if absent.
func (r *Record) Bin(name string) (*Bin, bool) {
	for _, b := range r.Bins {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// ExpiresAt converts a record's expiration into an absolute time, given
// when it was read. It returns ok=false for the TTLNever/TTLDontUpdate/
// TTLNamespaceDefault sentinels, which don't correspond to a fixed instant
// from the client's point of view.
func ExpiresAt(readAt time.Time, expiration int32) (t time.Time, ok bool) {
	switch expiration {
	case TTLNever, TTLDontUpdate, TTLNamespaceDefault:
		return time.Time{}, false
	default:
		return readAt.Add(time.Duration(expiration) * time.Second), true
	}
}
