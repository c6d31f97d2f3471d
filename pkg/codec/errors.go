package codec

import "github.com/cuemby/aerospike-go/pkg/aeroerr"

var errTruncated = aeroerr.New(aeroerr.Protocol, "truncated input")

// errUnknownParticle builds the "unknown particle type" failure named in
// spec §4.1. Whether that's recoverable as a Blob or fatal is a caller
// policy decision (PermissiveUnknownParticle), not this package's.
func errUnknownParticle(pt byte) error {
	return aeroerr.Newf(aeroerr.Protocol, "unknown particle type %d", pt)
}

func errMalformedCollection(reason string) error {
	return aeroerr.Newf(aeroerr.Protocol, "malformed packed collection: %s", reason)
}
