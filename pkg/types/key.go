package types

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // wire format mandates RIPEMD-160, not our choice
)

// DigestSize is the fixed length of a key digest (spec §3).
const DigestSize = 20

// Digest is the 20-byte RIPEMD-160 wire identity of a key.
type Digest [DigestSize]byte

// MaxBinNameLength is the maximum number of bytes a bin name may occupy
// on the wire (spec §4.6, boundary behavior in §8).
const MaxBinNameLength = 15

// Key identifies a single record: the triple (namespace, set, user key)
// plus its precomputed digest (spec §3). Two keys are equivalent iff
// digest and namespace match.
type Key struct {
	Namespace string
	SetName   string
	UserValue Value // nil if the key was built from a digest alone
	Digest    Digest
}

// NewKey builds a Key from a namespace, set, and user-key value, computing
// its digest deterministically: same key bytes always yield the same
// digest (spec §3 invariant).
func NewKey(namespace, setName string, userValue Value) (*Key, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace must not be empty")
	}
	digest, err := computeDigest(setName, userValue)
	if err != nil {
		return nil, err
	}
	return &Key{
		Namespace: namespace,
		SetName:   setName,
		UserValue: userValue,
		Digest:    digest,
	}, nil
}

// NewKeyWithDigest builds a Key from a namespace, set, and a precomputed
// digest, for callers that already hold the wire identity of a record
// (e.g. scan and query records streamed back from the server).
func NewKeyWithDigest(namespace, setName string, digest Digest) *Key {
	return &Key{Namespace: namespace, SetName: setName, Digest: digest}
}

// Equal reports whether two keys address the same record: same namespace
// and same digest (spec §3).
func (k *Key) Equal(other *Key) bool {
	if k == nil || other == nil {
		return k == other
	}
	return k.Namespace == other.Namespace && k.Digest == other.Digest
}

// computeDigest implements spec §3: RIPEMD-160 over
// set || value_type_byte || user_key_bytes.
func computeDigest(setName string, userValue Value) (Digest, error) {
	var out Digest
	keyBytes, err := userKeyBytes(userValue)
	if err != nil {
		return out, err
	}
	ptype := byte(ParticleNil)
	if userValue != nil {
		ptype = byte(userValue.ParticleType())
	}

	h := ripemd160.New()
	h.Write([]byte(setName))
	h.Write([]byte{ptype})
	h.Write(keyBytes)
	copy(out[:], h.Sum(nil))
	return out, nil
}

// userKeyBytes renders the user-key value into the byte sequence the
// digest is computed over. Only the scalar value types are legal as
// user keys on the wire.
func userKeyBytes(v Value) ([]byte, error) {
	switch vv := v.(type) {
	case nil, NilValue:
		return nil, nil
	case IntegerValue:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(int64(vv)))
		return buf, nil
	case UIntValue:
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(vv))
		return buf, nil
	case StringValue:
		return []byte(vv), nil
	case BytesValue:
		return vv, nil
	default:
		return nil, fmt.Errorf("value type %T is not valid as a user key", v)
	}
}
