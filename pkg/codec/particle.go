package codec

import (
	"math"

	"github.com/cuemby/aerospike-go/pkg/types"
)

// DecodeOptions controls leniency during decode (spec §4.1 "Failure").
type DecodeOptions struct {
	// PermissiveUnknownParticle turns an unrecognized particle type into
	// a BytesValue instead of a Protocol error.
	PermissiveUnknownParticle bool
}

// EncodeScalarValue writes the wire payload (not including the particle
// type byte or any outer length, which the caller's op/field framing
// owns) for every non-collection Value variant.
func EncodeScalarValue(buf *Buffer, v types.Value) {
	switch vv := v.(type) {
	case nil, types.NilValue:
		// no payload
	case types.BoolValue:
		if vv {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case types.IntegerValue:
		buf.WriteUint64(uint64(int64(vv)))
	case types.UIntValue:
		buf.WriteUint64(uint64(vv))
	case types.FloatValue:
		buf.WriteUint64(math.Float64bits(float64(vv)))
	case types.StringValue:
		buf.WriteString(string(vv))
	case types.BytesValue:
		buf.WriteBytes(vv)
	case types.GeoJSONValue:
		// Aerospike prefixes GeoJSON payloads with a 1-byte flags field
		// and a 2-byte reserved ncells field, both zero for simple point/
		// region queries without cell indexing.
		buf.WriteByte(0)
		buf.WriteUint16(0)
		buf.WriteString(string(vv))
	case types.HLLValue:
		buf.WriteBytes(vv)
	default:
		panic("codec: EncodeScalarValue called with non-scalar value")
	}
}

// DecodeScalarValue parses the wire payload of a non-collection particle
// type. data is exactly the value's bytes, already sliced out of its
// enclosing op/field by the caller.
func DecodeScalarValue(pt types.ParticleType, data []byte, opts DecodeOptions) (types.Value, error) {
	switch pt {
	case types.ParticleNil:
		return types.NilValue{}, nil
	case types.ParticleBool:
		if len(data) != 1 {
			return nil, errMalformedCollection("bool particle must be 1 byte")
		}
		return types.BoolValue(data[0] != 0), nil
	case types.ParticleInt:
		if len(data) != 8 {
			return nil, errTruncated
		}
		r := NewReader(data)
		u, _ := r.ReadUint64()
		return types.IntegerValue(int64(u)), nil
	case types.ParticleUInt:
		if len(data) != 8 {
			return nil, errTruncated
		}
		r := NewReader(data)
		u, _ := r.ReadUint64()
		return types.UIntValue(u), nil
	case types.ParticleFloat:
		if len(data) != 8 {
			return nil, errTruncated
		}
		r := NewReader(data)
		u, _ := r.ReadUint64()
		return types.FloatValue(math.Float64frombits(u)), nil
	case types.ParticleString:
		return types.StringValue(data), nil
	case types.ParticleBlob:
		out := make([]byte, len(data))
		copy(out, data)
		return types.BytesValue(out), nil
	case types.ParticleGeoJSON:
		if len(data) < 3 {
			return nil, errTruncated
		}
		return types.GeoJSONValue(data[3:]), nil
	case types.ParticleHLL:
		out := make([]byte, len(data))
		copy(out, data)
		return types.HLLValue(out), nil
	default:
		if opts.PermissiveUnknownParticle {
			out := make([]byte, len(data))
			copy(out, data)
			return types.BytesValue(out), nil
		}
		return nil, errUnknownParticle(byte(pt))
	}
}

// IsCollection reports whether pt is List or Map, which are encoded via
// the packed format instead of DecodeScalarValue/EncodeScalarValue.
func IsCollection(pt types.ParticleType) bool {
	return pt == types.ParticleList || pt == types.ParticleMap
}
