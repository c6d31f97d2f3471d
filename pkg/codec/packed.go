package codec

import (
	"math"

	"github.com/cuemby/aerospike-go/pkg/types"
)

// Packed format constants, MessagePack leading bytes plus the Aerospike
// extension used to tag map ordering (spec §4.1: "a self-describing
// packed format (MessagePack-derived) with Aerospike-specific extension
// tags for Map ordering").
const (
	mpNilByte    = 0xc0
	mpFalseByte  = 0xc2
	mpTrueByte   = 0xc3
	mpFloat64    = 0xcb
	mpUint8      = 0xcc
	mpUint16     = 0xcd
	mpUint32     = 0xce
	mpUint64     = 0xcf
	mpInt8       = 0xd0
	mpInt16      = 0xd1
	mpInt32      = 0xd2
	mpInt64      = 0xd3
	mpStr8       = 0xd9
	mpStr16      = 0xda
	mpStr32      = 0xdb
	mpBin8       = 0xc4
	mpBin16      = 0xc5
	mpBin32      = 0xc6
	mpArray16    = 0xdc
	mpArray32    = 0xdd
	mpMap16      = 0xde
	mpMap32      = 0xdf
	mpExt8       = 0xc7
	mpFixStrBase = 0xa0
	mpFixArrBase = 0x90
	mpFixMapBase = 0x80

	// aeroExtMapOrder is the Aerospike extension type byte written via
	// mpExt8 immediately before a map header to record its Order.
	aeroExtMapOrder = 0
)

// EncodeCollection writes a List or Map value as Aerospike's packed
// format. Nested elements recurse through encodePackedValue so a List of
// Maps of Lists round-trips.
func EncodeCollection(buf *Buffer, v types.Value) error {
	switch vv := v.(type) {
	case types.ListValue:
		return encodePackedList(buf, vv)
	case types.MapValue:
		return encodePackedMap(buf, vv)
	default:
		panic("codec: EncodeCollection called with non-collection value")
	}
}

func encodePackedValue(buf *Buffer, v types.Value) error {
	switch vv := v.(type) {
	case nil, types.NilValue:
		buf.WriteByte(mpNilByte)
	case types.BoolValue:
		if vv {
			buf.WriteByte(mpTrueByte)
		} else {
			buf.WriteByte(mpFalseByte)
		}
	case types.IntegerValue:
		encodePackedInt(buf, int64(vv))
	case types.UIntValue:
		encodePackedUint(buf, uint64(vv))
	case types.FloatValue:
		buf.WriteByte(mpFloat64)
		buf.WriteUint64(math.Float64bits(float64(vv)))
	case types.StringValue:
		encodePackedString(buf, string(vv))
	case types.BytesValue:
		encodePackedBin(buf, vv)
	case types.ListValue:
		return encodePackedList(buf, vv)
	case types.MapValue:
		return encodePackedMap(buf, vv)
	default:
		return errMalformedCollection("unsupported nested value type")
	}
	return nil
}

func encodePackedInt(buf *Buffer, n int64) {
	switch {
	case n >= 0 && n < 128:
		buf.WriteByte(byte(n))
	case n < 0 && n >= -32:
		buf.WriteByte(byte(0xe0 | (n & 0x1f)))
	case n >= math.MinInt8 && n <= math.MaxInt8:
		buf.WriteByte(mpInt8)
		buf.WriteByte(byte(int8(n)))
	case n >= math.MinInt16 && n <= math.MaxInt16:
		buf.WriteByte(mpInt16)
		buf.WriteUint16(uint16(int16(n)))
	case n >= math.MinInt32 && n <= math.MaxInt32:
		buf.WriteByte(mpInt32)
		buf.WriteUint32(uint32(int32(n)))
	default:
		buf.WriteByte(mpInt64)
		buf.WriteUint64(uint64(n))
	}
}

func encodePackedUint(buf *Buffer, n uint64) {
	switch {
	case n < 128:
		buf.WriteByte(byte(n))
	case n <= math.MaxUint8:
		buf.WriteByte(mpUint8)
		buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		buf.WriteByte(mpUint16)
		buf.WriteUint16(uint16(n))
	case n <= math.MaxUint32:
		buf.WriteByte(mpUint32)
		buf.WriteUint32(uint32(n))
	default:
		buf.WriteByte(mpUint64)
		buf.WriteUint64(n)
	}
}

func encodePackedString(buf *Buffer, s string) {
	n := len(s)
	switch {
	case n < 32:
		buf.WriteByte(byte(mpFixStrBase | n))
	case n <= math.MaxUint8:
		buf.WriteByte(mpStr8)
		buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		buf.WriteByte(mpStr16)
		buf.WriteUint16(uint16(n))
	default:
		buf.WriteByte(mpStr32)
		buf.WriteUint32(uint32(n))
	}
	buf.WriteString(s)
}

func encodePackedBin(buf *Buffer, b []byte) {
	n := len(b)
	switch {
	case n <= math.MaxUint8:
		buf.WriteByte(mpBin8)
		buf.WriteByte(byte(n))
	case n <= math.MaxUint16:
		buf.WriteByte(mpBin16)
		buf.WriteUint16(uint16(n))
	default:
		buf.WriteByte(mpBin32)
		buf.WriteUint32(uint32(n))
	}
	buf.WriteBytes(b)
}

func encodePackedList(buf *Buffer, l types.ListValue) error {
	n := len(l)
	switch {
	case n < 16:
		buf.WriteByte(byte(mpFixArrBase | n))
	case n <= math.MaxUint16:
		buf.WriteByte(mpArray16)
		buf.WriteUint16(uint16(n))
	default:
		buf.WriteByte(mpArray32)
		buf.WriteUint32(uint32(n))
	}
	for _, elem := range l {
		if err := encodePackedValue(buf, elem); err != nil {
			return err
		}
	}
	return nil
}

func encodePackedMap(buf *Buffer, m types.MapValue) error {
	// Aerospike extension: an ext8(type=0, content=order-bits) header
	// immediately precedes the map header so a reader without prior
	// knowledge can recover Order.
	buf.WriteByte(mpExt8)
	buf.WriteByte(1)
	buf.WriteByte(aeroExtMapOrder)
	if m.Order == types.MapKeyOrdered {
		buf.WriteByte(0x01)
	} else {
		buf.WriteByte(0x00)
	}

	n := len(m.Entries)
	switch {
	case n < 16:
		buf.WriteByte(byte(mpFixMapBase | n))
	case n <= math.MaxUint16:
		buf.WriteByte(mpMap16)
		buf.WriteUint16(uint16(n))
	default:
		buf.WriteByte(mpMap32)
		buf.WriteUint32(uint32(n))
	}

	entries := m.Entries
	if m.Order == types.MapKeyOrdered {
		entries = sortedMapEntries(entries)
	}
	for _, e := range entries {
		if err := encodePackedValue(buf, e.Key); err != nil {
			return err
		}
		if err := encodePackedValue(buf, e.Value); err != nil {
			return err
		}
	}
	return nil
}

// DecodeCollection parses a packed List or Map from data, dispatching on
// particle type the way EncodeCollection's caller chose it.
func DecodeCollection(pt types.ParticleType, data []byte, opts DecodeOptions) (types.Value, error) {
	r := NewReader(data)
	v, err := decodePackedValue(r, opts)
	if err != nil {
		return nil, err
	}
	switch pt {
	case types.ParticleList:
		if _, ok := v.(types.ListValue); !ok {
			return nil, errMalformedCollection("expected packed array for list particle")
		}
	case types.ParticleMap:
		if _, ok := v.(types.MapValue); !ok {
			return nil, errMalformedCollection("expected packed map for map particle")
		}
	}
	return v, nil
}

func decodePackedValue(r *Reader, opts DecodeOptions) (types.Value, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	switch {
	case b == mpNilByte:
		return types.NilValue{}, nil
	case b == mpFalseByte:
		return types.BoolValue(false), nil
	case b == mpTrueByte:
		return types.BoolValue(true), nil
	case b < 0x80: // positive fixint
		return types.IntegerValue(int64(b)), nil
	case b >= 0xe0: // negative fixint
		return types.IntegerValue(int64(int8(b))), nil
	case b == mpUint8:
		v, err := r.ReadByte()
		return types.UIntValue(v), err
	case b == mpUint16:
		v, err := r.ReadUint16()
		return types.UIntValue(v), err
	case b == mpUint32:
		v, err := r.ReadUint32()
		return types.UIntValue(v), err
	case b == mpUint64:
		v, err := r.ReadUint64()
		return types.UIntValue(v), err
	case b == mpInt8:
		v, err := r.ReadByte()
		return types.IntegerValue(int64(int8(v))), err
	case b == mpInt16:
		v, err := r.ReadUint16()
		return types.IntegerValue(int64(int16(v))), err
	case b == mpInt32:
		v, err := r.ReadUint32()
		return types.IntegerValue(int64(int32(v))), err
	case b == mpInt64:
		v, err := r.ReadUint64()
		return types.IntegerValue(int64(v)), err
	case b == mpFloat64:
		v, err := r.ReadUint64()
		return types.FloatValue(math.Float64frombits(v)), err
	case b&0xe0 == mpFixStrBase:
		return decodePackedString(r, int(b&0x1f))
	case b == mpStr8:
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return decodePackedString(r, int(n))
	case b == mpStr16:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return decodePackedString(r, int(n))
	case b == mpStr32:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return decodePackedString(r, int(n))
	case b == mpBin8:
		n, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return decodePackedBin(r, int(n))
	case b == mpBin16:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return decodePackedBin(r, int(n))
	case b == mpBin32:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return decodePackedBin(r, int(n))
	case b&0xf0 == mpFixArrBase:
		return decodePackedList(r, int(b&0x0f), opts)
	case b == mpArray16:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return decodePackedList(r, int(n), opts)
	case b == mpArray32:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return decodePackedList(r, int(n), opts)
	case b&0xf0 == mpFixMapBase:
		return decodePackedMap(r, int(b&0x0f), types.MapUnordered, opts)
	case b == mpMap16:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return decodePackedMap(r, int(n), types.MapUnordered, opts)
	case b == mpMap32:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return decodePackedMap(r, int(n), types.MapUnordered, opts)
	case b == mpExt8:
		return decodePackedExtMap(r, opts)
	default:
		return nil, errMalformedCollection("unrecognized packed type tag")
	}
}

func decodePackedString(r *Reader, n int) (types.Value, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	return types.StringValue(b), nil
}

func decodePackedBin(r *Reader, n int) (types.Value, error) {
	b, err := r.ReadBytes(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return types.BytesValue(out), nil
}

func decodePackedList(r *Reader, n int, opts DecodeOptions) (types.Value, error) {
	out := make(types.ListValue, 0, n)
	for i := 0; i < n; i++ {
		v, err := decodePackedValue(r, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodePackedMap(r *Reader, n int, order types.MapOrder, opts DecodeOptions) (types.Value, error) {
	entries := make([]types.MapEntry, 0, n)
	for i := 0; i < n; i++ {
		k, err := decodePackedValue(r, opts)
		if err != nil {
			return nil, err
		}
		v, err := decodePackedValue(r, opts)
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.MapEntry{Key: k, Value: v})
	}
	return types.MapValue{Entries: entries, Order: order}, nil
}

// decodePackedExtMap handles the Aerospike map-order extension that
// precedes a map header: ext8, length 1, type aeroExtMapOrder, one
// content byte of order bits.
func decodePackedExtMap(r *Reader, opts DecodeOptions) (types.Value, error) {
	length, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	extType, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	content, err := r.ReadBytes(int(length))
	if err != nil {
		return nil, err
	}
	if extType != aeroExtMapOrder || len(content) < 1 {
		return nil, errMalformedCollection("unrecognized packed extension")
	}
	order := types.MapUnordered
	if content[0]&0x01 != 0 {
		order = types.MapKeyOrdered
	}

	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	switch {
	case b&0xf0 == mpFixMapBase:
		return decodePackedMap(r, int(b&0x0f), order, opts)
	case b == mpMap16:
		n, err := r.ReadUint16()
		if err != nil {
			return nil, err
		}
		return decodePackedMap(r, int(n), order, opts)
	case b == mpMap32:
		n, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		return decodePackedMap(r, int(n), order, opts)
	default:
		return nil, errMalformedCollection("ext map order tag not followed by a map header")
	}
}

// sortedMapEntries returns a copy of entries sorted by Key's wire-encoded
// bytes, implementing the key-ordered sub-flag from spec §4.1.
func sortedMapEntries(entries []types.MapEntry) []types.MapEntry {
	out := make([]types.MapEntry, len(entries))
	copy(out, entries)
	// Insertion sort: collections in practice are small (CDT ops operate
	// on individual bins, not cluster-wide datasets), and keeps the
	// comparator simple — byte-compare each key's packed encoding.
	keyBytes := make([][]byte, len(out))
	for i, e := range out {
		b := NewBuffer(16)
		_ = encodePackedValue(b, e.Key)
		keyBytes[i] = append([]byte(nil), b.Bytes()...)
	}
	for i := 1; i < len(out); i++ {
		j := i
		for j > 0 && compareBytes(keyBytes[j-1], keyBytes[j]) > 0 {
			keyBytes[j-1], keyBytes[j] = keyBytes[j], keyBytes[j-1]
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int(a[i]) - int(b[i])
		}
	}
	return len(a) - len(b)
}
