package codec

import (
	"testing"

	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		v    types.Value
		pt   types.ParticleType
	}{
		{"nil", types.NilValue{}, types.ParticleNil},
		{"bool true", types.BoolValue(true), types.ParticleBool},
		{"bool false", types.BoolValue(false), types.ParticleBool},
		{"negative int", types.IntegerValue(-12345), types.ParticleInt},
		{"uint", types.UIntValue(18446744073709551615), types.ParticleUInt},
		{"float", types.FloatValue(3.14159), types.ParticleFloat},
		{"string", types.StringValue("hello aerospike"), types.ParticleString},
		{"blob", types.BytesValue([]byte{0x01, 0x02, 0x03}), types.ParticleBlob},
		{"hll", types.HLLValue([]byte{0xaa, 0xbb}), types.ParticleHLL},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := NewBuffer(32)
			EncodeScalarValue(buf, tc.v)
			got, err := DecodeScalarValue(tc.pt, buf.Bytes(), DecodeOptions{})
			require.NoError(t, err)
			assert.Equal(t, tc.v, got)
		})
	}
}

func TestDecodeScalarUnknownParticle(t *testing.T) {
	_, err := DecodeScalarValue(types.ParticleType(99), []byte{1, 2, 3}, DecodeOptions{})
	assert.Error(t, err)

	v, err := DecodeScalarValue(types.ParticleType(99), []byte{1, 2, 3}, DecodeOptions{PermissiveUnknownParticle: true})
	require.NoError(t, err)
	assert.Equal(t, types.BytesValue([]byte{1, 2, 3}), v)
}

func TestPackedListRoundTrip(t *testing.T) {
	list := types.ListValue{
		types.IntegerValue(1),
		types.StringValue("two"),
		types.ListValue{types.IntegerValue(3), types.BoolValue(true)},
		types.NilValue{},
	}

	buf := NewBuffer(64)
	require.NoError(t, EncodeCollection(buf, list))

	got, err := DecodeCollection(types.ParticleList, buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestPackedMapRoundTrip(t *testing.T) {
	m := types.MapValue{
		Order: types.MapUnordered,
		Entries: []types.MapEntry{
			{Key: types.StringValue("b"), Value: types.IntegerValue(2)},
			{Key: types.StringValue("a"), Value: types.IntegerValue(1)},
		},
	}

	buf := NewBuffer(64)
	require.NoError(t, EncodeCollection(buf, m))

	got, err := DecodeCollection(types.ParticleMap, buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	gotMap, ok := got.(types.MapValue)
	require.True(t, ok)
	assert.Equal(t, types.MapUnordered, gotMap.Order)
	assert.Equal(t, m.Entries, gotMap.Entries)
}

func TestPackedMapKeyOrderedEncodesSorted(t *testing.T) {
	m := types.MapValue{
		Order: types.MapKeyOrdered,
		Entries: []types.MapEntry{
			{Key: types.StringValue("z"), Value: types.IntegerValue(26)},
			{Key: types.StringValue("a"), Value: types.IntegerValue(1)},
			{Key: types.StringValue("m"), Value: types.IntegerValue(13)},
		},
	}

	buf := NewBuffer(64)
	require.NoError(t, EncodeCollection(buf, m))

	got, err := DecodeCollection(types.ParticleMap, buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	gotMap, ok := got.(types.MapValue)
	require.True(t, ok)
	assert.Equal(t, types.MapKeyOrdered, gotMap.Order)
	require.Len(t, gotMap.Entries, 3)
	assert.Equal(t, types.StringValue("a"), gotMap.Entries[0].Key)
	assert.Equal(t, types.StringValue("m"), gotMap.Entries[1].Key)
	assert.Equal(t, types.StringValue("z"), gotMap.Entries[2].Key)
}

func TestPackedNestedCollections(t *testing.T) {
	inner := types.MapValue{Entries: []types.MapEntry{
		{Key: types.IntegerValue(1), Value: types.StringValue("one")},
	}}
	list := types.ListValue{inner, types.FloatValue(2.5)}

	buf := NewBuffer(64)
	require.NoError(t, EncodeCollection(buf, list))

	got, err := DecodeCollection(types.ParticleList, buf.Bytes(), DecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, list, got)
}

func TestBufferReserveAndPatch(t *testing.T) {
	buf := NewBuffer(16)
	buf.WriteByte(0xaa)
	offset := buf.Reserve(4)
	buf.WriteByte(0xbb)
	buf.PatchUint32(offset, 42)

	r := NewReader(buf.Bytes())
	b, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xaa), b)

	v, err := r.ReadUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), v)

	b, err = r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(0xbb), b)
}

func TestReaderTruncated(t *testing.T) {
	r := NewReader([]byte{1, 2})
	_, err := r.ReadUint32()
	assert.Error(t, err)
}
