package ops

import (
	"context"
	"testing"

	"github.com/cuemby/aerospike-go/internal/testutil"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryPredicateEncodeEqual(t *testing.T) {
	p := QueryPredicate{BinName: "age", Op: PredicateEqual, Begin: types.IntegerValue(30)}

	buf := codec.NewBuffer(32)
	require.NoError(t, p.encode(buf))

	r := codec.NewReader(buf.Bytes())
	op, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(PredicateEqual), op)

	nameLen, err := r.ReadByte()
	require.NoError(t, err)
	name, err := r.ReadBytes(int(nameLen))
	require.NoError(t, err)
	assert.Equal(t, "age", string(name))

	pt, err := r.ReadByte()
	require.NoError(t, err)
	assert.Equal(t, byte(types.ParticleInt), pt)
}

func TestQueryRunStreamsFromMasterNodes(t *testing.T) {
	fn := testutil.StartFakeStreamNode(t, "BB1",
		func(payload []byte) [][]byte { return scanFrames(t, 3) },
		testutil.WithAllPartitionsReplicas("test"))
	clu := newScanTestCluster(t, fn.Addr)

	q := &Query{
		Namespace:  "test",
		Predicates: []QueryPredicate{{BinName: "n", Op: PredicateEqual, Begin: types.IntegerValue(1)}},
	}
	stream, err := q.Run(context.Background(), clu)
	require.NoError(t, err)

	count := 0
	for res := range stream {
		require.NoError(t, res.Err)
		count++
	}
	assert.Equal(t, 3, count)
}
