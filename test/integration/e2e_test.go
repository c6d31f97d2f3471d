// Package integration exercises the public Client surface end to end
// against a fake single-node cluster, the way pkg/command and pkg/ops's
// own tests exercise the layers beneath it in isolation.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/cuemby/aerospike-go"
	"github.com/cuemby/aerospike-go/internal/testutil"
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/ops"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, addr string) *aerospike.Client {
	t.Helper()

	clientPol := policy.DefaultClientPolicy()
	clientPol.ConnectionTimeout = 2 * time.Second
	clientPol.TendInterval = 20 * time.Millisecond

	defaultPol := policy.DefaultPolicy()
	defaultPol.TotalTimeout = 2 * time.Second
	defaultPol.SocketTimeout = 500 * time.Millisecond

	c, err := aerospike.New(context.Background(), addr, clientPol, defaultPol, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close(time.Second) })
	return c
}

func testKey(t *testing.T, userKey string) *types.Key {
	t.Helper()
	k, err := types.NewKey("test", "test", types.StringValue(userKey))
	require.NoError(t, err)
	return k
}

// TestBasicCRUD covers put/get/delete against a fresh key (spec §8
// scenario 1).
func TestBasicCRUD(t *testing.T) {
	store := newRecordStore()
	fn := testutil.StartFakeNode(t, "BB1", store.respond, testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	key := testKey(t, "k1")
	bins := []*types.Bin{
		{Name: "int", Value: types.IntegerValue(999)},
		{Name: "str", Value: types.StringValue("Hello, World!")},
	}
	require.NoError(t, c.Put(context.Background(), key, bins, policy.Policy{}))

	rec, err := c.Get(context.Background(), key, ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rec.Generation)
	intBin, ok := rec.Bin("int")
	require.True(t, ok)
	assert.Equal(t, types.IntegerValue(999), intBin.Value)
	strBin, ok := rec.Bin("str")
	require.True(t, ok)
	assert.Equal(t, types.StringValue("Hello, World!"), strBin.Value)

	existed, err := c.Delete(context.Background(), key, policy.Policy{})
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = c.Delete(context.Background(), key, policy.Policy{})
	require.NoError(t, err)
	assert.False(t, existed)
}

// TestOperateAppendIsAtomicWithRead covers an Operate call combining a
// write and a read of the same bin in one round trip (spec §8 scenario 2).
func TestOperateAppendIsAtomicWithRead(t *testing.T) {
	store := newRecordStore()
	fn := testutil.StartFakeNode(t, "BB1", store.respond, testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	key := testKey(t, "k2")
	require.NoError(t, c.Put(context.Background(), key, []*types.Bin{{Name: "str", Value: types.StringValue("abc")}}, policy.Policy{}))

	result, err := c.Operate(context.Background(), key, []ops.SubOp{
		{Type: ops.OpAppend, BinName: "str", Value: types.StringValue("def")},
		{Type: ops.OpRead, BinName: "str"},
	}, policy.Policy{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, result.Generation)
	strBin, ok := result.Bin("str")
	require.True(t, ok)
	assert.Equal(t, types.StringValue("abcdef"), strBin.Value)

	rec, err := c.Get(context.Background(), key, ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
	require.NoError(t, err)
	strBin, ok = rec.Bin("str")
	require.True(t, ok)
	assert.Equal(t, types.StringValue("abcdef"), strBin.Value)
}

// TestPutWithGenerationGuardFailsOnMismatch covers the optimistic
// concurrency guard: a Put asserting a stale generation is rejected and
// leaves the record untouched (spec §8 scenario 3).
func TestPutWithGenerationGuardFailsOnMismatch(t *testing.T) {
	store := newRecordStore()
	fn := testutil.StartFakeNode(t, "BB1", store.respond, testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	key := testKey(t, "k3")
	require.NoError(t, c.Put(context.Background(), key, []*types.Bin{{Name: "v", Value: types.IntegerValue(1)}}, policy.Policy{}))
	require.NoError(t, c.Put(context.Background(), key, []*types.Bin{{Name: "v", Value: types.IntegerValue(2)}}, policy.Policy{})) // generation now 2

	guarded := policy.DefaultPolicy()
	guarded.GenerationPolicy = policy.GenerationExpectMatch
	guarded.Generation = 1

	err := c.Put(context.Background(), key, []*types.Bin{{Name: "v", Value: types.IntegerValue(3)}}, guarded)
	require.Error(t, err)
	kind, ok := aeroerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aeroerr.Server, kind)

	rec, err := c.Get(context.Background(), key, ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, rec.Generation)
	vBin, ok := rec.Bin("v")
	require.True(t, ok)
	assert.Equal(t, types.IntegerValue(2), vBin.Value)
}

// TestGetRetriesAfterDroppedRequest covers the timeout-and-retry path:
// the first attempt never gets a reply, the second does, and the whole
// call still finishes well inside its budget (spec §8 scenario 4).
func TestGetRetriesAfterDroppedRequest(t *testing.T) {
	store := newRecordStore()
	var reads int
	fn := testutil.StartFakeNode(t, "BB1", func(attempt int, payload []byte) []byte {
		req, err := parseRequest(payload)
		if err == nil && req.writeAttr == 0 && req.infoAttr == 0 {
			reads++
			if reads == 1 {
				return nil // drop the first Get attempt
			}
		}
		return store.respond(attempt, payload)
	}, testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	key := testKey(t, "k4")
	require.NoError(t, c.Put(context.Background(), key, []*types.Bin{{Name: "v", Value: types.IntegerValue(42)}}, policy.Policy{}))

	pol := policy.DefaultPolicy()
	pol.MaxRetries = 2
	pol.SocketTimeout = 100 * time.Millisecond
	pol.SleepBetween = time.Millisecond

	start := time.Now()
	rec, err := c.Get(context.Background(), key, ops.BinSelector{Mode: ops.BinSelectorAll}, pol)
	elapsed := time.Since(start)

	require.NoError(t, err)
	vBin, ok := rec.Bin("v")
	require.True(t, ok)
	assert.Equal(t, types.IntegerValue(42), vBin.Value)
	assert.Equal(t, 2, reads)
	assert.Less(t, elapsed, 300*time.Millisecond)
}

// TestBatchPreservesCallerOrder covers a 1000-key batch read spanning
// both present and absent keys, returned in the caller's order (spec §8
// scenario 5).
func TestBatchPreservesCallerOrder(t *testing.T) {
	store := newRecordStore()
	fn := testutil.StartFakeNode(t, "BB1", store.respond, testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	const n = 1000
	keys := make([]*types.Key, n)
	reads := make([]ops.BatchRead, n)
	for i := 0; i < n; i++ {
		k, err := types.NewKey("test", "test", types.IntegerValue(int64(i)))
		require.NoError(t, err)
		keys[i] = k
		reads[i] = ops.BatchRead{Key: k}

		if i%2 == 0 {
			require.NoError(t, c.Put(context.Background(), k, []*types.Bin{{Name: "v", Value: types.IntegerValue(int64(i))}}, policy.Policy{}))
		}
	}

	results, err := c.Batch(context.Background(), "test", reads, policy.Policy{})
	require.NoError(t, err)
	require.Len(t, results, n)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.True(t, r.Key.Equal(keys[i]))
		if i%2 == 0 {
			assert.True(t, r.Found)
			vBin, ok := r.Record.Bin("v")
			require.True(t, ok)
			assert.Equal(t, types.IntegerValue(int64(i)), vBin.Value)
		} else {
			assert.False(t, r.Found)
		}
	}
}

// TestScanYieldsEveryRecordExactlyOnce covers full-namespace scan
// completion: N records in, N records out, no dupes (spec §8 scenario 6).
func TestScanYieldsEveryRecordExactlyOnce(t *testing.T) {
	const n = 25
	fn := testutil.StartFakeStreamNode(t, "BB1",
		func(payload []byte) [][]byte { return scanFrames(t, n) },
		testutil.WithAllPartitionsReplicas("test"))
	c := newTestClient(t, fn.Addr)

	stream, err := c.Scan(context.Background(), "test", "", ops.BinSelector{Mode: ops.BinSelectorAll}, policy.Policy{})
	require.NoError(t, err)

	seen := make(map[int64]bool)
	for res := range stream {
		require.NoError(t, res.Err)
		nBin, ok := res.Record.Bin("n")
		require.True(t, ok)
		idx := int64(nBin.Value.(types.IntegerValue))
		assert.False(t, seen[idx], "duplicate record %d", idx)
		seen[idx] = true
	}
	assert.Len(t, seen, n)
}

// scanFrames builds recordCount synthetic record frames carrying one
// "n" bin each, followed by the last-record marker frame, mirroring
// what a node streams back for a Scan/Query call.
func scanFrames(t *testing.T, recordCount int) [][]byte {
	t.Helper()
	const infoAttrLast = 1 << 3

	frames := make([][]byte, 0, recordCount+1)
	for i := 0; i < recordCount; i++ {
		buf := codec.NewBuffer(64)
		writeHeader(buf, 0, 1, 0, 1)
		writeRespOp(buf, "n", types.IntegerValue(int64(i)))
		frames = append(frames, buf.Bytes())
	}
	last := codec.NewBuffer(32)
	writeHeaderWithInfoAttr(last, infoAttrLast, 0, 0, 0)
	frames = append(frames, last.Bytes())
	return frames
}
