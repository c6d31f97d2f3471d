package ops

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/cuemby/aerospike-go/internal/testutil"
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/hostparse"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scanFrames builds recordCount synthetic record frames, each with one
// "n" bin holding its index, followed by a last-record marker frame —
// the full reply sequence a single scan request triggers.
func scanFrames(t *testing.T, recordCount int) [][]byte {
	frames := make([][]byte, 0, recordCount+1)
	for i := 0; i < recordCount; i++ {
		var digest types.Digest
		digest[0] = byte(i)
		msg := codec.NewBuffer(64)
		writeScanResponseHeader(msg, byte(aeroerr.OK), 0, 1, 1)
		writeField(msg, FieldDigest, digest[:])
		if err := writeOp(msg, OpRead, "n", types.IntegerValue(int64(i))); err != nil {
			t.Fatal(err)
		}
		frames = append(frames, msg.Bytes())
	}
	last := codec.NewBuffer(32)
	writeScanResponseHeader(last, byte(aeroerr.OK), infoAttrLast, 0, 0)
	frames = append(frames, last.Bytes())
	return frames
}

// writeScanResponseHeader writes a 22-byte response header carrying a
// caller-chosen info_attr byte (for the last-record marker) alongside
// the result code, generation, field, and op counts.
func writeScanResponseHeader(buf *codec.Buffer, resultCode byte, infoAttr byte, nFields, nOps uint16) {
	buf.WriteByte(requestHeaderSize)
	buf.WriteByte(0)
	buf.WriteByte(0)
	buf.WriteByte(infoAttr)
	buf.WriteByte(0)
	buf.WriteByte(resultCode)
	buf.WriteUint32(1)
	buf.WriteUint32(0)
	buf.WriteUint32(0)
	buf.WriteUint16(nFields)
	buf.WriteUint16(nOps)
}

func newScanTestCluster(t *testing.T, addr string) *cluster.Cluster {
	_, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	pol := policy.DefaultClientPolicy()
	pol.ConnectionTimeout = 2 * time.Second
	pol.TendInterval = 20 * time.Millisecond

	clu, err := cluster.New(context.Background(), []hostparse.Host{{Name: "127.0.0.1", Port: port}}, pol, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(clu.Close)

	require.NoError(t, testutil.DefaultWaiter().WaitForTable(context.Background(), clu, "test"))
	return clu
}

func TestScanYieldsAllRecordsThenCloses(t *testing.T) {
	fn := testutil.StartFakeStreamNode(t, "BB1",
		func(payload []byte) [][]byte { return scanFrames(t, 5) },
		testutil.WithAllPartitionsReplicas("test"))
	clu := newScanTestCluster(t, fn.Addr)

	s := &Scan{Namespace: "test"}
	stream, err := s.Run(context.Background(), clu)
	require.NoError(t, err)

	count := 0
	for res := range stream {
		require.NoError(t, res.Err)
		require.NotNil(t, res.Record)
		count++
	}
	assert.Equal(t, 5, count)
}

func TestScanUnknownNamespaceFails(t *testing.T) {
	fn := testutil.StartFakeStreamNode(t, "BB1",
		func(payload []byte) [][]byte { return scanFrames(t, 0) },
		testutil.WithAllPartitionsReplicas("test"))
	clu := newScanTestCluster(t, fn.Addr)

	s := &Scan{Namespace: "does-not-exist"}
	_, err := s.Run(context.Background(), clu)
	require.Error(t, err)
	kind, ok := aeroerr.KindOf(err)
	require.True(t, ok)
	assert.Equal(t, aeroerr.NoAvailableNode, kind)
}
