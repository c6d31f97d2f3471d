// Package testutil provides fake-node test servers and polling helpers
// shared across pkg/command, pkg/cluster, pkg/ops, and pkg/node tests,
// so each package's test suite isn't re-implementing the same
// single-node Aerospike stub.
package testutil

import (
	"context"
	"encoding/base64"
	"net"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/conn"
)

// FakeNode is a single-node fake Aerospike server that accepts any number
// of connections: it answers Info
// queries from a scripted table and replies to every AerospikeMessage by
// calling respond with the attempt count (1-based) and the request
// payload, so a fixture can either script canned bytes per attempt or
// decode the request to build a realistic reply. respond returning a nil
// reply drops the connection instead of answering, simulating a reply
// that never arrives: the request itself was read, so the client sees it
// as delivered.
type FakeNode struct {
	Addr     string
	NodeName string

	info     map[string]string
	raw      string
	respond  func(attempt int, payload []byte) []byte
	stream   func(payload []byte) [][]byte
	attempts atomic.Int32
}

// FakeNodeOption configures a FakeNode's Info responses before it starts
// accepting connections.
type FakeNodeOption func(*FakeNode)

// WithReplicas sets the replicas-master and replicas-all Info values to
// a single namespace whose partition 0 bit is set, the minimum a
// partition-table rebuild needs to succeed.
func WithReplicas(namespace string) FakeNodeOption {
	return func(f *FakeNode) {
		bitmap := MasterBitmapForPartition0()
		f.info["replicas-master"] = namespace + ":" + bitmap
		f.info["replicas-all"] = namespace + ":" + bitmap
	}
}

// WithInfo overrides or adds one Info key/value pair served verbatim.
func WithInfo(key, value string) FakeNodeOption {
	return func(f *FakeNode) { f.info[key] = value }
}

// WithRawInfo answers every Info request with payload verbatim,
// regardless of the keys requested, for tests that only care about a
// fixed canned response.
func WithRawInfo(payload string) FakeNodeOption {
	return func(f *FakeNode) { f.raw = payload }
}

// WithAllPartitionsReplicas sets every partition's master and replica
// bitmap bit for namespace, so every key in the namespace routes to this
// one node regardless of its digest.
func WithAllPartitionsReplicas(namespace string) FakeNodeOption {
	return func(f *FakeNode) {
		bitmap := make([]byte, cluster.NumPartitions/8)
		for i := range bitmap {
			bitmap[i] = 0xff
		}
		b64 := base64.StdEncoding.EncodeToString(bitmap)
		f.info["replicas-master"] = namespace + ":" + b64
		f.info["replicas-all"] = namespace + ":" + b64
	}
}

// MasterBitmapForPartition0 returns the base64 partition bitmap with
// only partition 0 owned, the shape rebuildPartitionTables expects.
func MasterBitmapForPartition0() string {
	bitmap := make([]byte, cluster.NumPartitions/8)
	bitmap[0] = 0x01
	return base64.StdEncoding.EncodeToString(bitmap)
}

// StartFakeNode listens on an ephemeral loopback port and serves Info
// and Aerospike-message requests until the test completes. respond may
// be nil for tests that never send an AerospikeMessage (pure tend/seed
// discovery tests).
func StartFakeNode(t testing.TB, nodeName string, respond func(attempt int, payload []byte) []byte, opts ...FakeNodeOption) *FakeNode {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	f := &FakeNode{
		Addr:     ln.Addr().String(),
		NodeName: nodeName,
		respond:  respond,
		info: map[string]string{
			"node":                 nodeName,
			"partition-generation": "1",
			"peers-generation":     "1",
			"peers":                "",
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	go f.serve(ln)
	return f
}

// StartFakeStreamNode is StartFakeNode for scan/query-style fixtures: a
// single AerospikeMessage request triggers every frame stream returns,
// in order (typically several record frames followed by a last-record
// marker), rather than one reply per request.
func StartFakeStreamNode(t testing.TB, nodeName string, stream func(payload []byte) [][]byte, opts ...FakeNodeOption) *FakeNode {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	f := &FakeNode{
		Addr:     ln.Addr().String(),
		NodeName: nodeName,
		stream:   stream,
		info: map[string]string{
			"node":                 nodeName,
			"partition-generation": "1",
			"peers-generation":     "1",
			"peers":                "",
		},
	}
	for _, opt := range opts {
		opt(f)
	}

	go f.serve(ln)
	return f
}

func (f *FakeNode) serve(ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		go f.handle(c)
	}
}

func (f *FakeNode) handle(c net.Conn) {
	defer c.Close()
	sc := conn.Wrap(c, f.NodeName, 0)
	ctx := context.Background()

	for {
		typ, payload, err := sc.ReadMessage(ctx)
		if err != nil {
			return
		}

		if typ == conn.MessageTypeInfo {
			resp := f.infoResponse(string(payload))
			if err := sc.WriteMessage(ctx, conn.MessageTypeInfo, []byte(resp)); err != nil {
				return
			}
			continue
		}

		if f.stream != nil {
			for _, frame := range f.stream(payload) {
				if err := sc.WriteMessage(ctx, conn.MessageTypeAerospike, frame); err != nil {
					return
				}
			}
			continue
		}

		if f.respond == nil {
			return
		}
		attempt := int(f.attempts.Add(1))
		resp := f.respond(attempt, payload)
		if resp == nil {
			// A nil reply simulates a dropped request: close the
			// connection without answering so the caller's socket
			// read times out or fails, forcing a retry on a fresh
			// connection.
			return
		}
		if err := sc.WriteMessage(ctx, conn.MessageTypeAerospike, resp); err != nil {
			return
		}
	}
}

// infoResponse answers each newline-separated key in request with the
// matching entry from f.info, skipping keys it has no value for.
func (f *FakeNode) infoResponse(request string) string {
	if f.raw != "" {
		return f.raw
	}

	var out strings.Builder
	for _, key := range strings.Split(strings.TrimRight(request, "\n"), "\n") {
		if key == "" {
			continue
		}
		if value, ok := f.info[key]; ok {
			out.WriteString(key)
			out.WriteByte('\t')
			out.WriteString(value)
			out.WriteByte('\n')
		}
	}
	return out.String()
}

// Attempts reports how many AerospikeMessage requests this node has
// passed to respond so far, including ones respond chose to drop.
func (f *FakeNode) Attempts() int { return int(f.attempts.Load()) }
