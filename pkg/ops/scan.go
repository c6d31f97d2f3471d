package ops

import (
	"context"
	"sync"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/conn"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// StreamResult is one element of a Scan or Query's lazy result sequence
// (spec §4.6 "lazy finite sequence").
type StreamResult struct {
	Record *types.Record
	Err    error
}

// Scan reads every record of a namespace/set by asking each master node
// to stream its partitions (spec §4.6).
type Scan struct {
	Namespace string
	SetName   string
	Selector  BinSelector
	Policy    policy.Policy
}

// Run issues the scan against every master node in parallel and returns
// a channel the caller drains lazily. The channel closes once every
// node's stream has ended, by its last-record marker, an error, or ctx
// being cancelled (spec §4.6). A fatal error on one node is sent on the
// channel as a StreamResult.Err; it does not stop the other nodes'
// streams. A cancelled scan stops emitting further records
// within the in-flight per-node read cycle (spec §4.5 "Cancellation").
func (s *Scan) Run(ctx context.Context, clu *cluster.Cluster) (<-chan StreamResult, error) {
	table := clu.Table(s.Namespace)
	if table == nil {
		return nil, aeroerr.Newf(aeroerr.NoAvailableNode, "no partition table for namespace %q", s.Namespace)
	}

	masters := masterNodeSet(table)
	if len(masters) == 0 {
		return nil, aeroerr.New(aeroerr.NoAvailableNode, "no master nodes known for namespace")
	}

	out := make(chan StreamResult, 64)
	var wg sync.WaitGroup
	for _, n := range masters {
		wg.Add(1)
		go func(n *node.Node) {
			defer wg.Done()
			streamNode(ctx, n, s.Namespace, s.SetName, infoAttrScan, nil, "", s.Selector, s.Policy, "scan", out)
		}(n)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}

// masterNodeSet collects the distinct master (first replica) node for
// every partition in table.
func masterNodeSet(table *cluster.PartitionTable) []*node.Node {
	seen := make(map[*node.Node]bool)
	out := make([]*node.Node, 0)
	for i := 0; i < cluster.NumPartitions; i++ {
		replicas := table.Replicas(i)
		if len(replicas) == 0 || replicas[0] == nil {
			continue
		}
		master := replicas[0]
		if !seen[master] {
			seen[master] = true
			out = append(out, master)
		}
	}
	return out
}

// streamNode issues one streaming request (scan or query) against n and
// pumps decoded records into out until the last-record marker, an error,
// or ctx cancellation. predicate is nil for a plain scan.
func streamNode(ctx context.Context, n *node.Node, namespace, setName string, infoAttr byte, predicate *QueryPredicate, aggregation string, selector BinSelector, pol policy.Policy, kind string, out chan<- StreamResult) {
	c, err := n.Acquire(ctx)
	if err != nil {
		out <- StreamResult{Err: err}
		return
	}

	buf := codec.NewBuffer(128)
	writeField(buf, FieldNamespace, []byte(namespace))
	nFields := 1
	if setName != "" {
		writeField(buf, FieldSetName, []byte(setName))
		nFields++
	}
	if predicate != nil {
		predBuf := codec.NewBuffer(64)
		if err := predicate.encode(predBuf); err != nil {
			n.Discard(c)
			out <- StreamResult{Err: err}
			return
		}
		writeField(buf, FieldQueryPredicates, predBuf.Bytes())
		nFields++
	}
	if aggregation != "" {
		writeField(buf, FieldUDFFunction, []byte(aggregation))
		nFields++
	}

	readAttr := readAttrRead
	switch selector.Mode {
	case BinSelectorAll:
		readAttr |= readAttrGetAll
	case BinSelectorNone:
		readAttr |= readAttrNoBinData
	}

	hdr := requestHeader{ReadAttr: readAttr, InfoAttr: infoAttr, NFields: uint16(nFields)}
	requestBuf := codec.NewBuffer(buf.Len() + requestHeaderSize)
	writeRequestHeader(requestBuf, hdr)
	requestBuf.WriteBytes(buf.Bytes())

	if err := c.WriteMessage(ctx, conn.MessageTypeAerospike, requestBuf.Bytes()); err != nil {
		n.Discard(c)
		out <- StreamResult{Err: err}
		return
	}

	for {
		select {
		case <-ctx.Done():
			n.Discard(c)
			return
		default:
		}

		_, payload, err := c.ReadMessage(ctx)
		if err != nil {
			n.Discard(c)
			out <- StreamResult{Err: err}
			return
		}

		r := codec.NewReader(payload)
		h, err := readResponseHeader(r)
		if err != nil {
			n.Discard(c)
			out <- StreamResult{Err: err}
			return
		}

		if h.InfoAttr&infoAttrLast != 0 {
			n.Release(c)
			return
		}

		if err := checkResultCode(h.ResultCode); err != nil {
			n.Discard(c)
			out <- StreamResult{Err: err}
			return
		}

		var digest *types.Digest
		for i := 0; i < int(h.NFields); i++ {
			typ, data, err := readField(r)
			if err != nil {
				n.Discard(c)
				out <- StreamResult{Err: err}
				return
			}
			if typ == FieldDigest && len(data) == types.DigestSize {
				var d types.Digest
				copy(d[:], data)
				digest = &d
			}
		}

		bins := make([]*types.Bin, 0, h.NOps)
		for i := 0; i < int(h.NOps); i++ {
			name, value, err := readOp(r, codec.DecodeOptions{})
			if err != nil {
				n.Discard(c)
				out <- StreamResult{Err: err}
				return
			}
			bins = append(bins, &types.Bin{Name: name, Value: value})
		}

		var key *types.Key
		if digest != nil {
			key = types.NewKeyWithDigest(namespace, setName, *digest)
		}

		metrics.ScanRecordsTotal.WithLabelValues(kind).Inc()

		select {
		case out <- StreamResult{Record: &types.Record{
			Key:        key,
			Generation: h.Generation,
			Expiration: h.Expiration,
			Bins:       bins,
		}}:
		case <-ctx.Done():
			n.Discard(c)
			return
		}
	}
}
