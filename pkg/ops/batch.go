package ops

import (
	"context"
	"sync"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/command"
	"github.com/cuemby/aerospike-go/pkg/metrics"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// BatchRead is one requested key within a Batch call (spec §4.6).
type BatchRead struct {
	Key      *types.Key
	Selector BinSelector
}

// BatchResult is one Batch response entry, positionally aligned with
// the BatchRead that produced it (spec §4.6 "preserves input order").
type BatchResult struct {
	Key    *types.Key
	Record *types.Record
	Found  bool
	Err    error
}

// batchDirect is the per-node "batch direct" request: every key the
// caller's reads had routed to a single node, bundled into one round
// trip (spec §4.6). It implements command.Command so it can run
// through command.ExecuteOnNode's retry loop.
type batchDirect struct {
	namespace string
	keys      []*types.Key
	selector  BinSelector

	results []batchOne
}

type batchOne struct {
	generation uint32
	expiration int32
	bins       []*types.Bin
	found      bool
}

func (b *batchDirect) IsWrite() bool { return false }

func (b *batchDirect) WriteRequest(buf *codec.Buffer) error {
	// Every key shares a namespace, written once as a field; each key's
	// digest is carried as the value of its own read op, and one bin
	// selector applies to the whole request through the read attributes
	// (spec §4.6 leaves batch request layout unspecified beyond "group by
	// node" — this follows the op/field TLV idiom used elsewhere in this
	// package for consistency).
	writeField(buf, FieldNamespace, []byte(b.namespace))

	readAttr := readAttrRead
	switch b.selector.Mode {
	case BinSelectorAll:
		readAttr |= readAttrGetAll
	case BinSelectorNone:
		readAttr |= readAttrNoBinData
	}

	writeRequestHeader(buf, requestHeader{
		ReadAttr: readAttr,
		InfoAttr: infoAttrBatch,
		NFields:  1,
		NOps:     uint16(len(b.keys)),
	})

	for _, k := range b.keys {
		if err := writeOp(buf, OpRead, "", types.BytesValue(k.Digest[:])); err != nil {
			return err
		}
	}
	return nil
}

func (b *batchDirect) ParseResponse(payload []byte) error {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	if err := checkResultCode(h.ResultCode); err != nil {
		return err
	}

	for i := 0; i < int(h.NFields); i++ {
		if _, _, err := readField(r); err != nil {
			return err
		}
	}

	b.results = make([]batchOne, len(b.keys))
	for i := range b.keys {
		entryHeader, err := readResponseHeader(r)
		if err != nil {
			return err
		}
		one := batchOne{generation: entryHeader.Generation, expiration: entryHeader.Expiration}
		if entryHeader.ResultCode == byte(aeroerr.KeyNotFound) {
			one.found = false
		} else if entryHeader.ResultCode == byte(aeroerr.OK) {
			one.found = true
			bins := make([]*types.Bin, 0, entryHeader.NOps)
			for j := 0; j < int(entryHeader.NOps); j++ {
				name, value, err := readOp(r, codec.DecodeOptions{})
				if err != nil {
					return err
				}
				bins = append(bins, &types.Bin{Name: name, Value: value})
			}
			one.bins = bins
		} else {
			return aeroerr.NewServerError(int(entryHeader.ResultCode), "")
		}
		b.results[i] = one
	}
	return nil
}

// Batch resolves every read's owning node via the partition map, issues
// one batchDirect request per node concurrently, and reassembles the
// results in the caller's original order (spec §4.6).
func Batch(ctx context.Context, clu *cluster.Cluster, namespace string, reads []BatchRead, pol policy.Policy) ([]BatchResult, error) {
	type indexedGroup struct {
		n       *node.Node
		indices []int
	}

	groups := make(map[*node.Node]*indexedGroup)
	order := make([]*node.Node, 0)
	results := make([]BatchResult, len(reads))

	for i, rd := range reads {
		results[i] = BatchResult{Key: rd.Key}

		partitionID := cluster.PartitionForDigest(rd.Key.Digest)
		replicas, err := clu.ReplicasFor(namespace, partitionID)
		if err != nil {
			results[i].Err = err
			continue
		}
		n, err := cluster.SelectReplica(replicas, pol.Replica, 0)
		if err != nil {
			results[i].Err = err
			continue
		}

		g, ok := groups[n]
		if !ok {
			g = &indexedGroup{n: n}
			groups[n] = g
			order = append(order, n)
		}
		g.indices = append(g.indices, i)
	}

	metrics.BatchKeysTotal.Add(float64(len(reads)))
	metrics.BatchNodesPerCall.Observe(float64(len(order)))

	var wg sync.WaitGroup
	for _, n := range order {
		g := groups[n]
		wg.Add(1)
		go func(g *indexedGroup) {
			defer wg.Done()

			keys := make([]*types.Key, len(g.indices))
			for j, idx := range g.indices {
				keys[j] = reads[idx].Key
			}

			cmd := &batchDirect{namespace: namespace, keys: keys, selector: reads[g.indices[0]].Selector}
			err := command.ExecuteOnNode(ctx, g.n, pol, cmd)
			for j, idx := range g.indices {
				if err != nil {
					results[idx].Err = err
					continue
				}
				one := cmd.results[j]
				results[idx].Found = one.found
				if one.found {
					results[idx].Record = &types.Record{
						Key:        keys[j],
						Generation: one.generation,
						Expiration: one.expiration,
						Bins:       one.bins,
					}
				}
			}
		}(g)
	}
	wg.Wait()

	return results, nil
}
