package ops

import (
	"context"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/cluster"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/node"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// PredicateOp is the comparison a secondary-index predicate applies
// (spec §4.6 "secondary-index predicates").
type PredicateOp byte

const (
	PredicateEqual PredicateOp = iota
	PredicateRange
)

// QueryPredicate filters a Query to records whose indexed bin matches.
// For PredicateRange, Begin and End bound the range inclusively; for
// PredicateEqual only Begin is used.
type QueryPredicate struct {
	BinName string
	Op      PredicateOp
	Begin   types.Value
	End     types.Value
}

// encode writes the predicate as a field payload: op byte, bin name,
// then one or two encoded values (spec leaves secondary-index wire
// format unspecified; this follows the op/field TLV idiom used
// elsewhere in this package).
func (p *QueryPredicate) encode(buf *codec.Buffer) error {
	if len(p.BinName) > types.MaxBinNameLength {
		return aeroerr.Newf(aeroerr.Policy, "bin name %q exceeds %d bytes", p.BinName, types.MaxBinNameLength)
	}
	buf.WriteByte(byte(p.Op))
	buf.WriteByte(byte(len(p.BinName)))
	buf.WriteString(p.BinName)

	encodeValue := func(v types.Value) error {
		pt := v.ParticleType()
		buf.WriteByte(byte(pt))
		sizeOffset := buf.Reserve(4)
		start := buf.Len()
		if codec.IsCollection(pt) {
			if err := codec.EncodeCollection(buf, v); err != nil {
				return err
			}
		} else {
			codec.EncodeScalarValue(buf, v)
		}
		buf.PatchUint32(sizeOffset, uint32(buf.Len()-start))
		return nil
	}

	if err := encodeValue(p.Begin); err != nil {
		return err
	}
	if p.Op == PredicateRange {
		if err := encodeValue(p.End); err != nil {
			return err
		}
	}
	return nil
}

// Query is a Scan narrowed by one or more secondary-index predicates,
// with the same streaming semantics (spec §4.6).
type Query struct {
	Namespace string
	SetName   string
	// Predicates holds the query's secondary-index filters. Only the
	// first is sent on the wire; combining more than one predicate
	// server-side is an aggregation concern, not a filter concern.
	Predicates []QueryPredicate
	Selector   BinSelector
	Policy     policy.Policy

	// Aggregation names an optional server-side aggregation stream
	// (e.g. a UDF stream function) applied before results are returned.
	// Empty means no aggregation.
	Aggregation string
}

// Run issues the query against every master node in parallel, same
// fan-out/fan-in shape as Scan.Run.
func (q *Query) Run(ctx context.Context, clu *cluster.Cluster) (<-chan StreamResult, error) {
	table := clu.Table(q.Namespace)
	if table == nil {
		return nil, aeroerr.Newf(aeroerr.NoAvailableNode, "no partition table for namespace %q", q.Namespace)
	}

	masters := masterNodeSet(table)
	if len(masters) == 0 {
		return nil, aeroerr.New(aeroerr.NoAvailableNode, "no master nodes known for namespace")
	}

	var predicate *QueryPredicate
	if len(q.Predicates) > 0 {
		predicate = &q.Predicates[0]
	}

	out := make(chan StreamResult, 64)
	done := make(chan struct{}, len(masters))
	for _, n := range masters {
		go func(n *node.Node) {
			streamNode(ctx, n, q.Namespace, q.SetName, infoAttrQuery, predicate, q.Aggregation, q.Selector, q.Policy, "query", out)
			done <- struct{}{}
		}(n)
	}

	go func() {
		for range masters {
			<-done
		}
		close(out)
	}()

	return out, nil
}
