package ops

import (
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// BinSelectorMode controls which bins a Get returns.
type BinSelectorMode int

const (
	BinSelectorAll BinSelectorMode = iota
	BinSelectorNone
	BinSelectorNames
)

// BinSelector configures a Get's projection (spec §4.6).
type BinSelector struct {
	Mode  BinSelectorMode
	Names []string
}

func checkResultCode(rc byte) error {
	code := int(rc)
	if code == int(aeroerr.OK) {
		return nil
	}
	return aeroerr.NewServerError(code, "")
}

// decodeRecordFromResponse reads the common response shape shared by
// Get/Operate: a responseHeader, its fields (skipped — the caller
// already knows its own key), then NOps bin op TLVs assembled into bins.
func decodeRecordFromResponse(payload []byte, key *types.Key) (*types.Record, error) {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return nil, err
	}
	if err := checkResultCode(h.ResultCode); err != nil {
		return nil, err
	}

	for i := 0; i < int(h.NFields); i++ {
		if _, _, err := readField(r); err != nil {
			return nil, err
		}
	}

	bins := make([]*types.Bin, 0, h.NOps)
	for i := 0; i < int(h.NOps); i++ {
		name, value, err := readOp(r, codec.DecodeOptions{})
		if err != nil {
			return nil, err
		}
		bins = append(bins, &types.Bin{Name: name, Value: value})
	}

	return &types.Record{
		Key:        key,
		Generation: h.Generation,
		Expiration: h.Expiration,
		Bins:       bins,
	}, nil
}

// Get fetches a record's bins (spec §4.6).
type Get struct {
	Key      *types.Key
	Selector BinSelector
	Policy   policy.Policy

	Result *types.Record
}

func (g *Get) IsWrite() bool { return false }

func (g *Get) WriteRequest(buf *codec.Buffer) error {
	nFields := writeKeyFields(buf, g.Key, g.Policy.SendKey)

	readAttr := readAttrRead
	switch g.Selector.Mode {
	case BinSelectorAll:
		readAttr |= readAttrGetAll
	case BinSelectorNone:
		readAttr |= readAttrNoBinData
	}

	nOps := 0
	if g.Selector.Mode == BinSelectorNames {
		nOps = len(g.Selector.Names)
	}

	writeRequestHeader(buf, requestHeader{
		ReadAttr: readAttr,
		NFields:  uint16(nFields),
		NOps:     uint16(nOps),
	})

	if g.Selector.Mode == BinSelectorNames {
		for _, name := range g.Selector.Names {
			if err := writeOp(buf, OpRead, name, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Get) ParseResponse(payload []byte) error {
	rec, err := decodeRecordFromResponse(payload, g.Key)
	if err != nil {
		return err
	}
	g.Result = rec
	return nil
}

// Put writes bins to a record, creating it if absent (spec §4.6).
type Put struct {
	Key    *types.Key
	Bins   []*types.Bin
	Policy policy.Policy
}

func (p *Put) IsWrite() bool { return true }

func (p *Put) WriteRequest(buf *codec.Buffer) error {
	for _, b := range p.Bins {
		if err := types.ValidateBinName(b.Name); err != nil {
			return err
		}
	}

	nFields := writeKeyFields(buf, p.Key, p.Policy.SendKey)
	writeAttr := writeAttrWrite | writeAttrCreate
	switch p.Policy.GenerationPolicy {
	case policy.GenerationExpectMatch:
		writeAttr |= writeAttrGenEQ
	case policy.GenerationExpectGreater:
		writeAttr |= writeAttrGenGT
	}
	writeRequestHeader(buf, requestHeader{
		WriteAttr:  writeAttr,
		Generation: p.Policy.Generation,
		NFields:    uint16(nFields),
		NOps:       uint16(len(p.Bins)),
	})
	for _, b := range p.Bins {
		if err := writeOp(buf, OpWrite, b.Name, b.Value); err != nil {
			return err
		}
	}
	return nil
}

func (p *Put) ParseResponse(payload []byte) error {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	return checkResultCode(h.ResultCode)
}

// Delete removes a record (spec §4.6).
type Delete struct {
	Key    *types.Key
	Policy policy.Policy

	Existed bool
}

func (d *Delete) IsWrite() bool { return true }

func (d *Delete) WriteRequest(buf *codec.Buffer) error {
	nFields := writeKeyFields(buf, d.Key, d.Policy.SendKey)
	writeRequestHeader(buf, requestHeader{
		WriteAttr:  writeAttrWrite | writeAttrDelete,
		Generation: d.Policy.Generation,
		NFields:    uint16(nFields),
	})
	return nil
}

func (d *Delete) ParseResponse(payload []byte) error {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	if h.ResultCode == byte(aeroerr.KeyNotFound) {
		d.Existed = false
		return nil
	}
	if err := checkResultCode(h.ResultCode); err != nil {
		return err
	}
	d.Existed = true
	return nil
}

// Touch refreshes a record's expiration without reading or writing bins
// (spec §4.6).
type Touch struct {
	Key    *types.Key
	Policy policy.Policy
}

func (t *Touch) IsWrite() bool { return true }

func (t *Touch) WriteRequest(buf *codec.Buffer) error {
	nFields := writeKeyFields(buf, t.Key, t.Policy.SendKey)
	writeRequestHeader(buf, requestHeader{
		WriteAttr:  writeAttrWrite,
		Generation: t.Policy.Generation,
		NFields:    uint16(nFields),
		NOps:       1,
	})
	return writeOp(buf, OpTouch, "", nil)
}

func (t *Touch) ParseResponse(payload []byte) error {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	return checkResultCode(h.ResultCode)
}

// Exists reports whether a record is present, without returning bins
// (spec §4.6).
type Exists struct {
	Key    *types.Key
	Policy policy.Policy

	Found bool
}

func (e *Exists) IsWrite() bool { return false }

func (e *Exists) WriteRequest(buf *codec.Buffer) error {
	nFields := writeKeyFields(buf, e.Key, e.Policy.SendKey)
	writeRequestHeader(buf, requestHeader{
		ReadAttr: readAttrRead | readAttrNoBinData,
		NFields:  uint16(nFields),
	})
	return nil
}

func (e *Exists) ParseResponse(payload []byte) error {
	r := codec.NewReader(payload)
	h, err := readResponseHeader(r)
	if err != nil {
		return err
	}
	if h.ResultCode == byte(aeroerr.KeyNotFound) {
		e.Found = false
		return nil
	}
	if err := checkResultCode(h.ResultCode); err != nil {
		return err
	}
	e.Found = true
	return nil
}
