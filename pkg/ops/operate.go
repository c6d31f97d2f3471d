package ops

import (
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/policy"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// opContextFlag marks, in the high bit of an op TLV's op_type byte,
// that a packed CDT context path precedes the value (spec §4.6: "each
// entry is {op_code, bin_name, value, optional CDT-context-path}").
const opContextFlag byte = 0x80

// SubOp is one entry of an Operate call's ordered sub-operation list
// (spec §4.6). Context is optional; a zero-value CDTContext means "act
// on the bin's top-level value".
type SubOp struct {
	Type    OpType
	BinName string
	Value   types.Value
	Context types.CDTContext
}

func contextToList(ctx types.CDTContext) types.ListValue {
	list := make(types.ListValue, 0, len(ctx.Steps)*2)
	for _, step := range ctx.Steps {
		switch step.Type {
		case types.CDTContextListIndex:
			list = append(list, types.IntegerValue(0), types.IntegerValue(int64(step.Index)))
		case types.CDTContextMapKey:
			list = append(list, types.IntegerValue(1), step.Key)
		}
	}
	return list
}

// writeSubOp appends one Operate sub-operation TLV, inlining its CDT
// context (if any) as a packed list ahead of the value and flagging
// op_type's high bit so the reader knows to expect it.
func writeSubOp(buf *codec.Buffer, s SubOp) error {
	if len(s.BinName) > types.MaxBinNameLength {
		return aeroerr.Newf(aeroerr.Policy, "bin name %q exceeds %d bytes", s.BinName, types.MaxBinNameLength)
	}

	hasContext := len(s.Context.Steps) > 0
	opType := byte(s.Type)
	if hasContext {
		opType |= opContextFlag
	}

	contextBuf := codec.NewBuffer(16)
	if hasContext {
		if err := codec.EncodeCollection(contextBuf, contextToList(s.Context)); err != nil {
			return err
		}
	}

	valueBuf := codec.NewBuffer(32)
	var particleType types.ParticleType
	if s.Value == nil {
		particleType = types.ParticleNil
	} else {
		particleType = s.Value.ParticleType()
		if codec.IsCollection(particleType) {
			if err := codec.EncodeCollection(valueBuf, s.Value); err != nil {
				return err
			}
		} else {
			codec.EncodeScalarValue(valueBuf, s.Value)
		}
	}

	contextPrefix := 0
	if hasContext {
		contextPrefix = 2 + contextBuf.Len() // u16 length prefix + payload
	}

	opSize := 1 + 1 + 1 + len(s.BinName) + contextPrefix + valueBuf.Len()
	buf.WriteUint32(uint32(opSize))
	buf.WriteByte(opType)
	buf.WriteByte(byte(particleType))
	buf.WriteByte(byte(len(s.BinName)))
	buf.WriteString(s.BinName)
	if hasContext {
		buf.WriteUint16(uint16(contextBuf.Len()))
		buf.WriteBytes(contextBuf.Bytes())
	}
	buf.WriteBytes(valueBuf.Bytes())
	return nil
}

// readSubOpResult reads one response op TLV produced by Operate,
// unwrapping an inlined CDT context the same way writeSubOp wrote it.
func readSubOpResult(r *codec.Reader, opts codec.DecodeOptions) (binName string, value types.Value, err error) {
	opSize, err := r.ReadUint32()
	if err != nil {
		return "", nil, err
	}
	opType, err := r.ReadByte()
	if err != nil {
		return "", nil, err
	}
	particleType, err := r.ReadByte()
	if err != nil {
		return "", nil, err
	}
	nameLen, err := r.ReadByte()
	if err != nil {
		return "", nil, err
	}
	nameBytes, err := r.ReadBytes(int(nameLen))
	if err != nil {
		return "", nil, err
	}

	consumed := 1 + 1 + 1 + int(nameLen)
	if opType&opContextFlag != 0 {
		ctxLen, err := r.ReadUint16()
		if err != nil {
			return "", nil, err
		}
		if _, err := r.ReadBytes(int(ctxLen)); err != nil {
			return "", nil, err
		}
		consumed += 2 + int(ctxLen)
	}

	valueLen := int(opSize) - consumed
	if valueLen < 0 {
		return "", nil, aeroerr.New(aeroerr.Protocol, "sub-op size smaller than its fixed fields")
	}
	valueBytes, err := r.ReadBytes(valueLen)
	if err != nil {
		return "", nil, err
	}

	pt := types.ParticleType(particleType)
	var v types.Value
	if codec.IsCollection(pt) {
		v, err = codec.DecodeCollection(pt, valueBytes, opts)
	} else {
		v, err = codec.DecodeScalarValue(pt, valueBytes, opts)
	}
	if err != nil {
		return "", nil, err
	}
	return string(nameBytes), v, nil
}

// Operate executes an ordered list of sub-operations atomically against
// one record (spec §4.6).
type Operate struct {
	Key    *types.Key
	Ops    []SubOp
	Policy policy.Policy

	Result *types.Record
}

func (o *Operate) IsWrite() bool {
	for _, s := range o.Ops {
		switch s.Type {
		case OpWrite, OpAppend, OpPrepend, OpAdd, OpTouch, OpDelete:
			return true
		}
	}
	return false
}

func (o *Operate) WriteRequest(buf *codec.Buffer) error {
	nFields := writeKeyFields(buf, o.Key, o.Policy.SendKey)

	var readAttr, writeAttr byte
	for _, s := range o.Ops {
		switch s.Type {
		case OpRead:
			readAttr |= readAttrRead
		default:
			writeAttr |= writeAttrWrite
		}
	}
	if writeAttr != 0 {
		switch o.Policy.GenerationPolicy {
		case policy.GenerationExpectMatch:
			writeAttr |= writeAttrGenEQ
		case policy.GenerationExpectGreater:
			writeAttr |= writeAttrGenGT
		}
	}

	writeRequestHeader(buf, requestHeader{
		ReadAttr:   readAttr,
		WriteAttr:  writeAttr,
		Generation: o.Policy.Generation,
		NFields:    uint16(nFields),
		NOps:       uint16(len(o.Ops)),
	})

	for _, s := range o.Ops {
		if err := writeSubOp(buf, s); err != nil {
			return err
		}
	}
	return nil
}

func (o *Operate) ParseResponse(payload []byte) error {
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

	bins := make([]*types.Bin, 0, h.NOps)
	for i := 0; i < int(h.NOps); i++ {
		name, value, err := readSubOpResult(r, codec.DecodeOptions{})
		if err != nil {
			return err
		}
		if name == "" {
			continue // write-only sub-op produced no output
		}
		bins = append(bins, &types.Bin{Name: name, Value: value})
	}

	o.Result = &types.Record{
		Key:        o.Key,
		Generation: h.Generation,
		Expiration: h.Expiration,
		Bins:       bins,
	}
	return nil
}
