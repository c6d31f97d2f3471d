package ops

import (
	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// requestHeaderSize is the fixed 22-byte header preceding every
// AerospikeMessage request/response body (spec §4.6).
const requestHeaderSize = 22

// Read/write/info attribute bits, one flag per bit within their
// respective header byte (spec §4.6 names the bytes but not the bit
// layout; this follows the teacher's flag-byte idiom used elsewhere in
// the codec).
const (
	readAttrRead       byte = 1 << 0
	readAttrAllBins    byte = 1 << 1
	readAttrGetAll     byte = 1 << 2
	readAttrNoBinData  byte = 1 << 3

	writeAttrWrite   byte = 1 << 0
	writeAttrDelete  byte = 1 << 1
	writeAttrCreate  byte = 1 << 2
	// writeAttrGenEQ/writeAttrGenGT select the generation check a write
	// carries (spec §4.5 generation_policy): EQ requires the record's
	// current generation equal the request's, GT requires the request's
	// generation be strictly greater than the record's (used for "only
	// overwrite what I haven't seen").
	writeAttrGenEQ byte = 1 << 3
	writeAttrGenGT byte = 1 << 4

	infoAttrBatch byte = 1 << 0
	infoAttrScan  byte = 1 << 1
	infoAttrQuery byte = 1 << 2
	// infoAttrLast marks a Scan/Query streaming response as the final
	// message for its node (spec §4.6 "last-record marker").
	infoAttrLast byte = 1 << 3
)

// FieldType tags a request field TLV (spec §4.6).
type FieldType byte

const (
	FieldNamespace       FieldType = 0
	FieldSetName         FieldType = 1
	FieldKey             FieldType = 2
	FieldDigest          FieldType = 3
	FieldBatchDigests    FieldType = 4
	FieldScanOptions     FieldType = 5
	FieldQueryPredicates FieldType = 6
	FieldUDFPackage      FieldType = 7
	FieldUDFFunction     FieldType = 8
	FieldUDFArgs         FieldType = 9
)

// OpType tags an operation TLV's action (spec §4.6, §4.1 Non-goals list
// the CDT ops it does not cover; this enumerates the ones this client
// implements).
type OpType byte

const (
	OpRead    OpType = 1
	OpWrite   OpType = 2
	OpAppend  OpType = 3
	OpPrepend OpType = 4
	OpAdd     OpType = 5
	OpTouch   OpType = 6
	OpDelete  OpType = 7
)

// requestHeader is the fixed-size block preceding a request's fields
// and ops (spec §4.6): {header_size, read_attr, write_attr, info_attr,
// unused, result_code, generation, expiration, transaction_ttl,
// n_fields, n_ops}.
type requestHeader struct {
	ReadAttr       byte
	WriteAttr      byte
	InfoAttr       byte
	Generation     uint32
	Expiration     int32
	TransactionTTL uint32
	NFields        uint16
	NOps           uint16
}

func writeRequestHeader(buf *codec.Buffer, h requestHeader) {
	buf.WriteByte(requestHeaderSize)
	buf.WriteByte(h.ReadAttr)
	buf.WriteByte(h.WriteAttr)
	buf.WriteByte(h.InfoAttr)
	buf.WriteByte(0) // unused
	buf.WriteByte(0) // result_code, always 0 on a request
	buf.WriteUint32(h.Generation)
	buf.WriteUint32(uint32(h.Expiration))
	buf.WriteUint32(h.TransactionTTL)
	buf.WriteUint16(h.NFields)
	buf.WriteUint16(h.NOps)
}

// responseHeader mirrors requestHeader for a parsed reply; ResultCode
// is the field callers actually care about.
type responseHeader struct {
	InfoAttr   byte
	ResultCode byte
	Generation uint32
	Expiration int32
	NFields    uint16
	NOps       uint16
}

func readResponseHeader(r *codec.Reader) (responseHeader, error) {
	headerSize, err := r.ReadByte()
	if err != nil {
		return responseHeader{}, err
	}
	if headerSize != requestHeaderSize {
		return responseHeader{}, aeroerr.Newf(aeroerr.Protocol, "unexpected response header size %d", headerSize)
	}
	if _, err := r.ReadBytes(2); err != nil { // read_attr, write_attr
		return responseHeader{}, err
	}
	infoAttr, err := r.ReadByte()
	if err != nil {
		return responseHeader{}, err
	}
	if _, err := r.ReadByte(); err != nil { // unused
		return responseHeader{}, err
	}
	resultCode, err := r.ReadByte()
	if err != nil {
		return responseHeader{}, err
	}
	generation, err := r.ReadUint32()
	if err != nil {
		return responseHeader{}, err
	}
	expiration, err := r.ReadUint32()
	if err != nil {
		return responseHeader{}, err
	}
	if _, err := r.ReadUint32(); err != nil { // transaction_ttl
		return responseHeader{}, err
	}
	nFields, err := r.ReadUint16()
	if err != nil {
		return responseHeader{}, err
	}
	nOps, err := r.ReadUint16()
	if err != nil {
		return responseHeader{}, err
	}
	return responseHeader{
		InfoAttr:   infoAttr,
		ResultCode: resultCode,
		Generation: generation,
		Expiration: int32(expiration),
		NFields:    nFields,
		NOps:       nOps,
	}, nil
}

// writeField appends one field TLV: a 4-byte size (covering everything
// after the size itself) then a 1-byte type then data.
func writeField(buf *codec.Buffer, typ FieldType, data []byte) {
	buf.WriteUint32(uint32(len(data) + 1))
	buf.WriteByte(byte(typ))
	buf.WriteBytes(data)
}

// writeKeyFields appends the namespace/set/digest fields every
// single-record request carries, plus the user-key field when
// pol.SendKey is set (spec §4.5 "send_key").
func writeKeyFields(buf *codec.Buffer, key *types.Key, sendKey bool) int {
	n := 0
	writeField(buf, FieldNamespace, []byte(key.Namespace))
	n++
	if key.SetName != "" {
		writeField(buf, FieldSetName, []byte(key.SetName))
		n++
	}
	writeField(buf, FieldDigest, key.Digest[:])
	n++
	if sendKey && key.UserValue != nil {
		kb := codec.NewBuffer(32)
		kb.WriteByte(byte(key.UserValue.ParticleType()))
		codec.EncodeScalarValue(kb, key.UserValue)
		writeField(buf, FieldKey, kb.Bytes())
		n++
	}
	return n
}

// readField reads one field TLV and returns its type and data.
func readField(r *codec.Reader) (FieldType, []byte, error) {
	size, err := r.ReadUint32()
	if err != nil {
		return 0, nil, err
	}
	if size == 0 {
		return 0, nil, aeroerr.New(aeroerr.Protocol, "zero-length field")
	}
	typ, err := r.ReadByte()
	if err != nil {
		return 0, nil, err
	}
	data, err := r.ReadBytes(int(size) - 1)
	if err != nil {
		return 0, nil, err
	}
	return FieldType(typ), data, nil
}

// writeOp appends one operation TLV for a bin name and value (spec
// §4.6 sub-operation encoding).
func writeOp(buf *codec.Buffer, opType OpType, binName string, value types.Value) error {
	if len(binName) > types.MaxBinNameLength {
		return aeroerr.Newf(aeroerr.Policy, "bin name %q exceeds %d bytes", binName, types.MaxBinNameLength)
	}

	valueBuf := codec.NewBuffer(32)
	var particleType types.ParticleType
	if value == nil {
		particleType = types.ParticleNil
	} else {
		particleType = value.ParticleType()
		if codec.IsCollection(particleType) {
			if err := codec.EncodeCollection(valueBuf, value); err != nil {
				return err
			}
		} else {
			codec.EncodeScalarValue(valueBuf, value)
		}
	}

	opSize := 1 + 1 + 1 + len(binName) + valueBuf.Len()
	buf.WriteUint32(uint32(opSize))
	buf.WriteByte(byte(opType))
	buf.WriteByte(byte(particleType))
	buf.WriteByte(byte(len(binName)))
	buf.WriteString(binName)
	buf.WriteBytes(valueBuf.Bytes())
	return nil
}

// readOp reads one response operation TLV: bin name, particle type, and
// decoded value.
func readOp(r *codec.Reader, opts codec.DecodeOptions) (binName string, value types.Value, err error) {
	opSize, err := r.ReadUint32()
	if err != nil {
		return "", nil, err
	}
	if _, err := r.ReadByte(); err != nil { // op_type, unused on decode
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
	valueLen := int(opSize) - 1 - 1 - 1 - int(nameLen)
	if valueLen < 0 {
		return "", nil, aeroerr.New(aeroerr.Protocol, "op size smaller than its fixed fields")
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
