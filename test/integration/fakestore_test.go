package integration

import (
	"sync"

	"github.com/cuemby/aerospike-go/pkg/aeroerr"
	"github.com/cuemby/aerospike-go/pkg/codec"
	"github.com/cuemby/aerospike-go/pkg/types"
)

// This file re-implements just enough of the wire layout pkg/ops writes
// (a 22-byte request/response header, field and op TLVs) to drive a
// stateful in-memory record table from inside the integration package,
// which cannot see pkg/ops's unexported helpers.

const wireHeaderSize = 22

const (
	readAttrRead      byte = 1 << 0
	readAttrGetAll    byte = 1 << 2
	readAttrNoBinData byte = 1 << 3

	writeAttrWrite  byte = 1 << 0
	writeAttrDelete byte = 1 << 1
	writeAttrGenEQ  byte = 1 << 3
	writeAttrGenGT  byte = 1 << 4

	infoAttrBatch byte = 1 << 0

	fieldDigest byte = 3

	opRead    byte = 1
	opAppend  byte = 3
	opPrepend byte = 4
	opAdd     byte = 5
	opTouch   byte = 6
)

type storedRecord struct {
	generation uint32
	bins       map[string]types.Value
}

// recordStore is a single-namespace, digest-keyed record table backing
// a fake node's responses for the CRUD/Operate/Batch end-to-end tests.
// It is intentionally not goroutine-optimized: one mutex around every
// request is plenty for a test fixture.
type recordStore struct {
	mu      sync.Mutex
	records map[types.Digest]*storedRecord
}

func newRecordStore() *recordStore {
	return &recordStore{records: map[types.Digest]*storedRecord{}}
}

type parsedOp struct {
	opType byte
	name   string
	value  types.Value
}

type parsedRequest struct {
	readAttr   byte
	writeAttr  byte
	infoAttr   byte
	generation uint32
	digest     types.Digest
	ops        []parsedOp
}

func parseRequest(payload []byte) (*parsedRequest, error) {
	r := codec.NewReader(payload)

	headerSize, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if headerSize != wireHeaderSize {
		return nil, aeroerr.Newf(aeroerr.Protocol, "unexpected header size %d", headerSize)
	}
	readAttr, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	writeAttr, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	infoAttr, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadByte(); err != nil { // unused
		return nil, err
	}
	if _, err := r.ReadByte(); err != nil { // result_code, zero on a request
		return nil, err
	}
	generation, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	if _, err := r.ReadUint32(); err != nil { // expiration
		return nil, err
	}
	if _, err := r.ReadUint32(); err != nil { // transaction_ttl
		return nil, err
	}
	nFields, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	nOps, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	req := &parsedRequest{readAttr: readAttr, writeAttr: writeAttr, infoAttr: infoAttr, generation: generation}

	for i := 0; i < int(nFields); i++ {
		size, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		typ, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data, err := r.ReadBytes(int(size) - 1)
		if err != nil {
			return nil, err
		}
		if typ == fieldDigest {
			copy(req.digest[:], data)
		}
	}

	for i := 0; i < int(nOps); i++ {
		opSize, err := r.ReadUint32()
		if err != nil {
			return nil, err
		}
		opType, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		particleType, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		nameLen, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		nameBytes, err := r.ReadBytes(int(nameLen))
		if err != nil {
			return nil, err
		}
		valueLen := int(opSize) - 3 - int(nameLen)
		valueBytes, err := r.ReadBytes(valueLen)
		if err != nil {
			return nil, err
		}

		var value types.Value
		pt := types.ParticleType(particleType)
		if pt != types.ParticleNil {
			if codec.IsCollection(pt) {
				value, err = codec.DecodeCollection(pt, valueBytes, codec.DecodeOptions{})
			} else {
				value, err = codec.DecodeScalarValue(pt, valueBytes, codec.DecodeOptions{})
			}
			if err != nil {
				return nil, err
			}
		}
		req.ops = append(req.ops, parsedOp{opType: opType, name: string(nameBytes), value: value})
	}

	return req, nil
}

func writeHeader(buf *codec.Buffer, resultCode byte, generation uint32, nFields, nOps uint16) {
	buf.WriteByte(wireHeaderSize)
	buf.WriteByte(0) // read_attr
	buf.WriteByte(0) // write_attr
	buf.WriteByte(0) // info_attr
	buf.WriteByte(0) // unused
	buf.WriteByte(resultCode)
	buf.WriteUint32(generation)
	buf.WriteUint32(0) // expiration
	buf.WriteUint32(0) // transaction_ttl
	buf.WriteUint16(nFields)
	buf.WriteUint16(nOps)
}

// writeHeaderWithInfoAttr is writeHeader plus a caller-chosen info_attr
// byte, used for the scan/query last-record marker frame.
func writeHeaderWithInfoAttr(buf *codec.Buffer, infoAttr, resultCode byte, nFields, nOps uint16) {
	buf.WriteByte(wireHeaderSize)
	buf.WriteByte(0) // read_attr
	buf.WriteByte(0) // write_attr
	buf.WriteByte(infoAttr)
	buf.WriteByte(0) // unused
	buf.WriteByte(resultCode)
	buf.WriteUint32(0) // generation
	buf.WriteUint32(0) // expiration
	buf.WriteUint32(0) // transaction_ttl
	buf.WriteUint16(nFields)
	buf.WriteUint16(nOps)
}

func writeRespOp(buf *codec.Buffer, name string, value types.Value) {
	valueBuf := codec.NewBuffer(32)
	pt := types.ParticleNil
	if value != nil {
		pt = value.ParticleType()
		if codec.IsCollection(pt) {
			_ = codec.EncodeCollection(valueBuf, value)
		} else {
			codec.EncodeScalarValue(valueBuf, value)
		}
	}
	opSize := 1 + 1 + 1 + len(name) + valueBuf.Len()
	buf.WriteUint32(uint32(opSize))
	buf.WriteByte(opRead)
	buf.WriteByte(byte(pt))
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteBytes(valueBuf.Bytes())
}

// respond is a testutil.FakeNode respond callback: it decodes one
// AerospikeMessage request, applies it to the record table, and
// encodes the matching reply.
func (s *recordStore) respond(_ int, payload []byte) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, err := parseRequest(payload)
	if err != nil {
		buf := codec.NewBuffer(32)
		writeHeader(buf, byte(aeroerr.ServerError), 0, 0, 0)
		return buf.Bytes()
	}

	switch {
	case req.infoAttr&infoAttrBatch != 0:
		return s.applyBatch(req)
	case req.writeAttr&writeAttrDelete != 0:
		return s.applyDelete(req)
	case req.writeAttr&writeAttrWrite != 0:
		return s.applyWrite(req)
	default:
		return s.applyRead(req)
	}
}

func (s *recordStore) applyWrite(req *parsedRequest) []byte {
	rec, exists := s.records[req.digest]

	if req.writeAttr&writeAttrGenEQ != 0 {
		if !exists || rec.generation != req.generation {
			buf := codec.NewBuffer(32)
			writeHeader(buf, byte(aeroerr.GenerationError), 0, 0, 0)
			return buf.Bytes()
		}
	}
	if req.writeAttr&writeAttrGenGT != 0 {
		if exists && req.generation <= rec.generation {
			buf := codec.NewBuffer(32)
			writeHeader(buf, byte(aeroerr.GenerationError), 0, 0, 0)
			return buf.Bytes()
		}
	}

	if !exists {
		rec = &storedRecord{bins: map[string]types.Value{}}
		s.records[req.digest] = rec
	}

	var echoed []parsedOp
	for _, op := range req.ops {
		switch op.opType {
		case opAppend:
			cur, _ := rec.bins[op.name].(types.StringValue)
			add, _ := op.value.(types.StringValue)
			rec.bins[op.name] = cur + add
		case opPrepend:
			cur, _ := rec.bins[op.name].(types.StringValue)
			add, _ := op.value.(types.StringValue)
			rec.bins[op.name] = add + cur
		case opAdd:
			cur, _ := rec.bins[op.name].(types.IntegerValue)
			add, _ := op.value.(types.IntegerValue)
			rec.bins[op.name] = cur + add
		case opTouch:
			// generation bump below is the only effect.
		case opRead:
			echoed = append(echoed, parsedOp{name: op.name, value: rec.bins[op.name]})
		default: // plain write
			rec.bins[op.name] = op.value
		}
	}
	rec.generation++

	buf := codec.NewBuffer(128)
	writeHeader(buf, byte(aeroerr.OK), rec.generation, 0, uint16(len(echoed)))
	for _, e := range echoed {
		writeRespOp(buf, e.name, e.value)
	}
	return buf.Bytes()
}

func (s *recordStore) applyDelete(req *parsedRequest) []byte {
	_, existed := s.records[req.digest]
	delete(s.records, req.digest)

	buf := codec.NewBuffer(32)
	if existed {
		writeHeader(buf, byte(aeroerr.OK), 0, 0, 0)
	} else {
		writeHeader(buf, byte(aeroerr.KeyNotFound), 0, 0, 0)
	}
	return buf.Bytes()
}

func (s *recordStore) applyRead(req *parsedRequest) []byte {
	rec, exists := s.records[req.digest]
	if !exists {
		buf := codec.NewBuffer(32)
		writeHeader(buf, byte(aeroerr.KeyNotFound), 0, 0, 0)
		return buf.Bytes()
	}

	if req.readAttr&readAttrNoBinData != 0 {
		buf := codec.NewBuffer(32)
		writeHeader(buf, byte(aeroerr.OK), rec.generation, 0, 0)
		return buf.Bytes()
	}

	var names []string
	if req.readAttr&readAttrGetAll != 0 || len(req.ops) == 0 {
		for name := range rec.bins {
			names = append(names, name)
		}
	} else {
		for _, op := range req.ops {
			names = append(names, op.name)
		}
	}

	buf := codec.NewBuffer(256)
	writeHeader(buf, byte(aeroerr.OK), rec.generation, 0, uint16(len(names)))
	for _, name := range names {
		writeRespOp(buf, name, rec.bins[name])
	}
	return buf.Bytes()
}

// applyBatch answers a batchDirect request: an outer zero-length header
// followed by one header+bins entry per requested digest, in request
// order (mirrors pkg/ops.batchDirect's expectations).
func (s *recordStore) applyBatch(req *parsedRequest) []byte {
	buf := codec.NewBuffer(1024)
	writeHeader(buf, byte(aeroerr.OK), 0, 0, 0)

	for _, op := range req.ops {
		digestBytes, _ := op.value.(types.BytesValue)
		var digest types.Digest
		copy(digest[:], digestBytes)

		rec, exists := s.records[digest]
		if !exists {
			writeHeader(buf, byte(aeroerr.KeyNotFound), 0, 0, 0)
			continue
		}
		names := make([]string, 0, len(rec.bins))
		for name := range rec.bins {
			names = append(names, name)
		}
		writeHeader(buf, byte(aeroerr.OK), rec.generation, 0, uint16(len(names)))
		for _, name := range names {
			writeRespOp(buf, name, rec.bins[name])
		}
	}
	return buf.Bytes()
}
