package codec

import "encoding/binary"

// Buffer is a growable byte arena. Commands build their request in a
// Buffer; pkg/command allocates a fresh one for every attempt, and
// Buffers are not pooled.
//
// Encoders that need to write a length before they know the length of
// what follows (e.g. the proto header's payload size, or a field TLV's
// size) call Reserve to get a patchable slot, write the children, then
// call PatchUint32/PatchUint16 with the final count.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer with capacity pre-allocated.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// Reset empties the buffer for reuse without releasing its backing array.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Bytes returns the buffer's current contents. The slice is only valid
// until the next mutating call.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the number of bytes written so far.
func (b *Buffer) Len() int { return len(b.buf) }

// Grow ensures n more bytes can be appended without reallocating, without
// changing Len.
func (b *Buffer) Grow(n int) {
	if cap(b.buf)-len(b.buf) >= n {
		return
	}
	grown := make([]byte, len(b.buf), len(b.buf)+n)
	copy(grown, b.buf)
	b.buf = grown
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(v byte) {
	b.buf = append(b.buf, v)
}

// WriteBytes appends a raw byte slice.
func (b *Buffer) WriteBytes(v []byte) {
	b.buf = append(b.buf, v...)
}

// WriteString appends a string's bytes without a length prefix.
func (b *Buffer) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteUint16 appends a big-endian uint16.
func (b *Buffer) WriteUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteUint32 appends a big-endian uint32.
func (b *Buffer) WriteUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteUint48 appends the low 48 bits of v, big-endian, as used by the
// proto header's size field (spec §4.2, §6).
func (b *Buffer) WriteUint48(v uint64) {
	var tmp [6]byte
	tmp[0] = byte(v >> 40)
	tmp[1] = byte(v >> 32)
	tmp[2] = byte(v >> 24)
	tmp[3] = byte(v >> 16)
	tmp[4] = byte(v >> 8)
	tmp[5] = byte(v)
	b.buf = append(b.buf, tmp[:]...)
}

// WriteUint64 appends a big-endian uint64.
func (b *Buffer) WriteUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

// Reserve appends n zero bytes and returns their offset, to be filled in
// later via PatchUint32/PatchUint16 once the caller knows the real value
// (e.g. the number of bytes its children occupied).
func (b *Buffer) Reserve(n int) int {
	offset := len(b.buf)
	for i := 0; i < n; i++ {
		b.buf = append(b.buf, 0)
	}
	return offset
}

// PatchUint32 overwrites 4 bytes at offset (as produced by Reserve(4))
// with v, big-endian.
func (b *Buffer) PatchUint32(offset int, v uint32) {
	binary.BigEndian.PutUint32(b.buf[offset:offset+4], v)
}

// PatchUint16 overwrites 2 bytes at offset (as produced by Reserve(2))
// with v, big-endian.
func (b *Buffer) PatchUint16(offset int, v uint16) {
	binary.BigEndian.PutUint16(b.buf[offset:offset+2], v)
}

// Reader sequentially consumes a byte slice, used to parse responses and
// decode packed collections. Every Read* method reports a truncation
// error rather than panicking on short input (spec §4.1 "decode errors
// on truncated input").
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential reading.
func NewReader(buf []byte) *Reader { return &Reader{buf: buf} }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

// Peek returns the next byte without advancing, or ok=false at EOF.
func (r *Reader) Peek() (byte, bool) {
	if r.pos >= len(r.buf) {
		return 0, false
	}
	return r.buf[r.pos], true
}

// ReadByte consumes and returns one byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, errTruncated
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadBytes consumes and returns the next n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errTruncated
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// ReadUint16 consumes a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint32 consumes a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadUint48 consumes the proto header's 48-bit big-endian size field.
func (r *Reader) ReadUint48() (uint64, error) {
	b, err := r.ReadBytes(6)
	if err != nil {
		return 0, err
	}
	return uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 |
		uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5]), nil
}

// ReadUint64 consumes a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
