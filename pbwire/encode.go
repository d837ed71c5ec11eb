package pbwire

import (
	"encoding/binary"

	"github.com/CrowdStrike/csproto"
)

// Buffer is an append-only protobuf encoder.
//
// The Put* methods follow proto3 implicit presence and omit zero values.
// The Field* methods always write the field, for optional fields with
// explicit presence where the zero value is still meaningful.
type Buffer struct {
	b       []byte
	scratch [binary.MaxVarintLen64]byte
}

// NewBuffer returns a Buffer with size bytes preallocated
func NewBuffer(size int) *Buffer {
	return &Buffer{b: make([]byte, 0, size)}
}

// Bytes returns the encoded data. Careful, this does not make a copy.
func (e *Buffer) Bytes() []byte {
	l := len(e.b)
	return e.b[:l:l]
}

func (e *Buffer) Len() int {
	return len(e.b)
}

func (e *Buffer) Reset() {
	e.b = e.b[:0]
}

// AppendVarint appends a bare varint without a tag, as used for the
// length prefix of delimited streams.
func (e *Buffer) AppendVarint(v uint64) {
	n := csproto.EncodeVarint(e.scratch[:], v)
	e.b = append(e.b, e.scratch[:n]...)
}

func (e *Buffer) appendTag(tag int, wt csproto.WireType) {
	n := csproto.EncodeTag(e.scratch[:], tag, wt)
	e.b = append(e.b, e.scratch[:n]...)
}

func (e *Buffer) FieldUInt64(tag int, v uint64) {
	e.appendTag(tag, csproto.WireTypeVarint)
	e.AppendVarint(v)
}

func (e *Buffer) FieldBytes(tag int, v []byte) {
	e.appendTag(tag, csproto.WireTypeLengthDelimited)
	e.AppendVarint(uint64(len(v)))
	e.b = append(e.b, v...)
}

func (e *Buffer) FieldString(tag int, s string) {
	e.appendTag(tag, csproto.WireTypeLengthDelimited)
	e.AppendVarint(uint64(len(s)))
	e.b = append(e.b, s...)
}

func (e *Buffer) PutUInt64(tag int, v uint64) {
	if v > 0 {
		e.FieldUInt64(tag, v)
	}
}

func (e *Buffer) PutBool(tag int, v bool) {
	if v {
		e.FieldUInt64(tag, 1)
	}
}

func (e *Buffer) PutFixed64(tag int, v uint64) {
	if v == 0 {
		return
	}
	e.appendTag(tag, csproto.WireTypeFixed64)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.b = append(e.b, b[:]...)
}

func (e *Buffer) PutBytes(tag int, v []byte) {
	if len(v) > 0 {
		e.FieldBytes(tag, v)
	}
}

func (e *Buffer) PutString(tag int, s string) {
	if len(s) > 0 {
		e.FieldString(tag, s)
	}
}
