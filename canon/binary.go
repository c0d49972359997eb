// Package canon implements the normative canonical serialization defined in
// spec.md §6: receipts, proposals and tree entries all serialize to a
// deterministic, length-prefixed byte form so that two independent
// implementations hash the same bytes for the same logical value. This is
// deliberately hand-rolled rather than built on a generic codec (CBOR,
// protobuf, gob): the spec mandates an exact field order and integer
// endianness, which a generic codec would not reproduce without a custom
// field-ordering layer on top — at which point the codec buys nothing. See
// DESIGN.md for the full rationale.
package canon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncated is returned by the reader helpers when the buffer runs out
// before a value can be fully decoded.
var ErrTruncated = errors.New("canon: truncated input")

// Writer accumulates a canonical byte form. The zero value is ready to use.
type Writer struct {
	buf bytes.Buffer
}

// Bytes returns the accumulated output.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// PutFixed writes b verbatim (used for 32-byte ObjectId/WorldlineId fields).
func (w *Writer) PutFixed(b []byte) { w.buf.Write(b) }

// PutU8 writes a single byte.
func (w *Writer) PutU8(v uint8) { w.buf.WriteByte(v) }

// PutU32LE writes v as 4 little-endian bytes.
func (w *Writer) PutU32LE(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

// PutU64LE writes v as 8 little-endian bytes.
func (w *Writer) PutU64LE(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// PutU16LE writes v as 2 little-endian bytes (tree entry mode field).
func (w *Writer) PutU16LE(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// PutVarint writes v as an unsigned LEB128 varint (used for tree entry
// counts and name lengths per spec.md §6).
func (w *Writer) PutVarint(v uint64) {
	var b [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(b[:], v)
	w.buf.Write(b[:n])
}

// PutString writes a UTF-8 string with a u32 little-endian length prefix.
func (w *Writer) PutString(s string) {
	w.PutU32LE(uint32(len(s)))
	w.buf.WriteString(s)
}

// PutBytes writes an opaque byte slice with a u32 little-endian length
// prefix — used for fields (signatures, effects blobs) whose length is not
// implied by their domain.
func (w *Writer) PutBytes(b []byte) {
	w.PutU32LE(uint32(len(b)))
	w.buf.Write(b)
}

// Reader consumes a canonical byte form produced by Writer.
type Reader struct {
	b   []byte
	pos int
}

// NewReader wraps b for sequential decoding.
func NewReader(b []byte) *Reader { return &Reader{b: b} }

// Remaining reports how many bytes are left to read.
func (r *Reader) Remaining() int { return len(r.b) - r.pos }

func (r *Reader) need(n int) error {
	if r.Remaining() < n {
		return ErrTruncated
	}
	return nil
}

// Fixed reads n bytes verbatim.
func (r *Reader) Fixed(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// U8 reads a single byte.
func (r *Reader) U8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

// U16LE reads 2 little-endian bytes.
func (r *Reader) U16LE() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.b[r.pos:])
	r.pos += 2
	return v, nil
}

// U32LE reads 4 little-endian bytes.
func (r *Reader) U32LE() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.b[r.pos:])
	r.pos += 4
	return v, nil
}

// U64LE reads 8 little-endian bytes.
func (r *Reader) U64LE() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.b[r.pos:])
	r.pos += 8
	return v, nil
}

// Varint reads an unsigned LEB128 varint.
func (r *Reader) Varint() (uint64, error) {
	v, n := binary.Uvarint(r.b[r.pos:])
	if n <= 0 {
		return 0, ErrTruncated
	}
	r.pos += n
	return v, nil
}

// String reads a u32-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.U32LE()
	if err != nil {
		return "", err
	}
	b, err := r.Fixed(int(n))
	if err != nil {
		return "", fmt.Errorf("canon: string body: %w", err)
	}
	return string(b), nil
}

// Bytes reads a u32-length-prefixed opaque byte slice, copying it out of
// the underlying buffer so the caller owns it independently.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.U32LE()
	if err != nil {
		return nil, err
	}
	b, err := r.Fixed(int(n))
	if err != nil {
		return nil, fmt.Errorf("canon: bytes body: %w", err)
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}
