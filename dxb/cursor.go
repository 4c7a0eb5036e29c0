// Package dxb parses the DXB container format: the on-wire binary that
// an external Diannex compiler produces and that dxvm executes. It owns
// exactly two things — Cursor (primitive little-endian reads over a byte
// slice) and Decode (turning a whole buffer into a *Binary) — and leaves
// everything about running the bytecode to package dxvm.
package dxb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cursor reads primitive values sequentially from a byte buffer. All
// multi-byte integers are little-endian, per the DXB wire format.
// Reading past the end of the buffer returns a *DecodeError rather than
// panicking, since the buffer is host-supplied and may be malformed.
type Cursor struct {
	Data []byte
	Pos  int
}

// NewCursor wraps data for sequential reading starting at offset 0.
func NewCursor(data []byte) *Cursor {
	return &Cursor{Data: data}
}

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int {
	return len(c.Data) - c.Pos
}

// Seek repositions the cursor to an absolute offset.
func (c *Cursor) Seek(pos int) {
	c.Pos = pos
}

func (c *Cursor) need(section string, n int) error {
	if c.Pos < 0 || c.Pos+n > len(c.Data) {
		return &DecodeError{Kind: ErrTruncated, Section: section, Offset: c.Pos}
	}
	return nil
}

// U8 reads one byte.
func (c *Cursor) U8(section string) (byte, error) {
	if err := c.need(section, 1); err != nil {
		return 0, err
	}
	b := c.Data[c.Pos]
	c.Pos++
	return b, nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16(section string) (uint16, error) {
	if err := c.need(section, 2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.Data[c.Pos:])
	c.Pos += 2
	return v, nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32(section string) (uint32, error) {
	if err := c.need(section, 4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.Data[c.Pos:])
	c.Pos += 4
	return v, nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32(section string) (int32, error) {
	v, err := c.U32(section)
	return int32(v), err
}

// F64 reads a little-endian IEEE-754 double.
func (c *Cursor) F64(section string) (float64, error) {
	if err := c.need(section, 8); err != nil {
		return 0, err
	}
	bits := binary.LittleEndian.Uint64(c.Data[c.Pos:])
	c.Pos += 8
	return math.Float64frombits(bits), nil
}

// Bytes reads n raw bytes.
func (c *Cursor) Bytes(section string, n int) ([]byte, error) {
	if err := c.need(section, n); err != nil {
		return nil, err
	}
	b := c.Data[c.Pos : c.Pos+n]
	c.Pos += n
	return b, nil
}

// CString reads a null-terminated string, consuming the terminator.
func (c *Cursor) CString(section string) (string, error) {
	start := c.Pos
	for {
		if c.Pos >= len(c.Data) {
			return "", &DecodeError{Kind: ErrTruncated, Section: section, Offset: start}
		}
		if c.Data[c.Pos] == 0 {
			s := string(c.Data[start:c.Pos])
			c.Pos++
			return s, nil
		}
		c.Pos++
	}
}

// Signature reads and validates the fixed 3-byte magic for section,
// returning a decode error naming exactly what was expected if it
// doesn't match.
func (c *Cursor) Signature(section string, want string) error {
	got, err := c.Bytes(section, len(want))
	if err != nil {
		return err
	}
	if string(got) != want {
		return &DecodeError{
			Kind:    ErrBadSignature,
			Section: section,
			Offset:  c.Pos - len(want),
			Detail:  fmt.Sprintf("expected %q, got %q", want, got),
		}
	}
	return nil
}
