// Package cursor implements a bounded forward reader over an immutable byte
// buffer, used to walk decrypted VMess headers and body frames positionally.
package cursor

import "github.com/xtls/vmess-codec/internal/vmesserrors"

// Cursor reads forward through a borrowed byte slice. It never mutates the
// underlying data and never seeks backward.
type Cursor struct {
	data []byte
	pos  int
}

// New wraps data in a Cursor starting at position 0.
func New(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Read returns the next n bytes and advances the position, or fails with
// KindUnexpectedEOF if fewer than n bytes remain.
func (c *Cursor) Read(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.data) {
		return nil, vmesserrors.New(vmesserrors.KindUnexpectedEOF, "cursor: read past end of buffer")
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ReadByte reads a single byte.
func (c *Cursor) ReadByte() (byte, error) {
	b, err := c.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Exhausted reports whether every byte of the buffer has been consumed.
func (c *Cursor) Exhausted() bool {
	return c.pos == len(c.data)
}

// Position returns the current read offset.
func (c *Cursor) Position() int {
	return c.pos
}

// ConsumedPrefix returns the slice of bytes read so far, data[0:pos).
func (c *Cursor) ConsumedPrefix() []byte {
	return c.data[:c.pos]
}

// Remaining returns the number of unread bytes.
func (c *Cursor) Remaining() int {
	return len(c.data) - c.pos
}
