package bananas

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Reader decodes payload primitives from a byte slice. Every method fails
// with ErrPacketInvalidData when the payload runs out.
type Reader struct {
	buf []byte
	off int
}

// NewReader wraps a payload for decoding.
func NewReader(payload []byte) *Reader {
	return &Reader{buf: payload}
}

// Remaining returns how many bytes are left unread.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Bytes consumes exactly n bytes. The returned slice aliases the payload.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if r.Remaining() < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrPacketInvalidData, n, r.Remaining())
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out, nil
}

// Uint8 consumes one byte.
func (r *Reader) Uint8() (uint8, error) {
	raw, err := r.Bytes(1)
	if err != nil {
		return 0, err
	}
	return raw[0], nil
}

// Uint16 consumes a little-endian u16.
func (r *Reader) Uint16() (uint16, error) {
	raw, err := r.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(raw), nil
}

// Uint32 consumes a little-endian u32.
func (r *Reader) Uint32() (uint32, error) {
	raw, err := r.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(raw), nil
}

// String consumes a NUL-terminated string.
func (r *Reader) String() (string, error) {
	end := bytes.IndexByte(r.buf[r.off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string", ErrPacketInvalidData)
	}
	s := string(r.buf[r.off : r.off+end])
	r.off += end + 1
	return s, nil
}

// ExpectEOF fails when payload bytes remain. Every packet decoder calls it
// last so excess data is rejected, not silently ignored.
func (r *Reader) ExpectEOF() error {
	if n := r.Remaining(); n > 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrPacketInvalidData, n)
	}
	return nil
}
