package bananas

import (
	"encoding/binary"
	"fmt"
)

// Writer builds one outgoing frame. The length prefix is written by
// Finalize once the payload is complete.
type Writer struct {
	buf []byte
}

// NewWriter starts a frame of the given packet type.
func NewWriter(t PacketType) *Writer {
	w := &Writer{buf: make([]byte, 0, 128)}
	w.buf = append(w.buf, 0, 0, byte(t))
	return w
}

// Uint8 appends one byte.
func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

// Uint16 appends a little-endian u16.
func (w *Writer) Uint16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// Uint32 appends a little-endian u32.
func (w *Writer) Uint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Bytes appends raw bytes.
func (w *Writer) Bytes(b []byte) {
	w.buf = append(w.buf, b...)
}

// String appends a NUL-terminated string.
func (w *Writer) String(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Len returns the frame size so far, header included.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Finalize stamps the length prefix and returns the wire bytes. Frames
// over the MTU fail with ErrPacketTooBig and must not be sent.
func (w *Writer) Finalize() ([]byte, error) {
	if len(w.buf) > MTU {
		return nil, fmt.Errorf("%w: frame is %d bytes, MTU is %d", ErrPacketTooBig, len(w.buf), MTU)
	}
	binary.LittleEndian.PutUint16(w.buf[0:2], uint16(len(w.buf)))
	return w.buf, nil
}
