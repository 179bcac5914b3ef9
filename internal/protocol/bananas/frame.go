package bananas

import (
	"encoding/binary"
	"fmt"
)

// PeelFrame splits one complete frame off the front of a reassembly
// buffer. When buf does not yet hold a complete frame it returns a nil
// frame and buf unchanged. A declared length smaller than the frame
// header is ErrPacketInvalidSize.
func PeelFrame(buf []byte) (frame, rest []byte, err error) {
	if len(buf) < 2 {
		return nil, buf, nil
	}

	length := int(binary.LittleEndian.Uint16(buf[0:2]))
	if length < HeaderSize {
		return nil, buf, fmt.Errorf("%w: declared length %d", ErrPacketInvalidSize, length)
	}
	if len(buf) < length {
		return nil, buf, nil
	}

	return buf[:length], buf[length:], nil
}

// ParseFrame validates a complete frame and returns its type and payload.
func ParseFrame(frame []byte) (PacketType, []byte, error) {
	if len(frame) < HeaderSize {
		return 0, nil, fmt.Errorf("%w: frame is %d bytes", ErrPacketInvalidSize, len(frame))
	}

	declared := int(binary.LittleEndian.Uint16(frame[0:2]))
	if declared != len(frame) {
		return 0, nil, fmt.Errorf("%w: declared %d bytes, got %d", ErrPacketInvalidSize, declared, len(frame))
	}

	return PacketType(frame[2]), frame[HeaderSize:], nil
}
