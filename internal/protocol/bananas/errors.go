package bananas

import "errors"

var (
	// ErrPacketInvalidSize indicates a frame whose declared length does not
	// match the bytes at hand, or is too small to carry a packet type.
	ErrPacketInvalidSize = errors.New("packet has invalid size")
	// ErrPacketInvalidType indicates a packet type this server never
	// accepts from clients.
	ErrPacketInvalidType = errors.New("packet has invalid type")
	// ErrPacketInvalidData indicates a payload that does not decode:
	// short reads, bad enum values, or trailing bytes.
	ErrPacketInvalidData = errors.New("packet has invalid data")
	// ErrPacketTooBig indicates an outgoing frame that would exceed the MTU.
	ErrPacketTooBig = errors.New("packet exceeds MTU")
)
