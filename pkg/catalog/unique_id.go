package catalog

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// UniqueID is the stable 4-byte project identifier, held in storage order
// (the byte order used in folder names and YAML records).
type UniqueID [4]byte

// ParseUniqueID parses the 8-hex-char storage representation.
func ParseUniqueID(s string) (UniqueID, error) {
	var id UniqueID
	raw, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("invalid unique id %q: %w", s, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("invalid unique id %q: expected %d bytes, got %d", s, len(id), len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// Hex returns the storage representation used in paths and YAML.
func (id UniqueID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id UniqueID) String() string {
	return id.Hex()
}

// swapsWireOrder reports whether the wire integer for t uses the reversed
// byte order. NewGRF, scenario and heightmap identifiers historically travel
// big-endian; everything else is little-endian.
func swapsWireOrder(t ContentType) bool {
	return t == ContentTypeNewGRF || t == ContentTypeScenario || t == ContentTypeHeightmap
}

// UniqueIDFromWire converts the u32 a client sent into storage order.
func UniqueIDFromWire(t ContentType, v uint32) UniqueID {
	var id UniqueID
	if swapsWireOrder(t) {
		binary.BigEndian.PutUint32(id[:], v)
	} else {
		binary.LittleEndian.PutUint32(id[:], v)
	}
	return id
}

// Wire converts the storage-order identifier into the u32 sent to clients.
func (id UniqueID) Wire(t ContentType) uint32 {
	if swapsWireOrder(t) {
		return binary.BigEndian.Uint32(id[:])
	}
	return binary.LittleEndian.Uint32(id[:])
}
