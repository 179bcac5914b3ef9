package catalog

import (
	"encoding/hex"
	"fmt"
)

// MD5Sum is the full digest of a content archive.
type MD5Sum [16]byte

// MD5Partial is the first 4 digest bytes. YAML records reference exact
// versions by this public prefix instead of replicating the full digest.
type MD5Partial [4]byte

// ParseMD5Sum parses a 32-hex-char full digest.
func ParseMD5Sum(s string) (MD5Sum, error) {
	var sum MD5Sum
	raw, err := hex.DecodeString(s)
	if err != nil {
		return sum, fmt.Errorf("invalid md5sum %q: %w", s, err)
	}
	if len(raw) != len(sum) {
		return sum, fmt.Errorf("invalid md5sum %q: expected %d bytes, got %d", s, len(sum), len(raw))
	}
	copy(sum[:], raw)
	return sum, nil
}

// ParseMD5Partial parses the 8-hex-char public prefix.
func ParseMD5Partial(s string) (MD5Partial, error) {
	var partial MD5Partial
	raw, err := hex.DecodeString(s)
	if err != nil {
		return partial, fmt.Errorf("invalid md5sum-partial %q: %w", s, err)
	}
	if len(raw) != len(partial) {
		return partial, fmt.Errorf("invalid md5sum-partial %q: expected %d bytes, got %d", s, len(partial), len(raw))
	}
	copy(partial[:], raw)
	return partial, nil
}

// Hex returns the storage representation used in blob filenames.
func (m MD5Sum) Hex() string {
	return hex.EncodeToString(m[:])
}

func (m MD5Sum) String() string {
	return m.Hex()
}

// Partial returns the public 4-byte prefix of the digest.
func (m MD5Sum) Partial() MD5Partial {
	var partial MD5Partial
	copy(partial[:], m[:4])
	return partial
}

// ContentIDBase derives the 24-bit content-id base from the digest tail.
// The first digest bytes are already public as the partial, so the tail is
// used to decorrelate assigned ids from the public prefix.
func (m MD5Sum) ContentIDBase() uint32 {
	return uint32(m[13]) | uint32(m[14])<<8 | uint32(m[15])<<16
}

func (p MD5Partial) Hex() string {
	return hex.EncodeToString(p[:])
}
