package catalog

import (
	"fmt"
	"strconv"
	"strings"
)

// BranchVanilla is the lineage name implied when a client announces a
// packed numeric version instead of an explicit branch map.
const BranchVanilla = "vanilla"

// Version is a dotted-integer client version. Comparison is lexicographic
// over the components; when one version is a prefix of the other, the
// shorter one orders first.
type Version []int

// ParseVersion parses a dotted-integer version string such as "14.1".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	version := make(Version, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid version %q: %w", s, err)
		}
		version = append(version, n)
	}
	return version, nil
}

// Compare returns -1, 0 or 1 ordering v against other.
func (v Version) Compare(other Version) int {
	for i := 0; i < len(v) && i < len(other); i++ {
		switch {
		case v[i] < other[i]:
			return -1
		case v[i] > other[i]:
			return 1
		}
	}
	switch {
	case len(v) < len(other):
		return -1
	case len(v) > len(other):
		return 1
	}
	return 0
}

func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// DecodeGameVersion unpacks the 32-bit version announced by a client.
// Clients from 12.0 onwards pack {major:8, minor:4} with the major offset
// by 16, recognizable by a top byte above 27. Older clients pack
// {major:4, minor:4, patch:4}.
func DecodeGameVersion(v uint32) Version {
	if top := v >> 24; top > 27 {
		return Version{int(top) - 16, int((v >> 20) & 0xF)}
	}
	return Version{int((v >> 28) & 0xF), int((v >> 24) & 0xF), int((v >> 20) & 0xF)}
}

// VersionWindow is a [min, max) range of client versions. A nil end is
// open.
type VersionWindow struct {
	Min Version
	Max Version
}

// Contains reports whether v falls inside the window.
func (w VersionWindow) Contains(v Version) bool {
	if w.Min != nil && v.Compare(w.Min) < 0 {
		return false
	}
	if w.Max != nil && v.Compare(w.Max) >= 0 {
		return false
	}
	return true
}
