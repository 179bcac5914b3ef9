package catalog

import "time"

// ContentID identifies one version of one content entry. The low 24 bits
// come from the md5sum tail, the high 8 bits are a collision counter, so
// ids are stable across restarts and across horizontally scaled instances.
type ContentID uint32

// RawDependency references another entry the way YAML records do, before
// content ids exist.
type RawDependency struct {
	Type     ContentType
	UniqueID UniqueID
	MD5Sum   MD5Sum
}

// Entry is one version of one content package. Entries are immutable once
// published in a Snapshot; the reload pipeline builds fresh ones each run.
type Entry struct {
	ID          ContentID
	Type        ContentType
	Filesize    uint32
	Name        string
	Version     string
	URL         string
	Description string
	UniqueID    UniqueID
	UploadDate  time.Time
	MD5Sum      MD5Sum

	// RawDependencies is what the YAML declared; Dependencies is the
	// resolved form, filled in after id assignment.
	RawDependencies []RawDependency
	Dependencies    []ContentID

	// Compatibility gates listing visibility per client branch. A nil map
	// means the entry is listed for every client version.
	Compatibility map[string]VersionWindow

	// Regions holds the raw region codes; Tags is the flattened, sorted
	// list sent in SERVER_INFO frames (classification values plus region
	// names expanded through the taxonomy).
	Regions []string
	Tags    []string

	// Archived entries stay reachable by exact key but are excluded from
	// listings.
	Archived bool
}

// MatchesVersions reports whether the entry should appear in a listing for
// a client announcing the given branch versions.
func (e *Entry) MatchesVersions(branches map[string]Version) bool {
	if len(e.Compatibility) == 0 {
		return true
	}
	for branch, version := range branches {
		window, ok := e.Compatibility[branch]
		if !ok {
			continue
		}
		if window.Contains(version) {
			return true
		}
	}
	return false
}
