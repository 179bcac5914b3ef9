package catalog

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/openttd/bananas-server/internal/logger"
)

// TypeCount summarizes one content type within a snapshot.
type TypeCount struct {
	Active   int
	Archived int
}

// Snapshot is one immutable build of the catalog with its four lookup
// views. A reload produces a fresh snapshot and swaps it in wholesale;
// readers keep using the one they started with.
type Snapshot struct {
	byID          map[ContentID]*Entry
	byType        map[ContentType][]*Entry
	byUniqueID    map[ContentType]map[UniqueID]*Entry
	byUniqueIDMD5 map[ContentType]map[UniqueID]map[MD5Sum]*Entry
	counts        map[ContentType]TypeCount
}

// NewSnapshot assembles a snapshot from loaded entries: builds the four
// views, assigns content ids, and resolves raw dependencies. Active
// entries keep their slice order in the per-type listings.
//
// Content ids must be stable across restarts and across horizontally
// scaled instances, so they derive from the md5sum tail: the low 24 bits
// are the tail itself, the high 8 bits count entries sharing that tail,
// ordered by upload date (ties broken by the full digest). More than 255
// entries on one tail would repeat an id, which fails the whole build.
func NewSnapshot(entries []*Entry) (*Snapshot, error) {
	s := &Snapshot{
		byID:          make(map[ContentID]*Entry, len(entries)),
		byType:        make(map[ContentType][]*Entry),
		byUniqueID:    make(map[ContentType]map[UniqueID]*Entry),
		byUniqueIDMD5: make(map[ContentType]map[UniqueID]map[MD5Sum]*Entry),
		counts:        make(map[ContentType]TypeCount),
	}

	groups := make(map[uint32][]*Entry)

	for _, e := range entries {
		base := e.MD5Sum.ContentIDBase()
		groups[base] = append(groups[base], e)

		byUID := s.byUniqueIDMD5[e.Type]
		if byUID == nil {
			byUID = make(map[UniqueID]map[MD5Sum]*Entry)
			s.byUniqueIDMD5[e.Type] = byUID
		}
		byMD5 := byUID[e.UniqueID]
		if byMD5 == nil {
			byMD5 = make(map[MD5Sum]*Entry)
			byUID[e.UniqueID] = byMD5
		}
		byMD5[e.MD5Sum] = e

		count := s.counts[e.Type]
		if e.Archived {
			count.Archived++
			s.counts[e.Type] = count
			continue
		}
		count.Active++
		s.counts[e.Type] = count

		s.byType[e.Type] = append(s.byType[e.Type], e)

		active := s.byUniqueID[e.Type]
		if active == nil {
			active = make(map[UniqueID]*Entry)
			s.byUniqueID[e.Type] = active
		}
		if current, ok := active[e.UniqueID]; !ok || e.UploadDate.After(current.UploadDate) {
			active[e.UniqueID] = e
		}
	}

	for base, group := range groups {
		if len(group) > 255 {
			return nil, fmt.Errorf(
				"%d entries collide on content-id base %06x; ids would repeat past the 8-bit counter",
				len(group), base)
		}

		sort.Slice(group, func(i, j int) bool {
			if !group[i].UploadDate.Equal(group[j].UploadDate) {
				return group[i].UploadDate.Before(group[j].UploadDate)
			}
			return bytes.Compare(group[i].MD5Sum[:], group[j].MD5Sum[:]) < 0
		})

		for i, e := range group {
			e.ID = ContentID(uint32(i)<<24 | base)
			s.byID[e.ID] = e
		}
	}

	for _, e := range entries {
		e.Dependencies = s.resolveDependencies(e)
	}

	return s, nil
}

// resolveDependencies maps an entry's raw dependency triples to content
// ids. A dependency that does not resolve within this snapshot is dropped
// with an error log; the entry itself stays.
func (s *Snapshot) resolveDependencies(e *Entry) []ContentID {
	if len(e.RawDependencies) == 0 {
		return nil
	}

	deps := make([]ContentID, 0, len(e.RawDependencies))
	for _, raw := range e.RawDependencies {
		dep, ok := s.ByUniqueIDAndMD5Sum(raw.Type, raw.UniqueID, raw.MD5Sum)
		if !ok {
			logger.Error("invalid dependency",
				"entry", e.Name,
				"content_type", raw.Type,
				"unique_id", raw.UniqueID,
				"md5sum", raw.MD5Sum)
			continue
		}
		deps = append(deps, dep.ID)
	}
	return deps
}

// ByID looks up an entry by its assigned content id.
func (s *Snapshot) ByID(id ContentID) (*Entry, bool) {
	e, ok := s.byID[id]
	return e, ok
}

// ByType returns the active entries of one type in discovery order. The
// returned slice is shared and must not be modified.
func (s *Snapshot) ByType(t ContentType) []*Entry {
	return s.byType[t]
}

// ByUniqueID returns the newest active entry of a project.
func (s *Snapshot) ByUniqueID(t ContentType, id UniqueID) (*Entry, bool) {
	e, ok := s.byUniqueID[t][id]
	return e, ok
}

// ByUniqueIDAndMD5Sum returns the exact entry for a full key, archived
// entries included.
func (s *Snapshot) ByUniqueIDAndMD5Sum(t ContentType, id UniqueID, sum MD5Sum) (*Entry, bool) {
	e, ok := s.byUniqueIDMD5[t][id][sum]
	return e, ok
}

// Count reports how many entries of one type the snapshot holds.
func (s *Snapshot) Count(t ContentType) TypeCount {
	return s.counts[t]
}

// Len is the total number of entries, archived included.
func (s *Snapshot) Len() int {
	return len(s.byID)
}
