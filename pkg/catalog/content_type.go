// Package catalog holds the content data model: entry records, the
// immutable multi-view snapshot built on every reload, and the helpers
// (content-type folders, unique-id byte order, version tuples, safe
// filenames, region taxonomy) shared by the wire protocol, the index
// loader, and the HTTP surface.
package catalog

import "fmt"

// ContentType is the category of a content entry. The values are fixed by
// the game client's wire protocol.
type ContentType uint8

const (
	ContentTypeBaseGraphics ContentType = 1
	ContentTypeNewGRF       ContentType = 2
	ContentTypeAI           ContentType = 3
	ContentTypeAILibrary    ContentType = 4
	ContentTypeScenario     ContentType = 5
	ContentTypeHeightmap    ContentType = 6
	ContentTypeBaseSounds   ContentType = 7
	ContentTypeBaseMusic    ContentType = 8
	ContentTypeGame         ContentType = 9
	ContentTypeGameLibrary  ContentType = 10

	// ContentTypeEnd terminates the wire enumeration. It never names
	// content and must be rejected in incoming packets.
	ContentTypeEnd ContentType = 11
)

var folderNames = map[ContentType]string{
	ContentTypeBaseGraphics: "base-graphics",
	ContentTypeNewGRF:       "newgrf",
	ContentTypeAI:           "ai",
	ContentTypeAILibrary:    "ai-library",
	ContentTypeScenario:     "scenario",
	ContentTypeHeightmap:    "heightmap",
	ContentTypeBaseSounds:   "base-sounds",
	ContentTypeBaseMusic:    "base-music",
	ContentTypeGame:         "game-script",
	ContentTypeGameLibrary:  "game-script-library",
}

// Valid reports whether t names an actual content category.
func (t ContentType) Valid() bool {
	return t >= ContentTypeBaseGraphics && t < ContentTypeEnd
}

// Folder returns the storage folder name for t. It panics on invalid
// types; callers validate wire input with ParseContentType first.
func (t ContentType) Folder() string {
	name, ok := folderNames[t]
	if !ok {
		panic(fmt.Sprintf("catalog: no folder for content type %d", uint8(t)))
	}
	return name
}

// String returns the folder name, which doubles as the human-readable
// label in logs and summaries.
func (t ContentType) String() string {
	if name, ok := folderNames[t]; ok {
		return name
	}
	return fmt.Sprintf("content-type-%d", uint8(t))
}

// ParseContentType validates a content type received from the wire.
func ParseContentType(v uint8) (ContentType, error) {
	t := ContentType(v)
	if !t.Valid() {
		return 0, fmt.Errorf("invalid content type %d", v)
	}
	return t, nil
}

// ContentTypeFromFolder maps a storage folder name back to its type.
func ContentTypeFromFolder(name string) (ContentType, error) {
	for t, folder := range folderNames {
		if folder == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown content type folder %q", name)
}

// AllContentTypes lists every valid type in wire-value order.
func AllContentTypes() []ContentType {
	types := make([]ContentType, 0, int(ContentTypeEnd)-1)
	for t := ContentTypeBaseGraphics; t < ContentTypeEnd; t++ {
		types = append(types, t)
	}
	return types
}
