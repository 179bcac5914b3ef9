package bananas

import (
	"fmt"

	"github.com/openttd/bananas-server/pkg/catalog"
)

// VersionSentinel in CLIENT_INFO_LIST's openttd_version field announces
// that an explicit branch-version map follows.
const VersionSentinel = 0xFFFFFFFF

// branchExtensionVersion is the only revision of the branch-version map
// layout this server understands.
const branchExtensionVersion = 1

// Request is any decoded client packet.
type Request interface {
	isRequest()
}

// InfoListRequest asks for every entry of one type the client's game
// version can use. Branches is nil for clients announcing a packed numeric
// version and holds the raw branch map when the sentinel extension was
// used.
type InfoListRequest struct {
	Type        catalog.ContentType
	GameVersion uint32
	Branches    map[string]string
}

// InfoIDRequest asks for entries by content id.
type InfoIDRequest struct {
	IDs []catalog.ContentID
}

// ExtIDItem names a project by type and unique id.
type ExtIDItem struct {
	Type     catalog.ContentType
	UniqueID catalog.UniqueID
}

// InfoExtIDRequest asks for the newest entry of each named project.
type InfoExtIDRequest struct {
	Items []ExtIDItem
}

// ExtIDMD5Item names one exact entry.
type ExtIDMD5Item struct {
	Type     catalog.ContentType
	UniqueID catalog.UniqueID
	MD5Sum   catalog.MD5Sum
}

// InfoExtIDMD5Request asks for exact entries, archived included.
type InfoExtIDMD5Request struct {
	Items []ExtIDMD5Item
}

// ContentRequest asks for the archives of a list of content ids.
type ContentRequest struct {
	IDs []catalog.ContentID
}

func (*InfoListRequest) isRequest()     {}
func (*InfoIDRequest) isRequest()       {}
func (*InfoExtIDRequest) isRequest()    {}
func (*InfoExtIDMD5Request) isRequest() {}
func (*ContentRequest) isRequest()      {}

var decoders = [PacketEnd]func([]byte) (Request, error){
	PacketClientInfoList:     decodeInfoList,
	PacketClientInfoID:       decodeInfoID,
	PacketClientInfoExtID:    decodeInfoExtID,
	PacketClientInfoExtIDMD5: decodeInfoExtIDMD5,
	PacketClientContent:      decodeContent,
}

// DecodeRequest decodes a client packet payload. Packet types the server
// never receives, including its own outgoing types, fail with
// ErrPacketInvalidType.
func DecodeRequest(t PacketType, payload []byte) (Request, error) {
	if t >= PacketEnd || decoders[t] == nil {
		return nil, fmt.Errorf("%w: %d", ErrPacketInvalidType, uint8(t))
	}
	return decoders[t](payload)
}

func readContentType(r *Reader) (catalog.ContentType, error) {
	raw, err := r.Uint8()
	if err != nil {
		return 0, err
	}
	contentType, err := catalog.ParseContentType(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPacketInvalidData, err)
	}
	return contentType, nil
}

func decodeInfoList(payload []byte) (Request, error) {
	r := NewReader(payload)

	contentType, err := readContentType(r)
	if err != nil {
		return nil, err
	}
	gameVersion, err := r.Uint32()
	if err != nil {
		return nil, err
	}

	req := &InfoListRequest{Type: contentType, GameVersion: gameVersion}

	if gameVersion == VersionSentinel {
		extVersion, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		if extVersion != branchExtensionVersion {
			return nil, fmt.Errorf("%w: branch extension version %d", ErrPacketInvalidData, extVersion)
		}

		count, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		req.Branches = make(map[string]string, count)
		for i := 0; i < int(count); i++ {
			branch, err := r.String()
			if err != nil {
				return nil, err
			}
			version, err := r.String()
			if err != nil {
				return nil, err
			}
			req.Branches[branch] = version
		}
	}

	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeContentIDs(r *Reader, count int) ([]catalog.ContentID, error) {
	ids := make([]catalog.ContentID, 0, count)
	for i := 0; i < count; i++ {
		id, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		ids = append(ids, catalog.ContentID(id))
	}
	return ids, nil
}

func decodeInfoID(payload []byte) (Request, error) {
	r := NewReader(payload)

	count, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	ids, err := decodeContentIDs(r, int(count))
	if err != nil {
		return nil, err
	}

	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}
	return &InfoIDRequest{IDs: ids}, nil
}

func decodeInfoExtID(payload []byte) (Request, error) {
	r := NewReader(payload)

	count, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	items := make([]ExtIDItem, 0, count)
	for i := 0; i < int(count); i++ {
		contentType, err := readContentType(r)
		if err != nil {
			return nil, err
		}
		wireID, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		items = append(items, ExtIDItem{
			Type:     contentType,
			UniqueID: catalog.UniqueIDFromWire(contentType, wireID),
		})
	}

	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}
	return &InfoExtIDRequest{Items: items}, nil
}

func decodeInfoExtIDMD5(payload []byte) (Request, error) {
	r := NewReader(payload)

	count, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	items := make([]ExtIDMD5Item, 0, count)
	for i := 0; i < int(count); i++ {
		contentType, err := readContentType(r)
		if err != nil {
			return nil, err
		}
		wireID, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		raw, err := r.Bytes(16)
		if err != nil {
			return nil, err
		}

		item := ExtIDMD5Item{
			Type:     contentType,
			UniqueID: catalog.UniqueIDFromWire(contentType, wireID),
		}
		copy(item.MD5Sum[:], raw)
		items = append(items, item)
	}

	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}
	return &InfoExtIDMD5Request{Items: items}, nil
}

func decodeContent(payload []byte) (Request, error) {
	r := NewReader(payload)

	count, err := r.Uint16()
	if err != nil {
		return nil, err
	}
	ids, err := decodeContentIDs(r, int(count))
	if err != nil {
		return nil, err
	}

	if err := r.ExpectEOF(); err != nil {
		return nil, err
	}
	return &ContentRequest{IDs: ids}, nil
}
