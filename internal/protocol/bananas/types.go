// Package bananas implements the wire codec of the content protocol:
// little-endian primitives, length-prefixed frames, NUL-terminated strings,
// and the payload codecs for every packet type. The package does no I/O;
// bytes go in, bytes come out.
//
// A frame is a 2-byte total length (including itself), one packet type
// byte, and the payload. Frames never exceed the client's MTU of 1460
// bytes on the way out.
package bananas

// PacketType identifies a frame's packet type. Values are fixed by the
// game client.
type PacketType uint8

const (
	// PacketClientInfoList asks for all entries of one content type
	// matching the client's version.
	PacketClientInfoList PacketType = 0
	// PacketClientInfoID asks for entries by content id.
	PacketClientInfoID PacketType = 1
	// PacketClientInfoExtID asks for entries by (type, unique id).
	PacketClientInfoExtID PacketType = 2
	// PacketClientInfoExtIDMD5 asks for entries by (type, unique id, md5sum).
	PacketClientInfoExtIDMD5 PacketType = 3
	// PacketServerInfo carries one catalog entry's metadata to the client.
	PacketServerInfo PacketType = 4
	// PacketClientContent asks for the archives of a list of content ids.
	PacketClientContent PacketType = 5
	// PacketServerContent carries a download: one header frame, data
	// frames, and an empty terminator frame.
	PacketServerContent PacketType = 6
	// PacketEnd is the protocol's sentinel; it never appears on the wire.
	PacketEnd PacketType = 7
)

const (
	// MTU is the largest frame the game client accepts.
	MTU = 1460
	// HeaderSize is the frame header: u16 length plus u8 packet type.
	HeaderSize = 3
	// MaxPayload is the data that fits one frame after the header.
	MaxPayload = MTU - HeaderSize
)

var packetTypeNames = map[PacketType]string{
	PacketClientInfoList:     "CLIENT_INFO_LIST",
	PacketClientInfoID:       "CLIENT_INFO_ID",
	PacketClientInfoExtID:    "CLIENT_INFO_EXTID",
	PacketClientInfoExtIDMD5: "CLIENT_INFO_EXTID_MD5",
	PacketServerInfo:         "SERVER_INFO",
	PacketClientContent:      "CLIENT_CONTENT",
	PacketServerContent:      "SERVER_CONTENT",
	PacketEnd:                "END",
}

func (t PacketType) String() string {
	if name, ok := packetTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}
