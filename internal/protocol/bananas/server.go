package bananas

import "github.com/openttd/bananas-server/pkg/catalog"

// EncodeServerInfo builds the SERVER_INFO frame for one catalog entry.
// Entries are size-checked at load time, so a frame over the MTU here
// means the catalog and the codec disagree and the error must surface.
func EncodeServerInfo(e *catalog.Entry) ([]byte, error) {
	w := NewWriter(PacketServerInfo)

	w.Uint8(uint8(e.Type))
	w.Uint32(uint32(e.ID))

	w.Uint32(e.Filesize)
	w.String(e.Name)
	w.String(e.Version)
	w.String(e.URL)
	w.String(e.Description)

	w.Uint32(e.UniqueID.Wire(e.Type))
	w.Bytes(e.MD5Sum[:])

	w.Uint8(uint8(len(e.Dependencies)))
	for _, dep := range e.Dependencies {
		w.Uint32(uint32(dep))
	}

	w.Uint8(uint8(len(e.Tags)))
	for _, tag := range e.Tags {
		w.String(tag)
	}

	w.Uint32(uint32(e.UploadDate.Unix()))

	return w.Finalize()
}

// EncodeServerContentHeader builds the frame announcing a download: the
// entry's identity, the byte count to expect, and the client-side filename.
func EncodeServerContentHeader(e *catalog.Entry, filename string) ([]byte, error) {
	w := NewWriter(PacketServerContent)

	w.Uint8(uint8(e.Type))
	w.Uint32(uint32(e.ID))

	w.Uint32(e.Filesize)
	w.String(filename)

	return w.Finalize()
}

// EncodeServerContentData builds one data frame of a download. Chunks must
// not exceed MaxPayload. An empty chunk encodes the terminator frame that
// ends the download.
func EncodeServerContentData(chunk []byte) ([]byte, error) {
	w := NewWriter(PacketServerContent)
	w.Bytes(chunk)
	return w.Finalize()
}
