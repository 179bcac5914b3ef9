package app

import (
	"context"
	"fmt"
	"io"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/internal/protocol/bananas"
	"github.com/openttd/bananas-server/pkg/catalog"
)

// branchedVersionLabel stands in for the unbounded branch/version pairs
// of non-vanilla clients in the version metric.
const branchedVersionLabel = "branched"

// handleInfoList answers CLIENT_INFO_LIST: every active entry of the
// requested type the announcing client version can use.
//
// A client announcing an unparseable branch version gets no listing at
// all. An outdated server should not guess here: offering content the
// client cannot load is worse than offering nothing, and the connection
// stays usable for exact-id lookups.
func (a *Application) handleInfoList(peer Peer, req *bananas.InfoListRequest) error {
	var branches map[string]catalog.Version
	versionLabel := branchedVersionLabel

	if req.GameVersion == bananas.VersionSentinel {
		branches = make(map[string]catalog.Version, len(req.Branches))
		for branch, raw := range req.Branches {
			version, err := catalog.ParseVersion(raw)
			if err != nil {
				logger.Warn("Client announced unparseable version",
					"address", peer.IP(),
					"branch", branch,
					"version", raw)
				return nil
			}
			branches[branch] = version
		}
	} else {
		version := catalog.DecodeGameVersion(req.GameVersion)
		branches = map[string]catalog.Version{catalog.BranchVanilla: version}
		versionLabel = version.String()
	}

	if a.contentMetrics != nil && a.versions.Record(peer.IP(), versionLabel) {
		a.contentMetrics.RecordClientVersion(versionLabel)
	}

	snapshot := a.Snapshot()

	// Clients with nothing installed yet need a base graphics set before
	// anything else works, so the configured bootstrap set always leads
	// the base graphics listing regardless of version gates.
	var bootstrap *catalog.Entry
	if req.Type == catalog.ContentTypeBaseGraphics && a.bootstrapID != nil {
		entry, ok := snapshot.ByUniqueID(req.Type, *a.bootstrapID)
		if !ok {
			logger.Error("Configured bootstrap base graphics set is not in the catalog",
				"unique_id", a.bootstrapID.Hex())
		} else {
			bootstrap = entry
			if err := a.sendInfo(peer, entry); err != nil {
				return err
			}
		}
	}

	for _, entry := range snapshot.ByType(req.Type) {
		if entry == bootstrap {
			continue
		}
		if !entry.MatchesVersions(branches) {
			continue
		}
		if err := a.sendInfo(peer, entry); err != nil {
			return err
		}
	}
	return nil
}

// handleInfoID answers CLIENT_INFO_ID. Unknown ids are skipped; clients
// probe freely and a miss is not an error.
func (a *Application) handleInfoID(peer Peer, req *bananas.InfoIDRequest) error {
	snapshot := a.Snapshot()
	for _, id := range req.IDs {
		entry, ok := snapshot.ByID(id)
		if !ok {
			continue
		}
		if err := a.sendInfo(peer, entry); err != nil {
			return err
		}
	}
	return nil
}

// handleInfoExtID answers CLIENT_INFO_EXTID with the newest active entry
// of each named project.
func (a *Application) handleInfoExtID(peer Peer, req *bananas.InfoExtIDRequest) error {
	snapshot := a.Snapshot()
	for _, item := range req.Items {
		entry, ok := snapshot.ByUniqueID(item.Type, item.UniqueID)
		if !ok {
			continue
		}
		if err := a.sendInfo(peer, entry); err != nil {
			return err
		}
	}
	return nil
}

// handleInfoExtIDMD5 answers CLIENT_INFO_EXTID_MD5 with exact entries,
// archived ones included. Savegames reference content by full key and
// must find it even after newer uploads.
func (a *Application) handleInfoExtIDMD5(peer Peer, req *bananas.InfoExtIDMD5Request) error {
	snapshot := a.Snapshot()
	for _, item := range req.Items {
		entry, ok := snapshot.ByUniqueIDAndMD5Sum(item.Type, item.UniqueID, item.MD5Sum)
		if !ok {
			continue
		}
		if err := a.sendInfo(peer, entry); err != nil {
			return err
		}
	}
	return nil
}

// handleContent answers CLIENT_CONTENT by streaming each requested
// archive. Unknown ids are skipped.
func (a *Application) handleContent(ctx context.Context, peer Peer, req *bananas.ContentRequest) error {
	snapshot := a.Snapshot()
	for _, id := range req.IDs {
		entry, ok := snapshot.ByID(id)
		if !ok {
			continue
		}
		if err := a.streamEntry(ctx, peer, entry); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) sendInfo(peer Peer, entry *catalog.Entry) error {
	frame, err := bananas.EncodeServerInfo(entry)
	if err != nil {
		return fmt.Errorf("encoding info for %s: %w", entry.UniqueID.Hex(), err)
	}
	return peer.SendFrame(frame)
}

// streamEntry sends one download: a header frame with the entry identity
// and filesize, the archive in MTU-sized data frames, and an empty data
// frame as terminator.
func (a *Application) streamEntry(ctx context.Context, peer Peer, entry *catalog.Entry) error {
	stream, err := a.storage.GetStream(ctx, entry)
	if err != nil {
		logger.Error("Opening content stream failed",
			"content_id", uint32(entry.ID),
			"unique_id", entry.UniqueID.Hex(),
			"error", err)
		return ErrCloseConnection
	}
	defer stream.Close()

	header, err := bananas.EncodeServerContentHeader(entry, catalog.SafeFilename(entry))
	if err != nil {
		return fmt.Errorf("encoding content header for %s: %w", entry.UniqueID.Hex(), err)
	}
	if err := peer.SendFrame(header); err != nil {
		return err
	}

	var sent uint64
	buf := make([]byte, bananas.MaxPayload)
	for {
		n, readErr := io.ReadFull(stream, buf)
		if n > 0 {
			frame, err := bananas.EncodeServerContentData(buf[:n])
			if err != nil {
				return fmt.Errorf("encoding content data for %s: %w", entry.UniqueID.Hex(), err)
			}
			if err := peer.SendFrame(frame); err != nil {
				return err
			}
			sent += uint64(n)
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			// Only a backend failure lands here; the peer going away
			// surfaces through SendFrame. The client is still expecting
			// bytes this server cannot produce, so the only option is to
			// drop the connection and let the client retry.
			logger.Debug("Aborting download after stream read failure",
				"content_id", uint32(entry.ID),
				"unique_id", entry.UniqueID.Hex(),
				"error", readErr)
			return ErrCloseConnection
		}
	}

	terminator, err := bananas.EncodeServerContentData(nil)
	if err != nil {
		return err
	}
	if err := peer.SendFrame(terminator); err != nil {
		return err
	}

	if a.contentMetrics != nil {
		a.contentMetrics.RecordDownload(entry.Type.Folder(), sent)
	}
	return nil
}
