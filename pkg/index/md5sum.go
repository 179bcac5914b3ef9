package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/store"
)

// MD5SumMapping resolves the md5sum-partial stored in the YAML tree to
// the full digest of the archive in storage. Only storage knows the full
// sums; the index never records them.
type MD5SumMapping map[catalog.ContentType]map[catalog.UniqueID]map[catalog.MD5Partial]catalog.MD5Sum

func (m MD5SumMapping) add(contentType catalog.ContentType, uniqueID catalog.UniqueID, md5sum catalog.MD5Sum) {
	byUniqueID, ok := m[contentType]
	if !ok {
		byUniqueID = make(map[catalog.UniqueID]map[catalog.MD5Partial]catalog.MD5Sum)
		m[contentType] = byUniqueID
	}
	byPartial, ok := byUniqueID[uniqueID]
	if !ok {
		byPartial = make(map[catalog.MD5Partial]catalog.MD5Sum)
		byUniqueID[uniqueID] = byPartial
	}
	byPartial[md5sum.Partial()] = md5sum
}

// Lookup returns the full md5sum of the archive matching a partial.
func (m MD5SumMapping) Lookup(contentType catalog.ContentType, uniqueID catalog.UniqueID, partial catalog.MD5Partial) (catalog.MD5Sum, bool) {
	md5sum, ok := m[contentType][uniqueID][partial]
	return md5sum, ok
}

// BuildMD5SumMapping enumerates every archive in storage. Blob filenames
// carry the full md5sum as their stem; files that do not are logged and
// ignored. A listing failure aborts the build so a reload keeps serving
// the previous catalog.
func BuildMD5SumMapping(ctx context.Context, storage store.Storage) (MD5SumMapping, error) {
	logger.Info("Building md5sum mapping")

	mapping := make(MD5SumMapping)
	for _, contentType := range catalog.AllContentTypes() {
		uniqueIDs, err := storage.ListFolder(ctx, contentType)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", contentType.Folder(), err)
		}

		for _, uniqueIDHex := range uniqueIDs {
			uniqueID, err := catalog.ParseUniqueID(uniqueIDHex)
			if err != nil {
				logger.Warn("Skipping storage folder with malformed unique-id",
					"content_type", contentType.Folder(), "folder", uniqueIDHex)
				continue
			}

			filenames, err := storage.ListVersions(ctx, contentType, uniqueIDHex)
			if err != nil {
				return nil, fmt.Errorf("list %s/%s: %w", contentType.Folder(), uniqueIDHex, err)
			}

			for _, filename := range filenames {
				stem, _, _ := strings.Cut(filename, ".")
				md5sum, err := catalog.ParseMD5Sum(stem)
				if err != nil {
					logger.Warn("Skipping storage blob with malformed name",
						"content_type", contentType.Folder(), "folder", uniqueIDHex, "filename", filename)
					continue
				}
				mapping.add(contentType, uniqueID, md5sum)
			}
		}
	}
	return mapping, nil
}
