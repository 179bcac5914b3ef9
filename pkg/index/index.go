// Package index loads the content catalog from a BaNaNaS-style YAML
// tree: {root}/{type-folder}/{unique-id}/global.yaml holds the shared
// fields of one piece of content, versions/*.yaml holds one released
// version each. The tree is usually a checkout of the BaNaNaS repository
// kept up to date by an external job.
package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/catalog"
)

// Loader reads the YAML tree below one root folder.
type Loader struct {
	root     string
	validate *validator.Validate
}

// New returns a Loader for the tree rooted at the given folder.
func New(root string) *Loader {
	return &Loader{
		root:     root,
		validate: validator.New(),
	}
}

// Load walks the whole tree and returns every loadable entry, archived
// versions included, in deterministic folder order. A version that fails
// validation is logged and skipped so one bad upload cannot take down the
// catalog; a broken global.yaml or an unreadable folder fails the whole
// load instead, keeping the previous catalog in service.
func (l *Loader) Load(ctx context.Context, mapping MD5SumMapping) ([]*catalog.Entry, error) {
	var entries []*catalog.Entry

	for _, contentType := range catalog.AllContentTypes() {
		typeDir := filepath.Join(l.root, contentType.Folder())
		dirents, err := os.ReadDir(typeDir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("list %s: %w", typeDir, err)
		}

		counterEntries := 0
		counterArchived := 0
		for _, dirent := range dirents {
			if !dirent.IsDir() {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			loaded, err := l.loadUniqueID(contentType, filepath.Join(typeDir, dirent.Name()), dirent.Name(), mapping)
			if err != nil {
				return nil, err
			}
			for _, entry := range loaded {
				if entry.Archived {
					counterArchived++
				} else {
					counterEntries++
				}
			}
			entries = append(entries, loaded...)
		}

		logger.Info("Loaded index entries",
			"content_type", contentType.Folder(), "entries", counterEntries, "archived", counterArchived)
	}

	return entries, nil
}

func (l *Loader) loadUniqueID(contentType catalog.ContentType, dir, uniqueIDHex string, mapping MD5SumMapping) ([]*catalog.Entry, error) {
	uniqueID, err := catalog.ParseUniqueID(uniqueIDHex)
	if err != nil {
		logger.Error("Skipping folder with malformed unique-id", "path", dir, "error", err)
		return nil, nil
	}

	globalData, err := os.ReadFile(filepath.Join(dir, "global.yaml"))
	if err != nil {
		return nil, fmt.Errorf("read %s/global.yaml: %w", dir, err)
	}
	global, err := parseYAMLMap(globalData)
	if err != nil {
		return nil, fmt.Errorf("parse %s/global.yaml: %w", dir, err)
	}

	blacklisted, err := isBlacklisted(global)
	if err != nil {
		return nil, fmt.Errorf("parse %s/global.yaml: %w", dir, err)
	}
	if blacklisted {
		return nil, nil
	}

	versionsDir := filepath.Join(dir, "versions")
	versionFiles, err := os.ReadDir(versionsDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", versionsDir, err)
	}

	var entries []*catalog.Entry
	for _, versionFile := range versionFiles {
		if versionFile.IsDir() {
			continue
		}
		path := filepath.Join(versionsDir, versionFile.Name())

		entry, err := l.loadVersion(contentType, uniqueID, global, path, mapping)
		if err != nil {
			logger.Error("Failed to load entry, skipping", "path", path, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (l *Loader) loadVersion(contentType catalog.ContentType, uniqueID catalog.UniqueID, global map[string]yaml.Node, path string, mapping MD5SumMapping) (*catalog.Entry, error) {
	versionData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	version, err := parseYAMLMap(versionData)
	if err != nil {
		return nil, err
	}

	rec, err := decodeMerged(global, version)
	if err != nil {
		return nil, err
	}
	if err := l.validate.Struct(rec); err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return buildEntry(contentType, uniqueID, rec, mapping)
}
