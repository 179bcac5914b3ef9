package index

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openttd/bananas-server/pkg/catalog"
)

// maxEntryWireSize is the largest SERVER_INFO frame an OpenTTD client
// accepts. Entries estimated above it are rejected at load time so they
// can never wedge a connection later.
const maxEntryWireSize = 1400

// record is one content version after overlaying its version file on the
// shared global.yaml fields. The length bounds are OpenTTD client limits.
type record struct {
	Filesize       uint32                `yaml:"filesize" validate:"required"`
	Name           string                `yaml:"name" validate:"required,max=31"`
	Version        string                `yaml:"version" validate:"required,max=15"`
	URL            string                `yaml:"url" validate:"max=95"`
	Description    string                `yaml:"description" validate:"max=511"`
	MD5SumPartial  string                `yaml:"md5sum-partial" validate:"required"`
	UploadDate     time.Time             `yaml:"upload-date" validate:"required"`
	Availability   string                `yaml:"availability" validate:"required"`
	Dependencies   []dependencyRecord    `yaml:"dependencies"`
	Compatibility  []compatibilityRecord `yaml:"compatibility"`
	Classification map[string]any        `yaml:"tagclassifications"`
	Regions        []string              `yaml:"regions" validate:"max=10"`
}

type dependencyRecord struct {
	ContentType   string `yaml:"content-type"`
	UniqueID      string `yaml:"unique-id"`
	MD5SumPartial string `yaml:"md5sum-partial"`
}

type compatibilityRecord struct {
	Name       string   `yaml:"name"`
	Conditions []string `yaml:"conditions"`
}

// parseYAMLMap parses a document into its top-level mapping without
// committing to field types yet, so global and version files can be
// merged key by key before decoding.
func parseYAMLMap(data []byte) (map[string]yaml.Node, error) {
	doc := make(map[string]yaml.Node)
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// decodeMerged decodes a version document with global fields filled in
// for every key the version file does not set itself.
func decodeMerged(global, version map[string]yaml.Node) (*record, error) {
	merged := make(map[string]yaml.Node, len(global)+len(version))
	for key, node := range global {
		merged[key] = node
	}
	for key, node := range version {
		merged[key] = node
	}

	doc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for key, node := range merged {
		node := node
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&node,
		)
	}

	rec := &record{}
	if err := doc.Decode(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// isBlacklisted reports whether a global.yaml document blocks its whole
// unique-id from being served.
func isBlacklisted(global map[string]yaml.Node) (bool, error) {
	node, ok := global["blacklisted"]
	if !ok {
		return false, nil
	}
	var blacklisted bool
	if err := node.Decode(&blacklisted); err != nil {
		return false, fmt.Errorf("blacklisted: %w", err)
	}
	return blacklisted, nil
}

// parseCompatibility turns condition lists like [">=1.2", "<14.0"] into
// version windows keyed by client branch.
func parseCompatibility(records []compatibilityRecord) (map[string]catalog.VersionWindow, error) {
	if len(records) == 0 {
		return nil, nil
	}

	compatibility := make(map[string]catalog.VersionWindow, len(records))
	for _, rec := range records {
		var window catalog.VersionWindow
		for _, condition := range rec.Conditions {
			switch {
			case strings.HasPrefix(condition, ">="):
				version, err := catalog.ParseVersion(condition[2:])
				if err != nil {
					return nil, fmt.Errorf("compatibility %s: %w", rec.Name, err)
				}
				window.Min = version
			case strings.HasPrefix(condition, "<"):
				version, err := catalog.ParseVersion(condition[1:])
				if err != nil {
					return nil, fmt.Errorf("compatibility %s: %w", rec.Name, err)
				}
				window.Max = version
			default:
				return nil, fmt.Errorf("compatibility %s: invalid condition %q", rec.Name, condition)
			}
		}
		compatibility[rec.Name] = window
	}
	return compatibility, nil
}

// synthesizeTags flattens the classification map and the region hierarchy
// into the tag list SERVER_INFO transmits: string classifications add
// their value, boolean ones add their key when true, and every region
// contributes its own name plus all ancestor names. The result is sorted
// and deduplicated.
func synthesizeTags(classification map[string]any, regions []string) ([]string, error) {
	tags := make([]string, 0, len(classification)+len(regions)*2)
	for key, value := range classification {
		switch v := value.(type) {
		case string:
			tags = append(tags, v)
		case bool:
			if v {
				tags = append(tags, key)
			}
		default:
			return nil, fmt.Errorf("classification %s: unsupported value type %T", key, value)
		}
	}
	for _, code := range regions {
		tags = append(tags, catalog.RegionTags(code)...)
	}

	sort.Strings(tags)
	deduped := tags[:0]
	for i, tag := range tags {
		if i > 0 && tag == tags[i-1] {
			continue
		}
		deduped = append(deduped, tag)
	}
	return deduped, nil
}

// estimateWireSize mirrors the SERVER_INFO layout closely enough to
// reject entries the client could never receive. Every string counts its
// bytes plus two, boolean classifications count as their "yes" rendering.
func estimateWireSize(rec *record, dependencies int) int {
	size := 1 + 4 + 4
	size += len(rec.Name) + 2
	size += len(rec.Version) + 2
	size += len(rec.URL) + 2
	size += len(rec.Description) + 2
	size += 4 + 2
	size += 16 + 2
	size += dependencies * 4
	size++
	for key, value := range rec.Classification {
		size += len(key) + 2
		switch v := value.(type) {
		case string:
			size += len(v) + 2
		case bool:
			size += len("yes") + 2
		}
	}
	for _, region := range rec.Regions {
		size += len(region) + 2
	}
	return size
}

// buildEntry resolves a merged record into a catalog entry: md5sum
// partials become full sums via the storage mapping, dependencies keep
// their resolved reference for the snapshot to link, and classification
// plus regions collapse into the transmitted tag list.
func buildEntry(contentType catalog.ContentType, uniqueID catalog.UniqueID, rec *record, mapping MD5SumMapping) (*catalog.Entry, error) {
	partial, err := catalog.ParseMD5Partial(rec.MD5SumPartial)
	if err != nil {
		return nil, fmt.Errorf("md5sum-partial: %w", err)
	}
	md5sum, ok := mapping.Lookup(contentType, uniqueID, partial)
	if !ok {
		return nil, fmt.Errorf("no archive in storage matches md5sum-partial %s", rec.MD5SumPartial)
	}

	rawDependencies := make([]catalog.RawDependency, 0, len(rec.Dependencies))
	for _, dep := range rec.Dependencies {
		depType, err := catalog.ContentTypeFromFolder(dep.ContentType)
		if err != nil {
			return nil, fmt.Errorf("dependency: %w", err)
		}
		depUniqueID, err := catalog.ParseUniqueID(dep.UniqueID)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep.UniqueID, err)
		}
		depPartial, err := catalog.ParseMD5Partial(dep.MD5SumPartial)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", dep.UniqueID, err)
		}
		depMD5Sum, ok := mapping.Lookup(depType, depUniqueID, depPartial)
		if !ok {
			return nil, fmt.Errorf("dependency %s/%s: no archive matches md5sum-partial %s",
				dep.ContentType, dep.UniqueID, dep.MD5SumPartial)
		}
		rawDependencies = append(rawDependencies, catalog.RawDependency{
			Type:     depType,
			UniqueID: depUniqueID,
			MD5Sum:   depMD5Sum,
		})
	}

	compatibility, err := parseCompatibility(rec.Compatibility)
	if err != nil {
		return nil, err
	}

	tags, err := synthesizeTags(rec.Classification, rec.Regions)
	if err != nil {
		return nil, err
	}

	if size := estimateWireSize(rec, len(rawDependencies)); size > maxEntryWireSize {
		return nil, fmt.Errorf("entry would serialize to %d bytes, limit is %d", size, maxEntryWireSize)
	}

	return &catalog.Entry{
		Type:            contentType,
		Filesize:        rec.Filesize,
		Name:            rec.Name,
		Version:         rec.Version,
		URL:             rec.URL,
		Description:     rec.Description,
		UniqueID:        uniqueID,
		UploadDate:      rec.UploadDate,
		MD5Sum:          md5sum,
		RawDependencies: rawDependencies,
		Compatibility:   compatibility,
		Regions:         rec.Regions,
		Tags:            tags,
		Archived:        rec.Availability != "new-games",
	}, nil
}
