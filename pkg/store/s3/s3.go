// Package s3 stores content archives in an S3 bucket, keyed as
// {type-folder}/{unique-id-hex}/{md5sum-hex}.tar.gz. Listings walk the
// whole bucket once and are cached until ClearCache, so a catalog reload
// costs one paginated listing instead of one request per folder.
package s3

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openttd/bananas-server/internal/logger"
	"github.com/openttd/bananas-server/pkg/catalog"
	"github.com/openttd/bananas-server/pkg/store"
)

// Config selects the bucket and how to reach it. AccessKeyID and
// SecretAccessKey are optional; when empty the default AWS credential
// chain is used. EndpointURL points at an S3-compatible service such as
// MinIO or localstack and switches the client to path-style addressing.
type Config struct {
	Bucket          string
	Region          string
	EndpointURL     string
	AccessKeyID     string
	SecretAccessKey string
}

// Storage is an S3-backed content store.
type Storage struct {
	cfg Config

	mu      sync.Mutex
	client  *s3.Client
	listing []string
}

// New returns a Storage for the configured bucket. No connection is made
// until the first call that needs one.
func New(cfg Config) *Storage {
	return &Storage{cfg: cfg}
}

func (s *Storage) getClient(ctx context.Context) (*s3.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getClientLocked(ctx)
}

func (s *Storage) getClientLocked(ctx context.Context) (*s3.Client, error) {
	if s.client != nil {
		return s.client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.cfg.Region),
	}
	if s.cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if s.cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(s.cfg.EndpointURL)
			o.UsePathStyle = true
		}
	})
	return s.client, nil
}

// getListing returns the flat key listing of the bucket, walking it on
// first use and serving it from cache afterwards.
func (s *Storage) getListing(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listing != nil {
		return s.listing, nil
	}

	client, err := s.getClientLocked(ctx)
	if err != nil {
		return nil, err
	}

	keys := []string{}
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.cfg.Bucket),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", s.cfg.Bucket, err)
		}
		for _, object := range page.Contents {
			keys = append(keys, aws.ToString(object.Key))
		}
	}

	logger.Debug("Cached S3 object listing", "bucket", s.cfg.Bucket, "objects", len(keys))
	s.listing = keys
	return s.listing, nil
}

// ListFolder returns the unique-id folder names of one content type.
func (s *Storage) ListFolder(ctx context.Context, contentType catalog.ContentType) ([]string, error) {
	keys, err := s.getListing(ctx)
	if err != nil {
		return nil, err
	}
	return keySegments(keys, contentType.Folder()+"/", 1), nil
}

// ListVersions returns the blob filenames below one unique-id folder.
func (s *Storage) ListVersions(ctx context.Context, contentType catalog.ContentType, uniqueIDHex string) ([]string, error) {
	keys, err := s.getListing(ctx)
	if err != nil {
		return nil, err
	}
	return keySegments(keys, contentType.Folder()+"/"+uniqueIDHex+"/", 2), nil
}

// GetStream opens the archive blob of an entry.
func (s *Storage) GetStream(ctx context.Context, entry *catalog.Entry) (store.Stream, error) {
	client, err := s.getClient(ctx)
	if err != nil {
		return nil, err
	}

	key := store.BlobKey(entry)
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return store.NewStream(resp.Body), nil
}

// ClearCache drops the cached listing and client. The next call rebuilds
// both, so a reload observes freshly uploaded content.
func (s *Storage) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing = nil
	s.client = nil
}

// keySegments extracts one path segment from every key under a prefix,
// deduplicated and sorted. Keys that do not split into the expected three
// segments are ignored.
func keySegments(keys []string, prefix string, segment int) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		parts := strings.Split(key, "/")
		if len(parts) != 3 {
			continue
		}
		name := parts[segment]
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
