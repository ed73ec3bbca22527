package offline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

const (
	generationMarker   = ".generation"
	metaRequestKey     = "request-key"
	metaCreated        = "created"
	defaultGCSPrefix   = "offline"
	entryContentType   = "application/json"
	markerContentType  = "text/plain"
	gcsEntryFileSuffix = ".json"
)

// GCSStorage keeps generations in a Cloud Storage bucket. Each generation is a folder
// <prefix>/<generation>/ holding a marker object and one JSON object per entry named by
// the SHA-256 of its request key.
type GCSStorage struct {
	bucket *gcs.BucketHandle
	prefix string
	now    func() time.Time
}

// GCSOption customises a GCSStorage.
type GCSOption func(*GCSStorage)

// WithGCSPrefix overrides the object prefix (default "offline").
func WithGCSPrefix(prefix string) GCSOption {
	return func(s *GCSStorage) {
		prefix = strings.Trim(strings.TrimSpace(prefix), "/")
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithGCSClock injects the clock recorded on generation markers.
func WithGCSClock(now func() time.Time) GCSOption {
	return func(s *GCSStorage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewGCSStorage wraps a bucket handle.
func NewGCSStorage(bucket *gcs.BucketHandle, opts ...GCSOption) (*GCSStorage, error) {
	if bucket == nil {
		return nil, errors.New("offline: gcs bucket is required")
	}
	s := &GCSStorage{bucket: bucket, prefix: defaultGCSPrefix, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *GCSStorage) generationDir(name string) string {
	return path.Join(s.prefix, name) + "/"
}

func (s *GCSStorage) markerPath(name string) string {
	return s.generationDir(name) + generationMarker
}

func (s *GCSStorage) entryPath(name, key string) string {
	sum := sha256.Sum256([]byte(key))
	return s.generationDir(name) + hex.EncodeToString(sum[:]) + gcsEntryFileSuffix
}

func validGeneration(name string) error {
	if name == "" {
		return errEmptyName
	}
	if strings.Contains(name, "/") {
		return fmt.Errorf("offline: cache name %q must not contain '/'", name)
	}
	return nil
}

// Open implements Storage.
func (s *GCSStorage) Open(ctx context.Context, name string) (Cache, error) {
	if err := validGeneration(name); err != nil {
		return nil, err
	}
	obj := s.bucket.Object(s.markerPath(name)).If(gcs.Conditions{DoesNotExist: true})
	w := obj.NewWriter(ctx)
	w.ContentType = markerContentType
	w.Metadata = map[string]string{metaCreated: s.now().UTC().Format(time.RFC3339Nano)}
	if _, err := io.WriteString(w, name); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("offline: gcs open %s: %w", name, err)
	}
	if err := w.Close(); err != nil && !isPreconditionFailed(err) {
		return nil, fmt.Errorf("offline: gcs open %s: %w", name, err)
	}
	return &gcsCache{storage: s, name: name}, nil
}

// Has implements Storage.
func (s *GCSStorage) Has(ctx context.Context, name string) (bool, error) {
	if validGeneration(name) != nil {
		return false, nil
	}
	_, err := s.bucket.Object(s.markerPath(name)).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("offline: gcs has %s: %w", name, err)
	}
	return true, nil
}

// Keys implements Storage.
func (s *GCSStorage) Keys(ctx context.Context) ([]string, error) {
	type generation struct {
		name    string
		created time.Time
	}
	var gens []generation
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: s.prefix + "/", MatchGlob: "**/" + generationMarker})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("offline: gcs keys: %w", err)
		}
		rel := strings.TrimPrefix(attrs.Name, s.prefix+"/")
		name, rest, ok := strings.Cut(rel, "/")
		if !ok || rest != generationMarker {
			continue
		}
		gens = append(gens, generation{name: name, created: markerCreated(attrs)})
	}
	sort.SliceStable(gens, func(i, j int) bool {
		if gens[i].created.Equal(gens[j].created) {
			return gens[i].name < gens[j].name
		}
		return gens[i].created.Before(gens[j].created)
	})
	names := make([]string, len(gens))
	for i, g := range gens {
		names[i] = g.name
	}
	return names, nil
}

// Delete implements Storage. The marker goes last so an interrupted delete still lists the
// generation and can be retried.
func (s *GCSStorage) Delete(ctx context.Context, name string) (bool, error) {
	exists, err := s.Has(ctx, name)
	if err != nil || !exists {
		return false, err
	}
	marker := s.markerPath(name)
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: s.generationDir(name)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return false, fmt.Errorf("offline: gcs delete %s: %w", name, err)
		}
		if attrs.Name == marker {
			continue
		}
		if err := s.bucket.Object(attrs.Name).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			return false, fmt.Errorf("offline: gcs delete %s: %w", attrs.Name, err)
		}
	}
	if err := s.bucket.Object(marker).Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return false, fmt.Errorf("offline: gcs delete %s: %w", marker, err)
	}
	return true, nil
}

// Match implements Storage.
func (s *GCSStorage) Match(ctx context.Context, key string) (Entry, bool, error) {
	names, err := s.Keys(ctx)
	if err != nil {
		return Entry{}, false, err
	}
	for _, name := range names {
		e, ok, err := (&gcsCache{storage: s, name: name}).Match(ctx, key)
		if err != nil {
			return Entry{}, false, err
		}
		if ok {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func markerCreated(attrs *gcs.ObjectAttrs) time.Time {
	if raw := attrs.Metadata[metaCreated]; raw != "" {
		if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			return ts
		}
	}
	return attrs.Created
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusPreconditionFailed
	}
	return false
}

type gcsCache struct {
	storage *GCSStorage
	name    string
}

func (c *gcsCache) Name() string { return c.name }

func (c *gcsCache) Match(ctx context.Context, key string) (Entry, bool, error) {
	r, err := c.storage.bucket.Object(c.storage.entryPath(c.name, key)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("offline: gcs match %s: %w", c.name, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return Entry{}, false, fmt.Errorf("offline: gcs read %s: %w", c.name, err)
	}
	e, err := decodeEntry(data)
	if err != nil {
		return Entry{}, false, err
	}
	return e, true, nil
}

func (c *gcsCache) Put(ctx context.Context, key string, entry Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return fmt.Errorf("offline: encode entry: %w", err)
	}
	w := c.storage.bucket.Object(c.storage.entryPath(c.name, key)).NewWriter(ctx)
	w.ContentType = entryContentType
	w.Metadata = map[string]string{metaRequestKey: key}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("offline: gcs put %s: %w", c.name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("offline: gcs put %s: %w", c.name, err)
	}
	return nil
}

func (c *gcsCache) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	it := c.storage.bucket.Objects(ctx, &gcs.Query{Prefix: c.storage.generationDir(c.name)})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("offline: gcs entry keys %s: %w", c.name, err)
		}
		if key := attrs.Metadata[metaRequestKey]; key != "" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
