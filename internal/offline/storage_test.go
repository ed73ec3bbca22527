package offline

import (
	"context"
	"os"
	"testing"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStorage checks the behaviour every backend shares.
func exerciseStorage(t *testing.T, s Storage) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Open(ctx, "")
	require.Error(t, err)

	has, err := s.Has(ctx, "gen-a")
	require.NoError(t, err)
	assert.False(t, has)

	a, err := s.Open(ctx, "gen-a")
	require.NoError(t, err)
	assert.Equal(t, "gen-a", a.Name())
	b, err := s.Open(ctx, "gen-b")
	require.NoError(t, err)

	names, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-a", "gen-b"}, names)

	// Reopening keeps creation order.
	_, err = s.Open(ctx, "gen-a")
	require.NoError(t, err)
	names, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-a", "gen-b"}, names)

	entry := Entry{
		URL:      "https://hr.example.com/index.html",
		Status:   200,
		Header:   map[string][]string{"Content-Type": {"text/html"}},
		Body:     []byte("<html></html>"),
		StoredAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, a.Put(ctx, entry.URL, entry))
	require.NoError(t, b.Put(ctx, entry.URL, Entry{URL: entry.URL, Status: 200, Body: []byte("newer")}))

	got, ok, err := a.Match(ctx, entry.URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.Body, got.Body)
	assert.Equal(t, entry.Header, got.Header)
	assert.True(t, entry.StoredAt.Equal(got.StoredAt))

	_, ok, err = a.Match(ctx, "https://hr.example.com/missing")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := a.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{entry.URL}, keys)

	got, ok, err = s.Match(ctx, entry.URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "<html></html>", string(got.Body))

	removed, err := s.Delete(ctx, "gen-a")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = s.Delete(ctx, "gen-a")
	require.NoError(t, err)
	assert.False(t, removed)

	got, ok, err = s.Match(ctx, entry.URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "newer", string(got.Body))

	names, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"gen-b"}, names)
}

func TestMemoryStorage(t *testing.T) {
	exerciseStorage(t, NewMemoryStorage())
}

func TestMemoryCacheCopiesBodies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()
	c, err := s.Open(ctx, "gen")
	require.NoError(t, err)

	body := []byte("abc")
	require.NoError(t, c.Put(ctx, "k", Entry{Body: body}))
	body[0] = 'x'
	got, ok, err := c.Match(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", string(got.Body))
}

// tickingClock returns strictly increasing times so backends ordering by creation time
// see distinct values.
func tickingClock() func() time.Time {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Millisecond)
	}
}

func TestRedisStorage(t *testing.T) {
	addr := os.Getenv("OFFLINE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("OFFLINE_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ns := "offline-test-" + time.Now().Format("150405.000000")
	s, err := NewRedisStorage(client, WithRedisNamespace(ns), WithRedisClock(tickingClock()))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx := context.Background()
		names, _ := s.Keys(ctx)
		for _, n := range names {
			_, _ = s.Delete(ctx, n)
		}
	})
	exerciseStorage(t, s)
}

func TestGCSStorage(t *testing.T) {
	bucket := os.Getenv("OFFLINE_TEST_GCS_BUCKET")
	if bucket == "" || os.Getenv("STORAGE_EMULATOR_HOST") == "" {
		t.Skip("OFFLINE_TEST_GCS_BUCKET and STORAGE_EMULATOR_HOST not set")
	}
	ctx := context.Background()
	client, err := gcs.NewClient(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	prefix := "offline-test-" + time.Now().Format("150405.000000")
	s, err := NewGCSStorage(client.Bucket(bucket), WithGCSPrefix(prefix), WithGCSClock(tickingClock()))
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestBackendConstructorsRequireClients(t *testing.T) {
	_, err := NewRedisStorage(nil)
	assert.Error(t, err)
	_, err = NewGCSStorage(nil)
	assert.Error(t, err)
}

func TestGCSEntryPathIsStable(t *testing.T) {
	s := &GCSStorage{prefix: "offline"}
	p := s.entryPath("hr-portfolio-v3", "https://hr.example.com/")
	assert.Equal(t, p, s.entryPath("hr-portfolio-v3", "https://hr.example.com/"))
	assert.Regexp(t, `^offline/hr-portfolio-v3/[0-9a-f]{64}\.json$`, p)
	assert.Equal(t, "offline/hr-portfolio-v3/.generation", s.markerPath("hr-portfolio-v3"))
	assert.Error(t, validGeneration("a/b"))
}
