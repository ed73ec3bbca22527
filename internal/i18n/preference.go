package i18n

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Preference keys shared with the theme package. The locale key is owned here.
const (
	LangPreferenceKey  = "lang-preference"
	ThemePreferenceKey = "theme-preference"
	ReduceMotionKey    = "reduce-motion"
)

const preferenceMaxAge = 365 * 24 * time.Hour

// PreferenceStore persists opaque string scalars for a single visitor.
type PreferenceStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is a process-local PreferenceStore used by tests and CLIs.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: map[string]string{}}
}

// Get implements PreferenceStore.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set implements PreferenceStore.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// CookieStore keeps preferences in cookies. It is bound to one request/response pair;
// values written during the request are visible to later reads of the same request.
type CookieStore struct {
	w       http.ResponseWriter
	r       *http.Request
	mu      sync.Mutex
	written map[string]string
}

// NewCookieStore binds a store to the given request and response writer.
func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r, written: map[string]string{}}
}

// Get implements PreferenceStore.
func (s *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	v, ok := s.written[key]
	s.mu.Unlock()
	if ok {
		return v, true, nil
	}
	if s.r == nil {
		return "", false, nil
	}
	c, err := s.r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false, nil
	}
	return c.Value, true, nil
}

// Set implements PreferenceStore.
func (s *CookieStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	prev, seen := s.written[key]
	s.written[key] = value
	s.mu.Unlock()
	if seen && prev == value {
		return nil
	}
	if s.r != nil {
		if c, err := s.r.Cookie(key); err == nil && c.Value == value && !seen {
			return nil
		}
	}
	if s.w == nil {
		return nil
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   int(preferenceMaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
		HttpOnly: true,
	})
	return nil
}
