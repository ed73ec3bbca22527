package offline

import (
	"context"
	"errors"
	"sync"
)

// Cache is one named cache generation.
type Cache interface {
	Name() string
	Match(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Keys(ctx context.Context) ([]string, error)
}

// Storage is the origin-scoped set of cache generations.
type Storage interface {
	// Open returns the generation called name, creating it when absent.
	Open(ctx context.Context, name string) (Cache, error)
	Has(ctx context.Context, name string) (bool, error)
	// Keys lists generation names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Delete removes a generation and all of its entries. It reports whether the
	// generation existed.
	Delete(ctx context.Context, name string) (bool, error)
	// Match looks key up in every generation, in creation order.
	Match(ctx context.Context, key string) (Entry, bool, error)
}

var errEmptyName = errors.New("offline: cache name is required")

// MemoryStorage keeps generations in process memory.
type MemoryStorage struct {
	mu     sync.RWMutex
	order  []string
	caches map[string]*memoryCache
}

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{caches: map[string]*memoryCache{}}
}

// Open implements Storage.
func (s *MemoryStorage) Open(_ context.Context, name string) (Cache, error) {
	if name == "" {
		return nil, errEmptyName
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	c := &memoryCache{name: name, entries: map[string]Entry{}}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

// Has implements Storage.
func (s *MemoryStorage) Has(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caches[name]
	return ok, nil
}

// Keys implements Storage.
func (s *MemoryStorage) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

// Delete implements Storage.
func (s *MemoryStorage) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

// Match implements Storage.
func (s *MemoryStorage) Match(ctx context.Context, key string) (Entry, bool, error) {
	s.mu.RLock()
	caches := make([]*memoryCache, 0, len(s.order))
	for _, n := range s.order {
		caches = append(caches, s.caches[n])
	}
	s.mu.RUnlock()
	for _, c := range caches {
		if e, ok, _ := c.Match(ctx, key); ok {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

type memoryCache struct {
	name    string
	mu      sync.RWMutex
	entries map[string]Entry
}

func (c *memoryCache) Name() string { return c.name }

func (c *memoryCache) Match(_ context.Context, key string) (Entry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	e.Body = append([]byte(nil), e.Body...)
	return e, true, nil
}

func (c *memoryCache) Put(_ context.Context, key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.Body = append([]byte(nil), entry.Body...)
	c.entries[key] = entry
	return nil
}

func (c *memoryCache) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.entries))
	for k := range c.entries {
		out = append(out, k)
	}
	return out, nil
}
