package resolver

import (
	"context"
	"errors"
	"sync"

	"certwallet/internal/wallet/domain/issuer"
)

// ErrCacheMiss is returned by Cache.Get when no profile is stored for the URI.
var ErrCacheMiss = errors.New("issuer profile not cached")

// Cache stores parsed issuer profiles keyed by the reference they were resolved from.
// Entries are replaced whole, never mutated. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, uri string) (*issuer.Profile, error)
	Put(ctx context.Context, uri string, profile *issuer.Profile) error
	Delete(ctx context.Context, uri string) error
	Purge(ctx context.Context) error
}

// MemoryCache is the default process-local cache. Lookups take a read lock and
// population takes the write lock.
type MemoryCache struct {
	mu       sync.RWMutex
	profiles map[string]*issuer.Profile
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{profiles: make(map[string]*issuer.Profile)}
}

func (c *MemoryCache) Get(_ context.Context, uri string) (*issuer.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[uri]
	if !ok {
		return nil, ErrCacheMiss
	}
	return p, nil
}

func (c *MemoryCache) Put(_ context.Context, uri string, profile *issuer.Profile) error {
	if profile == nil {
		return errors.New("issuer profile is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[uri] = profile
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, uri string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, uri)
	return nil
}

func (c *MemoryCache) Purge(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles = make(map[string]*issuer.Profile)
	return nil
}

// Len returns the number of cached profiles.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}
