package revocation

import (
	"context"
	"sync"
	"time"

	"certwallet/internal/wallet/domain/issuer"
)

type cacheKey struct {
	list       string
	credential string
}

type cachedStatus struct {
	status    Status
	expiresAt time.Time
}

// CachingChecker remembers definitive verdicts of an inner checker for ttl.
// Unknown verdicts are never cached so a transient outage is retried on the next check.
type CachingChecker struct {
	inner Checker
	ttl   time.Duration
	now   func() time.Time

	mu      sync.RWMutex
	entries map[cacheKey]cachedStatus
	swept   time.Time
}

func NewCachingChecker(inner Checker, ttl time.Duration) *CachingChecker {
	return &CachingChecker{
		inner:   inner,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[cacheKey]cachedStatus),
	}
}

func (c *CachingChecker) Check(ctx context.Context, credentialID string, profile *issuer.Profile) Status {
	if profile == nil || profile.RevocationList() == "" {
		return c.inner.Check(ctx, credentialID, profile)
	}
	key := cacheKey{list: profile.RevocationList(), credential: credentialID}

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && c.now().Before(entry.expiresAt) {
		return entry.status
	}

	status := c.inner.Check(ctx, credentialID, profile)
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.evictExpired(now)
	if status.IsDefinitive() {
		c.entries[key] = cachedStatus{status: status, expiresAt: now.Add(c.ttl)}
	} else {
		delete(c.entries, key)
	}
	return status
}

// evictExpired drops every verdict past its expiry, at most once per ttl.
// Callers hold mu.
func (c *CachingChecker) evictExpired(now time.Time) {
	if now.Sub(c.swept) < c.ttl {
		return
	}
	c.swept = now
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Len reports how many verdicts are cached, expired ones included until the next sweep.
func (c *CachingChecker) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Invalidate drops every cached verdict.
func (c *CachingChecker) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[cacheKey]cachedStatus)
}
