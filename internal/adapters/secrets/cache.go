package secrets

import (
	"context"
	"sync"
	"time"

	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

type cacheEntry struct {
	value     string
	expiresAt time.Time
}

// cachedSource keeps resolved secrets in memory for ttl
type cachedSource struct {
	source ports.SecretSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// WithCache wraps source so repeated lookups within ttl skip the backend.
// A non-positive ttl returns source unchanged.
func WithCache(source ports.SecretSource, ttl time.Duration) ports.SecretSource {
	if ttl <= 0 {
		return source
	}
	return &cachedSource{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *cachedSource) GetSecret(ctx context.Context, path string) (string, error) {
	c.mu.Lock()
	entry, ok := c.entries[path]
	if ok && c.now().Before(entry.expiresAt) {
		c.mu.Unlock()
		return entry.value, nil
	}
	delete(c.entries, path)
	c.mu.Unlock()

	value, err := c.source.GetSecret(ctx, path)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.entries[path] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return value, nil
}
