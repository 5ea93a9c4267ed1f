// Package cache holds the review service's bounded product-detail cache.
// It is an explicit store with TTL and a size cap — insert, hit, and expiry
// are each observable — rather than ambient global state.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/peer"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProductFetcher loads product display data from the products service.
// Implemented by the peer client.
type ProductFetcher interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*peer.ProductDetail, error)
}

type entry struct {
	detail    peer.ProductDetail
	expiresAt time.Time
}

// ProductCache serves product details with bounded staleness. A fetch failure
// degrades to the last known value (even expired) instead of failing the
// review read path; only a cold miss during an outage returns nothing.
type ProductCache struct {
	fetcher    ProductFetcher
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[uuid.UUID]entry
}

func NewProductCache(fetcher ProductFetcher, ttl time.Duration, maxEntries int) *ProductCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	return &ProductCache{
		fetcher:    fetcher,
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[uuid.UUID]entry),
	}
}

// Get returns product details, consulting the cache first. The bool is false
// only when nothing could be served at all.
func (c *ProductCache) Get(ctx context.Context, id uuid.UUID) (*peer.ProductDetail, bool) {
	c.mu.Lock()
	e, ok := c.entries[id]
	c.mu.Unlock()

	if ok && c.now().Before(e.expiresAt) {
		d := e.detail
		return &d, true
	}

	detail, err := c.fetcher.GetProduct(ctx, id)
	if err != nil {
		if ok {
			// Stale-but-available beats failing the read path.
			log.Debug().Str("product_id", id.String()).Err(err).Msg("product fetch failed, serving stale cache entry")
			d := e.detail
			return &d, true
		}
		return nil, false
	}

	c.put(id, *detail)
	return detail, true
}

// Len reports the current entry count.
func (c *ProductCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *ProductCache) put(id uuid.UUID, d peer.ProductDetail) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldestLocked()
	}
	c.entries[id] = entry{detail: d, expiresAt: c.now().Add(c.ttl)}
}

// evictOldestLocked drops the entry closest to expiry. Linear scan — the cap
// is small and eviction is rare.
func (c *ProductCache) evictOldestLocked() {
	var oldest uuid.UUID
	var oldestAt time.Time
	first := true
	for id, e := range c.entries {
		if first || e.expiresAt.Before(oldestAt) {
			oldest = id
			oldestAt = e.expiresAt
			first = false
		}
	}
	if !first {
		delete(c.entries, oldest)
	}
}
