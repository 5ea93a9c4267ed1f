package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/peer"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	details map[uuid.UUID]*peer.ProductDetail
	err     error
	calls   int
}

func (f *stubFetcher) GetProduct(_ context.Context, id uuid.UUID) (*peer.ProductDetail, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	d, ok := f.details[id]
	if !ok {
		return nil, errors.New("not found")
	}
	cp := *d
	return &cp, nil
}

func detail(id uuid.UUID, name string) *peer.ProductDetail {
	return &peer.ProductDetail{ID: id, Name: name, Price: decimal.NewFromFloat(10)}
}

func TestProductCache_HitSkipsFetcher(t *testing.T) {
	id := uuid.New()
	fetcher := &stubFetcher{details: map[uuid.UUID]*peer.ProductDetail{id: detail(id, "Keyboard")}}
	c := NewProductCache(fetcher, time.Minute, 10)

	first, ok := c.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, "Keyboard", first.Name)

	_, ok = c.Get(context.Background(), id)
	require.True(t, ok)
	assert.Equal(t, 1, fetcher.calls)
}

func TestProductCache_ServesStaleOnFetchFailure(t *testing.T) {
	id := uuid.New()
	fetcher := &stubFetcher{details: map[uuid.UUID]*peer.ProductDetail{id: detail(id, "Keyboard")}}
	c := NewProductCache(fetcher, time.Minute, 10)
	c.now = func() time.Time { return time.Now() }

	_, ok := c.Get(context.Background(), id)
	require.True(t, ok)

	// Entry expires, then the catalog goes down.
	c.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	fetcher.err = peer.ErrUpstreamUnavailable

	stale, ok := c.Get(context.Background(), id)
	require.True(t, ok, "expired entry must still serve during an outage")
	assert.Equal(t, "Keyboard", stale.Name)
}

func TestProductCache_ColdMissDuringOutage(t *testing.T) {
	fetcher := &stubFetcher{err: peer.ErrUpstreamUnavailable}
	c := NewProductCache(fetcher, time.Minute, 10)

	_, ok := c.Get(context.Background(), uuid.New())
	assert.False(t, ok)
}

func TestProductCache_EvictsAtCapacity(t *testing.T) {
	fetcher := &stubFetcher{details: map[uuid.UUID]*peer.ProductDetail{}}
	c := NewProductCache(fetcher, time.Minute, 2)

	for i := 0; i < 3; i++ {
		id := uuid.New()
		fetcher.details[id] = detail(id, "p")
		_, ok := c.Get(context.Background(), id)
		require.True(t, ok)
	}
	assert.Equal(t, 2, c.Len())
}
