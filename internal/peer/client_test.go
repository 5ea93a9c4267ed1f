package peer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/infra"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, attempts int) *Client {
	return NewClient(map[string]string{"products": url}, time.Second, WithMaxAttempts(attempts))
}

func TestCall_RetriesServerErrorsThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	resp, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestCall_SemanticErrorIsNeverRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"no such product"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Call(context.Background(), "products", http.MethodGet, "/products/x", nil, "")

	var sem *SemanticError
	require.ErrorAs(t, err, &sem)
	assert.True(t, sem.IsNotFound())
	assert.Equal(t, "no such product", sem.Detail)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "4xx answers must not burn the retry budget")
	assert.NotErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestCall_ExhaustedBudgetIsUpstreamUnavailable(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 2)
	_, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestCall_SendsIdempotencyKeyOnEveryAttempt(t *testing.T) {
	var keys []string
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		if atomic.AddInt32(&hits, 1) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 3)
	_, err := c.Call(context.Background(), "products", http.MethodPatch, "/products/1/stock",
		map[string]int{"delta": 5}, "delivery-42")
	require.NoError(t, err)
	require.Len(t, keys, 2)
	for _, k := range keys {
		assert.Equal(t, "delivery-42", k)
	}
}

func TestCall_UnknownService(t *testing.T) {
	c := newTestClient("http://localhost:1", 1)
	_, err := c.Call(context.Background(), "billing", http.MethodGet, "/", nil, "")
	assert.Error(t, err)
}

func TestCall_OpenBreakerFastFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	// One attempt per call: five failing calls trip the breaker.
	c := newTestClient(srv.URL, 1)
	for i := 0; i < 5; i++ {
		_, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
		require.ErrorIs(t, err, ErrUpstreamUnavailable)
	}
	tripped := atomic.LoadInt32(&hits)

	_, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, tripped, atomic.LoadInt32(&hits), "open breaker must not reach the wire")
}

func TestCall_SemanticAnswersDoNotTripBreaker(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) <= 5 {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"no such category"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	// Five 404 answers in a row: each is a healthy round trip, not a peer
	// failure, so the breaker stays closed and the next call reaches the wire.
	c := newTestClient(srv.URL, 1)
	for i := 0; i < 5; i++ {
		_, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
		var sem *SemanticError
		require.ErrorAs(t, err, &sem)
	}
	require.Equal(t, infra.BreakerClosed, c.Breaker("products").State())

	resp, err := c.Call(context.Background(), "products", http.MethodGet, "/products", nil, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int32(6), atomic.LoadInt32(&hits))
}

func TestGetProduct_DecodesDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"0bd95c08-5d08-4e1f-a48d-3c4270efcf18","name":"Keyboard","price":"99.90"}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, 1)
	d, err := c.GetProduct(context.Background(), uuid.MustParse("0bd95c08-5d08-4e1f-a48d-3c4270efcf18"))
	require.NoError(t, err)
	assert.Equal(t, "Keyboard", d.Name)
	assert.True(t, d.Price.Equal(decimal.RequireFromString("99.90")))
}
