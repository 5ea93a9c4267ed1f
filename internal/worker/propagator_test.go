package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubDeliveryStore struct {
	deliveries map[uuid.UUID]*model.Delivery
	listCalls  int
}

func newStubDeliveryStore() *stubDeliveryStore {
	return &stubDeliveryStore{deliveries: make(map[uuid.UUID]*model.Delivery)}
}

func (s *stubDeliveryStore) FindDeliveryByID(_ context.Context, id uuid.UUID) (*model.Delivery, error) {
	d, ok := s.deliveries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *stubDeliveryStore) UpdateDelivery(_ context.Context, d *model.Delivery) error {
	cp := *d
	s.deliveries[d.ID] = &cp
	return nil
}

func (s *stubDeliveryStore) ListPendingRetries(_ context.Context, now time.Time, limit int) ([]model.Delivery, error) {
	s.listCalls++
	var result []model.Delivery
	for _, d := range s.deliveries {
		if d.PropagationStatus == model.PropagationPending && d.NextRetryAt != nil && !d.NextRetryAt.After(now) {
			result = append(result, *d)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// RescheduleRetry mirrors the production conditional update: only a delivery
// still pending gets its schedule moved.
func (s *stubDeliveryStore) RescheduleRetry(_ context.Context, id uuid.UUID, next time.Time) error {
	d, ok := s.deliveries[id]
	if !ok || d.PropagationStatus != model.PropagationPending {
		return nil
	}
	cp := next
	d.NextRetryAt = &cp
	return nil
}

type stubApplier struct {
	stockCalls int
	priceCalls int
	stockErr   error
	priceErr   error
}

func (a *stubApplier) ApplyStockDelta(_ context.Context, productID uuid.UUID, delta int, deliveryID string) (*peer.ApplyOutcome, error) {
	a.stockCalls++
	if a.stockErr != nil {
		return nil, a.stockErr
	}
	return &peer.ApplyOutcome{ProductID: productID, StockQty: delta}, nil
}

func (a *stubApplier) ApplyPriceChange(_ context.Context, productID uuid.UUID, newPrice decimal.Decimal, deliveryID string) (*peer.ApplyOutcome, error) {
	a.priceCalls++
	if a.priceErr != nil {
		return nil, a.priceErr
	}
	return &peer.ApplyOutcome{ProductID: productID, Price: newPrice}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// deadRedis gives the propagator a client that cannot reach a server; DLQ
// pushes are logged and dropped, which is all these tests need.
func deadRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
}

func seedDelivery(store *stubDeliveryStore, unitCost *decimal.Decimal) *model.Delivery {
	d := &model.Delivery{
		ID:                uuid.New(),
		SupplierID:        uuid.New(),
		ProductID:         uuid.New(),
		QuantityDelta:     10,
		UnitCost:          unitCost,
		DeliveredAt:       time.Now(),
		PropagationStatus: model.PropagationPending,
	}
	store.deliveries[d.ID] = d
	return d
}

func jobPayload(t *testing.T, deliveryID uuid.UUID) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(PropagationJobPayload{DeliveryID: deliveryID.String()})
	require.NoError(t, err)
	return raw
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestPropagator_AppliesStockOnly(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{}
	p := NewPropagator(store, applier, deadRedis(), 5)

	d := seedDelivery(store, nil)
	p.Process(context.Background(), jobPayload(t, d.ID))

	updated := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationApplied, updated.PropagationStatus)
	assert.Equal(t, 1, updated.Attempts)
	assert.Nil(t, updated.LastError)
	assert.Equal(t, 1, applier.stockCalls)
	assert.Equal(t, 0, applier.priceCalls, "no unit cost, no price change")
}

func TestPropagator_AppliesStockAndPrice(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{}
	p := NewPropagator(store, applier, deadRedis(), 5)

	cost := decimal.NewFromFloat(12.50)
	d := seedDelivery(store, &cost)
	p.Process(context.Background(), jobPayload(t, d.ID))

	assert.Equal(t, model.PropagationApplied, store.deliveries[d.ID].PropagationStatus)
	assert.Equal(t, 1, applier.stockCalls)
	assert.Equal(t, 1, applier.priceCalls)
}

func TestPropagator_SkipsNonPending(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{}
	p := NewPropagator(store, applier, deadRedis(), 5)

	d := seedDelivery(store, nil)
	d.PropagationStatus = model.PropagationApplied

	p.Process(context.Background(), jobPayload(t, d.ID))
	assert.Equal(t, 0, applier.stockCalls)
}

func TestPropagator_SemanticRejectionFailsImmediately(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{stockErr: &peer.SemanticError{
		Service: "products", Status: http.StatusUnprocessableEntity, Detail: "stock cannot go negative",
	}}
	p := NewPropagator(store, applier, deadRedis(), 5)

	d := seedDelivery(store, nil)
	p.Process(context.Background(), jobPayload(t, d.ID))

	updated := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationFailed, updated.PropagationStatus)
	assert.Equal(t, 1, updated.Attempts, "a semantic no will not change on retry")
	assert.Nil(t, updated.NextRetryAt)
	require.NotNil(t, updated.LastError)
	assert.Contains(t, *updated.LastError, "stock cannot go negative")
}

func TestPropagator_TransportFailureSchedulesRetry(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{stockErr: peer.ErrUpstreamUnavailable}
	p := NewPropagator(store, applier, deadRedis(), 5)

	d := seedDelivery(store, nil)
	p.Process(context.Background(), jobPayload(t, d.ID))

	updated := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationPending, updated.PropagationStatus)
	assert.Equal(t, 1, updated.Attempts)
	require.NotNil(t, updated.NextRetryAt)
	assert.True(t, updated.NextRetryAt.After(time.Now()))

	// The cron will see it once next_retry_at passes.
	overdue, err := store.ListPendingRetries(context.Background(), updated.NextRetryAt.Add(time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestPropagator_ExhaustedAttemptsFail(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{stockErr: peer.ErrUpstreamUnavailable}
	p := NewPropagator(store, applier, deadRedis(), 3)

	d := seedDelivery(store, nil)
	d.Attempts = 2 // two earlier rounds already failed

	p.Process(context.Background(), jobPayload(t, d.ID))

	updated := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationFailed, updated.PropagationStatus)
	assert.Equal(t, 3, updated.Attempts)
	assert.Nil(t, updated.NextRetryAt)
}

func TestPropagator_PriceFailureKeepsDeliveryPending(t *testing.T) {
	store := newStubDeliveryStore()
	applier := &stubApplier{priceErr: peer.ErrUpstreamUnavailable}
	p := NewPropagator(store, applier, deadRedis(), 5)

	cost := decimal.NewFromFloat(12.50)
	d := seedDelivery(store, &cost)
	p.Process(context.Background(), jobPayload(t, d.ID))

	// Stock went through, price did not: the whole delivery retries and the
	// products-side ledger absorbs the duplicate stock delta.
	updated := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationPending, updated.PropagationStatus)
	assert.Equal(t, 1, applier.stockCalls)
	assert.Equal(t, 1, applier.priceCalls)
	require.NotNil(t, updated.NextRetryAt)
}

func TestComputeRetryBackoff(t *testing.T) {
	assert.Equal(t, 30*time.Second, computeRetryBackoff(1))
	assert.Equal(t, time.Minute, computeRetryBackoff(2))
	assert.Equal(t, 2*time.Minute, computeRetryBackoff(3))
	assert.Equal(t, 10*time.Minute, computeRetryBackoff(10))
}
