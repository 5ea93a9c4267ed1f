package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/infra"
	"github.com/ndevops25/e-commerce-microservices/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trippedBreaker(t *testing.T) *infra.Breaker {
	t.Helper()
	b := infra.NewBreaker("products", infra.BreakerConfig{
		FailureThreshold: 1,
		OpenTimeout:      time.Minute,
	})
	err := b.Do(func() error { return errors.New("connection refused") })
	require.Error(t, err)
	require.Equal(t, infra.BreakerOpen, b.State())
	return b
}

func TestRedrive_SkipsTickWhileBreakerOpen(t *testing.T) {
	store := newStubDeliveryStore()
	past := time.Now().Add(-time.Minute)
	d := seedDelivery(store, nil)
	d.NextRetryAt = &past

	processRedrives(context.Background(), RedriveCronConfig{
		Deliveries: store,
		Dispatcher: NewDispatcher(deadRedis()),
		Breaker:    trippedBreaker(t),
		Interval:   time.Second,
	})

	assert.Equal(t, 0, store.listCalls)
	assert.Equal(t, past, *store.deliveries[d.ID].NextRetryAt)
}

func TestRedrive_EnqueueFailureKeepsRetrySchedule(t *testing.T) {
	store := newStubDeliveryStore()
	past := time.Now().Add(-time.Minute)
	d := seedDelivery(store, nil)
	d.NextRetryAt = &past

	processRedrives(context.Background(), RedriveCronConfig{
		Deliveries: store,
		Dispatcher: NewDispatcher(deadRedis()),
		Interval:   time.Second,
	})

	// The overdue delivery was found, but the enqueue failed; its schedule
	// must not move or the next tick would never see it.
	assert.Equal(t, 1, store.listCalls)
	assert.Equal(t, past, *store.deliveries[d.ID].NextRetryAt)
}

func TestRedrive_RescheduleLeavesAppliedDeliveryAlone(t *testing.T) {
	store := newStubDeliveryStore()
	past := time.Now().Add(-time.Minute)
	d := seedDelivery(store, nil)
	d.NextRetryAt = &past

	// A pool worker applies the delivery between the cron's list and its
	// reschedule. The conditional update must not drag the status back to
	// pending or move the (now irrelevant) schedule.
	d.PropagationStatus = model.PropagationApplied

	err := store.RescheduleRetry(context.Background(), d.ID, time.Now().Add(time.Minute))
	require.NoError(t, err)

	got := store.deliveries[d.ID]
	assert.Equal(t, model.PropagationApplied, got.PropagationStatus)
	assert.Equal(t, past, *got.NextRetryAt)
}

func TestRedrive_OnlyOverdueDeliveriesQualify(t *testing.T) {
	store := newStubDeliveryStore()
	future := time.Now().Add(time.Hour)
	d := seedDelivery(store, nil)
	d.NextRetryAt = &future

	got, err := store.ListPendingRetries(context.Background(), time.Now(), redriveBatchSize)
	require.NoError(t, err)
	assert.Empty(t, got)
}
