package worker

// propagator.go
// Processes delivery propagation jobs from QueuePropagation: pushes a
// recorded supplier delivery into the products service as an idempotent
// stock delta (plus a price change when the delivery carries a unit cost).
// The delivery id is the idempotency key, so re-running a job after a lost
// response or a crash never double-applies.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/model"
	"github.com/ndevops25/e-commerce-microservices/internal/peer"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// DeliveryStore is the slice of the supplier repository the worker needs.
type DeliveryStore interface {
	FindDeliveryByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error)
	UpdateDelivery(ctx context.Context, d *model.Delivery) error
	ListPendingRetries(ctx context.Context, now time.Time, limit int) ([]model.Delivery, error)
	RescheduleRetry(ctx context.Context, id uuid.UUID, next time.Time) error
}

// ProductApplier performs the idempotent mutations on the products service.
// Implemented by the peer client.
type ProductApplier interface {
	ApplyStockDelta(ctx context.Context, productID uuid.UUID, delta int, deliveryID string) (*peer.ApplyOutcome, error)
	ApplyPriceChange(ctx context.Context, productID uuid.UUID, newPrice decimal.Decimal, deliveryID string) (*peer.ApplyOutcome, error)
}

// Propagator applies recorded deliveries to the products service.
type Propagator struct {
	deliveries  DeliveryStore
	products    ProductApplier
	rdb         *redis.Client
	maxAttempts int
}

func NewPropagator(deliveries DeliveryStore, products ProductApplier, rdb *redis.Client, maxAttempts int) *Propagator {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Propagator{deliveries: deliveries, products: products, rdb: rdb, maxAttempts: maxAttempts}
}

// Process handles a single propagation job:
//  1. Parse PropagationJobPayload from the job envelope
//  2. Fetch the delivery; skip anything no longer pending
//  3. Apply the stock delta on the products service, keyed by delivery id
//  4. Apply the price change when a unit cost was recorded
//  5. Mark applied, or schedule a retry / move to the DLQ on failure
func (p *Propagator) Process(ctx context.Context, raw json.RawMessage) {
	var payload PropagationJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("propagator: invalid payload")
		return
	}
	deliveryID, err := uuid.Parse(payload.DeliveryID)
	if err != nil {
		log.Error().Str("delivery_id", payload.DeliveryID).Msg("propagator: invalid delivery_id")
		return
	}

	d, err := p.deliveries.FindDeliveryByID(ctx, deliveryID)
	if err != nil {
		log.Error().Err(err).Str("delivery_id", payload.DeliveryID).Msg("propagator: delivery not found")
		return
	}
	if d.PropagationStatus != model.PropagationPending {
		// Already applied by an earlier attempt, or failed and parked.
		log.Debug().
			Str("delivery_id", d.ID.String()).
			Str("status", d.PropagationStatus).
			Msg("propagator: delivery not pending, skipping")
		return
	}

	if _, err := p.products.ApplyStockDelta(ctx, d.ProductID, d.QuantityDelta, d.ID.String()); err != nil {
		p.handleFailure(ctx, d, raw, err)
		return
	}

	if d.UnitCost != nil {
		// Stock is already applied at this point. If the price call fails,
		// the whole delivery is retried and the idempotency ledger turns the
		// repeated stock delta into a no-op.
		if _, err := p.products.ApplyPriceChange(ctx, d.ProductID, *d.UnitCost, d.ID.String()); err != nil {
			p.handleFailure(ctx, d, raw, err)
			return
		}
	}

	d.PropagationStatus = model.PropagationApplied
	d.Attempts++
	d.LastError = nil
	d.NextRetryAt = nil
	if err := p.deliveries.UpdateDelivery(ctx, d); err != nil {
		log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("propagator: failed to persist applied status")
		return
	}
	log.Info().
		Str("delivery_id", d.ID.String()).
		Str("product_id", d.ProductID.String()).
		Int("quantity_delta", d.QuantityDelta).
		Msg("propagator: delivery applied")
}

// handleFailure classifies a propagation error. A semantic rejection from the
// products service (unknown product, stock would go negative) will never
// succeed on retry: the delivery fails immediately and lands in the DLQ.
// Transport failures schedule a retry until the attempt budget runs out.
func (p *Propagator) handleFailure(ctx context.Context, d *model.Delivery, raw json.RawMessage, cause error) {
	d.Attempts++
	msg := cause.Error()
	d.LastError = &msg

	var sem *peer.SemanticError
	nonRetryable := errors.As(cause, &sem)

	if nonRetryable || d.Attempts >= p.maxAttempts {
		d.PropagationStatus = model.PropagationFailed
		d.NextRetryAt = nil

		reason := msg
		if !nonRetryable {
			reason = fmt.Sprintf("max attempts (%d) exceeded: %s", p.maxAttempts, msg)
		}
		log.Error().
			Str("delivery_id", d.ID.String()).
			Int("attempts", d.Attempts).
			Bool("retryable", !nonRetryable).
			Str("reason", reason).
			Msg("propagator: delivery failed, moving to DLQ")
		SendToDLQ(ctx, p.rdb, QueuePropagation, "propagation", raw, reason, d.Attempts)
	} else {
		next := time.Now().Add(computeRetryBackoff(d.Attempts))
		d.NextRetryAt = &next
		log.Warn().
			Str("delivery_id", d.ID.String()).
			Int("attempts", d.Attempts).
			Time("next_retry_at", next).
			Err(cause).
			Msg("propagator: propagation failed, scheduled retry")
	}

	if err := p.deliveries.UpdateDelivery(ctx, d); err != nil {
		log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("propagator: failed to persist failure state")
	}
}

// computeRetryBackoff doubles per attempt starting at 30s, capped at 10min.
func computeRetryBackoff(attempt int) time.Duration {
	backoff := 30 * time.Second
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff >= 10*time.Minute {
			return 10 * time.Minute
		}
	}
	return backoff
}
