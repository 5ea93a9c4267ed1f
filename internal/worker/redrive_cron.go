package worker

// redrive_cron.go
// Background goroutine that periodically re-enqueues deliveries stuck in
// propagation_status='pending' with a next_retry_at in the past: crashed
// workers, enqueue failures, and scheduled retries all funnel through here.
// Checks the products-service circuit breaker to avoid hammering a downed
// peer. Disabled under the manual redrive policy, where an operator triggers
// retries through the API instead.

import (
	"context"
	"time"

	"github.com/ndevops25/e-commerce-microservices/internal/infra"

	"github.com/rs/zerolog/log"
)

const redriveBatchSize = 20

// RedriveCronConfig holds all dependencies for the redrive goroutine.
type RedriveCronConfig struct {
	Deliveries DeliveryStore
	Dispatcher *Dispatcher
	// Breaker guarding the products service; nil disables the check.
	Breaker  *infra.Breaker
	Interval time.Duration
}

// StartRedriveCron launches a background goroutine that ticks every Interval,
// queries overdue pending deliveries, and re-enqueues them for the pool.
// It respects the context for graceful shutdown.
func StartRedriveCron(ctx context.Context, cfg RedriveCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("redrive_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("redrive_cron: shutting down")
				return
			case <-ticker.C:
				processRedrives(ctx, cfg)
			}
		}
	}()
}

func processRedrives(ctx context.Context, cfg RedriveCronConfig) {
	// If the products breaker is open, skip entirely — the pool would only
	// burn attempts against a peer that is known to be down.
	if cfg.Breaker != nil && cfg.Breaker.State() == infra.BreakerOpen {
		log.Debug().Msg("redrive_cron: products circuit breaker is open, skipping tick")
		return
	}

	deliveries, err := cfg.Deliveries.ListPendingRetries(ctx, time.Now(), redriveBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("redrive_cron: failed to query pending retries")
		return
	}
	if len(deliveries) == 0 {
		return
	}

	log.Info().Int("count", len(deliveries)).Msg("redrive_cron: re-enqueueing overdue deliveries")

	for i := range deliveries {
		d := &deliveries[i]

		if err := cfg.Dispatcher.EnqueuePropagation(ctx, d.ID); err != nil {
			log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("redrive_cron: enqueue failed")
			continue
		}
		// Push next_retry_at forward so the next tick does not re-enqueue the
		// same delivery before a worker picked it up. The conditional update
		// leaves the row alone if a worker already applied it.
		next := time.Now().Add(cfg.Interval * 2)
		if err := cfg.Deliveries.RescheduleRetry(ctx, d.ID, next); err != nil {
			log.Error().Err(err).Str("delivery_id", d.ID.String()).Msg("redrive_cron: failed to bump next_retry_at")
		}
	}
}
