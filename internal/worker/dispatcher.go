package worker

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const QueuePropagation = "jobs:propagation"

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PropagationJobPayload identifies the delivery a worker must push to the
// products service.
type PropagationJobPayload struct {
	DeliveryID string `json:"delivery_id"`
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueuePropagation pushes a delivery propagation job to Redis.
func (d *Dispatcher) EnqueuePropagation(ctx context.Context, deliveryID uuid.UUID) error {
	return d.enqueue(ctx, QueuePropagation, "propagation", PropagationJobPayload{DeliveryID: deliveryID.String()})
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{Type: jobType, Payload: data}
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}
