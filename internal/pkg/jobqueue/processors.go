package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/plateful/plateful/internal/pkg/availability"
	"github.com/plateful/plateful/internal/pkg/fulfillment"
	"github.com/plateful/plateful/internal/pkg/webhooks"
)

// Services bundles the domain services the job processors dispatch to.
type Services struct {
	Webhooks     *webhooks.Service
	Saga         *fulfillment.Saga
	Availability *availability.Engine
}

// processWebhookJob verifies and applies a stored webhook event.
func (q *Queue) processWebhookJob(ctx context.Context, job *Job) error {
	if q.services == nil || q.services.Webhooks == nil {
		return fmt.Errorf("webhook service not wired")
	}
	payload, err := WebhookProcessJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid webhook job payload: %w", err)
	}
	return q.services.Webhooks.Process(ctx, payload.EventID)
}

// processOrderSubmitJob runs one POS submission attempt. The saga owns
// failure accounting and retry scheduling, so an attempt that was
// handled (recorded, rescheduled, or compensated) returns nil here and
// the job completes.
func (q *Queue) processOrderSubmitJob(ctx context.Context, job *Job) error {
	if q.services == nil || q.services.Saga == nil {
		return fmt.Errorf("fulfillment saga not wired")
	}
	payload, err := OrderSubmitJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid order submit payload: %w", err)
	}
	return q.services.Saga.Submit(ctx, payload.OrderID)
}

// processAvailabilitySyncJob runs a full catalog sync for one tenant.
func (q *Queue) processAvailabilitySyncJob(ctx context.Context, job *Job) error {
	if q.services == nil || q.services.Availability == nil {
		return fmt.Errorf("availability engine not wired")
	}
	payload, err := AvailabilitySyncJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid availability sync payload: %w", err)
	}
	return q.services.Availability.FullSync(ctx, payload.TenantID)
}

// SubmitScheduler adapts the queue to the saga's Scheduler dependency.
type SubmitScheduler struct {
	queue *Queue
}

func NewSubmitScheduler(queue *Queue) *SubmitScheduler {
	return &SubmitScheduler{queue: queue}
}

func (s *SubmitScheduler) ScheduleSubmit(orderID uint, delay time.Duration) error {
	payload := OrderSubmitJobPayload{OrderID: orderID}
	_, err := s.queue.EnqueueJobIn(JobTypeOrderSubmit, payload.ToMap(), delay)
	return err
}
