package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// AvailabilitySink receives catalog-side effects of processed events.
type AvailabilitySink interface {
	HandleAvailabilityChanged(ctx context.Context, tenantID string, changes []pos.AvailabilityChange) error
	FullSync(ctx context.Context, tenantID string) error
}

// OrderStatusSink receives order lifecycle transitions reported by the
// provider.
type OrderStatusSink interface {
	ApplyStatus(ctx context.Context, tenantID string, event *pos.Event) error
}

// Service ingests provider webhooks. Record persists fast at the HTTP
// edge; Process runs later on a worker and carries the side effects.
type Service struct {
	events       repository.WebhookEventRepository
	profiles     repository.ProfileRepository
	registry     *pos.Registry
	availability AvailabilitySink
	orders       OrderStatusSink
	now          func() time.Time
}

func NewService(events repository.WebhookEventRepository, profiles repository.ProfileRepository, registry *pos.Registry, availability AvailabilitySink, orders OrderStatusSink) *Service {
	return &Service{
		events:       events,
		profiles:     profiles,
		registry:     registry,
		availability: availability,
		orders:       orders,
		now:          time.Now,
	}
}

// Record stores an inbound webhook delivery and reports whether this is
// the first time the event was seen. Duplicate deliveries return the
// originally stored row. Signature verification is deferred to Process
// so the HTTP handler can acknowledge quickly.
func (s *Service) Record(_ context.Context, tenantID string, provider pos.Provider, payload []byte, signature, requestURL string) (*models.POSWebhookEvent, bool, error) {
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return nil, false, err
	}

	externalID := ""
	eventType := string(pos.EventUnknown)
	if parsed, err := adapter.ParseWebhook(payload); err == nil {
		externalID = parsed.ExternalID
		eventType = string(parsed.Kind)
	} else {
		log.Warnf("[Webhooks] tenant=%s provider=%s unparseable payload at ingest: %v", tenantID, provider, err)
	}
	if externalID == "" {
		// Vendors that send no event id cannot be deduplicated; a
		// synthetic key keeps every such delivery distinct.
		sum := sha256.Sum256(append(payload, []byte(s.now().Format(time.RFC3339Nano))...))
		externalID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.POSWebhookEvent{
		TenantID:        tenantID,
		Provider:        string(provider),
		ExternalEventID: externalID,
		EventType:       eventType,
		PayloadJSON:     string(payload),
		Signature:       signature,
		RequestURL:      requestURL,
	}
	created, stored, err := s.events.CreateIfNotExists(event)
	if err != nil {
		return nil, false, fmt.Errorf("store webhook event: %w", err)
	}
	if !created {
		log.Infof("[Webhooks] tenant=%s provider=%s duplicate delivery of %s, stored row %d", tenantID, provider, externalID, stored.ID)
	}
	return stored, created, nil
}

// Process verifies, parses and dispatches a stored event. Returning a
// non-nil error leaves the row unprocessed so the job runner retries it;
// already-processed rows are a no-op.
func (s *Service) Process(ctx context.Context, eventID uint) error {
	event, err := s.events.GetByID(eventID)
	if err != nil {
		return fmt.Errorf("load webhook event %d: %w", eventID, err)
	}
	if event.ProcessedAt != nil {
		return nil
	}
	started := s.now()

	provider, err := pos.ParseProvider(event.Provider)
	if err != nil {
		return s.fail(event, err)
	}
	adapter, err := s.registry.Get(provider)
	if err != nil {
		return s.fail(event, err)
	}
	profile, err := s.profiles.GetByTenantID(event.TenantID)
	if err != nil {
		return s.fail(event, fmt.Errorf("load profile: %w", err))
	}

	payload := []byte(event.PayloadJSON)
	if !adapter.VerifyWebhookSignature(payload, event.Signature, profile.POSWebhookSecret, event.RequestURL) {
		// Record and stop. A forged payload verifies the same way every
		// time, so retrying it would only re-run the forgery check.
		verr := &pos.WebhookError{Provider: provider, Message: "signature verification failed"}
		if err := s.events.SetError(event.ID, verr.Error()); err != nil {
			log.Errorf("[Webhooks] recording error on event %d failed: %v", event.ID, err)
		}
		log.Warnf("[Webhooks] tenant=%s provider=%s event %d rejected: %v", event.TenantID, provider, event.ID, verr)
		return nil
	}

	parsed, err := adapter.ParseWebhook(payload)
	if err != nil {
		return s.fail(event, fmt.Errorf("parse webhook: %w", err))
	}

	switch parsed.Kind {
	case pos.EventAvailabilityChanged:
		err = s.availability.HandleAvailabilityChanged(ctx, event.TenantID, parsed.Changes)
	case pos.EventMenuUpdated:
		err = s.availability.FullSync(ctx, event.TenantID)
	case pos.EventOrderStatusChanged:
		err = s.orders.ApplyStatus(ctx, event.TenantID, parsed)
	default:
		log.Infof("[Webhooks] tenant=%s provider=%s ignoring event kind %q", event.TenantID, provider, parsed.Kind)
	}
	if err != nil {
		return s.fail(event, err)
	}

	if err := s.events.MarkProcessed(event.ID, s.now().Sub(started)); err != nil {
		return fmt.Errorf("mark event %d processed: %w", event.ID, err)
	}
	return nil
}

func (s *Service) fail(event *models.POSWebhookEvent, cause error) error {
	if err := s.events.SetError(event.ID, cause.Error()); err != nil {
		log.Errorf("[Webhooks] recording error on event %d failed: %v", event.ID, err)
	}
	return cause
}
