package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/jobqueue"
	"github.com/plateful/plateful/internal/pkg/pos"
)

// HandlePOSWebhook ingests a provider webhook. The event is persisted
// and acknowledged with 202 before any processing happens; vendors only
// see a non-2xx for requests that could never be processed (unknown
// tenant or provider, empty body).
func HandlePOSWebhook(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")
	provider, err := pos.ParseProvider(c.Params("provider"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown provider"})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Empty body"})
	}

	if _, err := repository.GetGlobalRepositories().Profile.GetByTenantID(tenantID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown tenant"})
		}
		log.Errorf("[Webhooks] tenant lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	// Body must be kept verbatim: signature verification happens later
	// against these exact bytes.
	payload := make([]byte, len(body))
	copy(payload, body)

	signature := signatureHeader(c, provider)
	requestURL := c.BaseURL() + c.OriginalURL()

	event, created, err := services.Webhooks.Record(c.Context(), tenantID, provider, payload, signature, requestURL)
	if err != nil {
		log.Errorf("[Webhooks] recording event failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if created {
		jobPayload := jobqueue.WebhookProcessJobPayload{EventID: event.ID, TenantID: tenantID}
		if _, err := services.Queue.EnqueueJob(jobqueue.JobTypeWebhookProcess, jobPayload.ToMap()); err != nil {
			// The reaper picks up stored events whose enqueue was lost.
			log.Errorf("[Webhooks] enqueue for event %d failed: %v", event.ID, err)
		}
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":    "accepted",
		"event_id":  event.ID,
		"duplicate": !created,
	})
}

// signatureHeader extracts the vendor's signature header for the
// provider.
func signatureHeader(c *fiber.Ctx, provider pos.Provider) string {
	switch provider {
	case pos.ProviderToast:
		return c.Get("Toast-Signature")
	case pos.ProviderClover:
		return c.Get("X-Clover-Signature")
	case pos.ProviderSquare:
		return c.Get("x-square-hmacsha256-signature")
	default:
		return c.Get("X-Webhook-Signature")
	}
}
