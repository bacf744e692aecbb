package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/plateful/plateful/internal/pkg/jobqueue"
	"github.com/plateful/plateful/internal/pkg/middleware"
)

// HandleSyncAvailability queues a full menu and availability pull from
// the tenant's POS. Staff use this when a webhook was missed or after
// bulk menu edits in the POS back office.
func HandleSyncAvailability(c *fiber.Ctx) error {
	profile := middleware.TenantProfile(c)
	if profile == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing tenant context"})
	}
	if !profile.HasPOS() {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "No POS is connected for this tenant"})
	}

	payload := jobqueue.AvailabilitySyncJobPayload{TenantID: profile.TenantID}
	job, err := services.Queue.EnqueueJob(jobqueue.JobTypeAvailabilitySync, payload.ToMap())
	if err != nil {
		log.Errorf("[Availability] enqueueing sync for tenant %s failed: %v", profile.TenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "queued",
		"job_id": job.ID,
	})
}
