package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/repository"
)

// HandleListAlerts returns the open staff alerts for the tenant, newest
// first.
func HandleListAlerts(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")
	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	alerts, err := repository.GetGlobalRepositories().Alert.ListOpen(tenantID, limit)
	if err != nil {
		log.Errorf("[Alerts] listing alerts for tenant %s failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{"alerts": alerts, "count": len(alerts)})
}

// HandleAcknowledgeAlert marks an alert as handled so it drops off the
// open list.
func HandleAcknowledgeAlert(c *fiber.Ctx) error {
	alertID, err := c.ParamsInt("alert_id")
	if err != nil || alertID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid alert id"})
	}

	if err := repository.GetGlobalRepositories().Alert.Acknowledge(c.Params("tenant"), uint(alertID)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown alert"})
		}
		log.Errorf("[Alerts] acknowledging alert %d failed: %v", alertID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.JSON(fiber.Map{"status": "acknowledged"})
}
