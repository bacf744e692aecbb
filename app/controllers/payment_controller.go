package controllers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/repository"
)

// PaymentConfirmRequest reports a completed payment for an order.
type PaymentConfirmRequest struct {
	OrderID          uint   `json:"order_id" validate:"required"`
	PaymentReference string `json:"payment_reference" validate:"required,max=255"`
}

// HandleConfirmPayment verifies the capture with the payment provider,
// marks the order paid, and hands it to the fulfillment saga. The POS
// submission itself runs asynchronously.
func HandleConfirmPayment(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")

	var req PaymentConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if err := validator.New().Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	order, err := repository.GetGlobalRepositories().Order.GetByTenantAndID(tenantID, req.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown order"})
		}
		log.Errorf("[Payments] loading order failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if err := services.Saga.HandlePaymentSucceeded(c.Context(), order.ID, req.PaymentReference); err != nil {
		log.Errorf("[Payments] payment confirmation for order %d failed: %v", order.ID, err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "payment_not_verified", "message": "Payment could not be verified"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"order_id": order.ID,
		"status":   "payment_captured",
	})
}
