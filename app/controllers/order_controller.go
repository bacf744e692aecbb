package controllers

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
)

// CheckoutItemRequest is one requested line. Items and modifiers are
// referenced by their POS external ids, matching what the menu endpoint
// serves.
type CheckoutItemRequest struct {
	ItemID              string   `json:"item_id" validate:"required"`
	Quantity            int      `json:"quantity" validate:"required,min=1,max=50"`
	ModifierIDs         []string `json:"modifier_ids" validate:"max=20"`
	SpecialInstructions string   `json:"special_instructions" validate:"max=500"`
}

// CheckoutRequest is the storefront checkout payload.
type CheckoutRequest struct {
	CustomerName        string                `json:"customer_name" validate:"required,min=2,max=200"`
	CustomerEmail       string                `json:"customer_email" validate:"required,email,max=200"`
	CustomerPhone       string                `json:"customer_phone" validate:"max=20"`
	OrderType           string                `json:"order_type" validate:"required,oneof=pickup delivery"`
	DeliveryAddress     string                `json:"delivery_address" validate:"max=500"`
	ScheduledTime       *time.Time            `json:"scheduled_time"`
	Tip                 int64                 `json:"tip" validate:"min=0"`
	SpecialInstructions string                `json:"special_instructions" validate:"max=1000"`
	Items               []CheckoutItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

// HandleCheckout creates a pending order with full price snapshots.
// Payment happens afterwards; the order reaches the POS only once the
// payment collaborator confirms capture.
func HandleCheckout(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid JSON body"})
	}
	if err := validator.New().Struct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	repos := repository.GetGlobalRepositories()
	profile, err := repos.Profile.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown tenant"})
		}
		log.Errorf("[Orders] profile lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if !profile.OrderingEnabled {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Online ordering is disabled"})
	}
	if req.OrderType == models.OrderTypePickup && !profile.PickupEnabled {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Pickup is not offered"})
	}
	if req.OrderType == models.OrderTypeDelivery {
		if !profile.DeliveryEnabled {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Delivery is not offered"})
		}
		if req.DeliveryAddress == "" {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": "Delivery address is required"})
		}
	}

	lines, subtotal, err := snapshotLines(repos.Menu, tenantID, req.Items)
	if err != nil {
		var unerr *unorderableError
		if errors.As(err, &unerr) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "validation_failed", "message": unerr.Error()})
		}
		log.Errorf("[Orders] snapshotting lines failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if req.OrderType == models.OrderTypeDelivery && subtotal < profile.DeliveryMinimum {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":   "validation_failed",
			"message": fmt.Sprintf("Delivery minimum is %d cents, order subtotal is %d", profile.DeliveryMinimum, subtotal),
		})
	}

	tax := profile.ApplyTax(subtotal)
	deliveryFee := int64(0)
	if req.OrderType == models.OrderTypeDelivery {
		deliveryFee = profile.DeliveryFee
	}
	total := subtotal + tax + deliveryFee + req.Tip

	order := &models.Order{
		TenantID:            tenantID,
		CustomerName:        req.CustomerName,
		CustomerEmail:       req.CustomerEmail,
		CustomerPhone:       req.CustomerPhone,
		Status:              models.OrderStatusPending,
		OrderType:           req.OrderType,
		ScheduledTime:       req.ScheduledTime,
		SpecialInstructions: req.SpecialInstructions,
		DeliveryAddress:     req.DeliveryAddress,
		Subtotal:            subtotal,
		Tax:                 tax,
		DeliveryFee:         deliveryFee,
		Tip:                 req.Tip,
		Total:               total,
		PaymentStatus:       models.PaymentStatusPending,
		Items:               lines,
	}
	if err := repos.Order.Create(order); err != nil {
		log.Errorf("[Orders] creating order failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"order_id":       order.ID,
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
		"subtotal":       order.Subtotal,
		"tax":            order.Tax,
		"delivery_fee":   order.DeliveryFee,
		"tip":            order.Tip,
		"total":          order.Total,
	})
}

// HandleGetOrder returns one order with its lines. Tenant-key protected.
func HandleGetOrder(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")
	orderID, err := c.ParamsInt("order_id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid order id"})
	}

	order, err := repository.GetGlobalRepositories().Order.GetByTenantAndID(tenantID, uint(orderID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown order"})
		}
		log.Errorf("[Orders] loading order failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	return c.JSON(order)
}

// HandleRetryPOS lets staff push a pos_failed order at the POS again.
func HandleRetryPOS(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")
	orderID, err := c.ParamsInt("order_id")
	if err != nil || orderID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid order id"})
	}

	repos := repository.GetGlobalRepositories()
	order, err := repos.Order.GetByTenantAndID(tenantID, uint(orderID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown order"})
		}
		log.Errorf("[Orders] loading order failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if order.Status != models.OrderStatusPOSFailed {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":   "conflict",
			"message": fmt.Sprintf("Order is %s, only pos_failed orders can be retried", order.Status),
		})
	}

	if err := services.Saga.RetryFailed(c.Context(), order.ID); err != nil {
		if errors.Is(err, repository.ErrNotClaimable) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Order is no longer retryable"})
		}
		log.Errorf("[Orders] retry for order %d failed: %v", order.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"order_id": order.ID,
		"status":   models.OrderStatusPending,
	})
}

type unorderableError struct {
	reason string
}

func (e *unorderableError) Error() string { return e.reason }

// snapshotLines resolves requested items against the live catalog and
// freezes name and prices into order lines. After this point menu edits
// cannot change the order.
func snapshotLines(menus repository.MenuRepository, tenantID string, items []CheckoutItemRequest) ([]models.OrderItem, int64, error) {
	var lines []models.OrderItem
	var subtotal int64

	for _, req := range items {
		item, err := menus.GetItemByExternalID(tenantID, req.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, &unorderableError{reason: fmt.Sprintf("Unknown item %s", req.ItemID)}
			}
			return nil, 0, err
		}
		if !item.IsAvailable {
			return nil, 0, &unorderableError{reason: fmt.Sprintf("Item %s is currently unavailable", item.Name)}
		}

		mods, modTotal, err := resolveModifiers(item, req.ModifierIDs)
		if err != nil {
			return nil, 0, err
		}

		line := models.OrderItem{
			TenantID:            tenantID,
			MenuItemID:          item.ID,
			ItemExternalID:      item.ExternalID,
			ItemName:            item.Name,
			Quantity:            req.Quantity,
			UnitPrice:           item.Price,
			SpecialInstructions: req.SpecialInstructions,
			LineTotal:           (item.Price + modTotal) * int64(req.Quantity),
		}
		if err := line.SetModifiers(mods); err != nil {
			return nil, 0, err
		}
		subtotal += line.LineTotal
		lines = append(lines, line)
	}
	return lines, subtotal, nil
}

func resolveModifiers(item *models.MenuItem, modifierIDs []string) ([]models.OrderItemModifier, int64, error) {
	if len(modifierIDs) == 0 {
		return nil, 0, nil
	}

	available := map[string]*models.Modifier{}
	for gi := range item.ModifierGroups {
		group := &item.ModifierGroups[gi]
		for mi := range group.Modifiers {
			mod := &group.Modifiers[mi]
			available[mod.ExternalID] = mod
		}
	}

	var out []models.OrderItemModifier
	var total int64
	for _, id := range modifierIDs {
		mod, ok := available[id]
		if !ok {
			return nil, 0, &unorderableError{reason: fmt.Sprintf("Unknown modifier %s for item %s", id, item.Name)}
		}
		if !mod.IsAvailable {
			return nil, 0, &unorderableError{reason: fmt.Sprintf("Modifier %s is currently unavailable", mod.Name)}
		}
		out = append(out, models.OrderItemModifier{
			ExternalID:      mod.ExternalID,
			Name:            mod.Name,
			PriceAdjustment: mod.PriceAdjustment,
		})
		total += mod.PriceAdjustment
	}
	return out, total, nil
}
