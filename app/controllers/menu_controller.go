package controllers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/availability"
	"github.com/plateful/plateful/internal/pkg/cache"
)

// HandleGetMenus is the storefront menu read. Responses are cached in
// redis for a short window; availability writes invalidate the key, so
// a stale read is bounded by the TTL either way.
func HandleGetMenus(c *fiber.Ctx) error {
	tenantID := c.Params("tenant")

	cacheKey := availability.MenuCacheKey(tenantID)
	if cached, err := cache.Get(cacheKey); err == nil && cached != "" {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(cached)
	}

	repos := repository.GetGlobalRepositories()
	profile, err := repos.Profile.GetByTenantID(tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown tenant"})
		}
		log.Errorf("[Menus] profile lookup failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	menus, err := repos.Menu.GetActiveMenus(tenantID)
	if err != nil {
		log.Errorf("[Menus] loading menus for %s failed: %v", tenantID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	response := fiber.Map{
		"tenant_id":        tenantID,
		"restaurant_name":  profile.Name,
		"ordering_enabled": profile.OrderingEnabled,
		"pickup_enabled":   profile.PickupEnabled,
		"delivery_enabled": profile.DeliveryEnabled,
		"menus":            menus,
	}

	raw, err := json.Marshal(response)
	if err != nil {
		log.Errorf("[Menus] marshal failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}
	if err := cache.Set(cacheKey, string(raw), availability.MenuCacheTTL); err != nil {
		log.Warnf("[Menus] caching response for %s failed: %v", tenantID, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}
