package middleware

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/plateful/plateful/app/models"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/database"
)

const (
	// TenantProfileKey is the Locals key the authenticated profile is
	// stored under.
	TenantProfileKey = "TENANT_PROFILE"
)

// TenantAuthMiddleware authenticates management requests carrying a
// tenant API key and pins them to the tenant named in the path. A valid
// key for tenant A never grants access to tenant B's routes.
func TenantAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := extractAPIKeyFromHeader(c)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing API key"})
		}

		if database.GetDB() == nil {
			log.Print("tenant auth middleware: database unavailable")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Database unavailable"})
		}

		repo := repository.GetGlobalFactory().GetProfileRepository()
		profile, err := repo.GetByAPIKey(apiKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Invalid API key"})
			}
			log.Printf("api key lookup failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "API key verification failed"})
		}

		if tenant := c.Params("tenant"); tenant != "" && tenant != profile.TenantID {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "API key does not match tenant"})
		}

		c.Locals(TenantProfileKey, profile)
		return c.Next()
	}
}

// TenantProfile returns the profile stored by TenantAuthMiddleware.
func TenantProfile(c *fiber.Ctx) *models.RestaurantProfile {
	profile, _ := c.Locals(TenantProfileKey).(*models.RestaurantProfile)
	return profile
}

func extractAPIKeyFromHeader(c *fiber.Ctx) string {
	apiKey := strings.TrimSpace(c.Get("X-API-Key"))
	if apiKey != "" {
		return apiKey
	}
	auth := strings.TrimSpace(c.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
