package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/plateful/plateful/app/controllers"
	"github.com/plateful/plateful/internal/pkg/constants"
	"github.com/plateful/plateful/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	v1 := api.Group("/v1")

	// Storefront routes: no API key, these serve the ordering page.
	v1.Get(constants.MenusRoute+"/:tenant", controllers.HandleGetMenus)
	v1.Post(constants.OrdersRoute+"/:tenant", controllers.HandleCheckout)
	v1.Post(constants.PaymentsRoute+"/:tenant/confirm", controllers.HandleConfirmPayment)

	// Management routes: tenant API key required, and the key must
	// belong to the tenant in the path.
	auth := middleware.TenantAuthMiddleware()
	v1.Get(constants.OrdersRoute+"/:tenant/:order_id", auth, controllers.HandleGetOrder)
	v1.Post(constants.OrdersRoute+"/:tenant/:order_id/retry-pos", auth, controllers.HandleRetryPOS)
	v1.Post(constants.AvailabilityRoute+"/:tenant/sync", auth, controllers.HandleSyncAvailability)
	v1.Get(constants.AlertsRoute+"/:tenant", auth, controllers.HandleListAlerts)
	v1.Post(constants.AlertsRoute+"/:tenant/:alert_id/ack", auth, controllers.HandleAcknowledgeAlert)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
