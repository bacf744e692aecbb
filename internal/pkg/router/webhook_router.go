package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/plateful/plateful/app/controllers"
	"github.com/plateful/plateful/internal/pkg/constants"
)

type WebhookRouter struct {
}

// InstallRouter registers the POS webhook ingestion endpoint. Providers
// sign their requests, so the route is unauthenticated but every payload
// is verified against the tenant's webhook secret before processing.
func (h WebhookRouter) InstallRouter(app *fiber.App) {
	app.Post(constants.WebhooksRoute+"/:tenant/:provider", controllers.HandlePOSWebhook)
}

func NewWebhookRouter() *WebhookRouter {
	return &WebhookRouter{}
}
