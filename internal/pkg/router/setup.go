package router

import (
	"github.com/gofiber/fiber/v2"
)

// Router installs a group of related routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

func InstallRouter(app *fiber.App) {
	// Webhook routes first: they must never sit behind the API rate
	// limiter, POS providers retry aggressively on 429.
	setup(app, NewWebhookRouter(), NewApiRouter())
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
