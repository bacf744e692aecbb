package main

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/plateful/plateful/app/controllers"
	"github.com/plateful/plateful/app/repository"
	"github.com/plateful/plateful/internal/pkg/availability"
	"github.com/plateful/plateful/internal/pkg/cache"
	"github.com/plateful/plateful/internal/pkg/database"
	"github.com/plateful/plateful/internal/pkg/env"
	"github.com/plateful/plateful/internal/pkg/fulfillment"
	"github.com/plateful/plateful/internal/pkg/jobqueue"
	"github.com/plateful/plateful/internal/pkg/notify"
	"github.com/plateful/plateful/internal/pkg/payments"
	"github.com/plateful/plateful/internal/pkg/pos"
	"github.com/plateful/plateful/internal/pkg/router"
	"github.com/plateful/plateful/internal/pkg/webhooks"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	repository.InitializeFactory(database.GetDB())
	cache.SetupCache()

	repos := repository.GetGlobalRepositories()

	registry := pos.NewDefaultRegistry()
	sessions := pos.NewSessionCache()
	engine := availability.NewEngine(repos.Menu, repos.Profile, registry, sessions)

	notifier := notify.NewEmailNotifier()
	reconciler := fulfillment.NewReconciler(repos.Order, notifier)

	manager := jobqueue.GetManager()
	queue := manager.GetQueue()

	saga := fulfillment.NewSaga(
		repos.Order,
		repos.Profile,
		repos.Alert,
		registry,
		sessions,
		paymentProcessor(),
		notifier,
		jobqueue.NewSubmitScheduler(queue),
	)

	webhookService := webhooks.NewService(repos.WebhookEvent, repos.Profile, registry, engine, reconciler)

	queue.SetServices(&jobqueue.Services{
		Webhooks:     webhookService,
		Saga:         saga,
		Availability: engine,
	})
	manager.Start()

	controllers.Initialize(&controllers.Services{
		Webhooks: webhookService,
		Saga:     saga,
		Engine:   engine,
		Queue:    queue,
	})

	app := fiber.New(fiber.Config{
		AppName:   "plateful",
		BodyLimit: 1 * 1024 * 1024,
	})
	app.Use(recover.New(), logger.New())
	app.Get("/metrics", monitor.New())

	// ROUTER
	router.InstallRouter(app)

	return app
}

// paymentProcessor picks the payment backend. The mock backend accepts
// every reference and is only meant for local development.
func paymentProcessor() payments.Processor {
	if env.GetEnv("PAYMENT_PROVIDER", "stripe") == "mock" {
		return payments.NewMock()
	}
	return payments.NewClientFromEnv()
}
