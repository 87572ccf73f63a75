// Package main provides the Outriq API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"go.opentelemetry.io/otel/trace"

	"github.com/outriq/outriq/pkg/eventbus"
	"github.com/outriq/outriq/pkg/persistence"
	"github.com/outriq/outriq/pkg/services"
	"github.com/outriq/outriq/pkg/steps"
	"github.com/outriq/outriq/pkg/stream"
	"github.com/outriq/outriq/pkg/web"
	"github.com/outriq/outriq/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *steps.Registry
	eventBus    eventbus.EventBus
	tracer      trace.Tracer
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *steps.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// WithTracer enables span creation around workflow runs.
func (a *API) WithTracer(tracer trace.Tracer) *API {
	a.tracer = tracer

	return a
}

func (a *API) App() *fiber.App {
	campaignService := services.NewCampaign(a.persistence)
	orchestrator := workflow.NewOrchestrator(a.logger, a.persistence, a.registry, workflow.EmptySources{}, workflow.EmptySources{})

	if a.eventBus != nil {
		orchestrator = orchestrator.WithMirror(a.eventBus)
	}

	if a.tracer != nil {
		orchestrator = orchestrator.WithTracer(a.tracer)
	}

	streamer := stream.NewStreamer(a.logger, a.persistence.States())

	handlers := web.NewAPIHandlers(campaignService, orchestrator, streamer, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Outriq API")
	})

	campaigns := app.Group("/campaigns")
	campaigns.Post("/", handlers.CreateCampaign)
	campaigns.Get("/", handlers.ListCampaigns)
	campaigns.Get("/:id", handlers.GetCampaign)
	campaigns.Get("/:id/state", handlers.GetCampaignState)
	campaigns.Post("/:id/runs", handlers.StartRun)
	campaigns.Put("/:id/contacts", handlers.SelectContacts)
	campaigns.Post("/:id/feedback", handlers.AddFeedback)
	campaigns.Post("/:id/finalize", handlers.FinalizeCampaign)
	campaigns.Get("/:id/followups", handlers.GetFollowups)
	campaigns.Post("/:id/followups/status", handlers.MarkFollowup)
	campaigns.Get("/:id/events", handlers.StreamEvents)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
