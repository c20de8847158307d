// Package main provides the TalentFlow automation API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/talentflow/automation/pkg/eventbus"
	"github.com/talentflow/automation/pkg/persistence"
	"github.com/talentflow/automation/pkg/registry"
	"github.com/talentflow/automation/pkg/services"
	"github.com/talentflow/automation/pkg/web"
	"github.com/talentflow/automation/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
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

func (a *API) App() *fiber.App {
	workflowValidator := workflow.NewValidator(a.registry)
	workflowService := services.NewWorkflow(a.persistence, workflowValidator)
	statsService := services.NewStats(a.persistence)

	// Manual runs execute synchronously inside the API process.
	engine := workflow.NewEngine(workflow.EngineConfig{
		Persistence: a.persistence,
		Registry:    a.registry,
		EventBus:    a.eventBus,
		Logger:      a.logger,
		WorkerID:    "api",
	})

	handlers := web.NewAPIHandlers(workflowService, statsService, engine, a.eventBus, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("TalentFlow Automation API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
