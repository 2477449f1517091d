// Package main provides the Flowdesk API server implementation.
package main

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/flowdesk/flowdesk/pkg/authz"
	"github.com/flowdesk/flowdesk/pkg/eventbus"
	"github.com/flowdesk/flowdesk/pkg/executors"
	"github.com/flowdesk/flowdesk/pkg/otelhelper"
	"github.com/flowdesk/flowdesk/pkg/persistence"
	"github.com/flowdesk/flowdesk/pkg/services"
	"github.com/flowdesk/flowdesk/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *executors.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *executors.Registry,
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

func (a *API) App(ctx context.Context) *fiber.App {
	tracer, err := otelhelper.NewTracer(ctx, "flowdesk-api")
	if err != nil {
		a.logger.WarnContext(ctx, "tracing disabled", "error", err)

		tracer = nil
	}

	authorizer := authz.NewAuthorizer(a.persistence.Users(), a.logger)
	instanceService := services.NewInstanceService(a.persistence, a.registry, authorizer, a.eventBus, tracer, a.logger)
	templateService := services.NewTemplateService(a.persistence, a.logger)
	projectService := services.NewProjectService(a.persistence, a.logger)

	handlers := web.NewAPIHandlers(instanceService, templateService, projectService, a.validate, a.registry, a.persistence)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Flowdesk API")
	})

	i := app.Group("/instances")
	i.Get("/", handlers.ListInstances)
	i.Post("/", handlers.CreateInstance)
	i.Get("/:id", handlers.GetInstance)
	i.Patch("/:id", handlers.UpdateInstance)
	i.Delete("/:id", handlers.DeleteInstance)
	i.Post("/:id/start", handlers.StartInstance)
	i.Post("/:id/pause", handlers.PauseInstance)
	i.Post("/:id/resume", handlers.ResumeInstance)
	i.Post("/:id/stop", handlers.StopInstance)
	i.Post("/:id/nodes/:nodeId/execute", handlers.ExecuteNode)
	i.Get("/:id/logs", handlers.GetInstanceLogs)
	i.Get("/:id/nodes/:nodeId/logs", handlers.GetNodeLogs)

	t := app.Group("/templates")
	t.Get("/", handlers.ListTemplates)
	t.Post("/", handlers.CreateTemplate)
	t.Get("/:id", handlers.GetTemplate)
	t.Patch("/:id", handlers.UpdateTemplate)
	t.Delete("/:id", handlers.DeleteTemplate)

	p := app.Group("/projects")
	p.Get("/", handlers.ListProjects)
	p.Post("/", handlers.CreateProject)
	p.Get("/:id", handlers.GetProject)
	p.Patch("/:id", handlers.UpdateProject)
	p.Delete("/:id", handlers.DeleteProject)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(ctx context.Context, port int) error {
	app := a.App(ctx)

	return app.Listen(":" + strconv.Itoa(port))
}
