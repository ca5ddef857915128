package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/livefire2015/ez-society/src/config"
	"github.com/livefire2015/ez-society/src/services"
)

// Server is the HTTP API over the services
type Server struct {
	app *fiber.App
	svc *services.Services
	cfg *config.Config
}

// New builds the fiber app and registers every route
func New(svc *services.Services, cfg *config.Config) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "societyd",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{app: app, svc: svc, cfg: cfg}

	app.Use(RequestMiddleware(cfg.RequestTimeout))
	app.Use(RecoveryMiddleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	api := app.Group("/api", AuthMiddleware(cfg.JWTSecret))
	s.registerSocietyRoutes(api)
	s.registerMaintenanceRoutes(api.Group("/societies/:society_id/maintenance"))
	s.registerReportRoutes(api.Group("/societies/:society_id/reports"))
	s.registerTransactionRoutes(api.Group("/societies/:society_id/transactions"))
	s.registerApprovalRoutes(api.Group("/societies/:society_id/approvals"))
	s.registerNotificationRoutes(api.Group("/societies/:society_id/notifications"))

	return s
}

// App exposes the fiber app, mainly for app.Test
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on the configured address until Shutdown
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.HTTPAddr)
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// bind parses the JSON body into out and validates it
func bind(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return validate.Struct(out)
}

func uuidParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func uuidQuery(c *fiber.Ctx, name string) (uuid.UUID, error) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func intQuery(c *fiber.Ctx, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

// societyScope returns the caller and the society of the route
func societyScope(c *fiber.Ctx) (actor, society uuid.UUID, err error) {
	society, err = uuidParam(c, "society_id")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return actorID(c), society, nil
}
