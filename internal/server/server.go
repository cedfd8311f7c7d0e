package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"dairy-backend/internal/auth"
	"dairy-backend/internal/config"
	"dairy-backend/internal/database"
	"dairy-backend/internal/events"
	"dairy-backend/internal/httpx"
	"dairy-backend/internal/inventory"
	"dairy-backend/internal/metrics"
	"dairy-backend/internal/storage"
	"dairy-backend/internal/vision"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"
)

// Deps are the shared clients the HTTP layer is built from.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Denylist  auth.Denylist
	Publisher events.Publisher
	Store     storage.Store
	Analyzer  vision.Analyzer
}

// New builds the fiber app with middleware and every route mounted.
func New(d Deps) *fiber.App {
	if d.Denylist == nil {
		d.Denylist = auth.NopDenylist{}
	}
	if d.Publisher == nil {
		d.Publisher = events.NopPublisher{}
	}

	app := fiber.New(fiber.Config{
		AppName:      "dairy-backend",
		ErrorHandler: httpx.ErrorHandler(d.Logger),
		BodyLimit:    d.Config.MaxUploadBytes() + 1024*1024,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: d.Config.VisionTimeout + 30*time.Second,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: d.Config.Environment != "production"}))
	app.Use(requestid.New())
	app.Use(accessLog(d.Logger))
	app.Use(d.Metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins(d.Config.CORSOrigins),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/health", healthHandler(d.DB))
	app.Get("/metrics", d.Metrics.Handler())
	app.Static("/uploads", d.Config.UploadDir)

	routes(app.Group("/api"), d, inventory.NewGormSource(d.DB))
	return app
}

func corsOrigins(raw string) string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ",")
}

// accessLog writes one structured line per request.
func accessLog(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if fe, ok := err.(*fiber.Error); ok {
			status = fe.Code
		} else if err != nil {
			status = fiber.StatusInternalServerError
		}
		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.UserContext(), level, "http request",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.Locals("requestid"),
		)
		return err
	}
}

// GET /health
func healthHandler(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable", "database": "down"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
