// Package devserver is a small local backend speaking the Adda REST
// contract, for running the composer end to end without the real service.
package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"adda/internal/config"
	"adda/internal/featureflags"
	"adda/internal/models"
	"adda/internal/observability"
	"adda/internal/repository"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const maxUploadBytes = 25 << 20

// Server holds the dev backend's dependencies.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	posts          repository.PostRepository
	flags          *featureflags.Manager
	promMiddleware *fiberprometheus.FiberPrometheus
	app            *fiber.App
}

// NewServer builds the server and its fiber app. A nil registry gets a
// fresh one so several servers can coexist in one process.
func NewServer(cfg *config.Config, db *gorm.DB, registry *prometheus.Registry) (*Server, error) {
	if err := os.MkdirAll(cfg.DevUploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	s := &Server{
		config:         cfg,
		db:             db,
		posts:          repository.NewPostRepository(db),
		flags:          featureflags.NewManager(cfg.FeatureFlags),
		promMiddleware: fiberprometheus.NewWithRegistry(registry, "adda-devserver", "", "", nil),
	}

	s.app = fiber.New(fiber.Config{
		AppName:   "Adda Dev API",
		BodyLimit: maxUploadBytes + 1<<20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Success: false, Message: fe.Message})
			}
			observability.GlobalLogger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
			return respondError(c, models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(s.app)
	s.SetupRoutes(s.app)
	return s, nil
}

// App returns the fiber app, for tests.
func (s *Server) App() *fiber.App { return s.app }

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Header: "X-Correlation-ID"}))
	app.Use(ContextMiddleware())
	app.Use(s.promMiddleware.Middleware)
	app.Use(StructuredLogger())
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	s.promMiddleware.RegisterAt(app, "/metrics")
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "message": "ok"})
	})
	app.Static("/uploads", s.config.DevUploadDir)

	v1 := app.Group("/api/v1", AuthRequired(s.config.DevJWTSecret))
	v1.Post("/upload/file", s.UploadFile)
	v1.Post("/posts", s.CreatePost)
	v1.Get("/posts/:id", s.GetPost)
	v1.Post("/comments", s.CreateComment)

	feeds := v1.Group("/feeds/posts/:id")
	feeds.Post("/save", s.SavePost)
	feeds.Post("/unsave", s.UnsavePost)
	feeds.Get("/check-saved", s.CheckSaved)
}

// Start listens on the configured port.
func (s *Server) Start() error {
	observability.GlobalLogger.Info("Dev server starting", slog.String("port", s.config.DevPort))
	return s.app.Listen(":" + s.config.DevPort)
}

// Shutdown stops the HTTP server and closes the database.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		observability.GlobalLogger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
	}
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.GlobalLogger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}
	return nil
}

func (s *Server) publicURL(name string) string {
	return strings.TrimRight(s.config.DevPublicURL, "/") + "/uploads/" + name
}
