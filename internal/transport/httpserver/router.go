// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"dlock-service/internal/app/service"
	"dlock-service/internal/transport/httpserver/dto"
	"dlock-service/internal/transport/httpserver/handler"
	"dlock-service/internal/transport/httpserver/middleware"
	"dlock-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         int
	BodyLimit    int
	Debug        bool
	TemplatesDir string // defaults to ./web/templates
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured. gatherer
// backs /metrics; probes back /readyz.
func NewServer(
	cfg ServerConfig,
	lockSvc *service.LockService,
	v *validator.Validator,
	gatherer prometheus.Gatherer,
	logger *zap.Logger,
	probes ...middleware.Probe,
) *Server {
	templatesDir := cfg.TemplatesDir
	if templatesDir == "" {
		templatesDir = "./web/templates"
	}
	engine := html.New(templatesDir, ".html")
	if cfg.Debug {
		engine.Reload(true)
	}

	app := fiber.New(fiber.Config{
		AppName:      "dlock-service",
		BodyLimit:    cfg.BodyLimit,
		ErrorHandler: errorHandler(logger),
		Views:        engine,
		UnescapePath: true,
	})

	// Health check middleware MUST be registered BEFORE other middleware
	// for Kubernetes probes to work even during high load
	app.Use(middleware.NewHealthCheck(probes...))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(compress.New())

	lockHandler := handler.NewLockHandler(lockSvc, v, logger)
	sampleHandler := handler.NewSampleHandler(lockSvc, logger)
	dashboardHandler := handler.NewDashboardHandler(lockSvc, logger)

	registerRoutes(app, gatherer, lockHandler, sampleHandler, dashboardHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}
}

// registerRoutes sets up all API routes.
func registerRoutes(
	app *fiber.App,
	gatherer prometheus.Gatherer,
	lockHandler *handler.LockHandler,
	sampleHandler *handler.SampleHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	// Health checks are handled by middleware (/livez, /readyz)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	app.Get("/dashboard", dashboardHandler.Render)
	app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/dashboard")
	})

	v1 := app.Group("/api/v1")

	locks := v1.Group("/locks")
	locks.Get("/", lockHandler.List)
	locks.Get("/:key", lockHandler.Get)
	locks.Get("/:key/events", lockHandler.Events)
	locks.Post("/:key/acquire", lockHandler.Acquire)
	locks.Post("/:key/release", lockHandler.Release)
	locks.Post("/:key/renew", lockHandler.Renew)

	samples := v1.Group("/samples")
	samples.Get("/sample", sampleHandler.Sample)
	samples.Get("/renewals", sampleHandler.Renewals)
	samples.Get("/reentrant", sampleHandler.Reentrant)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level (expected client behavior), 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error: err.Error(),
			Code:  "UNHANDLED_ERROR",
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}
