package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	"github.com/bbernstein/metobs/internal/api"
	"github.com/bbernstein/metobs/internal/models"
	"github.com/bbernstein/metobs/internal/search"
)

// Service is the search service as used by the web layer.
type Service interface {
	Sites() []models.Site
	Parameters(ctx context.Context) ([]models.Parameter, error)
	Stations(ctx context.Context, parameterKey string) ([]models.Station, error)
	Describe(ctx context.Context, parameterKey string) (*models.Parameter, error)
	Search(ctx context.Context, q search.Query) (*search.Report, error)
}

type Server struct {
	app     *fiber.App
	service Service
	metrics http.Handler
}

type Option func(*Server)

// WithMetricsHandler exposes h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func New(service Service, opts ...Option) *Server {
	s := &Server{service: service}
	for _, opt := range opts {
		opt(s)
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "metobs",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// a search may probe many stations
		WriteTimeout: 5 * time.Minute,
		ErrorHandler: errorHandler,
	})

	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(requestLogger())

	s.registerRoutes()
	return s
}

// App exposes the fiber app, mainly for app.Test in tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(addr string) error {
	log.Info().Str("addr", addr).Msg("Starting web server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders JSON for /api routes and plain text for pages.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}

	message := err.Error()
	if code >= fiber.StatusInternalServerError && fe == nil {
		log.Error().Err(err).Str("path", c.Path()).Msg("Unhandled error")
		message = "Internal Server Error"
	}

	if strings.HasPrefix(c.Path(), "/api/") {
		return c.Status(code).JSON(api.NewErrorResponse(message))
	}
	return c.Status(code).SendString(message)
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		event := log.Info()
		if status >= fiber.StatusInternalServerError {
			event = log.Error()
		} else if status >= fiber.StatusBadRequest {
			event = log.Warn()
		}
		event.
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("elapsed", time.Since(start)).
			Msg("Handled request")
		return nil
	}
}

// metricsHandler adapts the Prometheus handler to fiber.
func (s *Server) metricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(s.metrics)
}
