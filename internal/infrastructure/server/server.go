package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/assetmanager/core/internal/adapters/http"
	"github.com/assetmanager/core/internal/infrastructure/config"
	"github.com/assetmanager/core/internal/infrastructure/logger"
	"github.com/assetmanager/core/internal/infrastructure/metrics"
	"github.com/assetmanager/core/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	document ports.DocumentService
}

// New creates a new server instance. m may be nil, in which case no
// metrics are recorded or exposed.
func New(cfg *config.Config, documentService ports.DocumentService, appLogger *logger.Logger, m *metrics.Metrics) (*Server, error) {
	e := echo.New()

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger)

	// Initialize handlers
	documentHandler := httpHandlers.NewDocumentHandler(documentService, appLogger)
	staticHandler := httpHandlers.NewStaticHandler(cfg.Storage.StaticRoot, appLogger)

	server := &Server{
		echo:     e,
		config:   cfg,
		logger:   appLogger,
		metrics:  m,
		document: documentService,
	}

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if cfg.Metrics.Enabled && m != nil {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(documentHandler, staticHandler)

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(documentHandler *httpHandlers.DocumentHandler, staticHandler *httpHandlers.StaticHandler) {
	// Health check
	s.echo.GET("/health", s.healthCheck)

	// Persistence API
	s.echo.GET("/api/data", documentHandler.GetData)
	s.echo.POST("/api/data", documentHandler.SaveData)

	// Everything else is a static asset
	s.echo.GET("/*", staticHandler.Serve)
	s.echo.HEAD("/*", staticHandler.Serve)
}

// setupMetrics exposes the Prometheus registry
func (s *Server) setupMetrics() {
	s.echo.GET(s.config.Metrics.Path, echo.WrapHandler(s.metrics.Handler()))
}

// healthCheck reports whether document storage is usable
func (s *Server) healthCheck(c echo.Context) error {
	status := "ok"
	storage := map[string]interface{}{
		"driver": s.document.Driver(),
		"status": "ok",
	}

	if err := s.document.HealthCheck(c.Request().Context()); err != nil {
		status = "error"
		storage["status"] = "error"
		storage["error"] = err.Error()
	}

	response := map[string]interface{}{
		"status":  status,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": s.config.App.Version,
		"storage": storage,
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops. A server closed by
// Shutdown returns nil.
func (s *Server) Start(address string) error {
	s.echo.Server.ReadTimeout = s.config.Server.ReadTimeout
	s.echo.Server.WriteTimeout = s.config.Server.WriteTimeout
	s.echo.Server.IdleTimeout = s.config.Server.IdleTimeout

	s.logger.Infow("Starting server",
		"address", address,
		"static_root", s.config.Storage.StaticRoot,
		"driver", s.document.Driver(),
	)

	if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")
	return s.echo.Shutdown(ctx)
}

// customErrorHandler renders every error as {"error": message}
func customErrorHandler(logger *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		msg := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			msg = fmt.Sprint(he.Message)
			if he.Internal != nil {
				err = fmt.Errorf("%v, %v", err, he.Internal)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Errorw("Internal server error", "error", err, "path", c.Request().URL.Path)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, httpHandlers.ErrorResponse{Error: msg})
		}
		if err != nil {
			logger.Errorw("Error sending response", "error", err)
		}
	}
}
