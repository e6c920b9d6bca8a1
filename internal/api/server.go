// Package api implements the HTTP control surface spec.md §6 names: a
// small read-only set of liveness/health/screening routes behind a
// requests-per-minute limiter, plus an additive Prometheus /metrics
// endpoint. Only the /api/screening routes require Bearer keyset auth;
// /, /health and /metrics are open.
package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/tradecore/engine/internal/api/middleware"
)

// Config holds HTTP server settings.
type Config struct {
	Port               string
	APIKeys            []string
	RateLimitPerMinute int
	ShutdownTimeout    time.Duration
}

// DefaultConfig returns the spec-default HTTP server settings.
func DefaultConfig() Config {
	return Config{
		Port:               ":8080",
		RateLimitPerMinute: 100,
		ShutdownTimeout:    10 * time.Second,
	}
}

// Server is the HTTP control surface.
type Server struct {
	cfg       Config
	echo      *echo.Echo
	health    HealthChecker
	screening ScreeningReader
}

// NewServer builds a Server wired to health and screening.
func NewServer(cfg Config, health HealthChecker, screening ScreeningReader) *Server {
	if cfg.Port == "" {
		cfg = DefaultConfig()
	}
	if len(cfg.APIKeys) == 0 {
		log.Warn().Msg("API_KEYS not set; installing insecure development key")
		cfg.APIKeys = []string{"dev-insecure-default-key"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{cfg: cfg, echo: e, health: health, screening: screening}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echoMiddleware.Recover())
	s.echo.Use(middleware.Logger())
	s.echo.Use(echoMiddleware.RequestID())
	s.echo.Use(middleware.RateLimit(s.cfg.RateLimitPerMinute))
}

func (s *Server) setupRoutes() {
	auth := middleware.NewAuthMiddleware(s.cfg.APIKeys)

	s.echo.GET("/", s.handleLiveness)
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	screeningGroup := s.echo.Group("/api/screening", auth.Authenticate)
	screeningGroup.GET("/symbols/:exchange", s.handleScreeningSymbols)
	screeningGroup.GET("/symbols/:exchange/:symbol", s.handleScreeningSymbol)
	screeningGroup.GET("/history/:exchange/:symbol", s.handleScreeningHistory)
}

// Start blocks serving HTTP on cfg.Port.
func (s *Server) Start() error {
	log.Info().Str("port", s.cfg.Port).Msg("starting HTTP control surface")
	return s.echo.Start(s.cfg.Port)
}

// Shutdown gracefully stops the server within cfg.ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
