package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rentloop/reservation-service/internal/config"
	"github.com/rentloop/reservation-service/internal/identity"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/transport/http/handlers"
	customMiddleware "github.com/rentloop/reservation-service/internal/transport/http/middleware"
)

// Server represents the HTTP server
type Server struct {
	server             *http.Server
	router             *chi.Mux
	logger             logging.Logger
	metrics            metrics.Metrics
	reservationHandler *handlers.ReservationHandler
	healthServer       *HealthServer
	sessionProvider    identity.Provider
	config             config.ServerConfig
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	reservationHandler *handlers.ReservationHandler,
	healthServer *HealthServer,
	sessionProvider identity.Provider,
	logger logging.Logger,
	m metrics.Metrics,
) *Server {
	server := &Server{
		logger:             logger,
		metrics:            m,
		reservationHandler: reservationHandler,
		healthServer:       healthServer,
		sessionProvider:    sessionProvider,
		config:             cfg,
	}

	server.setupRoutes()
	server.setupServer()

	return server
}

// setupRoutes configures all the routes and middleware
func (s *Server) setupRoutes() {
	s.router = chi.NewRouter()

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Use(customMiddleware.LoggingMiddleware(s.logger))
	s.router.Use(customMiddleware.TracingMiddleware("reservation-service"))
	s.router.Use(customMiddleware.MetricsMiddleware(s.metrics))
	s.router.Use(customMiddleware.SecurityHeadersMiddleware())
	s.router.Use(customMiddleware.CORSMiddleware([]string{"*"}))
	s.router.Use(customMiddleware.ContentTypeMiddleware())

	// Health endpoints, no auth required
	if s.healthServer != nil {
		s.router.Get("/health", s.healthServer.HandleHealthCheck)
		s.router.Get("/ready", s.healthServer.HandleReadinessCheck)
		s.router.Get("/live", s.healthServer.HandleLivenessCheck)
	} else {
		s.router.Get("/health", s.reservationHandler.HealthCheck)
		s.router.Get("/ready", s.reservationHandler.HealthCheck)
		s.router.Get("/live", s.reservationHandler.HealthCheck)
	}

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(customMiddleware.AuthMiddleware(s.sessionProvider, s.logger))

		s.setupReservationRoutes(r)
	})
}

// setupReservationRoutes configures reservation-specific routes
func (s *Server) setupReservationRoutes(r chi.Router) {
	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", s.reservationHandler.CreateReservation)
		r.Get("/", s.reservationHandler.ListReservations)

		// Operator-only routes
		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AdminOnlyMiddleware())
			r.Get("/metrics", s.reservationHandler.GetReservationMetrics)
			r.Patch("/{id}/status", s.reservationHandler.UpdateReservationStatus)
		})

		r.Get("/{id}", s.reservationHandler.GetReservation)
	})

	s.logger.Info(nil, "Reservation routes configured", map[string]interface{}{
		"routes": []string{
			"POST /api/v1/reservations",
			"GET /api/v1/reservations",
			"GET /api/v1/reservations/{id}",
			"PATCH /api/v1/reservations/{id}/status",
			"GET /api/v1/reservations/metrics",
		},
	})
}

// setupServer configures the HTTP server
func (s *Server) setupServer() {
	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting HTTP server", map[string]interface{}{
		"address":       s.server.Addr,
		"read_timeout":  s.config.ReadTimeout,
		"write_timeout": s.config.WriteTimeout,
		"idle_timeout":  s.config.IdleTimeout,
	})

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info(ctx, "Stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		s.logger.Error(ctx, "Failed to gracefully shutdown HTTP server", err)
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info(ctx, "HTTP server stopped")
	return nil
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *chi.Mux {
	return s.router
}
