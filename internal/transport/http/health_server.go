package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
)

// HealthServer provides health check endpoints for monitoring and
// orchestration. Readiness requires both backing stores because the
// reservation workflow fails closed when either is down.
type HealthServer struct {
	db        *sqlx.DB
	redis     *goredis.Client
	logger    logging.Logger
	metrics   metrics.Metrics
	startTime time.Time
}

// NewHealthServer creates a new health server
func NewHealthServer(
	db *sqlx.DB,
	redis *goredis.Client,
	logger logging.Logger,
	m metrics.Metrics,
) *HealthServer {
	return &HealthServer{
		db:        db,
		redis:     redis,
		logger:    logger,
		metrics:   m,
		startTime: time.Now(),
	}
}

// HealthStatus represents the overall health status
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a single component
type ComponentHealth struct {
	Status    HealthStatus `json:"status"`
	Message   string       `json:"message,omitempty"`
	Details   interface{}  `json:"details,omitempty"`
	CheckedAt time.Time    `json:"checked_at"`
	Duration  string       `json:"duration"`
}

// OverallHealthResponse represents the complete health check response
type OverallHealthResponse struct {
	Status     HealthStatus               `json:"status"`
	Service    string                     `json:"service"`
	Version    string                     `json:"version"`
	Timestamp  time.Time                  `json:"timestamp"`
	Uptime     string                     `json:"uptime"`
	Components map[string]ComponentHealth `json:"components"`
}

// SimpleHealthResponse for basic health checks
type SimpleHealthResponse struct {
	Status    HealthStatus `json:"status"`
	Service   string       `json:"service"`
	Timestamp time.Time    `json:"timestamp"`
	Version   string       `json:"version"`
}

// HandleHealthCheck provides a comprehensive health check
func (h *HealthServer) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	components := map[string]ComponentHealth{
		"database":   h.checkDatabase(ctx),
		"lock_store": h.checkRedis(ctx),
	}

	overallStatus := HealthStatusHealthy
	for _, component := range components {
		switch component.Status {
		case HealthStatusUnhealthy:
			overallStatus = HealthStatusUnhealthy
		case HealthStatusDegraded:
			if overallStatus == HealthStatusHealthy {
				overallStatus = HealthStatusDegraded
			}
		}
	}

	response := OverallHealthResponse{
		Status:     overallStatus,
		Service:    "reservation-service",
		Version:    "1.0.0",
		Timestamp:  time.Now().UTC(),
		Uptime:     time.Since(h.startTime).String(),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == HealthStatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	healthValue := 1.0
	if overallStatus == HealthStatusDegraded {
		healthValue = 0.5
	} else if overallStatus == HealthStatusUnhealthy {
		healthValue = 0.0
	}
	h.metrics.RecordValue("service_health", healthValue, map[string]string{
		"service": "reservation-service",
		"status":  string(overallStatus),
	})

	h.logger.Debug(ctx, "Health check completed", map[string]interface{}{
		"status":   overallStatus,
		"duration": time.Since(startTime).String(),
	})

	h.writeJSONResponse(w, statusCode, response)
}

// HandleReadinessCheck reports ready only when both backing stores answer.
// A reservation cannot be taken safely without the lock store, so Redis
// being down means not ready, not degraded.
func (h *HealthServer) HandleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbHealth := h.checkDatabase(ctx)
	redisHealth := h.checkRedis(ctx)

	status := HealthStatusHealthy
	statusCode := http.StatusOK
	if dbHealth.Status == HealthStatusUnhealthy || redisHealth.Status == HealthStatusUnhealthy {
		status = HealthStatusUnhealthy
		statusCode = http.StatusServiceUnavailable
	}

	response := SimpleHealthResponse{
		Status:    status,
		Service:   "reservation-service",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	h.writeJSONResponse(w, statusCode, response)
}

// HandleLivenessCheck provides a basic liveness check
func (h *HealthServer) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	response := SimpleHealthResponse{
		Status:    HealthStatusHealthy,
		Service:   "reservation-service",
		Timestamp: time.Now().UTC(),
		Version:   "1.0.0",
	}
	h.writeJSONResponse(w, http.StatusOK, response)
}

func (h *HealthServer) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.db == nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   "Database connection not initialized",
			CheckedAt: time.Now().UTC(),
			Duration:  time.Since(start).String(),
		}
	}

	if err := h.db.PingContext(ctx); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Database ping failed: %v", err),
			CheckedAt: time.Now().UTC(),
			Duration:  time.Since(start).String(),
		}
	}

	stats := h.db.DB.Stats()
	details := map[string]interface{}{
		"open_connections":   stats.OpenConnections,
		"in_use_connections": stats.InUse,
		"idle_connections":   stats.Idle,
		"wait_count":         stats.WaitCount,
		"wait_duration":      stats.WaitDuration.String(),
	}

	status := HealthStatusHealthy
	message := "Database connection healthy"
	if stats.WaitCount > 100 {
		status = HealthStatusDegraded
		message = "High database connection wait count detected"
	}

	return ComponentHealth{
		Status:    status,
		Message:   message,
		Details:   details,
		CheckedAt: time.Now().UTC(),
		Duration:  time.Since(start).String(),
	}
}

func (h *HealthServer) checkRedis(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.redis == nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   "Redis client not initialized",
			CheckedAt: time.Now().UTC(),
			Duration:  time.Since(start).String(),
		}
	}

	if err := h.redis.Ping(ctx).Err(); err != nil {
		return ComponentHealth{
			Status:    HealthStatusUnhealthy,
			Message:   fmt.Sprintf("Redis ping failed: %v", err),
			CheckedAt: time.Now().UTC(),
			Duration:  time.Since(start).String(),
		}
	}

	return ComponentHealth{
		Status:    HealthStatusHealthy,
		Message:   "Lock store reachable",
		CheckedAt: time.Now().UTC(),
		Duration:  time.Since(start).String(),
	}
}

func (h *HealthServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")

	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error(context.Background(), "Failed to encode health response", err)
	}
}
