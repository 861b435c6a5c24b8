package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/rentloop/reservation-service/internal/identity"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/platform/tracing"
)

type contextKey string

// SessionContextKey holds the validated *identity.Session for the request
const SessionContextKey contextKey = "session"

// SessionFromContext extracts the validated session from the request context
func SessionFromContext(ctx context.Context) (*identity.Session, bool) {
	session, ok := ctx.Value(SessionContextKey).(*identity.Session)
	return session, ok
}

// responseWriter wraps http.ResponseWriter to capture response data
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *responseWriter) Write(data []byte) (int, error) {
	n, err := w.ResponseWriter.Write(data)
	w.bytesWritten += n
	return n, err
}

// LoggingMiddleware logs HTTP requests and responses
func LoggingMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)

			ctx := context.WithValue(r.Context(), logging.RequestIDKey, requestID)
			r = r.WithContext(ctx)

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			logger.Info(ctx, "HTTP request processed", map[string]interface{}{
				"method":        r.Method,
				"path":          r.URL.Path,
				"query":         r.URL.RawQuery,
				"status_code":   wrapped.statusCode,
				"duration_ms":   duration.Milliseconds(),
				"request_id":    requestID,
				"user_agent":    r.UserAgent(),
				"remote_addr":   r.RemoteAddr,
				"response_size": wrapped.bytesWritten,
			})
		})
	}
}

// TracingMiddleware adds OpenTelemetry tracing to HTTP requests
func TracingMiddleware(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(serviceName)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			spanName := fmt.Sprintf("%s %s", r.Method, r.URL.Path)
			ctx, span := tracer.Start(ctx, spanName, trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				tracing.HTTPMethodKey.String(r.Method),
				tracing.HTTPURLKey.String(r.URL.String()),
				tracing.HTTPUserAgentKey.String(r.UserAgent()),
				tracing.HTTPRemoteAddrKey.String(r.RemoteAddr),
				attribute.String("http.host", r.Host),
				attribute.String("http.target", r.URL.Path),
			)

			if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}

			if span.SpanContext().IsValid() {
				ctx = context.WithValue(ctx, logging.TraceIDKey, span.SpanContext().TraceID().String())
			}

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			span.SetAttributes(
				tracing.HTTPStatusCodeKey.Int(wrapped.statusCode),
				attribute.Int("http.response_size", wrapped.bytesWritten),
			)

			if wrapped.statusCode >= 400 {
				span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", wrapped.statusCode))
			}
		})
	}
}

// MetricsMiddleware collects HTTP metrics
func MetricsMiddleware(m metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			labels := map[string]string{
				"method": r.Method,
				"path":   r.URL.Path,
				"status": fmt.Sprintf("%d", wrapped.statusCode),
			}

			m.IncrementCounter("http_requests_total", labels)
			m.RecordDuration("http_request_duration_seconds", duration, labels)
			m.RecordValue("http_response_size_bytes", float64(wrapped.bytesWritten), labels)

			if wrapped.statusCode >= 400 {
				m.IncrementCounter("http_requests_errors_total", labels)
			}
		})
	}
}

// RecoveryMiddleware recovers from panics and logs them
func RecoveryMiddleware(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error(r.Context(), "HTTP handler panic", fmt.Errorf("panic: %v", err), map[string]interface{}{
						"method":     r.Method,
						"path":       r.URL.Path,
						"request_id": r.Header.Get("X-Request-ID"),
						"stack":      string(debug.Stack()),
					})

					tracing.RecordError(r.Context(), fmt.Errorf("panic: %v", err))

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error": "Internal server error", "code": 500}`))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			for _, allowedOrigin := range allowedOrigins {
				if allowedOrigin == "*" || allowedOrigin == origin {
					allowed = true
					break
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}

			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID, X-Session-ID")
			w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Max-Age", "3600")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security headers
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// ContentTypeMiddleware ensures JSON content type for mutating requests
func ContentTypeMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == "POST" || r.Method == "PUT" || r.Method == "PATCH" {
				contentType := r.Header.Get("Content-Type")
				if contentType != "application/json" && contentType != "application/json; charset=utf-8" {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusUnsupportedMediaType)
					w.Write([]byte(`{"error": "Content-Type must be application/json", "code": 415}`))
					return
				}
			}

			w.Header().Set("Content-Type", "application/json; charset=utf-8")

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware validates the caller's session through the identity
// provider and injects the session into the request context. The session
// ID travels in X-Session-ID, the access token in Authorization: Bearer.
func AuthMiddleware(provider identity.Provider, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get("X-Session-ID")
			authHeader := r.Header.Get("Authorization")

			if sessionID == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				unauthorized(w, "Missing authentication")
				return
			}

			accessToken := strings.TrimPrefix(authHeader, "Bearer ")

			session, err := provider.ValidateSession(r.Context(), sessionID, accessToken)
			if err != nil {
				logger.Warn(r.Context(), "Session validation failed", map[string]interface{}{
					"session_id": sessionID,
					"error":      err.Error(),
				})
				unauthorized(w, "Invalid or expired session")
				return
			}

			ctx := context.WithValue(r.Context(), SessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminOnlyMiddleware rejects sessions without the admin role. It must run
// after AuthMiddleware.
func AdminOnlyMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			if !ok || !session.IsAdmin() {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error": "Admin access required", "code": 403}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error": %q, "code": 401}`, message)
}
