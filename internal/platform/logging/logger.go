package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// TraceIDKey is the context key carrying the current trace ID.
	TraceIDKey contextKey = "trace_id"
	// RequestIDKey is the context key carrying the current request ID.
	RequestIDKey contextKey = "request_id"
)

// Logger defines the interface for structured logging
type Logger interface {
	Debug(ctx context.Context, message string, fields ...map[string]interface{})
	Info(ctx context.Context, message string, fields ...map[string]interface{})
	Warn(ctx context.Context, message string, fields ...map[string]interface{})
	Error(ctx context.Context, message string, err error, fields ...map[string]interface{})
	With(fields map[string]interface{}) Logger
}

// SlogLogger implements Logger using the standard slog package
type SlogLogger struct {
	logger *slog.Logger
	fields map[string]interface{}
}

// NewLogger creates a new JSON logger with the specified level
func NewLogger(level string) (Logger, error) {
	var slogLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	})

	return &SlogLogger{
		logger: slog.New(handler),
		fields: make(map[string]interface{}),
	}, nil
}

// Debug logs a debug message
func (l *SlogLogger) Debug(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, slog.LevelDebug, message, nil, fields...)
}

// Info logs an info message
func (l *SlogLogger) Info(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, slog.LevelInfo, message, nil, fields...)
}

// Warn logs a warning message
func (l *SlogLogger) Warn(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, slog.LevelWarn, message, nil, fields...)
}

// Error logs an error message
func (l *SlogLogger) Error(ctx context.Context, message string, err error, fields ...map[string]interface{}) {
	l.log(ctx, slog.LevelError, message, err, fields...)
}

// With creates a new logger with additional persistent fields
func (l *SlogLogger) With(fields map[string]interface{}) Logger {
	newFields := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}

	return &SlogLogger{
		logger: l.logger,
		fields: newFields,
	}
}

func (l *SlogLogger) log(ctx context.Context, level slog.Level, message string, err error, fields ...map[string]interface{}) {
	var attrs []slog.Attr

	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}

	for _, fieldMap := range fields {
		for k, v := range fieldMap {
			attrs = append(attrs, slog.Any(k, v))
		}
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	if traceID := fromContext(ctx, TraceIDKey); traceID != "" {
		attrs = append(attrs, slog.String("trace_id", traceID))
	}
	if requestID := fromContext(ctx, RequestIDKey); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	if ctx == nil {
		ctx = context.Background()
	}
	l.logger.LogAttrs(ctx, level, message, attrs...)
}

func fromContext(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}

// NoOpLogger is a logger that does nothing (useful for testing)
type NoOpLogger struct{}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(ctx context.Context, message string, fields ...map[string]interface{}) {}
func (n *NoOpLogger) Info(ctx context.Context, message string, fields ...map[string]interface{})  {}
func (n *NoOpLogger) Warn(ctx context.Context, message string, fields ...map[string]interface{})  {}
func (n *NoOpLogger) Error(ctx context.Context, message string, err error, fields ...map[string]interface{}) {
}
func (n *NoOpLogger) With(fields map[string]interface{}) Logger { return n }

// NewServiceLogger creates a logger pre-bound with service identity fields
func NewServiceLogger(serviceName, serviceVersion, logLevel string) (Logger, error) {
	logger, err := NewLogger(logLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return logger.With(map[string]interface{}{
		"service":         serviceName,
		"service_version": serviceVersion,
	}), nil
}
