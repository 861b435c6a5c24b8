package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Tracer wraps OpenTelemetry tracer lifecycle
type Tracer interface {
	Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span)
	Close() error
	GetTracer(name string) trace.Tracer
}

// OTelTracer implements Tracer backed by an OTLP exporter
type OTelTracer struct {
	provider    *sdktrace.TracerProvider
	serviceName string
}

// TracerConfig holds configuration for tracing
type TracerConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTELEndpoint   string
	SamplingRatio  float64
	Enabled        bool
}

// NewTracer creates a new OpenTelemetry tracer
func NewTracer(serviceName, serviceVersion, otelEndpoint string) (Tracer, error) {
	return NewTracerWithConfig(TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
		Environment:    "development",
		OTELEndpoint:   otelEndpoint,
		SamplingRatio:  1.0,
		Enabled:        otelEndpoint != "",
	})
}

// NewTracerWithConfig creates a new tracer with detailed configuration
func NewTracerWithConfig(config TracerConfig) (Tracer, error) {
	if !config.Enabled {
		return NewNoOpTracer(), nil
	}

	exporter, err := createOTLPExporter(config.OTELEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := createResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SamplingRatio)),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &OTelTracer{
		provider:    provider,
		serviceName: config.ServiceName,
	}, nil
}

// Start starts a new span
func (t *OTelTracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(t.serviceName).Start(ctx, spanName, opts...)
}

// GetTracer returns a tracer for the given name
func (t *OTelTracer) GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Close shuts down the tracer provider
func (t *OTelTracer) Close() error {
	if t.provider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.provider.Shutdown(ctx)
	}
	return nil
}

func createOTLPExporter(endpoint string) (sdktrace.SpanExporter, error) {
	conn, err := grpc.NewClient(endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to OTEL collector: %w", err)
	}

	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithGRPCConn(conn),
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	return exporter, nil
}

func createResource(config TracerConfig) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(config.Environment),
			attribute.String("service.namespace", "rentloop"),
		),
	)
}

// NoOpTracer is a tracer that does nothing (useful when tracing is disabled)
type NoOpTracer struct{}

// NewNoOpTracer creates a no-op tracer
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

func (n *NoOpTracer) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (n *NoOpTracer) GetTracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

func (n *NoOpTracer) Close() error {
	return nil
}

// AddSpanAttributes adds attributes to the current span
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() && err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// GetTraceID extracts the trace ID from context
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// Common attribute keys for consistent span tagging
var (
	HTTPMethodKey     = attribute.Key("http.method")
	HTTPURLKey        = attribute.Key("http.url")
	HTTPStatusCodeKey = attribute.Key("http.status_code")
	HTTPUserAgentKey  = attribute.Key("http.user_agent")
	HTTPRemoteAddrKey = attribute.Key("http.remote_addr")

	DBOperationKey = attribute.Key("db.operation")
	DBTableKey     = attribute.Key("db.table")

	ReservationIDKey = attribute.Key("reservation.id")
	ItemIDKey        = attribute.Key("rental_item.id")
	UserIDKey        = attribute.Key("user.id")
	LockKeyKey       = attribute.Key("lock.key")
)
