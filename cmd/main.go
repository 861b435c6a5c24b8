package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rentloop/reservation-service/internal/config"
	"github.com/rentloop/reservation-service/internal/container"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/platform/tracing"
	"github.com/rentloop/reservation-service/internal/transport/http"
	"github.com/rentloop/reservation-service/internal/transport/http/handlers"
)

const (
	serviceName    = "reservation-service"
	serviceVersion = "1.0.0"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewServiceLogger(serviceName, serviceVersion, cfg.Observability.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info(ctx, "Starting Reservation Service", map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
	})

	m, err := metrics.NewMetrics(serviceName)
	if err != nil {
		logger.Error(ctx, "Failed to create metrics", err)
		os.Exit(1)
	}

	var tracer tracing.Tracer
	if cfg.Observability.TracingEnabled {
		tracer, err = tracing.NewTracer(serviceName, serviceVersion, cfg.Observability.OTELEndpoint)
		if err != nil {
			logger.Error(ctx, "Failed to create tracer", err)
			os.Exit(1)
		}
	} else {
		logger.Info(ctx, "Tracing disabled, using no-op tracer")
		tracer = tracing.NewNoOpTracer()
	}
	defer tracer.Close()

	// The container connects Postgres and Redis, runs migrations and wires
	// the lock store, repositories, Kafka producer and reservation service
	c, err := container.New(cfg, logger, m)
	if err != nil {
		logger.Error(ctx, "Failed to initialize container", err)
		os.Exit(1)
	}
	defer c.Close()

	reservationHandler := handlers.NewReservationHandler(c.GetReservationService(), logger)
	healthServer := http.NewHealthServer(c.GetDB(), c.GetRedisClient(), logger, m)
	httpServer := http.NewServer(
		cfg.Server,
		reservationHandler,
		healthServer,
		c.GetSessionProvider(),
		logger,
		m,
	)

	var wg sync.WaitGroup
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	// Payment events drive reservation status transitions
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := c.StartConsumer(ctx); err != nil {
			logger.Error(ctx, "Payment events consumer failed", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httpServer.Start(ctx); err != nil {
			logger.Error(ctx, "HTTP server failed", err)
		}
	}()

	logger.Info(ctx, "Reservation Service started", map[string]interface{}{
		"http_address": fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		"database":     cfg.Database.Host,
		"kafka":        cfg.Kafka.Brokers,
		"lock_ttl":     cfg.Lock.TTL.String(),
	})

	<-shutdownCh
	logger.Info(ctx, "Shutdown signal received, stopping service")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Failed to stop HTTP server", err)
	}

	wg.Wait()

	logger.Info(ctx, "Reservation Service stopped")
}
