package container

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/rentloop/reservation-service/internal/config"
	"github.com/rentloop/reservation-service/internal/identity"
	identityredis "github.com/rentloop/reservation-service/internal/identity/redis"
	"github.com/rentloop/reservation-service/internal/lock"
	lockredis "github.com/rentloop/reservation-service/internal/lock/redis"
	"github.com/rentloop/reservation-service/internal/messaging/kafka"
	"github.com/rentloop/reservation-service/internal/platform/database/postgres"
	"github.com/rentloop/reservation-service/internal/platform/database/redis"
	"github.com/rentloop/reservation-service/internal/platform/logging"
	"github.com/rentloop/reservation-service/internal/platform/metrics"
	"github.com/rentloop/reservation-service/internal/repository/interfaces"
	postgresRepo "github.com/rentloop/reservation-service/internal/repository/postgres"
	"github.com/rentloop/reservation-service/internal/repository/postgres/migrations"
	"github.com/rentloop/reservation-service/internal/service"
)

// Container holds all dependencies for the reservation service
type Container struct {
	config  *config.Config
	logger  logging.Logger
	metrics metrics.Metrics

	postgres *postgres.Connection
	redis    *redis.Connection

	reservationRepository interfaces.ReservationRepository
	lockStore             lock.Store
	sessionProvider       identity.Provider

	producer *kafka.Producer
	consumer *kafka.Consumer

	reservationService *service.ReservationService
}

// New creates a new dependency injection container for the reservation service
func New(cfg *config.Config, logger logging.Logger, m metrics.Metrics) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics cannot be nil")
	}

	c := &Container{
		config:  cfg,
		logger:  logger,
		metrics: m,
	}

	if err := c.initialize(); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize container: %w", err)
	}

	return c, nil
}

// initialize sets up all dependencies in dependency order
func (c *Container) initialize() error {
	if err := c.initDatabases(); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := c.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	c.initRepositories()

	if err := c.initMessaging(); err != nil {
		return fmt.Errorf("failed to initialize messaging: %w", err)
	}

	c.initServices()

	return nil
}

// initDatabases initializes the PostgreSQL and Redis connections
func (c *Container) initDatabases() error {
	pgConfig := postgres.DefaultConfig()
	pgConfig.Host = c.config.Database.Host
	pgConfig.Port = c.config.Database.Port
	pgConfig.User = c.config.Database.User
	pgConfig.Password = c.config.Database.Password
	pgConfig.DBName = c.config.Database.DBName
	pgConfig.SSLMode = c.config.Database.SSLMode
	pgConfig.MaxOpenConns = c.config.Database.MaxOpenConns
	pgConfig.MaxIdleConns = c.config.Database.MaxIdleConns
	pgConfig.ConnMaxLifetime = c.config.Database.ConnMaxLifetime

	pgConn, err := postgres.NewConnection(pgConfig, c.logger)
	if err != nil {
		return err
	}
	c.postgres = pgConn

	redisConfig := redis.DefaultConfig()
	redisConfig.Host = c.config.Redis.Host
	redisConfig.Port = c.config.Redis.Port
	redisConfig.Password = c.config.Redis.Password
	redisConfig.DB = c.config.Redis.DB
	redisConfig.PoolSize = c.config.Redis.PoolSize

	redisConn, err := redis.NewConnection(redisConfig, c.logger)
	if err != nil {
		return err
	}
	c.redis = redisConn

	return nil
}

// runMigrations applies pending schema migrations
func (c *Container) runMigrations() error {
	migrator := migrations.NewMigrator(c.postgres.DB)
	if err := migrator.Up(context.Background()); err != nil {
		return err
	}

	c.logger.Info(context.Background(), "Database migrations applied")
	return nil
}

// initRepositories initializes the ledger repository, lock store and
// session provider
func (c *Container) initRepositories() {
	c.reservationRepository = postgresRepo.NewReservationRepository(c.postgres.DB)
	c.lockStore = lockredis.NewLockStore(c.redis.Client, c.logger)
	c.sessionProvider = identityredis.NewSessionProvider(c.redis.Client)

	c.logger.Info(context.Background(), "Repositories initialized")
}

// initMessaging initializes the Kafka producer. The consumer is created
// later because it depends on the reservation service.
func (c *Container) initMessaging() error {
	producer, err := kafka.NewProducer(
		c.config.Kafka.Brokers,
		c.config.Kafka.ReservationEventsTopic,
		c.config.Kafka.ProducerRetries,
		c.logger,
	)
	if err != nil {
		return err
	}
	c.producer = producer

	return nil
}

// initServices initializes the reservation service and the payment event
// consumer that feeds it
func (c *Container) initServices() {
	c.reservationService = service.NewReservationService(
		c.reservationRepository,
		c.lockStore,
		c.producer,
		c.config.Lock.TTL,
		c.logger,
		c.metrics,
	)

	c.logger.Info(context.Background(), "Reservation service initialized", map[string]interface{}{
		"lock_ttl": c.config.Lock.TTL.String(),
	})
}

// StartConsumer creates and starts the payment events consumer. It blocks
// until the context is cancelled, so call it from its own goroutine.
func (c *Container) StartConsumer(ctx context.Context) error {
	consumer, err := kafka.NewConsumer(
		c.config.Kafka.Brokers,
		c.config.Kafka.ConsumerGroup,
		[]string{c.config.Kafka.PaymentEventsTopic},
		c.reservationService,
		c.logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment events consumer: %w", err)
	}
	c.consumer = consumer

	return c.consumer.Start(ctx)
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetMetrics returns the metrics collector
func (c *Container) GetMetrics() metrics.Metrics {
	return c.metrics
}

// GetReservationService returns the reservation service
func (c *Container) GetReservationService() *service.ReservationService {
	return c.reservationService
}

// GetSessionProvider returns the session provider
func (c *Container) GetSessionProvider() identity.Provider {
	return c.sessionProvider
}

// GetDB returns the PostgreSQL database handle
func (c *Container) GetDB() *sqlx.DB {
	return c.postgres.DB
}

// GetRedisClient returns the shared Redis client
func (c *Container) GetRedisClient() *goredis.Client {
	return c.redis.Client
}

// Close cleans up all resources in reverse dependency order
func (c *Container) Close() error {
	c.logger.Info(context.Background(), "Shutting down container")

	var errs []error

	if c.consumer != nil {
		if err := c.consumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close consumer: %w", err))
		}
	}

	if c.producer != nil {
		if err := c.producer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close producer: %w", err))
		}
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.postgres != nil {
		if err := c.postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close PostgreSQL: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during container shutdown: %v", errs)
	}

	c.logger.Info(context.Background(), "Container shutdown completed")
	return nil
}

// HealthCheck performs a health check on all backing stores
func (c *Container) HealthCheck(ctx context.Context) error {
	if c.postgres != nil {
		if err := c.postgres.HealthCheck(ctx); err != nil {
			return fmt.Errorf("postgres health check failed: %w", err)
		}
	}

	if c.redis != nil {
		if err := c.redis.HealthCheck(ctx); err != nil {
			return fmt.Errorf("redis health check failed: %w", err)
		}
	}

	return nil
}
