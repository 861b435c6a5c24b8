package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the reservation service
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Redis         RedisConfig         `json:"redis"`
	Lock          LockConfig          `json:"lock"`
	Kafka         KafkaConfig         `json:"kafka"`
	Observability ObservabilityConfig `json:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	DBName          string        `json:"db_name"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
}

// RedisConfig holds Redis configuration for locks and sessions
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// LockConfig holds reservation lock configuration
type LockConfig struct {
	TTL time.Duration `json:"ttl"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers                []string      `json:"brokers"`
	ReservationEventsTopic string        `json:"reservation_events_topic"`
	PaymentEventsTopic     string        `json:"payment_events_topic"`
	ConsumerGroup          string        `json:"consumer_group"`
	ProducerRetries        int           `json:"producer_retries"`
	ConsumerSessionTimeout time.Duration `json:"consumer_session_timeout"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	ServiceName    string `json:"service_name"`
	ServiceVersion string `json:"service_version"`
	MetricsEnabled bool   `json:"metrics_enabled"`
	TracingEnabled bool   `json:"tracing_enabled"`
	LogLevel       string `json:"log_level"`
	OTELEndpoint   string `json:"otel_endpoint"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout: getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:  getEnvAsDuration("SERVER_IDLE_TIMEOUT", "120s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "reservations"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
		Lock: LockConfig{
			TTL: getEnvAsDuration("RESERVATION_LOCK_TTL", "5m"),
		},
		Kafka: KafkaConfig{
			Brokers:                getEnvAsSlice("KAFKA_BROKERS", "localhost:9092"),
			ReservationEventsTopic: getEnv("KAFKA_RESERVATION_EVENTS_TOPIC", "reservation-events"),
			PaymentEventsTopic:     getEnv("KAFKA_PAYMENT_EVENTS_TOPIC", "payment-events"),
			ConsumerGroup:          getEnv("KAFKA_CONSUMER_GROUP", "reservation-service"),
			ProducerRetries:        getEnvAsInt("KAFKA_PRODUCER_RETRIES", 3),
			ConsumerSessionTimeout: getEnvAsDuration("KAFKA_CONSUMER_SESSION_TIMEOUT", "30s"),
		},
		Observability: ObservabilityConfig{
			ServiceName:    getEnv("SERVICE_NAME", "reservation-service"),
			ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			TracingEnabled: getEnvAsBool("TRACING_ENABLED", true),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			OTELEndpoint:   getEnv("OTEL_ENDPOINT", "http://localhost:4317"),
		},
	}

	if config.Lock.TTL <= 0 {
		return nil, fmt.Errorf("reservation lock TTL must be positive, got %s", config.Lock.TTL)
	}

	return config, nil
}

// DSN returns the PostgreSQL database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// Address returns the Redis address in host:port form
func (c *RedisConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return strings.Split(defaultValue, ",")
}
