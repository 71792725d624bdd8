// Package bootstrap builds the infrastructure shared by the API and reconciler binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/availability"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/domain/booking"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/adapter"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/config"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/queue"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/database"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/entities"
)

func InitRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	logger.Info("Connecting to Redis", "address", cfg.Address())

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	logger.Info("Redis client created")
	return client
}

// InitDatabase opens the ledger database and migrates its tables.
func InitDatabase(cfg config.DatabaseConfig, logger *slog.Logger) (*gorm.DB, error) {
	db, err := database.GormOpen(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConnections)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConnections)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLife)

	if err := database.RunMigrations(db, &entities.ReservationRecord{}, &entities.PaymentRecord{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Info("Database ready", "host", cfg.Host, "database", cfg.Database)
	return db, nil
}

func CloseDatabase(db *gorm.DB, logger *slog.Logger) {
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("Error closing database", "error", err)
		}
	}
}

// NewPublisher dials RabbitMQ when event publishing is enabled and falls back to a
// publisher that only logs otherwise. The returned func releases the connection.
func NewPublisher(cfg config.RabbitMQConfig, m *metrics.Metrics, logger *slog.Logger) (booking.EventPublisher, func(), error) {
	if !cfg.Enabled {
		logger.Info("Event publishing disabled, events are only logged")
		return queue.NewDiscardPublisher(logger), func() {}, nil
	}

	amqpConnection, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	amqpChannel, err := amqpConnection.Channel()
	if err != nil {
		_ = amqpConnection.Close()
		return nil, nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}

	publisher, err := queue.NewMQPublisher(amqpConnection, amqpChannel, queue.PublisherConfig{
		Exchange:    cfg.Exchange,
		MaxAttempts: cfg.PublishAttempts,
		RetryDelay:  cfg.RetryDelay,
	}, m, logger)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("Publishing booking events", "exchange", cfg.Exchange)
	return publisher, publisher.Close, nil
}

func HotelAPIConfig(cfg config.HotelAPIConfig) *adapter.APIConfig {
	consecutiveFailures := cfg.CircuitBreaker.ConsecutiveFailures
	if consecutiveFailures == 0 {
		consecutiveFailures = 5
	}

	return &adapter.APIConfig{
		BaseURL:       cfg.BaseURL,
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		BurstLimit:    cfg.BurstLimit,
		MaxRetries:    cfg.MaxRetries,
		RetryInterval: cfg.RetryInterval,
		CircuitBreaker: &adapter.CircuitBreakerConfig{
			MaxRequests: cfg.CircuitBreaker.MaxRequests,
			Interval:    cfg.CircuitBreaker.Interval,
			Timeout:     cfg.CircuitBreaker.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= consecutiveFailures
			},
		},
	}
}

// NewHotelAPI builds the hotel API client on top of the Redis credential store, seeding
// it with the configured token when none is stored yet.
func NewHotelAPI(ctx context.Context, cfg config.HotelAPIConfig, client *redis.Client, m *metrics.Metrics, logger *slog.Logger) (*adapter.HotelAPIAdapter, error) {
	credentials := adapter.NewRedisCredentialStore(client, logger)
	if cfg.Token != "" {
		if err := credentials.Seed(ctx, cfg.Token, 0); err != nil {
			return nil, fmt.Errorf("failed to seed hotel API credential: %w", err)
		}
	}

	return adapter.NewHotelAPIAdapter(HotelAPIConfig(cfg), credentials, m, logger), nil
}

// UseCaseSettings maps the session section onto use case settings and a clock in the
// property's timezone.
func UseCaseSettings(cfg config.SessionConfig) (usecase.Settings, usecase.Clock, error) {
	location, err := cfg.Location()
	if err != nil {
		return usecase.Settings{}, nil, fmt.Errorf("invalid session timezone: %w", err)
	}

	settings := usecase.Settings{
		SessionTTL:           cfg.TTL,
		LockTTL:              cfg.LockTTL,
		OperationTimeout:     cfg.OperationTimeout,
		AvailabilityCacheTTL: cfg.AvailabilityCacheTTL,
		Policy:               availability.Policy{MinimumStayNights: cfg.MinimumStayNights},
	}
	return settings, usecase.SystemClock(location), nil
}

// PingDatabase reports whether the ledger database answers.
func PingDatabase(db *gorm.DB) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}

// ShutdownTimeout bounds graceful shutdown of servers and schedulers.
const ShutdownTimeout = 30 * time.Second
