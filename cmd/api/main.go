package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/oklog/run"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/adapter"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/bootstrap"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/config"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/handler"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/metrics"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/tracing"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/logger"

	_ "github.com/victoragudo/hotel-management-system/booking-service/docs"
)

// @title Hotel Booking Session Service API
// @version 1.0
// @description Server-side booking sessions: availability search, booking flow and checkout against the hotel API
// @host localhost:8080
// @BasePath /
// @schemes http https

type Application struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client
	cache  *adapter.RedisCacheAdapter
	logger *slog.Logger
	server *http.Server

	closePublisher func()
	shutdownTracer func(context.Context) error
}

func main() {
	applicationLogger := logger.SetupLogger("info")

	cfg, err := config.LoadConfig()
	if err != nil {
		applicationLogger.Error(fmt.Sprintf("Failed to load configuration: %s", err.Error()))
		os.Exit(1)
	}
	applicationLogger = logger.SetupLogger(cfg.Logging.Level)

	app, err := NewApplication(cfg, applicationLogger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Start(); err != nil {
		log.Fatalf("Booking service stopped with error: %v", err)
	}
}

func NewApplication(cfg *config.Config, applicationLogger *slog.Logger) (*Application, error) {
	ctx := context.Background()

	shutdownTracer, err := tracing.Setup(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "booking-service",
		PrettyPrint: cfg.Tracing.PrettyPrint,
	})
	if err != nil {
		return nil, err
	}

	db, err := bootstrap.InitDatabase(cfg.Database, applicationLogger)
	if err != nil {
		return nil, err
	}

	redisClient := bootstrap.InitRedis(cfg.Redis, applicationLogger)
	appMetrics := metrics.New()

	publisher, closePublisher, err := bootstrap.NewPublisher(cfg.RabbitMQ, appMetrics, applicationLogger)
	if err != nil {
		return nil, err
	}

	hotelAPI, err := bootstrap.NewHotelAPI(ctx, cfg.HotelAPI, redisClient, appMetrics, applicationLogger)
	if err != nil {
		return nil, err
	}

	settings, clock, err := bootstrap.UseCaseSettings(cfg.Session)
	if err != nil {
		return nil, err
	}

	sessions := adapter.NewRedisSessionStore(redisClient, applicationLogger)
	locks := adapter.NewRedisLockAdapter(redisClient)
	cache := adapter.NewRedisCacheAdapterWithClient(redisClient, applicationLogger)
	ledger := adapter.NewGormLedgerRepository(db)

	bookingHandler := handler.NewBookingHandler(
		usecase.NewManageSessionUseCase(sessions, locks, settings, clock, applicationLogger),
		usecase.NewCheckAvailabilityUseCase(sessions, locks, hotelAPI, cache, settings, clock, applicationLogger),
		usecase.NewSubmitBookingUseCase(sessions, locks, hotelAPI, cache, ledger, publisher, settings, clock, applicationLogger),
		usecase.NewCancelReservationUseCase(sessions, locks, hotelAPI, ledger, publisher, settings, clock, applicationLogger),
		usecase.NewProcessPaymentUseCase(sessions, locks, hotelAPI, ledger, publisher, settings, clock, applicationLogger),
		usecase.NewGetPaymentStatusUseCase(sessions, locks, hotelAPI, ledger, publisher, settings, clock, applicationLogger),
		applicationLogger,
	)
	bookingHandler.AddHealthCheck("redis", cache.Ping)
	bookingHandler.AddHealthCheck("postgres", bootstrap.PingDatabase(db))

	router := handler.NewRouter(bookingHandler, appMetrics, handler.RouterConfig{
		EnableCORS:     cfg.Server.EnableCORS,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		TrustedProxies: cfg.Server.TrustedProxies,
		SwaggerURL:     cfg.Server.SwaggerURL,
	}, applicationLogger)
	handler.PrintRoutes(router, applicationLogger)

	return &Application{
		config: cfg,
		db:     db,
		redis:  redisClient,
		cache:  cache,
		logger: applicationLogger,
		server: &http.Server{
			Addr:         cfg.Server.Address(),
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		},
		closePublisher: closePublisher,
		shutdownTracer: shutdownTracer,
	}, nil
}

// Start serves HTTP until a signal arrives or the server fails, then releases every
// connection.
func (app *Application) Start() error {
	app.logger.Info("Starting booking service",
		"version", "1.0.0",
		"address", app.config.Server.Address())

	if err := app.performHealthChecks(context.Background()); err != nil {
		app.logger.Error("Health checks failed", "error", err)
		return err
	}

	g := &run.Group{}
	g.Add(func() error {
		figure.NewFigure("BOOKING", "", true).Print()
		fmt.Println("")
		fmt.Println("Booking service started at " + app.config.Server.Address())
		fmt.Println("")
		if err := app.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}, func(error) {
		app.logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			app.logger.Error("Server forced to shutdown", "error", err)
		}
	})
	g.Add(run.SignalHandler(context.Background(), syscall.SIGINT, syscall.SIGTERM))

	err := g.Run()

	var signalErr run.SignalError
	if errors.As(err, &signalErr) {
		app.logger.Info("Received signal", "signal", signalErr.Signal.String())
		err = nil
	}

	app.close()
	return err
}

func (app *Application) performHealthChecks(ctx context.Context) error {
	app.logger.Info("Performing health checks")

	if err := bootstrap.PingDatabase(app.db)(ctx); err != nil {
		return err
	}

	if err := app.cache.Ping(ctx); err != nil {
		return fmt.Errorf("redis is unreachable: %w", err)
	}

	return nil
}

func (app *Application) close() {
	app.closePublisher()

	ctx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	if err := app.shutdownTracer(ctx); err != nil {
		app.logger.Error("Error flushing traces", "error", err)
	}

	bootstrap.CloseDatabase(app.db, app.logger)

	if err := app.redis.Close(); err != nil {
		app.logger.Error("Error closing Redis", "error", err)
	}

	app.logger.Info("Server stopped gracefully")
}
