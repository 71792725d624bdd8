package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/jasonlvhit/gocron"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/application/usecase"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/adapter"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/bootstrap"
	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/config"
)

// Reconciler periodically asks the hotel API for the status of payments the ledger
// still holds as pending.
type Reconciler struct {
	config    config.ReconcilerConfig
	useCase   *usecase.ReconcilePaymentsUseCase
	scheduler *gocron.Scheduler
	db        *gorm.DB
	redis     *redis.Client
	closeMQ   func()
	running   sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *slog.Logger
}

func NewReconciler(cfg *config.Config, logger *slog.Logger) (*Reconciler, error) {
	ctx, cancel := context.WithCancel(context.Background())

	db, err := bootstrap.InitDatabase(cfg.Database, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	redisClient := bootstrap.InitRedis(cfg.Redis, logger)

	cleanup := func() {
		cancel()
		bootstrap.CloseDatabase(db, logger)
		_ = redisClient.Close()
	}

	publisher, closePublisher, err := bootstrap.NewPublisher(cfg.RabbitMQ, nil, logger)
	if err != nil {
		cleanup()
		return nil, err
	}

	hotelAPI, err := bootstrap.NewHotelAPI(ctx, cfg.HotelAPI, redisClient, nil, logger)
	if err != nil {
		closePublisher()
		cleanup()
		return nil, err
	}

	r := &Reconciler{
		config:    cfg.Reconciler,
		useCase:   usecase.NewReconcilePaymentsUseCase(hotelAPI, adapter.NewGormLedgerRepository(db), publisher, cfg.Reconciler.CallTimeout, logger),
		scheduler: gocron.NewScheduler(),
		db:        db,
		redis:     redisClient,
		closeMQ:   closePublisher,
		ctx:       ctx,
		cancel:    cancel,
		logger:    logger,
	}

	if err := r.setupSchedules(); err != nil {
		r.close()
		return nil, fmt.Errorf("failed to setup schedules: %w", err)
	}

	return r, nil
}

func (r *Reconciler) Start() {
	if r.config.RunOnStart {
		go r.reconcile()
	}

	r.scheduler.Start()
	figure.NewFigure("RECONCILER", "", true).Print()
	r.logger.Info("Payment reconciler started",
		"interval_in_minutes", r.config.IntervalInMinutes,
		"batch_size", r.config.BatchSize)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	r.logger.Info("Shutting down payment reconciler")
	r.scheduler.Clear()
	r.cancel()

	// wait for a running batch to finish
	r.running.Lock()
	defer r.running.Unlock()
	r.close()
}

// reconcile runs one batch. A tick arriving while the previous batch still runs is skipped.
func (r *Reconciler) reconcile() {
	if !r.running.TryLock() {
		r.logger.Warn("Previous reconciliation still running, skipping tick")
		return
	}
	defer r.running.Unlock()

	if r.ctx.Err() != nil {
		return
	}

	result, err := r.useCase.Execute(r.ctx, r.config.BatchSize)
	if err != nil {
		r.logger.Error("Payment reconciliation failed", "error", err)
		return
	}

	if result.Checked > 0 {
		r.logger.Info("Payment reconciliation completed",
			"checked", result.Checked,
			"updated", result.Updated,
			"failed", result.Failed,
			"duration", result.Duration)
	}
}

func (r *Reconciler) setupSchedules() error {
	if err := r.scheduler.Every(r.config.IntervalInMinutes).Minutes().Do(r.reconcile); err != nil {
		r.logger.Error("Failed to setup payment reconciliation schedule", "error", err)
		return err
	}

	r.logger.Info("Schedules configured", "reconcile_payments_interval", r.config.IntervalInMinutes)
	return nil
}

func (r *Reconciler) close() {
	r.cancel()
	r.closeMQ()
	bootstrap.CloseDatabase(r.db, r.logger)
	if err := r.redis.Close(); err != nil {
		r.logger.Error("Error closing Redis", "error", err)
	}
}
