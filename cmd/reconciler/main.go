package main

import (
	"os"

	"github.com/victoragudo/hotel-management-system/booking-service/internal/infrastructure/config"
	"github.com/victoragudo/hotel-management-system/booking-service/pkg/logger"
)

func main() {
	applicationLogger := logger.SetupLogger("info")

	cfg, err := config.LoadConfig()
	if err != nil {
		applicationLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	applicationLogger = logger.SetupLogger(cfg.Logging.Level)

	reconciler, err := NewReconciler(cfg, applicationLogger)
	if err != nil {
		applicationLogger.Error("Failed to create payment reconciler", "error", err)
		os.Exit(1)
	}

	reconciler.Start()
}
