package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"biometric/adapters/aggregation"
	"biometric/app"
	"biometric/internal/config"
	"biometric/internal/logging"
	"biometric/ui"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(appConfig.Logging)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	client := aggregation.NewClient(appConfig.Aggregation, aggregation.WithLogger(logger))
	registry := app.NewRegistry(client, app.NewExportService(logger), appConfig.Debounce, logger)

	server, err := ui.NewServer(registry, appConfig.Server, logger)
	if err != nil {
		log.Fatalf("Failed to initialize UI: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting biometric",
		zap.String("port", appConfig.Server.Port),
		zap.String("aggregation", appConfig.Aggregation.BaseURL))
	if err := server.Run(ctx, ":"+appConfig.Server.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
