package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chemstatilizer/chemstat-backend/internal/blob"
	"github.com/chemstatilizer/chemstat-backend/internal/config"
	"github.com/chemstatilizer/chemstat-backend/internal/db"
	"github.com/chemstatilizer/chemstat-backend/internal/handlers"
	"github.com/chemstatilizer/chemstat-backend/internal/logger"
	"github.com/chemstatilizer/chemstat-backend/internal/middleware"
	"github.com/chemstatilizer/chemstat-backend/internal/observability"
	"github.com/chemstatilizer/chemstat-backend/internal/report"
	"github.com/chemstatilizer/chemstat-backend/internal/repos"
	"github.com/chemstatilizer/chemstat-backend/internal/server"
	"github.com/chemstatilizer/chemstat-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal("Failed to load config", "error", err)
	}

	// Tracing
	shutdownOtel := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "chemstat-backend",
		Environment: logMode,
	})
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOtel(ctx); err != nil {
			log.Warn("otel shutdown failed", "error", err)
		}
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log, cfg.Postgres)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Blob storage
	store, err := blob.NewStore(log, cfg.Storage)
	if err != nil {
		log.Fatal("Object storage init failed", "error", err)
	}

	// Repos
	datasetRepo := repos.NewDatasetRepo(thePG, log)

	// Services
	datasetService := services.NewDatasetService(thePG, log, datasetRepo, store, cfg.RetentionLimit)
	renderer := report.NewRenderer(log, cfg.ReportFontPath)
	reportService := services.NewReportService(log, datasetRepo, store, renderer)

	// Handlers
	datasetHandler := handlers.NewDatasetHandler(log, datasetService, reportService, store, cfg.MaxUploadBytes, cfg.RetentionLimit)

	// Router
	router := server.NewRouter(server.RouterConfig{
		DatasetHandler: datasetHandler,
		RequestLogger:  middleware.NewRequestLogger(log),
		CORSOrigins:    cfg.CORSOrigins,
	})

	addr := ":" + cfg.Port
	log.Info("Starting HTTP server", "addr", addr)
	if err := router.Run(addr); err != nil {
		log.Fatal("HTTP server exited", "error", err)
	}
}
