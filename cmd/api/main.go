package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/api"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/config"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/extract"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/lock"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/service"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/staging"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "financial-etl-api",
	})
	logger.SetDefaultLogger(appLogger)

	// Support CONFIG_PATH environment variable for production deployments
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Warehouse)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize warehouse")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	lockStore := lock.NewRedisStore(redisClient)
	lockOpts := &lock.Options{
		Lease:         cfg.ETL.LockLease,
		RetryInterval: cfg.ETL.LockRetryInterval,
	}

	loader := warehouse.NewLoader(db, lockStore, lockOpts, cfg.ETL.BatchSize)

	ctx := context.Background()
	var stagingStore *staging.Store
	if cfg.Staging.Bucket != "" {
		objectStorage, err := staging.NewS3Storage(&cfg.Staging)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize staging storage")
		}
		if err := objectStorage.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure staging bucket")
		}
		stagingStore = staging.NewStore(objectStorage, cfg.Staging.Prefix)
	}

	svc := service.NewPipelineService(db, loader, stagingStore, appLogger)
	svc.RegisterExtractor(extract.NewCSVExtractor())
	svc.RegisterExtractor(extract.NewMarketDataExtractor(&cfg.Sources.MarketData))
	svc.RegisterExtractor(extract.NewSQLExtractor(db, "warehouse_query"))
	svc.RegisterExtractor(extract.NewTradeStreamExtractor(&cfg.Sources.Kafka))

	router := api.SetupRouter(
		db,
		svc,
		repository.NewRunLogRepository(db),
		repository.NewQualityLogRepository(db),
		appLogger,
		cfg.Server.Mode,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithField("addr", srv.Addr).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Forced shutdown")
	}
	appLogger.Info("Server stopped")
}
