package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/config"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/extract"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/lock"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/logger"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/pipeline"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/repository"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/service"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/staging"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/transform"
	"github.com/far-sae/Automated-ETL-Pipeline-for-Financial-Analytics/internal/warehouse"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "financial-etl",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	sourceName := flag.String("source", "csv_file", "Data source to extract from")
	target := flag.String("table", "", "Warehouse target table")
	policy := flag.String("policy", "append", "Write policy: append, upsert, truncate_and_load")
	conflictCols := flag.String("conflict-columns", "", "Comma-separated key columns for upsert")
	transformerName := flag.String("transformer", "", "Transformer to apply: stock_price, financial_ratio")
	filePath := flag.String("file", "", "Input file path for the csv_file source")
	symbols := flag.String("symbols", "", "Comma-separated symbols for the market_data_api source")
	query := flag.String("query", "", "SQL text for the sql_database source")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *target == "" {
		appLogger.Fatal("Missing required flag: -table")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	appLogger.WithFields(logger.Fields{
		"source": *sourceName,
		"table":  *target,
		"policy": *policy,
	}).Info("Starting pipeline run")

	// Initialize warehouse database
	db, err := repository.InitDB(&cfg.Warehouse)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize warehouse")
	}

	// Initialize the distributed lock store
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the staging store when configured
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

	// Initialize the pipeline service with every source
	svc := service.NewPipelineService(db, loader, stagingStore, appLogger)
	svc.RegisterExtractor(extract.NewCSVExtractor())
	svc.RegisterExtractor(extract.NewMarketDataExtractor(&cfg.Sources.MarketData))
	svc.RegisterExtractor(extract.NewSQLExtractor(db, "warehouse_query"))
	svc.RegisterExtractor(extract.NewTradeStreamExtractor(&cfg.Sources.Kafka))

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	params := pipeline.Params{}
	if *filePath != "" {
		params["path"] = *filePath
	}
	if *symbols != "" {
		params["symbols"] = strings.Split(*symbols, ",")
	}
	if *query != "" {
		params["query"] = *query
	}

	var transformer transform.Transformer
	switch *transformerName {
	case "":
	case "stock_price":
		transformer = transform.NewStockPriceTransformer()
	case "financial_ratio":
		transformer = transform.NewFinancialRatioTransformer()
	default:
		appLogger.WithField("transformer", *transformerName).Fatal("Unknown transformer")
	}

	var conflictColumns []string
	if *conflictCols != "" {
		conflictColumns = strings.Split(*conflictCols, ",")
	}

	result, err := svc.Run(ctx, service.RunRequest{
		Source:          *sourceName,
		Target:          *target,
		Policy:          warehouse.Policy(*policy),
		Params:          params,
		Transformer:     transformer,
		ConflictColumns: conflictColumns,
	})
	if err != nil {
		appLogger.WithError(err).WithField("run_id", result.RunID).Fatal("Pipeline run failed")
	}

	appLogger.WithFields(logger.Fields{
		"run_id":            result.RunID,
		"records_extracted": result.RecordsExtracted,
		"records_loaded":    result.RecordsLoaded,
		"duration_ms":       result.Duration.Milliseconds(),
	}).Info("Pipeline run completed")
}
