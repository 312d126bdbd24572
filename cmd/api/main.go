package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/inventory-refresher/internal/airtable"
	"github.com/dvloznov/inventory-refresher/internal/api"
	"github.com/dvloznov/inventory-refresher/internal/api/handlers"
	"github.com/dvloznov/inventory-refresher/internal/config"
	"github.com/dvloznov/inventory-refresher/internal/gcs"
	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/metrics"
	"github.com/dvloznov/inventory-refresher/internal/refresher"
	"github.com/dvloznov/inventory-refresher/internal/runs/inmemory"
	"github.com/dvloznov/inventory-refresher/internal/square"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

func main() {
	// Parse command-line flags
	var (
		envFile   = flag.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")
		retention = flag.Int("run-retention", inmemory.DefaultRetention, "Number of finished runs kept for /runs")
	)
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	ctx := context.Background()

	runStore := inmemory.NewStore(*retention)
	m := metrics.New()
	opts := []refresher.Option{refresher.WithRuns(runStore), refresher.WithMetrics(m)}

	var items handlers.ItemsRunner
	var po handlers.PORunner

	var syncer *tablesync.Syncer
	if cfg.ValidateItems() == nil || cfg.ValidatePO() == nil {
		at, err := airtable.NewClient(airtable.Config{
			APIKey:  cfg.Airtable.APIKey,
			BaseID:  cfg.Airtable.BaseID,
			BaseURL: cfg.Airtable.BaseURL,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Airtable client")
		}
		syncer = tablesync.NewSyncer(at)
	}

	if err := cfg.ValidateItems(); err != nil {
		log.Warn().Err(err).Msg("Items pipeline disabled")
	} else {
		sq, err := square.NewClient(square.Config{
			AccessToken: cfg.Square.AccessToken,
			BaseURL:     cfg.Square.BaseURL,
			Version:     cfg.Square.Version,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Square client")
		}
		items = refresher.NewItemRefresher(sq, syncer, refresher.ItemConfig{
			Table:           cfg.Airtable.ItemsTable,
			LocationNames:   cfg.Square.LocationNames,
			RestockLocation: cfg.Square.RestockLocation,
			BatchSize:       cfg.Airtable.BatchSize,
		}, opts...)
	}

	if err := cfg.ValidatePO(); err != nil {
		log.Warn().Err(err).Msg("PO pipeline disabled")
	} else {
		bucket, err := gcs.NewBucketSource(ctx, cfg.GCS.Bucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS client")
		}
		defer bucket.Close()

		po = refresher.NewPORefresher(bucket, syncer, refresher.POConfig{
			Table:     cfg.Airtable.POTable,
			BatchSize: cfg.Airtable.BatchSize,
		}, opts...)
	}

	if cfg.TriggerSecret == "" {
		log.Warn().Msg("TRIGGER_SECRET not set - refresh endpoints are open")
	}

	handler := api.NewRouter(api.Deps{
		Items:         items,
		PO:            po,
		Runs:          runStore,
		Metrics:       m,
		TriggerSecret: cfg.TriggerSecret,
		Logger:        log,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("environment", cfg.Environment).
			Bool("items_enabled", items != nil).
			Bool("po_enabled", po != nil).
			Msg("Starting refresher server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown lets in-flight refreshes finish their inserts
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.WriteTimeout+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
