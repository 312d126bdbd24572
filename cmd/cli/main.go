package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/inventory-refresher/internal/airtable"
	"github.com/dvloznov/inventory-refresher/internal/catalog"
	"github.com/dvloznov/inventory-refresher/internal/config"
	"github.com/dvloznov/inventory-refresher/internal/gcs"
	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/refresher"
	"github.com/dvloznov/inventory-refresher/internal/square"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "items":
		runItems()
	case "po":
		runPO()
	case "schema":
		runSchema()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Inventory Refresher CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  items     Replace the Airtable items table with the Square catalog")
	fmt.Println("  po        Replace the Airtable PO table with the bucket's CSV rows")
	fmt.Println("  schema    Print the items table columns for the configured locations")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// commonFlags are shared by the refresh commands.
type commonFlags struct {
	envFile *string
	dryRun  *bool
	timeout *time.Duration
}

func registerCommon(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		envFile: fs.String("env-file", "", "Path to a .env file (defaults to ./.env when present)"),
		dryRun:  fs.Bool("dry-run", false, "Dry run mode - fetch and count without writing to Airtable"),
		timeout: fs.Duration("timeout", 10*time.Minute, "Overall time limit for the refresh"),
	}
}

func setup(flags commonFlags) (*config.Config, zerolog.Logger, context.Context, context.CancelFunc) {
	cfg, err := config.Load(*flags.envFile)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), *flags.timeout)
	ctx = logger.WithContext(ctx, log)
	return cfg, log, ctx, cancel
}

func newSyncer(cfg *config.Config, log zerolog.Logger) *tablesync.Syncer {
	at, err := airtable.NewClient(airtable.Config{
		APIKey:  cfg.Airtable.APIKey,
		BaseID:  cfg.Airtable.BaseID,
		BaseURL: cfg.Airtable.BaseURL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Airtable client")
	}
	return tablesync.NewSyncer(at)
}

func runItems() {
	fs := flag.NewFlagSet("items", flag.ExitOnError)
	flags := registerCommon(fs)
	fs.Parse(os.Args[2:])

	cfg, log, ctx, cancel := setup(flags)
	defer cancel()

	if err := cfg.ValidateItems(); err != nil {
		log.Fatal().Err(err).Msg("Error: items pipeline is not configured")
	}

	sq, err := square.NewClient(square.Config{
		AccessToken: cfg.Square.AccessToken,
		BaseURL:     cfg.Square.BaseURL,
		Version:     cfg.Square.Version,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Square client")
	}

	r := refresher.NewItemRefresher(sq, newSyncer(cfg, log), refresher.ItemConfig{
		Table:           cfg.Airtable.ItemsTable,
		LocationNames:   cfg.Square.LocationNames,
		RestockLocation: cfg.Square.RestockLocation,
		BatchSize:       cfg.Airtable.BatchSize,
		DryRun:          *flags.dryRun,
	})

	summary, err := r.Refresh(ctx)
	if err != nil {
		reportPartial(log, err)
		log.Fatal().Err(err).Msg("Item refresh failed")
	}

	if summary.InventoryWarning != "" {
		fmt.Printf("Warning: %s\n", summary.InventoryWarning)
	}
	if summary.DryRun {
		fmt.Printf("[DRY RUN] Would delete %d and create %d records in %s.\n",
			summary.RecordsDeleted, summary.RecordsCreated, cfg.Airtable.ItemsTable)
		return
	}
	fmt.Printf("Item refresh completed: deleted %d, created %d.\n", summary.RecordsDeleted, summary.RecordsCreated)
}

func runPO() {
	fs := flag.NewFlagSet("po", flag.ExitOnError)
	flags := registerCommon(fs)
	fs.Parse(os.Args[2:])

	cfg, log, ctx, cancel := setup(flags)
	defer cancel()

	if err := cfg.ValidatePO(); err != nil {
		log.Fatal().Err(err).Msg("Error: PO pipeline is not configured")
	}

	bucket, err := gcs.NewBucketSource(ctx, cfg.GCS.Bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create GCS client")
	}
	defer bucket.Close()

	r := refresher.NewPORefresher(bucket, newSyncer(cfg, log), refresher.POConfig{
		Table:     cfg.Airtable.POTable,
		BatchSize: cfg.Airtable.BatchSize,
		DryRun:    *flags.dryRun,
	})

	summary, err := r.Refresh(ctx)
	if err != nil {
		reportPartial(log, err)
		log.Fatal().Err(err).Msg("PO refresh failed")
	}

	if summary.FilesProcessed == 0 {
		fmt.Println("No CSV files found; table left unchanged.")
		return
	}
	if summary.DryRun {
		fmt.Printf("[DRY RUN] Would delete %d and create %d records from %d files in %s.\n",
			summary.RecordsDeleted, summary.RecordsCreated, summary.FilesProcessed, cfg.Airtable.POTable)
		return
	}
	fmt.Printf("PO refresh completed: %d files, deleted %d, created %d.\n",
		summary.FilesProcessed, summary.RecordsDeleted, summary.RecordsCreated)
}

func runSchema() {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	envFile := fs.String("env-file", "", "Path to a .env file (defaults to ./.env when present)")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*envFile)
	if err != nil {
		log := logger.New()
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	schema := catalog.ItemSchema(cfg.Square.LocationNames, cfg.Square.RestockLocation)
	fmt.Printf("Columns for %s (locations: %s):\n", cfg.Airtable.ItemsTable, strings.Join(cfg.Square.LocationNames, ", "))
	for _, name := range schema.Names() {
		fmt.Printf("  %-32s %s\n", name, schema[name])
	}
}

// reportPartial logs how far a failed write got before it stopped.
func reportPartial(log zerolog.Logger, err error) {
	if pw, ok := tablesync.IsPartialWrite(err); ok {
		log.Error().
			Str("table", pw.Table).
			Int("committed", pw.Committed).
			Int("total", pw.Total).
			Int("batch", pw.Batch).
			Msg("Table left partially written")
	}
	var apiErr *square.APIError
	if errors.As(err, &apiErr) && apiErr.HasCode("UNAUTHORIZED") {
		log.Error().Msg("Square rejected the access token; check SQUARE_ACCESS_TOKEN")
	}
}
