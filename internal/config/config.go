// Package config loads the refresher configuration from the environment.
//
// Configuration is read once at process start and passed into constructors;
// business logic never reads environment variables directly.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// SquareProductionURL is the Square API base URL for live sellers.
	SquareProductionURL = "https://connect.squareup.com/v2"
	// SquareSandboxURL is used when ENVIRONMENT is test or sandbox.
	SquareSandboxURL = "https://connect.squareupsandbox.com/v2"
	// DefaultSquareVersion pins the Square-Version header.
	DefaultSquareVersion = "2026-01-22"
	// DefaultAirtableURL is the Airtable REST base URL.
	DefaultAirtableURL = "https://api.airtable.com/v0"
	// MaxAirtableBatch is the most records Airtable accepts per write request.
	MaxAirtableBatch = 10
)

// Config holds all refresher settings.
type Config struct {
	Port          string
	LogLevel      string
	LogJSON       bool
	Environment   string
	TriggerSecret string
	WriteTimeout  time.Duration

	Square   SquareConfig
	Airtable AirtableConfig
	GCS      GCSConfig
}

// SquareConfig configures the catalog source.
type SquareConfig struct {
	AccessToken   string
	Version       string
	BaseURL       string
	LocationNames []string
	// RestockLocation names the location whose quantity drives the restock
	// cost column. Empty disables the column.
	RestockLocation string
}

// AirtableConfig configures the destination table store.
type AirtableConfig struct {
	APIKey     string
	BaseID     string
	BaseURL    string
	ItemsTable string
	POTable    string
	BatchSize  int
}

// GCSConfig configures the purchase-order bucket.
type GCSConfig struct {
	Bucket string
}

// Load reads configuration from the environment. When envFile is non-empty
// its variables are loaded first; variables already set in the process win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("config: load .env: %w", err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:          v.GetString("PORT"),
		LogLevel:      v.GetString("LOG_LEVEL"),
		LogJSON:       v.GetBool("LOG_JSON"),
		Environment:   strings.ToLower(v.GetString("ENVIRONMENT")),
		TriggerSecret: v.GetString("TRIGGER_SECRET"),
		WriteTimeout:  v.GetDuration("SERVER_WRITE_TIMEOUT"),
		Square: SquareConfig{
			AccessToken:     v.GetString("SQUARE_ACCESS_TOKEN"),
			Version:         v.GetString("SQUARE_API_VERSION"),
			BaseURL:         v.GetString("SQUARE_BASE_URL"),
			LocationNames:   SplitList(v.GetString("SQUARE_LOCATION_NAMES")),
			RestockLocation: strings.TrimSpace(v.GetString("RESTOCK_LOCATION")),
		},
		Airtable: AirtableConfig{
			APIKey:     v.GetString("AIRTABLE_API_KEY"),
			BaseID:     v.GetString("AIRTABLE_BASE_ID"),
			BaseURL:    v.GetString("AIRTABLE_BASE_URL"),
			ItemsTable: v.GetString("ITEM_TABLE_NAME"),
			POTable:    v.GetString("PO_TABLE_NAME"),
			BatchSize:  v.GetInt("AIRTABLE_BATCH_SIZE"),
		},
		GCS: GCSConfig{
			Bucket: v.GetString("GCS_BUCKET_NAME"),
		},
	}

	if cfg.Square.BaseURL == "" {
		cfg.Square.BaseURL = SquareBaseURL(cfg.Environment)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("ENVIRONMENT", "production")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "10m")
	v.SetDefault("SQUARE_API_VERSION", DefaultSquareVersion)
	v.SetDefault("SQUARE_LOCATION_NAMES", "Provo,American Fork")
	v.SetDefault("RESTOCK_LOCATION", "Provo")
	v.SetDefault("AIRTABLE_BASE_URL", DefaultAirtableURL)
	v.SetDefault("ITEM_TABLE_NAME", "Items")
	v.SetDefault("PO_TABLE_NAME", "PO")
	v.SetDefault("AIRTABLE_BATCH_SIZE", MaxAirtableBatch)
}

// SquareBaseURL picks the Square host for an environment name.
func SquareBaseURL(environment string) string {
	switch strings.ToLower(environment) {
	case "test", "sandbox":
		return SquareSandboxURL
	default:
		return SquareProductionURL
	}
}

// SplitList splits a comma-separated list, trimming entries and dropping
// empty and repeated ones.
func SplitList(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// Validate checks settings shared by every pipeline.
func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if c.Airtable.BatchSize < 1 || c.Airtable.BatchSize > MaxAirtableBatch {
		errs = append(errs, fmt.Errorf("AIRTABLE_BATCH_SIZE must be between 1 and %d, got %d", MaxAirtableBatch, c.Airtable.BatchSize))
	}
	if c.WriteTimeout < 0 {
		errs = append(errs, errors.New("SERVER_WRITE_TIMEOUT must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// ValidateItems checks the settings the catalog items pipeline needs.
func (c *Config) ValidateItems() error {
	var errs []error
	if c.Square.AccessToken == "" {
		errs = append(errs, errors.New("SQUARE_ACCESS_TOKEN is required"))
	}
	if len(c.Square.LocationNames) == 0 {
		errs = append(errs, errors.New("SQUARE_LOCATION_NAMES must list at least one location"))
	}
	if c.Airtable.ItemsTable == "" {
		errs = append(errs, errors.New("ITEM_TABLE_NAME must not be empty"))
	}
	errs = append(errs, c.airtableErrors()...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: items pipeline: %w", err)
	}
	return nil
}

// ValidatePO checks the settings the purchase-order pipeline needs.
func (c *Config) ValidatePO() error {
	var errs []error
	if c.GCS.Bucket == "" {
		errs = append(errs, errors.New("GCS_BUCKET_NAME is required"))
	}
	if c.Airtable.POTable == "" {
		errs = append(errs, errors.New("PO_TABLE_NAME must not be empty"))
	}
	errs = append(errs, c.airtableErrors()...)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: po pipeline: %w", err)
	}
	return nil
}

func (c *Config) airtableErrors() []error {
	var errs []error
	if c.Airtable.APIKey == "" {
		errs = append(errs, errors.New("AIRTABLE_API_KEY is required"))
	}
	if c.Airtable.BaseID == "" {
		errs = append(errs, errors.New("AIRTABLE_BASE_ID is required"))
	}
	return errs
}
