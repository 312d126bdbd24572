package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "LOG_JSON", "ENVIRONMENT", "TRIGGER_SECRET", "SERVER_WRITE_TIMEOUT",
		"SQUARE_ACCESS_TOKEN", "SQUARE_API_VERSION", "SQUARE_BASE_URL", "SQUARE_LOCATION_NAMES",
		"RESTOCK_LOCATION", "AIRTABLE_API_KEY", "AIRTABLE_BASE_ID", "AIRTABLE_BASE_URL",
		"ITEM_TABLE_NAME", "PO_TABLE_NAME", "AIRTABLE_BATCH_SIZE", "GCS_BUCKET_NAME",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.Square.BaseURL != SquareProductionURL {
		t.Errorf("Square.BaseURL = %q, want %q", cfg.Square.BaseURL, SquareProductionURL)
	}
	if cfg.Square.Version != DefaultSquareVersion {
		t.Errorf("Square.Version = %q, want %q", cfg.Square.Version, DefaultSquareVersion)
	}
	if diff := cmp.Diff([]string{"Provo", "American Fork"}, cfg.Square.LocationNames); diff != "" {
		t.Errorf("LocationNames mismatch (-want +got):\n%s", diff)
	}
	if cfg.Square.RestockLocation != "Provo" {
		t.Errorf("RestockLocation = %q, want Provo", cfg.Square.RestockLocation)
	}
	if cfg.Airtable.ItemsTable != "Items" || cfg.Airtable.POTable != "PO" {
		t.Errorf("tables = %q/%q, want Items/PO", cfg.Airtable.ItemsTable, cfg.Airtable.POTable)
	}
	if cfg.Airtable.BatchSize != MaxAirtableBatch {
		t.Errorf("BatchSize = %d, want %d", cfg.Airtable.BatchSize, MaxAirtableBatch)
	}
	if cfg.WriteTimeout != 10*time.Minute {
		t.Errorf("WriteTimeout = %s, want 10m", cfg.WriteTimeout)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "test")
	t.Setenv("SQUARE_LOCATION_NAMES", " Provo , ,Orem,Provo")
	t.Setenv("AIRTABLE_BATCH_SIZE", "5")
	t.Setenv("TRIGGER_SECRET", "s3cret")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Square.BaseURL != SquareSandboxURL {
		t.Errorf("Square.BaseURL = %q, want sandbox", cfg.Square.BaseURL)
	}
	if diff := cmp.Diff([]string{"Provo", "Orem"}, cfg.Square.LocationNames); diff != "" {
		t.Errorf("LocationNames mismatch (-want +got):\n%s", diff)
	}
	if cfg.Airtable.BatchSize != 5 {
		t.Errorf("BatchSize = %d, want 5", cfg.Airtable.BatchSize)
	}
	if cfg.TriggerSecret != "s3cret" {
		t.Errorf("TriggerSecret = %q", cfg.TriggerSecret)
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PO_TABLE_NAME", "Orders")

	path := filepath.Join(t.TempDir(), ".env.test")
	content := "GCS_BUCKET_NAME=po-bucket\nPO_TABLE_NAME=Ignored\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("GCS_BUCKET_NAME") })

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GCS.Bucket != "po-bucket" {
		t.Errorf("Bucket = %q, want po-bucket", cfg.GCS.Bucket)
	}
	if cfg.Airtable.POTable != "Orders" {
		t.Errorf("POTable = %q, want process value Orders", cfg.Airtable.POTable)
	}
}

func TestLoad_MissingEnvFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected error for missing env file")
	}
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("AIRTABLE_BATCH_SIZE", "25")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "AIRTABLE_BATCH_SIZE") {
		t.Errorf("expected batch size error, got %v", err)
	}
}

func TestValidateItems(t *testing.T) {
	cfg := &Config{
		Port:     "8080",
		Square:   SquareConfig{LocationNames: []string{"Provo"}},
		Airtable: AirtableConfig{ItemsTable: "Items", BatchSize: 10},
	}

	err := cfg.ValidateItems()
	if err == nil {
		t.Fatal("expected error for missing credentials")
	}
	for _, want := range []string{"SQUARE_ACCESS_TOKEN", "AIRTABLE_API_KEY", "AIRTABLE_BASE_ID"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err.Error(), want)
		}
	}

	cfg.Square.AccessToken = "tok"
	cfg.Airtable.APIKey = "key"
	cfg.Airtable.BaseID = "app123"
	if err := cfg.ValidateItems(); err != nil {
		t.Errorf("ValidateItems() error = %v", err)
	}
}

func TestValidatePO(t *testing.T) {
	cfg := &Config{
		Airtable: AirtableConfig{APIKey: "key", BaseID: "app123", POTable: "PO"},
	}

	err := cfg.ValidatePO()
	if err == nil || !strings.Contains(err.Error(), "GCS_BUCKET_NAME") {
		t.Fatalf("expected bucket error, got %v", err)
	}

	cfg.GCS.Bucket = "po-bucket"
	if err := cfg.ValidatePO(); err != nil {
		t.Errorf("ValidatePO() error = %v", err)
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Provo,American Fork", []string{"Provo", "American Fork"}},
		{"  a , b ,, c ", []string{"a", "b", "c"}},
		{"a,a", []string{"a"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, SplitList(tt.in)); diff != "" {
				t.Errorf("SplitList(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
