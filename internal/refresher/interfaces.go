// Package refresher runs the items and purchase-order pipelines end to end:
// read the source, project rows to records and replace the destination table.
package refresher

import (
	"context"

	"github.com/dvloznov/inventory-refresher/internal/gcs"
	"github.com/dvloznov/inventory-refresher/internal/record"
	"github.com/dvloznov/inventory-refresher/internal/square"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

// Pipeline names used in run records, metrics and logs.
const (
	PipelineItems = "items"
	PipelinePO    = "po"
)

// CatalogSource reads the Square catalog. *square.Client satisfies it.
type CatalogSource interface {
	// ListCatalogObjects returns all items, variations and categories.
	ListCatalogObjects(ctx context.Context) ([]square.CatalogObject, error)

	// ResolveLocations maps configured location names to location ids.
	ResolveLocations(ctx context.Context, names []string) (map[string]string, error)

	// FetchInventory returns in-stock quantities per variation and location.
	FetchInventory(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error)
}

// FileSource downloads CSV files. *gcs.BucketSource satisfies it.
type FileSource interface {
	GetAllCSVFiles(ctx context.Context) ([]gcs.CSVFile, error)
}

// TableWriter replaces a destination table. *tablesync.Syncer satisfies it.
type TableWriter interface {
	Refresh(ctx context.Context, table string, records []record.Fields, opts tablesync.Options) (tablesync.Result, error)
}
