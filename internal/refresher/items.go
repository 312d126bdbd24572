package refresher

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/dvloznov/inventory-refresher/internal/catalog"
	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/record"
	"github.com/dvloznov/inventory-refresher/internal/square"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

// ItemConfig configures the items pipeline.
type ItemConfig struct {
	Table           string
	LocationNames   []string
	RestockLocation string
	BatchSize       int
	DryRun          bool
}

// ItemSummary is the result of an items refresh.
type ItemSummary struct {
	RunID            string `json:"runId,omitempty"`
	RecordsCreated   int    `json:"recordsCreated"`
	RecordsDeleted   int    `json:"recordsDeleted"`
	InventoryWarning string `json:"inventoryWarning,omitempty"`
	DryRun           bool   `json:"dryRun,omitempty"`
}

// ItemRefresher rebuilds the Items table from the Square catalog.
type ItemRefresher struct {
	source CatalogSource
	writer TableWriter
	cfg    ItemConfig
	obs    observers
	group  singleflight.Group
}

// NewItemRefresher creates an ItemRefresher.
func NewItemRefresher(source CatalogSource, writer TableWriter, cfg ItemConfig, opts ...Option) *ItemRefresher {
	return &ItemRefresher{
		source: source,
		writer: writer,
		cfg:    cfg,
		obs:    newObservers(opts),
	}
}

// Refresh replaces the Items table with the current catalog. Calls made
// while a refresh of the same table is running wait for it and share its
// result.
func (r *ItemRefresher) Refresh(ctx context.Context) (ItemSummary, error) {
	v, err, shared := r.group.Do(r.cfg.Table, func() (interface{}, error) {
		return r.run(ctx)
	})
	if shared {
		log := logger.FromContext(ctx)
		log.Info().Str("table", r.cfg.Table).Msg("Joined in-flight items refresh")
	}
	summary, _ := v.(ItemSummary)
	return summary, err
}

func (r *ItemRefresher) run(ctx context.Context) (ItemSummary, error) {
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"pipeline": PipelineItems,
		"table":    r.cfg.Table,
	})
	ctx = logger.WithContext(ctx, log)

	run := r.obs.start(ctx, PipelineItems, r.cfg.Table)
	summary := ItemSummary{RunID: run.id, DryRun: r.cfg.DryRun}

	log.Info().
		Str("run_id", run.id).
		Strs("locations", r.cfg.LocationNames).
		Bool("dry_run", r.cfg.DryRun).
		Msg("Starting items refresh")

	records, warning, err := r.fetch(ctx)
	if err != nil {
		run.finish(ctx, summary, tablesync.Result{}, r.cfg.DryRun, err)
		return summary, err
	}
	summary.InventoryWarning = warning

	res, err := r.writer.Refresh(ctx, r.cfg.Table, records.fields, tablesync.Options{
		Schema:    records.schema,
		BatchSize: r.cfg.BatchSize,
		DryRun:    r.cfg.DryRun,
		OnPhase:   run.onPhase(ctx),
	})
	summary.RecordsCreated = res.Created
	summary.RecordsDeleted = res.Deleted
	if err != nil {
		err = fmt.Errorf("write %s: %w", r.cfg.Table, err)
		run.finish(ctx, summary, res, r.cfg.DryRun, err)
		return summary, err
	}

	run.finish(ctx, summary, res, r.cfg.DryRun, nil)

	log.Info().
		Int("records_created", summary.RecordsCreated).
		Int("records_deleted", summary.RecordsDeleted).
		Msg("Items refresh completed")

	return summary, nil
}

type itemRecords struct {
	fields []record.Fields
	schema record.Schema
}

// fetch reads the catalog and projects it. An inventory failure is not
// fatal: quantities fall back to zero and the error text is returned as a
// warning.
func (r *ItemRefresher) fetch(ctx context.Context) (itemRecords, string, error) {
	log := logger.FromContext(ctx)

	objects, err := r.source.ListCatalogObjects(ctx)
	if err != nil {
		return itemRecords{}, "", fmt.Errorf("fetch catalog: %w", err)
	}

	resolved, err := r.source.ResolveLocations(ctx, r.cfg.LocationNames)
	if err != nil {
		return itemRecords{}, "", fmt.Errorf("resolve locations: %w", err)
	}

	locations := catalog.NewLocations(r.cfg.LocationNames, resolved)
	if len(locations) < len(r.cfg.LocationNames) {
		log.Warn().
			Strs("configured", r.cfg.LocationNames).
			Strs("resolved", locations.Names()).
			Msg("Some configured locations did not match any Square location")
	}

	idx := catalog.NewIndex(objects)

	var warning string
	inventory, err := r.source.FetchInventory(ctx, idx.VariationIDs(), locations.IDs())
	if err != nil {
		log.Warn().Err(err).Msg("Inventory unavailable, quantities default to 0 (check INVENTORY_READ permission)")
		warning = err.Error()
		inventory = square.Inventory{}
	}

	rows := catalog.Project(idx, locations, inventory)

	log.Info().
		Int("catalog_objects", len(objects)).
		Int("items", idx.Items()).
		Int("rows", len(rows)).
		Msg("Projected catalog rows")

	return itemRecords{
		fields: catalog.Records(rows, r.cfg.RestockLocation),
		schema: catalog.ItemSchema(locations.Names(), r.cfg.RestockLocation),
	}, warning, nil
}
