package refresher

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/dvloznov/inventory-refresher/internal/gcs"
	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/metrics"
	"github.com/dvloznov/inventory-refresher/internal/record"
	"github.com/dvloznov/inventory-refresher/internal/runs"
	"github.com/dvloznov/inventory-refresher/internal/runs/inmemory"
	"github.com/dvloznov/inventory-refresher/internal/square"
	"github.com/dvloznov/inventory-refresher/internal/tablesync"
)

type mockCatalog struct {
	ListCatalogObjectsFunc func(ctx context.Context) ([]square.CatalogObject, error)
	ResolveLocationsFunc   func(ctx context.Context, names []string) (map[string]string, error)
	FetchInventoryFunc     func(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error)
}

func (m *mockCatalog) ListCatalogObjects(ctx context.Context) ([]square.CatalogObject, error) {
	return m.ListCatalogObjectsFunc(ctx)
}

func (m *mockCatalog) ResolveLocations(ctx context.Context, names []string) (map[string]string, error) {
	return m.ResolveLocationsFunc(ctx, names)
}

func (m *mockCatalog) FetchInventory(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error) {
	return m.FetchInventoryFunc(ctx, variationIDs, locationIDs)
}

type mockFiles struct {
	GetAllCSVFilesFunc func(ctx context.Context) ([]gcs.CSVFile, error)
}

func (m *mockFiles) GetAllCSVFiles(ctx context.Context) ([]gcs.CSVFile, error) {
	return m.GetAllCSVFilesFunc(ctx)
}

type mockWriter struct {
	mu      sync.Mutex
	calls   int
	table   string
	records []record.Fields
	opts    tablesync.Options

	RefreshFunc func(ctx context.Context, records []record.Fields, opts tablesync.Options) (tablesync.Result, error)
}

func (m *mockWriter) Refresh(ctx context.Context, table string, records []record.Fields, opts tablesync.Options) (tablesync.Result, error) {
	m.mu.Lock()
	m.calls++
	m.table = table
	m.records = records
	m.opts = opts
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, records, opts)
	}
	if opts.OnPhase != nil {
		opts.OnPhase(tablesync.PhaseDeleting)
		opts.OnPhase(tablesync.PhaseInserting)
	}
	return tablesync.Result{Deleted: 4, Created: len(records)}, nil
}

func boolPtr(b bool) *bool { return &b }

func sampleCatalog() *mockCatalog {
	return &mockCatalog{
		ListCatalogObjectsFunc: func(ctx context.Context) ([]square.CatalogObject, error) {
			return []square.CatalogObject{
				{Type: square.TypeCategory, ID: "c1", CategoryData: &square.CategoryData{Name: "Apparel"}},
				{Type: square.TypeItem, ID: "i1", ItemData: &square.ItemData{
					Name:       "Shirt",
					Categories: []square.ObjectRef{{ID: "c1"}},
				}},
				{Type: square.TypeItemVariation, ID: "v1", ItemVariationData: &square.ItemVariationData{
					ItemID:          "i1",
					Name:            "Small",
					SKU:             "SH-S",
					PriceMoney:      &square.Money{Amount: 2500},
					DefaultUnitCost: &square.Money{Amount: 1000},
					TrackInventory:  boolPtr(true),
				}},
			}, nil
		},
		ResolveLocationsFunc: func(ctx context.Context, names []string) (map[string]string, error) {
			return map[string]string{"Provo": "L1"}, nil
		},
		FetchInventoryFunc: func(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error) {
			return square.Inventory{"v1": {"L1": 3}}, nil
		},
	}
}

func itemConfig() ItemConfig {
	return ItemConfig{
		Table:           "Items",
		LocationNames:   []string{"Provo", "American Fork"},
		RestockLocation: "Provo",
		BatchSize:       10,
	}
}

func TestItemRefresher_Refresh(t *testing.T) {
	source := sampleCatalog()
	var gotVariations, gotLocations []string
	source.FetchInventoryFunc = func(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error) {
		gotVariations, gotLocations = variationIDs, locationIDs
		return square.Inventory{"v1": {"L1": 3}}, nil
	}

	writer := &mockWriter{}
	store := inmemory.NewStore(0)
	r := NewItemRefresher(source, writer, itemConfig(), WithRuns(store), WithMetrics(metrics.New()))

	summary, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if summary.RecordsCreated != 1 || summary.RecordsDeleted != 4 || summary.InventoryWarning != "" {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if diff := cmp.Diff([]string{"v1"}, gotVariations); diff != "" {
		t.Errorf("variation ids mismatch: %s", diff)
	}
	if diff := cmp.Diff([]string{"L1"}, gotLocations); diff != "" {
		t.Errorf("location ids mismatch: %s", diff)
	}

	if writer.table != "Items" || writer.opts.BatchSize != 10 || writer.opts.Schema == nil {
		t.Errorf("unexpected write: table=%q opts=%+v", writer.table, writer.opts)
	}
	want := record.Fields{
		"SKU":                       record.String("SH-S"),
		"Item Name":                 record.String("Shirt"),
		"Variation Name":            record.String("Small"),
		"Categories":                record.String("Apparel"),
		"Reporting Category":        record.String(""),
		"GTIN":                      record.String(""),
		"Price":                     record.Number(25),
		"Items":                     record.String("SH-S"),
		"Default Unit Cost":         record.Number(10),
		"Enabled Provo":             record.Bool(true),
		"Current Quantity Provo":    record.Number(3),
		"Stock Alert Enabled Provo": record.Bool(false),
		"Stock Alert Count Provo":   record.Number(0),
		"Provo Restock Cost":        record.Number(30),
	}
	if diff := cmp.Diff([]record.Fields{want}, writer.records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if err := writer.opts.Schema.Validate(writer.records); err != nil {
		t.Errorf("records do not satisfy the schema: %v", err)
	}

	run, err := store.Get(context.Background(), summary.RunID)
	if err != nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Phase != runs.PhaseDone || run.Pipeline != PipelineItems {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestItemRefresher_InventoryFailureIsSoft(t *testing.T) {
	source := sampleCatalog()
	source.FetchInventoryFunc = func(ctx context.Context, variationIDs, locationIDs []string) (square.Inventory, error) {
		return nil, &square.APIError{StatusCode: 403, Errors: []square.ErrorDetail{{Code: "FORBIDDEN", Detail: "missing INVENTORY_READ"}}}
	}

	writer := &mockWriter{}
	summary, err := NewItemRefresher(source, writer, itemConfig()).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if !strings.Contains(summary.InventoryWarning, "missing INVENTORY_READ") {
		t.Errorf("InventoryWarning = %q", summary.InventoryWarning)
	}
	if got := writer.records[0]["Current Quantity Provo"]; !got.Equal(record.Number(0)) {
		t.Errorf("quantity = %#v, want 0", got)
	}
}

func TestItemRefresher_FetchFailureNeverWrites(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*mockCatalog)
		want   string
	}{
		{
			name: "catalog",
			modify: func(m *mockCatalog) {
				m.ListCatalogObjectsFunc = func(ctx context.Context) ([]square.CatalogObject, error) {
					return nil, errors.New("square API: unauthorized")
				}
			},
			want: "fetch catalog",
		},
		{
			name: "locations",
			modify: func(m *mockCatalog) {
				m.ResolveLocationsFunc = func(ctx context.Context, names []string) (map[string]string, error) {
					return nil, errors.New("timeout")
				}
			},
			want: "resolve locations",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := sampleCatalog()
			tt.modify(source)
			writer := &mockWriter{}
			store := inmemory.NewStore(0)

			summary, err := NewItemRefresher(source, writer, itemConfig(), WithRuns(store)).Refresh(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Refresh() error = %v, want %q", err, tt.want)
			}
			if writer.calls != 0 {
				t.Errorf("writer called %d times after a fetch failure", writer.calls)
			}

			run, _ := store.Get(context.Background(), summary.RunID)
			if run == nil || run.Phase != runs.PhaseFailed {
				t.Errorf("expected failed run, got %+v", run)
			}
		})
	}
}

func TestItemRefresher_WriteFailure(t *testing.T) {
	writeErr := &tablesync.PartialWriteError{Table: "Items", Committed: 20, Total: 50, Batch: 2, Err: errors.New("422")}
	writer := &mockWriter{
		RefreshFunc: func(ctx context.Context, records []record.Fields, opts tablesync.Options) (tablesync.Result, error) {
			return tablesync.Result{Deleted: 100, Created: 20}, writeErr
		},
	}

	summary, err := NewItemRefresher(sampleCatalog(), writer, itemConfig()).Refresh(context.Background())
	if _, ok := tablesync.IsPartialWrite(err); !ok {
		t.Fatalf("expected partial write error, got %v", err)
	}
	if summary.RecordsCreated != 20 || summary.RecordsDeleted != 100 {
		t.Errorf("summary should report committed counts: %+v", summary)
	}
}

func TestItemRefresher_SingleFlight(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once

	writer := &mockWriter{
		RefreshFunc: func(ctx context.Context, records []record.Fields, opts tablesync.Options) (tablesync.Result, error) {
			once.Do(func() { close(entered) })
			<-release
			return tablesync.Result{Created: len(records)}, nil
		},
	}
	r := NewItemRefresher(sampleCatalog(), writer, itemConfig())

	var wg sync.WaitGroup
	var created int32
	refresh := func() {
		defer wg.Done()
		summary, err := r.Refresh(context.Background())
		if err != nil {
			t.Errorf("Refresh() error = %v", err)
			return
		}
		atomic.AddInt32(&created, int32(summary.RecordsCreated))
	}

	wg.Add(1)
	go refresh()
	<-entered

	wg.Add(1)
	go refresh()
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if writer.calls != 1 {
		t.Errorf("expected one shared refresh, writer called %d times", writer.calls)
	}
	if created != 2 {
		t.Errorf("both callers should receive the shared summary, total created = %d", created)
	}
}

func TestItemRefresher_DryRun(t *testing.T) {
	cfg := itemConfig()
	cfg.DryRun = true
	writer := &mockWriter{}

	summary, err := NewItemRefresher(sampleCatalog(), writer, cfg).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if !writer.opts.DryRun || !summary.DryRun {
		t.Errorf("dry run not propagated: opts=%+v summary=%+v", writer.opts, summary)
	}
}

func TestPORefresher_Refresh(t *testing.T) {
	files := &mockFiles{
		GetAllCSVFilesFunc: func(ctx context.Context) ([]gcs.CSVFile, error) {
			return []gcs.CSVFile{
				{Name: "a.csv", Content: "PO,Qty,Received,Note\nPO-1,5,true,\nPO-2,3.5,false,rush\n"},
				{Name: "b.csv", Content: "PO,Qty\nPO-3,1\n"},
			}, nil
		},
	}
	writer := &mockWriter{}
	store := inmemory.NewStore(0)

	summary, err := NewPORefresher(files, writer, POConfig{Table: "PO", BatchSize: 10}, WithRuns(store)).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	wantSummary := POSummary{RunID: summary.RunID, FilesProcessed: 2, RecordsCreated: 3, RecordsDeleted: 4}
	if diff := cmp.Diff(wantSummary, summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	wantRecords := []record.Fields{
		{"PO": record.String("PO-1"), "Qty": record.Number(5), "Received": record.Bool(true)},
		{"PO": record.String("PO-2"), "Qty": record.Number(3.5), "Received": record.Bool(false), "Note": record.String("rush")},
		{"PO": record.String("PO-3"), "Qty": record.Number(1)},
	}
	if diff := cmp.Diff(wantRecords, writer.records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
	if writer.opts.Schema != nil {
		t.Error("PO records are written without a schema")
	}

	run, _ := store.Get(context.Background(), summary.RunID)
	if run == nil || run.Phase != runs.PhaseDone {
		t.Errorf("expected done run, got %+v", run)
	}
}

func TestPORefresher_EmptyBucket(t *testing.T) {
	files := &mockFiles{
		GetAllCSVFilesFunc: func(ctx context.Context) ([]gcs.CSVFile, error) {
			return nil, nil
		},
	}
	writer := &mockWriter{}

	summary, err := NewPORefresher(files, writer, POConfig{Table: "PO"}).Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if summary.FilesProcessed != 0 || summary.RecordsCreated != 0 {
		t.Errorf("unexpected summary: %+v", summary)
	}
	if writer.calls != 0 {
		t.Errorf("destination must not be touched for an empty bucket, got %d calls", writer.calls)
	}
}

func TestPORefresher_ParseErrorNeverWrites(t *testing.T) {
	files := &mockFiles{
		GetAllCSVFilesFunc: func(ctx context.Context) ([]gcs.CSVFile, error) {
			return []gcs.CSVFile{{Name: "bad.csv", Content: "a,b\n\"unterminated,1\n"}}, nil
		},
	}
	writer := &mockWriter{}

	_, err := NewPORefresher(files, writer, POConfig{Table: "PO"}).Refresh(context.Background())
	if err == nil || !strings.Contains(err.Error(), "bad.csv") {
		t.Fatalf("expected parse error naming the file, got %v", err)
	}
	if writer.calls != 0 {
		t.Errorf("writer called %d times after a parse failure", writer.calls)
	}
}

func TestPORefresher_SourceError(t *testing.T) {
	srcErr := errors.New("storage: bucket doesn't exist")
	files := &mockFiles{
		GetAllCSVFilesFunc: func(ctx context.Context) ([]gcs.CSVFile, error) {
			return nil, srcErr
		},
	}

	_, err := NewPORefresher(files, &mockWriter{}, POConfig{Table: "PO"}).Refresh(context.Background())
	if !errors.Is(err, srcErr) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
}

type failingRecorder struct{}

func (failingRecorder) Start(ctx context.Context, pipeline, table string) (*runs.Run, error) {
	return nil, errors.New("recorder down")
}

func (failingRecorder) SetPhase(ctx context.Context, id string, phase runs.Phase) error {
	return errors.New("recorder down")
}

func (failingRecorder) Finish(ctx context.Context, id string, summary interface{}, runErr error) error {
	return errors.New("recorder down")
}

func TestItemRefresher_RecorderFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))

	writer := &mockWriter{}
	r := NewItemRefresher(sampleCatalog(), writer, itemConfig(), WithRuns(failingRecorder{}))

	summary, err := r.Refresh(ctx)
	if err != nil {
		t.Fatalf("recorder failures must not fail the run: %v", err)
	}
	if summary.RunID != "" {
		t.Errorf("RunID = %q, want empty when the run was never recorded", summary.RunID)
	}
	if writer.calls != 1 {
		t.Errorf("writer calls = %d, want 1", writer.calls)
	}
	out := buf.String()
	if !strings.Contains(out, "Failed to record run start") || !strings.Contains(out, "recorder down") {
		t.Errorf("recorder failure not logged through the context logger: %s", out)
	}
}
