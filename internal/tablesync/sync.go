// Package tablesync replaces the whole content of a destination table:
// delete every existing record, then insert the new set in batches.
package tablesync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/inventory-refresher/internal/logger"
	"github.com/dvloznov/inventory-refresher/internal/record"
)

// DefaultBatchSize is the number of records sent per create call.
const DefaultBatchSize = 10

// Phase names a step of a refresh.
type Phase string

const (
	PhaseDeleting  Phase = "deleting"
	PhaseInserting Phase = "inserting"
)

// PartialWriteError reports an insert that stopped part way. Committed
// records stay in the table.
type PartialWriteError struct {
	Table     string
	Committed int
	Total     int
	// Batch is the zero-based index of the failing batch.
	Batch int
	Err   error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("table %q: batch %d failed after %d of %d records were written: %v",
		e.Table, e.Batch, e.Committed, e.Total, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// Options controls a Refresh.
type Options struct {
	// Schema, when set, is checked before anything is deleted.
	Schema record.Schema
	// BatchSize defaults to DefaultBatchSize.
	BatchSize int
	// DryRun lists existing records but changes nothing.
	DryRun bool
	// OnPhase is called when the refresh enters a phase.
	OnPhase func(Phase)
}

// Result counts what a Refresh did, or would have done on a dry run.
type Result struct {
	Deleted int
	Created int
}

// Syncer performs full refreshes against a Destination.
type Syncer struct {
	dest Destination
}

// NewSyncer creates a Syncer writing to dest.
func NewSyncer(dest Destination) *Syncer {
	return &Syncer{dest: dest}
}

// Refresh validates records, deletes all rows of table and inserts records.
// A validation failure leaves the table untouched.
func (s *Syncer) Refresh(ctx context.Context, table string, records []record.Fields, opts Options) (Result, error) {
	log := logger.FromContext(ctx)

	if err := opts.Schema.Validate(records); err != nil {
		return Result{}, fmt.Errorf("Refresh: %s: %w", table, err)
	}

	log.Info().
		Str("table", table).
		Int("records", len(records)).
		Bool("dry_run", opts.DryRun).
		Msg("Starting table refresh")

	notify(opts.OnPhase, PhaseDeleting)

	var (
		res Result
		err error
	)
	if opts.DryRun {
		res.Deleted, err = s.countAll(ctx, table)
		if err != nil {
			return res, fmt.Errorf("Refresh: %w", err)
		}
		res.Created = len(records)
		log.Info().
			Str("table", table).
			Int("deleted", res.Deleted).
			Int("created", res.Created).
			Msg("[DRY RUN] Would replace table content")
		return res, nil
	}

	res.Deleted, err = s.DeleteAll(ctx, table)
	if err != nil {
		return res, fmt.Errorf("Refresh: %w", err)
	}

	notify(opts.OnPhase, PhaseInserting)

	res.Created, err = s.AddRecords(ctx, table, records, opts.BatchSize)
	if err != nil {
		return res, fmt.Errorf("Refresh: %w", err)
	}

	log.Info().
		Str("table", table).
		Int("deleted", res.Deleted).
		Int("created", res.Created).
		Msg("Table refresh completed")

	return res, nil
}

// DeleteAll removes every record of table, one delete call per listed page.
// It stops at the first page without an offset or without records, and
// returns the number of records deleted.
func (s *Syncer) DeleteAll(ctx context.Context, table string) (int, error) {
	log := logger.FromContext(ctx)

	var (
		deleted int
		offset  string
	)
	for {
		page, err := s.dest.ListRecords(ctx, table, offset)
		if err != nil {
			return deleted, fmt.Errorf("DeleteAll: list %s: %w", table, err)
		}

		if len(page.Records) == 0 {
			return deleted, nil
		}

		ids := make([]string, len(page.Records))
		for i, rec := range page.Records {
			ids[i] = rec.ID
		}
		if err := s.dest.DeleteRecords(ctx, table, ids); err != nil {
			return deleted, fmt.Errorf("DeleteAll: delete from %s: %w", table, err)
		}
		deleted += len(ids)
		log.Debug().
			Str("table", table).
			Int("page_size", len(ids)).
			Int("deleted", deleted).
			Msg("Deleted page of records")

		if page.Offset == "" {
			return deleted, nil
		}
		offset = page.Offset
	}
}

// AddRecords inserts records in sequential batches of batchSize. The first
// failing batch stops the insert and is reported as *PartialWriteError.
func (s *Syncer) AddRecords(ctx context.Context, table string, records []record.Fields, batchSize int) (int, error) {
	log := logger.FromContext(ctx)

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	var written int
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		if err := s.dest.CreateRecords(ctx, table, records[i:end]); err != nil {
			return written, &PartialWriteError{
				Table:     table,
				Committed: written,
				Total:     len(records),
				Batch:     i / batchSize,
				Err:       err,
			}
		}
		written = end

		log.Debug().
			Str("table", table).
			Int("batch_start", i).
			Int("batch_end", end).
			Msg("Inserted batch")
	}

	return written, nil
}

// countAll pages through table without deleting anything.
func (s *Syncer) countAll(ctx context.Context, table string) (int, error) {
	var (
		total  int
		offset string
	)
	for {
		page, err := s.dest.ListRecords(ctx, table, offset)
		if err != nil {
			return total, fmt.Errorf("list %s: %w", table, err)
		}
		total += len(page.Records)
		if page.Offset == "" {
			return total, nil
		}
		offset = page.Offset
	}
}

// IsPartialWrite reports whether err carries a *PartialWriteError and returns it.
func IsPartialWrite(err error) (*PartialWriteError, bool) {
	var pw *PartialWriteError
	if errors.As(err, &pw) {
		return pw, true
	}
	return nil, false
}

func notify(fn func(Phase), p Phase) {
	if fn != nil {
		fn(p)
	}
}
