package tablesync

import (
	"context"

	"github.com/dvloznov/inventory-refresher/internal/airtable"
	"github.com/dvloznov/inventory-refresher/internal/record"
)

// Page is one page of a destination table listing.
type Page = airtable.Page

// Destination defines the table operations a full refresh needs.
// *airtable.Client satisfies it; tests use a fake.
type Destination interface {
	// ListRecords returns the page of table starting at offset. An empty
	// Offset on the result marks the last page.
	ListRecords(ctx context.Context, table, offset string) (Page, error)

	// DeleteRecords removes the records with the given ids.
	DeleteRecords(ctx context.Context, table string, ids []string) error

	// CreateRecords inserts the records as new rows.
	CreateRecords(ctx context.Context, table string, records []record.Fields) error
}
