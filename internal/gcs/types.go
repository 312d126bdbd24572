// Package gcs reads purchase-order CSV files from a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"path"
	"strings"
)

// CSVFile is one downloaded CSV object.
type CSVFile struct {
	Name    string
	Content string
}

// FileSource provides the bucket operations the PO refresh needs.
// This interface enables mocking and testing of storage access.
type FileSource interface {
	// ListCSVFiles returns the names of all objects ending in .csv.
	ListCSVFiles(ctx context.Context) ([]string, error)

	// ReadFileAsText downloads one object and returns its content.
	ReadFileAsText(ctx context.Context, name string) (string, error)

	// GetAllCSVFiles downloads every CSV object in listing order.
	GetAllCSVFiles(ctx context.Context) ([]CSVFile, error)
}

// IsCSV reports whether an object name has a .csv extension, ignoring case.
func IsCSV(name string) bool {
	return strings.EqualFold(path.Ext(name), ".csv")
}

// ObjectURI formats a gs:// URI for bucket and object.
func ObjectURI(bucket, object string) string {
	return "gs://" + bucket + "/" + object
}
