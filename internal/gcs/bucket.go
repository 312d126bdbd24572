package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/dvloznov/inventory-refresher/internal/logger"
)

// BucketSource reads objects from one bucket.
// It assumes Application Default Credentials are configured unless opts
// override them.
type BucketSource struct {
	bucket string
	client *storage.Client
}

// NewBucketSource creates a storage client scoped to bucket.
func NewBucketSource(ctx context.Context, bucket string, opts ...option.ClientOption) (*BucketSource, error) {
	if bucket == "" {
		return nil, errors.New("gcs: bucket name is required")
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &BucketSource{bucket: bucket, client: client}, nil
}

// Close releases the storage client.
func (s *BucketSource) Close() error {
	return s.client.Close()
}

// ListCSVFiles returns the names of all objects ending in .csv.
func (s *BucketSource) ListCSVFiles(ctx context.Context) ([]string, error) {
	var names []string

	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCSVFiles: list %s: %w", ObjectURI(s.bucket, ""), err)
		}
		if IsCSV(attrs.Name) {
			names = append(names, attrs.Name)
		}
	}

	return names, nil
}

// ReadFileAsText downloads one object and returns its content.
func (s *BucketSource) ReadFileAsText(ctx context.Context, name string) (string, error) {
	rc, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		return "", fmt.Errorf("ReadFileAsText: open %s: %w", ObjectURI(s.bucket, name), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("ReadFileAsText: read %s: %w", ObjectURI(s.bucket, name), err)
	}

	return string(data), nil
}

// GetAllCSVFiles downloads every CSV object, one at a time.
func (s *BucketSource) GetAllCSVFiles(ctx context.Context) ([]CSVFile, error) {
	return collectCSV(ctx, s, s.bucket)
}

type lister interface {
	ListCSVFiles(ctx context.Context) ([]string, error)
	ReadFileAsText(ctx context.Context, name string) (string, error)
}

func collectCSV(ctx context.Context, src lister, bucket string) ([]CSVFile, error) {
	log := logger.FromContext(ctx)

	names, err := src.ListCSVFiles(ctx)
	if err != nil {
		return nil, err
	}

	files := make([]CSVFile, 0, len(names))
	for _, name := range names {
		content, err := src.ReadFileAsText(ctx, name)
		if err != nil {
			return nil, err
		}
		files = append(files, CSVFile{Name: name, Content: content})
	}

	log.Info().
		Str("bucket", bucket).
		Int("files", len(files)).
		Msg("Downloaded CSV files")

	return files, nil
}

var _ FileSource = (*BucketSource)(nil)
