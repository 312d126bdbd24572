// Package airtable is a minimal client for the Airtable records API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/inventory-refresher/internal/record"
)

const (
	// DefaultBaseURL is the public Airtable API root.
	DefaultBaseURL = "https://api.airtable.com/v0"

	// PageSize is the number of records requested per list call.
	PageSize = 100

	// MaxRecordsPerRequest is Airtable's limit for one create or delete call.
	MaxRecordsPerRequest = 10

	defaultTimeout  = 30 * time.Second
	maxResponseSize = 8 * 1024 * 1024
)

// APIError is returned for any non-2xx response. Body holds the raw payload.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("airtable API: HTTP %d: %s", e.StatusCode, e.Body)
}

// Record is one stored row. Field values are left undecoded.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
}

// Page is one page of a table listing. Offset is empty on the last page.
type Page struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// Config configures a Client.
type Config struct {
	APIKey     string
	BaseID     string
	BaseURL    string
	HTTPClient *http.Client
}

// Client reads and writes records of one Airtable base.
type Client struct {
	baseURL string
	baseID  string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Client. The API key and base id are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("airtable: API key is required")
	}
	if cfg.BaseID == "" {
		return nil, errors.New("airtable: base id is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		baseID:  cfg.BaseID,
		apiKey:  cfg.APIKey,
		http:    httpClient,
	}, nil
}

// ListRecords returns one page of table starting at offset.
func (c *Client) ListRecords(ctx context.Context, table, offset string) (Page, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(PageSize))
	if offset != "" {
		q.Set("offset", offset)
	}

	var page Page
	if err := c.do(ctx, http.MethodGet, c.tableURL(table)+"?"+q.Encode(), nil, &page); err != nil {
		return Page{}, fmt.Errorf("ListRecords: %s: %w", table, err)
	}
	return page, nil
}

// DeleteRecords deletes ids from table, at most MaxRecordsPerRequest per call.
func (c *Client) DeleteRecords(ctx context.Context, table string, ids []string) error {
	for start := 0; start < len(ids); start += MaxRecordsPerRequest {
		end := min(start+MaxRecordsPerRequest, len(ids))

		q := url.Values{}
		for _, id := range ids[start:end] {
			q.Add("records[]", id)
		}

		if err := c.do(ctx, http.MethodDelete, c.tableURL(table)+"?"+q.Encode(), nil, nil); err != nil {
			return fmt.Errorf("DeleteRecords: %s: %w", table, err)
		}
	}
	return nil
}

type createRequest struct {
	Records []createRecord `json:"records"`
}

type createRecord struct {
	Fields record.Fields `json:"fields"`
}

// CreateRecords inserts records into table, at most MaxRecordsPerRequest per call.
func (c *Client) CreateRecords(ctx context.Context, table string, records []record.Fields) error {
	for start := 0; start < len(records); start += MaxRecordsPerRequest {
		end := min(start+MaxRecordsPerRequest, len(records))

		req := createRequest{Records: make([]createRecord, 0, end-start)}
		for _, fields := range records[start:end] {
			req.Records = append(req.Records, createRecord{Fields: fields})
		}

		if err := c.do(ctx, http.MethodPost, c.tableURL(table), req, nil); err != nil {
			return fmt.Errorf("CreateRecords: %s: %w", table, err)
		}
	}
	return nil
}

func (c *Client) tableURL(table string) string {
	return c.baseURL + "/" + url.PathEscape(c.baseID) + "/" + url.PathEscape(table)
}

func (c *Client) do(ctx context.Context, method, target string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: decode response: %w", method, err)
		}
	}
	return nil
}
