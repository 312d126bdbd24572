// Package square reads catalog, location and inventory data from the Square API.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds a single Square request.
	DefaultTimeout = 30 * time.Second

	// maxResponseSize caps one response body (32MB).
	maxResponseSize = 32 * 1024 * 1024
)

// ErrorDetail is one entry of a Square error response.
type ErrorDetail struct {
	Category string `json:"category,omitempty"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

// APIError is returned when Square reports errors or a non-success status.
type APIError struct {
	StatusCode int
	Errors     []ErrorDetail
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("square API: HTTP %d", e.StatusCode)
	}
	details := make([]string, 0, len(e.Errors))
	for _, d := range e.Errors {
		msg := d.Detail
		if msg == "" {
			msg = d.Code
		}
		details = append(details, msg)
	}
	return "square API: " + strings.Join(details, "; ")
}

// HasCode reports whether any error entry carries code.
func (e *APIError) HasCode(code string) bool {
	for _, d := range e.Errors {
		if d.Code == code {
			return true
		}
	}
	return false
}

// Config configures a Client.
type Config struct {
	AccessToken string
	BaseURL     string
	Version     string
	HTTPClient  *http.Client
}

// Client talks to the Square REST API.
type Client struct {
	baseURL string
	token   string
	version string
	http    *http.Client
}

// NewClient creates a Client. The access token and base URL are required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, errors.New("square: access token is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("square: base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.AccessToken,
		version: cfg.Version,
		http:    httpClient,
	}, nil
}

// do sends a request to path (relative to the base URL) and decodes the JSON
// response into out. errs must point at out's error list.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}, errs *[]ErrorDetail) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.version != "" {
		req.Header.Set("Square-Version", c.version)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("%s %s: read response: %w", method, path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}

	if len(*errs) > 0 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Errors: *errs}
	}

	return nil
}
