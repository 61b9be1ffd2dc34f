// Package remote implements the backend contract against the records HTTP
// API. Responses may arrive wrapped in an envelope ({"data": ...} or
// {"success": ..., "data": ...}); the client unwraps them to the canonical
// record/collection shapes before use.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jobcopilot/jobstore/internal/backend"
	"github.com/jobcopilot/jobstore/pkg/models"
)

// ErrTimeout marks a remote call that exceeded its deadline.
var ErrTimeout = errors.New("remote store timeout")

// Client implements the backend contract over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// New creates a remote store client. baseURL is the API base address
// including any path prefix (e.g. http://host:8080/api/v1).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return "remote" }

// Create posts a new record.
func (c *Client) Create(ctx context.Context, rec models.JobRecord) (*models.JobRecord, error) {
	var out models.JobRecord
	if err := c.do(ctx, http.MethodPost, "/records", rec, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches a record by id.
func (c *Client) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	var out models.JobRecord
	if err := c.do(ctx, http.MethodGet, "/records/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// collectionPayload is the canonical shape of a paginated list response.
type collectionPayload struct {
	Items      []models.JobRecord `json:"items"`
	Total      int                `json:"total"`
	TotalPages int                `json:"total_pages"`
}

// Query fetches the full match set. The serving API only hands out
// engine-paginated pages, so the client walks them at the maximum page
// size until the set is complete. Filtering, search and sorting stay with
// the caller's query engine; pushing them down here would make the cached
// full set depend on one caller's options.
func (c *Client) Query(ctx context.Context, _ models.QueryOptions) ([]models.JobRecord, int, error) {
	var (
		items []models.JobRecord
		total int
	)
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("page", strconv.Itoa(page))
		params.Set("pageSize", strconv.Itoa(models.MaxPageSize))

		var out collectionPayload
		if err := c.do(ctx, http.MethodGet, "/records?"+params.Encode(), nil, &out); err != nil {
			return nil, 0, err
		}
		items = append(items, out.Items...)
		total = out.Total

		if len(out.Items) == 0 || page >= out.TotalPages {
			break
		}
	}
	return items, total, nil
}

// Update sends a partial update.
func (c *Client) Update(ctx context.Context, id string, patch *models.RecordPatch) (*models.JobRecord, error) {
	var out models.JobRecord
	if err := c.do(ctx, http.MethodPut, "/records/"+url.PathEscape(id), patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a record, reporting whether it existed.
func (c *Client) Delete(ctx context.Context, id string) (bool, error) {
	err := c.do(ctx, http.MethodDelete, "/records/"+url.PathEscape(id), nil, nil)
	if errors.Is(err, backend.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BatchCreate posts records in bulk.
func (c *Client) BatchCreate(ctx context.Context, recs []models.JobRecord) ([]models.JobRecord, error) {
	body := struct {
		Records []models.JobRecord `json:"records"`
	}{Records: recs}

	var out []models.JobRecord
	if err := c.do(ctx, http.MethodPost, "/records/batch", body, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats fetches server-side aggregates.
func (c *Client) Stats(ctx context.Context) (*models.Stats, error) {
	var out models.Stats
	if err := c.do(ctx, http.MethodGet, "/records/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// HealthCheck probes the liveness endpoint. The caller bounds the probe
// with a deadline; past it the probe counts as failure.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: remote not healthy (status %d)", backend.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

// do issues one request and decodes the (possibly enveloped) response
// payload into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return backend.ErrNotFound
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: status %d", backend.ErrUnavailable, resp.StatusCode)
	}
	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	return unwrap(raw, out)
}

// unwrap decodes a response body into out, looking through a {data: ...}
// envelope when one is present.
func unwrap(raw []byte, out any) error {
	var env struct {
		Success *bool           `json:"success"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
}
