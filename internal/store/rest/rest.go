// Package rest implements the income store against a remote ingresos API
// speaking the {success, data} / {success: false, error} JSON envelope.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ingresos/internal/core"
	"ingresos/internal/store"
)

const defaultTimeout = 10 * time.Second

// Client is a store.Adapter backed by HTTP round trips. Retries and backoff
// are left to callers; every transport failure surfaces as an AdapterError.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

var _ store.Adapter = (*Client)(nil)

type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithAPIKey sends a bearer token with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// envelope is the wire shape of every response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Details string          `json:"details,omitempty"`
}

// Initialize probes the health endpoint; seeding happens server-side.
func (c *Client) Initialize(ctx context.Context) error {
	if err := c.request(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return store.WrapError(store.CodeConnection, "probe remote api", err)
	}
	return nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	var cats []core.Category
	if err := c.request(ctx, http.MethodGet, "/categories", nil, &cats); err != nil {
		return nil, store.WrapError(store.CodeLoadCategories, "list categories", err)
	}
	return cats, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	var cat core.Category
	body := map[string]string{"name": name}
	if err := c.request(ctx, http.MethodPost, "/categories", body, &cat); err != nil {
		return core.Category{}, store.WrapError(store.CodeCreateCategory, "create category", err)
	}
	return cat, nil
}

func (c *Client) RenameCategory(ctx context.Context, id, name string) error {
	body := map[string]string{"name": name}
	if err := c.request(ctx, http.MethodPatch, "/categories/"+url.PathEscape(id), body, nil); err != nil {
		return store.WrapError(store.CodeRenameCategory, "rename category", err)
	}
	return nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	if err := c.request(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), nil, nil); err != nil {
		return store.WrapError(store.CodeDeleteCategory, "delete category", err)
	}
	return nil
}

func (c *Client) ReorderCategories(ctx context.Context, orderedIDs []string) error {
	body := map[string][]string{"order": orderedIDs}
	if err := c.request(ctx, http.MethodPatch, "/categories/reorder", body, nil); err != nil {
		return store.WrapError(store.CodeReorder, "reorder categories", err)
	}
	return nil
}

func (c *Client) GetMatrix(ctx context.Context, year int) (core.Matrix, error) {
	var m core.Matrix
	path := "/matrix?year=" + strconv.Itoa(year)
	if err := c.request(ctx, http.MethodGet, path, nil, &m); err != nil {
		return nil, store.WrapError(store.CodeLoadMatrix, "get matrix", err)
	}
	if m == nil {
		m = core.Matrix{}
	}
	return m, nil
}

func (c *Client) SetCell(ctx context.Context, year int, categoryID string, month int, value int64) error {
	body := map[string]any{
		"year":       year,
		"categoryId": categoryID,
		"month":      month,
		"value":      value,
	}
	if err := c.request(ctx, http.MethodPatch, "/matrix", body, nil); err != nil {
		return store.WrapError(store.CodeSetCell, "set cell", err)
	}
	return nil
}

func (c *Client) BulkSetRow(ctx context.Context, year int, categoryID string, valuesByMonth map[int]int64) error {
	body := map[string]any{
		"year":       year,
		"categoryId": categoryID,
		"values":     valuesByMonth,
	}
	if err := c.request(ctx, http.MethodPost, "/matrix/bulk-row", body, nil); err != nil {
		return store.WrapError(store.CodeBulkSetRow, "bulk set row", err)
	}
	return nil
}

func (c *Client) Reset(ctx context.Context) error {
	if err := c.request(ctx, http.MethodPost, "/reset", nil, nil); err != nil {
		return store.WrapError(store.CodeReset, "reset remote store", err)
	}
	return nil
}

// request performs one round trip and decodes the envelope into out.
// A non-success envelope surfaces the remote error; 404 maps back to the
// domain's not-found sentinel so callers keep a single error taxonomy.
func (c *Client) request(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope (status %d): %w", resp.StatusCode, err)
	}
	if !env.Success {
		if resp.StatusCode == http.StatusNotFound {
			return core.ErrCategoryNotFound
		}
		msg := env.Error
		if env.Details != "" {
			msg += ": " + env.Details
		}
		return &store.AdapterError{
			Code: store.CodeRemoteRejection,
			Op:   fmt.Sprintf("%s %s (status %d)", method, path, resp.StatusCode),
			Err:  fmt.Errorf("%s", msg),
		}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode response data: %w", err)
		}
	}
	return nil
}
