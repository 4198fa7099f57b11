// Package repository contains data access for the trip planner: the
// tabular REST store client, week-data loading, the persistent
// distance cache, and the run writer.
package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	storeReadTimeout  = 15 * time.Second
	storeWriteTimeout = 30 * time.Second
	storeMaxRetries   = 3
)

// StoreClient talks to the tabular store's REST interface (PostgREST
// conventions: table-per-path, filter params like eq./in./neq., and a
// service credential that bypasses row-level security).
type StoreClient struct {
	baseURL    string
	serviceKey string
	client     *http.Client
}

// NewStoreClient creates a store client. An empty URL or key yields an
// unconfigured client whose reads return no rows and whose writes are
// no-ops — useful for local development and tests.
func NewStoreClient(baseURL, serviceKey string) *StoreClient {
	return &StoreClient{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: storeWriteTimeout},
	}
}

// Configured reports whether the client has a URL and credential.
func (c *StoreClient) Configured() bool {
	return c.baseURL != "" && c.serviceKey != ""
}

func (c *StoreClient) tableURL(table string) string {
	return c.baseURL + "/rest/v1/" + table
}

func (c *StoreClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")
}

// Get reads rows from a table. Reads retry with exponential backoff —
// they are idempotent and the store occasionally hiccups.
func (c *StoreClient) Get(ctx context.Context, table string, params url.Values) ([]map[string]any, error) {
	if !c.Configured() {
		return nil, nil
	}

	var rows []map[string]any
	operation := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, storeReadTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.tableURL(table), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.URL.RawQuery = params.Encode()
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			err := fmt.Errorf("store: GET %s returned %d: %s", table, resp.StatusCode, body)
			if resp.StatusCode < 500 {
				return backoff.Permanent(err)
			}
			return err
		}

		rows = nil
		return json.NewDecoder(resp.Body).Decode(&rows)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), storeMaxRetries), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return rows, nil
}

// Post inserts rows into a table and returns the representation. Writes
// are single-shot: a retry storm must not mask a fatal write error.
func (c *StoreClient) Post(ctx context.Context, table string, payload any) ([]map[string]any, error) {
	if !c.Configured() {
		return nil, nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("store: marshal %s payload: %w", table, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tableURL(table), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("store: POST %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("store: POST %s returned %d: %s", table, resp.StatusCode, respBody)
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		// Some writes return a bare object rather than an array.
		return nil, nil
	}
	return rows, nil
}

// Patch updates rows matching the filter params.
func (c *StoreClient) Patch(ctx context.Context, table string, params url.Values, payload any) error {
	if !c.Configured() {
		return nil
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("store: marshal %s payload: %w", table, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.tableURL(table), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.URL.RawQuery = params.Encode()
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("store: PATCH %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("store: PATCH %s returned %d: %s", table, resp.StatusCode, respBody)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// ─── Row decoding helpers ───────────────────────────────────

func rowString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		fmt.Sscanf(v, "%g", &f)
		return f
	}
	return 0
}

func rowFloatPtr(row map[string]any, key string) *float64 {
	if row[key] == nil {
		return nil
	}
	f := rowFloat(row, key)
	return &f
}

func rowInt(row map[string]any, key string) int {
	return int(rowFloat(row, key))
}

func rowBool(row map[string]any, key string) bool {
	if v, ok := row[key].(bool); ok {
		return v
	}
	return false
}

func rowMap(row map[string]any, key string) map[string]any {
	if v, ok := row[key].(map[string]any); ok {
		return v
	}
	return nil
}

func rowStrings(row map[string]any, key string) []string {
	raw, ok := row[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func rowIntDefault(row map[string]any, key string, def int) int {
	if row[key] == nil {
		return def
	}
	return rowInt(row, key)
}
