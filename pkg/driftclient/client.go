// Package driftclient is a Go client for the drift status API. It reads
// collection counts, dirty and clean identifier sets, and the sync ledger,
// and can follow the ledger as new reconciliations complete.
package driftclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultPollInterval = 5 * time.Second

// Client talks to a drift server.
type Client struct {
	baseURL      string
	client       *http.Client
	pollInterval time.Duration
}

// New creates a new Client.
func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	interval := config.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}

	return &Client{
		baseURL:      config.BaseURL,
		client:       httpClient,
		pollInterval: interval,
	}, nil
}

// Ping checks connectivity to the server.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Health(ctx)
	return err
}

// Health fetches the server health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.get(ctx, "/api/v1/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Collections lists every collection with its record and dirty counts.
func (c *Client) Collections(ctx context.Context) ([]CollectionStatus, error) {
	var out []CollectionStatus
	if err := c.get(ctx, "/api/v1/collections", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DirtyIDs lists the identifiers of locally modified records in a
// collection, ascending.
func (c *Client) DirtyIDs(ctx context.Context, collection string) (*IDSet, error) {
	var out IDSet
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/dirty"
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CleanIDs lists the identifiers of unmodified records in a collection,
// ascending.
func (c *Client) CleanIDs(ctx context.Context, collection string) (*IDSet, error) {
	var out IDSet
	path := "/api/v1/collections/" + url.PathEscape(collection) + "/clean"
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ledger fetches up to limit ledger entries with ids after afterID, oldest
// first. An empty afterID starts from the beginning; limit 0 uses the
// server default.
func (c *Client) Ledger(ctx context.Context, afterID string, limit int) ([]LedgerEntry, error) {
	q := url.Values{}
	if afterID != "" {
		q.Set("after", afterID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/v1/ledger"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out ledgerResponse
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Entries, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var p problem
		if err := json.NewDecoder(resp.Body).Decode(&p); err == nil && p.Detail != "" {
			return fmt.Errorf("drift: %s (status %d)", p.Detail, resp.StatusCode)
		}
		return fmt.Errorf("drift: unexpected status %d for %s", resp.StatusCode, path)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
