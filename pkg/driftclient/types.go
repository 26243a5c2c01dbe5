package driftclient

import (
	"net/http"
	"time"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the drift server address, e.g. "http://localhost:8080".
	BaseURL string

	// HTTPClient is the underlying HTTP client. A default with a 30s
	// timeout is used when nil.
	HTTPClient *http.Client

	// PollInterval is how often Watch polls the ledger. Defaults to 5s.
	PollInterval time.Duration
}

// Health is the server health report.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// CollectionStatus describes one collection's record counts.
type CollectionStatus struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Dirty int    `json:"dirty"`
}

// IDSet is a dirty or clean identifier listing for one collection.
type IDSet struct {
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
	Count      int      `json:"count"`
}

// LedgerEntry records one completed reconciliation batch or purge.
type LedgerEntry struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	Operation   string    `json:"operation"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type ledgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

// problem mirrors the server's RFC 7807 error body.
type problem struct {
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}
