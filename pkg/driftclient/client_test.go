package driftclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// fakeServer serves canned status API responses.
func fakeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Health{Status: "healthy", Version: "1.0.0"})
	})
	mux.HandleFunc("/api/v1/collections", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]CollectionStatus{
			{Name: "accounts", Count: 10, Dirty: 3},
		})
	})
	mux.HandleFunc("/api/v1/collections/accounts/dirty", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(IDSet{Collection: "accounts", IDs: []string{"001", "002"}, Count: 2})
	})
	mux.HandleFunc("/api/v1/ledger", func(w http.ResponseWriter, r *http.Request) {
		entries := []LedgerEntry{
			{ID: "01A", Collection: "accounts", Operation: "reconcile", RecordCount: 2, CreatedAt: time.Now().UTC()},
			{ID: "01B", Collection: "accounts", Operation: "purge", RecordCount: 1, CreatedAt: time.Now().UTC()},
		}
		after := r.URL.Query().Get("after")
		out := entries[:0:0]
		for _, e := range entries {
			if e.ID > after {
				out = append(out, e)
			}
		}
		json.NewEncoder(w).Encode(ledgerResponse{Entries: out})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{BaseURL: baseURL, PollInterval: 10 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("expected error for missing BaseURL")
	}
}

func TestClient_Health(t *testing.T) {
	srv := fakeServer(t)
	c := newTestClient(t, srv.URL)

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if h.Status != "healthy" || h.Version != "1.0.0" {
		t.Errorf("health = %+v", h)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Errorf("Ping() = %v", err)
	}
}

func TestClient_Collections(t *testing.T) {
	srv := fakeServer(t)
	c := newTestClient(t, srv.URL)

	cols, err := c.Collections(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Name != "accounts" || cols[0].Dirty != 3 {
		t.Errorf("collections = %+v", cols)
	}
}

func TestClient_DirtyIDs(t *testing.T) {
	srv := fakeServer(t)
	c := newTestClient(t, srv.URL)

	set, err := c.DirtyIDs(context.Background(), "accounts")
	if err != nil {
		t.Fatal(err)
	}
	if set.Count != 2 || set.IDs[0] != "001" {
		t.Errorf("ids = %+v", set)
	}
}

func TestClient_LedgerPaging(t *testing.T) {
	srv := fakeServer(t)
	c := newTestClient(t, srv.URL)

	entries, err := c.Ledger(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	entries, err = c.Ledger(context.Background(), "01A", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != "01B" {
		t.Errorf("entries after 01A = %+v", entries)
	}
}

func TestClient_ProblemError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/problem+json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(problem{
			Title:  "Bad Request",
			Status: http.StatusBadRequest,
			Detail: "limit must be a positive integer",
		})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	_, err := c.Ledger(context.Background(), "", -1)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got != "drift: limit must be a positive integer (status 400)" {
		t.Errorf("error = %q", got)
	}
}

func TestClient_Watch(t *testing.T) {
	srv := fakeServer(t)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := c.Watch(ctx, "")

	var got []string
	for len(got) < 2 {
		select {
		case e := <-ch:
			got = append(got, e.ID)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out, got %v", got)
		}
	}
	if got[0] != "01A" || got[1] != "01B" {
		t.Errorf("entries = %v, want [01A 01B]", got)
	}

	// Cancellation closes the channel.
	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}
