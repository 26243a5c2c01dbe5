package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperengineering/drift/internal/record"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/hyperengineering/drift/internal/target"
	"github.com/oklog/ulid/v2"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	handler := NewHandler(db, target.New(), "test")
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, db
}

func seedRecord(t *testing.T, db *store.SQLiteStore, collection, id string, dirty bool) {
	t.Helper()
	rec := record.Record{
		"Id":                       id,
		record.LocalField:          dirty,
		record.LocallyCreatedField: false,
		record.LocallyUpdatedField: dirty,
		record.LocallyDeletedField: false,
	}
	if _, err := db.Upsert(context.Background(), collection, rec, "Id", false); err != nil {
		t.Fatal(err)
	}
}

func getJSON(t *testing.T, url string, wantStatus int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		t.Fatalf("status = %d, want %d", resp.StatusCode, wantStatus)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatal(err)
		}
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body HealthResponse
	getJSON(t, srv.URL+"/api/v1/health", http.StatusOK, &body)

	if body.Status != "healthy" {
		t.Errorf("status = %q, want healthy", body.Status)
	}
	if body.Version != "test" {
		t.Errorf("version = %q, want test", body.Version)
	}
}

func TestCollections(t *testing.T) {
	srv, db := newTestServer(t)

	seedRecord(t, db, "accounts", "001", true)
	seedRecord(t, db, "accounts", "002", false)
	seedRecord(t, db, "contacts", "001", false)

	var body []CollectionStatus
	getJSON(t, srv.URL+"/api/v1/collections", http.StatusOK, &body)

	if len(body) != 2 {
		t.Fatalf("collections = %d, want 2", len(body))
	}
	if body[0].Name != "accounts" || body[0].Count != 2 || body[0].Dirty != 1 {
		t.Errorf("accounts = %+v, want count 2 dirty 1", body[0])
	}
	if body[1].Name != "contacts" || body[1].Count != 1 || body[1].Dirty != 0 {
		t.Errorf("contacts = %+v, want count 1 dirty 0", body[1])
	}
}

func TestCollections_Empty(t *testing.T) {
	srv, _ := newTestServer(t)

	var body []CollectionStatus
	getJSON(t, srv.URL+"/api/v1/collections", http.StatusOK, &body)
	if len(body) != 0 {
		t.Errorf("collections = %v, want empty", body)
	}
}

func TestDirtyIDs(t *testing.T) {
	srv, db := newTestServer(t)

	seedRecord(t, db, "accounts", "002", true)
	seedRecord(t, db, "accounts", "001", true)
	seedRecord(t, db, "accounts", "003", false)

	var body IDSetResponse
	getJSON(t, srv.URL+"/api/v1/collections/accounts/dirty", http.StatusOK, &body)

	if body.Collection != "accounts" {
		t.Errorf("collection = %q, want accounts", body.Collection)
	}
	if body.Count != 2 || len(body.IDs) != 2 {
		t.Fatalf("ids = %v, want 2", body.IDs)
	}
	// Ascending by identifier.
	if body.IDs[0] != "001" || body.IDs[1] != "002" {
		t.Errorf("ids = %v, want [001 002]", body.IDs)
	}
}

func TestCleanIDs(t *testing.T) {
	srv, db := newTestServer(t)

	seedRecord(t, db, "accounts", "001", true)
	seedRecord(t, db, "accounts", "002", false)

	var body IDSetResponse
	getJSON(t, srv.URL+"/api/v1/collections/accounts/clean", http.StatusOK, &body)

	if body.Count != 1 || body.IDs[0] != "002" {
		t.Errorf("ids = %v, want [002]", body.IDs)
	}
}

func TestDirtyIDs_UnknownCollection(t *testing.T) {
	srv, _ := newTestServer(t)

	var body IDSetResponse
	getJSON(t, srv.URL+"/api/v1/collections/nothing/dirty", http.StatusOK, &body)
	if body.Count != 0 {
		t.Errorf("count = %d, want 0", body.Count)
	}
}

func TestLedger(t *testing.T) {
	srv, db := newTestServer(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		entry := store.SyncLogEntry{
			ID:          ulid.Make().String(),
			Collection:  "accounts",
			Operation:   store.OperationReconcile,
			RecordCount: i + 1,
			CreatedAt:   time.Now().UTC(),
		}
		if err := db.AppendSyncLog(ctx, entry); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, entry.ID)
	}

	var body LedgerResponse
	getJSON(t, srv.URL+"/api/v1/ledger", http.StatusOK, &body)
	if len(body.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(body.Entries))
	}

	getJSON(t, srv.URL+"/api/v1/ledger?after="+ids[0], http.StatusOK, &body)
	if len(body.Entries) != 2 || body.Entries[0].ID != ids[1] {
		t.Errorf("entries after %s = %+v", ids[0], body.Entries)
	}

	getJSON(t, srv.URL+"/api/v1/ledger?limit=1", http.StatusOK, &body)
	if len(body.Entries) != 1 {
		t.Errorf("entries = %d with limit 1, want 1", len(body.Entries))
	}
}

func TestLedger_InvalidLimit(t *testing.T) {
	srv, _ := newTestServer(t)

	var problem Problem
	getJSON(t, srv.URL+"/api/v1/ledger?limit=zero", http.StatusBadRequest, &problem)
	if problem.Status != http.StatusBadRequest {
		t.Errorf("problem status = %d, want 400", problem.Status)
	}

	getJSON(t, srv.URL+"/api/v1/ledger?limit=-5", http.StatusBadRequest, nil)
}

func TestProblemContentType(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/ledger?limit=bad")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("Content-Type = %q, want application/problem+json", ct)
	}
}
