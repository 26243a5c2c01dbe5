package e2e

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hyperengineering/drift/internal/api"
	"github.com/hyperengineering/drift/internal/record"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/hyperengineering/drift/internal/target"
	"github.com/hyperengineering/drift/pkg/driftclient"
)

// env is an in-process drift deployment: store, target, status server, and
// a client pointed at it.
type env struct {
	store  *store.SQLiteStore
	target *target.Target
	server *httptest.Server
	client *driftclient.Client
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	tgt := target.New()
	srv := httptest.NewServer(api.NewRouter(api.NewHandler(db, tgt, "e2e")))
	t.Cleanup(srv.Close)

	client, err := driftclient.New(driftclient.Config{
		BaseURL:      srv.URL,
		PollInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	return &env{store: db, target: tgt, server: srv, client: client}
}

// seed inserts a record with the given mutation flags.
func (e *env) seed(t *testing.T, collection, id string, created, updated, deleted bool) record.Record {
	t.Helper()
	rec := record.Record{
		"Id":                       id,
		"Name":                     "Record " + id,
		record.LocalField:          created || updated || deleted,
		record.LocallyCreatedField: created,
		record.LocallyUpdatedField: updated,
		record.LocallyDeletedField: deleted,
	}
	if _, err := e.store.Upsert(context.Background(), collection, rec, "Id", false); err != nil {
		t.Fatal(err)
	}
	return rec
}
