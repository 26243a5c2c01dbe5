package store

import (
	"context"
	"time"

	"github.com/hyperengineering/drift/internal/query"
	"github.com/hyperengineering/drift/internal/record"
)

// Row is one result row of a structured query: projected field values when
// the spec names fields, otherwise the store key and raw document.
type Row []any

// Sync log operations.
const (
	OperationReconcile = "reconcile"
	OperationPurge     = "purge"
)

// SyncLogEntry records one completed reconciliation batch or purge.
type SyncLogEntry struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	Operation   string    `json:"operation"`
	RecordCount int       `json:"record_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store defines the interface contract for the local record store.
//
// Writes taking inTx route through the currently open transaction and fail
// with ErrNoTransaction if none is open. BeginTransaction acquires exclusive
// access to the store's transactional context; EndTransaction commits if
// SetTransactionSuccessful was called, rolls back otherwise, and always
// releases the transaction resource.
type Store interface {
	Query(ctx context.Context, spec query.Spec, pageIndex int) ([]Row, error)
	Retrieve(ctx context.Context, collection string, storeKey int64) (record.Record, error)
	Update(ctx context.Context, collection string, rec record.Record, storeKey int64, inTx bool) error
	Upsert(ctx context.Context, collection string, rec record.Record, idField string, inTx bool) (int64, error)
	Delete(ctx context.Context, collection string, storeKey int64) error
	DeleteByQuery(ctx context.Context, spec query.Spec) error

	BeginTransaction(ctx context.Context) error
	SetTransactionSuccessful() error
	EndTransaction() error

	AppendSyncLog(ctx context.Context, entry SyncLogEntry) error
	SyncLogAfter(ctx context.Context, afterID string, limit int) ([]SyncLogEntry, error)
	PruneSyncLog(ctx context.Context, before time.Time) (int64, error)

	Collections(ctx context.Context) ([]string, error)
	CountRecords(ctx context.Context, collection string) (int64, error)

	Close() error
}
