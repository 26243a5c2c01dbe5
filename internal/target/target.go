// Package target implements sync-target bookkeeping over the local record
// store: resolving which records have diverged from the last known server
// state, classifying the divergence, clearing it once a batch has been
// confirmed synced, and purging records after confirmed deletion.
//
// A Target holds configuration only (field names and its variant tag); the
// store owns all record state and every operation reads from or writes
// through to it.
package target

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/drift/internal/query"
	"github.com/hyperengineering/drift/internal/record"
	"github.com/hyperengineering/drift/internal/store"
	"github.com/oklog/ulid/v2"
)

// Default field names for records in the remote system's namespace.
const (
	DefaultIDField               = "Id"
	DefaultModificationDateField = "LastModifiedDate"
)

// defaultPageSize is the page size used when scanning the store.
const defaultPageSize = 2000

var (
	// ErrNotDirty is returned when classifying a record that has no
	// pending local change.
	ErrNotDirty = errors.New("record has no pending local change")
	// ErrNoMutationFlags is returned for a dirty record whose
	// created/updated/deleted flags are all false.
	ErrNoMutationFlags = errors.New("dirty record has no mutation flag set")
)

// Mutation is the nature of a record's local divergence.
type Mutation string

const (
	MutationCreated Mutation = "created"
	MutationUpdated Mutation = "updated"
	MutationDeleted Mutation = "deleted"
)

// Target is an immutable sync-target configuration. Construct with New or
// FromDescriptor.
type Target struct {
	impl     string
	idField  string
	modField string
	pageSize int
	logger   *slog.Logger
}

// Option configures a Target at construction.
type Option func(*Target)

// WithIDField sets the record identity field name.
func WithIDField(name string) Option {
	return func(t *Target) { t.idField = name }
}

// WithModificationDateField sets the modification timestamp field name.
func WithModificationDateField(name string) Option {
	return func(t *Target) { t.modField = name }
}

// WithLogger sets the logger used for non-fatal bookkeeping warnings.
func WithLogger(l *slog.Logger) Option {
	return func(t *Target) { t.logger = l }
}

// New creates a Target with the default field names unless overridden.
func New(opts ...Option) *Target {
	t := &Target{
		impl:     DefaultImpl,
		idField:  DefaultIDField,
		modField: DefaultModificationDateField,
		pageSize: defaultPageSize,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// IDFieldName returns the field name of the record identity field.
// Defaults to "Id".
func (t *Target) IDFieldName() string {
	return t.idField
}

// ModificationDateFieldName returns the field name of the modification date
// field. Defaults to "LastModifiedDate".
func (t *Target) ModificationDateFieldName() string {
	return t.modField
}

// DirtyRecordIDs returns the identifiers of all records in the collection
// with pending local changes, ascending by identifier.
//
// The scan is paged and holds no lock across pages: concurrent writers may
// change dirty state mid-scan, so the result is a best-effort snapshot, not
// a transactionally consistent view.
func (t *Target) DirtyRecordIDs(ctx context.Context, st store.Store, collection string) ([]string, error) {
	return t.recordIDs(ctx, st, collection, true)
}

// NonDirtyRecordIDs returns the identifiers of all records in the collection
// without pending local changes, ascending by identifier.
func (t *Target) NonDirtyRecordIDs(ctx context.Context, st store.Store, collection string) ([]string, error) {
	return t.recordIDs(ctx, st, collection, false)
}

func (t *Target) recordIDs(ctx context.Context, st store.Store, collection string, local bool) ([]string, error) {
	spec := query.Spec{
		Collection: collection,
		Fields:     []string{t.idField},
		Where:      []query.Cond{{Field: record.LocalField, Value: local}},
		OrderBy:    t.idField,
		PageSize:   t.pageSize,
	}

	ids := make([]string, 0)
	// A page of exactly pageSize rows may be the last one; the scan only
	// stops on a short page, so an exact-multiple collection costs one
	// extra empty round-trip.
	for pageIndex, hasMore := 0, true; hasMore; pageIndex++ {
		rows, err := st.Query(ctx, spec, pageIndex)
		if err != nil {
			return nil, fmt.Errorf("resolve record ids: %w", err)
		}
		hasMore = len(rows) == t.pageSize
		for _, row := range rows {
			id, ok := row[0].(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s is %T, want string", record.ErrFieldType, t.idField, row[0])
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// IsLocallyCreated reports whether a dirty record was created locally.
func (t *Target) IsLocallyCreated(rec record.Record) (bool, error) {
	return rec.Bool(record.LocallyCreatedField)
}

// IsLocallyUpdated reports whether a dirty record was updated locally.
func (t *Target) IsLocallyUpdated(rec record.Record) (bool, error) {
	return rec.Bool(record.LocallyUpdatedField)
}

// IsLocallyDeleted reports whether a dirty record was deleted locally.
func (t *Target) IsLocallyDeleted(rec record.Record) (bool, error) {
	return rec.Bool(record.LocallyDeletedField)
}

// Classify returns the mutation kind of a dirty record. The data model does
// not enforce flag exclusivity, so when more than one flag is set the
// precedence is deleted, then created, then updated: a delete supersedes any
// other local change, and a record created locally must be pushed as a
// create regardless of later edits.
func (t *Target) Classify(rec record.Record) (Mutation, error) {
	local, err := rec.Bool(record.LocalField)
	if err != nil {
		return "", err
	}
	if !local {
		return "", ErrNotDirty
	}

	deleted, err := t.IsLocallyDeleted(rec)
	if err != nil {
		return "", err
	}
	if deleted {
		return MutationDeleted, nil
	}

	created, err := t.IsLocallyCreated(rec)
	if err != nil {
		return "", err
	}
	if created {
		return MutationCreated, nil
	}

	updated, err := t.IsLocallyUpdated(rec)
	if err != nil {
		return "", err
	}
	if updated {
		return MutationUpdated, nil
	}

	return "", ErrNoMutationFlags
}

// CleanAndSave clears a record's divergence markers and writes it back.
// A record carrying a store key is updated in place; a record fresh from the
// server is upserted by its identity field value.
func (t *Target) CleanAndSave(ctx context.Context, st store.Store, collection string, rec record.Record) error {
	if err := t.cleanAndSave(ctx, st, collection, rec, false); err != nil {
		return err
	}
	t.logSync(ctx, st, collection, store.OperationReconcile, 1)
	return nil
}

func (t *Target) cleanAndSave(ctx context.Context, st store.Store, collection string, rec record.Record, inTx bool) error {
	rec.MarkSynced()

	if storeKey, ok := rec.StoreKey(); ok {
		// Record is already resident in the local store.
		if err := st.Update(ctx, collection, rec, storeKey, inTx); err != nil {
			return fmt.Errorf("clean record: %w", err)
		}
		return nil
	}

	// Record came from the server.
	if _, err := st.Upsert(ctx, collection, rec, t.idField, inTx); err != nil {
		return fmt.Errorf("clean record: %w", err)
	}
	return nil
}

// SaveRecords clears divergence markers on every record in the batch and
// writes them back as one atomic unit. A failure on any record leaves the
// store unchanged for all of them.
func (t *Target) SaveRecords(ctx context.Context, st store.Store, collection string, recs []record.Record) error {
	if len(recs) == 0 {
		return nil
	}
	if err := t.saveRecordsTx(ctx, st, collection, recs); err != nil {
		return err
	}
	t.logSync(ctx, st, collection, store.OperationReconcile, len(recs))
	return nil
}

func (t *Target) saveRecordsTx(ctx context.Context, st store.Store, collection string, recs []record.Record) (err error) {
	if err := st.BeginTransaction(ctx); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	// Commit-or-rollback on every exit path, including panics partway
	// through the batch.
	defer func() {
		if endErr := st.EndTransaction(); endErr != nil && err == nil {
			err = fmt.Errorf("save records: %w", endErr)
		}
	}()

	for _, rec := range recs {
		if err := t.cleanAndSave(ctx, st, collection, rec, true); err != nil {
			return fmt.Errorf("save records: %w", err)
		}
	}

	if err := st.SetTransactionSuccessful(); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}

// DeleteRecords removes the records whose identity field matches any of the
// given identifiers, in one store-level operation. An empty set is a no-op
// and issues no query; absent identifiers are ignored.
func (t *Target) DeleteRecords(ctx context.Context, st store.Store, collection string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	spec := query.Spec{
		Collection: collection,
		In:         &query.InCond{Field: t.idField, Values: ids},
	}
	if err := st.DeleteByQuery(ctx, spec); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}

	t.logSync(ctx, st, collection, store.OperationPurge, len(ids))
	return nil
}

// logSync appends an audit entry for a completed operation. The ledger is an
// audit trail, not a correctness mechanism: failures are logged and ignored.
func (t *Target) logSync(ctx context.Context, st store.Store, collection, operation string, count int) {
	entry := store.SyncLogEntry{
		ID:          ulid.Make().String(),
		Collection:  collection,
		Operation:   operation,
		RecordCount: count,
		CreatedAt:   time.Now().UTC(),
	}
	if err := st.AppendSyncLog(ctx, entry); err != nil {
		t.logger.Warn("sync log append failed",
			"collection", collection,
			"operation", operation,
			"error", err,
		)
	}
}
