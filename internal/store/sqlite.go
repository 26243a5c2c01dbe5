package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hyperengineering/drift/internal/query"
	"github.com/hyperengineering/drift/internal/record"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the SQLite-backed local record store.
//
// Records are stored as JSON documents keyed by an autoincrement store key.
// A single explicit transaction may be open at a time; txMu is acquired by
// BeginTransaction and released by EndTransaction, giving the transaction
// holder exclusive access to the store's transactional context for the full
// duration of a batch.
type SQLiteStore struct {
	db *sql.DB

	txMu sync.Mutex
	tx   *sql.Tx
	txOK bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the store at dbPath.
// It initializes the database with WAL mode, applies pragmas, and runs
// migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// execer selects the write path: the open transaction when inTx is set,
// the plain connection otherwise.
func (s *SQLiteStore) execer(inTx bool) (dbtx, error) {
	if !inTx {
		return s.db, nil
	}
	if s.tx == nil {
		return nil, ErrNoTransaction
	}
	return s.tx, nil
}

// BeginTransaction opens an explicit transaction and takes exclusive access
// to the store's transactional context. It blocks until any in-flight
// transaction completes.
func (s *SQLiteStore) BeginTransaction(ctx context.Context) error {
	s.txMu.Lock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.txMu.Unlock()
		return fmt.Errorf("begin transaction: %w", err)
	}

	s.tx = tx
	s.txOK = false
	return nil
}

// SetTransactionSuccessful marks the open transaction for commit.
func (s *SQLiteStore) SetTransactionSuccessful() error {
	if s.tx == nil {
		return ErrNoTransaction
	}
	s.txOK = true
	return nil
}

// EndTransaction commits the open transaction if it was marked successful,
// rolls it back otherwise, and releases exclusive access in either case.
func (s *SQLiteStore) EndTransaction() error {
	if s.tx == nil {
		return ErrNoTransaction
	}

	tx, ok := s.tx, s.txOK
	s.tx = nil
	s.txOK = false
	defer s.txMu.Unlock()

	if ok {
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// Query runs a structured query and returns the rows of its pageIndex-th
// page, in the spec's order.
func (s *SQLiteStore) Query(ctx context.Context, spec query.Spec, pageIndex int) ([]Row, error) {
	sqlText, args, err := spec.SelectSQL(pageIndex)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	out := make([]Row, 0)
	for rows.Next() {
		vals := make(Row, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return out, nil
}

// Retrieve loads a record by its store key. The returned document carries
// the store key.
func (s *SQLiteStore) Retrieve(ctx context.Context, collection string, storeKey int64) (record.Record, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM records WHERE collection = ? AND store_key = ?`,
		collection, storeKey).Scan(&doc)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("retrieve record: %w", err)
	}

	rec, err := unmarshalDoc(doc)
	if err != nil {
		return nil, err
	}
	rec.SetStoreKey(storeKey)
	return rec, nil
}

// Update writes a record in place by its store key.
func (s *SQLiteStore) Update(ctx context.Context, collection string, rec record.Record, storeKey int64, inTx bool) error {
	ex, err := s.execer(inTx)
	if err != nil {
		return err
	}

	doc, err := marshalDoc(rec)
	if err != nil {
		return err
	}

	result, err := ex.ExecContext(ctx,
		`UPDATE records SET doc = ?, updated_at = ? WHERE collection = ? AND store_key = ?`,
		doc, nowString(), collection, storeKey)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or updates a record keyed by the value of idField in its
// document. The record's store key is set on the in-memory document and
// returned.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, rec record.Record, idField string, inTx bool) (int64, error) {
	ex, err := s.execer(inTx)
	if err != nil {
		return 0, err
	}

	id, err := rec.String(idField)
	if err != nil {
		return 0, fmt.Errorf("upsert key: %w", err)
	}

	doc, err := marshalDoc(rec)
	if err != nil {
		return 0, err
	}

	var storeKey int64
	err = ex.QueryRowContext(ctx,
		`SELECT store_key FROM records WHERE collection = ? AND json_extract(doc, ?) = ?`,
		collection, "$."+idField, id).Scan(&storeKey)
	switch {
	case err == sql.ErrNoRows:
		now := nowString()
		result, err := ex.ExecContext(ctx,
			`INSERT INTO records (collection, doc, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			collection, doc, now, now)
		if err != nil {
			return 0, fmt.Errorf("insert record: %w", err)
		}
		storeKey, err = result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("get last insert id: %w", err)
		}
	case err != nil:
		return 0, fmt.Errorf("lookup record by %s: %w", idField, err)
	default:
		if _, err := ex.ExecContext(ctx,
			`UPDATE records SET doc = ?, updated_at = ? WHERE store_key = ?`,
			doc, nowString(), storeKey); err != nil {
			return 0, fmt.Errorf("update record: %w", err)
		}
	}

	rec.SetStoreKey(storeKey)
	return storeKey, nil
}

// Delete removes a record by its store key. Deleting an absent key is not an
// error.
func (s *SQLiteStore) Delete(ctx context.Context, collection string, storeKey int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE collection = ? AND store_key = ?`,
		collection, storeKey)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// DeleteByQuery removes every record matched by the spec in one statement.
func (s *SQLiteStore) DeleteByQuery(ctx context.Context, spec query.Spec) error {
	sqlText, args, err := spec.DeleteSQL()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("delete by query: %w", err)
	}
	return nil
}

// Collections lists the collections that currently hold records.
func (s *SQLiteStore) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT collection FROM records ORDER BY collection ASC`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// CountRecords returns the number of records in a collection.
func (s *SQLiteStore) CountRecords(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE collection = ?`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

// marshalDoc serializes a record without its store key; the key lives in its
// own column and is reinjected on read.
func marshalDoc(rec record.Record) (string, error) {
	if _, ok := rec[record.StoreKeyField]; ok {
		rec = rec.Clone()
		delete(rec, record.StoreKeyField)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

func unmarshalDoc(doc string) (record.Record, error) {
	var rec record.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
