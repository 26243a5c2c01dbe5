package store

import "errors"

var (
	// ErrNotFound indicates no record exists for the given key.
	ErrNotFound = errors.New("record not found")
	// ErrNoTransaction indicates a transactional write was attempted
	// without an open transaction.
	ErrNoTransaction = errors.New("no open transaction")
)
