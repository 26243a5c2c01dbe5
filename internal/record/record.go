// Package record defines the document model shared by the store and the
// sync targets. A record is an opaque JSON document plus a small set of
// well-known bookkeeping fields flagging pending local changes.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Bookkeeping fields expected in locally stored records.
const (
	// LocalField is true iff the record has any pending local change.
	LocalField = "__local__"
	// LocallyCreatedField marks a record created locally.
	LocallyCreatedField = "__locally_created__"
	// LocallyUpdatedField marks a record updated locally.
	LocallyUpdatedField = "__locally_updated__"
	// LocallyDeletedField marks a record deleted locally.
	LocallyDeletedField = "__locally_deleted__"

	// StoreKeyField carries the storage-internal key of a resident record.
	// It is injected by the store on read and stripped before persisting;
	// records freshly received from the server do not have it.
	StoreKeyField = "_storeKey"
)

var (
	// ErrFieldMissing indicates an expected field is absent from a record.
	ErrFieldMissing = errors.New("record field missing")
	// ErrFieldType indicates a field holds a value of the wrong type.
	ErrFieldType = errors.New("record field has wrong type")
)

// Record is a structured document held in the local store.
type Record map[string]any

// Bool returns the boolean value of field. A missing field or a non-boolean
// value is a malformed-record error.
func (r Record) Bool(field string) (bool, error) {
	v, ok := r[field]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, want bool", ErrFieldType, field, v)
	}
	return b, nil
}

// String returns the string value of field. A missing field or a non-string
// value is a malformed-record error.
func (r Record) String(field string) (string, error) {
	v, ok := r[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrFieldMissing, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, want string", ErrFieldType, field, v)
	}
	return s, nil
}

// StoreKey returns the storage-internal key if the record is resident in the
// local store. The second return is false for records that came from the
// server and have not been stored yet.
func (r Record) StoreKey() (int64, bool) {
	v, ok := r[StoreKeyField]
	if !ok {
		return 0, false
	}
	switch k := v.(type) {
	case int64:
		return k, true
	case int:
		return int64(k), true
	case float64:
		// JSON round-trips numbers as float64.
		return int64(k), true
	case json.Number:
		n, err := k.Int64()
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// SetStoreKey records the storage-internal key on the in-memory document.
func (r Record) SetStoreKey(key int64) {
	r[StoreKeyField] = key
}

// MarkSynced clears all divergence markers in memory. The caller is
// responsible for writing the record back to the store.
func (r Record) MarkSynced() {
	r[LocalField] = false
	r[LocallyCreatedField] = false
	r[LocallyUpdatedField] = false
	r[LocallyDeletedField] = false
}

// Clone returns a shallow copy of the record. Nested values are shared.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
