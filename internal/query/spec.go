// Package query describes structured queries against the local record store
// and compiles them to parameterized SQLite SQL.
//
// Specs are deliberately small: equality and IN predicates over document
// fields, an ascending order field, and a page size. Document fields are
// addressed through json_extract; every value is bound, never interpolated.
package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidSpec is returned when a spec cannot be compiled.
var ErrInvalidSpec = errors.New("invalid query spec")

// Cond is an equality predicate on a document field.
type Cond struct {
	Field string
	Value any
}

// InCond is a membership predicate on a document field.
type InCond struct {
	Field  string
	Values []string
}

// Spec describes a query over one collection.
//
// If Fields is non-empty, the query projects those document fields in order;
// otherwise it returns whole documents together with their store keys.
// Where conditions are ANDed. OrderBy, when set, orders ascending by that
// document field; results are paged by PageSize.
type Spec struct {
	Collection string
	Fields     []string
	Where      []Cond
	In         *InCond
	OrderBy    string
	PageSize   int
}

// SelectSQL compiles the spec to a SELECT statement for the given zero-based
// page index.
func (s Spec) SelectSQL(pageIndex int) (string, []any, error) {
	if err := s.validate(); err != nil {
		return "", nil, err
	}
	if pageIndex < 0 {
		return "", nil, fmt.Errorf("%w: negative page index %d", ErrInvalidSpec, pageIndex)
	}
	if s.PageSize <= 0 {
		return "", nil, fmt.Errorf("%w: page size must be positive, got %d", ErrInvalidSpec, s.PageSize)
	}

	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if len(s.Fields) == 0 {
		b.WriteString("store_key, doc")
	} else {
		for i, f := range s.Fields {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("json_extract(doc, ?)")
			args = append(args, docPath(f))
		}
	}
	b.WriteString(" FROM records")

	where, whereArgs := s.whereSQL()
	b.WriteString(where)
	args = append(args, whereArgs...)

	if s.OrderBy != "" {
		b.WriteString(" ORDER BY json_extract(doc, ?) ASC")
		args = append(args, docPath(s.OrderBy))
	}

	b.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, s.PageSize, pageIndex*s.PageSize)

	return b.String(), args, nil
}

// DeleteSQL compiles the spec to a DELETE statement. Matching rows are
// deleted by store key so the predicate is evaluated once.
func (s Spec) DeleteSQL() (string, []any, error) {
	if err := s.validate(); err != nil {
		return "", nil, err
	}

	where, args := s.whereSQL()
	sql := "DELETE FROM records WHERE store_key IN (SELECT store_key FROM records" + where + ")"
	return sql, args, nil
}

func (s Spec) validate() error {
	if s.Collection == "" {
		return fmt.Errorf("%w: collection required", ErrInvalidSpec)
	}
	if s.In != nil && len(s.In.Values) == 0 {
		return fmt.Errorf("%w: empty IN predicate", ErrInvalidSpec)
	}
	return nil
}

func (s Spec) whereSQL() (string, []any) {
	conds := []string{"collection = ?"}
	args := []any{s.Collection}

	for _, c := range s.Where {
		conds = append(conds, "json_extract(doc, ?) = ?")
		args = append(args, docPath(c.Field), sqlValue(c.Value))
	}

	if s.In != nil {
		placeholders := strings.Repeat("?, ", len(s.In.Values)-1) + "?"
		conds = append(conds, fmt.Sprintf("json_extract(doc, ?) IN (%s)", placeholders))
		args = append(args, docPath(s.In.Field))
		for _, v := range s.In.Values {
			args = append(args, v)
		}
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

// docPath returns the json_extract path expression for a document field.
func docPath(field string) string {
	return "$." + field
}

// sqlValue maps Go values to their SQLite representation. JSON booleans are
// surfaced by json_extract as 0/1 integers, so boolean predicates must bind
// integers to match.
func sqlValue(v any) any {
	if b, ok := v.(bool); ok {
		if b {
			return 1
		}
		return 0
	}
	return v
}
