// internal/store/store.go
package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// Error definitions
var (
	ErrNotFound     = errors.New("record not found")
	ErrUnknownTable = errors.New("unknown table")
	ErrInvalidInput = errors.New("invalid input")
)

// Error codes reported alongside store failures.
const (
	CodeNotFound   = "not_found"
	CodeBadTable   = "unknown_table"
	CodeBadColumn  = "unknown_column"
	CodeConstraint = "constraint"
	CodeQuery      = "query"
)

// Error is the per-operation failure the adapter reports to callers.
// Callers treat any non-nil error as total failure of the operation.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("store: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Record is a loosely typed row as read from or written to a table.
// The adapter imposes no schema beyond what the table itself enforces.
type Record map[string]any

// Filter restricts a Select to rows matching every entry. A string slice
// value becomes an IN clause, anything else an equality check.
type Filter map[string]any

// Order names the column a Select is sorted by.
type Order struct {
	Column string
	Desc   bool
}

// contentTables is the set of tables the generic adapter will touch.
// Anything else is a caller error, reported before any SQL runs.
var contentTables = map[string]bool{
	"accommodations": true,
	"places":         true,
	"events":         true,
	"walks":          true,
	"team_members":   true,
	"pages":          true,
	"partner_feeds":  true,
}

var identRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func checkTable(table string) *Error {
	if !contentTables[table] {
		return &Error{Code: CodeBadTable, Message: fmt.Sprintf("table %q is not a content table", table), Err: ErrUnknownTable}
	}
	return nil
}

func checkColumn(column string) *Error {
	if !identRe.MatchString(column) {
		return &Error{Code: CodeBadColumn, Message: fmt.Sprintf("invalid column name %q", column), Err: ErrInvalidInput}
	}
	return nil
}

// Select reads all rows of a table matching the filter, sorted by the
// given order. A zero Order leaves the sort to the table's natural order.
func (s *Store) Select(ctx context.Context, table string, filter Filter, order Order) ([]Record, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT * FROM %s", table)

	var args []any
	if len(filter) > 0 {
		// Deterministic clause order keeps queries stable across calls.
		keys := make([]string, 0, len(filter))
		for k := range filter {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var clauses []string
		for _, col := range keys {
			if err := checkColumn(col); err != nil {
				return nil, err
			}
			switch v := filter[col].(type) {
			case []string:
				if len(v) == 0 {
					clauses = append(clauses, "1=0")
					continue
				}
				ph := strings.TrimSuffix(strings.Repeat("?,", len(v)), ",")
				clauses = append(clauses, fmt.Sprintf("%s IN (%s)", col, ph))
				for _, s := range v {
					args = append(args, s)
				}
			default:
				clauses = append(clauses, fmt.Sprintf("%s = ?", col))
				args = append(args, v)
			}
		}
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(clauses, " AND "))
	}

	if order.Column != "" {
		if err := checkColumn(order.Column); err != nil {
			return nil, err
		}
		dir := "ASC"
		if order.Desc {
			dir = "DESC"
		}
		fmt.Fprintf(&sb, " ORDER BY %s %s", order.Column, dir)
	}

	rows, err := s.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, &Error{Code: CodeQuery, Message: fmt.Sprintf("select from %s", table), Err: err}
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, &Error{Code: CodeQuery, Message: "reading columns", Err: err}
	}

	var out []Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, &Error{Code: CodeQuery, Message: "scanning row", Err: err}
		}
		rec := make(Record, len(cols))
		for i, col := range cols {
			rec[col] = normalizeValue(values[i])
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Code: CodeQuery, Message: fmt.Sprintf("iterating %s rows", table), Err: err}
	}

	return out, nil
}

// Get reads a single row by primary key.
func (s *Store) Get(ctx context.Context, table, id string) (Record, error) {
	recs, err := s.Select(ctx, table, Filter{"id": id}, Order{})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("no row %q in %s", id, table), Err: ErrNotFound}
	}
	return recs[0], nil
}

// Insert writes a new row. The caller supplies every column it wants set,
// including the id.
func (s *Store) Insert(ctx context.Context, table string, row Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(row) == 0 {
		return &Error{Code: CodeQuery, Message: "empty row", Err: ErrInvalidInput}
	}

	cols := make([]string, 0, len(row))
	for col := range row {
		if err := checkColumn(col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	args := make([]any, len(cols))
	for i, col := range cols {
		args[i] = row[col]
	}
	ph := strings.TrimSuffix(strings.Repeat("?,", len(cols)), ",")

	_, err := s.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), ph),
		args...,
	)
	if err != nil {
		return &Error{Code: CodeConstraint, Message: fmt.Sprintf("insert into %s", table), Err: err}
	}
	return nil
}

// Update patches a single row by primary key. Missing rows are an error,
// never a silent no-op.
func (s *Store) Update(ctx context.Context, table, id string, patch Record) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(patch) == 0 {
		return &Error{Code: CodeQuery, Message: "empty patch", Err: ErrInvalidInput}
	}

	cols := make([]string, 0, len(patch))
	for col := range patch {
		if err := checkColumn(col); err != nil {
			return err
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)

	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = ?", col)
		args = append(args, patch[col])
	}
	args = append(args, id)

	res, err := s.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, strings.Join(sets, ", ")),
		args...,
	)
	if err != nil {
		return &Error{Code: CodeConstraint, Message: fmt.Sprintf("update %s", table), Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &Error{Code: CodeQuery, Message: "rows affected", Err: err}
	}
	if n == 0 {
		return &Error{Code: CodeNotFound, Message: fmt.Sprintf("no row %q in %s", id, table), Err: ErrNotFound}
	}
	return nil
}

// Delete removes a single row by primary key.
func (s *Store) Delete(ctx context.Context, table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}

	res, err := s.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return &Error{Code: CodeConstraint, Message: fmt.Sprintf("delete from %s", table), Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &Error{Code: CodeQuery, Message: "rows affected", Err: err}
	}
	if n == 0 {
		return &Error{Code: CodeNotFound, Message: fmt.Sprintf("no row %q in %s", id, table), Err: ErrNotFound}
	}
	return nil
}

// IncrementViews bumps a row's view counter without touching updated_at.
func (s *Store) IncrementViews(ctx context.Context, table, id string) error {
	if err := checkTable(table); err != nil {
		return err
	}
	exists, err := columnExists(s.DB, table, "view_count")
	if err != nil {
		return &Error{Code: CodeQuery, Message: "checking view_count column", Err: err}
	}
	if !exists {
		return nil
	}
	_, err = s.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET view_count = view_count + 1 WHERE id = ?", table), id)
	if err != nil {
		return &Error{Code: CodeQuery, Message: fmt.Sprintf("incrementing views on %s", table), Err: err}
	}
	return nil
}

// normalizeValue converts driver values into the small set of types the
// aggregation layer handles: string, int64, float64, bool, time.Time, nil.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t
	default:
		return v
	}
}

// NullableString pulls a string field out of a record, reporting whether
// it was present and non-null.
func NullableString(rec Record, key string) (string, bool) {
	v, ok := rec[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
