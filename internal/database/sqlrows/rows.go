// Package sqlrows adapts database/sql query results to the value reader.
package sqlrows

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/lib/pq"

	"github.com/redbco/redb-archive/pkg/typeimport"
	"github.com/redbco/redb-archive/pkg/valuereader"
)

// Converter rewrites a scanned driver value before it is read. It is only
// called for non-NULL values.
type Converter func(col *sql.ColumnType, v any) (any, error)

// Rows is a forward-only cursor over a database/sql result.
type Rows struct {
	rows    *sql.Rows
	cols    []*sql.ColumnType
	convert Converter
	current valuereader.Values
	err     error
}

// New wraps rows. convert may be nil.
func New(rows *sql.Rows, convert Converter) (*Rows, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to read column types: %w", err)
	}
	return &Rows{rows: rows, cols: cols, convert: convert}, nil
}

// Query runs query and wraps its result.
func Query(ctx context.Context, db *sql.DB, convert Converter, query string, args ...any) (*Rows, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return New(rows, convert)
}

func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}

	values := make([]any, len(r.cols))
	valuePtrs := make([]any, len(r.cols))
	for i := range values {
		valuePtrs[i] = &values[i]
	}
	if err := r.rows.Scan(valuePtrs...); err != nil {
		r.err = fmt.Errorf("error scanning row: %w", err)
		return false
	}

	for i, v := range values {
		if v == nil {
			continue
		}
		col := r.cols[i]
		if IsArrayType(col.DatabaseTypeName()) {
			if b, ok := v.([]byte); ok {
				v = TextArray(b)
			} else if s, ok := v.(string); ok {
				v = TextArray(s)
			}
		}
		if r.convert != nil {
			converted, err := r.convert(col, v)
			if err != nil {
				r.err = fmt.Errorf("column %s: %w", col.Name(), err)
				return false
			}
			v = converted
		}
		values[i] = v
	}
	r.current = values
	return true
}

func (r *Rows) Row() valuereader.Row { return r.current }

func (r *Rows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *Rows) Close() error { return r.rows.Close() }

// Descriptors reports the result columns for type import.
func (r *Rows) Descriptors(schema, table string) []typeimport.Descriptor {
	out := make([]typeimport.Descriptor, len(r.cols))
	for i, col := range r.cols {
		out[i] = Describe(schema, table, col)
	}
	return out
}

// Describe converts a column type into a descriptor.
func Describe(schema, table string, col *sql.ColumnType) typeimport.Descriptor {
	d := typeimport.Descriptor{
		Schema:   schema,
		Table:    table,
		Column:   col.Name(),
		Code:     CodeFor(col.DatabaseTypeName()),
		TypeName: col.DatabaseTypeName(),
		Radix:    10,
		Nullable: true,
	}
	if precision, scale, ok := col.DecimalSize(); ok {
		d.Size = clamp(precision)
		d.Scale = clamp(scale)
	} else if n, ok := col.Length(); ok {
		d.Size = clamp(n)
	}
	if nullable, ok := col.Nullable(); ok {
		d.Nullable = nullable
	}
	return d
}

func clamp(n int64) int {
	if n < 0 {
		return 0
	}
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}

// IsArrayType reports whether a driver type name denotes an array.
func IsArrayType(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasSuffix(name, "[]")
}

// TextArray is an array value in PostgreSQL literal form, as returned by
// drivers without typed array support.
type TextArray []byte

func (a TextArray) Elements() ([]any, error) {
	return nil, valuereader.ErrArrayAccessUnsupported
}

func (a TextArray) Texts() ([]sql.NullString, error) {
	var out []sql.NullString
	if err := (pq.GenericArray{A: &out}).Scan([]byte(a)); err != nil {
		return nil, fmt.Errorf("failed to parse array literal: %w", err)
	}
	return out, nil
}

// QuoteIdentifier quotes name with double quotes.
func QuoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SelectAll builds a query reading every column of a table in column order.
func SelectAll(quote func(string) string, schema, table string) string {
	if schema == "" {
		return "SELECT * FROM " + quote(table)
	}
	return "SELECT * FROM " + quote(schema) + "." + quote(table)
}
