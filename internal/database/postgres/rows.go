// Package postgres reads PostgreSQL tables through pgx for archiving.
package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redbco/redb-archive/internal/database/sqlrows"
	"github.com/redbco/redb-archive/pkg/typeimport"
	"github.com/redbco/redb-archive/pkg/valuereader"
)

// Rows is a forward-only cursor over a pgx result.
type Rows struct {
	rows    pgx.Rows
	fields  []pgconn.FieldDescription
	names   []string
	current valuereader.Values
	err     error
}

// New wraps rows, resolving column type names through the connection's
// type map.
func New(rows pgx.Rows) *Rows {
	fields := rows.FieldDescriptions()
	var types *pgtype.Map
	if conn := rows.Conn(); conn != nil {
		types = conn.TypeMap()
	}
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = TypeName(types, f.DataTypeOID)
	}
	return &Rows{rows: rows, fields: fields, names: names}
}

// Query runs query on pool and wraps its result.
func Query(ctx context.Context, pool *pgxpool.Pool, query string, args ...any) (*Rows, error) {
	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	return New(rows), nil
}

// QueryTable reads every row of a table.
func QueryTable(ctx context.Context, pool *pgxpool.Pool, schema, table string) (*Rows, error) {
	return Query(ctx, pool, sqlrows.SelectAll(sqlrows.QuoteIdentifier, schema, table))
}

func (r *Rows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	values, err := r.rows.Values()
	if err != nil {
		r.err = fmt.Errorf("error reading row: %w", err)
		return false
	}
	raw := r.rows.RawValues()
	for i, v := range values {
		if v == nil {
			continue
		}
		f := r.fields[i]
		if f.DataTypeOID == pgtype.JSONOID || f.DataTypeOID == pgtype.JSONBOID {
			values[i] = jsonText(raw[i], f)
			continue
		}
		values[i] = Normalize(v)
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

func (r *Rows) Close() error {
	r.rows.Close()
	return nil
}

// Descriptors reports the result columns for type import. pgx does not
// report nullability, so every column is treated as nullable.
func (r *Rows) Descriptors(schema, table string) []typeimport.Descriptor {
	out := make([]typeimport.Descriptor, len(r.fields))
	for i, f := range r.fields {
		out[i] = Describe(schema, table, f, r.names[i])
	}
	return out
}

// Describe converts a field description into a descriptor. Lengths and
// precisions come from the type modifier.
func Describe(schema, table string, f pgconn.FieldDescription, typeName string) typeimport.Descriptor {
	d := typeimport.Descriptor{
		Schema:   schema,
		Table:    table,
		Column:   f.Name,
		Code:     sqlrows.CodeFor(typeName),
		TypeName: typeName,
		Radix:    10,
		Nullable: true,
	}
	mod := f.TypeModifier
	switch f.DataTypeOID {
	case pgtype.VarcharOID, pgtype.BPCharOID:
		if mod >= 4 {
			d.Size = int(mod - 4)
		}
	case pgtype.NumericOID:
		if mod >= 4 {
			d.Size = int(((mod - 4) >> 16) & 0xffff)
			d.Scale = int((mod - 4) & 0xffff)
		}
	case pgtype.BitOID, pgtype.VarbitOID:
		if mod > 0 {
			d.Size = int(mod)
		}
	}
	return d
}

// TypeName resolves an OID to its type name.
func TypeName(types *pgtype.Map, oid uint32) string {
	if types != nil {
		if t, ok := types.TypeForOID(oid); ok {
			return t.Name
		}
	}
	return "oid" + strconv.FormatUint(uint64(oid), 10)
}

func jsonText(raw []byte, f pgconn.FieldDescription) string {
	// Binary jsonb carries a one byte version prefix.
	if f.DataTypeOID == pgtype.JSONBOID && f.Format == pgx.BinaryFormatCode && len(raw) > 0 {
		raw = raw[1:]
	}
	return string(raw)
}

var midnight = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Normalize converts pgx values without a natural textual form.
func Normalize(v any) any {
	switch x := v.(type) {
	case [16]byte:
		return uuid.UUID(x).String()
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		s, err := x.Value()
		if err != nil {
			return nil
		}
		return s
	case pgtype.Time:
		if !x.Valid {
			return nil
		}
		return midnight.Add(time.Duration(x.Microseconds) * time.Microsecond)
	case pgtype.Interval:
		if !x.Valid {
			return nil
		}
		return FormatInterval(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			if e != nil {
				out[i] = Normalize(e)
			}
		}
		return out
	}
	return v
}

// FormatInterval renders an interval as an ISO 8601 duration.
func FormatInterval(iv pgtype.Interval) string {
	var b strings.Builder
	b.WriteString("P")
	if years := iv.Months / 12; years != 0 {
		b.WriteString(strconv.Itoa(int(years)) + "Y")
	}
	if months := iv.Months % 12; months != 0 {
		b.WriteString(strconv.Itoa(int(months)) + "M")
	}
	if iv.Days != 0 {
		b.WriteString(strconv.Itoa(int(iv.Days)) + "D")
	}
	if iv.Microseconds != 0 {
		d := time.Duration(iv.Microseconds) * time.Microsecond
		b.WriteString("T")
		if h := int64(d / time.Hour); h != 0 {
			b.WriteString(strconv.FormatInt(h, 10) + "H")
			d -= time.Duration(h) * time.Hour
		}
		if m := int64(d / time.Minute); m != 0 {
			b.WriteString(strconv.FormatInt(m, 10) + "M")
			d -= time.Duration(m) * time.Minute
		}
		if d != 0 {
			b.WriteString(strconv.FormatFloat(d.Seconds(), 'f', -1, 64) + "S")
		}
	}
	if b.Len() == 1 {
		b.WriteString("T0S")
	}
	return b.String()
}
