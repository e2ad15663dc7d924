// Package valuereader turns the fields of a live query result into cells,
// one row at a time, following the archive type of each column.
package valuereader

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
	"github.com/redbco/redb-archive/pkg/content"
	"github.com/redbco/redb-archive/pkg/logger"
	"github.com/redbco/redb-archive/pkg/report"
)

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Reader converts fields to cells. It keeps no per-row state and is safe
// for concurrent use when its reporter is.
type Reader struct {
	log      *logger.Logger
	reporter report.Reporter
}

func New(log *logger.Logger, rep report.Reporter) *Reader {
	return &Reader{log: logger.OrNop(log), reporter: report.OrNop(rep)}
}

// ReadRow reads every column of the current row. A field that cannot be
// read becomes a NULL cell and is reported; the row is never rejected.
func (r *Reader) ReadRow(t content.Table, row Row, rowIndex int64) []am.Cell {
	cells := make([]am.Cell, len(t.Columns))
	for i, col := range t.Columns {
		id := am.CellID(t.Name, i+1, rowIndex)
		loc := report.Location{Schema: t.SchemaName, Table: t.Name, Column: col.Name, Row: rowIndex}
		cell, err := r.readCell(col.Type, row, i, id, loc)
		if err != nil {
			r.log.Warnf("substituting NULL for %s: %v", loc, err)
			r.reporter.CellSubstituted(loc, err)
			cell = am.NewNullCell(id)
		}
		cells[i] = cell
	}
	return cells
}

// ReadCell reads column col of row as a cell of type t. Errors are
// *CellReadError values.
func (r *Reader) ReadCell(t am.Type, row Row, col int, id string) (am.Cell, error) {
	return r.readCell(t, row, col, id, report.Location{Column: id})
}

func (r *Reader) readCell(t am.Type, row Row, col int, id string, loc report.Location) (am.Cell, error) {
	cell, err := r.dispatch(t, row, col, id, loc)
	if err != nil {
		var cre *CellReadError
		if !errors.As(err, &cre) {
			err = &CellReadError{ID: id, Column: col + 1, Err: err}
		}
		return nil, err
	}
	return cell, nil
}

func (r *Reader) dispatch(t am.Type, row Row, col int, id string, loc report.Location) (am.Cell, error) {
	switch v := t.(type) {
	case am.SimpleBoolean:
		b, ok, err := row.Bool(col)
		if err != nil {
			return nil, err
		}
		if !ok {
			return am.NewEmptySimpleCell(id), nil
		}
		return am.NewSimpleCell(id, strconv.FormatBool(b)), nil

	case am.SimpleNumericExact:
		s, ok, err := row.String(col)
		if err != nil {
			return nil, err
		}
		if !ok {
			return am.NewEmptySimpleCell(id), nil
		}
		if plain, changed := normalizeExact(s); changed {
			r.reporter.ValueChanged(loc, s, plain, "exponent notation written as plain decimal")
			s = plain
		}
		return am.NewSimpleCell(id, s), nil

	case am.SimpleNumericApproximate, am.SimpleString:
		s, ok, err := row.String(col)
		if err != nil {
			return nil, err
		}
		if !ok {
			return am.NewEmptySimpleCell(id), nil
		}
		return am.NewSimpleCell(id, s), nil

	case am.SimpleDateTime:
		tm, ok, err := row.Time(col)
		if err != nil {
			return nil, err
		}
		if !ok {
			return am.NewEmptySimpleCell(id), nil
		}
		return am.NewSimpleCell(id, FormatDateTime(v, tm)), nil

	case am.SimpleBinary:
		src, err := row.Binary(col)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return am.NewNullCell(id), nil
		}
		if src.Size() <= 0 {
			if err := src.Release(); err != nil {
				r.log.Debugf("failed to release empty binary %s: %v", id, err)
			}
			return am.NewNullCell(id), nil
		}
		return am.NewBinaryCell(id, src), nil

	case am.ComposedArray:
		return r.readArray(v, row, col, id)

	case am.ComposedStructure:
		return nil, &CellReadError{ID: id, Column: col + 1, Err: ErrStructureUnsupported}

	case am.Unsupported:
		s, ok, err := row.String(col)
		if err != nil {
			r.log.Debugf("could not read %s of unsupported type %s: %v", id, v.Original, err)
			return am.NewNullCell(id), nil
		}
		if !ok {
			return am.NewNullCell(id), nil
		}
		return am.NewSimpleCell(id, s), nil
	}
	return nil, fmt.Errorf("no reader for type %s", am.Describe(t))
}

// FormatDateTime renders a date, time or timestamp the way the archive
// stores it. Timestamps and zoned times are normalized to UTC.
func FormatDateTime(t am.SimpleDateTime, v time.Time) string {
	switch {
	case !t.TimePart:
		return v.Format(DateLayout)
	case t.IsTimeOfDay():
		if t.TimeZone {
			v = v.UTC()
		}
		return v.Format(TimeLayout)
	}
	return v.UTC().Format(TimestampLayout)
}

// normalizeExact rewrites exponent notation as plain decimal text.
func normalizeExact(s string) (string, bool) {
	if !strings.ContainsAny(s, "eE") {
		return s, false
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return s, false
	}
	plain := d.String()
	return plain, plain != s
}

func (r *Reader) readArray(t am.ComposedArray, row Row, col int, id string) (am.Cell, error) {
	arr, err := row.Array(col)
	if err != nil {
		return nil, err
	}
	if arr == nil {
		return am.NewNullCell(id), nil
	}

	elements, err := arr.Elements()
	if errors.Is(err, ErrArrayAccessUnsupported) {
		r.log.Debugf("array %s read as text, no typed access available", id)
		return genericArray(arr, id)
	}
	if err != nil {
		return nil, err
	}

	cell := am.NewArrayCell(id)
	if err := appendElements(cell, t.Element, elements, nil, id); err != nil {
		am.Release(cell)
		return nil, err
	}
	return cell, nil
}

// genericArray builds an array of text cells from the generic row set.
func genericArray(arr Array, id string) (am.Cell, error) {
	texts, err := arr.Texts()
	if err != nil {
		return nil, err
	}
	cell := am.NewArrayCell(id)
	for i, s := range texts {
		path := []int{i + 1}
		eid := am.ElementID(id, path)
		if s.Valid {
			cell.Append(path, am.NewSimpleCell(eid, s.String))
		} else {
			cell.Append(path, am.NewNullCell(eid))
		}
	}
	return cell, nil
}

func appendElements(cell *am.ArrayCell, elem am.Type, elements []any, prefix []int, id string) error {
	for i, x := range elements {
		path := append(append([]int(nil), prefix...), i+1)
		if nested, ok := toSlice(x); ok {
			if err := appendElements(cell, elem, nested, path, id); err != nil {
				return err
			}
			continue
		}
		eid := am.ElementID(id, path)
		if x == nil {
			cell.Append(path, am.NewNullCell(eid))
			continue
		}
		s, err := renderElement(elem, x)
		if err != nil {
			return fmt.Errorf("element %s: %w", eid, err)
		}
		cell.Append(path, am.NewSimpleCell(eid, s))
	}
	return nil
}

// renderElement renders one array element of type elem. Character,
// boolean, date, integer and approximate numeric elements are supported,
// as are decimals and timestamps.
func renderElement(elem am.Type, x any) (string, error) {
	switch v := elem.(type) {
	case am.SimpleString:
		return Text(x), nil
	case am.SimpleBoolean:
		b, err := toBool(x)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(b), nil
	case am.SimpleDateTime:
		tm, err := toTime(x)
		if err != nil {
			return "", err
		}
		return FormatDateTime(v, tm), nil
	case am.SimpleNumericExact:
		s := Text(x)
		if plain, changed := normalizeExact(s); changed {
			s = plain
		}
		if v.Scale == 0 && strings.Contains(s, ".") {
			return "", fmt.Errorf("%w: %q is not an integer", ErrArrayElementType, s)
		}
		return s, nil
	case am.SimpleNumericApproximate:
		return Text(x), nil
	}
	return "", fmt.Errorf("%w: %s", ErrArrayElementType, am.Describe(elem))
}
