package valuereader

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	am "github.com/redbco/redb-archive/pkg/archivemodel"
)

// Row is the current row of a query result. Column indexes are 0-based.
// Accessors report SQL NULL through their ok result.
type Row interface {
	Bool(col int) (v bool, ok bool, err error)
	String(col int) (v string, ok bool, err error)
	Time(col int) (v time.Time, ok bool, err error)
	// Binary returns nil for NULL. The caller releases the source.
	Binary(col int) (am.BinarySource, error)
	// Array returns nil for NULL.
	Array(col int) (Array, error)
}

// Array is an array value of the current row.
type Array interface {
	// Elements returns the elements in index order. Nested slices hold
	// further dimensions and nil elements are NULL. Cursors without typed
	// access return ErrArrayAccessUnsupported.
	Elements() ([]any, error)
	// Texts returns the elements as text, one per row of the generic
	// array row set.
	Texts() ([]sql.NullString, error)
}

// Values is a Row over driver values, as returned by pgx's Rows.Values or
// scanned from database/sql into []any.
type Values []any

func (v Values) at(col int) (any, error) {
	if col < 0 || col >= len(v) {
		return nil, fmt.Errorf("%w: %d of %d", ErrColumnRange, col, len(v))
	}
	return v[col], nil
}

func (v Values) Bool(col int) (bool, bool, error) {
	x, err := v.at(col)
	if err != nil || x == nil {
		return false, false, err
	}
	b, err := toBool(x)
	if err != nil {
		return false, false, err
	}
	return b, true, nil
}

func (v Values) String(col int) (string, bool, error) {
	x, err := v.at(col)
	if err != nil || x == nil {
		return "", false, err
	}
	return Text(x), true, nil
}

func (v Values) Time(col int) (time.Time, bool, error) {
	x, err := v.at(col)
	if err != nil || x == nil {
		return time.Time{}, false, err
	}
	t, err := toTime(x)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

func (v Values) Binary(col int) (am.BinarySource, error) {
	x, err := v.at(col)
	if err != nil || x == nil {
		return nil, err
	}
	switch b := x.(type) {
	case am.BinarySource:
		return b, nil
	case []byte:
		return am.NewBytesSource(b), nil
	case string:
		return am.NewBytesSource([]byte(b)), nil
	}
	return nil, fmt.Errorf("cannot read %T as binary", x)
}

func (v Values) Array(col int) (Array, error) {
	x, err := v.at(col)
	if err != nil || x == nil {
		return nil, err
	}
	if a, ok := x.(Array); ok {
		return a, nil
	}
	if s, ok := toSlice(x); ok {
		return SliceArray(s), nil
	}
	return nil, fmt.Errorf("cannot read %T as array", x)
}

// SliceArray is an Array over Go values.
type SliceArray []any

func (a SliceArray) Elements() ([]any, error) {
	return a, nil
}

func (a SliceArray) Texts() ([]sql.NullString, error) {
	out := make([]sql.NullString, len(a))
	for i, x := range a {
		if x != nil {
			out[i] = sql.NullString{String: Text(x), Valid: true}
		}
	}
	return out, nil
}

// toSlice widens the typed slices drivers return for arrays.
func toSlice(x any) ([]any, bool) {
	switch s := x.(type) {
	case []any:
		return s, true
	case []string:
		return widen(s), true
	case []bool:
		return widen(s), true
	case []int16:
		return widen(s), true
	case []int32:
		return widen(s), true
	case []int64:
		return widen(s), true
	case []int:
		return widen(s), true
	case []float32:
		return widen(s), true
	case []float64:
		return widen(s), true
	case []time.Time:
		return widen(s), true
	case []decimal.Decimal:
		return widen(s), true
	}
	return nil, false
}

func widen[T any](s []T) []any {
	out := make([]any, len(s))
	for i, x := range s {
		out[i] = x
	}
	return out
}

// Text renders a driver value in its canonical textual form.
func Text(x any) string {
	switch v := x.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case decimal.Decimal:
		return v.String()
	case time.Time:
		return v.Format(time.RFC3339Nano)
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(x)
}

func toBool(x any) (bool, error) {
	switch v := x.(type) {
	case bool:
		return v, nil
	case int64:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int:
		return v != 0, nil
	case int16:
		return v != 0, nil
	case int8:
		return v != 0, nil
	case uint64:
		return v != 0, nil
	case uint8:
		return v != 0, nil
	case []byte:
		return parseBool(string(v))
	case string:
		return parseBool(v)
	}
	return false, fmt.Errorf("cannot read %T as boolean", x)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "1", "y", "yes", "on":
		return true, nil
	case "f", "false", "0", "n", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
	"15:04:05.999999999Z07:00",
	"15:04:05.999999999Z07",
	"15:04:05.999999999",
}

func toTime(x any) (time.Time, error) {
	switch v := x.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTime(string(v))
	case string:
		return parseTime(v)
	}
	return time.Time{}, fmt.Errorf("cannot read %T as time", x)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}
