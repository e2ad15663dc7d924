package content

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTable is returned when rows are written without an open table
	ErrNoTable = errors.New("no table open")

	// ErrTableOpen is returned when a table is opened before the previous one is closed
	ErrTableOpen = errors.New("a table is already open")

	// ErrRowShape is returned when a row does not have one cell per column
	ErrRowShape = errors.New("row does not match table columns")

	// ErrDigestMismatch is the sentinel behind DigestMismatchError
	ErrDigestMismatch = errors.New("digest mismatch")

	// ErrMalformedContent is returned for table bodies the decoder cannot read
	ErrMalformedContent = errors.New("malformed table content")
)

// Coordinates locate one cell of the archive. Path is set for array elements.
type Coordinates struct {
	Schema int
	Table  int
	Column int
	Row    int64
	Path   []int
}

func (c Coordinates) String() string {
	s := fmt.Sprintf("schema%d/table%d/c%d/row%d", c.Schema, c.Table, c.Column, c.Row)
	if len(c.Path) > 0 {
		parts := make([]string, len(c.Path))
		for i, p := range c.Path {
			parts[i] = fmt.Sprint(p)
		}
		s += "[" + strings.Join(parts, ",") + "]"
	}
	return s
}

// LobError reports an I/O failure while moving a large object. It is fatal
// for the table being processed.
type LobError struct {
	At   Coordinates
	File string
	Op   string
	Err  error
}

func (e *LobError) Error() string {
	return fmt.Sprintf("large object %s at %s: %s: %v", e.File, e.At, e.Op, e.Err)
}

func (e *LobError) Unwrap() error {
	return e.Err
}

// DigestMismatchError reports a stored object whose content no longer
// matches the recorded digest.
type DigestMismatchError struct {
	At        Coordinates
	File      string
	Algorithm string
	Expected  string
	Actual    string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("%s digest mismatch for %s at %s: recorded %s, computed %s",
		e.Algorithm, e.File, e.At, e.Expected, e.Actual)
}

// Is matches ErrDigestMismatch.
func (e *DigestMismatchError) Is(target error) bool {
	return target == ErrDigestMismatch
}
