package valuereader

import (
	"errors"
	"fmt"
)

var (
	// ErrStructureUnsupported is returned when a structured value is read
	ErrStructureUnsupported = errors.New("reading structured values is not supported")

	// ErrArrayElementType is returned for arrays whose element type cannot be rendered
	ErrArrayElementType = errors.New("unsupported array element type")

	// ErrArrayAccessUnsupported is returned by cursors that only offer the generic array row set
	ErrArrayAccessUnsupported = errors.New("typed array access not supported")

	// ErrColumnRange is returned for column indexes outside the row
	ErrColumnRange = errors.New("column index out of range")
)

// CellReadError reports one field that could not be read. It never aborts
// a table scan; ReadRow substitutes a NULL and reports it.
type CellReadError struct {
	ID     string
	Column int
	Err    error
}

func (e *CellReadError) Error() string {
	return fmt.Sprintf("failed to read cell %s (column %d): %v", e.ID, e.Column, e.Err)
}

func (e *CellReadError) Unwrap() error {
	return e.Err
}
