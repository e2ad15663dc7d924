package typeimport

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownStandardType is returned when a standard name has no known keyword
	ErrUnknownStandardType = errors.New("unknown standard type")

	// ErrMalformedStandardType is returned when a standard name cannot be tokenized
	ErrMalformedStandardType = errors.New("malformed standard type")
)

// Naming conventions of archived standard names.
const (
	ConventionSQL99   = "SQL:1999"
	ConventionSQL2008 = "SQL:2008"
)

// TypeResolutionError reports an archived type name that cannot be parsed.
// It is fatal for the column being discovered.
type TypeResolutionError struct {
	Convention string
	Name       string
	Original   string
	Cause      error
}

// Error implements the error interface.
func (e *TypeResolutionError) Error() string {
	if e.Original != "" {
		return fmt.Sprintf("cannot resolve %s type %q (original %q): %v", e.Convention, e.Name, e.Original, e.Cause)
	}
	return fmt.Sprintf("cannot resolve %s type %q: %v", e.Convention, e.Name, e.Cause)
}

// Unwrap returns the underlying error.
func (e *TypeResolutionError) Unwrap() error {
	return e.Cause
}
