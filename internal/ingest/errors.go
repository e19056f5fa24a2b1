package ingest

import (
	"fmt"
)

// ValidationError attributes a rejected row (or header) to a single field.
type ValidationError struct {
	Line    int
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("line %d: %s: %s (got %q)", e.Line, e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Field, e.Message)
}

// RowError is a row that was read but not persisted.
type RowError struct {
	Line      int
	StudentID string
	Err       error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
