package executor

import (
	"errors"
	"fmt"
)

// ErrMaterialization matches every *MaterializationError via errors.Is.
var ErrMaterialization = errors.New("materialization failed")

// MaterializationError reports a stored row that does not conform to its
// entity descriptor.
type MaterializationError struct {
	// Entity is the descriptor name.
	Entity string

	// Row is the index of the offending row in the result set.
	Row int

	// Field is the offending field, empty when the mapper rejected the row.
	Field string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *MaterializationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("materialize %s row %d: field %s: %v", e.Entity, e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("materialize %s row %d: %v", e.Entity, e.Row, e.Err)
}

// Unwrap returns the underlying cause.
func (e *MaterializationError) Unwrap() error {
	return e.Err
}

// Is matches ErrMaterialization.
func (e *MaterializationError) Is(target error) bool {
	return target == ErrMaterialization
}
