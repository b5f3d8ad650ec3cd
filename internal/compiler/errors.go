package compiler

import (
	"errors"
	"fmt"
)

// BindErrorCode categorizes bind errors.
type BindErrorCode string

const (
	// ErrCodeArgumentCountMismatch indicates the number of supplied (or
	// declared) arguments differs from the number the method consumes.
	ErrCodeArgumentCountMismatch BindErrorCode = "ARGUMENT_COUNT_MISMATCH"

	// ErrCodeTypeMismatch indicates an argument cannot be bound to the
	// field it is compared against.
	ErrCodeTypeMismatch BindErrorCode = "TYPE_MISMATCH"
)

// BindError reports why arguments cannot be bound to a derived method.
type BindError struct {
	// Code identifies the error category.
	Code BindErrorCode

	// Entity and Method identify the derived method.
	Entity string
	Method string

	// Field and ArgIndex locate a type mismatch. ArgIndex is -1 for
	// count mismatches.
	Field    string
	ArgIndex int

	// Message is a human-readable description.
	Message string

	// Err is the underlying coercion error, if any.
	Err error
}

// Error implements the error interface.
func (e *BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s.%s: argument %d (%s): %s", e.Code, e.Entity, e.Method, e.ArgIndex, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Entity, e.Method, e.Message)
}

// Unwrap returns the underlying coercion error.
func (e *BindError) Unwrap() error {
	return e.Err
}

// IsArgumentCountMismatch returns true if err is or wraps a count mismatch.
func IsArgumentCountMismatch(err error) bool {
	var be *BindError
	if errors.As(err, &be) {
		return be.Code == ErrCodeArgumentCountMismatch
	}
	return false
}

// IsTypeMismatch returns true if err is or wraps a type mismatch.
func IsTypeMismatch(err error) bool {
	var be *BindError
	if errors.As(err, &be) {
		return be.Code == ErrCodeTypeMismatch
	}
	return false
}
