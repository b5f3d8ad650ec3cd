package methodname

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes parse errors.
type ErrorKind string

const (
	// KindUnknownField indicates a token where a field was expected matched no field.
	KindUnknownField ErrorKind = "UnknownField"

	// KindUnknownOperator indicates a token after a field is neither an
	// operator, a connective nor an ordering clause.
	KindUnknownOperator ErrorKind = "UnknownOperator"

	// KindMalformedName indicates the name does not follow the grammar at all
	// (unknown prefix, dangling connective, empty ordering clause).
	KindMalformedName ErrorKind = "MalformedName"
)

// Sentinels for errors.Is matching against a *ParseError.
var (
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownOperator = errors.New("unknown operator")
	ErrMalformedName   = errors.New("malformed method name")
)

// ParseError reports why a derived method name cannot be parsed.
type ParseError struct {
	// Kind identifies the error category.
	Kind ErrorKind

	// Entity and Method identify what was being parsed.
	Entity string
	Method string

	// Token is the offending token, empty at end of input.
	Token string

	// Offset is the byte offset of Token within Method.
	Offset int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s.%s: %s at offset %d (%q)", e.Kind, e.Entity, e.Method, e.Message, e.Offset, e.Token)
	}
	return fmt.Sprintf("%s: %s.%s: %s", e.Kind, e.Entity, e.Method, e.Message)
}

// Is matches the sentinel for the error's kind.
func (e *ParseError) Is(target error) bool {
	switch e.Kind {
	case KindUnknownField:
		return target == ErrUnknownField
	case KindUnknownOperator:
		return target == ErrUnknownOperator
	case KindMalformedName:
		return target == ErrMalformedName
	}
	return false
}

// IsParseError returns true if err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
