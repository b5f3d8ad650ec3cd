package schema

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/derive/internal/methodname"
)

// Error code constants. Loader codes are E00x, declaration codes E1xx.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeInvalidEntity    = "E101" // Malformed entity declaration
	ErrCodeInvalidField     = "E102" // Unknown type, bad enum values
	ErrCodeInvalidMethod    = "E103" // Method name does not parse
	ErrCodeInvalidSignature = "E104" // Declared arguments do not bind
	ErrCodeNoEntities       = "E105" // Schema declares no entities
)

// Error is a schema problem with its CUE position when known.
type Error struct {
	Code    string
	Entity  string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Entity != "" {
		msg = e.Entity + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// Unwrap returns the parse or bind error behind a method problem.
func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the schema error code of err, or ErrCodeGeneric.
func CodeOf(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeGeneric
}

// methodError classifies a parse or signature failure.
func methodError(entity string, pos token.Pos, err error) *Error {
	code := ErrCodeInvalidSignature
	if methodname.IsParseError(err) {
		code = ErrCodeInvalidMethod
	}
	return &Error{Code: code, Entity: entity, Message: err.Error(), Pos: pos, Err: err}
}

// fromCUE extracts position info from CUE errors.
func fromCUE(code, entity string, err error) *Error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &Error{Code: code, Entity: entity, Message: err.Error(), Err: err}
	}

	// first error with position info
	first := errs[0]
	se := &Error{Code: code, Entity: entity, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		se.Pos = positions[0]
	}
	return se
}
