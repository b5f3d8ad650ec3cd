package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/repository"
	"github.com/roach88/derive/internal/schema"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Validation failure or a method that does not parse or bind
	ExitCommandError = 2 // Command error (bad config, missing schema, backend unreachable)
)

// Error codes of the CLI. E0xx and E1xx come from schema loading; E2xx
// are raised by the commands themselves.
const (
	ErrCodeConfig        = "E201"
	ErrCodeUnknownEntity = "E202"
	ErrCodeParse         = "E203"
	ErrCodeBind          = "E204"
	ErrCodeArgument      = "E205"
	ErrCodeBackend       = "E206"
	ErrCodeQuery         = "E207"
	ErrCodeGenerate      = "E208"
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string
	Err     error // optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output, defaults to Writer
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E203", ...
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. text is
// what the text format prints.
func (f *OutputFormatter) Success(data any, text string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// VerboseLog outputs a message only if verbose mode is enabled.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err and returns the ExitError the command should return.
// code is used when err carries no code of its own.
func (f *OutputFormatter) Fail(exit int, code string, err error) error {
	code, details := classify(code, err)
	_ = f.Error(code, err.Error(), details)
	return WrapExitError(exit, code, err)
}

// classify picks the most specific code for err, with structured details
// for parse and bind failures.
func classify(fallback string, err error) (string, any) {
	if code := schema.CodeOf(err); code != schema.ErrCodeGeneric {
		return code, nil
	}

	var (
		pe *methodname.ParseError
		be *compiler.BindError
	)
	switch {
	case errors.As(err, &pe):
		return ErrCodeParse, map[string]any{"kind": pe.Kind, "token": pe.Token, "offset": pe.Offset}
	case errors.As(err, &be):
		return ErrCodeBind, map[string]any{"code": be.Code, "field": be.Field, "arg_index": be.ArgIndex}
	case errors.Is(err, repository.ErrActionMismatch):
		return ErrCodeBind, nil
	}
	return fallback, nil
}
