package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/methodname"
	"github.com/roach88/derive/internal/repository"
	"github.com/roach88/derive/internal/schema"
)

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "boom"))))
}

func TestExitError_Format(t *testing.T) {
	err := WrapExitError(ExitFailure, "E203", errors.New("bad name"))
	assert.Equal(t, "E203: bad name", err.Error())
	assert.Equal(t, "E203", NewExitError(ExitFailure, "E203").Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"parse", &methodname.ParseError{Kind: methodname.KindUnknownField, Token: "Phone"}, ErrCodeParse},
		{"bind", &compiler.BindError{Code: compiler.ErrCodeTypeMismatch}, ErrCodeBind},
		{"action", fmt.Errorf("x: %w", repository.ErrActionMismatch), ErrCodeBind},
		{"schema", &schema.Error{Code: schema.ErrCodeNoFiles, Message: "none"}, schema.ErrCodeNoFiles},
		{"schema wrapping parse", &schema.Error{Code: schema.ErrCodeInvalidMethod, Err: &methodname.ParseError{}}, schema.ErrCodeInvalidMethod},
		{"other", errors.New("disk full"), ErrCodeBackend},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, _ := classify(ErrCodeBackend, tc.err)
			assert.Equal(t, tc.want, code)
		})
	}
}

func TestOutputFormatter_Text(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "text", Writer: &buf}

	require.NoError(t, f.Success(map[string]int{"n": 1}, "count: 1"))
	require.NoError(t, f.Error("E207", "query failed", "ignored without verbose"))
	assert.Equal(t, "count: 1\nError [E207]: query failed\n", buf.String())
}

func TestOutputFormatter_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &buf}

	err := f.Fail(ExitCommandError, ErrCodeQuery, errors.New("connection refused"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeQuery, resp.Error.Code)
	assert.Equal(t, "connection refused", resp.Error.Message)
}

func TestOutputFormatter_VerboseGoesToErrWriter(t *testing.T) {
	var out, errOut bytes.Buffer
	f := &OutputFormatter{Format: "json", Writer: &out, ErrWriter: &errOut, Verbose: true}

	f.VerboseLog("loaded %d", 2)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 2\n", errOut.String())
}
