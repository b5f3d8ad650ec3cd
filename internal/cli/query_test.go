package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/derive/internal/compiler"
	"github.com/roach88/derive/internal/entity"
)

const usersData = `
User:
  - email: alice@x.com
    status: active
    name: Alice
    createdAt: 2024-01-01T00:01:00Z
  - email: bob@y.com
    status: active
    createdAt: 2024-01-01T00:02:00Z
  - email: carol@y.com
    status: disabled
    name: Carol
    createdAt: 2024-01-01T00:03:00Z
`

// query runs the query command on the memory backend seeded with usersData.
func query(t *testing.T, args ...string) (string, error) {
	t.Helper()
	data := writeFile(t, "users.yaml", usersData)
	out, _, err := execute(t, append([]string{"--schema", schemaDir, "query", "--data", data}, args...)...)
	return out, err
}

func TestQuery_Find(t *testing.T) {
	out, err := query(t, "User", "findByEmail", "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t,
		`id=1 email="alice@x.com" status="active" name="Alice" createdAt=2024-01-01T00:01:00Z`+"\n(1 rows)\n",
		out)
}

func TestQuery_Actions(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"in list", []string{"User", "findByStatusIn", "active,disabled"}, "(3 rows)"},
		{"empty in list", []string{"User", "findByStatusIn", ""}, "(0 rows)"},
		{"undeclared method", []string{"User", "findByNameIsNull"}, `email="bob@y.com" status="active" name=null`},
		{"null argument", []string{"User", "findByName", "null"}, "(1 rows)"},
		{"top with order", []string{"User", "findTop10ByCreatedAtGreaterThanOrderByCreatedAtDesc", "2024-01-01T00:01:00Z"},
			"id=3 email=\"carol@y.com\""},
		{"count", []string{"User", "countByStatus", "active"}, "count: 2"},
		{"exists", []string{"User", "existsByEmail", "nobody@x.com"}, "exists: false"},
		{"delete", []string{"User", "deleteByStatus", "disabled"}, "deleted: 1"},
		{"number argument", []string{"User", "findById", "2"}, `email="bob@y.com"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := query(t, tc.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tc.want)
		})
	}
}

func TestQuery_JSON(t *testing.T) {
	out, err := query(t, "--format", "json", "User", "findByStatusAndEmail", "active", "bob@y.com")
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Entity string           `json:"entity"`
			Rows   []map[string]any `json:"rows"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data.Rows, 1)
	assert.Equal(t, "bob@y.com", resp.Data.Rows[0]["email"])
	assert.Nil(t, resp.Data.Rows[0]["name"])
	assert.Equal(t, "2024-01-01T00:02:00Z", resp.Data.Rows[0]["createdAt"])
}

func TestQuery_CountJSON(t *testing.T) {
	out, err := query(t, "--format", "json", "User", "countByStatus", "disabled")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, float64(1), data["count"])
	assert.NotContains(t, data, "rows")
}

func TestQuery_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"parse error", []string{"User", "findByPhone", "x"}, ErrCodeParse},
		{"argument count", []string{"User", "findByEmail"}, ErrCodeArgument},
		{"bad number", []string{"User", "findById", "abc"}, ErrCodeArgument},
		{"bad date", []string{"User", "findByCreatedAtLessThan", "yesterday"}, ErrCodeArgument},
		{"enum value", []string{"User", "countByStatus", "banned"}, ErrCodeBind},
		{"null for non-nullable", []string{"User", "findByEmail", "null"}, ErrCodeBind},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, err := query(t, tc.args...)
			require.Error(t, err)
			assert.Equal(t, ExitFailure, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tc.code+"]")
		})
	}
}

func TestQuery_SQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "users.db")
	data := writeFile(t, "users.yaml", usersData)

	out, _, err := execute(t, "--schema", schemaDir, "query", "--backend", "sqlite", "--dsn", dsn,
		"--data", data, "User", "countByStatus", "active")
	require.NoError(t, err)
	assert.Equal(t, "count: 2\n", out)

	// rows persist across invocations
	out, _, err = execute(t, "--schema", schemaDir, "query", "--backend", "sqlite", "--dsn", dsn,
		"User", "findByEmail", "carol@y.com")
	require.NoError(t, err)
	assert.Equal(t,
		`id=3 email="carol@y.com" status="disabled" name="Carol" createdAt=2024-01-01T00:03:00Z`+"\n(1 rows)\n",
		out)
}

func TestQuery_BackendErrors(t *testing.T) {
	out, _, err := execute(t, "--schema", schemaDir, "query", "--backend", "sqlite", "User", "findByEmail", "x")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeConfig)

	out, _, err = execute(t, "--schema", schemaDir, "query", "--data", filepath.Join(t.TempDir(), "absent.yaml"),
		"User", "findByEmail", "x")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeBackend)
}

func TestParseArg(t *testing.T) {
	v, err := parseScalar("number", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = parseScalar("number", "2.5")
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	v, err = parseScalar("boolean", "true")
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = parseScalar("date", "2024-01-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", v)

	_, err = parseScalar("boolean", "yes")
	assert.Error(t, err)

	v, err = parseArg(compiler.ArgType{Type: entity.TypeString}, "null")
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = parseArg(compiler.ArgType{Type: entity.TypeString}, `\null`)
	require.NoError(t, err)
	assert.Equal(t, "null", v)

	_, err = parseArg(compiler.ArgType{Type: entity.TypeNumber}, `\null`)
	assert.Error(t, err)
}
