package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

var schemaDir = filepath.Join("..", "..", "testdata", "schema")

// execute runs the root command with args. stdout is returned; logs and
// verbose output are captured separately.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// writeFile writes content to name inside a fresh temp dir and returns the
// file path.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func absSchemaDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs(schemaDir)
	require.NoError(t, err)
	return dir
}
