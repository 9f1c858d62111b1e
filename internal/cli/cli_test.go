package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Konsultn-Engineering/pgswarm/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestProvidersCommand(t *testing.T) {
	out, err := run(t, "providers")
	require.NoError(t, err)
	assert.Contains(t, out, "pgsql\n")
}

func TestQueryUnknownDriver(t *testing.T) {
	env := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(env, []byte("PGSWARM_HOST=localhost\n"), 0o600))

	_, err := run(t, "query", "--driver", "nope", "--env-file", env, "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider nope not registered")
}

func TestExecMissingConfigFile(t *testing.T) {
	_, err := run(t, "exec", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "DELETE FROM t")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestQueryRequiresSQL(t *testing.T) {
	_, err := run(t, "query")
	assert.Error(t, err)
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	err := printRows(&buf, []string{"id", "name", "blob"}, [][]any{
		{int64(1), "ada", []byte{0xca, 0xfe}},
		{int64(22), nil, nil},
	})
	require.NoError(t, err)

	want := "id  name  blob\n" +
		"1   ada   \\xcafe\n" +
		"22  NULL  NULL\n" +
		"(2 rows)\n"
	assert.Equal(t, want, buf.String())
}

func TestCountLine(t *testing.T) {
	assert.Equal(t, "(1 row)", countLine(1, ""))
	assert.Equal(t, "(0 rows)", countLine(0, ""))
	assert.Equal(t, "(3 rows affected)", countLine(3, "affected"))
}

func TestBuildParams(t *testing.T) {
	p := buildParams([]string{"a", "b"}, nil)
	assert.Equal(t, []any{"a", "b"}, p.Ordinal)
	assert.False(t, p.IsNamed())

	p = buildParams(nil, map[string]string{"id": "7"})
	assert.True(t, p.IsNamed())
	v, ok := p.Lookup("id")
	assert.True(t, ok)
	assert.Equal(t, "7", v)

	assert.True(t, buildParams(nil, nil).Empty())
	assert.Equal(t, param.Params{}, buildParams(nil, nil))
}
