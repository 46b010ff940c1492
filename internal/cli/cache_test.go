package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheListAndClear(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")
	for _, typ := range []string{"User", "Node", "Pair<string>"} {
		_, err := compileJSON(t, typesFile, "--type", typ, "--cache", db)
		require.NoError(t, err)
	}

	out, err := execute(t, "--format", "json", "cache", "list", "--db", db)
	require.NoError(t, err)
	var listed struct {
		Status string       `json:"status"`
		Data   CacheListing `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed.Data.Artifacts, 3)
	assert.Equal(t, "User", listed.Data.Artifacts[0].TypeName)
	assert.Equal(t, "Node", listed.Data.Artifacts[1].TypeName)
	assert.Equal(t, "Pair<string>", listed.Data.Artifacts[2].TypeName)
	assert.Equal(t, int64(1), listed.Data.Artifacts[0].Seq)
	assert.Equal(t, true, listed.Data.Artifacts[0].Options["circularRefs"])

	out, err = execute(t, "cache", "list", "--db", db, "--type", "Node")
	require.NoError(t, err)
	assert.Contains(t, out, "1 cached validator(s)")
	assert.Contains(t, out, "Node")
	assert.NotContains(t, out, "User")

	out, err = execute(t, "cache", "clear", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 3 cached validator(s)")

	out, err = execute(t, "cache", "list", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No cached validators")
}

func TestCacheMissingDatabase(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no path", []string{"--format", "json", "cache", "list"}},
		{"missing file", []string{"--format", "json", "cache", "clear", "--db", filepath.Join(t.TempDir(), "nope.db")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(out), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
		})
	}
}

func TestShortKey(t *testing.T) {
	assert.Equal(t, "abc", shortKey("abc"))
	assert.Equal(t, "0123456789ab", shortKey("0123456789abcdef"))
}
