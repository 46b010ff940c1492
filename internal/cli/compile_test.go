package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardgen/internal/diag"
)

const typesFile = "testdata/types.ts"

// compileResponse is the JSON envelope of a compile command.
type compileResponse struct {
	Status string         `json:"status"`
	Data   CompileSummary `json:"data"`
	Error  *CLIError      `json:"error"`
}

func compileJSON(t *testing.T, args ...string) (compileResponse, error) {
	t.Helper()
	out, err := execute(t, append([]string{"--format", "json", "compile"}, args...)...)
	var resp compileResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp, err
}

func TestCompilePrintsCode(t *testing.T) {
	out, err := execute(t, "compile", typesFile, "--type", "User")
	require.NoError(t, err)

	assert.Contains(t, out, "// Code generated by guardgen. DO NOT EDIT.")
	assert.Contains(t, out, "// Type: User")
	assert.Contains(t, out, "export function createValidator(")
}

func TestCompileJSON(t *testing.T) {
	resp, err := compileJSON(t, typesFile, "--type", "User", "--type", "Pair<string, number>")
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, typesFile, resp.Data.Source)
	assert.NotEmpty(t, resp.Data.Session)
	require.Len(t, resp.Data.Types, 2)

	user := resp.Data.Types[0]
	assert.Equal(t, "User", user.Type)
	assert.Len(t, user.Key, 64)
	assert.GreaterOrEqual(t, user.Functions, 1, "User is recursive and must be hoisted")
	assert.False(t, user.Cached)
	assert.Contains(t, user.Code, "// Type: User")

	pair := resp.Data.Types[1]
	assert.Equal(t, "Pair<string, number>", pair.Type)
	assert.NotEqual(t, user.Key, pair.Key)
}

func TestCompileOptionsChangeKey(t *testing.T) {
	loose, err := compileJSON(t, typesFile, "--type", "Node")
	require.NoError(t, err)
	strict, err := compileJSON(t, typesFile, "--type", "Node", "--allow-foreign-keys=false")
	require.NoError(t, err)

	require.Len(t, loose.Data.Types, 1)
	require.Len(t, strict.Data.Types, 1)
	assert.NotEqual(t, loose.Data.Types[0].Key, strict.Data.Types[0].Key)
	assert.NotEqual(t, loose.Data.Types[0].Code, strict.Data.Types[0].Code)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "user.js")

	out, err := execute(t, "compile", typesFile, "--type", "User", "--output", outputFile)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 1 type(s)")
	assert.Contains(t, out, outputFile)

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "// Type: User")
}

func TestCompileOutputToDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	resp, err := compileJSON(t, typesFile, "-t", "User", "-t", "Pair<string>", "-o", dir)
	require.NoError(t, err)

	for _, name := range []string{"User.js", "Pair_string.js"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	for _, typ := range resp.Data.Types {
		assert.Empty(t, typ.Code, "code is not inlined when written to files")
		assert.NotEmpty(t, typ.Output)
	}
}

func TestCompileCache(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cache.db")

	first, err := compileJSON(t, typesFile, "--type", "User", "--cache", db)
	require.NoError(t, err)
	second, err := compileJSON(t, typesFile, "--type", "User", "--cache", db)
	require.NoError(t, err)

	require.Len(t, first.Data.Types, 1)
	require.Len(t, second.Data.Types, 1)
	assert.False(t, first.Data.Types[0].Cached)
	assert.True(t, second.Data.Types[0].Cached)
	assert.Equal(t, first.Data.Types[0].Key, second.Data.Types[0].Key)
	assert.Equal(t, first.Data.Types[0].Code, second.Data.Types[0].Code)
	assert.Equal(t, first.Data.Types[0].Functions, second.Data.Types[0].Functions)
}

func TestCompileWithConfig(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")

	resp, err := compileJSON(t, "--config", "testdata/guardgen.cue", "-o", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "types.ts"), resp.Data.Source)
	require.Len(t, resp.Data.Types, 2)
	assert.Equal(t, "User", resp.Data.Types[0].Type)
	assert.Equal(t, "Pair<string>", resp.Data.Types[1].Type)
}

func TestCompileErrors(t *testing.T) {
	tmp := t.TempDir()
	badSource := filepath.Join(tmp, "bad.ts")
	require.NoError(t, os.WriteFile(badSource, []byte("interface User { name: }"), 0644))
	badConfig := filepath.Join(tmp, "guardgen.cue")
	require.NoError(t, os.WriteFile(badConfig, []byte(`expectedValueFormat: "xml"`), 0644))

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{"unknown type", []string{typesFile, "--type", "Missing"}, string(diag.ErrUnknownType)},
		{"arity", []string{typesFile, "--type", "Pair<string, number, boolean>"}, string(diag.ErrArity)},
		{"source syntax", []string{badSource, "--type", "User"}, string(diag.ErrSourceSyntax)},
		{"type syntax", []string{typesFile, "--type", "Pair<"}, string(diag.ErrSourceSyntax)},
		{"missing source", []string{filepath.Join(tmp, "nope.ts"), "--type", "User"}, ErrCodeNotFound},
		{"no types", []string{typesFile}, ErrCodeGeneric},
		{"bad option", []string{typesFile, "--type", "User", "--expected-format", "xml"}, string(diag.ErrInvalidConfig)},
		{"bad config", []string{"--config", badConfig, typesFile, "--type", "User"}, string(diag.ErrInvalidConfig)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := compileJSON(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestOutputName(t *testing.T) {
	tests := map[string]string{
		"User":                       "User.js",
		"Pair<string, number>":       "Pair_string_number.js",
		"Map<string, Array<number>>": "Map_string_Array_number.js",
		"<>":                         "validator.js",
	}
	for in, want := range tests {
		assert.Equal(t, want, outputName(in), in)
	}
}
