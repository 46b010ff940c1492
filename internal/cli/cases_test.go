package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardgen/internal/validator"
)

func TestLoadCases(t *testing.T) {
	file, err := LoadCases("testdata/users.yaml")
	require.NoError(t, err)

	assert.Equal(t, "User", file.Type)
	require.Len(t, file.Cases, 3)
	assert.Equal(t, ExpectPass, file.Cases[0].Expect, "default expectation")
	assert.Equal(t, ExpectFail, file.Cases[1].Expect)

	v, err := file.Cases[0].DecodedValue()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":    "Ada",
		"age":     36,
		"tags":    validator.NewSet("admin"),
		"friends": []any{},
	}, v)
}

func TestLoadCasesJSON(t *testing.T) {
	file, err := LoadCases("testdata/accounts.json")
	require.NoError(t, err)

	assert.Equal(t, "Account", file.Type)
	require.Len(t, file.Cases, 2)
	v, err := file.Cases[1].DecodedValue()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": "a2", "email": "nope"}, v)
}

func TestDecodedValueTags(t *testing.T) {
	file, err := parseCases("tags.yaml", []byte(`
cases:
  - name: absent
  - name: explicit undefined
    value: !undefined
  - name: "null"
    value: null
  - name: map
    value: !map [[a, 1], [b, [x]]]
  - name: nested set
    value: {s: !set [1, 2]}
  - name: alias
    value: [&n 1, *n]
`))
	require.NoError(t, err)

	want := []any{
		validator.Undefined,
		validator.Undefined,
		nil,
		validator.NewMap(
			validator.MapEntry{Key: "a", Value: 1},
			validator.MapEntry{Key: "b", Value: []any{"x"}},
		),
		map[string]any{"s": validator.NewSet(1, 2)},
		[]any{1, 1},
	}
	require.Len(t, file.Cases, len(want))
	for i, c := range file.Cases {
		v, err := c.DecodedValue()
		require.NoError(t, err, c.Name)
		assert.Equal(t, want[i], v, c.Name)
	}
}

func TestParseCasesErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ``},
		{"unknown field", "cases:\n  - name: x\n    valu: 1\n"},
		{"bad expect", "cases:\n  - value: 1\n    expect: maybe\n"},
		{"not yaml", "cases: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCases("bad.yaml", []byte(tt.src))
			require.Error(t, err)
			code, _, _ := classify(err)
			assert.Equal(t, ErrCodeBadCases, code)
		})
	}
}

func TestDecodedValueBadMap(t *testing.T) {
	file, err := parseCases("bad.yaml", []byte("cases:\n  - value: !map [[a]]\n"))
	require.NoError(t, err)
	_, err = file.Cases[0].DecodedValue()
	assert.ErrorContains(t, err, "!map entries must be [key, value] pairs")
}

func TestDecodedValueUncomparableMapKeys(t *testing.T) {
	file, err := parseCases("keys.yaml", []byte("cases:\n  - value: !map [[{a: 1}, 1], [{a: 1}, 2], [[x], 3], [k, 4], [k, 5]]\n"))
	require.NoError(t, err)

	v, err := file.Cases[0].DecodedValue()
	require.NoError(t, err)
	assert.Equal(t, validator.NewMap(
		validator.MapEntry{Key: map[string]any{"a": 1}, Value: 1},
		validator.MapEntry{Key: map[string]any{"a": 1}, Value: 2},
		validator.MapEntry{Key: []any{"x"}, Value: 3},
		validator.MapEntry{Key: "k", Value: 5},
	), v)
}

func TestDecodedValueAliasLimits(t *testing.T) {
	laughs := `cases:
  - value:
      a: &a [x, x, x, x, x, x, x, x, x, x]
      b: &b [*a, *a, *a, *a, *a, *a, *a, *a, *a, *a]
      c: &c [*b, *b, *b, *b, *b, *b, *b, *b, *b, *b]
      d: &d [*c, *c, *c, *c, *c, *c, *c, *c, *c, *c]
      e: [*d, *d, *d, *d, *d, *d, *d, *d, *d, *d]
`
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"self reference", "cases:\n  - value: &x [1, *x]\n", `alias "x" contains itself`},
		{"nested self reference", "cases:\n  - value: &x {a: [*x]}\n", `alias "x" contains itself`},
		{"tagged self reference", "cases:\n  - value: &s !set [1, *s]\n", `alias "s" contains itself`},
		{"expansion", laughs, "alias expansions"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := parseCases("alias.yaml", []byte(tt.src))
			require.NoError(t, err)
			_, err = file.Cases[0].DecodedValue()
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecodedValueSharedAnchor(t *testing.T) {
	file, err := parseCases("shared.yaml", []byte("cases:\n  - value: {a: &p {x: 1}, b: *p, c: *p}\n"))
	require.NoError(t, err)

	v, err := file.Cases[0].DecodedValue()
	require.NoError(t, err)
	p := map[string]any{"x": 1}
	assert.Equal(t, map[string]any{"a": p, "b": p, "c": p}, v)
}
