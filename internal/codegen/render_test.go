package codegen

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardgen/internal/ir"
)

func assertGolden(t *testing.T, name string, out string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(out))
}

func TestRenderJSObjectWithOptionalArray(t *testing.T) {
	shape := ir.ObjectShape{Properties: []ir.Property{
		{Key: "id", Value: str},
		{Key: "tags", Optional: true, Value: ir.ArrayOf(str)},
	}}
	p := generate(t, nil, nil, DefaultConfig(), shape)

	out, err := RenderJS(p)
	require.NoError(t, err)
	assertGolden(t, "object_optional_array", out)
}

func TestRenderJSCircular(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowForeignKeys = false
	p := generate(t, nodeTable(), map[string]int{"Node": 1}, cfg, ir.Handle{Key: "Node", Display: "Node"})

	out, err := RenderJS(p)
	require.NoError(t, err)
	assertGolden(t, "circular_node", out)
}

func TestRenderJSLiteralUnionTypeIR(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExpectedFormat = TypeIR
	p := generate(t, nil, nil, cfg, ir.Union{Members: []ir.Type{ir.Lit("on"), ir.Lit("off")}})

	out, err := RenderJS(p)
	require.NoError(t, err)
	assertGolden(t, "literal_union_type_ir", out)
}

func TestRenderJSRefinements(t *testing.T) {
	table := ir.NewInstanceTable()
	table.Put(&ir.Instance{Key: "Email", Name: "Email", Body: str, Normalized: true})
	cfg := DefaultConfig()
	cfg.Refined = map[string]bool{"Email": true}
	p := generate(t, table, map[string]int{"Email": 1}, cfg, ir.Handle{Key: "Email", Display: "Email"})

	out, err := RenderJS(p)
	require.NoError(t, err)
	assert.Contains(t, out, `for (const name of ["Email"]) {`)
	assert.Contains(t, out, `($refine["Email"](v) || $report(e, p, v, "Email"))`)
}

func TestRenderJSTuple(t *testing.T) {
	tuple := ir.Tuple{Elements: []ir.Type{str, num}, FirstOptional: 1}
	p := generate(t, nil, nil, DefaultConfig(), tuple)

	out, err := RenderJS(p)
	require.NoError(t, err)
	assert.Contains(t, out, "Array.isArray(v) && v.length >= 1 && v.length <= 2")
	assert.Contains(t, out, `(v.length <= 1 || v[1] === undefined || (typeof v[1] === "number" || $report(e, p + "[1]", v[1], "number")))`)
}

func TestRenderJSRejectsUnsupportedExpected(t *testing.T) {
	p := &Program{Name: "x", Root: Equals{Value: 1.0, Expected: map[string]any{"bad": func() {}}}}
	_, err := RenderJS(p)
	assert.Error(t, err)
}
