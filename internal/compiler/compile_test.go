package compiler

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardgen/internal/codegen"
	"github.com/roach88/guardgen/internal/diag"
	"github.com/roach88/guardgen/internal/ir"
	"github.com/roach88/guardgen/internal/testutil"
	"github.com/roach88/guardgen/internal/typeexpr"
	"github.com/roach88/guardgen/internal/validator"
)

const shapes = `
	interface Foo<T> { value: T }
	type T2<T> = { a: T; b: T };
	type Inline = { a: { value: string }; b: { value: string } };

	interface Node { value: number; next?: Node | null }
	type List = { head: number; tail: List | null };

	type Loose = { a?: number };
	type Greeting = string | "hello";
	type Impossible = string & number;
	interface Never extends Named { name: number }
	interface Named { name: string }

	type Email = string;
	interface User { email: Email; backup?: Email }
	interface Contact { email: Email }
	type StrictContact = Contact & { email: string };
	type BrandedEmail = Email & string;
	type FixedEmail = Email & "a@b.c";
	type Login = string;
	type EmailLogin = Email & Login;

	interface Ping { seq: number; pong?: Pong }
	interface Pong { seq: number; ping?: Ping }
`

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	f, err := typeexpr.Parse(shapes)
	require.NoError(t, err)
	opts = append([]Option{
		WithIDGenerator(NewSequenceGenerator("session-1")),
		WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
	}, opts...)
	s, err := NewSession(f, opts...)
	require.NoError(t, err)
	return s
}

func compileExpr(t *testing.T, s *Session, src string) *Result {
	t.Helper()
	typ, err := typeexpr.ParseType(src)
	require.NoError(t, err)
	res, err := s.CompileType(typ)
	require.NoError(t, err)
	return res
}

func mustValidator(t *testing.T, res *Result) *validator.Validator {
	t.Helper()
	v, err := res.Validator()
	require.NoError(t, err)
	return v
}

func TestSessionID(t *testing.T) {
	s := newSession(t)
	assert.Equal(t, "session-1", s.ID())

	f, err := typeexpr.Parse(shapes)
	require.NoError(t, err)
	live, err := NewSession(f)
	require.NoError(t, err)
	assert.Len(t, live.ID(), 36)
}

func TestCompileHoistsSharedInstance(t *testing.T) {
	s := newSession(t)
	res := compileExpr(t, s, "T2<Foo<string>>")

	fooKey := ir.InstanceKey("Foo", []ir.Type{str})
	assert.Equal(t, map[string]int{fooKey: 2}, res.Occurrences)
	require.Len(t, res.Program.Functions, 1)
	assert.Equal(t, "Foo<string>", res.Program.Functions[0].Display)
	assert.False(t, res.Program.Functions[0].Guard)

	root, ok := res.Program.Root.(codegen.ObjectCheck)
	require.True(t, ok)
	assert.Equal(t, codegen.Call{Func: 0}, root.Props[0].Check)
	assert.Equal(t, codegen.Call{Func: 0}, root.Props[1].Check)
}

func TestCompileHoistingMatchesInlining(t *testing.T) {
	s := newSession(t)
	hoisted := mustValidator(t, compileExpr(t, s, "T2<Foo<string>>"))
	inlined, err := s.Compile("Inline")
	require.NoError(t, err)
	assert.Empty(t, inlined.Program.Functions)
	plain := mustValidator(t, inlined)

	values := []any{
		map[string]any{"a": map[string]any{"value": "x"}, "b": map[string]any{"value": "y"}},
		map[string]any{"a": map[string]any{"value": 1.0}, "b": map[string]any{}},
		map[string]any{"a": map[string]any{"value": "x"}},
		"not an object",
		nil,
	}
	for _, v := range values {
		var got, want []validator.ValidationError
		okHoisted := hoisted.ValidateDetailed(v, &got)
		okInlined := plain.ValidateDetailed(v, &want)
		assert.Equal(t, okInlined, okHoisted, "value %v", v)
		require.Equal(t, len(want), len(got), "value %v", v)
		for i := range want {
			assert.Equal(t, want[i].Path, got[i].Path)
			assert.Equal(t, want[i].Actual, got[i].Actual)
		}
	}
}

func TestCompileCircularGuarded(t *testing.T) {
	s := newSession(t)
	res, err := s.Compile("Node")
	require.NoError(t, err)

	inst := res.Instances["Node"]
	require.NotNil(t, inst)
	assert.True(t, inst.Circular)
	require.Len(t, res.Program.Functions, 1)
	assert.True(t, res.Program.Functions[0].Guard)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{"Node", "Node"}, res.Warnings[0].Path)

	v := mustValidator(t, res)
	assert.True(t, v.Validate(map[string]any{"value": 1.0, "next": map[string]any{"value": 2.0, "next": nil}}))
	assert.False(t, v.Validate(map[string]any{"value": 1.0, "next": map[string]any{"value": "2"}}))

	cyclic := map[string]any{"value": 1.0}
	cyclic["next"] = cyclic
	assert.True(t, v.Validate(cyclic))
}

func TestCompileCircularUnguarded(t *testing.T) {
	var logs bytes.Buffer
	s := newSession(t,
		WithCircularRefs(false),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))),
	)
	res, err := s.Compile("Node")
	require.NoError(t, err)
	assert.False(t, res.Program.Functions[0].Guard)
	assert.Contains(t, logs.String(), "recursive type compiled without circular reference guards")

	v := mustValidator(t, res)
	assert.True(t, v.Validate(map[string]any{"value": 1.0}))

	cyclic := map[string]any{"value": 1.0}
	cyclic["next"] = cyclic
	assert.PanicsWithError(t, "validator: call depth 10000 exceeded in Node", func() {
		v.Validate(cyclic)
	})
}

// twoNodeCycle returns a and b with a.next = b and b.next = a.
func twoNodeCycle() (a, b map[string]any) {
	a = map[string]any{"value": 1.0}
	b = map[string]any{"value": 2.0, "next": a}
	a["next"] = b
	return a, b
}

func TestCompileTwoNodeCycle(t *testing.T) {
	a, b := twoNodeCycle()

	v := mustValidator(t, mustCompile(t, newSession(t), "Node"))
	assert.True(t, v.Validate(a))
	assert.True(t, v.Validate(b))

	b["value"] = "two"
	var errs []validator.ValidationError
	assert.False(t, v.ValidateDetailed(a, &errs))
	require.NotEmpty(t, errs)
	assert.Equal(t, "value.next", errs[0].Path, "the union records its own failure")
}

func TestCompileTwoNodeCycleUnguarded(t *testing.T) {
	a, b := twoNodeCycle()

	v := mustValidator(t, mustCompile(t, newSession(t, WithCircularRefs(false)), "Node"))
	for _, root := range []map[string]any{a, b} {
		assert.PanicsWithError(t, "validator: call depth 10000 exceeded in Node", func() {
			v.Validate(root)
		})
	}
}

func TestCompileMutuallyRecursiveInterfaces(t *testing.T) {
	ping := map[string]any{"seq": 1.0}
	pong := map[string]any{"seq": 2.0, "ping": ping}
	ping["pong"] = pong

	s := newSession(t)
	res := mustCompile(t, s, "Ping")
	assert.True(t, res.Instances["Ping"].Circular)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, []string{"Ping", "Pong", "Ping"}, res.Warnings[0].Path)
	assert.True(t, mustValidator(t, res).Validate(ping))
	assert.True(t, mustValidator(t, mustCompile(t, s, "Pong")).Validate(pong))

	unguarded := newSession(t, WithCircularRefs(false))
	v := mustValidator(t, mustCompile(t, unguarded, "Ping"))
	assert.Panics(t, func() { v.Validate(ping) })
}

func TestCompileRecursiveAlias(t *testing.T) {
	s := newSession(t)
	res, err := s.Compile("List")
	require.NoError(t, err)

	root, ok := res.Root.(ir.ObjectShape)
	require.True(t, ok)
	tail := root.Properties[1].Value.(ir.Union)
	assert.Equal(t, ir.Handle{Key: "List", Display: "List"}, tail.Members[0])
	assert.True(t, res.Instances["List"].Circular)

	v := mustValidator(t, res)
	assert.True(t, v.Validate(map[string]any{"head": 1, "tail": map[string]any{"head": 2, "tail": nil}}))
	assert.False(t, v.Validate(map[string]any{"head": 1, "tail": map[string]any{"head": "x", "tail": nil}}))
}

func TestCompileForeignKeys(t *testing.T) {
	s := newSession(t, WithAllowForeignKeys(false))
	v := mustValidator(t, mustCompile(t, s, "Loose"))

	assert.True(t, v.Validate(map[string]any{}))
	assert.True(t, v.Validate(map[string]any{"a": 5}))
	assert.False(t, v.Validate(map[string]any{"b": 3}))

	open := newSession(t)
	assert.True(t, mustValidator(t, mustCompile(t, open, "Loose")).Validate(map[string]any{"b": 3}))
}

func TestCompileCleansSubsumedLiteral(t *testing.T) {
	s := newSession(t)
	res := mustCompile(t, s, "Greeting")
	assert.Equal(t, str, res.Root)
	assert.Equal(t, codegen.TypeIs{Kind: codegen.KindString, Expected: "string"}, res.Program.Root)
}

func TestCompileImpossibleTypes(t *testing.T) {
	s := newSession(t)
	for _, name := range []string{"Impossible", "Never"} {
		_, err := s.Compile(name)
		require.Error(t, err, name)
		assert.True(t, diag.HasCode(err, diag.ErrImpossibleType), "got %v", err)
		assert.Contains(t, err.Error(), "can never be satisfied")
	}
}

func TestCompileUserErrors(t *testing.T) {
	s := newSession(t)

	_, err := s.Compile("Missing")
	assert.True(t, diag.HasCode(err, diag.ErrUnknownType))

	_, err = s.Compile("Foo")
	assert.True(t, diag.HasCode(err, diag.ErrArity))
	assert.True(t, diag.IsUserError(err))
}

func TestCompileRefinements(t *testing.T) {
	isEmail := func(v any) bool {
		s, ok := v.(string)
		return ok && strings.Contains(s, "@")
	}
	s := newSession(t, WithRefinements(map[string]validator.Refinement{"Email": isEmail}))
	res := mustCompile(t, s, "User")
	assert.Equal(t, []string{"Email"}, res.Program.Refinements)

	v := mustValidator(t, res)
	assert.True(t, v.Validate(map[string]any{"email": "a@b.c"}))

	var errs []validator.ValidationError
	assert.False(t, v.ValidateDetailed(map[string]any{"email": "nope", "backup": "also"}, &errs))
	assert.Equal(t, []validator.ValidationError{
		{Path: "value.email", Actual: "nope", Expected: "Email"},
		{Path: "value.backup", Actual: "also", Expected: "Email"},
	}, errs)
}

func TestCompileRefinementSurvivesIntersection(t *testing.T) {
	isEmail := func(v any) bool {
		s, ok := v.(string)
		return ok && strings.Contains(s, "@")
	}
	s := newSession(t, WithRefinements(map[string]validator.Refinement{"Email": isEmail}))

	for _, name := range []string{"StrictContact", "BrandedEmail"} {
		t.Run(name, func(t *testing.T) {
			res := mustCompile(t, s, name)
			assert.Equal(t, []string{"Email"}, res.Program.Refinements)

			v := mustValidator(t, res)
			good, bad := any("a@b.c"), any("nope")
			if name == "StrictContact" {
				good, bad = map[string]any{"email": good}, map[string]any{"email": bad}
			}
			assert.True(t, v.Validate(good))
			assert.False(t, v.Validate(bad))
		})
	}

	_, err := s.Compile("FixedEmail")
	require.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.ErrUnsupported), "got %v", err)
	assert.Contains(t, err.Error(), `intersection with refined type "Email" is not supported`)

	both := newSession(t, WithRefinements(map[string]validator.Refinement{"Email": isEmail, "Login": isEmail}))
	_, err = both.Compile("EmailLogin")
	assert.True(t, diag.HasCode(err, diag.ErrUnsupported), "got %v", err)

	plain := newSession(t)
	res := mustCompile(t, plain, "FixedEmail")
	assert.Equal(t, ir.Lit("a@b.c"), res.Root)
	assert.True(t, mustValidator(t, mustCompile(t, plain, "BrandedEmail")).Validate("nope"))
}

func TestCompileTypeIRExpectations(t *testing.T) {
	s := newSession(t, WithExpectedValueFormat(codegen.TypeIR))
	v := mustValidator(t, mustCompile(t, s, "Loose"))

	var errs []validator.ValidationError
	assert.False(t, v.ValidateDetailed(map[string]any{"a": "five"}, &errs))
	assert.Equal(t, []validator.ValidationError{{
		Path:     "value.a",
		Actual:   "five",
		Expected: map[string]any{"kind": "primitive", "name": "number"},
	}}, errs)
}

func TestCompileMemoizesAcrossRequests(t *testing.T) {
	s := newSession(t)
	fooKey := ir.InstanceKey("Foo", []ir.Type{str})

	compileExpr(t, s, "T2<Foo<string>>")
	assert.Equal(t, 1, s.Instances())
	assert.Equal(t, 2, s.Occurrences(fooKey))

	res := compileExpr(t, s, "Foo<string>")
	assert.Equal(t, 1, s.Instances())
	assert.Equal(t, map[string]int{fooKey: 1}, res.Occurrences)
	assert.Equal(t, 3, s.Occurrences(fooKey))
	assert.Empty(t, res.Program.Functions)
}

func TestCompileJavaScript(t *testing.T) {
	s := newSession(t)
	js, err := mustCompile(t, s, "Greeting").JavaScript()
	require.NoError(t, err)
	assert.Contains(t, js, "// Type: string\n")
	assert.Contains(t, js, `const _root = (v, p, e) => (typeof v === "string" || $report(e, p, v, "string"));`)
}

func TestNewSessionRejectsInvalidOptions(t *testing.T) {
	f, err := typeexpr.Parse(shapes)
	require.NoError(t, err)

	_, err = NewSession(f, WithExpectedValueFormat("xml"))
	require.Error(t, err)
	assert.True(t, diag.HasCode(err, diag.ErrInvalidConfig))

	_, err = NewSession(f, WithRefinements(map[string]validator.Refinement{"Email": nil}))
	assert.True(t, diag.HasCode(err, diag.ErrInvalidConfig))
}

func TestOptionsFingerprint(t *testing.T) {
	o := DefaultOptions()
	o.Refinements = map[string]validator.Refinement{"B": func(any) bool { return true }, "A": func(any) bool { return true }}
	assert.Equal(t, map[string]any{
		"circularRefs":        true,
		"allowForeignKeys":    true,
		"expectedValueFormat": "human-friendly",
		"refined":             []any{"A", "B"},
	}, o.Fingerprint())
}

func TestSequenceGeneratorPanicsWhenExhausted(t *testing.T) {
	gen := NewSequenceGenerator("a")
	assert.Equal(t, "a", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}

func mustCompile(t *testing.T, s *Session, name string) *Result {
	t.Helper()
	res, err := s.Compile(name)
	require.NoError(t, err)
	return res
}

func TestCompileLogsPipelineEvents(t *testing.T) {
	rec := testutil.NewLogRecorder()
	s := newSession(t,
		WithCircularRefs(false),
		WithLogger(slog.New(rec)),
		WithIDGenerator(testutil.NewFixedIDGenerator("fixed")),
	)
	_, err := s.Compile("Node")
	require.NoError(t, err)
	assert.Equal(t, "fixed", s.ID())

	debug := rec.Messages(slog.LevelDebug)
	assert.Contains(t, debug, "registered declaration")
	assert.Contains(t, debug, "instantiated")
	assert.Contains(t, debug, "hoisted instance")
	assert.Contains(t, debug, "compiled")
	assert.Equal(t, []string{"recursive type compiled without circular reference guards"}, rec.Messages(slog.LevelWarn))

	for _, e := range rec.Entries() {
		assert.Equal(t, "fixed", e.Attrs["session"], e.Message)
	}
}
