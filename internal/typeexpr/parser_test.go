package typeexpr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/guardgen/internal/ir"
)

func TestLexerTokens(t *testing.T) {
	l := NewLexer(`type A<T> = "x" | -1.5e2 & [...T[]]; // trailing`)

	expected := []struct {
		typ     TokenType
		literal string
	}{
		{IDENT, "type"},
		{IDENT, "A"},
		{LT, "<"},
		{IDENT, "T"},
		{GT, ">"},
		{ASSIGN, "="},
		{STRING, "x"},
		{PIPE, "|"},
		{MINUS, "-"},
		{NUMBER, "1.5e2"},
		{AMP, "&"},
		{LBRACKET, "["},
		{ELLIPSIS, "..."},
		{IDENT, "T"},
		{LBRACKET, "["},
		{RBRACKET, "]"},
		{RBRACKET, "]"},
		{SEMICOLON, ";"},
		{EOF, ""},
	}
	for i, want := range expected {
		tok := l.NextToken()
		assert.Equal(t, want.typ, tok.Type, "token %d", i)
		assert.Equal(t, want.literal, tok.Literal, "token %d", i)
	}
}

func TestLexerPositions(t *testing.T) {
	l := NewLexer("type\n  A")
	first := l.NextToken()
	second := l.NextToken()
	assert.Equal(t, 1, first.Line)
	assert.Equal(t, 1, first.Col)
	assert.Equal(t, 2, second.Line)
	assert.Equal(t, 3, second.Col)
}

func TestLexerStringEscapes(t *testing.T) {
	tok := NewLexer(`'it\'s\n'`).NextToken()
	require.Equal(t, STRING, tok.Type)
	assert.Equal(t, "it's\n", tok.Literal)

	bad := NewLexer(`"open`).NextToken()
	assert.Equal(t, ILLEGAL, bad.Type)
}

func TestParseGenericAlias(t *testing.T) {
	f, err := Parse(`type Pair<A, B = A[]> = [A, B?];`)
	require.NoError(t, err)

	decl, ok := f.Lookup("Pair")
	require.True(t, ok)
	assert.Equal(t, ir.KindAlias, decl.Kind)
	assert.Equal(t, []string{"A", "B"}, decl.Params)
	assert.Equal(t, []ir.Type{nil, ir.ArrayOf(ir.Param{Index: 0, Name: "A"})}, decl.Defaults)
	assert.Equal(t, ir.Tuple{
		Elements:      []ir.Type{ir.Param{Index: 0, Name: "A"}, ir.Param{Index: 1, Name: "B"}},
		FirstOptional: 1,
	}, decl.Body)
}

func TestParseForwardDefaultKeepsParam(t *testing.T) {
	f, err := Parse(`type Bad<A = B, B = string> = A;`)
	require.NoError(t, err)

	decl, _ := f.Lookup("Bad")
	assert.Equal(t, ir.Param{Index: 1, Name: "B"}, decl.Defaults[0])
	assert.Equal(t, ir.Prim(ir.String), decl.Defaults[1])
}

func TestParseInterfaceExtends(t *testing.T) {
	src := `
		// a derived interface
		export interface Child extends Base<string> {
			readonly id: number;
			"a-b"?: string,
			[key: string]: any
		}
	`
	f, err := Parse(src)
	require.NoError(t, err)

	decl, ok := f.Lookup("Child")
	require.True(t, ok)
	assert.Equal(t, ir.KindInterface, decl.Kind)
	assert.Equal(t, ir.Intersection{Members: []ir.Type{
		ir.Ref("Base", ir.Prim(ir.String)),
		ir.ObjectShape{
			Properties: []ir.Property{
				{Key: "id", Value: ir.Prim(ir.Number)},
				{Key: "a-b", Optional: true, Value: ir.Prim(ir.String)},
			},
			StringIndex: ir.Prim(ir.Any),
		},
	}}, decl.Body)
}

func TestParseInterfaceWithoutBases(t *testing.T) {
	f, err := Parse(`interface Node { value: number; next: Node | null }`)
	require.NoError(t, err)

	decl, _ := f.Lookup("Node")
	assert.Equal(t, ir.ObjectShape{Properties: []ir.Property{
		{Key: "value", Value: ir.Prim(ir.Number)},
		{Key: "next", Value: ir.NewUnion(ir.Ref("Node"), ir.Prim(ir.Null))},
	}}, decl.Body)
}

func TestParseTypeExpressions(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		expected ir.Type
	}{
		{"reference with args", "Foo<string, 1>", ir.Ref("Foo", ir.Prim(ir.String), ir.Lit(1))},
		{"nested arrays", "number[][]", ir.ArrayOf(ir.ArrayOf(ir.Prim(ir.Number)))},
		{"keywords", "true | void | never", ir.NewUnion(ir.Lit(true), ir.Prim(ir.Undefined), ir.Bottom{})},
		{"negative literal", "-2", ir.Lit(-2)},
		{"leading pipe", "| 'a' | 'b'", ir.NewUnion(ir.Lit("a"), ir.Lit("b"))},
		{"precedence", "A & B | C", ir.NewUnion(ir.NewIntersection(ir.Ref("A"), ir.Ref("B")), ir.Ref("C"))},
		{"parens", "(A | B)[]", ir.ArrayOf(ir.NewUnion(ir.Ref("A"), ir.Ref("B")))},
		{"rest tuple", "[string, ...number[]]", ir.Tuple{Elements: []ir.Type{ir.Prim(ir.String)}, FirstOptional: 1, Rest: ir.Prim(ir.Number)}},
		{"rest via Array", "[...Array<boolean>]", ir.Tuple{FirstOptional: 0, Rest: ir.Prim(ir.Boolean)}},
		{"empty tuple", "[]", ir.Tuple{}},
		{"empty object", "{}", ir.ObjectShape{}},
		{"number key", "{ 1.0: string }", ir.ObjectShape{Properties: []ir.Property{{Key: "1", Value: ir.Prim(ir.String)}}}},
		{"number index", "{ [i: number]: string }", ir.ObjectShape{NumberIndex: ir.Prim(ir.String)}},
		{"containers", "Map<string, Set<number>>", ir.Ref("Map", ir.Prim(ir.String), ir.Ref("Set", ir.Prim(ir.Number)))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		message string
	}{
		{"missing type", "type A = ;", `1:10: expected type, found ";"`},
		{"duplicate declaration", "type A = string; type A = number;", `duplicate declaration "A"`},
		{"required after optional", "type T = [string?, number];", "required element follows an optional one"},
		{"rest not array", "type T = [...string];", "rest element must be an array type"},
		{"rest not last", "type T = [...string[], number];", "rest element must be last"},
		{"required param after default", "type T<A = string, B> = A;", `required type parameter "B" follows an optional one`},
		{"bad index key", "type T = { [k: boolean]: string };", "index signature key must be string or number"},
		{"method", "interface I { run(): void }", "method signatures are not supported"},
		{"duplicate property", "type T = { a: string; a: number };", `duplicate property "a"`},
		{"reserved name", "type string = number;", "reserved type name"},
		{"unterminated", `type T = "abc`, "unterminated string literal"},
		{"not a declaration", "const x = 1;", `expected "type" or "interface"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src)
			require.Error(t, err)
			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestParseTypeRejectsTrailingInput(t *testing.T) {
	_, err := ParseType("string number")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected end of input")
}

func TestFileNamesAndDeclarations(t *testing.T) {
	f, err := Parse("type B = string; interface A { x: B }")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, f.Names())
	decls := f.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, "B", decls[0].Name)

	_, ok := f.Lookup("C")
	assert.False(t, ok)
}
