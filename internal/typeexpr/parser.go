package typeexpr

import (
	"fmt"
	"strconv"

	"github.com/roach88/guardgen/internal/ir"
)

// ParseError reports a syntax error with its 1-based position.
type ParseError struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

var keywordTypes = map[string]ir.Type{
	"string":    ir.Prim(ir.String),
	"number":    ir.Prim(ir.Number),
	"boolean":   ir.Prim(ir.Boolean),
	"null":      ir.Prim(ir.Null),
	"undefined": ir.Prim(ir.Undefined),
	"void":      ir.Prim(ir.Undefined),
	"object":    ir.Prim(ir.Object),
	"any":       ir.Prim(ir.Any),
	"unknown":   ir.Prim(ir.Unknown),
	"never":     ir.Bottom{},
	"true":      ir.Lit(true),
	"false":     ir.Lit(false),
}

// Parser turns declaration source into IR.
type Parser struct {
	l    *Lexer
	cur  Token
	peek Token

	// params maps the type parameter names of the declaration being
	// parsed to their index. Nil outside a generic declaration.
	params map[string]int
}

// NewParser creates a Parser reading from l.
func NewParser(l *Lexer) *Parser {
	p := &Parser{l: l}
	p.next()
	p.next()
	return p
}

func (p *Parser) next() {
	p.cur = p.peek
	p.peek = p.l.NextToken()
}

func (p *Parser) errorf(tok Token, format string, args ...any) *ParseError {
	return &ParseError{Line: tok.Line, Col: tok.Col, Message: fmt.Sprintf(format, args...)}
}

func (p *Parser) unexpected(what string) *ParseError {
	if p.cur.Type == ILLEGAL {
		if p.cur.Literal == "unterminated string" {
			return p.errorf(p.cur, "unterminated string literal")
		}
		return p.errorf(p.cur, "unexpected character %q", p.cur.Literal)
	}
	return p.errorf(p.cur, "expected %s, found %s", what, p.cur)
}

func (p *Parser) expect(t TokenType) error {
	if p.cur.Type != t {
		return p.unexpected(fmt.Sprintf("%q", string(t)))
	}
	p.next()
	return nil
}

func (p *Parser) isKeyword(word string) bool {
	return p.cur.Type == IDENT && p.cur.Literal == word
}

// ParseFile parses a sequence of type and interface declarations.
func (p *Parser) ParseFile() (*File, error) {
	f := newFile()
	for p.cur.Type != EOF {
		if p.cur.Type == SEMICOLON {
			p.next()
			continue
		}
		start := p.cur
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		if !f.add(decl) {
			return nil, p.errorf(start, "duplicate declaration %q", decl.Name)
		}
	}
	return f, nil
}

func (p *Parser) parseDeclaration() (*ir.Declaration, error) {
	if p.isKeyword("export") {
		p.next()
	}
	switch {
	case p.isKeyword("type"):
		return p.parseAlias()
	case p.isKeyword("interface"):
		return p.parseInterface()
	}
	return nil, p.unexpected(`"type" or "interface"`)
}

func (p *Parser) parseAlias() (*ir.Declaration, error) {
	p.next()
	decl, err := p.parseDeclHead(ir.KindAlias)
	if err != nil {
		return nil, err
	}
	defer func() { p.params = nil }()

	if err := p.expect(ASSIGN); err != nil {
		return nil, err
	}
	body, err := p.parseType()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	if p.cur.Type == SEMICOLON {
		p.next()
	}
	return decl, nil
}

func (p *Parser) parseInterface() (*ir.Declaration, error) {
	p.next()
	decl, err := p.parseDeclHead(ir.KindInterface)
	if err != nil {
		return nil, err
	}
	defer func() { p.params = nil }()

	var bases []ir.Type
	if p.isKeyword("extends") {
		p.next()
		for {
			if p.cur.Type != IDENT {
				return nil, p.unexpected("base interface name")
			}
			base, err := p.parseNamed()
			if err != nil {
				return nil, err
			}
			bases = append(bases, base)
			if p.cur.Type != COMMA {
				break
			}
			p.next()
		}
	}
	shape, err := p.parseObject()
	if err != nil {
		return nil, err
	}
	decl.Body = ir.NewIntersection(append(bases, shape)...)
	if p.cur.Type == SEMICOLON {
		p.next()
	}
	return decl, nil
}

// parseDeclHead parses the declaration name and its type parameter list.
// Every parameter name is in scope for every default so that forward
// references reach the resolver, which rejects them.
func (p *Parser) parseDeclHead(kind ir.DeclKind) (*ir.Declaration, error) {
	if p.cur.Type != IDENT {
		return nil, p.unexpected("declaration name")
	}
	decl := &ir.Declaration{Name: p.cur.Literal, Kind: kind}
	if _, reserved := keywordTypes[decl.Name]; reserved {
		return nil, p.errorf(p.cur, "%q is a reserved type name", decl.Name)
	}
	p.next()
	if p.cur.Type != LT {
		return decl, nil
	}
	p.next()

	type pending struct {
		lexer     Lexer
		cur, peek Token
	}
	var defaults []*pending
	p.params = make(map[string]int)
	for {
		if p.cur.Type != IDENT {
			return nil, p.unexpected("type parameter name")
		}
		name := p.cur.Literal
		if _, dup := p.params[name]; dup {
			return nil, p.errorf(p.cur, "duplicate type parameter %q", name)
		}
		p.params[name] = len(decl.Params)
		decl.Params = append(decl.Params, name)
		p.next()

		if p.isKeyword("extends") {
			// Constraints do not affect validation.
			p.next()
			if _, err := p.parseType(); err != nil {
				return nil, err
			}
		}
		if p.cur.Type == ASSIGN {
			p.next()
			// Defaults are parsed after the whole list is known.
			defaults = append(defaults, &pending{lexer: *p.l, cur: p.cur, peek: p.peek})
			if err := p.skipType(); err != nil {
				return nil, err
			}
		} else {
			if len(defaults) > 0 && defaults[len(defaults)-1] != nil {
				return nil, p.errorf(p.cur, "required type parameter %q follows an optional one", name)
			}
			defaults = append(defaults, nil)
		}
		if p.cur.Type != COMMA {
			break
		}
		p.next()
	}
	if err := p.expect(GT); err != nil {
		return nil, err
	}

	resume := pending{lexer: *p.l, cur: p.cur, peek: p.peek}
	decl.Defaults = make([]ir.Type, len(decl.Params))
	for i, d := range defaults {
		if d == nil {
			continue
		}
		lexer := d.lexer
		p.l, p.cur, p.peek = &lexer, d.cur, d.peek
		def, err := p.parseType()
		if err != nil {
			return nil, err
		}
		decl.Defaults[i] = def
	}
	lexer := resume.lexer
	p.l, p.cur, p.peek = &lexer, resume.cur, resume.peek
	return decl, nil
}

// skipType advances past one type expression without building it.
func (p *Parser) skipType() error {
	saved := p.params
	p.params = nil
	defer func() { p.params = saved }()
	_, err := p.parseType()
	return err
}

// parseType parses a union, the loosest binding type form.
func (p *Parser) parseType() (ir.Type, error) {
	if p.cur.Type == PIPE {
		p.next()
	}
	first, err := p.parseIntersection()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != PIPE {
		return first, nil
	}
	members := []ir.Type{first}
	for p.cur.Type == PIPE {
		p.next()
		m, err := p.parseIntersection()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return ir.NewUnion(members...), nil
}

func (p *Parser) parseIntersection() (ir.Type, error) {
	if p.cur.Type == AMP {
		p.next()
	}
	first, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.cur.Type != AMP {
		return first, nil
	}
	members := []ir.Type{first}
	for p.cur.Type == AMP {
		p.next()
		m, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return ir.NewIntersection(members...), nil
}

func (p *Parser) parsePostfix() (ir.Type, error) {
	t, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == LBRACKET && p.peek.Type == RBRACKET {
		p.next()
		p.next()
		t = ir.ArrayOf(t)
	}
	return t, nil
}

func (p *Parser) parsePrimary() (ir.Type, error) {
	switch p.cur.Type {
	case LPAREN:
		p.next()
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return t, nil
	case LBRACE:
		return p.parseObject()
	case LBRACKET:
		return p.parseTuple()
	case STRING:
		t := ir.Lit(p.cur.Literal)
		p.next()
		return t, nil
	case NUMBER:
		return p.parseNumber(false)
	case MINUS:
		p.next()
		if p.cur.Type != NUMBER {
			return nil, p.unexpected("number")
		}
		return p.parseNumber(true)
	case IDENT:
		if t, ok := keywordTypes[p.cur.Literal]; ok {
			p.next()
			return t, nil
		}
		if p.isKeyword("readonly") && (p.peek.Type == IDENT || p.peek.Type == LBRACKET) {
			p.next()
			return p.parsePostfix()
		}
		if idx, ok := p.params[p.cur.Literal]; ok && p.peek.Type != LT {
			t := ir.Param{Index: idx, Name: p.cur.Literal}
			p.next()
			return t, nil
		}
		return p.parseNamed()
	}
	return nil, p.unexpected("type")
}

func (p *Parser) parseNumber(negative bool) (ir.Type, error) {
	v, err := strconv.ParseFloat(p.cur.Literal, 64)
	if err != nil {
		return nil, p.errorf(p.cur, "invalid number %q", p.cur.Literal)
	}
	if negative {
		v = -v
	}
	p.next()
	return ir.Lit(v), nil
}

// parseNamed parses a reference with optional type arguments.
func (p *Parser) parseNamed() (ir.Type, error) {
	name := p.cur.Literal
	p.next()
	if p.cur.Type != LT {
		return ir.Ref(name), nil
	}
	p.next()
	var args []ir.Type
	for {
		arg, err := p.parseType()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.Type != COMMA {
			break
		}
		p.next()
	}
	if err := p.expect(GT); err != nil {
		return nil, err
	}
	return ir.Ref(name, args...), nil
}

func (p *Parser) parseObject() (ir.Type, error) {
	if err := p.expect(LBRACE); err != nil {
		return nil, err
	}
	shape := ir.ObjectShape{}
	seen := make(map[string]bool)
	for p.cur.Type != RBRACE {
		if p.cur.Type == LBRACKET {
			if err := p.parseIndexSignature(&shape); err != nil {
				return nil, err
			}
		} else {
			keyTok := p.cur
			prop, err := p.parseProperty()
			if err != nil {
				return nil, err
			}
			if seen[prop.Key] {
				return nil, p.errorf(keyTok, "duplicate property %q", prop.Key)
			}
			seen[prop.Key] = true
			shape.Properties = append(shape.Properties, prop)
		}
		if p.cur.Type == SEMICOLON || p.cur.Type == COMMA {
			p.next()
		} else if p.cur.Type != RBRACE {
			return nil, p.unexpected(`";" or "}"`)
		}
	}
	p.next()
	return shape, nil
}

func (p *Parser) parseProperty() (ir.Property, error) {
	if p.isKeyword("readonly") && p.peek.Type != COLON && p.peek.Type != QUESTION {
		p.next()
	}
	var prop ir.Property
	switch p.cur.Type {
	case IDENT, STRING:
		prop.Key = p.cur.Literal
	case NUMBER:
		v, err := strconv.ParseFloat(p.cur.Literal, 64)
		if err != nil {
			return prop, p.errorf(p.cur, "invalid number %q", p.cur.Literal)
		}
		prop.Key = strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return prop, p.unexpected("property name")
	}
	p.next()
	if p.cur.Type == QUESTION {
		prop.Optional = true
		p.next()
	}
	if p.cur.Type == LPAREN || p.cur.Type == LT {
		return prop, p.errorf(p.cur, "method signatures are not supported")
	}
	if err := p.expect(COLON); err != nil {
		return prop, err
	}
	value, err := p.parseType()
	if err != nil {
		return prop, err
	}
	prop.Value = value
	return prop, nil
}

func (p *Parser) parseIndexSignature(shape *ir.ObjectShape) error {
	p.next()
	if p.cur.Type != IDENT {
		return p.unexpected("index parameter name")
	}
	p.next()
	if err := p.expect(COLON); err != nil {
		return err
	}
	keyTok := p.cur
	if !p.isKeyword("string") && !p.isKeyword("number") {
		return p.errorf(keyTok, "index signature key must be string or number")
	}
	p.next()
	if err := p.expect(RBRACKET); err != nil {
		return err
	}
	if err := p.expect(COLON); err != nil {
		return err
	}
	value, err := p.parseType()
	if err != nil {
		return err
	}
	if keyTok.Literal == "string" {
		if shape.StringIndex != nil {
			return p.errorf(keyTok, "duplicate string index signature")
		}
		shape.StringIndex = value
	} else {
		if shape.NumberIndex != nil {
			return p.errorf(keyTok, "duplicate number index signature")
		}
		shape.NumberIndex = value
	}
	return nil
}

func (p *Parser) parseTuple() (ir.Type, error) {
	p.next()
	tuple := ir.Tuple{FirstOptional: -1}
	for p.cur.Type != RBRACKET {
		if tuple.Rest != nil {
			return nil, p.errorf(p.cur, "rest element must be last in a tuple")
		}
		if p.cur.Type == ELLIPSIS {
			restTok := p.cur
			p.next()
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			elem, ok := arrayElement(t)
			if !ok {
				return nil, p.errorf(restTok, "rest element must be an array type")
			}
			tuple.Rest = elem
		} else {
			elemTok := p.cur
			t, err := p.parseType()
			if err != nil {
				return nil, err
			}
			if p.cur.Type == QUESTION {
				p.next()
				if tuple.FirstOptional < 0 {
					tuple.FirstOptional = len(tuple.Elements)
				}
			} else if tuple.FirstOptional >= 0 {
				return nil, p.errorf(elemTok, "required element follows an optional one")
			}
			tuple.Elements = append(tuple.Elements, t)
		}
		if p.cur.Type == COMMA {
			p.next()
		} else if p.cur.Type != RBRACKET {
			return nil, p.unexpected(`"," or "]"`)
		}
	}
	p.next()
	if tuple.FirstOptional < 0 {
		tuple.FirstOptional = len(tuple.Elements)
	}
	return tuple, nil
}

func arrayElement(t ir.Type) (ir.Type, bool) {
	switch n := t.(type) {
	case ir.Container:
		if n.Kind == ir.ArrayKind {
			return n.Elements[0], true
		}
	case ir.Reference:
		if n.Name == string(ir.ArrayKind) && len(n.Args) == 1 {
			return n.Args[0], true
		}
	}
	return nil, false
}
