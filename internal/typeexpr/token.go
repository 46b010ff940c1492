package typeexpr

import "fmt"

// TokenType identifies the kind of a lexical token.
type TokenType string

// Token types.
const (
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	IDENT  TokenType = "IDENT"
	STRING TokenType = "STRING"
	NUMBER TokenType = "NUMBER"

	ASSIGN    TokenType = "="
	PIPE      TokenType = "|"
	AMP       TokenType = "&"
	QUESTION  TokenType = "?"
	COLON     TokenType = ":"
	SEMICOLON TokenType = ";"
	COMMA     TokenType = ","
	MINUS     TokenType = "-"
	ELLIPSIS  TokenType = "..."
	LT        TokenType = "<"
	GT        TokenType = ">"
	LPAREN    TokenType = "("
	RPAREN    TokenType = ")"
	LBRACE    TokenType = "{"
	RBRACE    TokenType = "}"
	LBRACKET  TokenType = "["
	RBRACKET  TokenType = "]"
)

// Token is a lexical token with its source position.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Col     int
}

func (t Token) String() string {
	switch t.Type {
	case EOF:
		return "end of input"
	case IDENT, NUMBER:
		return fmt.Sprintf("%q", t.Literal)
	case STRING:
		return "string literal"
	}
	return fmt.Sprintf("%q", string(t.Type))
}
