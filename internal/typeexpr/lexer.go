package typeexpr

import (
	"strconv"
	"strings"
)

// Lexer tokenizes declaration source one byte at a time.
type Lexer struct {
	input        string
	position     int  // current position in input (points to ch)
	readPosition int  // next position to read
	ch           byte // current character, 0 at end of input
	line         int
	col          int
}

// NewLexer creates a Lexer for input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
	}
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	l.col++
}

func (l *Lexer) peekChar() byte {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	l.skipTrivia()

	tok := Token{Line: l.line, Col: l.col}
	single := func(t TokenType) Token {
		tok.Type = t
		tok.Literal = string(l.ch)
		l.readChar()
		return tok
	}

	switch l.ch {
	case 0:
		tok.Type = EOF
		return tok
	case '=':
		return single(ASSIGN)
	case '|':
		return single(PIPE)
	case '&':
		return single(AMP)
	case '?':
		return single(QUESTION)
	case ':':
		return single(COLON)
	case ';':
		return single(SEMICOLON)
	case ',':
		return single(COMMA)
	case '-':
		return single(MINUS)
	case '<':
		return single(LT)
	case '>':
		return single(GT)
	case '(':
		return single(LPAREN)
	case ')':
		return single(RPAREN)
	case '{':
		return single(LBRACE)
	case '}':
		return single(RBRACE)
	case '[':
		return single(LBRACKET)
	case ']':
		return single(RBRACKET)
	case '.':
		if strings.HasPrefix(l.input[l.position:], "...") {
			l.readChar()
			l.readChar()
			l.readChar()
			tok.Type = ELLIPSIS
			tok.Literal = "..."
			return tok
		}
		return single(ILLEGAL)
	case '"', '\'':
		value, ok := l.readString()
		if !ok {
			tok.Type = ILLEGAL
			tok.Literal = "unterminated string"
			return tok
		}
		tok.Type = STRING
		tok.Literal = value
		return tok
	}

	if isLetter(l.ch) {
		tok.Type = IDENT
		tok.Literal = l.readIdentifier()
		return tok
	}
	if isDigit(l.ch) {
		tok.Type = NUMBER
		tok.Literal = l.readNumber()
		return tok
	}
	return single(ILLEGAL)
}

// skipTrivia skips whitespace and comments.
func (l *Lexer) skipTrivia() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() string {
	start := l.position
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return l.input[start:l.position]
}

// readString reads a quoted string and returns its unescaped value.
func (l *Lexer) readString() (string, bool) {
	quote := l.ch
	l.readChar()
	var sb strings.Builder
	for l.ch != quote {
		switch l.ch {
		case 0, '\n':
			return "", false
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'u':
				hex := ""
				for i := 0; i < 4; i++ {
					l.readChar()
					hex += string(l.ch)
				}
				r, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", false
				}
				sb.WriteRune(rune(r))
			case 0:
				return "", false
			default:
				sb.WriteByte(l.ch)
			}
		default:
			sb.WriteByte(l.ch)
		}
		l.readChar()
	}
	l.readChar()
	return sb.String(), true
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_' || ch == '$'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}
