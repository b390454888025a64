package fragment

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the type of lexical token in a pattern string.
type TokenType int

const (
	TokenEOF     TokenType = iota
	TokenIllegal           // "{{" with no closing "}}"
	TokenText              // literal pattern text, passed through untouched
	TokenRef               // body of a {{...}} reference
)

// String returns the string representation of the token type.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenIllegal:
		return "ILLEGAL"
	case TokenText:
		return "TEXT"
	case TokenRef:
		return "REF"
	default:
		return "UNKNOWN"
	}
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string
	Pos     int // byte offset of the token in the input
}

// Lexer splits a pattern string into text and reference tokens.
type Lexer struct {
	input string
	pos   int
}

// NewLexer creates a new lexer for the input string.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	if l.atOpen() {
		body := l.pos + 2
		end := strings.Index(l.input[body:], "}}")
		if end < 0 {
			l.pos = len(l.input)
			return Token{Type: TokenIllegal, Literal: l.input[start:], Pos: start}
		}
		l.pos = body + end + 2
		return Token{Type: TokenRef, Literal: l.input[body : body+end], Pos: start}
	}

	for l.pos < len(l.input) && !l.atOpen() {
		l.pos++
	}
	return Token{Type: TokenText, Literal: l.input[start:l.pos], Pos: start}
}

// atOpen reports whether an unescaped "{{" starts at the current position.
func (l *Lexer) atOpen() bool {
	if !strings.HasPrefix(l.input[l.pos:], "{{") {
		return false
	}
	// An odd run of backslashes escapes the first brace.
	n := 0
	for i := l.pos - 1; i >= 0 && l.input[i] == '\\'; i-- {
		n++
	}
	return n%2 == 0
}

// Reference is a parsed {{...}} token.
type Reference struct {
	Key     Key
	Backref bool
	Nth     int // 1 = most recent occurrence; only meaningful with Backref
}

// ParseReference parses the body of a reference token: "key", "?:key",
// "#key" or "#key@n".
func ParseReference(body string) (Reference, error) {
	ref := Reference{Nth: 1}
	s := strings.TrimSpace(body)
	if s == "" {
		return Reference{}, fmt.Errorf("empty reference")
	}

	if strings.HasPrefix(s, "#") {
		ref.Backref = true
		s = s[1:]
	}

	if at := strings.IndexByte(s, '@'); at >= 0 {
		if !ref.Backref {
			return Reference{}, fmt.Errorf("occurrence selector @ requires a backreference in %q", body)
		}
		n, err := strconv.Atoi(s[at+1:])
		if err != nil {
			return Reference{}, fmt.Errorf("invalid occurrence selector in %q", body)
		}
		if n < 1 {
			return Reference{}, fmt.Errorf("occurrence selector must be >= 1 in %q", body)
		}
		ref.Nth = n
		s = s[:at]
	}

	key, err := ParseKey(s)
	if err != nil {
		return Reference{}, err
	}
	if ref.Backref && key.Tag != TagCapture {
		return Reference{}, fmt.Errorf("backreference cannot carry a group prefix in %q", body)
	}
	ref.Key = key
	return ref, nil
}
