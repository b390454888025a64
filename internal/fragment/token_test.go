package fragment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lexAll(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF {
			return toks
		}
	}
}

func TestLexer_TextAndRefs(t *testing.T) {
	toks := lexAll(`I can match {{abg}} and {{#abg@2}}.`)

	require.Equal(t, []Token{
		{Type: TokenText, Literal: "I can match ", Pos: 0},
		{Type: TokenRef, Literal: "abg", Pos: 12},
		{Type: TokenText, Literal: " and ", Pos: 19},
		{Type: TokenRef, Literal: "#abg@2", Pos: 24},
		{Type: TokenText, Literal: ".", Pos: 34},
		{Type: TokenEOF, Pos: 35},
	}, toks)
}

func TestLexer_EscapedBraces(t *testing.T) {
	toks := lexAll(`\{{abg}}`)
	require.Len(t, toks, 2)
	require.Equal(t, TokenText, toks[0].Type)
	require.Equal(t, `\{{abg}}`, toks[0].Literal)
}

func TestLexer_DoubleBackslashDoesNotEscape(t *testing.T) {
	toks := lexAll(`\\{{abg}}`)
	require.Equal(t, TokenText, toks[0].Type)
	require.Equal(t, `\\`, toks[0].Literal)
	require.Equal(t, TokenRef, toks[1].Type)
	require.Equal(t, "abg", toks[1].Literal)
}

func TestLexer_Unterminated(t *testing.T) {
	toks := lexAll(`a{{abg`)
	require.Equal(t, TokenText, toks[0].Type)
	require.Equal(t, TokenIllegal, toks[1].Type)
	require.Equal(t, 1, toks[1].Pos)
}

func TestLexer_QuantifierBracesAreText(t *testing.T) {
	toks := lexAll(`\d{4}-\d{2}`)
	require.Len(t, toks, 2)
	require.Equal(t, `\d{4}-\d{2}`, toks[0].Literal)
}

func TestParseReference(t *testing.T) {
	tests := []struct {
		body string
		want Reference
	}{
		{"abg", Reference{Key: Key{Name: "abg"}, Nth: 1}},
		{"?:spam", Reference{Key: Key{Name: "spam", Tag: TagNonCapture}, Nth: 1}},
		{"?>eggs", Reference{Key: Key{Name: "eggs", Tag: TagAtomic}, Nth: 1}},
		{"#abg", Reference{Key: Key{Name: "abg"}, Backref: true, Nth: 1}},
		{"#abg@3", Reference{Key: Key{Name: "abg"}, Backref: true, Nth: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			got, err := ParseReference(tt.body)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseReference_Errors(t *testing.T) {
	for _, body := range []string{"", "#", "abg@2", "#abg@0", "#abg@x", "#?:abg", "1abg", "a-b"} {
		t.Run(body, func(t *testing.T) {
			_, err := ParseReference(body)
			require.Error(t, err)
		})
	}
}

func TestTokenType_String(t *testing.T) {
	require.Equal(t, "REF", TokenRef.String())
	require.Equal(t, "UNKNOWN", TokenType(99).String())
}
