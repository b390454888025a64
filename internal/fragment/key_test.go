package fragment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		raw  string
		want Key
	}{
		{"abg", Key{Name: "abg"}},
		{"_private", Key{Name: "_private"}},
		{"?:number", Key{Name: "number", Tag: TagNonCapture}},
		{"?>eggs", Key{Name: "eggs", Tag: TagAtomic}},
		{"?=posahead", Key{Name: "posahead", Tag: TagLookahead}},
		{"?!negahead", Key{Name: "negahead", Tag: TagNegLookahead}},
		{"?<=posbehind", Key{Name: "posbehind", Tag: TagLookbehind}},
		{"?<!negbehind", Key{Name: "negbehind", Tag: TagNegLookbehind}},
		{"?i:word", Key{Name: "word", Tag: TagInlineFlags, Flags: "i"}},
		{"?i-s:word", Key{Name: "word", Tag: TagInlineFlags, Flags: "i-s"}},
		{"?-x:word", Key{Name: "word", Tag: TagInlineFlags, Flags: "-x"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseKey(tt.raw)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.raw, got.String(), "round trip")
		})
	}
}

func TestParseKey_Invalid(t *testing.T) {
	for _, raw := range []string{"", "?", "?:", "?q:word", "?ii:word", "?i-s-m:word", "?-:word", "9lives", "has space", "?<word"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseKey(raw)
			require.Error(t, err)
		})
	}
}

func TestTag_Capturing(t *testing.T) {
	require.True(t, TagCapture.Capturing())
	for _, tag := range []Tag{TagNonCapture, TagAtomic, TagInlineFlags, TagLookahead, TagNegLookahead, TagLookbehind, TagNegLookbehind} {
		require.False(t, tag.Capturing(), tag.String())
	}
}

func TestValidIdentifier(t *testing.T) {
	require.True(t, ValidIdentifier("month_name"))
	require.True(t, ValidIdentifier("a1"))
	require.False(t, ValidIdentifier("1a"))
	require.False(t, ValidIdentifier("mötley"))
	require.False(t, ValidIdentifier(""))
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	require.Equal(t, 0, l.Count("abg"))

	first := l.Next("abg")
	second := l.Next("abg")
	other := l.Next("day")

	require.Equal(t, Occurrence{Key: "abg", Index: 0, Name: "abg_0"}, first)
	require.Equal(t, Occurrence{Key: "abg", Index: 1, Name: "abg_1"}, second)
	require.Equal(t, Occurrence{Key: "day", Index: 0, Name: "day_0"}, other)
	require.Equal(t, 2, l.Count("abg"))
	require.Equal(t, []Occurrence{first, second, other}, l.Occurrences())
}

func TestSyntaxByName(t *testing.T) {
	s, err := SyntaxByName("python")
	require.NoError(t, err)
	require.Equal(t, Python, s)

	s, err = SyntaxByName("")
	require.NoError(t, err)
	require.Equal(t, NET, s)

	_, err = SyntaxByName("pcre")
	require.Error(t, err)
}
