package compile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/replus/internal/cachemanager"
	"github.com/zjrosen/replus/internal/fragment"
	"github.com/zjrosen/replus/internal/template"
)

func dateDefinition() template.Definition {
	return template.Definition{
		Type: "date",
		Fragments: map[string][]string{
			"day":   {"3[01]", "[12][0-9]", "0?[1-9]"},
			"month": {"0?[1-9]", "1[012]"},
			"year":  {`\d{4}`},
			"date":  {"{{year}}-{{month}}-{{day}}"},
		},
		Patterns: []string{"{{date}}", "{{month}}/{{year}}"},
	}
}

func TestResolveEntries(t *testing.T) {
	entries, err := ResolveEntries(dateDefinition(), fragment.NET)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	require.Equal(t, "{{date}}", entries[0].Template)
	require.Equal(t, "_date_0", entries[0].CaptureName, "type_0 collides with the date fragment")
	require.Equal(t, "date_1", entries[1].CaptureName)

	var names []string
	for _, occ := range entries[0].Occurrences {
		names = append(names, occ.Name)
	}
	require.Equal(t, []string{"year_0", "month_0", "day_0", "date_0"}, names)

	// Each entry starts with a fresh ledger.
	require.Equal(t, "month_0", entries[1].Occurrences[0].Name)
	require.Equal(t, "year_0", entries[1].Occurrences[1].Name)
}

func TestResolveEntries_Errors(t *testing.T) {
	_, err := ResolveEntries(template.Definition{Type: "9bad", Patterns: []string{"x"}}, fragment.NET)
	var defErr *fragment.DefinitionError
	require.ErrorAs(t, err, &defErr)

	_, err = ResolveEntries(template.Definition{Type: "empty"}, fragment.NET)
	require.ErrorAs(t, err, &defErr)
	require.Equal(t, template.PatternsKey, defErr.Key)
}

func TestRender_PythonSyntax(t *testing.T) {
	src, err := Render(template.Definition{
		Type:      "tests",
		Fragments: map[string][]string{"abg": {"alpha", "beta", "gamma"}},
		Patterns:  []string{"{{abg}} {{abg}} {{abg}} {{#abg}}"},
	}, fragment.Python, Options{})
	require.NoError(t, err)
	require.Equal(t,
		"(?P<tests_0>(?P<abg_0>alpha|beta|gamma) (?P<abg_1>alpha|beta|gamma) (?P<abg_2>alpha|beta|gamma) (?P=abg_2))",
		src)
}

func TestCompileType(t *testing.T) {
	ct, err := CompileType(dateDefinition(), Options{})
	require.NoError(t, err)

	require.Equal(t, "date", ct.Name())
	require.Contains(t, ct.Source(), `(?<_date_0>(?<date_0>(?<year_0>\d{4})-`)
	require.NotNil(t, ct.Regexp())

	key, ok := ct.Key("month_0")
	require.True(t, ok)
	require.Equal(t, "month", key)

	_, ok = ct.Key("_date_0")
	require.False(t, ok, "entry captures are not fragment occurrences")

	i, ok := ct.EntryIndex("date_1")
	require.True(t, ok)
	require.Equal(t, 1, i)

	ord, ok := ct.Ordinal(0, "date_0")
	require.True(t, ok)
	require.Equal(t, 3, ord)
	_, ok = ct.Ordinal(1, "date_0")
	require.False(t, ok)

	require.Equal(t, []string{"date_0", "day_0", "month_0", "year_0"}, ct.CaptureNames())

	m, err := ct.Regexp().FindStringMatch("on 2012-12-10")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "2012-12-10", m.String())
}

func TestCompileType_CompileError(t *testing.T) {
	_, err := CompileType(template.Definition{
		Type:      "test",
		Fragments: map[string][]string{"test": {"This is a test (pattern"}},
		Patterns:  []string{"ok", "{{test}}"},
	}, Options{})

	var compErr *CompileError
	require.ErrorAs(t, err, &compErr)
	require.Equal(t, "test", compErr.Type)
	require.Equal(t, 1, compErr.Entry)
	require.Equal(t, "{{test}}", compErr.Template)
	require.NotEmpty(t, compErr.Source)
	require.NotNil(t, compErr.Unwrap())
	require.True(t, IsConstructionError(err))
}

func TestCompileType_PropagatesResolverErrors(t *testing.T) {
	_, err := CompileType(template.Definition{
		Type:      "loop",
		Fragments: map[string][]string{"A": {"{{B}}"}, "B": {"{{A}}"}},
		Patterns:  []string{"{{A}}"},
	}, Options{})
	var cycleErr *fragment.CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.True(t, IsConstructionError(err))

	_, err = CompileType(template.Definition{
		Type:      "tests",
		Fragments: map[string][]string{"abg": {"alpha", "beta"}},
		Patterns:  []string{"{{abg}} {{abg}} {{#abg@5}}"},
	}, Options{})
	var defErr *fragment.DefinitionError
	require.ErrorAs(t, err, &defErr)
}

func TestCompileType_Flags(t *testing.T) {
	def := template.Definition{Type: "word", Patterns: []string{"hello"}}

	ct, err := CompileType(def, Options{Flags: "i"})
	require.NoError(t, err)
	ok, err := ct.Regexp().MatchString("HELLO")
	require.NoError(t, err)
	require.True(t, ok)

	_, err = CompileType(def, Options{Flags: "q"})
	require.Error(t, err)
	require.False(t, IsConstructionError(err))
}

func TestCompileType_WhitespaceNoise(t *testing.T) {
	ct, err := CompileType(template.Definition{
		Type:      "test",
		Fragments: map[string][]string{"test": {"This is a test (pattern)"}},
		Patterns:  []string{"{{test}}"},
	}, Options{WhitespaceNoise: "#"})
	require.NoError(t, err)

	m, err := ct.Regexp().FindStringMatch("This#is#a#test#pattern")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "This#is#a#test#pattern", m.String())
}

func TestCompileType_MatchTimeout(t *testing.T) {
	ct, err := CompileType(template.Definition{Type: "t", Patterns: []string{"x"}}, Options{MatchTimeout: time.Second})
	require.NoError(t, err)
	require.Equal(t, time.Second, ct.Regexp().MatchTimeout)
}

func TestApplyNoise(t *testing.T) {
	repl := `(?:\s|(?:#))`
	tests := []struct {
		in   string
		want string
	}{
		{"a b", "a" + repl + "b"},
		{`a\sb`, "a" + repl + "b"},
		{`a\ b`, `a\ b`},
		{`[ \s]`, `[ \s]`},
		{`[] ] x`, `[] ]` + repl + "x"},
		{`[^] ] `, `[^] ]` + repl},
		{`\\s`, `\\s`},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			require.Equal(t, tt.want, applyNoise(tt.in, "#"))
		})
	}
	require.Equal(t, "a b", applyNoise("a b", ""))
}

func TestParseFlags(t *testing.T) {
	_, err := ParseFlags("imsxnu")
	require.NoError(t, err)

	_, err = ParseFlags("l")
	require.Error(t, err)
}

func TestOptions_Validate(t *testing.T) {
	require.NoError(t, Options{Flags: "i", WhitespaceNoise: "#"}.Validate())
	require.Error(t, Options{MatchTimeout: -time.Second}.Validate())
	require.Error(t, Options{WhitespaceNoise: "("}.Validate())
}

func TestFingerprint(t *testing.T) {
	def := dateDefinition()
	a := Fingerprint(def, Options{})
	require.Equal(t, a, Fingerprint(def.Clone(), Options{}))
	require.NotEqual(t, a, Fingerprint(def, Options{Flags: "i"}))

	changed := def.Clone()
	changed.Fragments["year"] = []string{`\d{2}`}
	require.NotEqual(t, a, Fingerprint(changed, Options{}))

	// Field boundaries are part of the hash.
	x := template.Definition{Type: "t", Patterns: []string{"ab", "c"}}
	y := template.Definition{Type: "t", Patterns: []string{"a", "bc"}}
	require.NotEqual(t, Fingerprint(x, Options{}), Fingerprint(y, Options{}))
}

func TestCompiler_CachesByFingerprint(t *testing.T) {
	ctx := context.Background()
	cache := cachemanager.NewInMemoryCacheManager[string, *CompiledType]("compiled-types", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	c := NewCompiler(Options{}, cache, 0)

	first, err := c.Compile(ctx, dateDefinition())
	require.NoError(t, err)
	second, err := c.Compile(ctx, dateDefinition())
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, 1, cache.Len())

	changed := dateDefinition()
	changed.Patterns = []string{"{{date}}"}
	third, err := c.Compile(ctx, changed)
	require.NoError(t, err)
	require.NotSame(t, first, third)
	require.Equal(t, 2, cache.Len())
}

func TestCompiler_NilCacheAndCancelledContext(t *testing.T) {
	c := NewCompiler(Options{}, nil, 0)
	a, err := c.Compile(context.Background(), dateDefinition())
	require.NoError(t, err)
	b, err := c.Compile(context.Background(), dateDefinition())
	require.NoError(t, err)
	require.NotSame(t, a, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Compile(ctx, dateDefinition())
	require.ErrorIs(t, err, context.Canceled)
}
