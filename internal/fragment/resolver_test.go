package fragment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// testsFragments mirrors the "tests" model shipped with the test suite.
var testsFragments = map[string][]string{
	"?:number":     {`\d`},
	"abg":          {"alpha", "beta", "gamma"},
	"spam":         {"spam"},
	"eggs":         {"eggs"},
	"?=posahead":   {"foo", "bar"},
	"?<=posbehind": {"foo", "bar"},
	"?!negahead":   {"foo", "bar"},
	"?<!negbehind": {"foo", "bar"},
}

func resolveOne(t *testing.T, syntax Syntax, fragments map[string][]string, pattern string) (string, *Ledger) {
	t.Helper()
	r, err := NewResolver("tests", fragments, syntax)
	require.NoError(t, err)
	ledger := NewLedger()
	out, err := r.Resolve(pattern, ledger)
	require.NoError(t, err)
	return out, ledger
}

func TestResolve_PythonSyntax(t *testing.T) {
	tests := []struct {
		pattern string
		want    string
	}{
		{
			"This is an unnamed number group: {{number}}.",
			`This is an unnamed number group: (?:\d).`,
		},
		{
			"I can match {{abg}} and {{abg}}, and then re-match the last {{#abg}} or the second last {{#abg@2}}",
			"I can match (?P<abg_0>alpha|beta|gamma) and (?P<abg_1>alpha|beta|gamma), and then re-match the last (?P=abg_1) or the second last (?P=abg_0)",
		},
		{
			"Here is some {{?:spam}} and some {{?>eggs}}",
			"Here is some (?:spam) and some (?>eggs)",
		},
		{
			"{{negbehind}} blah blah, {{negahead}} foo foo, {{posbehind}} bar bar, {{posahead}} yoyo",
			"(?<!foo|bar) blah blah, (?!foo|bar) foo foo, (?<=foo|bar) bar bar, (?=foo|bar) yoyo",
		},
		{
			"{{?<=abg}} {{?<!abg}} {{?!abg}} {{?=abg}}",
			"(?<=alpha|beta|gamma) (?<!alpha|beta|gamma) (?!alpha|beta|gamma) (?=alpha|beta|gamma)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, _ := resolveOne(t, Python, testsFragments, tt.pattern)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_NETSyntax(t *testing.T) {
	got, _ := resolveOne(t, NET, testsFragments, "{{abg}} {{#abg}}")
	require.Equal(t, `(?<abg_0>alpha|beta|gamma) \k<abg_0>`, got)
}

func TestResolve_BackreferenceArithmetic(t *testing.T) {
	pattern := "{{abg}}{{abg}}{{abg}}"

	got, _ := resolveOne(t, Python, testsFragments, pattern+"{{#abg}}")
	require.Contains(t, got, "(?P<abg_2>alpha|beta|gamma)(?P=abg_2)")

	got, _ = resolveOne(t, Python, testsFragments, pattern+"{{#abg@2}}")
	require.Contains(t, got, ")(?P=abg_1)")

	got, _ = resolveOne(t, Python, testsFragments, pattern+"{{#abg@3}}")
	require.Contains(t, got, ")(?P=abg_0)")
}

func TestResolve_BackreferenceDoesNotAllocate(t *testing.T) {
	_, ledger := resolveOne(t, NET, testsFragments, "{{abg}} {{#abg}} {{#abg}}")
	require.Equal(t, 1, ledger.Count("abg"))
}

func TestResolve_BackreferenceBeyondOccurrences(t *testing.T) {
	r, err := NewResolver("tests", testsFragments, NET)
	require.NoError(t, err)

	_, err = r.Resolve("{{abg}} {{abg}} {{#abg@5}}", NewLedger())
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Equal(t, "abg", defErr.Key)
	require.Equal(t, "tests", defErr.Type)
	require.Contains(t, defErr.Reason, "@5")
	require.Contains(t, err.Error(), "{{#abg@5}}")
}

func TestResolve_BackreferenceBeforeOccurrence(t *testing.T) {
	r, err := NewResolver("tests", testsFragments, NET)
	require.NoError(t, err)

	_, err = r.Resolve("{{#abg}} {{abg}}", NewLedger())
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Contains(t, defErr.Reason, "before any occurrence")
}

func TestResolve_BackreferenceToNonCapturing(t *testing.T) {
	r, err := NewResolver("tests", testsFragments, NET)
	require.NoError(t, err)

	_, err = r.Resolve("{{number}} {{#number}}", NewLedger())
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Contains(t, defErr.Reason, "non-capturing")
}

func TestResolve_NestedOccurrenceOrder(t *testing.T) {
	fragments := map[string][]string{
		"year":  {`\d{4}`},
		"month": {`\d{2}`},
		"date":  {"{{year}}-{{month}}", "{{month}}/{{year}}"},
	}
	got, ledger := resolveOne(t, NET, fragments, "{{date}}")

	require.Equal(t,
		`(?<date_0>(?<year_0>\d{4})-(?<month_0>\d{2})|(?<month_1>\d{2})/(?<year_1>\d{4}))`,
		got)
	names := make([]string, 0)
	for _, occ := range ledger.Occurrences() {
		names = append(names, occ.Name)
	}
	require.Equal(t, []string{"year_0", "month_0", "month_1", "year_1", "date_0"}, names)
}

func TestResolve_DiamondIsNotACycle(t *testing.T) {
	fragments := map[string][]string{
		"a": {"{{b}}{{c}}"},
		"b": {"{{c}}"},
		"c": {"x"},
	}
	got, _ := resolveOne(t, NET, fragments, "{{a}}")
	require.Equal(t, "(?<a_0>(?<b_0>(?<c_0>x))(?<c_1>x))", got)
}

func TestResolve_InlineFlags(t *testing.T) {
	got, ledger := resolveOne(t, NET, testsFragments, "{{?i:abg}}")
	require.Equal(t, "(?i:alpha|beta|gamma)", got)
	require.Empty(t, ledger.Occurrences())
}

func TestResolve_ReferencePrefixOverridesDefinition(t *testing.T) {
	got, _ := resolveOne(t, NET, testsFragments, "{{?>number}}")
	require.Equal(t, `(?>\d)`, got)
}

func TestResolve_Cycle(t *testing.T) {
	r, err := NewResolver("loop", map[string][]string{
		"A": {"{{B}}"},
		"B": {"x", "{{A}}"},
	}, NET)
	require.NoError(t, err)

	_, err = r.Resolve("{{A}}", NewLedger())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"A", "B", "A"}, cycleErr.Chain)
	require.Equal(t, "loop", cycleErr.Type)
	require.Contains(t, err.Error(), "A -> B -> A")
}

func TestResolve_SelfCycle(t *testing.T) {
	r, err := NewResolver("loop", map[string][]string{"A": {"a{{A}}"}}, NET)
	require.NoError(t, err)

	_, err = r.Expand("A", NewLedger())
	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.Equal(t, []string{"A", "A"}, cycleErr.Chain)
}

func TestResolve_ResolverReusableAfterError(t *testing.T) {
	r, err := NewResolver("loop", map[string][]string{
		"A": {"{{A}}"},
		"B": {"b"},
	}, NET)
	require.NoError(t, err)

	_, err = r.Resolve("{{A}}", NewLedger())
	require.Error(t, err)

	out, err := r.Resolve("{{B}}", NewLedger())
	require.NoError(t, err)
	require.Equal(t, "(?<B_0>b)", out)
}

func TestResolve_DefinitionErrors(t *testing.T) {
	r, err := NewResolver("tests", testsFragments, NET)
	require.NoError(t, err)

	for _, pattern := range []string{"{{missing}}", "{{}}", "{{abg@2}}", "x {{abg", "{{#?:abg}}", "{{?q:abg}}"} {
		t.Run(pattern, func(t *testing.T) {
			_, err := r.Resolve(pattern, NewLedger())
			var defErr *DefinitionError
			require.ErrorAs(t, err, &defErr)
			require.Equal(t, pattern, defErr.Pattern)
		})
	}
}

func TestNewResolver_ConflictingPrefixes(t *testing.T) {
	_, err := NewResolver("tests", map[string][]string{
		"number":   {`\d`},
		"?:number": {`\d`},
	}, NET)
	var defErr *DefinitionError
	require.ErrorAs(t, err, &defErr)
	require.Equal(t, "number", defErr.Key)
	require.Contains(t, defErr.Reason, "defined twice")
}

func TestNewResolver_InvalidKeys(t *testing.T) {
	_, err := NewResolver("tests", map[string][]string{"bad key": {"x"}}, NET)
	require.Error(t, err)

	_, err = NewResolver("tests", map[string][]string{"empty": {}}, NET)
	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	require.Contains(t, defErr.Reason, "no alternatives")
}

func TestExpand_ReturnsAlternatives(t *testing.T) {
	r, err := NewResolver("tests", testsFragments, NET)
	require.NoError(t, err)

	alts, err := r.Expand("?:abg", NewLedger())
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, alts)
}
