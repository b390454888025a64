// Package compile turns template definitions into executable patterns.
package compile

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/replus/internal/fragment"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/template"
)

// Entry is one resolved top-level pattern of a type.
type Entry struct {
	Index       int
	Template    string
	Resolved    string
	CaptureName string
	Occurrences []fragment.Occurrence
}

// CompileError reports a source the regex engine rejected.
type CompileError struct {
	Type     string
	Entry    int // -1 when no single entry could be blamed
	Template string
	Source   string
	Err      error
}

func (e *CompileError) Error() string {
	if e.Entry >= 0 {
		return fmt.Sprintf("type %q: entry %d %q does not compile: %v", e.Type, e.Entry, e.Template, e.Err)
	}
	return fmt.Sprintf("type %q: pattern does not compile: %v", e.Type, e.Err)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// ResolveEntries resolves every top-level pattern of def with a fresh
// ledger each, and names the capture wrapping each entry.
func ResolveEntries(def template.Definition, syntax fragment.Syntax) ([]Entry, error) {
	if !fragment.ValidIdentifier(def.Type) {
		return nil, &fragment.DefinitionError{Type: def.Type, Reason: "type name is not a valid identifier"}
	}
	if len(def.Patterns) == 0 {
		return nil, &fragment.DefinitionError{Type: def.Type, Key: template.PatternsKey, Reason: "type has no top-level patterns"}
	}

	resolver, err := fragment.NewResolver(def.Type, def.Fragments, syntax)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(def.Patterns))
	taken := make(map[string]bool)
	for i, pattern := range def.Patterns {
		ledger := fragment.NewLedger()
		resolved, err := resolver.Resolve(pattern, ledger)
		if err != nil {
			return nil, err
		}
		occs := ledger.Occurrences()
		for _, occ := range occs {
			taken[occ.Name] = true
		}
		entries = append(entries, Entry{
			Index:       i,
			Template:    pattern,
			Resolved:    resolved,
			Occurrences: occs,
		})
	}

	for i := range entries {
		name := fragment.OccurrenceName(def.Type, i)
		for taken[name] {
			name = "_" + name
		}
		taken[name] = true
		entries[i].CaptureName = name
	}
	return entries, nil
}

// Render returns the combined source of def in the given syntax without
// compiling it.
func Render(def template.Definition, syntax fragment.Syntax, opts Options) (string, error) {
	entries, err := ResolveEntries(def, syntax)
	if err != nil {
		return "", err
	}
	return join(entries, syntax, opts.WhitespaceNoise), nil
}

func join(entries []Entry, syntax fragment.Syntax, noise string) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = wrapEntry(e, syntax, noise)
	}
	return strings.Join(parts, "|")
}

func wrapEntry(e Entry, syntax fragment.Syntax, noise string) string {
	return syntax.NamedGroup(e.CaptureName, applyNoise(e.Resolved, noise))
}

// CompileType resolves and compiles one type. Construction is
// all-or-nothing: any error leaves no CompiledType behind.
func CompileType(def template.Definition, opts Options) (*CompiledType, error) {
	flags, err := ParseFlags(opts.Flags)
	if err != nil {
		return nil, fmt.Errorf("type %q: %w", def.Type, err)
	}

	entries, err := ResolveEntries(def, fragment.NET)
	if err != nil {
		return nil, err
	}
	source := join(entries, fragment.NET, opts.WhitespaceNoise)

	re, err := regexp2.Compile(source, flags)
	if err != nil {
		cerr := &CompileError{Type: def.Type, Entry: -1, Source: source, Err: err}
		blame(cerr, entries, flags, opts.WhitespaceNoise)
		log.Debug(log.CatCompile, "compile failed", "type", def.Type, "entry", cerr.Entry, "error", err)
		return nil, cerr
	}
	if opts.MatchTimeout > 0 {
		re.MatchTimeout = opts.MatchTimeout
	}

	ct := newCompiledType(def.Type, source, re, entries)
	log.Debug(log.CatCompile, "compiled type", "type", def.Type, "entries", len(entries), "captures", len(ct.occurrences))
	return ct, nil
}

// blame finds the first entry that fails on its own.
func blame(cerr *CompileError, entries []Entry, flags regexp2.RegexOptions, noise string) {
	for _, e := range entries {
		if _, err := regexp2.Compile(wrapEntry(e, fragment.NET, noise), flags); err != nil {
			cerr.Entry = e.Index
			cerr.Template = e.Template
			cerr.Err = err
			return
		}
	}
}

// IsConstructionError reports whether err is one of the errors a type
// can fail to build with.
func IsConstructionError(err error) bool {
	var (
		defErr   *fragment.DefinitionError
		cycleErr *fragment.CycleError
		compErr  *CompileError
	)
	return errors.As(err, &defErr) || errors.As(err, &cycleErr) || errors.As(err, &compErr)
}

// CompiledType is the immutable compiled form of one type.
type CompiledType struct {
	name        string
	source      string
	re          *regexp2.Regexp
	entries     []Entry
	entryIndex  map[string]int
	occurrences map[string]fragment.Occurrence
	ordinals    []map[string]int
}

func newCompiledType(name, source string, re *regexp2.Regexp, entries []Entry) *CompiledType {
	ct := &CompiledType{
		name:        name,
		source:      source,
		re:          re,
		entries:     entries,
		entryIndex:  make(map[string]int, len(entries)),
		occurrences: make(map[string]fragment.Occurrence),
		ordinals:    make([]map[string]int, len(entries)),
	}
	for i, e := range entries {
		ct.entryIndex[e.CaptureName] = i
		ct.ordinals[i] = make(map[string]int, len(e.Occurrences))
		for ord, occ := range e.Occurrences {
			ct.occurrences[occ.Name] = occ
			ct.ordinals[i][occ.Name] = ord
		}
	}
	return ct
}

// Name returns the type name.
func (c *CompiledType) Name() string { return c.name }

// Source returns the combined pattern handed to the engine.
func (c *CompiledType) Source() string { return c.source }

// Regexp returns the compiled matcher. It is safe for concurrent use.
func (c *CompiledType) Regexp() *regexp2.Regexp { return c.re }

// Entries returns the resolved top-level patterns.
func (c *CompiledType) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Occurrence maps an emitted capture name back to its logical key.
func (c *CompiledType) Occurrence(name string) (fragment.Occurrence, bool) {
	occ, ok := c.occurrences[name]
	return occ, ok
}

// Key returns the logical fragment key of an emitted capture name.
func (c *CompiledType) Key(name string) (string, bool) {
	occ, ok := c.occurrences[name]
	return occ.Key, ok
}

// EntryIndex reports which top-level pattern an entry capture wraps.
func (c *CompiledType) EntryIndex(name string) (int, bool) {
	i, ok := c.entryIndex[name]
	return i, ok
}

// Ordinal returns the emission position of a capture within an entry.
// Nested captures are emitted before the captures enclosing them.
func (c *CompiledType) Ordinal(entry int, name string) (int, bool) {
	if entry < 0 || entry >= len(c.ordinals) {
		return 0, false
	}
	ord, ok := c.ordinals[entry][name]
	return ord, ok
}

// CaptureNames returns every emitted occurrence name, sorted.
func (c *CompiledType) CaptureNames() []string {
	names := make([]string, 0, len(c.occurrences))
	for name := range c.occurrences {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
