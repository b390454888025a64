// Package template holds template definitions and loads them from
// JSON or YAML files.
package template

import (
	"fmt"
	"slices"
	"sort"
)

// PatternsKey is the reserved key listing a type's top-level patterns.
const PatternsKey = "$PATTERNS"

// Definition is the immutable template of one type: its fragments and
// the ordered top-level patterns built from them.
type Definition struct {
	Type      string
	Fragments map[string][]string
	Patterns  []string
}

// FragmentKeys returns the fragment keys in sorted order.
func (d Definition) FragmentKeys() []string {
	keys := make([]string, 0, len(d.Fragments))
	for k := range d.Fragments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy so callers cannot mutate a loaded definition.
func (d Definition) Clone() Definition {
	out := Definition{
		Type:      d.Type,
		Fragments: make(map[string][]string, len(d.Fragments)),
		Patterns:  slices.Clone(d.Patterns),
	}
	for k, alts := range d.Fragments {
		out.Fragments[k] = slices.Clone(alts)
	}
	return out
}

// Set is an ordered collection of definitions. Order is load order and
// determines the order in which the engine reports matches.
type Set struct {
	defs  []Definition
	index map[string]int
}

// NewSet builds a Set, rejecting duplicate or empty type names.
func NewSet(defs ...Definition) (*Set, error) {
	s := &Set{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if err := s.Add(d); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add appends a definition.
func (s *Set) Add(d Definition) error {
	if d.Type == "" {
		return fmt.Errorf("template: definition has no type name")
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, ok := s.index[d.Type]; ok {
		return fmt.Errorf("template: type %q defined twice", d.Type)
	}
	s.index[d.Type] = len(s.defs)
	s.defs = append(s.defs, d.Clone())
	return nil
}

// Get returns the definition for a type.
func (s *Set) Get(typeName string) (Definition, bool) {
	i, ok := s.index[typeName]
	if !ok {
		return Definition{}, false
	}
	return s.defs[i].Clone(), true
}

// Types returns the type names in load order.
func (s *Set) Types() []string {
	names := make([]string, len(s.defs))
	for i, d := range s.defs {
		names[i] = d.Type
	}
	return names
}

// Definitions returns copies of all definitions in load order.
func (s *Set) Definitions() []Definition {
	out := make([]Definition, len(s.defs))
	for i, d := range s.defs {
		out[i] = d.Clone()
	}
	return out
}

// Len returns the number of types.
func (s *Set) Len() int {
	return len(s.defs)
}
