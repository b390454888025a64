package fragment

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

type definition struct {
	key          Key
	alternatives []string
}

// Resolver expands fragment references of one type.
//
// A Resolver is not safe for concurrent use: it keeps the expansion stack
// used for cycle detection.
type Resolver struct {
	typeName  string
	fragments map[string]definition
	syntax    Syntax
	stack     []string
}

// NewResolver validates the fragment keys of a type and returns a
// resolver over them. A nil syntax defaults to NET.
func NewResolver(typeName string, fragments map[string][]string, syntax Syntax) (*Resolver, error) {
	if syntax == nil {
		syntax = NET
	}
	r := &Resolver{
		typeName:  typeName,
		fragments: make(map[string]definition, len(fragments)),
		syntax:    syntax,
	}

	raw := make([]string, 0, len(fragments))
	for k := range fragments {
		raw = append(raw, k)
	}
	sort.Strings(raw)

	for _, rk := range raw {
		key, err := ParseKey(rk)
		if err != nil {
			return nil, &DefinitionError{Type: typeName, Key: rk, Reason: err.Error()}
		}
		if prev, ok := r.fragments[key.Name]; ok {
			return nil, &DefinitionError{
				Type:   typeName,
				Key:    key.Name,
				Reason: fmt.Sprintf("defined twice as %q and %q", prev.key, key),
			}
		}
		alts := fragments[rk]
		if len(alts) == 0 {
			return nil, &DefinitionError{Type: typeName, Key: rk, Reason: "has no alternatives"}
		}
		r.fragments[key.Name] = definition{key: key, alternatives: alts}
	}
	return r, nil
}

// Syntax returns the dialect the resolver emits.
func (r *Resolver) Syntax() Syntax {
	return r.syntax
}

// Expand resolves every alternative of key, depth-first and left to
// right. The key's group prefix, if any, is ignored for lookup.
func (r *Resolver) Expand(key string, ledger *Ledger) ([]string, error) {
	k, err := ParseKey(key)
	if err != nil {
		return nil, &DefinitionError{Type: r.typeName, Key: key, Reason: err.Error()}
	}
	return r.expand(k.Name, "", ledger)
}

func (r *Resolver) expand(name, pattern string, ledger *Ledger) ([]string, error) {
	def, ok := r.fragments[name]
	if !ok {
		return nil, &DefinitionError{Type: r.typeName, Key: name, Pattern: pattern, Reason: "unknown fragment"}
	}

	if i := slices.Index(r.stack, name); i >= 0 {
		chain := append(slices.Clone(r.stack[i:]), name)
		return nil, &CycleError{Type: r.typeName, Key: name, Chain: chain, Pattern: pattern}
	}
	r.stack = append(r.stack, name)
	defer func() { r.stack = r.stack[:len(r.stack)-1] }()

	out := make([]string, 0, len(def.alternatives))
	for _, alt := range def.alternatives {
		resolved, err := r.Resolve(alt, ledger)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved)
	}
	return out, nil
}

// Resolve substitutes every reference token in pattern. Text outside
// tokens is copied verbatim.
func (r *Resolver) Resolve(pattern string, ledger *Ledger) (string, error) {
	var b strings.Builder
	lexer := NewLexer(pattern)
	for {
		tok := lexer.NextToken()
		switch tok.Type {
		case TokenEOF:
			return b.String(), nil
		case TokenText:
			b.WriteString(tok.Literal)
		case TokenIllegal:
			return "", &DefinitionError{
				Type:    r.typeName,
				Pattern: pattern,
				Reason:  fmt.Sprintf("unterminated reference at offset %d", tok.Pos),
			}
		case TokenRef:
			ref, err := ParseReference(tok.Literal)
			if err != nil {
				return "", &DefinitionError{Type: r.typeName, Key: tok.Literal, Pattern: pattern, Reason: err.Error()}
			}
			var s string
			if ref.Backref {
				s, err = r.backreference(ref, pattern, ledger)
			} else {
				s, err = r.reference(ref, pattern, ledger)
			}
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
}

// reference expands a fragment and wraps it according to its tag. A tag
// on the reference overrides the one on the definition. The occurrence
// index is allocated after the children so nested names come first.
func (r *Resolver) reference(ref Reference, pattern string, ledger *Ledger) (string, error) {
	def, ok := r.fragments[ref.Key.Name]
	if !ok {
		return "", &DefinitionError{Type: r.typeName, Key: ref.Key.Name, Pattern: pattern, Reason: "unknown fragment"}
	}
	key := def.key
	if ref.Key.Tag != TagCapture {
		key = ref.Key
	}

	alts, err := r.expand(key.Name, pattern, ledger)
	if err != nil {
		return "", err
	}
	body := strings.Join(alts, "|")

	if key.Tag.Capturing() {
		occ := ledger.Next(key.Name)
		return r.syntax.NamedGroup(occ.Name, body), nil
	}
	return key.open() + body + ")", nil
}

// backreference points at an occurrence already emitted in this
// top-level pattern: @1 is the most recent, @2 the one before it.
func (r *Resolver) backreference(ref Reference, pattern string, ledger *Ledger) (string, error) {
	name := ref.Key.Name
	def, ok := r.fragments[name]
	if !ok {
		return "", &DefinitionError{Type: r.typeName, Key: name, Pattern: pattern, Reason: "unknown fragment"}
	}
	if !def.key.Tag.Capturing() {
		return "", &DefinitionError{
			Type:    r.typeName,
			Key:     name,
			Pattern: pattern,
			Reason:  fmt.Sprintf("cannot backreference a %s fragment", def.key.Tag),
		}
	}

	count := ledger.Count(name)
	if count == 0 {
		return "", &DefinitionError{Type: r.typeName, Key: name, Pattern: pattern, Reason: "backreference before any occurrence"}
	}
	if ref.Nth > count {
		return "", &DefinitionError{
			Type:    r.typeName,
			Key:     name,
			Pattern: pattern,
			Reason:  fmt.Sprintf("backreference @%d exceeds the %d occurrence(s) emitted so far", ref.Nth, count),
		}
	}
	return r.syntax.Backreference(OccurrenceName(name, count-ref.Nth)), nil
}
