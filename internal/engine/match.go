package engine

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"

	"github.com/dlclark/regexp2"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/fragment"
)

// capture is one participating fragment occurrence of a match.
type capture struct {
	occ     fragment.Occurrence
	ordinal int // emission position within the entry; children come first
	span    Span
	reps    []Span
}

// Match is one search result. It is an immutable snapshot and holds no
// engine state.
type Match struct {
	spanned
	typ   string
	entry int
	caps  []*capture
}

var _ Spannable = (*Match)(nil)

func newMatch(ct *compile.CompiledType, text string, offs byteOffsets, m *regexp2.Match) *Match {
	match := &Match{
		spanned: spanned{text: text, span: offs.span(m.Index, m.Length)},
		typ:     ct.Name(),
		entry:   -1,
	}

	for _, g := range m.Groups() {
		if len(g.Captures) == 0 {
			continue
		}
		if i, ok := ct.EntryIndex(g.Name); ok {
			match.entry = i
			continue
		}
		occ, ok := ct.Occurrence(g.Name)
		if !ok {
			continue
		}
		c := &capture{occ: occ, span: offs.span(g.Index, g.Length)}
		for _, rep := range g.Captures {
			c.reps = append(c.reps, offs.span(rep.Index, rep.Length))
		}
		match.caps = append(match.caps, c)
	}

	for _, c := range match.caps {
		ord, ok := ct.Ordinal(match.entry, c.occ.Name)
		if !ok {
			ord = math.MaxInt
		}
		c.ordinal = ord
	}
	slices.SortFunc(match.caps, func(a, b *capture) int {
		return cmp.Or(
			cmp.Compare(a.span.Start, b.span.Start),
			cmp.Compare(a.occ.Index, b.occ.Index),
			cmp.Compare(a.occ.Name, b.occ.Name),
		)
	})
	return match
}

// Type returns the type that produced the match.
func (m *Match) Type() string { return m.typ }

// Entry returns the index of the top-level pattern that matched.
func (m *Match) Entry() int { return m.entry }

// Names returns the emitted names of every participating capture,
// ordered by start offset then occurrence index.
func (m *Match) Names() []string {
	names := make([]string, len(m.caps))
	for i, c := range m.caps {
		names[i] = c.occ.Name
	}
	return names
}

// Group returns the participating occurrence of key with the smallest
// start offset, then the smallest occurrence index.
func (m *Match) Group(key string) (*Group, bool) {
	for _, c := range m.caps {
		if c.occ.Key == key {
			return m.group(c), true
		}
	}
	return nil, false
}

// Groups returns every participating occurrence of key in Group order.
func (m *Match) Groups(key string) []*Group {
	var out []*Group
	for _, c := range m.caps {
		if c.occ.Key == key {
			out = append(out, m.group(c))
		}
	}
	return out
}

func (m *Match) group(c *capture) *Group {
	return &Group{spanned: spanned{text: m.text, span: c.span}, match: m, ref: c}
}

// MatchRecord is the flat serialized form of a Match.
type MatchRecord struct {
	Type   string        `json:"type"`
	Entry  int           `json:"entry"`
	Value  string        `json:"value"`
	Start  int           `json:"start"`
	End    int           `json:"end"`
	Groups []GroupRecord `json:"groups"`
}

// Serialize returns the match with every participating group flattened.
func (m *Match) Serialize() MatchRecord {
	rec := MatchRecord{
		Type:   m.typ,
		Entry:  m.entry,
		Value:  m.Value(),
		Start:  m.span.Start,
		End:    m.span.End,
		Groups: make([]GroupRecord, 0, len(m.caps)),
	}
	for _, c := range m.caps {
		rec.Groups = append(rec.Groups, m.group(c).Serialize())
	}
	return rec
}

// MatchTree is the nested form of a Match: each group lists the groups
// directly inside it, keyed by fragment key.
type MatchTree struct {
	Type   string                 `json:"type"`
	Offset Span                   `json:"offset"`
	Value  string                 `json:"value"`
	Groups map[string][]GroupTree `json:"groups"`
}

// Tree builds the nested form of the match.
func (m *Match) Tree() MatchTree {
	return MatchTree{
		Type:   m.typ,
		Offset: m.span,
		Value:  m.Value(),
		Groups: m.treeOf(outermost(m.caps)),
	}
}

func (m *Match) treeOf(caps []*capture) map[string][]GroupTree {
	out := make(map[string][]GroupTree)
	for _, c := range caps {
		out[c.occ.Key] = append(out[c.occ.Key], m.group(c).Tree())
	}
	return out
}

// MarshalJSON encodes the nested form.
func (m *Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Tree())
}

// outermost drops every capture that lies inside another one of caps.
func outermost(caps []*capture) []*capture {
	sorted := slices.Clone(caps)
	slices.SortStableFunc(sorted, func(a, b *capture) int {
		return cmp.Or(
			cmp.Compare(a.span.Start, b.span.Start),
			cmp.Compare(b.span.Len(), a.span.Len()),
			cmp.Compare(b.ordinal, a.ordinal),
		)
	})

	var out []*capture
	for _, c := range sorted {
		if len(out) > 0 && c.span.Start < out[len(out)-1].span.End {
			continue
		}
		out = append(out, c)
	}
	return out
}
