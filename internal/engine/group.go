package engine

import "encoding/json"

// Group is one realized capture of a fragment occurrence. Nested lookups
// are computed on demand.
type Group struct {
	spanned
	match *Match
	ref   *capture
}

var _ Spannable = (*Group)(nil)

// Key returns the logical fragment key.
func (g *Group) Key() string { return g.ref.occ.Key }

// Name returns the emitted capture name, key_index.
func (g *Group) Name() string { return g.ref.occ.Name }

// Index returns the occurrence index.
func (g *Group) Index() int { return g.ref.occ.Index }

// Group looks up key among the captures inside this group's span. The
// group itself is never returned.
func (g *Group) Group(key string) (*Group, bool) {
	for _, c := range g.match.caps {
		if g.scopes(c, key) {
			return g.match.group(c), true
		}
	}
	return nil, false
}

// Groups returns every occurrence of key inside this group's span.
func (g *Group) Groups(key string) []*Group {
	var out []*Group
	for _, c := range g.match.caps {
		if g.scopes(c, key) {
			out = append(out, g.match.group(c))
		}
	}
	return out
}

func (g *Group) scopes(c *capture, key string) bool {
	return c != g.ref && c.occ.Key == key && g.span.Contains(c.span)
}

// Capture is one repetition of a quantified group.
type Capture struct {
	Span
	Value string `json:"value"`
}

// Captures returns every repetition of the group in match order. The
// group's own span is that of the last one.
func (g *Group) Captures() []Capture {
	out := make([]Capture, len(g.ref.reps))
	for i, s := range g.ref.reps {
		out[i] = Capture{Span: s, Value: g.text[s.Start:s.End]}
	}
	return out
}

// children returns the captures directly nested in this group. A
// capture nested in g was emitted before it.
func (g *Group) children() []*capture {
	var inside []*capture
	for _, c := range g.match.caps {
		if c != g.ref && c.ordinal < g.ref.ordinal && g.span.Contains(c.span) {
			inside = append(inside, c)
		}
	}
	return outermost(inside)
}

// GroupRecord is the flat serialized form of a Group.
type GroupRecord struct {
	Key   string `json:"key"`
	Name  string `json:"name"`
	Value string `json:"value"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Serialize returns the flat record of the group.
func (g *Group) Serialize() GroupRecord {
	return GroupRecord{
		Key:   g.Key(),
		Name:  g.Name(),
		Value: g.Value(),
		Start: g.span.Start,
		End:   g.span.End,
	}
}

// GroupTree is the nested form of a Group.
type GroupTree struct {
	Key    string                 `json:"key"`
	Name   string                 `json:"name"`
	Offset Span                   `json:"offset"`
	Value  string                 `json:"value"`
	Groups map[string][]GroupTree `json:"groups"`
}

// Tree builds the nested form of the group.
func (g *Group) Tree() GroupTree {
	return GroupTree{
		Key:    g.Key(),
		Name:   g.Name(),
		Offset: g.span,
		Value:  g.Value(),
		Groups: g.match.treeOf(g.children()),
	}
}

// MarshalJSON encodes the nested form.
func (g *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.Tree())
}
