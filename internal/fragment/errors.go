package fragment

import (
	"fmt"
	"strings"
)

// DefinitionError reports a template that cannot be expanded: an unknown
// fragment, a malformed reference token, an invalid prefix combination
// or a backreference beyond the available occurrences.
type DefinitionError struct {
	Type    string
	Key     string
	Pattern string // local pattern text the problem was found in
	Reason  string
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "type %q", e.Type)
	if e.Key != "" {
		fmt.Fprintf(&b, ": fragment %q", e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason)
	if e.Pattern != "" {
		fmt.Fprintf(&b, " (in %q)", e.Pattern)
	}
	return b.String()
}

// CycleError reports a fragment whose expansion reaches itself.
type CycleError struct {
	Type    string
	Key     string
	Chain   []string // expansion path, first and last element equal Key
	Pattern string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("type %q: fragment %q expands into itself: %s (in %q)",
		e.Type, e.Key, strings.Join(e.Chain, " -> "), e.Pattern)
}
