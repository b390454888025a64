package fragment

import "strconv"

// Occurrence is one instantiation of a capturing fragment within one
// top-level pattern.
type Occurrence struct {
	Key   string
	Index int
	Name  string
}

// OccurrenceName returns the capture name emitted for an occurrence.
func OccurrenceName(key string, index int) string {
	return key + "_" + strconv.Itoa(index)
}

// Ledger tracks occurrences emitted while resolving one top-level
// pattern. A fresh ledger is used per top-level pattern.
type Ledger struct {
	counts  map[string]int
	emitted []Occurrence
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

// Next allocates the next occurrence of key.
func (l *Ledger) Next(key string) Occurrence {
	idx := l.counts[key]
	l.counts[key] = idx + 1
	occ := Occurrence{Key: key, Index: idx, Name: OccurrenceName(key, idx)}
	l.emitted = append(l.emitted, occ)
	return occ
}

// Count returns how many occurrences of key were emitted so far.
func (l *Ledger) Count(key string) int {
	return l.counts[key]
}

// Occurrences returns the emitted occurrences in emission order.
func (l *Ledger) Occurrences() []Occurrence {
	out := make([]Occurrence, len(l.emitted))
	copy(out, l.emitted)
	return out
}
