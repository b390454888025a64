// Package presentation renders parse results, compiled types and
// template documentation for the CLI.
package presentation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/zjrosen/replus/internal/engine"
)

// Formatter writes output to a writer.
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter.
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{writer: writer}
}

// FormatJSON writes v as indented JSON.
func (f *Formatter) FormatJSON(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// FormatMatches writes matches in their nested JSON form.
func (f *Formatter) FormatMatches(matches []*engine.Match) error {
	if matches == nil {
		matches = []*engine.Match{}
	}
	return f.FormatJSON(matches)
}

// FormatRecords writes matches as flat records, one group list per match.
func (f *Formatter) FormatRecords(matches []*engine.Match) error {
	records := make([]engine.MatchRecord, len(matches))
	for i, m := range matches {
		records[i] = m.Serialize()
	}
	return f.FormatJSON(records)
}

// FormatText writes one line per match followed by its groups, indented.
//
//	date	3-13	2012-12-10
//	  date_0	3-13	2012-12-10
func (f *Formatter) FormatText(matches []*engine.Match) error {
	var b strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&b, "%s\t%d-%d\t%s\n", m.Type(), m.Start(), m.End(), m.Value())
		for _, g := range m.Serialize().Groups {
			fmt.Fprintf(&b, "  %s\t%d-%d\t%s\n", g.Name, g.Start, g.End, g.Value)
		}
	}
	_, err := io.WriteString(f.writer, b.String())
	return err
}
