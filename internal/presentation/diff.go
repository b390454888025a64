package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	// InsertStyle marks text added to a compiled source.
	InsertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950"))
	// DeleteStyle marks text removed from a compiled source.
	DeleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")).Strikethrough(true)
)

// DiffOp classifies a diff segment.
type DiffOp int

const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

// DiffSegment is one run of a source diff.
type DiffSegment struct {
	Op   DiffOp
	Text string
}

// SourceDiff computes a character diff between two compiled sources,
// cleaned up so that changes align with whole tokens where possible.
func SourceDiff(before, after string) []DiffSegment {
	if before == after {
		if before == "" {
			return nil
		}
		return []DiffSegment{{Op: DiffEqual, Text: before}}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	out := make([]DiffSegment, 0, len(diffs))
	for _, d := range diffs {
		if d.Text == "" {
			continue
		}
		var op DiffOp
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		default:
			op = DiffEqual
		}
		out = append(out, DiffSegment{Op: op, Text: d.Text})
	}
	return out
}

// PatternDiff renders SourceDiff with inserted and deleted runs styled.
// Unchanged runs longer than context bytes are elided around the edits.
func PatternDiff(before, after string, context int) string {
	var b strings.Builder
	segs := SourceDiff(before, after)
	for i, seg := range segs {
		switch seg.Op {
		case DiffInsert:
			b.WriteString(InsertStyle.Render(seg.Text))
		case DiffDelete:
			b.WriteString(DeleteStyle.Render(seg.Text))
		default:
			b.WriteString(elide(seg.Text, context, i == 0, i == len(segs)-1))
		}
	}
	return b.String()
}

// elide shortens an unchanged run, keeping the bytes next to the edits.
func elide(text string, context int, first, last bool) string {
	if context <= 0 || len(text) <= 2*context {
		return text
	}
	switch {
	case first && last:
		return text
	case first:
		return "…" + text[len(text)-context:]
	case last:
		return text[:context] + "…"
	}
	return text[:context] + "…" + text[len(text)-context:]
}
