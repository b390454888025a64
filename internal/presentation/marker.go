package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/uniseg"

	"github.com/zjrosen/replus/internal/engine"
)

// MarkerStyle colors the caret line drawn under a match.
var MarkerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#D29922")).Bold(true)

// DisplayWidth returns the number of terminal columns s occupies,
// measured one grapheme cluster at a time.
func DisplayWidth(s string) int {
	width := 0
	state := -1
	for len(s) > 0 {
		var cluster string
		cluster, s, _, state = uniseg.StepString(s, state)
		width += runewidth.StringWidth(cluster)
	}
	return width
}

// Marker returns a caret line that sits under span when printed below
// the line of text containing span.Start. A span running past the end
// of its line is cut there; an empty span gets a single caret.
func Marker(text string, span engine.Span) string {
	if span.Start < 0 || span.Start > len(text) {
		return ""
	}
	lineStart := strings.LastIndexByte(text[:span.Start], '\n') + 1
	lineEnd := len(text)
	if i := strings.IndexByte(text[span.Start:], '\n'); i >= 0 {
		lineEnd = span.Start + i
	}
	end := min(max(span.End, span.Start), lineEnd)

	pad := DisplayWidth(text[lineStart:span.Start])
	width := max(DisplayWidth(text[span.Start:end]), 1)
	return strings.Repeat(" ", pad) + MarkerStyle.Render(strings.Repeat("^", width))
}
