package presentation

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/fragment"
)

// Match styles, assigned to types in the order they first appear.
var matchStyles = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#1F6FEB")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#3FB950")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(lipgloss.Color("#D29922")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#A371F7")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#DB6D28")),
}

var (
	// ReferenceStyle colors {{key}} tokens in templates.
	ReferenceStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FB950")).Bold(true)
	// BackrefStyle colors {{#key}} tokens.
	BackrefStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A371F7")).Bold(true)
	// IllegalStyle colors an unterminated token.
	IllegalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149")).Underline(true)
	// TypeLabelStyle renders type names in legends.
	TypeLabelStyle = lipgloss.NewStyle().Bold(true)
)

// Segment is a run of text that is either plain or covered by a match.
type Segment struct {
	Text string
	Type string // empty for plain text
}

// Segments splits text into plain runs and match runs. Overlapping
// matches are purged first, so each byte belongs to one segment.
func Segments(text string, matches []*engine.Match) []Segment {
	var out []Segment
	pos := 0
	for _, m := range engine.PurgeOverlaps(matches) {
		if m.Len() == 0 {
			continue
		}
		if m.Start() > pos {
			out = append(out, Segment{Text: text[pos:m.Start()]})
		}
		out = append(out, Segment{Text: text[m.Start():m.End()], Type: m.Type()})
		pos = m.End()
	}
	if pos < len(text) {
		out = append(out, Segment{Text: text[pos:]})
	}
	return out
}

// Highlight renders text with every match colored by its type.
func Highlight(text string, matches []*engine.Match) string {
	styles := make(map[string]lipgloss.Style)
	var b strings.Builder
	for _, seg := range Segments(text, matches) {
		if seg.Type == "" {
			b.WriteString(seg.Text)
			continue
		}
		style, ok := styles[seg.Type]
		if !ok {
			style = matchStyles[len(styles)%len(matchStyles)]
			styles[seg.Type] = style
		}
		b.WriteString(style.Render(seg.Text))
	}
	return b.String()
}

// HighlightTemplate colors the reference tokens of a template pattern.
func HighlightTemplate(pattern string) string {
	var b strings.Builder
	lexer := fragment.NewLexer(pattern)
	for {
		tok := lexer.NextToken()
		switch tok.Type {
		case fragment.TokenEOF:
			return b.String()
		case fragment.TokenText:
			b.WriteString(tok.Literal)
		case fragment.TokenIllegal:
			b.WriteString(IllegalStyle.Render(tok.Literal))
		case fragment.TokenRef:
			style := ReferenceStyle
			if strings.HasPrefix(tok.Literal, "#") {
				style = BackrefStyle
			}
			b.WriteString(style.Render("{{" + tok.Literal + "}}"))
		}
	}
}
