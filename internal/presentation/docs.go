package presentation

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/zjrosen/replus/internal/fragment"
	"github.com/zjrosen/replus/internal/template"
)

// Docs renders a markdown reference of every type in set: its top-level
// patterns and the fragments they are built from.
func Docs(set *template.Set) string {
	var b strings.Builder
	b.WriteString("# Template reference\n\n")
	for _, def := range set.Definitions() {
		fmt.Fprintf(&b, "## %s\n\n", def.Type)

		if len(def.Patterns) > 0 {
			b.WriteString("### Patterns\n\n")
			for i, p := range def.Patterns {
				fmt.Fprintf(&b, "%d. `%s`\n", i, p)
			}
			b.WriteString("\n")
		}

		if len(def.Fragments) == 0 {
			continue
		}
		b.WriteString("### Fragments\n\n")
		b.WriteString("| Key | Kind | Alternatives |\n")
		b.WriteString("|-----|------|--------------|\n")
		for _, raw := range def.FragmentKeys() {
			kind := "invalid key"
			name := raw
			if key, err := fragment.ParseKey(raw); err == nil {
				kind = key.Tag.String()
				name = key.Name
			}
			alts := make([]string, len(def.Fragments[raw]))
			for i, alt := range def.Fragments[raw] {
				alts[i] = "`" + strings.ReplaceAll(alt, "|", `\|`) + "`"
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", name, kind, strings.Join(alts, "<br>"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderMarkdown renders markdown for the terminal. style is a glamour
// standard style name such as "dark", "light" or "notty"; empty picks
// one from the terminal background.
func RenderMarkdown(markdown, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
