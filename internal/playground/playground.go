// Package playground is an interactive terminal view for trying text
// against the loaded types.
package playground

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/reflow/wrap"

	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/presentation"
	"github.com/zjrosen/replus/internal/reload"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8B949E"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#58A6FF"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F85149"))
)

// Model holds the playground state.
type Model struct {
	engine *engine.Engine
	input  textinput.Model

	ctx    context.Context
	events <-chan reload.Event

	// filter is an index into filters(); 0 means every type.
	filter  int
	purge   bool
	cursor  int
	matches []*engine.Match
	err     error

	width    int
	height   int
	quitting bool
}

var zoneOnce sync.Once

// New creates a playground over e, optionally seeded with text.
func New(e *engine.Engine, text string) Model {
	zoneOnce.Do(zone.NewGlobal)

	in := textinput.New()
	in.Placeholder = "type some text to parse"
	in.Prompt = "> "
	in.SetValue(text)
	in.Focus()

	m := Model{engine: e, input: in}
	m.reparse()
	return m
}

// WithReloads swaps in each engine published on events.
func (m Model) WithReloads(ctx context.Context, events <-chan reload.Event) Model {
	m.ctx = ctx
	m.events = events
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.listen())
}

func (m Model) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return reload.Listen(m.ctx, m.events)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-4, 10)
		return m, nil

	case reload.Event:
		if msg.Err != nil {
			log.ErrorErr(log.CatUI, "Reload failed", msg.Err)
			m.err = msg.Err
			return m, m.listen()
		}
		m.engine = msg.Engine
		if m.filter >= len(m.filters()) {
			m.filter = 0
		}
		m.reparse()
		return m, m.listen()

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.clickMatch(msg), nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.NextType):
		m.filter = (m.filter + 1) % len(m.filters())
		m.reparse()
		return m, nil
	case key.Matches(msg, keys.PrevType):
		n := len(m.filters())
		m.filter = (m.filter + n - 1) % n
		m.reparse()
		return m, nil
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.matches)-1 {
			m.cursor++
		}
		return m, nil
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case key.Matches(msg, keys.Purge):
		m.purge = !m.purge
		m.reparse()
		return m, nil
	case key.Matches(msg, keys.ClearInput):
		m.input.SetValue("")
		m.reparse()
		return m, nil
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.reparse()
	}
	return m, cmd
}

// filters lists the type filter choices; the first is every type.
func (m Model) filters() []string {
	if m.engine == nil {
		return []string{"all"}
	}
	return append([]string{"all"}, m.engine.Types()...)
}

// Filter returns the selected type, or "all".
func (m Model) Filter() string {
	return m.filters()[m.filter]
}

// Matches returns the matches for the current input and filter.
func (m Model) Matches() []*engine.Match {
	return m.matches
}

// Err returns the last parse or reload error.
func (m Model) Err() error {
	return m.err
}

func (m *Model) reparse() {
	m.cursor = 0
	m.matches = nil
	m.err = nil
	if m.engine == nil {
		return
	}

	opts := engine.ParseOptions{PurgeOverlaps: m.purge}
	if m.filter > 0 {
		opts.Filters = []string{m.Filter()}
	}
	matches, err := m.engine.ParseWith(m.input.Value(), opts)
	if err != nil {
		m.err = err
		return
	}
	m.matches = matches
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("replus playground"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  type: %s  overlaps: %s", m.Filter(), onOff(!m.purge))))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	if text := m.input.Value(); text != "" {
		b.WriteString(m.renderText(text))
		b.WriteString("\n\n")
	}

	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	case len(m.matches) == 0:
		b.WriteString(mutedStyle.Render("no matches"))
		b.WriteString("\n")
	default:
		m.renderMatches(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return zone.Scan(b.String())
}

// renderText highlights the input. The selected match gets a caret line
// while the text fits on one row; longer text is wrapped instead.
func (m Model) renderText(text string) string {
	out := presentation.Highlight(text, m.matches)
	fits := m.width <= 0 || presentation.DisplayWidth(text) <= m.width
	if fits && !strings.Contains(text, "\n") {
		if m.cursor < len(m.matches) {
			out += "\n" + presentation.Marker(text, m.matches[m.cursor].Offset())
		}
		return out
	}
	return wrap.String(out, m.width)
}

func (m Model) renderMatches(b *strings.Builder) {
	for i, match := range m.matches {
		line := fmt.Sprintf("%s %d-%d %q", match.Type(), match.Start(), match.End(), match.Value())
		if i != m.cursor {
			b.WriteString(zone.Mark(matchZone(i), m.truncate("  "+line)) + "\n")
			continue
		}
		b.WriteString(zone.Mark(matchZone(i), selectedStyle.Render(m.truncate("● "+line))) + "\n")
		for _, g := range match.Serialize().Groups {
			b.WriteString(m.truncate(fmt.Sprintf("    %s %d-%d %q", g.Name, g.Start, g.End, g.Value)) + "\n")
		}
	}
}

func (m Model) truncate(line string) string {
	if m.width <= 0 {
		return line
	}
	return ansi.Truncate(line, m.width, "…")
}

func matchZone(i int) string {
	return fmt.Sprintf("match-%d", i)
}

// clickMatch selects the match whose line was clicked.
func (m Model) clickMatch(msg tea.MouseMsg) Model {
	if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m
	}
	for i := range m.matches {
		if z := zone.Get(matchZone(i)); z != nil && z.InBounds(msg) {
			m.cursor = i
			break
		}
	}
	return m
}

func (m Model) renderHelp() string {
	parts := make([]string, 0, len(keys.help()))
	for _, k := range keys.help() {
		h := k.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return mutedStyle.Render(strings.Join(parts, "  │  "))
}

func onOff(b bool) string {
	if b {
		return "shown"
	}
	return "purged"
}
