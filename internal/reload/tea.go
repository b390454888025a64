package reload

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Listen returns a command that waits for the next event on ch and
// delivers it as a tea.Msg. It yields nil once ctx is done or ch closes;
// call it again after each event to keep listening.
func Listen(ctx context.Context, ch <-chan Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			return ev
		}
	}
}
