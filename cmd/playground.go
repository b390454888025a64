package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/playground"
)

var playgroundCmd = &cobra.Command{
	Use:   "playground [text...]",
	Short: "Try text against the loaded types interactively",
	Long: `Launch an interactive view that re-parses as you type and highlights
every match. With a templates directory, edits to template files are
picked up live.`,
	RunE: runPlayground,
}

func init() {
	rootCmd.AddCommand(playgroundCmd)
}

func runPlayground(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	compiler := newCompiler()
	_, e, err := buildEngine(ctx, compiler)
	if err != nil {
		return err
	}

	model := playground.New(e, strings.Join(args, " "))
	if cfg.TemplatesDir != "" {
		hub, stop, err := startReloads(ctx, compiler)
		if err != nil {
			return err
		}
		defer stop()
		model = model.WithReloads(ctx, hub.Subscribe(ctx))
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running playground: %w", err)
	}
	return nil
}
