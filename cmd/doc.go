package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/presentation"
)

var docRaw bool

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Render a reference of the loaded templates",
	Long: `Render a markdown reference of every type: its patterns and the
fragments they use. Use --raw to print the markdown itself.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := loadTemplates(cmd.Context())
		if err != nil {
			return err
		}

		md := presentation.Docs(set)
		if !docRaw {
			md, err = presentation.RenderMarkdown(md, cfg.UI.MarkdownStyle, cfg.UI.Width)
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), md)
		return err
	},
}

func init() {
	docCmd.Flags().BoolVar(&docRaw, "raw", false, "print markdown without terminal rendering")
	rootCmd.AddCommand(docCmd)
}
