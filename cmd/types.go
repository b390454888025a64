package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/presentation"
)

var typesPatterns bool

var typesCmd = &cobra.Command{
	Use:   "types",
	Short: "List the loaded types",
	Long: `List every type in load order with its number of top-level patterns.
Use --patterns to show the template of each pattern as well.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		set, err := loadTemplates(cmd.Context())
		if err != nil {
			return err
		}

		var b strings.Builder
		for _, def := range set.Definitions() {
			fmt.Fprintf(&b, "%s\t%d pattern(s)\t%d fragment(s)\n",
				presentation.TypeLabelStyle.Render(def.Type), len(def.Patterns), len(def.Fragments))
			if !typesPatterns {
				continue
			}
			for i, p := range def.Patterns {
				fmt.Fprintf(&b, "  %d  %s\n", i, presentation.HighlightTemplate(p))
			}
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), b.String())
		return err
	},
}

func init() {
	typesCmd.Flags().BoolVarP(&typesPatterns, "patterns", "p", false, "show each type's pattern templates")
	rootCmd.AddCommand(typesCmd)
}
