package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/presentation"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved parse runs",
	Long: `List the parse runs saved with 'replus parse --save', newest first.

Examples:
  replus history
  replus history show <run-id>
  replus history rm <run-id>`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		runs, err := st.Runs(cmd.Context())
		if err != nil {
			return err
		}
		dtos := make([]presentation.RunDTO, len(runs))
		for i, r := range runs {
			dtos[i] = presentation.FromRun(r)
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatJSON(dtos)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the matches of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()

		records, err := st.Matches(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return presentation.NewFormatter(cmd.OutOrStdout()).FormatJSON(records)
	},
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <run-id>",
	Short: "Delete a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		return st.DeleteRun(cmd.Context(), args[0])
	},
}

func init() {
	historyCmd.AddCommand(historyShowCmd, historyRmCmd)
	rootCmd.AddCommand(historyCmd)
}
