package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/fragment"
	"github.com/zjrosen/replus/internal/presentation"
)

var (
	compileDialect    string
	compileSourceOnly bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [type...]",
	Short: "Show the regular expression each type compiles to",
	Long: `Compile the loaded types and print their expanded patterns.

The net dialect is what replus executes. The python dialect renders the
same pattern with (?P<name>...) groups and (?P=name) backreferences for
use with other engines.

Examples:
  replus compile date
  replus compile --dialect python --source`,
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileDialect, "dialect", "net", "pattern dialect: net or python")
	compileCmd.Flags().BoolVar(&compileSourceOnly, "source", false, "print only the pattern source, one per line")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	syntax, err := fragment.SyntaxByName(compileDialect)
	if err != nil {
		return err
	}

	set, e, err := buildEngine(ctx, newCompiler())
	if err != nil {
		return err
	}

	names := e.Types()
	if len(args) > 0 {
		for _, a := range args {
			if !slices.Contains(names, a) {
				return fmt.Errorf("unknown type %q (known: %v)", a, names)
			}
		}
		names = args
	}

	dtos := make([]presentation.TypeDTO, 0, len(names))
	for _, name := range names {
		ct, _ := e.Type(name)
		source := ""
		if syntax != fragment.NET {
			def, _ := set.Get(name)
			source, err = compile.Render(def, syntax, cfg.Compile.Options())
			if err != nil {
				return err
			}
		}
		dtos = append(dtos, presentation.FromCompiled(ct, source))
	}

	if compileSourceOnly {
		for _, dto := range dtos {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), dto.Source); err != nil {
				return err
			}
		}
		return nil
	}
	return presentation.NewFormatter(cmd.OutOrStdout()).FormatJSON(dtos)
}
