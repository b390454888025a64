package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/config"
	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/presentation"
	"github.com/zjrosen/replus/internal/store"
)

var (
	parseTypes   []string
	parseExclude []string
	parseOutput  string
	parsePurge   bool
	parseFirst   bool
	parseSave    bool
	parseFile    string
)

var parseCmd = &cobra.Command{
	Use:   "parse [text...]",
	Short: "Parse text into typed matches",
	Long: `Parse text against every loaded type and print the matches.

Text is taken from the arguments, from --file, or from stdin when neither
is given. Matches are listed by type in load order, then by offset.

Examples:
  # Parse a literal string with the built-in models
  replus parse "Meet me in Rome on 2012-12-10"

  # Only dates, as nested JSON
  replus parse -t date -o json "2012-12-10"

  # Drop overlapping matches and keep a record of the run
  replus parse --purge --save --file notes.txt`,
	RunE: runParse,
}

func init() {
	f := parseCmd.Flags()
	f.StringArrayVarP(&parseTypes, "type", "t", nil, "only parse these types (repeatable)")
	f.StringArrayVar(&parseExclude, "exclude", nil, "skip these types (repeatable)")
	f.StringVarP(&parseOutput, "output", "o", "", "output format: text, json, records or highlight")
	f.BoolVar(&parsePurge, "purge", false, "drop matches overlapping an earlier, longer one")
	f.BoolVar(&parseFirst, "first", false, "print only the earliest match")
	f.BoolVar(&parseSave, "save", false, "store the run in the history database")
	f.StringVarP(&parseFile, "file", "f", "", "read text from a file")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text, err := readText(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}

	_, e, err := buildEngine(ctx, newCompiler())
	if err != nil {
		return err
	}

	var matches []*engine.Match
	if parseFirst {
		m, err := e.Search(text, parseTypes...)
		if err != nil {
			return err
		}
		if m != nil {
			matches = []*engine.Match{m}
		}
	} else {
		opts := engine.ParseOptions{
			Filters:       parseTypes,
			Exclude:       slices.Concat(cfg.Parse.Exclude, parseExclude),
			PurgeOverlaps: parsePurge || cfg.Parse.PurgeOverlaps,
		}
		matches, err = e.ParseContext(ctx, text, opts)
		if err != nil {
			return err
		}
	}

	if parseSave || cfg.Store.Enabled {
		if err := saveRun(ctx, text, matches); err != nil {
			return err
		}
	}

	output := parseOutput
	if output == "" {
		output = cfg.Parse.Output
	}
	return writeMatches(cmd.OutOrStdout(), output, text, matches)
}

// readText returns the joined arguments, the --file contents, or stdin.
func readText(stdin io.Reader, args []string) (string, error) {
	switch {
	case parseFile != "":
		data, err := os.ReadFile(parseFile)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", parseFile, err)
		}
		return string(data), nil
	case len(args) > 0 && !(len(args) == 1 && args[0] == "-"):
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(data), nil
}

func writeMatches(w io.Writer, output, text string, matches []*engine.Match) error {
	formatter := presentation.NewFormatter(w)
	switch output {
	case config.OutputJSON:
		return formatter.FormatMatches(matches)
	case config.OutputRecords:
		return formatter.FormatRecords(matches)
	case config.OutputHighlight:
		_, err := fmt.Fprintln(w, presentation.Highlight(text, matches))
		return err
	case config.OutputText, "":
		return formatter.FormatText(matches)
	}
	return fmt.Errorf("unknown output format %q", output)
}

func saveRun(ctx context.Context, text string, matches []*engine.Match) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	source := cfg.TemplatesDir
	if source == "" {
		source = "builtin"
	}
	records := make([]engine.MatchRecord, len(matches))
	for i, m := range matches {
		records[i] = m.Serialize()
	}
	id, err := st.SaveRun(ctx, source, len(text), records)
	if err != nil {
		return err
	}
	log.Info(log.CatStore, "saved parse run", "id", id, "matches", len(records))
	return nil
}

// openStore opens the history database, creating its directory.
func openStore(ctx context.Context) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		return nil, fmt.Errorf("store.path is not set")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}
	return store.Open(ctx, path)
}
