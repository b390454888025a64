package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/presentation"
	"github.com/zjrosen/replus/internal/reload"
	"github.com/zjrosen/replus/internal/watcher"
)

var watchText string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Recompile templates whenever they change",
	Long: `Watch the templates directory and recompile on every change, printing
how each type's compiled pattern changed. Unchanged types are served from
the compiled-type cache.

Examples:
  replus watch -d ./models
  replus watch -d ./models --text "2012-12-10 in Rome"`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchText, "text", "", "re-parse this text after every reload")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if cfg.TemplatesDir == "" {
		return fmt.Errorf("watch needs a templates directory (--templates or templates_dir)")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	compiler := newCompiler()
	_, e, err := buildEngine(ctx, compiler)
	if err != nil {
		return err
	}
	sources := sourcesOf(e)
	fmt.Fprintf(out, "watching %s: %s\n", cfg.TemplatesDir, strings.Join(e.Types(), ", "))
	reparse(out, e)

	hub, stopReloads, err := startReloads(ctx, compiler)
	if err != nil {
		return err
	}
	defer stopReloads()

	for ev := range hub.Subscribe(ctx) {
		if ev.Err != nil {
			fmt.Fprintf(out, "reload failed: %v\n", ev.Err)
			continue
		}
		next := sourcesOf(ev.Engine)
		fmt.Fprint(out, describeReload(sources, next))
		sources = next
		reparse(out, ev.Engine)
	}
	return nil
}

// startReloads watches the templates directory and rebuilds through c
// on every change. stop releases the watcher and closes the hub.
func startReloads(ctx context.Context, c *compile.Compiler) (*reload.Hub, func(), error) {
	w, err := watcher.New(watcher.Config{Dir: cfg.TemplatesDir, Debounce: cfg.Watch.Debounce})
	if err != nil {
		return nil, nil, err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return nil, nil, err
	}

	hub := reload.NewHub(func(ctx context.Context) (*engine.Engine, error) {
		_, e, err := buildEngine(ctx, c)
		return e, err
	})
	go hub.Run(ctx, changes)

	stop := func() {
		_ = w.Stop()
		hub.Close()
	}
	return hub, stop, nil
}

func reparse(out io.Writer, e *engine.Engine) {
	if watchText == "" {
		return
	}
	matches, err := e.Parse(watchText)
	if err != nil {
		fmt.Fprintf(out, "parse failed: %v\n", err)
		return
	}
	_ = presentation.NewFormatter(out).FormatText(matches)
}

func sourcesOf(e *engine.Engine) map[string]string {
	out := make(map[string]string, len(e.Types()))
	for _, name := range e.Types() {
		ct, _ := e.Type(name)
		out[name] = ct.Source()
	}
	return out
}

// describeReload reports added, removed and changed types with a diff of
// each changed source.
func describeReload(before, after map[string]string) string {
	names := make([]string, 0, len(before)+len(after))
	for name := range before {
		names = append(names, name)
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	var b strings.Builder
	for _, name := range names {
		old, hadOld := before[name]
		cur, hasCur := after[name]
		switch {
		case !hadOld:
			fmt.Fprintf(&b, "+ %s\n", name)
		case !hasCur:
			fmt.Fprintf(&b, "- %s\n", name)
		case old != cur:
			fmt.Fprintf(&b, "~ %s\n    %s\n", name, presentation.PatternDiff(old, cur, 24))
		}
	}
	if b.Len() == 0 {
		return "no pattern changes\n"
	}
	return b.String()
}
