package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/replus/internal/cachemanager"
	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/config"
	"github.com/zjrosen/replus/internal/engine"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/template"
	"github.com/zjrosen/replus/internal/tracing"
)

func init() {
	// Query the terminal background before any Bubble Tea program starts
	// so the OSC 11 response does not land in the playground input.
	_ = lipgloss.HasDarkBackground()
}

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	logFile   string
	noColor   bool
	cfg       config.Config

	// Set up in PersistentPreRunE, released in PersistentPostRunE.
	logCleanup func()
	tracer     *tracing.Provider
)

var rootCmd = &cobra.Command{
	Use:   "replus",
	Short: "Composable regular-expression templates",
	Long: `replus builds large regular expressions from small named fragments
kept in JSON or YAML template files, and parses text into typed matches
with addressable groups.

Each template file defines one type. Patterns reference fragments with
{{name}} and refer back to an earlier occurrence with {{#name}} or
{{#name@2}}.`,
	Version:            version,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .replus/config.yaml or ~/.config/replus/config.yaml)")
	flags.StringP("templates", "d", "", "directory of template files (default: built-in models)")
	flags.Bool("isolated", false, "resolve each type against its own file's fragments only")
	flags.String("flags", "", "engine flags, any of imsxnu")
	flags.String("noise", "", "regex also accepted wherever a template has whitespace")
	flags.BoolVar(&debugFlag, "debug", false, "write debug logs")
	flags.StringVar(&logFile, "log-file", "", "debug log path (default: replus-debug.log)")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")

	_ = viper.BindPFlag("templates_dir", flags.Lookup("templates"))
	_ = viper.BindPFlag("isolated_fragments", flags.Lookup("isolated"))
	_ = viper.BindPFlag("compile.flags", flags.Lookup("flags"))
	_ = viper.BindPFlag("compile.whitespace_noise", flags.Lookup("noise"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("parse.output", defaults.Parse.Output)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("store.path", defaults.Store.Path)
	viper.SetDefault("ui.width", defaults.UI.Width)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .replus/config.yaml (current directory)
		// 2. ~/.config/replus/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "replus"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	// A missing config is fine; replus runs on defaults until `config init`.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

const localConfigPath = ".replus/config.yaml"

func setup(cmd *cobra.Command, _ []string) error {
	if noColor || os.Getenv("NO_COLOR") != "" {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	debug := debugFlag || os.Getenv("REPLUS_DEBUG") != ""
	if debug {
		path := logFile
		if path == "" {
			path = os.Getenv("REPLUS_LOG")
		}
		if path == "" {
			path = "replus-debug.log"
		}
		cleanup, err := log.Init(path)
		if err != nil {
			return fmt.Errorf("initializing logging: %w", err)
		}
		logCleanup = cleanup
		log.Info(log.CatConfig, "replus starting", "command", cmd.Name(), "config", viper.ConfigFileUsed())
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := tracing.NewProvider(cfg.Tracing.Config())
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	tracer = provider
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	var err error
	if tracer != nil {
		err = tracer.Shutdown(cmd.Context())
		tracer = nil
	}
	if logCleanup != nil {
		logCleanup()
		logCleanup = nil
	}
	return err
}

// loadTemplates reads the configured templates directory, or the
// built-in models when none is set.
func loadTemplates(ctx context.Context) (*template.Set, error) {
	var opts []template.Option
	if cfg.IsolatedFragments {
		opts = append(opts, template.WithIsolatedFragments())
	}
	if cfg.TemplatesDir == "" {
		return template.NewLoader(template.BuiltinFS(), opts...).Load(ctx)
	}
	return template.LoadDir(ctx, cfg.TemplatesDir, opts...)
}

// newCompiler returns a compiler backed by an in-memory cache of
// compiled types.
func newCompiler() *compile.Compiler {
	cache := cachemanager.NewInMemoryCacheManager[string, *compile.CompiledType](
		"compiled types", cfg.Cache.TTL, cachemanager.DefaultCleanupInterval)
	return compile.NewCompiler(cfg.Compile.Options(), cache, cfg.Cache.TTL)
}

// buildEngine loads the templates and compiles every type through c.
func buildEngine(ctx context.Context, c *compile.Compiler) (*template.Set, *engine.Engine, error) {
	set, err := loadTemplates(ctx)
	if err != nil {
		return nil, nil, err
	}
	opts := []engine.Option{engine.WithCompiler(c)}
	if tracer != nil {
		opts = append(opts, engine.WithTracer(tracer.Tracer()))
	}
	e, err := engine.New(ctx, set, opts...)
	if err != nil {
		return nil, nil, err
	}
	return set, e, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
