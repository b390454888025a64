// Package config provides configuration types and defaults for replus.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/zjrosen/replus/internal/compile"
	"github.com/zjrosen/replus/internal/log"
	"github.com/zjrosen/replus/internal/tracing"
)

// Config holds all configuration options for replus.
type Config struct {
	// TemplatesDir holds *.json / *.yaml template files. Empty uses the
	// built-in models.
	TemplatesDir      string        `mapstructure:"templates_dir"`
	IsolatedFragments bool          `mapstructure:"isolated_fragments"`
	Compile           CompileConfig `mapstructure:"compile"`
	Parse             ParseConfig   `mapstructure:"parse"`
	Cache             CacheConfig   `mapstructure:"cache"`
	Watch             WatchConfig   `mapstructure:"watch"`
	Store             StoreConfig   `mapstructure:"store"`
	UI                UIConfig      `mapstructure:"ui"`
	Tracing           TracingConfig `mapstructure:"tracing"`
}

// CompileConfig mirrors compile.Options.
type CompileConfig struct {
	Flags           string        `mapstructure:"flags"`            // any of "imsxnu"
	WhitespaceNoise string        `mapstructure:"whitespace_noise"` // regex also accepted wherever whitespace is
	MatchTimeout    time.Duration `mapstructure:"match_timeout"`    // 0 disables
}

// Options converts to compile.Options.
func (c CompileConfig) Options() compile.Options {
	return compile.Options{
		Flags:           c.Flags,
		WhitespaceNoise: c.WhitespaceNoise,
		MatchTimeout:    c.MatchTimeout,
	}
}

// Output formats accepted by ParseConfig.Output.
const (
	OutputText      = "text"
	OutputJSON      = "json"
	OutputRecords   = "records"
	OutputHighlight = "highlight"
)

var outputs = []string{OutputText, OutputJSON, OutputRecords, OutputHighlight}

// ParseConfig holds defaults for `replus parse`.
type ParseConfig struct {
	Output        string   `mapstructure:"output"`
	PurgeOverlaps bool     `mapstructure:"purge_overlaps"`
	Exclude       []string `mapstructure:"exclude"`
}

// CacheConfig sizes the compiled-type cache.
type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// WatchConfig configures template hot reload.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// StoreConfig configures the parse-run history database.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// UIConfig holds terminal rendering options.
type UIConfig struct {
	MarkdownStyle string `mapstructure:"markdown_style"` // "dark", "light", "notty" or "" for auto
	Width         int    `mapstructure:"width"`
}

// TracingConfig mirrors tracing.Config.
type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	Exporter     string  `mapstructure:"exporter"`
	FilePath     string  `mapstructure:"file_path"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// Config converts to tracing.Config.
func (t TracingConfig) Config() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Enabled = t.Enabled
	if t.Exporter != "" {
		cfg.Exporter = t.Exporter
	}
	cfg.FilePath = t.FilePath
	if t.OTLPEndpoint != "" {
		cfg.OTLPEndpoint = t.OTLPEndpoint
	}
	if t.SampleRate > 0 {
		cfg.SampleRate = t.SampleRate
	}
	return cfg
}

// DefaultStorePath returns ~/.config/replus/history.db, or "" when the
// home directory is unknown.
func DefaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "replus", "history.db")
}

// DefaultTracesFilePath returns ~/.config/replus/traces/traces.jsonl, or
// "" when the home directory is unknown.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "replus", "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Parse: ParseConfig{Output: OutputText},
		Cache: CacheConfig{TTL: compile.DefaultCacheTTL},
		Watch: WatchConfig{Debounce: 100 * time.Millisecond},
		Store: StoreConfig{Path: DefaultStorePath()},
		UI:    UIConfig{Width: 100},
		Tracing: TracingConfig{
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Validate checks the whole configuration.
func Validate(c Config) error {
	if err := ValidateCompile(c.Compile); err != nil {
		return err
	}
	if err := ValidateParse(c.Parse); err != nil {
		return err
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if c.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path is required when the store is enabled")
	}
	if c.UI.Width < 0 {
		return fmt.Errorf("ui.width must not be negative")
	}
	return ValidateTracing(c.Tracing)
}

// ValidateCompile checks compile options.
func ValidateCompile(c CompileConfig) error {
	if err := c.Options().Validate(); err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	return nil
}

// ValidateParse checks parse defaults. Empty output uses text.
func ValidateParse(p ParseConfig) error {
	if p.Output != "" && !slices.Contains(outputs, p.Output) {
		return fmt.Errorf("parse.output must be one of %v, got %q", outputs, p.Output)
	}
	return nil
}

// ValidateTracing checks tracing configuration. Empty values use
// defaults.
func ValidateTracing(t TracingConfig) error {
	switch t.Exporter {
	case "", "none", "file", "stdout", "otlp":
	default:
		return fmt.Errorf("tracing.exporter must be one of none, file, stdout, otlp, got %q", t.Exporter)
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", t.SampleRate)
	}
	if t.Enabled && t.Exporter == "file" && t.FilePath == "" {
		return fmt.Errorf("tracing.file_path is required for the file exporter")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# Replus Configuration

# Directory of *.json / *.yaml template files. Each file defines one type
# named after the file; files without $PATTERNS only contribute fragments.
# Leave empty to use the built-in models.
# templates_dir: ./models

# Fragments are shared across files by default (the first definition
# wins). Set to true to resolve each type against its own file only.
isolated_fragments: false

# Compilation options
compile:
  # Engine flags: i (ignore case), m (multiline), s (dot all),
  # x (ignore pattern whitespace), n (explicit capture)
  flags: ""
  # Regex that is also accepted wherever a template has a space or \s
  # whitespace_noise: "[#_]"
  # Bound a single search; 0 disables
  match_timeout: 0s

# Defaults for 'replus parse'
parse:
  output: text          # text, json, records or highlight
  purge_overlaps: false # drop matches overlapping an earlier, longer one
  # exclude: [city]

# Compiled types are cached by definition fingerprint
cache:
  ttl: 30m

# 'replus watch' reload settings
watch:
  debounce: 100ms

# Parse-run history (replus parse --save, replus history)
store:
  enabled: false
  # path: ~/.config/replus/history.db

ui:
  markdown_style: ""    # dark, light, notty or empty for auto
  width: 100

# Tracing of compilation and parsing
# tracing:
#   enabled: false
#   exporter: file                 # none, file, stdout, otlp
#   file_path: ~/.config/replus/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
