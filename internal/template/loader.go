package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/replus/internal/log"
)

// Format identifies a template file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatOf returns the format for a file name, or "" when the file is
// not a template file.
func FormatOf(name string) Format {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	}
	return ""
}

// IsTemplateFile reports whether name has a template file extension.
func IsTemplateFile(name string) bool {
	return FormatOf(name) != ""
}

// Decode parses one template file. Every key must map to a list of
// strings; the reserved PatternsKey becomes Definition.Patterns.
func Decode(typeName string, format Format, data []byte) (Definition, error) {
	raw := map[string][]string{}

	var err error
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &raw)
	case FormatYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return Definition{}, fmt.Errorf("template %s: unsupported format %q", typeName, format)
	}
	if err != nil {
		return Definition{}, fmt.Errorf("template %s: decoding %s: %w", typeName, format, err)
	}

	def := Definition{
		Type:      typeName,
		Fragments: make(map[string][]string, len(raw)),
		Patterns:  raw[PatternsKey],
	}
	for k, alts := range raw {
		if k == PatternsKey {
			continue
		}
		def.Fragments[k] = alts
	}
	return def, nil
}

// Loader reads template files from a directory of an fs.FS.
type Loader struct {
	fsys     fs.FS
	dir      string
	isolated bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithDir sets the directory inside the fs.FS to read. Default ".".
func WithDir(dir string) Option {
	return func(l *Loader) {
		l.dir = dir
	}
}

// WithIsolatedFragments limits each type to the fragments of its own
// file. By default fragments are shared across all loaded files.
func WithIsolatedFragments() Option {
	return func(l *Loader) {
		l.isolated = true
	}
}

// NewLoader creates a loader over fsys.
func NewLoader(fsys fs.FS, opts ...Option) *Loader {
	l := &Loader{fsys: fsys, dir: "."}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadDir loads every template file in a directory on disk.
func LoadDir(ctx context.Context, dir string, opts ...Option) (*Set, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("template dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("template dir: %s is not a directory", dir)
	}
	return NewLoader(os.DirFS(dir), opts...).Load(ctx)
}

// Load reads every template file in name order. The type name is the
// file's base name without extension. Files without PatternsKey only
// contribute fragments.
func (l *Loader) Load(ctx context.Context) (*Set, error) {
	if l.fsys == nil {
		return nil, errors.New("template loader: filesystem is not configured")
	}

	entries, err := fs.ReadDir(l.fsys, l.dir)
	if err != nil {
		return nil, fmt.Errorf("template loader: reading %s: %w", l.dir, err)
	}

	var files []Definition
	for _, e := range entries {
		if e.IsDir() || !IsTemplateFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := e.Name()
		data, err := fs.ReadFile(l.fsys, path.Join(l.dir, name))
		if err != nil {
			return nil, fmt.Errorf("template loader: reading %s: %w", name, err)
		}
		typeName := strings.TrimSuffix(name, path.Ext(name))
		def, err := Decode(typeName, FormatOf(name), data)
		if err != nil {
			return nil, err
		}
		log.Debug(log.CatTemplate, "loaded template file", "file", name, "fragments", len(def.Fragments), "patterns", len(def.Patterns))
		files = append(files, def)
	}

	shared := l.sharedFragments(files)

	set := &Set{}
	for _, def := range files {
		if def.Patterns == nil {
			continue
		}
		if !l.isolated {
			def.Fragments = overlay(shared, def.Fragments)
		}
		if err := set.Add(def); err != nil {
			return nil, err
		}
	}
	log.Info(log.CatTemplate, "templates loaded", "files", len(files), "types", set.Len())
	return set, nil
}

// sharedFragments merges the fragments of all files. The first file to
// define a name wins; later definitions are reported and ignored.
func (l *Loader) sharedFragments(files []Definition) map[string][]string {
	if l.isolated {
		return nil
	}
	pool := make(map[string][]string)
	owner := make(map[string]string)
	for _, def := range files {
		for _, k := range def.FragmentKeys() {
			base := baseName(k)
			if first, ok := owner[base]; ok {
				log.Warn(log.CatTemplate, "duplicated fragment name", "key", k, "file", def.Type, "already_loaded_from", first)
				continue
			}
			owner[base] = def.Type
			pool[k] = def.Fragments[k]
		}
	}
	return pool
}

// overlay returns the shared pool with a file's own fragments taking
// precedence, matching on the key name without its group prefix.
func overlay(shared, own map[string][]string) map[string][]string {
	out := make(map[string][]string, len(shared)+len(own))
	ownNames := make(map[string]bool, len(own))
	for k, alts := range own {
		out[k] = alts
		ownNames[baseName(k)] = true
	}
	for k, alts := range shared {
		if ownNames[baseName(k)] {
			continue
		}
		out[k] = alts
	}
	return out
}

// baseName strips a group prefix such as "?:" or "?<=" from a key.
func baseName(key string) string {
	if !strings.HasPrefix(key, "?") {
		return key
	}
	if i := strings.IndexAny(key, ":>=!"); i > 0 {
		return key[i+1:]
	}
	return key
}
