package compile

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Options tune how a type's source is compiled. The zero value compiles
// with no flags, no noise and no match timeout.
type Options struct {
	// Flags holds engine flag letters: i (ignore case), m (multiline),
	// s (dot matches newline), x (ignore pattern whitespace), n (explicit
	// capture). u is accepted and ignored; regexp2 is Unicode-aware.
	Flags string `mapstructure:"flags"`

	// WhitespaceNoise, when set, lets every unescaped space or \s outside
	// a character class also match this pattern.
	WhitespaceNoise string `mapstructure:"whitespace_noise"`

	// MatchTimeout bounds a single search. Zero means no timeout.
	MatchTimeout time.Duration `mapstructure:"match_timeout"`
}

// ParseFlags converts flag letters into regexp2 options.
func ParseFlags(letters string) (regexp2.RegexOptions, error) {
	var opts regexp2.RegexOptions
	for _, c := range letters {
		switch c {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'n':
			opts |= regexp2.ExplicitCapture
		case 'u':
		default:
			return 0, fmt.Errorf("unknown flag %q (want any of imsxnu)", c)
		}
	}
	return opts, nil
}

// Validate checks that the options can be applied.
func (o Options) Validate() error {
	if _, err := ParseFlags(o.Flags); err != nil {
		return err
	}
	if o.MatchTimeout < 0 {
		return fmt.Errorf("match timeout must not be negative, got %s", o.MatchTimeout)
	}
	if o.WhitespaceNoise != "" {
		if _, err := regexp2.Compile(o.WhitespaceNoise, regexp2.None); err != nil {
			return fmt.Errorf("whitespace noise %q: %w", o.WhitespaceNoise, err)
		}
	}
	return nil
}

// applyNoise rewrites whitespace outside character classes so that it
// also accepts noise.
func applyNoise(source, noise string) string {
	if noise == "" {
		return source
	}
	repl := `(?:\s|(?:` + noise + `))`

	var b strings.Builder
	inClass := false
	classStart := 0
	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '\\' && i+1 < len(source):
			if source[i+1] == 's' && !inClass {
				b.WriteString(repl)
			} else {
				b.WriteByte(c)
				b.WriteByte(source[i+1])
			}
			i++
		case inClass:
			// A ']' right after '[' or '[^' is a literal member.
			if c == ']' && i > classStart {
				inClass = false
			}
			b.WriteByte(c)
		case c == '[':
			inClass = true
			classStart = i + 1
			if i+1 < len(source) && source[i+1] == '^' {
				classStart++
			}
			b.WriteByte(c)
		case c == ' ':
			b.WriteString(repl)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
