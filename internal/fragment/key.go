// Package fragment expands fragment references into flat regular
// expression source, assigning a unique capture name to every occurrence
// of a capturing fragment.
package fragment

import (
	"fmt"
	"strings"
)

// Tag selects the group construct a fragment is wrapped in.
type Tag int

const (
	TagCapture       Tag = iota // (?<key_n>...)
	TagNonCapture               // (?:...)
	TagAtomic                   // (?>...)
	TagInlineFlags              // (?flags:...)
	TagLookahead                // (?=...)
	TagNegLookahead             // (?!...)
	TagLookbehind               // (?<=...)
	TagNegLookbehind            // (?<!...)
)

// String returns the string representation of the tag.
func (t Tag) String() string {
	switch t {
	case TagCapture:
		return "capture"
	case TagNonCapture:
		return "non-capturing"
	case TagAtomic:
		return "atomic"
	case TagInlineFlags:
		return "inline-flags"
	case TagLookahead:
		return "lookahead"
	case TagNegLookahead:
		return "negative-lookahead"
	case TagLookbehind:
		return "lookbehind"
	case TagNegLookbehind:
		return "negative-lookbehind"
	default:
		return "unknown"
	}
}

// Capturing reports whether the tag emits a named, retrievable capture.
func (t Tag) Capturing() bool {
	return t == TagCapture
}

// prefixes maps fixed key prefixes to their tags. Inline flags are
// parsed separately.
var prefixes = []struct {
	prefix string
	tag    Tag
}{
	{"?<=", TagLookbehind},
	{"?<!", TagNegLookbehind},
	{"?:", TagNonCapture},
	{"?>", TagAtomic},
	{"?=", TagLookahead},
	{"?!", TagNegLookahead},
}

// Key is a fragment identifier plus its group semantics.
type Key struct {
	Name  string
	Tag   Tag
	Flags string // only set for TagInlineFlags, e.g. "i" or "i-s"
}

// ParseKey splits a raw key such as "?:number" or "?i:word" into its
// tag and identifier.
func ParseKey(raw string) (Key, error) {
	if !strings.HasPrefix(raw, "?") {
		if !ValidIdentifier(raw) {
			return Key{}, fmt.Errorf("invalid fragment name %q", raw)
		}
		return Key{Name: raw}, nil
	}

	k := Key{}
	rest := ""
	for _, p := range prefixes {
		if strings.HasPrefix(raw, p.prefix) {
			k.Tag = p.tag
			rest = raw[len(p.prefix):]
			break
		}
	}

	if k.Tag == TagCapture {
		colon := strings.IndexByte(raw, ':')
		if colon < 0 {
			return Key{}, fmt.Errorf("invalid group prefix in %q", raw)
		}
		flags := raw[1:colon]
		if err := validateFlags(flags); err != nil {
			return Key{}, fmt.Errorf("invalid group prefix in %q: %w", raw, err)
		}
		k.Tag = TagInlineFlags
		k.Flags = flags
		rest = raw[colon+1:]
	}

	if !ValidIdentifier(rest) {
		return Key{}, fmt.Errorf("invalid fragment name %q", rest)
	}
	k.Name = rest
	return k, nil
}

// String renders the key back in its raw form.
func (k Key) String() string {
	return k.prefix() + k.Name
}

func (k Key) prefix() string {
	switch k.Tag {
	case TagNonCapture:
		return "?:"
	case TagAtomic:
		return "?>"
	case TagInlineFlags:
		return "?" + k.Flags + ":"
	case TagLookahead:
		return "?="
	case TagNegLookahead:
		return "?!"
	case TagLookbehind:
		return "?<="
	case TagNegLookbehind:
		return "?<!"
	}
	return ""
}

// open returns the group opener for non-capturing tags.
func (k Key) open() string {
	return "(" + k.prefix()
}

// validateFlags accepts "imnsx" letters with at most one '-' separating
// enabled from disabled flags, e.g. "i", "is", "i-s", "-x".
func validateFlags(flags string) error {
	if flags == "" || flags == "-" {
		return fmt.Errorf("empty flag set")
	}
	on, off, hasOff := strings.Cut(flags, "-")
	if hasOff && strings.Contains(off, "-") {
		return fmt.Errorf("more than one '-' in %q", flags)
	}
	seen := map[rune]bool{}
	for _, r := range on + off {
		if !strings.ContainsRune("imnsx", r) {
			return fmt.Errorf("unknown flag %q", r)
		}
		if seen[r] {
			return fmt.Errorf("flag %q repeated", r)
		}
		seen[r] = true
	}
	return nil
}

// ValidIdentifier reports whether s can be used as a fragment or type
// name: ASCII letters, digits and underscores, not starting with a digit.
func ValidIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
