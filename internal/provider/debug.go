package provider

import (
	"strings"
	"unicode"

	"github.com/gobwas/glob"

	"github.com/Iron-Ham/pkglog/internal/errors"
)

// debugTopics is a compiled list of topic patterns. A topic matches when it
// matches an include pattern and no exclude pattern.
type debugTopics struct {
	source  string
	include []glob.Glob
	exclude []glob.Glob
}

// parseDebugTopics compiles a comma or space separated list of glob
// patterns. A leading "-" excludes matching topics.
func parseDebugTopics(s string) (*debugTopics, error) {
	d := &debugTopics{source: strings.TrimSpace(s)}

	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	for _, field := range fields {
		pattern, negate := strings.CutPrefix(field, "-")
		if pattern == "" {
			return nil, errors.NewValidationError("empty debug pattern").
				WithField("debug").WithValue(s)
		}
		if !balanced(pattern) {
			return nil, errors.NewValidationError("unbalanced brackets in debug pattern").
				WithField("debug").WithValue(field)
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, errors.NewValidationError("invalid debug pattern").
				WithField("debug").WithValue(field).WithCause(err)
		}
		if negate {
			d.exclude = append(d.exclude, g)
		} else {
			d.include = append(d.include, g)
		}
	}
	return d, nil
}

// balanced reports whether every "{" and "[" in pattern is closed in order.
// The glob compiler accepts some unterminated groups as literals.
func balanced(pattern string) bool {
	var open []rune
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case len(open) > 0 && open[len(open)-1] == '[' && r != ']':
			// character class contents are literal
		case r == '{' || r == '[':
			open = append(open, r)
		case r == '}' || r == ']':
			want := '{'
			if r == ']' {
				want = '['
			}
			if len(open) == 0 || open[len(open)-1] != want {
				return false
			}
			open = open[:len(open)-1]
		}
	}
	return len(open) == 0 && !escaped
}

func (d *debugTopics) match(topic string) bool {
	if d == nil {
		return false
	}
	for _, g := range d.exclude {
		if g.Match(topic) {
			return false
		}
	}
	for _, g := range d.include {
		if g.Match(topic) {
			return true
		}
	}
	return false
}

func (d *debugTopics) String() string {
	if d == nil {
		return ""
	}
	return d.source
}

// ValidateDebugTopics checks a debug topic list without installing it.
func ValidateDebugTopics(patterns string) error {
	_, err := parseDebugTopics(patterns)
	return err
}
