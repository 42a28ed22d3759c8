// Package format turns log call arguments into message strings and records
// into lines.
//
// Both use brace placeholders. Messages use positional placeholders filled
// from the call's arguments:
//
//	format.Message("listening on {0}:{1}", host, port)
//
// Line templates use named placeholders filled from a record's fields:
//
//	tmpl, _ := format.Compile("{timestamp} {severity} {topic}: {message}")
//	line := tmpl.Render(rec.Fields())
//
// A doubled brace ("{{" or "}}") renders a single literal brace. Placeholders
// that cannot be resolved are left in the output as written.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/Iron-Ham/pkglog/internal/errors"
)

// DefaultLine is the line template used when none is configured.
const DefaultLine = "{timestamp} {severity} {package}[{pid}] {topic}: {message}"

// Message formats log call arguments. A leading string is treated as a
// format with {N} placeholders for the remaining arguments; a leading error
// contributes its message; anything else is printed with fmt.Sprint.
func Message(args ...any) string {
	if len(args) == 0 {
		return ""
	}
	switch first := args[0].(type) {
	case string:
		return expand(first, func(key string) (string, bool) {
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i+1 >= len(args) {
				return "", false
			}
			return fmt.Sprint(args[i+1]), true
		})
	case error:
		return first.Error()
	default:
		return fmt.Sprint(first)
	}
}

// Template is a compiled line template.
type Template struct {
	source   string
	segments []segment

	// pattern matches rendered lines; groups are listed in captures.
	pattern  *regexp.Regexp
	captures []string
}

type segment struct {
	literal string
	field   string
}

// Compile parses a line template. Empty templates and templates with an
// unterminated placeholder are rejected.
func Compile(source string) (*Template, error) {
	if source == "" {
		return nil, errors.NewValidationError("template must not be empty").WithField("format")
	}

	t := &Template{source: source}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(source); i++ {
		c := source[i]
		switch {
		case c == '{' && i+1 < len(source) && source[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(source) && source[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(source[i+1:], '}')
			if end < 0 {
				return nil, errors.NewValidationError("unterminated placeholder").
					WithField("format").WithValue(source)
			}
			flush()
			t.segments = append(t.segments, segment{field: source[i+1 : i+1+end]})
			i += end + 1
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	t.compilePattern()
	return t, nil
}

// compilePattern builds the regular expression used by Parse. Every
// placeholder matches lazily except the last, which takes the rest of the
// line so that messages may contain the template's own separators.
func (t *Template) compilePattern() {
	last := -1
	for i, s := range t.segments {
		if s.field != "" {
			last = i
		}
	}

	var sb strings.Builder
	sb.WriteString("^")
	for i, s := range t.segments {
		switch {
		case s.field == "":
			sb.WriteString(regexp.QuoteMeta(s.literal))
		case i == last:
			sb.WriteString("(.*)")
			t.captures = append(t.captures, s.field)
		default:
			sb.WriteString("(.*?)")
			t.captures = append(t.captures, s.field)
		}
	}
	sb.WriteString("$")
	t.pattern = regexp.MustCompile(sb.String())
}

// MustCompile is like Compile but panics on error.
func MustCompile(source string) *Template {
	t, err := Compile(source)
	if err != nil {
		panic(err)
	}
	return t
}

// String returns the template source.
func (t *Template) String() string {
	return t.source
}

// Fields returns the placeholder names in the order they appear.
func (t *Template) Fields() []string {
	var out []string
	for _, s := range t.segments {
		if s.field != "" {
			out = append(out, s.field)
		}
	}
	return out
}

// Render substitutes fields into the template. Unknown placeholders are
// rendered literally.
func (t *Template) Render(fields map[string]string) string {
	var sb strings.Builder
	for _, s := range t.segments {
		if s.field == "" {
			sb.WriteString(s.literal)
			continue
		}
		if v, ok := fields[s.field]; ok {
			sb.WriteString(v)
			continue
		}
		sb.WriteString("{" + s.field + "}")
	}
	return sb.String()
}

// Parse matches a rendered line against the template and returns the
// placeholder values. It reports false if the line does not fit. When a
// placeholder appears more than once the first occurrence wins.
func (t *Template) Parse(line string) (map[string]string, bool) {
	m := t.pattern.FindStringSubmatch(line)
	if m == nil {
		return nil, false
	}
	fields := make(map[string]string, len(t.captures))
	for i, name := range t.captures {
		if _, seen := fields[name]; !seen {
			fields[name] = m[i+1]
		}
	}
	return fields, true
}

// expand substitutes {key} placeholders in s using lookup.
func expand(s string, lookup func(string) (string, bool)) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}

	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			sb.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			sb.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i+1:], '}')
			if end < 0 {
				sb.WriteString(s[i:])
				return sb.String()
			}
			key := s[i+1 : i+1+end]
			if v, ok := lookup(key); ok {
				sb.WriteString(v)
			} else {
				sb.WriteString("{" + key + "}")
			}
			i += end + 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}
