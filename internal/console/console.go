// Package console mirrors log records to the terminal.
//
// Records at WARN and above go to the error stream, the rest to the output
// stream. The severity tag is colored per level when the stream is a
// terminal, or always/never when configured so.
package console

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/record"
	"github.com/Iron-Ham/pkglog/internal/router"
)

// ColorMode selects when the sink emits ANSI colors.
type ColorMode string

// Color modes.
const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses "auto", "always" or "never" (case-insensitive).
// An empty string means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return m, nil
	default:
		return "", errors.NewValidationError("must be auto, always or never").
			WithField("color").WithValue(s)
	}
}

var (
	red     = lipgloss.Color("#F87171")
	magenta = lipgloss.Color("#F472B6")
	blue    = lipgloss.Color("#60A5FA")
	green   = lipgloss.Color("#10B981")
	gray    = lipgloss.Color("#9CA3AF")
)

// palette holds the per-level styles bound to one stream's renderer.
type palette struct {
	tags      map[level.Level]lipgloss.Style
	timestamp lipgloss.Style
}

func newPalette(r *lipgloss.Renderer) palette {
	base := r.NewStyle().Bold(true)
	return palette{
		tags: map[level.Level]lipgloss.Style{
			level.Trace:    base.Foreground(green).Bold(false).Faint(true),
			level.Debug:    base.Foreground(green),
			level.Info:     base.Foreground(blue),
			level.Warn:     base.Foreground(magenta),
			level.Error:    base.Foreground(red),
			level.Critical: base.Foreground(red).Underline(true),
		},
		timestamp: r.NewStyle().Foreground(gray),
	}
}

// Sink writes records to an output and an error stream.
// It is safe for concurrent use.
type Sink struct {
	mu  sync.Mutex
	out io.Writer
	err io.Writer

	outStyles palette
	errStyles palette
}

// New creates a Sink. Records below WARN go to out, the rest to errw.
func New(out, errw io.Writer, mode ColorMode) *Sink {
	return &Sink{
		out:       out,
		err:       errw,
		outStyles: newPalette(renderer(out, mode)),
		errStyles: newPalette(renderer(errw, mode)),
	}
}

func renderer(w io.Writer, mode ColorMode) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	switch mode {
	case ColorAlways:
		r.SetColorProfile(termenv.ANSI256)
	case ColorNever:
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// Handler returns a router.Handler that writes each delivered record.
func (s *Sink) Handler() router.Handler {
	return s.WriteRecord
}

// WriteRecord renders rec as "{timestamp} [SEVERITY] topic: message".
func (s *Sink) WriteRecord(rec record.Record) error {
	w, styles, stream := s.out, s.outStyles, "stdout"
	if rec.Level >= level.Warn {
		w, styles, stream = s.err, s.errStyles, "stderr"
	}

	line := render(rec, styles)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(w, line+record.LineEnding); err != nil {
		return errors.NewIOError("write", stream, err)
	}
	return nil
}

// render formats rec with the given styles.
func render(rec record.Record, p palette) string {
	tag := "[" + rec.Severity() + "]"
	if style, ok := p.tags[rec.Level]; ok {
		tag = style.Render(tag)
	}

	var sb strings.Builder
	sb.WriteString(p.timestamp.Render(rec.TimestampString()))
	sb.WriteByte(' ')
	sb.WriteString(tag)
	sb.WriteByte(' ')
	if rec.Topic != "" {
		sb.WriteString(rec.Topic)
		sb.WriteString(": ")
	}
	sb.WriteString(rec.Message)
	return sb.String()
}

// Plain renders rec without colors.
func Plain(rec record.Record) string {
	return render(rec, newPalette(renderer(io.Discard, ColorNever)))
}

// Colored renders rec with colors regardless of the destination.
func Colored(rec record.Record) string {
	return render(rec, newPalette(renderer(io.Discard, ColorAlways)))
}
