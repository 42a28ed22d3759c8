package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/Iron-Ham/pkglog/internal/level"
)

// NewDiagnosticLogger returns a JSON slog.Logger for the library's own
// diagnostics (handler panics, console failures). These never go through
// the router. A nil w writes to stderr.
func NewDiagnosticLogger(w io.Writer, threshold level.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: SlogLevel(threshold),
	})
	return slog.New(handler).With("component", "pkglog")
}

// NopLogger returns a logger that discards all output.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// SlogLevel maps a level onto the nearest slog.Level. Off maps above
// slog.LevelError so that nothing is logged.
func SlogLevel(l level.Level) slog.Level {
	switch {
	case l <= level.Trace:
		return slog.LevelDebug - 4
	case l == level.Debug:
		return slog.LevelDebug
	case l == level.Info:
		return slog.LevelInfo
	case l == level.Warn:
		return slog.LevelWarn
	case l == level.Error:
		return slog.LevelError
	case l == level.Critical:
		return slog.LevelError + 4
	default:
		return slog.LevelError + 8
	}
}
