// Package record defines the immutable value that represents one log event.
package record

import (
	"os"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/Iron-Ham/pkglog/internal/level"
)

// TimestampLayout is the ISO-8601 UTC layout with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// DateLayout is the layout of the date that partitions log files.
const DateLayout = "2006-01-02"

// LineEnding is the host's native line terminator.
var LineEnding = lineEnding(runtime.GOOS)

// ContinuationMarker prefixes every continuation line of a multi-line message.
const ContinuationMarker = "> "

var newlines = regexp.MustCompile(`\r?\n`)

var pid = os.Getpid()

// Record is one log event. Records are values: once built they are never
// modified, and every subscriber receives its own copy.
type Record struct {
	Timestamp time.Time
	Level     level.Level
	Topic     string
	Message   string
	PID       int
	Package   string
	Version   string
}

// Option customises a record under construction.
type Option func(*Record)

// WithTime sets the record timestamp. It is normalised to UTC with
// millisecond precision.
func WithTime(t time.Time) Option {
	return func(r *Record) {
		r.Timestamp = t
	}
}

// WithPackage overrides the package name and version taken from build info.
func WithPackage(name, version string) Option {
	return func(r *Record) {
		r.Package = name
		r.Version = version
	}
}

// New builds a record for the current time, process and main package.
// Newlines in message become a line ending followed by ContinuationMarker.
func New(l level.Level, topic, message string, opts ...Option) Record {
	info := Package()
	r := Record{
		Timestamp: time.Now(),
		Level:     l,
		Topic:     topic,
		Message:   NormalizeMessage(message),
		PID:       pid,
		Package:   info.Name,
		Version:   info.Version,
	}
	for _, opt := range opts {
		opt(&r)
	}
	r.Timestamp = r.Timestamp.UTC().Truncate(time.Millisecond)
	return r
}

// NormalizeMessage replaces each newline in msg with the native line ending
// followed by ContinuationMarker.
func NormalizeMessage(msg string) string {
	return newlines.ReplaceAllLiteralString(msg, LineEnding+ContinuationMarker)
}

// TimestampString renders the timestamp as ISO-8601 UTC with milliseconds.
func (r Record) TimestampString() string {
	return r.Timestamp.UTC().Format(TimestampLayout)
}

// Date returns the UTC calendar date of the record, e.g. "2024-01-02".
func (r Record) Date() string {
	return r.Timestamp.UTC().Format(DateLayout)
}

// Severity returns the level name.
func (r Record) Severity() string {
	return r.Level.String()
}

// Fields returns the placeholder values used by line templates.
func (r Record) Fields() map[string]string {
	return map[string]string{
		"timestamp": r.TimestampString(),
		"level":     r.Level.String(),
		"severity":  r.Level.String(),
		"rank":      strconv.Itoa(int(r.Level)),
		"topic":     r.Topic,
		"message":   r.Message,
		"pid":       strconv.Itoa(r.PID),
		"package":   r.Package,
		"version":   r.Version,
	}
}

func lineEnding(goos string) string {
	if goos == "windows" {
		return "\r\n"
	}
	return "\n"
}
