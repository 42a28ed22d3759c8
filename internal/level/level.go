// Package level defines the ordered set of log severities used by pkglog.
//
// Levels are small integers: a lower rank is more verbose. [All] is the
// minimum sentinel (a threshold of All lets everything through) and [Off]
// is the maximum sentinel (a threshold of Off lets nothing through).
package level

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Iron-Ham/pkglog/internal/errors"
)

// Level is a log severity rank.
type Level int

// Log levels, least to most severe.
const (
	All Level = iota
	Trace
	Debug
	Info
	Warn
	Error
	Critical
	Off
)

var names = [...]string{
	All:      "ALL",
	Trace:    "TRACE",
	Debug:    "DEBUG",
	Info:     "INFO",
	Warn:     "WARN",
	Error:    "ERROR",
	Critical: "CRITICAL",
	Off:      "OFF",
}

// byName maps upper-case names to levels. FATAL is the only alias.
var byName = map[string]Level{
	"ALL":      All,
	"TRACE":    Trace,
	"DEBUG":    Debug,
	"INFO":     Info,
	"WARN":     Warn,
	"ERROR":    Error,
	"CRITICAL": Critical,
	"FATAL":    Critical,
	"OFF":      Off,
}

// String returns the severity name, e.g. "INFO".
func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return names[l]
}

// Valid reports whether l is within [All, Off].
func (l Level) Valid() bool {
	return l >= All && l <= Off
}

// Enabled reports whether a record at level l passes the given threshold.
func (l Level) Enabled(threshold Level) bool {
	return l >= threshold
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, errors.NewLevelError(int(l), "out of range")
	}
	return []byte(names[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseString(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Names returns the canonical severity names in rank order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names[:])
	return out
}

// Parse converts v into a Level. It accepts a Level, any integer type, a
// float with no fractional part, or a string holding either a number or a
// case-insensitive level name. Out-of-range and malformed values fail with an
// error matching errors.ErrInvalidLevel; nothing is clamped.
func Parse(v any) (Level, error) {
	switch n := v.(type) {
	case Level:
		return fromInt(int64(n), v)
	case int:
		return fromInt(int64(n), v)
	case int8:
		return fromInt(int64(n), v)
	case int16:
		return fromInt(int64(n), v)
	case int32:
		return fromInt(int64(n), v)
	case int64:
		return fromInt(n, v)
	case uint:
		return fromUint(uint64(n), v)
	case uint8:
		return fromUint(uint64(n), v)
	case uint16:
		return fromUint(uint64(n), v)
	case uint32:
		return fromUint(uint64(n), v)
	case uint64:
		return fromUint(n, v)
	case float32:
		return fromFloat(float64(n), v)
	case float64:
		return fromFloat(n, v)
	case string:
		return ParseString(n)
	case nil:
		return 0, errors.NewLevelError(v, "level is nil")
	default:
		return 0, errors.NewLevelError(v, fmt.Sprintf("must be a string or a number, not %T", v))
	}
}

// ParseString parses a level name or a numeric string.
func ParseString(s string) (Level, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, errors.NewLevelError(s, "level is empty")
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return fromFloat(f, s)
	}
	if l, ok := byName[strings.ToUpper(trimmed)]; ok {
		return l, nil
	}
	return 0, errors.NewLevelError(s, "unknown level name")
}

// MustParse is like Parse but panics on error. It is meant for constants.
func MustParse(v any) Level {
	l, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return l
}

func fromInt(n int64, orig any) (Level, error) {
	if n < int64(All) || n > int64(Off) {
		return 0, errors.NewLevelError(orig, fmt.Sprintf("must be between %d and %d", All, Off))
	}
	return Level(n), nil
}

func fromUint(n uint64, orig any) (Level, error) {
	if n > uint64(Off) {
		return 0, errors.NewLevelError(orig, fmt.Sprintf("must be between %d and %d", All, Off))
	}
	return Level(n), nil
}

func fromFloat(f float64, orig any) (Level, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, errors.NewLevelError(orig, "must be an integer")
	}
	if f < float64(All) || f > float64(Off) {
		return 0, errors.NewLevelError(orig, fmt.Sprintf("must be between %d and %d", All, Off))
	}
	return Level(f), nil
}
