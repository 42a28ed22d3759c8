package provider

import (
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/record"
)

// Log publishes records for one topic. Obtain one with Provider.GetLog.
//
// The leveled methods accept either a format string with positional
// placeholders followed by its arguments, or a single value:
//
//	log.Info("listening on {0}:{1}", host, port)
//	log.Error(err)
//
// They return the errors of the subscribers that handled the record, such
// as a failed file append.
type Log struct {
	topic    string
	provider *Provider
}

// Topic returns the handle's topic.
func (l *Log) Topic() string {
	return l.topic
}

// Trace logs at TRACE.
func (l *Log) Trace(args ...any) error { return l.Log(level.Trace, args...) }

// Debug logs at DEBUG.
func (l *Log) Debug(args ...any) error { return l.Log(level.Debug, args...) }

// Info logs at INFO.
func (l *Log) Info(args ...any) error { return l.Log(level.Info, args...) }

// Warn logs at WARN.
func (l *Log) Warn(args ...any) error { return l.Log(level.Warn, args...) }

// Error logs at ERROR.
func (l *Log) Error(args ...any) error { return l.Log(level.Error, args...) }

// Critical logs at CRITICAL.
func (l *Log) Critical(args ...any) error { return l.Log(level.Critical, args...) }

// Log formats args and publishes a record at lvl. ALL and OFF are
// thresholds, not record levels, and are rejected.
func (l *Log) Log(lvl level.Level, args ...any) error {
	if lvl <= level.All || lvl >= level.Off {
		return errors.NewLevelError(int(lvl), "not a record level")
	}
	return l.provider.Publish(record.New(lvl, l.topic, format.Message(args...)))
}

// Enabled reports whether a record at lvl would pass the provider's global
// threshold for this topic. Subscriptions with their own level may still
// want records that fail this check.
func (l *Log) Enabled(lvl level.Level) bool {
	threshold := l.provider.Level()
	if d := l.provider.debug.Load(); d != nil {
		selected := d.match(l.topic)
		if lvl == level.Debug && !selected {
			return false
		}
		if selected && threshold > level.Debug {
			threshold = level.Debug
		}
	}
	return lvl.Enabled(threshold)
}
