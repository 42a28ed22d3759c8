package logging

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/record"
)

// Entry is a log line read back from disk.
type Entry struct {
	Timestamp time.Time   `json:"timestamp"`
	Level     level.Level `json:"level"`
	Topic     string      `json:"topic,omitempty"`
	Message   string      `json:"message"`
	Package   string      `json:"package,omitempty"`
	Version   string      `json:"version,omitempty"`
	PID       int         `json:"pid,omitempty"`
}

// Filter defines criteria for filtering entries. Zero fields do not filter.
type Filter struct {
	// MinLevel keeps entries at or above this level.
	MinLevel level.Level

	// Topic keeps entries with exactly this topic.
	Topic string

	// Since and Until bound the entry timestamps, inclusive.
	Since time.Time
	Until time.Time

	// Contains keeps entries whose message contains this substring.
	Contains string
}

// maxLineSize bounds a single line when scanning log files.
const maxLineSize = 1024 * 1024

// ReadEntries parses a log file written with tmpl. Continuation lines are
// folded back into the preceding entry's message and lines that fit neither
// are skipped. A nil tmpl means format.DefaultLine.
func ReadEntries(path string, tmpl *format.Template) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open", path, err)
	}
	defer func() { _ = file.Close() }()

	entries, err := ParseEntries(file, tmpl)
	if err != nil {
		return nil, errors.NewIOError("read", path, err)
	}
	return entries, nil
}

// ParseEntries parses log lines from r. See ReadEntries.
func ParseEntries(r io.Reader, tmpl *format.Template) ([]Entry, error) {
	if tmpl == nil {
		tmpl = format.MustCompile(format.DefaultLine)
	}

	var entries []Entry
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if strings.HasPrefix(line, record.ContinuationMarker) && len(entries) > 0 {
			last := &entries[len(entries)-1]
			last.Message += "\n" + strings.TrimPrefix(line, record.ContinuationMarker)
			continue
		}

		if entry, ok := ParseLine(line, tmpl); ok {
			entries = append(entries, entry)
		}
	}
	return entries, scanner.Err()
}

// ParseLine parses a single rendered line.
func ParseLine(line string, tmpl *format.Template) (Entry, bool) {
	fields, ok := tmpl.Parse(line)
	if !ok {
		return Entry{}, false
	}

	entry := Entry{
		Topic:   fields["topic"],
		Message: fields["message"],
		Package: fields["package"],
		Version: fields["version"],
	}
	if ts, ok := fields["timestamp"]; ok {
		t, err := time.Parse(record.TimestampLayout, ts)
		if err != nil {
			return Entry{}, false
		}
		entry.Timestamp = t
	}
	for _, key := range []string{"severity", "level", "rank"} {
		if v, ok := fields[key]; ok {
			l, err := level.ParseString(v)
			if err != nil {
				return Entry{}, false
			}
			entry.Level = l
			break
		}
	}
	if pid, err := strconv.Atoi(fields["pid"]); err == nil {
		entry.PID = pid
	}
	return entry, true
}

// ReadDir reads every dated log file of filename in dir, oldest first.
func ReadDir(dir, filename string, tmpl *format.Template) ([]Entry, error) {
	files, err := ListFiles(dir, filename)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, f := range files {
		got, err := ReadEntries(f.Path, tmpl)
		if err != nil {
			return nil, err
		}
		entries = append(entries, got...)
	}
	return entries, nil
}

// FilterEntries returns the entries matching every criterion of filter.
func FilterEntries(entries []Entry, filter Filter) []Entry {
	if filter == (Filter{}) {
		return entries
	}

	var filtered []Entry
	for _, entry := range entries {
		if filter.Matches(entry) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

// Matches reports whether entry satisfies the filter.
func (f Filter) Matches(entry Entry) bool {
	if !entry.Level.Enabled(f.MinLevel) {
		return false
	}
	if f.Topic != "" && entry.Topic != f.Topic {
		return false
	}
	if !f.Since.IsZero() && entry.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && entry.Timestamp.After(f.Until) {
		return false
	}
	if f.Contains != "" && !strings.Contains(entry.Message, f.Contains) {
		return false
	}
	return true
}

// Record converts the entry back into a record.
func (e Entry) Record() record.Record {
	return record.Record{
		Timestamp: e.Timestamp,
		Level:     e.Level,
		Topic:     e.Topic,
		Message:   e.Message,
		PID:       e.PID,
		Package:   e.Package,
		Version:   e.Version,
	}
}

// -----------------------------------------------------------------------------
// Export
// -----------------------------------------------------------------------------

// Export formats.
const (
	ExportText = "text"
	ExportJSON = "json"
	ExportCSV  = "csv"
)

// ExportEntries writes entries to w as "text", "json" or "csv". Text lines
// are rendered with tmpl, or format.DefaultLine when tmpl is nil.
func ExportEntries(w io.Writer, entries []Entry, kind string, tmpl *format.Template) error {
	switch strings.ToLower(kind) {
	case ExportText, "":
		return exportText(w, entries, tmpl)
	case ExportJSON:
		return exportJSON(w, entries)
	case ExportCSV:
		return exportCSV(w, entries)
	default:
		return errors.NewValidationError(
			fmt.Sprintf("unsupported export format (supported: %s, %s, %s)", ExportText, ExportJSON, ExportCSV),
		).WithField("format").WithValue(kind)
	}
}

func exportText(w io.Writer, entries []Entry, tmpl *format.Template) error {
	if tmpl == nil {
		tmpl = format.MustCompile(format.DefaultLine)
	}
	for _, entry := range entries {
		rec := entry.Record()
		rec.Message = record.NormalizeMessage(rec.Message)
		if _, err := io.WriteString(w, tmpl.Render(rec.Fields())+"\n"); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func exportJSON(w io.Writer, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func exportCSV(w io.Writer, entries []Entry) error {
	writer := csv.NewWriter(w)

	headers := []string{"timestamp", "level", "topic", "message", "package", "version", "pid"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		row := []string{
			entry.Timestamp.UTC().Format(record.TimestampLayout),
			entry.Level.String(),
			entry.Topic,
			entry.Message,
			entry.Package,
			entry.Version,
			strconv.Itoa(entry.PID),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	return writer.Error()
}
