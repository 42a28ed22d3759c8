package logging

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/record"
)

func TestReadEntries(t *testing.T) {
	t.Run("reads what the writer wrote", func(t *testing.T) {
		dir := t.TempDir()
		w := newTestWriter(t, dir, 10)

		at := time.Date(2024, 6, 1, 8, 30, 0, 125_000_000, time.UTC)
		recs := []record.Record{
			record.New(level.Warn, "db", "slow query: 3s", record.WithTime(at), record.WithPackage("app", "")),
			record.New(level.Error, "*", "trace\nat frame 1", record.WithTime(at.Add(time.Second)), record.WithPackage("app", "")),
		}
		for _, rec := range recs {
			if err := w.WriteRecord(rec); err != nil {
				t.Fatalf("WriteRecord failed: %v", err)
			}
		}

		entries, err := ReadEntries(filepath.Join(dir, "app.2024-06-01.log"), nil)
		if err != nil {
			t.Fatalf("ReadEntries failed: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}

		first := entries[0]
		if !first.Timestamp.Equal(at) {
			t.Errorf("Timestamp = %v, want %v", first.Timestamp, at)
		}
		if first.Level != level.Warn || first.Topic != "db" || first.Message != "slow query: 3s" {
			t.Errorf("first entry = %+v", first)
		}
		if first.Package != "app" || first.PID != os.Getpid() {
			t.Errorf("first entry origin = %q[%d]", first.Package, first.PID)
		}

		if entries[1].Message != "trace\nat frame 1" {
			t.Errorf("continuation not folded: %q", entries[1].Message)
		}
		if entries[1].Topic != "*" {
			t.Errorf("Topic = %q, want *", entries[1].Topic)
		}
	})

	t.Run("skips lines that do not fit", func(t *testing.T) {
		content := "garbage\n" +
			"2024-01-01T00:00:00.000Z INFO app[1] t: ok\n" +
			"2024-01-01T00:00:00.000Z LOUD app[1] t: bad level\n" +
			"yesterday INFO app[1] t: bad time\n"
		entries, err := ParseEntries(strings.NewReader(content), nil)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Message != "ok" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("handles CRLF line endings", func(t *testing.T) {
		content := "2024-01-01T00:00:00.000Z INFO app[1] t: one\r\n> two\r\n"
		entries, err := ParseEntries(strings.NewReader(content), nil)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Message != "one\ntwo" {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("custom template with rank", func(t *testing.T) {
		tmpl := format.MustCompile("{timestamp}|{rank}|{message}")
		entries, err := ParseEntries(strings.NewReader("2024-01-01T00:00:00.000Z|5|boom\n"), tmpl)
		if err != nil {
			t.Fatalf("ParseEntries failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Level != level.Error {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadEntries(filepath.Join(t.TempDir(), "absent.log"), nil)
		if !errors.Is(err, errors.ErrIO) {
			t.Errorf("ReadEntries() error = %v, want ErrIO", err)
		}
	})
}

func TestReadDir(t *testing.T) {
	dir := t.TempDir()
	w := newTestWriter(t, dir, 10)
	for _, date := range []string{"2024-01-03", "2024-01-01", "2024-01-02"} {
		if err := w.WriteRecord(recordAt(day(date), date)); err != nil {
			t.Fatalf("WriteRecord failed: %v", err)
		}
	}

	entries, err := ReadDir(dir, "app", nil)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Message)
	}
	if strings.Join(got, ",") != "2024-01-01,2024-01-02,2024-01-03" {
		t.Errorf("messages = %v", got)
	}
}

func TestFilterEntries(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Timestamp: base, Level: level.Debug, Topic: "db", Message: "connect"},
		{Timestamp: base.Add(time.Minute), Level: level.Info, Topic: "api", Message: "request served"},
		{Timestamp: base.Add(2 * time.Minute), Level: level.Warn, Topic: "db", Message: "slow query"},
		{Timestamp: base.Add(3 * time.Minute), Level: level.Critical, Topic: "api", Message: "panic served"},
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"empty filter", Filter{}, []string{"connect", "request served", "slow query", "panic served"}},
		{"min level", Filter{MinLevel: level.Warn}, []string{"slow query", "panic served"}},
		{"topic", Filter{Topic: "db"}, []string{"connect", "slow query"}},
		{"since", Filter{Since: base.Add(2 * time.Minute)}, []string{"slow query", "panic served"}},
		{"until", Filter{Until: base.Add(time.Minute)}, []string{"connect", "request served"}},
		{"contains", Filter{Contains: "served"}, []string{"request served", "panic served"}},
		{"combined", Filter{MinLevel: level.Info, Topic: "api", Contains: "panic"}, []string{"panic served"}},
		{"off matches nothing", Filter{MinLevel: level.Off}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, e := range FilterEntries(entries, tt.filter) {
				got = append(got, e.Message)
			}
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("FilterEntries() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExportEntries(t *testing.T) {
	entries := []Entry{
		{
			Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Level:     level.Error,
			Topic:     "db",
			Message:   "a, \"quoted\" message",
			Package:   "app",
			PID:       7,
		},
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportEntries(&buf, entries, ExportText, nil); err != nil {
			t.Fatalf("ExportEntries failed: %v", err)
		}
		want := "2024-01-01T00:00:00.000Z ERROR app[7] db: a, \"quoted\" message\n"
		if buf.String() != want {
			t.Errorf("text = %q, want %q", buf.String(), want)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportEntries(&buf, entries, ExportJSON, nil); err != nil {
			t.Fatalf("ExportEntries failed: %v", err)
		}
		var decoded []map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 1 || decoded[0]["level"] != "ERROR" || decoded[0]["topic"] != "db" {
			t.Errorf("decoded = %v", decoded)
		}
	})

	t.Run("json with no entries is an empty array", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportEntries(&buf, nil, ExportJSON, nil); err != nil {
			t.Fatalf("ExportEntries failed: %v", err)
		}
		if strings.TrimSpace(buf.String()) != "[]" {
			t.Errorf("json = %q, want []", buf.String())
		}
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		if err := ExportEntries(&buf, entries, ExportCSV, nil); err != nil {
			t.Fatalf("ExportEntries failed: %v", err)
		}
		rows, err := csv.NewReader(&buf).ReadAll()
		if err != nil {
			t.Fatalf("invalid CSV: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected header and 1 row, got %d rows", len(rows))
		}
		if rows[0][0] != "timestamp" || rows[1][3] != "a, \"quoted\" message" || rows[1][6] != "7" {
			t.Errorf("rows = %v", rows)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		err := ExportEntries(&bytes.Buffer{}, entries, "xml", nil)
		if !errors.Is(err, errors.ErrInvalidArgument) {
			t.Errorf("ExportEntries(xml) = %v, want ErrInvalidArgument", err)
		}
	})
}
