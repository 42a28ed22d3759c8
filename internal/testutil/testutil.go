// Package testutil provides testing utilities for pkglog tests.
package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// SetupLogDir creates a temporary log directory for testing. The directory
// is automatically cleaned up when the test completes.
func SetupLogDir(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "logs")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create log directory: %v", err)
	}
	return dir
}

// SetupLogDirWithFiles creates a log directory holding one empty dated log
// file of filename per date.
func SetupLogDirWithFiles(t *testing.T, filename string, dates ...string) string {
	t.Helper()

	dir := SetupLogDir(t)
	for _, date := range dates {
		WriteFile(t, dir, filename+"."+date+".log", "")
	}
	return dir
}

// WriteFile creates or replaces a file in dir.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write file %s: %v", name, err)
	}
	return path
}

// ListFiles returns the sorted names of the regular files in dir.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list %s: %v", dir, err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// ReadLines returns the non-empty lines of a file, without line endings.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return SplitLines(string(content))
}

// SplitLines splits s into non-empty lines, accepting \n and \r\n.
func SplitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// Day returns noon UTC on the given YYYY-MM-DD date.
func Day(t *testing.T, date string) time.Time {
	t.Helper()

	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		t.Fatalf("invalid date %q: %v", date, err)
	}
	return d.Add(12 * time.Hour)
}

// ClearEnv unsets the given environment variables for the duration of the
// test, restoring them afterwards.
func ClearEnv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		// Setenv registers the restore.
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("failed to unset %s: %v", key, err)
		}
	}
}
