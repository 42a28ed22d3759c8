package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/provider"
	"github.com/Iron-Ham/pkglog/internal/record"
	"github.com/Iron-Ham/pkglog/internal/testutil"
)

var envVars = []string{
	"LOG_LEVEL", "LOG_FORMAT", "LOG_DIR", "LOG_FILE", "LOG_FILES",
	"LOG_COMPRESS", "LOG_CONSOLE", "LOG_COLOR", "LOG_DEBUG", "DEBUG", "NO_COLOR",
}

// executeCommand runs a fresh command tree with args and returns captured
// stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	root := NewRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

// setupTestEnvironment isolates the command from the user's configuration
// and returns a log directory.
func setupTestEnvironment(t *testing.T) string {
	t.Helper()

	testutil.ClearEnv(t, envVars...)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
	return testutil.SetupLogDir(t)
}

func TestRootCommand(t *testing.T) {
	root := NewRootCmd()
	if root.Use != "pkglog" {
		t.Errorf("root.Use = %q, want %q", root.Use, "pkglog")
	}

	cmdMap := make(map[string]bool)
	for _, cmd := range root.Commands() {
		cmdMap[cmd.Name()] = true
	}
	for _, expected := range []string{"write", "logs", "files", "config"} {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestWriteAndLogs(t *testing.T) {
	dir := setupTestEnvironment(t)
	flags := []string{"--dir", dir, "--file", "app"}

	run := func(t *testing.T, args ...string) string {
		t.Helper()
		out, stderr, err := executeCommand(t, "", append(args, flags...)...)
		if err != nil {
			t.Fatalf("%v failed: %v\nstderr: %s", args, err, stderr)
		}
		return out
	}

	run(t, "write", "--topic", "api", "hello {0}", "world")
	run(t, "write", "-t", "db", "-l", "warn", "slow query")
	run(t, "write", "-t", "db", "-l", "debug", "below threshold")

	files, err := logging.ListFiles(dir, "app")
	if err != nil || len(files) != 1 {
		t.Fatalf("ListFiles() = %v, %v; want one file", files, err)
	}

	t.Run("text", func(t *testing.T) {
		out := run(t, "logs", "-n", "0", "--color", "never")
		lines := testutil.SplitLines(out)
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2:\n%s", len(lines), out)
		}
		if !strings.HasSuffix(lines[0], "[INFO] api: hello world") {
			t.Errorf("line 0 = %q", lines[0])
		}
		if !strings.HasSuffix(lines[1], "[WARN] db: slow query") {
			t.Errorf("line 1 = %q", lines[1])
		}
	})

	t.Run("level filter", func(t *testing.T) {
		out := run(t, "logs", "--level", "warn", "--color", "never")
		if strings.Contains(out, "hello world") || !strings.Contains(out, "slow query") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("topic and grep", func(t *testing.T) {
		out := run(t, "logs", "--topic", "api", "--color", "never")
		if !strings.Contains(out, "hello world") || strings.Contains(out, "slow query") {
			t.Errorf("topic filter output:\n%s", out)
		}
		out = run(t, "logs", "--grep", "^slow", "--color", "never")
		if strings.Contains(out, "hello world") || !strings.Contains(out, "slow query") {
			t.Errorf("grep output:\n%s", out)
		}
	})

	t.Run("tail", func(t *testing.T) {
		out := run(t, "logs", "-n", "1", "--color", "never")
		if lines := testutil.SplitLines(out); len(lines) != 1 || !strings.Contains(lines[0], "slow query") {
			t.Errorf("tail output:\n%s", out)
		}
	})

	t.Run("width", func(t *testing.T) {
		out := run(t, "logs", "--color", "never", "--width", "20")
		for _, line := range testutil.SplitLines(out) {
			if len(line) != 20 || !strings.HasSuffix(line, "...") {
				t.Errorf("line %q not truncated to 20 columns", line)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		out := run(t, "logs", "-o", "json")
		var entries []logging.Entry
		if err := json.Unmarshal([]byte(out), &entries); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(entries) != 2 || entries[0].Topic != "api" || entries[1].Level != level.Warn {
			t.Errorf("entries = %+v", entries)
		}
	})

	t.Run("raw", func(t *testing.T) {
		out := run(t, "logs", "-o", "raw")
		content, err := os.ReadFile(files[0].Path)
		if err != nil {
			t.Fatal(err)
		}
		if strings.ReplaceAll(string(content), "\r\n", "\n") != out {
			t.Errorf("raw output differs from file:\n%s\nvs\n%s", out, content)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		out, stderr, err := executeCommand(t, "", append([]string{"logs", "--topic", "none"}, flags...)...)
		if err != nil {
			t.Fatalf("logs failed: %v", err)
		}
		if out != "" || !strings.Contains(stderr, "No matching log entries found.") {
			t.Errorf("stdout = %q, stderr = %q", out, stderr)
		}
	})
}

func TestWrite_Stdin(t *testing.T) {
	dir := setupTestEnvironment(t)

	_, stderr, err := executeCommand(t, "first\n\nsecond {0}\r\n", "write", "-t", "pipe", "--dir", dir, "--file", "app")
	if err != nil {
		t.Fatalf("write failed: %v\n%s", err, stderr)
	}

	entries, err := logging.ReadDir(dir, "app", nil)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Message != "first" || entries[1].Message != "second {0}" {
		t.Errorf("entries = %+v", entries)
	}

	if _, _, err := executeCommand(t, "", "write", "--dir", dir, "--file", "app"); err == nil {
		t.Error("expected error when there is nothing to write")
	}
}

func TestWrite_Errors(t *testing.T) {
	dir := setupTestEnvironment(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad level", []string{"write", "-l", "loud", "msg"}},
		{"threshold level", []string{"write", "-l", "off", "msg"}},
		{"blank topic", []string{"write", "-t", " ", "msg"}},
		{"bad file name", []string{"write", "--file", "a/b", "msg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := executeCommand(t, "", append(tt.args, "--dir", dir)...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWrite_EnvironmentLevel(t *testing.T) {
	dir := setupTestEnvironment(t)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_DIR", dir)

	if _, _, err := executeCommand(t, "", "write", "-t", "api", "suppressed"); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if files := testutil.ListFiles(t, dir); len(files) != 0 {
		t.Errorf("files = %v, want none", files)
	}
}

func TestFilesCommand(t *testing.T) {
	testutil.ClearEnv(t, envVars...)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := testutil.SetupLogDirWithFiles(t, "app", "2024-01-02", "2023-12-31", "2024-01-01")
	testutil.WriteFile(t, dir, "other.2024-01-01.log", "")

	out, _, err := executeCommand(t, "", "files", "--paths", "--dir", dir, "--file", "app")
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	want := []string{
		filepath.Join(dir, "app.2023-12-31.log"),
		filepath.Join(dir, "app.2024-01-01.log"),
		filepath.Join(dir, "app.2024-01-02.log"),
	}
	if got := testutil.SplitLines(out); strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("files --paths = %v, want %v", got, want)
	}

	out, _, err = executeCommand(t, "", "files", "--dir", dir, "--file", "app")
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	if !strings.Contains(out, "app.2024-01-02.log") || !strings.Contains(out, "3 of 10 files retained") {
		t.Errorf("files output:\n%s", out)
	}

	out, _, err = executeCommand(t, "", "files", "--dir", dir, "--file", "none")
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	if !strings.Contains(out, "No log files") {
		t.Errorf("files output:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	setupTestEnvironment(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	t.Run("init", func(t *testing.T) {
		out, _, err := executeCommand(t, "", "config", "init", "--config", path)
		if err != nil {
			t.Fatalf("config init failed: %v", err)
		}
		if !strings.Contains(out, "Created config file") {
			t.Errorf("output = %q", out)
		}
		if _, _, err := executeCommand(t, "", "config", "init", "--config", path); err == nil {
			t.Error("second init should fail without --force")
		}
		if _, _, err := executeCommand(t, "", "config", "init", "--force", "--config", path); err != nil {
			t.Errorf("init --force failed: %v", err)
		}
	})

	t.Run("show defaults from file", func(t *testing.T) {
		out, _, err := executeCommand(t, "", "config", "show", "--config", path)
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		for _, want := range []string{"# Config file: " + path, "level: INFO", "files: 10", "color: auto"} {
			if !strings.Contains(out, want) {
				t.Errorf("config show missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("set", func(t *testing.T) {
		if _, _, err := executeCommand(t, "", "config", "set", "files", "3", "--config", path); err != nil {
			t.Fatalf("config set failed: %v", err)
		}
		if _, _, err := executeCommand(t, "", "config", "set", "level", "warn", "--config", path); err != nil {
			t.Fatalf("config set failed: %v", err)
		}

		out, _, err := executeCommand(t, "", "config", "show", "--config", path)
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		if !strings.Contains(out, "files: 3") || !strings.Contains(out, "level: WARN") {
			t.Errorf("config show after set:\n%s", out)
		}
	})

	t.Run("set rejects invalid values", func(t *testing.T) {
		before, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}

		for _, args := range [][]string{
			{"files", "0"},
			{"files", "many"},
			{"level", "loud"},
			{"compress", "maybe"},
			{"color", "rainbow"},
			{"unknown", "x"},
		} {
			if _, _, err := executeCommand(t, "", append([]string{"config", "set"}, append(args, "--config", path)...)...); err == nil {
				t.Errorf("config set %v should fail", args)
			}
		}

		after, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(before, after) {
			t.Error("rejected values must not change the config file")
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("LOG_FILES", "7")
		out, _, err := executeCommand(t, "", "config", "show", "--config", path)
		if err != nil {
			t.Fatalf("config show failed: %v", err)
		}
		if !strings.Contains(out, "files: 7") {
			t.Errorf("config show:\n%s", out)
		}
	})

	t.Run("path", func(t *testing.T) {
		out, _, err := executeCommand(t, "", "config", "path")
		if err != nil {
			t.Fatalf("config path failed: %v", err)
		}
		if !strings.Contains(out, "not created") || !strings.Contains(out, "LOG_LEVEL") {
			t.Errorf("config path output:\n%s", out)
		}
	})

	t.Run("set creates missing file", func(t *testing.T) {
		fresh := filepath.Join(t.TempDir(), "new", "config.yaml")
		if _, _, err := executeCommand(t, "", "config", "set", "debug", "db*", "--config", fresh); err != nil {
			t.Fatalf("config set on a new file failed: %v", err)
		}
		data, err := os.ReadFile(fresh)
		if err != nil {
			t.Fatalf("config file not created: %v", err)
		}
		if !strings.Contains(string(data), "debug: db*") {
			t.Errorf("config file:\n%s", data)
		}
	})

	t.Run("missing explicit file", func(t *testing.T) {
		absent := filepath.Join(t.TempDir(), "absent.yaml")
		for _, args := range [][]string{{"config", "show"}, {"files"}, {"logs"}} {
			if _, _, err := executeCommand(t, "", append(args, "--config", absent)...); err == nil {
				t.Errorf("%v: expected error for a missing --config file", args)
			}
		}
	})
}

func TestPrintError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{
			"invalid input",
			errors.NewValidationError("must be between 1 and 1000").WithField("files"),
			"Run 'pkglog --help' for usage.",
		},
		{
			"io failure",
			errors.NewIOError("append", "/logs/app.2024-01-02.log", os.ErrPermission),
			"I/O error: ",
		},
		{"other", errors.New("boom"), "Error: boom\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printError(&buf, tt.err)
			if tt.want == "" {
				if buf.Len() != 0 {
					t.Errorf("output = %q, want nothing", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}
}

func TestCommandErrorsAreClassified(t *testing.T) {
	setupTestEnvironment(t)
	path := filepath.Join(t.TempDir(), "config.yaml")

	_, stderr, err := executeCommand(t, "", "config", "set", "files", "0", "--config", path)
	if !errors.IsUserFacing(err) {
		t.Errorf("config set files 0 error = %v, want a user-facing error", err)
	}
	if stderr != "" {
		t.Errorf("errors are printed by Execute only, stderr = %q", stderr)
	}
}

func TestParseTimeFlag(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{"", time.Time{}, false},
		{"1h", now.Add(-time.Hour), false},
		{"2024-05-31", time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC), false},
		{"2024-05-31T08:30:00Z", time.Date(2024, 5, 31, 8, 30, 0, 0, time.UTC), false},
		{"yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeFlag(tt.in, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseTimeFlag(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimeFlag(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFollower(t *testing.T) {
	dir := testutil.SetupLogDir(t)

	opts := provider.DefaultOptions()
	opts.Directory = dir
	opts.Filename = "app"
	p, err := provider.New(opts)
	if err != nil {
		t.Fatalf("provider.New failed: %v", err)
	}
	log, err := p.GetLog("api")
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Info("before follow"); err != nil {
		t.Fatal(err)
	}

	got := make(chan logging.Entry, 16)
	f := newFollower(dir, "app", nil, func(e logging.Entry) error {
		got <- e
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- f.run(ctx, func() { close(ready) }) }()

	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("follower stopped early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("follower did not start")
	}

	expect := func(msg string) {
		t.Helper()
		select {
		case e := <-got:
			if e.Message != msg {
				t.Errorf("followed message = %q, want %q", e.Message, msg)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", msg)
		}
	}

	if err := log.Warn("line one\nline two"); err != nil {
		t.Fatal(err)
	}
	expect("line one\nline two")

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	if err := p.Publish(record.New(level.Error, "api", "next day", record.WithTime(tomorrow))); err != nil {
		t.Fatal(err)
	}
	expect("next day")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("follower did not stop")
	}
}
