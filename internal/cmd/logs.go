package cmd

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/pkglog/internal/console"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/logging"
)

type logsOptions struct {
	tail   int
	follow bool
	level  string
	topic  string
	since  string
	until  string
	grep   string
	output string
	color  string
	width  int
}

func newLogsCmd(a *app) *cobra.Command {
	opts := &logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View log records",
		Long: `View and filter the records in the configured log directory.

All retained files are read, oldest first. Use flags to filter and format
the output.

Examples:
  # Show the last 50 records
  pkglog logs

  # Show everything
  pkglog logs -n 0

  # Follow new records, including tomorrow's file
  pkglog logs -f

  # Only warnings and worse from the db topic
  pkglog logs --level warn --topic db

  # Records from the last hour as JSON
  pkglog logs --since 1h -o json

  # Search messages
  pkglog logs --grep "timeout|refused"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(a, cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.tail, "tail", "n", 50, "Number of records to show (0 for all)")
	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow new records (like tail -f)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Filter by minimum level (trace/debug/info/warn/error/critical)")
	cmd.Flags().StringVar(&opts.topic, "topic", "", "Filter by topic")
	cmd.Flags().StringVar(&opts.since, "since", "", "Show records since a duration ago (e.g., 1h) or a date/time")
	cmd.Flags().StringVar(&opts.until, "until", "", "Show records until a duration ago or a date/time")
	cmd.Flags().StringVar(&opts.grep, "grep", "", "Filter records whose topic or message matches pattern (regex)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, raw, json or csv")
	cmd.Flags().StringVar(&opts.color, "color", "", "Colorize text output: auto, always or never (default from config)")
	cmd.Flags().IntVarP(&opts.width, "width", "w", 0, "Truncate text lines to N columns (-1 for the terminal width, 0 to disable)")
	return cmd
}

// query holds the parsed filters of one logs invocation.
type query struct {
	filter logging.Filter
	grep   *regexp.Regexp
}

func (q query) matches(e logging.Entry) bool {
	if !q.filter.Matches(e) {
		return false
	}
	return q.grep == nil || q.grep.MatchString(e.Topic) || q.grep.MatchString(e.Message)
}

func parseQuery(opts *logsOptions, now time.Time) (query, error) {
	var q query

	if opts.level != "" {
		l, err := level.ParseString(opts.level)
		if err != nil {
			return q, err
		}
		q.filter.MinLevel = l
	}
	q.filter.Topic = strings.TrimSpace(opts.topic)

	var err error
	if q.filter.Since, err = parseTimeFlag(opts.since, now); err != nil {
		return q, fmt.Errorf("invalid --since: %w", err)
	}
	if q.filter.Until, err = parseTimeFlag(opts.until, now); err != nil {
		return q, fmt.Errorf("invalid --until: %w", err)
	}

	if opts.grep != "" {
		if q.grep, err = regexp.Compile(opts.grep); err != nil {
			return q, fmt.Errorf("invalid grep pattern: %w", err)
		}
	}
	return q, nil
}

// parseTimeFlag accepts a duration before now, an RFC 3339 time or a
// YYYY-MM-DD date (UTC midnight).
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is neither a duration nor a date", s)
}

func runLogs(a *app, cmd *cobra.Command, opts *logsOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	tmpl, err := cfg.Template()
	if err != nil {
		return err
	}

	q, err := parseQuery(opts, time.Now())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	colorSetting := opts.color
	if colorSetting == "" {
		colorSetting = cfg.Color
	}
	mode, err := console.ParseColorMode(colorSetting)
	if err != nil {
		return err
	}
	printer, err := newEntryPrinter(out, opts.output, tmpl, useColor(out, mode))
	if err != nil {
		return err
	}
	printer.width = lineWidth(out, opts.width)

	if opts.follow && printer.kind != outputText && printer.kind != outputRaw {
		return fmt.Errorf("--follow supports text and raw output only")
	}

	entries, err := logging.ReadDir(cfg.Dir, cfg.File, tmpl)
	if err != nil {
		return err
	}

	var matched []logging.Entry
	for _, e := range entries {
		if q.matches(e) {
			matched = append(matched, e)
		}
	}
	if opts.tail > 0 && len(matched) > opts.tail {
		matched = matched[len(matched)-opts.tail:]
	}

	if !opts.follow {
		if len(matched) == 0 && printer.kind == outputText {
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "No matching log entries found.")
			return nil
		}
		return printer.print(matched)
	}

	if err := printer.print(matched); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Following %s... (Ctrl+C to stop)\n", cfg.Dir)

	f := newFollower(cfg.Dir, cfg.File, tmpl, func(e logging.Entry) error {
		if !q.matches(e) {
			return nil
		}
		return printer.print([]logging.Entry{e})
	})
	return f.run(cmd.Context(), nil)
}

const (
	outputText = "text"
	outputRaw  = "raw"
)

// entryPrinter writes entries in one output format.
type entryPrinter struct {
	w     io.Writer
	kind  string
	tmpl  *format.Template
	color bool
	width int
}

func newEntryPrinter(w io.Writer, kind string, tmpl *format.Template, color bool) (*entryPrinter, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case outputText, outputRaw, logging.ExportJSON, logging.ExportCSV:
	default:
		return nil, fmt.Errorf("unsupported output %q (supported: text, raw, json, csv)", kind)
	}
	return &entryPrinter{w: w, kind: kind, tmpl: tmpl, color: color}, nil
}

func (p *entryPrinter) print(entries []logging.Entry) error {
	switch p.kind {
	case outputText:
		for _, e := range entries {
			line := console.Plain(e.Record())
			if p.color {
				line = console.Colored(e.Record())
			}
			line = console.Truncate(line, p.width)
			if _, err := fmt.Fprintln(p.w, line); err != nil {
				return err
			}
		}
		return nil
	case outputRaw:
		return logging.ExportEntries(p.w, entries, logging.ExportText, p.tmpl)
	default:
		return logging.ExportEntries(p.w, entries, p.kind, p.tmpl)
	}
}

// useColor resolves a color mode against the output destination.
func useColor(w io.Writer, mode console.ColorMode) bool {
	switch mode {
	case console.ColorAlways:
		return true
	case console.ColorNever:
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// lineWidth resolves the --width flag. Negative means the terminal width,
// or no truncation when w is not a terminal.
func lineWidth(w io.Writer, width int) int {
	if width >= 0 {
		return width
	}
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return cols
}
