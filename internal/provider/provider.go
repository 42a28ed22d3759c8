package provider

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Iron-Ham/pkglog/internal/console"
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/level"
	"github.com/Iron-Ham/pkglog/internal/logging"
	"github.com/Iron-Ham/pkglog/internal/record"
	"github.com/Iron-Ham/pkglog/internal/router"
)

// Options configures a Provider.
type Options struct {
	// Level is the global threshold for subscriptions without an override,
	// including the built-in file subscription.
	Level level.Level

	// Format is the line template used by the file writer.
	Format string

	// Directory, Filename, Files and Compress configure the file writer.
	Directory string
	Filename  string
	Files     int
	Compress  bool

	// Console mirrors records to Stdout and Stderr. Color selects when the
	// mirror uses ANSI colors.
	Console bool
	Color   console.ColorMode
	Stdout  io.Writer
	Stderr  io.Writer

	// DebugTopics lists the topic patterns allowed to emit DEBUG records.
	// See SetDebugTopics.
	DebugTopics string

	// Logger receives the provider's own diagnostics. Defaults to a JSON
	// logger on stderr at WARN.
	Logger *slog.Logger
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	wc := logging.DefaultWriterConfig()
	return Options{
		Level:     level.Info,
		Format:    format.DefaultLine,
		Directory: wc.Directory,
		Filename:  wc.Filename,
		Files:     wc.Files,
		Color:     console.ColorAuto,
	}
}

// Provider owns a router, a file writer and the global threshold, and hands
// out per-topic Log handles. Providers share no state with each other beyond
// the per-directory write lock, so several may coexist in one process.
type Provider struct {
	router *router.Router
	writer *logging.Writer
	sink   *console.Sink

	debug atomic.Pointer[debugTopics]

	mu           sync.Mutex
	logs         map[string]*Log
	format       string
	writerToken  string
	consoleToken string
}

// New creates a Provider and installs its built-in subscription: every
// topic, no level override, delivered to the file writer.
func New(opts Options) (*Provider, error) {
	if !opts.Level.Valid() {
		return nil, errors.NewLevelError(int(opts.Level), "out of range").WithSource("options")
	}
	if opts.Format == "" {
		opts.Format = format.DefaultLine
	}
	tmpl, err := format.Compile(opts.Format)
	if err != nil {
		return nil, err
	}

	writer, err := logging.NewWriter(logging.WriterConfig{
		Directory: opts.Directory,
		Filename:  opts.Filename,
		Files:     opts.Files,
		Compress:  opts.Compress,
	}, tmpl)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewDiagnosticLogger(os.Stderr, level.Warn)
	}

	stdout, stderr := opts.Stdout, opts.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	p := &Provider{
		router: router.New(opts.Level, router.WithLogger(logger)),
		writer: writer,
		sink:   console.New(stdout, stderr, opts.Color),
		logs:   make(map[string]*Log),
		format: opts.Format,
	}

	if err := p.SetDebugTopics(opts.DebugTopics); err != nil {
		return nil, err
	}

	p.writerToken, err = p.router.Subscribe(router.AllTopics, writer.Handler())
	if err != nil {
		return nil, err
	}
	if opts.Console {
		p.SetConsole(true)
	}
	return p, nil
}

// GetLog returns the handle for topic, creating it on first use. The same
// topic always yields the same handle. Surrounding whitespace is ignored.
func (p *Provider) GetLog(topic string) (*Log, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.NewValidationError("topic must not be empty").WithField("topic")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.logs[topic]; ok {
		return l, nil
	}
	l := &Log{topic: topic, provider: p}
	p.logs[topic] = l
	return l, nil
}

// Publish delivers rec to every matching subscription. While a debug topic
// list is installed, DEBUG records are published only for the topics it
// selects, and those topics are gated at DEBUG or the global level,
// whichever is lower. Errors returned by subscribers, including the file
// writer, are returned.
func (p *Provider) Publish(rec record.Record) error {
	if rec.Topic == "" {
		return errors.NewValidationError("record topic must not be empty").WithField("topic")
	}
	if rec.Level <= level.All || rec.Level >= level.Off {
		return errors.NewLevelError(int(rec.Level), "not a record level").WithSource("record")
	}

	d := p.debug.Load()
	if d == nil {
		return p.router.Publish(rec)
	}
	selected := d.match(rec.Topic)
	if rec.Level == level.Debug && !selected {
		return nil
	}
	if selected && p.router.Level() > level.Debug {
		return p.router.PublishAt(rec, level.Debug)
	}
	return p.router.Publish(rec)
}

// Subscribe registers handler for topic (or router.AllTopics). Without
// router.WithLevel the subscription follows the global level.
func (p *Provider) Subscribe(topic string, handler router.Handler, opts ...router.SubscribeOption) (string, error) {
	return p.router.Subscribe(topic, handler, opts...)
}

// Unsubscribe removes a subscription. Unknown tokens are ignored.
func (p *Provider) Unsubscribe(token string) {
	p.router.Unsubscribe(token)
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// SetLevel parses v (a level name or rank) and makes it the global
// threshold for every subsequent publish.
func (p *Provider) SetLevel(v any) error {
	return p.router.SetLevel(v)
}

// Level returns the global threshold.
func (p *Provider) Level() level.Level {
	return p.router.Level()
}

// Severity returns the name of the global threshold.
func (p *Provider) Severity() string {
	return p.router.Level().String()
}

// SetFormat compiles and installs a new line template.
func (p *Provider) SetFormat(source string) error {
	tmpl, err := format.Compile(source)
	if err != nil {
		return err
	}
	if err := p.writer.SetTemplate(tmpl); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.format = source
	return nil
}

// Format returns the line template source.
func (p *Provider) Format() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format
}

// SetDirectory changes where future records are written.
func (p *Provider) SetDirectory(dir string) error {
	return p.writer.SetDirectory(dir)
}

// Directory returns the absolute log directory.
func (p *Provider) Directory() string {
	return p.writer.Directory()
}

// SetFilename changes the base name of future log files.
func (p *Provider) SetFilename(name string) error {
	return p.writer.SetFilename(name)
}

// Filename returns the base name of the log files.
func (p *Provider) Filename() string {
	return p.writer.Filename()
}

// SetFiles changes how many dated files are kept, from the next write on.
func (p *Provider) SetFiles(n int) error {
	return p.writer.SetFiles(n)
}

// Files returns the retention count.
func (p *Provider) Files() int {
	return p.writer.Files()
}

// SetCompress toggles gzip archiving of pruned files.
func (p *Provider) SetCompress(compress bool) {
	p.writer.SetCompress(compress)
}

// Compress reports whether pruned files are archived.
func (p *Provider) Compress() bool {
	return p.writer.Compress()
}

// SetDebugTopics installs the topic patterns allowed to emit DEBUG records.
// Selected topics pass a global threshold above DEBUG; DEBUG records from
// any other topic are dropped. Patterns are globs separated by commas or spaces; a
// leading "-" excludes matching topics. An empty string clears the list.
func (p *Provider) SetDebugTopics(patterns string) error {
	d, err := parseDebugTopics(patterns)
	if err != nil {
		return err
	}
	if d.source == "" {
		d = nil
	}
	p.debug.Store(d)
	return nil
}

// DebugTopics returns the installed debug topic patterns.
func (p *Provider) DebugTopics() string {
	return p.debug.Load().String()
}

// SetConsole turns the console mirror on or off. The mirror is a level-less
// subscription on every topic.
func (p *Provider) SetConsole(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch {
	case enabled && p.consoleToken == "":
		// Subscribe only fails on a nil handler or empty topic.
		p.consoleToken, _ = p.router.Subscribe(router.AllTopics, p.sink.Handler())
	case !enabled && p.consoleToken != "":
		p.router.Unsubscribe(p.consoleToken)
		p.consoleToken = ""
	}
}

// Console reports whether the console mirror is on.
func (p *Provider) Console() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.consoleToken != ""
}

// LatestLogFile returns the path of the newest log file, or "" if none has
// been written yet.
func (p *Provider) LatestLogFile() (string, error) {
	return p.writer.LatestFile()
}
