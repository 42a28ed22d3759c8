package logging

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/Iron-Ham/pkglog/internal/dirlock"
	"github.com/Iron-Ham/pkglog/internal/errors"
	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/record"
	"github.com/Iron-Ham/pkglog/internal/router"
)

// Retention bounds.
const (
	MinFiles = 1
	MaxFiles = 1000
)

// DefaultFiles is the retention used when none is configured.
const DefaultFiles = 10

// WriterConfig holds configuration for a Writer.
type WriterConfig struct {
	// Directory receives the log files. It is created, with parents, on
	// every write if missing. Relative paths are made absolute.
	Directory string
	// Filename is the base name of the log files: {Filename}.{date}.log.
	Filename string
	// Files is how many dated log files to keep, between MinFiles and MaxFiles.
	Files int
	// Compress gzips a file before it is pruned, leaving {name}.gz behind.
	// Archives are not counted against Files.
	Compress bool
}

// DefaultWriterConfig returns a WriterConfig with sensible defaults: a
// "logs" directory under the working directory named after the program.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		Directory: "logs",
		Filename:  record.Package().Name,
		Files:     DefaultFiles,
	}
}

// Writer appends records to one file per UTC date and keeps only the most
// recent files. It is safe for concurrent use; writers sharing a directory
// are serialized through dirlock.
type Writer struct {
	mu sync.RWMutex

	// Configuration
	dir      string
	filename string
	files    int
	compress bool
	tmpl     *format.Template
}

// NewWriter validates cfg and creates a Writer that renders lines with tmpl.
// A nil tmpl uses format.DefaultLine.
func NewWriter(cfg WriterConfig, tmpl *format.Template) (*Writer, error) {
	if tmpl == nil {
		tmpl = format.MustCompile(format.DefaultLine)
	}
	w := &Writer{tmpl: tmpl, compress: cfg.Compress}
	if err := w.SetDirectory(cfg.Directory); err != nil {
		return nil, err
	}
	if err := w.SetFilename(cfg.Filename); err != nil {
		return nil, err
	}
	if err := w.SetFiles(cfg.Files); err != nil {
		return nil, err
	}
	return w, nil
}

// Handler returns a router.Handler that writes each delivered record.
func (w *Writer) Handler() router.Handler {
	return w.WriteRecord
}

// WriteRecord renders rec, appends it to the file for the record's own date
// and then prunes the oldest files beyond the retention count.
func (w *Writer) WriteRecord(rec record.Record) error {
	w.mu.RLock()
	dir, filename, files, compress, tmpl := w.dir, w.filename, w.files, w.compress, w.tmpl
	w.mu.RUnlock()

	line := tmpl.Render(rec.Fields()) + record.LineEnding

	unlock := dirlock.Lock(dir)
	defer unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewIOError("mkdir", dir, err)
	}

	path := filepath.Join(dir, FileName(filename, rec.Date()))
	if err := appendLine(path, line); err != nil {
		return err
	}

	return prune(dir, filename, files, compress)
}

func appendLine(path, line string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewIOError("open", path, err)
	}

	_, werr := file.WriteString(line)
	cerr := file.Close()
	if werr != nil {
		return errors.NewIOError("append", path, werr)
	}
	if cerr != nil {
		return errors.NewIOError("close", path, cerr)
	}
	return nil
}

// prune removes the oldest dated files of filename in dir until at most keep
// remain. A file that is already gone counts as removed.
func prune(dir, filename string, keep int, compress bool) error {
	files, err := ListFiles(dir, filename)
	if err != nil {
		return err
	}
	if len(files) <= keep {
		return nil
	}

	var errs []error
	for _, f := range files[:len(files)-keep] {
		if compress {
			if err := compressFile(f.Path); err != nil {
				errs = append(errs, err)
				continue
			}
		}
		if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, errors.NewIOError("remove", f.Path, err))
		}
	}
	return errors.Join(errs...)
}

// compressFile writes a gzip copy of path to path.gz. The original is left
// for the caller to remove; a partial archive is cleaned up on failure.
func compressFile(path string) error {
	src, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.NewIOError("compress", path, err)
	}
	defer func() { _ = src.Close() }()

	gzPath := path + ".gz"
	dst, err := os.OpenFile(gzPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.NewIOError("compress", gzPath, err)
	}

	gz := gzip.NewWriter(dst)
	gz.Name = filepath.Base(path)
	_, err = io.Copy(gz, src)
	if cerr := gz.Close(); err == nil {
		err = cerr
	}
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(gzPath)
		return errors.NewIOError("compress", gzPath, err)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Configuration
// -----------------------------------------------------------------------------

// SetDirectory changes the target directory for future writes.
func (w *Writer) SetDirectory(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.NewValidationError("directory must not be empty").WithField("directory")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return errors.NewValidationError("cannot resolve directory").
			WithField("directory").WithValue(dir).WithCause(err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.dir = abs
	return nil
}

// Directory returns the absolute target directory.
func (w *Writer) Directory() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dir
}

// SetFilename changes the base file name for future writes.
func (w *Writer) SetFilename(name string) error {
	if err := ValidateFilename(name); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.filename = name
	return nil
}

// Filename returns the base file name.
func (w *Writer) Filename() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.filename
}

// SetFiles changes the retention count. It takes effect on the next write.
func (w *Writer) SetFiles(n int) error {
	if err := ValidateFiles(n); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.files = n
	return nil
}

// Files returns the retention count.
func (w *Writer) Files() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.files
}

// SetTemplate changes the line template for future writes.
func (w *Writer) SetTemplate(tmpl *format.Template) error {
	if tmpl == nil {
		return errors.NewValidationError("template must not be nil").WithField("format")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.tmpl = tmpl
	return nil
}

// Template returns the line template.
func (w *Writer) Template() *format.Template {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tmpl
}

// SetCompress toggles gzip archiving of pruned files.
func (w *Writer) SetCompress(compress bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.compress = compress
}

// Compress reports whether pruned files are archived.
func (w *Writer) Compress() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.compress
}

// LatestFile returns the path of the newest log file, or "" if there is none.
func (w *Writer) LatestFile() (string, error) {
	return LatestFile(w.Directory(), w.Filename())
}

// ValidateFiles checks a retention count.
func ValidateFiles(n int) error {
	if n < MinFiles || n > MaxFiles {
		return errors.NewValidationError("must be between 1 and 1000").WithField("files").WithValue(n)
	}
	return nil
}

// ValidateFilename checks a log file base name.
func ValidateFilename(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return errors.NewValidationError("filename must not be empty").WithField("filename")
	case name == "." || name == "..":
		return errors.NewValidationError("filename must name a file").WithField("filename").WithValue(name)
	case strings.ContainsAny(name, `/\`):
		return errors.NewValidationError("filename must not contain a path separator").
			WithField("filename").WithValue(name)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Directory listing
// -----------------------------------------------------------------------------

// LogFile is one dated log file on disk.
type LogFile struct {
	Name string
	Path string
	Date time.Time
}

// FileName returns the log file name for a base name and a date.
func FileName(filename, date string) string {
	return filename + "." + date + ".log"
}

// ParseFileName reports whether name is a dated log file of filename and
// returns its date.
func ParseFileName(filename, name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, filename+".")
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, ".log")
	if !ok {
		return time.Time{}, false
	}
	date, err := time.Parse(record.DateLayout, stamp)
	if err != nil {
		return time.Time{}, false
	}
	return date, true
}

// ListFiles returns the dated log files of filename in dir, oldest first.
// Only names of the form {filename}.{YYYY-MM-DD}.log are included, ordered by
// the parsed date. A missing directory yields no files.
func ListFiles(dir, filename string) ([]LogFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.NewIOError("readdir", dir, err)
	}

	var files []LogFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			continue
		}
		date, ok := ParseFileName(filename, name)
		if !ok {
			continue
		}
		files = append(files, LogFile{
			Name: name,
			Path: filepath.Join(dir, name),
			Date: date,
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if !files[i].Date.Equal(files[j].Date) {
			return files[i].Date.Before(files[j].Date)
		}
		return files[i].Name < files[j].Name
	})
	return files, nil
}

// LatestFile returns the path of the newest dated log file of filename in
// dir, or "" if there is none.
func LatestFile(dir, filename string) (string, error) {
	files, err := ListFiles(dir, filename)
	if err != nil || len(files) == 0 {
		return "", err
	}
	return files[len(files)-1].Path, nil
}
