package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/Iron-Ham/pkglog/internal/format"
	"github.com/Iron-Ham/pkglog/internal/logging"
)

// follower streams records appended to the dated log files of one base name.
// New day files are picked up as they are created.
type follower struct {
	dir      string
	filename string
	tmpl     *format.Template
	emit     func(logging.Entry) error

	offsets map[string]int64
	partial map[string]string
}

func newFollower(dir, filename string, tmpl *format.Template, emit func(logging.Entry) error) *follower {
	return &follower{
		dir:      dir,
		filename: filename,
		tmpl:     tmpl,
		emit:     emit,
		offsets:  make(map[string]int64),
		partial:  make(map[string]string),
	}
}

// run watches the directory until ctx is done. Existing content is skipped.
// ready, if non-nil, is called once the watch is in place.
func (f *follower) run(ctx context.Context, ready func()) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(f.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", f.dir, err)
	}
	if err := f.prime(); err != nil {
		return err
	}
	if ready != nil {
		ready()
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, isLog := logging.ParseFileName(f.filename, filepath.Base(event.Name)); !isLog {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				if err := f.drain(event.Name); err != nil {
					return err
				}
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(f.offsets, event.Name)
				delete(f.partial, event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch error: %w", err)
		}
	}
}

// prime records the current size of every existing log file.
func (f *follower) prime() error {
	files, err := logging.ListFiles(f.dir, f.filename)
	if err != nil {
		return err
	}
	for _, lf := range files {
		info, err := os.Stat(lf.Path)
		if err != nil {
			continue
		}
		f.offsets[filepath.Join(f.dir, lf.Name)] = info.Size()
	}
	return nil
}

// drain emits the complete lines appended to path since the last call.
func (f *follower) drain(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	offset := f.offsets[path]
	if info.Size() < offset {
		// Truncated or replaced
		offset = 0
		delete(f.partial, path)
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}
	f.offsets[path] = offset + int64(len(data))

	text := f.partial[path] + string(data)
	cut := strings.LastIndexByte(text, '\n')
	if cut < 0 {
		f.partial[path] = text
		return nil
	}
	f.partial[path] = text[cut+1:]

	entries, err := logging.ParseEntries(strings.NewReader(text[:cut+1]), f.tmpl)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := f.emit(e); err != nil {
			return err
		}
	}
	return nil
}
