// Package dirlock serializes writers that share a log directory.
//
// Every logging.Writer in the process takes the lock for its target
// directory around its append-and-prune sequence, so two writers (possibly
// owned by different providers) never prune a file the other is appending
// to, and their lines never interleave below the OS append granularity.
// The registry only coordinates goroutines within one process.
package dirlock

import (
	"path/filepath"
	"sync"
)

// Registry hands out one mutex per directory.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until dir is held and returns the function that releases it.
func (r *Registry) Lock(dir string) (unlock func()) {
	m := r.mutex(Key(dir))
	m.Lock()
	return m.Unlock
}

func (r *Registry) mutex(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	return m
}

// Key normalizes dir so that different spellings of one directory share a
// lock.
func Key(dir string) string {
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return filepath.Clean(dir)
}

var process = NewRegistry()

// Lock takes the process-wide lock for dir.
func Lock(dir string) (unlock func()) {
	return process.Lock(dir)
}
