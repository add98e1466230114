package dictionary

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// File is a Guard backed by a newline-delimited corpus on disk, one
// candidate per line. The corpus is read eagerly; Reload re-reads it,
// keeping the previous corpus when the read fails.
type File struct {
	path string

	mu    sync.RWMutex
	words set
}

// NewFile loads the corpus at path. A missing or unreadable corpus is
// reported as ErrUnavailable so the host can pick its fail mode.
func NewFile(path string) (*File, error) {
	f := &File{path: path}
	words, err := f.read()
	if err != nil {
		return nil, err
	}
	f.words = words
	return f, nil
}

// IsWeak reports whether secret appears in the corpus.
func (f *File) IsWeak(_ context.Context, secret string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.words == nil {
		return false, fmt.Errorf("%w: %s", ErrUnavailable, f.path)
	}
	return f.words.contains(secret), nil
}

// Reload re-reads the corpus from disk. On failure the previously
// loaded corpus stays in force.
func (f *File) Reload() error {
	words, err := f.read()
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.words = words
	f.mu.Unlock()
	return nil
}

func (f *File) read() (set, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer file.Close()

	words, err := newSet(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return words, nil
}
