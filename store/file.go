package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/etnz/pnl"
)

// FileStore implements Store on top of a JSONL file, one transfer per line.
// New transfers are appended to the end of the file.
type FileStore struct {
	path string

	mu   sync.Mutex
	raws []pnl.RawTransfer
	seen map[key]struct{}
}

// NewFileStore opens the store at path, reading its current content. A
// missing file is an empty store, it is created on the first Append.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, seen: make(map[key]struct{})}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open %q: %w", path, err)
	}
	defer f.Close()

	raws, err := pnl.DecodeRawTransfers(f)
	if err != nil {
		return nil, fmt.Errorf("cannot read %q: %w", path, err)
	}
	for _, r := range raws {
		if _, dup := s.seen[keyOf(r)]; dup {
			continue
		}
		s.seen[keyOf(r)] = struct{}{}
		s.raws = append(s.raws, r)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Append(_ context.Context, raws ...pnl.RawTransfer) (added int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []pnl.RawTransfer
	batch := make(map[key]struct{})
	for _, r := range raws {
		k := keyOf(r)
		if _, dup := s.seen[k]; dup {
			continue
		}
		if _, dup := batch[k]; dup {
			continue
		}
		batch[k] = struct{}{}
		fresh = append(fresh, r)
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, fmt.Errorf("cannot open %q for writing: %w", s.path, err)
	}
	w := bufio.NewWriter(f)
	for _, r := range fresh {
		if err := pnl.EncodeRawTransfer(w, r); err != nil {
			f.Close()
			return 0, err
		}
	}
	if err := errors.Join(w.Flush(), f.Close()); err != nil {
		return 0, fmt.Errorf("cannot write %q: %w", s.path, err)
	}

	// the file is the source of truth, memory is updated once it is written.
	for _, r := range fresh {
		s.seen[keyOf(r)] = struct{}{}
		s.raws = append(s.raws, r)
	}
	return len(fresh), nil
}

func (s *FileStore) List(_ context.Context, since time.Time) ([]pnl.RawTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterSince(s.raws, since), nil
}
