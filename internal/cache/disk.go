package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

const (
	entriesFile = "searchspace.json"
	versionFile = "searchspace.version"
	lockFile    = "searchspace.lock"
)

// FileStore keeps the search-space map in one JSON file next to a version
// file holding a timestamp token. Every commit runs read-merge-write while
// holding both an in-process mutex and a lock file shared with other processes.
type FileStore struct {
	dir        string
	mu         sync.Mutex
	lockWait   time.Duration // Poll interval while another process holds the lock
	staleAfter time.Duration // Lock files older than this are considered abandoned
}

// NewFileStore creates a file store rooted at dir
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:        dir,
		lockWait:   50 * time.Millisecond,
		staleAfter: 2 * time.Minute,
	}
}

// Load reads the map and its version. A missing store is empty.
func (s *FileStore) Load(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

// Commit merges changes over the stored map and writes a new version.
// Changes win over stored values for the same key.
func (s *FileStore) Commit(ctx context.Context, base string, changes map[string][]byte) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return Snapshot{}, false, err
	}
	defer unlock()

	current, err := s.read()
	if err != nil {
		return Snapshot{}, false, err
	}
	conflict := current.Version != base

	merged := mergeEntries(current.Entries, changes)
	version := newVersion(current.Version)

	data, err := json.Marshal(merged)
	if err != nil {
		return Snapshot{}, false, eris.Wrap(err, "marshal search space")
	}
	if err := writeAtomic(filepath.Join(s.dir, entriesFile), data); err != nil {
		return Snapshot{}, false, err
	}
	if err := writeAtomic(filepath.Join(s.dir, versionFile), []byte(version)); err != nil {
		return Snapshot{}, false, err
	}

	return Snapshot{Entries: merged, Version: version}, conflict, nil
}

// Reset removes the stored map and version
func (s *FileStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	for _, name := range []string{entriesFile, versionFile} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return eris.Wrapf(err, "remove %s", name)
		}
	}
	return nil
}

// Close releases nothing; the store holds no open handles
func (s *FileStore) Close() error {
	return nil
}

// read loads the current snapshot; callers hold s.mu
func (s *FileStore) read() (Snapshot, error) {
	snap := Snapshot{Entries: map[string][]byte{}}

	version, err := os.ReadFile(filepath.Join(s.dir, versionFile))
	switch {
	case err == nil:
		snap.Version = string(version)
	case !errors.Is(err, os.ErrNotExist):
		return Snapshot{}, eris.Wrap(err, "read cache version")
	}

	data, err := os.ReadFile(filepath.Join(s.dir, entriesFile))
	if errors.Is(err, os.ErrNotExist) {
		return snap, nil
	}
	if err != nil {
		return Snapshot{}, eris.Wrap(err, "read search space")
	}
	if err := json.Unmarshal(data, &snap.Entries); err != nil {
		return Snapshot{}, eris.Wrap(err, "decode search space")
	}
	return snap, nil
}

// lock creates the lock file exclusively, waiting while another process holds it
func (s *FileStore) lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, eris.Wrap(err, "create cache dir")
	}
	path := filepath.Join(s.dir, lockFile)

	for {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, eris.Wrap(err, "create lock file")
		}

		if info, statErr := os.Stat(path); statErr == nil && time.Since(info.ModTime()) > s.staleAfter {
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), "wait for cache lock")
		case <-time.After(s.lockWait):
		}
	}
}

// newVersion returns a timestamp token that differs from prev
func newVersion(prev string) string {
	v := time.Now().UTC().Format(time.RFC3339Nano)
	if v == prev {
		v += "+1"
	}
	return v
}

// writeAtomic writes data to a temp file and renames it into place
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp*")
	if err != nil {
		return eris.Wrap(err, "create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "write temp file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrap(err, "close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return eris.Wrapf(err, "rename into %s", filepath.Base(path))
	}
	return nil
}
