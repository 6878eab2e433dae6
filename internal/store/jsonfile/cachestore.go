// Package jsonfile provides a JSON file-backed cache store shared safely
// between concurrent pulse processes.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/hay-kot/pulse/internal/core/cache"
)

// errCorrupt marks a cache file that exists but cannot be parsed.
var errCorrupt = errors.New("corrupt cache file")

// CacheFile is the root JSON structure stored on disk.
type CacheFile struct {
	Entries map[string]Entry `json:"entries"`
}

// Entry is a single cached value.
type Entry struct {
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (e Entry) expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// CacheStore implements cache.Store using a JSON file for persistence.
type CacheStore struct {
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// NewCacheStore creates a new JSON file cache store at the given path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path, now: time.Now}
}

// Path returns the backing file path.
func (s *CacheStore) Path() string {
	return s.path
}

// lockPath returns the path to the lock file.
func (s *CacheStore) lockPath() string {
	return s.path + ".lock"
}

// withSharedLock executes fn while holding a shared (read) file lock.
// Multiple processes can hold shared locks simultaneously.
func (s *CacheStore) withSharedLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_SH, fn)
}

// withExclusiveLock executes fn while holding an exclusive (write) file lock.
func (s *CacheStore) withExclusiveLock(fn func() error) error {
	return s.withFileLock(syscall.LOCK_EX, fn)
}

// withFileLock acquires a file lock, executes fn, then releases the lock.
func (s *CacheStore) withFileLock(lockType int, fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	if err := syscall.Flock(int(f.Fd()), lockType); err != nil {
		return fmt.Errorf("acquire file lock: %w", err)
	}
	defer syscall.Flock(int(f.Fd()), syscall.LOCK_UN) //nolint:errcheck

	return fn()
}

// Get returns the value for key. Returns cache.ErrMiss if the key is absent
// or expired. Expired entries are left for Prune.
func (s *CacheStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		entry Entry
		found bool
	)

	err := s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		entry, found = file.Entries[key]
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !found || entry.expired(s.now()) {
		return nil, cache.ErrMiss
	}

	return entry.Value, nil
}

// Set creates or replaces an entry. A ttl of zero or less never expires.
// Expired entries are dropped on every write, and a corrupt file is replaced.
func (s *CacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		switch {
		case errors.Is(err, errCorrupt):
			file = CacheFile{Entries: make(map[string]Entry)}
		case err != nil:
			return err
		}

		now := s.now()
		for k, e := range file.Entries {
			if e.expired(now) {
				delete(file.Entries, k)
			}
		}

		entry := Entry{Value: value, CreatedAt: now}
		if ttl > 0 {
			entry.ExpiresAt = now.Add(ttl)
		}

		file.Entries[key] = entry
		return s.save(file)
	})
}

// Delete removes an entry by key. Deleting a missing key is not an error.
func (s *CacheStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		if _, ok := file.Entries[key]; !ok {
			return nil
		}

		delete(file.Entries, key)
		return s.save(file)
	})
}

// Prune removes expired entries and returns how many were removed.
func (s *CacheStore) Prune(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	err := s.withExclusiveLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		now := s.now()
		for key, entry := range file.Entries {
			if entry.expired(now) {
				delete(file.Entries, key)
				removed++
			}
		}

		if removed == 0 {
			return nil
		}
		return s.save(file)
	})
	if err != nil {
		return 0, err
	}

	return removed, nil
}

// Clear removes every entry.
func (s *CacheStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withExclusiveLock(func() error {
		return s.save(CacheFile{Entries: make(map[string]Entry)})
	})
}

// Stats reports the number of live and expired entries.
func (s *CacheStore) Stats(ctx context.Context) (live, expired int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.withSharedLock(func() error {
		file, err := s.load()
		if err != nil {
			return err
		}

		now := s.now()
		for _, entry := range file.Entries {
			if entry.expired(now) {
				expired++
			} else {
				live++
			}
		}
		return nil
	})

	return live, expired, err
}

// load reads the cache file from disk.
// Returns empty CacheFile if file doesn't exist.
func (s *CacheStore) load() (CacheFile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return CacheFile{Entries: make(map[string]Entry)}, nil
		}
		return CacheFile{}, err
	}

	if len(data) == 0 {
		return CacheFile{Entries: make(map[string]Entry)}, nil
	}

	var file CacheFile
	if err := json.Unmarshal(data, &file); err != nil {
		return CacheFile{}, fmt.Errorf("parse %s: %w: %w", s.path, errCorrupt, err)
	}

	if file.Entries == nil {
		file.Entries = make(map[string]Entry)
	}

	return file, nil
}

// save writes the cache file to disk atomically.
func (s *CacheStore) save(file CacheFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := json.Marshal(file)
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp) // best effort cleanup
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

var _ cache.Store = (*CacheStore)(nil)
