package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 20 * time.Millisecond

var validKey = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileKV stores each key as <dir>/<key>.json. Mutations hold an exclusive
// flock on <dir>/.lock and replace files by rename, so readers never see a
// partially written value.
type FileKV struct {
	dir string

	// mu serializes goroutines sharing the Flock handle; lock excludes
	// other processes.
	mu   sync.Mutex
	lock *flock.Flock
}

// OpenFile prepares dir for use as a FileKV.
func OpenFile(dir string) (*FileKV, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileKV{dir: dir, lock: flock.New(filepath.Join(dir, ".lock"))}, nil
}

// Path returns the data directory.
func (f *FileKV) Path() string {
	return f.dir
}

// SizeBytes sums the sizes of the stored values.
func (f *FileKV) SizeBytes() int64 {
	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return 0
	}
	var total int64
	for _, m := range matches {
		if info, err := os.Stat(m); err == nil {
			total += info.Size()
		}
	}
	return total
}

func (f *FileKV) path(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(f.dir, key+".json"), nil
}

// Get returns the stored value for key.
func (f *FileKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return nil, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lockShared(ctx); err != nil {
		return nil, false, err
	}
	defer f.lock.Unlock() //nolint:errcheck

	return readValue(p)
}

// Set replaces the value for key.
func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	return f.Update(ctx, key, func([]byte, bool) ([]byte, bool, error) {
		return value, true, nil
	})
}

// GetMany reads keys under one shared lock.
func (f *FileKV) GetMany(ctx context.Context, keys []string) (map[string][]byte, error) {
	paths := make([]string, len(keys))
	for i, k := range keys {
		p, err := f.path(k)
		if err != nil {
			return nil, err
		}
		paths[i] = p
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lockShared(ctx); err != nil {
		return nil, err
	}
	defer f.lock.Unlock() //nolint:errcheck

	out := make(map[string][]byte, len(keys))
	for i, p := range paths {
		data, ok, err := readValue(p)
		if err != nil {
			return nil, err
		}
		if ok {
			out[keys[i]] = data
		}
	}
	return out, nil
}

// SetMany writes every key under one exclusive lock. Readers take the shared
// lock, so they observe either none or all of the new values.
func (f *FileKV) SetMany(ctx context.Context, values map[string][]byte) error {
	keys := sortedKeys(values)
	paths := make([]string, len(keys))
	for i, k := range keys {
		p, err := f.path(k)
		if err != nil {
			return err
		}
		paths[i] = p
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lockExclusive(ctx); err != nil {
		return err
	}
	defer f.lock.Unlock() //nolint:errcheck

	for i, p := range paths {
		if err := writeAtomic(p, values[keys[i]]); err != nil {
			return err
		}
	}
	return nil
}

// Update runs fn under the exclusive lock.
func (f *FileKV) Update(ctx context.Context, key string, fn UpdateFunc) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lockExclusive(ctx); err != nil {
		return err
	}
	defer f.lock.Unlock() //nolint:errcheck

	current, ok, err := readValue(p)
	if err != nil {
		return err
	}

	next, write, err := fn(current, ok)
	if err != nil || !write {
		return err
	}

	return writeAtomic(p, next)
}

// Close releases the lock file handle.
func (f *FileKV) Close() error {
	return f.lock.Close()
}

func (f *FileKV) lockExclusive(ctx context.Context) error {
	if _, err := f.lock.TryLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	return nil
}

func (f *FileKV) lockShared(ctx context.Context) error {
	if _, err := f.lock.TryRLockContext(ctx, lockRetryDelay); err != nil {
		return fmt.Errorf("acquire read lock: %w", err)
	}
	return nil
}

func readValue(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	return data, true, nil
}

// writeAtomic writes data to a temp file in the same directory and renames
// it over path.
func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
