package kv

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultNamespace is the file name stem used when none is given.
const DefaultNamespace = "devent"

// FileStore keeps a whole namespace in one JSON object file. Every write
// replaces the file through a rename, so a reader never sees a half-written
// namespace.
type FileStore struct {
	mu       sync.Mutex
	path     string
	quota    int
	lastSeen time.Time
}

// NewFileStore creates a FileStore for namespace inside dataDir. A leading
// "~/" is expanded to the user's home directory and the directory is created
// if needed.
func NewFileStore(dataDir, namespace string, quota int) (*FileStore, error) {
	if strings.HasPrefix(dataDir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, dataDir[2:])
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	if namespace == "" {
		namespace = DefaultNamespace
	}

	return &FileStore{
		path:  filepath.Join(dataDir, namespace+".json"),
		quota: quota,
	}, nil
}

// Path returns the namespace file location.
func (f *FileStore) Path() string {
	return f.path
}

// load reads the namespace file. A missing file is an empty namespace.
func (f *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading namespace: %w", err)
	}

	if info, statErr := os.Stat(f.path); statErr == nil {
		f.lastSeen = info.ModTime()
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parsing namespace: %w", err)
	}
	return values, nil
}

// save writes the namespace to a temp file and renames it into place.
func (f *FileStore) save(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding namespace: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing namespace: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing namespace: %w", err)
	}

	if info, err := os.Stat(f.path); err == nil {
		f.lastSeen = info.ModTime()
		// The namespace is already saved; a missing marker only disables
		// change detection for stores opened later.
		_ = os.WriteFile(f.markerPath(), []byte(info.ModTime().UTC().Format(time.RFC3339Nano)), 0644)
	}
	return nil
}

// markerPath is where save records the modification time of its last write.
func (f *FileStore) markerPath() string {
	return f.path + ".lastwrite"
}

// lastWrite returns the modification time recorded by the last FileStore
// that saved the namespace, or the zero time when none is recorded.
func (f *FileStore) lastWrite() time.Time {
	data, err := os.ReadFile(f.markerPath())
	if err != nil {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		return time.Time{}
	}
	return t
}

// Get returns the value stored under key.
func (f *FileStore) Get(key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set stores value under key.
func (f *FileStore) Set(key, value string) error {
	return f.SetMany(map[string]string{key: value})
}

// SetMany stores all values in a single file replacement.
func (f *FileStore) SetMany(updates map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if err := checkQuota(values, updates, f.quota); err != nil {
		return err
	}
	for k, v := range updates {
		values[k] = v
	}
	return f.save(values)
}

// Remove deletes key from the namespace.
func (f *FileStore) Remove(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

// Changed reports whether the namespace file was modified after this store
// last read or wrote it. A store that has not touched the file yet compares
// against the time the last FileStore wrote it, so edits made outside a
// FileStore are reported by freshly opened stores too.
func (f *FileStore) Changed() (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	info, err := os.Stat(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("checking namespace: %w", err)
	}
	seen := f.lastSeen
	if seen.IsZero() {
		seen = f.lastWrite()
	}
	if seen.IsZero() {
		return false, nil
	}
	return info.ModTime().After(seen), nil
}
