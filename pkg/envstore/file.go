package envstore

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"sync"
)

// File persists one JSON file per tenant under a directory. Good enough for a
// single-node engine; callers needing durability across hosts bring their own
// Store.
type File struct {
	dir string
	mu  sync.Mutex
}

var _ Store = (*File)(nil)

func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("env store directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create env store directory %q: %w", dir, err)
	}
	return &File{dir: dir}, nil
}

func (f *File) Get(ctx context.Context, userID string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read(userID)
}

func (f *File) Put(ctx context.Context, userID string, vars map[string]string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stored, err := f.read(userID)
	if err != nil {
		return false, err
	}
	if maps.Equal(stored, vars) {
		return false, nil
	}

	data, err := json.MarshalIndent(vars, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to encode env map for %q: %w", userID, err)
	}
	if err := os.WriteFile(f.path(userID), data, 0o600); err != nil {
		return false, fmt.Errorf("failed to write env map for %q: %w", userID, err)
	}
	return true, nil
}

func (f *File) Delete(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path(userID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete env map for %q: %w", userID, err)
	}
	return nil
}

func (f *File) read(userID string) (map[string]string, error) {
	data, err := os.ReadFile(f.path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read env map for %q: %w", userID, err)
	}

	vars := map[string]string{}
	if err := json.Unmarshal(data, &vars); err != nil {
		return nil, fmt.Errorf("env map for %q is corrupt: %w", userID, err)
	}
	return vars, nil
}

// path escapes the tenant id so it is always a single safe file name.
func (f *File) path(userID string) string {
	return filepath.Join(f.dir, url.PathEscape(userID)+".json")
}
