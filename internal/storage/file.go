package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileKV keeps all keys in a single JSON object on disk. Every write rewrites
// the file through a temp file and rename.
type FileKV struct {
	path   string
	values map[string]string
	mu     sync.Mutex
}

// OpenFileKV loads the store at path, creating parent directories as needed.
// A missing file is treated as an empty store.
func OpenFileKV(path string) (*FileKV, error) {
	if path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	kv := &FileKV{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return kv, nil
	case err != nil:
		return nil, fmt.Errorf("read store: %w", err)
	}
	if len(data) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(data, &kv.values); err != nil {
		return nil, fmt.Errorf("decode store %s: %w", path, err)
	}
	return kv, nil
}

func (f *FileKV) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *FileKV) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	prev, had := f.values[key]
	f.values[key] = value
	if err := f.flush(); err != nil {
		if had {
			f.values[key] = prev
		} else {
			delete(f.values, key)
		}
		return err
	}
	return nil
}

func (f *FileKV) flush() error {
	data, err := json.MarshalIndent(f.values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".kv-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
