package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File persists entries as a single JSON object. Every write rewrites the file through a
// temporary file and a rename so a crash never leaves a half written document.
type File struct {
	mu     sync.RWMutex
	path   string
	values map[string]string
}

var _ Storage = (*File)(nil)

func NewFile(path string) (*File, error) {
	f := &File{path: path, values: make(map[string]string)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("[storage.NewFile] read %s: %w", path, err)
	}
	if len(data) == 0 {
		return f, nil
	}
	if err := json.Unmarshal(data, &f.values); err != nil {
		return nil, fmt.Errorf("[storage.NewFile] %s: %w", path, ErrCorrupt)
	}
	return f, nil
}

func (f *File) Get(key string) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	v, ok := f.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (f *File) Set(key, value string) error {
	return f.SetMany(map[string]string{key: value})
}

func (f *File) SetMany(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.copyValues()
	for k, v := range values {
		next[k] = v
	}
	return f.commit(next)
}

func (f *File) Remove(keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.copyValues()
	changed := false
	for _, k := range keys {
		if _, ok := next[k]; ok {
			delete(next, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return f.commit(next)
}

func (f *File) copyValues() map[string]string {
	next := make(map[string]string, len(f.values))
	for k, v := range f.values {
		next[k] = v
	}
	return next
}

// commit writes next to disk and only then swaps it in, so a failed write leaves memory untouched.
func (f *File) commit(next map[string]string) error {
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return fmt.Errorf("[File.commit] marshal: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("[File.commit] mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("[File.commit] temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[File.commit] write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[File.commit] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("[File.commit] rename: %w", err)
	}

	f.values = next
	return nil
}
