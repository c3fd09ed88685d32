package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Storage is a durable string-keyed blob store, the client-side analog of
// the browser's localStorage. Implementations must tolerate concurrent use.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}

// File persists all keys as a single JSON object on disk. Every mutation
// rewrites the file atomically so the durable copy always mirrors memory.
type File struct {
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// OpenFile loads the state file at path, creating parent directories as
// needed. An unreadable or unparsable file is discarded and replaced on the
// next write; it never fails startup.
func OpenFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("storage: create state dir: %w", err)
	}

	f := &File{
		path: path,
		data: make(map[string]json.RawMessage),
	}

	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read state file: %w", err)
	}

	if err := json.Unmarshal(b, &f.data); err != nil {
		slog.Warn("storage: discarding corrupt state file", "path", path, "error", err)
		f.data = make(map[string]json.RawMessage)
	}

	return f, nil
}

func (f *File) Get(key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.data[key]
	return v, ok
}

func (f *File) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.data[key] = value
	return f.flush()
}

func (f *File) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.data[key]; !ok {
		return nil
	}

	delete(f.data, key)
	return f.flush()
}

// flush writes the whole map to a temp file and renames it into place.
// Caller must hold f.mu.
func (f *File) flush() error {
	b, err := json.MarshalIndent(f.data, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal state: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return fmt.Errorf("storage: write state file: %w", err)
	}

	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("storage: replace state file: %w", err)
	}

	return nil
}

// Memory is an in-process Storage used by tests.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	return v, ok
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}
