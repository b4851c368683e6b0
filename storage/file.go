package storage

import (
	"encoding/json"
	"os"
	"sync"
)

// FileKV is a KV backed by a single JSON file. Every write rewrites the whole
// file; access is single-writer in practice (one TUI process) so no file
// locking is attempted.
type FileKV struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// NewFileKV opens (or lazily creates) the JSON file at path.
func NewFileKV(path string) *FileKV {
	s := &FileKV{path: path, data: make(map[string]string)}

	raw, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	// Unreadable or corrupt files start fresh rather than failing startup.
	_ = json.Unmarshal(raw, &s.data)
	return s
}

func (s *FileKV) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *FileKV) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

func (s *FileKV) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

func (s *FileKV) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0644)
}
