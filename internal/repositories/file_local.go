package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/adrg/xdg"
)

// FileLocalStore persists a flat key-value map as one JSON file. It
// backs the client-side timer draft and cached entries log so they
// survive process restarts.
type FileLocalStore struct {
	mu     sync.Mutex
	path   string
	values map[string]json.RawMessage
}

// NewFileLocalStore loads (or starts) the store at path. A missing
// file is an empty store; a corrupt file is replaced on the next Set.
func NewFileLocalStore(path string) (*FileLocalStore, error) {
	s := &FileLocalStore{path: path, values: make(map[string]json.RawMessage)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read local store: %w", err)
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		s.values = make(map[string]json.RawMessage)
	}
	return s, nil
}

// NewDefaultFileLocalStore places the store in the XDG data directory.
func NewDefaultFileLocalStore() (*FileLocalStore, error) {
	path, err := xdg.DataFile("tickstream/local_state.json")
	if err != nil {
		return nil, fmt.Errorf("failed to resolve local store path: %w", err)
	}
	return NewFileLocalStore(path)
}

func (s *FileLocalStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true
}

func (s *FileLocalStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(value))
	copy(stored, value)
	s.values[key] = stored
	return s.flush()
}

func (s *FileLocalStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return s.flush()
}

func (s *FileLocalStore) flush() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal local store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create local store directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write local store: %w", err)
	}
	return nil
}
