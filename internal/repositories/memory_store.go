package repositories

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRecordStore is an in-process RecordStore used by tests and by
// the single-device, no-cloud mode.
type MemoryRecordStore struct {
	mu   sync.Mutex
	docs map[string][]byte
	ids  map[string]string
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		docs: make(map[string][]byte),
		ids:  make(map[string]string),
	}
}

func (s *MemoryRecordStore) Find(_ context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[name]
	if !ok {
		return "", ErrNotFound
	}
	return id, nil
}

func (s *MemoryRecordStore) Read(_ context.Context, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[name]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func (s *MemoryRecordStore) Write(_ context.Context, name string, doc []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.ids[name]
	if !ok {
		id = uuid.New().String()
		s.ids[name] = id
	}
	stored := make([]byte, len(doc))
	copy(stored, doc)
	s.docs[name] = stored
	return id, nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[name]
	delete(s.docs, name)
	delete(s.ids, name)
	return ok, nil
}

func (s *MemoryRecordStore) List(_ context.Context) ([]RecordInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var records []RecordInfo
	for name := range s.docs {
		records = append(records, RecordInfo{Name: name})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

// Clear empties the store. For tests.
func (s *MemoryRecordStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = make(map[string][]byte)
	s.ids = make(map[string]string)
}
