package services

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

const syncStateKey = "sync_state"

// SyncStateStore persists the sync bookkeeping so the unchanged-hash
// gate and the last-known remote stamp survive process restarts. The
// scheduler and the entry sync write different fields, so every write
// is a read-modify-write under the lock.
type SyncStateStore struct {
	mu    sync.Mutex
	local repositories.LocalStore
}

func NewSyncStateStore(local repositories.LocalStore) *SyncStateStore {
	return &SyncStateStore{local: local}
}

// Load returns the persisted state, zero-valued when absent or
// unreadable.
func (s *SyncStateStore) Load() models.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *SyncStateStore) load() models.SyncState {
	data, ok := s.local.Get(syncStateKey)
	if !ok {
		return models.SyncState{}
	}
	var state models.SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return models.SyncState{}
	}
	return state
}

// Update applies a mutation to the persisted state atomically.
func (s *SyncStateStore) Update(apply func(*models.SyncState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load()
	apply(&state)

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	if err := s.local.Set(syncStateKey, data); err != nil {
		return fmt.Errorf("failed to save sync state: %w", err)
	}
	return nil
}
