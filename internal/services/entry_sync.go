package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

const (
	entriesDocName  = "time_entries.json"
	entriesLocalKey = "time_entries"
)

// EntrySyncService moves the completed-entries log document between
// the local store and the remote record store. Reconciliation is
// append-only: historical entries are never rewritten, only missing
// ones added.
type EntrySyncService struct {
	local repositories.LocalStore
	store repositories.RecordStore
	state *SyncStateStore
	now   func() time.Time
}

// NewEntrySyncService builds the service. state may be nil; when set,
// the remote document stamp observed on each pass is recorded there.
func NewEntrySyncService(local repositories.LocalStore, store repositories.RecordStore, state *SyncStateStore) *EntrySyncService {
	return &EntrySyncService{local: local, store: store, state: state, now: time.Now}
}

// AppendEntry adds a finalized entry to the local log and stamps it.
// The caller schedules a sync afterwards.
func (s *EntrySyncService) AppendEntry(entry models.TimeEntry) error {
	doc, _ := s.loadLocal()
	doc.TimeEntries = append(doc.TimeEntries, entry)
	doc.UpdatedAt = s.now().UTC()
	return s.saveLocal(doc)
}

// LocalSnapshot projects the local log for content hashing.
func (s *EntrySyncService) LocalSnapshot() Snapshot {
	doc, _ := s.loadLocal()
	return Snapshot{TimeEntries: doc.TimeEntries}
}

// Sync performs one reconciliation pass. DirectionAuto lets the
// timestamp comparison pick the direction; a forced direction skips
// the comparison.
func (s *EntrySyncService) Sync(ctx context.Context, direction SyncDirection) error {
	localDoc, hasLocal := s.loadLocal()
	remoteDoc, hasRemote, err := s.loadRemote(ctx)
	if err != nil {
		return err
	}

	if hasRemote && s.state != nil {
		stamp := remoteDoc.UpdatedAt
		if err := s.state.Update(func(st *models.SyncState) {
			st.LastKnownRemoteUpdatedAt = &stamp
		}); err != nil {
			log.Printf("Failed to record remote stamp: %v", err)
		}
	}

	if direction == DirectionAuto {
		var localAt, remoteAt *time.Time
		if hasLocal {
			localAt = &localDoc.UpdatedAt
		}
		if hasRemote {
			remoteAt = &remoteDoc.UpdatedAt
		}
		switch CompareTimestamps(localAt, remoteAt).Action {
		case ActionNone:
			return nil
		case ActionUpload:
			direction = DirectionUpload
		case ActionDownload:
			direction = DirectionDownload
		}
	}

	switch direction {
	case DirectionUpload:
		return s.upload(ctx, localDoc)
	case DirectionDownload:
		if !hasRemote {
			return nil
		}
		return s.merge(localDoc, remoteDoc)
	}
	return nil
}

func (s *EntrySyncService) upload(ctx context.Context, doc models.TimeEntriesDocument) error {
	doc.UpdatedAt = s.now().UTC()

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal entries document: %w", err)
	}
	if _, err := s.store.Write(ctx, entriesDocName, data); err != nil {
		return fmt.Errorf("failed to write entries document: %w", err)
	}

	// Persist the stamp locally so the next comparison sees both sides
	// equal.
	return s.saveLocal(doc)
}

func (s *EntrySyncService) merge(localDoc, remoteDoc models.TimeEntriesDocument) error {
	known := make(map[string]bool, len(localDoc.TimeEntries))
	for _, e := range localDoc.TimeEntries {
		known[e.ID] = true
	}
	for _, e := range remoteDoc.TimeEntries {
		if !known[e.ID] {
			localDoc.TimeEntries = append(localDoc.TimeEntries, e)
		}
	}

	localDoc.UpdatedAt = remoteDoc.UpdatedAt
	return s.saveLocal(localDoc)
}

func (s *EntrySyncService) loadLocal() (models.TimeEntriesDocument, bool) {
	var doc models.TimeEntriesDocument
	data, ok := s.local.Get(entriesLocalKey)
	if !ok {
		return doc, false
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return models.TimeEntriesDocument{}, false
	}
	return doc, true
}

func (s *EntrySyncService) saveLocal(doc models.TimeEntriesDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal entries document: %w", err)
	}
	if err := s.local.Set(entriesLocalKey, data); err != nil {
		return fmt.Errorf("failed to save entries document: %w", err)
	}
	return nil
}

func (s *EntrySyncService) loadRemote(ctx context.Context) (models.TimeEntriesDocument, bool, error) {
	var doc models.TimeEntriesDocument

	data, err := s.store.Read(ctx, entriesDocName)
	if errors.Is(err, repositories.ErrNotFound) {
		return doc, false, nil
	}
	if err != nil {
		return doc, false, fmt.Errorf("failed to read entries document: %w", err)
	}

	if err := json.Unmarshal(data, &doc); err != nil {
		return doc, false, fmt.Errorf("failed to parse entries document: %w", err)
	}
	return doc, true, nil
}
