package client

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tickstream/tickstream/internal/models"
	"github.com/tickstream/tickstream/internal/repositories"
)

const draftLocalKey = "timer_draft"

// DraftStore persists the in-progress timer draft so it survives
// process restarts.
type DraftStore struct {
	local repositories.LocalStore
	now   func() time.Time
}

func NewDraftStore(local repositories.LocalStore) *DraftStore {
	return &DraftStore{local: local, now: time.Now}
}

func (d *DraftStore) Save(draft models.TimerDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal timer draft: %w", err)
	}
	if err := d.local.Set(draftLocalKey, data); err != nil {
		return fmt.Errorf("failed to save timer draft: %w", err)
	}
	return nil
}

// Load rehydrates the draft. The persisted ElapsedSeconds is advisory
// only and never trusted: it is recomputed from the wall-clock
// distance to ActiveEntry.StartTime.
func (d *DraftStore) Load() models.TimerDraft {
	data, ok := d.local.Get(draftLocalKey)
	if !ok {
		return models.TimerDraft{}
	}

	var draft models.TimerDraft
	if err := json.Unmarshal(data, &draft); err != nil {
		return models.TimerDraft{}
	}

	if draft.IsRunning && draft.ActiveEntry != nil {
		elapsed := int64(d.now().Sub(draft.ActiveEntry.StartTime).Seconds())
		if elapsed < 0 {
			elapsed = 0
		}
		draft.ElapsedSeconds = elapsed
	} else {
		draft.ElapsedSeconds = 0
	}
	return draft
}

func (d *DraftStore) Clear() error {
	if err := d.local.Delete(draftLocalKey); err != nil {
		return fmt.Errorf("failed to clear timer draft: %w", err)
	}
	return nil
}
