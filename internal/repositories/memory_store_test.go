package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordStore_WriteReadDelete(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	// Missing record
	_, err := store.Read(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Find(ctx, "missing.json")
	assert.ErrorIs(t, err, ErrNotFound)

	// Write then read back
	id, err := store.Write(ctx, "doc.json", []byte(`{"a":1}`))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	data, err := store.Read(ctx, "doc.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))

	// Overwrite keeps the id stable
	id2, err := store.Write(ctx, "doc.json", []byte(`{"a":2}`))
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	// Delete reports presence
	removed, err := store.Delete(ctx, "doc.json")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(ctx, "doc.json")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryRecordStore_ListIsSorted(t *testing.T) {
	store := NewMemoryRecordStore()
	ctx := context.Background()

	for _, name := range []string{"b.json", "a.json", "c.json"} {
		_, err := store.Write(ctx, name, []byte("{}"))
		require.NoError(t, err)
	}

	records, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "a.json", records[0].Name)
	assert.Equal(t, "b.json", records[1].Name)
	assert.Equal(t, "c.json", records[2].Name)
}

func TestFileLocalStore_SurvivesReload(t *testing.T) {
	path := t.TempDir() + "/local_state.json"

	store, err := NewFileLocalStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Set("draft", []byte(`{"isRunning":true}`)))

	// A fresh store over the same file sees the value.
	reloaded, err := NewFileLocalStore(path)
	require.NoError(t, err)

	value, ok := reloaded.Get("draft")
	require.True(t, ok)
	assert.JSONEq(t, `{"isRunning":true}`, string(value))

	require.NoError(t, reloaded.Delete("draft"))
	_, ok = reloaded.Get("draft")
	assert.False(t, ok)
}

func TestIDCache(t *testing.T) {
	cache := NewIDCache()

	_, ok := cache.Get("name")
	assert.False(t, ok)

	cache.Set("name", "id-1")
	id, ok := cache.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "id-1", id)

	cache.Forget("name")
	_, ok = cache.Get("name")
	assert.False(t, ok)

	cache.Set("other", "id-2")
	cache.Clear()
	_, ok = cache.Get("other")
	assert.False(t, ok)
}
