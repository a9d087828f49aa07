package repositories

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a record does not exist in the store.
	ErrNotFound = errors.New("not found")

	// ErrQuotaExceeded is returned when the backing store rejects a
	// request because of rate limiting. Callers must back off instead
	// of retrying on the normal path.
	ErrQuotaExceeded = errors.New("store quota exceeded")
)

type RecordInfo struct {
	Name string `json:"name"`
}

// RecordStore is a durable key-value store with listing, scoped to one
// logical container of small JSON documents. It is the only shared
// state between devices: eventual consistency and last-write-wins at
// the document level are all it guarantees.
type RecordStore interface {
	// Find returns the opaque id of a named record, or ErrNotFound.
	Find(ctx context.Context, name string) (string, error)
	// Read returns the raw document, or ErrNotFound.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write creates or replaces the named document and returns its id.
	Write(ctx context.Context, name string, doc []byte) (string, error)
	// Delete removes the named document. Returns false when it was
	// already absent; that is not an error.
	Delete(ctx context.Context, name string) (bool, error)
	// List returns the names of all documents in the container.
	List(ctx context.Context) ([]RecordInfo, error)
}

// LocalStore is the client-side persisted key-value store used for the
// timer draft and the cached entries log. Synchronous by design; all
// implementations must be safe for concurrent use.
type LocalStore interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string) error
}
