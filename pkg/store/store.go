// Package store persists view records and per-conversation focus stacks.
// The runtime requires atomic single-record get/put only; no multi-record
// transactions. Three backends are provided: SQLite for the default on-disk
// deployment, bbolt for a single-file KV deployment, and an in-memory store
// for tests and dry runs.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/chatview/pkg/view"
)

// ErrNotFound is returned when a record or focus stack does not exist.
var ErrNotFound = errors.New("store: not found")

// Record is the persisted identity of a live view instance.
type Record struct {
	ID       uuid.UUID    `json:"record_id"`
	Kind     string       `json:"kind"`
	ParentID uuid.UUID    `json:"parent_record_id,omitempty"` // uuid.Nil when the view was not stacked
	State    []byte       `json:"state"`
	Enabled  bool         `json:"is_enabled"`
	Binding  view.Binding `json:"binding"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasParent reports whether the record was stacked on another view.
func (r *Record) HasParent() bool { return r.ParentID != uuid.Nil }

// Store is the persistence contract the runtime depends on. Implementations
// must make single-record Get/Put atomic and be safe for concurrent use on
// distinct keys; the runtime serializes access per record itself.
type Store interface {
	// GetRecord loads a record by id, ErrNotFound when absent.
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)

	// PutRecord inserts or replaces a record.
	PutRecord(ctx context.Context, rec *Record) error

	// DeleteRecord removes a record. Deleting an absent record is not an
	// error.
	DeleteRecord(ctx context.Context, id uuid.UUID) error

	// FocusStack returns the ordered record ids for a channel key, oldest
	// first. A missing stack is an empty slice, not an error.
	FocusStack(ctx context.Context, channel string) ([]uuid.UUID, error)

	// PutFocusStack replaces a channel's stack. An empty slice removes the
	// stack entirely.
	PutFocusStack(ctx context.Context, channel string, ids []uuid.UUID) error

	// Close releases the underlying engine.
	Close() error
}
