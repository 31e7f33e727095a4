// Package store defines the document stores the tracker reads and writes:
// the participant document (entities plus the encounter record) and the
// overlay document holding ring objects.
//
// Both documents are shared mutable resources replicated to other viewers
// by the host environment. The only atomicity unit is one call: a
// BatchPatch or Update applies every mutation it carries or none of them.
// Change notifications fire identically for local and remote writes.
package store

import (
	"context"

	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/model"
)

// ChangeHandler receives store change notifications.
type ChangeHandler func(event.StoreChangedEvent)

// EntityStore is the participant metadata document.
type EntityStore interface {
	// Participants returns a snapshot of every participant record.
	Participants(ctx context.Context) ([]model.Participant, error)

	// Put inserts or replaces whole participant records.
	Put(ctx context.Context, participants ...model.Participant) error

	// BatchPatch applies fn to each listed participant in one atomic call.
	// IDs that no longer exist are skipped.
	BatchPatch(ctx context.Context, ids []string, fn func(*model.Participant)) error

	// Encounter returns the round bookkeeping record.
	Encounter(ctx context.Context) (model.Encounter, error)

	// PatchEncounter mutates the round bookkeeping record atomically.
	PatchEncounter(ctx context.Context, fn func(*model.Encounter)) error

	// OnChange registers a handler and returns a function that removes it.
	OnChange(fn ChangeHandler) (unsubscribe func())
}

// OverlayStore is the ring overlay document.
type OverlayStore interface {
	// Rings returns a snapshot of every ring object.
	Rings(ctx context.Context) ([]model.RingObject, error)

	// Add inserts new ring objects.
	Add(ctx context.Context, rings ...model.RingObject) error

	// Update applies fn to each listed ring in one atomic call.
	// IDs that no longer exist are skipped.
	Update(ctx context.Context, ids []string, fn func(*model.RingObject)) error

	// Delete removes the listed rings. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// OnChange registers a handler and returns a function that removes it.
	OnChange(fn ChangeHandler) (unsubscribe func())
}
