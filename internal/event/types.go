package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "turn.advanced", "rings.reconciled")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// Event type identifiers.
const (
	TypeEntitiesChanged = "store.entities_changed"
	TypeOverlaysChanged = "store.overlays_changed"
	TypeTurnStarted     = "turn.started"
	TypeTurnAdvanced    = "turn.advanced"
	TypeTurnRewound     = "turn.rewound"
	TypeTurnEnded       = "turn.ended"
	TypeRingsReconciled = "rings.reconciled"
	TypeStaleDiscarded  = "rings.stale_discarded"
	TypeTrackerFailed   = "tracker.failed"
)

// -----------------------------------------------------------------------------
// Store Events
// -----------------------------------------------------------------------------

// StoreChangedEvent is published after any mutation of a document store.
// Local and remote writes produce the same event; Remote is informational.
type StoreChangedEvent struct {
	baseEvent
	IDs    []string // Affected record IDs, empty when unknown (remote change)
	Remote bool     // True when the change was detected from another writer
}

// NewEntitiesChangedEvent creates a StoreChangedEvent for the participant document.
func NewEntitiesChangedEvent(ids []string, remote bool) StoreChangedEvent {
	return StoreChangedEvent{
		baseEvent: newBaseEvent(TypeEntitiesChanged),
		IDs:       ids,
		Remote:    remote,
	}
}

// NewOverlaysChangedEvent creates a StoreChangedEvent for the overlay document.
func NewOverlaysChangedEvent(ids []string, remote bool) StoreChangedEvent {
	return StoreChangedEvent{
		baseEvent: newBaseEvent(TypeOverlaysChanged),
		IDs:       ids,
		Remote:    remote,
	}
}

// -----------------------------------------------------------------------------
// Turn Events
// -----------------------------------------------------------------------------

// TurnEvent is published after a turn command changed persisted state.
type TurnEvent struct {
	baseEvent
	Round       int
	ActiveIndex int    // -1 when nothing is active
	ActiveID    string // Participant or group ID of the active entry
}

func newTurnEvent(eventType string, round, activeIndex int, activeID string) TurnEvent {
	return TurnEvent{
		baseEvent:   newBaseEvent(eventType),
		Round:       round,
		ActiveIndex: activeIndex,
		ActiveID:    activeID,
	}
}

// NewTurnStartedEvent creates a turn.started event.
func NewTurnStartedEvent(round, activeIndex int, activeID string) TurnEvent {
	return newTurnEvent(TypeTurnStarted, round, activeIndex, activeID)
}

// NewTurnAdvancedEvent creates a turn.advanced event.
func NewTurnAdvancedEvent(round, activeIndex int, activeID string) TurnEvent {
	return newTurnEvent(TypeTurnAdvanced, round, activeIndex, activeID)
}

// NewTurnRewoundEvent creates a turn.rewound event.
func NewTurnRewoundEvent(round, activeIndex int, activeID string) TurnEvent {
	return newTurnEvent(TypeTurnRewound, round, activeIndex, activeID)
}

// NewTurnEndedEvent creates a turn.ended event.
func NewTurnEndedEvent() TurnEvent {
	return newTurnEvent(TypeTurnEnded, 0, -1, "")
}

// -----------------------------------------------------------------------------
// Ring Events
// -----------------------------------------------------------------------------

// RingsReconciledEvent is published after a reconciliation pass wrote to the overlay store.
type RingsReconciledEvent struct {
	baseEvent
	Variant string
	Created int
	Updated int
	Deleted int
}

// NewRingsReconciledEvent creates a rings.reconciled event.
func NewRingsReconciledEvent(variant string, created, updated, deleted int) RingsReconciledEvent {
	return RingsReconciledEvent{
		baseEvent: newBaseEvent(TypeRingsReconciled),
		Variant:   variant,
		Created:   created,
		Updated:   updated,
		Deleted:   deleted,
	}
}

// StaleDiscardedEvent is published when a superseded write was dropped.
type StaleDiscardedEvent struct {
	baseEvent
	Lane       string
	Generation uint64
}

// NewStaleDiscardedEvent creates a rings.stale_discarded event.
func NewStaleDiscardedEvent(lane string, generation uint64) StaleDiscardedEvent {
	return StaleDiscardedEvent{
		baseEvent:  newBaseEvent(TypeStaleDiscarded),
		Lane:       lane,
		Generation: generation,
	}
}

// -----------------------------------------------------------------------------
// Failure Events
// -----------------------------------------------------------------------------

// TrackerFailedEvent is published when a command failed at the tracker boundary.
// The failure has already been logged; subscribers use it for status display.
type TrackerFailedEvent struct {
	baseEvent
	Command string
	Err     error
}

// NewTrackerFailedEvent creates a tracker.failed event.
func NewTrackerFailedEvent(command string, err error) TrackerFailedEvent {
	return TrackerFailedEvent{
		baseEvent: newBaseEvent(TypeTrackerFailed),
		Command:   command,
		Err:       err,
	}
}
