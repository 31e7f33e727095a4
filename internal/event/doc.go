// Package event provides a pub-sub event bus for decoupled communication
// between the document stores, the tracker and its outer surfaces.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement
//   - [Bus]: Synchronous pub-sub dispatcher, safe for concurrent use
//   - [Handler]: Function type for event handlers
//
// # Event Categories
//
// Store events fire identically for local and remote writes:
//   - [StoreChangedEvent] (store.entities_changed, store.overlays_changed)
//
// Turn events fire after a turn command changed persisted state:
//   - [TurnEvent] (turn.started, turn.advanced, turn.rewound, turn.ended)
//
// Ring events:
//   - [RingsReconciledEvent]: a reconciliation pass wrote to the overlay store
//   - [StaleDiscardedEvent]: a superseded write was dropped
//
// Failures:
//   - [TrackerFailedEvent]: a command failed and was logged
//
// # Usage
//
//	bus := event.NewBus()
//	bus.Subscribe(event.TypeTurnAdvanced, func(e event.Event) {
//	    te := e.(event.TurnEvent)
//	    fmt.Println("round", te.Round)
//	})
package event
