// Package logging provides structured logging for encounter tracking.
//
// It wraps Go's log/slog JSON handler with persistent attributes so every
// line written by a component carries the encounter and component it came
// from. Store failures, stale-generation discards and deletion-wait timeouts
// are all reported through this package rather than returned to UI callers.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger(dir, "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	rings := logger.WithEncounter(id).WithComponent("rings")
//	rings.Warn("deletion not confirmed", "pending", 2)
//
// Use [NopLogger] in tests.
package logging
