// Package metrics records coordinator and tracker activity.
//
// Collectors are injected; NopCollector discards everything and is the
// default. PrometheusCollector registers its instruments lazily on first
// use.
package metrics

// Pass outcomes.
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Collector receives tracker and coordinator measurements.
type Collector interface {
	// RecordPass records one reconciliation pass and its duration in seconds.
	RecordPass(lane, result string, seconds float64)
	// RecordCoalesced records a command folded into a pending pass.
	RecordCoalesced()
	// RecordDeferred records a tick deferred because a pass was in flight.
	RecordDeferred()
	// RecordStaleDiscard records a superseded write that was dropped.
	RecordStaleDiscard(lane string)
	// RecordRingMutations records overlay objects written by a pass.
	RecordRingMutations(created, updated, deleted int)
	// RecordTurnCommand records a turn transition outcome.
	RecordTurnCommand(command, result string)
}

// NopCollector discards every measurement.
type NopCollector struct{}

var _ Collector = NopCollector{}

// NewNop returns a collector that discards everything.
func NewNop() NopCollector {
	return NopCollector{}
}

func (NopCollector) RecordPass(string, string, float64) {}
func (NopCollector) RecordCoalesced()                   {}
func (NopCollector) RecordDeferred()                    {}
func (NopCollector) RecordStaleDiscard(string)          {}
func (NopCollector) RecordRingMutations(int, int, int)  {}
func (NopCollector) RecordTurnCommand(string, string)   {}
