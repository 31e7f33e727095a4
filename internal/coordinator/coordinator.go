// Package coordinator schedules ring reconciliation passes and serializes
// turn commands for one encounter.
//
// Commands update an in-memory expected state synchronously; the store pass
// runs after a debounce delay so bursts of commands collapse into a single
// pass over the latest state. A tick that fires while a pass is in flight is
// deferred until the pass finishes, never dropped. Generation counters let
// asynchronous work detect that a newer command superseded it.
package coordinator

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/metrics"
	"github.com/Iron-Ham/initiative/internal/ring"
)

// DefaultDebounce is the delay between the last command and its pass.
const DefaultDebounce = 100 * time.Millisecond

// LaneRings is the generation lane of the turn ring pass.
const LaneRings = "rings"

// DMLane is the generation lane of one owner's preview toggle.
func DMLane(ownerID string) string { return "dm:" + ownerID }

// StyleLane is the generation lane of one owner's ring style edits.
func StyleLane(ownerID string) string { return "style:" + ownerID }

// Executor runs one reconciliation pass over the expected specs. It must
// stop writing once guard reports false.
type Executor func(ctx context.Context, specs []ring.Spec, guard ring.Guard) error

// StaleHandler is told about passes discarded because they were superseded.
type StaleHandler func(lane string, generation uint64)

// Coordinator owns the expected ring state of one encounter.
type Coordinator struct {
	exec     Executor
	debounce time.Duration
	logger   *logging.Logger
	metrics  metrics.Collector
	onStale  StaleHandler

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	expected []ring.Spec
	gens     map[string]uint64
	timer    *time.Timer
	armSeq   uint64
	pending  bool
	running  bool
	rerun    bool
	closed   bool
	idle     chan struct{}

	turns chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithDebounce sets the debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.debounce = d
		}
	}
}

// WithLogger sets the coordinator logger.
func WithLogger(logger *logging.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *Coordinator) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithStaleHandler registers a callback for discarded stale passes.
func WithStaleHandler(fn StaleHandler) Option {
	return func(c *Coordinator) {
		c.onStale = fn
	}
}

// New creates a coordinator that runs exec for every pass.
func New(exec Executor, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		exec:     exec,
		debounce: DefaultDebounce,
		logger:   logging.NopLogger(),
		metrics:  metrics.NewNop(),
		ctx:      ctx,
		cancel:   cancel,
		gens:     make(map[string]uint64),
		idle:     make(chan struct{}),
		turns:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetActiveRingTokens replaces the expected ring state and schedules a
// pass. The in-memory state changes immediately; the store pass runs after
// the debounce delay with whatever state is current by then.
func (c *Coordinator) SetActiveRingTokens(specs []ring.Spec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.expected = slices.Clone(specs)
	c.gens[LaneRings]++
	c.armLocked()
}

// Trigger schedules a pass over the current expected state, e.g. after a
// store change notification or a failed pass.
func (c *Coordinator) Trigger() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.armLocked()
}

// Expected returns a copy of the expected ring state.
func (c *Coordinator) Expected() []ring.Spec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.expected)
}

func (c *Coordinator) armLocked() {
	if c.pending {
		c.metrics.RecordCoalesced()
		c.timer.Stop()
	}
	c.pending = true
	c.armSeq++
	seq := c.armSeq
	c.timer = time.AfterFunc(c.debounce, func() { c.tick(seq) })
}

// tick runs the pass armed as seq. Superseded timers are ignored.
func (c *Coordinator) tick(seq uint64) {
	c.mu.Lock()
	if c.closed || !c.pending || seq != c.armSeq {
		c.mu.Unlock()
		return
	}
	c.pending = false
	if c.running {
		c.rerun = true
		c.metrics.RecordDeferred()
		c.mu.Unlock()
		return
	}
	c.running = true
	c.mu.Unlock()

	for {
		c.mu.Lock()
		specs := slices.Clone(c.expected)
		gen := c.gens[LaneRings]
		c.mu.Unlock()

		c.runPass(specs, gen)

		c.mu.Lock()
		if !c.rerun || c.closed {
			c.running = false
			c.rerun = false
			c.signalIdleLocked()
			c.mu.Unlock()
			return
		}
		c.rerun = false
		c.mu.Unlock()
	}
}

func (c *Coordinator) runPass(specs []ring.Spec, gen uint64) {
	guard := func() bool { return c.current(LaneRings, gen) }

	start := time.Now()
	err := c.exec(c.ctx, specs, guard)
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		c.metrics.RecordPass(LaneRings, metrics.ResultOK, elapsed)
	case errors.IsStale(err):
		c.metrics.RecordPass(LaneRings, metrics.ResultStale, elapsed)
		c.discardStale(LaneRings, gen)
	default:
		c.metrics.RecordPass(LaneRings, metrics.ResultError, elapsed)
		c.logger.Error("ring pass failed, keeping expected state",
			"generation", gen,
			"owners", len(specs),
			"retryable", errors.IsRetryable(err),
			"error", err.Error(),
		)
	}
}

func (c *Coordinator) discardStale(lane string, gen uint64) {
	c.metrics.RecordStaleDiscard(lane)
	c.logger.Debug("discarded stale write", "lane", lane, "generation", gen)
	if c.onStale != nil {
		c.onStale(lane, gen)
	}
}

// signalIdleLocked wakes Flush waiters once nothing is pending or running.
func (c *Coordinator) signalIdleLocked() {
	if c.pending || c.running {
		return
	}
	close(c.idle)
	c.idle = make(chan struct{})
}

// Flush runs a pending pass now and waits until no pass is pending or in
// flight.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	fire := c.pending
	seq := c.armSeq
	if fire {
		c.timer.Stop()
	}
	c.mu.Unlock()

	if fire {
		c.tick(seq)
	}
	return c.waitIdle(ctx)
}

func (c *Coordinator) waitIdle(ctx context.Context) error {
	for {
		c.mu.Lock()
		if !c.pending && !c.running {
			c.mu.Unlock()
			return nil
		}
		idle := c.idle
		c.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Busy reports whether a pass is pending or in flight.
func (c *Coordinator) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending || c.running
}

// Close cancels pending work and waits for an in-flight pass to return.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.pending {
		c.timer.Stop()
		c.pending = false
	}
	c.signalIdleLocked()
	c.mu.Unlock()

	c.cancel()
	_ = c.waitIdle(context.Background())
}

// -----------------------------------------------------------------------------
// Generations
// -----------------------------------------------------------------------------

// Generation identifies one unit of work in a lane. It stays current until
// a newer generation begins in the same lane.
type Generation struct {
	c    *Coordinator
	lane string
	id   uint64
}

// Begin starts a new generation in lane, superseding any earlier one.
func (c *Coordinator) Begin(lane string) Generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[lane]++
	return Generation{c: c, lane: lane, id: c.gens[lane]}
}

// Current reports whether no newer generation has begun in the lane.
func (g Generation) Current() bool {
	return g.c.current(g.lane, g.id)
}

// Guard adapts the generation to a reconciliation guard.
func (g Generation) Guard() ring.Guard {
	return g.Current
}

// ID is the generation number.
func (g Generation) ID() uint64 { return g.id }

// Lane is the generation lane.
func (g Generation) Lane() string { return g.lane }

// Discard records that the generation's write was dropped as stale.
func (g Generation) Discard() {
	g.c.discardStale(g.lane, g.id)
}

func (c *Coordinator) current(lane string, id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[lane] == id
}

// -----------------------------------------------------------------------------
// Turn serialization
// -----------------------------------------------------------------------------

// Exclusive runs fn with no other Exclusive call in flight.
func (c *Coordinator) Exclusive(ctx context.Context, fn func(context.Context) error) error {
	select {
	case c.turns <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-c.turns }()
	return fn(ctx)
}
