package store

import (
	"context"
	"slices"
	"sync"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/model"
)

// FailFunc decides whether a store operation fails. It is called with the
// operation name ("participants", "batch_patch", "add", ...) before any
// state is touched; a non-nil error aborts the call.
type FailFunc func(op string) error

// Stats counts mutating calls made against a memory store.
type Stats struct {
	Puts    int
	Patches int
	Adds    int
	Updates int
	Deletes int
}

// Mutations is the total number of mutating calls.
func (s Stats) Mutations() int {
	return s.Puts + s.Patches + s.Adds + s.Updates + s.Deletes
}

// MemoryOption configures a memory store.
type MemoryOption func(*memoryConfig)

type memoryConfig struct {
	bus       *event.Bus
	fail      FailFunc
	deleteLag int
}

// WithBus publishes change notifications on a shared bus.
func WithBus(bus *event.Bus) MemoryOption {
	return func(c *memoryConfig) {
		if bus != nil {
			c.bus = bus
		}
	}
}

// WithFailures injects store failures.
func WithFailures(fail FailFunc) MemoryOption {
	return func(c *memoryConfig) {
		c.fail = fail
	}
}

// WithDeleteLag keeps deleted rings visible to the next n snapshot reads,
// emulating the replication round trip of a remote overlay store.
func WithDeleteLag(n int) MemoryOption {
	return func(c *memoryConfig) {
		if n > 0 {
			c.deleteLag = n
		}
	}
}

func newMemoryConfig(opts []MemoryOption) memoryConfig {
	cfg := memoryConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.bus == nil {
		cfg.bus = event.NewBus()
	}
	return cfg
}

func (c memoryConfig) check(storeName, op string) error {
	if c.fail == nil {
		return nil
	}
	if err := c.fail(op); err != nil {
		return errors.NewStoreError("injected failure", err).WithStore(storeName).WithOperation(op)
	}
	return nil
}

func subscribe(bus *event.Bus, eventType string, fn ChangeHandler) func() {
	id := bus.Subscribe(eventType, func(e event.Event) {
		if sc, ok := e.(event.StoreChangedEvent); ok {
			fn(sc)
		}
	})
	return func() { bus.Unsubscribe(id) }
}

// -----------------------------------------------------------------------------
// Entities
// -----------------------------------------------------------------------------

// MemoryEntities is an in-memory EntityStore. Reads return copies so
// callers can never mutate stored records outside BatchPatch.
type MemoryEntities struct {
	mu        sync.RWMutex
	order     []string
	records   map[string]model.Participant
	encounter model.Encounter
	stats     Stats
	cfg       memoryConfig
}

// NewMemoryEntities creates an empty in-memory participant document.
func NewMemoryEntities(opts ...MemoryOption) *MemoryEntities {
	return &MemoryEntities{
		records: make(map[string]model.Participant),
		cfg:     newMemoryConfig(opts),
	}
}

// Participants returns a snapshot in insertion order.
func (m *MemoryEntities) Participants(ctx context.Context) ([]model.Participant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.cfg.check("entities", "participants"); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Participant, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.records[id].Clone())
	}
	return out, nil
}

// Put inserts or replaces records.
func (m *MemoryEntities) Put(ctx context.Context, participants ...model.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.cfg.check("entities", "put"); err != nil {
		return err
	}

	ids := make([]string, 0, len(participants))
	m.mu.Lock()
	for _, p := range participants {
		if _, ok := m.records[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		m.records[p.ID] = p.Clone()
		ids = append(ids, p.ID)
	}
	m.stats.Puts++
	m.mu.Unlock()

	m.cfg.bus.Publish(event.NewEntitiesChangedEvent(ids, false))
	return nil
}

// BatchPatch applies fn to every listed record that still exists.
func (m *MemoryEntities) BatchPatch(ctx context.Context, ids []string, fn func(*model.Participant)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := m.cfg.check("entities", "batch_patch"); err != nil {
		return err
	}

	patched := make([]string, 0, len(ids))
	m.mu.Lock()
	for _, id := range ids {
		p, ok := m.records[id]
		if !ok {
			continue
		}
		fn(&p)
		p.ID = id
		m.records[id] = p
		patched = append(patched, id)
	}
	m.stats.Patches++
	m.mu.Unlock()

	if len(patched) > 0 {
		m.cfg.bus.Publish(event.NewEntitiesChangedEvent(patched, false))
	}
	return nil
}

// Encounter returns the round bookkeeping record.
func (m *MemoryEntities) Encounter(ctx context.Context) (model.Encounter, error) {
	if err := ctx.Err(); err != nil {
		return model.Encounter{}, err
	}
	if err := m.cfg.check("entities", "encounter"); err != nil {
		return model.Encounter{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.encounter, nil
}

// PatchEncounter mutates the round bookkeeping record.
func (m *MemoryEntities) PatchEncounter(ctx context.Context, fn func(*model.Encounter)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.cfg.check("entities", "patch_encounter"); err != nil {
		return err
	}

	m.mu.Lock()
	fn(&m.encounter)
	m.stats.Patches++
	m.mu.Unlock()

	m.cfg.bus.Publish(event.NewEntitiesChangedEvent(nil, false))
	return nil
}

// OnChange registers a change handler.
func (m *MemoryEntities) OnChange(fn ChangeHandler) func() {
	return subscribe(m.cfg.bus, event.TypeEntitiesChanged, fn)
}

// ApplyRemote mutates records as another viewer would: the change is
// published with Remote set and is not counted in Stats.
func (m *MemoryEntities) ApplyRemote(ids []string, fn func(*model.Participant)) {
	m.mu.Lock()
	for _, id := range ids {
		if p, ok := m.records[id]; ok {
			fn(&p)
			m.records[id] = p
		}
	}
	m.mu.Unlock()

	m.cfg.bus.Publish(event.NewEntitiesChangedEvent(slices.Clone(ids), true))
}

// Stats returns the mutating call counters.
func (m *MemoryEntities) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// -----------------------------------------------------------------------------
// Overlays
// -----------------------------------------------------------------------------

// MemoryOverlays is an in-memory OverlayStore.
type MemoryOverlays struct {
	mu     sync.RWMutex
	order  []string
	rings  map[string]model.RingObject
	ghosts map[string]ghost // deleted but still visible to reads
	stats  Stats
	cfg    memoryConfig
}

type ghost struct {
	ring  model.RingObject
	reads int
}

// NewMemoryOverlays creates an empty in-memory overlay document.
func NewMemoryOverlays(opts ...MemoryOption) *MemoryOverlays {
	return &MemoryOverlays{
		rings:  make(map[string]model.RingObject),
		ghosts: make(map[string]ghost),
		cfg:    newMemoryConfig(opts),
	}
}

// Rings returns a snapshot in insertion order, including rings whose
// deletion has not yet become visible.
func (m *MemoryOverlays) Rings(ctx context.Context) ([]model.RingObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.cfg.check("overlays", "rings"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.RingObject, 0, len(m.order))
	for _, id := range m.order {
		if r, ok := m.rings[id]; ok {
			out = append(out, r.Clone())
			continue
		}
		g, ok := m.ghosts[id]
		if !ok {
			continue
		}
		out = append(out, g.ring.Clone())
		g.reads++
		if g.reads >= m.cfg.deleteLag {
			delete(m.ghosts, id)
		} else {
			m.ghosts[id] = g
		}
	}
	m.compact()
	return out, nil
}

// compact drops order entries that are neither live nor ghosted.
// Caller must hold mu.
func (m *MemoryOverlays) compact() {
	m.order = slices.DeleteFunc(m.order, func(id string) bool {
		_, live := m.rings[id]
		_, ghosted := m.ghosts[id]
		return !live && !ghosted
	})
}

// Add inserts ring objects.
func (m *MemoryOverlays) Add(ctx context.Context, rings ...model.RingObject) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rings) == 0 {
		return nil
	}
	if err := m.cfg.check("overlays", "add"); err != nil {
		return err
	}

	ids := make([]string, 0, len(rings))
	m.mu.Lock()
	for _, r := range rings {
		if _, ok := m.rings[r.ID]; !ok {
			delete(m.ghosts, r.ID)
			m.order = append(m.order, r.ID)
		}
		m.rings[r.ID] = r.Clone()
		ids = append(ids, r.ID)
	}
	m.compact()
	m.stats.Adds++
	m.mu.Unlock()

	m.cfg.bus.Publish(event.NewOverlaysChangedEvent(ids, false))
	return nil
}

// Update applies fn to every listed ring that still exists.
func (m *MemoryOverlays) Update(ctx context.Context, ids []string, fn func(*model.RingObject)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := m.cfg.check("overlays", "update"); err != nil {
		return err
	}

	updated := make([]string, 0, len(ids))
	m.mu.Lock()
	for _, id := range ids {
		r, ok := m.rings[id]
		if !ok {
			continue
		}
		fn(&r)
		r.ID = id
		m.rings[id] = r
		updated = append(updated, id)
	}
	m.stats.Updates++
	m.mu.Unlock()

	if len(updated) > 0 {
		m.cfg.bus.Publish(event.NewOverlaysChangedEvent(updated, false))
	}
	return nil
}

// Delete removes rings. With a delete lag configured, removed rings stay
// visible to the next few snapshot reads.
func (m *MemoryOverlays) Delete(ctx context.Context, ids []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := m.cfg.check("overlays", "delete"); err != nil {
		return err
	}

	m.mu.Lock()
	for _, id := range ids {
		r, ok := m.rings[id]
		if !ok {
			continue
		}
		delete(m.rings, id)
		if m.cfg.deleteLag > 0 {
			m.ghosts[id] = ghost{ring: r}
		}
	}
	m.compact()
	m.stats.Deletes++
	m.mu.Unlock()

	m.cfg.bus.Publish(event.NewOverlaysChangedEvent(slices.Clone(ids), false))
	return nil
}

// OnChange registers a change handler.
func (m *MemoryOverlays) OnChange(fn ChangeHandler) func() {
	return subscribe(m.cfg.bus, event.TypeOverlaysChanged, fn)
}

// Stats returns the mutating call counters.
func (m *MemoryOverlays) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

var (
	_ EntityStore  = (*MemoryEntities)(nil)
	_ OverlayStore = (*MemoryOverlays)(nil)
)
