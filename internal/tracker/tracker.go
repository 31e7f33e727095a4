// Package tracker is the command surface of an encounter. It wires the turn
// engine, ring reconciler and coordinator to the document stores.
//
// Commands never return store failures to the caller. A failed command is
// logged, counted, and published on the event bus as tracker.failed; the
// expected ring state stays in memory and converges on the next command or
// store change.
package tracker

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/Iron-Ham/initiative/internal/coordinator"
	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/group"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/metrics"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/ring"
	"github.com/Iron-Ham/initiative/internal/store"
	"github.com/Iron-Ham/initiative/internal/turn"
)

// Tracker runs turn and ring commands for one encounter.
type Tracker struct {
	entities store.EntityStore
	overlays store.OverlayStore
	grid     grid.Service

	engine     *turn.Engine
	reconciler *ring.Reconciler
	coord      *coordinator.Coordinator

	bus     *event.Bus
	logger  *logging.Logger
	metrics metrics.Collector

	touchRange float64
	defaults   model.Defaults
	autoSync   bool

	syncMu      sync.Mutex
	unsubscribe func()

	closeOnce sync.Once
}

// New creates a tracker over the participant and overlay stores.
func New(entities store.EntityStore, overlays store.OverlayStore, g grid.Service, opts ...Option) *Tracker {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.bus == nil {
		o.bus = event.NewBus(event.WithLogger(o.logger))
	}

	logger := o.logger.WithComponent("tracker")
	t := &Tracker{
		entities:   entities,
		overlays:   overlays,
		grid:       g,
		bus:        o.bus,
		logger:     logger,
		metrics:    o.metrics,
		touchRange: o.touchRange,
		defaults:   o.defaults,
		autoSync:   o.autoSync,
	}

	t.engine = turn.NewEngine(entities, turn.WithLogger(o.logger.WithComponent("turn")))
	t.reconciler = ring.NewReconciler(overlays, g,
		ring.WithLogger(o.logger.WithComponent("rings")),
		ring.WithDeletePoll(o.pollAttempts, o.pollDelay),
	)
	t.coord = coordinator.New(t.reconcileTurnRings,
		coordinator.WithDebounce(o.debounce),
		coordinator.WithLogger(o.logger.WithComponent("coordinator")),
		coordinator.WithMetrics(o.metrics),
		coordinator.WithStaleHandler(func(lane string, gen uint64) {
			t.bus.Publish(event.NewStaleDiscardedEvent(lane, gen))
		}),
	)

	if o.autoSync {
		t.unsubscribe = entities.OnChange(func(event.StoreChangedEvent) {
			t.SyncRings(context.Background())
		})
	}
	return t
}

// Bus returns the event bus the tracker publishes on.
func (t *Tracker) Bus() *event.Bus { return t.bus }

// Grid returns the grid service.
func (t *Tracker) Grid() grid.Service { return t.grid }

// Migrate normalizes legacy participant records and writes every changed
// record back in one batch. It returns the number of migrated records.
func (t *Tracker) Migrate(ctx context.Context) (int, error) {
	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "migrate participants")
	}

	var ids []string
	for _, p := range snapshot {
		if model.Migrate(&p, t.defaults) {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if err := t.entities.BatchPatch(ctx, ids, func(p *model.Participant) {
		model.Migrate(p, t.defaults)
	}); err != nil {
		return 0, errors.Wrap(err, "migrate participants")
	}
	t.logger.Info("migrated legacy participant records", "count", len(ids))
	return len(ids), nil
}

// Close stops the coordinator and unsubscribes from store changes.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		if t.unsubscribe != nil {
			t.unsubscribe()
		}
		t.coord.Close()
	})
}

// Flush runs any pending ring pass now and waits for it to finish.
func (t *Tracker) Flush(ctx context.Context) error {
	return t.coord.Flush(ctx)
}

// -----------------------------------------------------------------------------
// Turn commands
// -----------------------------------------------------------------------------

// StartTurn activates the first entry of the turn order in round 1.
func (t *Tracker) StartTurn(ctx context.Context) turn.State {
	return t.turnCommand(ctx, turn.CommandStart, t.engine.Start)
}

// NextTurn advances to the next entry.
func (t *Tracker) NextTurn(ctx context.Context) turn.State {
	return t.turnCommand(ctx, turn.CommandNext, t.engine.Next)
}

// PrevTurn rewinds to the previous entry.
func (t *Tracker) PrevTurn(ctx context.Context) turn.State {
	return t.turnCommand(ctx, turn.CommandPrev, t.engine.Prev)
}

// EndTurn ends the encounter and clears the turn rings.
func (t *Tracker) EndTurn(ctx context.Context) turn.State {
	return t.turnCommand(ctx, turn.CommandEnd, t.engine.End)
}

func (t *Tracker) turnCommand(ctx context.Context, cmd turn.Command, run func(context.Context) (turn.State, error)) turn.State {
	var st turn.State
	err := t.coord.Exclusive(ctx, func(ctx context.Context) error {
		var err error
		st, err = run(ctx)
		return err
	})
	if err != nil {
		t.metrics.RecordTurnCommand(string(cmd), metrics.ResultError)
		t.fail("turn."+string(cmd), err)
		return turn.State{ActiveIndex: -1}
	}
	t.metrics.RecordTurnCommand(string(cmd), metrics.ResultOK)

	if len(st.Entries) == 0 {
		return st
	}

	if cmd == turn.CommandEnd {
		t.coord.SetActiveRingTokens(nil)
	} else if !t.autoSync {
		t.SyncRings(ctx)
	}

	t.publishTurn(cmd, st)
	return st
}

func (t *Tracker) publishTurn(cmd turn.Command, st turn.State) {
	var activeID string
	if e, ok := st.Active(); ok {
		activeID = e.ID
	}

	switch cmd {
	case turn.CommandStart:
		t.bus.Publish(event.NewTurnStartedEvent(st.Round, st.ActiveIndex, activeID))
	case turn.CommandNext:
		t.bus.Publish(event.NewTurnAdvancedEvent(st.Round, st.ActiveIndex, activeID))
	case turn.CommandPrev:
		t.bus.Publish(event.NewTurnRewoundEvent(st.Round, st.ActiveIndex, activeID))
	case turn.CommandEnd:
		t.bus.Publish(event.NewTurnEndedEvent())
	}
}

// TurnOrder returns the ordered turn entries.
func (t *Tracker) TurnOrder(ctx context.Context) []turn.Entry {
	return t.State(ctx).Entries
}

// State returns the turn order and round bookkeeping.
func (t *Tracker) State(ctx context.Context) turn.State {
	st, err := t.engine.State(ctx)
	if err != nil {
		t.fail("state", err)
		return turn.State{ActiveIndex: -1}
	}
	return st
}

// DeriveGroups computes group aggregates from a snapshot.
func (t *Tracker) DeriveGroups(snapshot []model.Participant) []group.Group {
	return group.Derive(snapshot)
}

// Groups derives the groups of the current participant snapshot.
func (t *Tracker) Groups(ctx context.Context) []group.Group {
	return t.DeriveGroups(t.Participants(ctx))
}

// Participants returns the participant snapshot.
func (t *Tracker) Participants(ctx context.Context) []model.Participant {
	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		t.fail("participants", err)
		return nil
	}
	return snapshot
}

// -----------------------------------------------------------------------------
// Ring commands
// -----------------------------------------------------------------------------

// SetActiveRingTokens replaces the expected turn rings with the given
// owners. Owners without a config are skipped. The store pass is debounced.
func (t *Tracker) SetActiveRingTokens(ownerIDs []string, configs map[string]ring.Spec) {
	specs := make([]ring.Spec, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		spec, ok := configs[id]
		if !ok {
			t.logger.Debug("no ring config for owner", "owner", id)
			continue
		}
		spec.OwnerID = id
		specs = append(specs, spec)
	}
	t.coord.SetActiveRingTokens(specs)
}

// SyncRings derives the turn rings from the current snapshot and schedules
// a pass.
func (t *Tracker) SyncRings(ctx context.Context) {
	t.syncMu.Lock()
	defer t.syncMu.Unlock()

	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		t.fail("rings.sync", err)
		t.coord.Trigger()
		return
	}

	specs := ring.Desired(snapshot, t.touchRange)
	owners := make([]string, len(specs))
	configs := make(map[string]ring.Spec, len(specs))
	for i, s := range specs {
		owners[i] = s.OwnerID
		configs[s.OwnerID] = s
	}
	t.SetActiveRingTokens(owners, configs)
}

// ClearAllRings removes every turn ring and every preview ring, and turns
// all previews off.
func (t *Tracker) ClearAllRings(ctx context.Context) {
	t.coord.SetActiveRingTokens(nil)
	if err := t.coord.Flush(ctx); err != nil {
		t.fail("rings.clear", err)
		return
	}

	for _, variant := range []model.Variant{model.VariantNormal, model.VariantDM} {
		n, err := t.reconciler.Clear(ctx, variant)
		if err != nil {
			t.fail("rings.clear", err)
			return
		}
		t.metrics.RecordRingMutations(0, 0, n)
		if n > 0 {
			t.bus.Publish(event.NewRingsReconciledEvent(string(variant), 0, 0, n))
		}
	}

	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		t.fail("rings.clear", err)
		return
	}
	var previews []string
	for _, p := range snapshot {
		if p.DMPreview {
			previews = append(previews, p.ID)
		}
	}
	if err := t.entities.BatchPatch(ctx, previews, func(p *model.Participant) {
		p.DMPreview = false
	}); err != nil {
		t.fail("rings.clear", err)
	}
}

// SetDMPreview toggles the private preview rings of one participant. A
// toggle superseded by a newer toggle of the same participant is dropped.
func (t *Tracker) SetDMPreview(ctx context.Context, id string, on bool) {
	gen := t.coord.Begin(coordinator.DMLane(id))

	p, err := t.participant(ctx, id)
	if err != nil {
		t.fail("rings.dm", err)
		return
	}
	if !gen.Current() {
		gen.Discard()
		return
	}

	if p.DMPreview != on {
		if err := t.entities.BatchPatch(ctx, []string{id}, func(p *model.Participant) {
			p.DMPreview = on
		}); err != nil {
			t.fail("rings.dm", err)
			return
		}
		p.DMPreview = on
	}

	t.reconcileDM(ctx, p, gen)
}

func (t *Tracker) reconcileDM(ctx context.Context, p model.Participant, gen coordinator.Generation) {
	var spec *ring.Spec
	if p.DMPreview {
		s := ring.SpecFor(p, t.touchRange)
		spec = &s
	}

	res, err := t.reconciler.ReconcileDM(ctx, p.ID, spec, gen.Guard())
	switch {
	case errors.IsStale(err):
		gen.Discard()
		return
	case err != nil:
		t.fail("rings.dm", err)
		return
	}
	t.recordRings(model.VariantDM, res)
}

// SetRingStyle changes the stroke style of one ring kind.
func (t *Tracker) SetRingStyle(ctx context.Context, id string, kind model.RingKind, style model.RingStyle) {
	t.editRings(ctx, id, "rings.style", func(r *model.RingSettings) {
		if kind == model.KindRange {
			r.Attack = style.Clone()
		} else {
			r.Movement = style.Clone()
		}
	})
}

// SetRingMode selects which ring kinds a participant shows.
func (t *Tracker) SetRingMode(ctx context.Context, id string, mode model.RingMode) {
	if !mode.Valid() {
		t.fail("rings.mode", errors.NewValidationError("unknown ring mode").WithField("mode").WithValue(mode))
		return
	}
	t.editRings(ctx, id, "rings.mode", func(r *model.RingSettings) {
		r.Mode = mode
	})
}

// SetRingAttachment pins rings to the participant or places them once.
func (t *Tracker) SetRingAttachment(ctx context.Context, id string, attachment model.Attachment) {
	if attachment != model.AttachPinned && attachment != model.AttachPlaced {
		t.fail("rings.attachment", errors.NewValidationError("unknown attachment").WithField("attachment").WithValue(attachment))
		return
	}
	t.editRings(ctx, id, "rings.attachment", func(r *model.RingSettings) {
		r.Attachment = attachment
	})
}

// editRings applies a ring settings edit inside the store's patch so
// concurrent edits to other fields survive. Only the latest edit of a
// participant is written; the turn rings and any preview follow.
func (t *Tracker) editRings(ctx context.Context, id, command string, edit func(*model.RingSettings)) {
	gen := t.coord.Begin(coordinator.StyleLane(id))

	if _, err := t.participant(ctx, id); err != nil {
		t.fail(command, err)
		return
	}
	if !gen.Current() {
		gen.Discard()
		return
	}

	var patched model.Participant
	if err := t.entities.BatchPatch(ctx, []string{id}, func(q *model.Participant) {
		edit(&q.Rings)
		patched = q.Clone()
	}); err != nil {
		t.fail(command, err)
		return
	}

	if !t.autoSync {
		t.SyncRings(ctx)
	}
	if patched.DMPreview {
		t.reconcileDM(ctx, patched, t.coord.Begin(coordinator.DMLane(id)))
	}
}

// reconcileTurnRings is the coordinator's pass executor.
func (t *Tracker) reconcileTurnRings(ctx context.Context, specs []ring.Spec, guard ring.Guard) error {
	res, err := t.reconciler.Reconcile(ctx, model.VariantNormal, specs, guard)
	t.recordRings(model.VariantNormal, res)
	if err != nil && !errors.IsStale(err) {
		// The coordinator logs the failure; subscribers still need to see it.
		t.bus.Publish(event.NewTrackerFailedEvent("rings.pass", err))
	}
	return err
}

func (t *Tracker) recordRings(variant model.Variant, res ring.Result) {
	if !res.Changed() {
		return
	}
	t.metrics.RecordRingMutations(res.Created, res.Updated, res.Deleted)
	t.bus.Publish(event.NewRingsReconciledEvent(string(variant), res.Created, res.Updated, res.Deleted))
}

// -----------------------------------------------------------------------------
// Participant commands
// -----------------------------------------------------------------------------

// AddParticipant puts a participant into the tracker and returns its ID.
// A missing ID is generated. Legacy fields are normalized.
func (t *Tracker) AddParticipant(ctx context.Context, p model.Participant) string {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.InTracker = true
	model.Migrate(&p, t.defaults)

	if err := t.entities.Put(ctx, p); err != nil {
		t.fail("participant.add", err)
		return ""
	}
	t.logger.Info("participant added", "id", p.ID, "name", p.Name, "initiative", p.Initiative)
	return p.ID
}

// RemoveParticipant detaches a participant from the tracker.
func (t *Tracker) RemoveParticipant(ctx context.Context, id string) {
	if _, err := t.participant(ctx, id); err != nil {
		t.fail("participant.remove", err)
		return
	}
	t.patch(ctx, "participant.remove", []string{id}, (*model.Participant).Detach)
}

// SetInitiative changes a participant's initiative.
func (t *Tracker) SetInitiative(ctx context.Context, id string, initiative float64) {
	if _, err := t.participant(ctx, id); err != nil {
		t.fail("participant.initiative", err)
		return
	}
	t.patch(ctx, "participant.initiative", []string{id}, func(p *model.Participant) {
		p.Initiative = initiative
	})
}

// AssignGroup moves participants into a group. An empty group ID removes
// them from their group. An empty name keeps the name of members already
// in the group.
func (t *Tracker) AssignGroup(ctx context.Context, ids []string, groupID, name string) {
	t.patch(ctx, "group.assign", ids, func(p *model.Participant) {
		if name != "" || p.GroupID != groupID {
			p.GroupName = name
		}
		p.GroupID = groupID
		if groupID == "" {
			p.GroupStaged = false
		}
	})
}

// SetGroupStaged stages or unstages every member of a group.
func (t *Tracker) SetGroupStaged(ctx context.Context, groupID string, staged bool) {
	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		t.fail("group.stage", err)
		return
	}
	members := group.Members(snapshot, groupID)
	if len(members) == 0 {
		t.fail("group.stage", errors.NewNotFoundError("group", groupID))
		return
	}
	t.patch(ctx, "group.stage", members, func(p *model.Participant) {
		p.GroupStaged = staged
	})
}

func (t *Tracker) patch(ctx context.Context, command string, ids []string, fn func(*model.Participant)) {
	if err := t.entities.BatchPatch(ctx, ids, fn); err != nil {
		t.fail(command, err)
		return
	}
	if !t.autoSync {
		t.SyncRings(ctx)
	}
}

func (t *Tracker) participant(ctx context.Context, id string) (model.Participant, error) {
	snapshot, err := t.entities.Participants(ctx)
	if err != nil {
		return model.Participant{}, err
	}
	i := slices.IndexFunc(snapshot, func(p model.Participant) bool { return p.ID == id })
	if i < 0 {
		return model.Participant{}, errors.NewNotFoundError("participant", id)
	}
	return snapshot[i], nil
}

// fail is the command boundary: the error is logged and published, never
// returned.
func (t *Tracker) fail(command string, err error) {
	if errors.IsStale(err) {
		t.logger.Debug("command superseded", "command", command)
		return
	}

	log := t.logger.Error
	if errors.GetSeverity(err) <= errors.SeverityWarning {
		log = t.logger.Warn
	}
	log("command failed",
		"command", command,
		"retryable", errors.IsRetryable(err),
		"error", err.Error(),
	)
	t.bus.Publish(event.NewTrackerFailedEvent(command, err))
}
