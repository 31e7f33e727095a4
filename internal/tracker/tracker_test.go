package tracker

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

type fixture struct {
	tracker  *Tracker
	entities *store.MemoryEntities
	overlays *store.MemoryOverlays
	bus      *event.Bus
}

func newFixture(t *testing.T, opts ...store.MemoryOption) *fixture {
	t.Helper()
	bus := event.NewBus()
	opts = append(opts, store.WithBus(bus))
	f := &fixture{
		entities: store.NewMemoryEntities(opts...),
		overlays: store.NewMemoryOverlays(opts...),
		bus:      bus,
	}
	f.tracker = New(f.entities, f.overlays, grid.Default(),
		WithBus(bus),
		WithDebounce(0),
		WithDeletePoll(3, 0),
	)
	t.Cleanup(f.tracker.Close)
	return f
}

func (f *fixture) add(t *testing.T, p model.Participant) string {
	t.Helper()
	id := f.tracker.AddParticipant(context.Background(), p)
	if id == "" {
		t.Fatalf("AddParticipant(%s) failed", p.Name)
	}
	return id
}

func (f *fixture) flush(t *testing.T) {
	t.Helper()
	if err := f.tracker.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func (f *fixture) rings(t *testing.T, variant model.Variant) []model.RingObject {
	t.Helper()
	all, err := f.overlays.Rings(context.Background())
	if err != nil {
		t.Fatalf("Rings: %v", err)
	}
	var out []model.RingObject
	for _, r := range all {
		if r.Variant == variant {
			out = append(out, r)
		}
	}
	return out
}

func (f *fixture) failures() *[]event.TrackerFailedEvent {
	var mu sync.Mutex
	var got []event.TrackerFailedEvent
	f.bus.Subscribe(event.TypeTrackerFailed, func(e event.Event) {
		mu.Lock()
		got = append(got, e.(event.TrackerFailedEvent))
		mu.Unlock()
	})
	return &got
}

func pc(id, name string, initiative float64) model.Participant {
	return model.Participant{
		ID:               id,
		Name:             name,
		Initiative:       initiative,
		PlayerControlled: true,
		Size:             5,
		Movement:         30,
		AttackRange:      10,
	}
}

func owners(rings []model.RingObject) map[string]int {
	out := map[string]int{}
	for _, r := range rings {
		out[r.OwnerID]++
	}
	return out
}

func TestTracker_TurnDrivesRings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, pc("aria", "Aria", 18))
	f.add(t, pc("bram", "Bram", 12))

	st := f.tracker.StartTurn(ctx)
	if st.Round != 1 || st.ActiveIndex != 0 {
		t.Fatalf("StartTurn = %+v", st)
	}
	f.flush(t)

	rings := f.rings(t, model.VariantNormal)
	if got := owners(rings); len(got) != 1 || got["aria"] != 2 {
		t.Fatalf("rings after start = %v", got)
	}
	for _, r := range rings {
		if r.Kind == model.KindMovement && r.Diameter != 910 {
			t.Errorf("movement diameter = %v, want 910", r.Diameter)
		}
	}

	f.tracker.NextTurn(ctx)
	f.flush(t)
	if got := owners(f.rings(t, model.VariantNormal)); len(got) != 1 || got["bram"] != 2 {
		t.Errorf("rings after next = %v", got)
	}

	f.tracker.EndTurn(ctx)
	f.flush(t)
	if rings := f.rings(t, model.VariantNormal); len(rings) != 0 {
		t.Errorf("rings after end = %+v", rings)
	}
}

func TestTracker_TurnEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, pc("aria", "Aria", 18))

	var mu sync.Mutex
	var types []string
	f.bus.SubscribeAll(func(e event.Event) {
		switch e.EventType() {
		case event.TypeTurnStarted, event.TypeTurnAdvanced, event.TypeTurnRewound, event.TypeTurnEnded:
			mu.Lock()
			types = append(types, e.EventType())
			mu.Unlock()
		}
	})

	f.tracker.StartTurn(ctx)
	f.tracker.NextTurn(ctx)
	f.tracker.PrevTurn(ctx)
	f.tracker.EndTurn(ctx)

	want := []string{event.TypeTurnStarted, event.TypeTurnAdvanced, event.TypeTurnRewound, event.TypeTurnEnded}
	if fmt.Sprint(types) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestTracker_EmptyOrderIsNoop(t *testing.T) {
	f := newFixture(t)
	st := f.tracker.StartTurn(context.Background())
	if len(st.Entries) != 0 || st.Started {
		t.Errorf("StartTurn on empty tracker = %+v", st)
	}
	if f.entities.Stats().Patches != 0 {
		t.Error("empty order should not write")
	}
}

func TestTracker_RapidCommandsCoalesce(t *testing.T) {
	f := newFixture(t)
	f.tracker.Close()
	f.tracker = New(f.entities, f.overlays, grid.Default(),
		WithBus(f.bus),
		WithDebounce(time.Hour),
		WithDeletePoll(3, 0),
	)
	t.Cleanup(f.tracker.Close)

	ctx := context.Background()
	for i, name := range []string{"a", "b", "c", "d"} {
		f.add(t, pc(name, name, float64(20-i)))
	}

	f.tracker.StartTurn(ctx)
	for range 6 {
		f.tracker.NextTurn(ctx)
	}
	if f.overlays.Stats().Mutations() != 0 {
		t.Fatal("ring writes should wait for the debounce")
	}
	f.flush(t)

	st := f.tracker.State(ctx)
	active, _ := st.Active()
	if got := owners(f.rings(t, model.VariantNormal)); len(got) != 1 || got[active.ID] != 2 {
		t.Errorf("rings = %v, want only the active entry %s", got, active.ID)
	}
	if adds := f.overlays.Stats().Adds; adds != 1 {
		t.Errorf("Adds = %d, want a single converged pass", adds)
	}
}

func TestTracker_FailureIsPublishedNotReturned(t *testing.T) {
	var failing bool
	var mu sync.Mutex
	f := newFixture(t, store.WithFailures(func(op string) error {
		mu.Lock()
		defer mu.Unlock()
		if failing && op == "batch_patch" {
			return fmt.Errorf("offline")
		}
		return nil
	}))
	failures := f.failures()
	ctx := context.Background()
	f.add(t, pc("aria", "Aria", 18))

	mu.Lock()
	failing = true
	mu.Unlock()

	st := f.tracker.StartTurn(ctx)
	if st.ActiveIndex != -1 {
		t.Errorf("failed command state = %+v", st)
	}
	if len(*failures) != 1 || (*failures)[0].Command != "turn.start" {
		t.Fatalf("failures = %+v", *failures)
	}
	if !errors.IsRetryable((*failures)[0].Err) {
		t.Error("store failure should be reported retryable")
	}

	mu.Lock()
	failing = false
	mu.Unlock()

	if st := f.tracker.StartTurn(ctx); st.ActiveIndex != 0 {
		t.Errorf("retry = %+v", st)
	}
}

func TestTracker_DMPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))

	f.tracker.SetDMPreview(ctx, id, true)
	if got := owners(f.rings(t, model.VariantDM)); got[id] != 2 {
		t.Fatalf("preview rings = %v", got)
	}
	if rings := f.rings(t, model.VariantNormal); len(rings) != 0 {
		t.Error("preview must not create turn rings")
	}

	f.tracker.SetDMPreview(ctx, id, false)
	if rings := f.rings(t, model.VariantDM); len(rings) != 0 {
		t.Errorf("preview rings after off = %+v", rings)
	}
	p, _ := f.tracker.participant(ctx, id)
	if p.DMPreview {
		t.Error("preview flag not cleared")
	}
}

func TestTracker_RingModeFollowsTurnRings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))
	f.tracker.StartTurn(ctx)
	f.flush(t)

	f.tracker.SetRingMode(ctx, id, model.RingModeAttack)
	f.flush(t)

	rings := f.rings(t, model.VariantNormal)
	if len(rings) != 1 || rings[0].Kind != model.KindRange {
		t.Errorf("rings after attack-only = %+v", rings)
	}
}

func TestTracker_RingStyleUpdatesInPlace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))
	f.tracker.StartTurn(ctx)
	f.flush(t)
	before := f.overlays.Stats()

	style := model.RingStyle{Color: "#10B981", Weight: 2, Opacity: 1}
	f.tracker.SetRingStyle(ctx, id, model.KindMovement, style)
	f.flush(t)

	after := f.overlays.Stats()
	if after.Adds != before.Adds || after.Deletes != before.Deletes {
		t.Errorf("style change recreated rings: %+v -> %+v", before, after)
	}
	for _, r := range f.rings(t, model.VariantNormal) {
		if r.Kind == model.KindMovement && r.Style.Color != "#10B981" {
			t.Errorf("movement style = %+v", r.Style)
		}
	}
}

func TestTracker_RingEditKeepsConcurrentWrites(t *testing.T) {
	var (
		mu     sync.Mutex
		remote func()
	)
	f := newFixture(t, store.WithFailures(func(op string) error {
		mu.Lock()
		fn := remote
		remote = nil
		mu.Unlock()
		if op == "batch_patch" && fn != nil {
			fn()
		}
		return nil
	}))
	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))

	// Another viewer recolors the movement ring after the edit has read the
	// record but before it writes.
	mu.Lock()
	remote = func() {
		f.entities.ApplyRemote([]string{id}, func(p *model.Participant) {
			p.Rings.Movement.Color = "#000000"
		})
	}
	mu.Unlock()

	f.tracker.SetRingStyle(ctx, id, model.KindRange, model.RingStyle{Color: "#F59E0B", Weight: 3, Opacity: 1})

	snapshot, err := f.entities.Participants(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := model.Index(snapshot)[id].Rings
	if got.Movement.Color != "#000000" {
		t.Errorf("movement color = %s, want the concurrent #000000", got.Movement.Color)
	}
	if got.Attack.Color != "#F59E0B" {
		t.Errorf("attack color = %s, want #F59E0B", got.Attack.Color)
	}
}

func TestTracker_AssignGroupKeepsName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g1 := f.add(t, model.Participant{Name: "Goblin 1", Initiative: 9})
	g2 := f.add(t, model.Participant{Name: "Goblin 2", Initiative: 14})

	f.tracker.AssignGroup(ctx, []string{g1, g2}, "goblins", "Goblins")
	f.tracker.AssignGroup(ctx, []string{g1}, "goblins", "")

	groups := f.tracker.Groups(ctx)
	if len(groups) != 1 || groups[0].Name != "Goblins" {
		t.Fatalf("groups = %+v", groups)
	}
	for _, p := range f.tracker.Participants(ctx) {
		if p.GroupName != "Goblins" {
			t.Errorf("%s group name = %q", p.Name, p.GroupName)
		}
	}

	f.tracker.AssignGroup(ctx, []string{g2}, "wolves", "")
	if p := model.Index(f.tracker.Participants(ctx))[g2]; p.GroupID != "wolves" || p.GroupName != "" {
		t.Errorf("moved member = %q/%q, want wolves with no stale name", p.GroupID, p.GroupName)
	}
}

func TestTracker_InvalidRingMode(t *testing.T) {
	f := newFixture(t)
	failures := f.failures()
	id := f.add(t, pc("aria", "Aria", 18))

	f.tracker.SetRingMode(context.Background(), id, model.RingMode("sideways"))
	if len(*failures) != 1 || !errors.Is((*failures)[0].Err, errors.ErrInvalidInput) {
		t.Errorf("failures = %+v", *failures)
	}
}

func TestTracker_ClearAllRings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.add(t, pc("aria", "Aria", 18))
	b := f.add(t, pc("bram", "Bram", 12))
	f.tracker.StartTurn(ctx)
	f.tracker.SetDMPreview(ctx, b, true)
	f.flush(t)

	f.tracker.ClearAllRings(ctx)

	if rings, _ := f.overlays.Rings(ctx); len(rings) != 0 {
		t.Errorf("rings after clear = %+v", rings)
	}
	for _, id := range []string{a, b} {
		p, _ := f.tracker.participant(ctx, id)
		if p.DMPreview {
			t.Errorf("%s still previewing", id)
		}
	}
}

func TestTracker_Groups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	g1 := f.add(t, model.Participant{Name: "Goblin 1", Initiative: 9})
	g2 := f.add(t, model.Participant{Name: "Goblin 2", Initiative: 14})
	f.add(t, pc("aria", "Aria", 12))

	f.tracker.AssignGroup(ctx, []string{g1, g2}, "goblins", "Goblins")

	order := f.tracker.TurnOrder(ctx)
	if len(order) != 2 || order[0].ID != "goblins" || order[0].Initiative != 14 {
		t.Fatalf("order = %+v", order)
	}

	f.tracker.SetGroupStaged(ctx, "goblins", true)
	order = f.tracker.TurnOrder(ctx)
	if len(order) != 1 || order[0].ID != "aria" {
		t.Errorf("staged group still in order: %+v", order)
	}

	groups := f.tracker.Groups(ctx)
	if len(groups) != 1 || !groups[0].Staged || len(groups[0].Members) != 2 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestTracker_UnknownTargets(t *testing.T) {
	f := newFixture(t)
	failures := f.failures()
	ctx := context.Background()

	f.tracker.SetGroupStaged(ctx, "nobody", true)
	f.tracker.RemoveParticipant(ctx, "ghost")
	f.tracker.SetInitiative(ctx, "ghost", 3)

	if len(*failures) != 3 {
		t.Fatalf("failures = %+v", *failures)
	}
	for _, e := range *failures {
		var nf *errors.NotFoundError
		if !errors.As(e.Err, &nf) {
			t.Errorf("%s: expected not found, got %v", e.Command, e.Err)
		}
	}
}

func TestTracker_RemoveParticipant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))
	f.tracker.StartTurn(ctx)
	f.flush(t)

	f.tracker.RemoveParticipant(ctx, id)
	f.flush(t)

	if order := f.tracker.TurnOrder(ctx); len(order) != 0 {
		t.Errorf("order = %+v", order)
	}
	if rings := f.rings(t, model.VariantNormal); len(rings) != 0 {
		t.Errorf("removed participant keeps rings: %+v", rings)
	}
}

func TestTracker_Migrate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yes, no := true, false
	_ = f.entities.Put(ctx,
		model.Participant{ID: "old", LegacyShowMovement: &yes, LegacyShowAttack: &no, LegacyAttached: &no},
		f.migrated(pc("new", "New", 1)),
	)

	n, err := f.tracker.Migrate(ctx)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != 1 {
		t.Errorf("migrated = %d, want 1", n)
	}
	p, _ := f.tracker.participant(ctx, "old")
	if p.Rings.Mode != model.RingModeMovement || p.Rings.Attachment != model.AttachPlaced {
		t.Errorf("migrated rings = %+v", p.Rings)
	}
	if p.LegacyShowMovement != nil || p.LegacyAttached != nil {
		t.Error("legacy fields kept")
	}

	if n, _ := f.tracker.Migrate(ctx); n != 0 {
		t.Errorf("second migration touched %d records", n)
	}
}

func (f *fixture) migrated(p model.Participant) model.Participant {
	model.Migrate(&p, model.DefaultRingDefaults())
	return p
}

func TestTracker_AutoSyncFollowsRemoteChanges(t *testing.T) {
	f := newFixture(t)
	f.tracker.Close()
	f.tracker = New(f.entities, f.overlays, grid.Default(),
		WithBus(f.bus),
		WithDebounce(0),
		WithAutoSync(true),
	)
	t.Cleanup(f.tracker.Close)

	ctx := context.Background()
	id := f.add(t, pc("aria", "Aria", 18))
	f.tracker.StartTurn(ctx)
	f.flush(t)

	f.entities.ApplyRemote([]string{id}, func(p *model.Participant) { p.Movement = 60 })
	f.flush(t)

	for _, r := range f.rings(t, model.VariantNormal) {
		if r.Kind == model.KindMovement && r.Diameter != grid.Default().ToPixels(125) {
			t.Errorf("movement diameter = %v after remote change", r.Diameter)
		}
	}
}
