package sqlite

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/event"
	"github.com/Iron-Ham/initiative/internal/model"
)

func openTemp(t *testing.T, opts ...Option) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "encounter.db")
	db, err := Open(context.Background(), path, opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, path
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(context.Background(), " ")
	if !errors.Is(err, errors.ErrInvalidInput) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	db, path := openTemp(t)
	if err := db.Entities().Put(ctx, model.Participant{ID: "a", Name: "Aria"}); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	again, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()

	got, err := again.Entities().Participants(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name != "Aria" {
		t.Errorf("participants after reopen = %+v", got)
	}
}

func TestEntities_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t)
	s := db.Entities()

	in := model.Participant{
		ID:               "aria",
		Name:             "Aria",
		Initiative:       18.25,
		InTracker:        true,
		PlayerControlled: true,
		Position:         model.Point{X: 140, Y: 70},
		Size:             5,
		Movement:         30,
		AttackRange:      60,
		GroupID:          "party",
		Rings: model.RingSettings{
			Mode:       model.RingModeBoth,
			Attachment: model.AttachPlaced,
			Attack:     model.RingStyle{Color: "#F87171", Weight: 4, Dash: []float64{8, 8}, Opacity: 0.6},
		},
		Stats: map[string]any{"hp": float64(31)},
	}
	if err := s.Put(ctx, in, model.Participant{ID: "bram", Name: "Bram"}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Participants(ctx)
	if err != nil {
		t.Fatalf("Participants: %v", err)
	}
	if len(got) != 2 || got[0].ID != "aria" || got[1].ID != "bram" {
		t.Fatalf("unexpected order %+v", got)
	}
	a := got[0]
	if a.Initiative != 18.25 || a.Position != in.Position || a.Rings.Attachment != model.AttachPlaced ||
		!a.Rings.Attack.Equal(in.Rings.Attack) || a.Stats["hp"] != float64(31) || a.GroupID != "party" {
		t.Errorf("round trip lost fields: %+v", a)
	}

	in.Name = "Aria the Bold"
	if err := s.Put(ctx, in); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Participants(ctx)
	if got[0].Name != "Aria the Bold" {
		t.Error("replacing a record must keep its position")
	}
}

func TestEntities_BatchPatch(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t)
	s := db.Entities()
	_ = s.Put(ctx, model.Participant{ID: "a"}, model.Participant{ID: "b"})

	var notified []string
	s.OnChange(func(e event.StoreChangedEvent) { notified = e.IDs })

	err := s.BatchPatch(ctx, []string{"a", "missing"}, func(p *model.Participant) {
		p.Active = true
		p.ID = "rewritten"
	})
	if err != nil {
		t.Fatalf("BatchPatch: %v", err)
	}

	got, _ := s.Participants(ctx)
	if got[0].ID != "a" || !got[0].Active || got[1].Active {
		t.Errorf("participants = %+v", got)
	}
	if len(notified) != 1 || notified[0] != "a" {
		t.Errorf("notified = %v", notified)
	}
}

func TestEntities_Encounter(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t)
	s := db.Entities()

	enc, err := s.Encounter(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if enc.Round != 0 || enc.Started {
		t.Errorf("fresh encounter = %+v", enc)
	}

	if err := s.PatchEncounter(ctx, func(e *model.Encounter) { e.Round, e.Started = 4, true }); err != nil {
		t.Fatal(err)
	}
	enc, _ = s.Encounter(ctx)
	if enc.Round != 4 || !enc.Started {
		t.Errorf("patched encounter = %+v", enc)
	}
}

func TestOverlays_CRUD(t *testing.T) {
	ctx := context.Background()
	db, _ := openTemp(t)
	s := db.Overlays()

	err := s.Add(ctx,
		model.RingObject{ID: "r1", OwnerID: "a", Kind: model.KindMovement, Variant: model.VariantNormal, Diameter: 910},
		model.RingObject{ID: "r2", OwnerID: "a", Kind: model.KindRange, Variant: model.VariantDM, Diameter: 70},
	)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Update(ctx, []string{"r1", "nope"}, func(r *model.RingObject) { r.Visible = true }); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := s.Delete(ctx, []string{"r2"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	rings, err := s.Rings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rings) != 1 || rings[0].ID != "r1" || !rings[0].Visible || rings[0].Diameter != 910 {
		t.Errorf("rings = %+v", rings)
	}
}

func TestCheckRemote(t *testing.T) {
	ctx := context.Background()
	local, path := openTemp(t)

	remote, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	var remoteEvents atomic.Int32
	local.Entities().OnChange(func(e event.StoreChangedEvent) {
		if e.Remote {
			remoteEvents.Add(1)
		}
	})

	_ = local.Entities().Put(ctx, model.Participant{ID: "mine"})
	if changed, _ := local.CheckRemote(ctx); changed {
		t.Error("own commit reported as remote")
	}

	_ = remote.Entities().Put(ctx, model.Participant{ID: "theirs"})
	changed, err := local.CheckRemote(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !changed || remoteEvents.Load() != 1 {
		t.Errorf("remote commit not detected: changed=%v events=%d", changed, remoteEvents.Load())
	}
}

func TestWatcher_PublishesRemoteChanges(t *testing.T) {
	ctx := context.Background()
	bus := event.NewBus()
	_, path := openTemp(t, WithBus(bus), WithWatch(true), WithWatchDebounce(10*time.Millisecond))

	remote, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	defer remote.Close()

	got := make(chan struct{}, 4)
	bus.Subscribe(event.TypeOverlaysChanged, func(e event.Event) {
		if e.(event.StoreChangedEvent).Remote {
			got <- struct{}{}
		}
	})

	_ = remote.Overlays().Add(ctx, model.RingObject{ID: "r1", OwnerID: "a"})

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("remote ring write was not observed")
	}
}
