package ring

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

func spec(owner string, movement, attack float64) Spec {
	d := model.DefaultRingDefaults()
	return Spec{
		OwnerID:    owner,
		Footprint:  5,
		Movement:   movement,
		Attack:     attack,
		Attachment: model.AttachPinned,
		Styles: model.RingSettings{
			Mode:       model.RingModeBoth,
			Attachment: model.AttachPinned,
			Movement:   d.Movement,
			Attack:     d.Attack,
		},
	}
}

func newReconciler(opts ...store.MemoryOption) (*Reconciler, *store.MemoryOverlays) {
	overlays := store.NewMemoryOverlays(opts...)
	return NewReconciler(overlays, grid.Default(), WithDeletePoll(5, time.Millisecond)), overlays
}

func ringsOf(t *testing.T, s *store.MemoryOverlays) map[model.RingKey]model.RingObject {
	t.Helper()
	rings, err := s.Rings(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	out := make(map[model.RingKey]model.RingObject)
	for _, r := range rings {
		if _, dup := out[r.Key()]; dup {
			t.Fatalf("duplicate ring for %+v", r.Key())
		}
		out[r.Key()] = r
	}
	return out
}

func TestReconcile_Create(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Deleted != 0 {
		t.Errorf("result = %+v", res)
	}

	rings := ringsOf(t, s)
	ring, ok := rings[model.RingKey{OwnerID: "a", Kind: model.KindMovement, Variant: model.VariantNormal}]
	if !ok {
		t.Fatalf("movement ring missing: %+v", rings)
	}
	if ring.Diameter != 910 || !ring.Visible || ring.Layer != "attachment" {
		t.Errorf("ring = %+v", ring)
	}
	if len(rings) != 1 {
		t.Errorf("zero attack distance must not create a ring, got %d rings", len(rings))
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()
	specs := []Spec{spec("a", 30, 60), spec("b", 25, 5)}

	if _, err := r.Reconcile(ctx, model.VariantNormal, specs, nil); err != nil {
		t.Fatal(err)
	}
	before := s.Stats().Mutations()

	res, err := r.Reconcile(ctx, model.VariantNormal, specs, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Changed() {
		t.Errorf("second pass changed rings: %+v", res)
	}
	if got := s.Stats().Mutations(); got != before {
		t.Errorf("second pass made %d store mutations, want 0", got-before)
	}
}

func TestReconcile_PatchesOnlyChangedFields(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 60)}, nil); err != nil {
		t.Fatal(err)
	}
	original := ringsOf(t, s)

	// Someone moved the token; the position of a pinned ring is not ours to patch.
	movedKey := model.RingKey{OwnerID: "a", Kind: model.KindMovement, Variant: model.VariantNormal}
	_ = s.Update(ctx, []string{original[movedKey].ID}, func(o *model.RingObject) {
		o.Position = model.Point{X: 99, Y: 99}
	})

	changed := spec("a", 35, 60)
	changed.Styles.Movement.Color = "#00FF00"
	before := s.Stats()

	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{changed}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Created != 0 || res.Deleted != 0 || res.Cleared {
		t.Errorf("result = %+v, want one in-place update", res)
	}
	after := s.Stats()
	if after.Adds != before.Adds || after.Deletes != before.Deletes {
		t.Error("same owner set must not add or delete")
	}

	ring := ringsOf(t, s)[movedKey]
	if ring.ID != original[movedKey].ID {
		t.Error("ring was recreated instead of patched")
	}
	if ring.Diameter != Diameter(grid.Default(), 35, 5) || ring.Style.Color != "#00FF00" {
		t.Errorf("ring not patched: %+v", ring)
	}
	if ring.Position.X != 99 {
		t.Error("position must not be patched")
	}
}

func TestReconcile_AttachmentChangeRecreates(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil); err != nil {
		t.Fatal(err)
	}
	key := model.RingKey{OwnerID: "a", Kind: model.KindMovement, Variant: model.VariantNormal}
	oldID := ringsOf(t, s)[key].ID

	placed := spec("a", 30, 0)
	placed.Attachment = model.AttachPlaced
	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{placed}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 || res.Created != 1 {
		t.Errorf("result = %+v, want delete+create", res)
	}

	ring := ringsOf(t, s)[key]
	if ring.ID == oldID || ring.Layer != "drawing" || ring.Attachment != model.AttachPlaced {
		t.Errorf("ring = %+v", ring)
	}
}

func TestReconcile_DistanceDropDeletes(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	_, _ = r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 60)}, nil)
	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 || res.Cleared {
		t.Errorf("result = %+v", res)
	}
	if len(ringsOf(t, s)) != 1 {
		t.Error("attack ring should be gone")
	}
}

func TestReconcile_DistanceReturnsWhileDeleteLags(t *testing.T) {
	r, s := newReconciler(store.WithDeleteLag(2))
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 30)}, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil); err != nil {
		t.Fatal(err)
	}

	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 30)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Updated != 0 || res.Cleared {
		t.Errorf("result = %+v", res)
	}

	// Let the deleted ring drop out of reads.
	for range 3 {
		_, _ = s.Rings(ctx)
	}
	rings := ringsOf(t, s)
	if _, ok := rings[model.RingKey{OwnerID: "a", Kind: model.KindRange, Variant: model.VariantNormal}]; !ok {
		t.Errorf("attack ring not recreated: %+v", rings)
	}
	if len(rings) != 2 {
		t.Errorf("got %d rings, want 2", len(rings))
	}
}

func TestReconcile_OwnerSetChangeClearsAndWaits(t *testing.T) {
	r, s := newReconciler(store.WithDeleteLag(2))
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 60)}, nil); err != nil {
		t.Fatal(err)
	}

	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("b", 30, 60)}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cleared || res.Deleted != 2 || res.Created != 2 {
		t.Errorf("result = %+v", res)
	}

	rings := ringsOf(t, s)
	for key := range rings {
		if key.OwnerID != "b" {
			t.Errorf("ghost ring left behind: %+v", key)
		}
	}
	if len(rings) != 2 {
		t.Errorf("got %d rings, want 2", len(rings))
	}
}

func TestReconcile_UnconfirmedDeletionContinues(t *testing.T) {
	overlays := store.NewMemoryOverlays(store.WithDeleteLag(100))
	r := NewReconciler(overlays, grid.Default(), WithDeletePoll(2, time.Millisecond))
	ctx := context.Background()

	_, _ = r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)
	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("b", 30, 0)}, nil)
	if err != nil {
		t.Fatalf("timeout should be a warning, got %v", err)
	}
	if res.Created != 1 {
		t.Errorf("new set should still be created: %+v", res)
	}
}

func TestReconcile_StaleGuard(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	_, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, func() bool { return false })
	if !errors.IsStale(err) {
		t.Fatalf("expected stale error, got %v", err)
	}
	if s.Stats().Mutations() != 0 {
		t.Error("stale pass must not write")
	}
}

func TestReconcile_StoreFailure(t *testing.T) {
	fail := true
	overlays := store.NewMemoryOverlays(store.WithFailures(func(op string) error {
		if fail && op == "add" {
			return fmt.Errorf("timeout talking to host")
		}
		return nil
	}))
	r := NewReconciler(overlays, grid.Default())
	ctx := context.Background()

	_, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.IsRetryable(err) {
		t.Errorf("store failure should be retryable: %v", err)
	}

	fail = false
	res, err := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)
	if err != nil || res.Created != 1 {
		t.Errorf("retry should converge: %+v %v", res, err)
	}
}

func TestReconcileDM(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	_, _ = r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 0)}, nil)

	preview := spec("b", 30, 60)
	res, err := r.ReconcileDM(ctx, "b", &preview, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 2 {
		t.Errorf("result = %+v", res)
	}
	other := spec("c", 10, 0)
	_, _ = r.ReconcileDM(ctx, "c", &other, nil)

	for key, ring := range ringsOf(t, s) {
		if key.Variant == model.VariantDM && ring.Visible {
			t.Errorf("dm ring %+v must be invisible", key)
		}
	}

	if _, err := r.ReconcileDM(ctx, "b", nil, nil); err != nil {
		t.Fatal(err)
	}
	rings := ringsOf(t, s)
	if _, ok := rings[model.RingKey{OwnerID: "c", Kind: model.KindMovement, Variant: model.VariantDM}]; !ok {
		t.Error("toggling b must not touch c's preview")
	}
	if _, ok := rings[model.RingKey{OwnerID: "a", Kind: model.KindMovement, Variant: model.VariantNormal}]; !ok {
		t.Error("dm toggles must not touch normal rings")
	}
	if len(rings) != 2 {
		t.Errorf("got %d rings, want 2", len(rings))
	}
}

func TestReconcileDM_ErrorNamesOwner(t *testing.T) {
	overlays := store.NewMemoryOverlays(store.WithFailures(func(op string) error {
		if op == "add" {
			return fmt.Errorf("timeout talking to host")
		}
		return nil
	}))
	r := NewReconciler(overlays, grid.Default())

	preview := spec("b", 30, 0)
	_, err := r.ReconcileDM(context.Background(), "b", &preview, nil)
	var ringErr *errors.RingError
	if !errors.As(err, &ringErr) {
		t.Fatalf("expected RingError, got %v", err)
	}
	if ringErr.OwnerID != "b" || ringErr.Variant != string(model.VariantDM) {
		t.Errorf("error context = owner %q variant %q", ringErr.OwnerID, ringErr.Variant)
	}
}

func TestClear(t *testing.T) {
	r, s := newReconciler()
	ctx := context.Background()

	_, _ = r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 60)}, nil)
	preview := spec("a", 30, 0)
	_, _ = r.ReconcileDM(ctx, "a", &preview, nil)

	n, err := r.Clear(ctx, model.VariantNormal)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("cleared %d, want 2", n)
	}
	rings := ringsOf(t, s)
	if len(rings) != 1 {
		t.Errorf("dm preview should survive, got %+v", rings)
	}

	// The next pass after a clear creates without another clear step.
	res, _ := r.Reconcile(ctx, model.VariantNormal, []Spec{spec("a", 30, 60)}, nil)
	if res.Cleared || res.Created != 2 {
		t.Errorf("result = %+v", res)
	}
}
