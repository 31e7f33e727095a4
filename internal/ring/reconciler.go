package ring

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Iron-Ham/initiative/internal/errors"
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/logging"
	"github.com/Iron-Ham/initiative/internal/model"
	"github.com/Iron-Ham/initiative/internal/store"
)

// Default deletion confirmation polling.
const (
	DefaultPollAttempts = 10
	DefaultPollDelay    = 50 * time.Millisecond
)

// Guard reports whether the pass that captured it is still current.
// A nil Guard is always current.
type Guard func() bool

func (g Guard) current() bool {
	return g == nil || g()
}

// Result counts the overlay mutations a pass performed.
type Result struct {
	Created int
	Updated int
	Deleted int
	// Cleared is set when the owner set changed and every normal ring was
	// removed before the new set was created.
	Cleared bool
}

// Changed reports whether the pass wrote anything.
func (r Result) Changed() bool {
	return r.Created+r.Updated+r.Deleted > 0
}

// Reconciler converges the overlay store onto desired ring specs.
//
// Rings are keyed by (owner, kind, variant). Missing rings are created,
// rings whose distance dropped to zero are deleted, and existing rings are
// patched on the fields that differ. A ring is deleted and recreated only
// when its attachment changed, since the store cannot move an object
// between layers. Position is never patched: pinned rings follow their
// owner and placed rings stay where they were dropped.
type Reconciler struct {
	overlays store.OverlayStore
	grid     grid.Service
	logger   *logging.Logger

	pollAttempts int
	pollDelay    time.Duration
	newID        func() string

	mu         sync.Mutex
	lastOwners map[string]bool // nil until the first normal pass
	deleted    map[string]bool // deleted ring IDs the store may still list
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDeletePoll sets how often and how long the reconciler polls for
// confirmed deletion after clearing the normal rings.
func WithDeletePoll(attempts int, delay time.Duration) Option {
	return func(r *Reconciler) {
		if attempts > 0 {
			r.pollAttempts = attempts
		}
		if delay >= 0 {
			r.pollDelay = delay
		}
	}
}

// WithIDGenerator overrides ring ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(r *Reconciler) {
		if fn != nil {
			r.newID = fn
		}
	}
}

// NewReconciler creates a reconciler writing to the overlay store.
func NewReconciler(overlays store.OverlayStore, g grid.Service, opts ...Option) *Reconciler {
	r := &Reconciler{
		overlays:     overlays,
		grid:         g,
		logger:       logging.NopLogger(),
		pollAttempts: DefaultPollAttempts,
		pollDelay:    DefaultPollDelay,
		newID:        uuid.NewString,
		deleted:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile converges every ring of the variant onto specs.
//
// For the normal variant, a change in the set of owners clears every
// normal ring first and waits for the deletion to be confirmed before
// creating the new set. An unconfirmed deletion is logged and the pass
// continues. With the same owner set, rings are patched in place.
//
// The guard is checked before each mutation phase; a superseded pass stops
// with ErrStale and makes no further writes.
func (r *Reconciler) Reconcile(ctx context.Context, variant model.Variant, specs []Spec, guard Guard) (Result, error) {
	existing, err := r.rings(ctx, variant, "")
	if err != nil {
		return Result{}, err
	}

	specs = nonEmpty(specs)
	if variant != model.VariantNormal {
		return r.apply(ctx, variant, r.diff(variant, existing, specs), guard)
	}

	owners := ownerSet(specs)
	r.mu.Lock()
	previous := r.lastOwners
	r.mu.Unlock()
	if previous == nil {
		previous = make(map[string]bool)
		for _, ring := range existing {
			previous[ring.OwnerID] = true
		}
	}

	var res Result
	if !maps.Equal(previous, owners) && len(existing) > 0 {
		if !guard.current() {
			return res, errors.ErrStale
		}
		ids := ringIDs(existing)
		if err := r.delete(ctx, ids); err != nil {
			return res, r.ringErr("clear rings", err, variant, "")
		}
		res.Deleted = len(ids)
		res.Cleared = true

		if err := r.waitGone(ctx, ids); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			r.logger.Warn("ring deletion not confirmed, continuing",
				"rings", len(ids),
				"error", err.Error(),
			)
		}
		existing = nil
	}

	applied, err := r.apply(ctx, variant, r.diff(variant, existing, specs), guard)
	res.Created += applied.Created
	res.Updated += applied.Updated
	res.Deleted += applied.Deleted
	if err != nil {
		return res, err
	}

	r.mu.Lock()
	r.lastOwners = owners
	r.mu.Unlock()
	return res, nil
}

// ReconcileDM converges one owner's private preview rings. A nil spec
// removes them. Other owners' previews are untouched.
func (r *Reconciler) ReconcileDM(ctx context.Context, ownerID string, spec *Spec, guard Guard) (Result, error) {
	existing, err := r.rings(ctx, model.VariantDM, ownerID)
	if err != nil {
		return Result{}, err
	}

	var specs []Spec
	if spec != nil {
		s := *spec
		s.OwnerID = ownerID
		specs = nonEmpty([]Spec{s})
	}
	p := r.diff(model.VariantDM, existing, specs)
	p.owner = ownerID
	return r.apply(ctx, model.VariantDM, p, guard)
}

// Clear deletes every ring of a variant.
func (r *Reconciler) Clear(ctx context.Context, variant model.Variant) (int, error) {
	existing, err := r.rings(ctx, variant, "")
	if err != nil {
		return 0, err
	}

	if len(existing) > 0 {
		if err := r.delete(ctx, ringIDs(existing)); err != nil {
			return 0, r.ringErr("clear rings", err, variant, "")
		}
	}

	if variant == model.VariantNormal {
		r.mu.Lock()
		r.lastOwners = make(map[string]bool)
		r.mu.Unlock()
	}
	return len(existing), nil
}

// -----------------------------------------------------------------------------
// Diff
// -----------------------------------------------------------------------------

type update struct {
	id    string
	patch func(*model.RingObject)
}

type plan struct {
	owner   string // set when the plan covers a single owner
	deletes []string
	adds    []model.RingObject
	updates []update
}

func (p plan) empty() bool {
	return len(p.deletes) == 0 && len(p.adds) == 0 && len(p.updates) == 0
}

func (r *Reconciler) diff(variant model.Variant, existing []model.RingObject, specs []Spec) plan {
	var p plan

	current := make(map[model.RingKey]model.RingObject, len(existing))
	for _, ring := range existing {
		if _, dup := current[ring.Key()]; dup {
			p.deletes = append(p.deletes, ring.ID)
			continue
		}
		current[ring.Key()] = ring
	}

	desired := make(map[model.RingKey]bool)
	for _, spec := range specs {
		for _, kind := range model.Kinds() {
			key := model.RingKey{OwnerID: spec.OwnerID, Kind: kind, Variant: variant}
			if spec.Distance(kind) <= 0 {
				continue
			}
			desired[key] = true

			want := r.build(spec, kind, variant)
			have, ok := current[key]
			switch {
			case !ok:
				p.adds = append(p.adds, want)
			case have.Attachment != want.Attachment || have.Layer != want.Layer:
				p.deletes = append(p.deletes, have.ID)
				p.adds = append(p.adds, want)
			default:
				if patch := patchFor(have, want); patch != nil {
					p.updates = append(p.updates, update{id: have.ID, patch: patch})
				}
			}
		}
	}

	for _, ring := range existing {
		if !desired[ring.Key()] && !slices.Contains(p.deletes, ring.ID) {
			p.deletes = append(p.deletes, ring.ID)
		}
	}
	return p
}

// patchFor returns a mutator touching only the fields of have that differ
// from want, or nil when nothing differs.
func patchFor(have, want model.RingObject) func(*model.RingObject) {
	diameter := have.Diameter != want.Diameter
	style := !have.Style.Equal(want.Style)
	visible := have.Visible != want.Visible
	if !diameter && !style && !visible {
		return nil
	}

	return func(o *model.RingObject) {
		if diameter {
			o.Diameter = want.Diameter
		}
		if style {
			o.Style = want.Style.Clone()
		}
		if visible {
			o.Visible = want.Visible
		}
	}
}

func (r *Reconciler) build(spec Spec, kind model.RingKind, variant model.Variant) model.RingObject {
	return model.RingObject{
		ID:         r.newID(),
		OwnerID:    spec.OwnerID,
		Kind:       kind,
		Variant:    variant,
		Position:   spec.Position,
		Diameter:   Diameter(r.grid, spec.Distance(kind), spec.Footprint),
		Style:      spec.Styles.Style(kind).Clone(),
		Attachment: spec.Attachment,
		Layer:      spec.Attachment.Layer(),
		Visible:    variant == model.VariantNormal,
	}
}

// -----------------------------------------------------------------------------
// Apply
// -----------------------------------------------------------------------------

func (r *Reconciler) apply(ctx context.Context, variant model.Variant, p plan, guard Guard) (Result, error) {
	var res Result
	if p.empty() {
		return res, nil
	}

	if len(p.deletes) > 0 {
		if !guard.current() {
			return res, errors.ErrStale
		}
		if err := r.delete(ctx, p.deletes); err != nil {
			return res, r.ringErr("delete rings", err, variant, p.owner)
		}
		res.Deleted = len(p.deletes)
	}

	if len(p.adds) > 0 {
		if !guard.current() {
			return res, errors.ErrStale
		}
		if err := r.overlays.Add(ctx, p.adds...); err != nil {
			return res, r.ringErr("create rings", err, variant, p.owner)
		}
		res.Created = len(p.adds)
	}

	for _, u := range p.updates {
		if !guard.current() {
			return res, errors.ErrStale
		}
		if err := r.overlays.Update(ctx, []string{u.id}, u.patch); err != nil {
			return res, r.ringErr("update ring", err, variant, p.owner)
		}
		res.Updated++
	}

	r.logger.Debug("rings reconciled",
		"variant", string(variant),
		"created", res.Created,
		"updated", res.Updated,
		"deleted", res.Deleted,
	)
	return res, nil
}

// waitGone polls the overlay store until none of ids is visible.
func (r *Reconciler) waitGone(ctx context.Context, ids []string) error {
	pending := make(map[string]bool, len(ids))
	for _, id := range ids {
		pending[id] = true
	}

	timer := time.NewTimer(r.pollDelay)
	defer timer.Stop()

	for attempt := 0; attempt < r.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		rings, err := r.overlays.Rings(ctx)
		if err == nil && !slices.ContainsFunc(rings, func(o model.RingObject) bool { return pending[o.ID] }) {
			return nil
		}
		timer.Reset(r.pollDelay)
	}

	return errors.NewTimeoutError("confirm ring deletion", time.Duration(r.pollAttempts)*r.pollDelay).
		WithCause(errors.ErrDeletionUnconfirmed)
}

// delete removes ids and remembers them until a read no longer lists them.
func (r *Reconciler) delete(ctx context.Context, ids []string) error {
	if err := r.overlays.Delete(ctx, ids); err != nil {
		return err
	}
	r.mu.Lock()
	for _, id := range ids {
		r.deleted[id] = true
	}
	r.mu.Unlock()
	return nil
}

// rings reads the variant's rings, optionally limited to one owner. Rings
// this reconciler deleted are skipped even while the store still lists them.
func (r *Reconciler) rings(ctx context.Context, variant model.Variant, ownerID string) ([]model.RingObject, error) {
	all, err := r.overlays.Rings(ctx)
	if err != nil {
		return nil, r.ringErr("read rings", err, variant, ownerID)
	}

	r.mu.Lock()
	listed := make(map[string]bool, len(all))
	for _, ring := range all {
		listed[ring.ID] = true
	}
	maps.DeleteFunc(r.deleted, func(id string, _ bool) bool { return !listed[id] })
	gone := maps.Clone(r.deleted)
	r.mu.Unlock()

	var out []model.RingObject
	for _, ring := range all {
		if ring.Variant != variant || gone[ring.ID] {
			continue
		}
		if ownerID != "" && ring.OwnerID != ownerID {
			continue
		}
		out = append(out, ring)
	}
	return out, nil
}

func (r *Reconciler) ringErr(msg string, err error, variant model.Variant, ownerID string) error {
	e := errors.NewRingError(msg, err).WithVariant(string(variant))
	if ownerID != "" {
		e = e.WithOwner(ownerID)
	}
	return e
}

func nonEmpty(specs []Spec) []Spec {
	out := make([]Spec, 0, len(specs))
	for _, s := range specs {
		if !s.Empty() {
			out = append(out, s)
		}
	}
	return out
}

func ownerSet(specs []Spec) map[string]bool {
	owners := make(map[string]bool, len(specs))
	for _, s := range specs {
		owners[s.OwnerID] = true
	}
	return owners
}

func ringIDs(rings []model.RingObject) []string {
	ids := make([]string, len(rings))
	for i, ring := range rings {
		ids[i] = ring.ID
	}
	return ids
}
