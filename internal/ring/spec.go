// Package ring reconciles range-ring overlay objects against the desired
// ring state of the active participants.
package ring

import (
	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
)

// DefaultTouchRange is the attack distance, in game units, of a
// participant that attacks by touch. It does not scale with the grid.
const DefaultTouchRange = 5.0

// Spec is the desired ring state of one owner. A zero distance means the
// owner has no ring of that kind.
type Spec struct {
	OwnerID    string
	Position   model.Point
	Footprint  float64 // token footprint diameter in game units
	Movement   float64 // game units
	Attack     float64 // game units
	Styles     model.RingSettings
	Attachment model.Attachment
}

// Distance returns the desired distance of a ring kind.
func (s Spec) Distance(kind model.RingKind) float64 {
	if kind == model.KindRange {
		return s.Attack
	}
	return s.Movement
}

// Empty reports whether the spec produces no rings at all.
func (s Spec) Empty() bool {
	return s.Movement <= 0 && s.Attack <= 0
}

// SpecFor derives the ring spec of a participant from its stats and ring
// settings. Kinds hidden by the ring mode get a zero distance.
func SpecFor(p model.Participant, touchRange float64) Spec {
	s := Spec{
		OwnerID:    p.ID,
		Position:   p.Position,
		Footprint:  p.Size,
		Styles:     p.Rings.Clone(),
		Attachment: p.Rings.Attachment,
	}
	if s.Attachment == "" {
		s.Attachment = model.AttachPinned
	}
	if p.Rings.Mode.Shows(model.KindMovement) {
		s.Movement = p.Movement
	}
	if p.Rings.Mode.Shows(model.KindRange) {
		s.Attack = p.AttackRange
		if p.Touch {
			s.Attack = touchRange
		}
	}
	return s
}

// Desired derives specs for every tracked, player-controlled, active
// participant in the snapshot.
func Desired(snapshot []model.Participant, touchRange float64) []Spec {
	var specs []Spec
	for _, p := range snapshot {
		if !p.InTracker || !p.PlayerControlled || !p.Active {
			continue
		}
		specs = append(specs, SpecFor(p, touchRange))
	}
	return specs
}

// Diameter is the rendered ring diameter in pixels: the distance on both
// sides of the token plus the token footprint.
func Diameter(g grid.Service, stat, footprint float64) float64 {
	return g.ToPixels(2*stat + footprint)
}
