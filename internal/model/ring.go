package model

import "slices"

// RingKind distinguishes movement rings from attack-range rings.
type RingKind string

const (
	KindMovement RingKind = "movement"
	KindRange    RingKind = "range"
)

// Kinds lists ring kinds in creation order.
func Kinds() []RingKind {
	return []RingKind{KindMovement, KindRange}
}

// Variant separates authoritative turn rings from private previews.
type Variant string

const (
	// VariantNormal rings reflect turn state and are visible to all viewers.
	VariantNormal Variant = "normal"
	// VariantDM rings are per-token previews, always invisible to players.
	VariantDM Variant = "dm"
)

// Attachment decides whether a ring follows its owner.
type Attachment string

const (
	// AttachPinned rings are attached to the owner and move with it.
	AttachPinned Attachment = "pinned"
	// AttachPlaced rings are dropped once at the owner's position.
	AttachPlaced Attachment = "placed"
)

// Layer is the render layer a ring object lives on. The overlay store
// cannot move an object between layers in place.
func (a Attachment) Layer() string {
	if a == AttachPlaced {
		return "drawing"
	}
	return "attachment"
}

// RingMode selects which ring kinds a participant shows.
type RingMode string

const (
	RingModeOff      RingMode = "off"
	RingModeMovement RingMode = "movement"
	RingModeAttack   RingMode = "attack"
	RingModeBoth     RingMode = "both"
)

// Shows reports whether the mode includes the given ring kind.
func (m RingMode) Shows(kind RingKind) bool {
	switch m {
	case RingModeBoth:
		return true
	case RingModeMovement:
		return kind == KindMovement
	case RingModeAttack:
		return kind == KindRange
	default:
		return false
	}
}

// Valid reports whether m is a known mode.
func (m RingMode) Valid() bool {
	switch m {
	case RingModeOff, RingModeMovement, RingModeAttack, RingModeBoth:
		return true
	}
	return false
}

// RingStyle is the stroke style of one ring kind.
type RingStyle struct {
	Color   string    `json:"color" yaml:"color"`
	Weight  float64   `json:"weight" yaml:"weight"`
	Dash    []float64 `json:"dash,omitempty" yaml:"dash,omitempty"`
	Opacity float64   `json:"opacity" yaml:"opacity"`
}

// Equal compares two styles field by field.
func (s RingStyle) Equal(o RingStyle) bool {
	return s.Color == o.Color &&
		s.Weight == o.Weight &&
		s.Opacity == o.Opacity &&
		slices.Equal(s.Dash, o.Dash)
}

// Clone returns a copy that does not share the dash slice.
func (s RingStyle) Clone() RingStyle {
	c := s
	c.Dash = slices.Clone(s.Dash)
	return c
}

// RingSettings are the per-participant ring preferences.
type RingSettings struct {
	Mode       RingMode   `json:"mode" yaml:"mode"`
	Attachment Attachment `json:"attachment" yaml:"attachment"`
	Movement   RingStyle  `json:"movement" yaml:"movement"`
	Attack     RingStyle  `json:"attack" yaml:"attack"`
}

// Style returns the style for a ring kind.
func (r RingSettings) Style(kind RingKind) RingStyle {
	if kind == KindRange {
		return r.Attack
	}
	return r.Movement
}

// Clone deep-copies the settings.
func (r RingSettings) Clone() RingSettings {
	c := r
	c.Movement = r.Movement.Clone()
	c.Attack = r.Attack.Clone()
	return c
}

// RingObject is one range-ring overlay in the overlay store.
type RingObject struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"ownerId"`
	Kind       RingKind   `json:"kind"`
	Variant    Variant    `json:"variant"`
	Position   Point      `json:"position"`
	Diameter   float64    `json:"diameter"`
	Style      RingStyle  `json:"style"`
	Attachment Attachment `json:"attachment"`
	Layer      string     `json:"layer"`
	Visible    bool       `json:"visible"`
}

// RingKey identifies the ring slot an object fills.
type RingKey struct {
	OwnerID string
	Kind    RingKind
	Variant Variant
}

// Key returns the reconciliation key of the object.
func (r RingObject) Key() RingKey {
	return RingKey{OwnerID: r.OwnerID, Kind: r.Kind, Variant: r.Variant}
}

// Clone returns a copy that does not share the style dash slice.
func (r RingObject) Clone() RingObject {
	c := r
	c.Style = r.Style.Clone()
	return c
}
