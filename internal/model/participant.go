// Package model defines the persisted records shared by the stores and the
// engines: participants, the encounter record, and ring overlay objects.
package model

import (
	"maps"
	"math"
)

// Point is a position in render pixels.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Participant is a tracked combat entity carrying turn metadata.
type Participant struct {
	ID         string  `json:"id" yaml:"id"`
	Name       string  `json:"name" yaml:"name"`
	Initiative float64 `json:"initiative" yaml:"initiative"`
	Active     bool    `json:"active" yaml:"active"`
	Visible    bool    `json:"visible" yaml:"visible"`
	InTracker  bool    `json:"inTracker" yaml:"in_tracker"`

	GroupID     string `json:"groupId,omitempty" yaml:"group_id,omitempty"`
	GroupName   string `json:"groupName,omitempty" yaml:"group_name,omitempty"`
	GroupStaged bool   `json:"groupStaged,omitempty" yaml:"group_staged,omitempty"`

	PlayerControlled bool  `json:"playerControlled" yaml:"player_controlled"`
	Position         Point `json:"position" yaml:"position"`
	// Size is the footprint diameter in game units.
	Size float64 `json:"size" yaml:"size"`
	// Movement is the movement distance in game units.
	Movement float64 `json:"movement" yaml:"movement"`
	// AttackRange is the attack distance in game units.
	AttackRange float64 `json:"attackRange" yaml:"attack_range"`
	// Touch marks a melee attacker whose attack ring uses the touch range.
	Touch bool `json:"touch,omitempty" yaml:"touch,omitempty"`

	Rings     RingSettings `json:"rings" yaml:"rings"`
	DMPreview bool         `json:"dmPreview,omitempty" yaml:"dm_preview,omitempty"`

	Stats map[string]any `json:"stats,omitempty" yaml:"stats,omitempty"`

	// Legacy flags written by older clients. Migrate folds them into Rings.
	LegacyShowMovement *bool `json:"showMovementRing,omitempty" yaml:"-"`
	LegacyShowAttack   *bool `json:"showAttackRing,omitempty" yaml:"-"`
	LegacyAttached     *bool `json:"ringsAttached,omitempty" yaml:"-"`
}

// Bucket is the priority bucket: the integer part of the initiative.
func (p Participant) Bucket() int {
	return int(math.Floor(p.Initiative))
}

// SubOrder is the fractional part of the initiative, used for stable
// ordering inside a bucket.
func (p Participant) SubOrder() float64 {
	return p.Initiative - math.Floor(p.Initiative)
}

// Grouped reports whether the participant references a group.
func (p Participant) Grouped() bool {
	return p.GroupID != ""
}

// Clone returns a deep copy safe to hand across store boundaries.
func (p Participant) Clone() Participant {
	c := p
	c.Rings = p.Rings.Clone()
	if p.Stats != nil {
		c.Stats = maps.Clone(p.Stats)
	}
	c.LegacyShowMovement = cloneBool(p.LegacyShowMovement)
	c.LegacyShowAttack = cloneBool(p.LegacyShowAttack)
	c.LegacyAttached = cloneBool(p.LegacyAttached)
	return c
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// Detach clears the tracker-owned flags of a removed participant.
func (p *Participant) Detach() {
	p.Active = false
	p.InTracker = false
}

// Encounter is the per-encounter turn bookkeeping record.
type Encounter struct {
	Round   int  `json:"round"`
	Started bool `json:"started"`
}

// CloneAll deep-copies a slice of participants.
func CloneAll(in []Participant) []Participant {
	out := make([]Participant, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// IDs returns the participant IDs in slice order.
func IDs(in []Participant) []string {
	ids := make([]string, len(in))
	for i, p := range in {
		ids[i] = p.ID
	}
	return ids
}

// Index returns a lookup by ID. Later duplicates win.
func Index(in []Participant) map[string]Participant {
	idx := make(map[string]Participant, len(in))
	for _, p := range in {
		idx[p.ID] = p
	}
	return idx
}
