package model

// Defaults are the ring settings applied to participants that predate
// per-participant ring preferences.
type Defaults struct {
	Mode       RingMode
	Attachment Attachment
	Movement   RingStyle
	Attack     RingStyle
}

// DefaultRingDefaults returns the built-in ring defaults.
func DefaultRingDefaults() Defaults {
	return Defaults{
		Mode:       RingModeBoth,
		Attachment: AttachPinned,
		Movement:   RingStyle{Color: "#60A5FA", Weight: 4, Opacity: 0.6},
		Attack:     RingStyle{Color: "#F87171", Weight: 4, Dash: []float64{8, 8}, Opacity: 0.6},
	}
}

// Migrate normalizes legacy and missing ring fields in place. It runs once
// when records are loaded and reports whether p changed, so the caller can
// write the normalized record back in a single batch.
func Migrate(p *Participant, d Defaults) bool {
	before := p.Clone()

	if p.LegacyShowMovement != nil || p.LegacyShowAttack != nil {
		movement := p.LegacyShowMovement != nil && *p.LegacyShowMovement
		attack := p.LegacyShowAttack != nil && *p.LegacyShowAttack
		switch {
		case movement && attack:
			p.Rings.Mode = RingModeBoth
		case movement:
			p.Rings.Mode = RingModeMovement
		case attack:
			p.Rings.Mode = RingModeAttack
		default:
			p.Rings.Mode = RingModeOff
		}
		p.LegacyShowMovement = nil
		p.LegacyShowAttack = nil
	}

	if p.LegacyAttached != nil {
		if *p.LegacyAttached {
			p.Rings.Attachment = AttachPinned
		} else {
			p.Rings.Attachment = AttachPlaced
		}
		p.LegacyAttached = nil
	}

	if !p.Rings.Mode.Valid() {
		p.Rings.Mode = d.Mode
	}
	if p.Rings.Attachment != AttachPinned && p.Rings.Attachment != AttachPlaced {
		p.Rings.Attachment = d.Attachment
	}
	p.Rings.Movement = normalizeStyle(p.Rings.Movement, d.Movement)
	p.Rings.Attack = normalizeStyle(p.Rings.Attack, d.Attack)

	if p.Size < 0 {
		p.Size = 0
	}

	return !equalParticipant(before, *p)
}

func normalizeStyle(s, def RingStyle) RingStyle {
	if s.Color == "" && s.Weight == 0 && s.Opacity == 0 && s.Dash == nil {
		return def.Clone()
	}
	if s.Color == "" {
		s.Color = def.Color
	}
	if s.Weight <= 0 {
		s.Weight = def.Weight
	}
	s.Opacity = min(max(s.Opacity, 0), 1)
	return s
}

func equalParticipant(a, b Participant) bool {
	return a.Rings.Mode == b.Rings.Mode &&
		a.Rings.Attachment == b.Rings.Attachment &&
		a.Rings.Movement.Equal(b.Rings.Movement) &&
		a.Rings.Attack.Equal(b.Rings.Attack) &&
		a.Size == b.Size &&
		sameNil(a.LegacyShowMovement, b.LegacyShowMovement) &&
		sameNil(a.LegacyShowAttack, b.LegacyShowAttack) &&
		sameNil(a.LegacyAttached, b.LegacyAttached)
}

func sameNil(a, b *bool) bool {
	return (a == nil) == (b == nil)
}
