package ring

import (
	"testing"

	"github.com/Iron-Ham/initiative/internal/grid"
	"github.com/Iron-Ham/initiative/internal/model"
)

func TestDiameter(t *testing.T) {
	tests := []struct {
		name      string
		stat      float64
		footprint float64
		want      float64
	}{
		{"movement 30 on a medium token", 30, 5, 910},
		{"no distance is the footprint", 0, 5, 70},
		{"large token", 10, 10, 420},
	}

	g := grid.Default()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Diameter(g, tt.stat, tt.footprint); got != tt.want {
				t.Errorf("Diameter = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpecFor(t *testing.T) {
	base := model.Participant{
		ID:          "p",
		Size:        5,
		Movement:    30,
		AttackRange: 60,
		Rings:       model.RingSettings{Mode: model.RingModeBoth, Attachment: model.AttachPlaced},
	}

	tests := []struct {
		name     string
		mutate   func(*model.Participant)
		movement float64
		attack   float64
	}{
		{"both", func(*model.Participant) {}, 30, 60},
		{"movement only", func(p *model.Participant) { p.Rings.Mode = model.RingModeMovement }, 30, 0},
		{"attack only", func(p *model.Participant) { p.Rings.Mode = model.RingModeAttack }, 0, 60},
		{"off", func(p *model.Participant) { p.Rings.Mode = model.RingModeOff }, 0, 0},
		{"touch uses touch range", func(p *model.Participant) { p.Touch = true }, 30, DefaultTouchRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base.Clone()
			tt.mutate(&p)
			s := SpecFor(p, DefaultTouchRange)
			if s.Movement != tt.movement || s.Attack != tt.attack {
				t.Errorf("spec = %+v, want movement %v attack %v", s, tt.movement, tt.attack)
			}
			if s.Attachment != model.AttachPlaced {
				t.Errorf("Attachment = %q", s.Attachment)
			}
		})
	}
}

func TestDesired_Eligibility(t *testing.T) {
	pc := func(id string, active bool) model.Participant {
		return model.Participant{
			ID: id, Active: active, InTracker: true, PlayerControlled: true,
			Movement: 30, Rings: model.RingSettings{Mode: model.RingModeBoth},
		}
	}
	npc := pc("npc", true)
	npc.PlayerControlled = false
	removed := pc("removed", true)
	removed.InTracker = false

	specs := Desired([]model.Participant{pc("a", true), pc("b", false), npc, removed}, DefaultTouchRange)
	if len(specs) != 1 || specs[0].OwnerID != "a" {
		t.Errorf("Desired = %+v, want only a", specs)
	}
}
