package model

import (
	"math"
	"testing"
)

func boolPtr(b bool) *bool { return &b }

func TestParticipant_BucketAndSubOrder(t *testing.T) {
	tests := []struct {
		initiative float64
		bucket     int
		sub        float64
	}{
		{12.00, 12, 0},
		{12.02, 12, 0.02},
		{15.3, 15, 0.3},
		{-1.5, -2, 0.5},
	}

	for _, tt := range tests {
		p := Participant{Initiative: tt.initiative}
		if got := p.Bucket(); got != tt.bucket {
			t.Errorf("Bucket(%v) = %d, want %d", tt.initiative, got, tt.bucket)
		}
		if got := p.SubOrder(); math.Abs(got-tt.sub) > 1e-9 {
			t.Errorf("SubOrder(%v) = %v, want %v", tt.initiative, got, tt.sub)
		}
	}
}

func TestParticipant_CloneIsDeep(t *testing.T) {
	p := Participant{
		ID:    "p1",
		Stats: map[string]any{"hp": 10},
		Rings: RingSettings{Attack: RingStyle{Dash: []float64{4, 4}}},
	}

	c := p.Clone()
	c.Stats["hp"] = 1
	c.Rings.Attack.Dash[0] = 99

	if p.Stats["hp"] != 10 {
		t.Error("Clone shares the stats map")
	}
	if p.Rings.Attack.Dash[0] != 4 {
		t.Error("Clone shares the dash slice")
	}
}

func TestParticipant_Detach(t *testing.T) {
	p := Participant{Active: true, InTracker: true, GroupID: "g"}
	p.Detach()
	if p.Active || p.InTracker {
		t.Errorf("Detach left flags set: %+v", p)
	}
	if p.GroupID != "g" {
		t.Error("Detach must not touch group membership")
	}
}

func TestRingMode_Shows(t *testing.T) {
	tests := []struct {
		mode     RingMode
		movement bool
		attack   bool
	}{
		{RingModeBoth, true, true},
		{RingModeMovement, true, false},
		{RingModeAttack, false, true},
		{RingModeOff, false, false},
		{RingMode("garbage"), false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.Shows(KindMovement); got != tt.movement {
				t.Errorf("Shows(movement) = %v, want %v", got, tt.movement)
			}
			if got := tt.mode.Shows(KindRange); got != tt.attack {
				t.Errorf("Shows(range) = %v, want %v", got, tt.attack)
			}
		})
	}
}

func TestAttachment_Layer(t *testing.T) {
	if AttachPinned.Layer() == AttachPlaced.Layer() {
		t.Error("pinned and placed rings must live on different layers")
	}
}

func TestRingStyle_Equal(t *testing.T) {
	a := RingStyle{Color: "#fff", Weight: 2, Dash: []float64{1, 2}, Opacity: 0.5}
	b := a.Clone()
	if !a.Equal(b) {
		t.Error("clone should be equal")
	}
	b.Dash[1] = 3
	if a.Equal(b) {
		t.Error("dash difference should be detected")
	}
}

func TestMigrate(t *testing.T) {
	defaults := DefaultRingDefaults()

	t.Run("legacy flags fold into mode", func(t *testing.T) {
		tests := []struct {
			name     string
			movement *bool
			attack   *bool
			want     RingMode
		}{
			{"both", boolPtr(true), boolPtr(true), RingModeBoth},
			{"movement only", boolPtr(true), nil, RingModeMovement},
			{"attack only", boolPtr(false), boolPtr(true), RingModeAttack},
			{"neither", boolPtr(false), boolPtr(false), RingModeOff},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := Participant{LegacyShowMovement: tt.movement, LegacyShowAttack: tt.attack}
				if !Migrate(&p, defaults) {
					t.Fatal("Migrate should report a change")
				}
				if p.Rings.Mode != tt.want {
					t.Errorf("Mode = %q, want %q", p.Rings.Mode, tt.want)
				}
				if p.LegacyShowMovement != nil || p.LegacyShowAttack != nil {
					t.Error("legacy flags should be cleared")
				}
			})
		}
	})

	t.Run("legacy attached flag", func(t *testing.T) {
		p := Participant{LegacyAttached: boolPtr(false)}
		Migrate(&p, defaults)
		if p.Rings.Attachment != AttachPlaced {
			t.Errorf("Attachment = %q, want placed", p.Rings.Attachment)
		}
	})

	t.Run("missing styles get defaults", func(t *testing.T) {
		p := Participant{}
		Migrate(&p, defaults)
		if !p.Rings.Attack.Equal(defaults.Attack) {
			t.Errorf("Attack style = %+v, want %+v", p.Rings.Attack, defaults.Attack)
		}
		if p.Rings.Mode != RingModeBoth || p.Rings.Attachment != AttachPinned {
			t.Errorf("unexpected settings %+v", p.Rings)
		}
	})

	t.Run("opacity is clamped", func(t *testing.T) {
		p := Participant{Rings: RingSettings{Movement: RingStyle{Color: "#000", Weight: 1, Opacity: 3}}}
		Migrate(&p, defaults)
		if p.Rings.Movement.Opacity != 1 {
			t.Errorf("Opacity = %v, want 1", p.Rings.Movement.Opacity)
		}
	})

	t.Run("zero opacity is kept", func(t *testing.T) {
		p := Participant{Rings: RingSettings{
			Movement: RingStyle{Color: "#000", Weight: 1, Opacity: 0},
			Attack:   RingStyle{Color: "#fff", Weight: 2, Opacity: -0.5},
		}}
		Migrate(&p, defaults)
		if p.Rings.Movement.Opacity != 0 || p.Rings.Attack.Opacity != 0 {
			t.Errorf("Opacity = %v / %v, want 0 / 0", p.Rings.Movement.Opacity, p.Rings.Attack.Opacity)
		}
		if Migrate(&p, defaults) {
			t.Error("second Migrate should report no change")
		}
	})

	t.Run("normalized record is stable", func(t *testing.T) {
		p := Participant{LegacyShowMovement: boolPtr(true)}
		Migrate(&p, defaults)
		if Migrate(&p, defaults) {
			t.Error("second Migrate should report no change")
		}
	})
}
