package grid

import (
	"testing"

	"github.com/Iron-Ham/initiative/internal/errors"
)

func TestStatic_ToPixels(t *testing.T) {
	g := Default()

	tests := []struct {
		units float64
		want  float64
	}{
		{5, 70},
		{0, 0},
		{65, 910},
		{2.5, 35},
	}

	for _, tt := range tests {
		if got := g.ToPixels(tt.units); got != tt.want {
			t.Errorf("ToPixels(%v) = %v, want %v", tt.units, got, tt.want)
		}
		if got := g.ToUnits(tt.want); got != tt.units {
			t.Errorf("ToUnits(%v) = %v, want %v", tt.want, got, tt.units)
		}
	}
}

func TestNewStatic_Validation(t *testing.T) {
	tests := []struct {
		name   string
		units  float64
		pixels float64
	}{
		{"zero units", 0, 70},
		{"negative pixels", 5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStatic(tt.units, tt.pixels, "ft")
			if !errors.Is(err, errors.ErrInvalidInput) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}

	g, err := NewStatic(1.5, 100, "m")
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	if g.UnitLabel() != "m" || g.UnitsPerCell() != 1.5 || g.PixelsPerCell() != 100 {
		t.Errorf("unexpected grid %+v", g)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(Default(), 30); got != "30 ft" {
		t.Errorf("Format = %q", got)
	}
	g, _ := NewStatic(1, 1, "")
	if got := Format(g, 2.5); got != "2.5" {
		t.Errorf("Format without label = %q", got)
	}
}
