// Package grid converts between game distance units and render pixels.
package grid

import (
	"fmt"

	"github.com/Iron-Ham/initiative/internal/errors"
)

// Service converts game distances to render pixels and back.
type Service interface {
	// UnitsPerCell is the game distance covered by one grid cell (e.g. 5 ft).
	UnitsPerCell() float64
	// PixelsPerCell is the render size of one grid cell.
	PixelsPerCell() float64
	// UnitLabel is the display label of the game unit ("ft", "m").
	UnitLabel() string
	// ToPixels converts a game distance to render pixels.
	ToPixels(units float64) float64
	// ToUnits converts render pixels to a game distance.
	ToUnits(pixels float64) float64
}

// Static is a fixed grid.
type Static struct {
	unitsPerCell  float64
	pixelsPerCell float64
	unitLabel     string
}

// NewStatic returns a fixed grid. Both scales must be positive.
func NewStatic(unitsPerCell, pixelsPerCell float64, unitLabel string) (*Static, error) {
	if unitsPerCell <= 0 {
		return nil, errors.NewValidationError("must be positive").WithField("units_per_cell").WithValue(unitsPerCell)
	}
	if pixelsPerCell <= 0 {
		return nil, errors.NewValidationError("must be positive").WithField("pixels_per_cell").WithValue(pixelsPerCell)
	}
	return &Static{
		unitsPerCell:  unitsPerCell,
		pixelsPerCell: pixelsPerCell,
		unitLabel:     unitLabel,
	}, nil
}

// Default returns the common 5 ft / 70 px grid.
func Default() *Static {
	return &Static{unitsPerCell: 5, pixelsPerCell: 70, unitLabel: "ft"}
}

func (s *Static) UnitsPerCell() float64  { return s.unitsPerCell }
func (s *Static) PixelsPerCell() float64 { return s.pixelsPerCell }
func (s *Static) UnitLabel() string      { return s.unitLabel }

// ToPixels converts a game distance to render pixels.
func (s *Static) ToPixels(units float64) float64 {
	return units / s.unitsPerCell * s.pixelsPerCell
}

// ToUnits converts render pixels to a game distance.
func (s *Static) ToUnits(pixels float64) float64 {
	return pixels / s.pixelsPerCell * s.unitsPerCell
}

// Format renders a distance with the grid's unit label, e.g. "30 ft".
func Format(g Service, units float64) string {
	if g.UnitLabel() == "" {
		return fmt.Sprintf("%g", units)
	}
	return fmt.Sprintf("%g %s", units, g.UnitLabel())
}
