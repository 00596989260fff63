package roadnet

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Terrain samples ground elevation. Outside of its covered area it must report no data
type Terrain interface {
	Height(p orb.Point) (float64, bool)
}

// FlatTerrain is constant elevation over a rectangular area
type FlatTerrain struct {
	Bound orb.Bound
	Z     float64
}

func (t FlatTerrain) Height(p orb.Point) (float64, bool) {
	if !t.Bound.Contains(p) {
		return 0, false
	}
	return t.Z, true
}

// HeightmapTerrain interpolates elevation bilinearly over a regular grid.
// Heights[j][i] is the elevation at (Origin.X + i*Cell, Origin.Y + j*Cell)
type HeightmapTerrain struct {
	Origin  orb.Point
	Cell    float64
	Heights [][]float64
}

// NewHeightmapTerrain validates grid dimensions
func NewHeightmapTerrain(origin orb.Point, cell float64, heights [][]float64) (*HeightmapTerrain, error) {
	if cell <= 0 {
		return nil, errors.Wrap(ErrInvalidRequest, "heightmap cell size must be positive")
	}
	if len(heights) < 2 {
		return nil, errors.Wrap(ErrInvalidRequest, "heightmap needs at least two rows")
	}
	for j := range heights {
		if len(heights[j]) != len(heights[0]) || len(heights[j]) < 2 {
			return nil, errors.Wrapf(ErrInvalidRequest, "heightmap row %d has %d columns", j, len(heights[j]))
		}
	}
	return &HeightmapTerrain{Origin: origin, Cell: cell, Heights: heights}, nil
}

// Bound returns covered area
func (t *HeightmapTerrain) Bound() orb.Bound {
	rows, cols := len(t.Heights), len(t.Heights[0])
	return orb.Bound{
		Min: t.Origin,
		Max: orb.Point{t.Origin[0] + float64(cols-1)*t.Cell, t.Origin[1] + float64(rows-1)*t.Cell},
	}
}

func (t *HeightmapTerrain) Height(p orb.Point) (float64, bool) {
	if !t.Bound().Contains(p) {
		return 0, false
	}
	fx := (p[0] - t.Origin[0]) / t.Cell
	fy := (p[1] - t.Origin[1]) / t.Cell
	i := int(math.Min(math.Floor(fx), float64(len(t.Heights[0])-2)))
	j := int(math.Min(math.Floor(fy), float64(len(t.Heights)-2)))
	tx, ty := fx-float64(i), fy-float64(j)
	bottom := lerp(t.Heights[j][i], t.Heights[j][i+1], tx)
	top := lerp(t.Heights[j+1][i], t.Heights[j+1][i+1], tx)
	return lerp(bottom, top, ty), true
}
