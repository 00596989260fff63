package roadnet

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
)

func TestHeightmapTerrain(t *testing.T) {
	terrain, err := NewHeightmapTerrain(orb.Point{0, 0}, 10, [][]float64{
		{0, 10},
		{20, 30},
	})
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		p        orb.Point
		expected float64
	}{
		{orb.Point{0, 0}, 0},
		{orb.Point{10, 0}, 10},
		{orb.Point{0, 10}, 20},
		{orb.Point{10, 10}, 30},
		{orb.Point{5, 5}, 15},
		{orb.Point{2.5, 0}, 2.5},
	}
	for _, c := range cases {
		h, ok := terrain.Height(c.p)
		if !ok {
			t.Errorf("Point %v must be covered", c.p)
			continue
		}
		if math.Abs(h-c.expected) > 1e-9 {
			t.Errorf("Height at %v must be %f, but got %f", c.p, c.expected, h)
		}
	}
	if _, ok := terrain.Height(orb.Point{11, 0}); ok {
		t.Errorf("Point outside of the grid must not be covered")
	}
}

func TestHeightmapTerrainValidation(t *testing.T) {
	if _, err := NewHeightmapTerrain(orb.Point{}, 0, [][]float64{{0, 0}, {0, 0}}); err == nil {
		t.Errorf("Zero cell size must be rejected")
	}
	if _, err := NewHeightmapTerrain(orb.Point{}, 1, [][]float64{{0, 0}}); err == nil {
		t.Errorf("Single row must be rejected")
	}
	if _, err := NewHeightmapTerrain(orb.Point{}, 1, [][]float64{{0, 0}, {0}}); err == nil {
		t.Errorf("Ragged rows must be rejected")
	}
}
