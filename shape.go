package roadnet

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Shape is a set of segments swept by a radius, optionally filled (polygons).
// It covers circles (single degenerate segment), capsules along polylines (bold lines and splines)
// and building footprints.
type Shape struct {
	path   []r2.Point
	radius float64
	ring   orb.Ring // non-empty for filled polygons
}

// Circle returns circle shape
func Circle(center r2.Point, radius float64) Shape {
	return Shape{path: []r2.Point{center}, radius: radius}
}

// BoldLine returns capsule swept along given 2D path
func BoldLine(path []r2.Point, radius float64) Shape {
	cp := make([]r2.Point, len(path))
	copy(cp, path)
	return Shape{path: cp, radius: radius}
}

// BoldPolyline returns capsule swept along the 2D projection of the given line
func BoldPolyline(pl Polyline3, radius float64) Shape {
	path := make([]r2.Point, len(pl))
	for i, p := range pl {
		path[i] = xy(p)
	}
	return Shape{path: path, radius: radius}
}

// BoldSpline returns capsule swept along sampled curve
func BoldSpline(s Spline, radius float64) Shape {
	return Shape{path: s.SmartPoints(4.0), radius: radius}
}

// Polygon returns filled polygon shape. Ring is closed automatically
func Polygon(ring orb.Ring) Shape {
	cp := make(orb.Ring, len(ring), len(ring)+1)
	copy(cp, ring)
	if len(cp) > 0 && !cp.Closed() {
		cp = append(cp, cp[0])
	}
	path := make([]r2.Point, len(cp))
	for i, p := range cp {
		path[i] = fromOrb(p)
	}
	return Shape{path: path, ring: cp}
}

// Bound returns axis-aligned bound of the shape
func (s Shape) Bound() orb.Bound {
	if len(s.path) == 0 {
		return orb.Bound{}
	}
	b := orb.Bound{Min: toOrb(s.path[0]), Max: toOrb(s.path[0])}
	for _, p := range s.path[1:] {
		b = b.Extend(toOrb(p))
	}
	return b.Pad(s.radius)
}

// Contains reports whether point lies inside the shape
func (s Shape) Contains(p r2.Point) bool {
	if len(s.ring) > 0 && planar.RingContains(s.ring, toOrb(p)) {
		return true
	}
	return s.distanceToPath(p) <= s.radius
}

// Intersects reports whether two shapes overlap
func (s Shape) Intersects(o Shape) bool {
	if len(s.path) == 0 || len(o.path) == 0 {
		return false
	}
	if !s.Bound().Intersects(o.Bound()) {
		return false
	}
	if len(s.ring) > 0 && planar.RingContains(s.ring, toOrb(o.path[0])) {
		return true
	}
	if len(o.ring) > 0 && planar.RingContains(o.ring, toOrb(s.path[0])) {
		return true
	}
	return s.pathDistance(o) <= s.radius+o.radius
}

func (s Shape) distanceToPath(p r2.Point) float64 {
	if len(s.path) == 1 {
		return s.path[0].Sub(p).Norm()
	}
	best := math.Inf(1)
	for i := 1; i < len(s.path); i++ {
		q, _ := closestOnSegment(p, s.path[i-1], s.path[i])
		if d := q.Sub(p).Norm(); d < best {
			best = d
		}
	}
	return best
}

func (s Shape) pathDistance(o Shape) float64 {
	if len(o.path) == 1 {
		return s.distanceToPath(o.path[0])
	}
	if len(s.path) == 1 {
		return o.distanceToPath(s.path[0])
	}
	best := math.Inf(1)
	for i := 1; i < len(s.path); i++ {
		for j := 1; j < len(o.path); j++ {
			if d := segmentDistance(s.path[i-1], s.path[i], o.path[j-1], o.path[j]); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}
