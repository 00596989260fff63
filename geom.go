package roadnet

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
	"github.com/paulmach/orb"
)

const (
	epsilon = 1e-6
)

// xy drops elevation of the given vector
func xy(v r3.Vector) r2.Point {
	return r2.Point{X: v.X, Y: v.Y}
}

// withZ lifts 2D point to 3D using given elevation
func withZ(p r2.Point, z float64) r3.Vector {
	return r3.Vector{X: p.X, Y: p.Y, Z: z}
}

func toOrb(p r2.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) r2.Point {
	return r2.Point{X: p[0], Y: p[1]}
}

// tryNormalize returns unit vector of v. Second value is false when v is (almost) zero
func tryNormalize(v r2.Point) (r2.Point, bool) {
	n := v.Norm()
	if n < epsilon {
		return r2.Point{}, false
	}
	return v.Mul(1 / n), true
}

// rightOf returns right-hand perpendicular of given direction
func rightOf(v r2.Point) r2.Point {
	return r2.Point{X: v.Y, Y: -v.X}
}

// pseudoAngle is monotonic in the angle of v, ranges over [0, 4) and is cheaper than atan2
func pseudoAngle(v r2.Point) float64 {
	s := math.Abs(v.X) + math.Abs(v.Y)
	if s == 0 {
		return 0
	}
	p := v.X / s
	if v.Y < 0 {
		return 3 + p
	}
	return 1 - p
}

// angleBetween returns unsigned angle between two directions
func angleBetween(a, b r2.Point) s1.Angle {
	return s1.Angle(math.Abs(math.Atan2(a.Cross(b), a.Dot(b))))
}

// signedAngle returns angle to rotate a onto b (counter-clockwise is positive), in [-Pi, Pi]
func signedAngle(a, b r2.Point) float64 {
	return math.Atan2(a.Cross(b), a.Dot(b))
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerp3(a, b r3.Vector, t float64) r3.Vector {
	return a.Add(b.Sub(a).Mul(t))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// closestOnSegment returns the closest point to p on segment [a, b] and its fraction along the segment
func closestOnSegment(p, a, b r2.Point) (r2.Point, float64) {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < epsilon*epsilon {
		return a, 0
	}
	t := clamp(p.Sub(a).Dot(ab)/l2, 0, 1)
	return a.Add(ab.Mul(t)), t
}

// closestOnLine returns the closest point to p on the infinite line through a and b
func closestOnLine(p, a, b r2.Point) r2.Point {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < epsilon*epsilon {
		return a
	}
	t := p.Sub(a).Dot(ab) / l2
	return a.Add(ab.Mul(t))
}

// segmentsCross checks if two segments have a common point
func segmentsCross(a1, a2, b1, b2 r2.Point) bool {
	d1 := b2.Sub(b1).Cross(a1.Sub(b1))
	d2 := b2.Sub(b1).Cross(a2.Sub(b1))
	d3 := a2.Sub(a1).Cross(b1.Sub(a1))
	d4 := a2.Sub(a1).Cross(b2.Sub(a1))
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return false
}

// segmentDistance returns minimal distance between two segments
func segmentDistance(a1, a2, b1, b2 r2.Point) float64 {
	if segmentsCross(a1, a2, b1, b2) {
		return 0
	}
	best := math.Inf(1)
	for _, c := range [4][3]r2.Point{{a1, b1, b2}, {a2, b1, b2}, {b1, a1, a2}, {b2, a1, a2}} {
		q, _ := closestOnSegment(c[0], c[1], c[2])
		if d := q.Sub(c[0]).Norm(); d < best {
			best = d
		}
	}
	return best
}

// intersect returns intersection point of two lines
// p1, p2 - first line
// p3, p4 - second line
func intersect(p1, p2, p3, p4 r2.Point) (r2.Point, error) {
	a1 := p2.Y - p1.Y
	b1 := p1.X - p2.X
	c1 := a1*p1.X + b1*p1.Y
	a2 := p4.Y - p3.Y
	b2 := p3.X - p4.X
	c2 := a2*p3.X + b2*p3.Y

	det := a1*b2 - a2*b1
	if math.Abs(det) < epsilon {
		return r2.Point{}, fmt.Errorf("The lines are parallel")
	}
	return r2.Point{X: (b2*c1 - b1*c2) / det, Y: (a1*c2 - a2*c1) / det}, nil
}

// Polyline3 is an ordered sequence of 3D points
type Polyline3 []r3.Vector

// First returns first point of the line. Panics on empty line
func (pl Polyline3) First() r3.Vector {
	return pl[0]
}

// Last returns last point of the line. Panics on empty line
func (pl Polyline3) Last() r3.Vector {
	return pl[len(pl)-1]
}

// Length returns 3D length of the line
func (pl Polyline3) Length() float64 {
	total := 0.0
	for i := 1; i < len(pl); i++ {
		total += pl[i].Sub(pl[i-1]).Norm()
	}
	return total
}

// XY returns 2D representation of the line
func (pl Polyline3) XY() orb.LineString {
	ls := make(orb.LineString, len(pl))
	for i, p := range pl {
		ls[i] = orb.Point{p.X, p.Y}
	}
	return ls
}

// Reversed returns reversed copy of the line
func (pl Polyline3) Reversed() Polyline3 {
	out := make(Polyline3, len(pl))
	for i, p := range pl {
		out[len(pl)-1-i] = p
	}
	return out
}

// Clone returns copy of the line
func (pl Polyline3) Clone() Polyline3 {
	out := make(Polyline3, len(pl))
	copy(out, pl)
	return out
}

// FirstDir returns 2D unit direction of the first segment
func (pl Polyline3) FirstDir() r2.Point {
	for i := 1; i < len(pl); i++ {
		if d, ok := tryNormalize(xy(pl[i]).Sub(xy(pl[0]))); ok {
			return d
		}
	}
	return r2.Point{X: 1}
}

// LastDir returns 2D unit direction of the last segment (pointing towards the last point)
func (pl Polyline3) LastDir() r2.Point {
	n := len(pl)
	for i := n - 2; i >= 0; i-- {
		if d, ok := tryNormalize(xy(pl[n-1]).Sub(xy(pl[i]))); ok {
			return d
		}
	}
	return r2.Point{X: 1}
}

// PointAlong returns point at given distance along the line. Distance is clamped to line length
func (pl Polyline3) PointAlong(distance float64) r3.Vector {
	if distance <= 0 {
		return pl[0]
	}
	walked := 0.0
	for i := 1; i < len(pl); i++ {
		seg := pl[i].Sub(pl[i-1]).Norm()
		if walked+seg >= distance && seg > 0 {
			return lerp3(pl[i-1], pl[i], (distance-walked)/seg)
		}
		walked += seg
	}
	return pl[len(pl)-1]
}

// Cut returns the part of the line between two distances along it
func (pl Polyline3) Cut(start, end float64) Polyline3 {
	if len(pl) < 2 {
		return pl.Clone()
	}
	length := pl.Length()
	start = clamp(start, 0, length)
	end = clamp(end, start, length)
	out := Polyline3{pl.PointAlong(start)}
	walked := 0.0
	for i := 1; i < len(pl)-1; i++ {
		walked += pl[i].Sub(pl[i-1]).Norm()
		if walked > start+epsilon && walked < end-epsilon {
			out = append(out, pl[i])
		}
	}
	return append(out, pl.PointAlong(end))
}

// ProjectSegmentDir projects p onto the line (in 2D). It returns projected point (with interpolated elevation),
// distance from the line start to the projected point and 2D direction of the segment it belongs to
func (pl Polyline3) ProjectSegmentDir(p r3.Vector) (r3.Vector, float64, r2.Point) {
	if len(pl) == 1 {
		return pl[0], 0, r2.Point{X: 1}
	}
	target := xy(p)
	bestDist := math.Inf(1)
	var bestPoint r3.Vector
	var bestAlong float64
	bestDir := r2.Point{X: 1}
	walked := 0.0
	for i := 1; i < len(pl); i++ {
		a, b := pl[i-1], pl[i]
		q, t := closestOnSegment(target, xy(a), xy(b))
		seg := b.Sub(a).Norm()
		if d := q.Sub(target).Norm(); d < bestDist {
			bestDist = d
			bestPoint = lerp3(a, b, t)
			bestAlong = walked + t*seg
			if dir, ok := tryNormalize(xy(b).Sub(xy(a))); ok {
				bestDir = dir
			}
		}
		walked += seg
	}
	return bestPoint, bestAlong, bestDir
}

// DistanceTo returns 2D distance from p to the line
func (pl Polyline3) DistanceTo(p r2.Point) float64 {
	if len(pl) == 0 {
		return math.Inf(1)
	}
	if len(pl) == 1 {
		return xy(pl[0]).Sub(p).Norm()
	}
	best := math.Inf(1)
	for i := 1; i < len(pl); i++ {
		q, _ := closestOnSegment(p, xy(pl[i-1]), xy(pl[i]))
		if d := q.Sub(p).Norm(); d < best {
			best = d
		}
	}
	return best
}

// elbowFactor returns how much a lateral offset has to be stretched at a polyline joint
// so lane edges keep their width: 1 for a straight joint, up to Sqrt2 for right angles and sharper
func elbowFactor(in, out r2.Point) float64 {
	return 1 + (1-math.Max(in.Dot(out), 0))*(math.Sqrt2-1)
}

// offsetPolyline shifts every point of the line sideways by distance (positive is to the left of travel direction).
// Joints are pushed along the bisector of adjacent normals and scaled by elbowFactor.
func offsetPolyline(pl Polyline3, distance float64) Polyline3 {
	n := len(pl)
	if n < 2 {
		return pl.Clone()
	}
	out := make(Polyline3, 0, n)
	first := pl.FirstDir()
	out = append(out, pl[0].Add(withZ(first.Ortho().Mul(distance), 0)))
	for i := 1; i < n-1; i++ {
		in, okIn := tryNormalize(xy(pl[i]).Sub(xy(pl[i-1])))
		outDir, okOut := tryNormalize(xy(pl[i+1]).Sub(xy(pl[i])))
		if !okIn || !okOut {
			continue
		}
		normal, ok := tryNormalize(in.Ortho().Add(outDir.Ortho()))
		if !ok {
			normal = in.Ortho()
		}
		shift := normal.Mul(distance * elbowFactor(in, outDir))
		out = append(out, pl[i].Add(withZ(shift, 0)))
	}
	last := pl.LastDir()
	out = append(out, pl[n-1].Add(withZ(last.Ortho().Mul(distance), 0)))
	return out
}
