package roadnet

import (
	"math"

	"github.com/golang/geo/r2"
)

// Spline is a cubic Hermite curve between two points with given end derivatives
type Spline struct {
	From           r2.Point
	To             r2.Point
	FromDerivative r2.Point
	ToDerivative   r2.Point
}

// Get returns point of the curve at t in [0, 1]
func (s Spline) Get(t float64) r2.Point {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return s.From.Mul(h00).Add(s.FromDerivative.Mul(h10)).Add(s.To.Mul(h01)).Add(s.ToDerivative.Mul(h11))
}

// Derivative returns first derivative of the curve at t in [0, 1]
func (s Spline) Derivative(t float64) r2.Point {
	t2 := t * t
	d00 := 6*t2 - 6*t
	d10 := 3*t2 - 4*t + 1
	d01 := -6*t2 + 6*t
	d11 := 3*t2 - 2*t
	return s.From.Mul(d00).Add(s.FromDerivative.Mul(d10)).Add(s.To.Mul(d01)).Add(s.ToDerivative.Mul(d11))
}

// Points samples n+1 points of the curve uniformly in t (both ends included)
func (s Spline) Points(n int) []r2.Point {
	if n < 1 {
		n = 1
	}
	pts := make([]r2.Point, n+1)
	for i := 0; i <= n; i++ {
		pts[i] = s.Get(float64(i) / float64(n))
	}
	pts[0] = s.From
	pts[n] = s.To
	return pts
}

// ApproxLength estimates length of the curve
func (s Spline) ApproxLength() float64 {
	pts := s.Points(16)
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i].Sub(pts[i-1]).Norm()
	}
	return total
}

// SmartPoints samples the curve with roughly one point every detail units (at least 4 segments)
func (s Spline) SmartPoints(detail float64) []r2.Point {
	n := int(math.Ceil(s.ApproxLength() / detail))
	if n < 4 {
		n = 4
	}
	if n > maxSplineSegments {
		n = maxSplineSegments
	}
	return s.Points(n)
}

// IsSteep reports whether the curve bends too tightly for a road of given width:
// somewhere its radius of curvature is below half of the width, so the inner edge would fold over itself
func (s Spline) IsSteep(width float64) bool {
	pts := s.Points(20)
	limit := width * 0.5
	for i := 2; i < len(pts); i++ {
		a, b, c := pts[i-2], pts[i-1], pts[i]
		ab := b.Sub(a).Norm()
		bc := c.Sub(b).Norm()
		ca := a.Sub(c).Norm()
		if ab < epsilon || bc < epsilon {
			continue
		}
		cross := math.Abs(b.Sub(a).Cross(c.Sub(a)))
		if cross < epsilon {
			// Collinear. Folding back on itself counts as steep
			if b.Sub(a).Dot(c.Sub(b)) < 0 {
				return true
			}
			continue
		}
		radius := ab * bc * ca / (2 * cross)
		if radius < limit {
			return true
		}
	}
	return false
}

const (
	maxSplineSegments = 64
)
