package roadnet

import (
	"math"
	"testing"

	"github.com/pkg/errors"
)

func TestRouterShortestPath(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 200, 0)
	c := mustIntersection(t, m, 200, 200)
	d := mustIntersection(t, m, 0, 200)
	mustConnect(t, m, a, b, drivingPattern(1))
	mustConnect(t, m, b, c, drivingPattern(1))
	mustConnect(t, m, a, d, drivingPattern(1))
	// d -> c is one way towards c
	mustConnect(t, m, d, c, LanePatternBuilder{NLanes: 1, OneWay: true}.Build())

	router, err := NewRouter(m)
	if err != nil {
		t.Fatal(err)
	}
	cost, path, err := router.ShortestPath(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 3 || path[0] != a || path[2] != c {
		t.Errorf("Path must go through 3 intersections from %d to %d, but got %v", a, c, path)
	}
	if cost <= 0 || cost >= 400 {
		t.Errorf("Cost must be the drivable length of two roads, but got %f", cost)
	}

	// Back from c: one way d <- c is not allowed, so the path goes through b
	_, path, err = router.ShortestPath(c, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 4 || path[1] != b {
		t.Errorf("Path from %d to %d must avoid one way road, but got %v", c, d, path)
	}

	cost, path, err = router.ShortestPath(a, a)
	if err != nil || cost != 0 || len(path) != 1 {
		t.Errorf("Path to itself must be trivial, but got %f %v %v", cost, path, err)
	}
}

func TestRouterNoPath(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 100, 0)
	lonely := mustIntersection(t, m, 500, 500)
	mustConnect(t, m, a, b, drivingPattern(1))
	router, err := NewRouter(m)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := router.ShortestPath(a, lonely); errors.Cause(err) != ErrNotFound {
		t.Errorf("Unreachable intersection must give not found, but got %v", err)
	}
	if _, _, err := router.ShortestPath(a, IntersectionID(12345)); errors.Cause(err) != ErrNotFound {
		t.Errorf("Unknown intersection must give not found, but got %v", err)
	}
	cost, _, err := router.ShortestPath(b, a)
	if err != nil {
		t.Fatal(err)
	}
	road, _ := m.Road(1)
	if math.Abs(cost-road.DrivableLength()) > 1e-6 {
		t.Errorf("Cost must be %f, but got %f", road.DrivableLength(), cost)
	}
}
