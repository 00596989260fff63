package roadnet

import (
	"io"
	"log/slog"
	"math"
	"slices"
	"testing"

	"github.com/golang/geo/r2"
)

func TestInterfaceFourWay(t *testing.T) {
	m := newTestMap()
	center, _ := crossroads(t, m, 100, drivingPattern(1))
	inter, _ := m.Intersection(center)
	if len(inter.Roads) != 4 {
		t.Fatalf("Intersection must have 4 roads, but got %d", len(inter.Roads))
	}
	var first float64
	for i, roadID := range inter.Roads {
		road, _ := m.Road(roadID)
		v := road.InterfaceFrom(center)
		if i == 0 {
			first = v
		}
		if math.Abs(v-first) > epsilon {
			t.Errorf("Symmetric crossroads must have equal interfaces, but got %f and %f", first, v)
		}
		if v >= MaxPairInterface {
			t.Errorf("Interface must be less than %f, but got %f", MaxPairInterface, v)
		}
		if v < EmptyInterface(road.Width) {
			t.Errorf("Interface must be at least %f, but got %f", EmptyInterface(road.Width), v)
		}
	}
	if r := inter.BoundingCircleRadius(m.Roads()); math.Abs(r-first) > epsilon {
		t.Errorf("Bounding radius must be %f, but got %f", first, r)
	}
}

func TestInterfaceSortedByAngle(t *testing.T) {
	m := newTestMap()
	center, _ := crossroads(t, m, 100, drivingPattern(1))
	inter, _ := m.Intersection(center)
	for i := 1; i < len(inter.Roads); i++ {
		prev, _ := m.Road(inter.Roads[i-1])
		cur, _ := m.Road(inter.Roads[i])
		if pseudoAngle(prev.DirFrom(center)) > pseudoAngle(cur.DirFrom(center)) {
			t.Errorf("Roads must be sorted by angle, but got %v", inter.Roads)
		}
	}
}

func TestInterfaceNarrowAngle(t *testing.T) {
	m := newTestMap()
	center := mustIntersection(t, m, 0, 0)
	a := mustIntersection(t, m, 100, 0)
	b := mustIntersection(t, m, 100*math.Cos(math.Pi/6), 100*math.Sin(math.Pi/6))
	roadA := mustConnect(t, m, center, a, drivingPattern(1))
	roadB := mustConnect(t, m, center, b, drivingPattern(1))
	ra, _ := m.Road(roadA)
	rb, _ := m.Road(roadB)
	expected := interfaceCalc(ra.Width, rb.Width, ra.DirFrom(center), rb.DirFrom(center))
	if expected <= EmptyInterface(ra.Width) {
		t.Fatalf("Narrow angle must need more than the empty interface, but got %f", expected)
	}
	for _, road := range []*Road{ra, rb} {
		v := road.InterfaceFrom(center)
		if math.Abs(v-expected) > epsilon {
			t.Errorf("Interface of road %d must be %f, but got %f", road.ID, expected, v)
		}
	}
}

func TestInterfaceAt(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 100, 0)
	c := mustIntersection(t, m, 100, 100)
	mustConnect(t, m, a, b, drivingPattern(1))

	inter, _ := m.Intersection(a)
	width := drivingPattern(1).Width()
	dir := r2.Point{X: 1, Y: 1}.Normalize()
	preview := inter.InterfaceAt(m.Roads(), width, dir)
	// pavements meeting at 45 degrees
	expected := math.Hypot(width*0.5, width*0.5) * 1.1 / math.Sin(math.Pi/4)
	if math.Abs(preview-expected) > 1e-6 {
		t.Errorf("Previewed interface must be %f, but got %f", expected, preview)
	}
	if m.Roads().Len() != 1 || len(inter.Roads) != 1 {
		t.Errorf("Preview must not mutate the intersection")
	}

	roadID := mustConnect(t, m, a, c, drivingPattern(1))
	road, _ := m.Road(roadID)
	if math.Abs(road.InterfaceFrom(a)-preview) > 1e-6 {
		t.Errorf("Built road must get previewed interface %f, but got %f", preview, road.InterfaceFrom(a))
	}

	lonely := mustIntersection(t, m, -300, -300)
	lonelyInter, _ := m.Intersection(lonely)
	if v := lonelyInter.InterfaceAt(m.Roads(), width, dir); v != EmptyInterface(width) {
		t.Errorf("Intersection without roads must preview empty interface %f, but got %f", EmptyInterface(width), v)
	}
}

func TestInterfaceCap(t *testing.T) {
	v := interfaceCalc(16, 16, r2.Point{X: 1}, r2.Point{X: 1})
	if v != MaxPairInterface {
		t.Errorf("Parallel roads must get capped interface %f, but got %f", MaxPairInterface, v)
	}
	v = interfaceCalc(16, 16, r2.Point{X: 1}, r2.Point{X: -1})
	if math.Abs(v-math.Hypot(8, 8)*1.1) > epsilon {
		t.Errorf("Opposite roads interface must be %f, but got %f", math.Hypot(8, 8)*1.1, v)
	}
}

func TestInterfaceRoundabout(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, -200, 0)
	center := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 200, 0)
	roadA := mustConnect(t, m, a, center, drivingPattern(1))
	mustConnect(t, m, center, b, drivingPattern(1))

	policy := DefaultTurnPolicy()
	policy.Roundabout = &Roundabout{Radius: 20}
	if err := m.SetTurnPolicy(center, policy); err != nil {
		t.Fatal(err)
	}
	inter, _ := m.Intersection(center)
	if !inter.IsRoundabout() {
		t.Errorf("Intersection must be a roundabout")
	}
	expected := 20*1.1 + 5
	for _, roadID := range inter.Roads {
		road, _ := m.Road(roadID)
		if math.Abs(road.InterfaceFrom(center)-expected) > epsilon {
			t.Errorf("Roundabout interface must be %f, but got %f", expected, road.InterfaceFrom(center))
		}
	}

	// A single road is a dead end: roundabout minimum is not applied
	if _, err := m.RemoveRoad(roadA); err != nil {
		t.Fatal(err)
	}
	if inter.IsRoundabout() {
		t.Errorf("Intersection with one road must not be a roundabout")
	}
	road, _ := m.Road(inter.Roads[0])
	if math.Abs(road.InterfaceFrom(center)-EmptyInterface(road.Width)) > epsilon {
		t.Errorf("Dead end interface must be %f, but got %f", EmptyInterface(road.Width), road.InterfaceFrom(center))
	}
}

func TestRoundaboutTooBig(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, -60, 0)
	center := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 60, 0)
	mustConnect(t, m, a, center, drivingPattern(1))
	mustConnect(t, m, center, b, drivingPattern(1))
	policy := DefaultTurnPolicy()
	policy.Roundabout = &Roundabout{Radius: 50}
	if err := m.SetTurnPolicy(center, policy); !IsGeometryError(err) {
		t.Errorf("Roundabout consuming whole roads must be rejected, but got %v", err)
	}
	inter, _ := m.Intersection(center)
	if inter.Policy.Roundabout != nil {
		t.Errorf("Rejected policy must not be applied")
	}
}

func TestDeadRoadDropped(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 100, 0)
	roadID := mustConnect(t, m, a, b, drivingPattern(1))
	inter, _ := m.Intersection(a)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	inter.AddRoad(RoadID(999), m.Roads(), logger)
	if slices.Contains(inter.Roads, RoadID(999)) {
		t.Errorf("Missing road must be dropped, but got %v", inter.Roads)
	}
	if !slices.Contains(inter.Roads, roadID) {
		t.Errorf("Alive road must be kept, but got %v", inter.Roads)
	}
}

func TestEmptyIntersection(t *testing.T) {
	m := newTestMap()
	id := mustIntersection(t, m, 10, 10)
	inter, _ := m.Intersection(id)
	if inter.BoundingCircleRadius(m.Roads()) != DefaultIntersectionRadius {
		t.Errorf("Empty intersection radius must be %f", DefaultIntersectionRadius)
	}
	if len(inter.Turns()) != 0 {
		t.Errorf("Empty intersection must have no turns")
	}
	if EmptyInterface(4) != MinInterface {
		t.Errorf("Narrow road interface must be %f, but got %f", MinInterface, EmptyInterface(4))
	}
}

func TestNeighbours(t *testing.T) {
	m := newTestMap()
	center, ends := crossroads(t, m, 100, drivingPattern(1))
	inter, _ := m.Intersection(center)
	neighbours := inter.UndirectedNeighbours(m.Roads())
	if len(neighbours) != 4 {
		t.Errorf("Crossroads must have 4 neighbours, but got %v", neighbours)
	}
	for _, end := range ends {
		if !slices.Contains(neighbours, end) {
			t.Errorf("Intersection %d must be a neighbour", end)
		}
	}

	oneWay := LanePatternBuilder{NLanes: 1, OneWay: true}.Build()
	x := mustIntersection(t, m, 300, 300)
	y := mustIntersection(t, m, 400, 300)
	mustConnect(t, m, x, y, oneWay)
	interX, _ := m.Intersection(x)
	interY, _ := m.Intersection(y)
	if got := interX.VehicleNeighbours(m.Roads(), m.Lanes()); len(got) != 1 || got[0] != y {
		t.Errorf("One way road must lead from %d to %d, but got %v", x, y, got)
	}
	if got := interY.VehicleNeighbours(m.Roads(), m.Lanes()); len(got) != 0 {
		t.Errorf("One way road must not lead back, but got %v", got)
	}
}
