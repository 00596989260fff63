package roadnet

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
)

func TestGeneratePointsStraight(t *testing.T) {
	terrain := FlatTerrain{Bound: testWorld, Z: 5}
	from := r3.Vector{X: 0, Y: 0, Z: 5}
	to := r3.Vector{X: 100, Y: 0, Z: 5}
	points, err := GeneratePoints(from, to, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	if points.First() != from || points.Last() != to {
		t.Errorf("Road must start at %v and end at %v, but got %v and %v", from, to, points.First(), points.Last())
	}
	if math.Abs(points.Length()-100) > epsilon {
		t.Errorf("Road length must be 100, but got %f", points.Length())
	}
	for i := 1; i < len(points); i++ {
		if points[i].Sub(points[i-1]).Norm() > roadSampleStep+epsilon {
			t.Errorf("Points must be sampled at most every %f units", roadSampleStep)
		}
	}
}

func TestGeneratePointsCoincident(t *testing.T) {
	terrain := FlatTerrain{Bound: testWorld}
	_, err := GeneratePoints(r3.Vector{X: 1}, r3.Vector{X: 1}, StraightSegment(), false, terrain)
	if !IsGeometryError(err) {
		t.Errorf("Coincident endpoints must fail with geometry error, but got %v", err)
	}
}

func TestGeneratePointsOutOfTerrain(t *testing.T) {
	terrain := FlatTerrain{Bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{100, 100}}}
	_, err := GeneratePoints(r3.Vector{X: 50, Y: 50}, r3.Vector{X: 50, Y: 150}, StraightSegment(), false, terrain)
	if !IsGeometryError(err) {
		t.Errorf("Road leaving terrain must fail with geometry error, but got %v", err)
	}
	// Endpoints inside, but the curve bulges outside
	curve := CurvedSegment(r2.Point{X: 0, Y: 400}, r2.Point{X: 0, Y: -400})
	_, err = GeneratePoints(r3.Vector{X: 10, Y: 50}, r3.Vector{X: 90, Y: 50}, curve, false, terrain)
	if !IsGeometryError(err) {
		t.Errorf("Curve leaving terrain must fail with geometry error, but got %v", err)
	}
}

func TestGeneratePointsFollowsTerrain(t *testing.T) {
	// Hill rising by 1 unit every 10 units along X
	terrain, err := NewHeightmapTerrain(orb.Point{0, 0}, 100, [][]float64{{0, 10, 20}, {0, 10, 20}})
	if err != nil {
		t.Fatal(err)
	}
	from := r3.Vector{X: 0, Y: 50, Z: 0}
	to := r3.Vector{X: 200, Y: 50, Z: 20}
	points, err := GeneratePoints(from, to, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range points {
		h, _ := terrain.Height(orb.Point{p.X, p.Y})
		if math.Abs(p.Z-h) > 1e-9 {
			t.Errorf("Road on the ground must follow terrain at %v: expected %f", p, h)
		}
	}

	// Bridge: start 10 above the ground. Elevation above the ground decreases linearly
	bridge, err := GeneratePoints(r3.Vector{X: 0, Y: 50, Z: 10}, to, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range bridge {
		if expected := 10 + p.X/20; math.Abs(p.Z-expected) > 1e-9 {
			t.Errorf("Bridge must be %f high at %f, but got %f", expected, p.X, p.Z)
		}
	}

	// Rails are straight between endpoints and only lifted by higher ground
	rail, err := GeneratePoints(r3.Vector{X: 0, Y: 50, Z: 20}, to, StraightSegment(), true, terrain)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range rail {
		if math.Abs(p.Z-20) > 1e-9 {
			t.Errorf("Rail must stay level at 20, but got %f at %v", p.Z, p)
		}
	}
}

func TestGeneratePointsBelowGround(t *testing.T) {
	terrain := FlatTerrain{Bound: testWorld, Z: 3}
	points, err := GeneratePoints(r3.Vector{X: 0, Z: -10}, r3.Vector{X: 50, Z: 0}, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	if points.First().Z != 3 || points.Last().Z != 3 {
		t.Errorf("Endpoints must be lifted onto the ground, but got %f and %f", points.First().Z, points.Last().Z)
	}
}

func TestGeneratePointsPolyline(t *testing.T) {
	terrain := FlatTerrain{Bound: testWorld}
	interior := []r2.Point{{X: 50, Y: 50}}
	points, err := GeneratePoints(r3.Vector{}, r3.Vector{X: 100}, PolylineSegment(interior), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 || xy(points[1]) != interior[0] {
		t.Errorf("Polyline must pass through its interior points, but got %v", points)
	}
}

func TestPylons(t *testing.T) {
	terrain := FlatTerrain{Bound: testWorld}
	flat, err := GeneratePoints(r3.Vector{}, r3.Vector{X: 200}, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	for range PylonPositions(flat, terrain) {
		t.Errorf("Road on the ground must not need pylons")
	}
	bridge, err := GeneratePoints(r3.Vector{Z: 20}, r3.Vector{X: 200, Z: 20}, StraightSegment(), false, terrain)
	if err != nil {
		t.Fatal(err)
	}
	n := 0
	for pylon := range PylonPositions(bridge, terrain) {
		n++
		if pylon.TerrainHeight != 0 || pylon.Pos.Z != 20 {
			t.Errorf("Pylon must stand on the ground below the deck, but got %+v", pylon)
		}
		if pylon.Dir.Sub(r2.Point{X: 1}).Norm() > epsilon {
			t.Errorf("Pylon must be oriented along the road, but got %v", pylon.Dir)
		}
	}
	// 15, 45, ..., 195
	if n != 7 {
		t.Errorf("Bridge of length 200 must have 7 pylons, but got %d", n)
	}
	n = 0
	for range PylonPositions(bridge, terrain) {
		n++
		break
	}
	if n != 1 {
		t.Errorf("Iteration must stop on demand")
	}
}

func TestLanePatternBuilder(t *testing.T) {
	pattern := DefaultLanePatternBuilder().Build()
	expected := []LaneKind{LANE_DRIVING, LANE_PARKING, LANE_WALKING}
	if len(pattern.Forward) != 3 || len(pattern.Backward) != 3 {
		t.Fatalf("Default pattern must have 3 lanes per direction, but got %v", pattern)
	}
	for i := range expected {
		if pattern.Forward[i] != expected[i] || pattern.Backward[i] != expected[i] {
			t.Errorf("Lane %d must be %s", i, expected[i])
		}
	}
	if pattern.Width() != 32 {
		t.Errorf("Default pattern width must be 32, but got %f", pattern.Width())
	}
	oneWay := LanePatternBuilder{NLanes: 2, OneWay: true, Sidewalks: true}.Build()
	if len(oneWay.Forward) != 3 || len(oneWay.Backward) != 1 || oneWay.Backward[0] != LANE_WALKING {
		t.Errorf("One way pattern must keep sidewalk on both sides, but got %v", oneWay)
	}
	rail := LanePatternBuilder{Rail: true}.Build()
	if !rail.IsRail() || rail.Width() != 18 {
		t.Errorf("Rail pattern must be two tracks 18 wide, but got %v", rail)
	}
	if pattern.IsRail() {
		t.Errorf("Street must not be rail")
	}
}

func TestLaneGeometry(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 200, 0)
	roadID := mustConnect(t, m, a, b, DefaultLanePatternBuilder().Build())
	road, _ := m.Road(roadID)
	drivable := road.DrivableLength()
	for _, laneID := range road.LaneIDs() {
		lane, _ := m.Lanes().Get(laneID)
		if math.Abs(lane.Length()-drivable) > 1e-6 {
			t.Errorf("Lane %d must be %f long, but got %f", laneID, drivable, lane.Length())
		}
		if math.Abs(lane.Points.First().Y-lane.Offset) > 1e-6 {
			t.Errorf("Lane %d must be offset by %f, but got %f", laneID, lane.Offset, lane.Points.First().Y)
		}
		switch lane.Direction {
		case LANE_FORWARD:
			if lane.Offset > 0 || lane.DepartureDir().X < 0 || lane.Src != a {
				t.Errorf("Forward lane %d must run on the right side from %d", laneID, a)
			}
		case LANE_BACKWARD:
			if lane.Offset < 0 || lane.DepartureDir().X > 0 || lane.Src != b {
				t.Errorf("Backward lane %d must run on the left side from %d", laneID, b)
			}
		}
	}
	// Sidewalks are the outermost lanes
	in, out, ok := road.Sidewalks(a, m.Lanes())
	if !ok {
		t.Fatal("Road must have sidewalks")
	}
	for _, id := range []LaneID{in, out} {
		lane, _ := m.Lanes().Get(id)
		if lane.Kind != LANE_WALKING || math.Abs(math.Abs(lane.Offset)-(road.Width-lane.Width)/2) > epsilon {
			t.Errorf("Sidewalk %d must be on the road edge, but got offset %f", id, lane.Offset)
		}
	}
}

func TestRoadDirections(t *testing.T) {
	m := newTestMap()
	a := mustIntersection(t, m, 0, 0)
	b := mustIntersection(t, m, 0, 100)
	roadID := mustConnect(t, m, a, b, drivingPattern(1))
	road, _ := m.Road(roadID)
	if road.DirFrom(a).Sub(r2.Point{Y: 1}).Norm() > epsilon || road.DirFrom(b).Sub(r2.Point{Y: -1}).Norm() > epsilon {
		t.Errorf("Road must depart north from %d and south from %d", a, b)
	}
	if other, ok := road.OtherEnd(a); !ok || other != b {
		t.Errorf("Other end of %d must be %d", a, b)
	}
	if _, ok := road.OtherEnd(IntersectionID(42)); ok {
		t.Errorf("Foreign intersection must not have other end")
	}
	p := road.StraightConnectionPoint(a)
	if math.Abs(p.X) > epsilon || p.Y <= 0 {
		t.Errorf("Straight connection point must lie on the road axis, but got %v", p)
	}
}
