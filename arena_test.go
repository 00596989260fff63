package roadnet

import (
	"testing"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
)

func TestArenaStableIDs(t *testing.T) {
	var arena Arena[RoadID, string]
	a := arena.Insert(func(id RoadID) string { return "a" })
	b := arena.Insert(func(id RoadID) string { return "b" })
	if _, ok := arena.Remove(a); !ok {
		t.Errorf("Road %d must be removed", a)
	}
	c := arena.Insert(func(id RoadID) string { return "c" })
	if c == a || c == b {
		t.Errorf("Identities must never be reused, but got %d after %d and %d", c, a, b)
	}
	if _, ok := arena.Get(a); ok {
		t.Errorf("Stale identity %d must not be found", a)
	}
	if arena.Len() != 2 {
		t.Errorf("Arena must contain 2 values, but got %d", arena.Len())
	}
	keys := arena.Keys()
	if len(keys) != 2 || keys[0] != b || keys[1] != c {
		t.Errorf("Keys must be [%d %d], but got %v", b, c, keys)
	}
	seen := 0
	for id, v := range arena.All() {
		if v == "" || !arena.Contains(id) {
			t.Errorf("Unexpected entry %d: '%s'", id, v)
		}
		seen++
	}
	if seen != 2 {
		t.Errorf("Iteration must visit 2 values, but visited %d", seen)
	}
}

func TestSpatialMapQuery(t *testing.T) {
	sm := NewSpatialMap(orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}})
	if err := sm.Insert(OnInter(1), Circle(r2.Point{X: 0, Y: 0}, 10)); err != nil {
		t.Error(err)
		return
	}
	if err := sm.Insert(OnRoad(1), BoldLine([]r2.Point{{X: 0, Y: 0}, {X: 500, Y: 0}}, 8)); err != nil {
		t.Error(err)
		return
	}
	if err := sm.Insert(OnBuilding(1), Polygon(orb.Ring{{100, 100}, {200, 100}, {200, 200}, {100, 200}})); err != nil {
		t.Error(err)
		return
	}
	if err := sm.Insert(Ground(), Circle(r2.Point{}, 1)); err == nil {
		t.Errorf("Ground must not be indexed")
	}

	// Far from the road center, but within the road footprint: padding must still find it
	found := sm.QueryAround(r2.Point{X: 450, Y: 5}, 1, FILTER_ALL)
	if len(found) != 1 || found[0] != OnRoad(1) {
		t.Errorf("Query must find road 1 only, but got %v", found)
	}
	found = sm.QueryAround(r2.Point{X: 5, Y: 0}, 1, FILTER_ALL)
	if len(found) != 2 || found[0] != OnInter(1) || found[1] != OnRoad(1) {
		t.Errorf("Query must find intersection then road, but got %v", found)
	}
	found = sm.QueryAround(r2.Point{X: 5, Y: 0}, 1, FILTER_ROAD)
	if len(found) != 1 || found[0] != OnRoad(1) {
		t.Errorf("Filter must keep roads only, but got %v", found)
	}
	found = sm.QueryAround(r2.Point{X: 150, Y: 150}, 1, FILTER_ALL)
	if len(found) != 1 || found[0] != OnBuilding(1) {
		t.Errorf("Point inside footprint must hit building, but got %v", found)
	}

	if !sm.Remove(OnRoad(1)) {
		t.Errorf("Road must be removed")
	}
	if sm.Remove(OnRoad(1)) {
		t.Errorf("Road must not be removed twice")
	}
	found = sm.QueryAround(r2.Point{X: 450, Y: 5}, 1, FILTER_ALL)
	if len(found) != 0 {
		t.Errorf("Removed road must not be found, but got %v", found)
	}
	if sm.Len() != 2 {
		t.Errorf("Index must keep 2 entities, but got %d", sm.Len())
	}
}

func TestSpatialMapUpdate(t *testing.T) {
	sm := NewSpatialMap(orb.Bound{Min: orb.Point{-1000, -1000}, Max: orb.Point{1000, 1000}})
	if err := sm.Insert(OnInter(7), Circle(r2.Point{X: 0, Y: 0}, 10)); err != nil {
		t.Error(err)
		return
	}
	if err := sm.Update(OnInter(7), Circle(r2.Point{X: 300, Y: 300}, 10)); err != nil {
		t.Error(err)
		return
	}
	if found := sm.QueryAround(r2.Point{}, 1, FILTER_ALL); len(found) != 0 {
		t.Errorf("Old footprint must be dropped, but got %v", found)
	}
	if found := sm.QueryAround(r2.Point{X: 300, Y: 300}, 1, FILTER_ALL); len(found) != 1 {
		t.Errorf("New footprint must be found, but got %v", found)
	}
	if sm.Len() != 1 {
		t.Errorf("Index must contain exactly one entity, but got %d", sm.Len())
	}
}
