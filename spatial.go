package roadnet

import (
	"fmt"
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/pkg/errors"
)

type ProjectKindType uint16

const (
	PROJECT_GROUND = ProjectKindType(iota)
	PROJECT_INTER
	PROJECT_ROAD
	PROJECT_BUILDING
)

func (iotaIdx ProjectKindType) String() string {
	return [...]string{"ground", "intersection", "road", "building"}[iotaIdx]
}

// ProjectKind classifies what lies under a queried position: open ground, an intersection, a road or a building.
// It is comparable, so two classifications can be checked for equality directly.
type ProjectKind struct {
	Type ProjectKindType
	id   int64
}

func Ground() ProjectKind { return ProjectKind{Type: PROJECT_GROUND} }
func OnInter(id IntersectionID) ProjectKind { return ProjectKind{Type: PROJECT_INTER, id: int64(id)} }
func OnRoad(id RoadID) ProjectKind { return ProjectKind{Type: PROJECT_ROAD, id: int64(id)} }
func OnBuilding(id BuildingID) ProjectKind { return ProjectKind{Type: PROJECT_BUILDING, id: int64(id)} }
func (k ProjectKind) IsGround() bool { return k.Type == PROJECT_GROUND }
func (k ProjectKind) Inter() (IntersectionID, bool) { return IntersectionID(k.id), k.Type == PROJECT_INTER }
func (k ProjectKind) Road() (RoadID, bool) { return RoadID(k.id), k.Type == PROJECT_ROAD }
func (k ProjectKind) Building() (BuildingID, bool) { return BuildingID(k.id), k.Type == PROJECT_BUILDING }

func (k ProjectKind) String() string {
	if k.Type == PROJECT_GROUND {
		return k.Type.String()
	}
	return fmt.Sprintf("%s(%d)", k.Type, k.id)
}

func (k ProjectKind) matches(filter ProjectFilter) bool {
	switch k.Type {
	case PROJECT_INTER:
		return filter&FILTER_INTER != 0
	case PROJECT_ROAD:
		return filter&FILTER_ROAD != 0
	case PROJECT_BUILDING:
		return filter&FILTER_BUILDING != 0
	default:
		return false
	}
}

// ProjectFilter restricts spatial queries to certain kinds of entities
type ProjectFilter uint8

const (
	FILTER_INTER = ProjectFilter(1 << iota)
	FILTER_ROAD
	FILTER_BUILDING

	FILTER_ALL = FILTER_INTER | FILTER_ROAD | FILTER_BUILDING
)

// MapProject is the result of classifying a position against the network. Never persisted.
type MapProject struct {
	Pos  r3.Vector
	Kind ProjectKind
}

// GroundProject returns projection onto open ground
func GroundProject(pos r3.Vector) MapProject {
	return MapProject{Pos: pos, Kind: Ground()}
}

type spatialItem struct {
	kind   ProjectKind
	shape  Shape
	center orb.Point
}

func (it *spatialItem) Point() orb.Point {
	return it.center
}

// SpatialMap indexes footprints of intersections, roads and buildings.
// Candidates are looked up by footprint centers in a quadtree; the query bound is padded
// by the largest half extent ever inserted so no overlapping footprint is missed.
type SpatialMap struct {
	tree      *quadtree.Quadtree
	items     map[ProjectKind]*spatialItem
	maxExtent float64
}

// NewSpatialMap creates an index covering given world bound
func NewSpatialMap(world orb.Bound) *SpatialMap {
	return &SpatialMap{
		tree:  quadtree.New(world),
		items: make(map[ProjectKind]*spatialItem),
	}
}

// Insert adds footprint of an entity. Existing footprint of the same entity is replaced
func (sm *SpatialMap) Insert(kind ProjectKind, shape Shape) error {
	if kind.IsGround() {
		return errors.Wrap(ErrInvalidRequest, "ground can not be indexed")
	}
	sm.Remove(kind)
	b := shape.Bound()
	item := &spatialItem{kind: kind, shape: shape, center: b.Center()}
	if err := sm.tree.Add(item); err != nil {
		return errors.Wrapf(err, "Can't index %s", kind)
	}
	sm.items[kind] = item
	sm.maxExtent = math.Max(sm.maxExtent, math.Max(b.Max[0]-b.Min[0], b.Max[1]-b.Min[1])/2)
	return nil
}

// Update moves footprint of an already indexed entity
func (sm *SpatialMap) Update(kind ProjectKind, shape Shape) error {
	return sm.Insert(kind, shape)
}

// Remove deletes footprint of an entity. Returns false if the entity was not indexed
func (sm *SpatialMap) Remove(kind ProjectKind) bool {
	item, ok := sm.items[kind]
	if !ok {
		return false
	}
	delete(sm.items, kind)
	return sm.tree.Remove(item, func(p orb.Pointer) bool {
		return p.(*spatialItem).kind == kind
	})
}

// Shape returns indexed footprint of an entity
func (sm *SpatialMap) Shape(kind ProjectKind) (Shape, bool) {
	item, ok := sm.items[kind]
	if !ok {
		return Shape{}, false
	}
	return item.shape, true
}

// Len returns number of indexed entities
func (sm *SpatialMap) Len() int {
	return len(sm.items)
}

// Query returns every entity (of kinds allowed by filter) whose footprint intersects the shape.
// Result is ordered by kind and identity.
func (sm *SpatialMap) Query(shape Shape, filter ProjectFilter) []ProjectKind {
	candidates := sm.tree.InBound(nil, shape.Bound().Pad(sm.maxExtent))
	found := make([]ProjectKind, 0, len(candidates))
	for _, c := range candidates {
		item := c.(*spatialItem)
		if !item.kind.matches(filter) {
			continue
		}
		if item.shape.Intersects(shape) {
			found = append(found, item.kind)
		}
	}
	slices.SortFunc(found, func(a, b ProjectKind) int {
		if a.Type != b.Type {
			return int(a.Type) - int(b.Type)
		}
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return found
}

// QueryAround is a shorthand for querying a circle
func (sm *SpatialMap) QueryAround(center r2.Point, radius float64, filter ProjectFilter) []ProjectKind {
	return sm.Query(Circle(center, radius), filter)
}
