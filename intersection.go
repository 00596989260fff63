package roadnet

import (
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
)

const (
	// MinInterface is the smallest trim distance of a road at any intersection
	MinInterface = 9.0
	// MaxPairInterface caps the trim needed to separate two adjacent roads
	MaxPairInterface = 30.0
	// DefaultIntersectionRadius is the footprint radius of an intersection without roads
	DefaultIntersectionRadius = 10.0
)

// Intersection is a point where roads meet
type Intersection struct {
	ID  IntersectionID
	Pos r3.Vector
	// Roads are sorted by pseudo-angle of their departure direction
	Roads  []RoadID
	Policy TurnPolicy
	Light  LightPolicy

	turns     []*Turn
	turnIndex map[TurnID]*Turn
}

// AddRoad attaches a road and restores angular order. Identities of roads no longer in the store are dropped
func (inter *Intersection) AddRoad(roadID RoadID, roads *Roads, logger *slog.Logger) {
	inter.Roads = append(inter.Roads, roadID)
	inter.checkDeadRoads(roads, logger)
	inter.sortRoads(roads)
}

// RemoveRoad detaches a road. Order of remaining roads is kept
func (inter *Intersection) RemoveRoad(roadID RoadID) {
	inter.Roads = slices.DeleteFunc(inter.Roads, func(id RoadID) bool { return id == roadID })
}

func (inter *Intersection) sortRoads(roads *Roads) {
	sort.SliceStable(inter.Roads, func(i, j int) bool {
		ri, _ := roads.Get(inter.Roads[i])
		rj, _ := roads.Get(inter.Roads[j])
		return pseudoAngle(ri.DirFrom(inter.ID)) < pseudoAngle(rj.DirFrom(inter.ID))
	})
}

func (inter *Intersection) checkDeadRoads(roads *Roads, logger *slog.Logger) {
	inter.Roads = slices.DeleteFunc(inter.Roads, func(id RoadID) bool {
		if roads.Contains(id) {
			return false
		}
		logger.Error("intersection references missing road", slog.Int64("intersection", int64(inter.ID)), slog.Int64("road", int64(id)))
		return true
	})
}

// EmptyInterface is the trim distance of a road of given width at an intersection without neighbours
func EmptyInterface(width float64) float64 {
	return math.Max(width*0.8, MinInterface)
}

// interfaceCalc returns trim distance both roads need so their pavements do not overlap
func interfaceCalc(width1, width2 float64, dir1, dir2 r2.Point) float64 {
	w := math.Hypot(width1*0.5, width2*0.5)
	d := clamp(dir1.Dot(dir2), 0, 1)
	sin := math.Sqrt(1 - d*d)
	return math.Min(w*1.1/sin, MaxPairInterface)
}

// roundaboutInterface is the least trim distance of every road at a roundabout
func roundaboutInterface(rb *Roundabout) float64 {
	return rb.Radius*1.1 + 5.0
}

type interfaceEntry struct {
	width float64
	dir   r2.Point
}

// computeInterfaces returns trim distance of every entry. Entries must be sorted by angle.
// The roundabout minimum is only applied when at least two roads meet
func computeInterfaces(entries []interfaceEntry, roundabout *Roundabout) []float64 {
	out := make([]float64, len(entries))
	for i, e := range entries {
		out[i] = EmptyInterface(e.width)
	}
	if len(entries) <= 1 {
		return out
	}
	if roundabout != nil {
		for i := range out {
			out[i] = math.Max(out[i], roundaboutInterface(roundabout))
		}
	}
	for i := range entries {
		j := (i + 1) % len(entries)
		minDist := interfaceCalc(entries[i].width, entries[j].width, entries[i].dir, entries[j].dir)
		out[i] = math.Max(out[i], minDist)
		out[j] = math.Max(out[j], minDist)
	}
	return out
}

// UpdateInterfaceRadius recomputes trim distance of every attached road at this intersection
func (inter *Intersection) UpdateInterfaceRadius(roads *Roads, logger *slog.Logger) {
	inter.checkDeadRoads(roads, logger)
	id := inter.ID

	for _, roadID := range inter.Roads {
		road, _ := roads.Get(roadID)
		road.SetInterface(id, EmptyInterface(road.Width))
	}

	if inter.IsRoundabout() {
		for _, roadID := range inter.Roads {
			road, _ := roads.Get(roadID)
			road.MaxInterface(id, roundaboutInterface(inter.Policy.Roundabout))
		}
	}

	if len(inter.Roads) <= 1 {
		return
	}

	for i := range inter.Roads {
		road1, _ := roads.Get(inter.Roads[i])
		road2, _ := roads.Get(inter.Roads[(i+1)%len(inter.Roads)])
		minDist := interfaceCalc(road1.Width, road2.Width, road1.DirFrom(id), road2.DirFrom(id))
		road1.MaxInterface(id, minDist)
		road2.MaxInterface(id, minDist)
	}
}

// InterfaceAt previews trim distance a road of given width leaving in direction dir would get here.
// Nothing is mutated
func (inter *Intersection) InterfaceAt(roads *Roads, width float64, dir r2.Point) float64 {
	maxInterface := EmptyInterface(width)
	for _, roadID := range inter.Roads {
		road, ok := roads.Get(roadID)
		if !ok {
			continue
		}
		maxInterface = math.Max(maxInterface, interfaceCalc(road.Width, width, road.DirFrom(inter.ID), dir))
	}
	// the new road would be the second one at least
	if inter.Policy.Roundabout != nil && len(inter.Roads) > 0 {
		maxInterface = math.Max(maxInterface, roundaboutInterface(inter.Policy.Roundabout))
	}
	return maxInterface
}

// IsRoundabout reports whether roundabout is configured and at least two roads meet
func (inter *Intersection) IsRoundabout() bool {
	return inter.Policy.Roundabout != nil && len(inter.Roads) > 1
}

// BoundingCircleRadius is the largest trim distance among attached roads
func (inter *Intersection) BoundingCircleRadius(roads *Roads) float64 {
	radius := 0.0
	found := false
	for _, roadID := range inter.Roads {
		if road, ok := roads.Get(roadID); ok {
			radius = math.Max(radius, road.InterfaceFrom(inter.ID))
			found = true
		}
	}
	if !found {
		return DefaultIntersectionRadius
	}
	return radius
}

// BoundingCircle returns intersection footprint
func (inter *Intersection) BoundingCircle(roads *Roads) Shape {
	return Circle(xy(inter.Pos), inter.BoundingCircleRadius(roads))
}

// UndirectedNeighbours returns intersections reachable through a single attached road
func (inter *Intersection) UndirectedNeighbours(roads *Roads) []IntersectionID {
	out := make([]IntersectionID, 0, len(inter.Roads))
	for _, roadID := range inter.Roads {
		road, ok := roads.Get(roadID)
		if !ok {
			continue
		}
		if other, ok := road.OtherEnd(inter.ID); ok {
			out = append(out, other)
		}
	}
	return out
}

// VehicleNeighbours returns intersections reachable by a vehicle through a single attached road
func (inter *Intersection) VehicleNeighbours(roads *Roads, lanes *Lanes) []IntersectionID {
	exits := inter.VehicleExits(roads, lanes)
	out := make([]IntersectionID, 0, len(exits))
	for _, road := range exits {
		if other, ok := road.OtherEnd(inter.ID); ok {
			out = append(out, other)
		}
	}
	return out
}

// VehicleExits returns roads which vehicles can leave the intersection by
func (inter *Intersection) VehicleExits(roads *Roads, lanes *Lanes) []*Road {
	out := make([]*Road, 0, len(inter.Roads))
	for _, roadID := range inter.Roads {
		road, ok := roads.Get(roadID)
		if !ok || !road.HasVehicleLanesFrom(inter.ID, lanes) {
			continue
		}
		out = append(out, road)
	}
	return out
}

// UpdateTurns replaces the whole turn set by the one derived from current topology
func (inter *Intersection) UpdateTurns(lanes *Lanes, roads *Roads) {
	specs := inter.Policy.GenerateTurns(inter, lanes, roads)
	inter.turns = make([]*Turn, 0, len(specs))
	inter.turnIndex = make(map[TurnID]*Turn, len(specs))
	for _, spec := range specs {
		if _, ok := inter.turnIndex[spec.ID]; ok {
			continue
		}
		turn := &Turn{ID: spec.ID, Kind: spec.Kind}
		turn.makePoints(lanes, inter.ID)
		inter.turns = append(inter.turns, turn)
		inter.turnIndex[spec.ID] = turn
	}
	slices.SortFunc(inter.turns, func(a, b *Turn) int {
		switch {
		case a.ID.less(b.ID):
			return -1
		case b.ID.less(a.ID):
			return 1
		}
		return 0
	})
}

// Turns returns every turn ordered by identity
func (inter *Intersection) Turns() []*Turn {
	return inter.turns
}

// FindTurn looks turn up by identity
func (inter *Intersection) FindTurn(id TurnID) (*Turn, bool) {
	turn, ok := inter.turnIndex[id]
	return turn, ok
}

// TurnsFrom returns turns which can be taken from given lane. Bidirectional turns ending at the lane are walked backward
func (inter *Intersection) TurnsFrom(lane LaneID) []TurnTraversal {
	var out []TurnTraversal
	for _, turn := range inter.turns {
		if turn.ID.Src == lane {
			out = append(out, TurnTraversal{ID: turn.ID, Dir: TRAVERSE_FORWARD})
		} else if turn.ID.Bidirectional && turn.ID.Dst == lane {
			out = append(out, TurnTraversal{ID: turn.ID, Dir: TRAVERSE_BACKWARD})
		}
	}
	return out
}

// TurnsTo returns turns which lead to given lane
func (inter *Intersection) TurnsTo(lane LaneID) []TurnTraversal {
	var out []TurnTraversal
	for _, turn := range inter.turns {
		if turn.ID.Dst == lane {
			out = append(out, TurnTraversal{ID: turn.ID, Dir: TRAVERSE_FORWARD})
		} else if turn.ID.Bidirectional && turn.ID.Src == lane {
			out = append(out, TurnTraversal{ID: turn.ID, Dir: TRAVERSE_BACKWARD})
		}
	}
	return out
}

// TurnTraversal is a turn together with direction it is walked in
type TurnTraversal struct {
	ID  TurnID
	Dir TraverseDirection
}
