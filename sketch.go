package roadnet

import (
	"slices"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// sketch plans a topology change on top of the current map without mutating it.
// Planned roads and intersections get negative identities
type sketch struct {
	m *Map
	// Added or replaced roads. A nil entry marks a removed road
	roads     map[RoadID]*sketchRoad
	positions map[IntersectionID]r3.Vector
	policies  map[IntersectionID]TurnPolicy
	splits    map[RoadID][2]RoadID
	affected  []IntersectionID
	lastID    int64
}

type sketchRoad struct {
	src    IntersectionID
	dst    IntersectionID
	points Polyline3
	width  float64
}

func (r *sketchRoad) dirFrom(id IntersectionID) r2.Point {
	if id == r.src {
		return r.points.FirstDir()
	}
	return r.points.LastDir().Mul(-1)
}

type roadEnd struct {
	road  RoadID
	inter IntersectionID
}

func newSketch(m *Map) *sketch {
	return &sketch{
		m:         m,
		roads:     make(map[RoadID]*sketchRoad),
		positions: make(map[IntersectionID]r3.Vector),
		policies:  make(map[IntersectionID]TurnPolicy),
		splits:    make(map[RoadID][2]RoadID),
	}
}

func (s *sketch) nextID() int64 {
	s.lastID--
	return s.lastID
}

func (s *sketch) touch(ids ...IntersectionID) {
	for _, id := range ids {
		if !slices.Contains(s.affected, id) {
			s.affected = append(s.affected, id)
		}
	}
}

// addRoad plans a new road
func (s *sketch) addRoad(src, dst IntersectionID, points Polyline3, width float64) RoadID {
	id := RoadID(s.nextID())
	s.roads[id] = &sketchRoad{src: src, dst: dst, points: points, width: width}
	s.touch(src, dst)
	return id
}

// replace plans new centerline of an existing road
func (s *sketch) replace(id RoadID, points Polyline3) {
	road, ok := s.m.roads.Get(id)
	if !ok {
		return
	}
	s.roads[id] = &sketchRoad{src: road.Src, dst: road.Dst, points: points, width: road.Width}
	s.touch(road.Src, road.Dst)
}

// node resolves a projection into a (possibly planned) intersection
func (s *sketch) node(proj MapProject, pos r3.Vector) (IntersectionID, error) {
	switch proj.Kind.Type {
	case PROJECT_INTER:
		id, _ := proj.Kind.Inter()
		s.touch(id)
		return id, nil
	case PROJECT_ROAD:
		id, _ := proj.Kind.Road()
		return s.split(id, pos)
	}
	if !s.m.world.Contains(toOrb(xy(pos))) {
		return 0, errors.Wrapf(ErrGeometry, "position (%.2f, %.2f) is out of the world", pos.X, pos.Y)
	}
	id := IntersectionID(s.nextID())
	s.positions[id] = pos
	s.touch(id)
	return id, nil
}

// split plans cutting a road in two halves joined by a planned intersection
func (s *sketch) split(id RoadID, pos r3.Vector) (IntersectionID, error) {
	road, ok := s.m.roads.Get(id)
	if !ok {
		return 0, errors.Wrapf(ErrNotFound, "road %d", id)
	}
	if _, ok := s.splits[id]; ok {
		return 0, errors.Wrapf(ErrInvalidRequest, "road %d is already split", id)
	}
	at, along, _ := road.Points.ProjectSegmentDir(pos)
	length := road.Length()
	if along <= epsilon || along >= length-epsilon {
		return 0, errors.Wrapf(ErrInvalidRequest, "split point of road %d lies on its end", id)
	}
	first := road.Points.Cut(0, along)
	second := road.Points.Cut(along, length)
	first[len(first)-1] = at
	second[0] = at

	node := IntersectionID(s.nextID())
	s.positions[node] = at
	s.roads[id] = nil
	a := s.addRoad(road.Src, node, first, road.Width)
	b := s.addRoad(node, road.Dst, second, road.Width)
	s.splits[id] = [2]RoadID{a, b}
	return node, nil
}

func (s *sketch) road(id RoadID) (*sketchRoad, bool) {
	if r, ok := s.roads[id]; ok {
		return r, r != nil
	}
	road, ok := s.m.roads.Get(id)
	if !ok {
		return nil, false
	}
	return &sketchRoad{src: road.Src, dst: road.Dst, points: road.Points, width: road.Width}, true
}

func (s *sketch) policy(id IntersectionID) TurnPolicy {
	if p, ok := s.policies[id]; ok {
		return p
	}
	if inter, ok := s.m.intersections.Get(id); ok {
		return inter.Policy
	}
	return s.m.defaultPolicy
}

// incident returns roads meeting at the node after the planned change, sorted by angle
func (s *sketch) incident(id IntersectionID) []RoadID {
	var out []RoadID
	if inter, ok := s.m.intersections.Get(id); ok {
		for _, roadID := range inter.Roads {
			if _, ok := s.road(roadID); ok {
				out = append(out, roadID)
			}
		}
	}
	for roadID, r := range s.roads {
		if r != nil && (r.src == id || r.dst == id) && !slices.Contains(out, roadID) {
			out = append(out, roadID)
		}
	}
	slices.Sort(out)
	sort.SliceStable(out, func(i, j int) bool {
		ri, _ := s.road(out[i])
		rj, _ := s.road(out[j])
		return pseudoAngle(ri.dirFrom(id)) < pseudoAngle(rj.dirFrom(id))
	})
	return out
}

// validate simulates interfaces at affected nodes (and extra ones) and checks that
// every road touching them keeps a strictly positive drivable length
func (s *sketch) validate(extra ...IntersectionID) error {
	s.touch(extra...)
	planned := make(map[roadEnd]float64)
	var roads []RoadID
	for _, node := range s.affected {
		ids := s.incident(node)
		entries := make([]interfaceEntry, len(ids))
		for i, roadID := range ids {
			r, _ := s.road(roadID)
			entries[i] = interfaceEntry{width: r.width, dir: r.dirFrom(node)}
		}
		interfaces := computeInterfaces(entries, s.policy(node).Roundabout)
		for i, roadID := range ids {
			planned[roadEnd{road: roadID, inter: node}] = interfaces[i]
			if !slices.Contains(roads, roadID) {
				roads = append(roads, roadID)
			}
		}
	}
	slices.Sort(roads)
	for _, roadID := range roads {
		r, _ := s.road(roadID)
		srcInterface := s.currentInterface(planned, roadID, r.src, r.width)
		dstInterface := s.currentInterface(planned, roadID, r.dst, r.width)
		if err := checkDrivable(r.points.Length(), srcInterface, dstInterface); err != nil {
			if roadID < 0 {
				return errors.Wrap(err, "planned road would not be drivable")
			}
			return errors.Wrapf(err, "road %d would not be drivable", roadID)
		}
	}
	return nil
}

func (s *sketch) currentInterface(planned map[roadEnd]float64, roadID RoadID, end IntersectionID, width float64) float64 {
	if v, ok := planned[roadEnd{road: roadID, inter: end}]; ok {
		return v
	}
	if road, ok := s.m.roads.Get(roadID); ok {
		return road.InterfaceFrom(end)
	}
	return EmptyInterface(width)
}
