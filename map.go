package roadnet

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// Building is an opaque footprint the road network must not overlap
type Building struct {
	ID        BuildingID
	Footprint orb.Ring
}

// Map owns the road network: intersections, roads, lanes, buildings and the spatial index over them.
// Every mutation keeps the index and derived data (interfaces, lane geometry, turns, traffic control) consistent
// before it returns. Map is not safe for concurrent use
type Map struct {
	intersections Intersections
	roads         Roads
	lanes         Lanes
	buildings     Buildings

	spatial *SpatialMap
	terrain Terrain
	control TrafficController
	logger  *slog.Logger

	world         orb.Bound
	defaultPolicy TurnPolicy
}

// DefaultWorldBound is the area covered by a map created without WithWorldBound
var DefaultWorldBound = orb.Bound{Min: orb.Point{-50000, -50000}, Max: orb.Point{50000, 50000}}

func (m *Map) String() string {
	return fmt.Sprintf(`
Road network:
	intersections: %d
	roads: %d
	lanes: %d
	buildings: %d
	world: %v
	`,
		m.intersections.Len(),
		m.roads.Len(),
		m.lanes.Len(),
		m.buildings.Len(),
		m.world,
	)
}

// NewMap creates an empty network
func NewMap(options ...func(*Map)) *Map {
	m := &Map{
		world:         DefaultWorldBound,
		control:       AutoTrafficControl{},
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		defaultPolicy: DefaultTurnPolicy(),
	}
	for _, option := range options {
		option(m)
	}
	if m.terrain == nil {
		m.terrain = FlatTerrain{Bound: m.world}
	}
	m.spatial = NewSpatialMap(m.world)
	return m
}

func WithWorldBound(world orb.Bound) func(*Map) {
	return func(m *Map) {
		m.world = world
	}
}

func WithTerrain(terrain Terrain) func(*Map) {
	return func(m *Map) {
		m.terrain = terrain
	}
}

func WithLogger(logger *slog.Logger) func(*Map) {
	return func(m *Map) {
		m.logger = logger
	}
}

func WithTrafficController(control TrafficController) func(*Map) {
	return func(m *Map) {
		m.control = control
	}
}

// WithTurnPolicy sets policy of newly created intersections
func WithTurnPolicy(policy TurnPolicy) func(*Map) {
	return func(m *Map) {
		m.defaultPolicy = policy
	}
}

func (m *Map) Intersections() *Intersections { return &m.intersections }
func (m *Map) Roads() *Roads                 { return &m.roads }
func (m *Map) Lanes() *Lanes                 { return &m.lanes }
func (m *Map) Buildings() *Buildings         { return &m.buildings }
func (m *Map) Spatial() *SpatialMap          { return m.spatial }
func (m *Map) Terrain() Terrain              { return m.terrain }

// Intersection returns intersection by identity
func (m *Map) Intersection(id IntersectionID) (*Intersection, error) {
	inter, ok := m.intersections.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "intersection %d", id)
	}
	return inter, nil
}

// Road returns road by identity
func (m *Map) Road(id RoadID) (*Road, error) {
	road, ok := m.roads.Get(id)
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "road %d", id)
	}
	return road, nil
}

// AddIntersection places a new intersection without roads
func (m *Map) AddIntersection(pos r3.Vector) (IntersectionID, error) {
	if !m.world.Contains(toOrb(xy(pos))) {
		return 0, errors.Wrapf(ErrGeometry, "position (%.2f, %.2f) is out of the world", pos.X, pos.Y)
	}
	id := m.intersections.Insert(func(id IntersectionID) *Intersection {
		return &Intersection{ID: id, Pos: pos, Policy: m.defaultPolicy, Light: LIGHT_AUTO}
	})
	inter, _ := m.intersections.Get(id)
	inter.UpdateTurns(&m.lanes, &m.roads)
	if err := m.spatial.Insert(OnInter(id), inter.BoundingCircle(&m.roads)); err != nil {
		m.intersections.Remove(id)
		return 0, errors.Wrap(err, "Can't add intersection")
	}
	return id, nil
}

// RemoveIntersection detaches and removes every attached road, then removes the intersection itself
func (m *Map) RemoveIntersection(id IntersectionID) error {
	inter, err := m.Intersection(id)
	if err != nil {
		return err
	}
	for _, roadID := range slices.Clone(inter.Roads) {
		if _, err := m.RemoveRoad(roadID); err != nil {
			return errors.Wrapf(err, "Can't detach road %d from intersection %d", roadID, id)
		}
	}
	m.spatial.Remove(OnInter(id))
	m.intersections.Remove(id)
	return nil
}

// RemoveRoad detaches road from both intersections and deletes it with its lanes
func (m *Map) RemoveRoad(id RoadID) (*Road, error) {
	road, err := m.Road(id)
	if err != nil {
		return nil, err
	}
	m.detachRoad(road)
	m.topologyChanged(road.Src, road.Dst)
	return road, nil
}

func (m *Map) detachRoad(road *Road) {
	for _, end := range []IntersectionID{road.Src, road.Dst} {
		if inter, ok := m.intersections.Get(end); ok {
			inter.RemoveRoad(road.ID)
		}
	}
	road.removeLanes(&m.lanes)
	m.spatial.Remove(OnRoad(road.ID))
	m.roads.Remove(road.ID)
}

// Connect builds a road between two existing intersections
func (m *Map) Connect(src, dst IntersectionID, pattern LanePattern, segment RoadSegmentKind) (RoadID, error) {
	srcInter, err := m.Intersection(src)
	if err != nil {
		return 0, err
	}
	dstInter, err := m.Intersection(dst)
	if err != nil {
		return 0, err
	}
	if src == dst {
		return 0, errors.Wrapf(ErrInvalidRequest, "can't connect intersection %d to itself", src)
	}
	points, err := GeneratePoints(srcInter.Pos, dstInter.Pos, segment, pattern.IsRail(), m.terrain)
	if err != nil {
		return 0, errors.Wrap(err, "Can't generate road points")
	}
	sk := newSketch(m)
	newRoad := sk.addRoad(src, dst, points, pattern.Width())
	if err := sk.validate(src, dst); err != nil {
		return 0, err
	}
	return m.insertRoad(src, dst, sk.roads[newRoad].points, pattern, segment)
}

// insertRoad stores a road with given centerline and attaches it. Geometry must be validated by the caller
func (m *Map) insertRoad(src, dst IntersectionID, points Polyline3, pattern LanePattern, segment RoadSegmentKind) (RoadID, error) {
	id := m.roads.Insert(func(id RoadID) *Road {
		return &Road{
			ID:      id,
			Src:     src,
			Dst:     dst,
			Points:  points,
			Segment: segment,
			Width:   pattern.Width(),
			Pattern: pattern,
		}
	})
	road, _ := m.roads.Get(id)
	road.createLanes(&m.lanes)
	srcInter, _ := m.intersections.Get(src)
	dstInter, _ := m.intersections.Get(dst)
	srcInter.AddRoad(id, &m.roads, m.logger)
	dstInter.AddRoad(id, &m.roads, m.logger)
	if err := m.spatial.Insert(OnRoad(id), road.Shape()); err != nil {
		m.detachRoad(road)
		m.topologyChanged(src, dst)
		return 0, errors.Wrap(err, "Can't index road")
	}
	m.topologyChanged(src, dst)
	return id, nil
}

// MakeConnection connects two projections, creating intersections on ground and splitting roads where needed.
// The whole change is planned first: if any affected road would lose its drivable length nothing is mutated
func (m *Map) MakeConnection(from, to MapProject, inter *r2.Point, pattern LanePattern) (RoadID, error) {
	fromPos, err := m.resolvePosition(from)
	if err != nil {
		return 0, err
	}
	toPos, err := m.resolvePosition(to)
	if err != nil {
		return 0, err
	}
	if from.Kind == to.Kind && !from.Kind.IsGround() {
		return 0, errors.Wrapf(ErrInvalidRequest, "can't connect %s to itself", from.Kind)
	}
	segment := StraightSegment()
	if inter != nil {
		segment = SegmentFromElbow(xy(fromPos), xy(toPos), *inter)
	}
	points, err := GeneratePoints(fromPos, toPos, segment, pattern.IsRail(), m.terrain)
	if err != nil {
		return 0, errors.Wrap(err, "Can't generate road points")
	}

	sk := newSketch(m)
	fromNode, err := sk.node(from, fromPos)
	if err != nil {
		return 0, err
	}
	toNode, err := sk.node(to, toPos)
	if err != nil {
		return 0, err
	}
	sk.addRoad(fromNode, toNode, points, pattern.Width())
	if err := sk.validate(); err != nil {
		return 0, err
	}

	src, err := m.materialize(from, fromPos)
	if err != nil {
		return 0, err
	}
	dst, err := m.materialize(to, toPos)
	if err != nil {
		return 0, err
	}
	if src == dst {
		return 0, errors.Wrapf(ErrInvalidRequest, "both ends resolve to intersection %d", src)
	}
	srcInter, _ := m.intersections.Get(src)
	dstInter, _ := m.intersections.Get(dst)
	points, err = GeneratePoints(srcInter.Pos, dstInter.Pos, segment, pattern.IsRail(), m.terrain)
	if err != nil {
		return 0, errors.Wrap(err, "Can't generate road points")
	}
	return m.insertRoad(src, dst, points, pattern, segment)
}

// resolvePosition returns exact position a projection would be connected at
func (m *Map) resolvePosition(proj MapProject) (r3.Vector, error) {
	switch proj.Kind.Type {
	case PROJECT_GROUND:
		return proj.Pos, nil
	case PROJECT_INTER:
		id, _ := proj.Kind.Inter()
		inter, err := m.Intersection(id)
		if err != nil {
			return r3.Vector{}, err
		}
		return inter.Pos, nil
	case PROJECT_ROAD:
		id, _ := proj.Kind.Road()
		road, err := m.Road(id)
		if err != nil {
			return r3.Vector{}, err
		}
		pos, _, _ := road.Points.ProjectSegmentDir(proj.Pos)
		return pos, nil
	}
	return r3.Vector{}, errors.Wrapf(ErrInvalidRequest, "can't connect to %s", proj.Kind)
}

func (m *Map) materialize(proj MapProject, pos r3.Vector) (IntersectionID, error) {
	switch proj.Kind.Type {
	case PROJECT_INTER:
		id, _ := proj.Kind.Inter()
		return id, nil
	case PROJECT_ROAD:
		id, _ := proj.Kind.Road()
		return m.SplitRoad(id, pos)
	}
	return m.AddIntersection(pos)
}

// SplitRoad cuts a road in two at the projection of pos and joins the halves with a new intersection
func (m *Map) SplitRoad(id RoadID, pos r3.Vector) (IntersectionID, error) {
	road, err := m.Road(id)
	if err != nil {
		return 0, err
	}
	sk := newSketch(m)
	node, err := sk.split(id, pos)
	if err != nil {
		return 0, err
	}
	if err := sk.validate(node, road.Src, road.Dst); err != nil {
		return 0, err
	}
	splitPos := sk.positions[node]
	first, second := sk.roads[sk.splits[id][0]], sk.roads[sk.splits[id][1]]

	m.detachRoad(road)
	interID, err := m.AddIntersection(splitPos)
	if err != nil {
		m.logger.Error("split intersection rejected", slog.Int64("road", int64(id)), slog.String("error", err.Error()))
		return 0, err
	}
	halves := []struct {
		src, dst IntersectionID
		points   Polyline3
	}{
		{road.Src, interID, first.points},
		{interID, road.Dst, second.points},
	}
	for _, half := range halves {
		segment := PolylineSegment(interiorXY(half.points))
		if _, err := m.insertRoad(half.src, half.dst, half.points, road.Pattern, segment); err != nil {
			return 0, errors.Wrapf(err, "Can't insert half of road %d", id)
		}
	}
	m.logger.Debug("road split", slog.Int64("road", int64(id)), slog.Int64("intersection", int64(interID)))
	return interID, nil
}

func interiorXY(points Polyline3) []r2.Point {
	if len(points) <= 2 {
		return nil
	}
	out := make([]r2.Point, 0, len(points)-2)
	for _, p := range points[1 : len(points)-1] {
		out = append(out, xy(p))
	}
	return out
}

// MoveIntersection moves an intersection and regenerates every attached road
func (m *Map) MoveIntersection(id IntersectionID, pos r3.Vector) error {
	inter, err := m.Intersection(id)
	if err != nil {
		return err
	}
	if !m.world.Contains(toOrb(xy(pos))) {
		return errors.Wrapf(ErrGeometry, "position (%.2f, %.2f) is out of the world", pos.X, pos.Y)
	}
	sk := newSketch(m)
	sk.positions[id] = pos
	affected := []IntersectionID{id}
	for _, roadID := range inter.Roads {
		road, _ := m.roads.Get(roadID)
		srcPos, dstPos := m.endPositions(road)
		if road.Src == id {
			srcPos = pos
		} else {
			dstPos = pos
		}
		points, err := GeneratePoints(srcPos, dstPos, road.Segment, road.IsRail(), m.terrain)
		if err != nil {
			return errors.Wrapf(err, "Can't regenerate road %d", roadID)
		}
		sk.replace(roadID, points)
		other, _ := road.OtherEnd(id)
		affected = append(affected, other)
	}
	if err := sk.validate(affected...); err != nil {
		return err
	}
	inter.Pos = pos
	for roadID, planned := range sk.roads {
		if road, ok := m.roads.Get(roadID); ok {
			road.Points = planned.points
		}
	}
	m.topologyChanged(affected...)
	return nil
}

func (m *Map) endPositions(road *Road) (r3.Vector, r3.Vector) {
	srcInter, _ := m.intersections.Get(road.Src)
	dstInter, _ := m.intersections.Get(road.Dst)
	return srcInter.Pos, dstInter.Pos
}

// SetTurnPolicy changes turn policy of an intersection and rebuilds everything depending on it
func (m *Map) SetTurnPolicy(id IntersectionID, policy TurnPolicy) error {
	inter, err := m.Intersection(id)
	if err != nil {
		return err
	}
	sk := newSketch(m)
	sk.policies[id] = policy
	if err := sk.validate(id); err != nil {
		return err
	}
	inter.Policy = policy
	m.topologyChanged(id)
	return nil
}

// SetLightPolicy changes traffic control mode of an intersection
func (m *Map) SetLightPolicy(id IntersectionID, light LightPolicy) error {
	inter, err := m.Intersection(id)
	if err != nil {
		return err
	}
	inter.Light = light
	m.control.Apply(inter, &m.lanes, &m.roads)
	return nil
}

// AddBuilding registers a building footprint
func (m *Map) AddBuilding(footprint orb.Ring) (BuildingID, error) {
	if len(footprint) < 3 {
		return 0, errors.Wrap(ErrInvalidRequest, "building footprint needs at least three points")
	}
	id := m.buildings.Insert(func(id BuildingID) *Building {
		return &Building{ID: id, Footprint: footprint}
	})
	if err := m.spatial.Insert(OnBuilding(id), Polygon(footprint)); err != nil {
		m.buildings.Remove(id)
		return 0, errors.Wrap(err, "Can't add building")
	}
	return id, nil
}

// RemoveBuilding deletes a building
func (m *Map) RemoveBuilding(id BuildingID) error {
	if _, ok := m.buildings.Remove(id); !ok {
		return errors.Wrapf(ErrNotFound, "building %d", id)
	}
	m.spatial.Remove(OnBuilding(id))
	return nil
}

// Project classifies a position against the network. Intersections win over roads, roads over buildings.
// A road hit is moved onto the road centerline
func (m *Map) Project(pos r3.Vector, tolerance float64, filter ProjectFilter) MapProject {
	p := xy(pos)
	hits := m.spatial.QueryAround(p, tolerance, filter)
	best := Ground()
	bestDist := math.Inf(1)
	for _, kind := range hits {
		if best.Type != PROJECT_GROUND && kind.Type > best.Type {
			break
		}
		var d float64
		switch kind.Type {
		case PROJECT_INTER:
			id, _ := kind.Inter()
			inter, _ := m.intersections.Get(id)
			d = xy(inter.Pos).Sub(p).Norm()
		case PROJECT_ROAD:
			id, _ := kind.Road()
			road, _ := m.roads.Get(id)
			d = road.Points.DistanceTo(p)
		default:
			d = 0
		}
		if best.Type == PROJECT_GROUND || d < bestDist {
			best, bestDist = kind, d
		}
	}
	switch best.Type {
	case PROJECT_INTER:
		id, _ := best.Inter()
		inter, _ := m.intersections.Get(id)
		return MapProject{Pos: inter.Pos, Kind: best}
	case PROJECT_ROAD:
		id, _ := best.Road()
		road, _ := m.roads.Get(id)
		onRoad, _, _ := road.Points.ProjectSegmentDir(pos)
		return MapProject{Pos: onRoad, Kind: best}
	case PROJECT_BUILDING:
		return MapProject{Pos: pos, Kind: best}
	}
	return GroundProject(pos)
}

// topologyChanged restores every derived invariant around given intersections:
// interfaces, lane geometry, turns, traffic control and spatial entries
func (m *Map) topologyChanged(ids ...IntersectionID) {
	changed := make([]IntersectionID, 0, len(ids))
	for _, id := range ids {
		if m.intersections.Contains(id) && !slices.Contains(changed, id) {
			changed = append(changed, id)
		}
	}

	var touched []RoadID
	for _, id := range changed {
		inter, _ := m.intersections.Get(id)
		inter.checkDeadRoads(&m.roads, m.logger)
		inter.sortRoads(&m.roads)
		inter.UpdateInterfaceRadius(&m.roads, m.logger)
		for _, roadID := range inter.Roads {
			if !slices.Contains(touched, roadID) {
				touched = append(touched, roadID)
			}
		}
	}

	turnsAt := slices.Clone(changed)
	for _, roadID := range touched {
		road, _ := m.roads.Get(roadID)
		road.genLanes(&m.lanes)
		if err := m.spatial.Update(OnRoad(roadID), road.Shape()); err != nil {
			m.logger.Error("can't index road", slog.Int64("road", int64(roadID)), slog.String("error", err.Error()))
		}
		for _, end := range []IntersectionID{road.Src, road.Dst} {
			if !slices.Contains(turnsAt, end) {
				turnsAt = append(turnsAt, end)
			}
		}
	}

	for _, id := range turnsAt {
		inter, ok := m.intersections.Get(id)
		if !ok {
			continue
		}
		inter.UpdateTurns(&m.lanes, &m.roads)
		m.control.Apply(inter, &m.lanes, &m.roads)
		if err := m.spatial.Update(OnInter(id), inter.BoundingCircle(&m.roads)); err != nil {
			m.logger.Error("can't index intersection", slog.Int64("intersection", int64(id)), slog.String("error", err.Error()))
		}
	}

	for _, roadID := range touched {
		road, _ := m.roads.Get(roadID)
		if err := road.CheckDrivable(); err != nil {
			m.logger.Error("road is not drivable", slog.Int64("road", int64(roadID)), slog.String("error", err.Error()))
		}
	}
}

// CheckConsistency walks every entity and verifies cross references between them.
// It fails with ErrTopology on the first dangling reference
func (m *Map) CheckConsistency() error {
	for id, inter := range m.intersections.All() {
		for _, roadID := range inter.Roads {
			road, ok := m.roads.Get(roadID)
			if !ok {
				return errors.Wrapf(ErrTopology, "intersection %d references missing road %d", id, roadID)
			}
			if road.Src != id && road.Dst != id {
				return errors.Wrapf(ErrTopology, "intersection %d references foreign road %d", id, roadID)
			}
		}
		for _, turn := range inter.Turns() {
			if !m.lanes.Contains(turn.ID.Src) || !m.lanes.Contains(turn.ID.Dst) {
				return errors.Wrapf(ErrTopology, "turn %d -> %d at intersection %d references missing lane", turn.ID.Src, turn.ID.Dst, id)
			}
		}
	}
	for id, road := range m.roads.All() {
		for _, end := range []IntersectionID{road.Src, road.Dst} {
			inter, ok := m.intersections.Get(end)
			if !ok {
				return errors.Wrapf(ErrTopology, "road %d references missing intersection %d", id, end)
			}
			if !slices.Contains(inter.Roads, id) {
				return errors.Wrapf(ErrTopology, "road %d is not attached to intersection %d", id, end)
			}
		}
		for _, laneID := range road.LaneIDs() {
			lane, ok := m.lanes.Get(laneID)
			if !ok || lane.Parent != id {
				return errors.Wrapf(ErrTopology, "road %d references missing lane %d", id, laneID)
			}
		}
	}
	return nil
}
