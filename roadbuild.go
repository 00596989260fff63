package roadnet

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/golang/geo/s1"
)

type Tool uint16

const (
	TOOL_HAND = Tool(iota + 1)
	TOOL_ROADBUILD
	TOOL_ROADBUILD_CURVED
)

func (iotaIdx Tool) String() string {
	return [...]string{"hand", "roadbuild", "roadbuild_curved"}[iotaIdx-1]
}

func (tool Tool) IsRoadbuild() bool {
	return tool == TOOL_ROADBUILD || tool == TOOL_ROADBUILD_CURVED
}

type BuildStateType uint16

const (
	BUILD_IDLE = BuildStateType(iota + 1)
	// Start point chosen, next point is the end
	BUILD_PENDING_START
	// Start point chosen, next point on ground is the interpolation point
	BUILD_PENDING_START_CURVED
	// Start and interpolation points chosen, next point is the end
	BUILD_PENDING_INTERPOLATED
	// Both ends chosen on the network, pointer moves the elbow
	BUILD_PENDING_ELBOW
)

func (iotaIdx BuildStateType) String() string {
	return [...]string{"idle", "pending_start", "pending_start_curved", "pending_interpolated", "pending_elbow"}[iotaIdx-1]
}

// BuildState is current step of road drawing
type BuildState struct {
	Type BuildStateType
	// Start is the first chosen point
	Start MapProject
	// End is the second chosen point (BUILD_PENDING_ELBOW)
	End MapProject
	// InterPoint is the chosen interpolation point (BUILD_PENDING_INTERPOLATED)
	InterPoint r2.Point
}

// Input is one query of the interactive layer
type Input struct {
	// Cursor is the ground position under the pointer. Nil when the pointer is off the world
	Cursor        *r3.Vector
	CameraHeight  float64
	Select        bool
	Cancel        bool
	NoSnapping    bool
	UpElevation   bool
	DownElevation bool
}

// Frame is result of a single query. It is recomputed on every query and never reused
type Frame struct {
	State          BuildState
	Projection     MapProject
	Valid          bool
	Preview        Polyline3
	Pylons         []PylonPosition
	StraightPoints []r3.Vector
	// Candidate is the connection which would be requested on select
	Candidate *ConnectionRequest
	Committed bool
}

const (
	GridSize           = 20.0
	MinConnectionDist  = 10.0
	MaxTurnAngle       = 30 * s1.Degree
	MaxRailTurnAngle   = 0 * s1.Degree
	HeightOffsetStep   = 5.0
	MaxHeightOffset    = 100.0
	elevationBandWidth = 1.0
)

// RoadBuild validates candidate road segments while they are being drawn
type RoadBuild struct {
	Pattern      LanePatternBuilder
	SnapToGrid   bool
	SnapToAngle  bool
	HeightOffset float64

	state          BuildState
	straightPoints []r3.Vector
}

// NewRoadBuild creates idle validator drawing roads of given pattern
func NewRoadBuild(pattern LanePatternBuilder) *RoadBuild {
	return &RoadBuild{Pattern: pattern, state: BuildState{Type: BUILD_IDLE}}
}

// State returns current build state
func (rb *RoadBuild) State() BuildState {
	return rb.state
}

// Reset drops any chosen point
func (rb *RoadBuild) Reset() {
	rb.state = BuildState{Type: BUILD_IDLE}
}

// Update runs the validation pipeline for one query. Committed candidates are pushed to the queue, the map is never mutated
func (rb *RoadBuild) Update(m *Map, tool Tool, in Input, q *CommandQueue) Frame {
	if rb.state.Type == 0 {
		rb.Reset()
	}
	if !tool.IsRoadbuild() {
		rb.Reset()
		rb.HeightOffset = 0
		return Frame{State: rb.state}
	}
	if in.Cancel && rb.state.Type != BUILD_IDLE {
		rb.Reset()
	}
	if in.UpElevation {
		rb.HeightOffset = math.Min(rb.HeightOffset+HeightOffsetStep, MaxHeightOffset)
	}
	if in.DownElevation {
		rb.HeightOffset = math.Max(rb.HeightOffset-HeightOffsetStep, 0)
	}
	if in.Cursor == nil {
		return Frame{State: rb.state}
	}
	unproj := *in.Cursor

	mousepos, ok := rb.snap(m, unproj)
	if !ok {
		return Frame{State: rb.state}
	}

	var cur MapProject
	if rb.state.Type != BUILD_PENDING_ELBOW {
		tolerance := clamp(math.Log10(in.CameraHeight)*5, 1, 10)
		cur = m.Project(mousepos, tolerance, FILTER_INTER|FILTER_ROAD)
	} else {
		cur = GroundProject(mousepos)
	}

	patwidth := rb.Pattern.Width()
	if roadID, ok := cur.Kind.Road(); ok {
		road, _ := m.roads.Get(roadID)
		switch {
		case xy(road.Points.First()).Sub(xy(cur.Pos)).Norm() < road.InterfaceFrom(road.Src)+patwidth*0.5:
			cur = MapProject{Pos: road.Points.First(), Kind: OnInter(road.Src)}
		case xy(road.Points.Last()).Sub(xy(cur.Pos)).Norm() < road.InterfaceFrom(road.Dst)+patwidth*0.5:
			cur = MapProject{Pos: road.Points.Last(), Kind: OnInter(road.Dst)}
		}
	}
	if in.NoSnapping {
		cur = GroundProject(mousepos)
	}

	frame := Frame{Projection: cur, StraightPoints: rb.straightPoints}
	frame.Valid = rb.isValid(m, cur, patwidth)

	if req := rb.candidate(cur); req != nil {
		frame.Candidate = req
		segment := StraightSegment()
		if req.Inter != nil {
			segment = SegmentFromElbow(xy(req.From.Pos), xy(req.To.Pos), *req.Inter)
		}
		points, err := GeneratePoints(req.From.Pos, req.To.Pos, segment, rb.Pattern.Rail, m.terrain)
		if err != nil {
			frame.Valid = false
		} else {
			frame.Preview = points
			for pylon := range PylonPositions(points, m.terrain) {
				frame.Pylons = append(frame.Pylons, pylon)
			}
		}
	}

	if frame.Valid && in.Select {
		frame.Committed = rb.selectPoint(tool, cur, mousepos, frame.Candidate, q)
	}
	frame.State = rb.state
	return frame
}

// OnApplied continues drawing from the end of a just built road
func (rb *RoadBuild) OnApplied(m *Map, tool Tool, results []CommandResult) {
	if !tool.IsRoadbuild() {
		return
	}
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		proj := m.Project(res.Request.To.Pos, 0, FILTER_ALL)
		if _, ok := proj.Kind.Inter(); !ok {
			continue
		}
		if tool == TOOL_ROADBUILD_CURVED {
			rb.state = BuildState{Type: BUILD_PENDING_START_CURVED, Start: proj}
		} else {
			rb.state = BuildState{Type: BUILD_PENDING_START, Start: proj}
		}
	}
}

func (rb *RoadBuild) snap(m *Map, unproj r3.Vector) (r3.Vector, bool) {
	switch {
	case rb.SnapToGrid:
		p := r2.Point{X: math.Round(unproj.X/GridSize) * GridSize, Y: math.Round(unproj.Y/GridSize) * GridSize}
		h, ok := m.terrain.Height(toOrb(p))
		if !ok {
			return r3.Vector{}, false
		}
		rb.straightPoints = nil
		return withZ(p, h+rb.HeightOffset), true
	case rb.SnapToAngle:
		lifted := unproj.Add(r3.Vector{Z: rb.HeightOffset})
		rb.straightPoints = rb.updateStraightPoints(m, lifted)
		best, bestDist := lifted, GridSize
		for _, p := range rb.straightPoints {
			if d := p.Sub(unproj).Norm(); d < bestDist {
				best, bestDist = p, d
			}
		}
		return best, true
	}
	rb.straightPoints = nil
	return unproj.Add(r3.Vector{Z: rb.HeightOffset}), true
}

func (rb *RoadBuild) isValid(m *Map, cur MapProject, patwidth float64) bool {
	isRail := rb.Pattern.Rail
	st := rb.state
	switch st.Type {
	case BUILD_IDLE:
		return cur.Kind.Type != PROJECT_BUILDING
	case BUILD_PENDING_START_CURVED:
		if cur.Kind.IsGround() {
			return compatible(m, cur, st.Start) && checkAngle(m, st.Start, xy(cur.Pos), isRail)
		}
		return compatible(m, st.Start, cur)
	case BUILD_PENDING_START:
		shape := BoldLine([]r2.Point{xy(st.Start.Pos), xy(cur.Pos)}, patwidth*0.5)
		return compatible(m, cur, st.Start) &&
			checkAngle(m, st.Start, xy(cur.Pos), isRail) &&
			checkAngle(m, cur, xy(st.Start.Pos), isRail) &&
			fitsInterfaces(m, st.Start, cur, patwidth) &&
			!checkIntersect(m, shape, (st.Start.Pos.Z+cur.Pos.Z)/2, cur.Kind, st.Start.Kind)
	case BUILD_PENDING_ELBOW:
		src, dst := st.Start, st.End
		sp := Spline{
			From:           xy(src.Pos),
			To:             xy(dst.Pos),
			FromDerivative: xy(cur.Pos).Sub(xy(src.Pos)).Mul(math.Sqrt2 / 2),
			ToDerivative:   xy(dst.Pos).Sub(xy(cur.Pos)).Mul(math.Sqrt2 / 2),
		}
		return compatible(m, dst, src) &&
			checkAngle(m, src, xy(cur.Pos), isRail) &&
			checkAngle(m, dst, xy(cur.Pos), isRail) &&
			!sp.IsSteep(patwidth) &&
			!checkIntersect(m, BoldSpline(sp, patwidth*0.5), (src.Pos.Z+dst.Pos.Z)/2, src.Kind, dst.Kind)
	case BUILD_PENDING_INTERPOLATED:
		sel, interpoint := st.Start, st.InterPoint
		sp := Spline{
			From:           xy(sel.Pos),
			To:             xy(cur.Pos),
			FromDerivative: interpoint.Sub(xy(sel.Pos)).Mul(math.Sqrt2 / 2),
			ToDerivative:   xy(cur.Pos).Sub(interpoint).Mul(math.Sqrt2 / 2),
		}
		return compatible(m, cur, sel) &&
			checkAngle(m, sel, interpoint, isRail) &&
			checkAngle(m, cur, interpoint, isRail) &&
			!sp.IsSteep(patwidth) &&
			!checkIntersect(m, BoldSpline(sp, patwidth*0.5), (sel.Pos.Z+cur.Pos.Z)/2, sel.Kind, cur.Kind)
	}
	return true
}

// candidate returns connection request matching current state and projection, if any
func (rb *RoadBuild) candidate(cur MapProject) *ConnectionRequest {
	pattern := rb.Pattern.Build()
	var req ConnectionRequest
	switch st := rb.state; st.Type {
	case BUILD_PENDING_START_CURVED:
		if cur.Kind.IsGround() {
			return nil
		}
		req = NewConnectionRequest(st.Start, cur, nil, pattern)
	case BUILD_PENDING_START:
		req = NewConnectionRequest(st.Start, cur, nil, pattern)
	case BUILD_PENDING_ELBOW:
		elbow := xy(cur.Pos)
		req = NewConnectionRequest(st.Start, st.End, &elbow, pattern)
	case BUILD_PENDING_INTERPOLATED:
		req = NewConnectionRequest(st.Start, cur, &st.InterPoint, pattern)
	default:
		return nil
	}
	return &req
}

// selectPoint advances the state machine. Returns true when the candidate was committed
func (rb *RoadBuild) selectPoint(tool Tool, cur MapProject, mousepos r3.Vector, candidate *ConnectionRequest, q *CommandQueue) bool {
	switch rb.state.Type {
	case BUILD_IDLE:
		if cur.Kind.Type == PROJECT_BUILDING {
			return false
		}
		if tool == TOOL_ROADBUILD_CURVED {
			rb.state = BuildState{Type: BUILD_PENDING_START_CURVED, Start: cur}
		} else {
			rb.state = BuildState{Type: BUILD_PENDING_START, Start: cur}
		}
	case BUILD_PENDING_START_CURVED:
		switch cur.Kind.Type {
		case PROJECT_GROUND:
			rb.state = BuildState{Type: BUILD_PENDING_INTERPOLATED, Start: rb.state.Start, InterPoint: xy(mousepos)}
		case PROJECT_ROAD, PROJECT_INTER:
			rb.state = BuildState{Type: BUILD_PENDING_ELBOW, Start: rb.state.Start, End: cur}
		}
	case BUILD_PENDING_START, BUILD_PENDING_ELBOW, BUILD_PENDING_INTERPOLATED:
		if candidate != nil {
			q.Push(*candidate)
		}
		rb.Reset()
		return candidate != nil
	}
	return false
}

// fitsInterfaces reports whether a straight road between x and y keeps some length after both ends are trimmed
func fitsInterfaces(m *Map, x, y MapProject, width float64) bool {
	length := xy(y.Pos).Sub(xy(x.Pos)).Norm()
	return length > previewInterface(m, x, xy(y.Pos), width)+previewInterface(m, y, xy(x.Pos), width)
}

// previewInterface is the trim distance a new road leaving proj towards 'toward' would get.
// Ground and split points start as lone intersections
func previewInterface(m *Map, proj MapProject, toward r2.Point, width float64) float64 {
	dir, ok := tryNormalize(toward.Sub(xy(proj.Pos)))
	if !ok {
		return 0
	}
	if id, ok := proj.Kind.Inter(); ok {
		if inter, ok := m.intersections.Get(id); ok {
			return inter.InterfaceAt(&m.roads, width, dir)
		}
	}
	return EmptyInterface(width)
}

// compatible checks whether two projections may be the ends of one road
func compatible(m *Map, x, y MapProject) bool {
	if x.Pos.Sub(y.Pos).Norm() < MinConnectionDist {
		return false
	}
	if x.Kind.Type == PROJECT_BUILDING || y.Kind.Type == PROJECT_BUILDING {
		return false
	}
	if x.Kind.IsGround() || y.Kind.IsGround() {
		return true
	}
	if x.Kind.Type == y.Kind.Type {
		return x.Kind != y.Kind
	}
	interKind, roadKind := x.Kind, y.Kind
	if x.Kind.Type == PROJECT_ROAD {
		interKind, roadKind = y.Kind, x.Kind
	}
	interID, _ := interKind.Inter()
	roadID, _ := roadKind.Road()
	road, ok := m.roads.Get(roadID)
	if !ok {
		return false
	}
	return road.Src != interID && road.Dst != interID
}

// checkAngle checks that a road leaving 'from' towards 'to' is not too close to any road already there
func checkAngle(m *Map, from MapProject, to r2.Point, isRail bool) bool {
	maxTurnAngle := MaxTurnAngle
	if isRail {
		maxTurnAngle = MaxRailTurnAngle
	}
	switch from.Kind.Type {
	case PROJECT_INTER:
		id, _ := from.Kind.Inter()
		inter, ok := m.intersections.Get(id)
		if !ok {
			return false
		}
		dir, ok := tryNormalize(to.Sub(xy(inter.Pos)))
		if !ok {
			return false
		}
		for _, roadID := range inter.Roads {
			road, ok := m.roads.Get(roadID)
			if !ok {
				continue
			}
			if angleBetween(road.DirFrom(id), dir) < maxTurnAngle {
				return false
			}
		}
		return true
	case PROJECT_ROAD:
		id, _ := from.Kind.Road()
		road, ok := m.roads.Get(id)
		if !ok {
			return false
		}
		proj, _, roadDir := road.Points.ProjectSegmentDir(from.Pos)
		dir, ok := tryNormalize(to.Sub(xy(proj)))
		if !ok {
			return false
		}
		return angleBetween(roadDir, dir) >= maxTurnAngle && angleBetween(roadDir.Mul(-1), dir) >= maxTurnAngle
	}
	return true
}

// checkIntersect reports whether the shape overlaps a road or an intersection other than the connected ones.
// Roads outside of the elevation band around z pass above or below and are ignored
func checkIntersect(m *Map, shape Shape, z float64, start, end ProjectKind) bool {
	for _, kind := range m.spatial.Query(shape, FILTER_ROAD|FILTER_INTER) {
		if roadID, ok := kind.Road(); ok {
			road, ok := m.roads.Get(roadID)
			if !ok {
				continue
			}
			if math.Abs(road.Points.First().Z-z) > elevationBandWidth || math.Abs(road.Points.Last().Z-z) > elevationBandWidth {
				continue
			}
			if id, ok := start.Inter(); ok && (road.Src == id || road.Dst == id) {
				continue
			}
			if id, ok := end.Inter(); ok && (road.Src == id || road.Dst == id) {
				continue
			}
		}
		if kind != start && kind != end {
			return true
		}
	}
	return false
}

// updateStraightPoints returns points which would make the drawn road a straight continuation of existing ones
func (rb *RoadBuild) updateStraightPoints(m *Map, mousepos r3.Vector) []r3.Vector {
	var start, end MapProject
	switch rb.state.Type {
	case BUILD_PENDING_ELBOW:
		start, end = rb.state.Start, rb.state.End
	case BUILD_PENDING_START, BUILD_PENDING_START_CURVED:
		start, end = rb.state.Start, GroundProject(mousepos)
	default:
		return nil
	}

	var out []r3.Vector
	lift := func(p r2.Point) {
		if h, ok := m.terrain.Height(toOrb(p)); ok {
			out = append(out, withZ(p, h))
		}
	}
	roadLine := func(kind ProjectKind, pos r3.Vector) (r2.Point, r2.Point, bool) {
		id, _ := kind.Road()
		road, ok := m.roads.Get(id)
		if !ok {
			return r2.Point{}, r2.Point{}, false
		}
		p, _, dir := road.Points.ProjectSegmentDir(pos)
		return xy(p), dir, true
	}
	isRail := rb.Pattern.Rail

	switch {
	case start.Kind.Type == PROJECT_INTER && end.Kind.Type == PROJECT_INTER:
		id0, _ := start.Kind.Inter()
		id1, _ := end.Kind.Inter()
		inter0, ok0 := m.intersections.Get(id0)
		inter1, ok1 := m.intersections.Get(id1)
		if !ok0 || !ok1 {
			return nil
		}
		for _, roadID0 := range inter0.Roads {
			for _, roadID1 := range inter1.Roads {
				road0, _ := m.roads.Get(roadID0)
				road1, _ := m.roads.Get(roadID1)
				p, err := intersect(xy(inter0.Pos), road0.StraightConnectionPoint(id0), xy(inter1.Pos), road1.StraightConnectionPoint(id1))
				if err == nil {
					lift(p)
				}
			}
		}
	case start.Kind.Type == PROJECT_INTER && end.Kind.IsGround(), start.Kind.IsGround() && end.Kind.Type == PROJECT_INTER:
		interKind := start.Kind
		if end.Kind.Type == PROJECT_INTER {
			interKind = end.Kind
		}
		id, _ := interKind.Inter()
		inter, ok := m.intersections.Get(id)
		if !ok {
			return nil
		}
		for _, roadID := range inter.Roads {
			road, _ := m.roads.Get(roadID)
			lift(closestOnLine(xy(mousepos), road.StraightConnectionPoint(id), xy(inter.Pos)))
		}
	case isRail && (start.Kind.Type == PROJECT_INTER && end.Kind.Type == PROJECT_ROAD || start.Kind.Type == PROJECT_ROAD && end.Kind.Type == PROJECT_INTER):
		interKind, road := start.Kind, end
		if start.Kind.Type == PROJECT_ROAD {
			interKind, road = end.Kind, start
		}
		id, _ := interKind.Inter()
		inter, ok := m.intersections.Get(id)
		if !ok {
			return nil
		}
		pos, dir, ok := roadLine(road.Kind, road.Pos)
		if !ok {
			return nil
		}
		for _, roadID := range inter.Roads {
			other, _ := m.roads.Get(roadID)
			p, err := intersect(other.StraightConnectionPoint(id), xy(inter.Pos), pos, pos.Add(dir))
			if err == nil {
				lift(p)
			}
		}
	case isRail && (start.Kind.Type == PROJECT_ROAD && end.Kind.IsGround() || start.Kind.IsGround() && end.Kind.Type == PROJECT_ROAD):
		road := start
		if end.Kind.Type == PROJECT_ROAD {
			road = end
		}
		pos, dir, ok := roadLine(road.Kind, road.Pos)
		if !ok {
			return nil
		}
		lift(closestOnLine(xy(mousepos), pos.Add(dir), pos))
	case isRail && start.Kind.Type == PROJECT_ROAD && end.Kind.Type == PROJECT_ROAD:
		pos0, dir0, ok0 := roadLine(start.Kind, start.Pos)
		pos1, dir1, ok1 := roadLine(end.Kind, end.Pos)
		if !ok0 || !ok1 {
			return nil
		}
		p, err := intersect(pos0, pos0.Add(dir0), pos1, pos1.Add(dir1))
		if err == nil {
			lift(p)
		}
	}
	return out
}
