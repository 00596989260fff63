package roadnet

import (
	"iter"
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

type RoadSegmentType uint16

const (
	SEGMENT_STRAIGHT = RoadSegmentType(iota + 1)
	SEGMENT_CURVED
	SEGMENT_POLYLINE
)

func (iotaIdx RoadSegmentType) String() string {
	return [...]string{"straight", "curved", "polyline"}[iotaIdx-1]
}

// RoadSegmentKind describes the shape of a road centerline between its two endpoints
type RoadSegmentKind struct {
	Type RoadSegmentType
	// Curved segments
	FromDerivative r2.Point
	ToDerivative   r2.Point
	// Polyline segments: interior points only
	Interior []r2.Point
}

// StraightSegment is a straight line between endpoints
func StraightSegment() RoadSegmentKind {
	return RoadSegmentKind{Type: SEGMENT_STRAIGHT}
}

// CurvedSegment is a Hermite spline with given derivatives at both ends
func CurvedSegment(fromDerivative, toDerivative r2.Point) RoadSegmentKind {
	return RoadSegmentKind{Type: SEGMENT_CURVED, FromDerivative: fromDerivative, ToDerivative: toDerivative}
}

// PolylineSegment passes through given interior points
func PolylineSegment(interior []r2.Point) RoadSegmentKind {
	cp := make([]r2.Point, len(interior))
	copy(cp, interior)
	return RoadSegmentKind{Type: SEGMENT_POLYLINE, Interior: cp}
}

// SegmentFromElbow builds a curve leaving from towards elbow and arriving to from the elbow direction
func SegmentFromElbow(from, to, elbow r2.Point) RoadSegmentKind {
	return CurvedSegment(elbow.Sub(from).Mul(math.Sqrt2/2), to.Sub(elbow).Mul(math.Sqrt2/2))
}

const (
	roadSampleStep = 16.0
	pylonSpacing   = 30.0
	pylonMinHeight = 2.0
)

// GeneratePoints produces road centerline from 'from' to 'to'.
// Straight segments are sampled every roadSampleStep along the line rather than kept as two points.
// Every point follows the terrain: the height of endpoints above the ground is interpolated along the road.
// Rails are interpolated straight between endpoints and only lifted where the ground is higher.
// Missing terrain data anywhere along the line fails the whole operation with ErrGeometry
func GeneratePoints(from, to r3.Vector, kind RoadSegmentKind, isRail bool, terrain Terrain) (Polyline3, error) {
	if xy(from).Sub(xy(to)).Norm() < epsilon {
		return nil, errors.Wrap(ErrGeometry, "road endpoints coincide")
	}
	var path []r2.Point
	switch kind.Type {
	case SEGMENT_CURVED:
		path = Spline{From: xy(from), To: xy(to), FromDerivative: kind.FromDerivative, ToDerivative: kind.ToDerivative}.SmartPoints(roadSampleStep)
	case SEGMENT_POLYLINE:
		path = make([]r2.Point, 0, len(kind.Interior)+2)
		path = append(path, xy(from))
		path = append(path, kind.Interior...)
		path = append(path, xy(to))
	default:
		n := int(math.Max(1, math.Ceil(xy(to).Sub(xy(from)).Norm()/roadSampleStep)))
		path = make([]r2.Point, n+1)
		for i := 0; i <= n; i++ {
			t := float64(i) / float64(n)
			path[i] = xy(from).Add(xy(to).Sub(xy(from)).Mul(t))
		}
		path[0], path[n] = xy(from), xy(to)
	}

	ground := func(p r2.Point) (float64, error) {
		h, ok := terrain.Height(toOrb(p))
		if !ok {
			return 0, errors.Wrapf(ErrGeometry, "no terrain data at (%.2f, %.2f)", p.X, p.Y)
		}
		return h, nil
	}
	hFrom, err := ground(xy(from))
	if err != nil {
		return nil, err
	}
	hTo, err := ground(xy(to))
	if err != nil {
		return nil, err
	}
	startZ, endZ := math.Max(from.Z, hFrom), math.Max(to.Z, hTo)

	total := 0.0
	for i := 1; i < len(path); i++ {
		total += path[i].Sub(path[i-1]).Norm()
	}

	points := make(Polyline3, len(path))
	walked := 0.0
	for i, p := range path {
		if i > 0 {
			walked += p.Sub(path[i-1]).Norm()
		}
		t := 0.0
		if total > 0 {
			t = walked / total
		}
		h, err := ground(p)
		if err != nil {
			return nil, err
		}
		if isRail {
			points[i] = withZ(p, math.Max(lerp(startZ, endZ, t), h))
		} else {
			points[i] = withZ(p, h+lerp(startZ-hFrom, endZ-hTo, t))
		}
	}
	points[0] = withZ(xy(from), startZ)
	points[len(points)-1] = withZ(xy(to), endZ)
	return points, nil
}

// PylonPosition is a support pillar under an elevated part of a road
type PylonPosition struct {
	Pos           r3.Vector
	TerrainHeight float64
	Dir           r2.Point
}

// PylonPositions lazily walks the centerline and yields pillars where it runs high enough above the ground
func PylonPositions(points Polyline3, terrain Terrain) iter.Seq[PylonPosition] {
	return func(yield func(PylonPosition) bool) {
		if len(points) < 2 {
			return
		}
		length := points.Length()
		for d := pylonSpacing * 0.5; d < length; d += pylonSpacing {
			pos := points.PointAlong(d)
			h, ok := terrain.Height(toOrb(xy(pos)))
			if !ok || pos.Z-h <= pylonMinHeight {
				continue
			}
			_, _, dir := points.ProjectSegmentDir(pos)
			if !yield(PylonPosition{Pos: pos, TerrainHeight: h, Dir: dir}) {
				return
			}
		}
	}
}

// Road connects two distinct intersections
type Road struct {
	ID  RoadID
	Src IntersectionID
	Dst IntersectionID
	// Points always go from Src to Dst
	Points  Polyline3
	Segment RoadSegmentKind
	Width   float64
	Pattern LanePattern

	// Lanes of each direction, from centerline outwards
	forward  []LaneID
	backward []LaneID

	srcInterface float64
	dstInterface float64
}

// Length returns centerline length
func (road *Road) Length() float64 {
	return road.Points.Length()
}

// DirFrom returns 2D direction in which the road departs from given end
func (road *Road) DirFrom(id IntersectionID) r2.Point {
	if id == road.Src {
		return road.Points.FirstDir()
	}
	return road.Points.LastDir().Mul(-1)
}

// InterfaceFrom returns trim distance at given end
func (road *Road) InterfaceFrom(id IntersectionID) float64 {
	if id == road.Src {
		return road.srcInterface
	}
	return road.dstInterface
}

// SetInterface sets trim distance at given end unconditionally
func (road *Road) SetInterface(id IntersectionID, v float64) {
	if id == road.Src {
		road.srcInterface = v
	} else {
		road.dstInterface = v
	}
}

// MaxInterface raises trim distance at given end. It never lowers it
func (road *Road) MaxInterface(id IntersectionID, v float64) {
	if id == road.Src {
		road.srcInterface = math.Max(road.srcInterface, v)
	} else {
		road.dstInterface = math.Max(road.dstInterface, v)
	}
}

// OtherEnd returns intersection on the opposite end. False if the road does not touch id
func (road *Road) OtherEnd(id IntersectionID) (IntersectionID, bool) {
	switch id {
	case road.Src:
		return road.Dst, true
	case road.Dst:
		return road.Src, true
	}
	return 0, false
}

// EndPoint returns centerline end touching given intersection
func (road *Road) EndPoint(id IntersectionID) r3.Vector {
	if id == road.Src {
		return road.Points.First()
	}
	return road.Points.Last()
}

// IncomingLanesTo returns lanes arriving at given intersection
func (road *Road) IncomingLanesTo(id IntersectionID) []LaneID {
	if id == road.Dst {
		return road.forward
	}
	return road.backward
}

// OutgoingLanesFrom returns lanes leaving given intersection
func (road *Road) OutgoingLanesFrom(id IntersectionID) []LaneID {
	if id == road.Src {
		return road.forward
	}
	return road.backward
}

// LaneIDs returns every lane of the road
func (road *Road) LaneIDs() []LaneID {
	out := make([]LaneID, 0, len(road.forward)+len(road.backward))
	out = append(out, road.forward...)
	return append(out, road.backward...)
}

// Sidewalks returns outermost incoming and outgoing walking lanes at given intersection
func (road *Road) Sidewalks(id IntersectionID, lanes *Lanes) (incoming LaneID, outgoing LaneID, ok bool) {
	outermostWalking := func(ids []LaneID) (LaneID, bool) {
		for i := len(ids) - 1; i >= 0; i-- {
			if lane, ok := lanes.Get(ids[i]); ok && lane.Kind == LANE_WALKING {
				return ids[i], true
			}
		}
		return 0, false
	}
	incoming, okIn := outermostWalking(road.IncomingLanesTo(id))
	outgoing, okOut := outermostWalking(road.OutgoingLanesFrom(id))
	return incoming, outgoing, okIn && okOut
}

// HasVehicleLanesFrom reports whether a driving, bus or rail lane leaves given intersection
func (road *Road) HasVehicleLanesFrom(id IntersectionID, lanes *Lanes) bool {
	for _, laneID := range road.OutgoingLanesFrom(id) {
		lane, ok := lanes.Get(laneID)
		if !ok {
			continue
		}
		switch lane.Kind {
		case LANE_DRIVING, LANE_BUS, LANE_RAIL:
			return true
		}
	}
	return false
}

// IsRail reports whether the road only carries tracks
func (road *Road) IsRail() bool {
	return road.Pattern.IsRail()
}

// DrivableLength returns centerline length left after trimming both ends
func (road *Road) DrivableLength() float64 {
	return road.Length() - road.srcInterface - road.dstInterface
}

// CheckDrivable fails with ErrGeometry when interfaces leave no drivable length
func (road *Road) CheckDrivable() error {
	return checkDrivable(road.Length(), road.srcInterface, road.dstInterface)
}

func checkDrivable(length, srcInterface, dstInterface float64) error {
	if length-srcInterface-dstInterface <= epsilon {
		return errors.Wrapf(ErrGeometry, "length %.2f does not fit interfaces %.2f and %.2f", length, srcInterface, dstInterface)
	}
	return nil
}

// StraightConnectionPoint returns a point on the tangent line of the road at given end, on the road side.
// Together with the intersection position it defines the line a straight continuation would follow
func (road *Road) StraightConnectionPoint(id IntersectionID) r2.Point {
	return xy(road.EndPoint(id)).Add(road.DirFrom(id).Mul(math.Max(road.InterfaceFrom(id), 1)))
}

// Shape returns road footprint
func (road *Road) Shape() Shape {
	return BoldPolyline(road.Points, road.Width*0.5)
}

// createLanes allocates lanes of the pattern. Geometry is produced by genLanes
func (road *Road) createLanes(lanes *Lanes) {
	mk := func(kind LaneKind, dir LaneDirection) LaneID {
		return lanes.Insert(func(id LaneID) *Lane {
			lane := &Lane{ID: id, Parent: road.ID, Kind: kind, Direction: dir, Width: kind.Width(), Src: road.Src, Dst: road.Dst}
			if dir == LANE_BACKWARD {
				lane.Src, lane.Dst = road.Dst, road.Src
			}
			return lane
		})
	}
	road.forward = road.forward[:0]
	road.backward = road.backward[:0]
	for _, kind := range road.Pattern.Forward {
		road.forward = append(road.forward, mk(kind, LANE_FORWARD))
	}
	for _, kind := range road.Pattern.Backward {
		road.backward = append(road.backward, mk(kind, LANE_BACKWARD))
	}
}

// removeLanes deletes every lane of the road from the store
func (road *Road) removeLanes(lanes *Lanes) {
	for _, id := range road.LaneIDs() {
		lanes.Remove(id)
	}
	road.forward, road.backward = nil, nil
}

// genLanes regenerates geometry of every lane from the trimmed centerline.
// Lanes are laid from the left edge: backward lanes outermost first, then forward lanes from the centerline out
func (road *Road) genLanes(lanes *Lanes) {
	length := road.Length()
	trimmed := road.Points.Cut(road.srcInterface, length-road.dstInterface)
	if length-road.srcInterface-road.dstInterface <= epsilon {
		// Not drivable: keep lanes around a single point in the middle so they stay valid polylines
		mid := road.Points.PointAlong(length * 0.5)
		trimmed = Polyline3{mid, mid}
	}
	acc := 0.0
	place := func(id LaneID) {
		lane, ok := lanes.Get(id)
		if !ok {
			return
		}
		lane.Offset = road.Width*0.5 - (acc + lane.Width*0.5)
		acc += lane.Width
		pts := offsetPolyline(trimmed, lane.Offset)
		if lane.Direction == LANE_BACKWARD {
			pts = pts.Reversed()
		}
		lane.Points = pts
	}
	for i := len(road.backward) - 1; i >= 0; i-- {
		place(road.backward[i])
	}
	for _, id := range road.forward {
		place(id)
	}
}
