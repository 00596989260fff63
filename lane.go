package roadnet

import (
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/samber/lo"
)

type LaneKind uint16

const (
	LANE_DRIVING = LaneKind(iota + 1)
	LANE_BIKING
	LANE_PARKING
	LANE_BUS
	LANE_RAIL
	LANE_WALKING
)

func (iotaIdx LaneKind) String() string {
	return [...]string{"driving", "biking", "parking", "bus", "rail", "walking"}[iotaIdx-1]
}

// Vehicles reports whether road vehicles may travel on the lane
func (kind LaneKind) Vehicles() bool {
	return kind == LANE_DRIVING || kind == LANE_BIKING || kind == LANE_BUS
}

func (kind LaneKind) IsRail() bool {
	return kind == LANE_RAIL
}

// NeedsLight reports whether the lane end gets a traffic control at intersections
func (kind LaneKind) NeedsLight() bool {
	return kind.Vehicles()
}

// Width returns lateral size of a lane of given kind
func (kind LaneKind) Width() float64 {
	switch kind {
	case LANE_DRIVING, LANE_BIKING, LANE_BUS:
		return 8.0
	case LANE_RAIL:
		return 9.0
	default:
		return 4.0
	}
}

// LaneDirection is direction of a lane relative to its road's source->destination orientation
type LaneDirection uint16

const (
	LANE_FORWARD = LaneDirection(iota + 1)
	LANE_BACKWARD
)

func (iotaIdx LaneDirection) String() string {
	return [...]string{"forward", "backward"}[iotaIdx-1]
}

// TraverseDirection tells whether something is walked along its own orientation or against it
type TraverseDirection uint16

const (
	TRAVERSE_FORWARD = TraverseDirection(iota + 1)
	TRAVERSE_BACKWARD
)

func (iotaIdx TraverseDirection) String() string {
	return [...]string{"forward", "backward"}[iotaIdx-1]
}

// LanePattern is ordered lane kinds for both directions of a road.
// Both lists go from the road centerline outwards
type LanePattern struct {
	Forward  []LaneKind
	Backward []LaneKind
}

// Width returns sum of lane widths
func (pattern LanePattern) Width() float64 {
	w := 0.0
	for _, kind := range pattern.Forward {
		w += kind.Width()
	}
	for _, kind := range pattern.Backward {
		w += kind.Width()
	}
	return w
}

// IsRail reports whether every lane of the pattern is a rail track
func (pattern LanePattern) IsRail() bool {
	all := append(append([]LaneKind{}, pattern.Forward...), pattern.Backward...)
	return len(all) > 0 && lo.EveryBy(all, LaneKind.IsRail)
}

// LanePatternBuilder is the user facing description of a road profile
type LanePatternBuilder struct {
	NLanes    int  `yaml:"n_lanes"`
	Sidewalks bool `yaml:"sidewalks"`
	Parking   bool `yaml:"parking"`
	OneWay    bool `yaml:"one_way"`
	Rail      bool `yaml:"rail"`
}

// DefaultLanePatternBuilder is a two way street with one lane per direction, parking and sidewalks
func DefaultLanePatternBuilder() LanePatternBuilder {
	return LanePatternBuilder{
		NLanes:    1,
		Sidewalks: true,
		Parking:   true,
	}
}

// Width returns width of the road the pattern would produce
func (builder LanePatternBuilder) Width() float64 {
	return builder.Build().Width()
}

// Build produces lane kinds for both directions
func (builder LanePatternBuilder) Build() LanePattern {
	if builder.Rail {
		pattern := LanePattern{Forward: []LaneKind{LANE_RAIL}}
		if !builder.OneWay {
			pattern.Backward = []LaneKind{LANE_RAIL}
		}
		return pattern
	}
	n := max(builder.NLanes, 1)
	forward := lo.Times(n, func(int) LaneKind { return LANE_DRIVING })
	var backward []LaneKind
	if !builder.OneWay {
		backward = lo.Times(n, func(int) LaneKind { return LANE_DRIVING })
	}
	if builder.Parking {
		forward = append(forward, LANE_PARKING)
		backward = append(backward, LANE_PARKING)
	}
	if builder.Sidewalks {
		forward = append(forward, LANE_WALKING)
		backward = append(backward, LANE_WALKING)
	}
	return LanePattern{Forward: forward, Backward: backward}
}

// Lane is a single strip of a road. Its geometry is derived from the parent road and regenerated together with it
type Lane struct {
	ID        LaneID
	Parent    RoadID
	Kind      LaneKind
	Direction LaneDirection
	// Src and Dst follow travel direction
	Src IntersectionID
	Dst IntersectionID
	// Points follow travel direction and are trimmed by interfaces of both road ends
	Points  Polyline3
	Width   float64
	Offset  float64 // signed distance from the road centerline, positive to the left of source->destination
	Control TrafficControl
}

// DirFrom returns whether lane is traversed forward when leaving given intersection
func (lane *Lane) DirFrom(id IntersectionID) TraverseDirection {
	if lane.Src == id {
		return TRAVERSE_FORWARD
	}
	return TRAVERSE_BACKWARD
}

// EndpointAt returns the lane end touching given intersection
func (lane *Lane) EndpointAt(id IntersectionID) r3.Vector {
	if id == lane.Src {
		return lane.Points.First()
	}
	return lane.Points.Last()
}

// ArrivalDir is travel direction at the lane end
func (lane *Lane) ArrivalDir() r2.Point {
	return lane.Points.LastDir()
}

// DepartureDir is travel direction at the lane start
func (lane *Lane) DepartureDir() r2.Point {
	return lane.Points.FirstDir()
}

// Length returns length of lane geometry
func (lane *Lane) Length() float64 {
	return lane.Points.Length()
}
