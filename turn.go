package roadnet

import (
	"math"

	"github.com/golang/geo/r2"
)

// TurnID identifies a turn: it is unique per (intersection, source lane, destination lane)
type TurnID struct {
	Parent        IntersectionID
	Src           LaneID
	Dst           LaneID
	Bidirectional bool
}

func (id TurnID) less(other TurnID) bool {
	if id.Src != other.Src {
		return id.Src < other.Src
	}
	if id.Dst != other.Dst {
		return id.Dst < other.Dst
	}
	return !id.Bidirectional && other.Bidirectional
}

type TurnKind uint16

const (
	TURN_NORMAL = TurnKind(iota + 1)
	TURN_CROSSWALK
	TURN_WALKING_CORNER
)

func (iotaIdx TurnKind) String() string {
	return [...]string{"normal", "crosswalk", "walking_corner"}[iotaIdx-1]
}

// IsWalking reports whether the turn is meant for pedestrians
func (kind TurnKind) IsWalking() bool {
	return kind == TURN_CROSSWALK || kind == TURN_WALKING_CORNER
}

type TurnDirection uint16

const (
	TURN_THRU = TurnDirection(iota + 1)
	TURN_RIGHT
	TURN_LEFT
	TURN_U_TURN
)

func (iotaIdx TurnDirection) String() string {
	return [...]string{"thru", "right", "left", "u_turn"}[iotaIdx-1]
}

// turnDirectionBetween classifies movement by the angle between incoming and outgoing travel directions
func turnDirectionBetween(incoming, outgoing r2.Point) TurnDirection {
	angleDiff := signedAngle(incoming, outgoing)
	switch {
	case -0.25*math.Pi <= angleDiff && angleDiff <= 0.25*math.Pi:
		return TURN_THRU
	case angleDiff < -0.25*math.Pi:
		return TURN_RIGHT
	case angleDiff <= 0.75*math.Pi:
		return TURN_LEFT
	default:
		return TURN_U_TURN
	}
}

// TurnSpec is an output item of turn generation
type TurnSpec struct {
	ID   TurnID
	Kind TurnKind
}

// Turn is a connection between two lanes through the interior of an intersection
type Turn struct {
	ID        TurnID
	Kind      TurnKind
	Direction TurnDirection
	// Points go from the source lane end to the destination lane start
	Points Polyline3
}

const (
	turnPathDetail = 2.0
)

func (turn *Turn) makePoints(lanes *Lanes, inter IntersectionID) {
	src, okSrc := lanes.Get(turn.ID.Src)
	dst, okDst := lanes.Get(turn.ID.Dst)
	if !okSrc || !okDst || len(src.Points) == 0 || len(dst.Points) == 0 {
		turn.Points = nil
		return
	}
	from := src.EndpointAt(inter)
	to := dst.EndpointAt(inter)
	srcDir := src.ArrivalDir()
	dstDir := dst.DepartureDir()
	if src.DirFrom(inter) == TRAVERSE_FORWARD {
		// Crosswalks start from an outgoing sidewalk
		srcDir = src.DepartureDir().Mul(-1)
	}
	if dst.DirFrom(inter) == TRAVERSE_BACKWARD {
		dstDir = dst.ArrivalDir().Mul(-1)
	}
	turn.Direction = turnDirectionBetween(srcDir, dstDir)

	dist := xy(to).Sub(xy(from)).Norm()
	if turn.Kind == TURN_CROSSWALK || dist < epsilon {
		turn.Points = Polyline3{from, to}
		return
	}
	spline := Spline{
		From:           xy(from),
		To:             xy(to),
		FromDerivative: srcDir.Mul(dist),
		ToDerivative:   dstDir.Mul(dist),
	}
	path := spline.SmartPoints(turnPathDetail)
	turn.Points = make(Polyline3, len(path))
	for i, p := range path {
		turn.Points[i] = withZ(p, lerp(from.Z, to.Z, float64(i)/float64(len(path)-1)))
	}
	turn.Points[0], turn.Points[len(path)-1] = from, to
}
