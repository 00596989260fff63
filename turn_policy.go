package roadnet

import (
	"github.com/samber/lo"
)

const (
	// LeftTurnTolerance is the lowest allowed dot product between the right-hand vector of an incoming lane
	// and the outgoing lane direction when left turns are forbidden.
	// It is a tuning value: slightly negative so that straight-ish movements bending left still pass
	LeftTurnTolerance = -0.3
	// RailTurnAlignment is the lowest allowed dot product between incoming and outgoing rail directions
	RailTurnAlignment = 0.0
)

// Roundabout configures an intersection as a roundabout of given radius
type Roundabout struct {
	Radius float64 `yaml:"radius"`
}

// TurnPolicy configures which turns are generated at an intersection
type TurnPolicy struct {
	BackTurns  bool        `yaml:"back_turns"`
	LeftTurns  bool        `yaml:"left_turns"`
	Roundabout *Roundabout `yaml:"roundabout,omitempty"`
}

// DefaultTurnPolicy forbids U-turns and allows left turns
func DefaultTurnPolicy() TurnPolicy {
	return TurnPolicy{
		BackTurns: false,
		LeftTurns: true,
	}
}

// GenerateTurns derives the full set of legal turns for the intersection from its roads and lanes.
// The result does not depend on previously generated turns
func (policy TurnPolicy) GenerateTurns(inter *Intersection, lanes *Lanes, roads *Roads) []TurnSpec {
	var turns []TurnSpec
	turns = policy.generateLaneTurns(inter, lanes, roads, LaneKind.Vehicles, turns)
	turns = policy.generateLaneTurns(inter, lanes, roads, LaneKind.IsRail, turns)
	return policy.generateWalkingTurns(inter, lanes, roads, turns)
}

func filterLanes(ids []LaneID, lanes *Lanes, accept func(LaneKind) bool) []LaneID {
	return lo.Filter(ids, func(id LaneID, _ int) bool {
		lane, ok := lanes.Get(id)
		return ok && accept(lane.Kind)
	})
}

func zipTurns(inter IntersectionID, incoming, outgoing []LaneID, turns []TurnSpec) []TurnSpec {
	for i := range min(len(incoming), len(outgoing)) {
		turns = append(turns, TurnSpec{ID: TurnID{Parent: inter, Src: incoming[i], Dst: outgoing[i]}, Kind: TURN_NORMAL})
	}
	return turns
}

func allTurns(inter IntersectionID, incoming, outgoing []LaneID, turns []TurnSpec) []TurnSpec {
	for _, src := range incoming {
		for _, dst := range outgoing {
			turns = append(turns, TurnSpec{ID: TurnID{Parent: inter, Src: src, Dst: dst}, Kind: TURN_NORMAL})
		}
	}
	return turns
}

// zipOnSameLength pairs lanes by index when counts match and falls back to every combination otherwise
func zipOnSameLength(inter IntersectionID, incoming, outgoing []LaneID, turns []TurnSpec) []TurnSpec {
	if len(incoming) == len(outgoing) {
		return zipTurns(inter, incoming, outgoing, turns)
	}
	return allTurns(inter, incoming, outgoing, turns)
}

func (policy TurnPolicy) generateLaneTurns(inter *Intersection, lanes *Lanes, roads *Roads, accept func(LaneKind) bool, turns []TurnSpec) []TurnSpec {
	id := inter.ID
	incident := make([]*Road, 0, len(inter.Roads))
	for _, roadID := range inter.Roads {
		if road, ok := roads.Get(roadID); ok {
			incident = append(incident, road)
		}
	}

	switch len(incident) {
	case 0:
		return turns
	case 1:
		road := incident[0]
		return zipOnSameLength(id,
			filterLanes(road.IncomingLanesTo(id), lanes, accept),
			filterLanes(road.OutgoingLanesFrom(id), lanes, accept),
			turns,
		)
	case 2:
		road1, road2 := incident[0], incident[1]
		turns = zipOnSameLength(id,
			filterLanes(road1.IncomingLanesTo(id), lanes, accept),
			filterLanes(road2.OutgoingLanesFrom(id), lanes, accept),
			turns,
		)
		return zipOnSameLength(id,
			filterLanes(road2.IncomingLanesTo(id), lanes, accept),
			filterLanes(road1.OutgoingLanesFrom(id), lanes, accept),
			turns,
		)
	}

	isRail := accept(LANE_RAIL)
	for _, road1 := range incident {
		for _, road2 := range incident {
			if road1.ID == road2.ID && !policy.BackTurns {
				continue
			}
			for _, incomingID := range filterLanes(road1.IncomingLanesTo(id), lanes, accept) {
				for _, outgoingID := range filterLanes(road2.OutgoingLanesFrom(id), lanes, accept) {
					incoming, _ := lanes.Get(incomingID)
					outgoing, _ := lanes.Get(outgoingID)
					incomingDir := incoming.ArrivalDir()
					outgoingDir := outgoing.DepartureDir()
					if isRail {
						if incomingDir.Dot(outgoingDir) < RailTurnAlignment {
							continue
						}
					} else if !policy.LeftTurns && rightOf(incomingDir).Dot(outgoingDir) < LeftTurnTolerance {
						continue
					}
					turns = append(turns, TurnSpec{ID: TurnID{Parent: id, Src: incomingID, Dst: outgoingID}, Kind: TURN_NORMAL})
				}
			}
		}
	}
	return turns
}

type sidewalkPair struct {
	incoming LaneID
	outgoing LaneID
}

// generateWalkingTurns links sidewalks of consecutive roads around the intersection.
// Crosswalks over a road are only generated when more than two roads meet
func (policy TurnPolicy) generateWalkingTurns(inter *Intersection, lanes *Lanes, roads *Roads, turns []TurnSpec) []TurnSpec {
	if len(inter.Roads) == 0 {
		return turns
	}
	chain := append(append([]RoadID{}, inter.Roads...), inter.Roads[0])
	pairs := lo.FilterMap(chain, func(roadID RoadID, _ int) (sidewalkPair, bool) {
		road, ok := roads.Get(roadID)
		if !ok {
			return sidewalkPair{}, false
		}
		incoming, outgoing, ok := road.Sidewalks(inter.ID, lanes)
		return sidewalkPair{incoming: incoming, outgoing: outgoing}, ok
	})
	nRoads := len(inter.Roads)
	for i := 0; i+1 < len(pairs); i++ {
		cur, next := pairs[i], pairs[i+1]
		turns = append(turns, TurnSpec{
			ID:   TurnID{Parent: inter.ID, Src: cur.incoming, Dst: next.outgoing, Bidirectional: true},
			Kind: TURN_WALKING_CORNER,
		})
		if nRoads > 2 {
			turns = append(turns, TurnSpec{
				ID:   TurnID{Parent: inter.ID, Src: cur.outgoing, Dst: cur.incoming, Bidirectional: true},
				Kind: TURN_CROSSWALK,
			})
		}
	}
	return turns
}
