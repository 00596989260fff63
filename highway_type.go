package roadnet

type HighwayType uint16

const (
	HIGHWAY_MOTORWAY = HighwayType(iota + 1)
	HIGHWAY_TRUNK
	HIGHWAY_PRIMARY
	HIGHWAY_SECONDARY
	HIGHWAY_TERTIARY
	HIGHWAY_RESIDENTIAL
	HIGHWAY_LIVING_STREET
	HIGHWAY_SERVICE
	HIGHWAY_UNCLASSIFIED
	HIGHWAY_RAIL
)

func (iotaIdx HighwayType) String() string {
	return [...]string{"motorway", "trunk", "primary", "secondary", "tertiary", "residential", "living_street", "service", "unclassified", "rail"}[iotaIdx-1]
}

// getHighwayType maps OSM tag value onto a known type. Links share the type of their road. Zero means unknown
func getHighwayType(str string) HighwayType {
	if found, ok := highwaysTypes[str]; ok {
		return found
	}
	return 0
}

// Preset returns lane pattern used for roads of this type
func (highway HighwayType) Preset() LanePatternBuilder {
	if highway == HIGHWAY_RAIL {
		return LanePatternBuilder{NLanes: 1, Rail: true}
	}
	lanes, ok := defaultLanesByHighway[highway]
	if !ok {
		lanes = 1
	}
	return LanePatternBuilder{
		NLanes:    lanes,
		Sidewalks: sidewalksByHighway[highway],
		Parking:   parkingByHighway[highway],
	}
}

var (
	defaultLanesByHighway = map[HighwayType]int{
		HIGHWAY_MOTORWAY:      3,
		HIGHWAY_TRUNK:         2,
		HIGHWAY_PRIMARY:       2,
		HIGHWAY_SECONDARY:     2,
		HIGHWAY_TERTIARY:      1,
		HIGHWAY_RESIDENTIAL:   1,
		HIGHWAY_LIVING_STREET: 1,
		HIGHWAY_SERVICE:       1,
		HIGHWAY_UNCLASSIFIED:  1,
	}
	sidewalksByHighway = map[HighwayType]bool{
		HIGHWAY_PRIMARY:       true,
		HIGHWAY_SECONDARY:     true,
		HIGHWAY_TERTIARY:      true,
		HIGHWAY_RESIDENTIAL:   true,
		HIGHWAY_LIVING_STREET: true,
		HIGHWAY_UNCLASSIFIED:  true,
	}
	parkingByHighway = map[HighwayType]bool{
		HIGHWAY_RESIDENTIAL:   true,
		HIGHWAY_LIVING_STREET: true,
	}

	highwaysTypes = map[string]HighwayType{
		"motorway":       HIGHWAY_MOTORWAY,
		"motorway_link":  HIGHWAY_MOTORWAY,
		"trunk":          HIGHWAY_TRUNK,
		"trunk_link":     HIGHWAY_TRUNK,
		"primary":        HIGHWAY_PRIMARY,
		"primary_link":   HIGHWAY_PRIMARY,
		"secondary":      HIGHWAY_SECONDARY,
		"secondary_link": HIGHWAY_SECONDARY,
		"tertiary":       HIGHWAY_TERTIARY,
		"tertiary_link":  HIGHWAY_TERTIARY,
		"residential":    HIGHWAY_RESIDENTIAL,
		"living_street":  HIGHWAY_LIVING_STREET,
		"service":        HIGHWAY_SERVICE,
		"unclassified":   HIGHWAY_UNCLASSIFIED,
		"rail":           HIGHWAY_RAIL,
	}
)
