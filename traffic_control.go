package roadnet

type TrafficControl uint16

const (
	CONTROL_ALWAYS = TrafficControl(iota + 1)
	CONTROL_STOP_SIGN
	CONTROL_LIGHT
)

func (iotaIdx TrafficControl) String() string {
	return [...]string{"always", "stop_sign", "light"}[iotaIdx-1]
}

// LightPolicy is per-intersection choice of traffic control
type LightPolicy uint16

const (
	LIGHT_AUTO = LightPolicy(iota + 1)
	LIGHT_NO_LIGHTS
	LIGHT_STOP_SIGNS
	LIGHT_LIGHTS
)

func (iotaIdx LightPolicy) String() string {
	return [...]string{"auto", "no_lights", "stop_signs", "lights"}[iotaIdx-1]
}

// TrafficController assigns priority state to lanes arriving at an intersection.
// It is invoked once per intersection right after its turns are regenerated
type TrafficController interface {
	Apply(inter *Intersection, lanes *Lanes, roads *Roads)
}

// TrafficControllerFunc adapts a function to TrafficController
type TrafficControllerFunc func(inter *Intersection, lanes *Lanes, roads *Roads)

func (f TrafficControllerFunc) Apply(inter *Intersection, lanes *Lanes, roads *Roads) {
	f(inter, lanes, roads)
}

// AutoTrafficControl follows intersection's LightPolicy.
// In LIGHT_AUTO mode: up to two roads never stop, three roads get stop signs, four and more roads get lights
type AutoTrafficControl struct{}

func (AutoTrafficControl) Apply(inter *Intersection, lanes *Lanes, roads *Roads) {
	control := CONTROL_ALWAYS
	switch inter.Light {
	case LIGHT_STOP_SIGNS:
		control = CONTROL_STOP_SIGN
	case LIGHT_LIGHTS:
		control = CONTROL_LIGHT
	case LIGHT_NO_LIGHTS:
	default:
		switch n := len(inter.Roads); {
		case n >= 4:
			control = CONTROL_LIGHT
		case n == 3:
			control = CONTROL_STOP_SIGN
		}
	}
	for _, roadID := range inter.Roads {
		road, ok := roads.Get(roadID)
		if !ok {
			continue
		}
		for _, laneID := range road.IncomingLanesTo(inter.ID) {
			lane, ok := lanes.Get(laneID)
			if !ok {
				continue
			}
			if lane.Kind.NeedsLight() {
				lane.Control = control
			} else {
				lane.Control = CONTROL_ALWAYS
			}
		}
	}
}
