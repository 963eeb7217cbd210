package navigation

import "errors"

var (
	// ErrMissingOrigin is returned when neither a start origin nor a fallback location is set.
	ErrMissingOrigin = errors.New("no origin location available")
	// ErrMissingDestination is returned when no destination is set.
	ErrMissingDestination = errors.New("destination is not set")
)

// originBearingTolerance is the allowed deviation, in degrees, around the origin bearing.
const originBearingTolerance = 45.0

// RouteRequest is an immutable snapshot of what to route.
type RouteRequest struct {
	coordinates   []Coordinate
	legBoundaries []int
	profile       string
	locale        string
	units         DistanceUnit
	originBearing *float64
}

// BuildRouteRequest derives a request from cfg. The fallback location is used
// as origin only when cfg has none.
func BuildRouteRequest(cfg SessionConfig, fallback *Location) (RouteRequest, error) {
	var (
		origin  Coordinate
		bearing *float64
	)
	switch {
	case cfg.Origin != nil:
		origin = *cfg.Origin
	case fallback != nil:
		if err := fallback.Coordinate.Validate(); err != nil {
			return RouteRequest{}, err
		}
		origin = fallback.Coordinate
		if fallback.Bearing != nil {
			b := *fallback.Bearing
			bearing = &b
		}
	default:
		return RouteRequest{}, ErrMissingOrigin
	}
	if cfg.Destination == nil {
		return RouteRequest{}, ErrMissingDestination
	}

	coords := make([]Coordinate, 0, len(cfg.Waypoints)+2)
	legs := []int{0}
	coords = append(coords, origin)
	for _, wp := range cfg.Waypoints {
		coords = append(coords, wp.Coordinate)
		if wp.SeparatesLegs || cfg.SeparateLegs {
			legs = append(legs, len(coords)-1)
		}
	}
	coords = append(coords, *cfg.Destination)
	legs = append(legs, len(coords)-1)

	return RouteRequest{
		coordinates:   coords,
		legBoundaries: legs,
		profile:       cfg.TravelMode.Profile(),
		locale:        cfg.Language,
		units:         cfg.DistanceUnit,
		originBearing: bearing,
	}, nil
}

// Coordinates returns origin, waypoints and destination in order.
func (r RouteRequest) Coordinates() []Coordinate {
	out := make([]Coordinate, len(r.coordinates))
	copy(out, r.coordinates)
	return out
}

// LegBoundaries returns the coordinate indices at which a leg starts or ends.
// The first and last coordinates are always boundaries.
func (r RouteRequest) LegBoundaries() []int {
	out := make([]int, len(r.legBoundaries))
	copy(out, r.legBoundaries)
	return out
}

// Origin returns the first coordinate.
func (r RouteRequest) Origin() Coordinate { return r.coordinates[0] }

// Destination returns the last coordinate.
func (r RouteRequest) Destination() Coordinate { return r.coordinates[len(r.coordinates)-1] }

// Profile returns the routing profile, e.g. "driving-traffic".
func (r RouteRequest) Profile() string { return r.profile }

// Locale returns the language used for instructions.
func (r RouteRequest) Locale() string { return r.locale }

// Units returns the distance unit for instructions.
func (r RouteRequest) Units() DistanceUnit { return r.units }

// OriginBearing returns the device bearing at the origin, if known.
func (r RouteRequest) OriginBearing() (bearing, tolerance float64, ok bool) {
	if r.originBearing == nil {
		return 0, 0, false
	}
	return *r.originBearing, originBearingTolerance, true
}

// IsZero reports whether r was never built.
func (r RouteRequest) IsZero() bool { return len(r.coordinates) == 0 }

// Equal reports whether r and o describe the same route.
func (r RouteRequest) Equal(o RouteRequest) bool {
	if r.profile != o.profile || r.locale != o.locale || r.units != o.units {
		return false
	}
	if len(r.coordinates) != len(o.coordinates) || len(r.legBoundaries) != len(o.legBoundaries) {
		return false
	}
	for i := range r.coordinates {
		if r.coordinates[i] != o.coordinates[i] {
			return false
		}
	}
	for i := range r.legBoundaries {
		if r.legBoundaries[i] != o.legBoundaries[i] {
			return false
		}
	}
	switch {
	case r.originBearing == nil && o.originBearing == nil:
		return true
	case r.originBearing == nil || o.originBearing == nil:
		return false
	default:
		return *r.originBearing == *o.originBearing
	}
}
