package navigation

// SessionConfig is the desired configuration as last set by the host.
// It is an immutable value: Merge returns a new config and never mutates the receiver.
type SessionConfig struct {
	Origin                  *Coordinate  `json:"origin,omitempty"`
	Destination             *Coordinate  `json:"destination,omitempty"`
	DestinationTitle        *string      `json:"destination_title,omitempty"`
	Waypoints               []Waypoint   `json:"waypoints"`
	TravelMode              TravelMode   `json:"travel_mode"`
	Language                string       `json:"language"`
	DistanceUnit            DistanceUnit `json:"distance_unit"`
	Muted                   bool         `json:"muted"`
	Simulate                bool         `json:"simulate"`
	SeparateLegs            bool         `json:"separate_legs"`
	ShowCancelButton        bool         `json:"show_cancel_button"`
	ShowsEndOfRouteFeedback bool         `json:"shows_end_of_route_feedback"`
	HideStatusView          bool         `json:"hide_status_view"`
}

// DefaultSessionConfig returns the empty configuration a session starts with.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Waypoints:               []Waypoint{},
		TravelMode:              DefaultTravelMode,
		Language:                "en",
		DistanceUnit:            DistanceUnitMetric,
		ShowCancelButton:        true,
		ShowsEndOfRouteFeedback: true,
	}
}

// ConfigPatch is a partial update. Nil fields leave the current value untouched.
type ConfigPatch struct {
	Origin                  *Coordinate
	ClearOrigin             bool
	Destination             *Coordinate
	ClearDestination        bool
	DestinationTitle        *string
	ClearDestinationTitle   bool
	Waypoints               *[]Waypoint
	TravelMode              *TravelMode
	Language                *string
	DistanceUnit            *DistanceUnit
	Muted                   *bool
	Simulate                *bool
	SeparateLegs            *bool
	ShowCancelButton        *bool
	ShowsEndOfRouteFeedback *bool
	HideStatusView          *bool
}

// IsEmpty reports whether applying p would change nothing regardless of the base config.
func (p ConfigPatch) IsEmpty() bool {
	return p == (ConfigPatch{})
}

// Validate checks every coordinate carried by the patch.
func (p ConfigPatch) Validate() error {
	if p.Origin != nil {
		if err := p.Origin.Validate(); err != nil {
			return err
		}
	}
	if p.Destination != nil {
		if err := p.Destination.Validate(); err != nil {
			return err
		}
	}
	if p.Waypoints != nil {
		for _, wp := range *p.Waypoints {
			if err := wp.Coordinate.Validate(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Merge returns a copy of c with p applied. Clear flags win over values in the same patch.
func (c SessionConfig) Merge(p ConfigPatch) SessionConfig {
	out := c.clone()

	if p.Origin != nil {
		o := *p.Origin
		out.Origin = &o
	}
	if p.ClearOrigin {
		out.Origin = nil
	}
	if p.Destination != nil {
		d := *p.Destination
		out.Destination = &d
	}
	if p.ClearDestination {
		out.Destination = nil
	}
	if p.DestinationTitle != nil {
		t := *p.DestinationTitle
		out.DestinationTitle = &t
	}
	if p.ClearDestinationTitle {
		out.DestinationTitle = nil
	}
	if p.Waypoints != nil {
		out.Waypoints = cloneWaypoints(*p.Waypoints)
	}
	if p.TravelMode != nil {
		out.TravelMode = ParseTravelMode(string(*p.TravelMode))
	}
	if p.Language != nil && *p.Language != "" {
		out.Language = *p.Language
	}
	if p.DistanceUnit != nil {
		out.DistanceUnit = ParseDistanceUnit(string(*p.DistanceUnit))
	}
	if p.Muted != nil {
		out.Muted = *p.Muted
	}
	if p.Simulate != nil {
		out.Simulate = *p.Simulate
	}
	if p.SeparateLegs != nil {
		out.SeparateLegs = *p.SeparateLegs
	}
	if p.ShowCancelButton != nil {
		out.ShowCancelButton = *p.ShowCancelButton
	}
	if p.ShowsEndOfRouteFeedback != nil {
		out.ShowsEndOfRouteFeedback = *p.ShowsEndOfRouteFeedback
	}
	if p.HideStatusView != nil {
		out.HideStatusView = *p.HideStatusView
	}
	return out
}

// sameRoute reports whether a and b would produce the same route request
// for the same fallback location.
func sameRoute(a, b SessionConfig) bool {
	if !sameCoordinate(a.Origin, b.Origin) || !sameCoordinate(a.Destination, b.Destination) {
		return false
	}
	if a.TravelMode != b.TravelMode || a.Language != b.Language ||
		a.DistanceUnit != b.DistanceUnit || a.SeparateLegs != b.SeparateLegs {
		return false
	}
	if len(a.Waypoints) != len(b.Waypoints) {
		return false
	}
	for i := range a.Waypoints {
		if !a.Waypoints[i].equal(b.Waypoints[i]) {
			return false
		}
	}
	return true
}

func sameCoordinate(a, b *Coordinate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (c SessionConfig) clone() SessionConfig {
	out := c
	if c.Origin != nil {
		o := *c.Origin
		out.Origin = &o
	}
	if c.Destination != nil {
		d := *c.Destination
		out.Destination = &d
	}
	if c.DestinationTitle != nil {
		t := *c.DestinationTitle
		out.DestinationTitle = &t
	}
	out.Waypoints = cloneWaypoints(c.Waypoints)
	return out
}

func cloneWaypoints(in []Waypoint) []Waypoint {
	out := make([]Waypoint, len(in))
	for i, wp := range in {
		if wp.Name != nil {
			n := *wp.Name
			wp.Name = &n
		}
		out[i] = wp
	}
	return out
}
