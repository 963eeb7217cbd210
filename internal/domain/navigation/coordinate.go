package navigation

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidCoordinate is returned for latitudes or longitudes outside their range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	// ErrInvalidBearing is returned for bearings outside [0, 360].
	ErrInvalidBearing = errors.New("invalid bearing")
)

// Coordinate is an immutable geographic point in degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates lat/lng and returns the point.
func NewCoordinate(lat, lng float64) (Coordinate, error) {
	c := Coordinate{Latitude: lat, Longitude: lng}
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// Validate reports ErrInvalidCoordinate for non-finite or out-of-range values.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

// String formats the point as "lat,lng".
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Latitude, c.Longitude)
}

// Waypoint is an intermediate stop between origin and destination.
type Waypoint struct {
	Coordinate    Coordinate `json:"coordinate"`
	Name          *string    `json:"name,omitempty"`
	SeparatesLegs bool       `json:"separates_legs"`
}

// NewWaypoint validates the coordinate. Name is absent and SeparatesLegs is false.
func NewWaypoint(lat, lng float64) (Waypoint, error) {
	c, err := NewCoordinate(lat, lng)
	if err != nil {
		return Waypoint{}, err
	}
	return Waypoint{Coordinate: c}, nil
}

// WithName returns a copy of w carrying name.
func (w Waypoint) WithName(name string) Waypoint {
	w.Name = &name
	return w
}

// WithLegSeparation returns a copy of w with SeparatesLegs set.
func (w Waypoint) WithLegSeparation(separates bool) Waypoint {
	w.SeparatesLegs = separates
	return w
}

func (w Waypoint) equal(o Waypoint) bool {
	if w.Coordinate != o.Coordinate || w.SeparatesLegs != o.SeparatesLegs {
		return false
	}
	switch {
	case w.Name == nil && o.Name == nil:
		return true
	case w.Name == nil || o.Name == nil:
		return false
	default:
		return *w.Name == *o.Name
	}
}

// Location is a device fix used as a fallback origin.
type Location struct {
	Coordinate Coordinate `json:"coordinate"`
	// Bearing in degrees clockwise from north, when the fix has one.
	Bearing *float64 `json:"bearing,omitempty"`
}

// Validate checks the coordinate and, when present, that the bearing is within [0, 360].
func (l Location) Validate() error {
	if err := l.Coordinate.Validate(); err != nil {
		return err
	}
	if l.Bearing != nil && (math.IsNaN(*l.Bearing) || *l.Bearing < 0 || *l.Bearing > 360) {
		return fmt.Errorf("%w: %v out of range [0, 360]", ErrInvalidBearing, *l.Bearing)
	}
	return nil
}
