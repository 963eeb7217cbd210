package navigation

import "strings"

// TravelMode selects the routing profile.
type TravelMode string

const (
	TravelModeDriving TravelMode = "driving"
	TravelModeWalking TravelMode = "walking"
	TravelModeCycling TravelMode = "cycling"
)

// DefaultTravelMode is used for empty or unrecognized input.
const DefaultTravelMode = TravelModeDriving

// ParseTravelMode never fails: unknown values fall back to driving.
func ParseTravelMode(s string) TravelMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "walking":
		return TravelModeWalking
	case "cycling", "biking":
		return TravelModeCycling
	case "driving", "car":
		return TravelModeDriving
	default:
		return DefaultTravelMode
	}
}

// IsValid returns true for the three canonical modes.
func (m TravelMode) IsValid() bool {
	switch m {
	case TravelModeDriving, TravelModeWalking, TravelModeCycling:
		return true
	}
	return false
}

// Profile returns the routing profile identifier for the mode.
func (m TravelMode) Profile() string {
	switch m {
	case TravelModeWalking:
		return "walking"
	case TravelModeCycling:
		return "cycling"
	default:
		return "driving-traffic"
	}
}

// DistanceUnit is the unit system for spoken and displayed distances.
type DistanceUnit string

const (
	DistanceUnitMetric   DistanceUnit = "metric"
	DistanceUnitImperial DistanceUnit = "imperial"
)

// ParseDistanceUnit falls back to metric for unknown values.
func ParseDistanceUnit(s string) DistanceUnit {
	if strings.EqualFold(strings.TrimSpace(s), string(DistanceUnitImperial)) {
		return DistanceUnitImperial
	}
	return DistanceUnitMetric
}
