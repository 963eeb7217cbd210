package navigation

import (
	"context"
	"errors"
	"strings"
)

// ErrRouteCanceled is returned by a RouteProvider that aborted a computation on its own.
var ErrRouteCanceled = errors.New("route request canceled")

// RouteProvider computes routes and drives active guidance.
// CalculateRoute is the only blocking call and must return promptly once ctx is done.
type RouteProvider interface {
	CalculateRoute(ctx context.Context, req RouteRequest) (RouteSolution, error)
	StartGuidance(solution RouteSolution, opts GuidanceOptions, observer GuidanceObserver) error
	StopGuidance()
	// SetGuidanceVolume sets voice volume in [0, 1].
	SetGuidanceVolume(level float64)
}

// GuidanceObserver receives guidance callbacks. Calls may come from any goroutine.
type GuidanceObserver interface {
	OnRouteProgress(progress RouteProgress)
	OnWaypointArrival(legIndex int)
	OnFinalDestinationArrival()
	OnRouteChanged()
	OnOffRoute()
}

// GuidanceOptions carries the session props that affect an active guidance.
type GuidanceOptions struct {
	Simulate         bool
	Volume           float64
	Language         string
	Units            DistanceUnit
	DestinationTitle string
}

// RouteSolution is a provider's answer to a RouteRequest. Routes[0] is the primary route.
type RouteSolution struct {
	Request RouteRequest `json:"-"`
	Routes  []Route      `json:"routes"`
}

// Primary returns the first route and false if there is none.
func (s RouteSolution) Primary() (Route, bool) {
	if len(s.Routes) == 0 {
		return Route{}, false
	}
	return s.Routes[0], true
}

// Route is one alternative of a solution.
type Route struct {
	// Distance in meters.
	Distance float64 `json:"distance"`
	// Duration in seconds.
	Duration float64      `json:"duration"`
	Geometry []Coordinate `json:"geometry"`
	Legs     []RouteLeg   `json:"legs"`
}

// RouteLeg is the part of a route between two leg boundaries.
type RouteLeg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Summary  string  `json:"summary,omitempty"`
}

// RouteError is a provider failure. Reasons are kept verbatim for the host.
type RouteError struct {
	Message string
	Reasons []string
}

func (e *RouteError) Error() string {
	if len(e.Reasons) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Reasons, "; ")
}
