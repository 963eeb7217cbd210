package navigation

// EventType names an outbound event as the host knows it.
type EventType string

const (
	EventRouteProgress      EventType = "onRouteProgressChanged"
	EventNavigationReady    EventType = "onNavigationReady"
	EventNavigationCanceled EventType = "onNavigationCanceled"
	EventNavigationFinished EventType = "onNavigationFinished"
	EventNavigationError    EventType = "onNavigationError"
	EventWaypointArrival    EventType = "onWaypointArrival"
	EventRouteChanged       EventType = "onRouteChanged"
	EventUserOffRoute       EventType = "onUserOffRoute"
)

// Event is any payload delivered through an EventSink.
type Event interface {
	Type() EventType
}

// EventSink delivers events to the host in emission order. Emit must not block.
type EventSink interface {
	Emit(evt Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(evt Event)

// Emit calls f(evt).
func (f EventSinkFunc) Emit(evt Event) { f(evt) }

// CancelReason tells the host why a route request or guidance ended early.
type CancelReason string

const (
	CancelReasonUser       CancelReason = "user_canceled"
	CancelReasonSuperseded CancelReason = "superseded"
	CancelReasonProvider   CancelReason = "provider_canceled"
)

// RouteProgress is forwarded unmodified from the provider while guiding.
type RouteProgress struct {
	DistanceRemaining float64 `json:"distanceRemaining"`
	DurationRemaining float64 `json:"durationRemaining"`
	DistanceTraveled  float64 `json:"distanceTraveled"`
	FractionTraveled  float64 `json:"fractionTraveled"`
}

func (RouteProgress) Type() EventType { return EventRouteProgress }

// NavigationReady reports that the host rendering surface is ready.
type NavigationReady struct {
	Ready bool `json:"ready"`
}

func (NavigationReady) Type() EventType { return EventNavigationReady }

// NavigationCanceled reports an aborted request or guidance.
type NavigationCanceled struct {
	Reason CancelReason `json:"reason"`
}

func (NavigationCanceled) Type() EventType { return EventNavigationCanceled }

// NavigationFinished reports the end of guidance.
type NavigationFinished struct {
	Completed bool `json:"completed"`
}

func (NavigationFinished) Type() EventType { return EventNavigationFinished }

// NavigationError reports a configuration or provider failure.
type NavigationError struct {
	Error   string   `json:"error"`
	Reasons []string `json:"reasons,omitempty"`
}

func (NavigationError) Type() EventType { return EventNavigationError }

// WaypointArrival reports arrival at an intermediate leg boundary.
type WaypointArrival struct {
	LegIndex int `json:"legIndex"`
}

func (WaypointArrival) Type() EventType { return EventWaypointArrival }

// RouteChanged reports that the provider rerouted during guidance.
type RouteChanged struct{}

func (RouteChanged) Type() EventType { return EventRouteChanged }

// UserOffRoute reports that the device left the route during guidance.
type UserOffRoute struct{}

func (UserOffRoute) Type() EventType { return EventUserOffRoute }
