package navigation

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrSurfaceNotReady is returned by RequestRoute while the controller awaits the host surface.
var ErrSurfaceNotReady = errors.New("navigation surface is not ready")

// Snapshot is a copy of the controller's observable state.
type Snapshot struct {
	State        SessionState   `json:"state"`
	Config       SessionConfig  `json:"config"`
	Generation   uint64         `json:"generation"`
	Presentation Presentation   `json:"presentation"`
	SurfaceReady bool           `json:"surface_ready"`
	Location     *Location      `json:"location,omitempty"`
	Request      *RouteRequest  `json:"-"`
	Route        *Route         `json:"route,omitempty"`
	Progress     *RouteProgress `json:"progress,omitempty"`
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger used for transition and stale-result logs.
func WithLogger(logger *zap.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithAwaitSurface holds back route requests until SurfaceReady is called.
func WithAwaitSurface(await bool) ControllerOption {
	return func(c *Controller) { c.awaitSurface = await }
}

// WithInitialConfig replaces the default empty configuration.
func WithInitialConfig(cfg SessionConfig) ControllerOption {
	return func(c *Controller) { c.config = cfg.clone() }
}

// WithChangeListener registers fn to receive a snapshot after every change.
// fn runs on the dispatcher and must not call back into the controller.
func WithChangeListener(fn func(Snapshot)) ControllerOption {
	return func(c *Controller) { c.onChange = fn }
}

type inFlightRequest struct {
	generation uint64
	request    RouteRequest
	cancel     context.CancelFunc
}

// Controller is the navigation session state machine and the only caller of its RouteProvider.
//
// A Controller is not safe for concurrent use. Every method must be called from
// the goroutine its Dispatcher runs on; provider results are posted back there.
type Controller struct {
	provider   RouteProvider
	sink       EventSink
	dispatcher Dispatcher
	logger     *zap.Logger
	onChange   func(Snapshot)

	config     SessionConfig
	state      SessionState
	generation uint64

	inFlight   *inFlightRequest
	lastIssued *SessionConfig
	active     *RouteRequest
	route      *Route
	progress   *RouteProgress
	progressed bool

	location     *Location
	awaitSurface bool
	surfaceReady bool
	readySent    bool
}

// NewController creates an idle controller with an empty configuration.
func NewController(provider RouteProvider, sink EventSink, dispatcher Dispatcher, opts ...ControllerOption) *Controller {
	c := &Controller{
		provider:   provider,
		sink:       sink,
		dispatcher: dispatcher,
		logger:     zap.NewNop(),
		config:     DefaultSessionConfig(),
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current session state.
func (c *Controller) State() SessionState { return c.state }

// Config returns a copy of the current configuration.
func (c *Controller) Config() SessionConfig { return c.config.clone() }

// Generation returns the generation of the most recent route request.
func (c *Controller) Generation() uint64 { return c.generation }

// Snapshot returns a copy of the observable state.
func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		State:        c.state,
		Config:       c.config.clone(),
		Generation:   c.generation,
		Presentation: derivePresentation(c.state, c.config, c.progressed),
		SurfaceReady: c.surfaceReady,
	}
	if c.location != nil {
		loc := *c.location
		s.Location = &loc
	}
	switch {
	case c.inFlight != nil:
		req := c.inFlight.request
		s.Request = &req
	case c.active != nil:
		req := *c.active
		s.Request = &req
	}
	if c.route != nil {
		r := *c.route
		s.Route = &r
	}
	if c.progress != nil {
		p := *c.progress
		s.Progress = &p
	}
	return s
}

// UpdateConfig merges patch and starts a route computation when the merged
// config is routable and no equivalent request is in flight or active.
// Invalid coordinates are rejected as a whole and reported as NavigationError.
func (c *Controller) UpdateConfig(patch ConfigPatch) error {
	if err := patch.Validate(); err != nil {
		c.emit(NavigationError{Error: err.Error()})
		return err
	}

	prevMuted := c.config.Muted
	c.config = c.config.Merge(patch)
	if c.config.Muted != prevMuted {
		c.applyVolume()
	}

	c.maybeRequest(true)
	c.notify()
	return nil
}

// RequestRoute forces a (re)computation for the current config.
func (c *Controller) RequestRoute() error {
	if c.awaitSurface && !c.surfaceReady {
		c.emit(NavigationError{Error: ErrSurfaceNotReady.Error()})
		return ErrSurfaceNotReady
	}
	req, err := BuildRouteRequest(c.config, c.location)
	if err != nil {
		c.emit(NavigationError{Error: err.Error()})
		return err
	}
	c.startRequest(req)
	c.notify()
	return nil
}

// Cancel aborts the in-flight request or the active guidance and moves to canceled.
// It is a no-op while idle, canceled or finished.
func (c *Controller) Cancel() {
	switch c.state {
	case StateRequestPending:
		c.abortInFlight()
	case StateGuiding:
		c.stopGuidance()
	default:
		c.logger.Debug("cancel ignored", zap.String("state", c.state.String()))
		return
	}
	c.generation++
	c.transition(StateCanceled)
	c.emit(NavigationCanceled{Reason: CancelReasonUser})
	c.notify()
}

// Teardown releases provider work when the host goes away. No event is emitted.
func (c *Controller) Teardown() {
	switch c.state {
	case StateRequestPending:
		c.abortInFlight()
	case StateGuiding:
		c.stopGuidance()
	case StateCanceled:
		return
	}
	c.generation++
	if c.state != StateFinished {
		c.transition(StateCanceled)
	}
}

// ToggleMute flips the muted flag and returns the new value. The volume is applied
// to active guidance immediately, otherwise when guidance starts.
func (c *Controller) ToggleMute() bool {
	muted := !c.config.Muted
	c.config = c.config.Merge(ConfigPatch{Muted: &muted})
	c.applyVolume()
	c.notify()
	return muted
}

// SurfaceReady records that the host surface can show guidance and emits
// NavigationReady once. A route held back for the surface is requested now.
func (c *Controller) SurfaceReady() {
	c.surfaceReady = true
	if !c.readySent {
		c.readySent = true
		c.emit(NavigationReady{Ready: true})
	}
	c.maybeRequest(false)
	c.notify()
}

// SetLocation stores the last known device location used when no start origin is set.
func (c *Controller) SetLocation(loc Location) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	c.location = &loc
	if c.config.Origin == nil {
		c.maybeRequest(false)
	}
	c.notify()
	return nil
}

// maybeRequest starts a computation when the config is routable. An equivalent
// request is never reissued while one is in flight or guidance is active. Outside
// those states a config update always requests; location and surface changes only
// request when the config differs from the last one issued.
func (c *Controller) maybeRequest(configUpdate bool) {
	if c.awaitSurface && !c.surfaceReady {
		return
	}
	req, err := BuildRouteRequest(c.config, c.location)
	if err != nil {
		// Partial configuration is expected while props arrive.
		return
	}
	duplicate := c.lastIssued != nil && sameRoute(*c.lastIssued, c.config)
	if duplicate && (c.state.IsActive() || !configUpdate) {
		return
	}
	c.startRequest(req)
}

func (c *Controller) startRequest(req RouteRequest) {
	switch c.state {
	case StateRequestPending:
		c.abortInFlight()
		c.emit(NavigationCanceled{Reason: CancelReasonSuperseded})
	case StateGuiding:
		c.stopGuidance()
	}

	c.generation++
	gen := c.generation
	ctx, cancel := context.WithCancel(context.Background())
	c.inFlight = &inFlightRequest{generation: gen, request: req, cancel: cancel}
	issued := c.config.clone()
	c.lastIssued = &issued
	c.transition(StateRequestPending)

	c.logger.Debug("requesting route",
		zap.Uint64("generation", gen),
		zap.String("profile", req.Profile()),
		zap.Int("coordinates", len(req.coordinates)),
	)

	provider := c.provider
	dispatcher := c.dispatcher
	go func() {
		solution, err := provider.CalculateRoute(ctx, req)
		dispatcher.Post(func() { c.onRouteResult(gen, solution, err) })
	}()
}

func (c *Controller) onRouteResult(gen uint64, solution RouteSolution, err error) {
	if gen != c.generation || c.inFlight == nil || c.inFlight.generation != gen {
		c.logger.Debug("discarding stale route result",
			zap.Uint64("generation", gen),
			zap.Uint64("current", c.generation),
		)
		return
	}
	req := c.inFlight.request
	c.inFlight.cancel()
	c.inFlight = nil

	var routeErr *RouteError
	switch {
	case errors.Is(err, ErrRouteCanceled) || errors.Is(err, context.Canceled):
		c.transition(StateIdle)
		c.emit(NavigationCanceled{Reason: CancelReasonProvider})
	case errors.As(err, &routeErr):
		c.transition(StateIdle)
		c.emit(NavigationError{Error: routeErr.Message, Reasons: append([]string(nil), routeErr.Reasons...)})
	case err != nil:
		c.transition(StateIdle)
		c.emit(NavigationError{Error: "Route request failed", Reasons: []string{err.Error()}})
	case len(solution.Routes) == 0:
		c.transition(StateIdle)
		c.emit(NavigationError{Error: "No routes found"})
	default:
		solution.Request = req
		c.startGuidance(gen, req, solution)
	}
	c.notify()
}

func (c *Controller) startGuidance(gen uint64, req RouteRequest, solution RouteSolution) {
	opts := GuidanceOptions{
		Simulate: c.config.Simulate,
		Volume:   c.volume(),
		Language: c.config.Language,
		Units:    c.config.DistanceUnit,
	}
	if c.config.DestinationTitle != nil {
		opts.DestinationTitle = *c.config.DestinationTitle
	}

	if err := c.provider.StartGuidance(solution, opts, &guidanceRelay{c: c, generation: gen}); err != nil {
		c.transition(StateIdle)
		c.emit(NavigationError{Error: "Failed to start guidance", Reasons: []string{err.Error()}})
		return
	}
	c.provider.SetGuidanceVolume(opts.Volume)

	primary, _ := solution.Primary()
	c.active = &req
	c.route = &primary
	c.progress = nil
	c.progressed = false
	c.transition(StateGuiding)
}

func (c *Controller) abortInFlight() {
	if c.inFlight == nil {
		return
	}
	c.inFlight.cancel()
	c.inFlight = nil
}

func (c *Controller) stopGuidance() {
	c.provider.StopGuidance()
	c.active = nil
	c.route = nil
	c.progress = nil
	c.progressed = false
}

func (c *Controller) volume() float64 {
	if c.config.Muted {
		return 0
	}
	return 1
}

func (c *Controller) applyVolume() {
	if c.state == StateGuiding {
		c.provider.SetGuidanceVolume(c.volume())
	}
}

func (c *Controller) transition(to SessionState) {
	if !c.state.CanTransitionTo(to) {
		c.logger.Error("invalid session transition",
			zap.String("from", c.state.String()),
			zap.String("to", to.String()),
		)
		return
	}
	c.logger.Debug("session transition",
		zap.String("from", c.state.String()),
		zap.String("to", to.String()),
		zap.Uint64("generation", c.generation),
	)
	c.state = to
}

func (c *Controller) emit(evt Event) {
	if c.sink != nil {
		c.sink.Emit(evt)
	}
}

func (c *Controller) notify() {
	if c.onChange != nil {
		c.onChange(c.Snapshot())
	}
}

// guidance callbacks, already on the dispatcher

func (c *Controller) guidanceCurrent(gen uint64) bool {
	return c.state == StateGuiding && c.generation == gen
}

func (c *Controller) onProgress(gen uint64, p RouteProgress) {
	if !c.guidanceCurrent(gen) {
		return
	}
	c.progress = &p
	first := !c.progressed
	c.progressed = true
	c.emit(p)
	if first {
		c.notify()
	}
}

func (c *Controller) onWaypointArrival(gen uint64, legIndex int) {
	if !c.guidanceCurrent(gen) {
		return
	}
	c.emit(WaypointArrival{LegIndex: legIndex})
}

func (c *Controller) onFinalArrival(gen uint64) {
	if !c.guidanceCurrent(gen) {
		return
	}
	c.stopGuidance()
	c.transition(StateFinished)
	c.emit(NavigationFinished{Completed: true})
	c.notify()
}

func (c *Controller) onRouteChanged(gen uint64) {
	if !c.guidanceCurrent(gen) {
		return
	}
	c.emit(RouteChanged{})
}

func (c *Controller) onOffRoute(gen uint64) {
	if !c.guidanceCurrent(gen) {
		return
	}
	c.emit(UserOffRoute{})
}

// guidanceRelay re-dispatches provider callbacks onto the controller's context.
type guidanceRelay struct {
	c          *Controller
	generation uint64
}

func (r *guidanceRelay) OnRouteProgress(p RouteProgress) {
	r.c.dispatcher.Post(func() { r.c.onProgress(r.generation, p) })
}

func (r *guidanceRelay) OnWaypointArrival(legIndex int) {
	r.c.dispatcher.Post(func() { r.c.onWaypointArrival(r.generation, legIndex) })
}

func (r *guidanceRelay) OnFinalDestinationArrival() {
	r.c.dispatcher.Post(func() { r.c.onFinalArrival(r.generation) })
}

func (r *guidanceRelay) OnRouteChanged() {
	r.c.dispatcher.Post(func() { r.c.onRouteChanged(r.generation) })
}

func (r *guidanceRelay) OnOffRoute() {
	r.c.dispatcher.Post(func() { r.c.onOffRoute(r.generation) })
}
