package provider

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

var (
	// ErrNoActiveGuidance is returned when a host report arrives with no guidance running.
	ErrNoActiveGuidance = errors.New("no active guidance")
	// ErrSimulatedGuidance is returned when a host reports progress for a simulated route.
	ErrSimulatedGuidance = errors.New("guidance is simulated")
)

// Composite is the RouteProvider of one session. Routes come from the calculator.
// Guidance is replayed by the guide when the session simulates and otherwise
// follows progress the host reports for its device.
type Composite struct {
	calc   Calculator
	guide  Guide
	logger *zap.Logger

	mu        sync.Mutex
	observer  navigation.GuidanceObserver
	simulated bool
	volume    float64
}

// NewComposite creates a provider for one session. guide may be nil, in which
// case simulation requests fall back to host-reported guidance.
func NewComposite(calc Calculator, guide Guide, logger *zap.Logger) *Composite {
	return &Composite{calc: calc, guide: guide, logger: logger, volume: 1}
}

// CalculateRoute delegates to the calculator.
func (p *Composite) CalculateRoute(ctx context.Context, req navigation.RouteRequest) (navigation.RouteSolution, error) {
	return p.calc.CalculateRoute(ctx, req)
}

// StartGuidance starts simulated or host-reported guidance for solution.
func (p *Composite) StartGuidance(solution navigation.RouteSolution, opts navigation.GuidanceOptions, observer navigation.GuidanceObserver) error {
	p.StopGuidance()

	simulate := opts.Simulate && p.guide != nil
	if simulate {
		if err := p.guide.Start(solution, observer); err != nil {
			return err
		}
	}

	p.mu.Lock()
	p.observer = observer
	p.simulated = simulate
	p.volume = opts.Volume
	p.mu.Unlock()

	p.logger.Debug("guidance started",
		zap.Bool("simulated", simulate),
		zap.String("language", opts.Language),
		zap.String("units", string(opts.Units)),
	)
	return nil
}

// StopGuidance ends the active guidance, if any.
func (p *Composite) StopGuidance() {
	p.mu.Lock()
	simulated := p.simulated
	p.observer = nil
	p.simulated = false
	p.mu.Unlock()

	if simulated {
		p.guide.Stop()
	}
}

// SetGuidanceVolume records the voice volume for the active guidance.
func (p *Composite) SetGuidanceVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = level
}

// Volume returns the last volume set.
func (p *Composite) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// ReportProgress forwards host-measured progress to the active guidance.
func (p *Composite) ReportProgress(progress navigation.RouteProgress) error {
	obs, err := p.hostObserver()
	if err != nil {
		return err
	}
	obs.OnRouteProgress(progress)
	return nil
}

// ReportWaypointArrival forwards a host-detected arrival at the end of a leg.
func (p *Composite) ReportWaypointArrival(legIndex int) error {
	obs, err := p.hostObserver()
	if err != nil {
		return err
	}
	obs.OnWaypointArrival(legIndex)
	return nil
}

// ReportArrival forwards a host-detected arrival at the final destination.
func (p *Composite) ReportArrival() error {
	obs, err := p.hostObserver()
	if err != nil {
		return err
	}
	obs.OnFinalDestinationArrival()
	return nil
}

// ReportOffRoute forwards a host-detected deviation from the route.
func (p *Composite) ReportOffRoute() error {
	obs, err := p.hostObserver()
	if err != nil {
		return err
	}
	obs.OnOffRoute()
	return nil
}

func (p *Composite) hostObserver() (navigation.GuidanceObserver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.observer == nil {
		return nil, ErrNoActiveGuidance
	}
	if p.simulated {
		return nil, ErrSimulatedGuidance
	}
	return p.observer, nil
}
