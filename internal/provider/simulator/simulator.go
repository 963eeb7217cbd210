// Package simulator replays a route as if a device were driving it.
package simulator

import (
	"errors"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

const (
	defaultTick  = time.Second
	defaultSpeed = 13.9 // m/s, about 50 km/h
)

// ErrEmptyRoute is returned when a solution has no primary route to follow.
var ErrEmptyRoute = errors.New("simulator: solution has no route")

// Simulator moves along the primary route at a constant speed and reports
// progress every tick. Start replaces any running simulation.
type Simulator struct {
	tick   time.Duration
	speed  float64
	logger *zap.Logger

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a simulator. speed is in meters per second.
func New(tick time.Duration, speed float64, logger *zap.Logger) *Simulator {
	if tick <= 0 {
		tick = defaultTick
	}
	if speed <= 0 {
		speed = defaultSpeed
	}
	return &Simulator{tick: tick, speed: speed, logger: logger}
}

// Start begins replaying the primary route of solution.
func (s *Simulator) Start(solution navigation.RouteSolution, observer navigation.GuidanceObserver) error {
	route, ok := solution.Primary()
	if !ok {
		return ErrEmptyRoute
	}
	w := newWalk(route)

	s.Stop()

	s.mu.Lock()
	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done
	s.mu.Unlock()

	s.logger.Debug("simulation started",
		zap.Float64("distance", w.total),
		zap.Int("legs", len(w.legEnds)),
	)
	go s.run(w, observer, stop, done)
	return nil
}

// Stop halts the running simulation and waits for it to exit.
func (s *Simulator) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (s *Simulator) run(w *walk, observer navigation.GuidanceObserver, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	step := s.speed * s.tick.Seconds()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		progress, legs, finished := w.advance(step)
		observer.OnRouteProgress(progress)
		for _, leg := range legs {
			observer.OnWaypointArrival(leg)
		}
		if finished {
			observer.OnFinalDestinationArrival()
			return
		}
	}
}

// walk is the position of a simulated device along a route.
type walk struct {
	total    float64
	duration float64
	// legEnds are the distances along the geometry at which intermediate legs end.
	legEnds  []float64
	nextLeg  int
	traveled float64
}

func newWalk(route navigation.Route) *walk {
	line := make(orb.LineString, len(route.Geometry))
	for i, c := range route.Geometry {
		line[i] = orb.Point{c.Longitude, c.Latitude}
	}

	total := geo.Length(line)
	if total == 0 {
		total = route.Distance
	}

	w := &walk{total: total, duration: route.Duration}

	var legSum float64
	for _, l := range route.Legs {
		legSum += l.Distance
	}
	if len(route.Legs) > 1 && legSum > 0 {
		var cum float64
		for _, l := range route.Legs[:len(route.Legs)-1] {
			cum += l.Distance
			w.legEnds = append(w.legEnds, total*cum/legSum)
		}
	}
	return w
}

// advance moves meters forward and returns the new progress, the indexes of
// legs completed on the way and whether the end of the route was reached.
func (w *walk) advance(meters float64) (navigation.RouteProgress, []int, bool) {
	w.traveled += meters
	if w.traveled > w.total {
		w.traveled = w.total
	}

	var legs []int
	for w.nextLeg < len(w.legEnds) && w.traveled >= w.legEnds[w.nextLeg] {
		legs = append(legs, w.nextLeg)
		w.nextLeg++
	}

	remaining := w.total - w.traveled
	fraction := 1.0
	if w.total > 0 {
		fraction = w.traveled / w.total
	}
	progress := navigation.RouteProgress{
		DistanceRemaining: remaining,
		DurationRemaining: w.duration * (1 - fraction),
		DistanceTraveled:  w.traveled,
		FractionTraveled:  fraction,
	}
	return progress, legs, remaining <= 0
}
