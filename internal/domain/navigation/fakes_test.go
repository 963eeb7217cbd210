package navigation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// manualDispatcher queues posted functions until the test drains them.
type manualDispatcher struct {
	mu    sync.Mutex
	queue []func()
}

func (d *manualDispatcher) Post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, fn)
}

func (d *manualDispatcher) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// drain runs queued functions, including ones they post, on the calling goroutine.
func (d *manualDispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
	}
}

type calcResult struct {
	solution RouteSolution
	err      error
}

type calcCall struct {
	ctx    context.Context
	req    RouteRequest
	result chan calcResult
}

type startCall struct {
	solution RouteSolution
	opts     GuidanceOptions
	observer GuidanceObserver
}

// fakeProvider blocks each CalculateRoute until the test resolves it or ctx ends.
type fakeProvider struct {
	mu           sync.Mutex
	calls        []*calcCall
	starts       []startCall
	stops        int
	volumes      []float64
	startErr     error
	ignoreCancel bool
}

func (f *fakeProvider) CalculateRoute(ctx context.Context, req RouteRequest) (RouteSolution, error) {
	call := &calcCall{ctx: ctx, req: req, result: make(chan calcResult, 1)}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	ignore := f.ignoreCancel
	f.mu.Unlock()

	if ignore {
		r := <-call.result
		return r.solution, r.err
	}
	select {
	case r := <-call.result:
		return r.solution, r.err
	case <-ctx.Done():
		return RouteSolution{}, ctx.Err()
	}
}

func (f *fakeProvider) StartGuidance(solution RouteSolution, opts GuidanceOptions, observer GuidanceObserver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.starts = append(f.starts, startCall{solution: solution, opts: opts, observer: observer})
	return nil
}

func (f *fakeProvider) StopGuidance() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeProvider) SetGuidanceVolume(level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volumes = append(f.volumes, level)
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeProvider) call(i int) *calcCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

func (f *fakeProvider) stopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// recordingSink keeps every emitted event in order.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Emit(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *recordingSink) ofType(t EventType) []Event {
	var out []Event
	for _, e := range s.all() {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

type harness struct {
	t          *testing.T
	provider   *fakeProvider
	sink       *recordingSink
	dispatcher *manualDispatcher
	ctrl       *Controller
}

func newHarness(t *testing.T, opts ...ControllerOption) *harness {
	t.Helper()
	h := &harness{
		t:          t,
		provider:   &fakeProvider{},
		sink:       &recordingSink{},
		dispatcher: &manualDispatcher{},
	}
	h.ctrl = NewController(h.provider, h.sink, h.dispatcher, opts...)
	return h
}

// waitCalls waits until the provider has received n route computations.
func (h *harness) waitCalls(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.provider.callCount() == n },
		time.Second, time.Millisecond, "expected %d route computations", n)
}

// settle waits for n provider goroutines to post back and runs their results.
func (h *harness) settle(n int) {
	h.t.Helper()
	require.Eventually(h.t, func() bool { return h.dispatcher.pending() >= n },
		time.Second, time.Millisecond, "expected %d posted results", n)
	h.dispatcher.drain()
}

func (h *harness) resolve(i int, solution RouteSolution, err error) {
	h.t.Helper()
	h.provider.call(i).result <- calcResult{solution: solution, err: err}
}

func (h *harness) configure(origin, destination Coordinate) {
	h.t.Helper()
	require.NoError(h.t, h.ctrl.UpdateConfig(ConfigPatch{Origin: &origin, Destination: &destination}))
}

// startGuiding drives the controller from idle to guiding with one computation.
func (h *harness) startGuiding() {
	h.t.Helper()
	h.configure(testOrigin, testDestination)
	n := h.provider.callCount() + 1
	h.waitCalls(n)
	h.resolve(n-1, solutionWithOneRoute(), nil)
	h.settle(1)
	require.Equal(h.t, StateGuiding, h.ctrl.State())
}

func solutionWithOneRoute() RouteSolution {
	return RouteSolution{Routes: []Route{{
		Distance: 2300,
		Duration: 410,
		Geometry: []Coordinate{testOrigin, testDestination},
		Legs:     []RouteLeg{{Distance: 2300, Duration: 410}},
	}}}
}
