package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/platform/apperr"
	"github.com/Kilat-Pet-Delivery/service-navigation/internal/provider"
)

const persistTimeout = 5 * time.Second

// EventPublisher delivers session events to subscribers. Publish must not block.
type EventPublisher interface {
	Publish(sessionID uuid.UUID, evt navigation.Event)
}

// GuideFactory creates the simulated guide of a new session. It may return nil.
type GuideFactory func() provider.Guide

// SessionServiceOption configures a SessionService.
type SessionServiceOption func(*SessionService)

// WithAwaitSurface makes new sessions hold route requests until the host surface is ready.
func WithAwaitSurface(await bool) SessionServiceOption {
	return func(s *SessionService) { s.awaitSurface = await }
}

// WithGuideFactory sets the factory for simulated guidance.
func WithGuideFactory(f GuideFactory) SessionServiceOption {
	return func(s *SessionService) { s.newGuide = f }
}

// SessionService is the application service orchestrating navigation session use cases.
// Each live session owns its controller and the loop the controller runs on.
type SessionService struct {
	repo         navigation.SessionRepository
	calc         provider.Calculator
	publisher    EventPublisher
	logger       *zap.Logger
	newGuide     GuideFactory
	awaitSurface bool

	mu       sync.RWMutex
	sessions map[uuid.UUID]*session
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	repo navigation.SessionRepository,
	calc provider.Calculator,
	publisher EventPublisher,
	logger *zap.Logger,
	opts ...SessionServiceOption,
) *SessionService {
	s := &SessionService{
		repo:      repo,
		calc:      calc,
		publisher: publisher,
		logger:    logger,
		sessions:  make(map[uuid.UUID]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a live session and applies the initial props, if any.
func (s *SessionService) CreateSession(ctx context.Context, req CreateSessionRequest) (*SessionDTO, error) {
	var patch *navigation.ConfigPatch
	if req.Props != nil {
		p := req.Props.ToPatch()
		if err := p.Validate(); err != nil {
			return nil, translateError(err)
		}
		patch = &p
	}

	id := uuid.New()
	now := time.Now().UTC()
	logger := s.logger.With(zap.String("session_id", id.String()))

	var guide provider.Guide
	if s.newGuide != nil {
		guide = s.newGuide()
	}

	sess := &session{
		id:        id,
		name:      req.Name,
		createdAt: now,
		updatedAt: now,
		version:   1,
		dirty:     make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		provider:  provider.NewComposite(s.calc, guide, logger),
	}
	sess.loop = navigation.NewLoop(func(r interface{}) {
		logger.Error("panic in session loop", zap.Any("recovered", r))
	})

	publisher := s.publisher
	sink := navigation.EventSinkFunc(func(evt navigation.Event) {
		if publisher != nil {
			publisher.Publish(id, evt)
		}
	})
	sess.ctrl = navigation.NewController(sess.provider, sink, sess.loop,
		navigation.WithLogger(logger),
		navigation.WithAwaitSurface(s.awaitSurface),
		navigation.WithChangeListener(sess.markDirty),
	)

	if err := sess.loop.Do(ctx, func() {
		if patch != nil {
			// already validated, cannot fail
			_ = sess.ctrl.UpdateConfig(*patch)
		}
		sess.setLatest(sess.ctrl.Snapshot())
	}); err != nil {
		sess.loop.Stop()
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}

	rec := sess.record(false)
	if err := s.repo.Save(ctx, rec); err != nil {
		_ = sess.loop.Do(ctx, sess.ctrl.Teardown)
		sess.teardown()
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	sess.persisting = true
	go s.persistLoop(sess, logger)
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	logger.Info("navigation session created", zap.String("state", rec.Snapshot.State.String()))

	result := toSessionDTO(rec, true)
	return &result, nil
}

// UpdateProps merges a partial props update into the session config.
func (s *SessionService) UpdateProps(ctx context.Context, id uuid.UUID, req PropsRequest) (*SessionDTO, error) {
	patch := req.ToPatch()
	return s.apply(ctx, id, func(sess *session) error {
		return sess.ctrl.UpdateConfig(patch)
	})
}

// RequestRoute forces a route computation for the current props.
func (s *SessionService) RequestRoute(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	return s.apply(ctx, id, func(sess *session) error {
		return sess.ctrl.RequestRoute()
	})
}

// CancelSession cancels the pending request or active guidance of a session.
func (s *SessionService) CancelSession(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	return s.apply(ctx, id, func(sess *session) error {
		sess.ctrl.Cancel()
		return nil
	})
}

// ToggleMute flips the voice guidance mute flag.
func (s *SessionService) ToggleMute(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	return s.apply(ctx, id, func(sess *session) error {
		sess.ctrl.ToggleMute()
		return nil
	})
}

// SurfaceReady tells the session the host can display guidance.
func (s *SessionService) SurfaceReady(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	return s.apply(ctx, id, func(sess *session) error {
		sess.ctrl.SurfaceReady()
		return nil
	})
}

// UpdateLocation records the device location used as origin when no start origin is set.
func (s *SessionService) UpdateLocation(ctx context.Context, id uuid.UUID, req LocationRequest) (*SessionDTO, error) {
	loc := req.toDomain()
	return s.apply(ctx, id, func(sess *session) error {
		return sess.ctrl.SetLocation(loc)
	})
}

// ReportProgress forwards host-measured progress to the session's active guidance.
func (s *SessionService) ReportProgress(ctx context.Context, id uuid.UUID, req ProgressRequest) (*SessionDTO, error) {
	progress := navigation.RouteProgress{
		DistanceRemaining: req.DistanceRemaining,
		DurationRemaining: req.DurationRemaining,
		DistanceTraveled:  req.DistanceTraveled,
		FractionTraveled:  req.FractionTraveled,
	}
	return s.apply(ctx, id, func(sess *session) error {
		return sess.provider.ReportProgress(progress)
	})
}

// ReportArrival forwards a host-detected arrival at a waypoint or the destination.
func (s *SessionService) ReportArrival(ctx context.Context, id uuid.UUID, req ArrivalRequest) (*SessionDTO, error) {
	return s.apply(ctx, id, func(sess *session) error {
		if req.LegIndex != nil {
			return sess.provider.ReportWaypointArrival(*req.LegIndex)
		}
		return sess.provider.ReportArrival()
	})
}

// GetSession returns a live session, or the last persisted snapshot of a closed one.
func (s *SessionService) GetSession(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	if sess, ok := s.lookup(id); ok {
		rec := sess.current()
		if err := sess.loop.Do(ctx, func() { rec.Snapshot = sess.ctrl.Snapshot() }); err != nil {
			return nil, s.loopError(id, err)
		}
		result := toSessionDTO(rec, true)
		return &result, nil
	}
	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result := toSessionDTO(rec, false)
	return &result, nil
}

// ListSessions returns a paginated list of sessions, newest first.
func (s *SessionService) ListSessions(ctx context.Context, page, limit int) ([]SessionDTO, int64, error) {
	records, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	dtos := make([]SessionDTO, len(records))
	for i, rec := range records {
		if sess, ok := s.lookup(rec.ID); ok {
			dtos[i] = toSessionDTO(sess.current(), true)
			continue
		}
		dtos[i] = toSessionDTO(rec, false)
	}
	return dtos, total, nil
}

// CloseSession tears the session down without emitting events and persists its final snapshot.
func (s *SessionService) CloseSession(ctx context.Context, id uuid.UUID) (*SessionDTO, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return nil, apperr.NewNotFoundError("Session", id.String())
	}

	if err := sess.loop.Do(ctx, func() {
		sess.ctrl.Teardown()
		sess.setLatest(sess.ctrl.Snapshot())
	}); err != nil {
		s.logger.Warn("session teardown interrupted", zap.String("session_id", id.String()), zap.Error(err))
	}
	sess.teardown()

	rec := sess.nextRecord(true)
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to persist closed session: %w", err)
	}
	sess.commit(rec)

	s.logger.Info("navigation session closed", zap.String("session_id", id.String()))
	result := toSessionDTO(rec, false)
	return &result, nil
}

// SessionStats returns aggregate session statistics.
func (s *SessionService) SessionStats(ctx context.Context) (*SessionStatsDTO, error) {
	counts, err := s.repo.CountByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get session stats: %w", err)
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	s.mu.RLock()
	live := len(s.sessions)
	s.mu.RUnlock()

	return &SessionStatsDTO{
		TotalSessions: total,
		LiveSessions:  live,
		ByState:       counts,
	}, nil
}

// Shutdown closes every live session.
func (s *SessionService) Shutdown(ctx context.Context) {
	s.mu.RLock()
	ids := make([]uuid.UUID, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		if _, err := s.CloseSession(ctx, id); err != nil {
			s.logger.Error("failed to close session on shutdown",
				zap.String("session_id", id.String()),
				zap.Error(err),
			)
		}
	}
}

// --- Helpers ---

// apply runs fn on the session loop, then reads the snapshot in a second turn so
// callbacks fn posted to the loop are reflected.
func (s *SessionService) apply(ctx context.Context, id uuid.UUID, fn func(*session) error) (*SessionDTO, error) {
	sess, ok := s.lookup(id)
	if !ok {
		return nil, apperr.NewNotFoundError("Session", id.String())
	}

	var opErr error
	if err := sess.loop.Do(ctx, func() { opErr = fn(sess) }); err != nil {
		return nil, s.loopError(id, err)
	}
	if opErr != nil {
		return nil, translateError(opErr)
	}

	var snap navigation.Snapshot
	if err := sess.loop.Do(ctx, func() { snap = sess.ctrl.Snapshot() }); err != nil {
		return nil, s.loopError(id, err)
	}
	rec := sess.current()
	rec.Snapshot = snap
	result := toSessionDTO(rec, true)
	return &result, nil
}

func (s *SessionService) lookup(id uuid.UUID) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *SessionService) loopError(id uuid.UUID, err error) error {
	if errors.Is(err, navigation.ErrLoopStopped) {
		return apperr.NewNotFoundError("Session", id.String())
	}
	return fmt.Errorf("session operation interrupted: %w", err)
}

// persistLoop writes the latest snapshot whenever the session changes.
func (s *SessionService) persistLoop(sess *session, logger *zap.Logger) {
	defer close(sess.done)
	for {
		select {
		case <-sess.stop:
			return
		case <-sess.dirty:
		}

		rec := sess.nextRecord(false)
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		err := s.repo.Update(ctx, rec)
		cancel()
		if err != nil {
			logger.Error("failed to persist session snapshot",
				zap.Int64("version", rec.Version),
				zap.Error(err),
			)
			continue
		}
		sess.commit(rec)
	}
}

// translateError maps domain errors onto application error kinds.
func translateError(err error) error {
	switch {
	case errors.Is(err, navigation.ErrInvalidCoordinate),
		errors.Is(err, navigation.ErrInvalidBearing),
		errors.Is(err, navigation.ErrMissingOrigin),
		errors.Is(err, navigation.ErrMissingDestination):
		return apperr.WrapValidation(err)
	case errors.Is(err, navigation.ErrSurfaceNotReady),
		errors.Is(err, provider.ErrNoActiveGuidance),
		errors.Is(err, provider.ErrSimulatedGuidance):
		return apperr.Wrap(apperr.KindInvalidState, err)
	default:
		return err
	}
}

// session is one live navigation session.
type session struct {
	id        uuid.UUID
	name      string
	createdAt time.Time

	loop     *navigation.Loop
	ctrl     *navigation.Controller
	provider *provider.Composite

	mu        sync.Mutex
	latest    navigation.Snapshot
	version   int64
	updatedAt time.Time

	dirty      chan struct{}
	stop       chan struct{}
	done       chan struct{}
	persisting bool
	once       sync.Once
}

// markDirty runs on the session loop after every controller change.
func (sess *session) markDirty(snap navigation.Snapshot) {
	sess.setLatest(snap)
	select {
	case sess.dirty <- struct{}{}:
	default:
	}
}

func (sess *session) setLatest(snap navigation.Snapshot) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.latest = snap
}

// current returns the record as last persisted, carrying the latest snapshot.
func (sess *session) current() *navigation.SessionRecord {
	return sess.record(false)
}

func (sess *session) record(closed bool) *navigation.SessionRecord {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return &navigation.SessionRecord{
		ID:        sess.id,
		Name:      sess.name,
		Snapshot:  sess.latest,
		Closed:    closed,
		Version:   sess.version,
		CreatedAt: sess.createdAt,
		UpdatedAt: sess.updatedAt,
	}
}

// nextRecord returns the record to write next, one version ahead of the stored one.
func (sess *session) nextRecord(closed bool) *navigation.SessionRecord {
	rec := sess.record(closed)
	rec.Version++
	rec.UpdatedAt = time.Now().UTC()
	return rec
}

func (sess *session) commit(rec *navigation.SessionRecord) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.version = rec.Version
	sess.updatedAt = rec.UpdatedAt
}

// teardown stops the persister and the loop. The controller must already be torn down.
func (sess *session) teardown() {
	sess.once.Do(func() {
		close(sess.stop)
		if sess.persisting {
			<-sess.done
		}
		sess.loop.Stop()
	})
}
