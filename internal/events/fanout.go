package events

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kilat-Pet-Delivery/service-navigation/internal/domain/navigation"
)

const (
	defaultQueueSize = 1024
	terminalWait     = 5 * time.Second
)

// Message is a navigation event addressed to one session.
type Message struct {
	SessionID  uuid.UUID        `json:"session_id"`
	Type       string           `json:"type"`
	Payload    navigation.Event `json:"payload"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// Target receives every message the fan-out delivers.
type Target interface {
	Deliver(ctx context.Context, msg Message) error
}

// Fanout queues session events and delivers them, in order, to every target from
// one goroutine. When the queue is full, progress-type events are dropped and
// counted while terminal events wait for room.
type Fanout struct {
	targets []Target
	queue   chan Message
	stopped chan struct{}
	dropped atomic.Int64
	logger  *zap.Logger
}

// NewFanout creates a fan-out over targets. Run must be started to deliver.
func NewFanout(logger *zap.Logger, targets ...Target) *Fanout {
	return &Fanout{
		targets: targets,
		queue:   make(chan Message, defaultQueueSize),
		stopped: make(chan struct{}),
		logger:  logger,
	}
}

// Publish enqueues evt for sessionID.
func (f *Fanout) Publish(sessionID uuid.UUID, evt navigation.Event) {
	msg := Message{
		SessionID:  sessionID,
		Type:       string(evt.Type()),
		Payload:    evt,
		OccurredAt: time.Now().UTC(),
	}
	select {
	case f.queue <- msg:
		return
	default:
	}

	if isTerminal(evt) {
		timer := time.NewTimer(terminalWait)
		defer timer.Stop()
		select {
		case f.queue <- msg:
			return
		case <-f.stopped:
		case <-timer.C:
		}
	}

	f.dropped.Add(1)
	f.logger.Warn("event queue full, dropping event",
		zap.String("session_id", sessionID.String()),
		zap.String("type", msg.Type),
	)
}

// Dropped returns the number of events discarded because the queue was full.
func (f *Fanout) Dropped() int64 {
	return f.dropped.Load()
}

func isTerminal(evt navigation.Event) bool {
	switch evt.(type) {
	case navigation.NavigationCanceled, navigation.NavigationFinished, navigation.NavigationError:
		return true
	}
	return false
}

// Run delivers queued messages until ctx is cancelled, then drains what is left.
func (f *Fanout) Run(ctx context.Context) {
	defer close(f.stopped)
	for {
		select {
		case msg := <-f.queue:
			f.deliver(ctx, msg)
		case <-ctx.Done():
			f.drain()
			return
		}
	}
}

func (f *Fanout) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case msg := <-f.queue:
			f.deliver(ctx, msg)
		default:
			return
		}
	}
}

func (f *Fanout) deliver(ctx context.Context, msg Message) {
	for _, t := range f.targets {
		if err := t.Deliver(ctx, msg); err != nil {
			f.logger.Error("failed to deliver navigation event",
				zap.String("session_id", msg.SessionID.String()),
				zap.String("type", msg.Type),
				zap.Error(err),
			)
		}
	}
}
