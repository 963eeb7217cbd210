package navigation

import (
	"context"
	"errors"
	"sync"
)

// ErrLoopStopped is returned by Loop.Do after Stop.
var ErrLoopStopped = errors.New("dispatch loop stopped")

// Dispatcher is the single execution context a Controller runs on.
// Post must not block and must run functions in the order they were posted.
type Dispatcher interface {
	Post(fn func())
}

// Loop is a Dispatcher backed by one goroutine and an unbounded FIFO queue.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool

	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	onPanic func(recovered interface{})
}

// NewLoop starts a loop. onPanic, when non-nil, receives values recovered from posted functions.
func NewLoop(onPanic func(recovered interface{})) *Loop {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		onPanic: onPanic,
	}
	go l.run()
	return l
}

// Post enqueues fn. Functions posted after Stop are dropped.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return
	}
	l.pending = append(l.pending, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do posts fn and waits for it to run. It must not be called from the loop goroutine.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	l.mu.Lock()
	stopped := l.stopped
	l.mu.Unlock()
	if stopped {
		return ErrLoopStopped
	}

	ran := make(chan struct{})
	l.Post(func() {
		defer close(ran)
		fn()
	})

	select {
	case <-ran:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop drops queued work, waits for the running function and ends the loop.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		<-l.done
		return
	}
	l.stopped = true
	l.pending = nil
	l.mu.Unlock()

	close(l.stop)
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if l.stopped || len(l.pending) == 0 {
				l.mu.Unlock()
				break
			}
			fn := l.pending[0]
			l.pending[0] = nil
			l.pending = l.pending[1:]
			l.mu.Unlock()

			l.invoke(fn)
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil && l.onPanic != nil {
			l.onPanic(r)
		}
	}()
	fn()
}
