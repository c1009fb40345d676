package activation

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrLoopStopped is returned by Sync once the loop has stopped.
var ErrLoopStopped = errors.New("ui loop stopped")

// ErrDrainTimeout is returned by Drain when queued work did not finish in
// time.
var ErrDrainTimeout = errors.New("ui loop drain timed out")

// Dispatcher runs functions on the UI context, one at a time, in the order
// they were posted.
type Dispatcher interface {
	// Post queues fn and returns immediately.
	Post(fn func())
	// After queues fn once d has elapsed. It never blocks the UI context.
	After(d time.Duration, fn func())
}

// DefaultQueueSize is the loop's queue capacity.
const DefaultQueueSize = 64

// Loop is a single goroutine draining a FIFO of UI work.
type Loop struct {
	queue  chan func()
	quit   chan struct{}
	done   chan struct{}
	logger *slog.Logger

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLoop creates a loop with room for size pending functions.
func NewLoop(size int, logger *slog.Logger) *Loop {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		queue:  make(chan func(), size),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the loop goroutine. Later calls do nothing.
func (l *Loop) Start() {
	l.startOnce.Do(func() {
		go l.run()
	})
}

// Stop ends the loop after the function currently running returns.
// Queued functions that have not started are discarded.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
	// a loop that never started has nothing to wait for
	l.startOnce.Do(func() {
		close(l.done)
	})
	<-l.done
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		select {
		case <-l.quit:
			return
		case fn := <-l.queue:
			l.invoke(fn)
		}
	}
}

func (l *Loop) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("panic on ui loop", "panic", r)
		}
	}()
	fn()
}

// Post queues fn without blocking. When the queue is full or the loop has
// stopped the function is dropped and logged.
func (l *Loop) Post(fn func()) {
	select {
	case <-l.quit:
		l.logger.Debug("ui loop stopped, dropping work")
		return
	default:
	}
	select {
	case l.queue <- fn:
	default:
		l.logger.Warn("ui queue full, dropping work", "capacity", cap(l.queue))
	}
}

// After posts fn once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() {
		l.Post(fn)
	})
}

// Sync runs fn on the loop and waits for it to return. It must not be
// called from the loop itself.
func (l *Loop) Sync(fn func()) error {
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case <-l.quit:
		return ErrLoopStopped
	case l.queue <- wrapped:
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		// the loop may have run it just before exiting
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	}
}

// Drain waits until everything posted before the call has run, or until
// timeout passes.
func (l *Loop) Drain(timeout time.Duration) error {
	synced := make(chan error, 1)
	go func() {
		synced <- l.Sync(func() {})
	}()
	select {
	case err := <-synced:
		return err
	case <-time.After(timeout):
		return ErrDrainTimeout
	}
}
