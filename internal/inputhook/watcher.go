package inputhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"contextcollector/internal/gesture"
)

// retryDelay is the pause before the single retry of a failed hook creation.
var retryDelay = 500 * time.Millisecond

// Status describes whether the gesture feature is live.
type Status string

const (
	StatusStopped          Status = "stopped"
	StatusActive           Status = "active"
	StatusPermissionDenied Status = "permission-denied"
	StatusFailed           Status = "failed"
)

// Watcher owns a hook subscription and the detector fed by it. It calls
// its trigger handler once per recognized double press. When the hook dies
// on its own the watcher reports StatusFailed and restarts it once.
type Watcher struct {
	hook      Hook
	detector  *gesture.Detector
	onTrigger func(gesture.Signal)
	logger    *slog.Logger

	mu        sync.Mutex
	status    Status
	ctx       context.Context
	cancel    context.CancelFunc
	onFailure func(error)
}

// NewWatcher wires hook into detector. onTrigger must not block.
func NewWatcher(hook Hook, detector *gesture.Detector, onTrigger func(gesture.Signal), logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Watcher{
		hook:      hook,
		detector:  detector,
		onTrigger: onTrigger,
		logger:    logger,
		status:    StatusStopped,
	}
	if n, ok := hook.(LossNotifier); ok {
		n.OnLost(w.lost)
	}
	return w
}

// OnFailure registers fn, called when a lost hook could not be restarted.
func (w *Watcher) OnFailure(fn func(error)) {
	w.mu.Lock()
	w.onFailure = fn
	w.mu.Unlock()
}

// Start subscribes to the hook. A creation failure is retried once; a
// permission failure is returned immediately and the watcher stays inert.
func (w *Watcher) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
	}
	w.ctx, w.cancel = ctx, cancel
	w.mu.Unlock()
	return w.start(ctx)
}

func (w *Watcher) start(ctx context.Context) error {
	err := w.hook.Start(ctx, w.handle)
	if errors.Is(err, ErrCreationFailed) {
		w.logger.Warn("input hook creation failed, retrying once", "error", err, "delay", retryDelay)
		select {
		case <-ctx.Done():
			w.setStatus(StatusStopped)
			return ctx.Err()
		case <-time.After(retryDelay):
		}
		err = w.hook.Start(ctx, w.handle)
	}

	switch {
	case err == nil:
		w.setStatus(StatusActive)
		t := w.detector.Trigger()
		w.logger.Info("gesture watcher started", "keycode", t.Keycode, "modifiers", t.Modifiers.String())
		return nil
	case errors.Is(err, ErrPermissionDenied):
		w.setStatus(StatusPermissionDenied)
	default:
		w.setStatus(StatusFailed)
	}
	return fmt.Errorf("start input hook: %w", err)
}

// Stop releases the hook subscription.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	w.mu.Unlock()

	err := w.hook.Stop()
	w.detector.Reset()
	w.setStatus(StatusStopped)
	return err
}

// lost runs on the hook's delivery context after the hook stopped itself.
func (w *Watcher) lost(cause error) {
	w.mu.Lock()
	ctx := w.ctx
	if w.status != StatusActive || ctx == nil || ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	w.status = StatusFailed
	w.mu.Unlock()

	w.detector.Reset()
	w.logger.Warn("input hook lost, restarting", "error", cause, "delay", retryDelay)
	go w.restart(ctx, cause)
}

func (w *Watcher) restart(ctx context.Context, cause error) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(retryDelay):
	}

	err := w.start(ctx)
	if ctx.Err() != nil {
		// stopped while restarting
		if err == nil {
			_ = w.hook.Stop()
		}
		w.setStatus(StatusStopped)
		return
	}
	if err == nil {
		return
	}

	w.logger.Error("input hook restart failed", "cause", cause, "error", err)
	w.mu.Lock()
	fn := w.onFailure
	w.mu.Unlock()
	if fn != nil {
		fn(errors.Join(cause, err))
	}
}

// Status returns the current feature state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Watcher) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// handle runs on the hook's delivery context.
func (w *Watcher) handle(ev gesture.KeyEvent) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("panic in key handler", "panic", r)
		}
	}()

	sig, ok := w.detector.OnKeyEvent(ev)
	if !ok {
		return
	}
	w.logger.Debug("double press recognized", "interval", sig.Interval)
	if w.onTrigger != nil {
		w.onTrigger(sig)
	}
}
