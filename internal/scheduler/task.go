// Package scheduler provides a cancellable unit of recurring work: run a
// tick function forever at an interval, self-correcting for drift.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State of a Task.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var ErrNotIdle = errors.New("task is not idle")

// TickFunc is the unit of work. It receives a context that is cancelled when
// the task is asked to stop; long ticks should observe it.
type TickFunc func(ctx context.Context)

// Task runs a TickFunc repeatedly. The next run instant is computed as
// now+interval before the tick starts, so tick execution time does not cause
// cumulative drift beyond one interval. Tick panics are logged and swallowed
// so the loop continues.
type Task struct {
	logger *slog.Logger
	name   string
	tick   TickFunc

	// mu guards interval and the lifecycle fields below; state transitions
	// and channel setup happen under it so Start and Stop can race safely.
	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	stopCh   chan struct{}
	doneCh   chan struct{}

	state atomic.Int32
}

func NewTask(name string, interval time.Duration, tick TickFunc, logger *slog.Logger) *Task {
	return &Task{
		logger:   logger.With("task", name),
		name:     name,
		tick:     tick,
		interval: interval,
	}
}

// Start begins the loop. The first tick runs immediately. Starting a task
// that is not idle is an error.
func (t *Task) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.stopCh = make(chan struct{})
	t.doneCh = make(chan struct{})
	go t.run(ctx)
	t.logger.Info("task started", "interval", t.interval)
	return nil
}

// Stop requests termination and blocks up to timeout for the loop to observe
// the request and exit. Safe to call while a tick is in flight; the tick's
// context is cancelled. Returns true if the loop exited within the timeout.
func (t *Task) Stop(timeout time.Duration) bool {
	t.mu.Lock()
	if t.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		close(t.stopCh)
		t.cancel()
	}
	doneCh := t.doneCh
	t.mu.Unlock()
	if doneCh == nil {
		return true
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-doneCh:
		return true
	case <-timer.C:
		t.logger.Warn("task did not stop within timeout", "timeout", timeout)
		return false
	}
}

// State returns the task's current state.
func (t *Task) State() State {
	return State(t.state.Load())
}

// Interval returns the current interval.
func (t *Task) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// SetInterval updates the interval at runtime. A no-op update emits no log.
func (t *Task) SetInterval(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.interval == d {
		return
	}
	t.interval = d
	t.logger.Info("task interval updated", "interval", d)
}

func (t *Task) run(ctx context.Context) {
	defer close(t.doneCh)
	defer t.state.Store(int32(StateStopped))

	nextRun := time.Now()
	for {
		if wait := time.Until(nextRun); wait > 0 {
			t.logger.Debug("waiting for next run", "in", wait.Round(10*time.Millisecond))
			timer := time.NewTimer(wait)
			select {
			case <-t.stopCh:
				timer.Stop()
				return
			case <-timer.C:
			}
		}
		select {
		case <-t.stopCh:
			return
		default:
		}

		// Schedule the next run before ticking so a slow tick delays the
		// following run by at most one interval.
		nextRun = time.Now().Add(t.Interval())

		t.safeTick(ctx)

		select {
		case <-t.stopCh:
			return
		default:
		}
		t.logger.Debug("tick finished", "next_run", nextRun)
	}
}

func (t *Task) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("tick panicked", "panic", r)
		}
	}()
	t.tick(ctx)
}
