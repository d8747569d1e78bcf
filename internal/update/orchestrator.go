// Package update runs the refresh cycle: it triggers each module's provider
// concurrently with staggered starts and per-module exclusivity, writes
// results into the snapshot store, and reports completions.
package update

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"hostbridge/internal/model"
	"hostbridge/internal/provider"
	"hostbridge/internal/store"
)

// Callback is invoked after a module's blob landed in the store.
type Callback func(module model.Module, blob any)

type unit struct {
	module   model.Module
	provider provider.Provider
	busy     atomic.Bool
}

// Orchestrator owns one set of refresh units. Instances with different
// cadences (the full path and the media fast path) hold disjoint unit sets
// and never share busy state.
type Orchestrator struct {
	logger    *slog.Logger
	store     *store.Store
	sensors   *provider.Sensors
	units     []*unit
	stagger   time.Duration
	onUpdated Callback
	wg        sync.WaitGroup
}

// New builds an orchestrator over the given bindings, kept in the given
// order for each cycle. sensors may be nil for instances whose units do not
// depend on the sensor snapshot.
func New(
	name string,
	logger *slog.Logger,
	st *store.Store,
	sensors *provider.Sensors,
	bindings []provider.Binding,
	stagger time.Duration,
	onUpdated Callback,
) *Orchestrator {
	units := make([]*unit, 0, len(bindings))
	for _, b := range bindings {
		units = append(units, &unit{module: b.Module, provider: b.Provider})
	}
	return &Orchestrator{
		logger:    logger.With("orchestrator", name),
		store:     st,
		sensors:   sensors,
		units:     units,
		stagger:   stagger,
		onUpdated: onUpdated,
	}
}

// RunCycle performs one pass over the unit set. The sensor snapshot is
// computed first, synchronously, and published under its own module name;
// each remaining unit is then started concurrently unless it is still busy
// from a previous cycle. RunCycle returns once every unit has been started
// or skipped; it does not wait for the refreshes to finish.
func (o *Orchestrator) RunCycle(ctx context.Context) {
	o.logger.Info("update cycle started")

	var sensorData model.SensorsData
	haveSensors := false
	if o.sensors != nil {
		data, err := o.sensors.Sample(ctx)
		if err != nil {
			o.logger.Warn("sensor snapshot failed", "error", err)
		} else {
			o.store.Set(model.ModuleSensors, data)
			o.notify(model.ModuleSensors, data)
			sensorData = data
			haveSensors = true
		}
	}

	started := 0
	for _, u := range o.units {
		if started > 0 && !sleepWithContext(ctx, o.stagger) {
			return
		}
		if !u.busy.CompareAndSwap(false, true) {
			o.logger.Info("module refresh still in flight, skipping", "module", u.module)
			continue
		}
		started++
		o.wg.Add(1)
		go o.refresh(ctx, u, sensorData, haveSensors)
	}
}

func (o *Orchestrator) refresh(ctx context.Context, u *unit, sensors model.SensorsData, haveSensors bool) {
	defer o.wg.Done()
	defer u.busy.Store(false)

	var (
		blob any
		err  error
	)
	if aware, ok := u.provider.(provider.SensorAware); ok && haveSensors {
		blob, err = aware.RefreshWithSensors(ctx, sensors)
	} else {
		blob, err = u.provider.Refresh(ctx)
	}
	if err != nil {
		// No update this cycle for this module; the previous value stays
		// and the next cycle retries independently.
		o.logger.Warn("module refresh failed", "module", u.module, "error", err)
		return
	}
	o.store.Set(u.module, blob)
	o.notify(u.module, blob)
}

func (o *Orchestrator) notify(module model.Module, blob any) {
	if o.onUpdated == nil {
		return
	}
	o.onUpdated(module, blob)
}

// Wait blocks until all in-flight refreshes finish or the timeout elapses.
func (o *Orchestrator) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		o.logger.Warn("in-flight refreshes did not finish before timeout", "timeout", timeout)
		return false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
