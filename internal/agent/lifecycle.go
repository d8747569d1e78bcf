package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

func (a *Agent) run(ctx context.Context) error {
	if err := a.fullTask.Start(); err != nil {
		return fmt.Errorf("start full update task: %w", err)
	}
	if err := a.mediaTask.Start(); err != nil {
		return fmt.Errorf("start media update task: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Run(gctx)
	})
	g.Go(func() error {
		return a.runHealthLoop(gctx)
	})
	g.Go(func() error {
		return a.runProbeListener(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *Agent) runHealthLoop(ctx context.Context) error {
	t := time.NewTicker(a.cfg.HealthInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			a.logger.Debug("bridge health",
				"snapshot", a.health.Snapshot(),
				"listeners", a.registry.Len(),
				"modules_populated", len(a.store.Populated()),
				"full_task", a.fullTask.State().String(),
				"media_task", a.mediaTask.State().String(),
			)
		}
	}
}

func (a *Agent) shutdown(ctx context.Context) {
	// Half the grace window for stopping the tick loops, the rest for the
	// refreshes still in flight.
	taskTimeout := a.cfg.ShutdownTimeout / 2
	if !a.fullTask.Stop(taskTimeout) {
		a.logger.Warn("full update task did not stop in time")
	}
	if !a.mediaTask.Stop(taskTimeout) {
		a.logger.Warn("media update task did not stop in time")
	}
	if !a.full.Wait(taskTimeout) {
		a.logger.Warn("full refreshes still in flight at shutdown")
	}
	if !a.media.Wait(taskTimeout) {
		a.logger.Warn("media refreshes still in flight at shutdown")
	}

	a.registry.RemoveAll()

	if a.sink != nil {
		if err := a.sink.Close(ctx); err != nil {
			a.logger.Warn("uplink close failed", "error", err)
		}
		a.health.SetStreamConnected(false)
	}
}
