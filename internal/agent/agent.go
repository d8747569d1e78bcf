// Package agent wires the bridge together: providers, refresh cycles, the
// connection surface, and the optional uplink, under one lifecycle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"hostbridge/internal/action"
	"hostbridge/internal/config"
	"hostbridge/internal/listener"
	"hostbridge/internal/model"
	"hostbridge/internal/provider"
	"hostbridge/internal/scheduler"
	"hostbridge/internal/server"
	"hostbridge/internal/store"
	"hostbridge/internal/stream"
	"hostbridge/internal/update"
)

type Agent struct {
	cfg    config.Config
	logger *slog.Logger

	store    *store.Store
	registry *listener.Registry
	sink     stream.Sink
	health   *HealthStatus

	full      *update.Orchestrator
	media     *update.Orchestrator
	fullTask  *scheduler.Task
	mediaTask *scheduler.Task

	server *server.Server

	exitOnce sync.Once
	exitCh   chan struct{}
}

func New(cfg config.Config, logger *slog.Logger) (*Agent, error) {
	tlsCfg, err := cfg.TLSConfig()
	if err != nil {
		return nil, fmt.Errorf("tls config: %w", err)
	}

	a := &Agent{
		cfg:      cfg,
		logger:   logger,
		store:    store.New(),
		registry: listener.NewRegistry(logger),
		health:   NewHealthStatus(),
		exitCh:   make(chan struct{}),
	}

	if sink := stream.NewSinkFromConfig(cfg, tlsCfg, logger); sink != nil {
		a.sink = &healthSink{sink: sink, health: a.health}
	}

	sensors := provider.NewSensors()
	a.full = update.New(
		"full",
		logger,
		a.store,
		sensors,
		provider.DefaultBindings(config.BridgeVersion),
		cfg.StaggerDelay,
		a.onModuleUpdated,
	)
	a.media = update.New(
		"media",
		logger,
		a.store,
		nil,
		[]provider.Binding{{Module: model.ModuleMedia, Provider: provider.NewMedia()}},
		0,
		a.onModuleUpdated,
	)

	a.fullTask = scheduler.NewTask("full-update", cfg.UpdateInterval, a.full.RunCycle, logger)
	a.mediaTask = scheduler.NewTask("media-update", cfg.MediaUpdateInterval, a.media.RunCycle, logger)

	a.server = server.New(
		logger,
		cfg.ListenAddr,
		cfg.Token,
		a.store,
		a.registry,
		action.NewLocal(logger),
		a.requestExit,
	)

	return a, nil
}

// onModuleUpdated runs on refresh workers after a blob landed in the store.
// Local fan-out happens first; the uplink is best-effort and must never fail
// a cycle.
func (a *Agent) onModuleUpdated(module model.Module, blob any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.registry.Dispatch(ctx, module, blob)
	a.health.MarkModuleUpdate(time.Now().UTC())

	if a.sink != nil {
		if err := a.sink.SendModuleUpdate(ctx, module, blob); err != nil {
			a.logger.Warn("uplink forward failed", "module", module, "error", err)
		}
	}
}

// requestExit is handed to the protocol engine for exit_application.
func (a *Agent) requestExit() {
	a.exitOnce.Do(func() { close(a.exitCh) })
}

func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("starting hostbridge", "hostname", a.cfg.Hostname, "listen_addr", a.cfg.ListenAddr, "version", config.BridgeVersion)
	if a.cfg.TokenGenerated {
		a.logger.Info("no token configured, generated one for this run", "token", a.cfg.Token)
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- a.run(runCtx)
	}()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case runErr = <-runErrCh:
		// Bridge terminated by itself (startup error/runtime error/parent ctx canceled).
	case <-a.exitCh:
		a.logger.Info("exit requested by client, starting graceful shutdown", "timeout", a.cfg.ShutdownTimeout)
		cancelRun()
		runErr = a.waitRun(runErrCh, sigCh)
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received, starting graceful shutdown", "signal", sig.String(), "timeout", a.cfg.ShutdownTimeout)
		cancelRun()
		runErr = a.waitRun(runErrCh, sigCh)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancelShutdown()
	a.shutdown(shutdownCtx)

	if runErr != nil && !errors.Is(runErr, context.Canceled) && !errors.Is(runErr, context.DeadlineExceeded) {
		return runErr
	}
	a.logger.Info("hostbridge stopped")
	return nil
}

// waitRun waits for the run loop to drain after cancellation, bounded by the
// grace timeout and cut short by a second signal.
func (a *Agent) waitRun(runErrCh <-chan error, sigCh <-chan os.Signal) error {
	graceTimer := time.NewTimer(a.cfg.ShutdownTimeout)
	defer graceTimer.Stop()

	select {
	case err := <-runErrCh:
		return err
	case sig := <-sigCh:
		a.logger.Warn("second signal received, forcing immediate shutdown", "signal", sig.String())
		return context.Canceled
	case <-graceTimer.C:
		a.logger.Warn("graceful shutdown timeout reached, forcing shutdown", "timeout", a.cfg.ShutdownTimeout)
		return context.DeadlineExceeded
	}
}

func BuildLogger(cfg config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	hOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stdout, hOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, hOpts))
}

// healthSink tracks uplink reachability around the wrapped sink.
type healthSink struct {
	sink   stream.Sink
	health *HealthStatus
}

func (s *healthSink) SendModuleUpdate(ctx context.Context, module model.Module, blob any) error {
	if err := s.sink.SendModuleUpdate(ctx, module, blob); err != nil {
		s.health.SetStreamConnected(false)
		return err
	}
	s.health.SetStreamConnected(true)
	return nil
}

func (s *healthSink) Close(ctx context.Context) error {
	return s.sink.Close(ctx)
}
