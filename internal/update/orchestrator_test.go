package update

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hostbridge/internal/model"
	"hostbridge/internal/provider"
	"hostbridge/internal/store"
)

type fakeProvider struct {
	calls   atomic.Int64
	err     error
	blob    any
	block   chan struct{}
	entered chan struct{}
}

func (p *fakeProvider) Refresh(ctx context.Context) (any, error) {
	p.calls.Add(1)
	if p.entered != nil {
		p.entered <- struct{}{}
	}
	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.err != nil {
		return nil, p.err
	}
	return p.blob, nil
}

type sensorAwareProvider struct {
	fakeProvider
	mu       sync.Mutex
	received []model.SensorsData
}

func (p *sensorAwareProvider) RefreshWithSensors(ctx context.Context, s model.SensorsData) (any, error) {
	p.mu.Lock()
	p.received = append(p.received, s)
	p.mu.Unlock()
	return p.Refresh(ctx)
}

type updateRecorder struct {
	mu      sync.Mutex
	updates []model.Module
}

func (r *updateRecorder) callback(module model.Module, _ any) {
	r.mu.Lock()
	r.updates = append(r.updates, module)
	r.mu.Unlock()
}

func (r *updateRecorder) modules() []model.Module {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Module(nil), r.updates...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFailureIsolation(t *testing.T) {
	st := store.New()
	rec := &updateRecorder{}
	failing := &fakeProvider{err: errors.New("probe exploded")}
	healthy := &fakeProvider{blob: model.MemoryData{Total: 1}}

	o := New("test", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleCPU, Provider: failing},
		{Module: model.ModuleMemory, Provider: healthy},
	}, 0, rec.callback)

	o.RunCycle(context.Background())
	if !o.Wait(2 * time.Second) {
		t.Fatalf("cycle did not settle")
	}

	if _, ok := st.Get(model.ModuleCPU); ok {
		t.Fatalf("failed module must not write the store")
	}
	if _, ok := st.Get(model.ModuleMemory); !ok {
		t.Fatalf("sibling module missed its update")
	}
	mods := rec.modules()
	if len(mods) != 1 || mods[0] != model.ModuleMemory {
		t.Fatalf("expected fan-out only for memory, got %v", mods)
	}

	// Cycle N+1 retries the failed module; it is not permanently disabled.
	o.RunCycle(context.Background())
	o.Wait(2 * time.Second)
	if failing.calls.Load() != 2 {
		t.Fatalf("expected failed module to be retried, got %d calls", failing.calls.Load())
	}
}

func TestBusyModuleIsSkippedNotDuplicated(t *testing.T) {
	st := store.New()
	slow := &fakeProvider{
		blob:    model.CPUData{},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 2),
	}

	o := New("test", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleCPU, Provider: slow},
	}, 0, nil)

	o.RunCycle(context.Background())
	<-slow.entered

	// Second cycle reaches the module while it is still in flight.
	o.RunCycle(context.Background())
	time.Sleep(20 * time.Millisecond)
	if slow.calls.Load() != 1 {
		t.Fatalf("busy module invoked concurrently: %d calls", slow.calls.Load())
	}

	close(slow.block)
	if !o.Wait(2 * time.Second) {
		t.Fatalf("cycle did not settle")
	}

	// Once the unit is free again the next cycle runs it.
	o.RunCycle(context.Background())
	<-slow.entered
	o.Wait(2 * time.Second)
	if slow.calls.Load() != 2 {
		t.Fatalf("expected refresh after busy flag cleared, got %d calls", slow.calls.Load())
	}
}

func TestStaleValueKeptOnFailure(t *testing.T) {
	st := store.New()
	p := &fakeProvider{blob: model.CPUData{Usage: 10}}
	o := New("test", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleCPU, Provider: p},
	}, 0, nil)

	o.RunCycle(context.Background())
	o.Wait(2 * time.Second)

	p.err = errors.New("flaky")
	o.RunCycle(context.Background())
	o.Wait(2 * time.Second)

	got, ok := st.Get(model.ModuleCPU)
	if !ok {
		t.Fatalf("entry was cleared by a failed cycle")
	}
	if got.(model.CPUData).Usage != 10 {
		t.Fatalf("stale value replaced on failure")
	}
}

func TestSensorSnapshotInjectedOncePerCycle(t *testing.T) {
	st := store.New()
	rec := &updateRecorder{}
	aware := &sensorAwareProvider{}
	aware.blob = model.GPUsData{}
	plain := &fakeProvider{blob: model.MemoryData{}}

	sensors := provider.NewSensorsAt(t.TempDir())
	o := New("test", testLogger(), st, sensors, []provider.Binding{
		{Module: model.ModuleGPUs, Provider: aware},
		{Module: model.ModuleMemory, Provider: plain},
	}, 0, rec.callback)

	o.RunCycle(context.Background())
	if !o.Wait(2 * time.Second) {
		t.Fatalf("cycle did not settle")
	}

	if _, ok := st.Get(model.ModuleSensors); !ok {
		t.Fatalf("sensor snapshot was not published under its own module")
	}
	aware.mu.Lock()
	received := len(aware.received)
	aware.mu.Unlock()
	if received != 1 {
		t.Fatalf("expected exactly one sensor handoff, got %d", received)
	}

	mods := rec.modules()
	if len(mods) == 0 || mods[0] != model.ModuleSensors {
		t.Fatalf("sensors must fan out first, got %v", mods)
	}
}

func TestIndependentInstancesDoNotShareBusyState(t *testing.T) {
	st := store.New()
	slow := &fakeProvider{blob: model.MediaData{}, block: make(chan struct{}), entered: make(chan struct{}, 1)}
	fast := &fakeProvider{blob: model.MediaData{}}

	full := New("full", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleMedia, Provider: slow},
	}, 0, nil)
	media := New("media", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleMedia, Provider: fast},
	}, 0, nil)

	full.RunCycle(context.Background())
	<-slow.entered

	media.RunCycle(context.Background())
	media.Wait(2 * time.Second)
	if fast.calls.Load() != 1 {
		t.Fatalf("second instance blocked by first instance's busy unit")
	}

	close(slow.block)
	full.Wait(2 * time.Second)
}

func TestStaggerDelayBetweenStarts(t *testing.T) {
	st := store.New()
	a := &fakeProvider{blob: model.CPUData{}}
	b := &fakeProvider{blob: model.MemoryData{}}
	o := New("test", testLogger(), st, nil, []provider.Binding{
		{Module: model.ModuleCPU, Provider: a},
		{Module: model.ModuleMemory, Provider: b},
	}, 50*time.Millisecond, nil)

	begin := time.Now()
	o.RunCycle(context.Background())
	elapsed := time.Since(begin)
	o.Wait(2 * time.Second)

	if elapsed < 50*time.Millisecond {
		t.Fatalf("expected at least one stagger delay between starts, cycle took %v", elapsed)
	}
}
