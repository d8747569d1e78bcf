package listener

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"hostbridge/internal/model"
)

type capturingSink struct {
	mu        sync.Mutex
	delivered []model.Response
	err       error
}

func (s *capturingSink) Deliver(_ context.Context, resp model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, resp)
	return nil
}

func (s *capturingSink) responses() []model.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Response(nil), s.delivered...)
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestAddTwiceIsIdempotent(t *testing.T) {
	r := newTestRegistry()
	sink := &capturingSink{}

	if already := r.Add("a", []model.Module{model.ModuleCPU}, sink); already {
		t.Fatalf("first add reported already registered")
	}
	if already := r.Add("a", []model.Module{model.ModuleMemory}, sink); !already {
		t.Fatalf("second add did not report already registered")
	}
	if r.Len() != 1 {
		t.Fatalf("expected exactly one entry, got %d", r.Len())
	}
}

func TestRemoveUnknown(t *testing.T) {
	r := newTestRegistry()
	if r.Remove("ghost") {
		t.Fatalf("expected not found")
	}
	if r.Len() != 0 {
		t.Fatalf("remove of unknown id mutated the registry")
	}
}

func TestDispatchFiltersByInterest(t *testing.T) {
	r := newTestRegistry()
	both := &capturingSink{}
	disksOnly := &capturingSink{}
	r.Add("both", []model.Module{model.ModuleCPU, model.ModuleMemory}, both)
	r.Add("disks", []model.Module{model.ModuleDisks}, disksOnly)

	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{Usage: 12})

	got := both.responses()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery to interested listener, got %d", len(got))
	}
	if got[0].Type != model.TypeDataUpdate || got[0].Module != model.ModuleCPU {
		t.Fatalf("unexpected response: %+v", got[0])
	}
	if got[0].ID == "" {
		t.Fatalf("push response must carry a generated id")
	}
	if len(disksOnly.responses()) != 0 {
		t.Fatalf("listener subscribed to disks received a cpu push")
	}
}

func TestDispatchGeneratesFreshIDs(t *testing.T) {
	r := newTestRegistry()
	sink := &capturingSink{}
	r.Add("a", []model.Module{model.ModuleCPU}, sink)

	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})
	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})

	got := sink.responses()
	if len(got) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Fatalf("push ids must be unique, got %q twice", got[0].ID)
	}
}

func TestDispatchUnknownModuleIsSkipped(t *testing.T) {
	r := newTestRegistry()
	sink := &capturingSink{}
	r.Add("a", []model.Module{model.ModuleCPU}, sink)

	r.Dispatch(context.Background(), model.Module("doesnotexist"), nil)

	if len(sink.responses()) != 0 {
		t.Fatalf("dispatch for unknown module must not deliver")
	}
}

func TestDeliveryFailureDoesNotAbortOthers(t *testing.T) {
	r := newTestRegistry()
	failing := &capturingSink{err: errors.New("dead connection")}
	healthy := &capturingSink{}
	r.Add("failing", []model.Module{model.ModuleCPU}, failing)
	r.Add("healthy", []model.Module{model.ModuleCPU}, healthy)

	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})

	if len(healthy.responses()) != 1 {
		t.Fatalf("healthy listener missed delivery after sibling failure")
	}
}

func TestNoDeliveryAfterRemove(t *testing.T) {
	r := newTestRegistry()
	sink := &capturingSink{}
	r.Add("a", []model.Module{model.ModuleCPU}, sink)
	r.Remove("a")

	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})

	if len(sink.responses()) != 0 {
		t.Fatalf("removed listener received a push")
	}
}

type blockingSink struct {
	mu        sync.Mutex
	delivered int
	entered   chan struct{}
	release   chan struct{}
}

func (s *blockingSink) Deliver(_ context.Context, _ model.Response) error {
	s.entered <- struct{}{}
	<-s.release
	s.mu.Lock()
	s.delivered++
	s.mu.Unlock()
	return nil
}

func (s *blockingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delivered
}

func TestRemoveWaitsForInFlightDispatch(t *testing.T) {
	r := newTestRegistry()
	slow := &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
	r.Add("target", []model.Module{model.ModuleCPU}, slow)

	dispatchDone := make(chan struct{})
	go func() {
		r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})
		close(dispatchDone)
	}()
	<-slow.entered

	removed := make(chan struct{})
	go func() {
		r.Remove("target")
		close(removed)
	}()

	select {
	case <-removed:
		t.Fatalf("Remove returned while a delivery to the listener was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(slow.release)
	<-dispatchDone
	select {
	case <-removed:
	case <-time.After(2 * time.Second):
		t.Fatalf("Remove did not return after fan-out drained")
	}

	r.Dispatch(context.Background(), model.ModuleCPU, model.CPUData{})

	if n := slow.count(); n != 1 {
		t.Fatalf("removed listener received %d deliveries after Remove returned", n-1)
	}
}

func TestRemoveAll(t *testing.T) {
	r := newTestRegistry()
	r.Add("a", []model.Module{model.ModuleCPU}, &capturingSink{})
	r.Add("b", []model.Module{model.ModuleMemory}, &capturingSink{})
	r.RemoveAll()
	if r.Len() != 0 {
		t.Fatalf("expected empty registry")
	}
}
