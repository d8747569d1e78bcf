// Package listener tracks per-connection subscriptions and fans module
// updates out to the subset of listeners interested in them.
package listener

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"hostbridge/internal/model"
)

// Sink delivers a response to one specific connection. Implementations must
// be safe for concurrent use; fan-out runs on worker goroutines.
type Sink interface {
	Deliver(ctx context.Context, resp model.Response) error
}

type entry struct {
	id      string
	modules map[model.Module]struct{}
	sink    Sink
}

// Registry is the process-wide listener set. Registration happens on the
// connection-serving side; Dispatch is called from refresh workers, so all
// access is guarded.
type Registry struct {
	logger *slog.Logger

	mu        sync.RWMutex
	listeners map[string]*entry
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		listeners: make(map[string]*entry),
	}
}

// Add registers a listener. Registering an id that is already present is
// idempotent and reported via already=true; the existing entry is kept.
func (r *Registry) Add(id string, modules []model.Module, sink Sink) (already bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[id]; ok {
		r.logger.Warn("listener already registered", "listener_id", id)
		return true
	}
	interest := make(map[model.Module]struct{}, len(modules))
	for _, m := range modules {
		interest[m] = struct{}{}
	}
	r.listeners[id] = &entry{id: id, modules: interest, sink: sink}
	r.logger.Info("listener registered", "listener_id", id, "modules", modules)
	return false
}

// Remove deletes a listener. Removal is total and immediate: Remove waits
// out any fan-out already in flight, so no delivery reaches the sink after
// Remove returns.
func (r *Registry) Remove(id string) (found bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.listeners[id]; !ok {
		r.logger.Info("listener not found", "listener_id", id)
		return false
	}
	delete(r.listeners, id)
	r.logger.Info("listener removed", "listener_id", id)
	return true
}

// RemoveAll drops every registration.
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	r.listeners = make(map[string]*entry)
	r.mu.Unlock()
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// Dispatch delivers blob to every listener whose interest set contains
// module. Each push carries a freshly generated id. A failure delivering to
// one listener never blocks or aborts delivery to another; delivery order
// across listeners is unspecified.
//
// The read lock is held across delivery so Remove blocks until in-flight
// fan-out drains; once Remove returns, no further push can reach the
// listener. Sinks bound their writes, so the lock is never held open-ended.
func (r *Registry) Dispatch(ctx context.Context, module model.Module, blob any) {
	if !model.IsModule(string(module)) {
		r.logger.Warn("dispatch for module outside the registry", "module", module)
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, l := range r.listeners {
		if _, ok := l.modules[module]; !ok {
			continue
		}
		resp := model.Response{
			ID:      uuid.NewString(),
			Type:    model.TypeDataUpdate,
			Module:  module,
			Message: "Data changed",
			Data:    blob,
		}
		if err := l.sink.Deliver(ctx, resp); err != nil {
			r.logger.Warn("listener delivery failed", "listener_id", l.id, "module", module, "error", err)
		}
	}
}
