// Package store holds the most recent data blob per module. It is the single
// source of truth read by one-shot queries and by fan-out.
package store

import (
	"sync"
	"time"

	"hostbridge/internal/model"
)

// Entry pairs a module blob with the time it was produced.
type Entry struct {
	Data      any
	UpdatedAt time.Time
}

// Store maps module names to their latest blob. Writers replace a module's
// entry as a whole; readers never observe a partial update. A failed refresh
// never clears an entry.
type Store struct {
	mu      sync.RWMutex
	entries map[model.Module]Entry
}

func New() *Store {
	return &Store{entries: make(map[model.Module]Entry, len(model.Modules))}
}

// Set replaces the module's entry. The caller must not mutate data after
// handing it over.
func (s *Store) Set(module model.Module, data any) {
	s.mu.Lock()
	s.entries[module] = Entry{Data: data, UpdatedAt: time.Now().UTC()}
	s.mu.Unlock()
}

// Get returns the module's latest blob, or ok=false if no refresh has
// succeeded yet.
func (s *Store) Get(module model.Module) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[module]
	s.mu.RUnlock()
	return e.Data, ok
}

// GetEntry returns the module's entry including its update time.
func (s *Store) GetEntry(module model.Module) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[module]
	s.mu.RUnlock()
	return e, ok
}

// Populated returns the modules that currently have an entry.
func (s *Store) Populated() []model.Module {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Module, 0, len(s.entries))
	for m := range s.entries {
		out = append(out, m)
	}
	return out
}
