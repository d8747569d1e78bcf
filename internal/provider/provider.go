// Package provider contains the per-module data producers. Each provider
// computes one module's blob on demand and may fail or be unavailable on the
// current platform.
package provider

import (
	"context"

	"hostbridge/internal/model"
)

// Provider produces a module's current data blob.
type Provider interface {
	Refresh(ctx context.Context) (any, error)
}

// SensorAware is the capability interface for providers whose blob depends
// on the per-cycle sensor snapshot. The orchestrator computes the snapshot
// once per cycle and hands every sensor-aware provider the same immutable
// value; providers must not retain or mutate it.
type SensorAware interface {
	Provider
	RefreshWithSensors(ctx context.Context, sensors model.SensorsData) (any, error)
}

// Binding pairs a module name with its provider.
type Binding struct {
	Module   model.Module
	Provider Provider
}

// DefaultBindings returns the full module set in fixed iteration order,
// excluding sensors (the orchestrator runs the sensors provider itself,
// ahead of the others) and media (served by the dedicated fast path).
func DefaultBindings(bridgeVersion string) []Binding {
	return []Binding{
		{model.ModuleBattery, NewBattery()},
		{model.ModuleCPU, NewCPU()},
		{model.ModuleDisks, NewDisks()},
		{model.ModuleGPUs, NewGPUs()},
		{model.ModuleMemory, NewMemory()},
		{model.ModuleNetworks, NewNetworks()},
		{model.ModuleProcesses, NewProcesses()},
		{model.ModuleSystem, NewSystem(bridgeVersion)},
	}
}
