package model

// Module names a category of telemetry with one bound provider and one
// snapshot entry.
type Module string

const (
	ModuleBattery   Module = "battery"
	ModuleCPU       Module = "cpu"
	ModuleDisks     Module = "disks"
	ModuleGPUs      Module = "gpus"
	ModuleMedia     Module = "media"
	ModuleMemory    Module = "memory"
	ModuleNetworks  Module = "networks"
	ModuleProcesses Module = "processes"
	ModuleSensors   Module = "sensors"
	ModuleSystem    Module = "system"
)

// Modules is the closed set of module names. Any name accepted from a client
// or reported by the orchestrator must be a member.
var Modules = []Module{
	ModuleBattery,
	ModuleCPU,
	ModuleDisks,
	ModuleGPUs,
	ModuleMedia,
	ModuleMemory,
	ModuleNetworks,
	ModuleProcesses,
	ModuleSensors,
	ModuleSystem,
}

var moduleSet = func() map[Module]struct{} {
	s := make(map[Module]struct{}, len(Modules))
	for _, m := range Modules {
		s[m] = struct{}{}
	}
	return s
}()

// IsModule reports whether name is a member of the closed module set.
func IsModule(name string) bool {
	_, ok := moduleSet[Module(name)]
	return ok
}

// ParseModules converts raw client-supplied names into Modules, returning
// the names that are not members of the closed set.
func ParseModules(names []string) (valid []Module, invalid []string) {
	for _, n := range names {
		if IsModule(n) {
			valid = append(valid, Module(n))
		} else {
			invalid = append(invalid, n)
		}
	}
	return valid, invalid
}
