package provider

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"

	"hostbridge/internal/model"
)

type Processes struct{}

func NewProcesses() *Processes { return &Processes{} }

func (p *Processes) Refresh(ctx context.Context) (any, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}
	data := model.ProcessesData{
		Count:     len(procs),
		Processes: make([]model.Process, 0, len(procs)),
	}
	for _, proc := range procs {
		entry := model.Process{PID: proc.Pid}
		// Processes can exit mid-walk; take what is readable and move on.
		if name, err := proc.NameWithContext(ctx); err == nil {
			entry.Name = name
		}
		if user, err := proc.UsernameWithContext(ctx); err == nil {
			entry.Username = user
		}
		if statuses, err := proc.StatusWithContext(ctx); err == nil && len(statuses) > 0 {
			entry.Status = statuses[0]
		}
		if cpuPct, err := proc.CPUPercentWithContext(ctx); err == nil {
			entry.CPUPercent = cpuPct
		}
		if memPct, err := proc.MemoryPercentWithContext(ctx); err == nil {
			entry.MemoryPercent = memPct
		}
		data.Processes = append(data.Processes, entry)
	}
	return data, nil
}
