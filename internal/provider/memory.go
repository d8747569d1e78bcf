package provider

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"hostbridge/internal/model"
)

type Memory struct{}

func NewMemory() *Memory { return &Memory{} }

func (p *Memory) Refresh(ctx context.Context) (any, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("virtual memory: %w", err)
	}
	data := model.MemoryData{
		Total:       vm.Total,
		Available:   vm.Available,
		Used:        vm.Used,
		UsedPercent: vm.UsedPercent,
	}
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		data.SwapTotal = swap.Total
		data.SwapUsed = swap.Used
		data.SwapPercent = swap.UsedPercent
	}
	return data, nil
}
