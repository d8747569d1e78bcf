package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"

	"hostbridge/internal/model"
)

// CPU samples logical core count, aggregate and per-core usage, frequency
// and load averages. When the per-cycle sensor snapshot is available it also
// carries the package temperature.
type CPU struct{}

func NewCPU() *CPU { return &CPU{} }

func (p *CPU) Refresh(ctx context.Context) (any, error) {
	return p.refresh(ctx, nil)
}

func (p *CPU) RefreshWithSensors(ctx context.Context, sensors model.SensorsData) (any, error) {
	return p.refresh(ctx, &sensors)
}

func (p *CPU) refresh(ctx context.Context, sensors *model.SensorsData) (any, error) {
	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("cpu counts: %w", err)
	}
	perCPU, err := cpu.PercentWithContext(ctx, 0, true)
	if err != nil {
		return nil, fmt.Errorf("cpu percent: %w", err)
	}
	var usage float64
	for _, v := range perCPU {
		usage += v
	}
	if len(perCPU) > 0 {
		usage /= float64(len(perCPU))
	}

	data := model.CPUData{
		Count:  count,
		Usage:  usage,
		PerCPU: perCPU,
	}

	if infos, err := cpu.InfoWithContext(ctx); err == nil && len(infos) > 0 {
		data.FrequencyMHz = infos[0].Mhz
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		data.Load1 = avg.Load1
		data.Load5 = avg.Load5
		data.Load15 = avg.Load15
	}
	if sensors != nil {
		data.Temperature = cpuTemperature(*sensors)
	}
	return data, nil
}

func cpuTemperature(sensors model.SensorsData) *float64 {
	for _, t := range sensors.Temperatures {
		key := strings.ToLower(t.Key)
		if strings.Contains(key, "coretemp") ||
			strings.Contains(key, "k10temp") ||
			strings.Contains(key, "cpu_thermal") ||
			strings.Contains(key, "package") {
			v := t.Celsius
			return &v
		}
	}
	return nil
}
