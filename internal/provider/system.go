package provider

import (
	"context"
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v4/host"

	"hostbridge/internal/model"
)

type System struct {
	bridgeVersion string
}

func NewSystem(bridgeVersion string) *System {
	return &System{bridgeVersion: bridgeVersion}
}

func (p *System) Refresh(ctx context.Context) (any, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("host info: %w", err)
	}
	return model.SystemData{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
		Architecture:    runtime.GOARCH,
		BootTimeUnix:    int64(info.BootTime),
		UptimeSeconds:   info.Uptime,
		BridgeVersion:   p.bridgeVersion,
	}, nil
}
