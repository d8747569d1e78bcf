package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"

	"hostbridge/internal/model"
)

type Disks struct{}

func NewDisks() *Disks { return &Disks{} }

func (p *Disks) Refresh(ctx context.Context) (any, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("disk partitions: %w", err)
	}

	io, ioErr := disk.IOCountersWithContext(ctx)
	if ioErr != nil {
		io = nil
	}

	data := model.DisksData{Disks: make([]model.Disk, 0, len(parts))}
	for _, part := range parts {
		usage, err := disk.UsageWithContext(ctx, part.Mountpoint)
		if err != nil {
			// Pseudo filesystems and unreadable mounts are expected on some
			// hosts; skip rather than fail the whole module.
			continue
		}
		d := model.Disk{
			Name:        part.Device,
			Mountpoint:  part.Mountpoint,
			Filesystem:  part.Fstype,
			Total:       usage.Total,
			Used:        usage.Used,
			Free:        usage.Free,
			UsedPercent: usage.UsedPercent,
		}
		if counters, ok := io[deviceBase(part.Device)]; ok {
			d.ReadBytes = counters.ReadBytes
			d.WriteBytes = counters.WriteBytes
		}
		data.Disks = append(data.Disks, d)
	}
	return data, nil
}

func deviceBase(device string) string {
	if i := strings.LastIndexByte(device, '/'); i >= 0 {
		return device[i+1:]
	}
	return device
}
