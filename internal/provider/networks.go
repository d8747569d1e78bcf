package provider

import (
	"context"
	"fmt"

	gnet "github.com/shirou/gopsutil/v4/net"

	"hostbridge/internal/model"
)

type Networks struct{}

func NewNetworks() *Networks { return &Networks{} }

func (p *Networks) Refresh(ctx context.Context) (any, error) {
	counters, err := gnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("net io counters: %w", err)
	}
	data := model.NetworksData{Interfaces: make([]model.NetworkInterface, 0, len(counters))}
	for _, c := range counters {
		data.Interfaces = append(data.Interfaces, model.NetworkInterface{
			Name:        c.Name,
			BytesSent:   c.BytesSent,
			BytesRecv:   c.BytesRecv,
			PacketsSent: c.PacketsSent,
			PacketsRecv: c.PacketsRecv,
			ErrIn:       c.Errin,
			ErrOut:      c.Errout,
		})
	}
	return data, nil
}
