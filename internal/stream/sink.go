// Package stream forwards module updates to an upstream aggregator (a
// "remote bridge") over a persistent client stream, gRPC or websocket.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"hostbridge/internal/model"
)

// Sink is the uplink contract. Implementations reconnect lazily on write
// failure; forwarding is best-effort and never blocks the local fan-out.
type Sink interface {
	SendModuleUpdate(ctx context.Context, module model.Module, blob any) error
	Close(ctx context.Context) error
}

// UpdateFrame is the wire framing for one forwarded module update.
type UpdateFrame struct {
	Host          string       `json:"host"`
	Module        model.Module `json:"module"`
	TimestampUnix int64        `json:"timestamp_unix"`
	Payload       any          `json:"payload"`
}

func NewUpdateFrame(host string, module model.Module, blob any) UpdateFrame {
	return UpdateFrame{
		Host:          host,
		Module:        module,
		TimestampUnix: time.Now().UTC().Unix(),
		Payload:       blob,
	}
}

func EncodeFrame(f UpdateFrame) ([]byte, error) {
	return json.Marshal(f)
}
