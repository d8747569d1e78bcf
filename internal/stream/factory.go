package stream

import (
	"crypto/tls"
	"log/slog"

	"hostbridge/internal/config"
)

// NewSinkFromConfig builds the uplink sink for the configured mode, or nil
// when forwarding is disabled.
func NewSinkFromConfig(cfg config.Config, tlsCfg *tls.Config, logger *slog.Logger) Sink {
	switch cfg.UplinkMode {
	case config.UplinkModeGRPC:
		return NewGRPCClient(cfg.Hostname, cfg.UplinkGRPCAddr, tlsCfg, cfg.UplinkToken, cfg.UplinkStreamMethod, logger)
	case config.UplinkModeWebSocket:
		return NewWebSocketClient(cfg.Hostname, cfg.UplinkWSURL, cfg.UplinkToken, tlsCfg, cfg.UplinkWriteTimeout, cfg.UplinkPingInterval, logger)
	default:
		return nil
	}
}
