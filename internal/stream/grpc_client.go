package stream

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"

	"hostbridge/internal/model"
)

type jsonCodec struct{}

func (jsonCodec) Name() string {
	return "json"
}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// GRPCClient forwards update frames on a single client stream. The remote
// side consumes frames with the JSON codec; no generated stubs are needed.
type GRPCClient struct {
	mu sync.Mutex

	logger       *slog.Logger
	host         string
	addr         string
	tlsConfig    *tls.Config
	token        string
	streamMethod string
	conn         *grpc.ClientConn
	stream       grpc.ClientStream
	streamCancel context.CancelFunc
	dialTimeout  time.Duration
}

func NewGRPCClient(host, addr string, tlsCfg *tls.Config, token, streamMethod string, logger *slog.Logger) *GRPCClient {
	encoding.RegisterCodec(jsonCodec{})
	return &GRPCClient{
		logger:       logger,
		host:         host,
		addr:         addr,
		tlsConfig:    tlsCfg,
		token:        token,
		streamMethod: streamMethod,
		dialTimeout:  8 * time.Second,
	}
}

func (c *GRPCClient) SendModuleUpdate(ctx context.Context, module model.Module, blob any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureConnLocked(ctx); err != nil {
		return err
	}
	if c.stream == nil {
		if err := c.openStreamLocked(ctx); err != nil {
			return err
		}
	}
	frame := NewUpdateFrame(c.host, module, blob)
	if err := c.stream.SendMsg(frame); err != nil {
		c.logger.Warn("grpc uplink send failed, reopening stream", "error", err)
		c.closeStreamLocked()
		if err2 := c.openStreamLocked(ctx); err2 != nil {
			return fmt.Errorf("reopen uplink stream: %w", err2)
		}
		if err2 := c.stream.SendMsg(frame); err2 != nil {
			return fmt.Errorf("send update frame: %w", err2)
		}
	}
	return nil
}

func (c *GRPCClient) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeStreamLocked()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	_ = ctx
	return nil
}

func (c *GRPCClient) ensureConnLocked(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dialCtx, cancel := context.WithTimeout(context.Background(), c.dialTimeout)
	defer cancel()
	if dl, ok := ctx.Deadline(); ok {
		dialCtx, cancel = context.WithDeadline(context.Background(), dl)
		defer cancel()
	}

	var creds credentials.TransportCredentials
	if c.tlsConfig != nil {
		creds = credentials.NewTLS(c.tlsConfig)
	} else {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.DialContext(
		dialCtx,
		c.addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithBlock(),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{}), grpc.CallContentSubtype("json")),
	)
	if err != nil {
		return fmt.Errorf("grpc dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.logger.Info("grpc uplink connected", "addr", c.addr)
	return nil
}

func (c *GRPCClient) openStreamLocked(_ context.Context) error {
	if c.conn == nil {
		return fmt.Errorf("grpc conn is nil")
	}
	// The stream outlives any single send, so its context is bounded by
	// closeStreamLocked rather than a caller deadline.
	streamCtx, cancel := context.WithCancel(context.Background())
	if c.token != "" {
		streamCtx = metadata.AppendToOutgoingContext(streamCtx, "authorization", "Bearer "+c.token)
	}
	s, err := c.conn.NewStream(streamCtx, &grpc.StreamDesc{ClientStreams: true}, c.streamMethod)
	if err != nil {
		cancel()
		return fmt.Errorf("open uplink stream: %w", err)
	}
	c.stream = s
	c.streamCancel = cancel
	return nil
}

// closeStreamLocked tears down the current stream and releases its context.
func (c *GRPCClient) closeStreamLocked() {
	if c.stream != nil {
		_ = c.stream.CloseSend()
		c.stream = nil
	}
	if c.streamCancel != nil {
		c.streamCancel()
		c.streamCancel = nil
	}
}
