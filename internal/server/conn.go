package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nhooyr.io/websocket"

	"hostbridge/internal/model"
)

// wsConn wraps one accepted websocket. Writes come from both the serve loop
// and the fan-out workers, so they are serialized behind a mutex. It is the
// connection's listener.Sink.
type wsConn struct {
	mu sync.Mutex

	c            *websocket.Conn
	writeTimeout time.Duration
}

func newWSConn(c *websocket.Conn, writeTimeout time.Duration) *wsConn {
	return &wsConn{c: c, writeTimeout: writeTimeout}
}

func (c *wsConn) Deliver(_ context.Context, resp model.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	wctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.c.Write(wctx, websocket.MessageText, payload)
}

func (c *wsConn) read(ctx context.Context) ([]byte, error) {
	_, payload, err := c.c.Read(ctx)
	return payload, err
}

func (c *wsConn) close(code websocket.StatusCode, reason string) {
	_ = c.c.Close(code, reason)
}
