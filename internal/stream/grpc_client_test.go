package stream

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/metadata"
)

type fakeClientStream struct {
	closeSendCalls int
}

func (s *fakeClientStream) Header() (metadata.MD, error) { return nil, nil }
func (s *fakeClientStream) Trailer() metadata.MD         { return nil }
func (s *fakeClientStream) Context() context.Context     { return context.Background() }
func (s *fakeClientStream) SendMsg(any) error            { return nil }
func (s *fakeClientStream) RecvMsg(any) error            { return io.EOF }

func (s *fakeClientStream) CloseSend() error {
	s.closeSendCalls++
	return nil
}

func TestCloseReleasesStreamContext(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewGRPCClient("host", "remote:50051", nil, "", "/svc/Stream", logger)

	fake := &fakeClientStream{}
	cancelled := false
	c.stream = fake
	c.streamCancel = func() { cancelled = true }

	if err := c.Close(context.Background()); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if fake.closeSendCalls != 1 {
		t.Fatalf("expected CloseSend once, got %d", fake.closeSendCalls)
	}
	if !cancelled {
		t.Fatal("stream context was not released on close")
	}
	if c.stream != nil || c.streamCancel != nil {
		t.Fatal("stream state should be cleared after close")
	}
}

func TestCloseStreamLockedIsIdempotent(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := NewGRPCClient("host", "remote:50051", nil, "", "/svc/Stream", logger)

	fake := &fakeClientStream{}
	cancels := 0
	c.stream = fake
	c.streamCancel = func() { cancels++ }

	c.closeStreamLocked()
	c.closeStreamLocked()

	if fake.closeSendCalls != 1 || cancels != 1 {
		t.Fatalf("teardown ran more than once: closeSend=%d cancels=%d", fake.closeSendCalls, cancels)
	}
}
