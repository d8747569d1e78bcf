package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"hostbridge/internal/model"
)

type fakeSink struct {
	err   error
	sends int
}

func (s *fakeSink) SendModuleUpdate(context.Context, model.Module, any) error {
	s.sends++
	return s.err
}

func (s *fakeSink) Close(context.Context) error { return nil }

func TestHealthSinkTracksConnectivity(t *testing.T) {
	inner := &fakeSink{}
	health := NewHealthStatus()
	sink := &healthSink{sink: inner, health: health}

	if err := sink.SendModuleUpdate(context.Background(), model.ModuleCPU, model.CPUData{}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if !health.streamConnected.Load() {
		t.Fatal("stream should be marked connected after a successful send")
	}

	inner.err = errors.New("uplink down")
	if err := sink.SendModuleUpdate(context.Background(), model.ModuleCPU, model.CPUData{}); err == nil {
		t.Fatal("expected send error")
	}
	if health.streamConnected.Load() {
		t.Fatal("stream should be marked disconnected after a failed send")
	}
	if inner.sends != 2 {
		t.Fatalf("expected 2 sends, got %d", inner.sends)
	}
}

func TestHealthStatusSnapshot(t *testing.T) {
	h := NewHealthStatus()

	snap := h.Snapshot()
	if snap["stream_connected"] != false {
		t.Fatalf("expected stream_connected=false, got %v", snap["stream_connected"])
	}
	if _, ok := snap["last_module_update_at"]; ok {
		t.Fatal("last_module_update_at should be absent before any update")
	}

	now := time.Now().UTC()
	h.MarkModuleUpdate(now)
	h.SetStreamConnected(true)

	snap = h.Snapshot()
	if snap["stream_connected"] != true {
		t.Fatal("expected stream_connected=true")
	}
	got, ok := snap["last_module_update_at"].(time.Time)
	if !ok || !got.Equal(now) {
		t.Fatalf("expected last update %v, got %v", now, snap["last_module_update_at"])
	}
}

func TestRequestExitIsIdempotent(t *testing.T) {
	a := &Agent{exitCh: make(chan struct{})}
	a.requestExit()
	a.requestExit()
	select {
	case <-a.exitCh:
	default:
		t.Fatal("exit channel should be closed")
	}
}
