package shutdown

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"animrender/internal/pkg/logger"
)

func TestRegister(t *testing.T) {
	mgr := NewManager(logger.Discard(), 5*time.Second)

	mgr.Register("http-server", func(ctx context.Context) error { return nil })
	mgr.RegisterSimple("redis", func() {})

	if len(mgr.handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "http-server" {
		t.Errorf("expected first handler 'http-server', got %s", mgr.handlers[0].Name)
	}
}

func TestDefaultTimeout(t *testing.T) {
	mgr := NewManager(logger.Discard(), 0)
	if mgr.timeout != 30*time.Second {
		t.Errorf("expected 30s default timeout, got %s", mgr.timeout)
	}
}

func TestShutdownRunsHandlersInReverseOrder(t *testing.T) {
	mgr := NewManager(logger.Discard(), 5*time.Second)

	var order []string
	for _, name := range []string{"postgres", "redis", "dispatcher", "http-server"} {
		name := name
		mgr.RegisterSimple(name, func() { order = append(order, name) })
	}

	mgr.Shutdown()

	want := []string{"http-server", "dispatcher", "redis", "postgres"}
	if len(order) != len(want) {
		t.Fatalf("expected %d handlers, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestShutdownContinuesAfterHandlerError(t *testing.T) {
	mgr := NewManager(logger.Discard(), 5*time.Second)

	var ran atomic.Bool
	mgr.RegisterSimple("first", func() { ran.Store(true) })
	mgr.Register("failing", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	mgr.Shutdown()

	if !ran.Load() {
		t.Error("expected remaining handlers to run after a failure")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	mgr := NewManager(logger.Discard(), 5*time.Second)

	var calls atomic.Int32
	mgr.RegisterSimple("counter", func() { calls.Add(1) })

	mgr.Shutdown()
	mgr.Shutdown()

	if calls.Load() != 1 {
		t.Errorf("expected handler to run once, ran %d times", calls.Load())
	}
	select {
	case <-mgr.Done():
	default:
		t.Error("expected done channel to be closed")
	}
}

func TestShutdownDeadlinePropagates(t *testing.T) {
	mgr := NewManager(logger.Discard(), 50*time.Millisecond)

	mgr.Register("slow", func(ctx context.Context) error {
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
		}
		return ctx.Err()
	})

	start := time.Now()
	mgr.Shutdown()

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("shutdown took too long: %v", elapsed)
	}
}
