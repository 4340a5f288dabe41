package testing

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	xmem "github.com/Xchkoo/Xmem"
)

func TestWaitFor(t *testing.T) {
	t.Run("condition met immediately", func(t *testing.T) {
		result := WaitFor(t, 100*time.Millisecond, func() bool {
			return true
		})
		if !result {
			t.Error("expected WaitFor to return true")
		}
	})

	t.Run("condition never met", func(t *testing.T) {
		result := WaitFor(t, 50*time.Millisecond, func() bool {
			return false
		})
		if result {
			t.Error("expected WaitFor to return false on timeout")
		}
	})

	t.Run("condition met after delay", func(t *testing.T) {
		var met atomic.Bool
		go func() {
			time.Sleep(30 * time.Millisecond)
			met.Store(true)
		}()
		result := WaitFor(t, time.Second, met.Load)
		if !result {
			t.Error("expected WaitFor to return true")
		}
	})
}

func TestNewTestController(t *testing.T) {
	c, clock := NewTestController(t)
	RequireState(t, c, xmem.StateIdle)

	c.StartTransition()
	Advance(clock, 80*time.Millisecond)

	if !WaitForState(t, c, xmem.StateBar, time.Second) {
		t.Fatalf("expected bar, got %s", c.State())
	}

	Advance(clock, 170*time.Millisecond)
	if !WaitForState(t, c, xmem.StateLoading, time.Second) {
		t.Fatalf("expected loading, got %s", c.State())
	}

	c.ResetTransition()
	RequireState(t, c, xmem.StateIdle)
}

func TestNewTestReloader(t *testing.T) {
	c, _ := NewTestController(t)
	r, ch := NewTestReloader(t, c)

	ch <- []byte(`{"min_loading_ms": 750}`)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !WaitForReloadState(t, r, xmem.ReloadHealthy, time.Second) {
		t.Fatalf("expected healthy, got %s", r.State())
	}

	ch <- []byte(`not json`)
	r.Process(context.Background())
	if !WaitForReloadState(t, r, xmem.ReloadDegraded, time.Second) {
		t.Fatalf("expected degraded, got %s", r.State())
	}
	if c.Timing().MinLoadingMs != 750 {
		t.Errorf("expected previous timing kept, got %+v", c.Timing())
	}
}
