// Package testing provides test utilities and helpers for xmem controllers
// and reloaders.
package testing

import (
	"context"
	"testing"
	"time"

	xmem "github.com/Xchkoo/Xmem"
	"github.com/zoobzio/clockz"
)

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// WaitForState waits until the controller reaches the expected state or
// timeout occurs.
func WaitForState(t *testing.T, c *xmem.Controller, expected xmem.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return c.State() == expected
	})
}

// RequireState fails the test immediately if the controller is not in the
// expected state.
func RequireState(t *testing.T, c *xmem.Controller, expected xmem.State) {
	t.Helper()
	if got := c.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// WaitForReloadState waits until the reloader reaches the expected state or
// timeout occurs.
func WaitForReloadState(t *testing.T, r *xmem.TimingReloader, expected xmem.ReloadState, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return r.State() == expected
	})
}

// Advance moves the fake clock forward and waits for timers it fired to be
// delivered.
func Advance(clock *clockz.FakeClock, d time.Duration) {
	clock.Advance(d)
	clock.BlockUntilReady()
}

// NewTestController creates a running controller on a fake clock. The
// controller stops when the test ends.
func NewTestController(t *testing.T) (*xmem.Controller, *clockz.FakeClock) {
	t.Helper()
	clock := clockz.NewFakeClock()
	c := xmem.NewController().Clock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("failed to start controller: %v", err)
	}
	return c, clock
}

// NewTestReloader creates a sync-mode reloader for ctrl. Returns the reloader
// and a channel for sending timing payloads.
func NewTestReloader(t *testing.T, ctrl *xmem.Controller) (*xmem.TimingReloader, chan<- []byte) {
	t.Helper()
	ch := make(chan []byte, 10)
	r := xmem.NewTimingReloader(xmem.NewSyncChannelWatcher(ch), ctrl).SyncMode()
	return r, ch
}
