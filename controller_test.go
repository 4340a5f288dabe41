package xmem

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

type stateChange struct {
	from, to State
}

// recordingMetrics captures controller callbacks for assertions.
type recordingMetrics struct {
	NoOpMetricsProvider

	mu         sync.Mutex
	changes    []stateChange
	started    int
	superseded int
	holds      []time.Duration
	resets     int
}

func (r *recordingMetrics) OnStateChange(from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, stateChange{from, to})
}

func (r *recordingMetrics) OnTransitionStarted(superseded bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
	if superseded {
		r.superseded++
	}
}

func (r *recordingMetrics) OnTransitionFinished(_, hold time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.holds = append(r.holds, hold)
}

func (r *recordingMetrics) OnTransitionReset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets++
}

func (r *recordingMetrics) sawState(s State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.to == s {
			return true
		}
	}
	return false
}

func (r *recordingMetrics) sawChange(from, to State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.changes {
		if c.from == from && c.to == to {
			return true
		}
	}
	return false
}

func (r *recordingMetrics) snapshot() []stateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]stateChange, len(r.changes))
	copy(out, r.changes)
	return out
}

func newTestController(t *testing.T) (*Controller, *clockz.FakeClock, *recordingMetrics) {
	t.Helper()
	clock := clockz.NewFakeClock()
	rec := &recordingMetrics{}
	c := NewController().Clock(clock).Metrics(rec)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return c, clock, rec
}

// advance moves the fake clock and waits for timer deliveries.
func advance(clock *clockz.FakeClock, d time.Duration) {
	clock.Advance(d)
	clock.BlockUntilReady()
}

// waitState polls until the controller reaches the expected state.
func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("expected state %s, got %s", want, c.State())
}

// holdState gives the event loop time to process anything delivered, then
// checks the state has not moved.
func holdState(t *testing.T, c *Controller, want State) {
	t.Helper()
	time.Sleep(20 * time.Millisecond)
	if got := c.State(); got != want {
		t.Fatalf("expected state to remain %s, got %s", want, got)
	}
}

func TestController_InitialState(t *testing.T) {
	c := NewController()

	if c.State() != StateIdle {
		t.Errorf("expected idle, got %s", c.State())
	}
	if c.IsBarVisible() || c.IsLoadingVisible() {
		t.Error("expected nothing visible")
	}
	snap := c.Snapshot()
	if snap.NavToken != 0 {
		t.Errorf("expected token 0, got %d", snap.NavToken)
	}
	if !snap.StartedAt.IsZero() || !snap.LoadingShownAt.IsZero() {
		t.Error("expected timestamps unset")
	}
	if snap.Timing != DefaultTiming() {
		t.Errorf("expected default timing, got %+v", snap.Timing)
	}
}

func TestController_StartTwice(t *testing.T) {
	c, _, _ := newTestController(t)

	if err := c.Start(context.Background()); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestController_OperationsBeforeStartAreIgnored(t *testing.T) {
	c := NewController().Clock(clockz.NewFakeClock())

	c.StartTransition()
	c.FinishTransition()
	c.ResetTransition()

	if c.State() != StateIdle {
		t.Errorf("expected idle, got %s", c.State())
	}
	if c.PendingTimers() != 0 {
		t.Errorf("expected no pending timers, got %d", c.PendingTimers())
	}
	if c.Snapshot().NavToken != 0 {
		t.Errorf("expected token untouched, got %d", c.Snapshot().NavToken)
	}
}

func TestController_StartSchedulesTimers(t *testing.T) {
	c, _, _ := newTestController(t)

	c.StartTransition()

	snap := c.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("expected idle right after start, got %s", snap.State)
	}
	if snap.NavToken != 1 {
		t.Errorf("expected token 1, got %d", snap.NavToken)
	}
	if snap.StartedAt.IsZero() {
		t.Error("expected StartedAt to be recorded")
	}
	if c.PendingTimers() != 2 {
		t.Errorf("expected bar and loading timers, got %d", c.PendingTimers())
	}
}

func TestController_EscalatesBarThenLoading(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.StartTransition()

	advance(clock, 79*time.Millisecond)
	holdState(t, c, StateIdle)

	advance(clock, 1*time.Millisecond)
	waitState(t, c, StateBar)
	if !c.IsBarVisible() || c.IsLoadingVisible() {
		t.Error("expected only the bar visible")
	}

	advance(clock, 170*time.Millisecond)
	waitState(t, c, StateLoading)
	if c.IsBarVisible() || !c.IsLoadingVisible() {
		t.Error("expected only the overlay visible")
	}
	if c.Snapshot().LoadingShownAt.IsZero() {
		t.Error("expected LoadingShownAt to be recorded")
	}
}

func TestController_FastNavigationStaysIdle(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	advance(clock, 50*time.Millisecond)
	c.FinishTransition()

	if c.State() != StateIdle {
		t.Errorf("expected idle, got %s", c.State())
	}
	if c.PendingTimers() != 0 {
		t.Errorf("expected timers cancelled, got %d", c.PendingTimers())
	}

	// Run well past both thresholds
	advance(clock, time.Second)
	holdState(t, c, StateIdle)

	if rec.sawState(StateBar) || rec.sawState(StateLoading) {
		t.Errorf("expected no visible state, saw %v", rec.snapshot())
	}
}

func TestController_LoadingHonorsMinimumDwell(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.StartTransition()
	advance(clock, 80*time.Millisecond)
	waitState(t, c, StateBar)
	advance(clock, 170*time.Millisecond)
	waitState(t, c, StateLoading)

	// Finish 50ms into loading
	advance(clock, 50*time.Millisecond)
	c.FinishTransition()

	if c.State() != StateLoading {
		t.Fatalf("expected loading to be held, got %s", c.State())
	}
	if c.PendingTimers() != 1 {
		t.Errorf("expected one stop timer, got %d", c.PendingTimers())
	}

	// 749ms after start
	advance(clock, 449*time.Millisecond)
	holdState(t, c, StateLoading)

	// 750ms after start: 250 + 500
	advance(clock, 1*time.Millisecond)
	waitState(t, c, StateIdle)

	snap := c.Snapshot()
	if !snap.StartedAt.IsZero() {
		t.Error("expected StartedAt cleared")
	}
	if !snap.LoadingShownAt.IsZero() {
		t.Error("expected LoadingShownAt cleared")
	}
	if c.PendingTimers() != 0 {
		t.Errorf("expected no timers, got %d", c.PendingTimers())
	}
}

func TestController_LongLoadingFinishesImmediately(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	advance(clock, time.Second)
	c.FinishTransition()

	if c.State() != StateIdle {
		t.Errorf("expected idle once dwell already satisfied, got %s", c.State())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.holds) != 1 || rec.holds[0] != 0 {
		t.Errorf("expected a single finish with no hold, got %v", rec.holds)
	}
}

func TestController_BarHonorsMinimumDwell(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	advance(clock, 80*time.Millisecond)
	waitState(t, c, StateBar)

	// Finish at 100ms; bar is held until 200ms after start
	advance(clock, 20*time.Millisecond)
	c.FinishTransition()
	if c.State() != StateBar {
		t.Fatalf("expected bar to be held, got %s", c.State())
	}

	advance(clock, 99*time.Millisecond)
	holdState(t, c, StateBar)

	advance(clock, 1*time.Millisecond)
	waitState(t, c, StateIdle)

	// Loading threshold passes without effect
	advance(clock, time.Second)
	holdState(t, c, StateIdle)
	if rec.sawState(StateLoading) {
		t.Error("expected loading never shown")
	}
}

func TestController_BarPastMinimumGoesIdle(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.StartTransition()
	advance(clock, 80*time.Millisecond)
	waitState(t, c, StateBar)

	// t=200: bar has covered minBar, loading threshold not yet reached
	advance(clock, 120*time.Millisecond)
	holdState(t, c, StateBar)
	c.FinishTransition()

	if c.State() != StateIdle {
		t.Errorf("expected immediate idle, got %s", c.State())
	}
}

func TestController_SupersedeFromBar(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	advance(clock, 80*time.Millisecond)
	waitState(t, c, StateBar)

	// Second navigation at t=80
	c.StartTransition()
	if c.State() != StateIdle {
		t.Fatalf("expected immediate idle on supersede, got %s", c.State())
	}
	if c.Snapshot().NavToken != 2 {
		t.Errorf("expected token 2, got %d", c.Snapshot().NavToken)
	}

	// t=159: new bar threshold not reached
	advance(clock, 79*time.Millisecond)
	holdState(t, c, StateIdle)

	// t=160: new bar
	advance(clock, 1*time.Millisecond)
	waitState(t, c, StateBar)

	// t=250: the superseded loading deadline must not fire
	advance(clock, 90*time.Millisecond)
	holdState(t, c, StateBar)

	// t=330: new loading threshold
	advance(clock, 80*time.Millisecond)
	waitState(t, c, StateLoading)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.superseded != 1 {
		t.Errorf("expected 1 superseded start, got %d", rec.superseded)
	}
}

func TestController_SupersedeCancelsHold(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.StartTransition()
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	// Finish at t=260; stop timer due at t=750
	advance(clock, 10*time.Millisecond)
	c.FinishTransition()

	// New navigation at t=300
	advance(clock, 40*time.Millisecond)
	c.StartTransition()
	if c.State() != StateIdle {
		t.Fatalf("expected idle on supersede, got %s", c.State())
	}

	// t=550: new navigation reaches loading
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	// t=760: the old stop deadline passes without effect
	advance(clock, 210*time.Millisecond)
	holdState(t, c, StateLoading)
}

func TestController_ResetIgnoresMinimumDwell(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	c.FinishTransition()
	if c.State() != StateLoading {
		t.Fatalf("expected loading held, got %s", c.State())
	}

	c.ResetTransition()
	if c.State() != StateIdle {
		t.Errorf("expected idle after reset, got %s", c.State())
	}
	if c.PendingTimers() != 0 {
		t.Errorf("expected no pending timers, got %d", c.PendingTimers())
	}
	snap := c.Snapshot()
	if !snap.StartedAt.IsZero() || !snap.LoadingShownAt.IsZero() {
		t.Error("expected timestamps cleared")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.resets != 1 {
		t.Errorf("expected 1 reset, got %d", rec.resets)
	}
}

func TestController_ResetWhilePending(t *testing.T) {
	c, clock, rec := newTestController(t)

	c.StartTransition()
	c.ResetTransition()

	if c.PendingTimers() != 0 {
		t.Errorf("expected no pending timers, got %d", c.PendingTimers())
	}

	advance(clock, time.Second)
	holdState(t, c, StateIdle)

	if rec.sawState(StateBar) {
		t.Error("expected bar never shown after reset")
	}
}

func TestController_FinishWithoutStartIsSilent(t *testing.T) {
	c, _, rec := newTestController(t)

	c.FinishTransition()

	if c.State() != StateIdle {
		t.Errorf("expected idle, got %s", c.State())
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.holds) != 0 {
		t.Errorf("expected no finish callbacks, got %v", rec.holds)
	}
}

func TestController_SetMinLoadingMs(t *testing.T) {
	c, clock, _ := newTestController(t)

	c.SetMinLoadingMs(-5)
	if got := c.Timing().MinLoadingMs; got != 0 {
		t.Errorf("expected negative to clamp to 0, got %d", got)
	}

	c.StartTransition()
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	c.FinishTransition()
	if c.State() != StateIdle {
		t.Errorf("expected no hold with zero minimum, got %s", c.State())
	}

	c.SetMinLoadingMs(1200)
	if got := c.Timing().MinLoadingMs; got != 1200 {
		t.Errorf("expected 1200, got %d", got)
	}
}

func TestController_SetMinLoadingMsBeforeStart(t *testing.T) {
	c := NewController()
	c.SetMinLoadingMs(900)

	if got := c.Timing().MinLoadingMs; got != 900 {
		t.Errorf("expected 900, got %d", got)
	}
}

func TestController_ApplyTiming(t *testing.T) {
	c, clock, _ := newTestController(t)

	err := c.ApplyTiming(Timing{
		ShowBarAfterMs:     10,
		ShowLoadingAfterMs: 20,
		MinBarMs:           0,
		MinLoadingMs:       0,
	})
	if err != nil {
		t.Fatalf("ApplyTiming() error = %v", err)
	}

	c.StartTransition()
	advance(clock, 10*time.Millisecond)
	waitState(t, c, StateBar)
	advance(clock, 10*time.Millisecond)
	waitState(t, c, StateLoading)
}

func TestController_ApplyTimingRejectsInvalid(t *testing.T) {
	c, _, _ := newTestController(t)

	err := c.ApplyTiming(Timing{ShowBarAfterMs: 500, ShowLoadingAfterMs: 100})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if c.Timing() != DefaultTiming() {
		t.Errorf("expected timing unchanged, got %+v", c.Timing())
	}
}

func TestController_StopsWithContext(t *testing.T) {
	clock := clockz.NewFakeClock()
	c := NewController().Clock(clock)

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c.StartTransition()
	cancel()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("expected event loop to exit")
	}

	if c.PendingTimers() != 0 {
		t.Errorf("expected timers dropped on exit, got %d", c.PendingTimers())
	}

	// Must not block once stopped
	c.StartTransition()
	c.FinishTransition()
}

func TestController_StopWhileLoadingReturnsToIdle(t *testing.T) {
	clock := clockz.NewFakeClock()
	rec := &recordingMetrics{}
	c := NewController().Clock(clock).Metrics(rec)

	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	c.StartTransition()
	advance(clock, 250*time.Millisecond)
	waitState(t, c, StateLoading)

	cancel()
	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("expected event loop to exit")
	}

	if c.IsLoadingVisible() || c.State() != StateIdle {
		t.Errorf("expected idle after stop, got %s", c.State())
	}
	snap := c.Snapshot()
	if !snap.StartedAt.IsZero() || !snap.LoadingShownAt.IsZero() {
		t.Errorf("expected timestamps cleared, got %+v", snap)
	}
	if !rec.sawChange(StateLoading, StateIdle) {
		t.Error("expected loading -> idle to be reported on stop")
	}
}

func TestController_ResetAfterStop(t *testing.T) {
	c := NewController().Clock(clockz.NewFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	cancel()
	<-c.Done()

	// Simulate a record left visible, then recover it without a loop
	c.mu.Lock()
	c.state = StateBar
	c.mu.Unlock()

	c.ResetTransition()
	if c.State() != StateIdle || c.PendingTimers() != 0 {
		t.Errorf("expected idle with no timers, got %s/%d", c.State(), c.PendingTimers())
	}
}
