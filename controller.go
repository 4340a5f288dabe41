package xmem

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// TransitionState is a point-in-time copy of a Controller's record.
type TransitionState struct {
	// State is the current visual mode.
	State State

	// NavToken identifies the most recent navigation. It only increases.
	NavToken uint64

	// StartedAt is when the current navigation began. Zero when idle after
	// a finish or reset.
	StartedAt time.Time

	// LoadingShownAt is when the loading overlay appeared. Zero unless the
	// controller is in, or holding, StateLoading.
	LoadingShownAt time.Time

	// Timing is the threshold set in effect.
	Timing Timing
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdFinish
	cmdReset
	cmdSetMinLoading
	cmdApplyTiming
)

type command struct {
	kind   commandKind
	ms     int
	timing Timing
	done   chan struct{}
}

type timerKind int

const (
	timerBar timerKind = iota
	timerLoading
	timerStop
)

// pendingTimer is a scheduled escalation or hold. A nil *pendingTimer means
// nothing is scheduled for that slot.
type pendingTimer struct {
	kind  timerKind
	token uint64
	timer clockz.Timer
}

// Controller decides, for each navigation, whether to show nothing, a
// progress bar, or a full loading overlay, based on how long the navigation
// takes.
//
// All mutation runs on a single goroutine started by Start. Operations are
// synchronous: when StartTransition returns, the reset to idle is already
// visible to readers. Every scheduled timer carries the navigation token it
// was created under and is ignored if a newer navigation has begun.
//
// Callers must follow every StartTransition with FinishTransition or
// ResetTransition, otherwise the controller stays in StateBar or
// StateLoading.
type Controller struct {
	clock   clockz.Clock
	metrics MetricsProvider

	mu             sync.RWMutex
	state          State
	token          uint64
	startedAt      time.Time
	loadingShownAt time.Time
	timing         Timing
	bar            *pendingTimer
	loading        *pendingTimer
	stop           *pendingTimer
	started        bool

	running  atomic.Bool
	commands chan command
	stopped  chan struct{}
}

// NewController creates an idle Controller with the default timing.
//
// Example:
//
//	ctrl := xmem.NewController()
//	if err := ctrl.Start(ctx); err != nil {
//	    return err
//	}
//	nav := xmem.NewNavigator(ctrl)
func NewController() *Controller {
	return &Controller{
		clock:    clockz.RealClock,
		timing:   DefaultTiming(),
		commands: make(chan command),
		stopped:  make(chan struct{}),
	}
}

// Clock sets a custom clock for time operations.
// Use this with clockz.FakeClock for deterministic testing.
// Must be called before Start().
func (c *Controller) Clock(clock clockz.Clock) *Controller {
	c.clock = clock
	return c
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (c *Controller) Metrics(provider MetricsProvider) *Controller {
	c.metrics = provider
	return c
}

// Start launches the controller's event loop. The loop runs until ctx is
// canceled; when it exits pending timers are dropped and the controller
// returns to idle.
//
// Start can only be called once. Subsequent calls return an error.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("controller already started")
	}
	c.started = true
	c.mu.Unlock()

	c.running.Store(true)
	go c.run(ctx)
	return nil
}

// Done returns a channel that is closed once the event loop has exited.
func (c *Controller) Done() <-chan struct{} {
	return c.stopped
}

// StartTransition begins a navigation. Any navigation still pending or
// visible is superseded and visual state returns to idle immediately.
func (c *Controller) StartTransition() {
	c.send(command{kind: cmdStart})
}

// FinishTransition marks the current navigation as resolved. A visible bar
// or overlay is kept until its minimum dwell has elapsed.
func (c *Controller) FinishTransition() {
	c.send(command{kind: cmdFinish})
}

// ResetTransition forces visual state to idle and drops every pending
// timer, ignoring minimum dwell. Use it when a navigation fails. It takes
// effect even when the event loop is not running.
func (c *Controller) ResetTransition() {
	if !c.running.Load() {
		c.mu.Lock()
		c.cancelAllLocked()
		c.idleLocked()
		c.mu.Unlock()
		return
	}
	c.send(command{kind: cmdReset})
}

// SetMinLoadingMs sets the minimum overlay dwell. Negative values are
// treated as zero.
func (c *Controller) SetMinLoadingMs(ms int) {
	ms = clampMs(ms)
	if !c.running.Load() {
		c.mu.Lock()
		c.timing.MinLoadingMs = ms
		c.mu.Unlock()
		return
	}
	c.send(command{kind: cmdSetMinLoading, ms: ms})
}

// ApplyTiming validates and installs a new threshold set. Timers already
// scheduled keep their original deadlines; the new values apply from the
// next StartTransition or FinishTransition.
func (c *Controller) ApplyTiming(t Timing) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if !c.running.Load() {
		c.mu.Lock()
		c.timing = t
		c.mu.Unlock()
		return nil
	}
	c.send(command{kind: cmdApplyTiming, timing: t})
	return nil
}

// State returns the current visual mode.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsBarVisible reports whether the progress bar should be shown.
func (c *Controller) IsBarVisible() bool {
	return c.State() == StateBar
}

// IsLoadingVisible reports whether the loading overlay should be shown.
func (c *Controller) IsLoadingVisible() bool {
	return c.State() == StateLoading
}

// Timing returns the threshold set in effect.
func (c *Controller) Timing() Timing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timing
}

// Snapshot returns a copy of the controller's record.
func (c *Controller) Snapshot() TransitionState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TransitionState{
		State:          c.state,
		NavToken:       c.token,
		StartedAt:      c.startedAt,
		LoadingShownAt: c.loadingShownAt,
		Timing:         c.timing,
	}
}

// PendingTimers returns how many escalation or hold timers are scheduled.
func (c *Controller) PendingTimers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, p := range []*pendingTimer{c.bar, c.loading, c.stop} {
		if p != nil {
			n++
		}
	}
	return n
}

// send hands a command to the event loop and waits for it to be applied.
// Commands issued before Start or after the loop exits are dropped.
func (c *Controller) send(cmd command) {
	if !c.running.Load() {
		return
	}
	cmd.done = make(chan struct{})
	select {
	case c.commands <- cmd:
	case <-c.stopped:
		return
	}
	select {
	case <-cmd.done:
	case <-c.stopped:
	}
}

// run is the event loop. It is the only writer of controller state.
func (c *Controller) run(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.cancelAllLocked()
		token := c.token
		from := c.state
		c.idleLocked()
		c.mu.Unlock()

		// A stopped controller must not leave a visual on screen
		if from != StateIdle {
			c.changed(context.WithoutCancel(ctx), from, StateIdle, token)
		}
		c.running.Store(false)
		close(c.stopped)
	}()

	for {
		// Timer channels for this iteration, nil when nothing is scheduled
		barC, loadingC, stopC := timerC(c.bar), timerC(c.loading), timerC(c.stop)
		bar, loading, stop := c.bar, c.loading, c.stop

		select {
		case <-ctx.Done():
			return

		case cmd := <-c.commands:
			c.handle(ctx, cmd)
			close(cmd.done)

		case <-barC:
			c.fire(ctx, bar)

		case <-loadingC:
			c.fire(ctx, loading)

		case <-stopC:
			c.fire(ctx, stop)
		}
	}
}

func (c *Controller) handle(ctx context.Context, cmd command) {
	switch cmd.kind {
	case cmdStart:
		c.startTransition(ctx)
	case cmdFinish:
		c.finishTransition(ctx)
	case cmdReset:
		c.resetTransition(ctx)
	case cmdSetMinLoading:
		c.mu.Lock()
		c.timing.MinLoadingMs = cmd.ms
		c.mu.Unlock()
	case cmdApplyTiming:
		c.mu.Lock()
		c.timing = cmd.timing
		c.mu.Unlock()
		capitan.Emit(ctx, TransitionTimingApplied,
			KeyNavToken.Field(int(c.token)),
		)
	}
}

func (c *Controller) startTransition(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	superseded := c.state != StateIdle || c.bar != nil || c.loading != nil
	c.cancelAllLocked()
	c.token++
	token := c.token
	from := c.state
	c.state = StateIdle
	c.startedAt = now
	c.loadingShownAt = time.Time{}
	c.bar = c.schedule(timerBar, token, c.timing.showBarAfter())
	c.loading = c.schedule(timerLoading, token, c.timing.showLoadingAfter())
	c.mu.Unlock()

	if from != StateIdle {
		c.changed(ctx, from, StateIdle, token)
	}
	if superseded {
		capitan.Emit(ctx, TransitionSuperseded,
			KeyNavToken.Field(int(token)),
			KeyState.Field(from.String()),
		)
	}
	capitan.Emit(ctx, TransitionStarted,
		KeyNavToken.Field(int(token)),
	)
	if c.metrics != nil {
		c.metrics.OnTransitionStarted(superseded)
	}
}

func (c *Controller) finishTransition(ctx context.Context) {
	now := c.clock.Now()

	c.mu.Lock()
	inFlight := c.bar != nil || c.loading != nil
	c.cancelAllLocked()
	token := c.token
	state := c.state
	elapsed := sinceOr(now, c.startedAt)

	var hold time.Duration
	switch state {
	case StateLoading:
		hold = c.timing.minLoading() - sinceOr(now, c.loadingShownAt)
	case StateBar:
		hold = c.timing.minBar() - elapsed
	default:
		// Nothing visible to unwind
		c.mu.Unlock()
		if inFlight {
			c.finished(ctx, token, elapsed, 0)
		}
		return
	}

	if hold > 0 {
		c.stop = c.schedule(timerStop, token, hold)
		c.mu.Unlock()
		c.finished(ctx, token, elapsed, hold)
		return
	}

	c.idleLocked()
	c.mu.Unlock()
	c.changed(ctx, state, StateIdle, token)
	c.finished(ctx, token, elapsed, 0)
}

func (c *Controller) resetTransition(ctx context.Context) {
	c.mu.Lock()
	c.cancelAllLocked()
	token := c.token
	from := c.state
	c.idleLocked()
	c.mu.Unlock()

	if from != StateIdle {
		c.changed(ctx, from, StateIdle, token)
	}
	capitan.Emit(ctx, TransitionReset,
		KeyNavToken.Field(int(token)),
		KeyOldState.Field(from.String()),
	)
	if c.metrics != nil {
		c.metrics.OnTransitionReset()
	}
}

// fire applies a timer that reached its deadline. Timers from a superseded
// navigation are no-ops.
func (c *Controller) fire(ctx context.Context, p *pendingTimer) {
	now := c.clock.Now()

	c.mu.Lock()
	switch p.kind {
	case timerBar:
		c.bar = nil
	case timerLoading:
		c.loading = nil
	case timerStop:
		c.stop = nil
	}
	if p.token != c.token {
		c.mu.Unlock()
		return
	}

	from := c.state
	to := from
	switch p.kind {
	case timerBar:
		if from == StateIdle {
			to = StateBar
		}
	case timerLoading:
		if from == StateIdle || from == StateBar {
			to = StateLoading
			c.loadingShownAt = now
		}
	case timerStop:
		c.idleLocked()
		to = StateIdle
	}
	c.state = to
	c.mu.Unlock()

	if from != to {
		c.changed(ctx, from, to, p.token)
	}
}

// schedule creates a timer for the given slot. Caller holds c.mu.
func (c *Controller) schedule(kind timerKind, token uint64, d time.Duration) *pendingTimer {
	return &pendingTimer{
		kind:  kind,
		token: token,
		timer: c.clock.NewTimer(d),
	}
}

// cancelAllLocked stops every pending timer. Caller holds c.mu.
func (c *Controller) cancelAllLocked() {
	cancelTimer(c.bar)
	cancelTimer(c.loading)
	cancelTimer(c.stop)
	c.bar, c.loading, c.stop = nil, nil, nil
}

// idleLocked returns the record to idle. Caller holds c.mu.
func (c *Controller) idleLocked() {
	c.state = StateIdle
	c.startedAt = time.Time{}
	c.loadingShownAt = time.Time{}
}

func (c *Controller) changed(ctx context.Context, from, to State, token uint64) {
	capitan.Emit(ctx, TransitionStateChanged,
		KeyOldState.Field(from.String()),
		KeyNewState.Field(to.String()),
		KeyNavToken.Field(int(token)),
	)
	if c.metrics != nil {
		c.metrics.OnStateChange(from, to)
	}
}

func (c *Controller) finished(ctx context.Context, token uint64, elapsed, hold time.Duration) {
	capitan.Emit(ctx, TransitionFinished,
		KeyNavToken.Field(int(token)),
		KeyElapsed.Field(elapsed),
		KeyHold.Field(hold),
	)
	if c.metrics != nil {
		c.metrics.OnTransitionFinished(elapsed, hold)
	}
}

func cancelTimer(p *pendingTimer) {
	if p == nil {
		return
	}
	if !p.timer.Stop() {
		select {
		case <-p.timer.C():
		default:
		}
	}
}

func timerC(p *pendingTimer) <-chan time.Time {
	if p == nil {
		return nil
	}
	return p.timer.C()
}

// sinceOr returns now-t, or zero when t is unset.
func sinceOr(now, t time.Time) time.Duration {
	if t.IsZero() {
		return 0
	}
	return now.Sub(t)
}
