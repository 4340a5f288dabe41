package xmem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultDebounce is the default debounce duration for timing changes.
const DefaultDebounce = 100 * time.Millisecond

// TimingReloader watches a timing source, decodes and validates each change,
// and applies it to a Controller. A change that fails to decode, validate, or
// apply is rejected and the previous timing stays in effect.
type TimingReloader struct {
	watcher        Watcher
	ctrl           *Controller
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(ReloadState)

	state    atomic.Int32
	current  atomic.Pointer[Timing]
	lastErr  atomic.Pointer[error]
	failures *failureRing

	mu      sync.Mutex
	started bool

	// Sync mode keeps the watcher channel for Process
	changes <-chan []byte
}

// NewTimingReloader creates a reloader that applies timing from watcher to
// ctrl.
//
// Example:
//
//	reloader := xmem.NewTimingReloader(
//	    xmem.NewFileWatcher("/etc/xmem/timing.yaml"),
//	    ctrl,
//	).Codec(xmem.YAMLCodec{}).Debounce(200 * time.Millisecond)
//
//	if err := reloader.Start(ctx); err != nil {
//	    log.Printf("initial timing rejected, keeping defaults: %v", err)
//	}
func NewTimingReloader(watcher Watcher, ctrl *Controller) *TimingReloader {
	r := &TimingReloader{
		watcher:  watcher,
		ctrl:     ctrl,
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    JSONCodec{},
	}
	r.state.Store(int32(ReloadLoading))
	return r
}

// Debounce sets how long to wait for changes to settle. Changes arriving
// within this window are coalesced. Must be called before Start().
func (r *TimingReloader) Debounce(d time.Duration) *TimingReloader {
	r.debounce = d
	return r
}

// SyncMode disables the background goroutine. Start only processes the
// initial value; later values are processed by calling Process.
// Must be called before Start().
func (r *TimingReloader) SyncMode() *TimingReloader {
	r.syncMode = true
	return r
}

// Clock sets a custom clock for debounce timing.
// Must be called before Start().
func (r *TimingReloader) Clock(clock clockz.Clock) *TimingReloader {
	r.clock = clock
	return r
}

// Codec sets the decoder for timing payloads. Default: JSONCodec.
// Must be called before Start().
func (r *TimingReloader) Codec(codec Codec) *TimingReloader {
	r.codec = codec
	return r
}

// StartupTimeout bounds how long Start waits for the first value.
// Default: no timeout. Must be called before Start().
func (r *TimingReloader) StartupTimeout(d time.Duration) *TimingReloader {
	r.startupTimeout = d
	return r
}

// Metrics sets a metrics provider. Must be called before Start().
func (r *TimingReloader) Metrics(provider MetricsProvider) *TimingReloader {
	r.metrics = provider
	return r
}

// OnStop sets a callback invoked with the final state when watching ends.
// Must be called before Start().
func (r *TimingReloader) OnStop(fn func(ReloadState)) *TimingReloader {
	r.onStop = fn
	return r
}

// ErrorHistorySize sets how many recent failures ErrorHistory retains.
// Zero keeps only LastError. Must be called before Start().
func (r *TimingReloader) ErrorHistorySize(n int) *TimingReloader {
	r.failures = newFailureRing(n)
	return r
}

// State returns the reloader's state.
func (r *TimingReloader) State() ReloadState {
	return ReloadState(r.state.Load())
}

// Current returns the last applied timing and true, or false if none has
// been applied.
func (r *TimingReloader) Current() (Timing, bool) {
	ptr := r.current.Load()
	if ptr == nil {
		return Timing{}, false
	}
	return *ptr, true
}

// LastError returns the most recent failure, or nil after a success.
func (r *TimingReloader) LastError() error {
	ptr := r.lastErr.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns recent failures since the last success, oldest first.
func (r *TimingReloader) ErrorHistory() []ReloadFailure {
	return r.failures.all()
}

// Start begins watching. It blocks until the first value has been processed
// and returns that value's error, if any, while continuing to watch in the
// background for a valid update.
//
// Start can only be called once. Subsequent calls return an error.
func (r *TimingReloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return fmt.Errorf("reloader already started")
	}
	r.started = true
	r.mu.Unlock()

	capitan.Emit(ctx, ReloaderStarted,
		KeyDebounce.Field(r.debounce),
	)

	changes, err := r.watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	waitCtx := ctx
	if r.startupTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = r.clock.WithTimeout(ctx, r.startupTimeout)
		defer cancel()
	}

	var initialErr error
	select {
	case <-waitCtx.Done():
		if r.startupTimeout > 0 && errors.Is(waitCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("startup timeout: no timing within %v", r.startupTimeout)
		}
		return waitCtx.Err()
	case raw, ok := <-changes:
		if !ok {
			return fmt.Errorf("watcher closed before emitting initial timing")
		}
		capitan.Emit(ctx, ReloaderChangeReceived)
		initialErr = r.process(ctx, raw)
	}

	if r.syncMode {
		r.changes = changes
		return initialErr
	}

	go r.watch(ctx, changes)

	return initialErr
}

// Process handles the next pending value in sync mode. It returns false
// when not in sync mode, when nothing is pending, or when the watcher has
// closed.
func (r *TimingReloader) Process(ctx context.Context) bool {
	if !r.syncMode {
		return false
	}

	select {
	case raw, ok := <-r.changes:
		if !ok {
			return false
		}
		capitan.Emit(ctx, ReloaderChangeReceived)
		_ = r.process(ctx, raw) //nolint:errcheck // Recorded via fail
		return true
	default:
		return false
	}
}

// process decodes, validates, and applies one timing payload.
func (r *TimingReloader) process(ctx context.Context, raw []byte) error {
	start := r.clock.Now()

	// Start from defaults so a partial file only overrides what it names
	timing := DefaultTiming()
	if err := r.codec.Unmarshal(raw, &timing); err != nil {
		r.fail(ctx, "decode", err, start, ReloaderDecodeFailed)
		return fmt.Errorf("decode failed: %w", err)
	}

	if err := timing.Validate(); err != nil {
		r.fail(ctx, "validate", err, start, ReloaderValidationFailed)
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := r.ctrl.ApplyTiming(timing); err != nil {
		r.fail(ctx, "apply", err, start, ReloaderApplyFailed)
		return fmt.Errorf("apply failed: %w", err)
	}

	r.current.Store(&timing)
	r.lastErr.Store(nil)
	r.failures.clear()
	r.transition(ctx, ReloadHealthy)
	capitan.Emit(ctx, ReloaderApplySucceeded)
	if r.metrics != nil {
		r.metrics.OnReloadSuccess(r.clock.Since(start))
	}
	return nil
}

// fail records a rejected change and moves to degraded, or empty if no
// timing was ever applied.
func (r *TimingReloader) fail(ctx context.Context, stage string, err error, start time.Time, signal capitan.Signal) {
	f := ReloadFailure{Stage: stage, Err: err, At: r.clock.Now()}
	var e error = f
	r.lastErr.Store(&e)
	r.failures.push(f)

	next := ReloadDegraded
	if r.current.Load() == nil {
		next = ReloadEmpty
	}
	r.transition(ctx, next)

	capitan.Emit(ctx, signal,
		KeyError.Field(err.Error()),
	)
	if r.metrics != nil {
		r.metrics.OnReloadFailure(stage, r.clock.Since(start))
	}
}

// transition updates the state and emits a change event if it moved.
func (r *TimingReloader) transition(ctx context.Context, next ReloadState) {
	prev := ReloadState(r.state.Swap(int32(next)))
	if prev == next {
		return
	}
	capitan.Emit(ctx, ReloaderStateChanged,
		KeyOldState.Field(prev.String()),
		KeyNewState.Field(next.String()),
	)
}

// watch processes changes with debouncing until ctx ends or the watcher
// closes.
func (r *TimingReloader) watch(ctx context.Context, changes <-chan []byte) {
	defer func() {
		final := r.State()
		capitan.Emit(ctx, ReloaderStopped,
			KeyState.Field(final.String()),
		)
		if r.onStop != nil {
			r.onStop(final)
		}
	}()

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case raw, ok := <-changes:
			if !ok {
				// Flush whatever was waiting on the debounce
				if hasPending {
					_ = r.process(ctx, pending) //nolint:errcheck // Recorded via fail
				}
				return
			}

			capitan.Emit(ctx, ReloaderChangeReceived)
			pending = raw
			hasPending = true

			if timer == nil {
				timer = r.clock.NewTimer(r.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(r.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = r.process(ctx, pending) //nolint:errcheck // Recorded via fail
				pending = nil
				hasPending = false
			}
		}
	}
}
