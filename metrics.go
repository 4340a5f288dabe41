package xmem

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on controller and reloader events.
type MetricsProvider interface {
	// OnStateChange is called when the controller's visual state changes.
	OnStateChange(from, to State)

	// OnTransitionStarted is called for every navigation. Superseded reports
	// whether a previous navigation was still pending or visible.
	OnTransitionStarted(superseded bool)

	// OnTransitionFinished is called when a started navigation resolves.
	// Elapsed is measured from the start of the navigation; hold is how long
	// the visual state is kept to honor its minimum dwell.
	OnTransitionFinished(elapsed, hold time.Duration)

	// OnTransitionReset is called when a navigation fails.
	OnTransitionReset()

	// OnReloadSuccess is called when a timing change is applied.
	OnReloadSuccess(duration time.Duration)

	// OnReloadFailure is called when a timing change fails.
	// Stage is "decode", "validate", or "apply".
	OnReloadFailure(stage string, duration time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)                  {}
func (NoOpMetricsProvider) OnTransitionStarted(_ bool)                {}
func (NoOpMetricsProvider) OnTransitionFinished(_, _ time.Duration)   {}
func (NoOpMetricsProvider) OnTransitionReset()                        {}
func (NoOpMetricsProvider) OnReloadSuccess(_ time.Duration)           {}
func (NoOpMetricsProvider) OnReloadFailure(_ string, _ time.Duration) {}
