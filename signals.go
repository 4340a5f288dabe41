package xmem

import "github.com/zoobzio/capitan"

// Transition lifecycle signals.
var (
	// TransitionStarted is emitted when a navigation begins.
	TransitionStarted = capitan.NewSignal(
		"xmem.transition.started",
		"Route transition started",
	)

	// TransitionSuperseded is emitted when a new navigation replaces one
	// that was still pending.
	TransitionSuperseded = capitan.NewSignal(
		"xmem.transition.superseded",
		"Pending route transition superseded",
	)

	// TransitionFinished is emitted when a navigation resolves.
	TransitionFinished = capitan.NewSignal(
		"xmem.transition.finished",
		"Route transition finished",
	)

	// TransitionReset is emitted when a navigation fails and visual state is
	// forced back to idle.
	TransitionReset = capitan.NewSignal(
		"xmem.transition.reset",
		"Route transition reset",
	)

	// TransitionStateChanged is emitted when the visual state changes.
	TransitionStateChanged = capitan.NewSignal(
		"xmem.transition.state.changed",
		"Route transition visual state change",
	)

	// TransitionTimingApplied is emitted when new thresholds take effect.
	TransitionTimingApplied = capitan.NewSignal(
		"xmem.transition.timing.applied",
		"Route transition timing applied",
	)
)

// Navigator signals.
var (
	// NavigationRedirected is emitted when a guard redirects a navigation.
	NavigationRedirected = capitan.NewSignal(
		"xmem.navigator.redirected",
		"Navigation redirected by guard",
	)

	// NavigationCommitted is emitted when a navigation resolves and becomes
	// the current location.
	NavigationCommitted = capitan.NewSignal(
		"xmem.navigator.committed",
		"Navigation committed",
	)

	// NavigationFailed is emitted when a route resolver fails.
	NavigationFailed = capitan.NewSignal(
		"xmem.navigator.failed",
		"Navigation failed",
	)
)

// Reloader signals.
var (
	// ReloaderStarted is emitted when a TimingReloader begins watching.
	ReloaderStarted = capitan.NewSignal(
		"xmem.reloader.started",
		"Timing reloader watching started",
	)

	// ReloaderStopped is emitted when a TimingReloader stops watching.
	ReloaderStopped = capitan.NewSignal(
		"xmem.reloader.stopped",
		"Timing reloader watching stopped",
	)

	// ReloaderStateChanged is emitted when a TimingReloader changes state.
	ReloaderStateChanged = capitan.NewSignal(
		"xmem.reloader.state.changed",
		"Timing reloader state transition",
	)

	// ReloaderChangeReceived is emitted when raw data arrives from the watcher.
	ReloaderChangeReceived = capitan.NewSignal(
		"xmem.reloader.change.received",
		"Raw timing change received from watcher",
	)

	// ReloaderDecodeFailed is emitted when raw data cannot be decoded.
	ReloaderDecodeFailed = capitan.NewSignal(
		"xmem.reloader.decode.failed",
		"Timing decode failed",
	)

	// ReloaderValidationFailed is emitted when decoded timing is invalid.
	ReloaderValidationFailed = capitan.NewSignal(
		"xmem.reloader.validation.failed",
		"Timing validation failed",
	)

	// ReloaderApplyFailed is emitted when the controller rejects timing.
	ReloaderApplyFailed = capitan.NewSignal(
		"xmem.reloader.apply.failed",
		"Timing apply failed",
	)

	// ReloaderApplySucceeded is emitted when timing reaches the controller.
	ReloaderApplySucceeded = capitan.NewSignal(
		"xmem.reloader.apply.succeeded",
		"Timing applied successfully",
	)
)

// Toast and confirm signals.
var (
	// ToastShown is emitted when a toast is added.
	ToastShown = capitan.NewSignal(
		"xmem.toast.shown",
		"Toast shown",
	)

	// ToastDismissed is emitted when a toast is removed.
	ToastDismissed = capitan.NewSignal(
		"xmem.toast.dismissed",
		"Toast dismissed",
	)

	// ConfirmRequested is emitted when a confirmation prompt opens.
	ConfirmRequested = capitan.NewSignal(
		"xmem.confirm.requested",
		"Confirmation requested",
	)

	// ConfirmResolved is emitted when a confirmation prompt closes.
	ConfirmResolved = capitan.NewSignal(
		"xmem.confirm.resolved",
		"Confirmation resolved",
	)
)
