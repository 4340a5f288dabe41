/*
Package xmem drives the route transition feedback of the Xmem client: a thin
progress bar for navigations that take a moment, and a full loading view for
navigations that take longer.

A Controller debounces those visuals so fast navigations show nothing, and
holds each visual for a minimum time once shown so it never flickers.

# Basic Usage

Start the controller and report navigations to it:

	ctrl := xmem.NewController()
	if err := ctrl.Start(ctx); err != nil {
	    return err
	}

	ctrl.StartTransition()
	view, err := load(ctx)
	if err != nil {
	    ctrl.ResetTransition()
	    return err
	}
	ctrl.FinishTransition()

A Navigator makes those calls for you and guarantees that only the most
recent navigation commits:

	nav := xmem.NewNavigator(ctrl).
	    Register("notes", loadNotes).
	    BeforeEach(xmem.RequireSession(session.Token, "home"))

	loc, err := nav.Navigate(ctx, "notes", nil)

# Timing

The thresholds default to 80ms (bar), 250ms (loading), 200ms (minimum bar)
and 500ms (minimum loading). SetMinLoadingMs adjusts the loading dwell at
runtime; ApplyTiming replaces all four after validation.

A TimingReloader keeps the timing in sync with a file, rejecting invalid
changes and keeping the previous timing:

	reloader := xmem.NewTimingReloader(xmem.NewFileWatcher(path), ctrl).
	    Codec(xmem.CodecFor(path))
	err := reloader.Start(ctx)

# Observability

Every component emits capitan signals (see signals.go). Hook them to log or
record metrics:

	capitan.Hook(xmem.TransitionStateChanged, func(_ context.Context, e *capitan.Event) {
	    from, _ := xmem.KeyOldState.From(e)
	    to, _ := xmem.KeyNewState.From(e)
	    log.Printf("%s -> %s", from, to)
	})

A MetricsProvider receives the same lifecycle synchronously.

# Testing

Pass a clockz.FakeClock to Controller.Clock and TimingReloader.Clock to drive
timers deterministically. The testing subpackage provides polling helpers.
*/
package xmem
