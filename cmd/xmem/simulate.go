package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	xmem "github.com/Xchkoo/Xmem"
	"github.com/spf13/cobra"
	"github.com/zoobzio/clockz"
)

const simulatedRoute = "simulated"

func newSimulateCommand() *cobra.Command {
	var configPath string
	var minLoadingMs int

	cmd := &cobra.Command{
		Use:   "simulate DURATION...",
		Short: "Replay navigation durations and print what the user would see",
		Example: `  xmem simulate 40ms 120ms 600ms
  xmem simulate --config timing.yaml --min-loading-ms 800 1s`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			durations := make([]time.Duration, 0, len(args))
			for _, arg := range args {
				d, err := time.ParseDuration(arg)
				if err != nil {
					return fmt.Errorf("invalid duration %q: %w", arg, err)
				}
				if d < 0 {
					return fmt.Errorf("invalid duration %q: must not be negative", arg)
				}
				durations = append(durations, d)
			}

			timing, err := loadTiming(configPath)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("min-loading-ms") {
				minLoadingMs = -1
			}

			runs, err := simulate(cmd.Context(), clockz.RealClock, timing, minLoadingMs, durations)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Timing file (json, yaml, or toml)")
	cmd.Flags().IntVar(&minLoadingMs, "min-loading-ms", xmem.DefaultMinLoadingMs, "Override the minimum loading dwell")

	return cmd
}

// run is the observed timeline of one simulated navigation, relative to its
// start. Offsets count only when the matching flag is set; a zero
// show_bar_after_ms shows the bar at offset zero. idleAt is when the last
// visual cleared, or when the navigation finished if none showed.
type run struct {
	duration  time.Duration
	barAt     time.Duration
	loadingAt time.Duration
	idleAt    time.Duration

	barShown     bool
	loadingShown bool
	idleSeen     bool
}

func (r run) shown() bool {
	return r.barShown || r.loadingShown
}

func (r run) visible() time.Duration {
	if !r.shown() {
		return 0
	}
	first := r.barAt
	if !r.barShown || (r.loadingShown && r.loadingAt < first) {
		first = r.loadingAt
	}
	return r.idleAt - first
}

// timeline records controller state changes for the current run.
type timeline struct {
	xmem.NoOpMetricsProvider

	clock   clockz.Clock
	changes chan struct{}

	mu      sync.Mutex
	started time.Time
	current run
}

func newTimeline(clock clockz.Clock) *timeline {
	return &timeline{clock: clock, changes: make(chan struct{}, 1)}
}

func (tl *timeline) begin(d time.Duration) {
	tl.mu.Lock()
	tl.started = tl.clock.Now()
	tl.current = run{duration: d}
	tl.mu.Unlock()
}

func (tl *timeline) result() run {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	r := tl.current
	if !r.idleSeen {
		r.idleAt = tl.clock.Since(tl.started)
	}
	return r
}

func (tl *timeline) OnStateChange(_, to xmem.State) {
	tl.mu.Lock()
	at := tl.clock.Since(tl.started)
	switch to {
	case xmem.StateBar:
		tl.current.barAt, tl.current.barShown = at, true
	case xmem.StateLoading:
		tl.current.loadingAt, tl.current.loadingShown = at, true
	case xmem.StateIdle:
		tl.current.idleAt, tl.current.idleSeen = at, true
	}
	tl.mu.Unlock()

	select {
	case tl.changes <- struct{}{}:
	default:
	}
}

// waitIdle blocks until ctrl is back to idle.
func (tl *timeline) waitIdle(ctx context.Context, ctrl *xmem.Controller) error {
	for ctrl.State() != xmem.StateIdle {
		select {
		case <-tl.changes:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// simulate runs each duration as a navigation through a real controller and
// navigator. A negative minLoadingMs leaves the timing's minimum untouched.
func simulate(ctx context.Context, clock clockz.Clock, timing xmem.Timing, minLoadingMs int, durations []time.Duration) ([]run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tl := newTimeline(clock)
	ctrl := xmem.NewController().Clock(clock).Metrics(tl)
	if err := ctrl.ApplyTiming(timing); err != nil {
		return nil, err
	}
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}
	if minLoadingMs >= 0 {
		ctrl.SetMinLoadingMs(minLoadingMs)
	}

	nav := xmem.NewNavigator(ctrl).
		Register(simulatedRoute, func(ctx context.Context, p xmem.Params) (any, error) {
			d, err := time.ParseDuration(p["duration"])
			if err != nil {
				return nil, err
			}
			timer := clock.NewTimer(d)
			defer timer.Stop()
			select {
			case <-timer.C():
				return p["duration"], nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})

	runs := make([]run, 0, len(durations))
	for _, d := range durations {
		tl.begin(d)
		if _, err := nav.Navigate(ctx, simulatedRoute, xmem.Params{"duration": d.String()}); err != nil {
			return runs, err
		}
		if err := tl.waitIdle(ctx, ctrl); err != nil {
			return runs, err
		}
		runs = append(runs, tl.result())
	}
	return runs, nil
}

func renderRuns(runs []run) string {
	headers := []string{"Navigation", "Bar", "Loading", "Done", "Visible"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.duration.String(),
			offset(r.barAt, r.barShown),
			offset(r.loadingAt, r.loadingShown),
			offset(r.idleAt, true),
			offset(r.visible(), r.shown()),
		})
	}
	aligns := []columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight}
	return renderTable(headers, rows, aligns)
}

func offset(d time.Duration, ok bool) string {
	if !ok {
		return "-"
	}
	return d.Round(time.Millisecond).String()
}
