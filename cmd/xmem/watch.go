package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	xmem "github.com/Xchkoo/Xmem"
	"github.com/spf13/cobra"
)

func newWatchCommand() *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Watch a timing file and log every configuration the controller accepts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watchTiming(ctx, logger.Load(), args[0], debounce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", xmem.DefaultDebounce, "How long file changes must settle before applying")

	return cmd
}

// reloadLog logs each applied timing with the values now in effect.
type reloadLog struct {
	xmem.NoOpMetricsProvider
	log  *slog.Logger
	ctrl *xmem.Controller
}

func (r reloadLog) OnReloadSuccess(d time.Duration) {
	t := r.ctrl.Timing()
	r.log.Info("timing applied",
		slog.Int("show_bar_after_ms", t.ShowBarAfterMs),
		slog.Int("show_loading_after_ms", t.ShowLoadingAfterMs),
		slog.Int("min_bar_ms", t.MinBarMs),
		slog.Int("min_loading_ms", t.MinLoadingMs),
		slog.Duration("took", d),
	)
}

func (r reloadLog) OnReloadFailure(stage string, _ time.Duration) {
	r.log.Warn("timing rejected, keeping previous", slog.String("stage", stage))
}

// watchTiming runs a reloader on path until ctx ends.
func watchTiming(ctx context.Context, log *slog.Logger, path string, debounce time.Duration) error {
	if log == nil {
		log = slog.Default()
	}

	ctrl := xmem.NewController()
	if err := ctrl.Start(ctx); err != nil {
		return err
	}

	stopped := make(chan xmem.ReloadState, 1)
	reloader := xmem.NewTimingReloader(xmem.NewFileWatcher(path), ctrl).
		Codec(xmem.CodecFor(path)).
		Debounce(debounce).
		ErrorHistorySize(10).
		Metrics(reloadLog{log: log, ctrl: ctrl}).
		OnStop(func(s xmem.ReloadState) { stopped <- s })

	if err := reloader.Start(ctx); err != nil {
		var failure xmem.ReloadFailure
		if !errors.As(reloader.LastError(), &failure) {
			// Nothing was read; there is nothing to watch
			return err
		}
		log.Warn("initial timing rejected, using defaults", slog.String("error", err.Error()))
	}

	select {
	case <-ctx.Done():
		return nil
	case s := <-stopped:
		log.Info("watcher stopped", slog.String("state", s.String()))
		return nil
	}
}
