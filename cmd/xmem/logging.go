package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	xmem "github.com/Xchkoo/Xmem"
	"github.com/mattn/go-isatty"
	"github.com/zoobzio/capitan"
)

var (
	hookOnce   sync.Once
	logger     atomic.Pointer[slog.Logger]
	warnEvents = map[string]bool{
		xmem.NavigationFailed.Name():         true,
		xmem.ReloaderDecodeFailed.Name():     true,
		xmem.ReloaderValidationFailed.Name(): true,
		xmem.ReloaderApplyFailed.Name():      true,
	}
	debugEvents = map[string]bool{
		xmem.TransitionStateChanged.Name(): true,
		xmem.ReloaderChangeReceived.Name(): true,
		xmem.ToastShown.Name():             true,
		xmem.ToastDismissed.Name():         true,
	}
)

// newLogger builds the CLI logger. Format "auto" picks text on a terminal
// and JSON otherwise.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	levelVar := &slog.LevelVar{}
	levelVar.Set(lvl)
	opts := &slog.HandlerOptions{Level: levelVar}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "auto", "":
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// setLogger swaps the logger used for signal events, hooking the signals on
// first use.
func setLogger(l *slog.Logger) {
	logger.Store(l)
	hookOnce.Do(hookSignals)
}

func hookSignals() {
	signals := []capitan.Signal{
		xmem.TransitionStarted,
		xmem.TransitionSuperseded,
		xmem.TransitionFinished,
		xmem.TransitionReset,
		xmem.TransitionStateChanged,
		xmem.TransitionTimingApplied,
		xmem.NavigationRedirected,
		xmem.NavigationCommitted,
		xmem.NavigationFailed,
		xmem.ReloaderStarted,
		xmem.ReloaderStopped,
		xmem.ReloaderStateChanged,
		xmem.ReloaderChangeReceived,
		xmem.ReloaderDecodeFailed,
		xmem.ReloaderValidationFailed,
		xmem.ReloaderApplyFailed,
		xmem.ReloaderApplySucceeded,
		xmem.ToastShown,
		xmem.ToastDismissed,
		xmem.ConfirmRequested,
		xmem.ConfirmResolved,
	}
	for _, sig := range signals {
		name := sig.Name()
		capitan.Hook(sig, func(ctx context.Context, e *capitan.Event) {
			l := logger.Load()
			if l == nil {
				return
			}
			l.LogAttrs(ctx, eventLevel(name), name, eventAttrs(e)...)
		})
	}
}

func eventLevel(name string) slog.Level {
	switch {
	case warnEvents[name]:
		return slog.LevelWarn
	case debugEvents[name]:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type stringKey interface {
	From(*capitan.Event) (string, bool)
}

type durationKey interface {
	From(*capitan.Event) (time.Duration, bool)
}

var (
	stringKeys = []struct {
		name string
		key  stringKey
	}{
		{"state", xmem.KeyState},
		{"old_state", xmem.KeyOldState},
		{"new_state", xmem.KeyNewState},
		{"error", xmem.KeyError},
		{"route", xmem.KeyRoute},
		{"redirect", xmem.KeyRedirect},
		{"toast_id", xmem.KeyToastID},
		{"toast_kind", xmem.KeyToastKind},
		{"prompt_kind", xmem.KeyPromptKind},
		{"confirmed", xmem.KeyConfirmed},
	}
	durationKeys = []struct {
		name string
		key  durationKey
	}{
		{"elapsed", xmem.KeyElapsed},
		{"hold", xmem.KeyHold},
		{"debounce", xmem.KeyDebounce},
	}
)

func eventAttrs(e *capitan.Event) []slog.Attr {
	var attrs []slog.Attr
	for _, k := range stringKeys {
		if v, ok := k.key.From(e); ok {
			attrs = append(attrs, slog.String(k.name, v))
		}
	}
	if v, ok := xmem.KeyNavToken.From(e); ok {
		attrs = append(attrs, slog.Int("nav_token", v))
	}
	for _, k := range durationKeys {
		if v, ok := k.key.From(e); ok {
			attrs = append(attrs, slog.Duration(k.name, v))
		}
	}
	return attrs
}
