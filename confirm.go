package xmem

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/zoobzio/capitan"
)

// ErrConfirmSuperseded is returned by Ask when a newer prompt replaces it.
var ErrConfirmSuperseded = errors.New("confirmation superseded")

// ConfirmKind styles the confirm action.
type ConfirmKind string

// Confirm kinds.
const (
	ConfirmDanger  ConfirmKind = "danger"
	ConfirmWarning ConfirmKind = "warning"
	ConfirmInfo    ConfirmKind = "info"
)

// ConfirmOptions describes a prompt. Empty fields take the Confirmer's
// localized defaults, and Kind defaults to ConfirmDanger.
type ConfirmOptions struct {
	Title       string
	Message     string
	ConfirmText string
	CancelText  string
	Kind        ConfirmKind
}

func (o ConfirmOptions) withDefaults(l *i18n.Localizer) ConfirmOptions {
	if o.Title == "" {
		o.Title = localize(l, msgConfirmTitle)
	}
	if o.ConfirmText == "" {
		o.ConfirmText = localize(l, msgConfirmAction)
	}
	if o.CancelText == "" {
		o.CancelText = localize(l, msgCancelAction)
	}
	if o.Kind == "" {
		o.Kind = ConfirmDanger
	}
	return o
}

type prompt struct {
	opts   ConfirmOptions
	result chan bool
}

// Confirmer shows at most one confirmation prompt at a time.
type Confirmer struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer

	mu      sync.Mutex
	current *prompt
}

// NewConfirmer creates a Confirmer with English default labels.
func NewConfirmer() *Confirmer {
	bundle := NewMessageBundle()
	return &Confirmer{
		bundle:    bundle,
		localizer: i18n.NewLocalizer(bundle, "en"),
	}
}

// Bundle replaces the message bundle used for default labels.
func (c *Confirmer) Bundle(bundle *i18n.Bundle) *Confirmer {
	c.bundle = bundle
	c.localizer = i18n.NewLocalizer(bundle, "en")
	return c
}

// Language selects the default label language, e.g. "zh-CN". Languages the
// bundle lacks fall back to English.
func (c *Confirmer) Language(langs ...string) *Confirmer {
	c.localizer = i18n.NewLocalizer(c.bundle, langs...)
	return c
}

// Ask shows a prompt and blocks until it is answered, ctx ends, or another
// Ask replaces it.
func (c *Confirmer) Ask(ctx context.Context, opts ConfirmOptions) (bool, error) {
	p := &prompt{opts: opts.withDefaults(c.localizer), result: make(chan bool, 1)}

	c.mu.Lock()
	if old := c.current; old != nil {
		close(old.result)
	}
	c.current = p
	c.mu.Unlock()

	capitan.Emit(ctx, ConfirmRequested,
		KeyPromptKind.Field(string(p.opts.Kind)),
	)

	select {
	case ok, open := <-p.result:
		if !open {
			return false, ErrConfirmSuperseded
		}
		capitan.Emit(ctx, ConfirmResolved,
			KeyConfirmed.Field(strconv.FormatBool(ok)),
		)
		return ok, nil
	case <-ctx.Done():
		c.mu.Lock()
		if c.current == p {
			c.current = nil
		}
		c.mu.Unlock()
		return false, ctx.Err()
	}
}

// Confirm answers the visible prompt with true.
func (c *Confirmer) Confirm() bool {
	return c.resolve(true)
}

// Cancel answers the visible prompt with false.
func (c *Confirmer) Cancel() bool {
	return c.resolve(false)
}

// Current returns the visible prompt's options.
func (c *Confirmer) Current() (ConfirmOptions, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ConfirmOptions{}, false
	}
	return c.current.opts, true
}

func (c *Confirmer) resolve(ok bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return false
	}
	c.current.result <- ok
	c.current = nil
	return true
}
