package xmem

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// DefaultToastDuration is how long the convenience helpers keep a toast.
const DefaultToastDuration = 3 * time.Second

// ToastKind is the severity of a toast.
type ToastKind string

// Toast kinds.
const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// Toast is a transient notification.
type Toast struct {
	ID       string
	Message  string
	Kind     ToastKind
	Duration time.Duration
}

// Toaster holds the visible toasts, oldest first. Toasts with a positive
// duration remove themselves when it elapses.
type Toaster struct {
	clock clockz.Clock

	mu     sync.Mutex
	toasts []Toast
	timers map[string]chan struct{}
}

// NewToaster creates an empty Toaster.
func NewToaster() *Toaster {
	return &Toaster{
		clock:  clockz.RealClock,
		timers: make(map[string]chan struct{}),
	}
}

// Clock sets a custom clock for auto-dismiss timers.
func (t *Toaster) Clock(clock clockz.Clock) *Toaster {
	t.clock = clock
	return t
}

// Show adds a toast and returns its id. A zero or negative duration keeps
// the toast until it is removed.
func (t *Toaster) Show(message string, kind ToastKind, d time.Duration) string {
	id := "toast-" + uuid.NewString()
	if d < 0 {
		d = 0
	}

	t.mu.Lock()
	t.toasts = append(t.toasts, Toast{ID: id, Message: message, Kind: kind, Duration: d})
	if d > 0 {
		stop := make(chan struct{})
		t.timers[id] = stop
		timer := t.clock.NewTimer(d)
		go t.expire(id, timer, stop)
	}
	t.mu.Unlock()

	capitan.Emit(context.Background(), ToastShown,
		KeyToastID.Field(id),
		KeyToastKind.Field(string(kind)),
	)
	return id
}

// Success shows a success toast for DefaultToastDuration.
func (t *Toaster) Success(message string) string {
	return t.Show(message, ToastSuccess, DefaultToastDuration)
}

// Error shows an error toast for DefaultToastDuration.
func (t *Toaster) Error(message string) string {
	return t.Show(message, ToastError, DefaultToastDuration)
}

// Warning shows a warning toast for DefaultToastDuration.
func (t *Toaster) Warning(message string) string {
	return t.Show(message, ToastWarning, DefaultToastDuration)
}

// Info shows an info toast for DefaultToastDuration.
func (t *Toaster) Info(message string) string {
	return t.Show(message, ToastInfo, DefaultToastDuration)
}

// Remove dismisses a toast. It reports whether the toast was visible.
func (t *Toaster) Remove(id string) bool {
	t.mu.Lock()
	ok := t.removeLocked(id)
	t.mu.Unlock()

	if ok {
		capitan.Emit(context.Background(), ToastDismissed,
			KeyToastID.Field(id),
		)
	}
	return ok
}

// Clear dismisses every toast.
func (t *Toaster) Clear() {
	t.mu.Lock()
	ids := make([]string, 0, len(t.toasts))
	for _, toast := range t.toasts {
		ids = append(ids, toast.ID)
	}
	for _, id := range ids {
		t.removeLocked(id)
	}
	t.mu.Unlock()

	for _, id := range ids {
		capitan.Emit(context.Background(), ToastDismissed,
			KeyToastID.Field(id),
		)
	}
}

// List returns the visible toasts, oldest first.
func (t *Toaster) List() []Toast {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Toast, len(t.toasts))
	copy(out, t.toasts)
	return out
}

func (t *Toaster) removeLocked(id string) bool {
	if stop, ok := t.timers[id]; ok {
		close(stop)
		delete(t.timers, id)
	}
	for i, toast := range t.toasts {
		if toast.ID == id {
			t.toasts = append(t.toasts[:i], t.toasts[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Toaster) expire(id string, timer clockz.Timer, stop <-chan struct{}) {
	select {
	case <-timer.C():
		t.Remove(id)
	case <-stop:
		timer.Stop()
	}
}
