package xmem

import (
	"sync"
	"time"
)

// ReloadFailure records one failed timing change.
type ReloadFailure struct {
	// Stage is where processing failed: "decode", "validate", or "apply".
	Stage string
	Err   error
	At    time.Time
}

// Error implements error.
func (f ReloadFailure) Error() string {
	return f.Stage + ": " + f.Err.Error()
}

// Unwrap returns the underlying cause.
func (f ReloadFailure) Unwrap() error {
	return f.Err
}

// failureRing keeps the most recent reload failures. A nil ring is disabled.
type failureRing struct {
	mu    sync.RWMutex
	buf   []ReloadFailure
	head  int
	count int
}

// newFailureRing returns a ring holding up to size failures, or nil when
// size is not positive.
func newFailureRing(size int) *failureRing {
	if size <= 0 {
		return nil
	}
	return &failureRing{buf: make([]ReloadFailure, size)}
}

func (r *failureRing) push(f ReloadFailure) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf[r.head] = f
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *failureRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	clear(r.buf)
	r.head = 0
	r.count = 0
}

// all returns the retained failures, oldest first.
func (r *failureRing) all() []ReloadFailure {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.count == 0 {
		return nil
	}

	size := len(r.buf)
	out := make([]ReloadFailure, r.count)
	start := (r.head - r.count + size) % size
	for i := range out {
		out[i] = r.buf[(start+i)%size]
	}
	return out
}
