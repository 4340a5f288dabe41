package xmem

import "go.uber.org/atomic"

// RouteLoadingCounter counts navigations that are still resolving.
// The zero value is ready to use.
type RouteLoadingCounter struct {
	count atomic.Int64
}

// Start records a navigation that began resolving.
func (r *RouteLoadingCounter) Start() {
	r.count.Inc()
}

// Stop records a navigation that finished resolving. The count never drops
// below zero.
func (r *RouteLoadingCounter) Stop() {
	for {
		n := r.count.Load()
		if n <= 0 || r.count.CompareAndSwap(n, n-1) {
			return
		}
	}
}

// Reset clears the count.
func (r *RouteLoadingCounter) Reset() {
	r.count.Store(0)
}

// Count returns the number of navigations in flight.
func (r *RouteLoadingCounter) Count() int {
	return int(r.count.Load())
}

// Loading reports whether any navigation is in flight.
func (r *RouteLoadingCounter) Loading() bool {
	return r.count.Load() > 0
}
