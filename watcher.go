package xmem

import "context"

// Watcher observes a timing source and emits raw bytes on a channel.
// Implementations must emit the current value as soon as Watch is called so
// the initial timing can be loaded.
type Watcher interface {
	// Watch begins observing the source. The returned channel is closed when
	// ctx is canceled or the source can no longer be read.
	Watch(ctx context.Context) (<-chan []byte, error)
}
