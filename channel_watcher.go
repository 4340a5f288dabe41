package xmem

import "context"

// ChannelWatcher adapts an existing byte channel into a Watcher. It is the
// usual source in tests and for timing pushed by the host application.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher that relays values through its
// own goroutine and stops relaying when the watch context ends.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands back the source
// channel itself. Pair it with TimingReloader.SyncMode for deterministic tests.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch returns the channel of timing payloads.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	out := make(chan []byte)
	go w.relay(ctx, out)
	return out, nil
}

func (w *ChannelWatcher) relay(ctx context.Context, out chan<- []byte) {
	defer close(out)
	for {
		var (
			v  []byte
			ok bool
		)
		select {
		case <-ctx.Done():
			return
		case v, ok = <-w.ch:
			if !ok {
				return
			}
		}

		select {
		case out <- v:
		case <-ctx.Done():
			return
		}
	}
}
