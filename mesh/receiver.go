package mesh

import (
	"context"

	"code.hybscloud.com/mesh/port"
)

// Receiver is the receive half of a unidirectional channel of T. Like
// Sender, its wire form is a single resource reference (spec.md §4.5, §7).
type Receiver[T any] struct {
	ch Channel[Empty, T]
}

// TryRecv returns the next queued value without blocking.
func (r Receiver[T]) TryRecv() (T, error) { return r.ch.TryRecv() }

// Recv blocks until a value arrives, the sender closes, or ctx is done.
func (r Receiver[T]) Recv(ctx context.Context) (T, error) { return r.ch.Recv(ctx) }

// IsPeerClosed reports whether the paired Sender has already been dropped.
func (r Receiver[T]) IsPeerClosed() bool { return r.ch.IsPeerClosed() }

// IsQueueDrained reports whether the sender is closed and every value it
// sent has already been received.
func (r Receiver[T]) IsQueueDrained() bool { return r.ch.IsQueueDrained() }

// Close drops this end, discarding anything still queued.
func (r Receiver[T]) Close() error { return r.ch.Close() }

// MeshPortOut implements codec.PortSource.
func (r Receiver[T]) MeshPortOut() port.Port { return r.ch.Port() }

// MeshPortIn implements codec.PortSink.
func (r *Receiver[T]) MeshPortIn(p port.Port) { *r = Receiver[T]{ch: Channel[Empty, T]{p: p}} }

// BridgeReceivers splices two receivers of the same element type so that
// self keeps receiving everything queued toward other, preserving order
// (see Bridge). Both receivers are consumed.
func BridgeReceivers[T any](self, other Receiver[T]) error {
	return Bridge(self.ch, other.ch)
}
