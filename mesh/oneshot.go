package mesh

import (
	"context"

	"code.hybscloud.com/mesh/port"
)

// OneshotSender is a Sender restricted to a single value: Send closes the
// channel immediately afterward, matching the Rust original's move-only
// single-use send (spec.md §7 "oneshot"). Go cannot enforce "used at most
// once" at compile time the way a linear type system would; calling Send
// twice is a caller bug. The port does not refuse a send after its own
// Close, so the second value is still queued toward the receiver.
type OneshotSender[T any] struct {
	ch Channel[T, Empty]
}

// OneshotReceiver is the receive half of a one-shot channel.
type OneshotReceiver[T any] struct {
	ch Channel[Empty, T]
}

// NewOneshot returns a one-shot channel pair.
func NewOneshot[T any]() (OneshotSender[T], OneshotReceiver[T]) {
	a, b := NewChannelPair[T, Empty]()
	return OneshotSender[T]{ch: a}, OneshotReceiver[T]{ch: Channel[Empty, T]{p: b.Port()}}
}

// Send transmits v and closes the sender.
func (s OneshotSender[T]) Send(v T) error { return s.ch.SendAndClose(v) }

// IsPeerClosed reports whether the receiver has already been dropped.
func (s OneshotSender[T]) IsPeerClosed() bool { return s.ch.IsPeerClosed() }

// Close drops the sender without ever sending a value.
func (s OneshotSender[T]) Close() error { return s.ch.Close() }

func (s OneshotSender[T]) MeshPortOut() port.Port { return s.ch.Port() }
func (s *OneshotSender[T]) MeshPortIn(p port.Port) {
	*s = OneshotSender[T]{ch: Channel[T, Empty]{p: p}}
}

// Recv blocks for the single value, or returns ErrPeerClosed if the sender
// was dropped without sending one.
func (r OneshotReceiver[T]) Recv(ctx context.Context) (T, error) { return r.ch.Recv(ctx) }

// TryRecv is the non-blocking form of Recv.
func (r OneshotReceiver[T]) TryRecv() (T, error) { return r.ch.TryRecv() }

// Close drops the receiver, discarding the value if one was sent but never
// read.
func (r OneshotReceiver[T]) Close() error { return r.ch.Close() }

func (r OneshotReceiver[T]) MeshPortOut() port.Port { return r.ch.Port() }
func (r *OneshotReceiver[T]) MeshPortIn(p port.Port) {
	*r = OneshotReceiver[T]{ch: Channel[Empty, T]{p: p}}
}
