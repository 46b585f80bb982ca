package mesh

import "code.hybscloud.com/mesh/port"

// Sender is the send half of a unidirectional channel of T. Its entire wire
// representation is a reference to the underlying port: encoding a Sender
// moves it, the way encoding any other resource does (spec.md §4.5, §7).
type Sender[T any] struct {
	ch Channel[T, Empty]
}

// NewChannel returns the two ends of a fresh unidirectional channel of T
// (spec.md §7 "new_pair").
func NewChannel[T any]() (Sender[T], Receiver[T]) {
	a, b := NewChannelPair[T, Empty]()
	return Sender[T]{ch: a}, Receiver[T]{ch: Channel[Empty, T]{p: b.Port()}}
}

// Send enqueues v for the receiver. See Channel.Send for delivery semantics.
func (s Sender[T]) Send(v T) error { return s.ch.Send(v) }

// IsPeerClosed reports whether the paired Receiver has already been dropped.
func (s Sender[T]) IsPeerClosed() bool { return s.ch.IsPeerClosed() }

// Close drops this end without sending anything further.
func (s Sender[T]) Close() error { return s.ch.Close() }

// MeshPortOut implements codec.PortSource: a Sender's wire form is a single
// resource reference to its port.
func (s Sender[T]) MeshPortOut() port.Port { return s.ch.Port() }

// MeshPortIn implements codec.PortSink, reconstructing a Sender from a
// decoded port.
func (s *Sender[T]) MeshPortIn(p port.Port) { *s = Sender[T]{ch: Channel[T, Empty]{p: p}} }
