// Package mesh implements the typed, migratable inter-process channel
// library: unidirectional, one-shot, and multi-producer/single-consumer
// channels whose endpoints can be sent as ordinary values — including across
// a process boundary — because a channel endpoint's entire wire form is a
// reference into the carrying message's resource table.
//
// Construction always starts from NewChannel, NewOneshot, or NewMpsc, each
// of which returns a pair of endpoints backed by an in-process port
// (package localport) by default. An endpoint only becomes "real"
// cross-process once it is encoded into a message sent over a non-local
// port.Port, such as the one package transport provides.
package mesh

import (
	"context"

	"code.hybscloud.com/mesh/codec"
	"code.hybscloud.com/mesh/localport"
	"code.hybscloud.com/mesh/port"
)

// Empty is the element type of the direction a one-way channel never uses:
// Sender[T] is built on Channel[T, Empty] and Receiver[T] on
// Channel[Empty, T]. It encodes as a message with no fields.
type Empty struct{}

// Channel is a bidirectional, typed view over a port.Port: S is the type of
// value this end sends, R the type it receives. Sender and Receiver are thin
// specializations of Channel with one side fixed to Empty (spec.md §4.6).
type Channel[S, R any] struct {
	p port.Port
}

// NewChannelPair returns two ends of a fresh in-process bidirectional
// channel, wired so that what one side sends, the other receives.
func NewChannelPair[S, R any]() (Channel[S, R], Channel[R, S]) {
	a, b := localport.NewPair()
	return Channel[S, R]{p: a}, Channel[R, S]{p: b}
}

// Port exposes the underlying transport endpoint, for code (Bridge, the
// resource machinery) that needs to work below the typed layer.
func (c Channel[S, R]) Port() port.Port { return c.p }

// Send encodes v and enqueues it for the peer. It never blocks and never
// reports whether the peer is still there (spec.md §4.5): a send to a
// closed peer is silently dropped.
func (c Channel[S, R]) Send(v S) error {
	msg, err := codec.Encode(v)
	if err != nil {
		return err
	}
	return c.p.Send(msg)
}

// SendAndClose sends v and then closes this end, the common pattern for a
// single-response RPC-style channel.
func (c Channel[S, R]) SendAndClose(v S) error {
	if err := c.Send(v); err != nil {
		return err
	}
	return c.Close()
}

// TryRecv returns the next message without blocking, ErrWouldBlock if none
// is queued yet, or ErrPeerClosed once the peer is gone and drained.
func (c Channel[S, R]) TryRecv() (R, error) {
	msg, err := c.p.TryRecv()
	if err != nil {
		var zero R
		return zero, err
	}
	return codec.Decode[R](msg)
}

// Recv blocks until a message arrives, the peer closes, or ctx is done.
func (c Channel[S, R]) Recv(ctx context.Context) (R, error) {
	msg, err := c.p.Recv(ctx)
	if err != nil {
		var zero R
		return zero, err
	}
	return codec.Decode[R](msg)
}

// IsPeerClosed is a best-effort, non-blocking check of whether the peer
// endpoint has already been dropped.
func (c Channel[S, R]) IsPeerClosed() bool { return c.p.IsPeerClosed() }

// IsQueueDrained reports whether the peer is closed and nothing further is
// queued to receive — the point at which Recv will return ErrPeerClosed.
func (c Channel[S, R]) IsQueueDrained() bool { return c.p.IsQueueDrained() }

// Close drops this end. Messages already queued toward the peer are still
// delivered before it observes peer-closed.
func (c Channel[S, R]) Close() error { return c.p.Close() }

// Bridge splices two same-shaped channel endpoints so that whichever one
// survives carries forward everything queued toward the other, in order
// (spec.md §3 "Bridge", §8 property 8). Both self and other are consumed;
// using either again afterward is a logic error.
//
// Bridging only works between two in-process endpoints. A real transport
// would need the bridge itself transported, which this module does not
// implement (see DESIGN.md).
func Bridge[S, R any](self, other Channel[S, R]) error {
	sp, ok1 := self.p.(*localport.Port)
	op, ok2 := other.p.(*localport.Port)
	if !ok1 || !ok2 {
		return ErrCannotBridge
	}
	localport.Bridge(sp, op)
	return nil
}

// ChangeTypes reinterprets c's element types, succeeding only when the new
// types are wire-compatible with the old ones (spec.md §6): a send side may
// only narrow (everything it now writes must still be decodable by a peer
// expecting the old type) and a receive side may only widen (everything the
// unchanged peer still sends must remain decodable as the new, wider type).
func ChangeTypes[S, R, S2, R2 any](c Channel[S, R]) (Channel[S2, R2], error) {
	if !codec.Upcast[S2, S]() {
		return Channel[S2, R2]{}, ErrIncompatibleTypes
	}
	if !codec.Upcast[R, R2]() {
		return Channel[S2, R2]{}, ErrIncompatibleTypes
	}
	return Channel[S2, R2]{p: c.p}, nil
}
