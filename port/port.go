// Package port declares the abstract transport primitive (spec component
// C5) that the channel layer is built on. A Port is FIFO, reports
// peer-closed, and can itself be transferred as a resource inside another
// port's message — but how bytes actually cross a process boundary is
// entirely the transport's concern and out of scope for this module. See
// package localport for the in-process implementation used by channel
// construction and tests, and package transport for a real socket-backed
// framing layer.
package port

import (
	"context"
	"errors"

	"code.hybscloud.com/mesh/resource"
)

// Message is a serialized value ready to cross a Port: encoded bytes plus
// the out-of-band resources referenced from those bytes.
type Message struct {
	Data      []byte
	Resources []resource.Resource
}

// ErrPeerClosed is returned by Recv/TryRecv once the peer has gone away and
// every message it enqueued before closing has been delivered.
var ErrPeerClosed = errors.New("port: peer closed")

// A Port is a linearly-owned, single-consumer FIFO endpoint. Exactly one
// Channel owns a given Port at any moment (spec.md §3).
type Port interface {
	// Send enqueues msg for the peer. It does not block and does not report
	// whether the peer received it; per spec.md §4.5, send never suspends
	// and has no backpressure in the core.
	Send(msg Message) error

	// TryRecv returns the next queued message without blocking. It returns
	// iox.ErrWouldBlock if the queue is currently empty but the peer may
	// still send more, or ErrPeerClosed if the peer is gone and the queue is
	// drained.
	TryRecv() (Message, error)

	// Recv blocks (cooperatively, honoring ctx) until a message is
	// available, the peer closes, or ctx is done.
	Recv(ctx context.Context) (Message, error)

	// IsPeerClosed is a best-effort, non-blocking observation of whether the
	// peer endpoint has already been dropped.
	IsPeerClosed() bool

	// IsQueueDrained reports whether the peer is closed and there are no
	// more queued messages to deliver — the stream-termination signal used
	// by Receiver's FusedStream-equivalent behavior.
	IsQueueDrained() bool

	// Close drops this end of the port, notifying the peer as peer-closed
	// once any messages already queued toward it have been delivered.
	Close() error
}

// Resource lets a Port be embedded as a value inside a message: encoding a
// Port consumes it (spec.md §3 "A port sent inside a message is consumed on
// the sender side at serialization time").
func AsResource(p Port) resource.Resource { return portResource{p} }

type portResource struct{ Port }
