// Package localport provides an in-process implementation of port.Port.
//
// It is the concrete transport mesh.NewChannel and friends use when both
// endpoints start out in the same address space, and it is deliberately
// built so that its observable behavior (FIFO delivery, peer-closed
// notification, bridging) is indistinguishable from a real cross-process
// Port — spec.md §1 requires exactly this: "a same-process fast path is
// allowed but must be observably indistinguishable from the cross-process
// path."
//
// The non-blocking/retry idiom mirrors the teacher package's (framer)
// handling of iox.ErrWouldBlock: TryRecv returns it when the queue is
// momentarily empty, and Recv loops on a wake channel instead of spinning.
package localport

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"code.hybscloud.com/iox"
	"github.com/google/uuid"

	"code.hybscloud.com/mesh/port"
)

// box is one direction of a pair: the mailbox one endpoint reads from and
// the other writes into.
type box struct {
	mu           sync.Mutex
	queue        []port.Message
	writerClosed bool // the endpoint that writes into this box has closed
	readerClosed bool // the endpoint that reads from this box has closed
	forward      *box // set by Bridge: future writes redirect here
	wake         chan struct{}
}

func newBox() *box {
	return &box{wake: make(chan struct{})}
}

func (b *box) notifyLocked() {
	close(b.wake)
	b.wake = make(chan struct{})
}

func resolve(b *box) *box {
	for {
		b.mu.Lock()
		fw := b.forward
		b.mu.Unlock()
		if fw == nil {
			return b
		}
		b = fw
	}
}

// Port is the local in-process Port implementation.
type Port struct {
	id    uuid.UUID
	write *box // where Send appends
	read  *box // where TryRecv/Recv pops from
	once  sync.Once
}

// NewPair returns two linked endpoints, as spec.md §3's `new_pair()`.
func NewPair() (*Port, *Port) {
	q1, q2 := newBox(), newBox()
	id := uuid.New()
	left := &Port{id: id, write: q2, read: q1}
	right := &Port{id: id, write: q1, read: q2}
	return left, right
}

// String identifies the port pair for debug logging only; it is never
// parsed and carries no protocol meaning.
func (p *Port) String() string { return fmt.Sprintf("localport(%s)", p.id) }

func (p *Port) Send(msg port.Message) error {
	target := resolve(p.write)
	target.mu.Lock()
	defer target.mu.Unlock()
	if target.readerClosed {
		// Silent drop: spec.md §4.5, send never fails visibly on a closed peer.
		return nil
	}
	target.queue = append(target.queue, msg)
	target.notifyLocked()
	return nil
}

func (p *Port) TryRecv() (port.Message, error) {
	src := resolve(p.read)
	src.mu.Lock()
	defer src.mu.Unlock()
	if len(src.queue) > 0 {
		msg := src.queue[0]
		src.queue = src.queue[1:]
		return msg, nil
	}
	if src.writerClosed {
		return port.Message{}, port.ErrPeerClosed
	}
	return port.Message{}, iox.ErrWouldBlock
}

func (p *Port) Recv(ctx context.Context) (port.Message, error) {
	for {
		msg, err := p.TryRecv()
		if err == nil || err == port.ErrPeerClosed {
			return msg, err
		}
		src := resolve(p.read)
		src.mu.Lock()
		wake := src.wake
		src.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return port.Message{}, ctx.Err()
		}
	}
}

func (p *Port) IsPeerClosed() bool {
	src := resolve(p.read)
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.writerClosed
}

func (p *Port) IsQueueDrained() bool {
	src := resolve(p.read)
	src.mu.Lock()
	defer src.mu.Unlock()
	return src.writerClosed && len(src.queue) == 0
}

func (p *Port) Close() error {
	p.once.Do(func() {
		w := resolve(p.write)
		w.mu.Lock()
		w.writerClosed = true
		w.notifyLocked()
		w.mu.Unlock()

		r := resolve(p.read)
		r.mu.Lock()
		r.readerClosed = true
		r.mu.Unlock()
	})
	return nil
}

// Bridge splices self and other together: self keeps receiving, and other's
// already-queued backlog is spliced in ahead of whatever self had not yet
// delivered, with future writes toward other redirected to self from then
// on — preserving the order in which each side's messages were queued
// (spec.md §3 "Bridge", §8 property 8).
//
// Both self and other are consumed by this call; using either afterward is a
// logic error, matching the move semantics of encoding a channel.
func Bridge(self, other *Port) {
	dst := resolve(self.read)
	src := resolve(other.read)
	if dst == src {
		return // already bridged to itself; nothing to splice.
	}
	// Lock in a stable order to avoid deadlock with a concurrent bridge.
	first, second := dst, src
	if boxAddr(dst) > boxAddr(src) {
		first, second = src, dst
	}
	first.mu.Lock()
	second.mu.Lock()

	dst.queue = append(append(make([]port.Message, 0, len(src.queue)+len(dst.queue)), src.queue...), dst.queue...)
	src.queue = nil
	if src.writerClosed {
		dst.writerClosed = true
	}
	src.forward = dst
	dst.notifyLocked()

	second.mu.Unlock()
	first.mu.Unlock()
}

func boxAddr(b *box) uintptr { return uintptr(unsafe.Pointer(b)) }
