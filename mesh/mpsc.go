package mesh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/mesh/codec"
	"code.hybscloud.com/mesh/localport"
	"code.hybscloud.com/mesh/port"
)

// mpscPollInterval bounds how long Recv can take to notice a value a newly
// added or remote-forwarded producer enqueued, since the hub has no single
// wake channel to select on across an arbitrary, changing set of sources.
const mpscPollInterval = 2 * time.Millisecond

// mpscHub fans multiple source ports into the single logical stream an
// MpscReceiver exposes. It polls sources in rotation and drops one out of
// rotation (a swap-remove, since order among producers is never meaningful)
// the moment it reports its peer closed, so a hub with many long-dead
// producers doesn't keep re-polling them.
type mpscHub[T any] struct {
	mu      sync.Mutex
	sources []port.Port
	next    int
}

func newMpscHub[T any](first port.Port) *mpscHub[T] {
	return &mpscHub[T]{sources: []port.Port{first}}
}

func (h *mpscHub[T]) addSource(p port.Port) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sources = append(h.sources, p)
}

// tryRecv polls every live source at most once, starting after the last one
// that yielded a value, and reports ErrWouldBlock only once the full
// rotation has come up empty.
func (h *mpscHub[T]) tryRecv() (port.Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sources) == 0 {
		return port.Message{}, port.ErrPeerClosed
	}
	for i := 0; i < len(h.sources); {
		idx := (h.next + i) % len(h.sources)
		msg, err := h.sources[idx].TryRecv()
		switch {
		case err == nil:
			h.next = idx + 1
			return msg, nil
		case errors.Is(err, port.ErrPeerClosed):
			last := len(h.sources) - 1
			h.sources[idx] = h.sources[last]
			h.sources = h.sources[:last]
			continue // re-examine the same index, now holding a different source
		case errors.Is(err, iox.ErrWouldBlock):
			i++
		default:
			return port.Message{}, err
		}
	}
	if len(h.sources) == 0 {
		return port.Message{}, port.ErrPeerClosed
	}
	return port.Message{}, iox.ErrWouldBlock
}

// mpscSenderInner is the shared state behind every local clone of one
// MpscSender. Only the refcount reaching zero actually closes the
// underlying port, so one lingering clone keeps the channel open for all.
type mpscSenderInner[T any] struct {
	refs int32
	p    port.Port
}

// MpscSender is one producer handle on a multi-producer, single-consumer
// channel (spec.md §7 "Mpsc"). Cloning locally is an O(1) refcount bump that
// shares the same underlying port; cloning by encoding it (sending it
// somewhere, possibly across a process boundary) mints a fresh port pair
// instead, whose traffic a background goroutine in this process relays
// through this sender's own port (see MeshPortOut).
type MpscSender[T any] struct {
	inner *mpscSenderInner[T]
}

// MpscReceiver is the single consumer side of an Mpsc channel.
type MpscReceiver[T any] struct {
	hub *mpscHub[T]
}

// NewMpsc returns a single-producer handle and the receiver; call Clone on
// the sender for additional local producers.
func NewMpsc[T any]() (MpscSender[T], MpscReceiver[T]) {
	a, b := localport.NewPair()
	return MpscSender[T]{inner: &mpscSenderInner[T]{refs: 1, p: a}}, MpscReceiver[T]{hub: newMpscHub[T](b)}
}

// Send encodes v and enqueues it toward the receiver.
func (s MpscSender[T]) Send(v T) error {
	return Channel[T, Empty]{p: s.inner.p}.Send(v)
}

// Clone returns another handle sharing this sender's underlying port. The
// channel stays open until every clone (and the original) is closed.
func (s MpscSender[T]) Clone() MpscSender[T] {
	atomic.AddInt32(&s.inner.refs, 1)
	return MpscSender[T]{inner: s.inner}
}

// IsPeerClosed reports whether the receiver has already been dropped.
func (s MpscSender[T]) IsPeerClosed() bool { return s.inner.p.IsPeerClosed() }

// Close drops this clone. The underlying port only closes once every clone
// has been closed.
func (s MpscSender[T]) Close() error {
	if atomic.AddInt32(&s.inner.refs, -1) <= 0 {
		return s.inner.p.Close()
	}
	return nil
}

// MeshPortOut implements codec.PortSource. Encoding an MpscSender always
// mints a brand new port pair rather than handing out the shared one
// directly — the remote decoder gets an independent producer, and a
// background pump relays whatever it sends back through this sender's own
// port, so the fan-in still funnels through the single hub the receiver was
// constructed with even when the new producer lives in another process.
func (s MpscSender[T]) MeshPortOut() port.Port {
	a, b := localport.NewPair()
	go pumpMpscSource[T](b, s.inner.p)
	return a
}

func pumpMpscSource[T any](src, dst port.Port) {
	ctx := context.Background()
	for {
		msg, err := src.Recv(ctx)
		if err != nil {
			return
		}
		if err := dst.Send(msg); err != nil {
			return
		}
	}
}

// MeshPortIn implements codec.PortSink.
func (s *MpscSender[T]) MeshPortIn(p port.Port) {
	*s = MpscSender[T]{inner: &mpscSenderInner[T]{refs: 1, p: p}}
}

// TryRecv returns the next queued value from any producer, without
// blocking.
func (r MpscReceiver[T]) TryRecv() (T, error) {
	msg, err := r.hub.tryRecv()
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeInto[T](msg)
}

// IsPeerClosed reports whether every producer port feeding this receiver
// has been closed.
func (r MpscReceiver[T]) IsPeerClosed() bool {
	r.hub.mu.Lock()
	defer r.hub.mu.Unlock()
	for _, p := range r.hub.sources {
		if !p.IsPeerClosed() {
			return false
		}
	}
	return true
}

// Recv blocks until any producer has a value ready, every producer has
// closed, or ctx is done.
func (r MpscReceiver[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := r.TryRecv()
		if err == nil || errors.Is(err, port.ErrPeerClosed) {
			return v, err
		}
		select {
		case <-time.After(mpscPollInterval):
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

func decodeInto[T any](msg port.Message) (T, error) {
	return codec.Decode[T](msg)
}
