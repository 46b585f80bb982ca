// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/mesh/port"
)

// StreamPort adapts a net.Conn into a port.Port by running the framer above
// over it in BinaryStream mode: each port.Message becomes one framed
// message on the wire.
//
// It carries byte payloads only. Send returns an error for a port.Message
// with Resources, and Recv always returns them empty — shipping a resource across a
// real socket needs an out-of-band fd-passing channel (SCM_RIGHTS) this
// module does not implement, so a caller that needs resource transport must
// use a transport that supports it (see DESIGN.md for why that is out of
// scope here).
type StreamPort struct {
	conn net.Conn
	r    io.Reader
	w    io.Writer

	mu           sync.Mutex
	queue        [][]byte
	writerClosed bool
	wake         chan struct{}

	closeOnce sync.Once
}

// NewStreamPort wraps conn as a port.Port and starts the background pump
// that turns framed reads into queued messages.
func NewStreamPort(conn net.Conn, opts ...Option) *StreamPort {
	blockOpts := append(append([]Option(nil), opts...), WithBlock(), WithProtocol(BinaryStream))
	nonblockOpts := append(append([]Option(nil), opts...), WithNonblock(), WithProtocol(BinaryStream))
	p := &StreamPort{
		conn: conn,
		r:    NewReader(conn, blockOpts...),
		w:    NewWriter(conn, nonblockOpts...),
		wake: make(chan struct{}),
	}
	go p.pump()
	return p
}

func (p *StreamPort) pump() {
	buf := make([]byte, 64*1024)
	for {
		n, err := p.r.Read(buf)
		if n > 0 {
			msg := append([]byte(nil), buf[:n]...)
			p.mu.Lock()
			p.queue = append(p.queue, msg)
			p.notifyLocked()
			p.mu.Unlock()
		}
		if err != nil {
			p.mu.Lock()
			p.writerClosed = true
			p.notifyLocked()
			p.mu.Unlock()
			return
		}
	}
}

func (p *StreamPort) notifyLocked() {
	close(p.wake)
	p.wake = make(chan struct{})
}

// Send writes msg.Data as one framed message. msg.Resources must be empty.
func (p *StreamPort) Send(msg port.Message) error {
	if len(msg.Resources) != 0 {
		return errors.New("transport: StreamPort cannot carry resources")
	}
	_, err := p.w.Write(msg.Data)
	if errors.Is(err, iox.ErrWouldBlock) {
		return iox.ErrWouldBlock
	}
	return err
}

func (p *StreamPort) TryRecv() (port.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) > 0 {
		data := p.queue[0]
		p.queue = p.queue[1:]
		return port.Message{Data: data}, nil
	}
	if p.writerClosed {
		return port.Message{}, port.ErrPeerClosed
	}
	return port.Message{}, iox.ErrWouldBlock
}

func (p *StreamPort) Recv(ctx context.Context) (port.Message, error) {
	for {
		msg, err := p.TryRecv()
		if err == nil || errors.Is(err, port.ErrPeerClosed) {
			return msg, err
		}
		p.mu.Lock()
		wake := p.wake
		p.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			return port.Message{}, ctx.Err()
		}
	}
}

func (p *StreamPort) IsPeerClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writerClosed
}

func (p *StreamPort) IsQueueDrained() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.writerClosed && len(p.queue) == 0
}

func (p *StreamPort) Close() error {
	var err error
	p.closeOnce.Do(func() { err = p.conn.Close() })
	return err
}
