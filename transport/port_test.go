// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"code.hybscloud.com/mesh/port"
	"code.hybscloud.com/mesh/resource"
	"code.hybscloud.com/mesh/transport"
)

func TestStreamPortSendRecv(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	a := transport.NewStreamPort(c1)
	b := transport.NewStreamPort(c2)
	defer a.Close()
	defer b.Close()

	if err := a.Send(port.Message{Data: []byte("ping")}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := b.Recv(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(msg.Data) != "ping" {
		t.Fatalf("got %q", msg.Data)
	}
}

func TestStreamPortRejectsResources(t *testing.T) {
	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()
	a := transport.NewStreamPort(c1)
	defer a.Close()

	err := a.Send(port.Message{Data: []byte("x"), Resources: make([]resource.Resource, 1)})
	if err == nil {
		t.Fatal("expected an error sending a message with resources")
	}
}

func TestStreamPortSeesPeerClosed(t *testing.T) {
	c1, c2 := net.Pipe()
	a := transport.NewStreamPort(c1)
	b := transport.NewStreamPort(c2)
	defer a.Close()
	defer b.Close()

	if err := c1.Close(); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := b.Recv(ctx); !errors.Is(err, port.ErrPeerClosed) {
		t.Fatalf("expected ErrPeerClosed, got %v", err)
	}
}
