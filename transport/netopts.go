// ©Hayabusa Cloud Co., Ltd. 2025. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"encoding/binary"

	"code.hybscloud.com/mesh/transport/internal/bo"
)

// Network option helpers and mapping.
//
// Single source of truth — transport → ByteOrder. Every kind here is a
// stream transport (boundary-preserving transports like UDP, SCTP, and
// WebSocket have no StreamPort caller and are not modeled):
//   - TCP            → BigEndian (network byte order)
//   - Unix (stream)  → BigEndian
//   - Local (stream) → native byte order (multi-arch friendly)

type netKind uint8

const (
	netTCP netKind = iota
	netUnixStream
	netLocalStream
)

func defaultsFor(kind netKind) binary.ByteOrder {
	switch kind {
	case netLocalStream:
		return bo.Native()
	default:
		return binary.BigEndian
	}
}

// WithReadTCP configures the reader side for TCP: BigEndian length prefix.
func WithReadTCP() Option {
	return func(o *Options) { o.ReadByteOrder = defaultsFor(netTCP) }
}

// WithWriteTCP configures the writer side for TCP: BigEndian length prefix.
func WithWriteTCP() Option {
	return func(o *Options) { o.WriteByteOrder = defaultsFor(netTCP) }
}

// WithReadUnix configures the reader side for Unix stream sockets: BigEndian.
func WithReadUnix() Option {
	return func(o *Options) { o.ReadByteOrder = defaultsFor(netUnixStream) }
}

// WithWriteUnix configures the writer side for Unix stream sockets: BigEndian.
func WithWriteUnix() Option {
	return func(o *Options) { o.WriteByteOrder = defaultsFor(netUnixStream) }
}

// WithReadLocal configures the reader side for local (stream) transports: native byte order.
func WithReadLocal() Option {
	return func(o *Options) { o.ReadByteOrder = defaultsFor(netLocalStream) }
}

// WithWriteLocal configures the writer side for local (stream) transports: native byte order.
func WithWriteLocal() Option {
	return func(o *Options) { o.WriteByteOrder = defaultsFor(netLocalStream) }
}
