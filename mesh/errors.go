package mesh

import (
	"errors"

	"code.hybscloud.com/iox"

	"code.hybscloud.com/mesh/port"
)

// ErrWouldBlock is returned by TryRecv when no message is queued yet but the
// peer might still send one. It is iox's own non-blocking sentinel — the
// same one the transport layer uses for "try again" — reused here as the Go
// analog of a pending poll rather than inventing a second would-block error.
var ErrWouldBlock = iox.ErrWouldBlock

// ErrPeerClosed is returned once the peer has gone away and every message it
// sent before closing has been delivered.
var ErrPeerClosed = port.ErrPeerClosed

// ErrCannotBridge is returned by Bridge when either endpoint is not backed
// by a splicable local port — bridging across a real network transport has
// no defined behavior in this module (see DESIGN.md).
var ErrCannotBridge = errors.New("mesh: endpoints cannot be bridged")

// ErrIncompatibleTypes is returned by ChangeTypes when the requested element
// types are not wire-compatible with the channel's current ones.
var ErrIncompatibleTypes = errors.New("mesh: incompatible channel element types")
