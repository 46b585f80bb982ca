// Package resource implements the out-of-band resource table (spec
// component C3): the ordered list of external, linearly-owned values
// (operating-system handles, sockets, and channel endpoints themselves) that
// travel alongside a message's encoded bytes rather than inline in them.
package resource

import (
	"errors"
	"fmt"
	"net"

	"github.com/higebu/netfd"
)

// A Resource is anything that can be handed off across a process boundary
// out-of-band from a message's byte payload. The zero value of the interface
// (nil) is never a valid resource; Take returns an error instead.
//
// Concrete resource kinds live in the packages that own them: a mesh Port
// implements Resource directly (see package port), and OS handles are
// wrapped with Handle below.
type Resource interface {
	// Close releases the resource if it was never consumed by a decoder.
	Close() error
}

// Handle wraps a platform OS handle (a file descriptor on Unix) as a
// Resource, for messages that transfer sockets, events, or open files rather
// than channel endpoints.
type Handle struct {
	FD   uintptr
	Name string
}

func (h Handle) Close() error { return nil }

func (h Handle) String() string {
	if h.Name != "" {
		return fmt.Sprintf("handle(%s,fd=%d)", h.Name, h.FD)
	}
	return fmt.Sprintf("handle(fd=%d)", h.FD)
}

// FromConn extracts the raw OS file descriptor backing conn and returns it as
// a transferable Handle. This is how a socket becomes a mesh resource: the
// encoder lists the Handle in the outgoing resource table and writes its
// index into the wire ResourceType field, instead of serializing the
// connection's bytes.
func FromConn(conn net.Conn) (Handle, error) {
	fd, err := netfd.GetFD(conn)
	if err != nil {
		return Handle{}, fmt.Errorf("resource: extract fd from conn: %w", err)
	}
	return Handle{FD: fd, Name: conn.LocalAddr().String()}, nil
}

// ErrMissing is returned by Table.Take when the slot at the referenced index
// is empty: never populated, or already taken (DecodeError equivalent:
// MissingResource).
var ErrMissing = errors.New("resource: missing resource")

// ErrInvalidRange is returned by Table.Take when the index is out of bounds
// (DecodeError equivalent: InvalidResourceRange).
var ErrInvalidRange = errors.New("resource: invalid resource range")

// Table is the decode-side view of a message's resource list: a sequence of
// optional resources, each of which may be taken (consumed) at most once.
// Encoders build the mirror-image list by appending as they encounter
// resource-bearing fields; see Builder.
type Table struct {
	items []Resource
}

// NewTable wraps an incoming slice of resources (already ordered by the
// transport) as a decode-side Table.
func NewTable(items []Resource) *Table {
	return &Table{items: items}
}

// Len reports the number of resource slots, including already-taken ones.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.items)
}

// Take consumes and returns the resource at index, or an error if the index
// is out of range or the slot was already taken. Each index may be taken at
// most once; this is what makes "every resource is consumed exactly once"
// (spec.md testable property 5) checkable.
func (t *Table) Take(index int) (Resource, error) {
	if t == nil || index < 0 || index >= len(t.items) {
		return nil, ErrInvalidRange
	}
	r := t.items[index]
	if r == nil {
		return nil, ErrMissing
	}
	t.items[index] = nil
	return r, nil
}

// CloseRemaining closes every resource that was never taken. Callers use
// this when a decode fails partway through, so that resources after the
// failure point are not silently leaked.
func (t *Table) CloseRemaining() {
	if t == nil {
		return
	}
	for i, r := range t.items {
		if r != nil {
			_ = r.Close()
			t.items[i] = nil
		}
	}
}

// Builder is the encode-side mirror of Table: resources are appended in
// encounter order and the returned index is what gets written into the wire
// ResourceType field.
type Builder struct {
	items []Resource
}

// Add appends r to the resource list and returns its index.
func (b *Builder) Add(r Resource) int {
	b.items = append(b.items, r)
	return len(b.items) - 1
}

// Resources returns the accumulated resource list in encounter order.
func (b *Builder) Resources() []Resource {
	if b == nil {
		return nil
	}
	return b.items
}

// NoResources is a marker type for encodings that carry no resources. Package
// codec does not check for it: Encode and Decode run the same resource
// bookkeeping for every type, marked or not.
type NoResources struct{}
