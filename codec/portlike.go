package codec

import "code.hybscloud.com/mesh/port"

// PortSource is implemented by value types whose entire wire representation
// is a reference to an underlying port.Port — concretely, the channel
// endpoint types in package mesh (Sender, Receiver, OneshotSender, ...).
// Encoding such a value does not recurse into the struct field machinery at
// all: it hands the port straight to the resource table (spec.md §4.5, "A
// channel is itself an encodable type: its wire form is a single resource
// reference to the underlying port").
//
// The method consumes the receiver's port; calling it twice on the same
// logical endpoint (by encoding it twice) is a caller bug, mirrored exactly
// from the linear-ownership rule already enforced when a Port is used
// directly as a resource.
type PortSource interface {
	MeshPortOut() port.Port
}

// PortSink is the decode-side counterpart of PortSource, implemented with a
// pointer receiver so the reflection engine can construct a zero-value
// endpoint and then fill in its port once the resource has been taken from
// the table.
type PortSink interface {
	MeshPortIn(p port.Port)
}
