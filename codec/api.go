// Package codec implements the resource-aware, protobuf-superset message
// encoding used to move values across a port.Port: the field/message
// encoding table (spec component C2), the in-place decode slot, and the
// type-compatibility lattice (component C4) that lets a channel's declared
// element type be swapped for a wire-compatible one.
//
// Struct types participate by tagging their exported fields with a field
// number, the same way protobuf-generated Go code does:
//
//	type Greeting struct {
//	    Name  string `mesh:"1"`
//	    Count uint32 `mesh:"2"`
//	}
//
// There is no code generation step: the encoder and decoder walk a struct's
// tags through reflection. Channel endpoint types (package mesh) skip the
// struct machinery entirely by implementing PortSource/PortSink, since their
// whole wire form is a single resource reference rather than a field set.
package codec

import (
	"reflect"

	"code.hybscloud.com/mesh/port"
	"code.hybscloud.com/mesh/resource"
)

// Encode serializes v into a port.Message: bytes plus any resources (ports,
// OS handles) referenced from those bytes, in encounter order.
//
// A struct encodes as a flat field set. Anything else — a scalar, a slice, a
// map, or a channel endpoint — encodes as if it were field 1 of an implicit
// one-field wrapper message, the same convention spec.md §4.6 describes for
// why Sender/Receiver are "thin wrappers over Channel[(T,), ()]": Go has no
// tuple types, so the wrapper is folded directly into the top-level codec
// instead of being a separate generic type.
func Encode[T any](v T) (port.Message, error) {
	var buf []byte
	var rb resource.Builder
	mw := NewMessageWriter(&buf, &rb)
	if err := writeTop(reflect.ValueOf(v), mw); err != nil {
		return port.Message{}, err
	}
	return port.Message{Data: buf, Resources: rb.Resources()}, nil
}

// SizeOf reports the encoded length of v's byte payload, computed by
// actually encoding it. See DESIGN.md for why this module does not carry a
// separate size-estimation pass.
func SizeOf[T any](v T) int {
	msg, err := Encode(v)
	if err != nil {
		return 0
	}
	return len(msg.Data)
}

// Decode deserializes msg into a fresh T. Every resource referenced by msg
// must be consumed during decode or it is closed once decoding finishes,
// successfully or not (spec.md testable property 5).
func Decode[T any](msg port.Message) (T, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.New(rt).Elem()
	table := resource.NewTable(msg.Resources)
	mr := NewMessageReader(msg.Data, table)
	err := readTop(rv, mr)
	table.CloseRemaining()
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

// Merge decodes msg onto an existing dst instead of a fresh zero value:
// scalar and resource fields present in msg overwrite dst's, repeated fields
// accumulate, and fields absent from msg are left untouched. This backs the
// "apply an update" half of spec.md's merge-semantics note in §4.3.
func Merge[T any](dst T, msg port.Message) (T, error) {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	rv := reflect.New(rt).Elem()
	rv.Set(reflect.ValueOf(dst))
	table := resource.NewTable(msg.Resources)
	mr := NewMessageReader(msg.Data, table)
	err := readTop(rv, mr)
	table.CloseRemaining()
	if err != nil {
		var zero T
		return zero, err
	}
	return rv.Interface().(T), nil
}

func writeTop(rv reflect.Value, mw *MessageWriter) error {
	if ps, ok := asPortSource(rv); ok {
		mw.Field(1).Resource(port.AsResource(ps.MeshPortOut()))
		return nil
	}
	if rv.Kind() == reflect.Struct {
		return writeStruct(rv, mw)
	}
	return writeFieldValue(rv, 1, mw)
}

func readTop(dst reflect.Value, mr *MessageReader) error {
	if dst.CanAddr() {
		if ps, ok := dst.Addr().Interface().(PortSink); ok {
			fd, ok2, err := mr.Next()
			if err != nil {
				return err
			}
			if !ok2 {
				return ErrMissingRequiredField
			}
			r, err := fd.Resource()
			if err != nil {
				return err
			}
			p, ok3 := r.(port.Port)
			if !ok3 {
				return ErrNotAResource
			}
			ps.MeshPortIn(p)
			return nil
		}
	}
	if dst.Kind() == reflect.Struct {
		return readStruct(dst, mr)
	}
	fd, ok, err := mr.Next()
	if err != nil {
		return err
	}
	if !ok {
		return nil // absent: Go zero value is the default, proto3-style
	}
	return readFieldValue(dst, fd)
}
