package codec

import (
	"code.hybscloud.com/mesh/internal/wire"
	"code.hybscloud.com/mesh/resource"
)

// MessageWriter accumulates the encoded bytes of one message (the top-level
// value being encoded, or a nested message reached through a Bytes field)
// together with the resource.Builder shared by the whole encode call.
//
// There is deliberately no separate size-then-write pass here (contrast
// spec.md §4's two-pass Sizer/Writer split): nested sub-messages are built
// into their own scratch buffer and spliced in with a length prefix once
// known, so a length can never disagree with the bytes that follow it. See
// DESIGN.md for why this trade (one extra allocation per nested message, in
// exchange for eliminating the whole size/write-drift error class) was made
// instead of porting the two-pass design literally.
type MessageWriter struct {
	buf *[]byte
	res *resource.Builder
}

// NewMessageWriter starts a fresh top-level message, appending into buf and
// recording resources into res.
func NewMessageWriter(buf *[]byte, res *resource.Builder) *MessageWriter {
	return &MessageWriter{buf: buf, res: res}
}

// Field begins writing the field identified by num.
func (w *MessageWriter) Field(num wire.Number) FieldWriter {
	return FieldWriter{num: num, w: w}
}

// Bytes returns the bytes accumulated so far.
func (w *MessageWriter) Bytes() []byte { return *w.buf }

// FieldWriter writes exactly one occurrence of a single field number. A
// repeated Go value writes its field multiple times, once per element,
// unless it opts into packed encoding (see writeRepeated in value.go).
type FieldWriter struct {
	num wire.Number
	w   *MessageWriter
}

func (f FieldWriter) Varint(v uint64) {
	*f.w.buf = wire.AppendTag(*f.w.buf, f.num, wire.VarintType)
	*f.w.buf = wire.AppendVarint(*f.w.buf, v)
}

func (f FieldWriter) Fixed32(v uint32) {
	*f.w.buf = wire.AppendTag(*f.w.buf, f.num, wire.Fixed32Type)
	*f.w.buf = wire.AppendFixed32(*f.w.buf, v)
}

func (f FieldWriter) Fixed64(v uint64) {
	*f.w.buf = wire.AppendTag(*f.w.buf, f.num, wire.Fixed64Type)
	*f.w.buf = wire.AppendFixed64(*f.w.buf, v)
}

func (f FieldWriter) Bytes(b []byte) {
	*f.w.buf = wire.AppendTag(*f.w.buf, f.num, wire.BytesType)
	*f.w.buf = wire.AppendBytes(*f.w.buf, b)
}

// Message writes a nested message: fn populates a scratch MessageWriter that
// shares this writer's resource builder, and the result is spliced in as a
// length-delimited field.
func (f FieldWriter) Message(fn func(*MessageWriter)) {
	var tmp []byte
	sub := &MessageWriter{buf: &tmp, res: f.w.res}
	fn(sub)
	f.Bytes(tmp)
}

// Resource appends r to the shared resource builder and writes this field as
// a ResourceType reference to its index.
func (f FieldWriter) Resource(r resource.Resource) {
	idx := f.w.res.Add(r)
	*f.w.buf = wire.AppendTag(*f.w.buf, f.num, wire.ResourceType)
	*f.w.buf = wire.AppendVarint(*f.w.buf, uint64(idx))
}

// Number reports the field number this writer is bound to, for codecs that
// need to emit raw tags themselves.
func (f FieldWriter) Number() wire.Number { return f.num }

// RawBuf exposes the underlying accumulator for codecs that append raw
// bytes directly. The packed-repeated path in value.go does not use it; it
// builds its payload separately and writes it with Bytes.
func (f FieldWriter) RawBuf() *[]byte { return f.w.buf }

// Field is a single (number, wire type, value) entry produced while scanning
// an encoded message.
type Field struct {
	Number wire.Number
	Type   wire.Type
	vint   uint64
	bytes  []byte
	res    *resource.Table
}

func (fd Field) Varint() (uint64, error) {
	if fd.Type != wire.VarintType {
		return 0, wire.ErrExpectedVarInt
	}
	return fd.vint, nil
}

func (fd Field) Fixed32() (uint32, error) {
	if fd.Type != wire.Fixed32Type {
		return 0, wire.ErrExpectedFixed32
	}
	return uint32(fd.vint), nil
}

func (fd Field) Fixed64() (uint64, error) {
	if fd.Type != wire.Fixed64Type {
		return 0, wire.ErrExpectedFixed64
	}
	return fd.vint, nil
}

func (fd Field) Bytes() ([]byte, error) {
	if fd.Type != wire.BytesType {
		return nil, wire.ErrExpectedBytes
	}
	return fd.bytes, nil
}

func (fd Field) Message() (*MessageReader, error) {
	b, err := fd.Bytes()
	if err != nil {
		return nil, err
	}
	return &MessageReader{data: b, res: fd.res}, nil
}

func (fd Field) Resource() (resource.Resource, error) {
	if fd.Type != wire.ResourceType {
		return nil, ErrNotAResource
	}
	return fd.res.Take(int(fd.vint))
}

// MessageReader scans a message's fields in wire order, one at a time.
type MessageReader struct {
	data []byte
	res  *resource.Table
}

// NewMessageReader wraps a message's raw bytes plus the resource table
// referenced by any ResourceType fields inside it.
func NewMessageReader(data []byte, res *resource.Table) *MessageReader {
	return &MessageReader{data: data, res: res}
}

// Next returns the next field, or ok=false once the message is exhausted.
// Varint, fixed32, fixed64, length-delimited and resource fields are all
// returned, and ignoring unrecognized field numbers among them is the
// caller's responsibility; fields of any other wire type (groups) are
// skipped by Next itself.
func (r *MessageReader) Next() (Field, bool, error) {
	if len(r.data) == 0 {
		return Field{}, false, nil
	}
	num, typ, n, err := wire.ConsumeTag(r.data)
	if err != nil {
		return Field{}, false, err
	}
	r.data = r.data[n:]
	switch typ {
	case wire.VarintType, wire.ResourceType:
		v, n, err := wire.ConsumeVarint(r.data)
		if err != nil {
			return Field{}, false, err
		}
		r.data = r.data[n:]
		return Field{Number: num, Type: typ, vint: v, res: r.res}, true, nil
	case wire.Fixed32Type:
		v, n, err := wire.ConsumeFixed32(r.data)
		if err != nil {
			return Field{}, false, err
		}
		r.data = r.data[n:]
		return Field{Number: num, Type: typ, vint: uint64(v), res: r.res}, true, nil
	case wire.Fixed64Type:
		v, n, err := wire.ConsumeFixed64(r.data)
		if err != nil {
			return Field{}, false, err
		}
		r.data = r.data[n:]
		return Field{Number: num, Type: typ, vint: v, res: r.res}, true, nil
	case wire.BytesType:
		v, n, err := wire.ConsumeBytes(r.data)
		if err != nil {
			return Field{}, false, err
		}
		r.data = r.data[n:]
		return Field{Number: num, Type: typ, bytes: v, res: r.res}, true, nil
	default:
		n, err := wire.ConsumeFieldValue(num, typ, r.data)
		if err != nil {
			return Field{}, false, err
		}
		r.data = r.data[n:]
		return r.Next()
	}
}
