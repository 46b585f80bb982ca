// Package wire implements the low-level primitive codec (varint, fixed32,
// fixed64, length-delimited byte runs) that backs the mesh wire format.
//
// The format is a strict superset of protobuf's wire encoding, so the
// primitive read/write helpers here are built directly on
// google.golang.org/protobuf/encoding/protowire rather than reimplementing
// base-128 varints and little-endian fixed widths by hand.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Number is a protobuf field number.
type Number = protowire.Number

// Type is a protobuf wire type.
type Type = protowire.Type

const (
	VarintType  = protowire.VarintType
	Fixed32Type = protowire.Fixed32Type
	Fixed64Type = protowire.Fixed64Type
	BytesType   = protowire.BytesType
	GroupType   = protowire.StartGroupType

	// ResourceType is the mesh extension to the protobuf wire format: a field
	// tagged with this wire type carries a varint index into the message's
	// out-of-band resource table (see package resource) instead of inline
	// bytes. It reuses the wire-type value range that standard protobuf
	// leaves unassigned (0-5 are taken; groups 3/4 are deprecated but
	// reserved, so 6 is the first free slot).
	ResourceType Type = 6
)

// Error is a wire-codec decoding failure. It is always one of the sentinel
// values below and is safe to compare with errors.Is.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

var (
	ErrEofVarInt      = &Error{"wire: eof parsing a varint"}
	ErrVarIntTooBig    = &Error{"wire: varint too big"}
	ErrEofFixed32      = &Error{"wire: eof parsing a fixed32"}
	ErrEofFixed64      = &Error{"wire: eof parsing a fixed64"}
	ErrEofByteArray    = &Error{"wire: eof parsing a byte array"}
	ErrExpectedVarInt  = &Error{"wire: expected a varint"}
	ErrExpectedFixed32 = &Error{"wire: expected a fixed32"}
	ErrExpectedFixed64 = &Error{"wire: expected a fixed64"}
	ErrExpectedBytes   = &Error{"wire: expected a byte array"}
)

// UnknownWireTypeError reports a tag whose wire type this codec does not
// understand.
type UnknownWireTypeError struct {
	WireType uint32
}

func (e *UnknownWireTypeError) Error() string {
	return fmt.Sprintf("wire: unknown wire type %d", e.WireType)
}

// AppendTag appends a field tag (field number and wire type) to b.
func AppendTag(b []byte, num Number, typ Type) []byte {
	return protowire.AppendTag(b, num, typ)
}

// SizeTag returns the encoded size of a tag.
func SizeTag(num Number) int { return protowire.SizeTag(num) }

// ConsumeTag parses a tag from the front of b, returning the field number,
// wire type, and number of bytes consumed.
func ConsumeTag(b []byte) (Number, Type, int, error) {
	num, typ, n := protowire.ConsumeTag(b)
	if n < 0 {
		return 0, 0, 0, classify(n, ErrEofVarInt)
	}
	return num, typ, n, nil
}

// AppendVarint appends v to b as a base-128 varint.
func AppendVarint(b []byte, v uint64) []byte { return protowire.AppendVarint(b, v) }

// SizeVarint returns the encoded size of v as a varint.
func SizeVarint(v uint64) int { return protowire.SizeVarint(v) }

// ConsumeVarint parses a varint from the front of b.
func ConsumeVarint(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, classify(n, ErrEofVarInt)
	}
	return v, n, nil
}

// AppendFixed32 appends v to b in the configured (little-endian, per
// protobuf) fixed-width encoding.
func AppendFixed32(b []byte, v uint32) []byte { return protowire.AppendFixed32(b, v) }

func ConsumeFixed32(b []byte) (uint32, int, error) {
	v, n := protowire.ConsumeFixed32(b)
	if n < 0 {
		return 0, 0, classify(n, ErrEofFixed32)
	}
	return v, n, nil
}

func AppendFixed64(b []byte, v uint64) []byte { return protowire.AppendFixed64(b, v) }

func ConsumeFixed64(b []byte) (uint64, int, error) {
	v, n := protowire.ConsumeFixed64(b)
	if n < 0 {
		return 0, 0, classify(n, ErrEofFixed64)
	}
	return v, n, nil
}

// AppendBytes appends a length-delimited byte run.
func AppendBytes(b, v []byte) []byte { return protowire.AppendBytes(b, v) }

func SizeBytes(n int) int { return protowire.SizeBytes(n) }

func ConsumeBytes(b []byte) ([]byte, int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, 0, classify(n, ErrEofByteArray)
	}
	return v, n, nil
}

// ConsumeFieldValue skips over the value belonging to a field of the given
// wire type, returning the number of bytes consumed. It understands the mesh
// ResourceType extension in addition to the standard protobuf wire types.
func ConsumeFieldValue(num Number, typ Type, b []byte) (int, error) {
	if typ == ResourceType {
		_, n, err := ConsumeVarint(b)
		return n, err
	}
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, classify(n, &UnknownWireTypeError{WireType: uint32(typ)})
	}
	return n, nil
}

func classify(n int, fallback error) error {
	switch protowire.ParseError(n) {
	case protowire.ErrCodeTruncated:
		return fallback
	default:
		return fallback
	}
}

// IsEOF reports whether err is one of the EOF-while-parsing sentinels.
func IsEOF(err error) bool {
	return errors.Is(err, ErrEofVarInt) || errors.Is(err, ErrEofFixed32) ||
		errors.Is(err, ErrEofFixed64) || errors.Is(err, ErrEofByteArray)
}
