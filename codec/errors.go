package codec

import (
	"errors"
	"fmt"
)

// DecodeError is returned by Decode and Merge when a struct field fails to
// decode. It wraps the underlying cause: one of the sentinel Err* values
// below, a package wire error, or a resource table error. Failures outside
// any named field (a malformed tag, a non-struct top-level value) are
// returned unwrapped. Callers that need to distinguish failure kinds use
// errors.Is, not type assertions.
type DecodeError struct {
	Field string // dotted path to the offending field, best-effort, for logging
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("codec: decode failed: %v", e.Err)
	}
	return fmt.Sprintf("codec: decode %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// wrapField attaches a field name to an error as it unwinds out of a nested
// struct, building up a dotted path without needing a visitor return type.
func wrapField(name string, err error) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		if de.Field == "" {
			return &DecodeError{Field: name, Err: de.Err}
		}
		return &DecodeError{Field: name + "." + de.Field, Err: de.Err}
	}
	return &DecodeError{Field: name, Err: err}
}

var (
	// ErrMissingRequiredField is returned when a field with no usable zero
	// value (a resource-bearing field, most commonly) is absent from the
	// wire data being decoded.
	ErrMissingRequiredField = errors.New("codec: required field missing")

	// ErrInvalidEnum names a decoded varint that does not correspond to any
	// declared value of an enumerated Go type. The reflection engine does not
	// return it: integer-typed fields accept any decoded value.
	ErrInvalidEnum = errors.New("codec: invalid enum value")

	// ErrArrayLength names a decoded repeated field whose length does not
	// match a fixed-size Go array destination. The reflection engine does not
	// return it: decoding into a Go array fails with ErrUnsupportedType.
	ErrArrayLength = errors.New("codec: array length mismatch")

	// ErrDurationRange names a decoded duration whose nanos component is out
	// of the canonical [0, 1e9) range or disagrees in sign with its seconds
	// component. The reflection engine does not return it: a time.Duration
	// decodes as a plain signed integer.
	ErrDurationRange = errors.New("codec: duration out of range")

	// ErrUnsupportedType is returned by the reflection engine when asked to
	// encode or decode a Go kind that has no defined wire representation
	// (channels, funcs, unsafe pointers). A struct with no exported, tagged
	// fields is not rejected; it encodes as an empty message.
	ErrUnsupportedType = errors.New("codec: unsupported type")

	// ErrNotAResource is returned when a field tagged as a resource reference
	// decodes to a Table entry that does not satisfy the field's expected
	// resource interface (e.g. a plain Handle found where a port.Port was
	// expected).
	ErrNotAResource = errors.New("codec: resource is not of the expected kind")
)
