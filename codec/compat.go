package codec

import "reflect"

// FieldKind classifies how a struct field is represented on the wire,
// independent of its exact Go type. Two fields with the same number and the
// same FieldKind can stand in for each other across a type change.
type FieldKind int

const (
	KindScalar FieldKind = iota
	KindBytes
	KindMessage
	KindResource
	KindRepeatedScalar
	KindRepeated
	KindMap
)

// Shape is the wire-relevant skeleton of a struct type: which field numbers
// it has and what kind each one is. Two types with compatible shapes can
// stand in for each other in a channel's declared element type (spec.md §6,
// "Type compatibility lattice").
type Shape struct {
	Fields map[uint32]FieldKind
}

// ShapeOf computes T's Shape by walking its mesh-tagged fields. Non-struct
// and port-like T report the single implicit wrapper field described by
// Encode's doc comment.
func ShapeOf[T any]() Shape {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	s := Shape{Fields: map[uint32]FieldKind{}}
	if rt.Implements(reflect.TypeOf((*PortSource)(nil)).Elem()) ||
		reflect.PtrTo(rt).Implements(reflect.TypeOf((*PortSink)(nil)).Elem()) {
		s.Fields[1] = KindResource
		return s
	}
	if rt.Kind() != reflect.Struct {
		s.Fields[1] = kindOf(rt)
		return s
	}
	for _, f := range fieldsOf(rt) {
		s.Fields[uint32(f.num)] = kindOf(f.typ)
	}
	return s
}

func kindOf(t reflect.Type) FieldKind {
	if reflect.PtrTo(t).Implements(reflect.TypeOf((*PortSink)(nil)).Elem()) {
		return KindResource
	}
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface:
		return kindOf(t.Elem())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return KindBytes
		}
		if packableKind(t.Elem().Kind()) {
			return KindRepeatedScalar
		}
		return KindRepeated
	case reflect.Array:
		return KindRepeated
	case reflect.Map:
		return KindMap
	case reflect.Struct:
		return KindMessage
	case reflect.String:
		return KindBytes
	default:
		return KindScalar
	}
}

// Upcast reports whether a value encoded as Old can always be decoded as
// New: every field New actually reads exists in Old with a compatible kind.
// Old may carry extra fields (New's decoder silently ignores unknown field
// numbers, spec.md's forward-compatibility rule) and may be missing fields
// that New doesn't require (they default to New's zero value); a resource
// field New has and Old lacks makes the pair incompatible.
//
// This is necessarily a conservative, structural approximation of spec.md's
// Upcast/Downcast relation: Rust's version is a library-declared trait impl
// backed by the type author's own promise, whereas this has to be derived
// from field tags alone since Go has no equivalent opt-in trait mechanism.
func Upcast[Old, New any]() bool {
	oldShape, newShape := ShapeOf[Old](), ShapeOf[New]()
	for num, newKind := range newShape.Fields {
		oldKind, ok := oldShape.Fields[num]
		if !ok {
			if newKind == KindResource {
				return false // New requires this field and Old never writes it.
			}
			continue // New defaults this field.
		}
		if !kindsCompatible(oldKind, newKind) {
			return false
		}
	}
	return true
}

// Downcast is Upcast with the roles reversed: New must be a strict
// relaxation of Old (every field Old has, New reads compatibly), the
// direction used by a Receiver accepting a more specific element type than
// its Sender declared.
func Downcast[Old, New any]() bool { return Upcast[New, Old]() }

func kindsCompatible(a, b FieldKind) bool {
	if a == b {
		return true
	}
	// A singular scalar decodes into a repeated scalar field as a
	// one-element slice. The reverse does not hold: a non-empty repeated
	// scalar is always written packed, as a length-delimited field that a
	// singular scalar field rejects.
	if a == KindScalar && b == KindRepeatedScalar {
		return true
	}
	return false
}
