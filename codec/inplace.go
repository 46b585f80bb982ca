package codec

// Inplace is a two-state decode slot: either empty (nothing decoded yet) or
// holding a value. It exists because some encodable types — most notably a
// mesh.Sender or mesh.Receiver, which wraps a linearly-owned port.Port — have
// no meaningful zero value, so a decoder cannot default-construct T and fill
// it in field by field the way a plain struct literal would. Decoders
// construct T entirely before calling Set, then callers take the result.
//
// This mirrors spec.md's InplaceOption and the "two-state slot (empty /
// filled)" implementation note in §9, adapted to Go: instead of an unsafe
// filled-accessor guarded by a precondition, Get/Take simply report ok=false
// on an empty slot.
type Inplace[T any] struct {
	value *T
}

// None returns an empty slot, used as the decode destination for a fresh
// (non-merge) decode.
func None[T any]() Inplace[T] { return Inplace[T]{} }

// Some wraps an existing value, used as the decode destination when merging
// new wire data onto a value that already exists (spec.md "Merge semantics").
func Some[T any](v T) Inplace[T] { return Inplace[T]{value: &v} }

// IsNone reports whether the slot has never been filled.
func (o *Inplace[T]) IsNone() bool { return o.value == nil }

// Set fills the slot, overwriting any previous value.
func (o *Inplace[T]) Set(v T) { o.value = &v }

// Get returns a pointer to the current value for in-place mutation (used by
// merge logic to update an already-decoded field), or nil if the slot is
// empty.
func (o *Inplace[T]) Get() *T { return o.value }

// GetOrInit returns a pointer to the current value, initializing it to the
// zero value of T first if the slot was empty.
func (o *Inplace[T]) GetOrInit() *T {
	if o.value == nil {
		var zero T
		o.value = &zero
	}
	return o.value
}

// Take consumes the slot, returning its value and true, or the zero value
// and false if it was never filled.
func (o *Inplace[T]) Take() (T, bool) {
	if o.value == nil {
		var zero T
		return zero, false
	}
	v := *o.value
	o.value = nil
	return v, true
}
