package codec

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"code.hybscloud.com/mesh/internal/wire"
	"code.hybscloud.com/mesh/port"
)

// zigzagEncode/zigzagDecode map signed integers onto the varint wire type
// the way protobuf's sint32/sint64 do, so that small negative numbers stay
// small on the wire instead of sign-extending to the full varint width.
func zigzagEncode(v int64) uint64 { return uint64((v << 1) ^ (v >> 63)) }
func zigzagDecode(v uint64) int64 { return int64(v>>1) ^ -int64(v&1) }

type structField struct {
	index int
	typ   reflect.Type
	num   wire.Number
	name  string
}

var structCache sync.Map // reflect.Type -> []structField

// fieldsOf returns the mesh-tagged exported fields of a struct type, parsed
// from `mesh:"N"` tags, cached per type.
func fieldsOf(t reflect.Type) []structField {
	if v, ok := structCache.Load(t); ok {
		return v.([]structField)
	}
	var fields []structField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if sf.PkgPath != "" { // unexported
			continue
		}
		tag := sf.Tag.Get("mesh")
		if tag == "" {
			continue
		}
		numStr := tag
		if idx := strings.IndexByte(tag, ','); idx >= 0 {
			numStr = tag[:idx]
		}
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		fields = append(fields, structField{index: i, typ: sf.Type, num: wire.Number(n), name: sf.Name})
	}
	structCache.Store(t, fields)
	return fields
}

// needsWrap reports whether a value of kind k, used as an element of a
// repeated field, must be wrapped in a single-field message to keep its
// occurrences from being confused with the outer repeat (spec.md §4.2,
// "wrap in sequence"). Structs and strings and scalars already occupy
// exactly one field occurrence per element; slices and maps do not.
func needsWrap(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Slice:
		return t.Elem().Kind() != reflect.Uint8
	case reflect.Map:
		return true
	default:
		return false
	}
}

// writeFieldValue encodes v as field num of mw. v must be valid (non-zero
// reflect.Value).
func writeFieldValue(v reflect.Value, num wire.Number, mw *MessageWriter) error {
	if ps, ok := asPortSource(v); ok {
		mw.Field(num).Resource(port.AsResource(ps.MeshPortOut()))
		return nil
	}
	switch v.Kind() {
	case reflect.Bool:
		b := uint64(0)
		if v.Bool() {
			b = 1
		}
		mw.Field(num).Varint(b)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		mw.Field(num).Varint(v.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		mw.Field(num).Varint(zigzagEncode(v.Int()))
	case reflect.Float32:
		mw.Field(num).Fixed32(math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		mw.Field(num).Fixed64(math.Float64bits(v.Float()))
	case reflect.String:
		mw.Field(num).Bytes([]byte(v.String()))
	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			mw.Field(num).Bytes(v.Bytes())
			return nil
		}
		return writeRepeated(v, num, mw)
	case reflect.Array:
		return writeRepeated(v, num, mw)
	case reflect.Map:
		return writeMap(v, num, mw)
	case reflect.Ptr:
		if v.IsNil() {
			return nil
		}
		return writeFieldValue(v.Elem(), num, mw)
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return writeFieldValue(v.Elem(), num, mw)
	case reflect.Struct:
		mw.Field(num).Message(func(sub *MessageWriter) {
			_ = writeStruct(v, sub)
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, v.Kind())
	}
	return nil
}

func asPortSource(v reflect.Value) (PortSource, bool) {
	if !v.CanInterface() {
		return nil, false
	}
	ps, ok := v.Interface().(PortSource)
	return ps, ok
}

// packableKind reports whether a scalar kind may be packed into a single
// length-delimited field when repeated, the way proto3 packs repeated
// numeric scalars by default.
func packableKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

func writeRepeated(v reflect.Value, num wire.Number, mw *MessageWriter) error {
	elemType := v.Type().Elem()
	n := v.Len()
	if packableKind(elemType.Kind()) && n > 0 {
		var content []byte
		for i := 0; i < n; i++ {
			if err := appendPacked(&content, v.Index(i)); err != nil {
				return err
			}
		}
		mw.Field(num).Bytes(content)
		return nil
	}
	wrap := needsWrap(elemType)
	for i := 0; i < n; i++ {
		elem := v.Index(i)
		if wrap {
			mw.Field(num).Message(func(sub *MessageWriter) {
				_ = writeFieldValue(elem, 1, sub)
			})
			continue
		}
		if err := writeFieldValue(elem, num, mw); err != nil {
			return err
		}
	}
	return nil
}

func appendPacked(buf *[]byte, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		b := uint64(0)
		if v.Bool() {
			b = 1
		}
		*buf = wire.AppendVarint(*buf, b)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		*buf = wire.AppendVarint(*buf, v.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		*buf = wire.AppendVarint(*buf, zigzagEncode(v.Int()))
	case reflect.Float32:
		*buf = wire.AppendFixed32(*buf, math.Float32bits(float32(v.Float())))
	case reflect.Float64:
		*buf = wire.AppendFixed64(*buf, math.Float64bits(v.Float()))
	default:
		return fmt.Errorf("%w: packed %s", ErrUnsupportedType, v.Kind())
	}
	return nil
}

func writeMap(v reflect.Value, num wire.Number, mw *MessageWriter) error {
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	for _, k := range keys {
		val := v.MapIndex(k)
		mw.Field(num).Message(func(sub *MessageWriter) {
			_ = writeFieldValue(k, 1, sub)
			_ = writeFieldValue(val, 2, sub)
		})
	}
	return nil
}

func writeStruct(v reflect.Value, mw *MessageWriter) error {
	for _, f := range fieldsOf(v.Type()) {
		fv := v.Field(f.index)
		if isZeroOmittable(fv) {
			continue
		}
		if err := writeFieldValue(fv, f.num, mw); err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
	}
	return nil
}

// isZeroOmittable reports whether a field holding its Go zero value can be
// skipped entirely on the wire (proto3-style implicit defaulting). Resource
// fields are never omittable since they have no usable zero value.
func isZeroOmittable(v reflect.Value) bool {
	if _, ok := asPortSource(v); ok {
		return false
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Slice, reflect.Map:
		return v.IsNil()
	case reflect.Struct:
		return false // structs always write (even if empty) so nested presence is unambiguous
	default:
		return v.IsZero()
	}
}

// readFieldValue decodes fd into dst, an addressable, settable reflect.Value
// of the field's static Go type.
func readFieldValue(dst reflect.Value, fd Field) error {
	if dst.CanAddr() {
		if ps, ok := dst.Addr().Interface().(PortSink); ok {
			r, err := fd.Resource()
			if err != nil {
				return err
			}
			p, ok := r.(port.Port)
			if !ok {
				return ErrNotAResource
			}
			ps.MeshPortIn(p)
			return nil
		}
	}
	switch dst.Kind() {
	case reflect.Bool:
		v, err := fd.Varint()
		if err != nil {
			return err
		}
		dst.SetBool(v != 0)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v, err := fd.Varint()
		if err != nil {
			return err
		}
		dst.SetUint(v)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, err := fd.Varint()
		if err != nil {
			return err
		}
		dst.SetInt(zigzagDecode(v))
	case reflect.Float32:
		v, err := fd.Fixed32()
		if err != nil {
			return err
		}
		dst.SetFloat(float64(math.Float32frombits(v)))
	case reflect.Float64:
		v, err := fd.Fixed64()
		if err != nil {
			return err
		}
		dst.SetFloat(math.Float64frombits(v))
	case reflect.String:
		b, err := fd.Bytes()
		if err != nil {
			return err
		}
		dst.SetString(string(b))
	case reflect.Slice:
		return readSliceElemOrPacked(dst, fd)
	case reflect.Map:
		return readMapEntry(dst, fd)
	case reflect.Ptr:
		if dst.IsNil() {
			dst.Set(reflect.New(dst.Type().Elem()))
		}
		return readFieldValue(dst.Elem(), fd)
	case reflect.Struct:
		sub, err := fd.Message()
		if err != nil {
			return err
		}
		return readStruct(dst, sub)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedType, dst.Kind())
	}
	return nil
}

func readSliceElemOrPacked(dst reflect.Value, fd Field) error {
	elemType := dst.Type().Elem()
	if elemType.Kind() == reflect.Uint8 {
		b, err := fd.Bytes()
		if err != nil {
			return err
		}
		cp := append([]byte(nil), b...)
		dst.SetBytes(cp)
		return nil
	}
	if fd.Type == wire.BytesType && packableKind(elemType.Kind()) {
		content, _ := fd.Bytes()
		for len(content) > 0 {
			elem := reflect.New(elemType).Elem()
			n, err := consumePacked(elem, content)
			if err != nil {
				return err
			}
			content = content[n:]
			dst.Set(reflect.Append(dst, elem))
		}
		return nil
	}
	elem := reflect.New(elemType).Elem()
	if needsWrap(elemType) {
		sub, err := fd.Message()
		if err != nil {
			return err
		}
		for {
			inner, ok, err := sub.Next()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if err := readFieldValue(elem, inner); err != nil {
				return err
			}
		}
	} else {
		if err := readFieldValue(elem, fd); err != nil {
			return err
		}
	}
	dst.Set(reflect.Append(dst, elem))
	return nil
}

func consumePacked(dst reflect.Value, b []byte) (int, error) {
	switch dst.Kind() {
	case reflect.Bool:
		v, n, err := wire.ConsumeVarint(b)
		if err != nil {
			return 0, err
		}
		dst.SetBool(v != 0)
		return n, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, n, err := wire.ConsumeVarint(b)
		if err != nil {
			return 0, err
		}
		dst.SetUint(v)
		return n, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v, n, err := wire.ConsumeVarint(b)
		if err != nil {
			return 0, err
		}
		dst.SetInt(zigzagDecode(v))
		return n, nil
	case reflect.Float32:
		v, n, err := wire.ConsumeFixed32(b)
		if err != nil {
			return 0, err
		}
		dst.SetFloat(float64(math.Float32frombits(v)))
		return n, nil
	case reflect.Float64:
		v, n, err := wire.ConsumeFixed64(b)
		if err != nil {
			return 0, err
		}
		dst.SetFloat(math.Float64frombits(v))
		return n, nil
	default:
		return 0, fmt.Errorf("%w: packed %s", ErrUnsupportedType, dst.Kind())
	}
}

func readMapEntry(dst reflect.Value, fd Field) error {
	if dst.IsNil() {
		dst.Set(reflect.MakeMap(dst.Type()))
	}
	sub, err := fd.Message()
	if err != nil {
		return err
	}
	keyType, valType := dst.Type().Key(), dst.Type().Elem()
	key := reflect.New(keyType).Elem()
	val := reflect.New(valType).Elem()
	for {
		f, ok, err := sub.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch f.Number {
		case 1:
			if err := readFieldValue(key, f); err != nil {
				return err
			}
		case 2:
			if err := readFieldValue(val, f); err != nil {
				return err
			}
		}
	}
	dst.SetMapIndex(key, val)
	return nil
}

func readStruct(dst reflect.Value, mr *MessageReader) error {
	fields := fieldsOf(dst.Type())
	byNum := make(map[wire.Number]structField, len(fields))
	for _, f := range fields {
		byNum[f.num] = f
	}
	seen := make(map[wire.Number]bool, len(fields))
	for {
		fd, ok, err := mr.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		meta, known := byNum[fd.Number]
		if !known {
			continue // unknown field: forward-compatible skip
		}
		if err := readFieldValue(dst.Field(meta.index), fd); err != nil {
			return wrapField(meta.name, err)
		}
		seen[fd.Number] = true
	}
	for _, f := range fields {
		if seen[f.num] {
			continue
		}
		fv := dst.Field(f.index)
		if fv.CanAddr() {
			if _, ok := fv.Addr().Interface().(PortSink); ok {
				return wrapField(f.name, ErrMissingRequiredField)
			}
		}
	}
	return nil
}
