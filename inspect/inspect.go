// Package inspect implements the structural introspection tree (spec
// component C10): a small recursive Node/Value model that a running process
// can use to describe its own state for diagnostics, independent of any
// particular wire schema.
//
// A Node is itself an ordinary mesh-encodable message, built from the same
// field/message encoding table as everything else in this module (package
// codec) — there is no separate inspect-specific serializer. That gives the
// two construction paths spec.md asks for: build a Node structurally with
// Dir/Of/Pending/Failed (ToMessage round-trips it through the normal
// codec), or, for a value whose schema is unknown, walk its raw wire bytes
// directly with FromMessage and get a best-effort Node back.
package inspect

import (
	"fmt"
	"sort"
	"strings"

	"code.hybscloud.com/mesh/codec"
	"code.hybscloud.com/mesh/internal/wire"
	"code.hybscloud.com/mesh/port"
)

// Sensitivity marks how freely a Node's value may be surfaced — e.g. to a
// support tool versus only to the owning team.
type Sensitivity int32

const (
	SensitivityUnspecified Sensitivity = 0
	SensitivitySafe        Sensitivity = 1
	SensitivitySensitive   Sensitivity = 2
	SensitivityNone        Sensitivity = 3
)

// Value is a leaf's payload: exactly one of these fields is set, mirroring
// spec.md's tagged union convention of one optional field per variant.
type Value struct {
	Signed   *int64  `mesh:"1"`
	Unsigned *uint64 `mesh:"2"`
	Boolean  *bool   `mesh:"3"`
	Text     *string `mesh:"4"`
	Bytes    []byte  `mesh:"5"`
}

func Signed(v int64) Value   { return Value{Signed: &v} }
func Unsigned(v uint64) Value { return Value{Unsigned: &v} }
func Bool(v bool) Value      { return Value{Boolean: &v} }
func Text(v string) Value    { return Value{Text: &v} }
func BytesValue(v []byte) Value { return Value{Bytes: v} }

func (v Value) String() string {
	switch {
	case v.Signed != nil:
		return fmt.Sprintf("%d", *v.Signed)
	case v.Unsigned != nil:
		return fmt.Sprintf("%d", *v.Unsigned)
	case v.Boolean != nil:
		return fmt.Sprintf("%t", *v.Boolean)
	case v.Text != nil:
		return *v.Text
	case v.Bytes != nil:
		return fmt.Sprintf("%x", v.Bytes)
	default:
		return ""
	}
}

// Node is one point in the introspection tree: a directory of named
// children, a leaf value, a not-yet-evaluated placeholder, or a failure.
// Exactly one of Children, Leaf, Unevaluated, or Failure is meaningful at a
// time, selected the same way Value selects its variant.
type Node struct {
	Children    map[string]Node `mesh:"1"`
	Leaf        *Value          `mesh:"2"`
	Unevaluated bool            `mesh:"3"`
	Failure     *string         `mesh:"4"`
	Sensitivity Sensitivity     `mesh:"5"`
}

// Dir builds a directory node from named children.
func Dir(children map[string]Node) Node { return Node{Children: children} }

// Of builds a leaf node from a Value.
func Of(v Value) Node { return Node{Leaf: &v} }

// Pending marks a node whose value has not been computed yet, the
// placeholder an inspection tree shows before a lazily-evaluated subtree is
// actually walked.
func Pending() Node { return Node{Unevaluated: true} }

// Failed marks a node that could not be evaluated, carrying the error text.
func Failed(err error) Node {
	msg := err.Error()
	return Node{Failure: &msg}
}

// WithSensitivity returns a copy of n tagged with s.
func (n Node) WithSensitivity(s Sensitivity) Node {
	n.Sensitivity = s
	return n
}

// ToMessage encodes n through the ordinary mesh codec.
func ToMessage(n Node) (port.Message, error) { return codec.Encode(n) }

// FromStructuredMessage decodes a message previously produced by ToMessage.
func FromStructuredMessage(msg port.Message) (Node, error) { return codec.Decode[Node](msg) }

// FromMessage renders the raw wire bytes of an arbitrary, schema-unknown
// mesh message as a best-effort Node tree: each field number becomes a
// directory entry, length-delimited fields are recursively re-parsed as
// nested messages when that succeeds and shown as a string (falling back to
// bytes) otherwise. This is the "protobuf-direct" half of the round-trip:
// it needs no struct tags and no generic type parameter, so it is the form
// a generic diagnostics dump over an opaque payload uses.
func FromMessage(data []byte) Node {
	mr := wireReader(data)
	children := map[string]Node{}
	counts := map[string]int{}
	for {
		fd, ok, err := mr.Next()
		if err != nil {
			return Node{Failure: strPtr(err.Error())}
		}
		if !ok {
			break
		}
		key := fmt.Sprintf("%d", fd.Number)
		counts[key]++
		if counts[key] > 1 {
			key = fmt.Sprintf("%d[%d]", fd.Number, counts[key]-1)
		}
		children[key] = fieldToNode(fd)
	}
	return Node{Children: children}
}

func fieldToNode(fd codec.Field) Node {
	switch fd.Type {
	case wire.VarintType:
		v, _ := fd.Varint()
		return Of(Unsigned(v))
	case wire.Fixed32Type:
		v, _ := fd.Fixed32()
		return Of(Unsigned(uint64(v)))
	case wire.Fixed64Type:
		v, _ := fd.Fixed64()
		return Of(Unsigned(v))
	case wire.ResourceType:
		return Of(Text("<resource>"))
	case wire.BytesType:
		b, _ := fd.Bytes()
		if sub := FromMessage(b); len(sub.Children) > 0 {
			return sub
		}
		if isPrintable(b) {
			return Of(Text(string(b)))
		}
		return Of(BytesValue(b))
	default:
		return Node{Failure: strPtr(fmt.Sprintf("unknown wire type %d", fd.Type))}
	}
}

func isPrintable(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return false
		}
	}
	return true
}

func strPtr(s string) *string { return &s }

func wireReader(data []byte) *codec.MessageReader { return codec.NewMessageReader(data, nil) }

// Format renders n as an indented text tree, the common human-facing view of
// an inspection result.
func Format(n Node) string {
	var b strings.Builder
	formatNode(&b, n, 0)
	return b.String()
}

func formatNode(b *strings.Builder, n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch {
	case n.Unevaluated:
		fmt.Fprintf(b, "%s<pending>\n", indent)
	case n.Failure != nil:
		fmt.Fprintf(b, "%s<failed: %s>\n", indent, *n.Failure)
	case n.Leaf != nil:
		fmt.Fprintf(b, "%s%s\n", indent, n.Leaf.String())
	default:
		names := make([]string, 0, len(n.Children))
		for k := range n.Children {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			child := n.Children[k]
			if child.Leaf != nil || child.Unevaluated || child.Failure != nil {
				fmt.Fprintf(b, "%s%s: ", indent, k)
				formatNode(b, child, 0)
			} else {
				fmt.Fprintf(b, "%s%s:\n", indent, k)
				formatNode(b, child, depth+1)
			}
		}
	}
}
