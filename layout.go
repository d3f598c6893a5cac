package binlayout

import (
	"fmt"

	"github.com/wippyai/binlayout/errors"
)

// SpanVariable is the Span value of nodes whose encoded length depends on the
// buffer content or the encoded value. GetSpan must be given a buffer to
// resolve it.
const SpanVariable = -1

// OffsetUnknown is returned by Structure.OffsetOf for fields that follow a
// variable-span sibling, where the byte offset is not statically known.
const OffsetUnknown = -1

// Layout is the contract every node in a layout tree implements.
//
// A node is fixed-span iff Span() is non-negative. Variable span propagates:
// any container with at least one variable-span child is itself
// variable-span.
type Layout interface {
	// Span returns the encoded byte length of one instance, or SpanVariable
	// when the length depends on buffer content.
	Span() int

	// Property returns the field name used when this node appears inside a
	// container that assembles a record. Empty for anonymous nodes.
	Property() string

	// Decode interprets the bytes at off and returns the structured value
	// they denote.
	Decode(buf []byte, off int) (any, error)

	// Encode writes src at off and returns the number of bytes written. The
	// count includes the node's own span but excludes bytes written on its
	// behalf by external siblings (such as a sequence count stored outside).
	Encode(src any, buf []byte, off int) (int, error)

	// GetSpan returns the exact encoded length of one instance at off. For
	// fixed-span nodes the buffer may be nil; for variable-span nodes a nil
	// buffer yields an unresolved-span error, and a buffer too short to
	// determine the length yields a range error.
	GetSpan(buf []byte, off int) (int, error)

	// Replicate returns a shallow clone of the node with a new property.
	Replicate(property string) Layout
}

// External is a layout-like node that locates or derives a value rather than
// occupying space within its parent. It reads and writes bytes outside its
// apparent position, referencing counts or tags stored elsewhere.
type External interface {
	Layout

	// IsCount reports whether the node decodes to a non-negative integer
	// usable as a count, length, or discriminator.
	IsCount() bool
}

// recordMaker is implemented by record-producing nodes (Structure,
// BitStructure, VariantLayout wrapping one of those).
type recordMaker interface {
	FromArray(values []any) *Record
}

// base carries the state common to all nodes.
type base struct {
	span     int
	property string
}

func (b base) Span() int        { return b.span }
func (b base) Property() string { return b.property }

func optional(property []string) string {
	if len(property) > 0 {
		return property[0]
	}
	return ""
}

// Record is an insertion-ordered map from property name to value, used as the
// generic destination record produced by container decodes. Setting an
// existing key updates the value in place and keeps its original position.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]any)}
}

// Set assigns v under key, appending the key on first insertion.
func (r *Record) Set(key string, v any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r *Record) Get(key string) (any, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Has reports whether key is present.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// Keys returns the keys in insertion order. The slice is shared; callers must
// not modify it.
func (r *Record) Keys() []string {
	return r.keys
}

// Len returns the number of entries.
func (r *Record) Len() int {
	return len(r.keys)
}

// Map returns a plain map copy of the record. Nested records stay *Record.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.keys))
	for k, v := range r.values {
		m[k] = v
	}
	return m
}

func (r *Record) String() string {
	s := "{"
	for i, k := range r.keys {
		if i > 0 {
			s += ", "
		}
		s += fmt.Sprintf("%s: %v", k, r.values[k])
	}
	return s + "}"
}

// fieldOf extracts the named field from an encode source, which may be a
// *Record or a plain map.
func fieldOf(src any, key string) (any, bool) {
	switch s := src.(type) {
	case *Record:
		return s.Get(key)
	case map[string]any:
		v, ok := s[key]
		return v, ok
	}
	return nil, false
}

// isRecordSource reports whether src can serve as an encode source for a
// record-shaped layout.
func isRecordSource(src any) bool {
	switch src.(type) {
	case *Record, map[string]any:
		return true
	}
	return false
}

// isCountLayout reports whether l decodes to a non-negative integer usable as
// a count or discriminator.
func isCountLayout(l Layout) bool {
	switch t := l.(type) {
	case *UIntLayout:
		return true
	case External:
		return t.IsCount()
	}
	return false
}

// resolveCount decodes an external count at the consumer's base offset and
// coerces it to a non-negative int.
func resolveCount(ext External, buf []byte, off int, path []string) (int, error) {
	v, err := ext.Decode(buf, off)
	if err != nil {
		return 0, err
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
			Path(path...).
			GoType(fmt.Sprintf("%T", v)).
			Detail("external count did not resolve to a non-negative integer: %v", v).
			Build()
	}
	return n, nil
}

// checkRegion verifies that buf holds n bytes at off.
func checkRegion(phase errors.Phase, buf []byte, off, n int, path []string) error {
	if off < 0 || n < 0 || off+n > len(buf) {
		return errors.ShortBuffer(phase, path, n, len(buf)-off)
	}
	return nil
}

func pathTo(property string) []string {
	if property == "" {
		return nil
	}
	return []string{property}
}
