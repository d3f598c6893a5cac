package binlayout

import (
	"fmt"

	"github.com/wippyai/binlayout/errors"
)

// Structure is an ordered list of named child nodes laid out consecutively.
// Its span is the sum of the child spans, or variable if any child is
// variable. A structure may not contain an unnamed variable-span child.
type Structure struct {
	base
	fields         []Layout
	decodePrefixes bool
}

// NewStructure constructs a structure over fields. With decodePrefixes set, a
// decode that runs out of buffer stops cleanly and returns the partial
// record instead of failing.
func NewStructure(fields []Layout, property string, decodePrefixes bool) (*Structure, error) {
	span := 0
	for i, fld := range fields {
		if fld == nil {
			return nil, errors.Schema("structure field %d is nil", i)
		}
		if fld.Span() < 0 {
			if fld.Property() == "" {
				return nil, errors.Schema("structure field %d is variable-span and unnamed", i)
			}
			span = SpanVariable
		}
		if span >= 0 {
			span += fld.Span()
		}
	}
	return &Structure{base{span, property}, fields, decodePrefixes}, nil
}

// Fields returns the child nodes in order. The slice is shared; callers must
// not modify it.
func (s *Structure) Fields() []Layout {
	return s.fields
}

// DecodePrefixes reports whether truncated buffers decode to partial records.
func (s *Structure) DecodePrefixes() bool {
	return s.decodePrefixes
}

// LayoutFor returns the child node with the given property, or nil.
func (s *Structure) LayoutFor(property string) Layout {
	for _, fld := range s.fields {
		if fld.Property() == property {
			return fld
		}
	}
	return nil
}

// OffsetOf returns the byte offset of the named field from the structure's
// start, or OffsetUnknown when the field is absent or follows a
// variable-span sibling.
func (s *Structure) OffsetOf(property string) int {
	off := 0
	for _, fld := range s.fields {
		if fld.Property() == property {
			return off
		}
		if fld.Span() < 0 {
			off = OffsetUnknown
		}
		if off >= 0 {
			off += fld.Span()
		}
	}
	return OffsetUnknown
}

func (s *Structure) GetSpan(buf []byte, off int) (int, error) {
	if s.span >= 0 {
		return s.span, nil
	}
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(s.property), "struct")
	}
	total := 0
	for _, fld := range s.fields {
		n, err := fld.GetSpan(buf, off+total)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func (s *Structure) Decode(buf []byte, off int) (any, error) {
	dest := NewRecord()
	pos := off
	for _, fld := range s.fields {
		n, err := fld.GetSpan(buf, pos)
		if err != nil {
			if s.decodePrefixes && isRangeErr(err) {
				break
			}
			return nil, err
		}
		if pos+n > len(buf) {
			if s.decodePrefixes {
				debugf("struct %q: prefix decode stopped before %q at offset %d", s.property, fld.Property(), pos)
				break
			}
			return nil, errors.ShortBuffer(errors.PhaseDecode, pathTo(fld.Property()), n, len(buf)-pos)
		}
		if fld.Property() != "" {
			v, err := fld.Decode(buf, pos)
			if err != nil {
				return nil, err
			}
			dest.Set(fld.Property(), v)
		}
		pos += n
	}
	return dest, nil
}

// Encode writes the named fields present in src at consecutive offsets.
// Missing named fields and unnamed fields advance the offset without
// touching the buffer, so their existing bytes are preserved. The returned
// count is the full distance advanced.
func (s *Structure) Encode(src any, buf []byte, off int) (int, error) {
	if !isRecordSource(src) {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(s.property), fmt.Sprintf("%T", src), "struct")
	}
	pos := off
	for _, fld := range s.fields {
		prop := fld.Property()
		if prop == "" {
			// Unnamed fields are fixed-span by construction.
			pos += fld.Span()
			continue
		}
		v, present := fieldOf(src, prop)
		if !present {
			n, err := fld.GetSpan(buf, pos)
			if err != nil {
				return 0, err
			}
			pos += n
			continue
		}
		n, err := fld.Encode(v, buf, pos)
		if err != nil {
			return 0, err
		}
		pos += n
	}
	return pos - off, nil
}

// FromArray pairs positional values with the named fields in order, skipping
// unnamed fields and ignoring extra values.
func (s *Structure) FromArray(values []any) *Record {
	dest := NewRecord()
	i := 0
	for _, fld := range s.fields {
		if fld.Property() == "" {
			continue
		}
		if i >= len(values) {
			break
		}
		dest.Set(fld.Property(), values[i])
		i++
	}
	return dest
}

func (s *Structure) Replicate(property string) Layout {
	c := *s
	c.property = property
	return &c
}

func isRangeErr(err error) bool {
	e, ok := err.(*errors.Error)
	return ok && e.Kind == errors.KindRange
}
