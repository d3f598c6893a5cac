package binlayout

import (
	"fmt"
	"reflect"

	"github.com/wippyai/binlayout/errors"
)

// Sequence repeats an element layout a number of times. The count is either a
// fixed non-negative integer or an external count node resolved at the
// sequence's own offset.
type Sequence struct {
	base
	elem  Layout
	count int
	ext   External // nil when the count is fixed
}

// NewSequence constructs a sequence with a fixed element count.
func NewSequence(elem Layout, count int, property string) (*Sequence, error) {
	if elem == nil {
		return nil, errors.Schema("sequence requires an element layout")
	}
	if count < 0 {
		return nil, errors.Schema("sequence count must be non-negative, got %d", count)
	}
	span := SpanVariable
	if elem.Span() >= 0 {
		span = count * elem.Span()
	}
	return &Sequence{base{span, property}, elem, count, nil}, nil
}

// NewSequenceExternal constructs a sequence whose count is read through an
// external count node. On encode the source length is written back through
// that node after the elements.
func NewSequenceExternal(elem Layout, count External, property string) (*Sequence, error) {
	if elem == nil {
		return nil, errors.Schema("sequence requires an element layout")
	}
	if count == nil || !count.IsCount() {
		return nil, errors.Schema("sequence count layout must be a count external")
	}
	return &Sequence{base{SpanVariable, property}, elem, 0, count}, nil
}

// Element returns the element layout.
func (s *Sequence) Element() Layout {
	return s.elem
}

func (s *Sequence) resolve(buf []byte, off int) (int, error) {
	if s.ext == nil {
		return s.count, nil
	}
	return resolveCount(s.ext, buf, off, pathTo(s.property))
}

func (s *Sequence) GetSpan(buf []byte, off int) (int, error) {
	if s.span >= 0 {
		return s.span, nil
	}
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(s.property), "seq")
	}
	n, err := s.resolve(buf, off)
	if err != nil {
		return 0, err
	}
	if s.elem.Span() >= 0 {
		return n * s.elem.Span(), nil
	}
	total := 0
	for i := 0; i < n; i++ {
		es, err := s.elem.GetSpan(buf, off+total)
		if err != nil {
			return 0, err
		}
		total += es
	}
	return total, nil
}

func (s *Sequence) Decode(buf []byte, off int) (any, error) {
	n, err := s.resolve(buf, off)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, n)
	pos := off
	for i := 0; i < n; i++ {
		v, err := s.elem.Decode(buf, pos)
		if err != nil {
			return nil, err
		}
		es, err := s.elem.GetSpan(buf, pos)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		pos += es
	}
	return out, nil
}

// Encode writes elements consecutively. With a fixed count, at most count
// elements are written: extra source elements are dropped and missing
// elements leave their buffer bytes unmodified. With an external count, the
// whole source is written and its length is stored through the external
// node; those bytes are not included in the returned count.
func (s *Sequence) Encode(src any, buf []byte, off int) (int, error) {
	rv := reflect.ValueOf(src)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(s.property), fmt.Sprintf("%T", src), "seq")
	}
	n := rv.Len()
	if s.ext == nil && n > s.count {
		n = s.count
	}
	pos := off
	for i := 0; i < n; i++ {
		es, err := s.elem.Encode(rv.Index(i).Interface(), buf, pos)
		if err != nil {
			return 0, err
		}
		pos += es
	}
	if s.ext != nil {
		if _, err := s.ext.Encode(rv.Len(), buf, off); err != nil {
			return 0, err
		}
	}
	return pos - off, nil
}

func (s *Sequence) Replicate(property string) Layout {
	c := *s
	c.property = property
	return &c
}
