package binlayout

import (
	"bytes"
	"fmt"

	"github.com/wippyai/binlayout/errors"
)

// BlobLayout is a run of raw bytes whose length is either fixed at
// construction or sourced from an external count node.
type BlobLayout struct {
	base
	length External // nil when the length is fixed
}

// NewBlob constructs a fixed-length blob.
func NewBlob(length int, property string) (*BlobLayout, error) {
	if length < 0 {
		return nil, errors.Schema("blob length must be non-negative, got %d", length)
	}
	return &BlobLayout{base{length, property}, nil}, nil
}

// NewBlobExternal constructs a blob whose length is read through an external
// count node resolved at the blob's own offset.
func NewBlobExternal(length External, property string) (*BlobLayout, error) {
	if length == nil || !length.IsCount() {
		return nil, errors.Schema("blob length layout must be a count external")
	}
	return &BlobLayout{base{SpanVariable, property}, length}, nil
}

func (l *BlobLayout) GetSpan(buf []byte, off int) (int, error) {
	if l.length == nil {
		return l.span, nil
	}
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(l.property), "blob")
	}
	return resolveCount(l.length, buf, off, pathTo(l.property))
}

func (l *BlobLayout) Decode(buf []byte, off int) (any, error) {
	n, err := l.GetSpan(buf, off)
	if err != nil {
		return nil, err
	}
	if err := checkRegion(errors.PhaseDecode, buf, off, n, pathTo(l.property)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[off:off+n])
	return out, nil
}

// Encode copies the source bytes and, when the length is external, writes the
// length through the external node after the bytes. The returned count covers
// the bytes alone.
func (l *BlobLayout) Encode(src any, buf []byte, off int) (int, error) {
	b, ok := toBytes(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), "blob")
	}
	if l.length == nil && len(b) != l.span {
		return 0, errors.New(errors.PhaseEncode, errors.KindRange).
			Path(pathTo(l.property)...).
			LayoutType("blob").
			Detail("source is %d bytes, layout is %d", len(b), l.span).
			Build()
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, len(b), pathTo(l.property)); err != nil {
		return 0, err
	}
	copy(buf[off:], b)
	if l.length != nil {
		if _, err := l.length.Encode(len(b), buf, off); err != nil {
			return 0, err
		}
	}
	return len(b), nil
}

func (l *BlobLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

func toBytes(src any) ([]byte, bool) {
	switch s := src.(type) {
	case []byte:
		return s, true
	case string:
		return []byte(s), true
	}
	return nil, false
}

// CStringLayout holds bytes up to and including a zero terminator. Decode
// drops the terminator; Encode appends one. A source string containing an
// interior NUL byte will not round-trip.
type CStringLayout struct {
	base
}

// NewCString constructs a NUL-terminated string leaf.
func NewCString(property string) *CStringLayout {
	return &CStringLayout{base{SpanVariable, property}}
}

func (l *CStringLayout) GetSpan(buf []byte, off int) (int, error) {
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(l.property), "cstr")
	}
	if off < 0 || off > len(buf) {
		return 0, errors.ShortBuffer(errors.PhaseSpan, pathTo(l.property), 1, len(buf)-off)
	}
	z := bytes.IndexByte(buf[off:], 0)
	if z < 0 {
		return 0, errors.New(errors.PhaseSpan, errors.KindRange).
			Path(pathTo(l.property)...).
			LayoutType("cstr").
			Detail("no NUL terminator within %d bytes", len(buf)-off).
			Build()
	}
	return z + 1, nil
}

func (l *CStringLayout) Decode(buf []byte, off int) (any, error) {
	n, err := l.GetSpan(buf, off)
	if err != nil {
		return nil, err
	}
	return string(buf[off : off+n-1]), nil
}

func (l *CStringLayout) Encode(src any, buf []byte, off int) (int, error) {
	b, ok := toBytes(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), "cstr")
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, len(b)+1, pathTo(l.property)); err != nil {
		return 0, err
	}
	copy(buf[off:], b)
	buf[off+len(b)] = 0
	return len(b) + 1, nil
}

func (l *CStringLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// UTF8Layout treats the entire remaining buffer slice as the string. An
// optional maximum span bounds the encoded length.
type UTF8Layout struct {
	base
	maxSpan int // negative means unbounded
}

// NewUTF8 constructs a length-implicit UTF-8 leaf. A negative maxSpan leaves
// the encoded length unbounded.
func NewUTF8(maxSpan int, property string) *UTF8Layout {
	return &UTF8Layout{base{SpanVariable, property}, maxSpan}
}

func (l *UTF8Layout) GetSpan(buf []byte, off int) (int, error) {
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(l.property), "utf8")
	}
	if off < 0 || off > len(buf) {
		return 0, errors.ShortBuffer(errors.PhaseSpan, pathTo(l.property), 0, len(buf)-off)
	}
	return len(buf) - off, nil
}

func (l *UTF8Layout) Decode(buf []byte, off int) (any, error) {
	n, err := l.GetSpan(buf, off)
	if err != nil {
		return nil, err
	}
	return string(buf[off : off+n]), nil
}

func (l *UTF8Layout) Encode(src any, buf []byte, off int) (int, error) {
	b, ok := toBytes(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), "utf8")
	}
	if l.maxSpan >= 0 && len(b) > l.maxSpan {
		return 0, errors.New(errors.PhaseEncode, errors.KindRange).
			Path(pathTo(l.property)...).
			LayoutType("utf8").
			Detail("encoded length %d exceeds maximum span %d", len(b), l.maxSpan).
			Build()
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, len(b), pathTo(l.property)); err != nil {
		return 0, err
	}
	copy(buf[off:], b)
	return len(b), nil
}

func (l *UTF8Layout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// ConstantLayout occupies no bytes. Decode returns the preset value and
// Encode writes nothing. Byte-slice values are copied on decode so buffer
// identity never leaks into decoded records; other values are returned as
// given and should be immutable.
type ConstantLayout struct {
	base
	value any
}

// NewConstant constructs a span-0 leaf with a preset decode value.
func NewConstant(value any, property string) *ConstantLayout {
	return &ConstantLayout{base{0, property}, value}
}

func (l *ConstantLayout) Decode(buf []byte, off int) (any, error) {
	if b, ok := l.value.([]byte); ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	return l.value, nil
}

func (l *ConstantLayout) Encode(src any, buf []byte, off int) (int, error) {
	return 0, nil
}

func (l *ConstantLayout) GetSpan(buf []byte, off int) (int, error) {
	return 0, nil
}

func (l *ConstantLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}
