package binlayout

import (
	"fmt"

	"github.com/wippyai/binlayout/errors"
	"github.com/wippyai/binlayout/internal/word"
)

// UIntLayout is an unsigned integer leaf of 1-6 bytes in either byte order.
// Decode yields a uint64; Encode accepts any Go numeric value and fails with
// a range error when it does not fit the declared width.
type UIntLayout struct {
	base
	bigEndian bool
}

// NewUInt constructs an unsigned integer leaf. Width must be 1-6 bytes.
func NewUInt(width int, bigEndian bool, property string) (*UIntLayout, error) {
	if width < 1 || width > 6 {
		return nil, errors.Schema("integer width must be 1-6 bytes, got %d", width)
	}
	return &UIntLayout{base{width, property}, bigEndian}, nil
}

func (l *UIntLayout) name() string {
	return fmt.Sprintf("u%d%s", l.span*8, endianSuffix(l.bigEndian))
}

func (l *UIntLayout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, l.span, pathTo(l.property)); err != nil {
		return nil, err
	}
	return word.Uint(buf[off:off+l.span], l.bigEndian), nil
}

func (l *UIntLayout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toUint64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if !word.FitsUint(v, l.span) {
		return 0, errors.OutOfRange(errors.PhaseEncode, pathTo(l.property), src, l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, l.span, pathTo(l.property)); err != nil {
		return 0, err
	}
	word.PutUint(buf[off:off+l.span], v, l.bigEndian)
	return l.span, nil
}

func (l *UIntLayout) GetSpan(buf []byte, off int) (int, error) {
	return l.span, nil
}

func (l *UIntLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// IntLayout is a signed integer leaf of 1-6 bytes in either byte order.
// Decode sign-extends from the top byte and yields an int64.
type IntLayout struct {
	base
	bigEndian bool
}

// NewInt constructs a signed integer leaf. Width must be 1-6 bytes.
func NewInt(width int, bigEndian bool, property string) (*IntLayout, error) {
	if width < 1 || width > 6 {
		return nil, errors.Schema("integer width must be 1-6 bytes, got %d", width)
	}
	return &IntLayout{base{width, property}, bigEndian}, nil
}

func (l *IntLayout) name() string {
	return fmt.Sprintf("s%d%s", l.span*8, endianSuffix(l.bigEndian))
}

func (l *IntLayout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, l.span, pathTo(l.property)); err != nil {
		return nil, err
	}
	return word.Int(buf[off:off+l.span], l.bigEndian), nil
}

func (l *IntLayout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toInt64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if !word.FitsInt(v, l.span) {
		return 0, errors.OutOfRange(errors.PhaseEncode, pathTo(l.property), src, l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, l.span, pathTo(l.property)); err != nil {
		return 0, err
	}
	mask := uint64(1)<<(uint(l.span)*8) - 1
	word.PutUint(buf[off:off+l.span], uint64(v)&mask, l.bigEndian)
	return l.span, nil
}

func (l *IntLayout) GetSpan(buf []byte, off int) (int, error) {
	return l.span, nil
}

func (l *IntLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// NearUint64Layout encodes 8 bytes but decodes to a float64. Precision
// degrades above 2^53; that loss is documented behavior, not an error.
type NearUint64Layout struct {
	base
	bigEndian bool
}

// NewNearUint64 constructs an 8-byte unsigned leaf decoded as float64.
func NewNearUint64(bigEndian bool, property string) *NearUint64Layout {
	return &NearUint64Layout{base{8, property}, bigEndian}
}

func (l *NearUint64Layout) name() string { return "nu64" + endianSuffix(l.bigEndian) }

func (l *NearUint64Layout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, 8, pathTo(l.property)); err != nil {
		return nil, err
	}
	return float64(word.Uint(buf[off:off+8], l.bigEndian)), nil
}

func (l *NearUint64Layout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toUint64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, 8, pathTo(l.property)); err != nil {
		return 0, err
	}
	word.PutUint(buf[off:off+8], v, l.bigEndian)
	return 8, nil
}

func (l *NearUint64Layout) GetSpan(buf []byte, off int) (int, error) {
	return 8, nil
}

func (l *NearUint64Layout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// NearInt64Layout is the signed counterpart of NearUint64Layout.
type NearInt64Layout struct {
	base
	bigEndian bool
}

// NewNearInt64 constructs an 8-byte signed leaf decoded as float64.
func NewNearInt64(bigEndian bool, property string) *NearInt64Layout {
	return &NearInt64Layout{base{8, property}, bigEndian}
}

func (l *NearInt64Layout) name() string { return "ns64" + endianSuffix(l.bigEndian) }

func (l *NearInt64Layout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, 8, pathTo(l.property)); err != nil {
		return nil, err
	}
	return float64(word.Int(buf[off:off+8], l.bigEndian)), nil
}

func (l *NearInt64Layout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toInt64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, 8, pathTo(l.property)); err != nil {
		return 0, err
	}
	word.PutUint(buf[off:off+8], uint64(v), l.bigEndian)
	return 8, nil
}

func (l *NearInt64Layout) GetSpan(buf []byte, off int) (int, error) {
	return 8, nil
}

func (l *NearInt64Layout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// Float32Layout is an IEEE-754 single in either byte order. Decode yields a
// float32.
type Float32Layout struct {
	base
	bigEndian bool
}

// NewFloat32 constructs a 4-byte IEEE-754 single leaf.
func NewFloat32(bigEndian bool, property string) *Float32Layout {
	return &Float32Layout{base{4, property}, bigEndian}
}

func (l *Float32Layout) name() string { return "f32" + endianSuffix(l.bigEndian) }

func (l *Float32Layout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, 4, pathTo(l.property)); err != nil {
		return nil, err
	}
	return word.Float32(buf[off:off+4], l.bigEndian), nil
}

func (l *Float32Layout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toFloat64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, 4, pathTo(l.property)); err != nil {
		return 0, err
	}
	word.PutFloat32(buf[off:off+4], float32(v), l.bigEndian)
	return 4, nil
}

func (l *Float32Layout) GetSpan(buf []byte, off int) (int, error) {
	return 4, nil
}

func (l *Float32Layout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// Float64Layout is an IEEE-754 double in either byte order.
type Float64Layout struct {
	base
	bigEndian bool
}

// NewFloat64 constructs an 8-byte IEEE-754 double leaf.
func NewFloat64(bigEndian bool, property string) *Float64Layout {
	return &Float64Layout{base{8, property}, bigEndian}
}

func (l *Float64Layout) name() string { return "f64" + endianSuffix(l.bigEndian) }

func (l *Float64Layout) Decode(buf []byte, off int) (any, error) {
	if err := checkRegion(errors.PhaseDecode, buf, off, 8, pathTo(l.property)); err != nil {
		return nil, err
	}
	return word.Float64(buf[off:off+8], l.bigEndian), nil
}

func (l *Float64Layout) Encode(src any, buf []byte, off int) (int, error) {
	v, ok := toFloat64(src)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(l.property), fmt.Sprintf("%T", src), l.name())
	}
	if err := checkRegion(errors.PhaseEncode, buf, off, 8, pathTo(l.property)); err != nil {
		return 0, err
	}
	word.PutFloat64(buf[off:off+8], v, l.bigEndian)
	return 8, nil
}

func (l *Float64Layout) GetSpan(buf []byte, off int) (int, error) {
	return 8, nil
}

func (l *Float64Layout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

func endianSuffix(bigEndian bool) string {
	if bigEndian {
		return "be"
	}
	return ""
}
