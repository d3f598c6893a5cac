package binlayout

import (
	"fmt"

	"github.com/wippyai/binlayout/errors"
)

// BitStructureBuilder accumulates bit fields and produces an immutable
// BitStructure. All invariants (word width, per-field width, total bits) are
// checked at Build time.
type BitStructureBuilder struct {
	word     *UIntLayout
	msbFirst bool
	property string
	specs    []bitFieldSpec
}

type bitFieldSpec struct {
	bits     int
	property string
	boolean  bool
}

// NewBitStructureBuilder starts a bit structure over the given unsigned
// integer word of 1-4 bytes. With msbFirst set, the first-added field
// occupies the most-significant bits of the word; the default is LSB-first.
func NewBitStructureBuilder(word *UIntLayout, msbFirst bool, property string) *BitStructureBuilder {
	return &BitStructureBuilder{word: word, msbFirst: msbFirst, property: property}
}

// AddField appends a field of the given bit width. An empty property makes
// the field padding: it occupies bits but is skipped by decode and encode.
func (b *BitStructureBuilder) AddField(bits int, property string) *BitStructureBuilder {
	b.specs = append(b.specs, bitFieldSpec{bits: bits, property: property})
	return b
}

// AddBoolean appends a single-bit field decoded as a bool.
func (b *BitStructureBuilder) AddBoolean(property string) *BitStructureBuilder {
	b.specs = append(b.specs, bitFieldSpec{bits: 1, property: property, boolean: true})
	return b
}

// Build validates the accumulated fields and produces the bit structure.
func (b *BitStructureBuilder) Build() (*BitStructure, error) {
	if b.word == nil {
		return nil, errors.Schema("bit structure requires a word layout")
	}
	if b.word.Span() > 4 {
		return nil, errors.Schema("bit structure word must be 1-4 bytes, got %d", b.word.Span())
	}
	wordBits := b.word.Span() * 8

	bs := &BitStructure{
		base:     base{b.word.Span(), b.property},
		word:     b.word,
		msbFirst: b.msbFirst,
	}

	used := 0
	seen := make(map[string]bool)
	for _, spec := range b.specs {
		if spec.bits < 1 || spec.bits > 32 {
			return nil, errors.Schema("bit field width must be 1-32 bits, got %d", spec.bits)
		}
		if used+spec.bits > wordBits {
			return nil, errors.Schema("bit field %q of %d bits exceeds the %d-bit word (%d bits used)",
				spec.property, spec.bits, wordBits, used)
		}
		if spec.property != "" {
			if seen[spec.property] {
				return nil, errors.Schema("duplicate bit field property %q", spec.property)
			}
			seen[spec.property] = true
		}

		start := used
		if b.msbFirst {
			start = wordBits - used - spec.bits
		}
		valueMask := uint32(1)<<uint(spec.bits) - 1
		if spec.bits == 32 {
			valueMask = ^uint32(0)
		}
		bs.fields = append(bs.fields, &BitField{
			bits:      spec.bits,
			start:     start,
			valueMask: valueMask,
			wordMask:  valueMask << uint(start),
			property:  spec.property,
			boolean:   spec.boolean,
		})
		used += spec.bits
	}
	bs.bitsUsed = used
	return bs, nil
}

// BitStructure packs sub-byte fields into a single unsigned integer word of
// 1-4 bytes. Encoding reads the current word first and rewrites only the
// addressed fields, so bits outside them survive.
type BitStructure struct {
	base
	word     *UIntLayout
	msbFirst bool
	fields   []*BitField
	bitsUsed int
}

// BitField records one field's position inside a bit structure word.
type BitField struct {
	bits      int
	start     int
	valueMask uint32
	wordMask  uint32
	property  string
	boolean   bool
}

// Bits returns the field's width in bits.
func (f *BitField) Bits() int { return f.bits }

// Start returns the field's least-significant bit position within the word.
func (f *BitField) Start() int { return f.start }

// ValueMask returns (1<<bits)-1.
func (f *BitField) ValueMask() uint32 { return f.valueMask }

// WordMask returns the value mask shifted to the field's start.
func (f *BitField) WordMask() uint32 { return f.wordMask }

// Property returns the field name, empty for padding.
func (f *BitField) Property() string { return f.property }

// IsBoolean reports whether the field decodes as a bool.
func (f *BitField) IsBoolean() bool { return f.boolean }

// Fields returns the fields in registration order. The slice is shared;
// callers must not modify it.
func (bs *BitStructure) Fields() []*BitField {
	return bs.fields
}

// FieldFor returns the field with the given property, or nil.
func (bs *BitStructure) FieldFor(property string) *BitField {
	for _, f := range bs.fields {
		if f.property != "" && f.property == property {
			return f
		}
	}
	return nil
}

// MSBFirst reports the bit ordering.
func (bs *BitStructure) MSBFirst() bool { return bs.msbFirst }

func (bs *BitStructure) readWord(phase errors.Phase, buf []byte, off int) (uint32, error) {
	if err := checkRegion(phase, buf, off, bs.span, pathTo(bs.property)); err != nil {
		return 0, err
	}
	v, err := bs.word.Decode(buf, off)
	if err != nil {
		return 0, err
	}
	return uint32(v.(uint64)), nil
}

func (bs *BitStructure) Decode(buf []byte, off int) (any, error) {
	w, err := bs.readWord(errors.PhaseDecode, buf, off)
	if err != nil {
		return nil, err
	}
	dest := NewRecord()
	for _, f := range bs.fields {
		if f.property == "" {
			continue
		}
		v := w >> uint(f.start) & f.valueMask
		if f.boolean {
			dest.Set(f.property, v != 0)
		} else {
			dest.Set(f.property, uint64(v))
		}
	}
	return dest, nil
}

// Encode rewrites the fields present in src inside the stored word and
// leaves every other bit as it was, including padding and fields missing
// from the source.
func (bs *BitStructure) Encode(src any, buf []byte, off int) (int, error) {
	if !isRecordSource(src) {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(bs.property), fmt.Sprintf("%T", src), "bits")
	}
	w, err := bs.readWord(errors.PhaseEncode, buf, off)
	if err != nil {
		return 0, err
	}
	for _, f := range bs.fields {
		if f.property == "" {
			continue
		}
		fv, present := fieldOf(src, f.property)
		if !present {
			continue
		}
		var v uint32
		if f.boolean {
			b, ok := fv.(bool)
			if !ok {
				n, okn := toUint64(fv)
				if !okn {
					return 0, errors.TypeMismatch(errors.PhaseEncode, []string{f.property}, fmt.Sprintf("%T", fv), "bool")
				}
				b = n != 0
			}
			if b {
				v = 1
			}
		} else {
			n, ok := toUint64(fv)
			if !ok {
				return 0, errors.TypeMismatch(errors.PhaseEncode, []string{f.property}, fmt.Sprintf("%T", fv), "bitfield")
			}
			if n > uint64(f.valueMask) {
				return 0, errors.OutOfRange(errors.PhaseEncode, []string{f.property}, fv,
					fmt.Sprintf("bitfield:%d", f.bits))
			}
			v = uint32(n)
		}
		w = w&^f.wordMask | v<<uint(f.start)
	}
	if _, err := bs.word.Encode(uint64(w), buf, off); err != nil {
		return 0, err
	}
	return bs.span, nil
}

func (bs *BitStructure) GetSpan(buf []byte, off int) (int, error) {
	return bs.span, nil
}

// FromArray pairs positional values with the named fields in registration
// order, skipping padding and ignoring extra values.
func (bs *BitStructure) FromArray(values []any) *Record {
	dest := NewRecord()
	i := 0
	for _, f := range bs.fields {
		if f.property == "" {
			continue
		}
		if i >= len(values) {
			break
		}
		dest.Set(f.property, values[i])
		i++
	}
	return dest
}

func (bs *BitStructure) Replicate(property string) Layout {
	c := *bs
	c.property = property
	return &c
}
