package binlayout

import "github.com/wippyai/binlayout/errors"

// Ergonomic constructors, one per node kind. The fallible New* constructors
// return schema errors; these shorthands are meant for layouts written as
// literals and panic on invalid arguments, in the manner of regexp.MustCompile.

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func uintLeaf(width int, bigEndian bool, property []string) *UIntLayout {
	return must(NewUInt(width, bigEndian, optional(property)))
}

func intLeaf(width int, bigEndian bool, property []string) *IntLayout {
	return must(NewInt(width, bigEndian, optional(property)))
}

// U8 is an unsigned 1-byte integer.
func U8(property ...string) *UIntLayout { return uintLeaf(1, false, property) }

// U16 is an unsigned little-endian 2-byte integer.
func U16(property ...string) *UIntLayout { return uintLeaf(2, false, property) }

// U16BE is an unsigned big-endian 2-byte integer.
func U16BE(property ...string) *UIntLayout { return uintLeaf(2, true, property) }

// U24 is an unsigned little-endian 3-byte integer.
func U24(property ...string) *UIntLayout { return uintLeaf(3, false, property) }

// U24BE is an unsigned big-endian 3-byte integer.
func U24BE(property ...string) *UIntLayout { return uintLeaf(3, true, property) }

// U32 is an unsigned little-endian 4-byte integer.
func U32(property ...string) *UIntLayout { return uintLeaf(4, false, property) }

// U32BE is an unsigned big-endian 4-byte integer.
func U32BE(property ...string) *UIntLayout { return uintLeaf(4, true, property) }

// U40 is an unsigned little-endian 5-byte integer.
func U40(property ...string) *UIntLayout { return uintLeaf(5, false, property) }

// U40BE is an unsigned big-endian 5-byte integer.
func U40BE(property ...string) *UIntLayout { return uintLeaf(5, true, property) }

// U48 is an unsigned little-endian 6-byte integer.
func U48(property ...string) *UIntLayout { return uintLeaf(6, false, property) }

// U48BE is an unsigned big-endian 6-byte integer.
func U48BE(property ...string) *UIntLayout { return uintLeaf(6, true, property) }

// NU64 is an unsigned little-endian 8-byte integer decoded as float64.
func NU64(property ...string) *NearUint64Layout { return NewNearUint64(false, optional(property)) }

// NU64BE is an unsigned big-endian 8-byte integer decoded as float64.
func NU64BE(property ...string) *NearUint64Layout { return NewNearUint64(true, optional(property)) }

// S8 is a signed 1-byte integer.
func S8(property ...string) *IntLayout { return intLeaf(1, false, property) }

// S16 is a signed little-endian 2-byte integer.
func S16(property ...string) *IntLayout { return intLeaf(2, false, property) }

// S16BE is a signed big-endian 2-byte integer.
func S16BE(property ...string) *IntLayout { return intLeaf(2, true, property) }

// S24 is a signed little-endian 3-byte integer.
func S24(property ...string) *IntLayout { return intLeaf(3, false, property) }

// S24BE is a signed big-endian 3-byte integer.
func S24BE(property ...string) *IntLayout { return intLeaf(3, true, property) }

// S32 is a signed little-endian 4-byte integer.
func S32(property ...string) *IntLayout { return intLeaf(4, false, property) }

// S32BE is a signed big-endian 4-byte integer.
func S32BE(property ...string) *IntLayout { return intLeaf(4, true, property) }

// S40 is a signed little-endian 5-byte integer.
func S40(property ...string) *IntLayout { return intLeaf(5, false, property) }

// S40BE is a signed big-endian 5-byte integer.
func S40BE(property ...string) *IntLayout { return intLeaf(5, true, property) }

// S48 is a signed little-endian 6-byte integer.
func S48(property ...string) *IntLayout { return intLeaf(6, false, property) }

// S48BE is a signed big-endian 6-byte integer.
func S48BE(property ...string) *IntLayout { return intLeaf(6, true, property) }

// NS64 is a signed little-endian 8-byte integer decoded as float64.
func NS64(property ...string) *NearInt64Layout { return NewNearInt64(false, optional(property)) }

// NS64BE is a signed big-endian 8-byte integer decoded as float64.
func NS64BE(property ...string) *NearInt64Layout { return NewNearInt64(true, optional(property)) }

// F32 is a little-endian IEEE-754 single.
func F32(property ...string) *Float32Layout { return NewFloat32(false, optional(property)) }

// F32BE is a big-endian IEEE-754 single.
func F32BE(property ...string) *Float32Layout { return NewFloat32(true, optional(property)) }

// F64 is a little-endian IEEE-754 double.
func F64(property ...string) *Float64Layout { return NewFloat64(false, optional(property)) }

// F64BE is a big-endian IEEE-754 double.
func F64BE(property ...string) *Float64Layout { return NewFloat64(true, optional(property)) }

// Blob is a fixed-length run of raw bytes.
func Blob(length int, property ...string) *BlobLayout {
	return must(NewBlob(length, optional(property)))
}

// BlobExt is a blob whose length is sourced from an external count node.
func BlobExt(length External, property ...string) *BlobLayout {
	return must(NewBlobExternal(length, optional(property)))
}

// CStr is a NUL-terminated string.
func CStr(property ...string) *CStringLayout { return NewCString(optional(property)) }

// UTF8 is a length-implicit string spanning the remaining buffer.
func UTF8(property ...string) *UTF8Layout { return NewUTF8(-1, optional(property)) }

// UTF8Max is a length-implicit string with a maximum encoded span.
func UTF8Max(maxSpan int, property ...string) *UTF8Layout {
	return NewUTF8(maxSpan, optional(property))
}

// Const is a span-0 node decoding to a preset value.
func Const(value any, property ...string) *ConstantLayout {
	return NewConstant(value, optional(property))
}

// Greedy is an external count of how many elemSpan-byte elements fit in the
// buffer remainder.
func Greedy(elemSpan int, property ...string) *GreedyLayout {
	return must(NewGreedy(elemSpan, optional(property)))
}

// Offset redirects target to a signed relative offset from the consumer's
// base position.
func Offset(target Layout, k int, property ...string) *OffsetLayout {
	return must(NewOffset(target, k, optional(property)))
}

// Seq repeats elem count times. The count is either a non-negative int or an
// External count node.
func Seq(elem Layout, count any, property ...string) *Sequence {
	switch c := count.(type) {
	case int:
		return must(NewSequence(elem, c, optional(property)))
	case External:
		return must(NewSequenceExternal(elem, c, optional(property)))
	}
	panic(errors.Schema("sequence count must be an int or a count External, got %T", count))
}

// Struct lays out fields consecutively under one record.
func Struct(fields []Layout, property string, decodePrefixes bool) *Structure {
	return must(NewStructure(fields, property, decodePrefixes))
}

// Bits starts a bit structure builder over a 1-4 byte unsigned word,
// LSB-first.
func Bits(word *UIntLayout, property ...string) *BitStructureBuilder {
	return NewBitStructureBuilder(word, false, optional(property))
}

// BitsMSB starts a bit structure builder with MSB-first ordering.
func BitsMSB(word *UIntLayout, property ...string) *BitStructureBuilder {
	return NewBitStructureBuilder(word, true, optional(property))
}

// NewUnion starts a union builder; see NewUnionBuilder for the discriminator
// forms.
func NewUnion(discr any, defaultLayout Layout, property string) *UnionBuilder {
	return NewUnionBuilder(discr, defaultLayout, property)
}
