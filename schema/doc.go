// Package schema compiles a compact textual description into a layout tree,
// enabling layouts to come from command lines and config files rather than
// Go code.
//
// Basic usage:
//
//	layout, err := schema.Compile(`struct {
//		sensor_id: u8,
//		T_Cel:     s16,
//		count:     u8,
//		items:     seq(u16, @count),
//	}`)
//
// Supported node forms:
//
//   - Numeric leaves: u8..u48, s8..s48, nu64, ns64, f32, f64, each with an
//     optional "be" suffix for big-endian byte order
//   - blob(n): fixed-length raw bytes
//   - cstr: NUL-terminated string
//   - utf8, utf8(max): length-implicit string, optionally bounded
//   - struct { name: node, ... }: ordered named fields
//   - seq(elem, count): repetition; count is an integer literal, @field (a
//     back-reference to an earlier fixed-offset unsigned field in the same
//     struct), or * (greedy over the buffer remainder)
//   - bits(word) { name: width, ... }: sub-byte fields in a 1-4 byte unsigned
//     word; width is a bit count or "bool"; "_" names padding; bits(word, msb)
//     packs MSB-first
//
// Comments run from // to end of line. Trailing commas are allowed.
//
// Not supported: unions (their discriminator wiring and variant registries
// are built programmatically), constants, and external offsets other than
// the @field count form.
package schema
