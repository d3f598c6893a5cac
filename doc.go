// Package binlayout is a declarative binary-layout library: programs build an
// in-memory description of a byte layout by composing primitive and composite
// nodes, then use that description to decode raw bytes into structured values
// and encode structured values back into raw bytes. The target domain is
// packed C-style structures, tagged unions, bit-packed words, and
// length-prefixed sequences found in on-the-wire and on-disk formats.
//
// # Architecture Overview
//
// The library is organized into a root package holding the layout algebra and
// a few support packages:
//
//	binlayout/           Layout node tree: leaves, containers, unions, bit words
//	├── errors/          Structured error types (phase x kind, property paths)
//	├── schema/          Textual schema compiled into a layout tree
//	└── cmd/layoutview/  CLI and interactive TUI for inspecting binary files
//
// # Quick Start
//
// Describe a packed sensor reading and decode it:
//
//	reading := binlayout.Struct([]binlayout.Layout{
//		binlayout.U8("sensor_id"),
//		binlayout.S16("T_Cel"),
//		binlayout.U16("RH_pph"),
//		binlayout.U32("timestamp_posix"),
//	}, "reading", false)
//
//	rec, err := reading.Decode(raw, 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	id, _ := rec.(*binlayout.Record).Get("sensor_id")
//
// Encoding is symmetric: pass a *Record (or map[string]any keyed the same
// way) and a destination buffer sized to the layout's span.
//
// # Node Kinds
//
//   - Numeric leaves: unsigned and signed integers of 1-6 bytes, 32/64-bit
//     IEEE-754 floats, each in either byte order, and 8-byte "near-64"
//     integers decoded as float64.
//   - Byte and string leaves: fixed or externally-counted blobs,
//     NUL-terminated strings, length-implicit UTF-8, and span-0 constants.
//   - External layouts: Greedy (count inferred from the buffer remainder) and
//     Offset (indirect reference at a signed relative offset), used to read a
//     count or discriminator stored elsewhere.
//   - Containers: Structure (ordered named fields), Sequence (repetition with
//     fixed or external count), BitStructure (sub-byte fields packed in a 1-4
//     byte word, LSB- or MSB-first).
//   - Union: tagged union with a variant registry, an abstract discriminator
//     source, an optional default fallback, and source-variant inference for
//     encoding.
//
// Every node answers three questions about a byte region at a given offset:
// how many bytes it occupies there (GetSpan), what structured value those
// bytes denote (Decode), and how to write a value back (Encode). Nodes are
// immutable once constructed; containers with registration-style APIs
// (BitStructure, Union) are produced by builders that validate all invariants
// at build time.
//
// The engine is synchronous and operates on caller-supplied contiguous byte
// regions. There is no I/O, no streaming, and no shared mutable state:
// concurrent decodes of the same layout against disjoint buffers are safe.
package binlayout
