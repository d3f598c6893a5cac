// Package errors provides structured error types for the binlayout library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). The Error type includes rich context: the property path into the
// layout tree, the Go type involved, the layout node kind, and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindRange).
//		Path("packet", "len").
//		LayoutType("u16").
//		Detail("value 70000 does not fit in 2 bytes").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.ShortBuffer(errors.PhaseDecode, path, 4, 2)
//	err := errors.UnknownVariant(path, tag)
//
// All errors implement the standard error interface and support errors.Is/As;
// two Errors match under errors.Is when their Phase and Kind are equal.
package errors
