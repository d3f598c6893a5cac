package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseBuild  Phase = "build"  // layout construction
	PhaseSpan   Phase = "span"   // span resolution
	PhaseEncode Phase = "encode" // value to bytes
	PhaseDecode Phase = "decode" // bytes to value
	PhaseParse  Phase = "parse"  // schema text parsing
	PhaseBind   Phase = "bind"   // struct binding
)

// Kind categorizes the error
type Kind string

const (
	KindRange            Kind = "range"             // buffer too short, or value outside declared width
	KindUnresolvedSpan   Kind = "unresolved_span"   // variable span queried without buffer context
	KindUnknownVariant   Kind = "unknown_variant"   // unregistered union tag with no default layout
	KindAmbiguousVariant Kind = "ambiguous_variant" // source value matches no or several variants
	KindSchema           Kind = "schema"            // construction-time layout violation
	KindTypeMismatch     Kind = "type_mismatch"     // input value of the wrong shape
	KindSyntax           Kind = "syntax"            // malformed schema text
)

// Error is the structured error type used throughout the library
type Error struct {
	Value      any
	Cause      error
	Phase      Phase
	Kind       Kind
	GoType     string
	LayoutType string
	Detail     string
	Path       []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.LayoutType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.LayoutType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", layout ")
			b.WriteString(e.LayoutType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("layout ")
			b.WriteString(e.LayoutType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.LayoutType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the property path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// LayoutType sets the layout node kind name
func (b *Builder) LayoutType(t string) *Builder {
	b.err.LayoutType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// ShortBuffer creates a range error for a buffer too short at the given offset
func ShortBuffer(phase Phase, path []string, need, have int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindRange,
		Path:   path,
		Detail: fmt.Sprintf("need %d bytes, have %d", need, have),
	}
}

// OutOfRange creates a range error for a value outside the declared width
func OutOfRange(phase Phase, path []string, value any, layoutType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindRange,
		Path:       path,
		LayoutType: layoutType,
		Detail:     fmt.Sprintf("value %v does not fit", value),
		Value:      value,
	}
}

// UnresolvedSpan creates an error for a span query that needs buffer context
func UnresolvedSpan(path []string, layoutType string) *Error {
	return &Error{
		Phase:      PhaseSpan,
		Kind:       KindUnresolvedSpan,
		Path:       path,
		LayoutType: layoutType,
		Detail:     "variable span requires buffer context",
	}
}

// UnknownVariant creates an error for an unregistered union tag
func UnknownVariant(path []string, tag uint64) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownVariant,
		Path:   path,
		Detail: fmt.Sprintf("no variant registered for tag %d and no default layout", tag),
		Value:  tag,
	}
}

// AmbiguousVariant creates an error for a source value that matches no or
// several union variants
func AmbiguousVariant(path []string, detail string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindAmbiguousVariant,
		Path:   path,
		Detail: detail,
	}
}

// Schema creates a construction-time layout violation error
func Schema(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseBuild,
		Kind:   KindSchema,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, layoutType string) *Error {
	return &Error{
		Phase:      phase,
		Kind:       KindTypeMismatch,
		Path:       path,
		GoType:     goType,
		LayoutType: layoutType,
	}
}

// Syntax creates a schema text error at a line/column position
func Syntax(line, col int, detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindSyntax,
		Detail: fmt.Sprintf("%d:%d: %s", line, col, fmt.Sprintf(detail, args...)),
	}
}
