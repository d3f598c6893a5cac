package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:      PhaseEncode,
				Kind:       KindRange,
				Path:       []string{"packet", "header", "len"},
				GoType:     "int",
				LayoutType: "u16",
				Detail:     "value 70000 does not fit",
			},
			contains: []string{"[encode]", "range", "packet.header.len", "int", "u16", "does not fit"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindUnknownVariant,
			},
			contains: []string{"[decode]", "unknown_variant"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseBind,
				Kind:   KindTypeMismatch,
				Detail: "field count",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[bind]", "type_mismatch", "field count", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindTypeMismatch,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindRange,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindRange}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindRange}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindSchema}) {
		t.Error("Is should not match different kind")
	}

	// errors.Is through a wrap chain
	wrapped := New(PhaseDecode, KindRange).
		Path("items").
		Cause(err).
		Build()
	if !errors.Is(wrapped, &Error{Phase: PhaseEncode, Kind: KindRange}) {
		t.Error("errors.Is should find the cause through the chain")
	}
}

func TestBuilder(t *testing.T) {
	err := New(PhaseBuild, KindSchema).
		Path("word", "flags").
		LayoutType("bits").
		Value(40).
		Detail("field of %d bits exceeds %d-bit word", 40, 32).
		Build()

	if err.Phase != PhaseBuild || err.Kind != KindSchema {
		t.Errorf("phase/kind: got %s/%s", err.Phase, err.Kind)
	}
	if len(err.Path) != 2 || err.Path[1] != "flags" {
		t.Errorf("path: got %v", err.Path)
	}
	if err.Value != 40 {
		t.Errorf("value: got %v", err.Value)
	}
	if !strings.Contains(err.Detail, "40 bits exceeds 32-bit word") {
		t.Errorf("detail: got %q", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	if e := ShortBuffer(PhaseDecode, []string{"x"}, 4, 2); e.Kind != KindRange || !strings.Contains(e.Detail, "need 4 bytes, have 2") {
		t.Errorf("ShortBuffer: %v", e)
	}
	if e := UnresolvedSpan(nil, "cstr"); e.Kind != KindUnresolvedSpan || e.Phase != PhaseSpan {
		t.Errorf("UnresolvedSpan: %v", e)
	}
	if e := UnknownVariant([]string{"msg"}, 9); e.Kind != KindUnknownVariant || e.Value != uint64(9) {
		t.Errorf("UnknownVariant: %v", e)
	}
	if e := AmbiguousVariant(nil, "two candidates"); e.Kind != KindAmbiguousVariant {
		t.Errorf("AmbiguousVariant: %v", e)
	}
	if e := Schema("count must be %s", "non-negative"); e.Phase != PhaseBuild || !strings.Contains(e.Detail, "non-negative") {
		t.Errorf("Schema: %v", e)
	}
	if e := Syntax(3, 7, "unexpected %q", "}"); !strings.Contains(e.Detail, `3:7: unexpected "}"`) {
		t.Errorf("Syntax: %v", e)
	}
}
