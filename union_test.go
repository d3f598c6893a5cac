package binlayout_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/wippyai/binlayout"
	lerrors "github.com/wippyai/binlayout/errors"
)

func positionUnion(t *testing.T) *binlayout.Union {
	t.Helper()
	u, err := binlayout.NewUnion(binlayout.U8(), nil, "msg").
		AddVariant(0, binlayout.U32(), "a").
		AddVariant(1, binlayout.Struct([]binlayout.Layout{
			binlayout.U16("x"),
			binlayout.U16("y"),
		}, "", false), "pos").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	return u
}

func TestUnionPrefixTag(t *testing.T) {
	u := positionUnion(t)

	if !u.UsesPrefixDiscriminator() {
		t.Error("prefix discriminator expected")
	}
	if u.Span() != 5 {
		t.Errorf("span: got %d, want 5 (consistent variants)", u.Span())
	}

	// Tag 1 selects the position variant.
	raw := []byte{0x01, 0x0a, 0x00, 0x14, 0x00}
	v, err := u.Decode(raw, 0)
	if err != nil {
		t.Fatal(err)
	}
	rec := v.(*binlayout.Record)
	if rec.Len() != 1 {
		t.Fatalf("record: %v", rec)
	}
	pos, _ := rec.Get("pos")
	inner := pos.(*binlayout.Record)
	if x, _ := inner.Get("x"); x != uint64(10) {
		t.Errorf("x: got %v", x)
	}
	if y, _ := inner.Get("y"); y != uint64(20) {
		t.Errorf("y: got %v", y)
	}

	// {a: 0xDEADBEEF} is inferred to variant 0.
	buf := make([]byte, 5)
	n, err := u.Encode(map[string]any{"a": uint32(0xdeadbeef)}, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("encode count: got %d, want 5", n)
	}
	if !bytes.Equal(buf, []byte{0x00, 0xef, 0xbe, 0xad, 0xde}) {
		t.Errorf("encode: got % x", buf)
	}
}

func TestUnionUnknownVariant(t *testing.T) {
	u := positionUnion(t)
	if _, err := u.Decode([]byte{0x07, 0x00, 0x00, 0x00, 0x00}, 0); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseDecode, Kind: lerrors.KindUnknownVariant}) {
		t.Errorf("tag 7: want unknown-variant error, got %v", err)
	}
	if _, err := u.VariantAt([]byte{0x07}, 0); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseDecode, Kind: lerrors.KindUnknownVariant}) {
		t.Errorf("VariantAt: want unknown-variant error, got %v", err)
	}
}

func TestUnionDefaultLayout(t *testing.T) {
	u, err := binlayout.NewUnion(binlayout.U8("tag"), binlayout.U32("payload"), "msg").
		AddVariant(0, binlayout.U16(), "halfword").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if u.Span() != 5 {
		t.Fatalf("span: got %d, want prefix+default = 5", u.Span())
	}

	// An unregistered tag decodes through the default layout.
	v, err := u.Decode([]byte{0x09, 0x2a, 0x00, 0x00, 0x00}, 0)
	if err != nil {
		t.Fatal(err)
	}
	rec := v.(*binlayout.Record)
	if tag, _ := rec.Get("tag"); tag != uint64(9) {
		t.Errorf("tag: got %v", tag)
	}
	if p, _ := rec.Get("payload"); p != uint64(42) {
		t.Errorf("payload: got %v", p)
	}

	// A registered tag still routes through its variant.
	v, err = u.Decode([]byte{0x00, 0x2a, 0x00, 0x00, 0x00}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if hw, _ := v.(*binlayout.Record).Get("halfword"); hw != uint64(42) {
		t.Errorf("halfword: got %v", hw)
	}

	// Default-path round trip.
	buf := make([]byte, 5)
	n, err := u.Encode(map[string]any{"tag": 9, "payload": 7}, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("encode count: got %d, want 5", n)
	}
	if !bytes.Equal(buf, []byte{0x09, 0x07, 0x00, 0x00, 0x00}) {
		t.Errorf("encode: got % x", buf)
	}
}

func TestUnionDefaultVsVariantExclusion(t *testing.T) {
	// A source carrying both the discriminator and the default content
	// property takes the default path regardless of tag value.
	u, err := binlayout.NewUnion(binlayout.U8("tag"), binlayout.U32("payload"), "msg").
		AddVariant(0, binlayout.U16(), "halfword").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 5)
	n, err := u.Encode(map[string]any{"tag": 0, "payload": 0x01020304}, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 5 {
		t.Errorf("encode count: got %d, want 5", n)
	}
	// All four payload bytes written, proving the u32 default path ran, not
	// the u16 variant.
	if !bytes.Equal(buf, []byte{0x00, 0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("encode: got % x", buf)
	}
}

func TestUnionExternalDiscriminator(t *testing.T) {
	// The tag lives in a struct field before the union.
	u, err := binlayout.NewUnion(binlayout.Offset(binlayout.U8("kind"), -1), nil, "body").
		AddVariant(0, binlayout.U32(), "word").
		AddVariant(1, binlayout.U16(), "half").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if u.UsesPrefixDiscriminator() {
		t.Error("external discriminator must not be a prefix")
	}

	s := binlayout.Struct([]binlayout.Layout{
		binlayout.U8("kind"),
		u.Replicate("body"),
	}, "packet", false)

	raw := []byte{0x01, 0x0a, 0x00}
	v, err := s.Decode(raw, 0)
	if err != nil {
		t.Fatal(err)
	}
	rec := v.(*binlayout.Record)
	body, _ := rec.Get("body")
	if half, _ := body.(*binlayout.Record).Get("half"); half != uint64(10) {
		t.Errorf("half: got %v", half)
	}

	buf := make([]byte, 3)
	if _, err := s.Encode(map[string]any{"body": map[string]any{"half": 10}}, buf, 0); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf, raw) {
		t.Errorf("encode: got % x, want % x", buf, raw)
	}
}

func TestUnionTagOnlyVariant(t *testing.T) {
	u, err := binlayout.NewUnion(binlayout.U8("op"), nil, "cmd").
		AddVariant(0, nil, "reset").
		AddVariant(1, binlayout.U16(), "set").
		Build()
	if err != nil {
		t.Fatal(err)
	}

	v, err := u.Decode([]byte{0x00}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if v.(*binlayout.Record).Len() != 0 {
		t.Errorf("tag-only variant should decode to an empty record, got %v", v)
	}

	reset := u.Variant(0)
	if reset == nil || reset.Span() != 1 {
		t.Fatalf("variant 0: %v", reset)
	}
	buf := []byte{0xff}
	n, err := reset.Encode(binlayout.NewRecord(), buf, 0)
	if err != nil || n != 1 {
		t.Fatalf("tag-only encode: n=%d err=%v", n, err)
	}
	if buf[0] != 0x00 {
		t.Errorf("tag byte: got %#02x", buf[0])
	}

	// Encoding {op:0} through the union picks the tag-only variant.
	buf[0] = 0xff
	if _, err := u.Encode(map[string]any{"op": 0}, buf, 0); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x00 {
		t.Errorf("union encode tag byte: got %#02x", buf[0])
	}
}

func TestUnionVariableSpan(t *testing.T) {
	u, err := binlayout.NewUnion(binlayout.U8(), nil, "msg").
		AddVariant(0, binlayout.CStr(), "name").
		AddVariant(1, binlayout.U16(), "id").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if u.Span() != binlayout.SpanVariable {
		t.Fatalf("span: got %d, want variable", u.Span())
	}

	buf := []byte{0x00, 'h', 'i', 0x00}
	n, err := u.GetSpan(buf, 0)
	if err != nil || n != 4 {
		t.Fatalf("getSpan variant 0: n=%d err=%v", n, err)
	}
	n, err = u.GetSpan([]byte{0x01, 0x0a, 0x00}, 0)
	if err != nil || n != 3 {
		t.Fatalf("getSpan variant 1: n=%d err=%v", n, err)
	}
	if _, err := u.GetSpan(nil, 0); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseSpan, Kind: lerrors.KindUnresolvedSpan}) {
		t.Errorf("nil buffer: want unresolved-span, got %v", err)
	}
}

func TestUnionSourceVariantAmbiguity(t *testing.T) {
	u := positionUnion(t)

	// No recognizable property.
	if _, _, err := u.DefaultSourceVariant(map[string]any{"z": 1}); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseEncode, Kind: lerrors.KindAmbiguousVariant}) {
		t.Errorf("no match: want ambiguous-variant, got %v", err)
	}
	// Two variant properties at once.
	if _, _, err := u.DefaultSourceVariant(map[string]any{"a": 1, "pos": 2}); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseEncode, Kind: lerrors.KindAmbiguousVariant}) {
		t.Errorf("double match: want ambiguous-variant, got %v", err)
	}
	// Discriminator present and selecting a variant whose property is there.
	v, useDefault, err := u.DefaultSourceVariant(map[string]any{"variant": 1, "pos": map[string]any{}})
	if err != nil || useDefault || v.Tag() != 1 {
		t.Errorf("tag+property: v=%v useDefault=%v err=%v", v, useDefault, err)
	}
}

func TestUnionCustomChooser(t *testing.T) {
	// A replacement chooser that falls back to the default rules.
	u, err := binlayout.NewUnion(binlayout.U8(), nil, "msg").
		AddVariant(0, binlayout.U32(), "a").
		AddVariant(1, binlayout.U32(), "b").
		Chooser(func(u *binlayout.Union, src any) (*binlayout.VariantLayout, bool, error) {
			if m, ok := src.(map[string]any); ok {
				if _, forced := m["force_b"]; forced {
					return u.Variant(1), false, nil
				}
			}
			return u.DefaultSourceVariant(src)
		}).
		Build()
	if err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 5)
	if _, err := u.Encode(map[string]any{"force_b": true, "b": 3}, buf, 0); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x01 {
		t.Errorf("forced variant tag: got %#02x", buf[0])
	}

	if _, err := u.Encode(map[string]any{"a": 3}, buf, 0); err != nil {
		t.Fatal(err)
	}
	if buf[0] != 0x00 {
		t.Errorf("default rules tag: got %#02x", buf[0])
	}
}

// fixedTag drives a union from a value known out of band rather than from
// the buffer.
type fixedTag struct {
	tag uint64
}

func (d *fixedTag) Property() string { return "kind" }

func (d *fixedTag) ReadTag(buf []byte, off int) (uint64, error) { return d.tag, nil }

func (d *fixedTag) WriteTag(tag uint64, buf []byte, off int) error { return nil }

func TestUnionPrebuiltDiscriminator(t *testing.T) {
	u, err := binlayout.NewUnion(&fixedTag{tag: 1}, nil, "body").
		AddVariant(0, binlayout.U32(), "word").
		AddVariant(1, binlayout.U16(), "half").
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if u.UsesPrefixDiscriminator() {
		t.Error("pre-built discriminator must not be a prefix")
	}

	v, err := u.Decode([]byte{0x0a, 0x00}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if half, _ := v.(*binlayout.Record).Get("half"); half != uint64(10) {
		t.Errorf("half: got %v", half)
	}
	if n, err := u.GetSpan([]byte{0x0a, 0x00}, 0); err != nil || n != 2 {
		t.Errorf("getSpan: n=%d err=%v", n, err)
	}
}

func TestVariantFromArray(t *testing.T) {
	u := positionUnion(t)

	v := u.Variant(1)
	rec := v.FromArray([]any{10, 20})
	if rec == nil {
		t.Fatal("fromArray over a struct payload should produce a record")
	}
	pos, _ := rec.Get("pos")
	if x, _ := pos.(*binlayout.Record).Get("x"); x != 10 {
		t.Errorf("x: got %v", x)
	}

	// A scalar payload is not record-producing.
	if rec := u.Variant(0).FromArray([]any{1}); rec != nil {
		t.Errorf("scalar payload fromArray: got %v", rec)
	}
}

func TestUnionBuildErrors(t *testing.T) {
	// Default layout must be fixed-span.
	if _, err := binlayout.NewUnion(binlayout.U8(), binlayout.CStr("s"), "u").Build(); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseBuild, Kind: lerrors.KindSchema}) {
		t.Errorf("variable default: want schema error, got %v", err)
	}
	// Variant payload must fit within the default layout.
	if _, err := binlayout.NewUnion(binlayout.U8(), binlayout.U16("payload"), "u").
		AddVariant(0, binlayout.U32(), "big").Build(); err == nil {
		t.Error("oversized variant: want schema error")
	}
	// Variant property colliding with the default content property.
	if _, err := binlayout.NewUnion(binlayout.U8(), binlayout.U32("content"), "u").
		AddVariant(0, binlayout.U16(), "content").Build(); err == nil {
		t.Error("content collision: want schema error")
	}
	// Duplicate tags.
	if _, err := binlayout.NewUnion(binlayout.U8(), nil, "u").
		AddVariant(3, nil, "x").AddVariant(3, nil, "y").Build(); err == nil {
		t.Error("duplicate tag: want schema error")
	}
	// Discriminator of an unsupported shape.
	if _, err := binlayout.NewUnion(binlayout.CStr(), nil, "u").Build(); err == nil {
		t.Error("cstr discriminator: want schema error")
	}
	// Payload layout without a property.
	if _, err := binlayout.NewUnion(binlayout.U8(), nil, "u").
		AddVariant(0, binlayout.U16(), "").Build(); err == nil {
		t.Error("unnamed payload: want schema error")
	}
}
