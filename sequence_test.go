package binlayout_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/wippyai/binlayout"
	lerrors "github.com/wippyai/binlayout/errors"
)

func TestSequenceFixedCount(t *testing.T) {
	s := binlayout.Seq(binlayout.U16(), 3, "items")
	if s.Span() != 6 {
		t.Fatalf("span: got %d, want 6", s.Span())
	}

	buf := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	v, err := s.Decode(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	want := []any{uint64(1), uint64(2), uint64(3)}
	if !reflect.DeepEqual(v, want) {
		t.Errorf("decode: got %v, want %v", v, want)
	}

	out := make([]byte, 6)
	n, err := s.Encode([]any{10, 20, 30}, out, 0)
	if err != nil || n != 6 {
		t.Fatalf("encode: n=%d err=%v", n, err)
	}
	if !bytes.Equal(out, []byte{0x0a, 0x00, 0x14, 0x00, 0x1e, 0x00}) {
		t.Errorf("encode: got % x", out)
	}

	// Extra source elements past the fixed count are dropped.
	out = make([]byte, 6)
	n, err = s.Encode([]uint16{1, 2, 3, 4, 5}, out, 0)
	if err != nil || n != 6 {
		t.Fatalf("extra elements: n=%d err=%v", n, err)
	}

	// Missing elements leave the corresponding bytes unmodified.
	out = []byte{0xaa, 0xaa, 0xbb, 0xbb, 0xcc, 0xcc}
	n, err = s.Encode([]any{7}, out, 0)
	if err != nil || n != 2 {
		t.Fatalf("partial: n=%d err=%v", n, err)
	}
	if !bytes.Equal(out, []byte{0x07, 0x00, 0xbb, 0xbb, 0xcc, 0xcc}) {
		t.Errorf("partial: got % x", out)
	}
}

func TestSequenceExternalCount(t *testing.T) {
	// struct[u8 n; seq(u16, offset(u8, -1)) items]: the count layout
	// references the n field one byte before the sequence.
	s := binlayout.Struct([]binlayout.Layout{
		binlayout.U8("n"),
		binlayout.Seq(binlayout.U16(), binlayout.Offset(binlayout.U8(), -1), "items"),
	}, "packet", false)

	buf := make([]byte, 7)
	src := map[string]any{"items": []any{0x0102, 0x0304, 0x0506}}
	n, err := s.Encode(src, buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if n != 7 {
		t.Errorf("encode count: got %d, want 7", n)
	}
	want := []byte{0x03, 0x02, 0x01, 0x04, 0x03, 0x06, 0x05}
	if !bytes.Equal(buf, want) {
		t.Errorf("encode: got % x, want % x", buf, want)
	}

	v, err := s.Decode(want, 0)
	if err != nil {
		t.Fatal(err)
	}
	rec := v.(*binlayout.Record)
	if cnt, _ := rec.Get("n"); cnt != uint64(3) {
		t.Errorf("n: got %v", cnt)
	}
	items, _ := rec.Get("items")
	if !reflect.DeepEqual(items, []any{uint64(0x0102), uint64(0x0304), uint64(0x0506)}) {
		t.Errorf("items: got %v", items)
	}
}

func TestSequenceGreedyCount(t *testing.T) {
	s := binlayout.Seq(binlayout.U16(), binlayout.Greedy(2), "rest")

	buf := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0xff}
	v, err := s.Decode(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{uint64(1), uint64(2), uint64(3)}) {
		t.Errorf("greedy decode: got %v", v)
	}

	n, err := s.GetSpan(buf, 1)
	if err != nil || n != 6 {
		t.Fatalf("greedy getSpan at 1: n=%d err=%v", n, err)
	}
}

func TestSequenceVariableElements(t *testing.T) {
	s := binlayout.Seq(binlayout.CStr(), 2, "names")
	if s.Span() != binlayout.SpanVariable {
		t.Fatalf("span should be variable")
	}

	buf := []byte{'a', 'b', 0x00, 'c', 0x00}
	n, err := s.GetSpan(buf, 0)
	if err != nil || n != 5 {
		t.Fatalf("getSpan: n=%d err=%v", n, err)
	}

	v, err := s.Decode(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []any{"ab", "c"}) {
		t.Errorf("decode: got %v", v)
	}

	out := make([]byte, 5)
	n, err = s.Encode([]string{"ab", "c"}, out, 0)
	if err != nil || n != 5 {
		t.Fatalf("encode: n=%d err=%v", n, err)
	}
	if !bytes.Equal(out, buf) {
		t.Errorf("encode: got % x", out)
	}
}

func TestSequenceSchemaErrors(t *testing.T) {
	if _, err := binlayout.NewSequence(binlayout.U8(), -1, ""); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseBuild, Kind: lerrors.KindSchema}) {
		t.Errorf("negative count: want schema error, got %v", err)
	}
	if _, err := binlayout.NewSequenceExternal(binlayout.U8(), binlayout.Offset(binlayout.CStr(), -4), ""); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseBuild, Kind: lerrors.KindSchema}) {
		t.Errorf("non-count external: want schema error, got %v", err)
	}
	if _, err := binlayout.NewSequence(nil, 1, ""); err == nil {
		t.Error("nil element: want schema error")
	}
}

func TestSequenceEncodeTypeMismatch(t *testing.T) {
	s := binlayout.Seq(binlayout.U8(), 2, "xs")
	if _, err := s.Encode(42, nil, 0); !errors.Is(err, &lerrors.Error{Phase: lerrors.PhaseEncode, Kind: lerrors.KindTypeMismatch}) {
		t.Errorf("want type error, got %v", err)
	}
}
