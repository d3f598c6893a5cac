package binlayout

import (
	"github.com/wippyai/binlayout/errors"
)

// GreedyLayout is an external count node that interprets "how many elements
// fit in the remainder of the buffer" as an integer. It occupies no space of
// its own: Encode is a no-op and GetSpan is 0.
type GreedyLayout struct {
	base
	elemSpan int
}

// NewGreedy constructs a greedy count over elements of elemSpan bytes.
func NewGreedy(elemSpan int, property string) (*GreedyLayout, error) {
	if elemSpan <= 0 {
		return nil, errors.Schema("greedy element span must be positive, got %d", elemSpan)
	}
	return &GreedyLayout{base{0, property}, elemSpan}, nil
}

// Decode returns floor((len(buf) - off) / elemSpan).
func (l *GreedyLayout) Decode(buf []byte, off int) (any, error) {
	if off < 0 || off > len(buf) {
		return nil, errors.ShortBuffer(errors.PhaseDecode, pathTo(l.property), 0, len(buf)-off)
	}
	return (len(buf) - off) / l.elemSpan, nil
}

func (l *GreedyLayout) Encode(src any, buf []byte, off int) (int, error) {
	return 0, nil
}

func (l *GreedyLayout) GetSpan(buf []byte, off int) (int, error) {
	return 0, nil
}

func (l *GreedyLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

func (l *GreedyLayout) IsCount() bool { return true }

// OffsetLayout redirects a target layout to a signed relative offset from the
// consumer's base position, enabling forward, backward, or internal
// references. Decode reads the foreign position; Encode writes it.
type OffsetLayout struct {
	base
	target Layout
	offset int
}

// NewOffset wraps target at relative offset k. The property defaults to the
// target's own property.
func NewOffset(target Layout, k int, property string) (*OffsetLayout, error) {
	if target == nil {
		return nil, errors.Schema("offset layout requires a target")
	}
	if property == "" {
		property = target.Property()
	}
	return &OffsetLayout{base{target.Span(), property}, target, k}, nil
}

func (l *OffsetLayout) Decode(buf []byte, off int) (any, error) {
	return l.target.Decode(buf, off+l.offset)
}

func (l *OffsetLayout) Encode(src any, buf []byte, off int) (int, error) {
	return l.target.Encode(src, buf, off+l.offset)
}

func (l *OffsetLayout) GetSpan(buf []byte, off int) (int, error) {
	return l.target.GetSpan(buf, off+l.offset)
}

func (l *OffsetLayout) Replicate(property string) Layout {
	c := *l
	c.property = property
	return &c
}

// IsCount mirrors the wrapped layout's count status.
func (l *OffsetLayout) IsCount() bool {
	return isCountLayout(l.target)
}
