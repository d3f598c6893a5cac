package binlayout

import (
	"fmt"

	"github.com/wippyai/binlayout/errors"
)

// Discriminator reads and writes a union's variant tag. The offset handed to
// both methods is the union's start position.
type Discriminator interface {
	Property() string
	ReadTag(buf []byte, off int) (uint64, error)
	WriteTag(tag uint64, buf []byte, off int) error
}

// prefixDiscriminator stores the tag in a plain integer leaf at the union's
// start.
type prefixDiscriminator struct {
	leaf     *UIntLayout
	property string
}

func (d *prefixDiscriminator) Property() string { return d.property }

func (d *prefixDiscriminator) ReadTag(buf []byte, off int) (uint64, error) {
	v, err := d.leaf.Decode(buf, off)
	if err != nil {
		return 0, err
	}
	return v.(uint64), nil
}

func (d *prefixDiscriminator) WriteTag(tag uint64, buf []byte, off int) error {
	_, err := d.leaf.Encode(tag, buf, off)
	return err
}

// externalDiscriminator reads the tag through an external count node; the
// tag lives outside the union's own bytes.
type externalDiscriminator struct {
	ext External
}

func (d *externalDiscriminator) Property() string { return d.ext.Property() }

func (d *externalDiscriminator) ReadTag(buf []byte, off int) (uint64, error) {
	n, err := resolveCount(d.ext, buf, off, pathTo(d.ext.Property()))
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

func (d *externalDiscriminator) WriteTag(tag uint64, buf []byte, off int) error {
	_, err := d.ext.Encode(tag, buf, off)
	return err
}

// VariantChooser infers which variant an encode source belongs to. It
// returns the chosen variant, or useDefault when the source should take the
// default-layout path. The union's DefaultSourceVariant is available for
// chaining from a replacement chooser.
type VariantChooser func(u *Union, src any) (v *VariantLayout, useDefault bool, err error)

// UnionBuilder accumulates variants and produces an immutable Union. All
// invariants (default-layout span, variant spans, property collisions) are
// checked at Build time.
type UnionBuilder struct {
	discr         any
	defaultLayout Layout
	property      string
	chooser       VariantChooser
	variants      []variantSpec
}

type variantSpec struct {
	tag      uint64
	layout   Layout
	property string
}

// NewUnionBuilder starts a union. The discriminator source takes one of
// three forms: a *UIntLayout stored as a prefix at the union's start (its
// property defaults to "variant"), an External count node locating a tag
// stored elsewhere, or a pre-built Discriminator used verbatim. The optional
// default layout, when present, must be fixed-span and makes the union
// fixed-span; unregistered tags then decode through it.
func NewUnionBuilder(discr any, defaultLayout Layout, property string) *UnionBuilder {
	return &UnionBuilder{discr: discr, defaultLayout: defaultLayout, property: property}
}

// AddVariant registers a variant under tag. A nil layout makes a tag-only
// variant; otherwise the property names the payload field in decoded
// records.
func (b *UnionBuilder) AddVariant(tag uint64, layout Layout, property string) *UnionBuilder {
	b.variants = append(b.variants, variantSpec{tag, layout, property})
	return b
}

// Chooser replaces the source-variant inference used by Encode.
func (b *UnionBuilder) Chooser(fn VariantChooser) *UnionBuilder {
	b.chooser = fn
	return b
}

// Build validates the accumulated union and produces it.
func (b *UnionBuilder) Build() (*Union, error) {
	u := &Union{
		base:          base{SpanVariable, b.property},
		defaultLayout: b.defaultLayout,
		registry:      make(map[uint64]*VariantLayout),
		chooser:       b.chooser,
	}
	if u.chooser == nil {
		u.chooser = (*Union).DefaultSourceVariant
	}

	switch d := b.discr.(type) {
	case *UIntLayout:
		prop := d.Property()
		if prop == "" {
			prop = "variant"
		}
		u.discriminator = &prefixDiscriminator{leaf: d, property: prop}
		u.usesPrefix = true
		u.prefixSpan = d.Span()
	case External:
		if !d.IsCount() {
			return nil, errors.Schema("union discriminator external must be a count")
		}
		u.discriminator = &externalDiscriminator{ext: d}
	case Discriminator:
		u.discriminator = d
	default:
		return nil, errors.Schema("union discriminator must be a *UIntLayout, a count External, or a Discriminator, got %T", b.discr)
	}

	if u.defaultLayout != nil {
		if u.defaultLayout.Span() < 0 {
			return nil, errors.Schema("union default layout must be fixed-span")
		}
		u.span = u.prefixSpan + u.defaultLayout.Span()
	}

	contentProp := u.ContentProperty()
	for _, spec := range b.variants {
		if _, dup := u.registry[spec.tag]; dup {
			return nil, errors.Schema("duplicate union variant tag %d", spec.tag)
		}
		if spec.layout != nil && spec.property == "" {
			return nil, errors.Schema("union variant %d carries a layout but no property", spec.tag)
		}
		if u.defaultLayout != nil && spec.property != "" && spec.property == contentProp {
			return nil, errors.Schema("union variant %d property %q collides with the default layout content property", spec.tag, spec.property)
		}

		vspan := SpanVariable
		if u.defaultLayout != nil {
			if spec.layout != nil {
				if spec.layout.Span() < 0 {
					return nil, errors.Schema("union variant %d must be fixed-span under a default layout", spec.tag)
				}
				if spec.layout.Span() > u.defaultLayout.Span()-u.prefixSpan {
					return nil, errors.Schema("union variant %d span %d exceeds the default layout span %d",
						spec.tag, spec.layout.Span(), u.defaultLayout.Span()-u.prefixSpan)
				}
			}
			vspan = u.span
		} else if spec.layout == nil {
			vspan = u.prefixSpan
		} else if spec.layout.Span() >= 0 {
			vspan = u.prefixSpan + spec.layout.Span()
		}

		v := &VariantLayout{
			base:  base{vspan, spec.property},
			union: u,
			tag:   spec.tag,
			inner: spec.layout,
		}
		u.registry[spec.tag] = v
		u.tags = append(u.tags, spec.tag)
	}

	// Without a default layout, variants of a common fixed span fix the
	// union's own span.
	if u.defaultLayout == nil && len(u.tags) > 0 {
		span := u.registry[u.tags[0]].Span()
		for _, tag := range u.tags[1:] {
			if u.registry[tag].Span() != span {
				span = SpanVariable
				break
			}
		}
		if span >= 0 {
			u.span = span
		}
	}

	return u, nil
}

// Union is a tagged union: a discriminator source, a registry of variants,
// and an optional fixed-span default layout used for unregistered tags.
type Union struct {
	base
	discriminator Discriminator
	usesPrefix    bool
	prefixSpan    int
	defaultLayout Layout
	registry      map[uint64]*VariantLayout
	tags          []uint64 // registration order
	chooser       VariantChooser
}

// Discriminator returns the union's discriminator source.
func (u *Union) Discriminator() Discriminator { return u.discriminator }

// UsesPrefixDiscriminator reports whether the tag is physically stored at
// the union's start.
func (u *Union) UsesPrefixDiscriminator() bool { return u.usesPrefix }

// DefaultLayout returns the fallback layout, or nil.
func (u *Union) DefaultLayout() Layout { return u.defaultLayout }

// ContentProperty returns the field name the default layout's payload
// decodes under: the default layout's own property, or "content".
func (u *Union) ContentProperty() string {
	if u.defaultLayout != nil && u.defaultLayout.Property() != "" {
		return u.defaultLayout.Property()
	}
	return "content"
}

// Variant returns the registered variant for tag, or nil.
func (u *Union) Variant(tag uint64) *VariantLayout {
	return u.registry[tag]
}

// VariantAt reads the tag at the union's position and returns the matching
// registered variant, or an unknown-variant error.
func (u *Union) VariantAt(buf []byte, off int) (*VariantLayout, error) {
	tag, err := u.discriminator.ReadTag(buf, off)
	if err != nil {
		return nil, err
	}
	v := u.registry[tag]
	if v == nil {
		return nil, errors.UnknownVariant(pathTo(u.property), tag)
	}
	return v, nil
}

func (u *Union) GetSpan(buf []byte, off int) (int, error) {
	if u.span >= 0 {
		return u.span, nil
	}
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(u.property), "union")
	}
	v, err := u.VariantAt(buf, off)
	if err != nil {
		return 0, err
	}
	return v.GetSpan(buf, off)
}

// Decode reads the tag and delegates to the registered variant. An
// unregistered tag decodes through the default layout when one exists,
// producing a record holding the tag under the discriminator property and
// the payload under the content property.
func (u *Union) Decode(buf []byte, off int) (any, error) {
	tag, err := u.discriminator.ReadTag(buf, off)
	if err != nil {
		return nil, err
	}
	if v := u.registry[tag]; v != nil {
		return v.Decode(buf, off)
	}
	if u.defaultLayout == nil {
		return nil, errors.UnknownVariant(pathTo(u.property), tag)
	}
	debugf("union %q: tag %d unregistered, decoding through default layout", u.property, tag)
	content, err := u.defaultLayout.Decode(buf, off+u.prefixSpan)
	if err != nil {
		return nil, err
	}
	dest := NewRecord()
	dest.Set(u.discriminator.Property(), tag)
	dest.Set(u.ContentProperty(), content)
	return dest, nil
}

// Encode infers the source's variant through the chooser. A source taking
// the default-layout path must carry the discriminator property and the
// content property; a source matching a registered variant is delegated to
// that variant's Encode.
func (u *Union) Encode(src any, buf []byte, off int) (int, error) {
	if !isRecordSource(src) {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(u.property), fmt.Sprintf("%T", src), "union")
	}
	v, useDefault, err := u.chooser(u, src)
	if err != nil {
		return 0, err
	}
	if !useDefault {
		if v == nil {
			return 0, errors.AmbiguousVariant(pathTo(u.property), "chooser returned no variant")
		}
		return v.Encode(src, buf, off)
	}
	if u.defaultLayout == nil {
		return 0, errors.TypeMismatch(errors.PhaseEncode, pathTo(u.property), fmt.Sprintf("%T", src), "union")
	}
	tagValue, _ := fieldOf(src, u.discriminator.Property())
	tag, ok := toUint64(tagValue)
	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseEncode, []string{u.discriminator.Property()}, fmt.Sprintf("%T", tagValue), "union tag")
	}
	if err := u.discriminator.WriteTag(tag, buf, off); err != nil {
		return 0, err
	}
	content, _ := fieldOf(src, u.ContentProperty())
	n, err := u.defaultLayout.Encode(content, buf, off+u.prefixSpan)
	if err != nil {
		return 0, err
	}
	return u.prefixSpan + n, nil
}

// DefaultSourceVariant is the built-in source-variant inference. Rules, in
// order, first match wins:
//
//  1. The source carries both the discriminator property and the default
//     content property: take the default-layout path.
//  2. The source carries the discriminator property whose value identifies a
//     registered variant, and that variant either has no payload or the
//     source carries its property: that variant.
//  3. The source lacks the discriminator property but carries exactly one
//     registered variant's property: that variant.
//
// Anything else is an ambiguous-variant error.
func (u *Union) DefaultSourceVariant(src any) (*VariantLayout, bool, error) {
	discrProp := u.discriminator.Property()
	tagValue, hasTag := fieldOf(src, discrProp)

	if hasTag {
		if u.defaultLayout != nil {
			if _, hasContent := fieldOf(src, u.ContentProperty()); hasContent {
				return nil, true, nil
			}
		}
		if tag, ok := toUint64(tagValue); ok {
			if v := u.registry[tag]; v != nil {
				if v.inner == nil {
					return v, false, nil
				}
				if _, hasPayload := fieldOf(src, v.property); hasPayload {
					return v, false, nil
				}
			}
		}
		return nil, false, errors.AmbiguousVariant(pathTo(u.property),
			fmt.Sprintf("discriminator %v does not select a usable variant", tagValue))
	}

	var match *VariantLayout
	for _, tag := range u.tags {
		v := u.registry[tag]
		if v.property == "" {
			continue
		}
		if _, has := fieldOf(src, v.property); has {
			if match != nil {
				return nil, false, errors.AmbiguousVariant(pathTo(u.property),
					fmt.Sprintf("source matches variants %q and %q", match.property, v.property))
			}
			match = v
		}
	}
	if match == nil {
		return nil, false, errors.AmbiguousVariant(pathTo(u.property), "source matches no registered variant")
	}
	return match, false, nil
}

func (u *Union) Replicate(property string) Layout {
	c := *u
	c.property = property
	return &c
}

// VariantLayout binds a numeric tag, an optional payload layout, and a
// property name to its union. Decoding wraps the payload in a record under
// the variant's property; tag-only variants decode to an empty record.
type VariantLayout struct {
	base
	union *Union
	tag   uint64
	inner Layout
}

// Tag returns the variant's discriminator value.
func (v *VariantLayout) Tag() uint64 { return v.tag }

// Inner returns the payload layout, or nil for tag-only variants.
func (v *VariantLayout) Inner() Layout { return v.inner }

func (v *VariantLayout) GetSpan(buf []byte, off int) (int, error) {
	if v.span >= 0 {
		return v.span, nil
	}
	if buf == nil {
		return 0, errors.UnresolvedSpan(pathTo(v.property), "variant")
	}
	n, err := v.inner.GetSpan(buf, off+v.union.prefixSpan)
	if err != nil {
		return 0, err
	}
	return v.union.prefixSpan + n, nil
}

func (v *VariantLayout) Decode(buf []byte, off int) (any, error) {
	dest := NewRecord()
	if v.inner != nil {
		inner, err := v.inner.Decode(buf, off+v.union.prefixSpan)
		if err != nil {
			return nil, err
		}
		dest.Set(v.property, inner)
	}
	return dest, nil
}

// Encode writes the tag through the union's discriminator and the payload
// after the prefix span. The returned count is prefix plus payload span; tag
// bytes stored outside the union by an external discriminator are excluded.
func (v *VariantLayout) Encode(src any, buf []byte, off int) (int, error) {
	if err := v.union.discriminator.WriteTag(v.tag, buf, off); err != nil {
		return 0, err
	}
	if v.inner == nil {
		return v.union.prefixSpan, nil
	}
	payload, ok := fieldOf(src, v.property)
	if !ok {
		return 0, errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
			Path(pathTo(v.property)...).
			LayoutType("variant").
			Detail("source is missing the variant property %q", v.property).
			Build()
	}
	n, err := v.inner.Encode(payload, buf, off+v.union.prefixSpan)
	if err != nil {
		return 0, err
	}
	return v.union.prefixSpan + n, nil
}

// FromArray delegates to the payload layout when it produces records.
func (v *VariantLayout) FromArray(values []any) *Record {
	if rm, ok := v.inner.(recordMaker); ok {
		dest := NewRecord()
		dest.Set(v.property, rm.FromArray(values))
		return dest
	}
	return nil
}

func (v *VariantLayout) Replicate(property string) Layout {
	c := *v
	c.property = property
	return &c
}
