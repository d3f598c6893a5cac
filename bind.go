package binlayout

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/wippyai/binlayout/errors"
)

// Bound couples a user-defined struct type with a record-producing layout so
// values construct and destructure symmetrically: Decode fills a fresh T from
// the decoded record, Encode destructures a T into a record and writes it.
//
// The layout's properties drive the mapping. Each property binds to the
// struct field whose `layout:"name"` tag matches it exactly, or, absent a
// tag, whose name matches it case-insensitively. Properties with no matching
// field stay unbound: they are dropped on decode and left absent on encode,
// which preserves their bytes. Fields tagged `layout:"-"` and unexported
// fields never bind.
type Bound[T any] struct {
	layout Layout
	props  []boundProp
	index  map[string]int // property -> field index
}

type boundProp struct {
	name  string
	field int
}

// Bind couples T, which must be a struct type, with a record-producing
// layout (a structure, a bit structure, or a variant wrapping one).
func Bind[T any](layout Layout) (*Bound[T], error) {
	if layout == nil {
		return nil, errors.Schema("bind requires a layout")
	}
	props := recordProperties(layout)
	if props == nil {
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			LayoutType(fmt.Sprintf("%T", layout)).
			Detail("bound layout must produce records").
			Build()
	}
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if rt.Kind() != reflect.Struct {
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			GoType(rt.String()).
			Detail("bound type must be a struct").
			Build()
	}

	b := &Bound[T]{layout: layout, index: make(map[string]int)}
	for _, prop := range props {
		idx, ok := matchField(rt, prop)
		if !ok {
			continue
		}
		b.props = append(b.props, boundProp{name: prop, field: idx})
		b.index[prop] = idx
	}
	return b, nil
}

// Layout returns the bound layout.
func (b *Bound[T]) Layout() Layout {
	return b.layout
}

// Decode decodes the bytes at off into a fresh T.
func (b *Bound[T]) Decode(buf []byte, off int) (T, error) {
	var out T
	v, err := b.layout.Decode(buf, off)
	if err != nil {
		return out, err
	}
	rec, ok := v.(*Record)
	if !ok {
		return out, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			GoType(fmt.Sprintf("%T", v)).
			Detail("bound layout must decode to a record").
			Build()
	}
	rv := reflect.ValueOf(&out).Elem()
	for _, key := range rec.Keys() {
		idx, bound := b.index[key]
		if !bound {
			continue
		}
		fv, _ := rec.Get(key)
		if err := assignValue(rv.Field(idx), fv, key); err != nil {
			return out, err
		}
	}
	return out, nil
}

// Encode destructures src into a record and writes it at off. Only bound
// properties appear in the record, so bytes of unbound fields survive.
func (b *Bound[T]) Encode(src T, buf []byte, off int) (int, error) {
	rv := reflect.ValueOf(src)
	rec := NewRecord()
	for _, p := range b.props {
		v, err := fieldValue(rv.Field(p.field), p.name)
		if err != nil {
			return 0, err
		}
		rec.Set(p.name, v)
	}
	return b.layout.Encode(rec, buf, off)
}

// recordProperties lists the record keys a layout produces, or nil for
// non-record layouts.
func recordProperties(l Layout) []string {
	var props []string
	switch t := l.(type) {
	case *Structure:
		for _, fld := range t.Fields() {
			if fld.Property() != "" {
				props = append(props, fld.Property())
			}
		}
	case *BitStructure:
		for _, f := range t.Fields() {
			if f.Property() != "" {
				props = append(props, f.Property())
			}
		}
	case *VariantLayout:
		if t.Property() != "" {
			props = append(props, t.Property())
		}
	default:
		return nil
	}
	return props
}

func matchField(rt reflect.Type, prop string) (int, bool) {
	untagged := -1
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get("layout")
		if tag == "-" {
			continue
		}
		if tag == prop {
			return i, true
		}
		if tag == "" && untagged < 0 && strings.EqualFold(f.Name, prop) {
			untagged = i
		}
	}
	if untagged >= 0 {
		return untagged, true
	}
	return -1, false
}

func assignValue(dst reflect.Value, v any, path string) error {
	switch dst.Kind() {
	case reflect.Bool:
		b, ok := v.(bool)
		if !ok {
			n, okn := toUint64(v)
			if !okn {
				return bindMismatch(path, v, dst.Type())
			}
			b = n != 0
		}
		dst.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, ok := toInt64(v)
		if !ok || dst.OverflowInt(n) {
			return bindMismatch(path, v, dst.Type())
		}
		dst.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := toUint64(v)
		if !ok || dst.OverflowUint(n) {
			return bindMismatch(path, v, dst.Type())
		}
		dst.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat64(v)
		if !ok {
			return bindMismatch(path, v, dst.Type())
		}
		dst.SetFloat(f)

	case reflect.String:
		s, ok := v.(string)
		if !ok {
			return bindMismatch(path, v, dst.Type())
		}
		dst.SetString(s)

	case reflect.Slice:
		if b, ok := v.([]byte); ok && dst.Type().Elem().Kind() == reflect.Uint8 {
			out := make([]byte, len(b))
			copy(out, b)
			dst.SetBytes(out)
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			return bindMismatch(path, v, dst.Type())
		}
		out := reflect.MakeSlice(dst.Type(), len(items), len(items))
		for i, item := range items {
			if err := assignValue(out.Index(i), item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		dst.Set(out)

	case reflect.Struct:
		rec, ok := v.(*Record)
		if !ok {
			return bindMismatch(path, v, dst.Type())
		}
		for _, key := range rec.Keys() {
			idx, bound := matchField(dst.Type(), key)
			if !bound {
				continue
			}
			fv, _ := rec.Get(key)
			if err := assignValue(dst.Field(idx), fv, path+"."+key); err != nil {
				return err
			}
		}

	default:
		return bindMismatch(path, v, dst.Type())
	}
	return nil
}

// fieldValue destructures one struct field into an encode-source value.
// Nested structs become records keyed by tag, or lower-cased field name when
// untagged.
func fieldValue(v reflect.Value, path string) (any, error) {
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return v.Interface(), nil

	case reflect.Slice:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return v.Interface(), nil
		}
		out := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			item, err := fieldValue(v.Index(i), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out[i] = item
		}
		return out, nil

	case reflect.Struct:
		rec := NewRecord()
		rt := v.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			tag := f.Tag.Get("layout")
			if tag == "-" {
				continue
			}
			name := tag
			if name == "" {
				name = strings.ToLower(f.Name)
			}
			fv, err := fieldValue(v.Field(i), path+"."+name)
			if err != nil {
				return nil, err
			}
			rec.Set(name, fv)
		}
		return rec, nil

	default:
		return nil, errors.New(errors.PhaseBind, errors.KindTypeMismatch).
			Path(path).
			GoType(v.Type().String()).
			Detail("unsupported field kind %s", v.Kind()).
			Build()
	}
}

func bindMismatch(path string, v any, want reflect.Type) error {
	return errors.New(errors.PhaseBind, errors.KindTypeMismatch).
		Path(path).
		GoType(fmt.Sprintf("%T", v)).
		Detail("cannot assign to %s", want).
		Build()
}
