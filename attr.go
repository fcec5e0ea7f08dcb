package gesture

import "fmt"

// Attr is an immutable (name, type, value) triple attached to a touch,
// device, gesture class, frame or event. Attrs are owned by their parent
// object and are only ever read by consumers.
type Attr struct {
	name string
	typ  AttrType
	b    bool
	f    float64
	i    int64
	s    string
	p    any
}

// BoolAttr builds a boolean attribute.
func BoolAttr(name string, v bool) Attr { return Attr{name: name, typ: AttrBoolean, b: v} }

// FloatAttr builds a real-valued attribute.
func FloatAttr(name string, v float64) Attr { return Attr{name: name, typ: AttrFloat, f: v} }

// IntAttr builds an integer attribute.
func IntAttr(name string, v int64) Attr { return Attr{name: name, typ: AttrInteger, i: v} }

// StringAttr builds a string attribute.
func StringAttr(name string, v string) Attr { return Attr{name: name, typ: AttrString, s: v} }

// PointerAttr builds an attribute referring to an engine object.
func PointerAttr(name string, v any) Attr { return Attr{name: name, typ: AttrPointer, p: v} }

// MakeAttr converts a Go value into an attribute. Supported kinds are bool,
// all integer kinds, float32, float64 and string; anything else fails with
// ErrBadArgument.
func MakeAttr(name string, v any) (Attr, error) {
	switch x := v.(type) {
	case bool:
		return BoolAttr(name, x), nil
	case int:
		return IntAttr(name, int64(x)), nil
	case int8:
		return IntAttr(name, int64(x)), nil
	case int16:
		return IntAttr(name, int64(x)), nil
	case int32:
		return IntAttr(name, int64(x)), nil
	case int64:
		return IntAttr(name, x), nil
	case uint:
		return IntAttr(name, int64(x)), nil
	case uint8:
		return IntAttr(name, int64(x)), nil
	case uint16:
		return IntAttr(name, int64(x)), nil
	case uint32:
		return IntAttr(name, int64(x)), nil
	case uint64:
		return IntAttr(name, int64(x)), nil
	case float32:
		return FloatAttr(name, float64(x)), nil
	case float64:
		return FloatAttr(name, x), nil
	case string:
		return StringAttr(name, x), nil
	default:
		return Attr{}, fmt.Errorf("%w: attribute %q has unsupported value type %T", ErrBadArgument, name, v)
	}
}

// Name returns the attribute name.
func (a Attr) Name() string { return a.name }

// Type returns the value type tag.
func (a Attr) Type() AttrType { return a.typ }

// Bool returns the boolean value, or false if the attr is not boolean.
func (a Attr) Bool() bool { return a.b }

// Float returns the real value, or 0 if the attr is not a float.
func (a Attr) Float() float64 { return a.f }

// Int returns the integer value, or 0 if the attr is not an integer.
func (a Attr) Int() int64 { return a.i }

// StringValue returns the string value, or "" if the attr is not a string.
func (a Attr) StringValue() string { return a.s }

// Pointer returns the referenced object, or nil if the attr is not a pointer.
func (a Attr) Pointer() any { return a.p }

// Value returns the value as an untyped Go value.
func (a Attr) Value() any {
	switch a.typ {
	case AttrBoolean:
		return a.b
	case AttrFloat:
		return a.f
	case AttrInteger:
		return a.i
	case AttrString:
		return a.s
	case AttrPointer:
		return a.p
	default:
		return nil
	}
}

// compare evaluates "a op v" where v is a term value of the same type.
// Mismatched types fail with ErrTypeMismatch.
func (a Attr) compare(op Op, v Attr) (bool, error) {
	if a.typ != v.typ {
		return false, fmt.Errorf("%w: %q is %s, term value is %s", ErrTypeMismatch, a.name, a.typ, v.typ)
	}
	var c int
	switch a.typ {
	case AttrBoolean:
		switch op {
		case OpEQ:
			return a.b == v.b, nil
		case OpNE:
			return a.b != v.b, nil
		default:
			return false, fmt.Errorf("%w: ordering %s on boolean %q", ErrTypeMismatch, op, a.name)
		}
	case AttrInteger:
		c = cmp3(a.i < v.i, a.i > v.i)
	case AttrFloat:
		c = cmp3(a.f < v.f, a.f > v.f)
	case AttrString:
		c = cmp3(a.s < v.s, a.s > v.s)
	default:
		return false, fmt.Errorf("%w: %q of type %s is not comparable", ErrTypeMismatch, a.name, a.typ)
	}
	switch op {
	case OpEQ:
		return c == 0, nil
	case OpNE:
		return c != 0, nil
	case OpGT:
		return c > 0, nil
	case OpGE:
		return c >= 0, nil
	case OpLT:
		return c < 0, nil
	case OpLE:
		return c <= 0, nil
	}
	return false, fmt.Errorf("%w: unknown operator %d", ErrBadArgument, op)
}

func cmp3(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	}
	return 0
}

// Attrs is an ordered attribute list.
type Attrs []Attr

// ByName returns the first attribute with the given name.
func (l Attrs) ByName(name string) (Attr, bool) {
	for _, a := range l {
		if a.name == name {
			return a, true
		}
	}
	return Attr{}, false
}

// Len returns the number of attributes.
func (l Attrs) Len() int { return len(l) }

// At returns the i'th attribute; ok is false when i is out of range.
func (l Attrs) At(i int) (Attr, bool) {
	if i < 0 || i >= len(l) {
		return Attr{}, false
	}
	return l[i], true
}
