package wpjson

import "github.com/wpcore-go/wpcore/internal/wperr"

// Builder constructs a Value via a stack of open containers, mirroring
// wp_spa_json_builder's begin/add/end protocol. A Builder is not safe
// for concurrent use.
type Builder struct {
	stack []frame
}

type frame struct {
	kind     Kind
	keys     []string
	values   []Value
	elements []Value
	pendingKey *string
}

// NewBuilder returns an empty Builder ready to add top-level values.
func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) top() *frame {
	if len(b.stack) == 0 {
		return nil
	}
	return &b.stack[len(b.stack)-1]
}

// BeginObject opens a new object container on the stack.
func (b *Builder) BeginObject() { b.stack = append(b.stack, frame{kind: KindObject}) }

// BeginArray opens a new array container on the stack.
func (b *Builder) BeginArray() { b.stack = append(b.stack, frame{kind: KindArray}) }

// AddProperty records the key for the next Add* call within the
// currently open object. It is an error to call it outside an object
// or before the previous property received a value.
func (b *Builder) AddProperty(key string) error {
	f := b.top()
	if f == nil || f.kind != KindObject {
		return wperr.Withf(wperr.KindValidation, "AddProperty", "not inside an object")
	}
	if f.pendingKey != nil {
		return wperr.Withf(wperr.KindValidation, "AddProperty", "property %q has no value yet", *f.pendingKey)
	}
	k := key
	f.pendingKey = &k
	return nil
}

func (b *Builder) addValue(v Value) error {
	f := b.top()
	if f == nil {
		return wperr.Withf(wperr.KindValidation, "Builder", "no open container")
	}
	switch f.kind {
	case KindArray:
		f.elements = append(f.elements, v)
	case KindObject:
		if f.pendingKey == nil {
			return wperr.Withf(wperr.KindValidation, "Builder", "value added without a preceding AddProperty")
		}
		f.keys = append(f.keys, *f.pendingKey)
		f.values = append(f.values, v)
		f.pendingKey = nil
	default:
		return wperr.Withf(wperr.KindValidation, "Builder", "open frame is not a container")
	}
	return nil
}

func (b *Builder) AddNull() error             { return b.addValue(Null) }
func (b *Builder) AddBool(v bool) error       { return b.addValue(Bool(v)) }
func (b *Builder) AddInt64(v int64) error     { return b.addValue(Int(v)) }
func (b *Builder) AddUint64(v uint64) error   { return b.addValue(Uint(v)) }
func (b *Builder) AddFloat64(v float64) error { return b.addValue(Float(v)) }
func (b *Builder) AddString(v string) error   { return b.addValue(String(v)) }
func (b *Builder) AddValue(v Value) error     { return b.addValue(v) }

// End closes the innermost open container and either returns the
// completed Value (if the stack is now empty) or folds it into its
// parent container as the next element/property value.
func (b *Builder) End() (Value, error) {
	n := len(b.stack)
	if n == 0 {
		return Value{}, wperr.Withf(wperr.KindValidation, "End", "no open container")
	}
	f := b.stack[n-1]
	if f.kind == KindObject && f.pendingKey != nil {
		return Value{}, wperr.Withf(wperr.KindValidation, "End", "property %q has no value", *f.pendingKey)
	}
	var v Value
	switch f.kind {
	case KindObject:
		v = Object(f.keys, f.values)
	case KindArray:
		v = Array(f.elements...)
	}
	b.stack = b.stack[:n-1]
	if len(b.stack) == 0 {
		return v, nil
	}
	if err := b.addValue(v); err != nil {
		return Value{}, err
	}
	return Value{}, nil
}

// ObjectGet extracts multiple keys from an object value in one call,
// mirroring wp_spa_json_object_get: keysAndOuts is a flat
// (key string, out *T) sequence; ObjectGet reports whether every key
// was present and successfully coerced into its out pointer's type.
func ObjectGet(v *Value, keysAndOuts ...any) (bool, error) {
	if len(keysAndOuts)%2 != 0 {
		return false, wperr.Withf(wperr.KindValidation, "ObjectGet", "keysAndOuts must be (key, out) pairs")
	}
	all := true
	for i := 0; i < len(keysAndOuts); i += 2 {
		key, ok := keysAndOuts[i].(string)
		if !ok {
			return false, wperr.Withf(wperr.KindValidation, "ObjectGet", "key at position %d is not a string", i)
		}
		val, found, err := v.Lookup(key)
		if err != nil {
			return false, err
		}
		if !found {
			all = false
			continue
		}
		if !assignOut(val, keysAndOuts[i+1]) {
			all = false
		}
	}
	return all, nil
}

func assignOut(v Value, out any) bool {
	switch o := out.(type) {
	case *string:
		s, ok := v.AsString()
		if ok {
			*o = s
		}
		return ok
	case *bool:
		b, ok := v.AsBool()
		if ok {
			*o = b
		}
		return ok
	case *int64:
		i, ok := v.AsInt64()
		if ok {
			*o = i
		}
		return ok
	case *uint64:
		u, ok := v.AsUint64()
		if ok {
			*o = u
		}
		return ok
	case *float64:
		f, ok := v.AsFloat64()
		if ok {
			*o = f
		}
		return ok
	case *Value:
		*o = v
		return true
	default:
		return false
	}
}
