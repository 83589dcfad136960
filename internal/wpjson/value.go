// Package wpjson implements the engine's JSON value representation: an
// immutable tree that can wrap a raw byte slice and defer parsing of its
// leaves until they are actually read, plus the streaming Builder used
// to construct values. It also implements the merge and rule-application
// semantics layered on top of the value type (merge.go, rules.go).
package wpjson

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wpcore-go/wpcore/internal/wperr"
)

// Kind identifies the type a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable JSON value. The zero Value is KindNull.
//
// A Value may be "lazy": constructed by Parse from raw bytes, it defers
// splitting an array/object into elements until Elements/Properties is
// called. This mirrors the original spa-json design of walking the
// underlying buffer only as far as a caller actually needs, rather than
// building a full parse tree up front.
type Value struct {
	kind Kind

	i  int64   // payload for KindInt
	u  uint64  // payload for KindUint
	f  float64 // payload for KindFloat
	s  string  // string payload
	bo bool

	raw      string // non-empty for a lazy array/object not yet split
	elements []Value
	keys     []string
	values   []Value
}

// Null is the canonical null value.
var Null = Value{kind: KindNull}

func Bool(b bool) Value { return Value{kind: KindBool, bo: b} }
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Uint builds a KindUint value, the engine's unsigned 64-bit scalar
// kind — kept distinct from KindInt rather than coerced through
// float64 so values above 2^53 (and all of uint64's range above
// math.MaxInt64) round-trip exactly.
func Uint(u uint64) Value   { return Value{kind: KindUint, u: u} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array builds an eager array value from elements.
func Array(elements ...Value) Value {
	return Value{kind: KindArray, elements: append([]Value(nil), elements...)}
}

// Object builds an eager object value from parallel key/value slices.
// The caller is responsible for keeping keys ordered; duplicate keys are
// preserved in order, matching JSON object semantics where the last
// occurrence wins on lookup.
func Object(keys []string, values []Value) Value {
	return Value{kind: KindObject, keys: append([]string(nil), keys...), values: append([]Value(nil), values...)}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.bo, true
}

func (v Value) AsInt64() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindUint:
		return int64(v.u), true
	case KindFloat:
		return int64(v.f), true
	default:
		return 0, false
	}
}

// AsUint64 returns a KindUint value's payload, or a non-negative
// KindInt's value widened to uint64. KindFloat is intentionally excluded:
// the engine never needs a lossy float-to-uint64 coercion.
func (v Value) AsUint64() (uint64, bool) {
	switch v.kind {
	case KindUint:
		return v.u, true
	case KindInt:
		if v.i < 0 {
			return 0, false
		}
		return uint64(v.i), true
	default:
		return 0, false
	}
}

func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindUint:
		return float64(v.u), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Elements returns an array value's members, parsing the lazy raw form
// on first access.
func (v *Value) Elements() ([]Value, error) {
	if v.kind != KindArray {
		return nil, wperr.Withf(wperr.KindInvalidArgument, "Elements", "value is %s, not array", v.kind)
	}
	if v.raw != "" && v.elements == nil {
		if err := v.splitContainer(); err != nil {
			return nil, err
		}
	}
	return v.elements, nil
}

// Properties returns an object value's ordered key/value pairs, parsing
// the lazy raw form on first access.
func (v *Value) Properties() ([]string, []Value, error) {
	if v.kind != KindObject {
		return nil, nil, wperr.Withf(wperr.KindInvalidArgument, "Properties", "value is %s, not object", v.kind)
	}
	if v.raw != "" && v.keys == nil {
		if err := v.splitContainer(); err != nil {
			return nil, nil, err
		}
	}
	return v.keys, v.values, nil
}

// Lookup returns the last value associated with key in an object value.
func (v *Value) Lookup(key string) (Value, bool, error) {
	keys, values, err := v.Properties()
	if err != nil {
		return Value{}, false, err
	}
	found := false
	var out Value
	for i, k := range keys {
		if k == key {
			out = values[i]
			found = true
		}
	}
	return out, found, nil
}

func (v *Value) splitContainer() error {
	p := &parser{s: v.raw}
	var keys []string
	var values []Value
	var elements []Value
	for {
		p.skipSpaceAndComments()
		if p.atEnd() || p.peek() == '}' || p.peek() == ']' {
			break
		}
		if v.kind == KindObject {
			key, err := p.parseRawToken()
			if err != nil {
				return err
			}
			ks, err := unquoteOrLiteral(key)
			if err != nil {
				return err
			}
			p.skipSpaceAndComments()
			if !p.consumeIf(':') {
				p.consumeIf('=')
			}
			p.skipSpaceAndComments()
			val, err := p.parseValue()
			if err != nil {
				return err
			}
			keys = append(keys, ks)
			values = append(values, val)
		} else {
			val, err := p.parseValue()
			if err != nil {
				return err
			}
			elements = append(elements, val)
		}
		p.skipSpaceAndComments()
		p.consumeIf(',')
	}
	v.keys = keys
	v.values = values
	v.elements = elements
	return nil
}

// String renders the value back to compact JSON text.
func (v Value) String() string {
	var sb strings.Builder
	v.writeTo(&sb)
	return sb.String()
}

func (v Value) writeTo(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		if v.bo {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindUint:
		sb.WriteString(strconv.FormatUint(v.u, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'f', 6, 64))
	case KindString:
		writeJSONString(sb, v.s)
	case KindArray:
		if v.raw != "" && v.elements == nil {
			clone := v
			_ = clone.splitContainer()
			v = clone
		}
		sb.WriteByte('[')
		for i, e := range v.elements {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.writeTo(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		if v.raw != "" && v.keys == nil {
			clone := v
			_ = clone.splitContainer()
			v = clone
		}
		sb.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			writeJSONString(sb, k)
			sb.WriteByte(':')
			v.values[i].writeTo(sb)
		}
		sb.WriteByte('}')
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 {
				fmt.Fprintf(sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
}
