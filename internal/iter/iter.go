// Package iter provides the generic iterator abstraction used to walk
// collections owned by other engine packages (properties, JSON arrays
// and objects, hook lists) without exposing their internal storage.
package iter

import "github.com/wpcore-go/wpcore/internal/wpjson"

// Iterator is a single-pass, resettable cursor over a sequence of
// values of arbitrary type.
type Iterator interface {
	// Reset rewinds the iterator to its first element.
	Reset()
	// Next advances and returns the next element; ok is false once
	// the sequence is exhausted.
	Next() (value any, ok bool)
	// Fold consumes the remainder of the iterator, threading acc
	// through fn; fn returning ok=false stops folding early and
	// Fold returns the last accumulator value produced.
	Fold(fn func(acc, v any) (next any, ok bool), acc any) any
}

// sliceIterator adapts a []any to Iterator.
type sliceIterator struct {
	items []any
	pos   int
}

// FromSlice returns an Iterator over items, copying items' interface
// values (not their pointees) so the iterator is safe even if the
// caller later appends to its own backing slice.
func FromSlice[T any](items []T) Iterator {
	boxed := make([]any, len(items))
	for i, v := range items {
		boxed[i] = v
	}
	return &sliceIterator{items: boxed}
}

func (it *sliceIterator) Reset() { it.pos = 0 }

func (it *sliceIterator) Next() (any, bool) {
	if it.pos >= len(it.items) {
		return nil, false
	}
	v := it.items[it.pos]
	it.pos++
	return v, true
}

func (it *sliceIterator) Fold(fn func(acc, v any) (any, bool), acc any) any {
	for {
		v, ok := it.Next()
		if !ok {
			return acc
		}
		next, cont := fn(acc, v)
		acc = next
		if !cont {
			return acc
		}
	}
}

// KV is one key/value pair of a JSON object, yielded by FromJSONObject.
type KV struct {
	Key   string
	Value wpjson.Value
}

// FromJSON returns an Iterator over a JSON array's elements.
func FromJSON(v wpjson.Value) (Iterator, error) {
	elems, err := v.Elements()
	if err != nil {
		return nil, err
	}
	return FromSlice(elems), nil
}

// FromJSONObject returns an Iterator over a JSON object's key/value
// pairs as KV values, in the object's original key order.
func FromJSONObject(v wpjson.Value) (Iterator, error) {
	keys, values, err := v.Properties()
	if err != nil {
		return nil, err
	}
	kvs := make([]KV, len(keys))
	for i := range keys {
		kvs[i] = KV{Key: keys[i], Value: values[i]}
	}
	return FromSlice(kvs), nil
}
