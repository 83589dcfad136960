package iter

import (
	"testing"

	"github.com/wpcore-go/wpcore/internal/wpjson"
)

func TestFromSliceNextAndReset(t *testing.T) {
	it := FromSlice([]int{1, 2, 3})
	var got []int
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		got = append(got, v.(int))
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("got %v", got)
	}
	it.Reset()
	v, ok := it.Next()
	if !ok || v.(int) != 1 {
		t.Fatalf("reset did not rewind: %v %v", v, ok)
	}
}

func TestFold(t *testing.T) {
	it := FromSlice([]int{1, 2, 3, 4})
	sum := it.Fold(func(acc, v any) (any, bool) {
		return acc.(int) + v.(int), true
	}, 0)
	if sum.(int) != 10 {
		t.Fatalf("sum = %v, want 10", sum)
	}
}

func TestFoldEarlyStop(t *testing.T) {
	it := FromSlice([]int{1, 2, 3, 4})
	sum := it.Fold(func(acc, v any) (any, bool) {
		n := acc.(int) + v.(int)
		return n, n < 3
	}, 0)
	if sum.(int) != 3 {
		t.Fatalf("sum = %v, want 3 (stop once >= 3)", sum)
	}
}

func TestFromJSONArray(t *testing.T) {
	v, _ := wpjson.Parse(`[1,2,3]`)
	it, err := FromJSON(v)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	count := 0
	for {
		_, ok := it.Next()
		if !ok {
			break
		}
		count++
	}
	if count != 3 {
		t.Fatalf("count = %d, want 3", count)
	}
}

func TestFromJSONObject(t *testing.T) {
	v, _ := wpjson.Parse(`{a: 1, b: 2}`)
	it, err := FromJSONObject(v)
	if err != nil {
		t.Fatalf("FromJSONObject: %v", err)
	}
	first, ok := it.Next()
	if !ok {
		t.Fatalf("expected first element")
	}
	kv := first.(KV)
	if kv.Key != "a" {
		t.Errorf("first key = %q, want a (order preserved)", kv.Key)
	}
}
