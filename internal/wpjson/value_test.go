package wpjson

import (
	"math"
	"testing"
)

func TestParseScalarAndRoundtrip(t *testing.T) {
	cases := []struct{ in, want string }{
		{`null`, `null`},
		{`true`, `true`},
		{`"hi"`, `"hi"`},
		{`42`, `42`},
		{`3.5`, `3.500000`},
	}
	for _, c := range cases {
		v, err := Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", c.in, err)
		}
		if got := v.String(); got != c.want {
			t.Errorf("Parse(%q).String() = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestParseRelaxedObject(t *testing.T) {
	v, err := Parse(`{ foo: bar # a comment
	    count: 3
	}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, found, err := v.Lookup("foo")
	if err != nil || !found {
		t.Fatalf("Lookup(foo) = %v, %v, %v", s, found, err)
	}
	if got, _ := s.AsString(); got != "bar" {
		t.Errorf("foo = %q, want bar", got)
	}
	cnt, found, err := v.Lookup("count")
	if err != nil || !found {
		t.Fatalf("Lookup(count) failed: %v %v", found, err)
	}
	if n, _ := cnt.AsInt64(); n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestElementsLazy(t *testing.T) {
	v, err := Parse(`[1, 2, "three"]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	elems, err := v.Elements()
	if err != nil {
		t.Fatalf("Elements: %v", err)
	}
	if len(elems) != 3 {
		t.Fatalf("len(elems) = %d, want 3", len(elems))
	}
	if s, _ := elems[2].AsString(); s != "three" {
		t.Errorf("elems[2] = %q, want three", s)
	}
}

func TestBuilderObjectAndArray(t *testing.T) {
	b := NewBuilder()
	b.BeginObject()
	_ = b.AddProperty("a")
	_ = b.AddInt64(1)
	_ = b.AddProperty("b")
	b.BeginArray()
	_ = b.AddString("x")
	_ = b.AddString("y")
	if _, err := b.End(); err != nil {
		t.Fatalf("End (array): %v", err)
	}
	v, err := b.End()
	if err != nil {
		t.Fatalf("End (object): %v", err)
	}
	want := `{"a":1,"b":["x","y"]}`
	if got := v.String(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestUint64RoundTripsBeyondFloat64Precision(t *testing.T) {
	b := NewBuilder()
	b.BeginObject()
	_ = b.AddProperty("big")
	_ = b.AddUint64(math.MaxUint64)
	v, err := b.End()
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	got, found, err := v.Lookup("big")
	if err != nil || !found {
		t.Fatalf("Lookup(big) = %v, %v, %v", got, found, err)
	}
	u, ok := got.AsUint64()
	if !ok || u != math.MaxUint64 {
		t.Fatalf("AsUint64() = %d, %v, want %d", u, ok, uint64(math.MaxUint64))
	}

	reparsed, err := Parse(v.String())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	big, found, err := reparsed.Lookup("big")
	if err != nil || !found {
		t.Fatalf("Lookup(big) after reparse = %v, %v, %v", big, found, err)
	}
	if u2, ok := big.AsUint64(); !ok || u2 != math.MaxUint64 {
		t.Fatalf("reparsed uint64 = %d, %v, want %d", u2, ok, uint64(math.MaxUint64))
	}
}

func TestObjectGet(t *testing.T) {
	v, err := Parse(`{name: "core", ready: true, n: 7}`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var name string
	var ready bool
	var n int64
	ok, err := ObjectGet(&v, "name", &name, "ready", &ready, "n", &n)
	if err != nil {
		t.Fatalf("ObjectGet: %v", err)
	}
	if !ok || name != "core" || !ready || n != 7 {
		t.Errorf("got ok=%v name=%q ready=%v n=%d", ok, name, ready, n)
	}
}
