package props

import "testing"

func TestSetGetOrder(t *testing.T) {
	p := New()
	p.Set("b", "2")
	p.Set("a", "1")
	if got, ok := p.Get("a"); !ok || got != "1" {
		t.Fatalf("Get(a) = %q, %v", got, ok)
	}
	if got := p.Keys(); got[0] != "b" || got[1] != "a" {
		t.Errorf("Keys() = %v, want insertion order [b a]", got)
	}
}

func TestSetReportsChange(t *testing.T) {
	p := New()
	changed, _ := p.Set("k", "v")
	if !changed {
		t.Fatalf("first Set should report changed")
	}
	changed, _ = p.Set("k", "v")
	if changed {
		t.Fatalf("Set with identical value should report unchanged")
	}
	changed, _ = p.Set("k", "v2")
	if !changed {
		t.Fatalf("Set with new value should report changed")
	}
}

func TestViewIsImmutable(t *testing.T) {
	base := New()
	base.Set("k", "v")
	view := NewView(base)
	if _, err := view.Set("k", "v2"); err != ErrImmutableView {
		t.Fatalf("expected ErrImmutableView, got %v", err)
	}
	if got, _ := view.Get("k"); got != "v" {
		t.Errorf("view.Get(k) = %q, want v", got)
	}
}

func TestMatchesGlob(t *testing.T) {
	p := NewFromList("node.name", "sink-usb-1", "media.class", "Audio/Sink")
	pattern := NewFromList("node.name", "sink-*")
	if !p.Matches(pattern) {
		t.Errorf("expected glob pattern to match")
	}
	pattern2 := NewFromList("node.name", "source-*")
	if p.Matches(pattern2) {
		t.Errorf("expected glob pattern not to match")
	}
}

func TestMatchesIgnoresKeysAbsentFromReceiver(t *testing.T) {
	p := NewFromList("node.name", "sink-usb-1")
	pattern := NewFromList("node.name", "sink-*", "media.class", "Audio/Sink")
	if !p.Matches(pattern) {
		t.Errorf("keys the receiver does not carry must not constrain the match")
	}
}

func TestRemove(t *testing.T) {
	p := NewFromList("a", "1", "b", "2", "c", "3")
	_ = p.Remove("b")
	if _, ok := p.Get("b"); ok {
		t.Errorf("b should have been removed")
	}
	if got, _ := p.Get("c"); got != "3" {
		t.Errorf("c = %q, want 3 (index shift bug)", got)
	}
}
