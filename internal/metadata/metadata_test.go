package metadata

import (
	"context"
	"testing"
	"time"
)

func TestLocalSetFindClear(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	if err := l.Set(ctx, "node:1", "priority", "int", "10"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	v, typ, ok, err := l.Find(ctx, "node:1", "priority")
	if err != nil || !ok || v != "10" || typ != "int" {
		t.Fatalf("Find = %q %q %v %v", v, typ, ok, err)
	}
	if err := l.Clear(ctx, "node:1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	_, _, ok, _ = l.Find(ctx, "node:1", "priority")
	if ok {
		t.Errorf("expected entry to be cleared")
	}
}

func TestLocalSetEmptyValueRemoves(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	_ = l.Set(ctx, "s", "k", "string", "v")
	_ = l.Set(ctx, "s", "k", "", "")
	_, _, ok, _ := l.Find(ctx, "s", "k")
	if ok {
		t.Errorf("setting empty value should remove the entry")
	}
}

func TestLocalSubscribeReceivesChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLocal()
	changes := l.Subscribe(ctx)

	_ = l.Set(ctx, "s", "k", "string", "v1")

	select {
	case c := <-changes:
		if c.Subject != "s" || c.Key != "k" || c.Value != "v1" {
			t.Errorf("unexpected change: %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change notification")
	}
}

func TestLocalIterKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	l := NewLocal()
	_ = l.Set(ctx, "30", "target.node", "string", "sink-a")
	_ = l.Set(ctx, GlobalScope, "default.audio.sink", "string", "sink-a")
	_ = l.Set(ctx, "30", "volume", "float", "0.5")

	it, err := l.Iter(ctx, "30")
	if err != nil {
		t.Fatalf("Iter: %v", err)
	}
	var keys []string
	for {
		v, ok := it.Next()
		if !ok {
			break
		}
		keys = append(keys, v.(Entry).Key)
	}
	if len(keys) != 2 || keys[0] != "target.node" || keys[1] != "volume" {
		t.Errorf("keys = %v, want insertion order [target.node volume]", keys)
	}

	all, err := l.Iter(ctx, "")
	if err != nil {
		t.Fatalf("Iter(all): %v", err)
	}
	n := 0
	for {
		if _, ok := all.Next(); !ok {
			break
		}
		n++
	}
	if n != 3 {
		t.Errorf("unspecified subject should iterate every entry, got %d", n)
	}
}
