package module

import "testing"

func TestSplitRequirement(t *testing.T) {
	name, constraint, err := splitRequirement("engine@>=v1.2.0")
	if err != nil || name != "engine" || constraint != ">=v1.2.0" {
		t.Fatalf("got %q %q %v", name, constraint, err)
	}
	if _, _, err := splitRequirement("no-at-sign"); err == nil {
		t.Fatalf("expected malformed requirement to be rejected")
	}
}

func TestSatisfies(t *testing.T) {
	cases := []struct {
		have, constraint string
		want             bool
	}{
		{"v1.4.0", "v1.4.0", true},
		{"v1.4.0", "v1.4.1", false},
		{"v1.4.0", ">=v1.2.0", true},
		{"v1.1.0", ">=v1.2.0", false},
		{"garbage", "v1.0.0", false},
	}
	for _, c := range cases {
		if got := satisfies(c.have, c.constraint); got != c.want {
			t.Errorf("satisfies(%q, %q) = %v, want %v", c.have, c.constraint, got, c.want)
		}
	}
}

func TestCheckRequirements(t *testing.T) {
	h := &Host{engineVersion: "v1.4.0", loaded: map[string]*Plugin{
		"si-audio": {Name: "si-audio", Version: "v0.5.0"},
	}}
	if err := h.checkRequirements(Descriptor{Requires: []string{"engine@>=v1.0.0", "si-audio@v0.5.0"}}); err != nil {
		t.Fatalf("requirements should be satisfied: %v", err)
	}
	if err := h.checkRequirements(Descriptor{Requires: []string{"si-video@v1.0.0"}}); err == nil {
		t.Fatalf("requirement on an unloaded plug-in must fail")
	}
	if err := h.checkRequirements(Descriptor{Requires: []string{"si-audio@>=v1.0.0"}}); err == nil {
		t.Fatalf("unsatisfied version constraint must fail")
	}
}

func TestFeatureTracksActivation(t *testing.T) {
	p := &Plugin{Name: "p", Descriptor: Descriptor{Features: []string{"routing"}}}
	h := &Host{loaded: map[string]*Plugin{"p": p}}
	if h.Feature("routing") {
		t.Fatalf("an inactive plug-in must not provide its features")
	}
	p.active = true
	if !h.Feature("routing") {
		t.Fatalf("an active plug-in must provide its declared features")
	}
}
