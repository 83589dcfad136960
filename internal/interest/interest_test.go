package interest

import (
	"testing"

	"github.com/wpcore-go/wpcore/internal/props"
)

func TestEqualsAndNotEquals(t *testing.T) {
	in := New("node")
	_ = in.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "media.class", Verb: Equals, Value: "Audio/Sink"})
	p := props.NewFromList("media.class", "Audio/Sink")
	if !in.Matches("node", p, nil, nil) {
		t.Errorf("expected match")
	}

	in2 := New("node")
	_ = in2.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "media.class", Verb: NotEquals, Value: "Audio/Sink"})
	if in2.Matches("node", p, nil, nil) {
		t.Errorf("expected not-equals to fail when values are equal")
	}
}

func TestTypeFilter(t *testing.T) {
	in := New("node")
	if in.Matches("device", props.New(), nil, nil) {
		t.Errorf("type mismatch should not match")
	}
}

func TestTypeFilterMatchesDescendant(t *testing.T) {
	h := NewHierarchy()
	h.Register("audio-node", "node")
	h.Register("sink-node", "audio-node")

	in := New("node")
	if !MatchesFullIn(h, in, "sink-node", props.New(), nil, nil) {
		t.Errorf("expected interest for %q to match descendant type %q", "node", "sink-node")
	}
	if MatchesFullIn(h, in, "device", props.New(), nil, nil) {
		t.Errorf("unrelated type should still not match")
	}

	in2 := New("audio-node")
	if MatchesFullIn(h, in2, "node", props.New(), nil, nil) {
		t.Errorf("an ancestor type must not satisfy an interest for a descendant type")
	}
}

func TestGlobalPropertyFallsThrough(t *testing.T) {
	in := New("")
	_ = in.AddConstraint(Constraint{Domain: DomainGlobalGraphProperty, Key: "id", Verb: Equals, Value: "5"})
	graph := props.NewFromList("id", "5")
	if !in.Matches("node", graph, nil, nil) {
		t.Errorf("global-property constraint should fall through to graph properties when no global bag given")
	}
}

func TestInListAndInRange(t *testing.T) {
	in := New("")
	_ = in.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "priority", Verb: InList, List: []string{"10", "20", "30"}})
	p := props.NewFromList("priority", "20")
	if !in.Matches("", p, nil, nil) {
		t.Errorf("expected in-list match")
	}

	in2 := New("")
	_ = in2.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "volume", Verb: InRange, Range: [2]string{"0", "1"}})
	p2 := props.NewFromList("volume", "0.5")
	if !in2.Matches("", p2, nil, nil) {
		t.Errorf("expected in-range match")
	}
	p3 := props.NewFromList("volume", "1.5")
	if in2.Matches("", p3, nil, nil) {
		t.Errorf("expected out-of-range value to fail")
	}
}

func TestIsPresentIsAbsent(t *testing.T) {
	in := New("")
	_ = in.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "node.name", Verb: IsPresent})
	if !in.Matches("", props.NewFromList("node.name", "x"), nil, nil) {
		t.Errorf("expected is-present match")
	}
	if in.Matches("", props.New(), nil, nil) {
		t.Errorf("expected is-present to fail when absent")
	}

	in2 := New("")
	_ = in2.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "node.name", Verb: IsAbsent})
	if !in2.Matches("", props.New(), nil, nil) {
		t.Errorf("expected is-absent match when key absent")
	}
}

func TestMatchesGlobVerb(t *testing.T) {
	in := New("")
	_ = in.AddConstraint(Constraint{Domain: DomainGraphProperty, Key: "node.name", Verb: Matches, Value: "sink-*"})
	if !in.Matches("", props.NewFromList("node.name", "sink-usb"), nil, nil) {
		t.Errorf("expected glob match")
	}
}

func TestValidateRejectsValueOnPresenceVerbs(t *testing.T) {
	c := Constraint{Domain: DomainGraphProperty, Key: "k", Verb: IsPresent, Value: "x"}
	if err := c.Validate(); err == nil {
		t.Errorf("expected validation error for value on IsPresent")
	}
}

func TestAbsentSubjectFailsUnlessIsAbsent(t *testing.T) {
	in := New("")
	_ = in.AddConstraint(Constraint{Domain: DomainInstanceAttribute, Key: "k", Verb: Equals, Value: "v"})
	if in.Matches("", props.New(), nil, nil) {
		t.Errorf("nil instance-attribute bag should fail an Equals constraint")
	}
}
