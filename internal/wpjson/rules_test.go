package wpjson

import (
	"testing"

	"github.com/wpcore-go/wpcore/internal/props"
)

func TestApplyRulesFirstMatchOnly(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ { node.name: "~sink-*" } ], actions: { update-props: { priority: "10" } } },
		{ matches: [ { node.name: "~sink-*" } ], actions: { update-props: { priority: "99" } } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	match := props.NewFromList("node.name", "sink-usb")
	applied := props.New()
	matched, err := ApplyRules(rules, match, applied, nil)
	if err != nil {
		t.Fatalf("ApplyRules: %v", err)
	}
	if !matched {
		t.Fatalf("expected a match")
	}
	if got, _ := applied.Get("priority"); got != "10" {
		t.Errorf("priority = %q, want 10 (first matching rule only)", got)
	}
}

func TestApplyRulesExactVsGlob(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ { media.class: "Audio/Sink" } ], actions: { update-props: { matched: "yes" } } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	match := props.NewFromList("media.class", "Audio/Source")
	applied := props.New()
	matched, err := ApplyRules(rules, match, applied, nil)
	if err != nil {
		t.Fatalf("ApplyRules: %v", err)
	}
	if matched {
		t.Errorf("exact-match rule should not have matched a different value")
	}
}

func TestApplyRulesCustomAction(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ {} ], actions: { log: "hit" } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var gotName string
	var gotVal Value
	actions := map[string]ActionFunc{
		"log": func(name string, value Value) error {
			gotName = name
			gotVal = value
			return nil
		},
	}
	match := props.New()
	applied := props.New()
	matched, err := ApplyRules(rules, match, applied, actions)
	if err != nil {
		t.Fatalf("ApplyRules: %v", err)
	}
	if !matched || gotName != "log" {
		t.Fatalf("matched=%v gotName=%q", matched, gotName)
	}
	if s, _ := gotVal.AsString(); s != "hit" {
		t.Errorf("gotVal = %q, want hit", s)
	}
}

func TestApplyRulesNegatedValue(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ { media.class: "!Audio/Sink" } ], actions: { update-props: { handled: "yes" } } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	match := props.NewFromList("media.class", "Audio/Sink")
	if matched, err := ApplyRules(rules, match, props.New(), nil); err != nil || matched {
		t.Fatalf("negated value should not match its own literal, matched=%v err=%v", matched, err)
	}
	match = props.NewFromList("media.class", "Audio/Source")
	matched, err := ApplyRules(rules, match, props.New(), nil)
	if err != nil || !matched {
		t.Fatalf("negated value should match a different literal, matched=%v err=%v", matched, err)
	}
}

func TestApplyRulesSeedsAppliedFromMatch(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ { device.name: "~alsa_card.*" } ], actions: { update-props: { use.acp: "true" } } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	match := props.NewFromList("device.name", "alsa_card.0")
	applied := props.New()
	matched, err := ApplyRules(rules, match, applied, nil)
	if err != nil || !matched {
		t.Fatalf("ApplyRules: matched=%v err=%v", matched, err)
	}
	if got, _ := applied.Get("device.name"); got != "alsa_card.0" {
		t.Errorf("applied should be seeded with the matched bag, device.name=%q", got)
	}
	if got, _ := applied.Get("use.acp"); got != "true" {
		t.Errorf("use.acp = %q, want true", got)
	}
	if _, ok := match.Get("use.acp"); ok {
		t.Errorf("matchProps must stay untouched when appliedProps is separate")
	}
}

func TestApplyRulesIdempotentUpdateProps(t *testing.T) {
	rules, err := Parse(`[
		{ matches: [ { node.name: "~sink-*" } ], actions: { update-props: { priority: "10" } } }
	]`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	match := props.NewFromList("node.name", "sink-usb")
	if _, err := ApplyRules(rules, match, nil, nil); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	once := props.Copy(match)
	if _, err := ApplyRules(rules, match, nil, nil); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if match.Len() != once.Len() {
		t.Errorf("applying twice changed the bag: %d vs %d entries", match.Len(), once.Len())
	}
	if got, _ := match.Get("priority"); got != "10" {
		t.Errorf("priority = %q, want 10", got)
	}
}
