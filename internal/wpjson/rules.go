package wpjson

import (
	"path"
	"strings"

	"github.com/wpcore-go/wpcore/internal/props"
	"github.com/wpcore-go/wpcore/internal/wperr"
)

// ActionFunc performs a named rule action against the properties a rule
// matched. update-props is pre-registered by ApplyRules; callers may
// supply additional named actions since the configuration format allows
// arbitrary action names under "actions".
type ActionFunc func(name string, value Value) error

// ApplyRules evaluates a "rules" array — each element an object with a
// "matches" array of alternatives and an "actions" object — against
// matchProps. Alternatives within one rule's "matches" are ORed: the
// rule applies if ANY alternative's key/value constraints are all
// satisfied. Only the FIRST rule in the array whose matches succeed is
// applied; ApplyRules then returns immediately, matching the original
// engine's apply_rules_json, which stops scanning after the first hit
// rather than applying every matching rule.
//
// A matches value prefixed with '~' is a glob pattern (path.Match
// syntax) compared against matchProps' value for that key; a value
// prefixed with '!' requires the property to be present with a
// different value; any other value requires exact string equality.
// A rule's actions are applied to appliedProps; when appliedProps is a
// separate bag from matchProps it is first seeded with matchProps'
// entries, as wp_conf_apply_rules does, so the caller receives the
// matched bag plus the applied updates while matchProps stays
// untouched. The built-in "update-props" action merges its object
// argument into appliedProps key by key.
//
// ApplyRules reports whether any rule matched.
func ApplyRules(rules Value, matchProps, appliedProps *props.Properties, actions map[string]ActionFunc) (bool, error) {
	if rules.IsNull() {
		return false, nil
	}
	if appliedProps == nil {
		appliedProps = matchProps
	}
	elems, err := rules.Elements()
	if err != nil {
		return false, err
	}
	for _, rule := range elems {
		matchesVal, found, err := rule.Lookup("matches")
		if err != nil {
			return false, err
		}
		if !found {
			continue
		}
		ok, err := anyAlternativeMatches(matchesVal, matchProps)
		if err != nil {
			return false, err
		}
		if !ok {
			continue
		}
		if appliedProps != matchProps {
			if _, err := appliedProps.Update(matchProps); err != nil {
				return true, err
			}
		}
		actionsVal, found, err := rule.Lookup("actions")
		if err != nil {
			return false, err
		}
		if found {
			if err := applyActions(actionsVal, appliedProps, actions); err != nil {
				return true, err
			}
		}
		return true, nil
	}
	return false, nil
}

func anyAlternativeMatches(matchesVal Value, matchProps *props.Properties) (bool, error) {
	alternatives, err := matchesVal.Elements()
	if err != nil {
		return false, err
	}
	for _, alt := range alternatives {
		keys, values, err := alt.Properties()
		if err != nil {
			return false, err
		}
		allOK := true
		for i, k := range keys {
			want, ok := values[i].AsString()
			if !ok {
				// Unquoted scalars (numbers, booleans) compare by
				// their rendered string form.
				want = values[i].String()
			}
			got, present := matchProps.Get(k)
			if !present {
				allOK = false
				break
			}
			switch {
			case strings.HasPrefix(want, "~"):
				matched, _ := path.Match(want[1:], got)
				if !matched {
					allOK = false
				}
			case strings.HasPrefix(want, "!"):
				if got == want[1:] {
					allOK = false
				}
			default:
				if got != want {
					allOK = false
				}
			}
			if !allOK {
				break
			}
		}
		if allOK {
			return true, nil
		}
	}
	return false, nil
}

func applyActions(actionsVal Value, appliedProps *props.Properties, actions map[string]ActionFunc) error {
	keys, values, err := actionsVal.Properties()
	if err != nil {
		return err
	}
	for i, name := range keys {
		if name == "update-props" {
			if err := applyUpdateProps(values[i], appliedProps); err != nil {
				return err
			}
			continue
		}
		fn, ok := actions[name]
		if !ok {
			return wperr.Withf(wperr.KindOperationFailed, "ApplyRules", "unknown rule action %q", name)
		}
		if err := fn(name, values[i]); err != nil {
			return err
		}
	}
	return nil
}

func applyUpdateProps(obj Value, appliedProps *props.Properties) error {
	keys, values, err := obj.Properties()
	if err != nil {
		return err
	}
	for i, k := range keys {
		s, ok := values[i].AsString()
		if !ok {
			s = values[i].String()
		}
		if _, err := appliedProps.Set(k, s); err != nil {
			return err
		}
	}
	return nil
}
