// Package interest implements object-interest matching: a type filter
// plus a set of constraints evaluated against one of three property
// domains an object can be judged by.
package interest

import (
	"path"
	"strconv"

	"github.com/wpcore-go/wpcore/internal/props"
	"github.com/wpcore-go/wpcore/internal/wperr"
)

// Domain identifies which property bag a constraint's key is looked up
// in, generalizing the original engine's PW_PROPERTY / PW_GLOBAL_PROPERTY
// / G_PROPERTY constraint-type split.
type Domain int

const (
	// DomainGraphProperty looks the key up in the object's own
	// graph properties (its native property dictionary).
	DomainGraphProperty Domain = iota
	// DomainGlobalGraphProperty looks the key up in the properties
	// the graph runtime attaches externally (global/registry
	// properties), falling back to DomainGraphProperty's bag when
	// the object has no separate global view, matching the
	// original's PW_PROPERTY-falls-through-to-PW_GLOBAL_PROPERTY
	// lookup behavior.
	DomainGlobalGraphProperty
	// DomainInstanceAttribute looks the key up in a flat string bag
	// representing the object's own typed fields, exposed as
	// strings (there is no Go analogue of GObject property
	// reflection, so this domain is implemented as a third flat
	// properties bag the object itself populates — see DESIGN.md).
	DomainInstanceAttribute
)

// Verb identifies the comparison a constraint performs.
type Verb int

const (
	Equals Verb = iota
	NotEquals
	InList
	InRange
	Matches
	IsPresent
	IsAbsent
)

// Constraint is one clause of an Interest: "the value at Key in Domain,
// compared with Verb against Value, must hold".
type Constraint struct {
	Domain Domain
	Key    string
	Verb   Verb
	Value  string   // used by Equals/NotEquals/Matches
	List   []string // used by InList
	Range  [2]string // used by InRange (numeric strings, inclusive)
}

// Validate checks that the constraint's verb/value combination is
// legal, per the original's per-verb value-type rules: IsPresent and
// IsAbsent must not carry a value; every other verb must.
func (c Constraint) Validate() error {
	switch c.Verb {
	case IsPresent, IsAbsent:
		if c.Value != "" || len(c.List) != 0 {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "verb %v must not carry a value", c.Verb)
		}
	case InList:
		if len(c.List) == 0 {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "in-list constraint needs at least one value")
		}
	case InRange:
		if c.Range[0] == "" || c.Range[1] == "" {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "in-range constraint needs exactly two bounds")
		}
		if _, err := strconv.ParseFloat(c.Range[0], 64); err != nil {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "in-range bound %q is not numeric", c.Range[0])
		}
		if _, err := strconv.ParseFloat(c.Range[1], 64); err != nil {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "in-range bound %q is not numeric", c.Range[1])
		}
	default:
		if c.Value == "" {
			return wperr.Withf(wperr.KindValidation, "Constraint.Validate", "verb %v requires a value", c.Verb)
		}
	}
	return nil
}

// Hierarchy records object-type parent relationships so a type filter can
// match a type or any of its registered descendants, the Go analogue of
// the original engine's g_type_is_a walk up a GObject class's ancestry.
// There being no GObject type system to query, a type's ancestry here is
// whatever a host explicitly registers; an unregistered type has no
// parent and matches only itself.
type Hierarchy struct {
	parent map[string]string
}

// NewHierarchy returns an empty type hierarchy.
func NewHierarchy() *Hierarchy {
	return &Hierarchy{parent: make(map[string]string)}
}

// Register records that childType's parent is parentType, so IsA(x,
// parentType) holds for x == childType and for any type descending from
// it. Re-registering a child replaces its parent.
func (h *Hierarchy) Register(childType, parentType string) {
	h.parent[childType] = parentType
}

// IsA reports whether candidate is typ itself or descends from it by
// zero or more Register links. A nil Hierarchy only matches identical
// types, so interests built without a hierarchy keep exact-match
// behavior.
func (h *Hierarchy) IsA(candidate, typ string) bool {
	for t := candidate; ; {
		if t == typ {
			return true
		}
		if h == nil {
			return false
		}
		parent, ok := h.parent[t]
		if !ok {
			return false
		}
		t = parent
	}
}

// DefaultHierarchy is the type hierarchy Interest.Matches and the
// package-level MatchesFull helper consult when no explicit Hierarchy is
// supplied. Hosts register their own object-type ancestries into it
// during startup (see cmd/wpcore).
var DefaultHierarchy = NewHierarchy()

// Interest is a type filter plus a conjunction (AND) of constraints.
// ObjectType may be empty to match any type.
type Interest struct {
	ObjectType  string
	Constraints []Constraint
}

// New returns an Interest matching any object of objectType (empty
// string for "any type") with no constraints yet.
func New(objectType string) *Interest {
	return &Interest{ObjectType: objectType}
}

// AddConstraint appends a constraint after validating it, returning the
// validation error (rather than silently dropping the bad constraint
// and logging, as the original engine does) so the caller can react —
// see DESIGN.md's Open Question resolution.
func (in *Interest) AddConstraint(c Constraint) error {
	if err := c.Validate(); err != nil {
		return err
	}
	in.Constraints = append(in.Constraints, c)
	return nil
}

// bagFor resolves which Properties bag a constraint's Domain reads
// from, implementing the PW_PROPERTY-falls-through-to-PW_GLOBAL_PROPERTY
// rule.
func bagFor(domain Domain, graphProps, globalProps, instanceAttrs *props.Properties) *props.Properties {
	switch domain {
	case DomainGraphProperty:
		return graphProps
	case DomainGlobalGraphProperty:
		if globalProps != nil {
			return globalProps
		}
		return graphProps
	case DomainInstanceAttribute:
		return instanceAttrs
	default:
		return nil
	}
}

// MatchesFull evaluates the interest against an object described by its
// type and its three property domains, using DefaultHierarchy to decide
// whether objectType satisfies the interest's type filter. A constraint
// whose subject bag is absent fails the whole match unless the
// constraint's verb is IsAbsent, matching the original's subject-absent-
// fails-all-but-IS_ABSENT rule.
func MatchesFull(in *Interest, objectType string, graphProps, globalProps, instanceAttrs *props.Properties) bool {
	return MatchesFullIn(DefaultHierarchy, in, objectType, graphProps, globalProps, instanceAttrs)
}

// MatchesFullIn is MatchesFull with an explicit Hierarchy, for callers
// that maintain their own type ancestry rather than registering into
// DefaultHierarchy.
func MatchesFullIn(h *Hierarchy, in *Interest, objectType string, graphProps, globalProps, instanceAttrs *props.Properties) bool {
	if in.ObjectType != "" && !h.IsA(objectType, in.ObjectType) {
		return false
	}
	for _, c := range in.Constraints {
		bag := bagFor(c.Domain, graphProps, globalProps, instanceAttrs)
		if !constraintMatches(c, bag) {
			return false
		}
	}
	return true
}

// Matches is the method form of MatchesFull: the caller passes the
// object's type and its three bags, and DefaultHierarchy decides the
// type filter.
func (in *Interest) Matches(objectType string, graphProps, globalProps, instanceAttrs *props.Properties) bool {
	return MatchesFull(in, objectType, graphProps, globalProps, instanceAttrs)
}

func constraintMatches(c Constraint, bag *props.Properties) bool {
	val, present := bag.Get(c.Key)
	switch c.Verb {
	case IsPresent:
		return present
	case IsAbsent:
		return !present
	}
	if !present {
		return false
	}
	switch c.Verb {
	case Equals:
		return valueEquals(val, c.Value)
	case NotEquals:
		return !valueEquals(val, c.Value)
	case Matches:
		ok, _ := path.Match(c.Value, val)
		return ok
	case InList:
		for _, want := range c.List {
			if valueEquals(val, want) {
				return true
			}
		}
		return false
	case InRange:
		return inRange(val, c.Range)
	default:
		return false
	}
}

// valueEquals compares two scalar strings, using approximate equality
// for values that parse as floats (matching the original's epsilon
// comparison for G_TYPE_DOUBLE constraints) and exact string comparison
// otherwise.
func valueEquals(a, b string) bool {
	if a == b {
		return true
	}
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		const epsilon = 1e-9
		d := af - bf
		if d < 0 {
			d = -d
		}
		return d <= epsilon
	}
	return false
}

func inRange(val string, bounds [2]string) bool {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return false
	}
	lo, _ := strconv.ParseFloat(bounds[0], 64)
	hi, _ := strconv.ParseFloat(bounds[1], 64)
	if lo > hi {
		lo, hi = hi, lo
	}
	return v >= lo && v <= hi
}

// ParseSubjectType maps the original engine's single-character subject
// type tags (b/i/u/x/t/d/s) to a symbolic name, kept for configuration
// formats that still spell constraints that way.
func ParseSubjectType(tag rune) (string, error) {
	switch tag {
	case 'b':
		return "bool", nil
	case 'i':
		return "int", nil
	case 'u':
		return "uint", nil
	case 'x':
		return "int64", nil
	case 't':
		return "uint64", nil
	case 'd':
		return "double", nil
	case 's':
		return "string", nil
	default:
		return "", wperr.Withf(wperr.KindInvalidArgument, "ParseSubjectType", "unknown subject type tag %q", tag)
	}
}

// RequiresValue reports whether verb needs an associated value, used by
// configuration-format parsers before they call Constraint.Validate.
func RequiresValue(v Verb) bool {
	return v != IsPresent && v != IsAbsent
}
