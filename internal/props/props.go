// Package props implements the engine's ordered string/string property
// bag: the representation used for graph-object and global-graph
// properties throughout the engine.
package props

import (
	"path"
	"strings"

	"github.com/wpcore-go/wpcore/internal/wperr"
)

// ErrImmutableView is returned by any mutating method called on a
// Properties created with NewView.
var ErrImmutableView = wperr.Withf(wperr.KindValidation, "Properties", "view is read-only")

type entry struct {
	key, value string
}

// Properties is an ordered string-keyed string-valued map. Iteration
// order is insertion order, matching the original's use of a GObject
// GPtrArray-backed dictionary rather than a hash table, so debug output
// and wire serialization are deterministic.
type Properties struct {
	entries []entry
	index   map[string]int
	view    bool
}

// New returns an empty, mutable Properties.
func New() *Properties {
	return &Properties{index: make(map[string]int)}
}

// NewFromList builds a Properties from alternating key, value, key,
// value... strings, the same construction shape as
// wp_properties_new_valist.
func NewFromList(kv ...string) *Properties {
	p := New()
	for i := 0; i+1 < len(kv); i += 2 {
		p.Set(kv[i], kv[i+1])
	}
	return p
}

// Copy returns an independent, mutable deep copy of other.
func Copy(other *Properties) *Properties {
	p := New()
	if other == nil {
		return p
	}
	for _, e := range other.entries {
		p.Set(e.key, e.value)
	}
	return p
}

// NewView wraps other in a read-only Properties: Get/Matches/iteration
// work normally but Set/Update/Remove return ErrImmutableView. This
// mirrors the original's non-owning dict wrapper used to expose an
// object's properties to callers without letting them mutate it
// directly.
func NewView(other *Properties) *Properties {
	return &Properties{entries: other.entries, index: other.index, view: true}
}

// Get returns the value for key and whether it was present.
func (p *Properties) Get(key string) (string, bool) {
	if p == nil {
		return "", false
	}
	i, ok := p.index[key]
	if !ok {
		return "", false
	}
	return p.entries[i].value, true
}

// Set assigns key=value, appending a new entry or replacing an existing
// one, and reports whether the stored value actually changed.
func (p *Properties) Set(key, value string) (bool, error) {
	if p.view {
		return false, ErrImmutableView
	}
	if p.index == nil {
		p.index = make(map[string]int)
	}
	if i, ok := p.index[key]; ok {
		if p.entries[i].value == value {
			return false, nil
		}
		p.entries[i].value = value
		return true, nil
	}
	p.index[key] = len(p.entries)
	p.entries = append(p.entries, entry{key, value})
	return true, nil
}

// SetNull removes key, the Properties analogue of setting a GVariant
// property to NULL in the original API.
func (p *Properties) SetNull(key string) error { return p.Remove(key) }

// Remove deletes key if present.
func (p *Properties) Remove(key string) error {
	if p.view {
		return ErrImmutableView
	}
	i, ok := p.index[key]
	if !ok {
		return nil
	}
	p.entries = append(p.entries[:i], p.entries[i+1:]...)
	delete(p.index, key)
	for k, idx := range p.index {
		if idx > i {
			p.index[k] = idx - 1
		}
	}
	return nil
}

// Update overlays other onto p, setting every key/value pair it
// contains, and returns how many entries actually changed.
func (p *Properties) Update(other *Properties) (int, error) {
	if p.view {
		return 0, ErrImmutableView
	}
	changed := 0
	for _, e := range other.entries {
		did, err := p.Set(e.key, e.value)
		if err != nil {
			return changed, err
		}
		if did {
			changed++
		}
	}
	return changed, nil
}

// Len reports the number of entries.
func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.entries)
}

// ForEach calls fn for every key/value pair in insertion order.
func (p *Properties) ForEach(fn func(key, value string)) {
	if p == nil {
		return
	}
	for _, e := range p.entries {
		fn(e.key, e.value)
	}
}

// Keys returns the ordered key list.
func (p *Properties) Keys() []string {
	if p == nil {
		return nil
	}
	out := make([]string, len(p.entries))
	for i, e := range p.entries {
		out[i] = e.key
	}
	return out
}

// Matches reports whether p satisfies other, checked per key of the
// RECEIVER: for every entry of p, either other has no entry for that
// key (unconstrained, so it passes) or other's value — taken as a
// shell glob, which degrades to exact comparison when it carries no
// metacharacters — matches p's value. Keys present only in other are
// not consulted, mirroring wp_properties_matches.
func (p *Properties) Matches(other *Properties) bool {
	if p == nil || other == nil {
		return true
	}
	for _, e := range p.entries {
		want, ok := other.Get(e.key)
		if !ok {
			continue
		}
		if want == e.value {
			continue
		}
		if ok, _ := path.Match(want, e.value); ok {
			continue
		}
		return false
	}
	return true
}

// HasGlobMeta reports whether s contains a shell-glob metacharacter,
// used by callers that need to pick between exact and glob comparison
// before calling path.Match.
func HasGlobMeta(s string) bool {
	return strings.ContainsAny(s, "*?[")
}
