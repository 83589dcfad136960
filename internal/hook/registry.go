package hook

import (
	"sync"

	"github.com/wpcore-go/wpcore/internal/event"
	"github.com/wpcore-go/wpcore/internal/wperr"
	"github.com/wpcore-go/wpcore/internal/wplog"
)

var log = wplog.New("hook.registry")

// Registry keeps the set of hooks known to a dispatcher, split into a
// typed bucket (hooks with a non-empty EventType, queried first) and an
// untyped bucket (checked for every event), matching the original
// engine's defined_hooks/undefined_hooks split so a typed lookup never
// has to scan hooks that could not possibly apply.
//
// Registry implements event.HookProvider and is meant to be handed
// directly to event.NewDispatcher.
type Registry struct {
	mu      sync.Mutex
	typed   map[string][]*Hook
	untyped []*Hook
	byName  map[string]*Hook
}

func NewRegistry() *Registry {
	return &Registry{typed: make(map[string][]*Hook), byName: make(map[string]*Hook)}
}

// Register adds h to the registry, rejecting a duplicate name and
// rolling back (hook not added, error returned) if sorting the
// affected bucket afterward would detect a before/after cycle — the Go
// equivalent of the original's warning-and-rollback on cycle, except
// the caller gets an explicit error instead of a silently dropped hook.
func (r *Registry) Register(h *Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[h.HookName]; exists {
		return wperr.Withf(wperr.KindValidation, "Register", "hook %q already registered", h.HookName)
	}

	if h.EventType != "" {
		// Dispatch for this event type sees the typed bucket plus
		// every untyped hook, so cycle-check against that combined
		// view, not the typed bucket alone.
		combined := append(append([]*Hook(nil), r.typed[h.EventType]...), r.untyped...)
		combined = append(combined, h)
		if _, err := sortedHandles(combined); err != nil {
			return wperr.WithSubject(err, h.HookName)
		}
		r.typed[h.EventType] = append(r.typed[h.EventType], h)
	} else {
		// An untyped hook joins every type's dispatch view; a cycle
		// with any one of them rolls the registration back.
		for typ, bucket := range r.typed {
			combined := append(append([]*Hook(nil), bucket...), r.untyped...)
			combined = append(combined, h)
			if _, err := sortedHandles(combined); err != nil {
				return wperr.WithSubject(err, h.HookName+" vs type "+typ)
			}
		}
		combined := append(append([]*Hook(nil), r.untyped...), h)
		if _, err := sortedHandles(combined); err != nil {
			return wperr.WithSubject(err, h.HookName)
		}
		r.untyped = append(r.untyped, h)
	}
	r.byName[h.HookName] = h
	return nil
}

// Unregister removes the hook with the given name, if any.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.byName[name]
	if !ok {
		return
	}
	delete(r.byName, name)
	if h.EventType != "" {
		r.typed[h.EventType] = removeHook(r.typed[h.EventType], name)
	} else {
		r.untyped = removeHook(r.untyped, name)
	}
}

func removeHook(hooks []*Hook, name string) []*Hook {
	out := hooks[:0]
	for _, h := range hooks {
		if h.HookName != name {
			out = append(out, h)
		}
	}
	return out
}

func sortedHandles(hooks []*Hook) ([]event.HookHandle, error) {
	handles := make([]event.HookHandle, len(hooks))
	for i, h := range hooks {
		handles[i] = h
	}
	return event.SortHooks(handles)
}

// HooksFor implements event.HookProvider: it returns the typed bucket
// for ev's type plus every untyped hook, letting the dispatcher filter
// by RunsFor and sort the combined, applicable set itself.
func (r *Registry) HooksFor(ev *event.Event) []event.HookHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.HookHandle
	for _, h := range r.typed[ev.Type()] {
		out = append(out, h)
	}
	for _, h := range r.untyped {
		out = append(out, h)
	}
	if len(out) == 0 {
		log.Trace("no hooks registered for event type", "type", ev.Type())
	}
	return out
}
