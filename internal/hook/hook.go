// Package hook implements the hook registry: named units of work that
// react to events, ordered by before/after glob dependencies and run
// either synchronously (Simple) or step-wise (Transition) by the
// dispatcher in internal/event.
package hook

import (
	"context"
	"sync"

	"github.com/wpcore-go/wpcore/internal/event"
	"github.com/wpcore-go/wpcore/internal/interest"
)

// Body is the executable part of a Hook: either Simple or Transition.
type Body interface {
	isHookBody()
	run(ctx context.Context, ev *event.Event, step int) (done bool, nextStep int, err error)
}

// Simple runs to completion in a single call, matching WpSimpleEventHook:
// one closure, synchronous, immediately "finished" once it returns.
type Simple struct {
	Run func(ctx context.Context, ev *event.Event) error
}

func (Simple) isHookBody() {}
func (s Simple) run(ctx context.Context, ev *event.Event, _ int) (bool, int, error) {
	err := s.Run(ctx, ev)
	return true, 0, err
}

// Transition runs across one or more steps, matching
// WpAsyncEventHook/WpAsyncEventHookTransition: NextStep decides the step
// to advance to from the current one (returning StepDone stops the
// transition), Execute performs the work for a given step. The
// dispatcher calls Execute once per DispatchOne invocation of this
// hook's turn, so a Transition hook can suspend between dispatcher
// cycles without blocking the single in-flight-hook loop.
type Transition struct {
	NextStep func(step int) int
	Execute  func(ctx context.Context, ev *event.Event, step int) error
}

// StepDone is returned by NextStep to signal the transition has
// finished.
const StepDone = -1

// StepFirst is the step value passed to NextStep for the first call of
// a new transition; Execute then receives whatever step NextStep
// returned for it.
const StepFirst = 0

func (Transition) isHookBody() {}
func (t Transition) run(ctx context.Context, ev *event.Event, step int) (bool, int, error) {
	next := t.NextStep(step)
	if next == StepDone {
		return true, 0, nil
	}
	err := t.Execute(ctx, ev, next)
	if err != nil {
		return true, 0, err
	}
	return false, next, nil
}

// Hook is a named, orderable reaction to events. EventType, when
// non-empty, restricts it to events of that Go-level type string before
// Interests are even consulted — the same shortcut the original takes
// for its WP_TYPE_EVENT gtype-only fallback case. Interests, when
// non-empty, are ORed: the hook runs if ANY interest matches the
// event's subject. A Hook with neither set runs for every event pushed
// through the dispatcher; that is rarely what you want outside of
// logging/tracing hooks.
type Hook struct {
	HookName       string
	EventType      string
	Interests      []*interest.Interest
	BeforePatterns []string
	AfterPatterns  []string
	// AfterEvent marks a terminal (finalization) hook: it runs only
	// once every on-event hook of the event has finished.
	AfterEvent bool
	Body       Body

	stepsMu sync.Mutex
	steps   map[*event.Event]int
}

func New(name string, body Body) *Hook {
	return &Hook{HookName: name, Body: body}
}

func (h *Hook) Name() string     { return h.HookName }
func (h *Hook) Before() []string { return h.BeforePatterns }
func (h *Hook) After() []string  { return h.AfterPatterns }
func (h *Hook) Terminal() bool   { return h.AfterEvent }

// RunsFor reports whether this hook should react to ev, matching
// WpInterestEventHook's runs_for_event: an EventType filter is checked
// first, then any one matching Interest is sufficient. Interests are
// evaluated against the event's own merged property bag (event.type,
// event.subject.type and friends overlaid on the inherited subject
// properties), not the subject's separate raw bags — a constraint of
// domain graph-property or global-graph-property reads the event bag,
// matching the original passing the event's own properties for both
// match arguments; instance-attribute constraints still read the
// subject's own typed-field bag, which has no event-bag analogue.
func (h *Hook) RunsFor(ev *event.Event) bool {
	if h.EventType != "" && h.EventType != ev.Type() {
		return false
	}
	if len(h.Interests) == 0 {
		return true
	}
	subj := ev.EventSubject()
	bag := ev.Properties()
	for _, in := range h.Interests {
		if in.Matches(subj.Type, bag, bag, subj.InstanceAttrs) {
			return true
		}
	}
	return false
}

// Run advances the hook's body by one dispatcher turn. Simple hooks
// always report done=true; Transition hooks report done=false until
// NextStep returns StepDone. Step state is tracked per-event rather than
// on the Hook itself, since the same Hook can have more than one event
// in flight across the dispatcher's queue at once.
func (h *Hook) Run(ctx context.Context, ev *event.Event) (bool, error) {
	h.stepsMu.Lock()
	step := h.steps[ev]
	h.stepsMu.Unlock()

	done, next, err := h.Body.run(ctx, ev, step)

	h.stepsMu.Lock()
	if done {
		delete(h.steps, ev)
	} else {
		if h.steps == nil {
			h.steps = make(map[*event.Event]int)
		}
		h.steps[ev] = next
	}
	h.stepsMu.Unlock()

	return done, err
}

// Abort drops any step state held for ev, called by the dispatcher
// when it discards a cancelled event mid-transition.
func (h *Hook) Abort(ev *event.Event) {
	h.stepsMu.Lock()
	delete(h.steps, ev)
	h.stepsMu.Unlock()
}
