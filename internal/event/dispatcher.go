package event

import (
	"container/heap"
	"context"
	"path"
	"sync"
	"sync/atomic"

	"github.com/wpcore-go/wpcore/internal/props"
	"github.com/wpcore-go/wpcore/internal/wperr"
	"github.com/wpcore-go/wpcore/internal/wplog"
)

var log = wplog.New("event.dispatcher")

// HookHandle is whatever the dispatcher needs to know about a hook to
// order and run it. internal/hook's Hook type implements this interface;
// this package never imports internal/hook, so a hook registry can sit
// on top of the dispatcher without the dispatcher knowing hook bodies
// come in Simple/Transition flavors.
type HookHandle interface {
	Name() string
	Before() []string
	After() []string
	// Terminal reports whether the hook runs after all on-event hooks
	// of an event have finished (finalization hooks); the dispatcher
	// schedules terminal hooks behind every non-terminal one,
	// preserving before/after order within each group.
	Terminal() bool
	RunsFor(ev *Event) bool
	// Run advances the hook's handling of ev by one dispatcher turn,
	// reporting whether the hook is finished with ev (true for a Simple
	// hook's only call; a Transition hook returns false until its own
	// NextStep signals completion, and the dispatcher calls Run again
	// on a later turn rather than advancing to the next hook).
	Run(ctx context.Context, ev *Event) (done bool, err error)
}

// hookAborter is implemented by hooks that keep per-event state across
// suspended steps; Abort lets them release it when the event is
// dropped on cancellation instead of completing.
type hookAborter interface {
	Abort(ev *Event)
}

// HookProvider supplies the set of hooks interested in an event, in
// arbitrary order; the dispatcher topologically sorts them itself.
type HookProvider interface {
	HooksFor(ev *Event) []HookHandle
}

// SortHooks orders hooks so that every Before/After glob-pattern
// dependency is satisfied, matching the original engine's sort_hooks:
// a hook naming pattern P in After must run after every candidate hook
// whose name matches P; a hook naming pattern P in Before must run
// before every candidate hook whose name matches P. It is a stable
// repeated-pass topological sort; a cycle is reported as a
// wperr.KindValidation error rather than silently picking an order.
func SortHooks(hooks []HookHandle) ([]HookHandle, error) {
	n := len(hooks)
	deps := make([][]int, n)
	for i, h := range hooks {
		for _, pat := range h.After() {
			for j, other := range hooks {
				if j != i && globMatch(pat, other.Name()) {
					deps[i] = append(deps[i], j)
				}
			}
		}
		for _, pat := range h.Before() {
			for j, other := range hooks {
				if j != i && globMatch(pat, other.Name()) {
					deps[j] = append(deps[j], i)
				}
			}
		}
	}

	done := make([]bool, n)
	order := make([]int, 0, n)
	remaining := n
	for remaining > 0 {
		progressed := false
		for i := 0; i < n; i++ {
			if done[i] {
				continue
			}
			ready := true
			for _, d := range deps[i] {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				done[i] = true
				order = append(order, i)
				remaining--
				progressed = true
			}
		}
		if !progressed {
			return nil, wperr.Withf(wperr.KindValidation, "SortHooks", "cyclic before/after dependency among hooks")
		}
	}

	out := make([]HookHandle, n)
	for i, idx := range order {
		out[i] = hooks[idx]
	}
	return out, nil
}

func globMatch(pattern, name string) bool {
	ok, _ := path.Match(pattern, name)
	return ok
}

// queuedEvent pairs an Event with the already-sorted hook list it will
// run against.
type queuedEvent struct {
	ev    *Event
	hooks []HookHandle
	next  int
	index int // heap bookkeeping
}

// eventHeap orders by descending priority, then ascending sequence
// number, matching event_cmp_func in the original.
type eventHeap []*queuedEvent

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.priority != h[j].ev.priority {
		return h[i].ev.priority > h[j].ev.priority
	}
	return h[i].ev.seq < h[j].ev.seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *eventHeap) Push(x any) {
	qe := x.(*queuedEvent)
	qe.index = len(*h)
	*h = append(*h, qe)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Dispatcher drives events to completion one hook at a time: the hooks
// of a single event never run concurrently with each other, matching
// the original's single-in-flight-hook invariant. Multiple events may
// be queued; they are popped highest-priority (then earliest-pushed)
// first.
type Dispatcher struct {
	hooks HookProvider

	mu        sync.Mutex
	queue     eventHeap
	cancelled map[*Event]bool
	seq       uint64

	wake chan struct{}
}

// NewDispatcher returns a Dispatcher that asks provider for the
// applicable hooks of each pushed event.
func NewDispatcher(provider HookProvider) *Dispatcher {
	return &Dispatcher{
		hooks:     provider,
		cancelled: make(map[*Event]bool),
		wake:      make(chan struct{}, 1),
	}
}

// PushEvent builds and queues a new Event. If no hook is interested in
// it, the event is dropped immediately (logged at Trace) rather than
// queued, matching the original's collect-hooks-or-drop behavior — an
// event nobody will react to costs nothing to skip.
func (d *Dispatcher) PushEvent(typ string, priority int32, evProps *props.Properties, source, subject Subject) (*Event, error) {
	seq := atomic.AddUint64(&d.seq, 1)
	ev := newEvent(seq, typ, priority, evProps, source, subject)

	candidates := d.hooks.HooksFor(ev)
	var applicable []HookHandle
	for _, h := range candidates {
		if h.RunsFor(ev) {
			applicable = append(applicable, h)
		}
	}
	if len(applicable) == 0 {
		log.Trace("dropping event with no interested hooks", "event", ev.Name())
		return ev, nil
	}
	var onEvent, terminal []HookHandle
	for _, h := range applicable {
		if h.Terminal() {
			terminal = append(terminal, h)
		} else {
			onEvent = append(onEvent, h)
		}
	}
	sorted, err := SortHooks(onEvent)
	if err != nil {
		log.Critical("rejecting event, hook ordering failed", "event", ev.Name(), "error", err)
		return nil, err
	}
	if len(terminal) > 0 {
		sortedTerminal, err := SortHooks(terminal)
		if err != nil {
			log.Critical("rejecting event, hook ordering failed", "event", ev.Name(), "error", err)
			return nil, err
		}
		sorted = append(sorted, sortedTerminal...)
	}

	d.mu.Lock()
	heap.Push(&d.queue, &queuedEvent{ev: ev, hooks: sorted})
	d.mu.Unlock()
	d.signalWake()
	return ev, nil
}

// Cancel marks ev so the dispatcher stops running further hooks for it
// once it reaches the front of an in-progress dispatch.
func (d *Dispatcher) Cancel(ev *Event) {
	d.mu.Lock()
	d.cancelled[ev] = true
	d.mu.Unlock()
}

func (d *Dispatcher) isCancelled(ev *Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled[ev]
}

func (d *Dispatcher) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
	bumpWakeFD()
}

// DispatchOne takes the highest-priority event (which stays queued until
// its hooks are exhausted or it is cancelled) and runs its next
// not-yet-run hook, if any, returning false when the queue is empty. It
// is the unit of work the original's wp_event_source_dispatch performs
// per GSource wakeup; Run below simply calls it in a loop.
func (d *Dispatcher) DispatchOne(ctx context.Context) bool {
	d.mu.Lock()
	if d.queue.Len() == 0 {
		d.mu.Unlock()
		return false
	}
	qe := d.queue[0]
	d.mu.Unlock()

	if d.isCancelled(qe.ev) {
		log.Debug("dropping cancelled event", "event", qe.ev.Name())
		for _, h := range qe.hooks[qe.next:] {
			if a, ok := h.(hookAborter); ok {
				a.Abort(qe.ev)
			}
		}
		d.finishEvent(qe)
		return true
	}
	if qe.next >= len(qe.hooks) {
		d.finishEvent(qe)
		return true
	}

	h := qe.hooks[qe.next]
	done, err := h.Run(ctx, qe.ev)
	if err != nil {
		log.Notice("hook failed, continuing with remaining hooks", "hook", h.Name(), "event", qe.ev.Name(), "error", err)
		done = true
	}
	if done {
		qe.next++
	}

	if qe.next >= len(qe.hooks) {
		d.finishEvent(qe)
	}
	// Re-arm the wake signal while work remains, so a host driving the
	// dispatcher through WakeFD keeps being woken until the queue
	// drains, the way on_event_hook_done re-writes the eventfd.
	if d.Pending() > 0 {
		d.signalWake()
	}
	return true
}

func (d *Dispatcher) finishEvent(qe *queuedEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) > 0 && d.queue[0] == qe {
		heap.Pop(&d.queue)
	}
	delete(d.cancelled, qe.ev)
}

// Run drives the dispatcher until ctx is cancelled, blocking between
// wakeups rather than busy-polling. Callers that want to multiplex the
// dispatcher alongside their own file descriptors should use WakeFD
// instead of Run.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		for d.DispatchOne(ctx) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
		}
	}
}

// Pending reports how many events are currently queued.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}
