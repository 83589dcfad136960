// Package event implements the prioritized event queue and the
// cooperative, single-hook-at-a-time dispatcher that drains it.
package event

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wpcore-go/wpcore/internal/props"
)

// Subject is whatever an Event is about: the source object that raised
// it and the subject object it concerns (often the same object). Both
// are optional; the engine core only reasons about their properties and
// type name, not their concrete identity.
type Subject struct {
	Type           string
	GraphProps     *props.Properties
	GlobalProps    *props.Properties
	InstanceAttrs  *props.Properties
	MetadataName   string
	ParamID        int64
}

// Event is an immutable unit of work raised against the engine: "this
// object's properties changed", "this parameter was set", and so on.
// Hooks never change an Event's type, priority or property bag; a hook
// that wants to react normally does so by calling back into the subject
// it was given. The one writable part is the SetData side-channel.
type Event struct {
	seq      uint64
	typ      string
	priority int32
	props    *props.Properties
	source   Subject
	subject  Subject

	// data is the event's opaque side-channel: hooks of the same event
	// pass intermediate results to each other here without widening
	// the property bag.
	data map[string]any
}

// newEvent builds an Event, starting the event bag from the subject's
// graph properties, overlaying its global-graph properties (if present),
// then overlaying the conventional event.* keys and finally the event's
// own properties on top — mirroring wp_event_new's behavior of inheriting
// the subject's properties and global-properties before letting
// event-specific properties (e.g. which param changed) take precedence.
func newEvent(seq uint64, typ string, priority int32, evProps *props.Properties, source, subject Subject) *Event {
	merged := props.Copy(subject.GraphProps)
	if subject.GlobalProps != nil {
		_, _ = merged.Update(subject.GlobalProps)
	}
	_, _ = merged.Set("event.type", typ)
	if subject.Type != "" {
		_, _ = merged.Set("event.subject.type", subject.Type)
	}
	if subject.ParamID != 0 {
		_, _ = merged.Set("event.subject.param-id", strconv.FormatInt(subject.ParamID, 10))
	}
	if subject.MetadataName != "" {
		_, _ = merged.Set("metadata.name", subject.MetadataName)
	}
	if evProps != nil {
		_, _ = merged.Update(evProps)
	}
	return &Event{
		seq:      seq,
		typ:      typ,
		priority: priority,
		props:    merged,
		source:   source,
		subject:  subject,
	}
}

// Type returns the event's type string (e.g. "object-added",
// "param-changed").
func (e *Event) Type() string { return e.typ }

// Priority returns the event's dispatch priority; higher values run
// before lower ones.
func (e *Event) Priority() int32 { return e.priority }

// Seq returns the monotonically increasing sequence number assigned
// when the event was pushed, used to break priority ties FIFO.
func (e *Event) Seq() uint64 { return e.seq }

// Properties returns the event's merged property view (subject
// properties overlaid with event-specific ones). Callers must not
// mutate the returned Properties; wrap with props.NewView if you need
// to hand it further afield.
func (e *Event) Properties() *props.Properties { return e.props }

// SetData stores value in the event's side-channel under key; a nil
// value removes the entry. Only hooks of this event may touch the
// side-channel, so no locking is needed under the single-loop model.
func (e *Event) SetData(key string, value any) {
	if value == nil {
		delete(e.data, key)
		return
	}
	if e.data == nil {
		e.data = make(map[string]any)
	}
	e.data[key] = value
}

// Data returns the side-channel value stored under key, or nil.
func (e *Event) Data(key string) any { return e.data[key] }

// Source returns the object that raised the event.
func (e *Event) Source() Subject { return e.source }

// EventSubject returns the object the event concerns.
func (e *Event) EventSubject() Subject { return e.subject }

// Name renders the event's display name in the
// "<address>type@subject-type@metadata-name@param-id" debug format,
// omitting absent parts (and their separators) the way form_event_name
// does in the original. The parts are read back out of the merged
// event bag rather than the Subject struct, so collaborators that set
// the conventional keys directly are reflected too.
func (e *Event) Name() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "<%p>", e)
	sb.WriteString(e.typ)
	for _, key := range []string{"event.subject.type", "metadata.name", "event.subject.param-id"} {
		if v, ok := e.props.Get(key); ok {
			sb.WriteByte('@')
			sb.WriteString(v)
		}
	}
	return sb.String()
}
