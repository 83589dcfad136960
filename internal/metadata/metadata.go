// Package metadata implements the subject-keyed attribute store:
// arbitrary (subject, key) -> (type, value) triples with change
// notification, either purely local to the process or mirrored to an
// external collaborator.
package metadata

import (
	"context"
	"sync"

	"github.com/wpcore-go/wpcore/internal/iter"
	"github.com/wpcore-go/wpcore/internal/wperr"
)

// GlobalScope is the conventional subject denoting "not about any one
// object": entries the whole graph shares, e.g. default routing
// targets. Graph object subjects are their stringified object ids.
const GlobalScope = "0"

// Entry is one stored attribute.
type Entry struct {
	Subject string
	Key     string
	Type    string
	Value   string
}

// Change describes a single mutation delivered to subscribers. Value
// and Type are the zero values when Removed is true.
type Change struct {
	Entry
	Removed bool
}

// Store is the interface both Local and Shared implement, and the one
// sqlitestore.Store satisfies for durable persistence.
type Store interface {
	// Find returns the value and type stored for (subject, key), or
	// ok=false if nothing is stored there.
	Find(ctx context.Context, subject, key string) (value, typ string, ok bool, err error)
	// Set stores value under (subject, key); an empty value removes
	// the entry, matching the original's "set NULL to clear" idiom.
	Set(ctx context.Context, subject, key, typ, value string) error
	// Iter returns an iterator of Entry values: every entry for
	// subject, or every entry in the store when subject is "".
	Iter(ctx context.Context, subject string) (iter.Iterator, error)
	// Clear removes every entry for subject, or every entry in the
	// store if subject is "".
	Clear(ctx context.Context, subject string) error
	// Subscribe returns a channel of future Changes; the channel is
	// closed when ctx is done.
	Subscribe(ctx context.Context) <-chan Change
}

type entryKey struct{ subject, key string }

// Local is an in-memory Store with no external mirroring. Entries keep
// insertion order, so iteration and debug output are deterministic.
type Local struct {
	mu      sync.Mutex
	entries []Entry
	index   map[entryKey]int
	subs    []chan Change
}

func NewLocal() *Local {
	return &Local{index: make(map[entryKey]int)}
}

func (l *Local) Find(_ context.Context, subject, key string) (string, string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i, ok := l.index[entryKey{subject, key}]
	if !ok {
		return "", "", false, nil
	}
	e := l.entries[i]
	return e.Value, e.Type, true, nil
}

func (l *Local) Set(_ context.Context, subject, key, typ, value string) error {
	k := entryKey{subject, key}
	l.mu.Lock()
	if value == "" {
		if i, ok := l.index[k]; ok {
			l.removeAt(i)
		}
		l.mu.Unlock()
		l.publish(Change{Entry: Entry{Subject: subject, Key: key}, Removed: true})
		return nil
	}
	e := Entry{Subject: subject, Key: key, Type: typ, Value: value}
	if i, ok := l.index[k]; ok {
		l.entries[i] = e
	} else {
		l.index[k] = len(l.entries)
		l.entries = append(l.entries, e)
	}
	l.mu.Unlock()
	l.publish(Change{Entry: e})
	return nil
}

// removeAt splices entry i out and repairs the index; callers hold mu.
func (l *Local) removeAt(i int) {
	delete(l.index, entryKey{l.entries[i].Subject, l.entries[i].Key})
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	for k, idx := range l.index {
		if idx > i {
			l.index[k] = idx - 1
		}
	}
}

func (l *Local) Iter(_ context.Context, subject string) (iter.Iterator, error) {
	l.mu.Lock()
	var out []Entry
	for _, e := range l.entries {
		if subject == "" || e.Subject == subject {
			out = append(out, e)
		}
	}
	l.mu.Unlock()
	return iter.FromSlice(out), nil
}

func (l *Local) Clear(_ context.Context, subject string) error {
	l.mu.Lock()
	var kept []Entry
	var removed []Entry
	for _, e := range l.entries {
		if subject == "" || e.Subject == subject {
			removed = append(removed, Entry{Subject: e.Subject, Key: e.Key})
		} else {
			kept = append(kept, e)
		}
	}
	l.entries = kept
	l.index = make(map[entryKey]int, len(kept))
	for i, e := range kept {
		l.index[entryKey{e.Subject, e.Key}] = i
	}
	l.mu.Unlock()
	for _, e := range removed {
		l.publish(Change{Entry: e, Removed: true})
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context) <-chan Change {
	ch := make(chan Change, 16)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	go func() {
		<-ctx.Done()
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, c := range l.subs {
			if c == ch {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				break
			}
		}
		close(ch)
	}()
	return ch
}

func (l *Local) publish(c Change) {
	l.mu.Lock()
	subs := append([]chan Change(nil), l.subs...)
	l.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// ErrNotFound is returned by callers that need a typed "no such entry"
// signal rather than the (ok=false, err=nil) pair Store itself uses.
var ErrNotFound = wperr.Withf(wperr.KindNotFound, "metadata", "no entry for subject/key")
