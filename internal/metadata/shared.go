package metadata

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/wpcore-go/wpcore/internal/iter"
	"github.com/wpcore-go/wpcore/internal/wplog"
)

var log = wplog.New("metadata.shared")

// Mirror is implemented by an external collaborator (the media-graph
// daemon's metadata protocol) that Shared republishes writes to and
// reads external changes from.
type Mirror interface {
	Read(ctx context.Context) ([]Entry, error)
	Write(ctx context.Context, e Entry) error
	Subscribe(ctx context.Context) (<-chan Change, error)
}

// Shared layers a Mirror on top of a Local cache: reads are served from
// the cache, writes go to both the cache and the mirror, and changes
// the mirror reports on its own (an external process wrote first) are
// folded into the cache and republished to Shared's own subscribers.
// Those mirror-origin changes are applied by a background goroutine
// that NewShared starts, not by the goroutine that drives the engine;
// the Local cache's mutex is what serializes them with the caller's own
// Set and Clear calls.
type Shared struct {
	local  *Local
	mirror Mirror
}

// NewShared wraps mirror with a local cache, pre-populated from an
// initial Mirror.Read.
func NewShared(ctx context.Context, mirror Mirror) (*Shared, error) {
	s := &Shared{local: NewLocal(), mirror: mirror}
	entries, err := mirror.Read(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		_ = s.local.Set(ctx, e.Subject, e.Key, e.Type, e.Value)
	}
	changes, err := mirror.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	go s.absorbMirrorChanges(ctx, changes)
	return s, nil
}

func (s *Shared) absorbMirrorChanges(ctx context.Context, changes <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			if c.Removed {
				_ = s.local.Set(ctx, c.Subject, c.Key, "", "")
			} else {
				_ = s.local.Set(ctx, c.Subject, c.Key, c.Type, c.Value)
			}
		}
	}
}

func (s *Shared) Find(ctx context.Context, subject, key string) (string, string, bool, error) {
	return s.local.Find(ctx, subject, key)
}

func (s *Shared) Set(ctx context.Context, subject, key, typ, value string) error {
	if err := s.mirror.Write(ctx, Entry{Subject: subject, Key: key, Type: typ, Value: value}); err != nil {
		return err
	}
	return s.local.Set(ctx, subject, key, typ, value)
}

func (s *Shared) Iter(ctx context.Context, subject string) (iter.Iterator, error) {
	return s.local.Iter(ctx, subject)
}

func (s *Shared) Clear(ctx context.Context, subject string) error {
	it, err := s.local.Iter(ctx, subject)
	if err != nil {
		return err
	}
	for v, ok := it.Next(); ok; v, ok = it.Next() {
		e := v.(Entry)
		if err := s.mirror.Write(ctx, Entry{Subject: e.Subject, Key: e.Key}); err != nil {
			return err
		}
	}
	return s.local.Clear(ctx, subject)
}

func (s *Shared) Subscribe(ctx context.Context) <-chan Change {
	return s.local.Subscribe(ctx)
}

// ConnectionWatcher watches a filesystem endpoint (typically a Unix
// socket or its parent directory) that indicates the mirror's external
// process is up, reporting connect/disconnect events so a host can
// construct and tear down a Shared store as that process comes and
// goes, rather than polling.
type ConnectionWatcher struct {
	watcher *fsnotify.Watcher
	path    string
}

// NewConnectionWatcher watches the directory containing path so both
// its creation and removal are observable (watching the file itself
// misses creation-after-watch-start).
func NewConnectionWatcher(path string) (*ConnectionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &ConnectionWatcher{watcher: w, path: path}, nil
}

// Events reports true when path starts existing, false when it stops,
// deduplicating repeated events of the same state.
func (c *ConnectionWatcher) Events(ctx context.Context) <-chan bool {
	out := make(chan bool, 4)
	go func() {
		defer close(out)
		defer c.watcher.Close()
		var known, last bool
		report := func(up bool) {
			if known && last == up {
				return
			}
			known, last = true, up
			select {
			case out <- up:
			default:
			}
		}
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-c.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(c.path) {
					continue
				}
				switch {
				case ev.Op&(fsnotify.Create) != 0:
					report(true)
				case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
					report(false)
				}
			case err, ok := <-c.watcher.Errors:
				if !ok {
					return
				}
				log.Warning("connection watcher error", "path", c.path, "error", err)
			}
		}
	}()
	return out
}
