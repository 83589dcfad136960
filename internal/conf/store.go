// Package conf implements the layered configuration store: each
// configuration file contributes zero or more named top-level sections,
// and a section's value is assembled lazily, on first request, by
// merging that section (and its "override."-prefixed sibling) across
// the main file and every fragment file BaseDirs discovers, then cached
// for the life of the store.
package conf

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/wpcore-go/wpcore/internal/props"
	"github.com/wpcore-go/wpcore/internal/wperr"
	"github.com/wpcore-go/wpcore/internal/wplog"
	"github.com/wpcore-go/wpcore/internal/wpjson"
)

var log = wplog.New("conf.store")

const overridePrefix = "override."

// Store is a lazily-loaded, cached view over the named sections of one
// configuration file set: the highest-priority copy of FileName plus
// every fragment under FileName+".d" directories across the search
// path. Once a section has been loaded and merged it is immutable for
// the rest of the process, matching the original's "configuration
// loading is not re-entered" contract — construct a new Store (e.g. in
// a test) to pick up on-disk changes.
type Store struct {
	dirs     BaseDirs
	fileName string

	filesOnce sync.Once
	files     []string

	mu       sync.Mutex
	sections map[string]*sectionEntry
}

type sectionEntry struct {
	once  sync.Once
	value wpjson.Value
	err   error
}

// NewStore returns a Store reading fileName (e.g. "wpcore.conf") and
// its fragment directory across dirs' configuration search path.
func NewStore(dirs BaseDirs, fileName string) *Store {
	return &Store{dirs: dirs, fileName: fileName, sections: make(map[string]*sectionEntry)}
}

// Section returns the merged value of the named section, or fallback if
// no file provides it. The second return value reports whether any file
// contributed to the result (false means fallback was used as-is).
func (s *Store) Section(name string, fallback wpjson.Value) (wpjson.Value, bool) {
	entry := s.entryFor(name)
	entry.once.Do(func() {
		entry.value, entry.err = s.loadSection(name)
	})
	if entry.err != nil || entry.value.IsNull() {
		return fallback, false
	}
	return entry.value, true
}

func (s *Store) entryFor(name string) *sectionEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sections[name]
	if !ok {
		e = &sectionEntry{}
		s.sections[name] = e
	}
	return e
}

// configFiles discovers the file set once: the highest-priority copy of
// the main file, then every fragment, lowest priority first. The scan
// holds a shared advisory lock on a sentinel beside the highest-priority
// directory so a concurrent external writer is not observed mid-write.
func (s *Store) configFiles() []string {
	s.filesOnce.Do(func() {
		fl := flock.New(s.lockFilePath())
		if locked, err := fl.TryRLock(); err == nil && locked {
			defer fl.Unlock()
		}
		if main := s.dirs.HighestPriorityFile(CategoryConfig, s.fileName); main != "" {
			s.files = append(s.files, main)
		}
		s.files = append(s.files, s.dirs.FragmentFiles(CategoryConfig, s.fileName+".d")...)
	})
	return s.files
}

// loadSection walks every discovered file in priority order, pulling
// out the top-level keys name and "override."+name, and folds them the
// way conf.c's merge_section_cb does: a plain occurrence merges into
// the accumulated value (an incompatible merge logs a warning and keeps
// what was accumulated), an override occurrence replaces it outright.
func (s *Store) loadSection(name string) (wpjson.Value, error) {
	var acc wpjson.Value
	have := false
	for _, path := range s.configFiles() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		// Files are written in the daemon's native variant, whose top
		// level is an implicit object (no enclosing braces); a file
		// that does carry braces parses directly.
		top, err := wpjson.Parse(string(data))
		if err != nil || top.Kind() != wpjson.KindObject {
			top, err = wpjson.Parse("{" + string(data) + "}")
		}
		if err != nil {
			log.Warning("skipping unparsable config file", "path", path, "error", err)
			continue
		}
		keys, values, err := top.Properties()
		if err != nil {
			log.Warning("skipping config file without top-level sections", "path", path, "error", err)
			continue
		}
		for i, k := range keys {
			override := strings.HasPrefix(k, overridePrefix)
			if strings.TrimPrefix(k, overridePrefix) != name {
				continue
			}
			v := values[i]
			if v.Kind() != wpjson.KindObject && v.Kind() != wpjson.KindArray {
				log.Warning("skipping section that is not an object or array",
					"section", name, "path", path, "kind", v.Kind())
				continue
			}
			if !override && have {
				merged, err := wpjson.Merge(acc, v)
				if err != nil {
					if wperr.Is(err, wperr.KindOperationFailed) {
						log.Warning("skipping incompatible section merge",
							"section", name, "path", path, "error", err)
						continue
					}
					return wpjson.Null, err
				}
				acc = merged
			} else {
				acc = v
				have = true
			}
			log.Debug("section loaded", "section", name, "path", path, "override", override)
		}
	}
	if !have {
		return wpjson.Null, wperr.Withf(wperr.KindNotFound, "loadSection", "no file provided section %q", name)
	}
	return acc, nil
}

func (s *Store) lockFilePath() string {
	dirs := s.dirs.Dirs(CategoryConfig)
	if len(dirs) == 0 {
		return filepath.Join(os.TempDir(), ".wpcore-config.lock")
	}
	return filepath.Join(dirs[len(dirs)-1], ".wpcore-config.lock")
}

// Value returns the JSON value stored under key within an object
// section, or fallback when the section or key is absent.
func (s *Store) Value(section, key string, fallback wpjson.Value) wpjson.Value {
	v, ok := s.lookup(section, key)
	if !ok {
		return fallback
	}
	return v
}

// ValueBool, ValueInt, ValueString are typed convenience lookups within
// a section, returning fallback when the key is absent or of the wrong
// kind.
func (s *Store) ValueBool(section, key string, fallback bool) bool {
	v, ok := s.lookup(section, key)
	if !ok {
		return fallback
	}
	b, ok := v.AsBool()
	if !ok {
		return fallback
	}
	return b
}

func (s *Store) ValueInt(section, key string, fallback int64) int64 {
	v, ok := s.lookup(section, key)
	if !ok {
		return fallback
	}
	n, ok := v.AsInt64()
	if !ok {
		return fallback
	}
	return n
}

func (s *Store) ValueFloat(section, key string, fallback float64) float64 {
	v, ok := s.lookup(section, key)
	if !ok {
		return fallback
	}
	f, ok := v.AsFloat64()
	if !ok {
		return fallback
	}
	return f
}

func (s *Store) ValueString(section, key, fallback string) string {
	v, ok := s.lookup(section, key)
	if !ok {
		return fallback
	}
	str, ok := v.AsString()
	if !ok {
		return fallback
	}
	return str
}

func (s *Store) lookup(section, key string) (wpjson.Value, bool) {
	sec, ok := s.Section(section, wpjson.Null)
	if !ok {
		return wpjson.Value{}, false
	}
	v, found, err := sec.Lookup(key)
	if err != nil || !found {
		return wpjson.Value{}, false
	}
	return v, true
}

// ApplyRules applies the named section's rules array against
// matchProps/appliedProps, matching wp_conf_apply_rules: fallbackRules
// are used only when the section is missing or is not an array.
func (s *Store) ApplyRules(section string, matchProps, appliedProps *props.Properties, fallbackRules wpjson.Value, actions map[string]wpjson.ActionFunc) (bool, error) {
	sec, ok := s.Section(section, wpjson.Null)
	if !ok || sec.Kind() != wpjson.KindArray {
		sec = fallbackRules
	}
	return wpjson.ApplyRules(sec, matchProps, appliedProps, actions)
}
