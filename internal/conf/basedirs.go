package conf

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wpcore-go/wpcore/internal/iter"
)

// Category identifies which kind of directory list BaseDirs resolves:
// configuration sections, data files (schemas, presets), or plug-in
// modules. Grounded on the original engine's base-dirs.c, which keeps a
// separate search list per category.
type Category int

const (
	CategoryConfig Category = iota
	CategoryData
	CategoryModule
)

// envOverride* are the per-category override environment variables
// BaseDirs consults, renamed from the original's WIREPLUMBER_* to this
// engine's own namespace but preserving the same override/fallback shape.
const (
	envOverrideConfig = "WPCORE_CONFIG_DIR"
	envOverrideData   = "WPCORE_DATA_DIR"
	envOverrideModule = "WPCORE_MODULE_DIR"
)

// BaseDirs resolves the ordered list of directories to search for a
// given category, lowest priority first (later directories shadow
// earlier ones on same-named files), following base-dirs.c: if the
// category's override environment variable is set, its colon-separated
// list fully replaces the XDG/system search order; otherwise the
// standard XDG fallback chain applies.
type BaseDirs struct {
	// AppName is used to build the default config/data subdirectory,
	// e.g. "$XDG_CONFIG_HOME/<AppName>".
	AppName string
}

// Dirs returns the ordered search path for category.
func (b BaseDirs) Dirs(category Category) []string {
	if override := os.Getenv(b.overrideVar(category)); override != "" {
		return splitPathList(override)
	}
	switch category {
	case CategoryConfig:
		return b.xdgConfigDirs()
	case CategoryData:
		return b.xdgDataDirs()
	case CategoryModule:
		return b.xdgDataDirs() // modules live alongside data by default
	default:
		return nil
	}
}

func (b BaseDirs) overrideVar(category Category) string {
	switch category {
	case CategoryConfig:
		return envOverrideConfig
	case CategoryData:
		return envOverrideData
	case CategoryModule:
		return envOverrideModule
	default:
		return ""
	}
}

func (b BaseDirs) xdgConfigDirs() []string {
	var dirs []string
	for _, d := range splitPathList(getenvOr("XDG_CONFIG_DIRS", "/etc/xdg")) {
		dirs = append(dirs, filepath.Join(d, b.AppName))
	}
	home := getenvOr("XDG_CONFIG_HOME", filepath.Join(homeDir(), ".config"))
	dirs = append(dirs, filepath.Join(home, b.AppName))
	return dirs
}

func (b BaseDirs) xdgDataDirs() []string {
	var dirs []string
	for _, d := range splitPathList(getenvOr("XDG_DATA_DIRS", "/usr/local/share:/usr/share")) {
		dirs = append(dirs, filepath.Join(d, b.AppName))
	}
	home := getenvOr("XDG_DATA_HOME", filepath.Join(homeDir(), ".local", "share"))
	dirs = append(dirs, filepath.Join(home, b.AppName))
	return dirs
}

func splitPathList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ":") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func homeDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return h
	}
	return "."
}

// HighestPriorityFile returns the path of name within the
// highest-priority (last) directory of category in which it exists, or
// "" if none has it — used for lookups that want exactly one
// authoritative file rather than every layer to merge.
func (b BaseDirs) HighestPriorityFile(category Category, name string) string {
	dirs := b.Dirs(category)
	for i := len(dirs) - 1; i >= 0; i-- {
		p := filepath.Join(dirs[i], name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// AllFiles returns every directory's path for name that actually
// exists, lowest priority first, for callers that need to visit every
// layer rather than pick one.
func (b BaseDirs) AllFiles(category Category, name string) []string {
	var out []string
	for _, d := range b.Dirs(category) {
		p := filepath.Join(d, name)
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

// FragmentFiles lists the files of subdir (e.g. "wpcore.conf.d") merged
// across every directory of category: a fragment in a higher-priority
// directory shadows a same-named fragment in a lower one, and the
// surviving set is returned sorted by base name so drop-in ordering is
// stable regardless of which layer a fragment came from.
func (b BaseDirs) FragmentFiles(category Category, subdir string) []string {
	byBase := make(map[string]string)
	for _, d := range b.Dirs(category) {
		entries, err := os.ReadDir(filepath.Join(d, subdir))
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			byBase[e.Name()] = filepath.Join(d, subdir, e.Name())
		}
	}
	bases := make([]string, 0, len(byBase))
	for base := range byBase {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	out := make([]string, len(bases))
	for i, base := range bases {
		out[i] = byBase[base]
	}
	return out
}

// FragmentIterator is FragmentFiles exposed through the engine's
// iterator abstraction, for callers that consume file lists the same
// way they consume every other collection.
func (b BaseDirs) FragmentIterator(category Category, subdir string) iter.Iterator {
	return iter.FromSlice(b.FragmentFiles(category, subdir))
}
