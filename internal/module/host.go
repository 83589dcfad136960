// Package module implements the sandboxed plug-in host: WASM modules
// that export a module_init entry point, loaded and version-resolved
// against each other and the engine's own version.
package module

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"golang.org/x/mod/semver"

	"github.com/wpcore-go/wpcore/internal/conf"
	"github.com/wpcore-go/wpcore/internal/wperr"
	"github.com/wpcore-go/wpcore/internal/wplog"
)

var log = wplog.New("module.host")

// Descriptor is what a plug-in's module_init call reports about itself:
// the features it activates and the other plug-ins (by name) it
// requires, each as a "name@semver-constraint" string compared against
// the already-loaded plug-ins' own advertised versions.
type Descriptor struct {
	Features []string `json:"features"`
	Requires []string `json:"requires"`
}

// Plugin is a loaded, instantiated WASM module. A freshly loaded
// plug-in provides no features until Activate succeeds.
type Plugin struct {
	Name       string
	Version    string
	Descriptor Descriptor

	runtime  wazero.Runtime
	instance api.Module
	active   bool
}

// Activate calls the plug-in's optional "activate" export and marks
// its declared features as enabled. Activating an already-active
// plug-in is a no-op.
func (p *Plugin) Activate(ctx context.Context) error {
	if p.active {
		return nil
	}
	if fn := p.instance.ExportedFunction("activate"); fn != nil {
		if _, err := fn.Call(ctx); err != nil {
			return wperr.New(wperr.KindOperationFailed, "Activate", err)
		}
	}
	p.active = true
	return nil
}

// Deactivate calls the optional "deactivate" export and disables the
// plug-in's features.
func (p *Plugin) Deactivate(ctx context.Context) error {
	if !p.active {
		return nil
	}
	if fn := p.instance.ExportedFunction("deactivate"); fn != nil {
		if _, err := fn.Call(ctx); err != nil {
			return wperr.New(wperr.KindOperationFailed, "Deactivate", err)
		}
	}
	p.active = false
	return nil
}

// EnabledFeatures returns the features the plug-in currently provides:
// its declared feature set while active, nothing otherwise.
func (p *Plugin) EnabledFeatures() []string {
	if !p.active {
		return nil
	}
	return p.Descriptor.Features
}

// Host loads and tracks plug-ins, checking each one's declared
// requirements against the others already loaded.
type Host struct {
	engineVersion string
	runtime       wazero.Runtime
	loaded        map[string]*Plugin
}

// NewHost returns a Host whose plug-ins may declare a requirement on
// "engine@<constraint>" checked against engineVersion (a semver string,
// e.g. "v1.4.0").
func NewHost(ctx context.Context, engineVersion string) *Host {
	rt := wazero.NewRuntime(ctx)
	wasi_snapshot_preview1.MustInstantiate(ctx, rt)
	return &Host{engineVersion: engineVersion, runtime: rt, loaded: make(map[string]*Plugin)}
}

// Close tears down the host's WASM runtime and every loaded plug-in
// instance.
func (h *Host) Close(ctx context.Context) error {
	for _, p := range h.loaded {
		_ = p.instance.Close(ctx)
	}
	return h.runtime.Close(ctx)
}

// Load compiles and instantiates wasmBytes, calls its module_init
// export with args serialized as JSON, and records the returned
// descriptor after checking every "Requires" entry resolves against an
// already-loaded plug-in (or the engine itself) at a satisfying
// version.
func (h *Host) Load(ctx context.Context, name, version string, wasmBytes []byte, args any) (*Plugin, error) {
	if _, exists := h.loaded[name]; exists {
		return nil, wperr.Withf(wperr.KindValidation, "Load", "plug-in %q already loaded", name)
	}

	mod, err := h.runtime.Instantiate(ctx, wasmBytes)
	if err != nil {
		return nil, wperr.New(wperr.KindOperationFailed, "Load", fmt.Errorf("instantiate %q: %w", name, err))
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		mod.Close(ctx)
		return nil, wperr.New(wperr.KindInvalidArgument, "Load", err)
	}

	desc, err := callModuleInit(ctx, mod, argsJSON)
	if err != nil {
		mod.Close(ctx)
		return nil, err
	}

	if err := h.checkRequirements(desc); err != nil {
		mod.Close(ctx)
		return nil, err
	}

	p := &Plugin{Name: name, Version: version, Descriptor: desc, runtime: h.runtime, instance: mod}
	h.loaded[name] = p
	log.Info("plug-in loaded", "name", name, "version", version, "features", desc.Features)
	return p, nil
}

// LoadByName resolves name+".wasm" through the module search path
// (highest-priority directory wins, overridable via the module
// directory environment variable) and loads it.
func (h *Host) LoadByName(ctx context.Context, dirs conf.BaseDirs, name, version string, args any) (*Plugin, error) {
	path := dirs.HighestPriorityFile(conf.CategoryModule, name+".wasm")
	if path == "" {
		return nil, wperr.Withf(wperr.KindNotFound, "LoadByName", "no module %q in the module search path", name)
	}
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, wperr.New(wperr.KindOperationFailed, "LoadByName", err)
	}
	return h.Load(ctx, name, version, wasmBytes, args)
}

// Feature reports whether any loaded, active plug-in currently
// provides the named feature, the lookup other plug-ins and the host
// use for dependency resolution.
func (h *Host) Feature(feature string) bool {
	for _, p := range h.loaded {
		for _, f := range p.EnabledFeatures() {
			if f == feature {
				return true
			}
		}
	}
	return false
}

// checkRequirements validates every "name@constraint" requirement
// string against the engine's own version and the other loaded
// plug-ins' versions, using golang.org/x/mod/semver for the comparison.
func (h *Host) checkRequirements(desc Descriptor) error {
	for _, req := range desc.Requires {
		name, constraint, err := splitRequirement(req)
		if err != nil {
			return err
		}
		var haveVersion string
		if name == "engine" {
			haveVersion = h.engineVersion
		} else if p, ok := h.loaded[name]; ok {
			haveVersion = p.Version
		} else {
			return wperr.Withf(wperr.KindNotFound, "checkRequirements", "requirement %q: %q not loaded", req, name)
		}
		if !satisfies(haveVersion, constraint) {
			return wperr.Withf(wperr.KindValidation, "checkRequirements", "requirement %q not satisfied by %s@%s", req, name, haveVersion)
		}
	}
	return nil
}

func splitRequirement(req string) (name, constraint string, err error) {
	for i := 0; i < len(req); i++ {
		if req[i] == '@' {
			return req[:i], req[i+1:], nil
		}
	}
	return "", "", wperr.Withf(wperr.KindInvalidArgument, "splitRequirement", "malformed requirement %q, want name@constraint", req)
}

// satisfies supports the two constraint shapes used by the engine's
// plug-in descriptors: "vX.Y.Z" (exact) and ">=vX.Y.Z" (minimum),
// compared with semver.Compare.
func satisfies(have, constraint string) bool {
	if len(constraint) >= 2 && constraint[:2] == ">=" {
		want := constraint[2:]
		return semver.IsValid(have) && semver.IsValid(want) && semver.Compare(have, want) >= 0
	}
	return semver.IsValid(have) && semver.IsValid(constraint) && semver.Compare(have, constraint) == 0
}
