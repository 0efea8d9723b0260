package extension

import (
	"context"
	"fmt"
	"sync"

	"cogbot/pkg/cmd"
)

type loaded struct {
	def      Definition
	manifest Manifest
	group    *Group
}

// Registry tracks loaded extensions and keeps the command registry in sync
// with them.
//
// Load, Unload and Reload are serialized. Setup and Teardown run while that
// serialization is held, so they must not call back into Load/Unload/Reload.
// Unloading an extension from inside one of its own running commands is
// allowed: the handler keeps running, the command table simply stops routing
// to it.
type Registry struct {
	opMu sync.Mutex

	mu     sync.RWMutex
	loaded map[string]*loaded
	order  []string

	catalog  *Catalog
	commands *cmd.Registry
	host     any
	observe  func(Event)
}

// Option configures a Registry.
type Option func(*Registry)

// WithObserver sets a callback receiving every loaded/unloaded/ejected notice.
func WithObserver(fn func(Event)) Option {
	return func(r *Registry) { r.observe = fn }
}

// WithHost sets the value passed to every extension's Setup.
func WithHost(host any) Option {
	return func(r *Registry) { r.host = host }
}

// NewRegistry creates a registry resolving paths through catalog and
// registering commands into commands.
func NewRegistry(catalog *Catalog, commands *cmd.Registry, opts ...Option) *Registry {
	r := &Registry{
		loaded:   make(map[string]*loaded),
		catalog:  catalog,
		commands: commands,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load loads the extension at path with an empty manifest.
func (r *Registry) Load(ctx context.Context, path string) error {
	return r.LoadWithManifest(ctx, path, Manifest{})
}

// LoadWithManifest resolves path, runs its setup and activates it. Errors are
// ErrNotFound, ErrAlreadyLoaded, ErrDisabled, ErrSuperseded or a *LoadError
// carrying the setup's original error; the registry is unchanged by a failed
// load.
//
// At most one member of a group type family is active. Loading a type that
// specializes a loaded one ejects the loaded extension; loading a type that a
// loaded extension already specializes fails with ErrSuperseded.
//
// The new extension's setup runs before the ejected extension's teardown, so a
// failed setup leaves the old extension in place. Setup must not depend on
// resources the superseded extension only releases in its teardown.
func (r *Registry) LoadWithManifest(ctx context.Context, path string, m Manifest) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.load(ctx, path, m)
}

func (r *Registry) load(ctx context.Context, path string, m Manifest) error {
	def, ok := r.catalog.Lookup(path)
	if !ok {
		return notFound(path)
	}
	if r.IsLoaded(path) {
		return fmt.Errorf("%w: %s", ErrAlreadyLoaded, path)
	}
	if m.Disabled {
		return fmt.Errorf("%w: %s", ErrDisabled, path)
	}
	if def.Group != nil {
		if by, ok := r.specializedBy(def.Group); ok {
			return fmt.Errorf("%w: %s by %s", ErrSuperseded, path, by)
		}
	}

	group, err := runSetup(ctx, def, r.host, m)
	if err != nil {
		return &LoadError{Path: path, Cause: err}
	}
	if group == nil {
		group = &Group{}
	}

	if def.Group != nil {
		for _, old := range r.superseded(def.Group) {
			// A failed teardown still leaves the old extension unloaded; the
			// error travels with the notice.
			err := r.unload(ctx, old.def.Path)
			r.notify(Event{Kind: EventEjected, Path: old.def.Path, Group: old.def.Group, By: path, Err: err})
		}
	}

	r.commands.Register(path, group.Commands...)

	r.mu.Lock()
	r.loaded[path] = &loaded{def: def, manifest: m, group: group}
	r.order = append(r.order, path)
	r.mu.Unlock()

	r.notify(Event{Kind: EventLoaded, Path: path, Group: def.Group})
	return nil
}

func runSetup(ctx context.Context, def Definition, host any, m Manifest) (group *Group, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("setup panicked: %v", rec)
		}
	}()
	return def.Setup(ctx, host, m)
}

// superseded returns loaded extensions whose group type t specializes.
func (r *Registry) superseded(t *GroupType) []*loaded {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*loaded
	for _, p := range r.order {
		l := r.loaded[p]
		if l.def.Group != nil && t.Specializes(l.def.Group) {
			out = append(out, l)
		}
	}
	return out
}

// specializedBy returns the first loaded extension whose group type strictly
// specializes t.
func (r *Registry) specializedBy(t *GroupType) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.order {
		g := r.loaded[p].def.Group
		if g != nil && g.Specializes(t) && !t.Specializes(g) {
			return p, true
		}
	}
	return "", false
}

// Unload deactivates the extension at path, removing its commands before its
// teardown runs. A teardown error is returned but the extension stays unloaded.
func (r *Registry) Unload(ctx context.Context, path string) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()
	return r.unload(ctx, path)
}

func (r *Registry) unload(ctx context.Context, path string) error {
	r.mu.Lock()
	l, ok := r.loaded[path]
	if !ok {
		r.mu.Unlock()
		if _, known := r.catalog.Lookup(path); !known {
			return notFound(path)
		}
		return fmt.Errorf("%w: %s", ErrNotLoaded, path)
	}
	delete(r.loaded, path)
	for i, p := range r.order {
		if p == path {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	r.commands.RemoveOwner(path)

	var err error
	if l.group.Teardown != nil {
		err = l.group.Teardown(ctx)
	}
	if err != nil {
		err = fmt.Errorf("teardown %s: %w", path, err)
	}
	r.notify(Event{Kind: EventUnloaded, Path: path, Group: l.def.Group, Err: err})
	return err
}

// Reload unloads and loads path again with the manifest it was loaded with.
func (r *Registry) Reload(ctx context.Context, path string) error {
	r.mu.RLock()
	l, ok := r.loaded[path]
	r.mu.RUnlock()
	if !ok {
		return r.LoadWithManifest(ctx, path, Manifest{})
	}
	return r.ReloadWithManifest(ctx, path, l.manifest)
}

// ReloadWithManifest unloads path if loaded and loads it with m.
func (r *Registry) ReloadWithManifest(ctx context.Context, path string, m Manifest) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	var teardownErr error
	if r.IsLoaded(path) {
		teardownErr = r.unload(ctx, path)
	}
	if err := r.load(ctx, path, m); err != nil {
		return err
	}
	return teardownErr
}

// IsLoaded reports whether path is active.
func (r *Registry) IsLoaded(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaded[path]
	return ok
}

// Loaded returns the active paths in load order.
func (r *Registry) Loaded() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// GroupOf returns the group type of a loaded extension.
func (r *Registry) GroupOf(path string) (*GroupType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.loaded[path]
	if !ok {
		return nil, false
	}
	return l.def.Group, true
}

// Catalog returns the catalog paths are resolved through.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}

// UnloadAll unloads every extension, newest first, and returns the first error.
func (r *Registry) UnloadAll(ctx context.Context) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	paths := r.Loaded()
	var first error
	for i := len(paths) - 1; i >= 0; i-- {
		if err := r.unload(ctx, paths[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (r *Registry) notify(e Event) {
	if r.observe != nil {
		r.observe(e)
	}
}
