package extension

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch keeps the registry in step with the manifests under root until ctx is
// done: a new manifest is loaded, a rewritten one reloaded and a removed one
// unloaded. Outcomes go to opts.OnResult.
func (r *Registry) Watch(ctx context.Context, root string, opts LoadAllOptions) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirs(w, root, opts.Recursive); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			opts.report(root, err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			r.handleFileEvent(ctx, w, root, opts, ev)
		}
	}
}

func (r *Registry) handleFileEvent(ctx context.Context, w *fsnotify.Watcher, root string, opts LoadAllOptions, ev fsnotify.Event) {
	name := filepath.Base(ev.Name)

	if ev.Has(fsnotify.Create) && opts.Recursive {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addDirs(w, ev.Name, true); err != nil {
				opts.report(ev.Name, err)
			}
			return
		}
	}
	if !IsManifest(name) || opts.excluded(name) {
		return
	}
	path, err := Dotted(root, ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		if r.IsLoaded(path) {
			opts.report(path, r.Unload(ctx, path))
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		m, err := ReadManifest(ev.Name)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return
			}
			opts.report(path, &LoadError{Path: path, Cause: err})
			return
		}
		if _, ok := r.catalog.Lookup(path); !ok {
			opts.report(path, notFound(path))
			return
		}
		opts.report(path, r.ReloadWithManifest(ctx, path, m))
	}
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		return w.Add(root)
	}
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
}
