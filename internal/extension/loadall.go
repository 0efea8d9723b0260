package extension

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
)

// LoadAllOptions controls a bulk load.
type LoadAllOptions struct {
	// Recursive descends into subdirectories of root.
	Recursive bool
	// Exclude lists manifest file names to skip, with or without extension.
	Exclude []string
	// OnResult is called once per manifest with the outcome of its load.
	OnResult func(path string, err error)
}

func (o LoadAllOptions) excluded(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, ex := range o.Exclude {
		if ex == name || ex == stem {
			return true
		}
	}
	return false
}

func (o LoadAllOptions) report(path string, err error) {
	if o.OnResult != nil {
		o.OnResult(path, err)
	}
}

// LoadAll loads every manifest found under root. One extension failing does
// not stop the others; each outcome goes to opts.OnResult. The returned error
// is only about walking root itself.
func (r *Registry) LoadAll(ctx context.Context, root string, opts LoadAllOptions) error {
	return filepath.WalkDir(root, func(file string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if file != root && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !IsManifest(d.Name()) || opts.excluded(d.Name()) {
			return nil
		}
		path, err := Dotted(root, file)
		if err != nil {
			opts.report(file, err)
			return nil
		}
		opts.report(path, r.loadFile(ctx, path, file))
		return nil
	})
}

func (r *Registry) loadFile(ctx context.Context, path, file string) error {
	if _, ok := r.catalog.Lookup(path); !ok {
		return notFound(path)
	}
	m, err := ReadManifest(file)
	if err != nil {
		return &LoadError{Path: path, Cause: err}
	}
	return r.LoadWithManifest(ctx, path, m)
}
