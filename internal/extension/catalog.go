package extension

import (
	"fmt"
	"sort"
	"sync"
)

// DefaultCatalog is filled by extension packages from their init functions.
var DefaultCatalog = NewCatalog()

// Register adds def to DefaultCatalog. It panics on a duplicate path, which can
// only happen through a programming error.
func Register(def Definition) {
	if err := DefaultCatalog.Add(def); err != nil {
		panic(err)
	}
}

// Catalog is the table of extensions that can be loaded, keyed by dotted path.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]Definition)}
}

// Add registers def.
func (c *Catalog) Add(def Definition) error {
	if def.Path == "" {
		return fmt.Errorf("extension definition without path")
	}
	if def.Setup == nil {
		return fmt.Errorf("extension %q has no setup", def.Path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.defs[def.Path]; exists {
		return fmt.Errorf("extension %q registered twice", def.Path)
	}
	c.defs[def.Path] = def
	return nil
}

// Lookup resolves a dotted path.
func (c *Catalog) Lookup(path string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.defs[path]
	return def, ok
}

// Paths returns all registered paths, sorted.
func (c *Catalog) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for p := range c.defs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
