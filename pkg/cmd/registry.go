package cmd

import (
	"strings"
	"sync"
)

// Entry is a registered command together with the extension that owns it.
type Entry struct {
	Command Command
	Owner   string
}

// Registry stores commands in registration order. It does not perform dispatch;
// each adapter looks up commands and invokes them with its own context.
//
// Names and aliases are compared case-insensitively. Collisions are allowed:
// lookups return the first registered match, so registration order doubles as
// lookup priority.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends commands owned by owner.
func (r *Registry) Register(owner string, cmds ...Command) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cmds {
		r.entries = append(r.entries, Entry{Command: c, Owner: owner})
	}
}

// RemoveOwner drops every command owned by owner and returns how many were removed.
func (r *Registry) RemoveOwner(owner string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if e.Owner == owner {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(r.entries); i++ {
		r.entries[i] = Entry{}
	}
	r.entries = kept
	return removed
}

// Get returns the first command whose name or alias equals name, or nil.
func (r *Registry) Get(name string) Command {
	e, ok := r.Lookup(name)
	if !ok {
		return nil
	}
	return e.Command
}

// Lookup is Get that also reports the owning extension.
func (r *Registry) Lookup(name string) (Entry, bool) {
	name = lower(name)
	if name == "" {
		return Entry{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		for _, n := range Names(e.Command) {
			if n == name {
				return e, true
			}
		}
	}
	return Entry{}, false
}

// All returns all registered commands in registration order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Command, 0, len(r.entries))
	for _, e := range r.entries {
		list = append(list, e.Command)
	}
	return list
}

// Entries returns a snapshot of all entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func lower(s string) string { return strings.ToLower(s) }
