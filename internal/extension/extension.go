// Package extension loads and unloads units of command functionality at
// runtime.
//
// Go cannot import code at runtime, so every extension is compiled in and
// registered in a Catalog under its dotted path (e.g. "cogs.owner"). Loading
// looks the path up, runs the extension's Setup and registers the commands it
// returns. Each extension may declare a command-group type; a type names a
// feature family and may specialize another type through Supersedes. Loading
// a specialization ejects whatever loaded extension provides the type it
// specializes, and loading a type that is already specialized is refused, so
// only one member of a family is active at a time.
package extension

import (
	"context"

	"cogbot/pkg/cmd"
)

// GroupType identifies a command-group family member. Supersedes points at the
// type this one specializes, if any.
type GroupType struct {
	Name       string
	Supersedes *GroupType
}

// Specializes reports whether t is other or a descendant of other through the
// Supersedes chain.
func (t *GroupType) Specializes(other *GroupType) bool {
	if t == nil || other == nil {
		return false
	}
	for cur := t; cur != nil; cur = cur.Supersedes {
		if cur == other || cur.Name == other.Name {
			return true
		}
	}
	return false
}

func (t *GroupType) String() string {
	if t == nil {
		return "<none>"
	}
	return t.Name
}

// Group is what an extension contributes once set up.
type Group struct {
	Commands []cmd.Command
	// Teardown, if set, runs when the extension is unloaded.
	Teardown func(ctx context.Context) error
}

// SetupFunc is an extension's top-level setup. host is whatever the registry
// was constructed with (the bot, in production).
type SetupFunc func(ctx context.Context, host any, m Manifest) (*Group, error)

// Definition is an entry of the registration table.
type Definition struct {
	Path  string
	Group *GroupType
	Setup SetupFunc
}

// EventKind classifies registry notices.
type EventKind int

const (
	EventLoaded EventKind = iota
	EventUnloaded
	EventEjected
)

func (k EventKind) String() string {
	switch k {
	case EventLoaded:
		return "loaded"
	case EventUnloaded:
		return "unloaded"
	case EventEjected:
		return "ejected"
	default:
		return "unknown"
	}
}

// Event is emitted by the registry after a state change. For EventEjected, By
// is the path whose load caused the ejection. Err carries a teardown failure.
type Event struct {
	Kind  EventKind
	Path  string
	Group *GroupType
	By    string
	Err   error
}
