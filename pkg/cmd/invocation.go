// Package cmd provides a transport-agnostic command core: a command is something
// with a name, aliases, a description, and Run(ctx, invocation). How it is
// registered and dispatched (Discord text messages, CLI) is defined by adapters
// that wrap this.
package cmd

import "context"

// Invocation carries the minimal input any command runner can pass: the name the
// user typed, arguments and an opaque payload. Adapters set Data to their
// dispatch context (e.g. *bot.Context).
type Invocation struct {
	InvokedWith string
	Args        []string
	Data        interface{}
}

// Command is the universal contract: identity plus execution. Permissions and
// transport-specific replies stay in adapters and middleware.
type Command interface {
	Name() string
	Aliases() []string
	Description() string
	Run(ctx context.Context, inv *Invocation) error
}

// Names returns the lowercased name followed by the command's aliases, in the
// order they are declared.
func Names(c Command) []string {
	names := make([]string, 0, 1+len(c.Aliases()))
	names = append(names, lower(c.Name()))
	for _, a := range c.Aliases() {
		names = append(names, lower(a))
	}
	return names
}
