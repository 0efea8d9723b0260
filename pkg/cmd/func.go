package cmd

import "context"

// Func adapts a plain function into a Command.
type Func struct {
	CommandName        string
	CommandAliases     []string
	CommandDescription string
	Handler            func(ctx context.Context, inv *Invocation) error
}

func (f *Func) Name() string        { return f.CommandName }
func (f *Func) Aliases() []string   { return f.CommandAliases }
func (f *Func) Description() string { return f.CommandDescription }

func (f *Func) Run(ctx context.Context, inv *Invocation) error {
	if f.Handler == nil {
		return nil
	}
	return f.Handler(ctx, inv)
}
