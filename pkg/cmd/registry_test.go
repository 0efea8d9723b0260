package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFunc(name string, aliases ...string) *Func {
	return &Func{CommandName: name, CommandAliases: aliases}
}

func TestRegistry(t *testing.T) {
	t.Run("lookup by name and alias is case-insensitive", func(t *testing.T) {
		r := NewRegistry()
		help := newFunc("Help", "h")
		r.Register("cogs.core", help)

		assert.Same(t, help, r.Get("help"))
		assert.Same(t, help, r.Get("HELP"))
		assert.Same(t, help, r.Get("H"))
		assert.Nil(t, r.Get("he"))
		assert.Nil(t, r.Get(""))

		e, ok := r.Lookup("h")
		require.True(t, ok)
		assert.Equal(t, "cogs.core", e.Owner)
	})

	t.Run("collisions resolve to the first registered command", func(t *testing.T) {
		r := NewRegistry()
		first := newFunc("ping")
		second := newFunc("pong", "ping")
		r.Register("a", first)
		r.Register("b", second)

		assert.Same(t, first, r.Get("ping"))
		assert.Equal(t, 2, r.Len())
	})

	t.Run("all keeps registration order", func(t *testing.T) {
		r := NewRegistry()
		r.Register("x", newFunc("zeta"), newFunc("alpha"))
		r.Register("y", newFunc("mid"))

		var names []string
		for _, c := range r.All() {
			names = append(names, c.Name())
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, names)
	})

	t.Run("remove owner keeps the rest in order", func(t *testing.T) {
		r := NewRegistry()
		r.Register("x", newFunc("a"))
		r.Register("y", newFunc("b"))
		r.Register("x", newFunc("c"))
		r.Register("y", newFunc("d"))

		assert.Equal(t, 2, r.RemoveOwner("x"))
		assert.Equal(t, 0, r.RemoveOwner("x"))

		var names []string
		for _, e := range r.Entries() {
			names = append(names, e.Command.Name())
			assert.Equal(t, "y", e.Owner)
		}
		assert.Equal(t, []string{"b", "d"}, names)
	})
}

func TestApplyAndRoot(t *testing.T) {
	var order []string
	base := &Func{
		CommandName: "base",
		Handler: func(ctx context.Context, inv *Invocation) error {
			order = append(order, "base")
			return nil
		},
	}
	tag := func(name string) Middleware {
		return func(c Command) Command {
			return Wrap(c, func(ctx context.Context, inv *Invocation) error {
				order = append(order, name)
				return c.Run(ctx, inv)
			})
		}
	}

	wrapped := Apply(base, tag("inner"), tag("outer"))
	require.NoError(t, wrapped.Run(context.Background(), &Invocation{}))

	assert.Equal(t, []string{"outer", "inner", "base"}, order)
	assert.Equal(t, "base", wrapped.Name())
	assert.Same(t, base, Root(wrapped))
}
