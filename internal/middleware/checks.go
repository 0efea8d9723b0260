package middleware

import (
	"context"
	"fmt"

	"cogbot/internal/bot"
	"cogbot/pkg/cmd"
)

// WithGuildOnly wraps a command to enforce guild-only access
func WithGuildOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			bc, ok := bot.FromInvocation(inv)
			if !ok || bc.Message.GuildID == "" {
				return fmt.Errorf("%w: %s can only be used in a server", bot.ErrCheckFailure, c.Name())
			}
			return c.Run(ctx, inv)
		})
	}
}

// WithOwnerOnly wraps a command so only bot owners may run it
func WithOwnerOnly() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			bc, ok := bot.FromInvocation(inv)
			if !ok || !bc.Bot.IsOwner(bc.Author().ID) {
				return fmt.Errorf("%w: %s is owner-only", bot.ErrCheckFailure, c.Name())
			}
			return c.Run(ctx, inv)
		})
	}
}
