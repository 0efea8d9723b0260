package middleware

import (
	"context"

	"cogbot/internal/bot"
	"cogbot/pkg/cmd"
)

const (
	ReactionSuccess = "👍"
	ReactionFailure = "👎"
)

// WithOutcomeReactions reacts to the invoking message with 👍 or 👎 once the
// command returns. Reaction failures are ignored.
func WithOutcomeReactions() cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)

			if bc, ok := bot.FromInvocation(inv); ok {
				emoji := ReactionSuccess
				if err != nil {
					emoji = ReactionFailure
				}
				_ = bc.ClearReactions(ctx)
				if rerr := bc.React(ctx, emoji); rerr != nil {
					log := bc.Bot.Logger()
					log.Debug().Err(rerr).Str("command", c.Name()).Msg("Failed to react")
				}
			}
			return err
		})
	}
}
