package middleware

import (
	"context"
	"time"

	"cogbot/internal/bot"
	"cogbot/internal/storage"
	"cogbot/pkg/cmd"
)

// CommandRecorder stores command invocations.
type CommandRecorder interface {
	RecordCommand(ctx context.Context, rec storage.CommandRecord) error
}

// WithCommandLogger wraps a command to record its execution after it runs.
// Recording failures are logged, never returned.
func WithCommandLogger(store CommandRecorder) cmd.Middleware {
	return func(c cmd.Command) cmd.Command {
		return cmd.Wrap(c, func(ctx context.Context, inv *cmd.Invocation) error {
			err := c.Run(ctx, inv)

			bc, ok := bot.FromInvocation(inv)
			if !ok || store == nil {
				return err
			}
			m := bc.Message
			rec := storage.CommandRecord{
				GuildID:   m.GuildID,
				ChannelID: m.ChannelID,
				UserID:    m.Author.ID,
				Username:  m.Author.Username,
				Command:   c.Name(),
				Invoked:   inv.InvokedWith,
				Failed:    err != nil,
				At:        time.Now(),
			}
			if e := store.RecordCommand(ctx, rec); e != nil {
				log := bc.Bot.Logger()
				log.Warn().Err(e).Str("command", c.Name()).Msg("Failed to log command")
			}
			return err
		})
	}
}
