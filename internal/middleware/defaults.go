package middleware

import (
	"cogbot/internal/bot"
	"cogbot/pkg/cmd"
)

// Logged returns the command logger for b's store, or nothing when b has no
// store.
func Logged(b *bot.Bot) []cmd.Middleware {
	if s := b.Store(); s != nil {
		return []cmd.Middleware{WithCommandLogger(s)}
	}
	return nil
}
