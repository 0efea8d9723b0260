package bot

import (
	"context"

	"cogbot/pkg/cmd"
)

// Context is the dispatch context of one command invocation. Commands reach
// it through FromInvocation.
type Context struct {
	Bot     *Bot
	Message *Message
	// Prefix is the prefix the message was matched with.
	Prefix string
	// Command is nil when the message is not an invocation.
	Command     cmd.Command
	InvokedWith string
	Args        []string
}

// FromInvocation returns the dispatch context carried by inv.
func FromInvocation(inv *cmd.Invocation) (*Context, bool) {
	if inv == nil {
		return nil, false
	}
	c, ok := inv.Data.(*Context)
	return c, ok && c != nil
}

// Valid reports whether the context names a command.
func (c *Context) Valid() bool { return c.Command != nil }

// Author returns the invoking user.
func (c *Context) Author() User { return c.Message.Author }

// Send replies in the invoking channel. For owners the reply is remembered
// against the triggering message, and a re-run of that message edits the
// earlier reply instead of sending another.
func (c *Context) Send(ctx context.Context, r Reply) (*Message, error) {
	return c.Bot.send(ctx, c.Message, r)
}

// Reply sends plain text.
func (c *Context) Reply(ctx context.Context, text string) (*Message, error) {
	return c.Send(ctx, Reply{Content: text})
}

// React adds emoji to the triggering message.
func (c *Context) React(ctx context.Context, emoji string) error {
	return c.Bot.transport.React(ctx, c.Message.ChannelID, c.Message.ID, emoji)
}

// ClearReactions removes the reactions on the triggering message.
func (c *Context) ClearReactions(ctx context.Context) error {
	return c.Bot.transport.ClearReactions(ctx, c.Message.ChannelID, c.Message.ID)
}

func (b *Bot) send(ctx context.Context, src *Message, r Reply) (*Message, error) {
	if !b.IsOwner(src.Author.ID) {
		return b.transport.Send(ctx, src.ChannelID, r)
	}

	if prev, ok := b.cache.Get(src.ID); ok && prev != nil {
		if err := b.transport.ClearReactions(ctx, prev.ChannelID, prev.ID); err != nil && !silent(err) {
			b.log.Debug().Err(err).Str("message", prev.ID).Msg("Failed to clear reactions")
		}
		edited, err := b.transport.Edit(ctx, prev.ChannelID, prev.ID, r)
		if err == nil {
			b.cache.Put(src.ID, edited)
			return edited, nil
		}
		b.log.Debug().Err(err).Str("message", prev.ID).Msg("Cached reply not editable, sending a new one")
	}

	sent, err := b.transport.Send(ctx, src.ChannelID, r)
	if err != nil {
		return nil, err
	}
	b.cache.Put(src.ID, sent)
	return sent, nil
}
