package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cogbot/internal/dispatch"
	"cogbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

// HandleMessage is the message-received entry point. Bot authors are ignored;
// a message made of nothing but the bot's mention is treated as a request for
// help.
func (b *Bot) HandleMessage(ctx context.Context, m *Message) {
	if m == nil || m.Author.Bot {
		return
	}

	self := b.User()
	if slices.Contains(dispatch.Mentions(self.ID), strings.TrimSpace(m.Content)) {
		rewritten := *m
		rewritten.Content = self.Mention() + " help"
		m = &rewritten
	}
	b.ProcessCommands(ctx, m)
}

// HandleMessageEdit re-runs an owner's edited message so the previous reply
// is edited in place.
func (b *Bot) HandleMessageEdit(ctx context.Context, m *Message) {
	if m == nil || !b.IsOwner(m.Author.ID) {
		return
	}
	b.HandleMessage(ctx, m)
}

// ProcessCommands resolves the prefix and command name of m and invokes the
// command. An abbreviated or alias name is rewritten to the canonical one
// first. Messages that do not name a command are ignored.
func (b *Bot) ProcessCommands(ctx context.Context, m *Message) {
	c := b.GetContext(m)
	if c.Command == nil {
		return
	}
	b.Invoke(ctx, c)
}

// GetContext builds the dispatch context for m. The returned context has a nil
// Command when m is not a command invocation. When the name had to be
// completed, Message holds the rewritten content.
func (b *Bot) GetContext(m *Message) *Context {
	c := &Context{Bot: b, Message: m}

	prefix, remainder, err := dispatch.Resolve(m.Content, b.Prefixes())
	if err != nil {
		return c
	}
	c.Prefix = prefix

	name, at, args := dispatch.SplitName(remainder)
	if name == "" {
		return c
	}

	match, ok := dispatch.Autocomplete(name, b.commands.All())
	if !ok {
		return c
	}
	if !match.Exact {
		rewritten := *m
		rewritten.Content = dispatch.Rewrite(m.Content, len(prefix)+at, match.Typed, match.Canonical)
		b.log.Info().Msgf("autocompleted %q to %q", match.Typed, match.Canonical)
		c.Message = &rewritten
		name = match.Canonical
	}

	c.Command = match.Command
	c.InvokedWith = name
	c.Args = args
	return c
}

// Invoke runs the command of c. Check failures, errors and panics go to the
// command error handler; nothing escapes to the caller.
func (b *Bot) Invoke(ctx context.Context, c *Context) {
	if c == nil || c.Command == nil {
		return
	}
	if b.IsShutdown() && !b.IsOwner(c.Author().ID) {
		b.commandError(ctx, c, fmt.Errorf("%w: bot is shutting down", ErrCheckFailure))
		return
	}

	inv := &cmd.Invocation{InvokedWith: c.InvokedWith, Args: c.Args, Data: c}
	if err := runCommand(ctx, c.Command, inv); err != nil {
		b.commandError(ctx, c, err)
	}
}

func runCommand(ctx context.Context, c cmd.Command, inv *cmd.Invocation) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command %q panicked: %v", c.Name(), r)
		}
	}()
	return c.Run(ctx, inv)
}

func (b *Bot) commandError(ctx context.Context, c *Context, err error) {
	if b.opts.OnCommandError != nil {
		b.opts.OnCommandError(ctx, c, err)
		return
	}
	if errors.Is(err, ErrCheckFailure) {
		return
	}

	b.log.Error().Err(err).
		Str("command", c.Command.Name()).
		Str("user", c.Author().ID).
		Msg("Error running command")

	msg := embed.NewEmbed().
		SetDescription(fmt.Sprintf("Error running command: %v", err)).
		SetColor(colorError).
		MessageEmbed
	if _, sendErr := c.Send(ctx, Reply{Embeds: []*discordgo.MessageEmbed{msg}}); sendErr != nil {
		b.log.Debug().Err(sendErr).Msg("Failed to report command error")
	}
}
