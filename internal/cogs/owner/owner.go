// Package owner is the cogs.owner extension: runtime extension management and
// bot maintenance, restricted to bot owners.
package owner

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cogbot/internal/bot"
	"cogbot/internal/extension"
	"cogbot/internal/middleware"
	"cogbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

var Group = &extension.GroupType{Name: "owner"}

func init() {
	extension.Register(bot.Extension("cogs.owner", Group, setup))
}

type cog struct {
	bot *bot.Bot
}

func setup(ctx context.Context, b *bot.Bot, m extension.Manifest) (*extension.Group, error) {
	o := &cog{bot: b}
	mws := append(middleware.Logged(b), middleware.WithOutcomeReactions(), middleware.WithOwnerOnly())

	cmds := []*cmd.Func{
		{CommandName: "load", CommandDescription: "Load extensions by dotted path", Handler: o.load},
		{CommandName: "unload", CommandDescription: "Unload extensions", Handler: o.unload},
		{CommandName: "reload", CommandDescription: "Reload extensions", Handler: o.reload},
		{CommandName: "extensions", CommandAliases: []string{"ext", "cogs"}, CommandDescription: "List loaded and available extensions", Handler: o.extensions},
		{CommandName: "jobs", CommandDescription: "Show running background jobs", Handler: o.jobs},
		{CommandName: "history", CommandDescription: "Show the latest commands run in this server", Handler: o.history},
		{CommandName: "clear", CommandDescription: "Redraw the console banner", Handler: o.clear},
		{CommandName: "close", CommandDescription: "Shut the bot down", Handler: o.close},
	}
	out := make([]cmd.Command, len(cmds))
	for i, c := range cmds {
		out[i] = cmd.Apply(c, mws...)
	}
	return &extension.Group{Commands: out}, nil
}

func dispatchContext(inv *cmd.Invocation) (*bot.Context, error) {
	c, ok := bot.FromInvocation(inv)
	if !ok {
		return nil, fmt.Errorf("%s: no dispatch context", inv.InvokedWith)
	}
	return c, nil
}

// each runs op for every path argument and reports one line per path.
func (o *cog) each(ctx context.Context, inv *cmd.Invocation, verb string, op func(context.Context, string) error) error {
	c, err := dispatchContext(inv)
	if err != nil {
		return err
	}
	if len(inv.Args) == 0 {
		_, err := c.Reply(ctx, fmt.Sprintf("Usage: %s%s <extension>...", c.Prefix, inv.InvokedWith))
		return err
	}

	var lines []string
	var errs []error
	for _, path := range inv.Args {
		if err := op(ctx, path); err != nil {
			errs = append(errs, err)
			lines = append(lines, fmt.Sprintf("[x] %s: %v", path, extension.Cause(err)))
			continue
		}
		lines = append(lines, fmt.Sprintf("[ ] %s %s", verb, path))
	}
	if _, err := c.Reply(ctx, "```\n"+strings.Join(lines, "\n")+"\n```"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (o *cog) load(ctx context.Context, inv *cmd.Invocation) error {
	return o.each(ctx, inv, "Loaded", o.bot.LoadExtension)
}

func (o *cog) unload(ctx context.Context, inv *cmd.Invocation) error {
	return o.each(ctx, inv, "Unloaded", o.bot.UnloadExtension)
}

func (o *cog) reload(ctx context.Context, inv *cmd.Invocation) error {
	return o.each(ctx, inv, "Reloaded", o.bot.ReloadExtension)
}

func (o *cog) extensions(ctx context.Context, inv *cmd.Invocation) error {
	c, err := dispatchContext(inv)
	if err != nil {
		return err
	}
	reg := o.bot.Extensions()

	var lines []string
	for _, path := range reg.Catalog().Paths() {
		mark := "[-]"
		if reg.IsLoaded(path) {
			mark = "[ ]"
		}
		group := "<none>"
		if def, ok := reg.Catalog().Lookup(path); ok {
			group = def.Group.String()
		}
		lines = append(lines, fmt.Sprintf("%s %s (%s)", mark, path, group))
	}
	_, err = c.Reply(ctx, "```\n"+strings.Join(lines, "\n")+"\n```")
	return err
}

func (o *cog) jobs(ctx context.Context, inv *cmd.Invocation) error {
	c, err := dispatchContext(inv)
	if err != nil {
		return err
	}
	_, err = c.Reply(ctx, o.bot.Jobs().Status())
	return err
}

func (o *cog) history(ctx context.Context, inv *cmd.Invocation) error {
	c, err := dispatchContext(inv)
	if err != nil {
		return err
	}
	store := o.bot.Store()
	if store == nil {
		_, err := c.Reply(ctx, "Command history is not enabled.")
		return err
	}

	limit := 0
	if len(inv.Args) > 0 {
		if limit, err = strconv.Atoi(inv.Args[0]); err != nil || limit <= 0 {
			return fmt.Errorf("history: %q is not a positive number", inv.Args[0])
		}
	}
	records, err := store.Recent(ctx, c.Message.GuildID, limit)
	if err != nil {
		return err
	}

	var b strings.Builder
	for _, r := range records {
		status := "✔"
		if r.Failed {
			status = "✘"
		}
		fmt.Fprintf(&b, "%s `%s` %s by %s <t:%d:R>\n", status, r.Command, r.Invoked, r.Username, r.At.Unix())
	}
	if b.Len() == 0 {
		b.WriteString("No commands recorded yet.")
	}

	msg := embed.NewEmbed().
		SetTitle("Command history").
		SetDescription(b.String()).
		SetColor(0x95A5A6).
		SetFooter(fmt.Sprintf("as of %s", time.Now().UTC().Format(time.DateTime))).
		Truncate().
		MessageEmbed
	_, err = c.Send(ctx, bot.Reply{Embeds: []*discordgo.MessageEmbed{msg}})
	return err
}

func (o *cog) clear(ctx context.Context, inv *cmd.Invocation) error {
	return o.bot.Display(ctx)
}

func (o *cog) close(ctx context.Context, inv *cmd.Invocation) error {
	o.bot.Stop()
	return nil
}
