// Package core is the cogs.core extension: help and ping.
package core

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cogbot/internal/bot"
	"cogbot/internal/extension"
	"cogbot/internal/middleware"
	"cogbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	embed "github.com/clinet/discordgo-embed"
)

const embedColor = 0x5865F2

// Group is the command-group type of cogs.core.
var Group = &extension.GroupType{Name: "core"}

func init() {
	extension.Register(bot.Extension("cogs.core", Group, setup))
}

func setup(ctx context.Context, b *bot.Bot, m extension.Manifest) (*extension.Group, error) {
	mws := middleware.Logged(b)
	return &extension.Group{Commands: []cmd.Command{
		cmd.Apply(&cmd.Func{
			CommandName:        "help",
			CommandAliases:     []string{"h", "commands"},
			CommandDescription: "List commands, or describe one",
			Handler:            help,
		}, mws...),
		cmd.Apply(&cmd.Func{
			CommandName:        "ping",
			CommandDescription: "Check that the bot answers",
			Handler:            ping,
		}, mws...),
	}}, nil
}

func help(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := bot.FromInvocation(inv)
	if !ok {
		return fmt.Errorf("help: no dispatch context")
	}
	prefix := displayPrefix(c)

	var msg *discordgo.MessageEmbed
	if len(inv.Args) > 0 {
		entry, found := c.Bot.Commands().Lookup(inv.Args[0])
		if !found {
			_, err := c.Reply(ctx, fmt.Sprintf("No command called %q.", inv.Args[0]))
			return err
		}
		msg = commandEmbed(prefix, entry)
	} else {
		msg = listEmbed(prefix, c.Bot.Commands().Entries())
	}
	_, err := c.Send(ctx, bot.Reply{Embeds: []*discordgo.MessageEmbed{msg}})
	return err
}

// displayPrefix prefers a literal prefix over the mention the user typed.
func displayPrefix(c *bot.Context) string {
	if !strings.HasPrefix(c.Prefix, "<@") {
		return c.Prefix
	}
	for _, p := range c.Bot.Prefixes() {
		if !strings.HasPrefix(p, "<@") {
			return p
		}
	}
	return c.Prefix
}

func commandEmbed(prefix string, e cmd.Entry) *discordgo.MessageEmbed {
	c := e.Command
	desc := c.Description()
	if desc == "" {
		desc = "No description."
	}
	em := embed.NewEmbed().
		SetTitle(prefix + c.Name()).
		SetDescription(desc).
		SetColor(embedColor)
	if len(c.Aliases()) > 0 {
		em = em.AddField("Aliases", strings.Join(c.Aliases(), ", "))
	}
	return em.SetFooter(e.Owner).MessageEmbed
}

func listEmbed(prefix string, entries []cmd.Entry) *discordgo.MessageEmbed {
	byOwner := make(map[string][]string)
	var owners []string
	for _, e := range entries {
		if _, seen := byOwner[e.Owner]; !seen {
			owners = append(owners, e.Owner)
		}
		line := fmt.Sprintf("`%s%s`", prefix, e.Command.Name())
		if d := e.Command.Description(); d != "" {
			line += " " + d
		}
		byOwner[e.Owner] = append(byOwner[e.Owner], line)
	}
	sort.Strings(owners)

	em := embed.NewEmbed().
		SetTitle("Commands").
		SetDescription(fmt.Sprintf("Use `%shelp <command>` for details. Names can be abbreviated.", prefix)).
		SetColor(embedColor)
	for _, o := range owners {
		em = em.AddField(o, strings.Join(byOwner[o], "\n"))
	}
	return em.MessageEmbed
}

func ping(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := bot.FromInvocation(inv)
	if !ok {
		return fmt.Errorf("ping: no dispatch context")
	}
	_, err := c.Reply(ctx, "🏓 Pong!")
	return err
}
