// Package testcog is the cogs.testing extension: smoke-test commands and the
// local shutdown switch.
package testcog

import (
	"context"
	"fmt"

	"cogbot/internal/bot"
	"cogbot/internal/extension"
	"cogbot/internal/middleware"
	"cogbot/pkg/cmd"
)

var Group = &extension.GroupType{Name: "testing"}

func init() {
	extension.Register(bot.Extension("cogs.testing", Group, setup))
}

func setup(ctx context.Context, b *bot.Bot, m extension.Manifest) (*extension.Group, error) {
	reply := m.String("reply", "Working!")
	mws := middleware.Logged(b)
	ownerOnly := append(middleware.Logged(b), middleware.WithOwnerOnly())

	working := func(ctx context.Context, inv *cmd.Invocation) error {
		c, ok := bot.FromInvocation(inv)
		if !ok {
			return fmt.Errorf("%s: no dispatch context", inv.InvokedWith)
		}
		_, err := c.Reply(ctx, reply)
		return err
	}

	return &extension.Group{Commands: []cmd.Command{
		cmd.Apply(&cmd.Func{
			CommandName:        "test",
			CommandDescription: "Owner-only smoke test",
			Handler:            working,
		}, ownerOnly...),
		cmd.Apply(&cmd.Func{
			CommandName:        "public",
			CommandDescription: "Smoke test anyone can run",
			Handler:            working,
		}, mws...),
		cmd.Apply(&cmd.Func{
			CommandName:        "shutdown",
			CommandDescription: "Restrict commands to owners; \"shutdown off\" lifts it",
			Handler:            shutdown,
		}, ownerOnly...),
	}}, nil
}

func shutdown(ctx context.Context, inv *cmd.Invocation) error {
	c, ok := bot.FromInvocation(inv)
	if !ok {
		return fmt.Errorf("shutdown: no dispatch context")
	}
	name := c.Bot.User().Username

	if len(inv.Args) > 0 && inv.Args[0] == "off" {
		c.Bot.SetShutdown(false)
		_, err := c.Reply(ctx, fmt.Sprintf("%s is back up", name))
		return err
	}
	c.Bot.SetShutdown(true)
	_, err := c.Reply(ctx, fmt.Sprintf("%s has been locally shutdown", name))
	return err
}
