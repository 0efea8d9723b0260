// Command cli runs the bot against the terminal: each input line is a message
// from the local operator, who owns the bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cogbot/internal/app"
	_ "cogbot/internal/cogs"
	"cogbot/internal/config"
	"cogbot/internal/console"
	"cogbot/internal/logging"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg.DiscordToken = "console"

	log, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	operator := os.Getenv("USER")
	if operator == "" {
		operator = "operator"
	}
	if err := app.Run(ctx, cfg, console.New(os.Stdin, os.Stdout, operator), log); err != nil {
		log.Error().Err(err).Msg("Console bot error")
		closer.Close()
		os.Exit(1)
	}
}
