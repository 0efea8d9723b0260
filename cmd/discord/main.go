// cmd/discord/main.go
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
	"cogbot/internal/discord"
	"cogbot/internal/extension"
	"cogbot/internal/logging"

	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:          "cogbot",
	Short:        "Prefix-command Discord bot with hot-loadable extensions",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List the extensions compiled into this binary",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, path := range extension.DefaultCatalog.Paths() {
			def, _ := extension.DefaultCatalog.Lookup(path)
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", path, def.Group)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "environment file to load before reading the environment")
	rootCmd.AddCommand(extensionsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New(envFile)
	if err != nil {
		return err
	}
	log, closer := logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer closer.Close()

	log.Info().Msg("Starting cogbot...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := discord.New(discord.Options{Activity: cfg.Activity, Logger: log})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Run(ctx, cfg, transport, log)
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Info().Msgf("Received signal %s, shutting down...", s)
		cancel()
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil {
		log.Error().Err(err).Msg("Discord bot error")
		return err
	}

	log.Info().Msg("Discord bot exited cleanly")
	return nil
}
