// Package app assembles a bot from the process configuration.
package app

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"cogbot/internal/bot"
	"cogbot/internal/cogs"
	"cogbot/internal/config"
	"cogbot/internal/extension"
	"cogbot/internal/storage"

	"github.com/rs/zerolog"
)

// New builds a bot on transport t. Extensions are loaded by the init startup
// unit: from the manifests in cfg.ExtensionsDir when that directory exists,
// otherwise the built-in set.
func New(cfg *config.Config, t bot.Transport, log zerolog.Logger) *bot.Bot {
	opts := bot.Options{
		Prefixes:          cfg.Prefixes,
		MentionPrefix:     cfg.MentionPrefix,
		Owners:            cfg.OwnerIDs,
		EditCacheSize:     cfg.EditCacheSize,
		Token:             cfg.DiscordToken,
		TokenPath:         cfg.TokenPath,
		Silent:            cfg.Silent,
		HomeGuildID:       cfg.HomeGuildID,
		ErrorLogChannelID: cfg.ErrorLogID,
		Logger:            log,
		Init: func(ctx context.Context, b *bot.Bot) error {
			return loadExtensions(ctx, b, cfg)
		},
	}
	if cfg.StoragePath != "" {
		opts.Store = storage.New(cfg.StoragePath)
	}
	if cfg.ExtensionsWatch {
		opts.Units = append(opts.Units, bot.Unit{Name: "watch", Run: func(ctx context.Context, b *bot.Bot) error {
			if err := b.WaitUntilReady(ctx); err != nil {
				return err
			}
			return b.WatchExtensions(ctx, cfg.ExtensionsDir, loadAllOptions(cfg))
		}})
	}
	return bot.New(t, opts)
}

// Run builds the bot and runs it until ctx is done or the bot stops.
func Run(ctx context.Context, cfg *config.Config, t bot.Transport, log zerolog.Logger) error {
	return New(cfg, t, log).Run(ctx)
}

func loadAllOptions(cfg *config.Config) extension.LoadAllOptions {
	return extension.LoadAllOptions{
		Recursive: cfg.ExtensionsRecursive,
		Exclude:   cfg.ExtensionsExclude,
	}
}

func loadExtensions(ctx context.Context, b *bot.Bot, cfg *config.Config) error {
	info, err := os.Stat(cfg.ExtensionsDir)
	switch {
	case err == nil && info.IsDir():
		return b.LoadExtensions(ctx, cfg.ExtensionsDir, loadAllOptions(cfg))
	case err != nil && !errors.Is(err, fs.ErrNotExist):
		return err
	}

	log := b.Logger()
	log.Debug().Str("dir", cfg.ExtensionsDir).Msg("No extensions directory, loading built-in cogs")
	for _, path := range cogs.Builtin {
		// Failures are reported through the startup error handler.
		_ = b.LoadExtension(ctx, path)
	}
	return nil
}
