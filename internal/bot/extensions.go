package bot

import (
	"context"
	"errors"
	"fmt"

	"cogbot/internal/extension"

	"github.com/rs/zerolog"
)

// Setup is an extension setup function that receives the bot directly.
type Setup func(ctx context.Context, b *Bot, m extension.Manifest) (*extension.Group, error)

// Extension builds a catalog definition whose setup is handed the bot.
func Extension(path string, group *extension.GroupType, setup Setup) extension.Definition {
	return extension.Definition{
		Path:  path,
		Group: group,
		Setup: func(ctx context.Context, host any, m extension.Manifest) (*extension.Group, error) {
			b, ok := host.(*Bot)
			if !ok {
				return nil, fmt.Errorf("extension %s: host is %T, not *bot.Bot", path, host)
			}
			return setup(ctx, b, m)
		},
	}
}

// LoadExtension loads one extension and prints its status line. Every error is
// returned; only a failed setup is also forwarded, unwrapped, to the startup
// error handler. An unknown, disabled, superseded or already loaded extension
// is reported as skipped.
func (b *Bot) LoadExtension(ctx context.Context, path string) error {
	err := b.extensions.Load(ctx, path)
	b.extensionResult(path, err)
	return err
}

// UnloadExtension unloads path.
func (b *Bot) UnloadExtension(ctx context.Context, path string) error {
	return b.extensions.Unload(ctx, path)
}

// ReloadExtension reloads path with the manifest it was loaded with.
func (b *Bot) ReloadExtension(ctx context.Context, path string) error {
	return b.extensions.Reload(ctx, path)
}

// LoadExtensions loads every extension manifest under root. Each one is
// loaded independently; failures are printed and forwarded to the startup
// error handler without stopping the batch.
func (b *Bot) LoadExtensions(ctx context.Context, root string, opts extension.LoadAllOptions) error {
	opts.OnResult = b.extensionResult
	return b.extensions.LoadAll(ctx, root, opts)
}

// WatchExtensions keeps the loaded extensions in step with the manifests
// under root until ctx is done.
func (b *Bot) WatchExtensions(ctx context.Context, root string, opts extension.LoadAllOptions) error {
	opts.OnResult = func(path string, err error) {
		if err != nil {
			b.extensionResult(path, err)
		}
	}
	return b.extensions.Watch(ctx, root, opts)
}

func (b *Bot) extensionResult(path string, err error) {
	switch {
	case err == nil:
		b.status("[ ] Loaded cog: " + path)
	case errors.Is(err, extension.ErrNotFound),
		errors.Is(err, extension.ErrAlreadyLoaded),
		errors.Is(err, extension.ErrDisabled),
		errors.Is(err, extension.ErrSuperseded):
		b.status("[-] Skipped cog: " + path)
	default:
		b.status("[x] Failed cog: " + path)
		b.dispatchStartupError(extension.Cause(err))
	}
}

func (b *Bot) status(line string) {
	if b.opts.Silent {
		b.log.Debug().Msg(line)
		return
	}
	b.log.Info().Msg(line)
}

func (b *Bot) onExtensionEvent(e extension.Event) {
	level := zerolog.InfoLevel
	if e.Err != nil {
		level = zerolog.WarnLevel
	}
	ev := b.log.WithLevel(level).Str("extension", e.Path).Str("group", e.Group.String())
	if e.Err != nil {
		ev = ev.Err(e.Err)
	}

	switch e.Kind {
	case extension.EventEjected:
		ev.Str("by", e.By).Msg("Ejected superseded extension")
	case extension.EventUnloaded:
		ev.Msg("Unloaded extension")
	case extension.EventLoaded:
		ev.Msg("Loaded extension")
	}
}
