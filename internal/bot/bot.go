// /internal/bot/bot.go
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"

	"cogbot/internal/dispatch"
	"cogbot/internal/editcache"
	"cogbot/internal/extension"
	"cogbot/internal/storage"
	"cogbot/pkg/cmd"
	"cogbot/pkg/jobmgr"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Unit is an extra supervised startup routine. Run should wait for readiness
// with WaitUntilReady before touching bot state.
type Unit struct {
	Name string
	Run  func(ctx context.Context, b *Bot) error
}

// Options configures a Bot. The zero value of every field is usable.
type Options struct {
	Prefixes      []string
	MentionPrefix bool
	// Owners overrides the application owners resolved during core-init.
	Owners        []string
	EditCacheSize int

	Token     string
	TokenPath string

	Silent            bool
	HomeGuildID       string
	ErrorLogChannelID string

	// Init runs once the bot is ready, supervised like every startup unit.
	Init func(ctx context.Context, b *Bot) error
	// Display replaces the default ready banner.
	Display func(ctx context.Context, b *Bot) error

	OnStartupError func(ctx context.Context, b *Bot, err error)
	OnCommandError func(ctx context.Context, c *Context, err error)
	OnWarning      func(err error)

	Logger zerolog.Logger
	// Output receives the ready banner; os.Stdout when nil.
	Output io.Writer

	// Catalog resolves extension paths; extension.DefaultCatalog when nil.
	Catalog *extension.Catalog
	// Store, if set, is opened by the "storage" startup unit and closed with
	// the bot.
	Store *storage.Store
	Units []Unit
	// Closers are closed by Close before the transport.
	Closers []io.Closer
}

// Bot ties the prefix resolver, autocompleter, extension registry, edit cache
// and startup supervisor to a chat transport.
type Bot struct {
	opts      Options
	log       zerolog.Logger
	transport Transport

	commands   *cmd.Registry
	extensions *extension.Registry
	cache      *editcache.Cache[string, *Message]
	jobs       *jobmgr.Manager

	ready     chan struct{}
	readyOnce sync.Once
	displayed chan struct{}
	dispOnce  sync.Once
	done      chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once

	mu       sync.RWMutex
	self     User
	owners   []string
	shutdown bool
	closed   bool
	pending  sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// New creates a bot and immediately starts its startup units. They block until
// the transport reports ready, so a bot that is never run simply keeps them
// parked until Close.
func New(t Transport, opts Options) *Bot {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Catalog == nil {
		opts.Catalog = extension.DefaultCatalog
	}

	b := &Bot{
		opts:      opts,
		log:       opts.Logger,
		transport: t,
		commands:  cmd.NewRegistry(),
		cache:     editcache.New[string, *Message](opts.EditCacheSize),
		ready:     make(chan struct{}),
		displayed: make(chan struct{}),
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
		owners:    slices.Clone(opts.Owners),
	}
	b.extensions = extension.NewRegistry(opts.Catalog, b.commands,
		extension.WithHost(b),
		extension.WithObserver(b.onExtensionEvent),
	)
	b.jobs = jobmgr.NewManager(context.Background(), b.reportStartupError)

	b.supervise("core-init", b.coreInit)
	b.supervise("init", b.runInit)
	b.supervise("display", b.runDisplay)
	if opts.Store != nil {
		b.supervise("storage", func(ctx context.Context) error {
			return opts.Store.Init(ctx, b.WaitUntilReady)
		})
	}
	for _, u := range opts.Units {
		b.supervise(u.Name, func(ctx context.Context) error { return u.Run(ctx, b) })
	}
	return b
}

func (b *Bot) supervise(name string, run func(ctx context.Context) error) {
	if err := b.jobs.StartAsync(name, run); err != nil {
		b.log.Error().Err(err).Str("unit", name).Msg("Failed to start startup unit")
	}
}

// Logger returns the bot's logger.
func (b *Bot) Logger() zerolog.Logger { return b.log }

// Commands returns the live command table.
func (b *Bot) Commands() *cmd.Registry { return b.commands }

// Extensions returns the extension registry.
func (b *Bot) Extensions() *extension.Registry { return b.extensions }

// Store returns the command history store, which may be nil.
func (b *Bot) Store() *storage.Store { return b.opts.Store }

// Jobs returns the supervisor running the startup units.
func (b *Bot) Jobs() *jobmgr.Manager { return b.jobs }

// User returns the bot's own identity; it is empty until ready.
func (b *Bot) User() User {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.self
}

// Prefixes returns the prefixes recognized right now. Mention prefixes are
// only included once the bot knows its own identity.
func (b *Bot) Prefixes() []string {
	out := slices.Clone(b.opts.Prefixes)
	if b.opts.MentionPrefix {
		out = append(out, dispatch.MentionPrefixes(b.User().ID)...)
	}
	return out
}

// IsOwner reports whether userID owns the bot.
func (b *Bot) IsOwner(userID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Contains(b.owners, userID)
}

// Owners returns the owner IDs known so far.
func (b *Bot) Owners() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.owners)
}

// SetShutdown toggles the global check restricting commands to owners.
func (b *Bot) SetShutdown(on bool) {
	b.mu.Lock()
	b.shutdown = on
	b.mu.Unlock()
}

// IsShutdown reports whether only owners may invoke commands.
func (b *Bot) IsShutdown() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.shutdown
}

// Ready returns a channel closed once the transport has reported ready.
func (b *Bot) Ready() <-chan struct{} { return b.ready }

// Displayed returns a channel closed once the ready banner has been shown.
func (b *Bot) Displayed() <-chan struct{} { return b.displayed }

// WaitUntilReady blocks until the transport is ready or ctx is done.
func (b *Bot) WaitUntilReady(ctx context.Context) error {
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitUntilDisplayed blocks until the ready banner has been shown or ctx is
// done.
func (b *Bot) WaitUntilDisplayed(ctx context.Context) error {
	select {
	case <-b.displayed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Home returns the configured home guild. It needs the guilds intent; without
// it a warning is raised and ok is false.
func (b *Bot) Home() (guildID string, ok bool) {
	if !b.requireIntents(discordgo.IntentsGuilds) || b.opts.HomeGuildID == "" {
		return "", false
	}
	return b.opts.HomeGuildID, true
}

// ErrorLog returns the channel startup errors are posted to, under the same
// rules as Home.
func (b *Bot) ErrorLog() (channelID string, ok bool) {
	if !b.requireIntents(discordgo.IntentsGuilds) || b.opts.ErrorLogChannelID == "" {
		return "", false
	}
	return b.opts.ErrorLogChannelID, true
}

func (b *Bot) requireIntents(want discordgo.Intent) bool {
	missing := missingIntents(b.transport.Intents(), want)
	if len(missing) == 0 {
		return true
	}
	b.warn(&IntentsRequiredError{Intents: missing})
	return false
}

func (b *Bot) warn(err error) {
	if b.opts.OnWarning != nil {
		b.opts.OnWarning(err)
		return
	}
	b.log.Warn().Err(err).Msg("Bot warning")
}

// HandleReady records the bot's identity and releases the startup units.
func (b *Bot) HandleReady(ctx context.Context, self User) {
	b.mu.Lock()
	b.self = self
	b.mu.Unlock()
	b.readyOnce.Do(func() { close(b.ready) })
}

// ResolveToken returns the explicit token if set, otherwise the trimmed
// contents of the token file.
func (b *Bot) ResolveToken() (string, error) {
	return ResolveToken(b.opts.Token, b.opts.TokenPath)
}

// Run connects the transport and blocks until ctx is done, Stop is called or
// the bot is closed. The bot is closed when Run returns, including when the
// token cannot be resolved or the transport fails to open.
func (b *Bot) Run(ctx context.Context) error {
	if b.isClosed() {
		return ErrClosed
	}
	token, err := b.ResolveToken()
	if err != nil {
		return errors.Join(err, b.Close())
	}
	if err := b.transport.Open(ctx, token, b); err != nil {
		return errors.Join(fmt.Errorf("failed to open transport: %w", err), b.Close())
	}

	select {
	case <-ctx.Done():
		b.log.Info().Msg("❎ Shutdown signal received. Cleaning up...")
	case <-b.stop:
		b.log.Info().Msg("❎ Stop requested. Cleaning up...")
	case <-b.done:
	}
	return b.Close()
}

// Stop makes Run return and close the bot, so a command can end the process
// without tearing the bot down underneath its own handler.
func (b *Bot) Stop() {
	b.stopOnce.Do(func() { close(b.stop) })
}

// Close cancels the startup units, drops pending startup error reports,
// unloads every extension, closes the configured closers and finally the
// transport. It is safe to call more than once.
func (b *Bot) Close() error {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		b.mu.Unlock()
		close(b.done)

		b.jobs.Close()
		b.pending.Wait()

		var errs []error
		if err := b.extensions.UnloadAll(context.Background()); err != nil {
			errs = append(errs, err)
		}
		for _, c := range b.opts.Closers {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if b.opts.Store != nil {
			if err := b.opts.Store.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := b.transport.Close(); err != nil {
			errs = append(errs, err)
		}
		b.closeErr = errors.Join(errs...)
	})
	return b.closeErr
}

// Done returns a channel closed when Close starts.
func (b *Bot) Done() <-chan struct{} { return b.done }

func (b *Bot) isClosed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.closed
}
