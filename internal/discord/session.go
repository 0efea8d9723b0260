// /internal/discord/session.go
package discord

import (
	"context"
	"fmt"
	"sync"

	"cogbot/internal/bot"
	"cogbot/pkg/retrylimit"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// DefaultIntents are the gateway intents a prefix-command bot needs.
const DefaultIntents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsGuildMessageReactions |
	discordgo.IntentsDirectMessages |
	discordgo.IntentsMessageContent

// Options configures a Session.
type Options struct {
	// Activity is shown as "Listening to <Activity>".
	Activity string
	// Intents defaults to DefaultIntents.
	Intents discordgo.Intent
	Logger  zerolog.Logger
	Retry   *retrylimit.RetryConfig
}

// Session is the Discord transport of the bot.
type Session struct {
	opts    Options
	log     zerolog.Logger
	limiter *retrylimit.AdaptiveLimiter
	retry   retrylimit.RetryConfig

	mu       sync.RWMutex
	dg       *discordgo.Session
	handler  bot.EventHandler
	ctx      context.Context
	removers []func()
}

var _ bot.Transport = (*Session)(nil)

// New creates an unconnected session.
func New(opts Options) *Session {
	if opts.Intents == 0 {
		opts.Intents = DefaultIntents
	}
	retry := retrylimit.DefaultRetryConfig()
	if opts.Retry != nil {
		retry = *opts.Retry
	}
	s := &Session{
		opts:    opts,
		log:     opts.Logger,
		limiter: retrylimit.NewAdaptiveLimiter(20, 1, 50, 1, 0.5),
		retry:   retry,
	}
	s.retry.OnRetry = func(attempt int, err error) {
		s.log.Warn().Err(err).Int("attempt", attempt).Msg("Retrying Discord request")
	}
	return s
}

// Open connects to the gateway and starts delivering events to h.
func (s *Session) Open(ctx context.Context, token string, h bot.EventHandler) error {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	s.mu.Lock()
	s.dg = dg
	s.handler = h
	s.ctx = ctx
	s.configureIntents()
	s.removers = append(s.removers,
		dg.AddHandler(s.onReady),
		dg.AddHandler(s.onMessageCreate),
		dg.AddHandler(s.onMessageUpdate),
	)
	s.mu.Unlock()

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

// configureIntents configures the Discord intents
func (s *Session) configureIntents() {
	s.dg.Identify.Intents = s.opts.Intents
}

// Close disconnects from the gateway.
func (s *Session) Close() error {
	s.mu.Lock()
	dg := s.dg
	removers := s.removers
	s.removers = nil
	s.mu.Unlock()

	for _, remove := range removers {
		remove()
	}
	if dg == nil {
		return nil
	}
	return dg.Close()
}

// Intents reports the intents the session identifies with.
func (s *Session) Intents() discordgo.Intent {
	return s.opts.Intents
}

func (s *Session) session() (*discordgo.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.dg == nil {
		return nil, fmt.Errorf("discord session not open")
	}
	return s.dg, nil
}

func (s *Session) events() (bot.EventHandler, context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handler, s.ctx
}

// onReady is called when the gateway session is established
func (s *Session) onReady(dg *discordgo.Session, r *discordgo.Ready) {
	if s.opts.Activity != "" {
		if err := dg.UpdateListeningStatus(s.opts.Activity); err != nil {
			s.log.Warn().Err(err).Msg("Failed to update presence")
		}
	}
	s.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("✅ Discord session is ready")

	h, ctx := s.events()
	h.HandleReady(ctx, toUser(r.User))
}

// onMessageCreate is called when a message is created
func (s *Session) onMessageCreate(dg *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	h, ctx := s.events()
	h.HandleMessage(ctx, toMessage(m.Message))
}

// onMessageUpdate is called when a message is edited. Updates without an
// author are embed unfurls, not edits.
func (s *Session) onMessageUpdate(dg *discordgo.Session, m *discordgo.MessageUpdate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	h, ctx := s.events()
	h.HandleMessageEdit(ctx, toMessage(m.Message))
}
