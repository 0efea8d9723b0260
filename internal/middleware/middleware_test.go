package middleware

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"cogbot/internal/bot"
	"cogbot/internal/extension"
	"cogbot/internal/storage"
	"cogbot/pkg/cmd"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTransport struct {
	mu        sync.Mutex
	reactions []string
}

func (f *fakeTransport) Open(context.Context, string, bot.EventHandler) error { return nil }
func (f *fakeTransport) Close() error                                         { return nil }
func (f *fakeTransport) Send(_ context.Context, ch string, r bot.Reply) (*bot.Message, error) {
	return &bot.Message{ID: "r", ChannelID: ch}, nil
}
func (f *fakeTransport) Edit(_ context.Context, ch, id string, r bot.Reply) (*bot.Message, error) {
	return &bot.Message{ID: id, ChannelID: ch}, nil
}
func (f *fakeTransport) React(_ context.Context, _, _, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions = append(f.reactions, emoji)
	return nil
}
func (f *fakeTransport) ClearReactions(context.Context, string, string) error { return bot.ErrForbidden }
func (f *fakeTransport) ApplicationOwners(context.Context) ([]string, error) { return nil, nil }
func (f *fakeTransport) Intents() discordgo.Intent                           { return discordgo.IntentsGuilds }

type fakeStore struct {
	records []storage.CommandRecord
	err     error
}

func (s *fakeStore) RecordCommand(_ context.Context, rec storage.CommandRecord) error {
	s.records = append(s.records, rec)
	return s.err
}

var errBoom = errors.New("boom")

func setup(t *testing.T) (*bot.Bot, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{}
	b := bot.New(ft, bot.Options{
		Owners:  []string{"owner"},
		Logger:  zerolog.Nop(),
		Output:  io.Discard,
		Catalog: extension.NewCatalog(),
	})
	t.Cleanup(func() { b.Close() })
	return b, ft
}

func invoke(b *bot.Bot, c cmd.Command, author, guild string) error {
	bc := &bot.Context{
		Bot:         b,
		Message:     &bot.Message{ID: "m", ChannelID: "c", GuildID: guild, Author: bot.User{ID: author, Username: author}},
		Command:     c,
		InvokedWith: "t",
	}
	return c.Run(context.Background(), &cmd.Invocation{InvokedWith: "t", Data: bc})
}

func counter(err error) (*cmd.Func, *int) {
	n := 0
	return &cmd.Func{CommandName: "test", Handler: func(ctx context.Context, inv *cmd.Invocation) error {
		n++
		return err
	}}, &n
}

func TestWithOwnerOnly(t *testing.T) {
	b, _ := setup(t)
	inner, runs := counter(nil)
	c := cmd.Apply(inner, WithOwnerOnly())

	assert.ErrorIs(t, invoke(b, c, "stranger", "g"), bot.ErrCheckFailure)
	assert.NoError(t, invoke(b, c, "owner", "g"))
	assert.Equal(t, 1, *runs)
	assert.Same(t, inner, cmd.Root(c))
}

func TestWithGuildOnly(t *testing.T) {
	b, _ := setup(t)
	inner, runs := counter(nil)
	c := cmd.Apply(inner, WithGuildOnly())

	assert.ErrorIs(t, invoke(b, c, "u", ""), bot.ErrCheckFailure)
	assert.NoError(t, invoke(b, c, "u", "g"))
	assert.Equal(t, 1, *runs)
}

func TestWithOutcomeReactions(t *testing.T) {
	b, ft := setup(t)

	ok, _ := counter(nil)
	failing, _ := counter(errBoom)
	require.NoError(t, invoke(b, cmd.Apply(ok, WithOutcomeReactions()), "u", "g"))
	require.ErrorIs(t, invoke(b, cmd.Apply(failing, WithOutcomeReactions()), "u", "g"), errBoom)

	assert.Equal(t, []string{ReactionSuccess, ReactionFailure}, ft.reactions)
}

func TestWithCommandLogger(t *testing.T) {
	b, _ := setup(t)
	store := &fakeStore{}

	failing, _ := counter(errBoom)
	err := invoke(b, cmd.Apply(failing, WithCommandLogger(store)), "ann", "g")
	assert.ErrorIs(t, err, errBoom)

	require.Len(t, store.records, 1)
	rec := store.records[0]
	assert.Equal(t, "test", rec.Command)
	assert.Equal(t, "t", rec.Invoked)
	assert.Equal(t, "ann", rec.UserID)
	assert.Equal(t, "g", rec.GuildID)
	assert.True(t, rec.Failed)

	store.err = errors.New("disk full")
	ok, _ := counter(nil)
	assert.NoError(t, invoke(b, cmd.Apply(ok, WithCommandLogger(store)), "ann", "g"))
}
