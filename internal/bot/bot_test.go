package bot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"cogbot/internal/extension"
	"cogbot/internal/storage"
	"cogbot/pkg/cmd"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBoom = errors.New("boom")

var self = User{ID: "42", Username: "cogbot", Bot: true}

type invocation struct {
	content     string
	invokedWith string
	args        []string
}

type recorder struct {
	mu    sync.Mutex
	calls []invocation
}

func (r *recorder) command(name string, aliases ...string) cmd.Command {
	return &cmd.Func{
		CommandName:    name,
		CommandAliases: aliases,
		Handler: func(ctx context.Context, inv *cmd.Invocation) error {
			c, ok := FromInvocation(inv)
			if !ok {
				return errors.New("no dispatch context")
			}
			r.mu.Lock()
			r.calls = append(r.calls, invocation{content: c.Message.Content, invokedWith: inv.InvokedWith, args: inv.Args})
			r.mu.Unlock()
			_, err := c.Reply(ctx, name+" "+strings.Join(inv.Args, " "))
			return err
		},
	}
}

func (r *recorder) get() []invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]invocation(nil), r.calls...)
}

func baseOptions() Options {
	return Options{
		Prefixes:      []string{"!", "!!"},
		MentionPrefix: true,
		Logger:        zerolog.Nop(),
		Output:        io.Discard,
		Catalog:       extension.NewCatalog(),
	}
}

func newTestBot(t *testing.T, opts Options, cmds ...cmd.Command) (*Bot, *fakeTransport) {
	t.Helper()
	require.NoError(t, opts.Catalog.Add(Extension("cogs.test", nil,
		func(ctx context.Context, b *Bot, m extension.Manifest) (*extension.Group, error) {
			return &extension.Group{Commands: cmds}, nil
		})))

	ft := newFakeTransport()
	b := New(ft, opts)
	t.Cleanup(func() { b.Close() })
	require.NoError(t, b.LoadExtension(context.Background(), "cogs.test"))
	return b, ft
}

func msg(id, author, content string) *Message {
	return &Message{ID: id, ChannelID: "c1", GuildID: "g1", Author: User{ID: author}, Content: content}
}

func TestDispatch(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		want    []invocation
	}{
		{"exact name", "!help", []invocation{{content: "!help", invokedWith: "help"}}},
		{"alias", "!h x", []invocation{{content: "!h x", invokedWith: "h", args: []string{"x"}}}},
		{"abbreviation is rewritten", "!he topic", []invocation{{content: "!help topic", invokedWith: "help", args: []string{"topic"}}}},
		{"longest prefix", "!!ping", []invocation{{content: "!!ping", invokedWith: "ping"}}},
		{"registration order breaks ties", "!p", []invocation{{content: "!ping", invokedWith: "ping"}}},
		{"unknown name", "!xyz", nil},
		{"empty name", "!", nil},
		{"no prefix", "help", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			b, _ := newTestBot(t, baseOptions(), rec.command("help", "h"), rec.command("ping"), rec.command("purge"))
			b.HandleReady(ctx, self)

			b.HandleMessage(ctx, msg("m1", "u1", tt.content))
			assert.Equal(t, tt.want, rec.get())
		})
	}
}

func TestMentionPrefix(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b, _ := newTestBot(t, baseOptions(), rec.command("help"))

	b.HandleMessage(ctx, msg("m1", "u1", "<@42> help"))
	assert.Empty(t, rec.get(), "mention prefix is unknown before ready")

	b.HandleReady(ctx, self)
	b.HandleMessage(ctx, msg("m2", "u1", "<@!42> help"))
	b.HandleMessage(ctx, msg("m3", "u1", "<@42>"))

	calls := rec.get()
	require.Len(t, calls, 2)
	assert.Equal(t, "<@42> help", calls[1].content)
}

func TestBotAuthorsIgnored(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	b, _ := newTestBot(t, baseOptions(), rec.command("help"))
	b.HandleReady(ctx, self)

	m := msg("m1", "u2", "!help")
	m.Author.Bot = true
	b.HandleMessage(ctx, m)
	assert.Empty(t, rec.get())
}

func TestOwnerRepliesAreEditedInPlace(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Owners = []string{"owner"}
	rec := &recorder{}
	b, ft := newTestBot(t, opts, rec.command("echo"))
	b.HandleReady(ctx, self)

	b.HandleMessage(ctx, msg("m1", "owner", "!echo a"))
	assert.Equal(t, []string{"send"}, ft.ops())

	b.HandleMessageEdit(ctx, msg("m1", "owner", "!echo b"))
	assert.Equal(t, []string{"send", "clear", "edit"}, ft.ops())
	last := ft.last()
	assert.Equal(t, "reply-1", last.messageID)
	assert.Equal(t, "echo b", last.reply.Content)

	ft.mu.Lock()
	ft.editErr = ErrNotFound
	ft.mu.Unlock()
	b.HandleMessageEdit(ctx, msg("m1", "owner", "!echo c"))
	assert.Equal(t, []string{"send", "clear", "edit", "clear", "send"}, ft.ops())
}

func TestNonOwnerRepliesAreSent(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Owners = []string{"owner"}
	rec := &recorder{}
	b, ft := newTestBot(t, opts, rec.command("echo"))
	b.HandleReady(ctx, self)

	b.HandleMessage(ctx, msg("m1", "u1", "!echo a"))
	b.HandleMessage(ctx, msg("m1", "u1", "!echo a"))
	b.HandleMessageEdit(ctx, msg("m1", "u1", "!echo b"))

	assert.Equal(t, []string{"send", "send"}, ft.ops())
	assert.Len(t, rec.get(), 2)
}

func TestShutdownCheck(t *testing.T) {
	ctx := context.Background()
	opts := baseOptions()
	opts.Owners = []string{"owner"}
	var got []error
	opts.OnCommandError = func(ctx context.Context, c *Context, err error) { got = append(got, err) }
	rec := &recorder{}
	b, _ := newTestBot(t, opts, rec.command("help"))
	b.HandleReady(ctx, self)
	b.SetShutdown(true)

	b.HandleMessage(ctx, msg("m1", "u1", "!help"))
	b.HandleMessage(ctx, msg("m2", "owner", "!help"))

	assert.Len(t, rec.get(), 1)
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrCheckFailure)
}

func TestCommandErrors(t *testing.T) {
	ctx := context.Background()
	failing := &cmd.Func{CommandName: "fail", Handler: func(ctx context.Context, inv *cmd.Invocation) error {
		return errBoom
	}}
	panicking := &cmd.Func{CommandName: "panic", Handler: func(ctx context.Context, inv *cmd.Invocation) error {
		panic("kaboom")
	}}

	t.Run("default handler replies", func(t *testing.T) {
		b, ft := newTestBot(t, baseOptions(), failing)
		b.HandleReady(ctx, self)

		b.HandleMessage(ctx, msg("m1", "u1", "!fail"))
		require.Equal(t, []string{"send"}, ft.ops())
		embeds := ft.last().reply.Embeds
		require.Len(t, embeds, 1)
		assert.Contains(t, embeds[0].Description, "boom")
	})

	t.Run("panics are recovered", func(t *testing.T) {
		opts := baseOptions()
		var got error
		opts.OnCommandError = func(ctx context.Context, c *Context, err error) { got = err }
		b, _ := newTestBot(t, opts, panicking)
		b.HandleReady(ctx, self)

		assert.NotPanics(t, func() { b.HandleMessage(ctx, msg("m1", "u1", "!panic")) })
		require.Error(t, got)
		assert.Contains(t, got.Error(), "kaboom")
	})
}

func TestStartupErrorDeliveredOnceAfterDisplay(t *testing.T) {
	release := make(chan struct{})
	errs := make(chan error, 4)

	opts := baseOptions()
	opts.Init = func(ctx context.Context, b *Bot) error { return errBoom }
	opts.Display = func(ctx context.Context, b *Bot) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	opts.OnStartupError = func(ctx context.Context, b *Bot, err error) { errs <- err }

	b := New(newFakeTransport(), opts)
	defer b.Close()
	b.HandleReady(context.Background(), self)

	assert.Never(t, func() bool { return len(errs) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
	close(release)

	select {
	case err := <-errs:
		var se *StartupError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "init", se.Unit)
		assert.ErrorIs(t, err, errBoom)
	case <-time.After(2 * time.Second):
		t.Fatal("startup error not delivered")
	}
	assert.Never(t, func() bool { return len(errs) > 0 }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestCloseDropsPendingStartupErrors(t *testing.T) {
	failed := make(chan struct{})
	var mu sync.Mutex
	var delivered []error

	opts := baseOptions()
	opts.Init = func(ctx context.Context, b *Bot) error {
		close(failed)
		return errBoom
	}
	opts.Display = func(ctx context.Context, b *Bot) error {
		<-ctx.Done()
		return ctx.Err()
	}
	opts.OnStartupError = func(ctx context.Context, b *Bot, err error) {
		mu.Lock()
		delivered = append(delivered, err)
		mu.Unlock()
	}

	b := New(newFakeTransport(), opts)
	b.HandleReady(context.Background(), self)
	<-failed
	require.NoError(t, b.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Empty(t, delivered)
}

func TestUnitsWaitForReady(t *testing.T) {
	started := make(chan struct{}, 1)
	opts := baseOptions()
	opts.Units = []Unit{{Name: "ready-gate", Run: func(ctx context.Context, b *Bot) error {
		if err := b.WaitUntilReady(ctx); err != nil {
			return err
		}
		started <- struct{}{}
		return nil
	}}}

	b := New(newFakeTransport(), opts)
	defer b.Close()

	assert.Never(t, func() bool { return len(started) > 0 }, 30*time.Millisecond, 5*time.Millisecond)
	b.HandleReady(context.Background(), self)
	assert.Eventually(t, func() bool { return len(started) > 0 }, time.Second, 5*time.Millisecond)
}

func TestLoadExtensionFailureForwardsCause(t *testing.T) {
	errs := make(chan error, 1)
	opts := baseOptions()
	opts.OnStartupError = func(ctx context.Context, b *Bot, err error) { errs <- err }
	require.NoError(t, opts.Catalog.Add(Extension("cogs.broken", nil,
		func(ctx context.Context, b *Bot, m extension.Manifest) (*extension.Group, error) {
			return nil, errBoom
		})))

	b := New(newFakeTransport(), opts)
	defer b.Close()
	b.HandleReady(context.Background(), self)

	err := b.LoadExtension(context.Background(), "cogs.broken")
	var le *extension.LoadError
	require.ErrorAs(t, err, &le)

	select {
	case got := <-errs:
		assert.Same(t, errBoom, got)
	case <-time.After(2 * time.Second):
		t.Fatal("load failure not forwarded")
	}
}

func TestSkippedExtensionsRaiseNoStartupError(t *testing.T) {
	errs := make(chan error, 4)
	opts := baseOptions()
	opts.OnStartupError = func(ctx context.Context, b *Bot, err error) { errs <- err }
	base := &extension.GroupType{Name: "feature"}
	special := &extension.GroupType{Name: "feature.special", Supersedes: base}
	empty := func(ctx context.Context, b *Bot, m extension.Manifest) (*extension.Group, error) {
		return &extension.Group{}, nil
	}
	require.NoError(t, opts.Catalog.Add(Extension("cogs.quiet", nil, empty)))
	require.NoError(t, opts.Catalog.Add(Extension("cogs.feature", base, empty)))
	require.NoError(t, opts.Catalog.Add(Extension("cogs.feature_special", special, empty)))

	b := New(newFakeTransport(), opts)
	defer b.Close()
	b.HandleReady(context.Background(), self)

	ctx := context.Background()
	assert.ErrorIs(t, b.LoadExtension(ctx, "cogs.missing"), extension.ErrNotFound)
	require.NoError(t, b.LoadExtension(ctx, "cogs.quiet"))
	assert.ErrorIs(t, b.LoadExtension(ctx, "cogs.quiet"), extension.ErrAlreadyLoaded)
	require.NoError(t, b.LoadExtension(ctx, "cogs.feature_special"))
	assert.ErrorIs(t, b.LoadExtension(ctx, "cogs.feature"), extension.ErrSuperseded)

	assert.Never(t, func() bool { return len(errs) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCoreInitResolvesOwners(t *testing.T) {
	ft := newFakeTransport()
	ft.owners = []string{"7"}

	b := New(ft, baseOptions())
	defer b.Close()
	assert.False(t, b.IsOwner("7"))

	b.HandleReady(context.Background(), self)
	assert.Eventually(t, func() bool { return b.IsOwner("7") }, time.Second, 5*time.Millisecond)
}

func TestHomeRequiresGuildsIntent(t *testing.T) {
	var warnings []error
	opts := baseOptions()
	opts.HomeGuildID = "g1"
	opts.OnWarning = func(err error) { warnings = append(warnings, err) }

	ft := newFakeTransport()
	b := New(ft, opts)
	defer b.Close()

	id, ok := b.Home()
	assert.True(t, ok)
	assert.Equal(t, "g1", id)

	ft.mu.Lock()
	ft.intents = 0
	ft.mu.Unlock()
	_, ok = b.Home()
	assert.False(t, ok)
	require.Len(t, warnings, 1)
	var ire *IntentsRequiredError
	require.ErrorAs(t, warnings[0], &ire)
	assert.Equal(t, []string{"guilds"}, ire.Intents)
}

func TestResolveToken(t *testing.T) {
	dir := t.TempDir()

	tok, err := ResolveToken("  explicit ", filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Equal(t, "explicit", tok)

	file := filepath.Join(dir, "TOKEN")
	require.NoError(t, os.WriteFile(file, []byte("secret\n"), 0o600))
	tok, err = ResolveToken("", file)
	require.NoError(t, err)
	assert.Equal(t, "secret", tok)

	_, err = ResolveToken("", filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrTokenNotFound)
	assert.Contains(t, err.Error(), filepath.Join(dir, "missing"))

	require.NoError(t, os.WriteFile(file, []byte("  \n"), 0o600))
	_, err = ResolveToken("", file)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

type countingCloser struct{ n int }

func (c *countingCloser) Close() error {
	c.n++
	return nil
}

func TestRunAndClose(t *testing.T) {
	closer := &countingCloser{}
	opts := baseOptions()
	opts.Token = "t"
	opts.Closers = []io.Closer{closer}
	ft := newFakeTransport()
	b := New(ft, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	assert.Eventually(t, func() bool {
		ft.mu.Lock()
		defer ft.mu.Unlock()
		return ft.handler != nil
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	require.NoError(t, b.Close())
	assert.Equal(t, 1, closer.n)
	assert.True(t, ft.closed)
	assert.ErrorIs(t, b.Run(context.Background()), ErrClosed)
}

func TestRunWithoutToken(t *testing.T) {
	opts := baseOptions()
	opts.TokenPath = filepath.Join(t.TempDir(), "TOKEN")
	ft := newFakeTransport()
	b := New(ft, opts)

	assert.ErrorIs(t, b.Run(context.Background()), ErrTokenNotFound)
	assert.True(t, b.isClosed())
	assert.True(t, ft.closed)
	assert.Nil(t, ft.handler)
}

func TestRunOpenFailureClosesBot(t *testing.T) {
	released := make(chan error, 1)
	opts := baseOptions()
	opts.Token = "t"
	opts.Units = []Unit{{Name: "waiter", Run: func(ctx context.Context, b *Bot) error {
		err := b.WaitUntilReady(ctx)
		released <- err
		return err
	}}}
	ft := newFakeTransport()
	ft.openErr = errBoom
	b := New(ft, opts)

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, errBoom)
	assert.True(t, b.isClosed())

	select {
	case err := <-released:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("startup unit still parked after a failed Run")
	}
}

func TestStoreStartupUnit(t *testing.T) {
	store := storage.New(filepath.Join(t.TempDir(), "bot.db"))
	opts := baseOptions()
	opts.Store = store
	b := New(newFakeTransport(), opts)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, store.WaitUntilReady(ctx), context.DeadlineExceeded, "store opens only once the bot is ready")

	b.HandleReady(context.Background(), self)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	require.NoError(t, store.WaitUntilReady(ctx2))
	assert.Same(t, store, b.Store())

	require.NoError(t, b.Close())
	assert.ErrorIs(t, store.RecordCommand(context.Background(), storage.CommandRecord{Command: "x"}), storage.ErrClosed)
}

func TestStopEndsRun(t *testing.T) {
	opts := baseOptions()
	opts.Token = "t"
	ft := newFakeTransport()
	b := New(ft, opts)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	b.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	select {
	case <-b.Done():
	default:
		t.Fatal("bot not closed")
	}
}
