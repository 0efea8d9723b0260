// Package console is a terminal transport: every input line is a message from
// the local operator and replies are printed.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"cogbot/internal/bot"

	"github.com/bwmarrin/discordgo"
)

const channelID = "console"

// Transport implements bot.Transport over a reader and a writer.
type Transport struct {
	in       io.Reader
	out      io.Writer
	operator bot.User
	self     bot.User

	mu     sync.Mutex
	seq    int
	closed bool
	done   chan struct{}
}

var _ bot.Transport = (*Transport)(nil)

// New creates a transport reading commands from in as operator.
func New(in io.Reader, out io.Writer, operator string) *Transport {
	return &Transport{
		in:       in,
		out:      out,
		operator: bot.User{ID: operator, Username: operator},
		self:     bot.User{ID: "0", Username: "cogbot", Bot: true},
		done:     make(chan struct{}),
	}
}

// Open reports ready and starts reading lines. The token is ignored.
func (t *Transport) Open(ctx context.Context, token string, h bot.EventHandler) error {
	h.HandleReady(ctx, t.self)

	go func() {
		defer close(t.done)
		sc := bufio.NewScanner(t.in)
		for sc.Scan() {
			if ctx.Err() != nil || t.isClosed() {
				return
			}
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			h.HandleMessage(ctx, &bot.Message{
				ID:        t.nextID(),
				ChannelID: channelID,
				Author:    t.operator,
				Content:   line,
			})
		}
	}()
	return nil
}

// Done is closed when the input is exhausted.
func (t *Transport) Done() <-chan struct{} { return t.done }

// Close stops delivering input and closes the reader if it can be closed.
func (t *Transport) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	if c, ok := t.in.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Transport) isClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) nextID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	return strconv.Itoa(t.seq)
}

func (t *Transport) Send(ctx context.Context, channel string, r bot.Reply) (*bot.Message, error) {
	id := t.nextID()
	t.print(fmt.Sprintf("[%s]", id), r)
	return &bot.Message{ID: id, ChannelID: channel, Author: t.self, Content: r.Content}, nil
}

func (t *Transport) Edit(ctx context.Context, channel, messageID string, r bot.Reply) (*bot.Message, error) {
	t.print(fmt.Sprintf("[%s edited]", messageID), r)
	return &bot.Message{ID: messageID, ChannelID: channel, Author: t.self, Content: r.Content}, nil
}

func (t *Transport) React(ctx context.Context, channel, messageID, emoji string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := fmt.Fprintf(t.out, "[%s] %s\n", messageID, emoji)
	return err
}

func (t *Transport) ClearReactions(ctx context.Context, channel, messageID string) error {
	return nil
}

// ApplicationOwners makes the operator the owner.
func (t *Transport) ApplicationOwners(ctx context.Context) ([]string, error) {
	return []string{t.operator.ID}, nil
}

func (t *Transport) Intents() discordgo.Intent {
	return discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent
}

func (t *Transport) print(tag string, r bot.Reply) {
	var b strings.Builder
	b.WriteString(tag)
	if r.Content != "" {
		b.WriteString(" " + r.Content)
	}
	for _, e := range r.Embeds {
		if e == nil {
			continue
		}
		if e.Title != "" {
			b.WriteString("\n  # " + e.Title)
		}
		if e.Description != "" {
			b.WriteString("\n  " + e.Description)
		}
		for _, f := range e.Fields {
			b.WriteString("\n  " + f.Name + ": " + strings.ReplaceAll(f.Value, "\n", "\n    "))
		}
	}
	b.WriteString("\n")

	t.mu.Lock()
	defer t.mu.Unlock()
	io.WriteString(t.out, b.String())
}
