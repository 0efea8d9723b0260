package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

type call struct {
	op        string
	channelID string
	messageID string
	reply     Reply
	emoji     string
}

type fakeTransport struct {
	mu      sync.Mutex
	calls   []call
	nextID  int
	intents discordgo.Intent
	owners  []string
	editErr error
	openErr error
	handler EventHandler
	closed  bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{intents: discordgo.IntentsAllWithoutPrivileged | discordgo.IntentsMessageContent}
}

func (f *fakeTransport) record(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) Open(ctx context.Context, token string, h EventHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.handler = h
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) Send(ctx context.Context, channelID string, r Reply) (*Message, error) {
	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("reply-%d", f.nextID)
	f.mu.Unlock()

	f.record(call{op: "send", channelID: channelID, messageID: id, reply: r})
	return &Message{ID: id, ChannelID: channelID, Content: r.Content}, nil
}

func (f *fakeTransport) Edit(ctx context.Context, channelID, messageID string, r Reply) (*Message, error) {
	f.mu.Lock()
	err := f.editErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	f.record(call{op: "edit", channelID: channelID, messageID: messageID, reply: r})
	return &Message{ID: messageID, ChannelID: channelID, Content: r.Content}, nil
}

func (f *fakeTransport) React(ctx context.Context, channelID, messageID, emoji string) error {
	f.record(call{op: "react", channelID: channelID, messageID: messageID, emoji: emoji})
	return nil
}

func (f *fakeTransport) ClearReactions(ctx context.Context, channelID, messageID string) error {
	f.record(call{op: "clear", channelID: channelID, messageID: messageID})
	return ErrForbidden
}

func (f *fakeTransport) ApplicationOwners(ctx context.Context) ([]string, error) {
	return f.owners, nil
}

func (f *fakeTransport) Intents() discordgo.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.intents
}

func (f *fakeTransport) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.op
	}
	return out
}

func (f *fakeTransport) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}
