package bot

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// User is the identity of a message author or of the bot itself.
type User struct {
	ID       string
	Username string
	Bot      bool
}

// Mention renders the user as a chat mention.
func (u User) Mention() string { return "<@" + u.ID + ">" }

// Message is an inbound or sent chat message.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    User
	Content   string
}

// Reply is the payload of an outbound message or edit.
type Reply struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}

// Transport is the chat platform connection. Every call may fail with
// ErrForbidden or ErrNotFound in addition to transport-specific errors.
type Transport interface {
	// Open connects with token and starts delivering events to h. Handlers
	// receive contexts derived from ctx.
	Open(ctx context.Context, token string, h EventHandler) error
	Close() error

	Send(ctx context.Context, channelID string, r Reply) (*Message, error)
	Edit(ctx context.Context, channelID, messageID string, r Reply) (*Message, error)
	React(ctx context.Context, channelID, messageID, emoji string) error
	ClearReactions(ctx context.Context, channelID, messageID string) error

	// ApplicationOwners returns the IDs of the users owning the bot
	// application.
	ApplicationOwners(ctx context.Context) ([]string, error)
	// Intents reports the gateway intents the connection was opened with.
	Intents() discordgo.Intent
}

// EventHandler receives gateway events from a Transport.
type EventHandler interface {
	HandleReady(ctx context.Context, self User)
	HandleMessage(ctx context.Context, m *Message)
	HandleMessageEdit(ctx context.Context, m *Message)
}
