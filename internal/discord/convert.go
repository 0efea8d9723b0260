package discord

import (
	"cogbot/internal/bot"

	"github.com/bwmarrin/discordgo"
)

func toUser(u *discordgo.User) bot.User {
	if u == nil {
		return bot.User{}
	}
	return bot.User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func toMessage(m *discordgo.Message) *bot.Message {
	if m == nil {
		return nil
	}
	return &bot.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    toUser(m.Author),
		Content:   m.Content,
	}
}
