package discord

import "github.com/bwmarrin/discordgo"

// canManageMessages reports whether the bot may remove other users'
// reactions in a channel. Direct message channels never allow it.
func canManageMessages(s *discordgo.Session, channelID string) bool {
	if s.State == nil || s.State.User == nil {
		return false
	}
	perms, err := s.State.UserChannelPermissions(s.State.User.ID, channelID)
	if err != nil {
		perms, err = s.UserChannelPermissions(s.State.User.ID, channelID)
		if err != nil {
			return false
		}
	}
	return perms&discordgo.PermissionManageMessages != 0
}
