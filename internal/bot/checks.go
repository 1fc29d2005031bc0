package bot

import (
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	permsPostLog       = discordgo.PermissionViewChannel | discordgo.PermissionSendMessages
	permsPostPublicLog = permsPostLog | discordgo.PermissionEmbedLinks
	permsAutoThread    = permsPostLog | discordgo.PermissionCreatePublicThreads | discordgo.PermissionSendMessagesInThreads
)

// requireGuild rejects commands used outside of a guild.
func (b *Bot) requireGuild(interaction *discordgo.Interaction) bool {
	if interaction.GuildID != "" && interaction.Member != nil {
		return true
	}
	b.respond(interaction, b.t(locale(interaction), "error.guildOnly"), true)
	return false
}

// requirePermission re-checks the declared default permission, which guild admins can override.
func (b *Bot) requirePermission(interaction *discordgo.Interaction, permission int64) bool {
	if hasPermission(interaction.Member.Permissions, permission) {
		return true
	}
	b.respond(interaction, b.t(locale(interaction), "error.missingPermission"), true)
	return false
}

func hasPermission(perms, permission int64) bool {
	return perms&discordgo.PermissionAdministrator != 0 || perms&permission == permission
}

// canPost reports whether the bot can post into channelID. Public logs also need embed links.
func (b *Bot) canPost(channelID string, public bool) bool {
	if channelID == "" {
		return false
	}
	perms, err := b.platform.UserChannelPermissions(b.selfID, channelID)
	if err != nil {
		b.logger.Debug("channel permission lookup failed", zap.String("channel_id", channelID), zap.Error(err))
		return false
	}
	want := int64(permsPostLog)
	if public {
		want = permsPostPublicLog
	}
	return hasPermission(perms, want)
}

// canThread reports whether the bot can open threads in channelID and write their lead message.
func (b *Bot) canThread(channelID string) bool {
	perms, err := b.platform.UserChannelPermissions(b.selfID, channelID)
	if err != nil {
		b.logger.Debug("channel permission lookup failed", zap.String("channel_id", channelID), zap.Error(err))
		return false
	}
	return hasPermission(perms, permsAutoThread)
}

// canPingRole reports whether a mention of role will actually ping it from channelID.
func (b *Bot) canPingRole(role *discordgo.Role, channelID string) bool {
	if role == nil || role.Mentionable {
		return true
	}
	perms, err := b.platform.UserChannelPermissions(b.selfID, channelID)
	if err != nil {
		return false
	}
	return hasPermission(perms, discordgo.PermissionMentionEveryone)
}

func locale(interaction *discordgo.Interaction) string {
	return string(interaction.Locale)
}

func interactionUser(interaction *discordgo.Interaction) *discordgo.User {
	if interaction.Member != nil && interaction.Member.User != nil {
		return interaction.Member.User
	}
	return interaction.User
}
