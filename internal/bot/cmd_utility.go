package bot

import (
	"context"
	"strings"

	"lilyguard/internal/modules/audit"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	nicknameButtonPrefix = "nickname:"
	nicknameAccept       = "accept"
	nicknameDeny         = "deny"
	maxNicknameLength    = 32
)

func (b *Bot) handlePing(_ context.Context, interaction *discordgo.Interaction, _ options) error {
	lang := locale(interaction)
	latency := b.platform.HeartbeatLatency()
	embed := b.commandEmbed(b.t(lang, "ping.title"), b.t(lang, "ping.latency", latency.Milliseconds()), b.cfg.Notifications.EmbedColors.Info, nil)
	b.respondEmbed(interaction, embed, true)
	return nil
}

func (b *Bot) handleNickname(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	cfg, found, err := b.configs.Utility(ctx, interaction.GuildID)
	if err != nil {
		return err
	}
	if !found {
		b.respond(interaction, b.t(lang, "config.noConfig", "utility"), true)
		return nil
	}

	switch opts.subcommand {
	case "request":
		return b.nicknameRequest(ctx, interaction, opts.string("nickname"), cfg.UtilityLogChannelID)
	case "clear":
		return b.nicknameClear(ctx, interaction)
	}
	return errors.Errorf("unknown nickname subcommand %q", opts.subcommand)
}

func (b *Bot) nicknameRequest(ctx context.Context, interaction *discordgo.Interaction, nickname, logChannelID string) error {
	lang := locale(interaction)
	member := interaction.Member

	if nickname == "" || len([]rune(nickname)) > maxNicknameLength {
		b.respond(interaction, b.t(lang, "nickname.invalid", maxNicknameLength), true)
		return nil
	}
	if member.Nick == nickname {
		b.respond(interaction, b.t(lang, "nickname.same"), true)
		return nil
	}
	if ok, key, err := b.canRename(interaction.GuildID, member); err != nil || !ok {
		if key != "" {
			b.respond(interaction, b.t(lang, key), true)
		}
		return err
	}

	if hasPermission(member.Permissions, discordgo.PermissionChangeNickname) {
		if err := b.platform.GuildMemberNickname(interaction.GuildID, member.User.ID, nickname); err != nil {
			return errors.WithMessage(err, "set nickname")
		}
		b.respond(interaction, b.t(lang, "nickname.changed", nickname), true)
		return nil
	}

	if !b.nicknames.Allow(interaction.GuildID, member.User.ID) {
		retry := b.nicknames.RetryAt(interaction.GuildID, member.User.ID)
		b.respond(interaction, b.t(lang, "nickname.cooldown", timestampTag(retry)), true)
		return nil
	}
	if logChannelID == "" || !b.canPost(logChannelID, false) {
		b.respond(interaction, b.t(lang, "nickname.failToSend"), true)
		return nil
	}

	logLang := b.logLang()
	current := member.Nick
	if current == "" {
		current = b.t(logLang, "value.none")
	}
	embed := b.commandEmbed(b.t(logLang, "nickname.requestTitle"), userLabel(member.User), b.cfg.Notifications.EmbedColors.Action, []*discordgo.MessageEmbedField{
		field(b.t(logLang, "nickname.current"), current, true),
		field(b.t(logLang, "nickname.requested"), nickname, true),
	})
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: member.User.AvatarURL("")}
	msg := embedMessage(embed)
	msg.Components = []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{Label: b.t(logLang, "nickname.accept"), Style: discordgo.SuccessButton, CustomID: nicknameCustomID(nicknameAccept, member.User.ID, nickname)},
		discordgo.Button{Label: b.t(logLang, "nickname.deny"), Style: discordgo.DangerButton, CustomID: nicknameCustomID(nicknameDeny, member.User.ID, nickname)},
	}}}

	if _, err := b.sendLog(ctx, logUtility, logChannelID, msg); err != nil {
		b.respond(interaction, b.t(lang, "nickname.failToSend"), true)
		return nil
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, member.User.ID, audit.EventNicknameRequest, nickname)
	b.respond(interaction, b.t(lang, "nickname.sent"), true)
	return nil
}

// canRename checks that the bot may change member's nickname. key names the reason when it may not.
func (b *Bot) canRename(guildID string, member *discordgo.Member) (bool, string, error) {
	if b.state != nil {
		if guild, err := b.state.Guild(guildID); err == nil && guild.OwnerID == member.User.ID {
			return false, "nickname.owner", nil
		}
	}
	self, err := b.platform.GuildMember(guildID, b.selfID)
	if err != nil {
		return false, "", errors.WithMessage(err, "fetch bot member")
	}
	roles, err := b.platform.GuildRoles(guildID)
	if err != nil {
		return false, "", errors.WithMessage(err, "fetch roles")
	}

	selfTop, selfPerms := highestRole(roles, self.Roles)
	if !hasPermission(selfPerms, discordgo.PermissionManageNicknames) {
		return false, "nickname.lilyNoRole", nil
	}
	memberTop, _ := highestRole(roles, member.Roles)
	if memberTop >= selfTop {
		return false, "nickname.highestRole", nil
	}
	return true, "", nil
}

// highestRole returns the top position among roleIDs and the permissions those roles grant
// together with @everyone.
func highestRole(roles []*discordgo.Role, roleIDs []string) (int, int64) {
	held := make(map[string]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		held[id] = struct{}{}
	}
	top := 0
	var perms int64
	for _, role := range roles {
		_, ok := held[role.ID]
		if !ok && role.Position != 0 {
			continue
		}
		perms |= role.Permissions
		if ok && role.Position > top {
			top = role.Position
		}
	}
	return top, perms
}

func (b *Bot) nicknameClear(ctx context.Context, interaction *discordgo.Interaction) error {
	lang := locale(interaction)
	member := interaction.Member
	if member.Nick == "" {
		b.respond(interaction, b.t(lang, "nickname.noNick"), true)
		return nil
	}
	if ok, key, err := b.canRename(interaction.GuildID, member); err != nil || !ok {
		if key != "" {
			b.respond(interaction, b.t(lang, key), true)
		}
		return err
	}
	if err := b.platform.GuildMemberNickname(interaction.GuildID, member.User.ID, ""); err != nil {
		return errors.WithMessage(err, "clear nickname")
	}
	b.respond(interaction, b.t(lang, "nickname.cleared"), true)

	logLang := b.logLang()
	embed := b.commandEmbed(b.t(logLang, "nickname.clearedTitle"), userLabel(member.User), b.cfg.Notifications.EmbedColors.Info, []*discordgo.MessageEmbedField{
		field(b.t(logLang, "nickname.previous"), member.Nick, true),
	})
	b.postLog(ctx, interaction.GuildID, logUtility, embedMessage(embed))
	return nil
}

func nicknameCustomID(action, userID, nickname string) string {
	return nicknameButtonPrefix + action + ":" + userID + ":" + nickname
}

func parseNicknameCustomID(customID string) (action, userID, nickname string, ok bool) {
	parts := strings.SplitN(customID, ":", 4)
	if len(parts) != 4 || parts[0]+":" != nicknameButtonPrefix {
		return "", "", "", false
	}
	if parts[1] != nicknameAccept && parts[1] != nicknameDeny {
		return "", "", "", false
	}
	return parts[1], parts[2], parts[3], true
}

func (b *Bot) handleNicknameButton(ctx context.Context, interaction *discordgo.Interaction, customID string) {
	lang := locale(interaction)
	action, userID, nickname, ok := parseNicknameCustomID(customID)
	if !ok || interaction.Member == nil {
		return
	}
	if !hasPermission(interaction.Member.Permissions, discordgo.PermissionManageNicknames) {
		b.respond(interaction, b.t(lang, "error.missingPermission"), true)
		return
	}

	logLang := b.logLang()
	dmKey := "nickname.deniedDM"
	statusKey := "nickname.deniedBy"
	color := b.cfg.Notifications.EmbedColors.Error
	if action == nicknameAccept {
		if err := b.platform.GuildMemberNickname(interaction.GuildID, userID, nickname); err != nil {
			b.logger.Warn("failed to apply requested nickname", zap.String("guild_id", interaction.GuildID), zap.String("user_id", userID), zap.Error(err))
			b.respond(interaction, b.t(lang, "nickname.applyFailed"), true)
			return
		}
		dmKey, statusKey = "nickname.acceptedDM", "nickname.acceptedBy"
		color = b.cfg.Notifications.EmbedColors.Success
	}

	b.sendDM(userID, b.t(b.cfg.DefaultLanguage, dmKey, nickname, b.guildName(interaction.GuildID)))
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, audit.EventNicknameRequest, action+" "+nickname)

	var embeds []*discordgo.MessageEmbed
	if interaction.Message != nil && len(interaction.Message.Embeds) > 0 {
		embed := *interaction.Message.Embeds[0]
		embed.Color = color
		embed.Fields = append(append([]*discordgo.MessageEmbedField{}, embed.Fields...),
			field(b.t(logLang, "nickname.status"), b.t(logLang, statusKey, interactionUser(interaction).Mention()), false))
		embeds = []*discordgo.MessageEmbed{&embed}
	}
	err := b.platform.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		b.logger.Warn("failed to update nickname request", zap.String("interaction_id", interaction.ID), zap.Error(err))
	}
}

// sendDM reports whether the direct message was delivered. Users may have DMs closed.
func (b *Bot) sendDM(userID, content string) bool {
	channel, err := b.platform.UserChannelCreate(userID)
	if err != nil {
		b.logger.Debug("failed to open dm channel", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	if _, err := b.platform.ChannelMessageSend(channel.ID, content); err != nil {
		b.logger.Debug("failed to send dm", zap.String("user_id", userID), zap.Error(err))
		return false
	}
	return true
}

func (b *Bot) guildName(guildID string) string {
	if b.state != nil {
		if guild, err := b.state.Guild(guildID); err == nil {
			return guild.Name
		}
	}
	return guildID
}
