package bot

import (
	"context"

	"lilyguard/internal/metrics"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, event *discordgo.GuildMemberAdd) {
	metrics.EventsHandled.WithLabelValues("guild_member_add").Inc()
	if event.Member == nil || event.User == nil {
		return
	}
	b.handleMemberJoin(context.Background(), event.Member)
}

func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, event *discordgo.GuildMemberRemove) {
	metrics.EventsHandled.WithLabelValues("guild_member_remove").Inc()
	if event.Member == nil || event.User == nil {
		return
	}
	b.handleMemberLeave(context.Background(), event.Member)
}

func (b *Bot) handleMemberJoin(ctx context.Context, member *discordgo.Member) {
	lang := b.logLang()
	user := member.User
	count := b.memberCount(member.GuildID)

	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "member.welcome"), userLabel(user), true),
		field(b.t(lang, "field.id"), user.ID, true),
	}
	if created, err := discordgo.SnowflakeTimestamp(user.ID); err == nil {
		fields = append(fields, field(b.t(lang, "member.accountCreated"), humanize.Time(created), true))
	}
	embed := b.commandEmbed(b.t(lang, "member.joinTitle"), "", b.cfg.Notifications.EmbedColors.Success, fields)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")}
	embed.Footer = b.memberCountFooter(lang, count)
	b.postLog(ctx, member.GuildID, logMember, embedMessage(embed))

	b.postPublicMemberLog(ctx, member, true, count)
}

func (b *Bot) handleMemberLeave(ctx context.Context, member *discordgo.Member) {
	lang := b.logLang()
	user := member.User
	count := b.memberCount(member.GuildID)

	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "member.goodbye"), userLabel(user), true),
		field(b.t(lang, "field.id"), user.ID, true),
	}
	if !member.JoinedAt.IsZero() {
		fields = append(fields, field(b.t(lang, "member.joined"), humanize.Time(member.JoinedAt), true))
	}
	embed := b.commandEmbed(b.t(lang, "member.leaveTitle"), "", b.cfg.Notifications.EmbedColors.Error, fields)
	embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: user.AvatarURL("")}
	embed.Footer = b.memberCountFooter(lang, count)
	b.postLog(ctx, member.GuildID, logMember, embedMessage(embed))

	b.postPublicMemberLog(ctx, member, false, count)
}

func (b *Bot) postPublicMemberLog(ctx context.Context, member *discordgo.Member, joined bool, count int) {
	cfg, found, err := b.configs.Logging(ctx, member.GuildID)
	if err != nil {
		b.logger.Warn("failed to load logging config", zap.String("guild_id", member.GuildID), zap.Error(err))
		return
	}
	if !found || !cfg.EnablePublicMemberLogs {
		return
	}

	lang := b.logLang()
	user := member.User
	title := b.t(lang, "member.publicJoinTitle", user.Username)
	description := b.t(lang, "member.publicJoinDefault")
	color := b.cfg.Notifications.EmbedColors.Success
	if !joined {
		title = b.t(lang, "member.publicLeaveTitle", user.Username)
		description = b.t(lang, "member.publicLeaveDefault")
		color = b.cfg.Notifications.EmbedColors.Error
	}

	msg := &discordgo.MessageSend{AllowedMentions: &discordgo.MessageAllowedMentions{}}
	if data := cfg.PublicMemberLogData; data != nil {
		if joined && data.JoinMessage != "" {
			description = data.JoinMessage
		}
		if !joined && data.LeaveMessage != "" {
			description = data.LeaveMessage
		}
		if joined && data.PingNewUsers {
			msg.Content = user.Mention()
			msg.AllowedMentions = &discordgo.MessageAllowedMentions{Users: []string{user.ID}}
		}
	}

	embed := b.commandEmbed(title, description, color, nil)
	embed.Footer = b.memberCountFooter(lang, count)
	msg.Embeds = []*discordgo.MessageEmbed{embed}
	b.postLog(ctx, member.GuildID, logPublicMember, msg)
}

func (b *Bot) memberCountFooter(lang string, count int) *discordgo.MessageEmbedFooter {
	if count <= 0 {
		return nil
	}
	return &discordgo.MessageEmbedFooter{Text: b.t(lang, "member.count", humanize.Comma(int64(count)))}
}
