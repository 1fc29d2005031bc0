package bot

import (
	"context"
	"strconv"
	"strings"
	"time"

	"lilyguard/internal/metrics"
	"lilyguard/internal/modules/audit"
	"lilyguard/internal/storage"
	"lilyguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

type logKind string

const (
	logAction        logKind = "action"
	logMember        logKind = "member"
	logPublicMember  logKind = "public_member"
	logMessageDelete logKind = "message_delete"
	logMessageEdit   logKind = "message_edit"
	logUtility       logKind = "utility"
)

// logChannel returns the channel configured for kind in the guild, or "" when that log is off or
// the bot cannot post there.
func (b *Bot) logChannel(ctx context.Context, guildID string, kind logKind) string {
	channelID, err := b.configuredLogChannel(ctx, guildID, kind)
	if err != nil {
		b.logger.Warn("failed to load log config", zap.String("guild_id", guildID), zap.String("kind", string(kind)), zap.Error(err))
		return ""
	}
	if channelID == "" {
		return ""
	}
	if !b.canPost(channelID, kind == logPublicMember) {
		metrics.LogMessagesSent.WithLabelValues(string(kind), "forbidden").Inc()
		return ""
	}
	return channelID
}

func (b *Bot) configuredLogChannel(ctx context.Context, guildID string, kind logKind) (string, error) {
	switch kind {
	case logAction:
		cfg, found, err := b.configs.Moderation(ctx, guildID)
		if err != nil || !found || !cfg.Enabled {
			return "", err
		}
		return cfg.ChannelID, nil
	case logUtility:
		cfg, found, err := b.configs.Utility(ctx, guildID)
		if err != nil || !found {
			return "", err
		}
		return cfg.UtilityLogChannelID, nil
	}

	cfg, found, err := b.configs.Logging(ctx, guildID)
	if err != nil || !found {
		return "", err
	}
	switch kind {
	case logMember:
		if cfg.EnableMemberLogs {
			return cfg.MemberLogChannelID, nil
		}
	case logPublicMember:
		if cfg.EnablePublicMemberLogs {
			return cfg.PublicMemberLogChannelID, nil
		}
	case logMessageDelete:
		if cfg.EnableMessageDeleteLogs {
			return cfg.MessageChannelID, nil
		}
	case logMessageEdit:
		if cfg.EnableMessageEditLogs {
			return cfg.MessageChannelID, nil
		}
	}
	return "", nil
}

// postLog sends msg to the guild's log channel for kind. Missing or unusable channels are skipped.
func (b *Bot) postLog(ctx context.Context, guildID string, kind logKind, msg *discordgo.MessageSend) bool {
	channelID := b.logChannel(ctx, guildID, kind)
	if channelID == "" {
		return false
	}
	_, err := b.sendLog(ctx, kind, channelID, msg)
	return err == nil
}

func (b *Bot) sendLog(ctx context.Context, kind logKind, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		metrics.LogMessagesSent.WithLabelValues(string(kind), "dropped").Inc()
		return nil, err
	}
	if msg.AllowedMentions == nil {
		msg.AllowedMentions = &discordgo.MessageAllowedMentions{}
	}
	sent, err := b.platform.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		metrics.LogMessagesSent.WithLabelValues(string(kind), "error").Inc()
		b.logger.Warn("failed to post log message", zap.String("channel_id", channelID), zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}
	metrics.LogMessagesSent.WithLabelValues(string(kind), "ok").Inc()
	return sent, nil
}

func embedMessage(embed *discordgo.MessageEmbed) *discordgo.MessageSend {
	return &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}}
}

func userFooter(user *discordgo.User) *discordgo.MessageEmbedFooter {
	if user == nil {
		return nil
	}
	return &discordgo.MessageEmbedFooter{Text: user.Username, IconURL: user.AvatarURL("")}
}

func userLabel(user *discordgo.User) string {
	if user == nil {
		return "-"
	}
	return user.Mention() + " (" + user.Username + ")"
}

func userIDLabel(id string) string {
	if id == "" {
		return "-"
	}
	return utils.UserMention(id)
}

// humanSpan renders the distance between two instants, e.g. "3 days".
func humanSpan(start, end time.Time) string {
	return strings.TrimSpace(humanize.RelTime(start, end, "", ""))
}

func timestampTag(t time.Time) string {
	return "<t:" + strconv.FormatInt(t.Unix(), 10) + ":f>"
}

// TempBanExpired posts the expiry notice for a temporary ban the scheduler lifted.
func (b *Bot) TempBanExpired(ctx context.Context, ban storage.TempBan) {
	lang := b.logLang()
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "field.user"), userIDLabel(ban.UserID), false),
		field(b.t(lang, "field.moderator"), userIDLabel(ban.ModeratorID), false),
		field(b.t(lang, "field.reason"), ban.Reason, false),
		field(b.t(lang, "field.bannedFor"), humanSpan(ban.BannedAt, ban.ExpiresAt), false),
	}
	embed := b.commandEmbed(b.t(lang, "tempBan.expiredTitle"), "", b.cfg.Notifications.EmbedColors.Success, fields)
	b.postLog(ctx, ban.GuildID, logAction, embedMessage(embed))
	b.audit.Log(ctx, audit.LevelInfo, ban.GuildID, ban.UserID, audit.EventTempBanExpired, "temporary ban expired")
}
