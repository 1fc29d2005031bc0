package bot

import (
	"context"
	"strconv"
	"strings"

	"lilyguard/internal/ledger"
	"lilyguard/internal/metrics"
	"lilyguard/internal/modules/audit"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const softBanDefaultDays = 3

func (b *Bot) onGuildBanAdd(_ *discordgo.Session, event *discordgo.GuildBanAdd) {
	metrics.EventsHandled.WithLabelValues("guild_ban_add").Inc()
	if event.User == nil {
		return
	}
	b.handleBanAdd(context.Background(), event.GuildID, event.User)
}

func (b *Bot) onGuildBanRemove(_ *discordgo.Session, event *discordgo.GuildBanRemove) {
	metrics.EventsHandled.WithLabelValues("guild_ban_remove").Inc()
	if event.User == nil {
		return
	}
	b.handleBanRemove(context.Background(), event.GuildID, event.User)
}

func (b *Bot) handleBanAdd(ctx context.Context, guildID string, user *discordgo.User) {
	result, err := b.ledger.ReconcileBan(ctx, guildID, user.ID)
	if err != nil {
		b.logger.Error("ban reconciliation failed", zap.String("guild_id", guildID), zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	metrics.LedgerReconciliations.WithLabelValues("ban", result.Outcome.String()).Inc()

	switch result.Outcome {
	case ledger.OutcomeMismatch:
		b.audit.Log(ctx, audit.LevelWarn, guildID, user.ID, audit.EventLedgerMismatch,
			"ban record "+string(result.Record.Type)+" targets "+result.Record.Data.TargetUserID)
		return
	case ledger.OutcomeExternal:
		reason := ""
		if ban, err := b.platform.GuildBan(guildID, user.ID); err == nil && ban != nil {
			reason = ban.Reason
		}
		b.postLog(ctx, guildID, logAction, embedMessage(b.externalBanEmbed(user, reason)))
		b.audit.Log(ctx, audit.LevelInfo, guildID, user.ID, audit.EventBanConfirmed, "external ban")
		return
	}

	b.postLog(ctx, guildID, logAction, embedMessage(b.banEmbed(result.Record, user)))
	if err := b.ledger.Consume(ctx, result.Record); err != nil {
		b.logger.Warn("failed to consume ban record", zap.String("guild_id", guildID), zap.String("user_id", user.ID), zap.Error(err))
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, user.ID, audit.EventBanConfirmed, string(result.Record.Type)+" by "+result.Record.Data.ActionerID)
}

func (b *Bot) handleBanRemove(ctx context.Context, guildID string, user *discordgo.User) {
	result, err := b.ledger.ReconcileUnban(ctx, guildID, user.ID)
	if err != nil {
		b.logger.Error("unban reconciliation failed", zap.String("guild_id", guildID), zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	metrics.LedgerReconciliations.WithLabelValues("unban", result.Outcome.String()).Inc()

	switch result.Outcome {
	case ledger.OutcomeMismatch:
		b.audit.Log(ctx, audit.LevelWarn, guildID, user.ID, audit.EventLedgerMismatch,
			"unban record targets "+result.Record.Data.TargetUserID)
		return
	case ledger.OutcomeExternal, ledger.OutcomeIgnored:
		return
	}

	b.postLog(ctx, guildID, logAction, embedMessage(b.unbanEmbed(result.Record, user)))
	if err := b.ledger.Consume(ctx, result.Record); err != nil {
		b.logger.Warn("failed to consume unban record", zap.String("guild_id", guildID), zap.String("user_id", user.ID), zap.Error(err))
	}
	b.audit.Log(ctx, audit.LevelInfo, guildID, user.ID, audit.EventUnbanConfirmed, "unban by "+result.Record.Data.ActionerID)
}

func (b *Bot) externalBanEmbed(user *discordgo.User, reason string) *discordgo.MessageEmbed {
	lang := b.logLang()
	if reason == "" {
		reason = b.t(lang, "moderation.noReason")
	}
	embed := b.commandEmbed(b.t(lang, "ban.externalTitle"), "", b.cfg.Notifications.EmbedColors.Error, []*discordgo.MessageEmbedField{
		field(b.t(lang, "field.user"), userLabel(user), false),
		field(b.t(lang, "field.reason"), reason, false),
	})
	embed.Footer = userFooter(user)
	return embed
}

func (b *Bot) banEmbed(record ledger.Record, user *discordgo.User) *discordgo.MessageEmbed {
	lang := b.logLang()
	data := record.Data

	title := b.t(lang, "ban.title")
	switch record.Type {
	case ledger.ActionSoftBan:
		title = b.t(lang, "ban.softTitle")
	case ledger.ActionTempBan:
		title = b.t(lang, "ban.tempTitle")
	}

	reason := data.Reason
	if reason == "" {
		reason = b.t(lang, "moderation.noReason")
	}
	description := ""
	if strings.Contains(strings.ToLower(reason), "quick ban") {
		description = reason
	}

	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "field.user"), userLabel(user), false),
		field(b.t(lang, "field.reason"), reason, false),
	}
	if data.DeletedMessageDays != nil {
		days := *data.DeletedMessageDays
		if record.Type == ledger.ActionSoftBan && days == 0 {
			days = softBanDefaultDays
		}
		fields = append(fields, field(b.t(lang, "field.daysDeleted"), strconv.Itoa(days), true))
	}
	if data.Time != nil && !data.Time.End.IsZero() {
		fields = append(fields, field(b.t(lang, "field.duration"),
			timestampTag(data.Time.End)+" ("+humanSpan(data.Time.Start, data.Time.End)+")", false))
	}
	fields = append(fields, field(b.t(lang, "field.dm"), b.dmStatus(lang, data), true))

	embed := b.commandEmbed(title, description, b.cfg.Notifications.EmbedColors.Error, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t(lang, "field.moderatorFooter", data.ActionerID)}
	if data.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: data.ImageURL}
	}
	return embed
}

func (b *Bot) unbanEmbed(record ledger.Record, user *discordgo.User) *discordgo.MessageEmbed {
	lang := b.logLang()
	title := b.t(lang, "unban.title")
	// A timed UNBAN record is written by /temp-ban remove.
	if record.Data.Time != nil {
		title = b.t(lang, "unban.tempRemovedTitle")
	}
	reason := record.Data.Reason
	if reason == "" {
		reason = b.t(lang, "moderation.noReason")
	}
	embed := b.commandEmbed(title, "", b.cfg.Notifications.EmbedColors.Success, []*discordgo.MessageEmbedField{
		field(b.t(lang, "field.user"), userLabel(user), false),
		field(b.t(lang, "field.reason"), reason, false),
	})
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t(lang, "field.moderatorFooter", record.Data.ActionerID)}
	return embed
}

func (b *Bot) dmStatus(lang string, data ledger.ActionData) string {
	switch {
	case data.DMOverride != nil && !*data.DMOverride:
		return b.t(lang, "dm.disabled")
	case data.DMSent != nil && *data.DMSent:
		return b.t(lang, "dm.sent")
	default:
		return b.t(lang, "dm.failed")
	}
}
