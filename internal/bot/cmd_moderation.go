package bot

import (
	"context"
	"net/http"

	"lilyguard/internal/configstore"
	"lilyguard/internal/ledger"
	"lilyguard/internal/storage"
	"lilyguard/internal/utils"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const maxDeleteMessageDays = 7

// moderationTarget runs the checks shared by the ban commands. ok is false once the user has been
// answered.
func (b *Bot) moderationTarget(ctx context.Context, interaction *discordgo.Interaction, opts options) (*discordgo.User, configstore.ModerationConfig, bool, error) {
	lang := locale(interaction)
	if !b.requirePermission(interaction, discordgo.PermissionBanMembers) {
		return nil, configstore.ModerationConfig{}, false, nil
	}
	cfg, found, err := b.configs.Moderation(ctx, interaction.GuildID)
	if err != nil {
		return nil, cfg, false, err
	}
	if !found || !cfg.Enabled {
		b.respond(interaction, b.t(lang, "moderation.disabled"), true)
		return nil, cfg, false, nil
	}

	target := opts.user("user")
	switch {
	case target == nil:
		b.respond(interaction, b.t(lang, "moderation.noUser"), true)
		return nil, cfg, false, nil
	case target.ID == interactionUser(interaction).ID:
		b.respond(interaction, b.t(lang, "moderation.self"), true)
		return nil, cfg, false, nil
	case target.ID == b.selfID:
		b.respond(interaction, b.t(lang, "moderation.bot"), true)
		return nil, cfg, false, nil
	}
	return target, cfg, true, nil
}

func deleteDays(opts options, fallback int) int {
	days := opts.int("delete_message_days", fallback)
	if days < 0 {
		return 0
	}
	if days > maxDeleteMessageDays {
		return maxDeleteMessageDays
	}
	return days
}

// notifyTarget DMs the user before the ban lands, since a banned user shares no guild with the bot.
func (b *Bot) notifyTarget(cfg configstore.ModerationConfig, data *ledger.ActionData, guildID, userID, key string, args ...any) {
	enabled := data.DMOverride == nil || *data.DMOverride
	if !enabled {
		return
	}
	lang := b.cfg.DefaultLanguage
	content := b.t(lang, key, append([]any{b.guildName(guildID)}, args...)...)
	if cfg.BanDMMessage != "" {
		content += "\n\n" + cfg.BanDMMessage
	}
	sent := b.sendDM(userID, content)
	data.DMSent = &sent
}

func (b *Bot) reasonOrDefault(reason string) string {
	if reason == "" {
		return b.t(b.logLang(), "moderation.noReason")
	}
	return reason
}

func (b *Bot) handleBan(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	target, cfg, ok, err := b.moderationTarget(ctx, interaction, opts)
	if err != nil || !ok {
		return err
	}
	lang := locale(interaction)
	days := deleteDays(opts, 0)
	reason := opts.string("reason")
	data := ledger.ActionData{
		ActionerID:         interactionUser(interaction).ID,
		Reason:             reason,
		ImageURL:           opts.string("image"),
		DeletedMessageDays: &days,
		DMOverride:         opts.boolPtr("dm"),
	}
	b.notifyTarget(cfg, &data, interaction.GuildID, target.ID, "ban.dm", b.reasonOrDefault(reason))

	if err := b.ledger.RecordAction(ctx, ledger.ActionBan, interaction.GuildID, target.ID, data); err != nil {
		return err
	}
	if err := b.platform.GuildBanCreateWithReason(interaction.GuildID, target.ID, b.reasonOrDefault(reason), days); err != nil {
		b.dropRecord(ctx, ledger.ActionBan, interaction.GuildID, target.ID)
		b.logger.Warn("ban failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
		b.respond(interaction, b.t(lang, "moderation.failed", target.Mention()), true)
		return nil
	}
	b.respond(interaction, b.t(lang, "ban.done", target.Mention()), true)
	return nil
}

func (b *Bot) handleSoftBan(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	target, cfg, ok, err := b.moderationTarget(ctx, interaction, opts)
	if err != nil || !ok {
		return err
	}
	lang := locale(interaction)
	days := deleteDays(opts, softBanDefaultDays)
	reason := opts.string("reason")
	actioner := interactionUser(interaction).ID
	data := ledger.ActionData{
		ActionerID:         actioner,
		Reason:             reason,
		ImageURL:           opts.string("image"),
		DeletedMessageDays: &days,
		DMOverride:         opts.boolPtr("dm"),
	}
	b.notifyTarget(cfg, &data, interaction.GuildID, target.ID, "softBan.dm", b.reasonOrDefault(reason))

	if err := b.ledger.RecordAction(ctx, ledger.ActionSoftBan, interaction.GuildID, target.ID, data); err != nil {
		return err
	}
	if err := b.platform.GuildBanCreateWithReason(interaction.GuildID, target.ID, b.reasonOrDefault(reason), days); err != nil {
		b.dropRecord(ctx, ledger.ActionSoftBan, interaction.GuildID, target.ID)
		b.logger.Warn("soft-ban failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
		b.respond(interaction, b.t(lang, "moderation.failed", target.Mention()), true)
		return nil
	}

	// The unban half of a soft-ban is not worth its own log entry.
	err = b.ledger.RecordAction(ctx, ledger.ActionUnban, interaction.GuildID, target.ID, ledger.ActionData{
		ActionerID: actioner,
		Reason:     "Soft-ban",
		IgnoreLog:  true,
	})
	if err != nil {
		return err
	}
	if err := b.platform.GuildBanDelete(interaction.GuildID, target.ID, discordgo.WithAuditLogReason("Soft-ban")); err != nil {
		b.dropRecord(ctx, ledger.ActionUnban, interaction.GuildID, target.ID)
		return errors.WithMessage(err, "lift soft-ban")
	}
	b.respond(interaction, b.t(lang, "softBan.done", target.Mention()), true)
	return nil
}

func (b *Bot) handleUnban(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	target, _, ok, err := b.moderationTarget(ctx, interaction, opts)
	if err != nil || !ok {
		return err
	}
	lang := locale(interaction)
	if _, err := b.platform.GuildBan(interaction.GuildID, target.ID); err != nil {
		if restStatus(err) == http.StatusNotFound {
			b.respond(interaction, b.t(lang, "unban.notBanned", target.Mention()), true)
			return nil
		}
		return errors.WithMessage(err, "fetch ban")
	}

	reason := opts.string("reason")
	data := ledger.ActionData{ActionerID: interactionUser(interaction).ID, Reason: reason}
	if err := b.ledger.RecordAction(ctx, ledger.ActionUnban, interaction.GuildID, target.ID, data); err != nil {
		return err
	}
	if err := b.platform.GuildBanDelete(interaction.GuildID, target.ID, discordgo.WithAuditLogReason(b.reasonOrDefault(reason))); err != nil {
		b.dropRecord(ctx, ledger.ActionUnban, interaction.GuildID, target.ID)
		b.logger.Warn("unban failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
		b.respond(interaction, b.t(lang, "moderation.failed", target.Mention()), true)
		return nil
	}
	if err := b.store.DeleteTempBan(ctx, interaction.GuildID, target.ID); err != nil {
		b.logger.Warn("failed to drop temp ban", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
	}
	b.respond(interaction, b.t(lang, "unban.done", target.Mention()), true)
	return nil
}

func (b *Bot) handleTempBan(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	switch opts.subcommand {
	case "add":
		return b.tempBanAdd(ctx, interaction, opts)
	case "remove":
		return b.tempBanRemove(ctx, interaction, opts)
	}
	return errors.Errorf("unknown temp-ban subcommand %q", opts.subcommand)
}

func (b *Bot) tempBanAdd(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	target, cfg, ok, err := b.moderationTarget(ctx, interaction, opts)
	if err != nil || !ok {
		return err
	}
	lang := locale(interaction)
	raw := opts.string("duration")
	length, err := utils.ParseDuration(raw)
	if err != nil || length <= 0 {
		b.respond(interaction, b.t(lang, "config.invalidDuration", raw), true)
		return nil
	}

	now := b.now()
	days := deleteDays(opts, 0)
	reason := opts.string("reason")
	actioner := interactionUser(interaction).ID
	data := ledger.ActionData{
		ActionerID:         actioner,
		Reason:             reason,
		ImageURL:           opts.string("image"),
		Time:               &ledger.TimeData{Duration: length, Start: now, End: now.Add(length)},
		DeletedMessageDays: &days,
		DMOverride:         opts.boolPtr("dm"),
	}
	b.notifyTarget(cfg, &data, interaction.GuildID, target.ID, "tempBan.dm", b.reasonOrDefault(reason), humanSpan(now, now.Add(length)))

	if err := b.ledger.RecordAction(ctx, ledger.ActionTempBan, interaction.GuildID, target.ID, data); err != nil {
		return err
	}
	if err := b.platform.GuildBanCreateWithReason(interaction.GuildID, target.ID, b.reasonOrDefault(reason), days); err != nil {
		b.dropRecord(ctx, ledger.ActionTempBan, interaction.GuildID, target.ID)
		b.logger.Warn("temp-ban failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
		b.respond(interaction, b.t(lang, "moderation.failed", target.Mention()), true)
		return nil
	}
	err = b.store.UpsertTempBan(ctx, storage.TempBan{
		GuildID:     interaction.GuildID,
		UserID:      target.ID,
		ModeratorID: actioner,
		Reason:      reason,
		BannedAt:    now,
		ExpiresAt:   now.Add(length),
	})
	if err != nil {
		return errors.WithMessage(err, "schedule temp ban expiry")
	}
	b.respond(interaction, b.t(lang, "tempBan.done", target.Mention(), timestampTag(now.Add(length))), true)
	return nil
}

func (b *Bot) tempBanRemove(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	target, _, ok, err := b.moderationTarget(ctx, interaction, opts)
	if err != nil || !ok {
		return err
	}
	lang := locale(interaction)
	ban, found, err := b.store.GetTempBan(ctx, interaction.GuildID, target.ID)
	if err != nil {
		return err
	}
	if !found {
		b.respond(interaction, b.t(lang, "tempBan.notFound", target.Mention()), true)
		return nil
	}

	reason := opts.string("reason")
	now := b.now()
	data := ledger.ActionData{
		ActionerID: interactionUser(interaction).ID,
		Reason:     reason,
		Time:       &ledger.TimeData{Duration: now.Sub(ban.BannedAt), Start: ban.BannedAt, End: now},
	}
	if err := b.ledger.RecordAction(ctx, ledger.ActionUnban, interaction.GuildID, target.ID, data); err != nil {
		return err
	}
	if err := b.platform.GuildBanDelete(interaction.GuildID, target.ID, discordgo.WithAuditLogReason(b.reasonOrDefault(reason))); err != nil {
		// No confirmation will arrive to consume the record either way.
		b.dropRecord(ctx, ledger.ActionUnban, interaction.GuildID, target.ID)
		if restStatus(err) != http.StatusNotFound {
			b.logger.Warn("temp-ban removal failed", zap.String("guild_id", interaction.GuildID), zap.String("user_id", target.ID), zap.Error(err))
			b.respond(interaction, b.t(lang, "moderation.failed", target.Mention()), true)
			return nil
		}
	}
	if err := b.store.DeleteTempBan(ctx, interaction.GuildID, target.ID); err != nil {
		return err
	}
	b.respond(interaction, b.t(lang, "tempBan.removed", target.Mention()), true)
	return nil
}

func (b *Bot) dropRecord(ctx context.Context, actionType ledger.ActionType, guildID, userID string) {
	if err := b.ledger.RemoveAction(ctx, actionType, guildID, userID); err != nil {
		b.logger.Warn("failed to drop moderation record", zap.String("type", string(actionType)), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.Error(err))
	}
}

func restStatus(err error) int {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil {
		return restErr.Response.StatusCode
	}
	return 0
}
