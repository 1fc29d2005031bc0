package bot

import (
	"context"
	"strings"

	"lilyguard/internal/configstore"
	"lilyguard/internal/modal"
	"lilyguard/internal/modules/audit"
	"lilyguard/internal/utils"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	modalFieldPing  = "ping"
	modalFieldJoin  = "join"
	modalFieldLeave = "leave"
)

func (b *Bot) handleConfig(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	if !b.requirePermission(interaction, discordgo.PermissionManageGuild) {
		return nil
	}
	switch opts.subcommand {
	case "moderation":
		return b.configModeration(ctx, interaction, opts)
	case "logging":
		return b.configLogging(ctx, interaction, opts)
	case "utility":
		return b.configUtility(ctx, interaction, opts)
	case "clear":
		return b.configClear(ctx, interaction, opts)
	case "view":
		return b.configView(ctx, interaction, opts)
	}
	return errors.Errorf("unknown config subcommand %q", opts.subcommand)
}

// configExists answers the user and reports true when domain is already configured.
func (b *Bot) configExists(ctx context.Context, interaction *discordgo.Interaction, domain configstore.Domain) (bool, error) {
	exists, err := b.configs.Exists(ctx, interaction.GuildID, domain)
	if err != nil {
		return false, err
	}
	if exists {
		b.respond(interaction, b.t(locale(interaction), "config.exists", string(domain)), true)
	}
	return exists, nil
}

func (b *Bot) configModeration(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	if exists, err := b.configExists(ctx, interaction, configstore.DomainModeration); err != nil || exists {
		return err
	}

	cfg := configstore.ModerationConfig{Enabled: opts.bool("enabled", true)}
	if cfg.Enabled {
		role := opts.role("moderator_role")
		channel := opts.channel("action_log_channel")
		if role == nil || channel == nil {
			b.respond(interaction, b.t(lang, "config.moderation.missing"), true)
			return nil
		}
		if !b.canPost(channel.ID, false) {
			b.respond(interaction, b.t(lang, "config.invalidChannel", channel.Mention()), true)
			return nil
		}
		if !b.canPingRole(role, channel.ID) {
			b.respond(interaction, b.t(lang, "config.roleNotPingable", role.Mention()), true)
			return nil
		}
		if raw := opts.string("quick_timeout_length"); raw != "" {
			length, err := utils.ParseDuration(raw)
			if err != nil {
				b.respond(interaction, b.t(lang, "config.invalidDuration", raw), true)
				return nil
			}
			cfg.QuickTimeoutLength = length
		}
		cfg.ChannelID = channel.ID
		cfg.RoleID = role.ID
		cfg.AutoPunishOnWarn = opts.boolPtr("warn_auto_punishments")
		cfg.PublicLogging = opts.boolPtr("public_logging")
		cfg.BanDMMessage = opts.string("ban_dm_message")
	}

	return b.saveConfig(ctx, interaction, cfg, b.moderationFields(lang, cfg))
}

func (b *Bot) configLogging(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	if exists, err := b.configExists(ctx, interaction, configstore.DomainLogging); err != nil || exists {
		return err
	}

	cfg := configstore.LoggingConfig{
		EnableMessageDeleteLogs: opts.bool("enable_delete_logs", false),
		EnableMessageEditLogs:   opts.bool("enable_edit_logs", false),
		EnableMemberLogs:        opts.bool("enable_member_logs", false),
		EnablePublicMemberLogs:  opts.bool("enable_public_member_logs", false),
	}
	messageChannel := opts.channel("message_logs")
	memberChannel := opts.channel("member_log")
	publicChannel := opts.channel("public_member_log")

	if (cfg.EnableMessageDeleteLogs || cfg.EnableMessageEditLogs) && messageChannel == nil {
		b.respond(interaction, b.t(lang, "config.logging.messageMissing"), true)
		return nil
	}
	if cfg.EnableMemberLogs && memberChannel == nil {
		b.respond(interaction, b.t(lang, "config.logging.memberMissing"), true)
		return nil
	}
	if cfg.EnablePublicMemberLogs && publicChannel == nil {
		b.respond(interaction, b.t(lang, "config.logging.publicMissing"), true)
		return nil
	}

	checks := []struct {
		channel *discordgo.Channel
		public  bool
		target  *string
	}{
		{messageChannel, false, &cfg.MessageChannelID},
		{memberChannel, false, &cfg.MemberLogChannelID},
		{publicChannel, true, &cfg.PublicMemberLogChannelID},
	}
	for _, check := range checks {
		if check.channel == nil {
			continue
		}
		if !b.canPost(check.channel.ID, check.public) {
			b.respond(interaction, b.t(lang, "config.invalidChannel", check.channel.Mention()), true)
			return nil
		}
		*check.target = check.channel.ID
	}

	target := interaction
	if cfg.EnablePublicMemberLogs {
		sub, ok, err := b.askPublicMemberMessages(ctx, interaction)
		if err != nil || !ok {
			return err
		}
		target = sub.Interaction
		cfg.PublicMemberLogData = &configstore.PublicMemberLogData{
			PingNewUsers: parseYes(sub.Value(modalFieldPing)),
			JoinMessage:  sub.Value(modalFieldJoin),
			LeaveMessage: sub.Value(modalFieldLeave),
		}
	}

	if err := b.saveConfig(ctx, target, cfg, b.loggingFields(lang, cfg)); err != nil {
		if target != interaction {
			// The original interaction was answered with the modal.
			b.logger.Error("failed to save logging config", zap.String("guild_id", interaction.GuildID), zap.Error(err))
			b.respond(target, b.t(lang, "error.generic"), true)
			return nil
		}
		return err
	}
	return nil
}

// askPublicMemberMessages shows the public join/leave modal and waits for it. ok is false when the
// user never submitted it.
func (b *Bot) askPublicMemberMessages(ctx context.Context, interaction *discordgo.Interaction) (modal.Submission, bool, error) {
	lang := locale(interaction)
	customID := modal.NewCustomID("logging")
	b.modals.Register(customID)
	response := modal.Response(customID, b.t(lang, "config.logging.modalTitle"), []modal.Field{
		{ID: modalFieldPing, Label: b.t(lang, "config.logging.modalPing"), Placeholder: "yes / no", Value: "yes", MaxLength: 3},
		{ID: modalFieldJoin, Label: b.t(lang, "config.logging.modalJoin"), Placeholder: b.t(lang, "member.publicJoinDefault"), Paragraph: true, MaxLength: 1024},
		{ID: modalFieldLeave, Label: b.t(lang, "config.logging.modalLeave"), Placeholder: b.t(lang, "member.publicLeaveDefault"), Paragraph: true, MaxLength: 1024},
	})
	if err := b.platform.InteractionRespond(interaction, response); err != nil {
		b.modals.Cancel(customID)
		return modal.Submission{}, false, errors.WithMessage(err, "show modal")
	}

	sub, err := b.modals.Await(ctx, customID, b.cfg.Interactions.ModalTimeout)
	if errors.Is(err, modal.ErrTimeout) {
		b.logger.Debug("modal timed out", zap.String("guild_id", interaction.GuildID), zap.String("custom_id", customID))
		return modal.Submission{}, false, nil
	}
	if err != nil {
		return modal.Submission{}, false, err
	}
	return sub, true, nil
}

func parseYes(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "y", "true", "oui":
		return true
	}
	return false
}

func (b *Bot) configUtility(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	if exists, err := b.configExists(ctx, interaction, configstore.DomainUtility); err != nil || exists {
		return err
	}

	cfg := configstore.UtilityConfig{}
	if channel := opts.channel("utility_log"); channel != nil {
		if !b.canPost(channel.ID, false) {
			b.respond(interaction, b.t(lang, "config.invalidChannel", channel.Mention()), true)
			return nil
		}
		cfg.UtilityLogChannelID = channel.ID
	}
	return b.saveConfig(ctx, interaction, cfg, b.utilityFields(lang, cfg))
}

// saveConfig persists cfg, answers the interaction and copies the summary to the utility log.
func (b *Bot) saveConfig(ctx context.Context, interaction *discordgo.Interaction, cfg configstore.GuildConfig, fields []*discordgo.MessageEmbedField) error {
	lang := locale(interaction)
	domain := string(cfg.Domain())
	if err := b.configs.Set(ctx, interaction.GuildID, cfg); err != nil {
		if errors.Is(err, configstore.ErrConfigExists) {
			b.respond(interaction, b.t(lang, "config.exists", domain), true)
			return nil
		}
		return err
	}

	userID := ""
	if user := interactionUser(interaction); user != nil {
		userID = user.ID
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, userID, audit.EventConfigSet, domain)

	embed := b.commandEmbed(b.t(lang, "config.savedTitle", domain), "", b.cfg.Notifications.EmbedColors.Success, fields)
	b.respondEmbed(interaction, embed, true)

	logLang := b.logLang()
	logEmbed := b.commandEmbed(b.t(logLang, "config.updatedLogTitle", domain), "", b.cfg.Notifications.EmbedColors.Info, fields)
	logEmbed.Footer = userFooter(interactionUser(interaction))
	if !b.postLog(ctx, interaction.GuildID, logUtility, embedMessage(logEmbed)) && cfg.Domain() != configstore.DomainUtility {
		b.followup(interaction, b.t(lang, "config.considerUtility"), true)
	}
	return nil
}

func (b *Bot) configClear(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	user := interactionUser(interaction)
	choice := opts.string("config_type")

	if choice == "all" {
		if err := b.configs.ClearAll(ctx, interaction.GuildID); err != nil {
			return err
		}
		b.audit.Log(ctx, audit.LevelWarn, interaction.GuildID, user.ID, audit.EventConfigCleared, "all")
		b.respond(interaction, b.t(lang, "config.clearedAll"), true)
		return nil
	}

	domain, ok := configstore.ParseDomain(choice)
	if !ok {
		b.respond(interaction, b.t(lang, "config.unknownType", choice), true)
		return nil
	}
	exists, err := b.configs.Exists(ctx, interaction.GuildID, domain)
	if err != nil {
		return err
	}
	if !exists {
		b.respond(interaction, b.t(lang, "config.noConfig", string(domain)), true)
		return nil
	}

	// Post while the utility log still exists.
	logEmbed := b.commandEmbed(b.t(b.logLang(), "config.clearedLogTitle", string(domain)), "", b.cfg.Notifications.EmbedColors.Warning, nil)
	logEmbed.Footer = userFooter(user)
	b.postLog(ctx, interaction.GuildID, logUtility, embedMessage(logEmbed))

	if err := b.configs.Clear(ctx, interaction.GuildID, domain); err != nil {
		return err
	}
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, audit.EventConfigCleared, string(domain))
	b.respond(interaction, b.t(lang, "config.cleared", string(domain)), true)
	return nil
}

func (b *Bot) configView(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	domain, ok := configstore.ParseDomain(opts.string("config_type"))
	if !ok {
		b.respond(interaction, b.t(lang, "config.unknownType", opts.string("config_type")), true)
		return nil
	}

	var fields []*discordgo.MessageEmbedField
	var found bool
	var err error
	switch domain {
	case configstore.DomainModeration:
		var cfg configstore.ModerationConfig
		cfg, found, err = b.configs.Moderation(ctx, interaction.GuildID)
		fields = b.moderationFields(lang, cfg)
	case configstore.DomainLogging:
		var cfg configstore.LoggingConfig
		cfg, found, err = b.configs.Logging(ctx, interaction.GuildID)
		fields = b.loggingFields(lang, cfg)
	case configstore.DomainUtility:
		var cfg configstore.UtilityConfig
		cfg, found, err = b.configs.Utility(ctx, interaction.GuildID)
		fields = b.utilityFields(lang, cfg)
	}
	if err != nil {
		return err
	}
	if !found {
		b.respond(interaction, b.t(lang, "config.noConfig", string(domain)), true)
		return nil
	}
	b.respondEmbed(interaction, b.commandEmbed(b.t(lang, "config.viewTitle", string(domain)), "", b.cfg.Notifications.EmbedColors.Info, fields), true)
	return nil
}

func (b *Bot) yesNo(lang string, value bool) string {
	if value {
		return b.t(lang, "value.yes")
	}
	return b.t(lang, "value.no")
}

func (b *Bot) optionalBool(lang string, value *bool) string {
	if value == nil {
		return b.t(lang, "value.notSet")
	}
	return b.yesNo(lang, *value)
}

func (b *Bot) channelOrNone(lang, id string) string {
	if id == "" {
		return b.t(lang, "value.none")
	}
	return utils.ChannelMention(id)
}

func (b *Bot) moderationFields(lang string, cfg configstore.ModerationConfig) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{field(b.t(lang, "config.field.enabled"), b.yesNo(lang, cfg.Enabled), true)}
	if !cfg.Enabled {
		return fields
	}
	timeout := b.t(lang, "value.notSet")
	if cfg.QuickTimeoutLength > 0 {
		timeout = humanSpan(b.now(), b.now().Add(cfg.QuickTimeoutLength))
	}
	role := b.t(lang, "value.none")
	if cfg.RoleID != "" {
		role = utils.RoleMention(cfg.RoleID)
	}
	banDM := cfg.BanDMMessage
	if banDM == "" {
		banDM = b.t(lang, "value.none")
	}
	return append(fields,
		field(b.t(lang, "config.field.moderatorRole"), role, true),
		field(b.t(lang, "config.field.actionLog"), b.channelOrNone(lang, cfg.ChannelID), true),
		field(b.t(lang, "config.field.quickTimeout"), timeout, true),
		field(b.t(lang, "config.field.autoPunish"), b.optionalBool(lang, cfg.AutoPunishOnWarn), true),
		field(b.t(lang, "config.field.publicLogging"), b.optionalBool(lang, cfg.PublicLogging), true),
		field(b.t(lang, "config.field.banDM"), utils.TruncateEllipsis(banDM, embedFieldLimit), false),
	)
}

func (b *Bot) loggingFields(lang string, cfg configstore.LoggingConfig) []*discordgo.MessageEmbedField {
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "config.field.deleteLogs"), b.yesNo(lang, cfg.EnableMessageDeleteLogs), true),
		field(b.t(lang, "config.field.editLogs"), b.yesNo(lang, cfg.EnableMessageEditLogs), true),
		field(b.t(lang, "config.field.messageChannel"), b.channelOrNone(lang, cfg.MessageChannelID), true),
		field(b.t(lang, "config.field.memberLogs"), b.yesNo(lang, cfg.EnableMemberLogs), true),
		field(b.t(lang, "config.field.memberChannel"), b.channelOrNone(lang, cfg.MemberLogChannelID), true),
		field(b.t(lang, "config.field.publicMemberLogs"), b.yesNo(lang, cfg.EnablePublicMemberLogs), true),
		field(b.t(lang, "config.field.publicMemberChannel"), b.channelOrNone(lang, cfg.PublicMemberLogChannelID), true),
	}
	if data := cfg.PublicMemberLogData; data != nil {
		fields = append(fields,
			field(b.t(lang, "config.field.pingNewUsers"), b.yesNo(lang, data.PingNewUsers), true),
			field(b.t(lang, "config.field.joinMessage"), utils.TruncateEllipsis(data.JoinMessage, embedFieldLimit), false),
			field(b.t(lang, "config.field.leaveMessage"), utils.TruncateEllipsis(data.LeaveMessage, embedFieldLimit), false),
		)
	}
	return fields
}

func (b *Bot) utilityFields(lang string, cfg configstore.UtilityConfig) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		field(b.t(lang, "config.field.utilityLog"), b.channelOrNone(lang, cfg.UtilityLogChannelID), true),
	}
}
