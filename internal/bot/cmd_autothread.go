package bot

import (
	"context"
	"strings"

	"lilyguard/internal/modal"
	"lilyguard/internal/modules/audit"
	"lilyguard/internal/modules/autothread"
	"lilyguard/internal/storage"
	"lilyguard/internal/utils"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const modalFieldCreationMessage = "message"

func (b *Bot) handleAutoThreading(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	switch opts.subcommand {
	case "enable":
		if !b.requirePermission(interaction, discordgo.PermissionManageChannels) {
			return nil
		}
		return b.autoThreadEnable(ctx, interaction, opts)
	case "disable":
		if !b.requirePermission(interaction, discordgo.PermissionManageChannels) {
			return nil
		}
		return b.autoThreadDisable(ctx, interaction)
	case "list":
		return b.autoThreadList(ctx, interaction)
	case "view":
		return b.autoThreadView(ctx, interaction, opts)
	}
	return errors.Errorf("unknown auto-threading subcommand %q", opts.subcommand)
}

func (b *Bot) autoThreadEnable(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	if b.isThread(interaction.ChannelID) {
		b.respond(interaction, b.t(lang, "autothreading.notInThread"), true)
		return nil
	}
	if _, found, err := b.autothread.Config(ctx, interaction.ChannelID); err != nil || found {
		if found {
			b.respond(interaction, b.t(lang, "autothreading.alreadyOn"), true)
		}
		return err
	}
	if !b.canThread(interaction.ChannelID) {
		b.respond(interaction, b.t(lang, "autothreading.botMissingPerms"), true)
		return nil
	}

	cfg := storage.AutoThread{
		ChannelID:          interaction.ChannelID,
		GuildID:            interaction.GuildID,
		PreventDuplicates:  opts.bool("prevent_duplicates", false),
		Archive:            opts.bool("archive", false),
		ContentAwareNaming: opts.bool("content_aware_naming", false),
		Mention:            opts.bool("mention", false),
		AddModsAndRole:     opts.bool("add_mods_and_role", false),
	}
	if role := opts.role("role"); role != nil {
		if !b.canPingRole(role, interaction.ChannelID) {
			b.respond(interaction, b.t(lang, "config.roleNotPingable", role.Mention()), true)
			return nil
		}
		cfg.RoleID = role.ID
	}
	if cfg.AddModsAndRole {
		modRole, err := b.ModeratorRole(ctx, interaction.GuildID)
		if err != nil {
			return err
		}
		if modRole == nil {
			b.respond(interaction, b.t(lang, "autothreading.noModRole"), true)
			return nil
		}
	}

	target := interaction
	if opts.bool("message", false) {
		sub, ok, err := b.askCreationMessage(ctx, interaction)
		if err != nil || !ok {
			return err
		}
		target = sub.Interaction
		cfg.CreationMessage = sub.Value(modalFieldCreationMessage)
	}

	if err := b.autothread.Enable(ctx, cfg); err != nil {
		if errors.Is(err, autothread.ErrAlreadyEnabled) {
			b.respond(target, b.t(lang, "autothreading.alreadyOn"), true)
			return nil
		}
		if target != interaction {
			b.logger.Error("failed to enable auto-threading", zap.String("channel_id", cfg.ChannelID), zap.Error(err))
			b.respond(target, b.t(lang, "error.generic"), true)
			return nil
		}
		return err
	}

	user := interactionUser(interaction)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, audit.EventAutoThreadEnabled, cfg.ChannelID)

	fields := b.autoThreadFields(lang, cfg)
	b.respondEmbed(target, b.commandEmbed(b.t(lang, "autothreading.enabledTitle"), utils.ChannelMention(cfg.ChannelID), b.cfg.Notifications.EmbedColors.Success, fields), true)

	logEmbed := b.commandEmbed(b.t(b.logLang(), "autothreading.enabledTitle"), utils.ChannelMention(cfg.ChannelID), b.cfg.Notifications.EmbedColors.Info, b.autoThreadFields(b.logLang(), cfg))
	logEmbed.Footer = userFooter(user)
	b.postLog(ctx, interaction.GuildID, logUtility, embedMessage(logEmbed))
	return nil
}

func (b *Bot) askCreationMessage(ctx context.Context, interaction *discordgo.Interaction) (modal.Submission, bool, error) {
	lang := locale(interaction)
	customID := modal.NewCustomID("autothread")
	b.modals.Register(customID)
	response := modal.Response(customID, b.t(lang, "autothreading.modalTitle"), []modal.Field{
		{ID: modalFieldCreationMessage, Label: b.t(lang, "autothreading.modalLabel"), Placeholder: b.t(lang, "autothreading.modalPlaceholder"), Paragraph: true, Required: true, MaxLength: 1750},
	})
	if err := b.platform.InteractionRespond(interaction, response); err != nil {
		b.modals.Cancel(customID)
		return modal.Submission{}, false, errors.WithMessage(err, "show modal")
	}

	sub, err := b.modals.Await(ctx, customID, b.cfg.Interactions.ModalTimeout)
	if errors.Is(err, modal.ErrTimeout) {
		b.logger.Debug("modal timed out", zap.String("channel_id", interaction.ChannelID), zap.String("custom_id", customID))
		return modal.Submission{}, false, nil
	}
	if err != nil {
		return modal.Submission{}, false, err
	}
	return sub, true, nil
}

func (b *Bot) autoThreadDisable(ctx context.Context, interaction *discordgo.Interaction) error {
	lang := locale(interaction)
	cfg, err := b.autothread.Disable(ctx, interaction.ChannelID)
	if errors.Is(err, autothread.ErrNotEnabled) {
		b.respond(interaction, b.t(lang, "autothreading.notOn"), true)
		return nil
	}
	if err != nil {
		return err
	}

	user := interactionUser(interaction)
	b.audit.Log(ctx, audit.LevelInfo, interaction.GuildID, user.ID, audit.EventAutoThreadOff, cfg.ChannelID)
	b.respond(interaction, b.t(lang, "autothreading.disabled", utils.ChannelMention(cfg.ChannelID)), true)

	logEmbed := b.commandEmbed(b.t(b.logLang(), "autothreading.disabledTitle"), utils.ChannelMention(cfg.ChannelID), b.cfg.Notifications.EmbedColors.Warning, nil)
	logEmbed.Footer = userFooter(user)
	b.postLog(ctx, interaction.GuildID, logUtility, embedMessage(logEmbed))
	return nil
}

func (b *Bot) autoThreadList(ctx context.Context, interaction *discordgo.Interaction) error {
	lang := locale(interaction)
	configs, err := b.autothread.List(ctx, interaction.GuildID)
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		b.respond(interaction, b.t(lang, "autothreading.none"), true)
		return nil
	}
	lines := make([]string, 0, len(configs))
	for _, cfg := range configs {
		lines = append(lines, "- "+utils.ChannelMention(cfg.ChannelID))
	}
	description := utils.TruncateEllipsis(strings.Join(lines, "\n"), 4096)
	b.respondEmbed(interaction, b.commandEmbed(b.t(lang, "autothreading.listTitle"), description, b.cfg.Notifications.EmbedColors.Info, nil), true)
	return nil
}

func (b *Bot) autoThreadView(ctx context.Context, interaction *discordgo.Interaction, opts options) error {
	lang := locale(interaction)
	channelID := interaction.ChannelID
	if channel := opts.channel("channel"); channel != nil {
		channelID = channel.ID
	}
	cfg, found, err := b.autothread.Config(ctx, channelID)
	if err != nil {
		return err
	}
	if !found {
		b.respond(interaction, b.t(lang, "autothreading.notOnChannel", utils.ChannelMention(channelID)), true)
		return nil
	}
	b.respondEmbed(interaction, b.commandEmbed(b.t(lang, "autothreading.viewTitle"), utils.ChannelMention(channelID), b.cfg.Notifications.EmbedColors.Info, b.autoThreadFields(lang, cfg)), true)
	return nil
}

func (b *Bot) autoThreadFields(lang string, cfg storage.AutoThread) []*discordgo.MessageEmbedField {
	role := b.t(lang, "value.none")
	if cfg.RoleID != "" {
		role = utils.RoleMention(cfg.RoleID)
	}
	message := cfg.CreationMessage
	if message == "" {
		message = b.t(lang, "value.default")
	}
	return []*discordgo.MessageEmbedField{
		field(b.t(lang, "autothreading.field.role"), role, true),
		field(b.t(lang, "autothreading.field.preventDuplicates"), b.yesNo(lang, cfg.PreventDuplicates), true),
		field(b.t(lang, "autothreading.field.archive"), b.yesNo(lang, cfg.Archive), true),
		field(b.t(lang, "autothreading.field.contentAware"), b.yesNo(lang, cfg.ContentAwareNaming), true),
		field(b.t(lang, "autothreading.field.mention"), b.yesNo(lang, cfg.Mention), true),
		field(b.t(lang, "autothreading.field.addMods"), b.yesNo(lang, cfg.AddModsAndRole), true),
		field(b.t(lang, "autothreading.field.message"), utils.TruncateEllipsis(message, embedFieldLimit), false),
	}
}

func (b *Bot) isThread(channelID string) bool {
	if b.state != nil {
		if ch, err := b.state.Channel(channelID); err == nil {
			return ch.IsThread()
		}
	}
	ch, err := b.platform.Channel(channelID)
	return err == nil && ch.IsThread()
}
