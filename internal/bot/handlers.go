package bot

import (
	"context"
	"strings"
	"time"

	"lilyguard/internal/metrics"
	"lilyguard/internal/modal"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type commandHandler func(ctx context.Context, interaction *discordgo.Interaction, opts options) error

func (b *Bot) commandHandlers() map[string]commandHandler {
	return map[string]commandHandler{
		"config":         b.handleConfig,
		"auto-threading": b.handleAutoThreading,
		"nickname":       b.handleNickname,
		"ping":           b.handlePing,
		"ban":            b.handleBan,
		"soft-ban":       b.handleSoftBan,
		"unban":          b.handleUnban,
		"temp-ban":       b.handleTempBan,
	}
}

func (b *Bot) onInteractionCreate(_ *discordgo.Session, event *discordgo.InteractionCreate) {
	b.inflight.Add(1)
	defer b.inflight.Done()
	b.dispatchInteraction(context.Background(), event.Interaction)
}

func (b *Bot) dispatchInteraction(ctx context.Context, interaction *discordgo.Interaction) {
	switch interaction.Type {
	case discordgo.InteractionApplicationCommand:
		b.runCommand(ctx, interaction)
	case discordgo.InteractionModalSubmit:
		data := interaction.ModalSubmitData()
		sub := modal.Submission{Interaction: interaction, Values: modal.Values(data)}
		if !b.modals.Deliver(data.CustomID, sub) {
			b.respond(interaction, b.t(locale(interaction), "error.modalExpired"), true)
		}
	case discordgo.InteractionMessageComponent:
		data := interaction.MessageComponentData()
		if strings.HasPrefix(data.CustomID, nicknameButtonPrefix) {
			b.handleNicknameButton(ctx, interaction, data.CustomID)
		}
	}
}

func (b *Bot) runCommand(ctx context.Context, interaction *discordgo.Interaction) {
	data := interaction.ApplicationCommandData()
	handler, ok := b.commandHandlers()[data.Name]
	if !ok {
		b.logger.Warn("unknown command", zap.String("command", data.Name))
		return
	}
	if !b.requireGuild(interaction) {
		metrics.CommandsExecuted.WithLabelValues(data.Name, "rejected").Inc()
		return
	}

	if err := handler(ctx, interaction, newOptions(data)); err != nil {
		metrics.CommandsExecuted.WithLabelValues(data.Name, "error").Inc()
		b.logger.Error("command failed",
			zap.String("command", data.Name),
			zap.String("guild_id", interaction.GuildID),
			zap.Error(err),
		)
		b.respond(interaction, b.t(locale(interaction), "error.generic"), true)
		return
	}
	metrics.CommandsExecuted.WithLabelValues(data.Name, "ok").Inc()
}

// options gives typed access to the options of a command or of its invoked subcommand.
type options struct {
	subcommand string
	values     map[string]*discordgo.ApplicationCommandInteractionDataOption
	resolved   *discordgo.ApplicationCommandInteractionDataResolved
}

func newOptions(data discordgo.ApplicationCommandInteractionData) options {
	list := data.Options
	opts := options{resolved: data.Resolved, values: map[string]*discordgo.ApplicationCommandInteractionDataOption{}}
	if len(list) == 1 && list[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts.subcommand = list[0].Name
		list = list[0].Options
	}
	for _, opt := range list {
		opts.values[opt.Name] = opt
	}
	return opts
}

func (o options) has(name string) bool {
	_, ok := o.values[name]
	return ok
}

func (o options) string(name string) string {
	if opt, ok := o.values[name]; ok {
		return strings.TrimSpace(opt.StringValue())
	}
	return ""
}

func (o options) bool(name string, fallback bool) bool {
	if opt, ok := o.values[name]; ok {
		return opt.BoolValue()
	}
	return fallback
}

func (o options) boolPtr(name string) *bool {
	if opt, ok := o.values[name]; ok {
		value := opt.BoolValue()
		return &value
	}
	return nil
}

func (o options) int(name string, fallback int) int {
	if opt, ok := o.values[name]; ok {
		return int(opt.IntValue())
	}
	return fallback
}

func (o options) id(name string) string {
	if opt, ok := o.values[name]; ok {
		if id, ok := opt.Value.(string); ok {
			return id
		}
	}
	return ""
}

func (o options) channel(name string) *discordgo.Channel {
	id := o.id(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if ch, ok := o.resolved.Channels[id]; ok {
			return ch
		}
	}
	return &discordgo.Channel{ID: id}
}

func (o options) role(name string) *discordgo.Role {
	id := o.id(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if role, ok := o.resolved.Roles[id]; ok {
			return role
		}
	}
	return &discordgo.Role{ID: id}
}

func (o options) user(name string) *discordgo.User {
	id := o.id(name)
	if id == "" {
		return nil
	}
	if o.resolved != nil {
		if user, ok := o.resolved.Users[id]; ok {
			return user
		}
	}
	return &discordgo.User{ID: id}
}

func (b *Bot) respond(interaction *discordgo.Interaction, content string, ephemeral bool) {
	b.reply(interaction, &discordgo.InteractionResponseData{Content: content}, ephemeral)
}

func (b *Bot) respondEmbed(interaction *discordgo.Interaction, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(interaction, "No response available.", ephemeral)
		return
	}
	b.reply(interaction, &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}, ephemeral)
}

func (b *Bot) reply(interaction *discordgo.Interaction, data *discordgo.InteractionResponseData, ephemeral bool) {
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	data.AllowedMentions = &discordgo.MessageAllowedMentions{}
	err := b.platform.InteractionRespond(interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		b.logger.Warn("interaction response failed", zap.String("interaction_id", interaction.ID), zap.Error(err))
	}
}

// followup posts an extra message after the interaction has already been answered.
func (b *Bot) followup(interaction *discordgo.Interaction, content string, ephemeral bool) {
	params := &discordgo.WebhookParams{Content: content, AllowedMentions: &discordgo.MessageAllowedMentions{}}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	if _, err := b.platform.FollowupMessageCreate(interaction, false, params); err != nil {
		b.logger.Warn("followup failed", zap.String("interaction_id", interaction.ID), zap.Error(err))
	}
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   b.now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func field(name, value string, inline bool) *discordgo.MessageEmbedField {
	if value == "" {
		value = "-"
	}
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}
