package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"lilyguard/internal/metrics"
	"lilyguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

func (b *Bot) roleFields(lang string, role *discordgo.Role) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		field(b.t(lang, "role.name"), role.Mention()+" ("+role.Name+")", true),
		field(b.t(lang, "role.color"), fmt.Sprintf("#%06X", role.Color), true),
		field(b.t(lang, "role.hoisted"), strconv.FormatBool(role.Hoist), true),
		field(b.t(lang, "role.mentionable"), strconv.FormatBool(role.Mentionable), true),
		field(b.t(lang, "role.position"), strconv.Itoa(role.Position), true),
		field(b.t(lang, "role.permissions"), utils.TruncateEllipsis(permissionList(role.Permissions), embedFieldLimit), false),
	}
}

func (b *Bot) onRoleCreate(_ *discordgo.Session, event *discordgo.GuildRoleCreate) {
	metrics.EventsHandled.WithLabelValues("role_create").Inc()
	if event.GuildRole == nil || event.Role == nil {
		return
	}
	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "role.createTitle"), "", b.cfg.Notifications.EmbedColors.Success, b.roleFields(lang, event.Role))
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

// onRoleUpdate shows the role as it is now; the gateway sends no previous snapshot.
func (b *Bot) onRoleUpdate(_ *discordgo.Session, event *discordgo.GuildRoleUpdate) {
	metrics.EventsHandled.WithLabelValues("role_update").Inc()
	if event.GuildRole == nil || event.Role == nil {
		return
	}
	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "role.updateTitle"), "", b.cfg.Notifications.EmbedColors.Warning, b.roleFields(lang, event.Role))
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onRoleDelete(_ *discordgo.Session, event *discordgo.GuildRoleDelete) {
	metrics.EventsHandled.WithLabelValues("role_delete").Inc()
	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "role.deleteTitle"), "", b.cfg.Notifications.EmbedColors.Error, []*discordgo.MessageEmbedField{
		field(b.t(lang, "field.id"), event.RoleID, true),
	})
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onInviteCreate(_ *discordgo.Session, event *discordgo.InviteCreate) {
	metrics.EventsHandled.WithLabelValues("invite_create").Inc()
	if event.Invite == nil || event.GuildID == "" {
		return
	}
	lang := b.logLang()
	inv := event.Invite

	maxUses := b.t(lang, "invite.unlimited")
	if inv.MaxUses > 0 {
		maxUses = strconv.Itoa(inv.MaxUses)
	}
	expires := b.t(lang, "invite.never")
	if inv.MaxAge > 0 {
		expires = humanize.Time(inv.CreatedAt.Add(time.Duration(inv.MaxAge) * time.Second))
	}

	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "invite.code"), inv.Code, true),
		field(b.t(lang, "invite.channel"), utils.ChannelMention(event.ChannelID), true),
		field(b.t(lang, "invite.inviter"), userLabel(inv.Inviter), false),
		field(b.t(lang, "invite.maxUses"), maxUses, true),
		field(b.t(lang, "invite.expires"), expires, true),
		field(b.t(lang, "invite.temporary"), strconv.FormatBool(inv.Temporary), true),
	}
	embed := b.commandEmbed(b.t(lang, "invite.createTitle"), "", b.cfg.Notifications.EmbedColors.Success, fields)
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onInviteDelete(_ *discordgo.Session, event *discordgo.InviteDelete) {
	metrics.EventsHandled.WithLabelValues("invite_delete").Inc()
	if event.GuildID == "" {
		return
	}
	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "invite.deleteTitle"), "", b.cfg.Notifications.EmbedColors.Error, []*discordgo.MessageEmbedField{
		field(b.t(lang, "invite.code"), event.Code, true),
		field(b.t(lang, "invite.channel"), utils.ChannelMention(event.ChannelID), true),
	})
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) scheduledEventEmbed(title string, color int, event *discordgo.GuildScheduledEvent) *discordgo.MessageEmbed {
	lang := b.logLang()
	location := event.EntityMetadata.Location
	if event.ChannelID != "" {
		location = utils.ChannelMention(event.ChannelID)
	}
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "event.name"), event.Name, false),
		field(b.t(lang, "event.description"), utils.TruncateEllipsis(event.Description, embedFieldLimit), false),
		field(b.t(lang, "event.location"), location, true),
		field(b.t(lang, "event.status"), b.eventStatus(lang, event.Status), true),
		field(b.t(lang, "event.start"), timestampTag(event.ScheduledStartTime), true),
	}
	if event.ScheduledEndTime != nil {
		fields = append(fields, field(b.t(lang, "event.end"), timestampTag(*event.ScheduledEndTime), true))
	}
	if event.CreatorID != "" {
		fields = append(fields, field(b.t(lang, "event.creator"), utils.UserMention(event.CreatorID), true))
	}
	return b.commandEmbed(title, "", color, fields)
}

func (b *Bot) eventStatus(lang string, status discordgo.GuildScheduledEventStatus) string {
	switch status {
	case discordgo.GuildScheduledEventStatusScheduled:
		return b.t(lang, "event.scheduled")
	case discordgo.GuildScheduledEventStatusActive:
		return b.t(lang, "event.active")
	case discordgo.GuildScheduledEventStatusCompleted:
		return b.t(lang, "event.completed")
	case discordgo.GuildScheduledEventStatusCanceled:
		return b.t(lang, "event.canceled")
	}
	return strconv.Itoa(int(status))
}

func (b *Bot) onScheduledEventCreate(_ *discordgo.Session, event *discordgo.GuildScheduledEventCreate) {
	metrics.EventsHandled.WithLabelValues("scheduled_event_create").Inc()
	if event.GuildScheduledEvent == nil {
		return
	}
	embed := b.scheduledEventEmbed(b.t(b.logLang(), "event.createTitle"), b.cfg.Notifications.EmbedColors.Success, event.GuildScheduledEvent)
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onScheduledEventUpdate(_ *discordgo.Session, event *discordgo.GuildScheduledEventUpdate) {
	metrics.EventsHandled.WithLabelValues("scheduled_event_update").Inc()
	if event.GuildScheduledEvent == nil {
		return
	}
	embed := b.scheduledEventEmbed(b.t(b.logLang(), "event.updateTitle"), b.cfg.Notifications.EmbedColors.Warning, event.GuildScheduledEvent)
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onScheduledEventDelete(_ *discordgo.Session, event *discordgo.GuildScheduledEventDelete) {
	metrics.EventsHandled.WithLabelValues("scheduled_event_delete").Inc()
	if event.GuildScheduledEvent == nil {
		return
	}
	embed := b.scheduledEventEmbed(b.t(b.logLang(), "event.deleteTitle"), b.cfg.Notifications.EmbedColors.Error, event.GuildScheduledEvent)
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}
