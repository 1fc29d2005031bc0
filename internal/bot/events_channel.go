package bot

import (
	"context"
	"strconv"
	"strings"

	"lilyguard/internal/metrics"
	"lilyguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

var channelTypeNames = map[discordgo.ChannelType]string{
	discordgo.ChannelTypeGuildText:          "Text",
	discordgo.ChannelTypeGuildVoice:         "Voice",
	discordgo.ChannelTypeGuildCategory:      "Category",
	discordgo.ChannelTypeGuildNews:          "Announcement",
	discordgo.ChannelTypeGuildNewsThread:    "Announcement thread",
	discordgo.ChannelTypeGuildPublicThread:  "Thread",
	discordgo.ChannelTypeGuildPrivateThread: "Private thread",
	discordgo.ChannelTypeGuildStageVoice:    "Stage",
	discordgo.ChannelTypeGuildDirectory:     "Directory",
	discordgo.ChannelTypeGuildForum:         "Forum",
	discordgo.ChannelTypeGuildMedia:         "Media",
}

// permissionNames covers the permissions commonly set in channel overwrites, in display order.
var permissionNames = []struct {
	bit  int64
	name string
}{
	{discordgo.PermissionViewChannel, "View Channel"},
	{discordgo.PermissionManageChannels, "Manage Channel"},
	{discordgo.PermissionManageRoles, "Manage Permissions"},
	{discordgo.PermissionManageWebhooks, "Manage Webhooks"},
	{discordgo.PermissionCreateInstantInvite, "Create Invite"},
	{discordgo.PermissionSendMessages, "Send Messages"},
	{discordgo.PermissionSendMessagesInThreads, "Send Messages in Threads"},
	{discordgo.PermissionCreatePublicThreads, "Create Public Threads"},
	{discordgo.PermissionCreatePrivateThreads, "Create Private Threads"},
	{discordgo.PermissionEmbedLinks, "Embed Links"},
	{discordgo.PermissionAttachFiles, "Attach Files"},
	{discordgo.PermissionAddReactions, "Add Reactions"},
	{discordgo.PermissionUseExternalEmojis, "Use External Emoji"},
	{discordgo.PermissionMentionEveryone, "Mention Everyone"},
	{discordgo.PermissionManageMessages, "Manage Messages"},
	{discordgo.PermissionManageThreads, "Manage Threads"},
	{discordgo.PermissionReadMessageHistory, "Read Message History"},
	{discordgo.PermissionUseSlashCommands, "Use Application Commands"},
	{discordgo.PermissionVoiceConnect, "Connect"},
	{discordgo.PermissionVoiceSpeak, "Speak"},
	{discordgo.PermissionVoiceMuteMembers, "Mute Members"},
	{discordgo.PermissionVoiceMoveMembers, "Move Members"},
}

func permissionList(perms int64) string {
	var names []string
	for _, p := range permissionNames {
		if perms&p.bit != 0 {
			names = append(names, p.name)
		}
	}
	return strings.Join(names, ", ")
}

func channelTypeName(t discordgo.ChannelType) string {
	if name, ok := channelTypeNames[t]; ok {
		return name
	}
	return "Unknown (" + strconv.Itoa(int(t)) + ")"
}

func (b *Bot) onChannelCreate(_ *discordgo.Session, event *discordgo.ChannelCreate) {
	metrics.EventsHandled.WithLabelValues("channel_create").Inc()
	if event.Channel == nil || event.GuildID == "" {
		return
	}
	ch := event.Channel
	lang := b.logLang()
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "channel.type"), channelTypeName(ch.Type), true),
		field(b.t(lang, "channel.name"), ch.Mention()+" ("+ch.Name+")", true),
	}
	if ch.ParentID != "" {
		fields = append(fields, field(b.t(lang, "channel.category"), b.channelName(ch.ParentID), true))
	}
	embed := b.commandEmbed(b.t(lang, "channel.createTitle"), "", b.cfg.Notifications.EmbedColors.Success, fields)
	b.postLog(context.Background(), ch.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onChannelDelete(_ *discordgo.Session, event *discordgo.ChannelDelete) {
	metrics.EventsHandled.WithLabelValues("channel_delete").Inc()
	if event.Channel == nil || event.GuildID == "" {
		return
	}
	ch := event.Channel
	lang := b.logLang()
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "channel.type"), channelTypeName(ch.Type), true),
		field(b.t(lang, "channel.name"), "#"+ch.Name, true),
	}
	embed := b.commandEmbed(b.t(lang, "channel.deleteTitle"), "", b.cfg.Notifications.EmbedColors.Error, fields)
	b.postLog(context.Background(), ch.GuildID, logUtility, embedMessage(embed))
}

func (b *Bot) onChannelUpdate(_ *discordgo.Session, event *discordgo.ChannelUpdate) {
	metrics.EventsHandled.WithLabelValues("channel_update").Inc()
	if event.Channel == nil || event.BeforeUpdate == nil || event.GuildID == "" {
		return
	}
	fields := b.channelDiff(b.logLang(), event.BeforeUpdate, event.Channel)
	if len(fields) == 0 {
		return
	}
	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "channel.updateTitle"), event.Channel.Mention(), b.cfg.Notifications.EmbedColors.Warning, fields)
	b.postLog(context.Background(), event.GuildID, logUtility, embedMessage(embed))
}

// channelDiff lists every user-visible property that changed between before and after.
func (b *Bot) channelDiff(lang string, before, after *discordgo.Channel) []*discordgo.MessageEmbedField {
	var fields []*discordgo.MessageEmbedField
	change := func(key, from, to string) {
		if from == to {
			return
		}
		fields = append(fields, field(b.t(lang, key), utils.TruncateEllipsis(orDash(from)+" → "+orDash(to), embedFieldLimit), false))
	}

	change("channel.type", channelTypeName(before.Type), channelTypeName(after.Type))
	change("channel.name", before.Name, after.Name)
	change("channel.topic", before.Topic, after.Topic)
	if before.ParentID != after.ParentID {
		change("channel.category", b.channelName(before.ParentID), b.channelName(after.ParentID))
	}
	change("channel.nsfw", strconv.FormatBool(before.NSFW), strconv.FormatBool(after.NSFW))
	change("channel.position", strconv.Itoa(before.Position), strconv.Itoa(after.Position))
	change("channel.slowmode", slowmode(before.RateLimitPerUser), slowmode(after.RateLimitPerUser))
	if after.Type == discordgo.ChannelTypeGuildVoice || after.Type == discordgo.ChannelTypeGuildStageVoice {
		change("channel.bitrate", humanize.SI(float64(before.Bitrate), "bps"), humanize.SI(float64(after.Bitrate), "bps"))
		change("channel.userLimit", strconv.Itoa(before.UserLimit), strconv.Itoa(after.UserLimit))
	}

	fields = append(fields, b.overwriteDiff(lang, before.PermissionOverwrites, after.PermissionOverwrites)...)
	return fields
}

func (b *Bot) overwriteDiff(lang string, before, after []*discordgo.PermissionOverwrite) []*discordgo.MessageEmbedField {
	old := make(map[string]*discordgo.PermissionOverwrite, len(before))
	for _, o := range before {
		old[o.ID] = o
	}

	var fields []*discordgo.MessageEmbedField
	for _, o := range after {
		prev, existed := old[o.ID]
		delete(old, o.ID)
		if existed && prev.Allow == o.Allow && prev.Deny == o.Deny {
			continue
		}
		var lines []string
		if granted := permissionList(o.Allow &^ allowOf(prev)); granted != "" {
			lines = append(lines, b.t(lang, "channel.allowed", granted))
		}
		if denied := permissionList(o.Deny &^ denyOf(prev)); denied != "" {
			lines = append(lines, b.t(lang, "channel.denied", denied))
		}
		if reset := permissionList((allowOf(prev) | denyOf(prev)) &^ (o.Allow | o.Deny)); reset != "" {
			lines = append(lines, b.t(lang, "channel.reset", reset))
		}
		if len(lines) == 0 {
			continue
		}
		fields = append(fields, field(b.t(lang, "channel.overwrite"), utils.TruncateEllipsis(overwriteTarget(o)+"\n"+strings.Join(lines, "\n"), embedFieldLimit), false))
	}
	for _, o := range old {
		fields = append(fields, field(b.t(lang, "channel.overwriteRemoved"), overwriteTarget(o), false))
	}
	return fields
}

func allowOf(o *discordgo.PermissionOverwrite) int64 {
	if o == nil {
		return 0
	}
	return o.Allow
}

func denyOf(o *discordgo.PermissionOverwrite) int64 {
	if o == nil {
		return 0
	}
	return o.Deny
}

func overwriteTarget(o *discordgo.PermissionOverwrite) string {
	if o.Type == discordgo.PermissionOverwriteTypeMember {
		return utils.UserMention(o.ID)
	}
	return utils.RoleMention(o.ID)
}

func slowmode(seconds int) string {
	if seconds == 0 {
		return "off"
	}
	return strconv.Itoa(seconds) + "s"
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}

func (b *Bot) onThreadCreate(_ *discordgo.Session, event *discordgo.ThreadCreate) {
	metrics.EventsHandled.WithLabelValues("thread_create").Inc()
	if event.Channel == nil || !event.NewlyCreated {
		return
	}
	if err := b.autothread.HandleThreadCreate(context.Background(), event.Channel, b.selfID); err != nil {
		b.logger.Warn("failed to populate thread", zap.String("thread_id", event.ID), zap.Error(err))
	}
}

func (b *Bot) onThreadDelete(_ *discordgo.Session, event *discordgo.ThreadDelete) {
	metrics.EventsHandled.WithLabelValues("thread_delete").Inc()
	if event.Channel == nil {
		return
	}
	if err := b.autothread.Forget(context.Background(), event.ID); err != nil {
		b.logger.Warn("failed to forget thread owner", zap.String("thread_id", event.ID), zap.Error(err))
	}
}
