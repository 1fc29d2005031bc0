package bot

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"lilyguard/internal/metrics"
	"lilyguard/internal/utils"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	embedFieldLimit = 1024
	// pluralKitEdit is the prefix of PluralKit's edit command; the bot deletes those itself.
	pluralKitEdit = "pk;e"
)

// messageSnapshot is what the delete and edit logs need once Discord stops sending the content.
type messageSnapshot struct {
	ID          string
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorName  string
	AuthorBot   bool
	Content     string
	Attachments []string
	CreatedAt   time.Time
}

func snapshotOf(msg *discordgo.Message) messageSnapshot {
	snap := messageSnapshot{
		ID:        msg.ID,
		GuildID:   msg.GuildID,
		ChannelID: msg.ChannelID,
		Content:   msg.Content,
		CreatedAt: msg.Timestamp,
	}
	if msg.Author != nil {
		snap.AuthorID = msg.Author.ID
		snap.AuthorName = msg.Author.Username
		snap.AuthorBot = msg.Author.Bot
	}
	for _, attachment := range msg.Attachments {
		snap.Attachments = append(snap.Attachments, attachment.URL)
	}
	return snap
}

// remember keeps a snapshot of msg for later edit and delete logs. Once the cache holds
// Cache.MessageLimit snapshots, new messages are skipped until older ones expire.
func (b *Bot) remember(msg *discordgo.Message) {
	if msg.GuildID == "" || msg.Author == nil || msg.Author.Bot {
		return
	}
	if limit := b.cfg.Cache.MessageLimit; limit > 0 && b.messages.ItemCount() >= limit {
		if _, known := b.messages.Get(msg.ID); !known {
			b.messages.DeleteExpired()
			if b.messages.ItemCount() >= limit {
				return
			}
		}
	}
	b.messages.Set(msg.ID, snapshotOf(msg), cache.DefaultExpiration)
}

func (b *Bot) recall(messageID string) (messageSnapshot, bool) {
	value, ok := b.messages.Get(messageID)
	if !ok {
		return messageSnapshot{}, false
	}
	snap, ok := value.(messageSnapshot)
	return snap, ok
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, event *discordgo.MessageCreate) {
	metrics.EventsHandled.WithLabelValues("message_create").Inc()
	b.handleMessageCreate(context.Background(), event.Message)
}

func (b *Bot) handleMessageCreate(ctx context.Context, msg *discordgo.Message) {
	if msg == nil {
		return
	}
	b.remember(msg)

	created, err := b.autothread.HandleMessage(ctx, msg)
	if err != nil {
		b.logger.Warn("auto-thread failed", zap.String("channel_id", msg.ChannelID), zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	if created {
		metrics.ThreadsCreated.Inc()
	}
}

func (b *Bot) onMessageUpdate(_ *discordgo.Session, event *discordgo.MessageUpdate) {
	metrics.EventsHandled.WithLabelValues("message_update").Inc()
	b.handleMessageUpdate(context.Background(), event.Message, event.BeforeUpdate)
}

func (b *Bot) handleMessageUpdate(ctx context.Context, msg, before *discordgo.Message) {
	if msg == nil || msg.GuildID == "" {
		return
	}

	var old messageSnapshot
	var known bool
	if before != nil {
		old, known = snapshotOf(before), true
	} else {
		old, known = b.recall(msg.ID)
	}
	if !known || old.AuthorBot || old.Content == msg.Content {
		return
	}
	if msg.Author == nil {
		msg.Author = &discordgo.User{ID: old.AuthorID, Username: old.AuthorName}
	}
	b.remember(msg)

	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "message.editTitle"), b.t(lang, "message.location", utils.ChannelMention(msg.ChannelID)), b.cfg.Notifications.EmbedColors.Warning, []*discordgo.MessageEmbedField{
		field(b.t(lang, "message.previous"), utils.TruncateEllipsis(old.Content, embedFieldLimit), false),
		field(b.t(lang, "message.new"), utils.TruncateEllipsis(msg.Content, embedFieldLimit), false),
		field(b.t(lang, "message.link"), messageLink(msg.GuildID, msg.ChannelID, msg.ID), false),
	})
	embed.Footer = userFooter(msg.Author)
	b.postLog(ctx, msg.GuildID, logMessageEdit, embedMessage(embed))
}

func (b *Bot) onMessageDelete(_ *discordgo.Session, event *discordgo.MessageDelete) {
	metrics.EventsHandled.WithLabelValues("message_delete").Inc()
	b.handleMessageDelete(context.Background(), event.Message, event.BeforeDelete)
}

func (b *Bot) handleMessageDelete(ctx context.Context, msg, before *discordgo.Message) {
	if msg == nil || msg.GuildID == "" {
		return
	}
	defer b.messages.Delete(msg.ID)

	snap, ok := b.recall(msg.ID)
	if before != nil {
		snap, ok = snapshotOf(before), true
	}
	if !ok || snap.AuthorBot || snap.AuthorID == b.selfID {
		return
	}
	if strings.HasPrefix(strings.ToLower(snap.Content), pluralKitEdit) {
		return
	}

	lang := b.logLang()
	content := snap.Content
	if content == "" {
		content = b.t(lang, "message.noContent")
	}
	fields := []*discordgo.MessageEmbedField{
		field(b.t(lang, "message.content"), utils.TruncateEllipsis(content, embedFieldLimit), false),
		field(b.t(lang, "field.user"), userIDLabel(snap.AuthorID)+" ("+snap.AuthorName+")", false),
	}
	if len(snap.Attachments) > 0 {
		fields = append(fields, field(b.t(lang, "message.attachments"), utils.TruncateEllipsis(strings.Join(snap.Attachments, "\n"), embedFieldLimit), false))
	}
	embed := b.commandEmbed(b.t(lang, "message.deleteTitle"), b.t(lang, "message.location", utils.ChannelMention(snap.ChannelID)), b.cfg.Notifications.EmbedColors.Error, fields)
	b.postLog(ctx, msg.GuildID, logMessageDelete, embedMessage(embed))
}

func (b *Bot) onMessageDeleteBulk(_ *discordgo.Session, event *discordgo.MessageDeleteBulk) {
	metrics.EventsHandled.WithLabelValues("message_delete_bulk").Inc()
	b.handleMessageDeleteBulk(context.Background(), event.GuildID, event.ChannelID, event.Messages)
}

func (b *Bot) handleMessageDeleteBulk(ctx context.Context, guildID, channelID string, ids []string) {
	if guildID == "" {
		return
	}
	snaps := make([]messageSnapshot, 0, len(ids))
	for _, id := range ids {
		if snap, ok := b.recall(id); ok {
			snaps = append(snaps, snap)
		}
		b.messages.Delete(id)
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].CreatedAt.Before(snaps[j].CreatedAt) })

	lang := b.logLang()
	embed := b.commandEmbed(b.t(lang, "message.bulkTitle"), b.t(lang, "message.location", utils.ChannelMention(channelID)), b.cfg.Notifications.EmbedColors.Error, []*discordgo.MessageEmbedField{
		field(b.t(lang, "message.count"), strconv.Itoa(len(ids)), true),
	})
	msg := embedMessage(embed)
	msg.Files = []*discordgo.File{{
		Name:        "messages.md",
		ContentType: "text/markdown",
		Reader:      bytes.NewReader(b.bulkDeleteReport(lang, channelID, snaps)),
	}}
	b.postLog(ctx, guildID, logMessageDelete, msg)
}

func (b *Bot) bulkDeleteReport(lang, channelID string, snaps []messageSnapshot) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n\n", b.t(lang, "message.bulkReportTitle", b.channelName(channelID)))
	if len(snaps) == 0 {
		buf.WriteString(b.t(lang, "message.bulkUnavailable"))
		buf.WriteString("\n")
		return buf.Bytes()
	}
	for _, snap := range snaps {
		fmt.Fprintf(&buf, "## %s (%s) - %s\n\n", snap.AuthorName, snap.AuthorID, snap.CreatedAt.UTC().Format(time.RFC1123))
		if snap.Content != "" {
			buf.WriteString(snap.Content)
			buf.WriteString("\n\n")
		}
		for _, attachment := range snap.Attachments {
			fmt.Fprintf(&buf, "- %s\n", attachment)
		}
		if len(snap.Attachments) > 0 {
			buf.WriteString("\n")
		}
	}
	return buf.Bytes()
}

func messageLink(guildID, channelID, messageID string) string {
	return "https://discord.com/channels/" + guildID + "/" + channelID + "/" + messageID
}
