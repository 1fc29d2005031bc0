// Package autothread opens a thread for every message posted in a configured channel.
package autothread

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lilyguard/internal/storage"
	"lilyguard/internal/utils"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

const (
	maxTitleLength = 75
	// discordgo does not expose a channel's default auto-archive duration.
	defaultArchiveMinutes = 1440
	placeholderContent    = "Placeholder"
)

var (
	ErrAlreadyEnabled = errors.New("auto-threading already enabled for channel")
	ErrNotEnabled     = errors.New("auto-threading not enabled for channel")
)

// Discord is the slice of the REST surface the module needs.
type Discord interface {
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelEdit(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEdit(channelID, messageID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	MessageThreadStartComplex(channelID, messageID string, data *discordgo.ThreadStart, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

type Store interface {
	GetAutoThread(ctx context.Context, channelID string) (storage.AutoThread, bool, error)
	ListAutoThreads(ctx context.Context, guildID string) ([]storage.AutoThread, error)
	InsertAutoThread(ctx context.Context, cfg storage.AutoThread) error
	DeleteAutoThread(ctx context.Context, channelID string) error
	UpsertThreadOwner(ctx context.Context, owner storage.ThreadOwner) error
	ListOwnedThreads(ctx context.Context, guildID, ownerID string) ([]storage.ThreadOwner, error)
	DeleteThreadOwner(ctx context.Context, threadID string) error
}

// ModeratorRoles resolves the guild's configured moderator role. A nil role means none is set.
type ModeratorRoles interface {
	ModeratorRole(ctx context.Context, guildID string) (*discordgo.Role, error)
}

type Translator interface {
	T(lang, key string, args ...any) string
}

type Module struct {
	store      Store
	discord    Discord
	moderators ModeratorRoles
	translator Translator
	lang       string
	logger     *zap.Logger
	noticeTTL  time.Duration
	afterFunc  func(time.Duration, func())
}

func New(store Store, discord Discord, moderators ModeratorRoles, translator Translator, lang string, noticeTTL time.Duration, logger *zap.Logger) *Module {
	if noticeTTL <= 0 {
		noticeTTL = 10 * time.Second
	}
	return &Module{
		store:      store,
		discord:    discord,
		moderators: moderators,
		translator: translator,
		lang:       lang,
		logger:     logger,
		noticeTTL:  noticeTTL,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// ThreadTitle derives the thread name from the message, falling back to "<prefix> <author>".
func ThreadTitle(content, author, prefix string, contentAware bool) string {
	if contentAware {
		if line := strings.TrimSpace(utils.FirstLine(strings.TrimSpace(content))); line != "" {
			return utils.Truncate(line, maxTitleLength)
		}
	}
	return utils.Truncate(prefix+" "+author, maxTitleLength)
}

func (m *Module) Enable(ctx context.Context, cfg storage.AutoThread) error {
	_, found, err := m.store.GetAutoThread(ctx, cfg.ChannelID)
	if err != nil {
		return err
	}
	if found {
		return ErrAlreadyEnabled
	}
	return m.store.InsertAutoThread(ctx, cfg)
}

// Disable removes the channel's configuration and returns what was removed.
func (m *Module) Disable(ctx context.Context, channelID string) (storage.AutoThread, error) {
	cfg, found, err := m.store.GetAutoThread(ctx, channelID)
	if err != nil {
		return storage.AutoThread{}, err
	}
	if !found {
		return storage.AutoThread{}, ErrNotEnabled
	}
	return cfg, m.store.DeleteAutoThread(ctx, channelID)
}

func (m *Module) List(ctx context.Context, guildID string) ([]storage.AutoThread, error) {
	return m.store.ListAutoThreads(ctx, guildID)
}

func (m *Module) Config(ctx context.Context, channelID string) (storage.AutoThread, bool, error) {
	return m.store.GetAutoThread(ctx, channelID)
}

// Forget drops the owner record of a deleted thread.
func (m *Module) Forget(ctx context.Context, threadID string) error {
	return m.store.DeleteThreadOwner(ctx, threadID)
}

// HandleMessage starts a thread for msg when its channel is configured. It reports whether a
// thread was created.
func (m *Module) HandleMessage(ctx context.Context, msg *discordgo.Message) (bool, error) {
	if !qualifies(msg) {
		return false, nil
	}
	cfg, found, err := m.store.GetAutoThread(ctx, msg.ChannelID)
	if err != nil || !found {
		return false, err
	}

	if cfg.PreventDuplicates {
		existing, err := m.openThread(ctx, msg.GuildID, msg.Author.ID, msg.ChannelID)
		if err != nil {
			return false, err
		}
		if existing != nil {
			m.redirect(msg, existing)
			return false, nil
		}
	}

	title := ThreadTitle(msg.Content, msg.Author.Username, m.translator.T(m.lang, "autothreading.threadFor"), cfg.ContentAwareNaming)
	thread, err := m.discord.MessageThreadStartComplex(msg.ChannelID, msg.ID, &discordgo.ThreadStart{
		Name:                title,
		AutoArchiveDuration: defaultArchiveMinutes,
	})
	if err != nil {
		return false, errors.WithMessage(err, "start thread")
	}

	if err := m.store.UpsertThreadOwner(ctx, storage.ThreadOwner{
		ThreadID: thread.ID,
		GuildID:  msg.GuildID,
		OwnerID:  msg.Author.ID,
		ParentID: msg.ChannelID,
	}); err != nil {
		return true, err
	}
	return true, m.populate(ctx, cfg, thread, msg.Author.ID)
}

// HandleThreadCreate gives threads that members open themselves in a configured channel the same
// lead message as bot-created ones.
func (m *Module) HandleThreadCreate(ctx context.Context, thread *discordgo.Channel, selfID string) error {
	if thread == nil || thread.OwnerID == "" || thread.OwnerID == selfID || thread.ParentID == "" {
		return nil
	}
	cfg, found, err := m.store.GetAutoThread(ctx, thread.ParentID)
	if err != nil || !found {
		return err
	}
	return m.populate(ctx, cfg, thread, thread.OwnerID)
}

func qualifies(msg *discordgo.Message) bool {
	if msg == nil || msg.GuildID == "" || msg.Author == nil || msg.Author.Bot || msg.WebhookID != "" {
		return false
	}
	return msg.Type == discordgo.MessageTypeDefault || msg.Type == discordgo.MessageTypeReply
}

// openThread returns the author's unarchived thread under parentID, pruning records of threads
// that no longer exist.
func (m *Module) openThread(ctx context.Context, guildID, ownerID, parentID string) (*discordgo.Channel, error) {
	owned, err := m.store.ListOwnedThreads(ctx, guildID, ownerID)
	if err != nil {
		return nil, err
	}
	var open *discordgo.Channel
	for _, record := range owned {
		thread, err := m.discord.Channel(record.ThreadID)
		if err != nil {
			if !isNotFound(err) {
				return nil, err
			}
			if err := m.store.DeleteThreadOwner(ctx, record.ThreadID); err != nil {
				return nil, err
			}
			m.logger.Debug("stale thread owner removed", zap.String("thread_id", record.ThreadID))
			continue
		}
		if open == nil && thread.ParentID == parentID && !archived(thread) {
			open = thread
		}
	}
	return open, nil
}

func (m *Module) redirect(msg *discordgo.Message, existing *discordgo.Channel) {
	notice, err := m.discord.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content:   m.translator.T(m.lang, "autothreading.existingThread", existing.Mention()),
		Reference: msg.Reference(),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	})
	if err != nil {
		m.logger.Warn("failed to point at existing thread", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
	if err := m.discord.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithAuditLogReason("User already has a thread")); err != nil {
		m.logger.Warn("failed to delete duplicate thread message", zap.String("message_id", msg.ID), zap.Error(err))
	}
	if notice == nil {
		return
	}
	m.afterFunc(m.noticeTTL, func() {
		_ = m.discord.ChannelMessageDelete(notice.ChannelID, notice.ID)
	})
}

// populate writes the lead message. Mentions are edited in rather than sent so the mentioned
// members join the thread without a ping.
func (m *Module) populate(ctx context.Context, cfg storage.AutoThread, thread *discordgo.Channel, userID string) error {
	initial := placeholderContent
	if cfg.Mention {
		initial = utils.UserMention(userID)
	}
	lead, err := m.discord.ChannelMessageSend(thread.ID, initial)
	if err != nil {
		return errors.WithMessage(err, "send lead message")
	}

	if cfg.RoleID != "" {
		content := utils.RoleMention(cfg.RoleID)
		if cfg.AddModsAndRole && m.moderators != nil {
			role, err := m.moderators.ModeratorRole(ctx, thread.GuildID)
			if err != nil {
				m.logger.Warn("failed to resolve moderator role", zap.String("guild_id", thread.GuildID), zap.Error(err))
			} else if role != nil && role.Mentionable {
				content += utils.RoleMention(role.ID)
			}
		}
		if _, err := m.discord.ChannelMessageEdit(thread.ID, lead.ID, content); err != nil {
			return errors.WithMessage(err, "edit lead message")
		}
	}

	if cfg.CreationMessage != "" {
		content := cfg.CreationMessage
		if cfg.Mention {
			content = utils.UserMention(userID) + " " + content
		}
		if _, err := m.discord.ChannelMessageEdit(thread.ID, lead.ID, content); err != nil {
			return errors.WithMessage(err, "edit lead message")
		}
	} else if err := m.discord.ChannelMessageDelete(thread.ID, lead.ID); err != nil {
		return errors.WithMessage(err, "delete lead message")
	}

	if cfg.Archive {
		archive := true
		if _, err := m.discord.ChannelEdit(thread.ID, &discordgo.ChannelEdit{Archived: &archive}, discordgo.WithAuditLogReason("Initial thread creation")); err != nil {
			return errors.WithMessage(err, "archive thread")
		}
	}
	return nil
}

func archived(thread *discordgo.Channel) bool {
	return thread.ThreadMetadata != nil && thread.ThreadMetadata.Archived
}

func isNotFound(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
