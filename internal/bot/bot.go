package bot

import (
	"context"
	"sync"
	"time"

	"lilyguard/internal/config"
	"lilyguard/internal/configstore"
	"lilyguard/internal/i18n"
	"lilyguard/internal/ledger"
	"lilyguard/internal/metrics"
	"lilyguard/internal/modal"
	"lilyguard/internal/modules/audit"
	"lilyguard/internal/modules/autothread"
	"lilyguard/internal/modules/cooldown"
	"lilyguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Platform is the part of the Discord REST surface the handlers call.
type Platform interface {
	autothread.Discord

	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendEmbed(channelID string, embed *discordgo.MessageEmbed, options ...discordgo.RequestOption) (*discordgo.Message, error)
	UserChannelPermissions(userID, channelID string, fetchOptions ...discordgo.RequestOption) (int64, error)
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberNickname(guildID, userID, nickname string, options ...discordgo.RequestOption) error
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildBan(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.GuildBan, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ApplicationCommandBulkOverwrite(appID string, guildID string, commands []*discordgo.ApplicationCommand, options ...discordgo.RequestOption) ([]*discordgo.ApplicationCommand, error)
	HeartbeatLatency() time.Duration
}

type Bot struct {
	cfg        config.Config
	logger     *zap.Logger
	session    *discordgo.Session
	platform   Platform
	state      *discordgo.State
	store      *storage.Store
	configs    *configstore.Store
	ledger     *ledger.Ledger
	autothread *autothread.Module
	audit      *audit.Logger
	translator *i18n.Translator
	modals     *modal.Awaiter
	nicknames  *cooldown.Module
	limiter    *rate.Limiter
	messages   *cache.Cache
	selfID     string
	now        func() time.Time
	inflight   sync.WaitGroup
}

func New(cfg config.Config, logger *zap.Logger, store *storage.Store, auditLogger *audit.Logger, translator *i18n.Translator) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, err
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildInvites |
		discordgo.IntentsGuildScheduledEvents |
		discordgo.IntentsMessageContent

	b := newBot(cfg, logger, session, store, auditLogger, translator)
	b.session = session
	b.state = session.State
	return b, nil
}

func newBot(cfg config.Config, logger *zap.Logger, platform Platform, store *storage.Store, auditLogger *audit.Logger, translator *i18n.Translator) *Bot {
	limit := rate.Limit(cfg.Notifications.LogRatePerSecond)
	if cfg.Notifications.LogRatePerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Notifications.LogBurst
	if burst <= 0 {
		burst = 1
	}
	messageTTL := cfg.Cache.MessageTTL
	if messageTTL <= 0 {
		messageTTL = 30 * time.Minute
	}

	b := &Bot{
		cfg:        cfg,
		logger:     logger,
		platform:   platform,
		store:      store,
		configs:    configstore.New(store, cfg.Cache.ConfigTTL, logger),
		ledger:     ledger.New(store, logger),
		audit:      auditLogger,
		translator: translator,
		modals:     modal.NewAwaiter(),
		nicknames:  cooldown.New(cfg.Interactions.NicknameRequests, cfg.Interactions.NicknameRequestWindow),
		limiter:    rate.NewLimiter(limit, burst),
		messages:   cache.New(messageTTL, messageTTL/3),
		now:        time.Now,
	}
	b.autothread = autothread.New(store, platform, b, translator, cfg.DefaultLanguage, cfg.Interactions.DuplicateNoticeTTL, logger.Named("autothread"))
	if auditLogger != nil {
		auditLogger.SetNotifier(b.onAuditEntry)
	}
	return b
}

func (b *Bot) onAuditEntry(_ context.Context, entry storage.AuditLog) {
	metrics.AuditEntries.WithLabelValues(entry.Level, entry.Event).Inc()
	if entry.Level == audit.LevelCrit {
		b.logger.Error("critical audit entry", zap.String("guild_id", entry.GuildID), zap.String("event", entry.Event), zap.String("details", entry.Details))
	}
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onMessageCreate)
	b.session.AddHandler(b.onMessageUpdate)
	b.session.AddHandler(b.onMessageDelete)
	b.session.AddHandler(b.onMessageDeleteBulk)
	b.session.AddHandler(b.onChannelCreate)
	b.session.AddHandler(b.onChannelUpdate)
	b.session.AddHandler(b.onChannelDelete)
	b.session.AddHandler(b.onThreadCreate)
	b.session.AddHandler(b.onThreadDelete)
	b.session.AddHandler(b.onRoleCreate)
	b.session.AddHandler(b.onRoleUpdate)
	b.session.AddHandler(b.onRoleDelete)
	b.session.AddHandler(b.onGuildBanAdd)
	b.session.AddHandler(b.onGuildBanRemove)
	b.session.AddHandler(b.onInviteCreate)
	b.session.AddHandler(b.onInviteDelete)
	b.session.AddHandler(b.onScheduledEventCreate)
	b.session.AddHandler(b.onScheduledEventUpdate)
	b.session.AddHandler(b.onScheduledEventDelete)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}
	if b.session.State != nil && b.session.State.User != nil {
		b.selfID = b.session.State.User.ID
	}

	return b.registerCommands()
}

// Close disconnects from the gateway and waits for running interaction handlers, some of which may
// be waiting on a modal, until ctx is done.
func (b *Bot) Close(ctx context.Context) error {
	if b.session != nil {
		_ = b.session.Close()
	}
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		b.logger.Warn("interaction handlers still running at shutdown", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	if event.User != nil {
		b.selfID = event.User.ID
	}
	b.logger.Info("discord ready", zap.String("user", session.State.User.Username), zap.Int("guilds", len(event.Guilds)))
}

// ModeratorRole returns the moderator role set in the guild's moderation config, or nil.
func (b *Bot) ModeratorRole(ctx context.Context, guildID string) (*discordgo.Role, error) {
	cfg, found, err := b.configs.Moderation(ctx, guildID)
	if err != nil || !found || cfg.RoleID == "" {
		return nil, err
	}
	return b.role(guildID, cfg.RoleID)
}

func (b *Bot) role(guildID, roleID string) (*discordgo.Role, error) {
	if b.state != nil {
		if role, err := b.state.Role(guildID, roleID); err == nil {
			return role, nil
		}
	}
	roles, err := b.platform.GuildRoles(guildID)
	if err != nil {
		return nil, err
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, nil
}

func (b *Bot) memberCount(guildID string) int {
	if b.state == nil {
		return 0
	}
	guild, err := b.state.Guild(guildID)
	if err != nil {
		return 0
	}
	return guild.MemberCount
}

func (b *Bot) channelName(channelID string) string {
	if channelID == "" {
		return ""
	}
	if b.state != nil {
		if ch, err := b.state.Channel(channelID); err == nil {
			return ch.Name
		}
	}
	ch, err := b.platform.Channel(channelID)
	if err != nil {
		return ""
	}
	return ch.Name
}

func (b *Bot) t(lang, key string, args ...any) string {
	if lang == "" {
		lang = b.cfg.DefaultLanguage
	}
	return b.translator.T(lang, key, args...)
}

// logLang is the language of embeds posted to guild channels.
func (b *Bot) logLang() string {
	return b.cfg.DefaultLanguage
}

// Session exposes the Discord session for components that call the REST API on their own.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) Ledger() *ledger.Ledger {
	return b.ledger
}
