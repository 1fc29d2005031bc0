package configstore

import (
	"context"
	"encoding/json"
	"time"

	"emperror.dev/errors"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var ErrConfigExists = errors.New("config already exists")

// Backend is the document persistence the store caches in front of.
type Backend interface {
	GetGuildConfig(ctx context.Context, guildID, domain string) (string, bool, error)
	InsertGuildConfig(ctx context.Context, guildID, domain, document string) error
	DeleteGuildConfig(ctx context.Context, guildID, domain string) error
}

// Store reads and writes per-guild configuration documents. Documents are never updated in
// place: a new one can only be set once the previous one was cleared.
type Store struct {
	backend Backend
	cache   *cache.Cache
	logger  *zap.Logger
}

func New(backend Backend, ttl time.Duration, logger *zap.Logger) *Store {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{
		backend: backend,
		cache:   cache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

func KeyGuildConfig(guildID string, domain Domain) string {
	return "guild_config:" + string(domain) + ":" + guildID
}

func (s *Store) InvalidateCache(guildID string, domain Domain) {
	s.cache.Delete(KeyGuildConfig(guildID, domain))
}

func (s *Store) document(ctx context.Context, guildID string, domain Domain) (string, bool, error) {
	key := KeyGuildConfig(guildID, domain)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(string), true, nil
	}

	doc, found, err := s.backend.GetGuildConfig(ctx, guildID, string(domain))
	if err != nil {
		return "", false, errors.WithMessage(err, "load "+string(domain)+" config")
	}
	if found {
		s.cache.SetDefault(key, doc)
	}
	return doc, found, nil
}

func load[T GuildConfig](ctx context.Context, s *Store, guildID string, domain Domain) (T, bool, error) {
	var cfg T
	doc, found, err := s.document(ctx, guildID, domain)
	if err != nil || !found {
		return cfg, false, err
	}
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return cfg, false, errors.WithMessage(err, "decode "+string(domain)+" config")
	}
	return cfg, true, nil
}

func (s *Store) Moderation(ctx context.Context, guildID string) (ModerationConfig, bool, error) {
	return load[ModerationConfig](ctx, s, guildID, DomainModeration)
}

func (s *Store) Logging(ctx context.Context, guildID string) (LoggingConfig, bool, error) {
	return load[LoggingConfig](ctx, s, guildID, DomainLogging)
}

func (s *Store) Utility(ctx context.Context, guildID string) (UtilityConfig, bool, error) {
	return load[UtilityConfig](ctx, s, guildID, DomainUtility)
}

// Exists reports whether a document is stored for guildID and domain.
func (s *Store) Exists(ctx context.Context, guildID string, domain Domain) (bool, error) {
	_, found, err := s.document(ctx, guildID, domain)
	return found, err
}

// Set stores cfg as the guild's document for its domain and fails with ErrConfigExists when
// one is already present. The check and the insert are not atomic.
func (s *Store) Set(ctx context.Context, guildID string, cfg GuildConfig) error {
	domain := cfg.Domain()
	exists, err := s.Exists(ctx, guildID, domain)
	if err != nil {
		return err
	}
	if exists {
		return ErrConfigExists
	}

	doc, err := json.Marshal(cfg)
	if err != nil {
		return errors.WithMessage(err, "encode "+string(domain)+" config")
	}
	if err := s.backend.InsertGuildConfig(ctx, guildID, string(domain), string(doc)); err != nil {
		return errors.WithMessage(err, "insert "+string(domain)+" config")
	}
	s.InvalidateCache(guildID, domain)
	s.logger.Debug("guild config set", zap.String("guild_id", guildID), zap.String("domain", string(domain)))
	return nil
}

// Clear deletes the document for guildID and domain. Clearing an absent document is a no-op.
func (s *Store) Clear(ctx context.Context, guildID string, domain Domain) error {
	if err := s.backend.DeleteGuildConfig(ctx, guildID, string(domain)); err != nil {
		return errors.WithMessage(err, "clear "+string(domain)+" config")
	}
	// After the delete, so a read racing the delete cannot re-cache the old document.
	s.InvalidateCache(guildID, domain)
	s.logger.Debug("guild config cleared", zap.String("guild_id", guildID), zap.String("domain", string(domain)))
	return nil
}

func (s *Store) ClearAll(ctx context.Context, guildID string) error {
	for _, domain := range Domains {
		if err := s.Clear(ctx, guildID, domain); err != nil {
			return err
		}
	}
	return nil
}
