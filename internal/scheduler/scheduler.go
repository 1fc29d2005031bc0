// Package scheduler runs the bot's periodic jobs: lifting expired temporary bans and pruning the
// audit trail.
package scheduler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"lilyguard/internal/config"
	"lilyguard/internal/ledger"
	"lilyguard/internal/metrics"
	"lilyguard/internal/storage"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Store interface {
	ListExpiredTempBans(ctx context.Context, now time.Time) ([]storage.TempBan, error)
	DeleteTempBan(ctx context.Context, guildID, userID string) error
	CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error)
}

type Ledger interface {
	RecordAction(ctx context.Context, actionType ledger.ActionType, guildID, targetID string, data ledger.ActionData) error
	RemoveAction(ctx context.Context, actionType ledger.ActionType, guildID, targetID string) error
}

type Unbanner interface {
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
}

// Notifier is told about every temporary ban the sweep lifts.
type Notifier interface {
	TempBanExpired(ctx context.Context, ban storage.TempBan)
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Scheduler struct {
	mu            sync.Mutex
	cfg           config.SchedulerConfig
	retentionDays int
	store         Store
	ledger        Ledger
	unbanner      Unbanner
	notifier      Notifier
	logger        *zap.Logger
	clock         Clock
	cron          *cron.Cron
}

func New(cfg config.SchedulerConfig, retentionDays int, store Store, actions Ledger, unbanner Unbanner, notifier Notifier, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cfg:           cfg,
		retentionDays: retentionDays,
		store:         store,
		ledger:        actions,
		unbanner:      unbanner,
		notifier:      notifier,
		logger:        logger,
		clock:         realClock{},
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	loc, err := time.LoadLocation(s.cfg.Location)
	if err != nil {
		s.logger.Warn("unknown scheduler location, using UTC", zap.String("location", s.cfg.Location), zap.Error(err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	if _, err := c.AddFunc(s.cfg.TempBanSweep, func() { s.SweepTempBans(ctx) }); err != nil {
		return errors.WithMessage(err, "schedule temp ban sweep")
	}
	if s.retentionDays > 0 {
		if _, err := c.AddFunc(s.cfg.AuditPrune, func() { s.PruneAudit(ctx) }); err != nil {
			return errors.WithMessage(err, "schedule audit prune")
		}
	}

	c.Start()
	s.cron = c
	s.logger.Info("scheduler started", zap.String("temp_ban_sweep", s.cfg.TempBanSweep), zap.String("audit_prune", s.cfg.AuditPrune), zap.String("tz", loc.String()))
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("scheduler stopped")
}

// SweepTempBans lifts every temporary ban whose expiry has passed. The UNBAN record is tagged
// ignored first so the gateway confirmation is not logged on top of the expiry notice.
func (s *Scheduler) SweepTempBans(ctx context.Context) int {
	now := s.clock.Now()
	bans, err := s.store.ListExpiredTempBans(ctx, now)
	if err != nil {
		s.logger.Error("failed to list expired temp bans", zap.Error(err))
		return 0
	}

	lifted := 0
	for _, ban := range bans {
		if err := s.lift(ctx, ban, now); err != nil {
			s.logger.Error("failed to lift temp ban", zap.String("guild_id", ban.GuildID), zap.String("user_id", ban.UserID), zap.Error(err))
			continue
		}
		lifted++
	}
	return lifted
}

func (s *Scheduler) lift(ctx context.Context, ban storage.TempBan, now time.Time) error {
	err := s.ledger.RecordAction(ctx, ledger.ActionUnban, ban.GuildID, ban.UserID, ledger.ActionData{
		ActionerID: ban.ModeratorID,
		Reason:     "Temporary ban expired",
		Time:       &ledger.TimeData{Duration: ban.ExpiresAt.Sub(ban.BannedAt), Start: ban.BannedAt, End: now},
		IgnoreLog:  true,
	})
	if err != nil {
		return err
	}

	if err := s.unbanner.GuildBanDelete(ban.GuildID, ban.UserID, discordgo.WithAuditLogReason("Temporary ban expired")); err != nil {
		if !isUnknownBan(err) {
			return errors.WithMessage(err, "unban")
		}
		// Already unbanned by hand; no confirmation will arrive to consume the record.
		if err := s.ledger.RemoveAction(ctx, ledger.ActionUnban, ban.GuildID, ban.UserID); err != nil {
			return err
		}
		if err := s.store.DeleteTempBan(ctx, ban.GuildID, ban.UserID); err != nil {
			return err
		}
		s.logger.Info("temp ban already lifted", zap.String("guild_id", ban.GuildID), zap.String("user_id", ban.UserID))
		return nil
	}

	if err := s.store.DeleteTempBan(ctx, ban.GuildID, ban.UserID); err != nil {
		return err
	}
	metrics.TempBansExpired.Inc()
	if s.notifier != nil {
		s.notifier.TempBanExpired(ctx, ban)
	}
	return nil
}

func (s *Scheduler) PruneAudit(ctx context.Context) {
	removed, err := s.store.CleanupAuditLogs(ctx, s.retentionDays)
	if err != nil {
		s.logger.Error("failed to prune audit logs", zap.Error(err))
		return
	}
	s.logger.Info("audit logs pruned", zap.Int64("removed", removed), zap.Int("retention_days", s.retentionDays))
}

func isUnknownBan(err error) bool {
	var restErr *discordgo.RESTError
	return errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
