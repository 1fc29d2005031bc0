package audit

import (
	"context"
	"time"

	"lilyguard/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

const (
	EventConfigSet         = "config_set"
	EventConfigCleared     = "config_cleared"
	EventAutoThreadEnabled = "autothread_enabled"
	EventAutoThreadOff     = "autothread_disabled"
	EventBanConfirmed      = "ban_confirmed"
	EventUnbanConfirmed    = "unban_confirmed"
	EventLedgerMismatch    = "ledger_mismatch"
	EventTempBanExpired    = "temp_ban_expired"
	EventNicknameRequest   = "nickname_request"
)

type Store interface {
	AddAuditLog(ctx context.Context, log storage.AuditLog) error
}

type Logger struct {
	store  Store
	logger *zap.Logger
	notify func(context.Context, storage.AuditLog)
	now    func() time.Time
}

func NewLogger(store Store, logger *zap.Logger) *Logger {
	return &Logger{store: store, logger: logger, now: time.Now}
}

// SetNotifier registers a hook that sees every entry after it is stored.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.notify = notify
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Error("failed to store audit entry", zap.String("event", event), zap.Error(err))
		}
	}
	if l.notify != nil {
		l.notify(ctx, entry)
	}

	fields := []zap.Field{zap.String("level", level), zap.String("guild_id", guildID), zap.String("user_id", userID), zap.String("event", event), zap.String("details", details)}
	switch level {
	case LevelCrit:
		l.logger.Error("audit", fields...)
	case LevelWarn:
		l.logger.Warn("audit", fields...)
	default:
		l.logger.Info("audit", fields...)
	}
}
