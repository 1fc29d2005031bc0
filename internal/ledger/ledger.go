// Package ledger records moderation actions the bot performs so that the gateway confirmations
// for those actions can be told apart from actions taken by someone else.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"lilyguard/internal/storage"

	"emperror.dev/errors"
	"go.uber.org/zap"
)

type ActionType string

const (
	ActionBan           ActionType = "BAN"
	ActionSoftBan       ActionType = "SOFT_BAN"
	ActionTempBan       ActionType = "TEMP_BAN"
	ActionUnban         ActionType = "UNBAN"
	ActionKick          ActionType = "KICK"
	ActionTimeout       ActionType = "TIMEOUT"
	ActionRemoveTimeout ActionType = "REMOVE_TIMEOUT"
	ActionWarn          ActionType = "WARN"
)

// banPriority is the lookup order used when a ban confirmation arrives.
var banPriority = []ActionType{ActionBan, ActionSoftBan, ActionTempBan}

type TimeData struct {
	Duration time.Duration `json:"duration,omitempty"`
	Start    time.Time     `json:"start,omitempty"`
	End      time.Time     `json:"end,omitempty"`
}

type ActionData struct {
	TargetUserID       string    `json:"target_user_id"`
	ActionerID         string    `json:"actioner_id"`
	Reason             string    `json:"reason,omitempty"`
	ImageURL           string    `json:"image_url,omitempty"`
	Time               *TimeData `json:"time,omitempty"`
	DeletedMessageDays *int      `json:"deleted_message_days,omitempty"`
	DMSent             *bool     `json:"dm_sent,omitempty"`
	DMOverride         *bool     `json:"dm_override,omitempty"`
	// IgnoreLog tells the confirmation handler to stay silent. It is kept in its own column.
	IgnoreLog bool `json:"-"`
}

type Record struct {
	Type      ActionType
	GuildID   string
	TargetID  string
	Data      ActionData
	CreatedAt time.Time
}

type Backend interface {
	UpsertModerationAction(ctx context.Context, action storage.ModerationAction) error
	GetModerationAction(ctx context.Context, actionType, guildID, targetID string) (storage.ModerationAction, bool, error)
	DeleteModerationAction(ctx context.Context, actionType, guildID, targetID string) error
}

type Ledger struct {
	backend Backend
	logger  *zap.Logger
}

func New(backend Backend, logger *zap.Logger) *Ledger {
	return &Ledger{backend: backend, logger: logger}
}

// RecordAction stores data for the key, replacing whatever was open for it.
func (l *Ledger) RecordAction(ctx context.Context, actionType ActionType, guildID, targetID string, data ActionData) error {
	if data.TargetUserID == "" {
		data.TargetUserID = targetID
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return errors.WithMessage(err, "encode action data")
	}
	err = l.backend.UpsertModerationAction(ctx, storage.ModerationAction{
		ActionType: string(actionType),
		GuildID:    guildID,
		TargetID:   targetID,
		Data:       string(payload),
		IgnoreLog:  data.IgnoreLog,
		CreatedAt:  time.Now(),
	})
	return errors.WithMessage(err, "record "+string(actionType))
}

func (l *Ledger) GetAction(ctx context.Context, actionType ActionType, guildID, targetID string) (Record, bool, error) {
	row, found, err := l.backend.GetModerationAction(ctx, string(actionType), guildID, targetID)
	if err != nil {
		return Record{}, false, errors.WithMessage(err, "get "+string(actionType))
	}
	if !found {
		return Record{}, false, nil
	}

	var data ActionData
	if err := json.Unmarshal([]byte(row.Data), &data); err != nil {
		return Record{}, false, errors.WithMessage(err, "decode action data")
	}
	data.IgnoreLog = row.IgnoreLog
	return Record{
		Type:      ActionType(row.ActionType),
		GuildID:   row.GuildID,
		TargetID:  row.TargetID,
		Data:      data,
		CreatedAt: row.CreatedAt,
	}, true, nil
}

func (l *Ledger) RemoveAction(ctx context.Context, actionType ActionType, guildID, targetID string) error {
	err := l.backend.DeleteModerationAction(ctx, string(actionType), guildID, targetID)
	return errors.WithMessage(err, "remove "+string(actionType))
}

// ShouldIgnoreAction reports the ignore flag of the open record; found is false when there is none.
func (l *Ledger) ShouldIgnoreAction(ctx context.Context, actionType ActionType, guildID, targetID string) (ignore bool, found bool, err error) {
	row, found, err := l.backend.GetModerationAction(ctx, string(actionType), guildID, targetID)
	if err != nil {
		return false, false, errors.WithMessage(err, "get "+string(actionType))
	}
	return row.IgnoreLog, found, nil
}
