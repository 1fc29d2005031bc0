package storage

import (
	"context"
	"time"
)

// ModerationAction is one open ledger row. Data holds the JSON payload.
type ModerationAction struct {
	ActionType string
	GuildID    string
	TargetID   string
	Data       string
	IgnoreLog  bool
	CreatedAt  time.Time
}

type moderationActionRow struct {
	ActionType string `db:"action_type"`
	GuildID    string `db:"guild_id"`
	TargetID   string `db:"target_id"`
	Data       string `db:"data"`
	IgnoreLog  int    `db:"ignore_log"`
	CreatedAt  int64  `db:"created_at"`
}

func (s *Store) UpsertModerationAction(ctx context.Context, action ModerationAction) error {
	created := action.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.exec(ctx, `
		INSERT INTO moderation_actions (action_type, guild_id, target_id, data, ignore_log, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(action_type, guild_id, target_id) DO UPDATE SET
			data = excluded.data,
			ignore_log = excluded.ignore_log,
			created_at = excluded.created_at
	`, action.ActionType, action.GuildID, action.TargetID, action.Data, boolToInt(action.IgnoreLog), created.Unix())
	return err
}

func (s *Store) GetModerationAction(ctx context.Context, actionType, guildID, targetID string) (ModerationAction, bool, error) {
	var row moderationActionRow
	found, err := s.get(ctx, &row, `
		SELECT action_type, guild_id, target_id, data, ignore_log, created_at
		FROM moderation_actions
		WHERE action_type = ? AND guild_id = ? AND target_id = ?
	`, actionType, guildID, targetID)
	if err != nil || !found {
		return ModerationAction{}, false, err
	}
	return ModerationAction{
		ActionType: row.ActionType,
		GuildID:    row.GuildID,
		TargetID:   row.TargetID,
		Data:       row.Data,
		IgnoreLog:  row.IgnoreLog == 1,
		CreatedAt:  time.Unix(row.CreatedAt, 0),
	}, true, nil
}

func (s *Store) DeleteModerationAction(ctx context.Context, actionType, guildID, targetID string) error {
	_, err := s.exec(ctx, `
		DELETE FROM moderation_actions WHERE action_type = ? AND guild_id = ? AND target_id = ?
	`, actionType, guildID, targetID)
	return err
}
