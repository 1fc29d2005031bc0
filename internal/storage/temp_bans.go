package storage

import (
	"context"
	"time"
)

type TempBan struct {
	GuildID     string
	UserID      string
	ModeratorID string
	Reason      string
	BannedAt    time.Time
	ExpiresAt   time.Time
}

type tempBanRow struct {
	GuildID     string `db:"guild_id"`
	UserID      string `db:"user_id"`
	ModeratorID string `db:"moderator_id"`
	Reason      string `db:"reason"`
	BannedAt    int64  `db:"banned_at"`
	ExpiresAt   int64  `db:"expires_at"`
}

func (r tempBanRow) toTempBan() TempBan {
	return TempBan{
		GuildID:     r.GuildID,
		UserID:      r.UserID,
		ModeratorID: r.ModeratorID,
		Reason:      r.Reason,
		BannedAt:    time.Unix(r.BannedAt, 0),
		ExpiresAt:   time.Unix(r.ExpiresAt, 0),
	}
}

func (s *Store) UpsertTempBan(ctx context.Context, ban TempBan) error {
	_, err := s.exec(ctx, `
		INSERT INTO temp_bans (guild_id, user_id, moderator_id, reason, banned_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, user_id) DO UPDATE SET
			moderator_id = excluded.moderator_id,
			reason = excluded.reason,
			banned_at = excluded.banned_at,
			expires_at = excluded.expires_at
	`, ban.GuildID, ban.UserID, ban.ModeratorID, ban.Reason, ban.BannedAt.Unix(), ban.ExpiresAt.Unix())
	return err
}

func (s *Store) GetTempBan(ctx context.Context, guildID, userID string) (TempBan, bool, error) {
	var row tempBanRow
	found, err := s.get(ctx, &row, `
		SELECT guild_id, user_id, moderator_id, reason, banned_at, expires_at
		FROM temp_bans WHERE guild_id = ? AND user_id = ?
	`, guildID, userID)
	if err != nil || !found {
		return TempBan{}, false, err
	}
	return row.toTempBan(), true, nil
}

// ListExpiredTempBans returns bans whose expiry is at or before now, oldest first.
func (s *Store) ListExpiredTempBans(ctx context.Context, now time.Time) ([]TempBan, error) {
	var rows []tempBanRow
	err := s.selectAll(ctx, &rows, `
		SELECT guild_id, user_id, moderator_id, reason, banned_at, expires_at
		FROM temp_bans WHERE expires_at <= ?
		ORDER BY expires_at
	`, now.Unix())
	if err != nil {
		return nil, err
	}
	bans := make([]TempBan, 0, len(rows))
	for _, row := range rows {
		bans = append(bans, row.toTempBan())
	}
	return bans, nil
}

func (s *Store) DeleteTempBan(ctx context.Context, guildID, userID string) error {
	_, err := s.exec(ctx, `DELETE FROM temp_bans WHERE guild_id = ? AND user_id = ?`, guildID, userID)
	return err
}
