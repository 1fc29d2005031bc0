package storage

import (
	"context"
	"time"
)

// GetGuildConfig returns the raw document stored for guildID and domain.
func (s *Store) GetGuildConfig(ctx context.Context, guildID, domain string) (string, bool, error) {
	var document string
	found, err := s.get(ctx, &document, `
		SELECT document FROM guild_configs WHERE guild_id = ? AND domain = ?
	`, guildID, domain)
	if err != nil || !found {
		return "", false, err
	}
	return document, true, nil
}

// InsertGuildConfig stores a new document. It fails on the primary key when one already exists.
func (s *Store) InsertGuildConfig(ctx context.Context, guildID, domain, document string) error {
	_, err := s.exec(ctx, `
		INSERT INTO guild_configs (guild_id, domain, document, created_at)
		VALUES (?, ?, ?, ?)
	`, guildID, domain, document, time.Now().Unix())
	return err
}

func (s *Store) DeleteGuildConfig(ctx context.Context, guildID, domain string) error {
	_, err := s.exec(ctx, `DELETE FROM guild_configs WHERE guild_id = ? AND domain = ?`, guildID, domain)
	return err
}
