package storage

import "context"

type AutoThread struct {
	ChannelID          string `db:"channel_id"`
	GuildID            string `db:"guild_id"`
	RoleID             string `db:"role_id"`
	PreventDuplicates  bool   `db:"prevent_duplicates"`
	Archive            bool   `db:"archive"`
	ContentAwareNaming bool   `db:"content_aware_naming"`
	Mention            bool   `db:"mention"`
	AddModsAndRole     bool   `db:"add_mods_and_role"`
	CreationMessage    string `db:"creation_message"`
}

type ThreadOwner struct {
	ThreadID string `db:"thread_id"`
	GuildID  string `db:"guild_id"`
	OwnerID  string `db:"owner_id"`
	ParentID string `db:"parent_id"`
}

const autoThreadColumns = `channel_id, guild_id, role_id, prevent_duplicates, archive,
	content_aware_naming, mention, add_mods_and_role, creation_message`

func (s *Store) GetAutoThread(ctx context.Context, channelID string) (AutoThread, bool, error) {
	var cfg AutoThread
	found, err := s.get(ctx, &cfg, `SELECT `+autoThreadColumns+` FROM auto_threads WHERE channel_id = ?`, channelID)
	return cfg, found, err
}

func (s *Store) ListAutoThreads(ctx context.Context, guildID string) ([]AutoThread, error) {
	var configs []AutoThread
	err := s.selectAll(ctx, &configs, `
		SELECT `+autoThreadColumns+` FROM auto_threads WHERE guild_id = ? ORDER BY channel_id
	`, guildID)
	return configs, err
}

func (s *Store) InsertAutoThread(ctx context.Context, cfg AutoThread) error {
	_, err := s.exec(ctx, `
		INSERT INTO auto_threads (`+autoThreadColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		cfg.ChannelID,
		cfg.GuildID,
		cfg.RoleID,
		boolToInt(cfg.PreventDuplicates),
		boolToInt(cfg.Archive),
		boolToInt(cfg.ContentAwareNaming),
		boolToInt(cfg.Mention),
		boolToInt(cfg.AddModsAndRole),
		cfg.CreationMessage,
	)
	return err
}

func (s *Store) DeleteAutoThread(ctx context.Context, channelID string) error {
	_, err := s.exec(ctx, `DELETE FROM auto_threads WHERE channel_id = ?`, channelID)
	return err
}

func (s *Store) UpsertThreadOwner(ctx context.Context, owner ThreadOwner) error {
	_, err := s.exec(ctx, `
		INSERT INTO thread_owners (thread_id, guild_id, owner_id, parent_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			guild_id = excluded.guild_id,
			owner_id = excluded.owner_id,
			parent_id = excluded.parent_id
	`, owner.ThreadID, owner.GuildID, owner.OwnerID, owner.ParentID)
	return err
}

func (s *Store) GetThreadOwner(ctx context.Context, threadID string) (ThreadOwner, bool, error) {
	var owner ThreadOwner
	found, err := s.get(ctx, &owner, `
		SELECT thread_id, guild_id, owner_id, parent_id FROM thread_owners WHERE thread_id = ?
	`, threadID)
	return owner, found, err
}

func (s *Store) ListOwnedThreads(ctx context.Context, guildID, ownerID string) ([]ThreadOwner, error) {
	var owners []ThreadOwner
	err := s.selectAll(ctx, &owners, `
		SELECT thread_id, guild_id, owner_id, parent_id
		FROM thread_owners
		WHERE guild_id = ? AND owner_id = ?
		ORDER BY thread_id
	`, guildID, ownerID)
	return owners, err
}

func (s *Store) DeleteThreadOwner(ctx context.Context, threadID string) error {
	_, err := s.exec(ctx, `DELETE FROM thread_owners WHERE thread_id = ?`, threadID)
	return err
}
