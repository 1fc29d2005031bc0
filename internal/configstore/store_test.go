package configstore

import (
	"context"
	"testing"
	"time"

	"lilyguard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*Store, *storage.Store) {
	t.Helper()
	db, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate())
	return New(db, time.Minute, zap.NewNop()), db
}

func TestSetAfterSetIsRejected(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, cfg := range []GuildConfig{
		ModerationConfig{Enabled: true, ChannelID: "c1", RoleID: "r1"},
		LoggingConfig{EnableMemberLogs: true, MemberLogChannelID: "c2"},
		UtilityConfig{UtilityLogChannelID: "c3"},
	} {
		require.NoError(t, store.Set(ctx, "g1", cfg))
		err := store.Set(ctx, "g1", cfg)
		assert.ErrorIs(t, err, ErrConfigExists, "domain %s", cfg.Domain())
	}

	require.NoError(t, store.Clear(ctx, "g1", DomainUtility))
	assert.NoError(t, store.Set(ctx, "g1", UtilityConfig{UtilityLogChannelID: "c4"}))

	utility, found, err := store.Utility(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "c4", utility.UtilityLogChannelID)
}

func TestClearIsIdempotent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx, "g1", DomainLogging))
	require.NoError(t, store.Clear(ctx, "g1", DomainLogging))
	require.NoError(t, store.ClearAll(ctx, "g1"))

	_, found, err := store.Logging(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDisabledIsNotAbsent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, found, err := store.Moderation(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "g1", ModerationConfig{Enabled: false}))
	cfg, found, err := store.Moderation(ctx, "g1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, cfg.Enabled)
}

func TestCacheInvalidatedOnClear(t *testing.T) {
	store, db := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "g1", UtilityConfig{UtilityLogChannelID: "c1"}))
	_, found, err := store.Utility(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)

	// Reads are served from the cache until the store itself invalidates.
	require.NoError(t, db.DeleteGuildConfig(ctx, "g1", string(DomainUtility)))
	_, found, _ = store.Utility(ctx, "g1")
	assert.True(t, found)

	require.NoError(t, store.Clear(ctx, "g1", DomainUtility))
	_, found, _ = store.Utility(ctx, "g1")
	assert.False(t, found)
}

// readDuringDelete reads the document from the store right before the row is removed.
type readDuringDelete struct {
	*storage.Store
	read func()
}

func (r *readDuringDelete) DeleteGuildConfig(ctx context.Context, guildID, domain string) error {
	r.read()
	return r.Store.DeleteGuildConfig(ctx, guildID, domain)
}

func TestClearDropsDocumentCachedDuringDelete(t *testing.T) {
	_, db := newTestStore(t)
	ctx := context.Background()

	backend := &readDuringDelete{Store: db}
	store := New(backend, time.Minute, zap.NewNop())
	backend.read = func() {
		_, found, err := store.Utility(ctx, "g1")
		require.NoError(t, err)
		require.True(t, found)
	}

	require.NoError(t, store.Set(ctx, "g1", UtilityConfig{UtilityLogChannelID: "c1"}))
	require.NoError(t, store.Clear(ctx, "g1", DomainUtility))

	_, found, err := store.Utility(ctx, "g1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoggingRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	want := LoggingConfig{
		EnablePublicMemberLogs:   true,
		PublicMemberLogChannelID: "c9",
		PublicMemberLogData:      &PublicMemberLogData{PingNewUsers: true, JoinMessage: "hi", LeaveMessage: "bye"},
	}
	require.NoError(t, store.Set(ctx, "g1", want))

	got, found, err := store.Logging(ctx, "g1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)
}

func TestParseDomain(t *testing.T) {
	domain, ok := ParseDomain(" Logging ")
	assert.True(t, ok)
	assert.Equal(t, DomainLogging, domain)

	_, ok = ParseDomain("all")
	assert.False(t, ok)
}
