package scheduler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"lilyguard/internal/config"
	"lilyguard/internal/ledger"
	"lilyguard/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct{ now time.Time }

func (f fakeClock) Now() time.Time { return f.now }

type fakeUnbanner struct {
	unbanned []string
	err      error
}

func (f *fakeUnbanner) GuildBanDelete(guildID, userID string, _ ...discordgo.RequestOption) error {
	if f.err != nil {
		return f.err
	}
	f.unbanned = append(f.unbanned, guildID+":"+userID)
	return nil
}

type recordingNotifier struct{ bans []storage.TempBan }

func (r *recordingNotifier) TempBanExpired(_ context.Context, ban storage.TempBan) {
	r.bans = append(r.bans, ban)
}

func newTestScheduler(t *testing.T, unbanner Unbanner, now time.Time) (*Scheduler, *storage.Store, *ledger.Ledger, *recordingNotifier) {
	t.Helper()
	store, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Migrate())

	l := ledger.New(store, zap.NewNop())
	notifier := &recordingNotifier{}
	s := New(config.SchedulerConfig{TempBanSweep: "@every 1m", AuditPrune: "@daily", Location: "UTC"}, 30, store, l, unbanner, notifier, zap.NewNop())
	s.clock = fakeClock{now: now}
	return s, store, l, notifier
}

func TestSweepLiftsExpiredBans(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	unbanner := &fakeUnbanner{}
	s, store, l, notifier := newTestScheduler(t, unbanner, now)
	ctx := context.Background()

	require.NoError(t, store.UpsertTempBan(ctx, storage.TempBan{GuildID: "g1", UserID: "u1", ModeratorID: "m1", BannedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.UpsertTempBan(ctx, storage.TempBan{GuildID: "g1", UserID: "u2", ModeratorID: "m1", BannedAt: now, ExpiresAt: now.Add(time.Hour)}))

	assert.Equal(t, 1, s.SweepTempBans(ctx))
	assert.Equal(t, []string{"g1:u1"}, unbanner.unbanned)
	require.Len(t, notifier.bans, 1)
	assert.Equal(t, "u1", notifier.bans[0].UserID)

	_, found, err := store.GetTempBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = store.GetTempBan(ctx, "g1", "u2")
	require.NoError(t, err)
	assert.True(t, found)

	ignore, found, err := l.ShouldIgnoreAction(ctx, ledger.ActionUnban, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ignore, "the gateway unban confirmation must stay silent")
}

func TestSweepHandlesManualUnban(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	unbanner := &fakeUnbanner{err: &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}}
	s, store, l, notifier := newTestScheduler(t, unbanner, now)
	ctx := context.Background()

	require.NoError(t, store.UpsertTempBan(ctx, storage.TempBan{GuildID: "g1", UserID: "u1", BannedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Second)}))

	assert.Equal(t, 1, s.SweepTempBans(ctx))
	assert.Empty(t, notifier.bans)

	_, found, err := l.GetAction(ctx, ledger.ActionUnban, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = store.GetTempBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSweepKeepsBanOnFailure(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	unbanner := &fakeUnbanner{err: &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}}
	s, store, _, _ := newTestScheduler(t, unbanner, now)
	ctx := context.Background()

	require.NoError(t, store.UpsertTempBan(ctx, storage.TempBan{GuildID: "g1", UserID: "u1", BannedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Second)}))

	assert.Equal(t, 0, s.SweepTempBans(ctx))
	_, found, err := store.GetTempBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, found, "retried on the next sweep")
}

func TestStartStop(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, &fakeUnbanner{}, time.Now())
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s, _, _, _ := newTestScheduler(t, &fakeUnbanner{}, time.Now())
	s.cfg.TempBanSweep = "not a schedule"
	assert.Error(t, s.Start(context.Background()))
}
