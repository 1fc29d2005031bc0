package ledger

import (
	"context"
	"testing"
	"time"

	"lilyguard/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestLedger(t *testing.T) (*Ledger, *storage.Store, *observer.ObservedLogs) {
	t.Helper()
	db, err := storage.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate())
	core, logs := observer.New(zapcore.WarnLevel)
	return New(db, zap.New(core)), db, logs
}

func intPtr(v int) *int { return &v }

func TestRecordGetRemove(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	data := ActionData{
		ActionerID:         "mod",
		Reason:             "spam",
		ImageURL:           "https://example.com/proof.png",
		Time:               &TimeData{Duration: 48 * time.Hour, Start: start, End: start.Add(48 * time.Hour)},
		DeletedMessageDays: intPtr(1),
	}
	require.NoError(t, l.RecordAction(ctx, ActionTempBan, "g1", "u1", data))

	record, found, err := l.GetAction(ctx, ActionTempBan, "g1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	data.TargetUserID = "u1"
	assert.Equal(t, data, record.Data)
	assert.Equal(t, ActionTempBan, record.Type)

	require.NoError(t, l.RemoveAction(ctx, ActionTempBan, "g1", "u1"))
	_, found, err = l.GetAction(ctx, ActionTempBan, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRecordOverwritesSameKey(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAction(ctx, ActionWarn, "g1", "u1", ActionData{Reason: "first"}))
	require.NoError(t, l.RecordAction(ctx, ActionWarn, "g1", "u1", ActionData{Reason: "second"}))

	record, found, err := l.GetAction(ctx, ActionWarn, "g1", "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "second", record.Data.Reason)
}

func TestShouldIgnoreAction(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	_, found, err := l.ShouldIgnoreAction(ctx, ActionUnban, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, l.RecordAction(ctx, ActionUnban, "g1", "u1", ActionData{IgnoreLog: true}))
	ignore, found, err := l.ShouldIgnoreAction(ctx, ActionUnban, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ignore)
}

func TestReconcileBanPriority(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAction(ctx, ActionTempBan, "g1", "u1", ActionData{Reason: "temp"}))
	require.NoError(t, l.RecordAction(ctx, ActionSoftBan, "g1", "u1", ActionData{Reason: "soft"}))

	result, err := l.ReconcileBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, result.Outcome)
	assert.Equal(t, ActionSoftBan, result.Record.Type)

	require.NoError(t, l.RecordAction(ctx, ActionBan, "g1", "u1", ActionData{Reason: "ban"}))
	result, err = l.ReconcileBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, ActionBan, result.Record.Type)

	require.NoError(t, l.Consume(ctx, result.Record))
	result, err = l.ReconcileBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, ActionSoftBan, result.Record.Type)
}

func TestReconcileBanExternal(t *testing.T) {
	l, _, _ := newTestLedger(t)

	result, err := l.ReconcileBan(context.Background(), "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeExternal, result.Outcome)
}

func TestReconcileBanMismatchLeavesRecord(t *testing.T) {
	l, db, logs := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, db.UpsertModerationAction(ctx, storage.ModerationAction{
		ActionType: string(ActionBan),
		GuildID:    "g1",
		TargetID:   "u1",
		Data:       `{"target_user_id":"someone-else","actioner_id":"mod"}`,
	}))

	result, err := l.ReconcileBan(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMismatch, result.Outcome)
	assert.Equal(t, 1, logs.FilterMessage("moderation record target mismatch").Len())

	_, found, err := l.GetAction(ctx, ActionBan, "g1", "u1")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestReconcileUnban(t *testing.T) {
	l, _, _ := newTestLedger(t)
	ctx := context.Background()

	require.NoError(t, l.RecordAction(ctx, ActionUnban, "g1", "u1", ActionData{IgnoreLog: true}))
	result, err := l.ReconcileUnban(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, result.Outcome)

	_, found, err := l.GetAction(ctx, ActionUnban, "g1", "u1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, l.RecordAction(ctx, ActionUnban, "g1", "u1", ActionData{ActionerID: "mod", Reason: "appeal"}))
	result, err = l.ReconcileUnban(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeMatched, result.Outcome)
	assert.Equal(t, "appeal", result.Record.Data.Reason)
}
