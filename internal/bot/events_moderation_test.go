package bot

import (
	"context"
	"testing"
	"time"

	"lilyguard/internal/ledger"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targetUser() *discordgo.User {
	return &discordgo.User{ID: testTarget, Username: "target"}
}

func fieldValue(embed *discordgo.MessageEmbed, name string) string {
	for _, f := range embed.Fields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

func TestBanConfirmationMatchesRecord(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	days := 0
	sent := true
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionSoftBan, testGuild, testTarget, ledger.ActionData{
		ActionerID:         testModerator,
		Reason:             "spam",
		DeletedMessageDays: &days,
		DMSent:             &sent,
		ImageURL:           "https://example.com/proof.png",
	}))

	b.handleBanAdd(ctx, testGuild, targetUser())

	logs := platform.messagesIn(testLogs)
	require.Len(t, logs, 1)
	embed := logs[0].Embeds[0]
	assert.Equal(t, "Soft-banned a user", embed.Title)
	assert.Equal(t, "spam", fieldValue(embed, "Reason"))
	assert.Equal(t, "3", fieldValue(embed, "Days of messages deleted"))
	assert.Equal(t, "Sent", fieldValue(embed, "Direct message"))
	assert.Equal(t, "Moderator: "+testModerator, embed.Footer.Text)
	require.NotNil(t, embed.Image)

	_, found, err := b.ledger.GetAction(ctx, ledger.ActionSoftBan, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found, "matched record is consumed")
}

func TestBanConfirmationQuickBanReasonIsDescription(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionBan, testGuild, testTarget, ledger.ActionData{
		ActionerID: testModerator,
		Reason:     "Quick ban from message",
	}))

	b.handleBanAdd(ctx, testGuild, targetUser())

	logs := platform.messagesIn(testLogs)
	require.Len(t, logs, 1)
	assert.Equal(t, "Quick ban from message", logs[0].Embeds[0].Description)
	assert.Equal(t, "Failed to send", fieldValue(logs[0].Embeds[0], "Direct message"))
}

func TestExternalBanUsesGuildReason(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	platform.bans[testTarget] = &discordgo.GuildBan{Reason: "raid", User: targetUser()}

	b.handleBanAdd(context.Background(), testGuild, targetUser())

	logs := platform.messagesIn(testLogs)
	require.Len(t, logs, 1)
	assert.Equal(t, "User banned", logs[0].Embeds[0].Title)
	assert.Equal(t, "raid", fieldValue(logs[0].Embeds[0], "Reason"))
}

func TestBanMismatchPostsNothingAndKeepsRecord(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionBan, testGuild, testTarget, ledger.ActionData{
		TargetUserID: "someone-else",
		ActionerID:   testModerator,
	}))

	b.handleBanAdd(ctx, testGuild, targetUser())

	assert.Empty(t, platform.messagesIn(testLogs))
	_, found, err := b.ledger.GetAction(ctx, ledger.ActionBan, testGuild, testTarget)
	require.NoError(t, err)
	assert.True(t, found)

	entries, err := b.store.ListAuditLogs(ctx, testGuild, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, entries)
}

func TestIgnoredUnbanIsConsumedSilently(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionUnban, testGuild, testTarget, ledger.ActionData{
		ActionerID: testModerator,
		IgnoreLog:  true,
	}))

	b.handleBanRemove(ctx, testGuild, targetUser())

	assert.Empty(t, platform.messagesIn(testLogs))
	_, found, err := b.ledger.GetAction(ctx, ledger.ActionUnban, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExternalUnbanPostsNothing(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	b.handleBanRemove(context.Background(), testGuild, targetUser())
	assert.Empty(t, platform.messagesIn(testLogs))
}

func TestTimedUnbanIsTempBanRemoval(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()
	start := time.Now().Add(-time.Hour)
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionUnban, testGuild, testTarget, ledger.ActionData{
		ActionerID: testModerator,
		Time:       &ledger.TimeData{Duration: time.Hour, Start: start, End: start.Add(time.Hour)},
	}))

	b.handleBanRemove(ctx, testGuild, targetUser())

	logs := platform.messagesIn(testLogs)
	require.Len(t, logs, 1)
	assert.Equal(t, "Temporary ban removed", logs[0].Embeds[0].Title)
	assert.Equal(t, "No reason provided", fieldValue(logs[0].Embeds[0], "Reason"))
}

func TestBanLogSkippedWhenModerationDisabled(t *testing.T) {
	b, platform := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.ledger.RecordAction(ctx, ledger.ActionBan, testGuild, testTarget, ledger.ActionData{ActionerID: testModerator}))

	b.handleBanAdd(ctx, testGuild, targetUser())

	assert.Empty(t, platform.messagesIn(testLogs))
	_, found, err := b.ledger.GetAction(ctx, ledger.ActionBan, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found)
}
