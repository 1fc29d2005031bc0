package bot

import (
	"context"
	"testing"
	"time"

	"lilyguard/internal/configstore"
	"lilyguard/internal/ledger"
	"lilyguard/internal/storage"

	"emperror.dev/errors"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func banInteraction(name string, opts ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.Interaction {
	return commandInteraction(name, discordgo.PermissionBanMembers, opts...)
}

func userOpt(id string) *discordgo.ApplicationCommandInteractionDataOption {
	return idOpt("user", discordgo.ApplicationCommandOptionUser, id)
}

func TestBanRecordsBeforeBanning(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("ban", userOpt(testTarget), stringOpt("reason", "spam"), intOpt("delete_message_days", 12)))

	assert.Equal(t, "Banned <@"+testTarget+">.", responseText(platform.lastResponse()))
	assert.Equal(t, []string{testTarget}, platform.banned)
	require.Len(t, platform.dms, 1)
	assert.Contains(t, platform.dms[0], "Reason: spam")

	record, found, err := b.ledger.GetAction(ctx, ledger.ActionBan, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testModerator, record.Data.ActionerID)
	require.NotNil(t, record.Data.DeletedMessageDays)
	assert.Equal(t, maxDeleteMessageDays, *record.Data.DeletedMessageDays)
	require.NotNil(t, record.Data.DMSent)
	assert.True(t, *record.Data.DMSent)
}

func TestBanAppendsConfiguredDMText(t *testing.T) {
	b, platform := newTestBot(t)
	require.NoError(t, b.configs.Set(context.Background(), testGuild, configstore.ModerationConfig{
		Enabled:      true,
		ChannelID:    testLogs,
		RoleID:       "role-mods",
		BanDMMessage: "Appeal at example.com",
	}))

	b.dispatchInteraction(context.Background(), banInteraction("ban", userOpt(testTarget)))

	require.Len(t, platform.dms, 1)
	assert.Contains(t, platform.dms[0], "No reason provided")
	assert.Contains(t, platform.dms[0], "Appeal at example.com")
}

func TestBanWithDMDisabled(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)

	b.dispatchInteraction(context.Background(), banInteraction("ban", userOpt(testTarget), boolOpt("dm", false)))

	assert.Empty(t, platform.dms)
	record, found, err := b.ledger.GetAction(context.Background(), ledger.ActionBan, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, record.Data.DMSent)
}

func TestBanFailureDropsRecord(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	platform.banErr = errors.New("missing permissions")

	b.dispatchInteraction(context.Background(), banInteraction("ban", userOpt(testTarget)))

	assert.Equal(t, "Failed to apply the action to <@"+testTarget+">.", responseText(platform.lastResponse()))
	_, found, err := b.ledger.GetAction(context.Background(), ledger.ActionBan, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestBanGuards(t *testing.T) {
	b, platform := newTestBot(t)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("ban", userOpt(testTarget)))
	assert.Equal(t, "Moderation is not configured or is disabled for this server.", responseText(platform.lastResponse()))

	setModeration(t, b)
	b.dispatchInteraction(ctx, banInteraction("ban", userOpt(testModerator)))
	assert.Equal(t, "You cannot use this on yourself.", responseText(platform.lastResponse()))

	b.dispatchInteraction(ctx, banInteraction("ban", userOpt(testSelf)))
	assert.Equal(t, "I cannot do that to myself.", responseText(platform.lastResponse()))

	b.dispatchInteraction(ctx, commandInteraction("ban", 0, userOpt(testTarget)))
	assert.Equal(t, "You do not have permission to do that.", responseText(platform.lastResponse()))

	assert.Empty(t, platform.banned)
}

func TestSoftBanLeavesIgnoredUnban(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("soft-ban", userOpt(testTarget)))

	assert.Equal(t, []string{testTarget}, platform.banned)
	assert.Equal(t, []string{testTarget}, platform.unbanned)
	ignore, found, err := b.ledger.ShouldIgnoreAction(ctx, ledger.ActionUnban, testGuild, testTarget)
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, ignore)

	record, found, err := b.ledger.GetAction(ctx, ledger.ActionSoftBan, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, softBanDefaultDays, *record.Data.DeletedMessageDays)
}

func TestUnbanRequiresExistingBan(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("unban", userOpt(testTarget)))
	assert.Equal(t, "<@"+testTarget+"> is not banned.", responseText(platform.lastResponse()))

	platform.bans[testTarget] = &discordgo.GuildBan{User: targetUser()}
	b.dispatchInteraction(ctx, banInteraction("unban", userOpt(testTarget), stringOpt("reason", "appeal")))
	assert.Equal(t, "Unbanned <@"+testTarget+">.", responseText(platform.lastResponse()))

	record, found, err := b.ledger.GetAction(ctx, ledger.ActionUnban, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "appeal", record.Data.Reason)
}

func TestTempBanAddSchedulesExpiry(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("temp-ban", sub("add", stringOpt("duration", "3d"), userOpt(testTarget))))

	assert.Contains(t, responseText(platform.lastResponse()), "Temporarily banned <@"+testTarget+"> until <t:")
	ban, found, err := b.store.GetTempBan(ctx, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 72*time.Hour, ban.ExpiresAt.Sub(ban.BannedAt))

	record, found, err := b.ledger.GetAction(ctx, ledger.ActionTempBan, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, record.Data.Time)
	assert.Equal(t, 72*time.Hour, record.Data.Time.Duration)
}

func TestTempBanAddRejectsBadDuration(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)

	b.dispatchInteraction(context.Background(), banInteraction("temp-ban", sub("add", stringOpt("duration", "soon"), userOpt(testTarget))))

	assert.Equal(t, `"soon" is not a valid duration.`, responseText(platform.lastResponse()))
	assert.Empty(t, platform.banned)
}

func TestTempBanRemove(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()

	b.dispatchInteraction(ctx, banInteraction("temp-ban", sub("remove", userOpt(testTarget))))
	assert.Equal(t, "<@"+testTarget+"> has no temporary ban.", responseText(platform.lastResponse()))

	require.NoError(t, b.store.UpsertTempBan(ctx, storage.TempBan{
		GuildID:   testGuild,
		UserID:    testTarget,
		BannedAt:  b.now().Add(-time.Hour),
		ExpiresAt: b.now().Add(time.Hour),
	}))
	platform.bans[testTarget] = &discordgo.GuildBan{User: targetUser()}

	b.dispatchInteraction(ctx, banInteraction("temp-ban", sub("remove", userOpt(testTarget))))
	assert.Equal(t, "Lifted the temporary ban on <@"+testTarget+">.", responseText(platform.lastResponse()))

	_, found, err := b.store.GetTempBan(ctx, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found)
	record, found, err := b.ledger.GetAction(ctx, ledger.ActionUnban, testGuild, testTarget)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, record.Data.Time)
	assert.Equal(t, time.Hour, record.Data.Time.Duration)
}

func TestTempBanRemoveWhenAlreadyUnbanned(t *testing.T) {
	b, platform := newTestBot(t)
	setModeration(t, b)
	ctx := context.Background()
	require.NoError(t, b.store.UpsertTempBan(ctx, storage.TempBan{
		GuildID:   testGuild,
		UserID:    testTarget,
		BannedAt:  b.now().Add(-time.Hour),
		ExpiresAt: b.now().Add(time.Hour),
	}))

	b.dispatchInteraction(ctx, banInteraction("temp-ban", sub("remove", userOpt(testTarget))))

	assert.Equal(t, "Lifted the temporary ban on <@"+testTarget+">.", responseText(platform.lastResponse()))
	_, found, err := b.ledger.GetAction(ctx, ledger.ActionUnban, testGuild, testTarget)
	require.NoError(t, err)
	assert.False(t, found, "no confirmation will arrive for a user who was not banned")
}
