package bot

import (
	"context"
	"testing"
	"time"

	"lilyguard/internal/configstore"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigRequiresManageGuild(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", 0, sub("utility")))

	assert.Equal(t, "You do not have permission to do that.", responseText(platform.lastResponse()))
	exists, err := b.configs.Exists(context.Background(), testGuild, configstore.DomainUtility)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestConfigRejectsDirectMessages(t *testing.T) {
	b, platform := newTestBot(t)
	interaction := commandInteraction("config", discordgo.PermissionManageGuild, sub("utility"))
	interaction.GuildID = ""
	interaction.Member = nil
	interaction.User = &discordgo.User{ID: testModerator}

	b.dispatchInteraction(context.Background(), interaction)
	assert.Equal(t, "This command can only be used in a server.", responseText(platform.lastResponse()))
}

func TestConfigLoggingRequiresMemberChannel(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", discordgo.PermissionManageGuild,
		sub("logging",
			boolOpt("enable_delete_logs", false),
			boolOpt("enable_edit_logs", false),
			boolOpt("enable_member_logs", true),
			boolOpt("enable_public_member_logs", false),
		)))

	assert.Equal(t, "Member logs are enabled but no member log channel was given.", responseText(platform.lastResponse()))
	_, found, err := b.configs.Logging(context.Background(), testGuild)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConfigLoggingRejectsUnpostableChannel(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", discordgo.PermissionManageGuild,
		sub("logging",
			boolOpt("enable_delete_logs", true),
			boolOpt("enable_edit_logs", false),
			boolOpt("enable_member_logs", false),
			boolOpt("enable_public_member_logs", false),
			idOpt("message_logs", discordgo.ApplicationCommandOptionChannel, "channel-locked"),
		)))

	assert.Equal(t, "I cannot send messages in <#channel-locked>.", responseText(platform.lastResponse()))
	_, found, err := b.configs.Logging(context.Background(), testGuild)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestConfigLoggingSaves(t *testing.T) {
	b, platform := newTestBot(t)
	interaction := commandInteraction("config", discordgo.PermissionManageGuild,
		sub("logging",
			boolOpt("enable_delete_logs", true),
			boolOpt("enable_edit_logs", true),
			boolOpt("enable_member_logs", false),
			boolOpt("enable_public_member_logs", false),
			idOpt("message_logs", discordgo.ApplicationCommandOptionChannel, testLogs),
		))
	b.dispatchInteraction(context.Background(), interaction)

	resp := platform.lastResponse()
	require.NotNil(t, resp)
	assert.Equal(t, "Configuration saved: logging", responseText(resp))
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)

	cfg, found, err := b.configs.Logging(context.Background(), testGuild)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, testLogs, cfg.MessageChannelID)
	assert.True(t, cfg.EnableMessageDeleteLogs)
	assert.Nil(t, cfg.PublicMemberLogData)

	// No utility log is configured, so the user is nudged to add one.
	require.Len(t, platform.followups, 1)
	assert.Contains(t, platform.followups[0].Content, "utility log channel")

	b.dispatchInteraction(context.Background(), interaction)
	assert.Equal(t, "A logging configuration already exists. Clear it first.", responseText(platform.lastResponse()))
}

func TestConfigUtilityPostsToItsOwnLog(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", discordgo.PermissionManageGuild,
		sub("utility", idOpt("utility_log", discordgo.ApplicationCommandOptionChannel, testLogs))))

	sent := platform.messagesIn(testLogs)
	require.Len(t, sent, 1)
	assert.Equal(t, "Configuration updated: utility", sent[0].Embeds[0].Title)
	assert.Empty(t, platform.followups)
}

func TestConfigModerationRequiresRoleAndChannel(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", discordgo.PermissionManageGuild,
		sub("moderation", boolOpt("enabled", true), idOpt("action_log_channel", discordgo.ApplicationCommandOptionChannel, testLogs))))

	assert.Equal(t, "A moderator role and an action log channel are required.", responseText(platform.lastResponse()))
}

func TestConfigModerationDisabledNeedsNothing(t *testing.T) {
	b, _ := newTestBot(t)
	b.dispatchInteraction(context.Background(), commandInteraction("config", discordgo.PermissionManageGuild,
		sub("moderation", boolOpt("enabled", false))))

	cfg, found, err := b.configs.Moderation(context.Background(), testGuild)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, cfg.Enabled)
}

func TestConfigModerationChecksRolePing(t *testing.T) {
	b, platform := newTestBot(t)
	interaction := commandInteraction("config", discordgo.PermissionManageGuild,
		sub("moderation",
			boolOpt("enabled", true),
			idOpt("moderator_role", discordgo.ApplicationCommandOptionRole, "role-mods"),
			idOpt("action_log_channel", discordgo.ApplicationCommandOptionChannel, testLogs),
			stringOpt("quick_timeout_length", "1h30m"),
		))
	interaction.Data = discordgo.ApplicationCommandInteractionData{
		Name:    "config",
		Options: interaction.ApplicationCommandData().Options,
		Resolved: &discordgo.ApplicationCommandInteractionDataResolved{
			Roles: map[string]*discordgo.Role{"role-mods": {ID: "role-mods", Name: "Mods"}},
		},
	}
	b.dispatchInteraction(context.Background(), interaction)
	assert.Equal(t, "I cannot mention <@&role-mods> in that channel.", responseText(platform.lastResponse()))

	platform.channelPerm[testLogs] |= discordgo.PermissionMentionEveryone
	b.dispatchInteraction(context.Background(), interaction)
	cfg, found, err := b.configs.Moderation(context.Background(), testGuild)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 90*time.Minute, cfg.QuickTimeoutLength)
	assert.Equal(t, "role-mods", cfg.RoleID)
}

func publicLoggingInteraction() *discordgo.Interaction {
	return commandInteraction("config", discordgo.PermissionManageGuild,
		sub("logging",
			boolOpt("enable_delete_logs", false),
			boolOpt("enable_edit_logs", false),
			boolOpt("enable_member_logs", false),
			boolOpt("enable_public_member_logs", true),
			idOpt("public_member_log", discordgo.ApplicationCommandOptionChannel, testChannel),
		))
}

func TestConfigLoggingPublicMessagesFromModal(t *testing.T) {
	b, platform := newTestBot(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.dispatchInteraction(context.Background(), publicLoggingInteraction())
	}()

	var shown *discordgo.InteractionResponse
	select {
	case shown = <-platform.responded:
	case <-time.After(time.Second):
		t.Fatal("modal was never shown")
	}
	require.Equal(t, discordgo.InteractionResponseModal, shown.Type)

	b.dispatchInteraction(context.Background(), &discordgo.Interaction{
		ID:      "modal-submit",
		Type:    discordgo.InteractionModalSubmit,
		GuildID: testGuild,
		Member:  &discordgo.Member{User: &discordgo.User{ID: testModerator}},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: shown.Data.CustomID,
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: modalFieldPing, Value: "no"}}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: modalFieldJoin, Value: " Hello! "}}},
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{&discordgo.TextInput{CustomID: modalFieldLeave, Value: "Bye"}}},
			},
		},
	})
	<-done

	cfg, found, err := b.configs.Logging(context.Background(), testGuild)
	require.NoError(t, err)
	require.True(t, found)
	require.NotNil(t, cfg.PublicMemberLogData)
	assert.False(t, cfg.PublicMemberLogData.PingNewUsers)
	assert.Equal(t, "Hello!", cfg.PublicMemberLogData.JoinMessage)
	assert.Equal(t, "Bye", cfg.PublicMemberLogData.LeaveMessage)
	assert.Equal(t, 0, b.modals.Pending())
}

func TestConfigLoggingModalTimeoutSavesNothing(t *testing.T) {
	b, platform := newTestBot(t)
	b.cfg.Interactions.ModalTimeout = 20 * time.Millisecond

	b.dispatchInteraction(context.Background(), publicLoggingInteraction())

	require.Len(t, platform.responses, 1)
	assert.Equal(t, discordgo.InteractionResponseModal, platform.responses[0].Type)
	_, found, err := b.configs.Logging(context.Background(), testGuild)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, b.modals.Pending())
}

func TestLateModalSubmissionIsAnswered(t *testing.T) {
	b, platform := newTestBot(t)
	b.dispatchInteraction(context.Background(), &discordgo.Interaction{
		ID:      "late",
		Type:    discordgo.InteractionModalSubmit,
		GuildID: testGuild,
		Data:    discordgo.ModalSubmitInteractionData{CustomID: "logging:gone"},
	})
	assert.Equal(t, "This form has expired. Run the command again.", responseText(platform.lastResponse()))
}

func TestConfigClear(t *testing.T) {
	b, platform := newTestBot(t)
	ctx := context.Background()
	require.NoError(t, b.configs.Set(ctx, testGuild, configstore.UtilityConfig{UtilityLogChannelID: testLogs}))

	b.dispatchInteraction(ctx, commandInteraction("config", discordgo.PermissionManageGuild, sub("clear", stringOpt("config_type", "logging"))))
	assert.Equal(t, "There is no logging configuration for this server.", responseText(platform.lastResponse()))

	b.dispatchInteraction(ctx, commandInteraction("config", discordgo.PermissionManageGuild, sub("clear", stringOpt("config_type", "utility"))))
	assert.Equal(t, "Cleared the utility configuration.", responseText(platform.lastResponse()))
	exists, err := b.configs.Exists(ctx, testGuild, configstore.DomainUtility)
	require.NoError(t, err)
	assert.False(t, exists)
	// The clear notice goes out while the utility log is still configured.
	require.Len(t, platform.messagesIn(testLogs), 1)
}

func TestParseYes(t *testing.T) {
	assert.True(t, parseYes(" Yes"))
	assert.True(t, parseYes("oui"))
	assert.False(t, parseYes(""))
	assert.False(t, parseYes("nope"))
}
