package configstore

import (
	"strings"
	"time"
)

type Domain string

const (
	DomainModeration Domain = "moderation"
	DomainLogging    Domain = "logging"
	DomainUtility    Domain = "utility"
)

// Domains lists every domain in the order "clear all" and "view" walk them.
var Domains = []Domain{DomainModeration, DomainLogging, DomainUtility}

func ParseDomain(value string) (Domain, bool) {
	switch Domain(strings.ToLower(strings.TrimSpace(value))) {
	case DomainModeration:
		return DomainModeration, true
	case DomainLogging:
		return DomainLogging, true
	case DomainUtility:
		return DomainUtility, true
	default:
		return "", false
	}
}

// GuildConfig is implemented by the three per-guild documents.
type GuildConfig interface {
	Domain() Domain
}

type ModerationConfig struct {
	Enabled            bool          `json:"enabled"`
	ChannelID          string        `json:"channel_id,omitempty"`
	RoleID             string        `json:"role_id,omitempty"`
	QuickTimeoutLength time.Duration `json:"quick_timeout_length,omitempty"`
	AutoPunishOnWarn   *bool         `json:"auto_punish_on_warn,omitempty"`
	PublicLogging      *bool         `json:"public_logging,omitempty"`
	BanDMMessage       string        `json:"ban_dm_message,omitempty"`
}

func (ModerationConfig) Domain() Domain { return DomainModeration }

// PublicMemberLogData customises the public join and leave messages.
type PublicMemberLogData struct {
	PingNewUsers bool   `json:"ping_new_users"`
	JoinMessage  string `json:"join_message"`
	LeaveMessage string `json:"leave_message"`
}

type LoggingConfig struct {
	EnableMessageDeleteLogs  bool                 `json:"enable_message_delete_logs"`
	EnableMessageEditLogs    bool                 `json:"enable_message_edit_logs"`
	MessageChannelID         string               `json:"message_channel_id,omitempty"`
	EnableMemberLogs         bool                 `json:"enable_member_logs"`
	MemberLogChannelID       string               `json:"member_log_channel_id,omitempty"`
	EnablePublicMemberLogs   bool                 `json:"enable_public_member_logs"`
	PublicMemberLogChannelID string               `json:"public_member_log_channel_id,omitempty"`
	PublicMemberLogData      *PublicMemberLogData `json:"public_member_log_data,omitempty"`
}

func (LoggingConfig) Domain() Domain { return DomainLogging }

type UtilityConfig struct {
	UtilityLogChannelID string `json:"utility_log_channel_id,omitempty"`
}

func (UtilityConfig) Domain() Domain { return DomainUtility }
