package bot

import "github.com/bwmarrin/discordgo"

func (b *Bot) registerCommands() error {
	_, err := b.platform.ApplicationCommandBulkOverwrite(b.selfID, "", commandDefinitions())
	return err
}

func perms(p int64) *int64 {
	return &p
}

func localized(en, fr string) map[discordgo.Locale]string {
	return map[discordgo.Locale]string{
		discordgo.EnglishUS: en,
		discordgo.EnglishGB: en,
		discordgo.French:    fr,
	}
}

func localizedPtr(en, fr string) *map[discordgo.Locale]string {
	m := localized(en, fr)
	return &m
}

func boolOption(name, en, fr string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionBoolean,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 required,
	}
}

func stringOption(name, en, fr string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionString,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 required,
	}
}

func channelOption(name, en, fr string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionChannel,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 required,
		ChannelTypes:             []discordgo.ChannelType{discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews},
	}
}

func roleOption(name, en, fr string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionRole,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 required,
	}
}

func userOption(name, en, fr string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionUser,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Required:                 true,
	}
}

func subcommand(name, en, fr string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionSubCommand,
		Name:                     name,
		Description:              en,
		DescriptionLocalizations: localized(en, fr),
		Options:                  opts,
	}
}

func deleteDaysOption() *discordgo.ApplicationCommandOption {
	zero := 0.0
	return &discordgo.ApplicationCommandOption{
		Type:                     discordgo.ApplicationCommandOptionInteger,
		Name:                     "delete_message_days",
		Description:              "Days of messages to delete",
		DescriptionLocalizations: localized("Days of messages to delete", "Jours de messages a supprimer"),
		MinValue:                 &zero,
		MaxValue:                 maxDeleteMessageDays,
	}
}

func configTypeOption(withAll bool) *discordgo.ApplicationCommandOption {
	choices := []*discordgo.ApplicationCommandOptionChoice{
		{Name: "Moderation", Value: "moderation"},
		{Name: "Logging", Value: "logging"},
		{Name: "Utility", Value: "utility"},
	}
	if withAll {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{Name: "All", Value: "all"})
	}
	opt := stringOption("config_type", "Which configuration", "Quelle configuration", true)
	opt.Choices = choices
	return opt
}

func banOptions() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		userOption("user", "Person to ban", "Personne a bannir"),
		stringOption("reason", "Reason for the ban", "Raison du bannissement", false),
		deleteDaysOption(),
		boolOption("dm", "Send the user a direct message", "Envoyer un message prive", false),
		stringOption("image", "Image URL for the log", "URL d'image pour le journal", false),
	}
}

func commandDefinitions() []*discordgo.ApplicationCommand {
	dmPermission := false
	return []*discordgo.ApplicationCommand{
		{
			Name:                     "config",
			Description:              "Configure the bot for this server",
			DescriptionLocalizations: localizedPtr("Configure the bot for this server", "Configurer le bot pour ce serveur"),
			DefaultMemberPermissions: perms(discordgo.PermissionManageGuild),
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("moderation", "Configure moderation", "Configurer la moderation",
					boolOption("enabled", "Whether moderation is enabled", "Activer la moderation", true),
					roleOption("moderator_role", "Moderator role", "Role des moderateurs", false),
					channelOption("action_log_channel", "Channel for moderation logs", "Salon des journaux de moderation", false),
					stringOption("quick_timeout_length", "Quick timeout length, e.g. 1h", "Duree du timeout rapide, ex. 1h", false),
					boolOption("warn_auto_punishments", "Punish automatically on warn", "Punir automatiquement apres un avertissement", false),
					boolOption("public_logging", "Post moderation actions publicly", "Publier les actions de moderation", false),
					stringOption("ban_dm_message", "Extra text sent to banned users", "Texte envoye aux bannis", false),
				),
				subcommand("logging", "Configure logging", "Configurer les journaux",
					boolOption("enable_delete_logs", "Log deleted messages", "Journaliser les messages supprimes", true),
					boolOption("enable_edit_logs", "Log edited messages", "Journaliser les messages modifies", true),
					boolOption("enable_member_logs", "Log joins and leaves", "Journaliser les arrivees et departs", true),
					boolOption("enable_public_member_logs", "Public join and leave messages", "Messages publics d'arrivee et de depart", true),
					channelOption("message_logs", "Channel for message logs", "Salon des journaux de messages", false),
					channelOption("member_log", "Channel for member logs", "Salon des journaux de membres", false),
					channelOption("public_member_log", "Channel for public member messages", "Salon des messages publics de membres", false),
				),
				subcommand("utility", "Configure utility", "Configurer les utilitaires",
					channelOption("utility_log", "Channel for utility logs", "Salon des journaux utilitaires", false),
				),
				subcommand("clear", "Clear a configuration", "Effacer une configuration", configTypeOption(true)),
				subcommand("view", "View a configuration", "Voir une configuration", configTypeOption(false)),
			},
		},
		{
			Name:                     "auto-threading",
			Description:              "Automatically create threads in a channel",
			DescriptionLocalizations: localizedPtr("Automatically create threads in a channel", "Creer des fils automatiquement dans un salon"),
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("enable", "Enable auto-threading in this channel", "Activer les fils automatiques dans ce salon",
					roleOption("role", "Role to add to new threads", "Role a ajouter aux nouveaux fils", false),
					boolOption("add_mods_and_role", "Also add the moderator role", "Ajouter aussi le role des moderateurs", false),
					boolOption("prevent_duplicates", "One open thread per user", "Un seul fil ouvert par utilisateur", false),
					boolOption("archive", "Archive threads immediately", "Archiver les fils immediatement", false),
					boolOption("content_aware_naming", "Name threads after the message", "Nommer les fils d'apres le message", false),
					boolOption("mention", "Mention the thread creator", "Mentionner le createur du fil", false),
					boolOption("message", "Set a creation message", "Definir un message de creation", false),
				),
				subcommand("disable", "Disable auto-threading in this channel", "Desactiver les fils automatiques dans ce salon"),
				subcommand("list", "List auto-threaded channels", "Lister les salons avec fils automatiques"),
				subcommand("view", "View a channel's auto-threading settings", "Voir les reglages d'un salon",
					channelOption("channel", "Channel to view", "Salon a afficher", false),
				),
			},
		},
		{
			Name:                     "nickname",
			Description:              "Nickname commands",
			DescriptionLocalizations: localizedPtr("Nickname commands", "Commandes de pseudo"),
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("request", "Request a new nickname", "Demander un nouveau pseudo",
					stringOption("nickname", "The nickname you want", "Le pseudo souhaite", true),
				),
				subcommand("clear", "Clear your nickname", "Effacer votre pseudo"),
			},
		},
		{
			Name:                     "ping",
			Description:              "Show the gateway latency",
			DescriptionLocalizations: localizedPtr("Show the gateway latency", "Afficher la latence"),
			DMPermission:             &dmPermission,
		},
		{
			Name:                     "ban",
			Description:              "Ban a user",
			DescriptionLocalizations: localizedPtr("Ban a user", "Bannir un utilisateur"),
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             &dmPermission,
			Options:                  banOptions(),
		},
		{
			Name:                     "soft-ban",
			Description:              "Ban and immediately unban a user to delete their messages",
			DescriptionLocalizations: localizedPtr("Ban and immediately unban a user to delete their messages", "Bannir puis debannir pour supprimer les messages"),
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             &dmPermission,
			Options:                  banOptions(),
		},
		{
			Name:                     "unban",
			Description:              "Unban a user",
			DescriptionLocalizations: localizedPtr("Unban a user", "Debannir un utilisateur"),
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				userOption("user", "Person to unban", "Personne a debannir"),
				stringOption("reason", "Reason for the unban", "Raison du debannissement", false),
			},
		},
		{
			Name:                     "temp-ban",
			Description:              "Temporary bans",
			DescriptionLocalizations: localizedPtr("Temporary bans", "Bannissements temporaires"),
			DefaultMemberPermissions: perms(discordgo.PermissionBanMembers),
			DMPermission:             &dmPermission,
			Options: []*discordgo.ApplicationCommandOption{
				subcommand("add", "Ban a user for a while", "Bannir temporairement",
					append([]*discordgo.ApplicationCommandOption{
						stringOption("duration", "How long, e.g. 3d", "Duree, ex. 3d", true),
					}, banOptions()...)...,
				),
				subcommand("remove", "Lift a temporary ban early", "Lever un bannissement temporaire",
					userOption("user", "Person to unban", "Personne a debannir"),
					stringOption("reason", "Reason for lifting the ban", "Raison", false),
				),
			},
		},
	}
}
