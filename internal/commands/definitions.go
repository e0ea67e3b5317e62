// Package commands declares the guild's slash commands and routes inbound
// interactions to the lifecycle service.
package commands

import (
	"fmt"
	"strings"

	"github.com/aurelwyn/conclave/internal/discord"
	"github.com/aurelwyn/conclave/internal/profile"
	"github.com/aurelwyn/conclave/internal/wordgen"
)

func int64ptr(v int64) *int64 { return &v }
func boolptr(v bool) *bool    { return &v }
func permptr(p discord.Permissions) *discord.Permissions {
	return &p
}

func userOption(description string) discord.ApplicationCommandOption {
	return discord.ApplicationCommandOption{
		Type:        discord.OptionUser,
		Name:        "user",
		Description: description,
		Required:    true,
	}
}

// Definitions builds the command set registered for the guild. The
// category command's subcommands are generated from the profile, so a
// profile change requires re-registration.
func Definitions(p *profile.Profile) []discord.ApplicationCommand {
	categoryOptions := make([]discord.ApplicationCommandOption, 0, len(p.Categories))
	for _, category := range p.Categories {
		categoryOptions = append(categoryOptions, discord.ApplicationCommandOption{
			Type:        discord.OptionSubCommand,
			Name:        strings.ToLower(category.Name),
			Description: "Move channel to " + category.Name,
		})
	}

	wordgenOptions := []discord.ApplicationCommandOption{
		{
			Type:        discord.OptionInteger,
			Name:        "amount",
			Description: "How many words to generate",
			Required:    true,
			MinValue:    int64ptr(1),
			MaxValue:    int64ptr(wordgen.MaxAmount),
		},
		{
			Type:        discord.OptionInteger,
			Name:        "min-syllables",
			Description: "The minimum amount of syllables in a word",
			Required:    true,
			MinValue:    int64ptr(1),
			MaxValue:    int64ptr(wordgen.MaxSyllables),
		},
		{
			Type:        discord.OptionInteger,
			Name:        "max-syllables",
			Description: "The maximum amount of syllables in a word",
			Required:    true,
			MinValue:    int64ptr(1),
			MaxValue:    int64ptr(wordgen.MaxSyllables),
		},
		{
			Type:        discord.OptionString,
			Name:        "syllable",
			Description: "A list of syllables that can be constructed. Example: CVC,CV(V)(C(!)),C(VC(VVC))V",
			Required:    true,
		},
	}
	for i := 1; i <= wordgen.MaxCategories; i++ {
		wordgenOptions = append(wordgenOptions, discord.ApplicationCommandOption{
			Type:        discord.OptionString,
			Name:        fmt.Sprintf("category-%d", i),
			Description: "A syllable category. Example: V:a,e,i,o,u",
			MinLength:   3,
			MaxLength:   150,
		})
	}

	return []discord.ApplicationCommand{
		{
			Name:        "archive",
			Description: "Archives/Unarchives the channel",
		},
		{
			Name:        "ban",
			Description: "Ban users from your channel",
			Options:     []discord.ApplicationCommandOption{userOption("The user to ban")},
		},
		{
			Name:        "category",
			Description: "Change channel category",
			Options:     categoryOptions,
		},
		{
			Name:        "contributor",
			Description: "Add/Remove users that can write in this channel",
			Options: []discord.ApplicationCommandOption{
				{
					Type:        discord.OptionSubCommand,
					Name:        "add",
					Description: "Add a contributor",
					Options:     []discord.ApplicationCommandOption{userOption("The user to add")},
				},
				{
					Type:        discord.OptionSubCommand,
					Name:        "remove",
					Description: "Remove a contributor",
					Options:     []discord.ApplicationCommandOption{userOption("The user to remove")},
				},
			},
		},
		{
			Name:                     "create",
			Description:              "Send the channel create message",
			DefaultMemberPermissions: permptr(discord.PermissionAdministrator),
		},
		{
			Name:        "delete",
			Description: "Deletes the channel",
		},
		{
			Name:        "edit",
			Description: "Edit the channel name and/or topic",
		},
		{
			Name:                     "fixperms",
			Description:              "Fix channel permissions of owner and @everyone",
			DefaultMemberPermissions: permptr(discord.PermissionManageChannels),
		},
		{
			Name:                     "migrate",
			Description:              "Migrate data from an old database",
			DefaultMemberPermissions: permptr(discord.PermissionAdministrator),
			DMPermission:             boolptr(true),
			Options: []discord.ApplicationCommandOption{
				{
					Type:        discord.OptionSubCommand,
					Name:        "funky_text",
					Description: "Text format by Funky",
					Options: []discord.ApplicationCommandOption{
						{
							Type:        discord.OptionString,
							Name:        "path",
							Description: "Path to the channels folder",
							Required:    true,
						},
					},
				},
			},
		},
		{
			Name:        "mode",
			Description: "Change how everyone can interact with this channel",
			Options: []discord.ApplicationCommandOption{
				{
					Type:        discord.OptionSubCommand,
					Name:        "public",
					Description: "Everyone can read and write messages",
				},
				{
					Type:        discord.OptionSubCommand,
					Name:        "visible",
					Description: "Everyone can read messages, but only added users can write messages",
				},
				{
					Type:        discord.OptionSubCommand,
					Name:        "private",
					Description: "Only added users can read and/or write messages",
				},
			},
		},
		{
			Name:        "unban",
			Description: "Unban users from your channel",
			Options:     []discord.ApplicationCommandOption{userOption("The user to unban")},
		},
		{
			Name:        "viewer",
			Description: "Add/Remove users that can view this channel",
			Options: []discord.ApplicationCommandOption{
				{
					Type:        discord.OptionSubCommand,
					Name:        "add",
					Description: "Add a viewer",
					Options:     []discord.ApplicationCommandOption{userOption("The user to add")},
				},
				{
					Type:        discord.OptionSubCommand,
					Name:        "remove",
					Description: "Remove a viewer",
					Options:     []discord.ApplicationCommandOption{userOption("The user to remove")},
				},
			},
		},
		{
			Name:        "wordgen",
			Description: "Generate words based on provided syllables",
			Options:     wordgenOptions,
		},
		{
			Name:                     "debug",
			Description:              "Get information about the bot instance",
			DefaultMemberPermissions: permptr(discord.PermissionAdministrator),
			DMPermission:             boolptr(true),
		},
	}
}
