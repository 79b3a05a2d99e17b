// Package discord provides the slash-command surface of the bot.
package discord

import (
	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
)

// Command names
const (
	CommandPlay    = "play"
	CommandSearch  = "search"
	CommandPick    = "pick"
	CommandSkip    = "skip"
	CommandRemove  = "remove"
	CommandShuffle = "shuffle"
	CommandRepeat  = "repeat"
	CommandQueue   = "queue"
	CommandStop    = "stop"
)

// Option names
const (
	optionQuery  = "query"
	optionNumber = "number"
	optionCount  = "count"
	optionMode   = "mode"
)

func intPtr(v int) *int { return &v }

// Commands returns the slash command definitions.
func Commands() []discord.ApplicationCommandCreate {
	return []discord.ApplicationCommandCreate{
		discord.SlashCommandCreate{
			Name:        CommandPlay,
			Description: "Add a video, a playlist or the first search hit to the playlist",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        optionQuery,
					Description: "YouTube or Spotify link, or search text",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandSearch,
			Description: "Search YouTube and list the results",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        optionQuery,
					Description: "Search text",
					Required:    true,
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandPick,
			Description: "Add a result of the last search to the playlist",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        optionNumber,
					Description: "Result number",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandSkip,
			Description: "Skip the current song",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        optionCount,
					Description: "Also drop this many songs from the head of the playlist",
					MinValue:    intPtr(0),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandRemove,
			Description: "Remove a song from the playlist",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        optionNumber,
					Description: "Position in the playlist",
					Required:    true,
					MinValue:    intPtr(1),
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandShuffle,
			Description: "Shuffle the playlist",
		},
		discord.SlashCommandCreate{
			Name:        CommandRepeat,
			Description: "Set the repeat mode",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        optionMode,
					Description: "Repeat mode",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "off", Value: "off"},
						{Name: "single", Value: "single"},
						{Name: "all", Value: "all"},
					},
				},
			},
		},
		discord.SlashCommandCreate{
			Name:        CommandQueue,
			Description: "Show the current song and the playlist",
		},
		discord.SlashCommandCreate{
			Name:        CommandStop,
			Description: "Leave the voice channel",
		},
	}
}

// Register installs the commands globally, or in guildIDs when given.
func Register(client *bot.Client, guildIDs []snowflake.ID) error {
	commands := Commands()

	if len(guildIDs) == 0 {
		if _, err := client.Rest.SetGlobalCommands(client.ApplicationID, commands); err != nil {
			return errors.Wrap(err, "failed to register global commands")
		}
		zlog.Info().Msgf("commands registered: scope=global, count=%d", len(commands))
		return nil
	}

	for _, guildID := range guildIDs {
		if _, err := client.Rest.SetGuildCommands(client.ApplicationID, guildID, commands); err != nil {
			return errors.Wrapf(err, "failed to register commands in guild %s", guildID)
		}
		zlog.Info().Msgf("commands registered: guild=%s, count=%d", guildID, len(commands))
	}
	return nil
}
