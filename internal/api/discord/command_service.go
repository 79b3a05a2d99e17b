package discord

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/jukebox"
	"github.com/osa030/jukebot/internal/app/notification"
	infradiscord "github.com/osa030/jukebot/internal/infra/discord"
)

// commandTimeout bounds the catalog lookups of one command.
const commandTimeout = 30 * time.Second

// Jukebox is the command facade the handlers call.
type Jukebox interface {
	Play(ctx context.Context, req jukebox.Request, input string) notification.Message
	Search(ctx context.Context, req jukebox.Request, text string) notification.Message
	Pick(ctx context.Context, req jukebox.Request, position int) notification.Message
	Skip(sessionID string, count int, hasCount bool) notification.Message
	Remove(sessionID string, position int) notification.Message
	Shuffle(sessionID string) notification.Message
	SetRepeat(sessionID, mode string) notification.Message
	Queue(sessionID string) notification.Message
	Leave(sessionID string) notification.Message
}

var _ Jukebox = (*jukebox.Service)(nil)

// CommandService implements the slash command handlers.
type CommandService struct {
	jukebox Jukebox
}

// NewCommandService creates a new CommandService.
func NewCommandService(j Jukebox) *CommandService {
	return &CommandService{jukebox: j}
}

// args holds the parsed options of one invocation.
type args struct {
	query     string
	mode      string
	number    int
	hasNumber bool
}

// OnCommand handles an application command interaction.
func (s *CommandService) OnCommand(event *events.ApplicationCommandInteractionCreate) {
	data := event.SlashCommandInteractionData()

	guildID := event.GuildID()
	if guildID == nil {
		_ = event.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{infradiscord.Embed(notification.Failure("Commands only work in a server."))},
			Flags:  discord.MessageFlagEphemeral,
		})
		return
	}

	client := event.Client()
	req := jukebox.Request{
		SessionID: guildID.String(),
		Channel:   infradiscord.NewChannelSink(client.Rest, event.Channel().ID()),
	}
	if state, ok := client.Caches.VoiceState(*guildID, event.User().ID); ok && state.ChannelID != nil {
		req.Connector = infradiscord.Connector{
			Client:    client,
			GuildID:   *guildID,
			ChannelID: *state.ChannelID,
		}
	}

	a := args{}
	a.query, _ = data.OptString(optionQuery)
	a.mode, _ = data.OptString(optionMode)
	if n, ok := data.OptInt(optionNumber); ok {
		a.number, a.hasNumber = n, true
	} else if n, ok := data.OptInt(optionCount); ok {
		a.number, a.hasNumber = n, true
	}

	zlog.Debug().Msgf("command: name=%s, guild=%s, user=%s", data.CommandName(), guildID, event.User().ID)

	// Catalog lookups may outlast the initial response window
	if err := event.DeferCreateMessage(false); err != nil {
		zlog.Warn().Err(err).Msgf("failed to defer response: command=%s", data.CommandName())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := s.dispatch(ctx, data.CommandName(), req, a)
	embeds := []discord.Embed{infradiscord.Embed(reply)}
	if _, err := client.Rest.UpdateInteractionResponse(event.ApplicationID(), event.Token(), discord.MessageUpdate{Embeds: &embeds}); err != nil {
		zlog.Warn().Err(err).Msgf("failed to send response: command=%s", data.CommandName())
	}
}

// dispatch runs one command and returns the reply.
func (s *CommandService) dispatch(ctx context.Context, name string, req jukebox.Request, a args) notification.Message {
	switch name {
	case CommandPlay:
		return s.jukebox.Play(ctx, req, a.query)
	case CommandSearch:
		return s.jukebox.Search(ctx, req, a.query)
	case CommandPick:
		return s.jukebox.Pick(ctx, req, a.number)
	case CommandSkip:
		return s.jukebox.Skip(req.SessionID, a.number, a.hasNumber)
	case CommandRemove:
		return s.jukebox.Remove(req.SessionID, a.number)
	case CommandShuffle:
		return s.jukebox.Shuffle(req.SessionID)
	case CommandRepeat:
		return s.jukebox.SetRepeat(req.SessionID, a.mode)
	case CommandQueue:
		return s.jukebox.Queue(req.SessionID)
	case CommandStop:
		return s.jukebox.Leave(req.SessionID)
	default:
		return notification.Failure("Unknown command %q.", name)
	}
}
