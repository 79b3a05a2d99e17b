package discord

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"

	"github.com/osa030/jukebot/internal/app/notification"
)

// Embed colors
const (
	ColorInfo    = 0x5865f2
	ColorSuccess = 0x2ecc71
	ColorError   = 0xe74c3c
)

// MessageCreator posts messages to a channel. rest.Rest satisfies it.
type MessageCreator interface {
	CreateMessage(channelID snowflake.ID, messageCreate discord.MessageCreate, opts ...rest.RequestOpt) (*discord.Message, error)
}

// ChannelSink delivers status messages to a text channel.
type ChannelSink struct {
	rest      MessageCreator
	channelID snowflake.ID
}

// NewChannelSink creates a sink posting to channelID.
func NewChannelSink(r MessageCreator, channelID snowflake.ID) *ChannelSink {
	return &ChannelSink{rest: r, channelID: channelID}
}

// Send implements notification.Sink.
func (s *ChannelSink) Send(ctx context.Context, msg notification.Message) error {
	_, err := s.rest.CreateMessage(s.channelID, discord.MessageCreate{
		Embeds: []discord.Embed{Embed(msg)},
	}, rest.WithCtx(ctx))
	if err != nil {
		return errors.Wrapf(err, "failed to post to channel %s", s.channelID)
	}
	return nil
}

// Embed renders a message as an embed colored by its level.
func Embed(msg notification.Message) discord.Embed {
	embed := discord.Embed{
		Description: msg.Text,
		Color:       levelColor(msg.Level),
	}
	if msg.ImageURL != "" {
		embed.Image = &discord.EmbedResource{URL: msg.ImageURL}
	}
	return embed
}

func levelColor(level notification.Level) int {
	switch level {
	case notification.LevelSuccess:
		return ColorSuccess
	case notification.LevelError:
		return ColorError
	default:
		return ColorInfo
	}
}
