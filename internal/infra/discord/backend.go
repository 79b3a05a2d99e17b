// Package discord implements the voice backend and status reporting on Discord.
package discord

import (
	"context"
	"iter"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/session"
)

// ErrAttachFailed is returned when the voice channel cannot be joined.
var ErrAttachFailed = errors.New("failed to attach to voice channel")

// DefaultConnectTimeout bounds joining a voice channel.
const DefaultConnectTimeout = 10 * time.Second

// voiceStates is the part of the gateway cache the backend reads.
type voiceStates interface {
	VoiceState(guildID snowflake.ID, userID snowflake.ID) (discord.VoiceState, bool)
	VoiceStates(guildID snowflake.ID) iter.Seq[discord.VoiceState]
}

// voiceConn is the part of voice.Conn the backend drives.
type voiceConn interface {
	SetOpusFrameProvider(provider voice.OpusFrameProvider)
	SetSpeaking(ctx context.Context, flags voice.SpeakingFlags) error
	Close(ctx context.Context)
}

// Backend plays session artifacts into one guild voice channel.
type Backend struct {
	states    voiceStates
	selfID    snowflake.ID
	conn      voiceConn
	guildID   snowflake.ID
	channelID snowflake.ID

	mu       sync.Mutex
	provider *FrameProvider
	seen     bool // own voice state observed or join confirmed
}

func newBackend(states voiceStates, selfID snowflake.ID, conn voiceConn, guildID, channelID snowflake.ID) *Backend {
	return &Backend{
		states:    states,
		selfID:    selfID,
		conn:      conn,
		guildID:   guildID,
		channelID: channelID,
	}
}

// markJoined records that the voice server confirmed the join, so a missing
// voice state from then on means the bot was removed.
func (b *Backend) markJoined() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = true
}

// Connected reports whether the bot is still in a voice channel of the guild.
// Before the join is confirmed a missing voice state is not treated as a kick.
func (b *Backend) Connected() bool {
	state, ok := b.states.VoiceState(b.guildID, b.selfID)
	present := ok && state.ChannelID != nil

	b.mu.Lock()
	defer b.mu.Unlock()
	if present {
		b.seen = true
		return true
	}
	return !b.seen
}

// ListenerCount returns how many other users share the bot's voice channel.
func (b *Backend) ListenerCount() int {
	channelID := b.channelID
	if state, ok := b.states.VoiceState(b.guildID, b.selfID); ok && state.ChannelID != nil {
		// Follow the bot if it was moved
		channelID = *state.ChannelID
	}

	count := 0
	for state := range b.states.VoiceStates(b.guildID) {
		if state.UserID == b.selfID || state.ChannelID == nil {
			continue
		}
		if *state.ChannelID == channelID {
			count++
		}
	}
	return count
}

// Playing reports whether frames are still being sent.
func (b *Backend) Playing() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.provider != nil && !b.provider.Done()
}

// Play starts sending the Ogg/Opus file at path, replacing anything playing.
func (b *Backend) Play(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s", path)
	}
	provider, err := NewFrameProvider(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone); err != nil {
		provider.Close()
		return errors.Wrap(err, "failed to set speaking")
	}

	b.mu.Lock()
	previous := b.provider
	b.provider = provider
	b.mu.Unlock()
	if previous != nil {
		previous.Close()
	}

	b.conn.SetOpusFrameProvider(provider)
	return nil
}

// Stop ends the current track. The connection stays open.
func (b *Backend) Stop() {
	b.mu.Lock()
	provider := b.provider
	b.mu.Unlock()
	if provider != nil {
		provider.Close()
	}
}

// Disconnect stops playback and leaves the voice channel.
func (b *Backend) Disconnect(ctx context.Context) error {
	b.Stop()
	b.conn.Close(ctx)
	zlog.Debug().Msgf("discord: voice closed: guild=%s", b.guildID)
	return nil
}

// Connector joins a fixed voice channel.
type Connector struct {
	Client    *bot.Client
	GuildID   snowflake.ID
	ChannelID snowflake.ID
	Timeout   time.Duration
}

// Connect opens the voice connection.
func (c Connector) Connect(ctx context.Context) (session.Backend, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}

	conn := c.Client.VoiceManager.CreateConn(c.GuildID)

	openCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := conn.Open(openCtx, c.ChannelID, false, true); err != nil {
		conn.Close(context.Background())
		return nil, errors.Mark(errors.Wrapf(err, "failed to join channel %s", c.ChannelID), ErrAttachFailed)
	}

	zlog.Info().Msgf("discord: voice joined: guild=%s, channel=%s", c.GuildID, c.ChannelID)
	backend := newBackend(c.Client.Caches, c.Client.ID(), conn, c.GuildID, c.ChannelID)
	// Open returns after our voice state update was handled
	backend.markJoined()
	return backend, nil
}
