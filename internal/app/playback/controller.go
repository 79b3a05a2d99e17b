package playback

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/filter"
	"github.com/osa030/jukebot/internal/app/notification"
	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/domain/playlist"
	"github.com/osa030/jukebot/internal/domain/track"
)

// ArtifactExt is the extension of the per-session audio file.
const ArtifactExt = ".opus"

// Resolver is the catalog lookup the controller needs while advancing.
type Resolver interface {
	ResolveEquivalent(ctx context.Context, t track.Track) (track.Track, error)
	FetchDuration(ctx context.Context, t track.Track) time.Duration
	ImportRemoteCollection(ctx context.Context, collectionID, pageToken string) (playlist.Page, error)
}

// Fetcher materializes a track's audio at dest in the background.
type Fetcher interface {
	Start(ctx context.Context, t track.Track, dest string) <-chan error
}

// Admission decides whether a track with a known duration may be played.
type Admission interface {
	Execute(ctx context.Context, t track.Track) filter.Result
}

// Connector attaches a session to its voice channel.
type Connector interface {
	Connect(ctx context.Context) (session.Backend, error)
}

// Config holds controller configuration.
type Config struct {
	PollInterval time.Duration // Tick period of the active loop
	AudioDir     string        // Directory of per-session artifacts
}

// Controller drives one session from connect to leave. It is single use.
type Controller struct {
	mu sync.RWMutex

	session   *session.Session
	resolver  Resolver
	fetcher   Fetcher
	admission Admission
	config    Config

	state  State
	reason LeaveReason
	runID  string

	// Events
	eventCh chan Event

	now func() time.Time
}

// NewController creates a new playback controller for sess.
func NewController(sess *session.Session, resolver Resolver, fetcher Fetcher, admission Admission, config Config) *Controller {
	if config.PollInterval <= 0 {
		config.PollInterval = 3 * time.Second
	}
	return &Controller{
		session:   sess,
		resolver:  resolver,
		fetcher:   fetcher,
		admission: admission,
		config:    config,
		state:     StateConnecting,
		runID:     uuid.New().String(),
		eventCh:   make(chan Event, 32),
		now:       time.Now,
	}
}

// Events returns the event channel.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Reason returns why the controller ended, or ReasonNone while running.
func (c *Controller) Reason() LeaveReason {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason
}

// ArtifactPath returns the session's audio file path.
func (c *Controller) ArtifactPath() string {
	return filepath.Join(c.config.AudioDir, c.session.ID()+ArtifactExt)
}

// Run connects and then advances the queue every tick until the controller
// ends. Cancelling ctx ends it with ReasonStopped.
func (c *Controller) Run(ctx context.Context, connector Connector) LeaveReason {
	zlog.Info().Msgf("playback: connecting: session=%s, run=%s", c.session.ID(), c.runID)

	backend, err := connector.Connect(ctx)
	if err != nil {
		zlog.Error().Err(err).Msgf("playback: attach failed: session=%s, run=%s", c.session.ID(), c.runID)
		c.session.ControllerStopped()
		c.report(ctx, notification.Failure("%s", ReasonAttachFailed.Message()))
		c.setEnded(ReasonAttachFailed)
		return ReasonAttachFailed
	}

	c.session.Attach(backend)
	c.setState(StateActive)

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		if reason, done := c.tick(ctx); done {
			return c.end(ctx, reason)
		}

		select {
		case <-ctx.Done():
			// Shutdown: leave with a fresh context so the disconnect is attempted
			return c.end(context.Background(), ReasonStopped)
		case <-ticker.C:
		}
	}
}

// tick evaluates the session once and reports whether the controller must end.
func (c *Controller) tick(ctx context.Context) (LeaveReason, bool) {
	if c.session.LeaveRequested() {
		return ReasonStopped, true
	}

	backend := c.session.Backend()
	if backend == nil || !backend.Connected() {
		return ReasonKicked, true
	}
	if backend.ListenerCount() == 0 {
		return ReasonChannelEmpty, true
	}
	if backend.Playing() {
		return ReasonNone, false
	}

	if c.session.HasWork() {
		if err := c.advance(ctx, backend); err != nil {
			zlog.Error().Err(err).Msgf("playback: backend failed: session=%s", c.session.ID())
			return ReasonPlaybackFailed, true
		}
		return ReasonNone, false
	}

	if cursor := c.session.Cursor(); c.session.Repeat() != track.RepeatSingle && cursor.Pending() {
		c.refill(ctx, cursor)
		return ReasonNone, false
	}

	return ReasonPlaylistEmpty, true
}

// advance makes the next track current and starts playing it. Per-track
// failures are reported and swallowed; only a backend play error is returned.
func (c *Controller) advance(ctx context.Context, backend session.Backend) error {
	next, replay, ok := c.session.Advance()
	if !ok {
		return nil
	}

	if next.ID.IsPending() {
		resolved, err := c.resolver.ResolveEquivalent(ctx, next)
		if err != nil {
			zlog.Warn().Err(err).Msgf("playback: no equivalent video: title=%q", next.Title)
			c.drop(ctx, next, notification.Failure("Could not find a youtube video for song %s", next.Title), EventTrackSkipped, "")
			return nil
		}
		next = resolved
	}

	next.Duration = c.resolver.FetchDuration(ctx, next)
	c.session.UpdateCurrent(next)

	if result := c.admission.Execute(ctx, next); !result.Accepted {
		msg := notification.Failure("Skipped %s because it was too long.", next.Title)
		if result.Code != filter.CodeTooLong {
			msg = notification.Failure("Skipped %s (%s).", next.Title, result.Code)
		}
		c.drop(ctx, next, msg, EventTrackSkipped, result.Code)
		return nil
	}

	path := c.ArtifactPath()
	if !replay {
		select {
		case err := <-c.fetcher.Start(ctx, next, path):
			if err != nil {
				zlog.Warn().Err(err).Msgf("playback: fetch failed: title=%q", next.Title)
				c.drop(ctx, next, notification.Failure("Could not download video"), EventFetchFailed, "")
				return nil
			}
		case <-ctx.Done():
			c.session.ClearCurrent()
			return nil
		}
	}

	if err := backend.Play(path); err != nil {
		c.session.ClearCurrent()
		return errors.Wrapf(err, "failed to play %q", next.Title)
	}

	next.StartTime = c.now()
	c.session.MarkStarted(next.StartTime)

	zlog.Info().Msgf("playback: track started: session=%s, title=%q, duration=%s, replay=%v",
		c.session.ID(), next.Title, next.Duration, replay)
	c.emit(Event{Type: EventTrackStarted, Track: &next})
	return nil
}

// drop discards the current track after a per-track failure.
func (c *Controller) drop(ctx context.Context, t track.Track, msg notification.Message, eventType EventType, code string) {
	c.session.ClearCurrent()
	c.report(ctx, msg)
	c.emit(Event{Type: eventType, Track: &t, Code: code})
}

// refill appends the next page of the remote playlist being imported.
func (c *Controller) refill(ctx context.Context, cursor playlist.Cursor) {
	page, err := c.resolver.ImportRemoteCollection(ctx, cursor.CollectionID, cursor.NextPageToken)
	if err != nil {
		zlog.Warn().Err(err).Msgf("playback: refill failed: collection=%s", cursor.CollectionID)
		// Stop paginating so the next tick does not retry forever
		c.session.ApplyPage(cursor.CollectionID, playlist.Page{})
		c.report(ctx, notification.Failure("Could not load more songs from the playlist."))
		return
	}

	added := c.session.ApplyPage(cursor.CollectionID, page)
	zlog.Debug().Msgf("playback: refilled: collection=%s, added=%d, more=%t", cursor.CollectionID, added, page.HasMore())
	c.report(ctx, notification.Success("%d song(s) were added to the playlist.", added))
	c.emit(Event{Type: EventQueueRefilled})
}

// end tears the session down and reports the leave reason.
func (c *Controller) end(ctx context.Context, reason LeaveReason) LeaveReason {
	zlog.Info().Msgf("playback: leaving: session=%s, run=%s, reason=%s", c.session.ID(), c.runID, reason)

	if backend := c.session.Backend(); backend != nil {
		if err := backend.Disconnect(ctx); err != nil {
			zlog.Warn().Err(err).Msgf("playback: disconnect failed: session=%s", c.session.ID())
		}
	}

	c.session.Reset()

	if err := os.Remove(c.ArtifactPath()); err != nil && !os.IsNotExist(err) {
		zlog.Warn().Err(err).Msgf("playback: failed to remove artifact: path=%s", c.ArtifactPath())
	}

	// Release before the slow report so a request arriving meanwhile can
	// start the next controller
	c.session.ControllerStopped()

	c.report(ctx, notification.Info("Leaving the channel: %s", reason.Message()))
	c.setEnded(reason)
	return reason
}

// report delivers a status message; delivery failures are only logged.
func (c *Controller) report(ctx context.Context, msg notification.Message) {
	if err := c.session.Output().Report(ctx, msg); err != nil {
		zlog.Debug().Err(err).Msgf("playback: report not delivered: session=%s", c.session.ID())
	}
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.emit(Event{Type: EventStateChanged})
}

func (c *Controller) setEnded(reason LeaveReason) {
	c.mu.Lock()
	c.state = StateEnded
	c.reason = reason
	c.mu.Unlock()
	c.emit(Event{Type: EventStateChanged})
}

// emit sends an event without blocking.
func (c *Controller) emit(e Event) {
	c.mu.RLock()
	e.State = c.state
	e.Reason = c.reason
	c.mu.RUnlock()

	select {
	case c.eventCh <- e:
	default:
		// Channel full, drop event
	}
}
