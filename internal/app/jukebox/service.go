// Package jukebox provides the command facade over the per-guild sessions.
package jukebox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/app/notification"
	"github.com/osa030/jukebot/internal/app/playback"
	"github.com/osa030/jukebot/internal/app/resolver"
	"github.com/osa030/jukebot/internal/app/session"
	"github.com/osa030/jukebot/internal/domain/track"
)

// queueListLimit caps the entries shown by Queue.
const queueListLimit = 10

// Catalog is everything the service and its controllers look up remotely.
type Catalog interface {
	playback.Resolver
	ResolveSingle(ctx context.Context, videoID string) (track.Track, error)
	Search(ctx context.Context, text string) ([]track.Track, error)
	ImportExternalAlbum(ctx context.Context, albumID string) ([]track.Track, error)
	ImportExternalPlaylist(ctx context.Context, playlistID string) ([]track.Track, error)
}

// Request carries where a command came from.
type Request struct {
	SessionID string
	Channel   notification.Sink  // Text channel for status reports (optional)
	Connector playback.Connector // Voice channel of the caller (nil if not in one)
}

// Service executes user commands against the session registry and starts a
// playback controller when a session first gets work.
type Service struct {
	registry  *session.Registry
	catalog   Catalog
	fetcher   playback.Fetcher
	admission playback.Admission
	config    playback.Config

	mu          sync.Mutex
	controllers map[string]*playback.Controller

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	now func() time.Time
}

// NewService creates a new jukebox service.
func NewService(registry *session.Registry, catalog Catalog, fetcher playback.Fetcher, admission playback.Admission, config playback.Config) *Service {
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		registry:    registry,
		catalog:     catalog,
		fetcher:     fetcher,
		admission:   admission,
		config:      config,
		controllers: make(map[string]*playback.Controller),
		ctx:         ctx,
		cancel:      cancel,
		now:         time.Now,
	}
}

// Play enqueues whatever input refers to: a video, a remote playlist, an
// external album or playlist, or else the first search hit.
func (s *Service) Play(ctx context.Context, req Request, input string) notification.Message {
	sess := s.open(req)
	if !sess.Running() && req.Connector == nil {
		return notification.Failure("Join a voice channel first.")
	}

	ref := resolver.ParseReference(input)
	zlog.Debug().Msgf("jukebox: play: session=%s, kind=%s, id=%s", req.SessionID, ref.Kind, ref.ID)

	var reply notification.Message
	var added int
	switch ref.Kind {
	case resolver.KindVideo:
		reply, added = s.addVideo(ctx, sess, ref.ID)
	case resolver.KindPlaylist:
		reply, added = s.addPlaylist(ctx, sess, ref.ID)
	case resolver.KindSpotifyAlbum:
		reply, added = s.addExternal(ctx, sess, ref.ID, s.catalog.ImportExternalAlbum)
	case resolver.KindSpotifyPlaylist:
		reply, added = s.addExternal(ctx, sess, ref.ID, s.catalog.ImportExternalPlaylist)
	default:
		reply, added = s.addFirstHit(ctx, sess, ref.ID)
	}

	if added > 0 {
		s.ensureController(sess, req.Connector)
	}
	return reply
}

func (s *Service) addVideo(ctx context.Context, sess *session.Session, videoID string) (notification.Message, int) {
	t, err := s.catalog.ResolveSingle(ctx, videoID)
	if err != nil {
		if !errors.Is(err, resolver.ErrNotFound) {
			zlog.Warn().Err(err).Msgf("jukebox: video lookup failed: id=%s", videoID)
		}
		return notification.Failure("Wrong url."), 0
	}
	return s.enqueue(sess, t)
}

func (s *Service) addPlaylist(ctx context.Context, sess *session.Session, playlistID string) (notification.Message, int) {
	page, err := s.catalog.ImportRemoteCollection(ctx, playlistID, "")
	if err != nil {
		zlog.Warn().Err(err).Msgf("jukebox: playlist import failed: id=%s", playlistID)
		return notification.Failure("Wrong url."), 0
	}

	sess.BeginImport(playlistID)
	added := sess.ApplyPage(playlistID, page)
	zlog.Debug().Msgf("jukebox: playlist imported: id=%s, added=%d, more=%t", playlistID, added, page.HasMore())
	return s.batchReply(added, len(page.Tracks)), added
}

func (s *Service) addExternal(ctx context.Context, sess *session.Session, id string, load func(context.Context, string) ([]track.Track, error)) (notification.Message, int) {
	tracks, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, resolver.ErrUnavailable) {
			return notification.Failure("Spotify is not configured."), 0
		}
		zlog.Warn().Err(err).Msgf("jukebox: external import failed: id=%s", id)
		return notification.Failure("Wrong url."), 0
	}

	added := sess.AppendBatch(tracks)
	return s.batchReply(added, len(tracks)), added
}

func (s *Service) addFirstHit(ctx context.Context, sess *session.Session, text string) (notification.Message, int) {
	results, err := s.catalog.Search(ctx, text)
	if err != nil {
		zlog.Warn().Err(err).Msgf("jukebox: search failed: query=%q", text)
		return notification.Failure("An error has occurred."), 0
	}
	if len(results) == 0 {
		return notification.Info("No results."), 0
	}
	return s.enqueue(sess, results[0])
}

func (s *Service) enqueue(sess *session.Session, t track.Track) (notification.Message, int) {
	if err := sess.Enqueue(t); err != nil {
		return notification.Failure("The playlist is full already."), 0
	}
	msg := notification.Success("Added \"%s\" to the playlist", t.Title)
	msg.ImageURL = t.ThumbnailURL
	return msg, 1
}

func (s *Service) batchReply(added, offered int) notification.Message {
	if added == 0 && offered > 0 {
		return notification.Failure("The playlist is full already.")
	}
	return notification.Success("%d song(s) were added to the playlist.", added)
}

// Search stores the results of a text search and lists them on the session
// channel, one message per result.
func (s *Service) Search(ctx context.Context, req Request, text string) notification.Message {
	sess := s.open(req)

	results, err := s.catalog.Search(ctx, text)
	if err != nil {
		zlog.Warn().Err(err).Msgf("jukebox: search failed: query=%q", text)
		return notification.Failure("An error has occurred.")
	}
	if len(results) == 0 {
		return notification.Info("No results.")
	}

	sess.SetSearchResults(results)
	for i, t := range results {
		msg := notification.Info("%d) %s", i+1, t.Title)
		msg.ImageURL = t.ThumbnailURL
		if err := sess.Output().Report(ctx, msg); err != nil {
			zlog.Debug().Err(err).Msgf("jukebox: search result not delivered: session=%s", req.SessionID)
		}
	}
	return notification.Success("Found %d result(s). Pick one by its number.", len(results))
}

// Pick enqueues the search result at the 1-based position.
func (s *Service) Pick(ctx context.Context, req Request, position int) notification.Message {
	sess := s.open(req)
	if !sess.Running() && req.Connector == nil {
		return notification.Failure("Join a voice channel first.")
	}

	_, err := sess.EnqueueFromSearchResults(position - 1)
	switch {
	case errors.Is(err, session.ErrOutOfRange):
		return notification.Failure("Index out of range.")
	case errors.Is(err, session.ErrFull):
		return notification.Failure("The playlist is full already.")
	case err != nil:
		return notification.Failure("Some error occurred.")
	}

	s.ensureController(sess, req.Connector)
	return notification.Success("Song added to the playlist")
}

// Skip ends the current track. With hasCount, count queued entries are
// dropped as well.
func (s *Service) Skip(sessionID string, count int, hasCount bool) notification.Message {
	sess, ok := s.registry.Get(sessionID)
	if !ok || !sess.Running() {
		return notification.Failure("Nothing is playing.")
	}
	if err := sess.Skip(count, hasCount); err != nil {
		return notification.Failure("Index out of range")
	}
	return notification.Info("Song skipped")
}

// Remove drops the queued entry at the 1-based position.
func (s *Service) Remove(sessionID string, position int) notification.Message {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return notification.Failure("Index out of range")
	}
	t, err := sess.RemoveAt(position - 1)
	if err != nil {
		return notification.Failure("Index out of range")
	}
	return notification.Success("Song \"%s\" has been removed from the playlist.", t.Title)
}

// Shuffle randomizes the queue order.
func (s *Service) Shuffle(sessionID string) notification.Message {
	sess, ok := s.registry.Get(sessionID)
	if !ok || sess.Len() == 0 {
		return notification.Info("The playlist is empty.")
	}
	sess.Shuffle()
	return notification.Success("Playlist shuffled.")
}

// SetRepeat changes the repeat mode.
func (s *Service) SetRepeat(sessionID, mode string) notification.Message {
	m, err := track.ParseRepeatMode(mode)
	if err != nil {
		return notification.Failure("Unknown repeat mode %q.", mode)
	}
	s.registry.GetOrCreate(sessionID).SetRepeat(m)
	return notification.Success("Repeat mode set to %s.", m)
}

// Queue describes the current track and the upcoming entries.
func (s *Service) Queue(sessionID string) notification.Message {
	sess, ok := s.registry.Get(sessionID)
	if !ok {
		return notification.Info("The playlist is empty.")
	}
	snap := sess.Snapshot()
	if snap.Current == nil && len(snap.Queue) == 0 {
		return notification.Info("The playlist is empty.")
	}

	var b strings.Builder
	if snap.Current != nil {
		fmt.Fprintf(&b, "Now playing: %s", snap.Current.Title)
		if pct := snap.Current.PercentPlayed(s.now()); pct > 0 {
			fmt.Fprintf(&b, " (%d%%)", int(pct*100))
		}
		b.WriteString("\n")
	}
	for i, t := range snap.Queue {
		if i >= queueListLimit {
			fmt.Fprintf(&b, "...and %d more\n", len(snap.Queue)-queueListLimit)
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, t.Title)
	}
	fmt.Fprintf(&b, "Repeat: %s", snap.Repeat)

	msg := notification.Info("%s", b.String())
	if snap.Current != nil {
		msg.ImageURL = snap.Current.ThumbnailURL
	}
	return msg
}

// Leave asks the session's controller to disconnect.
func (s *Service) Leave(sessionID string) notification.Message {
	sess, ok := s.registry.Get(sessionID)
	if !ok || !sess.RequestLeave() {
		return notification.Failure("Not connected.")
	}
	return notification.Info("Leaving the channel.")
}

// Controller returns the running controller of a session.
func (s *Service) Controller(sessionID string) (*playback.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.controllers[sessionID]
	return c, ok
}

// Close stops every controller and waits for them to leave, or for ctx to end.
func (s *Service) Close(ctx context.Context) error {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "controllers did not stop")
	}
}

// open returns the request's session, binding its reporting channel.
func (s *Service) open(req Request) *session.Session {
	sess := s.registry.GetOrCreate(req.SessionID)
	if req.Channel != nil {
		sess.SetChannel(req.Channel)
	}
	return sess
}

// ensureController starts a controller unless one is already running. The
// controller releases the claim itself when it ends.
func (s *Service) ensureController(sess *session.Session, connector playback.Connector) {
	if connector == nil || !sess.TryStartController() {
		return
	}

	ctrl := playback.NewController(sess, s.catalog, s.fetcher, s.admission, s.config)
	s.mu.Lock()
	s.controllers[sess.ID()] = ctrl
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			if s.controllers[sess.ID()] == ctrl {
				delete(s.controllers, sess.ID())
			}
			s.mu.Unlock()
		}()

		reason := ctrl.Run(s.ctx, connector)
		zlog.Info().Msgf("jukebox: controller finished: session=%s, reason=%s", sess.ID(), reason)
	}()
}
