// Package session provides the per-guild playback queue and its registry.
package session

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/osa030/jukebot/internal/app/notification"
	"github.com/osa030/jukebot/internal/domain/playlist"
	"github.com/osa030/jukebot/internal/domain/track"
)

// DefaultMaxSongs is the queue capacity when none is configured.
const DefaultMaxSongs = 30

var (
	ErrFull       = errors.New("the playlist is full")
	ErrOutOfRange = errors.New("index out of range")
)

// channelSinkID is the subscription key of the text channel commands come from.
const channelSinkID = "channel"

// Backend is the connected audio sink of a session.
type Backend interface {
	// Connected reports whether the voice connection is still up.
	Connected() bool
	// Playing reports whether audio is currently being sent.
	Playing() bool
	// ListenerCount returns the number of users in the channel, excluding the bot.
	ListenerCount() int
	// Play starts streaming the artifact at path.
	Play(path string) error
	// Stop ends the current track. The controller advances on its next tick.
	Stop()
	// Disconnect leaves the channel.
	Disconnect(ctx context.Context) error
}

// Snapshot is a copy of the session state for listing.
type Snapshot struct {
	Queue   []track.Track
	Current *track.Track
	Repeat  track.RepeatMode
	Cursor  playlist.Cursor
}

// Session is the queue and playback state of one guild.
// All methods are safe for concurrent use; none performs network I/O.
type Session struct {
	mu sync.Mutex

	id       string
	output   *notification.Manager
	backend  Backend
	maxSongs int

	queue         []track.Track
	searchResults []track.Track
	repeat        track.RepeatMode
	current       *track.Track
	cursor        playlist.Cursor

	running        bool // a controller owns this session
	leaveRequested bool
}

// New creates a session with the given queue capacity.
func New(id string, maxSongs int) *Session {
	if maxSongs <= 0 {
		maxSongs = DefaultMaxSongs
	}
	output := notification.NewManager()
	output.Subscribe(notification.LogSink{SessionID: id})

	return &Session{
		id:       id,
		output:   output,
		maxSongs: maxSongs,
		queue:    make([]track.Track, 0, maxSongs),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Output returns the session's status reporter.
func (s *Session) Output() notification.Reporter {
	return s.output
}

// SetChannel directs status messages to sink in addition to the log,
// replacing the previously set channel.
func (s *Session) SetChannel(sink notification.Sink) {
	s.output.SubscribeAs(channelSinkID, sink)
}

// Attach records the connected backend.
func (s *Session) Attach(b Backend) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend = b
}

// Backend returns the attached backend, or nil.
func (s *Session) Backend() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend
}

// Enqueue appends t, or returns ErrFull when the queue is at capacity.
func (s *Session) Enqueue(t track.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) >= s.maxSongs {
		return ErrFull
	}
	s.queue = append(s.queue, t)
	return nil
}

// AppendBatch appends tracks in order until the queue is full and returns
// how many were added.
func (s *Session) AppendBatch(tracks []track.Track) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendBatchLocked(tracks)
}

func (s *Session) appendBatchLocked(tracks []track.Track) int {
	room := s.maxSongs - len(s.queue)
	if room <= 0 {
		return 0
	}
	if len(tracks) > room {
		tracks = tracks[:room]
	}
	s.queue = append(s.queue, tracks...)
	return len(tracks)
}

// SetSearchResults replaces the last search results.
func (s *Session) SetSearchResults(tracks []track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchResults = append([]track.Track(nil), tracks...)
}

// EnqueueFromSearchResults enqueues the search result at the zero-based index.
func (s *Session) EnqueueFromSearchResults(index int) (track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.searchResults) {
		return track.Track{}, ErrOutOfRange
	}
	if len(s.queue) >= s.maxSongs {
		return track.Track{}, ErrFull
	}
	t := s.searchResults[index]
	s.queue = append(s.queue, t)
	return t, nil
}

// Shuffle randomizes the queue order.
func (s *Session) Shuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	rand.Shuffle(len(s.queue), func(i, j int) {
		s.queue[i], s.queue[j] = s.queue[j], s.queue[i]
	})
}

// RemoveAt removes and returns the entry at the zero-based index.
func (s *Session) RemoveAt(index int) (track.Track, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.queue) {
		return track.Track{}, ErrOutOfRange
	}
	t := s.queue[index]
	s.queue = append(s.queue[:index], s.queue[index+1:]...)
	return t, nil
}

// Skip ends the current track. Single repeat is always cancelled, even when
// count is rejected. With hasCount, count leading entries are dropped first.
func (s *Session) Skip(count int, hasCount bool) error {
	s.mu.Lock()
	if s.repeat == track.RepeatSingle {
		s.repeat = track.RepeatOff
	}
	if hasCount {
		if count < 0 || count > len(s.queue) {
			s.mu.Unlock()
			return ErrOutOfRange
		}
		s.queue = append(s.queue[:0], s.queue[count:]...)
	}
	backend := s.backend
	s.mu.Unlock()

	if backend != nil {
		backend.Stop()
	}
	return nil
}

// Clear empties the queue and forgets the remote playlist cursor.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = s.queue[:0]
	s.cursor.Reset()
}

// SetRepeat sets the repeat mode.
func (s *Session) SetRepeat(mode track.RepeatMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = mode
}

// Repeat returns the repeat mode.
func (s *Session) Repeat() track.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeat
}

// Len returns the queue length.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Queue:  append([]track.Track(nil), s.queue...),
		Repeat: s.repeat,
		Cursor: s.cursor,
	}
	if s.current != nil {
		c := *s.current
		snap.Current = &c
	}
	return snap
}

// BeginImport starts a fresh remote playlist import, clearing any pending page token.
func (s *Session) BeginImport(collectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cursor.Start(collectionID)
}

// ApplyPage appends a fetched page of collectionID until the queue is full and
// stores its next page token. A page for a collection that is no longer being
// imported is ignored. Returns how many tracks were added.
func (s *Session) ApplyPage(collectionID string, page playlist.Page) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cursor.CollectionID != collectionID {
		return 0
	}
	s.cursor.Advance(page.NextPageToken)
	return s.appendBatchLocked(page.Tracks)
}

// Cursor returns the remote playlist cursor.
func (s *Session) Cursor() playlist.Cursor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// Current returns a copy of the current track.
func (s *Session) Current() (track.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return track.Track{}, false
	}
	return *s.current, true
}

// HasWork reports whether an idle backend should advance: the queue has
// entries, or Single repeat has a current track to replay.
func (s *Session) HasWork() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue) > 0 || (s.repeat == track.RepeatSingle && s.current != nil)
}

// Advance picks the next track to play and makes it current.
// In Single mode with a current track that track is returned with replay set.
// In All mode the finished track is re-appended before the head is popped.
// ok is false when there is nothing to play.
func (s *Session) Advance() (next track.Track, replay bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.repeat == track.RepeatSingle && s.current != nil {
		s.current.StartTime = time.Time{}
		return *s.current, true, true
	}

	finished := s.current
	s.current = nil
	if s.repeat == track.RepeatAll && finished != nil {
		finished.StartTime = time.Time{}
		// Transiently maxSongs+1; the pop below restores the bound.
		s.queue = append(s.queue, *finished)
	}

	if len(s.queue) == 0 {
		return track.Track{}, false, false
	}
	next = s.queue[0]
	s.queue = append(s.queue[:0], s.queue[1:]...)
	s.current = &next
	return next, false, true
}

// UpdateCurrent replaces the current track, e.g. once it has been resolved.
// It is a no-op if the current track was cleared meanwhile.
func (s *Session) UpdateCurrent(t track.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current = &t
	}
}

// ClearCurrent drops the current track.
func (s *Session) ClearCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// MarkStarted records when the current track started playing.
func (s *Session) MarkStarted(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		s.current.StartTime = now
	}
}

// RequestLeave asks the controller to end on its next tick.
func (s *Session) RequestLeave() bool {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return false
	}
	s.leaveRequested = true
	backend := s.backend
	s.mu.Unlock()

	if backend != nil {
		backend.Stop()
	}
	return true
}

// LeaveRequested reports whether RequestLeave was called.
func (s *Session) LeaveRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaveRequested
}

// TryStartController claims the session for a controller. It returns false if
// one is already running.
func (s *Session) TryStartController() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	s.leaveRequested = false
	return true
}

// ControllerStopped releases the claim taken by TryStartController. The
// controller calls it once the session has been torn down.
func (s *Session) ControllerStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.leaveRequested = false
}

// Running reports whether a controller owns the session.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Reset returns the session to its idle state after the controller ends.
// Search results and the output channel are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeat = track.RepeatOff
	s.queue = s.queue[:0]
	s.cursor.Reset()
	s.current = nil
	s.backend = nil
}
