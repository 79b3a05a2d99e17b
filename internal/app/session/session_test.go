package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jukebot/internal/domain/playlist"
	"github.com/osa030/jukebot/internal/domain/track"
)

type stubBackend struct {
	mu    sync.Mutex
	stops int
}

func (b *stubBackend) Connected() bool                      { return true }
func (b *stubBackend) Playing() bool                        { return false }
func (b *stubBackend) ListenerCount() int                   { return 1 }
func (b *stubBackend) Play(path string) error               { return nil }
func (b *stubBackend) Disconnect(ctx context.Context) error { return nil }
func (b *stubBackend) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stops++
}

func tracks(ids ...string) []track.Track {
	out := make([]track.Track, len(ids))
	for i, id := range ids {
		out[i] = track.New(id, "Title "+id)
	}
	return out
}

func queueIDs(s *Session) []string {
	snap := s.Snapshot()
	ids := make([]string, len(snap.Queue))
	for i, t := range snap.Queue {
		ids[i] = t.ID.String()
	}
	return ids
}

func TestEnqueue_Capacity(t *testing.T) {
	s := New("guild", 30)
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Enqueue(track.New(fmt.Sprintf("v%d", i), "Song")))
	}

	before := queueIDs(s)
	err := s.Enqueue(track.New("v30", "One too many"))
	assert.True(t, errors.Is(err, ErrFull))
	assert.Equal(t, before, queueIDs(s))
	assert.Equal(t, 30, s.Len())
}

func TestEnqueueFromSearchResults(t *testing.T) {
	tests := []struct {
		name     string
		maxSongs int
		queued   []track.Track
		index    int
		wantErr  error
		wantID   string
	}{
		{name: "first result", maxSongs: 5, index: 0, wantID: "s0"},
		{name: "last result", maxSongs: 5, index: 2, wantID: "s2"},
		{name: "negative", maxSongs: 5, index: -1, wantErr: ErrOutOfRange},
		{name: "past end", maxSongs: 5, index: 3, wantErr: ErrOutOfRange},
		{name: "queue full", maxSongs: 1, queued: tracks("q"), index: 0, wantErr: ErrFull},
		{name: "range checked before capacity", maxSongs: 1, queued: tracks("q"), index: 7, wantErr: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("guild", tt.maxSongs)
			s.AppendBatch(tt.queued)
			s.SetSearchResults(tracks("s0", "s1", "s2"))
			before := s.Len()

			got, err := s.EnqueueFromSearchResults(tt.index)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, before, s.Len())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, got.ID.String())
			assert.Equal(t, before+1, s.Len())
		})
	}
}

func TestRemoveAt(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch(tracks("a", "b", "c"))

	removed, err := s.RemoveAt(1)
	require.NoError(t, err)
	assert.Equal(t, "b", removed.ID.String())
	assert.Equal(t, []string{"a", "c"}, queueIDs(s))

	for _, idx := range []int{2, 5, -1} {
		_, err := s.RemoveAt(idx)
		assert.True(t, errors.Is(err, ErrOutOfRange))
		assert.Equal(t, []string{"a", "c"}, queueIDs(s))
	}
}

func TestEnqueueThenRemove_RoundTrip(t *testing.T) {
	s := New("guild", 30)
	require.NoError(t, s.Enqueue(track.New("x", "Resolved")))
	_, err := s.RemoveAt(0)
	require.NoError(t, err)
	assert.Empty(t, queueIDs(s))

	s.AppendBatch(tracks("a", "b"))
	before := queueIDs(s)
	require.NoError(t, s.Enqueue(track.New("x", "Resolved")))
	_, err = s.RemoveAt(s.Len() - 1)
	require.NoError(t, err)
	assert.Equal(t, before, queueIDs(s))
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name       string
		repeat     track.RepeatMode
		count      int
		hasCount   bool
		wantErr    error
		wantQueue  []string
		wantRepeat track.RepeatMode
		wantStops  int
	}{
		{
			name:       "plain skip",
			repeat:     track.RepeatOff,
			wantQueue:  []string{"a", "b", "c"},
			wantRepeat: track.RepeatOff,
			wantStops:  1,
		},
		{
			name:       "skip count drops leading entries",
			repeat:     track.RepeatAll,
			count:      2,
			hasCount:   true,
			wantQueue:  []string{"c"},
			wantRepeat: track.RepeatAll,
			wantStops:  1,
		},
		{
			name:       "skip whole queue",
			count:      3,
			hasCount:   true,
			wantQueue:  []string{},
			wantRepeat: track.RepeatOff,
			wantStops:  1,
		},
		{
			name:       "single demoted on plain skip",
			repeat:     track.RepeatSingle,
			wantQueue:  []string{"a", "b", "c"},
			wantRepeat: track.RepeatOff,
			wantStops:  1,
		},
		{
			name:       "single demoted even when count is out of range",
			repeat:     track.RepeatSingle,
			count:      4,
			hasCount:   true,
			wantErr:    ErrOutOfRange,
			wantQueue:  []string{"a", "b", "c"},
			wantRepeat: track.RepeatOff,
			wantStops:  0,
		},
		{
			name:       "negative count",
			count:      -1,
			hasCount:   true,
			wantErr:    ErrOutOfRange,
			wantQueue:  []string{"a", "b", "c"},
			wantRepeat: track.RepeatOff,
			wantStops:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New("guild", 30)
			backend := &stubBackend{}
			s.Attach(backend)
			s.AppendBatch(tracks("a", "b", "c"))
			s.SetRepeat(tt.repeat)

			err := s.Skip(tt.count, tt.hasCount)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantQueue, queueIDs(s))
			assert.Equal(t, tt.wantRepeat, s.Repeat())
			assert.Equal(t, tt.wantStops, backend.stops)
		})
	}
}

func TestSkip_WithoutBackend(t *testing.T) {
	s := New("guild", 30)
	s.SetRepeat(track.RepeatSingle)
	assert.NoError(t, s.Skip(0, false))
	assert.Equal(t, track.RepeatOff, s.Repeat())
}

func TestShuffle_KeepsEntries(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch(tracks("a", "b", "c", "d", "e"))

	s.Shuffle()
	assert.ElementsMatch(t, []string{"a", "b", "c", "d", "e"}, queueIDs(s))
}

func TestAppendBatch_StopsAtCapacity(t *testing.T) {
	s := New("guild", 3)
	require.NoError(t, s.Enqueue(track.New("a", "A")))

	added := s.AppendBatch(tracks("b", "c", "d", "e"))
	assert.Equal(t, 2, added)
	assert.Equal(t, []string{"a", "b", "c"}, queueIDs(s))
	assert.Equal(t, 0, s.AppendBatch(tracks("f")))
}

func TestApplyPage(t *testing.T) {
	s := New("guild", 30)
	s.BeginImport("PL1")

	added := s.ApplyPage("PL1", playlist.Page{Tracks: tracks("a", "b"), NextPageToken: "NEXT"})
	assert.Equal(t, 2, added)
	assert.True(t, s.Cursor().Pending())

	// A fresh import clears the token
	s.BeginImport("PL2")
	assert.Equal(t, "", s.Cursor().NextPageToken)

	// Late page for the old collection is ignored
	assert.Equal(t, 0, s.ApplyPage("PL1", playlist.Page{Tracks: tracks("z"), NextPageToken: "X"}))
	assert.Equal(t, "", s.Cursor().NextPageToken)

	s.ApplyPage("PL2", playlist.Page{Tracks: tracks("c")})
	assert.False(t, s.Cursor().Pending())
	assert.Equal(t, []string{"a", "b", "c"}, queueIDs(s))
}

func TestClear(t *testing.T) {
	s := New("guild", 30)
	s.BeginImport("PL1")
	s.ApplyPage("PL1", playlist.Page{Tracks: tracks("a"), NextPageToken: "NEXT"})

	s.Clear()
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, playlist.Cursor{}, s.Cursor())
}

func TestAdvance_Off(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch(tracks("a", "b"))

	next, replay, ok := s.Advance()
	require.True(t, ok)
	assert.False(t, replay)
	assert.Equal(t, "a", next.ID.String())

	next, _, ok = s.Advance()
	require.True(t, ok)
	assert.Equal(t, "b", next.ID.String())

	_, _, ok = s.Advance()
	assert.False(t, ok)
	_, hasCurrent := s.Current()
	assert.False(t, hasCurrent)
}

func TestAdvance_AllCycles(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch(tracks("a", "b"))
	s.SetRepeat(track.RepeatAll)

	var order []string
	for i := 0; i < 6; i++ {
		next, _, ok := s.Advance()
		require.True(t, ok)
		s.MarkStarted(time.Now())
		order = append(order, next.ID.String())
	}
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, order)
}

func TestAdvance_AllAtCapacity(t *testing.T) {
	s := New("guild", 2)
	s.AppendBatch(tracks("a", "b"))
	s.SetRepeat(track.RepeatAll)

	_, _, ok := s.Advance()
	require.True(t, ok)
	require.NoError(t, s.Enqueue(track.New("c", "C")))
	assert.Equal(t, 2, s.Len())

	next, _, ok := s.Advance()
	require.True(t, ok)
	assert.Equal(t, "b", next.ID.String())
	assert.Equal(t, []string{"c", "a"}, queueIDs(s))
}

func TestAdvance_SingleReplays(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch(tracks("a", "b"))
	s.SetRepeat(track.RepeatSingle)

	// No current yet: behaves like Off
	next, replay, ok := s.Advance()
	require.True(t, ok)
	assert.False(t, replay)
	assert.Equal(t, "a", next.ID.String())
	s.MarkStarted(time.Now())

	next, replay, ok = s.Advance()
	require.True(t, ok)
	assert.True(t, replay)
	assert.Equal(t, "a", next.ID.String())
	assert.True(t, next.StartTime.IsZero())
	assert.Equal(t, []string{"b"}, queueIDs(s))
	assert.True(t, s.HasWork())
}

func TestUpdateCurrent(t *testing.T) {
	s := New("guild", 30)
	s.AppendBatch([]track.Track{track.NewPending("Song Artist")})

	next, _, ok := s.Advance()
	require.True(t, ok)
	next.ID = track.Resolved("resolved")
	s.UpdateCurrent(next)

	cur, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "resolved", cur.ID.String())

	s.ClearCurrent()
	s.UpdateCurrent(next)
	_, ok = s.Current()
	assert.False(t, ok)
}

func TestControllerClaim(t *testing.T) {
	s := New("guild", 30)
	assert.False(t, s.RequestLeave())

	require.True(t, s.TryStartController())
	assert.False(t, s.TryStartController())
	assert.True(t, s.Running())

	backend := &stubBackend{}
	s.Attach(backend)
	assert.True(t, s.RequestLeave())
	assert.True(t, s.LeaveRequested())
	assert.Equal(t, 1, backend.stops)

	s.ControllerStopped()
	assert.False(t, s.Running())
	assert.False(t, s.LeaveRequested())
	assert.True(t, s.TryStartController())
}

func TestReset(t *testing.T) {
	s := New("guild", 30)
	s.Attach(&stubBackend{})
	s.AppendBatch(tracks("a", "b"))
	s.SetRepeat(track.RepeatAll)
	s.SetSearchResults(tracks("s"))
	s.BeginImport("PL")
	s.ApplyPage("PL", playlist.Page{NextPageToken: "N"})
	s.Advance()

	s.Reset()
	snap := s.Snapshot()
	assert.Empty(t, snap.Queue)
	assert.Nil(t, snap.Current)
	assert.Equal(t, track.RepeatOff, snap.Repeat)
	assert.Equal(t, playlist.Cursor{}, snap.Cursor)
	assert.Nil(t, s.Backend())

	// Search results survive
	_, err := s.EnqueueFromSearchResults(0)
	assert.NoError(t, err)
}
