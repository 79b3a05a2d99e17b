package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []Message
	err      error
	delay    time.Duration
}

func (s *recordingSink) Send(ctx context.Context, msg Message) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	return s.err
}

func (s *recordingSink) texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages))
	for i, m := range s.messages {
		out[i] = m.Text
	}
	return out
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager()
	a := &recordingSink{}
	b := &recordingSink{}
	m.Subscribe(a)
	m.Subscribe(b)

	require.NoError(t, m.Report(context.Background(), Success("Added %q to the playlist", "Song")))
	require.NoError(t, m.Broadcast(context.Background(), Info("second")))

	assert.Equal(t, []string{`Added "Song" to the playlist`, "second"}, a.texts())
	assert.Equal(t, a.texts(), b.texts())
	assert.Equal(t, uint64(1), a.messages[0].SequenceNo)
	assert.Equal(t, uint64(2), a.messages[1].SequenceNo)
	assert.Equal(t, LevelSuccess, a.messages[0].Level)
}

func TestManager_SubscribeAsReplaces(t *testing.T) {
	m := NewManager()
	old := &recordingSink{}
	replacement := &recordingSink{}
	m.SubscribeAs("channel", old)
	m.SubscribeAs("channel", replacement)

	require.NoError(t, m.Report(context.Background(), Info("hello")))
	assert.Equal(t, 1, m.SubscriberCount())
	assert.Empty(t, old.texts())
	assert.Equal(t, []string{"hello"}, replacement.texts())

	m.Unsubscribe("channel")
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestManager_FailureDoesNotBlockOthers(t *testing.T) {
	m := NewManager()
	m.timeout = 50 * time.Millisecond
	failing := &recordingSink{err: errors.New("channel gone")}
	slow := &recordingSink{delay: time.Second}
	ok := &recordingSink{}
	m.Subscribe(failing)
	m.Subscribe(slow)
	m.Subscribe(ok)

	start := time.Now()
	err := m.Report(context.Background(), Failure("Leaving the channel: %s", "kicked"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel gone")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []string{"Leaving the channel: kicked"}, ok.texts())
}

func TestManager_NoSubscribers(t *testing.T) {
	m := NewManager()
	assert.NoError(t, m.Report(context.Background(), Info("nobody")))
	m.Close()
	assert.Equal(t, 0, m.SubscriberCount())
}

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "error", LevelError.String())
	assert.Equal(t, "unknown", Level(9).String())
}
