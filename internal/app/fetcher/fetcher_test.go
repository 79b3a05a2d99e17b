package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/jukebot/internal/domain/track"
)

type fakeDownloader struct {
	calls   []string
	err     error
	write   bool
	panics  bool
	content string
}

func (d *fakeDownloader) Download(ctx context.Context, videoID, dest string) error {
	d.calls = append(d.calls, videoID)
	if d.panics {
		panic("boom")
	}
	if d.err != nil {
		return d.err
	}
	if d.write {
		return os.WriteFile(dest, []byte(d.content), 0644)
	}
	return nil
}

func TestFetch(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "audio", "guild.opus")

	tests := []struct {
		name       string
		track      track.Track
		downloader *fakeDownloader
		wantErr    error
		wantCalls  int
	}{
		{
			name:       "success",
			track:      track.New("vid1", "Song"),
			downloader: &fakeDownloader{write: true, content: "new"},
			wantCalls:  1,
		},
		{
			name:       "pending track never downloads",
			track:      track.NewPending("Song Artist"),
			downloader: &fakeDownloader{write: true},
			wantErr:    ErrUnresolved,
			wantCalls:  0,
		},
		{
			name:       "downloader error",
			track:      track.New("vid1", "Song"),
			downloader: &fakeDownloader{err: errors.New("yt-dlp failed")},
			wantErr:    ErrFetchFailed,
			wantCalls:  1,
		},
		{
			name:       "no artifact produced",
			track:      track.New("vid1", "Song"),
			downloader: &fakeDownloader{},
			wantErr:    ErrFetchFailed,
			wantCalls:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(dest)

			f := New(tt.downloader, time.Minute)
			err := f.Fetch(context.Background(), tt.track, dest)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, tt.downloader.calls, tt.wantCalls)
		})
	}
}

func TestFetch_RemovesStaleArtifact(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guild.opus")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0644))

	// Downloader that fails leaves nothing behind
	f := New(&fakeDownloader{err: errors.New("offline")}, 0)
	err := f.Fetch(context.Background(), track.New("vid1", "Song"), dest)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetch_Overwrites(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guild.opus")
	require.NoError(t, os.WriteFile(dest, []byte("stale"), 0644))

	f := New(&fakeDownloader{write: true, content: "fresh"}, 0)
	require.NoError(t, f.Fetch(context.Background(), track.New("vid1", "Song"), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "fresh", string(data))
}

func TestStart(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guild.opus")

	f := New(&fakeDownloader{write: true}, 0)
	select {
	case err := <-f.Start(context.Background(), track.New("vid1", "Song"), dest):
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("fetch did not complete")
	}
}

func TestStart_RecoversPanic(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "guild.opus")

	f := New(&fakeDownloader{panics: true}, 0)
	err := <-f.Start(context.Background(), track.New("vid1", "Song"), dest)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetchFailed))
}
