// Package fetcher retrieves a playable local audio artifact for a track.
package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/track"
)

var (
	// ErrFetchFailed is returned when the download or extraction fails.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrUnresolved is returned for tracks without a video reference.
	ErrUnresolved = errors.New("track is not resolved")
)

// Downloader writes the audio of a video to dest.
type Downloader interface {
	Download(ctx context.Context, videoID, dest string) error
}

// Fetcher produces the session's audio artifact.
// Each call overwrites whatever artifact was previously at dest.
type Fetcher struct {
	downloader Downloader
	timeout    time.Duration
}

// New creates a new Fetcher. A zero timeout disables the deadline.
func New(downloader Downloader, timeout time.Duration) *Fetcher {
	return &Fetcher{
		downloader: downloader,
		timeout:    timeout,
	}
}

// Fetch downloads t to dest, blocking until it completes.
func (f *Fetcher) Fetch(ctx context.Context, t track.Track, dest string) error {
	videoID, ok := t.ID.Get()
	if !ok {
		return errors.Wrapf(ErrUnresolved, "cannot fetch %q", t.Title)
	}

	if err := os.Remove(dest); err != nil && !os.IsNotExist(err) {
		return markFailed(errors.Wrap(err, "failed to remove stale artifact"))
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return markFailed(errors.Wrap(err, "failed to create audio directory"))
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := f.downloader.Download(ctx, videoID, dest); err != nil {
		return markFailed(errors.Wrapf(err, "failed to download %s", videoID))
	}

	if _, err := os.Stat(dest); err != nil {
		return markFailed(errors.Wrap(err, "artifact missing after download"))
	}

	zlog.Info().Msgf("fetched: video=%s, title=%q, elapsed=%s", videoID, t.Title, time.Since(start).Round(time.Millisecond))
	return nil
}

// Start runs Fetch on its own goroutine. The returned channel receives
// exactly one value and is then closed.
func (f *Fetcher) Start(ctx context.Context, t track.Track, dest string) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				done <- markFailed(errors.Newf("panic during fetch: %v", r))
			}
		}()
		done <- f.Fetch(ctx, t, dest)
	}()
	return done
}

func markFailed(err error) error {
	return errors.Mark(err, ErrFetchFailed)
}
