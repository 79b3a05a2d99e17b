// Package ytdlp downloads audio with the yt-dlp binary.
package ytdlp

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lrstanley/go-ytdlp"
	zlog "github.com/rs/zerolog/log"
)

const (
	watchURL         = "https://www.youtube.com/watch?v="
	pageDurationArgs = "ExtractAudio:-page_duration 20000"
)

// Config represents downloader configuration.
type Config struct {
	Format      string // yt-dlp format selector
	AudioFormat string // extracted audio codec
	Proxy       string
}

// Downloader fetches a video's audio track to a local file.
type Downloader struct {
	cfg Config
}

// New creates a new Downloader.
func New(cfg Config) *Downloader {
	if cfg.Format == "" {
		cfg.Format = "bestaudio/best"
	}
	if cfg.AudioFormat == "" {
		cfg.AudioFormat = "opus"
	}
	return &Downloader{cfg: cfg}
}

// Download writes the audio of videoID to dest.
// dest's extension must match the configured audio format.
func (d *Downloader) Download(ctx context.Context, videoID, dest string) error {
	cmd := ytdlp.New().
		Format(d.cfg.Format).
		NoPlaylist().
		NoPart().
		NoWarnings().
		IgnoreConfig().
		ExtractAudio().
		AudioFormat(d.cfg.AudioFormat).
		// One Opus packet per Ogg page so each page can be sent as a voice frame
		PostProcessorArgs(pageDurationArgs).
		Output(OutputTemplate(dest))

	if d.cfg.Proxy != "" {
		cmd.Proxy(d.cfg.Proxy)
	}

	zlog.Debug().Msgf("yt-dlp download: video=%s, dest=%s", videoID, dest)

	res, err := cmd.Run(ctx, VideoURL(videoID))
	if err != nil {
		if res != nil && res.Stderr != "" {
			return errors.Wrapf(err, "yt-dlp failed: %s", lastLine(res.Stderr))
		}
		return errors.Wrap(err, "yt-dlp failed")
	}
	return nil
}

// VideoURL returns the watch URL for a video ID.
func VideoURL(videoID string) string {
	return watchURL + videoID
}

// OutputTemplate swaps dest's extension for yt-dlp's %(ext)s placeholder so
// the post-processed file lands exactly on dest.
func OutputTemplate(dest string) string {
	return strings.TrimSuffix(dest, filepath.Ext(dest)) + ".%(ext)s"
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
