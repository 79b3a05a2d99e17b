// Package resolver turns user references into tracks using the remote catalogs.
package resolver

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/jukebot/internal/domain/playlist"
	"github.com/osa030/jukebot/internal/domain/track"
	"github.com/osa030/jukebot/internal/infra/youtube"
)

var (
	// ErrNotFound is returned when a lookup yields nothing.
	ErrNotFound = errors.New("not found")
	// ErrUnavailable is returned when the secondary catalog is not configured.
	ErrUnavailable = errors.New("catalog not configured")
)

// Placeholder titles the video catalog returns for removed playlist entries.
var placeholderTitles = map[string]bool{
	"Deleted video": true,
	"Private video": true,
}

// VideoCatalog is the primary catalog addressing playable videos.
type VideoCatalog interface {
	GetVideo(ctx context.Context, videoID string) (*youtube.Video, error)
	Search(ctx context.Context, query string, limit int) ([]youtube.Video, error)
	GetPlaylistItems(ctx context.Context, playlistID, pageToken string, limit int) (*youtube.PlaylistPage, error)
}

// MusicCatalog is the secondary catalog. Its tracks are returned pending.
type MusicCatalog interface {
	GetAlbumTracks(ctx context.Context, albumRef string, limit int) ([]track.Track, error)
	GetPlaylistTracks(ctx context.Context, playlistRef string, limit int) ([]track.Track, error)
}

// Config represents resolver configuration.
type Config struct {
	PageSize    int // Items per collection import
	SearchLimit int // Results per text search
}

// Resolver looks up tracks in the remote catalogs.
type Resolver struct {
	videos VideoCatalog
	music  MusicCatalog
	cfg    Config
}

// New creates a new Resolver. music may be nil.
func New(videos VideoCatalog, music MusicCatalog, cfg Config) *Resolver {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 30
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 5
	}
	return &Resolver{
		videos: videos,
		music:  music,
		cfg:    cfg,
	}
}

// ResolveSingle looks up a video by ID.
func (r *Resolver) ResolveSingle(ctx context.Context, videoID string) (track.Track, error) {
	v, err := r.videos.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, youtube.ErrNotFound) {
			return track.Track{}, errors.Mark(err, ErrNotFound)
		}
		return track.Track{}, errors.Wrap(err, "failed to resolve video")
	}

	t := track.New(v.ID, v.Title)
	t.Duration = v.Duration
	t.ThumbnailURL = v.ThumbnailURL
	return t, nil
}

// ImportRemoteCollection fetches one page of a video playlist starting at
// pageToken. Removed entries are dropped.
func (r *Resolver) ImportRemoteCollection(ctx context.Context, collectionID, pageToken string) (playlist.Page, error) {
	page, err := r.videos.GetPlaylistItems(ctx, collectionID, pageToken, r.cfg.PageSize)
	if err != nil {
		if errors.Is(err, youtube.ErrNotFound) {
			return playlist.Page{}, errors.Mark(err, ErrNotFound)
		}
		return playlist.Page{}, errors.Wrap(err, "failed to import playlist")
	}

	tracks := make([]track.Track, 0, len(page.Items))
	for _, item := range page.Items {
		if placeholderTitles[item.Title] || item.ID == "" {
			continue
		}
		tracks = append(tracks, track.New(item.ID, item.Title))
	}

	zlog.Debug().Msgf("playlist page imported: id=%s, items=%d, kept=%d, next=%q",
		collectionID, len(page.Items), len(tracks), page.NextPageToken)

	return playlist.Page{Tracks: tracks, NextPageToken: page.NextPageToken}, nil
}

// Search returns candidate tracks for free text. Durations are left unknown.
func (r *Resolver) Search(ctx context.Context, text string) ([]track.Track, error) {
	videos, err := r.videos.Search(ctx, text, r.cfg.SearchLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search")
	}

	tracks := make([]track.Track, 0, len(videos))
	for _, v := range videos {
		t := track.New(v.ID, v.Title)
		t.ThumbnailURL = v.ThumbnailURL
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// ImportExternalAlbum imports up to one page of album tracks as pending tracks.
func (r *Resolver) ImportExternalAlbum(ctx context.Context, albumID string) ([]track.Track, error) {
	if r.music == nil {
		return nil, ErrUnavailable
	}
	tracks, err := r.music.GetAlbumTracks(ctx, albumID, r.cfg.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to import album")
	}
	return tracks, nil
}

// ImportExternalPlaylist imports up to one page of playlist tracks as pending tracks.
func (r *Resolver) ImportExternalPlaylist(ctx context.Context, playlistID string) ([]track.Track, error) {
	if r.music == nil {
		return nil, ErrUnavailable
	}
	tracks, err := r.music.GetPlaylistTracks(ctx, playlistID, r.cfg.PageSize)
	if err != nil {
		return nil, errors.Wrap(err, "failed to import playlist")
	}
	return tracks, nil
}

// ResolveEquivalent finds a video for a pending track by searching its title.
// The first hit's video is adopted; the title is kept. Resolved tracks are
// returned unchanged.
func (r *Resolver) ResolveEquivalent(ctx context.Context, t track.Track) (track.Track, error) {
	if !t.ID.IsPending() {
		return t, nil
	}

	videos, err := r.videos.Search(ctx, t.Title, 1)
	if err != nil {
		return t, errors.Wrapf(err, "failed to search for %q", t.Title)
	}
	if len(videos) == 0 {
		return t, errors.Wrapf(ErrNotFound, "no video for %q", t.Title)
	}

	t.ID = track.Resolved(videos[0].ID)
	zlog.Debug().Msgf("resolved equivalent: title=%q, video=%s", t.Title, videos[0].ID)
	return t, nil
}

// FetchDuration returns the authoritative duration of a resolved track.
// Any failure yields 0, meaning unknown.
func (r *Resolver) FetchDuration(ctx context.Context, t track.Track) time.Duration {
	videoID, ok := t.ID.Get()
	if !ok {
		return 0
	}

	v, err := r.videos.GetVideo(ctx, videoID)
	if err != nil {
		zlog.Warn().Err(err).Msgf("failed to fetch duration: video=%s", videoID)
		return 0
	}
	return v.Duration
}
