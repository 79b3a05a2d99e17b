// Package spotify provides a client for the Spotify Web API.
package spotify

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/osa030/jukebot/internal/domain/track"
)

// Client is a Spotify API client using the client-credentials flow.
// Spotify does not address playable media, so every imported track is pending.
type Client struct {
	client     *spotify.Client
	market     string
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	Market       string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	// Token is fetched lazily and refreshed by the transport
	return newWithClient(spotify.New(creds.Client(ctx)), cfg.Market), nil
}

func newWithClient(client *spotify.Client, market string) *Client {
	return &Client{
		client:     client,
		market:     market,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// GetAlbumTracks returns up to limit tracks of an album as pending tracks.
// albumRef may be an ID, URL, or URI.
func (c *Client) GetAlbumTracks(ctx context.Context, albumRef string, limit int) ([]track.Track, error) {
	albumID := extractAlbumID(albumRef)
	if albumID == "" {
		return nil, errors.New("invalid album URL")
	}

	opts := append(c.marketOpts(), spotify.Limit(clampLimit(limit)))

	var page *spotify.SimpleTrackPage
	err := c.retry(func() error {
		p, err := c.client.GetAlbumTracks(ctx, spotify.ID(albumID), opts...)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get album tracks")
	}

	tracks := make([]track.Track, 0, len(page.Tracks))
	for _, t := range page.Tracks {
		tracks = append(tracks, convertTrack(t.Name, t.Artists))
	}

	zlog.Debug().Msgf("spotify album imported: id=%s, tracks=%d", albumID, len(tracks))
	return truncate(tracks, limit), nil
}

// GetPlaylistTracks returns up to limit tracks of a playlist as pending tracks.
// Episodes are skipped. playlistRef may be an ID, URL, or URI.
func (c *Client) GetPlaylistTracks(ctx context.Context, playlistRef string, limit int) ([]track.Track, error) {
	playlistID := extractPlaylistID(playlistRef)
	if playlistID == "" {
		return nil, errors.New("invalid playlist URL")
	}

	opts := append(c.marketOpts(), spotify.Limit(clampLimit(limit)))

	var page *spotify.PlaylistItemPage
	err := c.retry(func() error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get playlist items")
	}

	tracks := make([]track.Track, 0, len(page.Items))
	for _, item := range page.Items {
		// Only process tracks (exclude episodes)
		if item.Track.Track == nil || item.Track.Track.Name == "" {
			continue
		}
		tracks = append(tracks, convertTrack(item.Track.Track.Name, item.Track.Track.Artists))
	}

	zlog.Debug().Msgf("spotify playlist imported: id=%s, tracks=%d", playlistID, len(tracks))
	return truncate(tracks, limit), nil
}

func (c *Client) marketOpts() []spotify.RequestOption {
	if c.market == "" {
		return nil
	}
	return []spotify.RequestOption{spotify.Market(c.market)}
}

// convertTrack builds a pending track titled "<name> <primary artist>",
// which is the query later used to find an equivalent video.
func convertTrack(name string, artists []spotify.SimpleArtist) track.Track {
	title := name
	if len(artists) > 0 && artists[0].Name != "" {
		title = name + " " + artists[0].Name
	}
	return track.NewPending(title)
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 50 {
		return 50
	}
	return limit
}

func truncate(tracks []track.Track, limit int) []track.Track {
	if limit > 0 && len(tracks) > limit {
		return tracks[:limit]
	}
	return tracks
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	return extractID(input, "playlist")
}

// extractAlbumID extracts the album ID from a Spotify album URL or URI.
func extractAlbumID(input string) string {
	return extractID(input, "album")
}

// extractID handles "spotify:<kind>:ID", "https://open.spotify.com[/intl-xx]/<kind>/ID?..."
// and bare IDs.
func extractID(input, kind string) string {
	input = strings.TrimSpace(input)
	if prefix := "spotify:" + kind + ":"; strings.HasPrefix(input, prefix) {
		return strings.TrimPrefix(input, prefix)
	}

	sep := "/" + kind + "/"
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, sep) {
		parts := strings.Split(input, sep)
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	// Assume it's already an ID
	return input
}
