package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c := newWithClient(spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/")), "JP")
	c.retryDelay = 0
	return c
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Localized URL",
			input:    "https://open.spotify.com/intl-ja/playlist/abc123/",
			expected: "abc123",
		},
		{
			name:     "Plain playlist ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractPlaylistID(tt.input))
		})
	}
}

func TestExtractAlbumID(t *testing.T) {
	assert.Equal(t, "4aawyAB9vmqN3uQ7FjRGTy", extractAlbumID("spotify:album:4aawyAB9vmqN3uQ7FjRGTy"))
	assert.Equal(t, "4aawyAB9vmqN3uQ7FjRGTy", extractAlbumID("https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=1"))
	assert.Equal(t, "raw", extractAlbumID(" raw "))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "rate limit error with 429", err: errors.New("Error 429: rate limit exceeded"), expected: true},
		{name: "server error 503", err: errors.New("503 Service Unavailable"), expected: true},
		{name: "client error 400", err: errors.New("400 Bad Request"), expected: false},
		{name: "not found error", err: errors.New("404 not found"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), Config{ClientID: "id"})
	assert.Error(t, err)
}

func TestGetAlbumTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "/albums/ALB1/tracks"), r.URL.Path)
		assert.Equal(t, "JP", r.URL.Query().Get("market"))
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"items": [
				{"id": "t1", "name": "Intro", "artists": [{"name": "Band"}, {"name": "Guest"}]},
				{"id": "t2", "name": "Outro", "artists": []},
				{"id": "t3", "name": "Extra", "artists": [{"name": "Band"}]}
			],
			"total": 3
		}`)
	})

	tracks, err := client.GetAlbumTracks(context.Background(), "spotify:album:ALB1", 2)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Intro Band", tracks[0].Title)
	assert.True(t, tracks[0].ID.IsPending())
	assert.Equal(t, "Outro", tracks[1].Title)
}

func TestGetPlaylistTracks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.Contains(r.URL.Path, "/playlists/PL1/"), r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"items": [
				{"track": {"type": "track", "id": "t1", "name": "Song", "artists": [{"name": "Singer"}]}},
				{"track": {"type": "track", "id": "t2", "name": "Other", "artists": [{"name": "Duo"}]}}
			],
			"total": 2
		}`)
	})

	tracks, err := client.GetPlaylistTracks(context.Background(), "https://open.spotify.com/playlist/PL1?si=x", 30)
	require.NoError(t, err)
	require.Len(t, tracks, 2)
	assert.Equal(t, "Song Singer", tracks[0].Title)
	assert.Equal(t, "Other Duo", tracks[1].Title)
	assert.True(t, tracks[1].ID.IsPending())
}

func TestGetPlaylistTracks_NotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error": {"status": 404, "message": "Not found."}}`)
	})

	_, err := client.GetPlaylistTracks(context.Background(), "PL404", 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get playlist items")
}
