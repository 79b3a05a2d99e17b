package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseReference(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Reference
	}{
		{
			name:     "watch url",
			input:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: Reference{Kind: KindVideo, ID: "dQw4w9WgXcQ"},
		},
		{
			name:     "watch url inside playlist",
			input:    "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123",
			expected: Reference{Kind: KindVideo, ID: "dQw4w9WgXcQ"},
		},
		{
			name:     "short link",
			input:    "https://youtu.be/dQw4w9WgXcQ?t=10",
			expected: Reference{Kind: KindVideo, ID: "dQw4w9WgXcQ"},
		},
		{
			name:     "shorts",
			input:    "https://youtube.com/shorts/abc",
			expected: Reference{Kind: KindVideo, ID: "abc"},
		},
		{
			name:     "playlist url",
			input:    "https://www.youtube.com/playlist?list=PL123",
			expected: Reference{Kind: KindPlaylist, ID: "PL123"},
		},
		{
			name:     "spotify album url",
			input:    "https://open.spotify.com/album/4aawyAB9vmqN3uQ7FjRGTy?si=x",
			expected: Reference{Kind: KindSpotifyAlbum, ID: "4aawyAB9vmqN3uQ7FjRGTy"},
		},
		{
			name:     "localized spotify playlist url",
			input:    "https://open.spotify.com/intl-ja/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: Reference{Kind: KindSpotifyPlaylist, ID: "37i9dQZF1DXcBWIGoYBM5M"},
		},
		{
			name:     "spotify playlist uri",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: Reference{Kind: KindSpotifyPlaylist, ID: "37i9dQZF1DXcBWIGoYBM5M"},
		},
		{
			name:     "spotify track uri is searched",
			input:    "spotify:track:abc",
			expected: Reference{Kind: KindSearch, ID: "spotify:track:abc"},
		},
		{
			name:     "free text",
			input:    "  never gonna give you up ",
			expected: Reference{Kind: KindSearch, ID: "never gonna give you up"},
		},
		{
			name:     "unrelated url",
			input:    "https://example.com/watch?v=abc",
			expected: Reference{Kind: KindSearch, ID: "https://example.com/watch?v=abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseReference(tt.input))
		})
	}
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "video", KindVideo.String())
	assert.Equal(t, "spotify_album", KindSpotifyAlbum.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
