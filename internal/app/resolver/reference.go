package resolver

import (
	"net/url"
	"strings"
)

// Kind classifies a user reference.
type Kind int

const (
	KindSearch Kind = iota
	KindVideo
	KindPlaylist
	KindSpotifyAlbum
	KindSpotifyPlaylist
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindVideo:
		return "video"
	case KindPlaylist:
		return "playlist"
	case KindSpotifyAlbum:
		return "spotify_album"
	case KindSpotifyPlaylist:
		return "spotify_playlist"
	default:
		return "unknown"
	}
}

// Reference is a classified user input.
type Reference struct {
	Kind Kind
	ID   string // Video, playlist or album ID; the query text for KindSearch
}

// ParseReference classifies input as a video, playlist, secondary-catalog
// album or playlist, or falls back to a text search.
// A watch URL carrying both v= and list= refers to the video.
func ParseReference(input string) Reference {
	input = strings.TrimSpace(input)
	search := Reference{Kind: KindSearch, ID: input}

	if rest, ok := strings.CutPrefix(input, "spotify:"); ok {
		kind, id, _ := strings.Cut(rest, ":")
		switch kind {
		case "album":
			return Reference{Kind: KindSpotifyAlbum, ID: id}
		case "playlist":
			return Reference{Kind: KindSpotifyPlaylist, ID: id}
		}
		return search
	}

	u, err := url.Parse(input)
	if err != nil || u.Host == "" {
		return search
	}
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })

	switch {
	case host == "youtu.be":
		if len(segments) > 0 {
			return Reference{Kind: KindVideo, ID: segments[0]}
		}
	case host == "youtube.com" || host == "m.youtube.com" || host == "music.youtube.com":
		q := u.Query()
		if v := q.Get("v"); v != "" {
			return Reference{Kind: KindVideo, ID: v}
		}
		if list := q.Get("list"); list != "" {
			return Reference{Kind: KindPlaylist, ID: list}
		}
		if len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "live") {
			return Reference{Kind: KindVideo, ID: segments[1]}
		}
	case host == "open.spotify.com":
		// Localized links carry an intl-xx segment first
		if len(segments) > 0 && strings.HasPrefix(segments[0], "intl-") {
			segments = segments[1:]
		}
		if len(segments) >= 2 {
			switch segments[0] {
			case "album":
				return Reference{Kind: KindSpotifyAlbum, ID: segments[1]}
			case "playlist":
				return Reference{Kind: KindSpotifyPlaylist, ID: segments[1]}
			}
		}
	}

	return search
}
