// Package track provides the Track domain entity.
package track

import "time"

// ID is the reference to a track's playable source.
// The zero value is pending: the track was imported from a catalog that does not
// address playable media and must be resolved before it can be fetched.
type ID struct {
	value string
}

// Resolved returns an ID pointing at a playable video.
// An empty value yields a pending ID.
func Resolved(id string) ID {
	return ID{value: id}
}

// Pending returns an unresolved ID.
func Pending() ID {
	return ID{}
}

// Get returns the video ID and whether the track is resolved.
func (i ID) Get() (string, bool) {
	return i.value, i.value != ""
}

// IsPending reports whether the ID still needs resolution.
func (i ID) IsPending() bool {
	return i.value == ""
}

// String returns the video ID or "<pending>".
func (i ID) String() string {
	if i.value == "" {
		return "<pending>"
	}
	return i.value
}

// Track represents one queued or playing item.
type Track struct {
	ID           ID            // Video reference (may be pending)
	Title        string        // Display title
	Duration     time.Duration // 0 means unknown
	ThumbnailURL string        // Thumbnail (search results only)
	StartTime    time.Time     // Set when playback starts
}

// New creates a resolved track.
func New(videoID, title string) Track {
	return Track{ID: Resolved(videoID), Title: title}
}

// NewPending creates a track that still needs a video reference.
func NewPending(title string) Track {
	return Track{ID: Pending(), Title: title}
}

// PercentPlayed returns the fraction of the track played at now.
// Returns 0 when the duration is unknown or playback has not started.
func (t *Track) PercentPlayed(now time.Time) float64 {
	if t.Duration <= 0 || t.StartTime.IsZero() {
		return 0
	}
	return float64(now.Sub(t.StartTime)) / float64(t.Duration)
}
