package playback

import "github.com/osa030/jukebot/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted  EventType = iota // Track started playing
	EventTrackSkipped                   // Track dropped before playing (unresolvable or rejected)
	EventFetchFailed                    // Audio could not be downloaded
	EventQueueRefilled                  // Next remote playlist page appended
	EventStateChanged                   // Controller state changed
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackSkipped:
		return "track_skipped"
	case EventFetchFailed:
		return "fetch_failed"
	case EventQueueRefilled:
		return "queue_refilled"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type   EventType
	Track  *track.Track // Track concerned (nil for state changes)
	State  State        // Controller state at emission
	Reason LeaveReason  // Set when State is StateEnded
	Code   string       // Filter code for EventTrackSkipped
}
