// Package playback drives a session's queue through its voice backend.
package playback

// State represents the controller lifecycle state.
type State int

const (
	StateConnecting State = iota // Attaching to the voice backend
	StateActive                  // Polling the backend and advancing the queue
	StateEnded                   // Terminal; a new controller is needed to play again
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// LeaveReason is why a controller ended.
type LeaveReason int

const (
	ReasonNone           LeaveReason = iota
	ReasonChannelEmpty                // No listeners left in the voice channel
	ReasonPlaylistEmpty               // Nothing left to play
	ReasonKicked                      // Disconnected by someone else
	ReasonStopped                     // Leave requested or shutdown
	ReasonAttachFailed                // Could not join the voice channel
	ReasonPlaybackFailed              // Backend refused to play
)

// String returns the string representation of the reason.
func (r LeaveReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonChannelEmpty:
		return "channel_empty"
	case ReasonPlaylistEmpty:
		return "playlist_empty"
	case ReasonKicked:
		return "kicked"
	case ReasonStopped:
		return "stopped"
	case ReasonAttachFailed:
		return "attach_failed"
	case ReasonPlaybackFailed:
		return "playback_failed"
	default:
		return "unknown"
	}
}

// Message returns the user-facing text for the reason.
func (r LeaveReason) Message() string {
	switch r {
	case ReasonChannelEmpty:
		return "Channel is empty."
	case ReasonPlaylistEmpty:
		return "Playlist is empty."
	case ReasonKicked:
		return "I was kicked :("
	case ReasonStopped:
		return "Stopped."
	case ReasonAttachFailed:
		return "Could not join the voice channel."
	default:
		return "Some error occurred."
	}
}
