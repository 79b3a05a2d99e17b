package track

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// RepeatMode represents how the queue advances after a track ends.
type RepeatMode int

const (
	RepeatOff    RepeatMode = iota // Dequeue normally
	RepeatSingle                   // Replay the current track until skipped
	RepeatAll                      // Re-append finished tracks to the queue
)

// String returns the string representation of the repeat mode.
func (m RepeatMode) String() string {
	switch m {
	case RepeatOff:
		return "off"
	case RepeatSingle:
		return "single"
	case RepeatAll:
		return "all"
	default:
		return "unknown"
	}
}

// ParseRepeatMode converts user input into a RepeatMode.
func ParseRepeatMode(s string) (RepeatMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "0":
		return RepeatOff, nil
	case "single", "one", "track", "1":
		return RepeatSingle, nil
	case "all", "queue", "2":
		return RepeatAll, nil
	default:
		return RepeatOff, errors.Newf("unknown repeat mode: %q", s)
	}
}
