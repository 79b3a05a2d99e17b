package notification

import (
	"context"
	"fmt"

	zlog "github.com/rs/zerolog/log"
)

// Level is the tone of a message.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is a status line for the users of a session.
type Message struct {
	Level      Level
	Text       string
	ImageURL   string // Optional thumbnail
	SequenceNo uint64 // Assigned by the Manager
}

// Info creates an informational message.
func Info(format string, args ...any) Message {
	return Message{Level: LevelInfo, Text: fmt.Sprintf(format, args...)}
}

// Success creates a success message.
func Success(format string, args ...any) Message {
	return Message{Level: LevelSuccess, Text: fmt.Sprintf(format, args...)}
}

// Failure creates an error message.
func Failure(format string, args ...any) Message {
	return Message{Level: LevelError, Text: fmt.Sprintf(format, args...)}
}

// LogSink writes messages to the application log.
type LogSink struct {
	SessionID string
}

// Send implements Sink.
func (s LogSink) Send(ctx context.Context, msg Message) error {
	zlog.Info().Msgf("[%s] %s: session=%s, seq=%d", msg.Level, msg.Text, s.SessionID, msg.SequenceNo)
	return nil
}
