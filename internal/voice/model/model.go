// Package model defines the speech-to-speech session used by the call agent.
package model

import (
	"context"
	"errors"
)

// ErrSessionClosed is returned when a closed session is used
var ErrSessionClosed = errors.New("model session closed")

type EventType int

const (
	// EventAudio carries PCM16 model speech at the bridge sample rate
	EventAudio EventType = iota
	// EventTranscript carries one finished line of conversation text
	EventTranscript
	// EventInterrupted means the caller started speaking over the model
	EventInterrupted
	// EventError carries a terminal session error. No events follow it.
	EventError
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Event struct {
	Type  EventType
	Audio []byte
	Role  string
	Text  string
	Err   error
}

// Session is one live conversation with a remote speech-to-speech model.
// The events channel closes when the session ends.
type Session interface {
	Start(ctx context.Context, audioIn <-chan []byte) (<-chan Event, error)
	Greet(ctx context.Context) error
	Close() error
}

// TranscriptLine is one finished turn of the conversation
type TranscriptLine struct {
	Role string
	Text string
}
