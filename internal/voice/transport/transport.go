// Package transport connects a call agent to its room through the media bridge.
//
// The bridge speaks JSON over a websocket. The agent sends "join", "audio",
// "clear" and "leave"; the bridge sends "joined", "participant-joined",
// "participant-left", "dialin-ready", "audio" and "error". Audio is base64
// PCM16 mono at Params.SampleRate.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"q-pipecat/internal/observability"
	"q-pipecat/internal/voice/audio"

	"github.com/gorilla/websocket"
)

const (
	joinTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
	bufferSize   = 256
)

var (
	ErrJoinFailed = errors.New("failed to join room")
	ErrClosed     = errors.New("transport closed")
)

// Params are the fixed media settings for the agent's room connection
type Params struct {
	SampleRate int    `json:"sample_rate"`
	AudioIn    bool   `json:"audio_in"`
	AudioOut   bool   `json:"audio_out"`
	CameraIn   bool   `json:"camera_in"`
	CameraOut  bool   `json:"camera_out"`
	BotName    string `json:"bot_name"`
}

// DefaultParams returns the audio-only settings every call agent uses
func DefaultParams(botName string) Params {
	return Params{
		SampleRate: audio.BridgeSampleRate,
		AudioIn:    true,
		AudioOut:   true,
		BotName:    botName,
	}
}

// DialinSettings tie the room connection to the held inbound call. They are
// only sent for calls that arrived through Daily's SIP URI.
type DialinSettings struct {
	CallID     string `json:"call_id"`
	CallDomain string `json:"call_domain"`
}

type JoinRequest struct {
	RoomURL string
	Token   string
	Params  Params
	Dialin  *DialinSettings
}

type Participant struct {
	ID       string `json:"id"`
	UserName string `json:"user_name,omitempty"`
}

type EventType string

const (
	EventJoined            EventType = "joined"
	EventParticipantJoined EventType = "participant-joined"
	EventParticipantLeft   EventType = "participant-left"
	EventDialinReady       EventType = "dialin-ready"
	EventAudio             EventType = "audio"
	EventError             EventType = "error"
)

// Event is a room event delivered to the agent. Audio never appears here; it
// is delivered on AudioIn.
type Event struct {
	Type        EventType
	Participant Participant
	Reason      string
	SIPEndpoint string
	Err         error
}

// message is the wire format in both directions
type message struct {
	Type           EventType       `json:"type"`
	RoomURL        string          `json:"room_url,omitempty"`
	Token          string          `json:"token,omitempty"`
	Params         *Params         `json:"params,omitempty"`
	DialinSettings *DialinSettings `json:"dialin_settings,omitempty"`
	Participant    *Participant    `json:"participant,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	SIPEndpoint    string          `json:"sip_endpoint,omitempty"`
	Audio          string          `json:"audio,omitempty"`
	Message        string          `json:"message,omitempty"`
}

type MediaBridge struct {
	conn       *websocket.Conn
	logger     *observability.Logger
	writeMutex sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once

	audioIn  chan []byte
	audioOut chan []byte
	events   chan Event
}

// Connect dials the bridge and joins the room. It returns once the bridge
// confirms the join.
func Connect(ctx context.Context, bridgeURL string, join JoinRequest, logger *observability.Logger) (*MediaBridge, error) {
	dialer := websocket.Dialer{HandshakeTimeout: joinTimeout}
	conn, _, err := dialer.DialContext(ctx, bridgeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to connect to media bridge: %w", ErrJoinFailed, err)
	}

	joinMsg := message{
		Type:           "join",
		RoomURL:        join.RoomURL,
		Token:          join.Token,
		Params:         &join.Params,
		DialinSettings: join.Dialin,
	}
	if err := conn.WriteJSON(joinMsg); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}

	if err := awaitJoined(conn); err != nil {
		conn.Close()
		return nil, err
	}

	bridgeCtx, cancel := context.WithCancel(context.Background())
	b := &MediaBridge{
		conn:     conn,
		logger:   logger,
		ctx:      observability.WithFields(bridgeCtx, observability.Field{Key: "room_url", Value: join.RoomURL}),
		cancel:   cancel,
		audioIn:  make(chan []byte, bufferSize),
		audioOut: make(chan []byte, bufferSize),
		events:   make(chan Event, 16),
	}

	go b.receive()
	go b.send()

	logger.Info(b.ctx, fmt.Sprintf("Joined room as %s", join.Params.BotName))
	return b, nil
}

func awaitJoined(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(joinTimeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("%w: %w", ErrJoinFailed, err)
		}
		switch msg.Type {
		case EventJoined:
			return nil
		case EventError:
			return fmt.Errorf("%w: %s", ErrJoinFailed, msg.Message)
		}
	}
}

// Events delivers room events. It is closed when the connection ends.
func (b *MediaBridge) Events() <-chan Event {
	return b.events
}

// AudioIn delivers caller audio. It is closed when the connection ends.
func (b *MediaBridge) AudioIn() <-chan []byte {
	return b.audioIn
}

// AudioOut accepts agent audio for the caller.
func (b *MediaBridge) AudioOut() chan<- []byte {
	return b.audioOut
}

// Interrupt discards agent audio the bridge has queued but not yet played.
func (b *MediaBridge) Interrupt() error {
	return b.write(message{Type: "clear"})
}

func (b *MediaBridge) receive() {
	defer close(b.events)
	defer close(b.audioIn)

	for {
		_, raw, err := b.conn.ReadMessage()
		if err != nil {
			if b.ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Info(b.ctx, "Media bridge closed")
			} else {
				b.logger.Error(b.ctx, "Media bridge read error", err)
				b.emit(Event{Type: EventError, Err: fmt.Errorf("%w: %w", ErrClosed, err)})
			}
			return
		}

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil {
			b.logger.Error(b.ctx, "Failed to parse media bridge event", err)
			continue
		}

		switch msg.Type {
		case EventAudio:
			pcm, err := audio.Base64ToBytes(msg.Audio)
			if err != nil {
				b.logger.Error(b.ctx, "Failed to decode audio", err)
				continue
			}
			select {
			case b.audioIn <- pcm:
			case <-b.ctx.Done():
				return
			default:
				b.logger.Warn(b.ctx, "Audio input buffer full, dropping chunk")
			}

		case EventParticipantJoined, EventParticipantLeft, EventDialinReady:
			ev := Event{Type: msg.Type, Reason: msg.Reason, SIPEndpoint: msg.SIPEndpoint}
			if msg.Participant != nil {
				ev.Participant = *msg.Participant
			}
			if !b.emit(ev) {
				return
			}

		case EventError:
			if !b.emit(Event{Type: EventError, Err: errors.New(msg.Message)}) {
				return
			}

		default:
			b.logger.Debug(b.ctx, fmt.Sprintf("Unknown media bridge event: %s", msg.Type))
		}
	}
}

func (b *MediaBridge) emit(ev Event) bool {
	select {
	case b.events <- ev:
		return true
	case <-b.ctx.Done():
		return false
	}
}

func (b *MediaBridge) send() {
	for {
		select {
		case <-b.ctx.Done():
			return
		case pcm := <-b.audioOut:
			if err := b.write(message{Type: EventAudio, Audio: audio.BytesToBase64(pcm)}); err != nil {
				if b.ctx.Err() == nil {
					b.logger.Error(b.ctx, "Failed to send audio to media bridge", err)
				}
				return
			}
		}
	}
}

func (b *MediaBridge) write(msg message) error {
	if b.ctx.Err() != nil {
		return ErrClosed
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	b.writeMutex.Lock()
	defer b.writeMutex.Unlock()
	if err := b.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Close leaves the room and closes the connection. It is safe to call more than once.
func (b *MediaBridge) Close() error {
	var err error
	b.closeOnce.Do(func() {
		b.logger.Info(b.ctx, "Leaving room")

		// Best effort: the bridge may already be gone.
		_ = b.write(message{Type: "leave"})
		b.cancel()

		b.writeMutex.Lock()
		_ = b.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		b.writeMutex.Unlock()

		err = b.conn.Close()
	})
	return err
}
