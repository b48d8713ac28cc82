package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"q-pipecat/internal/observability"
	"q-pipecat/internal/voice/audio"
	"q-pipecat/internal/voice/model"

	"github.com/gorilla/websocket"
)

const (
	DefaultRealtimeURL        = "wss://api.openai.com/v1/realtime"
	DefaultVoice              = "alloy"
	DefaultTranscriptionModel = "whisper-1"
	DefaultSilenceDuration    = 500 * time.Millisecond

	writeTimeout = 5 * time.Second
)

var ErrMissingAPIKey = errors.New("OpenAI API key is required")

// RealtimeConfig holds configuration for a speech-to-speech session.
type RealtimeConfig struct {
	APIKey             string
	Model              string // e.g. "gpt-4o-realtime-preview-2024-12-17"
	URL                string // defaults to DefaultRealtimeURL
	Voice              string
	Instructions       string
	Greeting           string        // spoken by Greet when set
	TranscriptionModel string        // input transcription, e.g. "whisper-1"
	SilenceDuration    time.Duration // server VAD silence before the model replies
}

// serverEvent covers the fields read from the realtime server events used here
type serverEvent struct {
	Type       string `json:"type"`
	Delta      string `json:"delta"`
	Transcript string `json:"transcript"`
	Error      *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// RealtimeSession is a model.Session over the OpenAI realtime websocket API.
type RealtimeSession struct {
	config RealtimeConfig
	logger *observability.Logger

	conn       *websocket.Conn
	writeMutex sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	closeOnce  sync.Once
}

var _ model.Session = (*RealtimeSession)(nil)

func NewRealtimeSession(cfg RealtimeConfig, logger *observability.Logger) (*RealtimeSession, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.URL == "" {
		cfg.URL = DefaultRealtimeURL
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	if cfg.TranscriptionModel == "" {
		cfg.TranscriptionModel = DefaultTranscriptionModel
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = DefaultSilenceDuration
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &RealtimeSession{config: cfg, logger: logger, ctx: ctx, cancel: cancel}, nil
}

// Start opens the websocket, configures the session and streams audioIn to
// the model. The returned channel closes when the connection ends.
func (s *RealtimeSession) Start(ctx context.Context, audioIn <-chan []byte) (<-chan model.Event, error) {
	endpoint, err := url.Parse(s.config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid realtime url: %w", err)
	}
	if s.config.Model != "" {
		q := endpoint.Query()
		q.Set("model", s.config.Model)
		endpoint.RawQuery = q.Encode()
	}

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.config.APIKey)
	headers.Set("OpenAI-Beta", "realtime=v1")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint.String(), headers)
	if err != nil {
		s.logger.Error(ctx, "Failed to connect to OpenAI realtime endpoint", err)
		return nil, fmt.Errorf("failed to connect to realtime endpoint: %w", err)
	}
	s.conn = conn

	if err := s.write(s.sessionUpdate()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send session update: %w", err)
	}

	events := make(chan model.Event, 64)
	go s.receive(events)
	go s.sendAudio(audioIn)

	s.logger.Info(ctx, fmt.Sprintf("Connected to OpenAI realtime model %s", s.config.Model))
	return events, nil
}

func (s *RealtimeSession) sessionUpdate() map[string]interface{} {
	return map[string]interface{}{
		"type": "session.update",
		"session": map[string]interface{}{
			"modalities":          []string{"audio", "text"},
			"instructions":        s.config.Instructions,
			"voice":               s.config.Voice,
			"input_audio_format":  "pcm16",
			"output_audio_format": "pcm16",
			"input_audio_transcription": map[string]interface{}{
				"model": s.config.TranscriptionModel,
			},
			"turn_detection": map[string]interface{}{
				"type":                "server_vad",
				"threshold":           0.5,
				"prefix_padding_ms":   300,
				"silence_duration_ms": s.config.SilenceDuration.Milliseconds(),
			},
		},
	}
}

// Greet asks the model to speak first.
func (s *RealtimeSession) Greet(ctx context.Context) error {
	event := map[string]interface{}{"type": "response.create"}
	if s.config.Greeting != "" {
		event["response"] = map[string]interface{}{
			"instructions": fmt.Sprintf("Greet the caller by saying exactly: %q", s.config.Greeting),
		}
	}
	if err := s.write(event); err != nil {
		return fmt.Errorf("failed to request greeting: %w", err)
	}
	return nil
}

func (s *RealtimeSession) receive(events chan<- model.Event) {
	defer close(events)

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Info(s.ctx, "OpenAI realtime session closed")
				return
			}
			s.logger.Error(s.ctx, "OpenAI realtime read error", err)
			s.emit(events, model.Event{Type: model.EventError, Err: fmt.Errorf("%w: %w", model.ErrSessionClosed, err)})
			return
		}

		var event serverEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			s.logger.Error(s.ctx, "Failed to parse realtime event", err)
			continue
		}

		switch event.Type {
		case "response.audio.delta":
			pcm, err := audio.Base64ToBytes(event.Delta)
			if err != nil {
				s.logger.Error(s.ctx, "Failed to decode model audio", err)
				continue
			}
			if !s.emit(events, model.Event{Type: model.EventAudio, Audio: pcm}) {
				return
			}

		case "response.audio_transcript.done":
			if !s.emit(events, model.Event{Type: model.EventTranscript, Role: model.RoleAssistant, Text: event.Transcript}) {
				return
			}

		case "conversation.item.input_audio_transcription.completed":
			if !s.emit(events, model.Event{Type: model.EventTranscript, Role: model.RoleUser, Text: event.Transcript}) {
				return
			}

		case "input_audio_buffer.speech_started":
			if !s.emit(events, model.Event{Type: model.EventInterrupted}) {
				return
			}

		case "error":
			if event.Error != nil {
				s.logger.Error(s.ctx, "OpenAI realtime error event", fmt.Errorf("%s: %s", event.Error.Code, event.Error.Message))
			}

		case "session.created", "session.updated":
			s.logger.Debug(s.ctx, fmt.Sprintf("Realtime %s", event.Type))
		}
	}
}

func (s *RealtimeSession) emit(events chan<- model.Event, ev model.Event) bool {
	select {
	case events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *RealtimeSession) sendAudio(audioIn <-chan []byte) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case chunk, ok := <-audioIn:
			if !ok {
				s.logger.Debug(s.ctx, "Model audio input closed")
				return
			}
			err := s.write(map[string]interface{}{
				"type":  "input_audio_buffer.append",
				"audio": audio.BytesToBase64(chunk),
			})
			if err != nil {
				if s.ctx.Err() == nil {
					s.logger.Error(s.ctx, "Failed to send audio chunk", err)
				}
				return
			}
		}
	}
}

func (s *RealtimeSession) write(event interface{}) error {
	if s.ctx.Err() != nil || s.conn == nil {
		return model.ErrSessionClosed
	}

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return s.conn.WriteJSON(event)
}

func (s *RealtimeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		if s.conn == nil {
			return
		}
		s.writeMutex.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		s.writeMutex.Unlock()
		err = s.conn.Close()
	})
	return err
}
