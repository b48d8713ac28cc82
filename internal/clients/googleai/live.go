package googleai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"q-pipecat/internal/observability"
	"q-pipecat/internal/voice/audio"
	"q-pipecat/internal/voice/model"

	"google.golang.org/genai"
)

const (
	DefaultVoice = "Aoede"

	inputMIMEType = "audio/pcm;rate=16000"
)

var ErrMissingAPIKey = errors.New("Google AI API key is required")

// LiveConfig holds configuration for a Gemini Live voice session
type LiveConfig struct {
	APIKey       string
	Model        string // e.g. "gemini-2.5-flash-preview-native-audio-dialog"
	Voice        string
	Instructions string
	Greeting     string
}

// LiveSession is a model.Session over the Gemini Live API. Audio from the
// bridge is resampled to 16kHz; model audio is 24kHz PCM and passes through.
type LiveSession struct {
	client *genai.Client
	config LiveConfig
	logger *observability.Logger

	session   *genai.Session
	sendMu    sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// Transcription arrives in fragments and is flushed on turn completion.
	userText  strings.Builder
	modelText strings.Builder
}

var _ model.Session = (*LiveSession)(nil)

func NewLiveSession(ctx context.Context, cfg LiveConfig, logger *observability.Logger) (*LiveSession, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google AI client: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())
	return &LiveSession{
		client: client,
		config: cfg,
		logger: logger,
		ctx:    sessionCtx,
		cancel: cancel,
	}, nil
}

func (g *LiveSession) connectConfig() *genai.LiveConnectConfig {
	return &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.Modality("AUDIO")},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: g.config.Instructions}},
		},
		InputAudioTranscription:  &genai.AudioTranscriptionConfig{},
		OutputAudioTranscription: &genai.AudioTranscriptionConfig{},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: g.config.Voice,
				},
			},
		},
		RealtimeInputConfig: &genai.RealtimeInputConfig{
			AutomaticActivityDetection: &genai.AutomaticActivityDetection{
				Disabled: false,
			},
		},
	}
}

// Start connects to the Live API and streams audioIn to the model.
func (g *LiveSession) Start(ctx context.Context, audioIn <-chan []byte) (<-chan model.Event, error) {
	session, err := g.client.Live.Connect(g.ctx, g.config.Model, g.connectConfig())
	if err != nil {
		g.logger.Error(ctx, "Failed to connect to Google AI Live API", err)
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	g.session = session

	g.logger.Info(ctx, fmt.Sprintf("Connected to Google AI Live API model %s", g.config.Model))

	events := make(chan model.Event, 64)
	go g.receive(events)
	go g.sendAudio(audioIn)

	return events, nil
}

// Greet sends the greeting as a text turn so the model speaks first.
func (g *LiveSession) Greet(ctx context.Context) error {
	prompt := "The caller has joined. Greet them."
	if g.config.Greeting != "" {
		prompt = fmt.Sprintf("The caller has joined. Greet them by saying exactly: %q", g.config.Greeting)
	}
	if err := g.send(genai.LiveRealtimeInput{Text: prompt}); err != nil {
		return fmt.Errorf("failed to request greeting: %w", err)
	}
	return nil
}

func (g *LiveSession) receive(events chan<- model.Event) {
	defer close(events)

	for {
		msg, err := g.session.Receive()
		if err != nil {
			if g.ctx.Err() != nil {
				g.logger.Info(g.ctx, "Google AI session closed, stopping receive goroutine")
				return
			}
			g.logger.Error(g.ctx, "Unexpected error receiving message", err)
			g.emit(events, model.Event{Type: model.EventError, Err: fmt.Errorf("%w: %w", model.ErrSessionClosed, err)})
			return
		}

		for _, ev := range g.translate(msg) {
			if !g.emit(events, ev) {
				return
			}
		}
	}
}

// translate converts one server message into session events.
func (g *LiveSession) translate(msg *genai.LiveServerMessage) []model.Event {
	if msg == nil || msg.ServerContent == nil {
		return nil
	}
	content := msg.ServerContent

	var out []model.Event
	if content.Interrupted {
		out = append(out, model.Event{Type: model.EventInterrupted})
	}
	if content.InputTranscription != nil {
		g.userText.WriteString(content.InputTranscription.Text)
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				out = append(out, model.Event{Type: model.EventAudio, Audio: part.InlineData.Data})
			}
		}
	}
	if content.OutputTranscription != nil {
		g.modelText.WriteString(content.OutputTranscription.Text)
	}

	if content.TurnComplete || content.Interrupted {
		if text := strings.TrimSpace(g.userText.String()); text != "" {
			out = append(out, model.Event{Type: model.EventTranscript, Role: model.RoleUser, Text: text})
		}
		if text := strings.TrimSpace(g.modelText.String()); text != "" {
			out = append(out, model.Event{Type: model.EventTranscript, Role: model.RoleAssistant, Text: text})
		}
		g.userText.Reset()
		g.modelText.Reset()
	}
	return out
}

func (g *LiveSession) emit(events chan<- model.Event, ev model.Event) bool {
	select {
	case events <- ev:
		return true
	case <-g.ctx.Done():
		return false
	}
}

func (g *LiveSession) sendAudio(audioIn <-chan []byte) {
	audioChunkCount := 0
	for {
		select {
		case <-g.ctx.Done():
			return
		case chunk, ok := <-audioIn:
			if !ok {
				g.logger.Info(g.ctx, fmt.Sprintf("Audio stream closed after %d chunks", audioChunkCount))
				return
			}

			pcm := audio.Resample(chunk, audio.BridgeSampleRate, audio.GeminiInputSampleRate)
			err := g.send(genai.LiveRealtimeInput{
				Audio: &genai.Blob{
					Data:     pcm,
					MIMEType: inputMIMEType,
				},
			})
			if err != nil {
				if g.ctx.Err() == nil {
					g.logger.Error(g.ctx, "Failed to send audio chunk", err)
				}
				return
			}

			audioChunkCount++
			if audioChunkCount%1000 == 0 {
				g.logger.Debug(g.ctx, fmt.Sprintf("Sent %d audio chunks to Google AI", audioChunkCount))
			}
		}
	}
}

// send serializes writes on the session
func (g *LiveSession) send(input genai.LiveRealtimeInput) error {
	if g.ctx.Err() != nil || g.session == nil {
		return model.ErrSessionClosed
	}
	g.sendMu.Lock()
	defer g.sendMu.Unlock()
	return g.session.SendRealtimeInput(input)
}

func (g *LiveSession) Close() error {
	var err error
	g.closeOnce.Do(func() {
		g.cancel()
		if g.session != nil {
			err = g.session.Close()
		}
	})
	return err
}
