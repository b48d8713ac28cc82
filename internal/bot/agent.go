// Package bot runs one call agent: it joins the call's room, talks to the
// caller through a speech-to-speech model and tells the vendor when the held
// call can be connected.
package bot

//go:generate go run go.uber.org/mock/mockgen@latest -source=agent.go -destination=mocks_test.go -package=bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"q-pipecat/internal/bot/notify"
	"q-pipecat/internal/observability"
	"q-pipecat/internal/persona"
	"q-pipecat/internal/voice/model"
	"q-pipecat/internal/voice/pipeline"
	"q-pipecat/internal/voice/transport"
)

const (
	VendorDaily  = "daily"
	VendorTwilio = "twilio"

	summaryTimeout = 30 * time.Second
)

var ErrDialinNotifyFailed = errors.New("dial-in notification failed")

type State int32

const (
	StateConnecting State = iota
	StateActive
	StateBridging
	StateTerminating
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateBridging:
		return "bridging"
	case StateTerminating:
		return "terminating"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Transport is the agent's connection to its room
type Transport interface {
	Events() <-chan transport.Event
	AudioIn() <-chan []byte
	AudioOut() chan<- []byte
	Interrupt() error
	Close() error
}

// Notifier tells the telephony vendor the room is ready for the held call
type Notifier interface {
	NotifyDialinReady(ctx context.Context, ready notify.DialinReady) error
}

type Summarizer interface {
	Summarize(ctx context.Context, transcript []model.TranscriptLine) (string, error)
}

// ConnectFunc joins the room and returns once the join is confirmed
type ConnectFunc func(ctx context.Context, join transport.JoinRequest) (Transport, error)

// Call is what the provisioning service hands to the agent
type Call struct {
	RoomURL    string
	Token      string
	CallID     string
	CallDomain string
	Vendor     string
}

type Options struct {
	Pipeline pipeline.PipelineConfig
	// Summarizer is optional. When set the transcript is summarized after the call.
	Summarizer Summarizer
}

type Agent struct {
	call     Call
	persona  persona.Persona
	connect  ConnectFunc
	session  model.Session
	notifier Notifier
	opts     Options
	logger   *observability.Logger
	now      func() time.Time

	state      atomic.Int32
	transport  Transport
	pipeline   *pipeline.AudioPipeline
	modelInput chan []byte // caller audio for the model, owned by the pipeline

	mu         sync.Mutex
	transcript []model.TranscriptLine
}

func New(call Call, p persona.Persona, connect ConnectFunc, session model.Session, notifier Notifier, opts Options, logger *observability.Logger) *Agent {
	if call.Vendor == "" {
		call.Vendor = VendorDaily
	}
	return &Agent{
		call:     call,
		persona:  p,
		connect:  connect,
		session:  session,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

func (a *Agent) State() State {
	return State(a.state.Load())
}

// advance moves the state machine forward. It never moves backwards.
func (a *Agent) advance(ctx context.Context, next State) bool {
	for {
		cur := a.state.Load()
		if State(cur) >= next {
			return false
		}
		if a.state.CompareAndSwap(cur, int32(next)) {
			a.logger.Info(ctx, fmt.Sprintf("Agent state %s -> %s", State(cur), next))
			return true
		}
	}
}

// Transcript returns the conversation captured since bridging started
func (a *Agent) Transcript() []model.TranscriptLine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]model.TranscriptLine(nil), a.transcript...)
}

// Run drives the call until the caller leaves, a side of the conversation
// ends or ctx is cancelled. A nil error means the call ended normally.
func (a *Agent) Run(ctx context.Context) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_id", Value: a.call.CallID},
		observability.Field{Key: "room_url", Value: a.call.RoomURL},
		observability.Field{Key: "vendor", Value: a.call.Vendor},
	)
	defer a.terminate(ctx)

	modelEvents, err := a.open(ctx)
	if err != nil {
		return err
	}

	sessionDone := make(chan error, 1)
	modelAudio := make(chan []byte, a.bufferSize())
	go a.relayModelEvents(ctx, modelEvents, modelAudio, sessionDone)

	if err := a.pipeline.ConnectSink(a.modelInput, modelAudio); err != nil {
		return fmt.Errorf("failed to connect model to pipeline: %w", err)
	}
	a.advance(ctx, StateActive)

	events := a.transport.Events()
	for {
		select {
		case <-ctx.Done():
			a.logger.Info(ctx, "Call cancelled")
			return nil

		case err := <-sessionDone:
			if err != nil {
				return fmt.Errorf("model session failed: %w", err)
			}
			a.logger.Info(ctx, "Model session ended")
			return nil

		case ev, ok := <-events:
			if !ok {
				a.logger.Info(ctx, "Room connection closed")
				return nil
			}
			done, err := a.handleEvent(ctx, ev)
			if err != nil || done {
				return err
			}
		}
	}
}

func (a *Agent) bufferSize() int {
	if a.opts.Pipeline.BufferSize > 0 {
		return a.opts.Pipeline.BufferSize
	}
	return pipeline.DefaultConfig().BufferSize
}

func (a *Agent) open(ctx context.Context) (<-chan model.Event, error) {
	if err := ValidateToken(a.call.Token, a.call.RoomURL, a.now()); err != nil {
		return nil, err
	}

	join := transport.JoinRequest{
		RoomURL: a.call.RoomURL,
		Token:   a.call.Token,
		Params:  transport.DefaultParams(a.persona.BotName),
	}
	if a.call.Vendor == VendorDaily && a.call.CallID != "" && a.call.CallDomain != "" {
		join.Dialin = &transport.DialinSettings{CallID: a.call.CallID, CallDomain: a.call.CallDomain}
	}

	t, err := a.connect(ctx, join)
	if err != nil {
		return nil, err
	}
	a.transport = t
	a.logger.Info(ctx, fmt.Sprintf("Joined room as %s", a.persona.BotName))

	cfg := a.opts.Pipeline
	if cfg.BufferSize == 0 {
		cfg = pipeline.DefaultConfig()
	}
	p, err := pipeline.NewAudioPipeline(t.AudioIn(), t.AudioOut(), a.logger, cfg)
	if err != nil {
		return nil, err
	}
	a.pipeline = p

	a.modelInput = make(chan []byte, a.bufferSize())
	events, err := a.session.Start(ctx, a.modelInput)
	if err != nil {
		return nil, fmt.Errorf("failed to start model session: %w", err)
	}
	return events, nil
}

// handleEvent reacts to one room event. done reports that the call is over.
func (a *Agent) handleEvent(ctx context.Context, ev transport.Event) (done bool, err error) {
	switch ev.Type {
	case transport.EventParticipantJoined:
		if a.State() >= StateBridging {
			return false, nil
		}
		ctx := observability.WithFields(ctx, observability.Field{Key: "participant_id", Value: ev.Participant.ID})
		a.logger.Info(ctx, "First participant joined, starting conversation")
		if err := a.bridge(ctx); err != nil {
			return true, err
		}

	case transport.EventParticipantLeft:
		ctx := observability.WithFields(ctx, observability.Field{Key: "participant_id", Value: ev.Participant.ID})
		a.logger.Info(ctx, fmt.Sprintf("Participant left: %s", ev.Reason))
		return true, nil

	case transport.EventDialinReady:
		ready := notify.DialinReady{
			CallID:     a.call.CallID,
			CallDomain: a.call.CallDomain,
			SIPURI:     ev.SIPEndpoint,
		}
		a.logger.Info(ctx, "Dial-in ready, notifying vendor")
		if err := a.notifier.NotifyDialinReady(ctx, ready); err != nil {
			a.logger.Error(ctx, "Failed to notify dial-in ready", err)
			return true, fmt.Errorf("%w: %w", ErrDialinNotifyFailed, err)
		}

	case transport.EventError:
		if errors.Is(ev.Err, transport.ErrClosed) {
			return true, ev.Err
		}
		a.logger.Error(ctx, "Media bridge reported an error", ev.Err)
	}
	return false, nil
}

func (a *Agent) bridge(ctx context.Context) error {
	if err := a.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("failed to start audio pipeline: %w", err)
	}
	a.advance(ctx, StateBridging)

	if err := a.session.Greet(ctx); err != nil {
		return fmt.Errorf("failed to greet caller: %w", err)
	}
	return nil
}

// relayModelEvents splits the model's events into audio for the pipeline and
// control for the agent. It reports the end of the session on done.
func (a *Agent) relayModelEvents(ctx context.Context, events <-chan model.Event, modelAudio chan<- []byte, done chan<- error) {
	defer close(modelAudio)

	for ev := range events {
		switch ev.Type {
		case model.EventAudio:
			select {
			case modelAudio <- ev.Audio:
			default:
				a.logger.Warn(ctx, "Model audio buffer full, dropping chunk")
			}

		case model.EventTranscript:
			if a.State() < StateBridging {
				continue
			}
			a.mu.Lock()
			a.transcript = append(a.transcript, model.TranscriptLine{Role: ev.Role, Text: ev.Text})
			a.mu.Unlock()
			a.logger.Debug(ctx, fmt.Sprintf("%s: %s", ev.Role, ev.Text))

		case model.EventInterrupted:
			if err := a.transport.Interrupt(); err != nil {
				a.logger.Error(ctx, "Failed to clear queued audio", err)
			}

		case model.EventError:
			done <- ev.Err
			return
		}
	}
	done <- nil
}

func (a *Agent) terminate(ctx context.Context) {
	a.advance(ctx, StateTerminating)

	if a.pipeline != nil {
		a.pipeline.Stop()
	}
	if err := a.session.Close(); err != nil {
		a.logger.Error(ctx, "Failed to close model session", err)
	}
	if a.transport != nil {
		if err := a.transport.Close(); err != nil {
			a.logger.Error(ctx, "Failed to leave room", err)
		}
	}

	a.summarize(ctx)
}

func (a *Agent) summarize(ctx context.Context) {
	if a.opts.Summarizer == nil {
		return
	}
	transcript := a.Transcript()
	if len(transcript) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), summaryTimeout)
	defer cancel()

	summary, err := a.opts.Summarizer.Summarize(ctx, transcript)
	if err != nil {
		a.logger.Error(ctx, "Failed to summarize call", err)
		return
	}
	a.logger.Info(observability.WithFields(ctx, observability.Field{Key: "summary", Value: summary}), "Call summary")
}
