package handler

//go:generate go run go.uber.org/mock/mockgen@latest -source=handler.go -destination=mocks_test.go -package=handler

import (
	"context"
	"time"

	"q-pipecat/internal/agent"
	"q-pipecat/internal/apierrors"
	"q-pipecat/internal/dialin/processor"
	"q-pipecat/internal/observability"
)

// DialinProvisioner provisions a room and agent for one inbound call
type DialinProvisioner interface {
	HandleDialin(ctx context.Context, req processor.CallRequest) (processor.DialinResult, error)
}

// AgentLister reports the running call agents
type AgentLister interface {
	Active() []agent.HandleInfo
}

type Options struct {
	// PinlessSecret enables signature checks on /daily_start_bot when set.
	PinlessSecret string

	// SignatureTolerance bounds the age of a signed webhook. Zero disables the check.
	SignatureTolerance time.Duration

	// HoldMusicURL is played to Twilio callers while the agent starts.
	HoldMusicURL string
}

type Handler struct {
	provisioner DialinProvisioner
	agents      AgentLister
	responder   *apierrors.Responder
	opts        Options
	logger      *observability.Logger
	now         func() time.Time
}

func New(provisioner DialinProvisioner, agents AgentLister, responder *apierrors.Responder, opts Options, logger *observability.Logger) Handler {
	return Handler{
		provisioner: provisioner,
		agents:      agents,
		responder:   responder,
		opts:        opts,
		logger:      logger,
		now:         time.Now,
	}
}
