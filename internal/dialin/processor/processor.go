package processor

//go:generate go run go.uber.org/mock/mockgen@latest -source=processor.go -destination=mocks_test.go -package=processor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"q-pipecat/internal/agent"
	"q-pipecat/internal/callstore"
	"q-pipecat/internal/clients/daily"
	"q-pipecat/internal/observability"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// TokenExpiry bounds how long an agent may stay in its room.
const TokenExpiry = 5 * time.Minute

const (
	// reserveTTL bounds a pending reservation left behind by a crashed replica.
	reserveTTL = time.Minute

	defaultPendingWait = 15 * time.Second
	defaultPendingPoll = 100 * time.Millisecond
)

const (
	VendorDaily  = "daily"
	VendorTwilio = "twilio"
)

// RoomProvider defines the Daily operations required by DialinProcessor
type RoomProvider interface {
	CreateRoom(ctx context.Context, params daily.RoomParams) (daily.Room, error)
	GetRoomFromURL(ctx context.Context, roomURL string) (daily.Room, error)
	GetToken(ctx context.Context, roomURL string, expiry time.Duration) (string, error)
}

// AgentLauncher starts the per-call agent process
type AgentLauncher interface {
	Launch(ctx context.Context, params agent.LaunchParams) (*agent.Handle, error)
}

// CallStore remembers which room a call id was given
type CallStore interface {
	Get(ctx context.Context, callID string) (callstore.CallRecord, bool, error)
	Put(ctx context.Context, record callstore.CallRecord, ttl time.Duration) error
	Reserve(ctx context.Context, record callstore.CallRecord, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, callID string) error
}

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrRoomUnavailable    = errors.New("room unavailable")
	ErrProvisioningFailed = errors.New("provisioning failed")
	ErrAgentSpawnFailed   = errors.New("agent spawn failed")

	errCallPending   = errors.New("call is still pending")
	errCallAbandoned = errors.New("call reservation was released")
)

// CallRequest is one inbound dial-in notification.
type CallRequest struct {
	CallID     string
	CallDomain string
	Vendor     string
}

// DialinResult tells the telephony vendor where to send the call.
type DialinResult struct {
	RoomURL string
	SIPURI  string
	Reused  bool
}

// Options are service-wide provisioning settings.
type Options struct {
	// RoomURLOverride skips room creation and sends every call to this room.
	RoomURLOverride string

	// Persona is passed to every launched agent.
	Persona string
}

type DialinProcessor struct {
	rooms   RoomProvider
	agents  AgentLauncher
	calls   CallStore
	opts    Options
	logger  *observability.Logger
	metrics *observability.Metrics
	now     func() time.Time

	// flight joins concurrent deliveries of one call id within this process.
	flight      *singleflight.Group
	pendingWait time.Duration
	pendingPoll time.Duration
}

// New creates a DialinProcessor. calls and metrics may be nil.
func New(rooms RoomProvider, agents AgentLauncher, calls CallStore, opts Options, logger *observability.Logger, metrics *observability.Metrics) DialinProcessor {
	return DialinProcessor{
		rooms:   rooms,
		agents:  agents,
		calls:   calls,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,

		flight:      &singleflight.Group{},
		pendingWait: defaultPendingWait,
		pendingPoll: defaultPendingPoll,
	}
}

// HandleDialin provisions a room and an access token for the call, launches
// the agent and returns the room's SIP endpoint. Within one call the room is
// resolved before the token is minted, and both happen before the agent starts.
func (p DialinProcessor) HandleDialin(ctx context.Context, req CallRequest) (DialinResult, error) {
	start := p.now()

	if req.CallID == "" {
		p.recordOutcome("invalid")
		return DialinResult{}, fmt.Errorf("%w: missing property 'callId'", ErrInvalidRequest)
	}
	if req.Vendor == "" {
		req.Vendor = VendorDaily
	}
	if req.Vendor != VendorDaily && req.Vendor != VendorTwilio {
		p.recordOutcome("invalid")
		return DialinResult{}, fmt.Errorf("%w: unknown vendor %q", ErrInvalidRequest, req.Vendor)
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_id", Value: req.CallID},
		observability.Field{Key: "call_domain", Value: req.CallDomain},
		observability.Field{Key: "vendor", Value: req.Vendor},
	)

	v, err, _ := p.flight.Do(req.CallID, func() (interface{}, error) {
		return p.provision(ctx, req, start)
	})
	if err != nil {
		return DialinResult{}, err
	}
	return v.(DialinResult), nil
}

// provision runs once per call id at a time in this process. Across replicas
// the call store reservation decides which one creates the room.
func (p DialinProcessor) provision(ctx context.Context, req CallRequest, start time.Time) (DialinResult, error) {
	record, found := p.lookupCall(ctx, req.CallID)
	if found && !record.Pending {
		p.logger.Info(ctx, fmt.Sprintf("Call already provisioned in %s", record.RoomURL))
		p.recordOutcome("reused")
		return reusedResult(record), nil
	}

	if found {
		return p.awaitCall(ctx, req.CallID)
	}
	reserved, inFlight := p.reserveCall(ctx, req)
	if inFlight {
		return p.awaitCall(ctx, req.CallID)
	}

	result, err := p.provisionRoom(ctx, req)
	if err != nil {
		if reserved {
			p.releaseCall(ctx, req.CallID)
		}
		return DialinResult{}, err
	}
	p.rememberCall(ctx, req, result)

	p.recordOutcome("success")
	if p.metrics != nil {
		p.metrics.ObserveProvision(p.now().Sub(start))
	}
	p.logger.Info(ctx, fmt.Sprintf("Room ready - sipUri: %s", result.SIPURI))

	return result, nil
}

func (p DialinProcessor) provisionRoom(ctx context.Context, req CallRequest) (DialinResult, error) {
	room, err := p.resolveRoom(ctx)
	if err != nil {
		p.logger.Error(ctx, "failed to resolve room", err)
		p.recordOutcome("room_unavailable")
		return DialinResult{}, err
	}
	ctx = observability.WithFields(ctx, observability.Field{Key: "room_url", Value: room.URL})

	if room.URL == "" || room.Config.SIPEndpoint == "" {
		p.recordOutcome("provisioning_failed")
		return DialinResult{}, fmt.Errorf("%w: room %q has no SIP endpoint", ErrProvisioningFailed, room.URL)
	}

	token, err := p.rooms.GetToken(ctx, room.URL, TokenExpiry)
	if err != nil {
		p.logger.Error(ctx, "failed to get meeting token", err)
		p.recordOutcome("provisioning_failed")
		return DialinResult{}, fmt.Errorf("%w: failed to get room or token: %w", ErrProvisioningFailed, err)
	}
	if token == "" {
		p.recordOutcome("provisioning_failed")
		return DialinResult{}, fmt.Errorf("%w: failed to get room or token", ErrProvisioningFailed)
	}

	// The room is not rolled back when the launch fails; Daily expires it.
	_, err = p.agents.Launch(ctx, agent.LaunchParams{
		RoomURL:    room.URL,
		Token:      token,
		CallID:     req.CallID,
		CallDomain: req.CallDomain,
		Vendor:     req.Vendor,
		Persona:    p.opts.Persona,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to launch agent", err)
		p.recordOutcome("spawn_failed")
		return DialinResult{}, fmt.Errorf("%w: failed to start subprocess: %w", ErrAgentSpawnFailed, err)
	}

	return DialinResult{RoomURL: room.URL, SIPURI: room.Config.SIPEndpoint}, nil
}

func (p DialinProcessor) resolveRoom(ctx context.Context) (daily.Room, error) {
	if p.opts.RoomURLOverride != "" {
		p.logger.Info(ctx, fmt.Sprintf("Joining existing room: %s", p.opts.RoomURLOverride))
		room, err := p.rooms.GetRoomFromURL(ctx, p.opts.RoomURLOverride)
		if err != nil {
			return daily.Room{}, fmt.Errorf("%w: room not found: %s: %w", ErrRoomUnavailable, p.opts.RoomURLOverride, err)
		}
		return room, nil
	}

	p.logger.Info(ctx, "Creating new room")
	room, err := p.rooms.CreateRoom(ctx, daily.DialinRoomParams())
	if err != nil {
		return daily.Room{}, fmt.Errorf("%w: %w", ErrRoomUnavailable, err)
	}
	return room, nil
}

func (p DialinProcessor) lookupCall(ctx context.Context, callID string) (callstore.CallRecord, bool) {
	if p.calls == nil {
		return callstore.CallRecord{}, false
	}
	record, found, err := p.calls.Get(ctx, callID)
	if err != nil {
		p.logger.Error(ctx, "failed to look up call, provisioning a new room", err)
		return callstore.CallRecord{}, false
	}
	return record, found
}

// reserveCall claims the call id before any room is created. A store failure
// leaves the call unreserved and provisioning goes ahead.
func (p DialinProcessor) reserveCall(ctx context.Context, req CallRequest) (reserved, inFlight bool) {
	if p.calls == nil {
		return false, false
	}
	ok, err := p.calls.Reserve(ctx, callstore.CallRecord{
		CallID:     req.CallID,
		CallDomain: req.CallDomain,
		Vendor:     req.Vendor,
		CreatedAt:  p.now(),
		Pending:    true,
	}, reserveTTL)
	if err != nil {
		p.logger.Error(ctx, "failed to reserve call, provisioning without reservation", err)
		return false, false
	}
	return ok, !ok
}

// awaitCall waits for another replica to finish provisioning the call.
func (p DialinProcessor) awaitCall(ctx context.Context, callID string) (DialinResult, error) {
	p.logger.Info(ctx, "Call is being provisioned by another request, waiting for its room")

	var result DialinResult
	poll := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.pendingPoll), uint64(p.pendingWait/p.pendingPoll)),
		ctx,
	)
	err := backoff.Retry(func() error {
		record, found, err := p.calls.Get(ctx, callID)
		if err != nil {
			return err
		}
		if !found {
			return backoff.Permanent(errCallAbandoned)
		}
		if record.Pending {
			return errCallPending
		}
		result = reusedResult(record)
		return nil
	}, poll)
	if err != nil {
		p.recordOutcome("provisioning_failed")
		return DialinResult{}, fmt.Errorf("%w: call %s was not provisioned: %w", ErrProvisioningFailed, callID, err)
	}

	p.logger.Info(ctx, fmt.Sprintf("Call already provisioned in %s", result.RoomURL))
	p.recordOutcome("reused")
	return result, nil
}

func (p DialinProcessor) releaseCall(ctx context.Context, callID string) {
	if err := p.calls.Delete(ctx, callID); err != nil {
		p.logger.Error(ctx, "failed to release call reservation", err)
	}
}

func reusedResult(record callstore.CallRecord) DialinResult {
	return DialinResult{RoomURL: record.RoomURL, SIPURI: record.SIPURI, Reused: true}
}

func (p DialinProcessor) rememberCall(ctx context.Context, req CallRequest, result DialinResult) {
	if p.calls == nil {
		return
	}
	record := callstore.CallRecord{
		CallID:     req.CallID,
		CallDomain: req.CallDomain,
		Vendor:     req.Vendor,
		RoomURL:    result.RoomURL,
		SIPURI:     result.SIPURI,
		CreatedAt:  p.now(),
	}
	if err := p.calls.Put(ctx, record, TokenExpiry); err != nil {
		p.logger.Error(ctx, "failed to store call", err)
	}
}

func (p DialinProcessor) recordOutcome(outcome string) {
	if p.metrics != nil {
		p.metrics.DialinRequests.WithLabelValues(outcome).Inc()
	}
}
