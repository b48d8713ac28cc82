package bootstrap

import (
	"context"
	"fmt"
	"time"

	"q-pipecat/internal/agent"
	"q-pipecat/internal/apierrors"
	"q-pipecat/internal/callstore"
	"q-pipecat/internal/clients/daily"
	redisClient "q-pipecat/internal/clients/redis"
	"q-pipecat/internal/config"
	dialinHandler "q-pipecat/internal/dialin/handler"
	dialinProcessor "q-pipecat/internal/dialin/processor"
	"q-pipecat/internal/observability"
	"q-pipecat/internal/ratelimit"
)

const (
	metricsNamespace = "qpipecat"

	// pinlessSignatureTolerance bounds clock skew between Daily and this service
	pinlessSignatureTolerance = 5 * time.Minute
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Clients
	DailyClient *daily.Client
	RedisClient *redisClient.Client
	CallStore   callstore.Store

	// Call agents
	Supervisor *agent.Supervisor

	// Handlers
	DialinHandler dialinHandler.Handler
	Responder     *apierrors.Responder

	// RateLimiter is nil when webhook rate limiting is disabled
	RateLimiter *ratelimit.Service
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger:  logger,
		Metrics: observability.NewMetrics(metricsNamespace),
	}

	// Initialize Room Provider client
	deps.DailyClient = daily.NewClient(cfg.Daily, logger)

	// Initialize call store; Redis is optional
	var err error
	deps.RedisClient, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	if deps.RedisClient != nil {
		deps.CallStore = callstore.NewRedisStore(deps.RedisClient)
		logger.Info(ctx, "Call store backed by redis")
	} else {
		deps.CallStore = callstore.NewMemoryStore()
		logger.Info(ctx, "Call store backed by memory")
	}

	// Initialize agent supervisor
	deps.Supervisor = agent.NewSupervisor(agent.SupervisorConfig{
		Command:      cfg.Agent.Command,
		MaxAgents:    cfg.Agent.MaxAgents,
		DrainTimeout: cfg.Agent.DrainTimeout,
		// Forget the call so a redelivery after a failed agent gets a fresh room.
		OnFailure: func(ctx context.Context, params agent.LaunchParams) {
			if err := deps.CallStore.Delete(ctx, params.CallID); err != nil {
				logger.Error(ctx, "failed to forget call after agent failure", err)
			}
		},
	}, logger, deps.Metrics)

	// Initialize dial-in processor and handler
	proc := dialinProcessor.New(
		deps.DailyClient,
		deps.Supervisor,
		deps.CallStore,
		dialinProcessor.Options{
			RoomURLOverride: cfg.Daily.SampleRoomURL,
			Persona:         cfg.Agent.Persona,
		},
		logger,
		deps.Metrics,
	)
	deps.Responder = apierrors.NewResponder(logger, cfg.Server.LegacyErrorStatus)
	deps.DialinHandler = dialinHandler.New(&proc, deps.Supervisor, deps.Responder, dialinHandler.Options{
		PinlessSecret:      cfg.Daily.PinlessSecret,
		SignatureTolerance: pinlessSignatureTolerance,
		HoldMusicURL:       cfg.Twilio.HoldMusicURL,
	}, logger)

	if cfg.Server.RateLimitRPM > 0 {
		deps.RateLimiter = ratelimit.NewService(deps.RedisClient, cfg.Server.RateLimitRPM, ratelimit.DefaultWindow, logger)
		logger.Info(ctx, fmt.Sprintf("Webhooks limited to %d requests per minute per client", cfg.Server.RateLimitRPM))
	}

	if cfg.Daily.SampleRoomURL != "" {
		logger.Info(ctx, fmt.Sprintf("All calls will use room %s", cfg.Daily.SampleRoomURL))
	}

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	if d.DailyClient != nil {
		d.DailyClient.Close()
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.Error(context.Background(), "failed to close redis client", err)
		}
	}
	d.Logger.Sync()
}
