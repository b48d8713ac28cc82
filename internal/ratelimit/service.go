package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"q-pipecat/internal/clients/redis"
	"q-pipecat/internal/observability"
)

const DefaultWindow = time.Minute

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

// Service limits how many webhook calls one caller may make per window
type Service struct {
	redis  *redis.Client
	limit  int
	window time.Duration
	logger *observability.Logger
	now    func() time.Time

	mu    sync.Mutex
	local map[string][]time.Time
}

// NewService creates a rate limiter allowing limit requests per window. Redis
// is used when enabled so that replicas share the count.
func NewService(redisClient *redis.Client, limit int, window time.Duration, logger *observability.Logger) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		redis:  redisClient,
		limit:  limit,
		window: window,
		logger: logger,
		now:    time.Now,
		local:  make(map[string][]time.Time),
	}
}

// Check records a request for key and reports whether it is within the limit
func (s *Service) Check(ctx context.Context, key string) (Result, error) {
	now := s.now()

	if s.redis.IsEnabled() {
		result, err := s.checkRedis(ctx, key, now)
		if err == nil {
			return result, nil
		}
		s.logger.InfoWithError(ctx, "Redis rate limit check failed, falling back to local window", err)
	}

	return s.checkLocal(key, now), nil
}

func (s *Service) checkRedis(ctx context.Context, key string, now time.Time) (Result, error) {
	count, oldest, err := s.redis.RecordHit(ctx, fmt.Sprintf("rl:%s", key), now, s.window, s.limit)
	if err != nil {
		return Result{}, err
	}
	return s.result(int(count), oldest, now), nil
}

// checkLocal is a sliding window held in process memory
func (s *Service) checkLocal(key string, now time.Time) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	windowStart := now.Add(-s.window)
	hits := s.local[key]
	kept := hits[:0]
	for _, hit := range hits {
		if !hit.Before(windowStart) {
			kept = append(kept, hit)
		}
	}

	count := len(kept)
	if count < s.limit {
		kept = append(kept, now)
	}
	if len(kept) == 0 {
		delete(s.local, key)
	} else {
		s.local[key] = kept
	}

	oldest := now
	if len(kept) > 0 {
		oldest = kept[0]
	}
	return s.result(count, oldest, now)
}

func (s *Service) result(count int, oldest, now time.Time) Result {
	resetAt := oldest.Add(s.window)
	if count >= s.limit {
		retryAfter := resetAt.Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Result{
			Allowed:    false,
			Limit:      s.limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfter,
		}
	}
	return Result{
		Allowed:   true,
		Limit:     s.limit,
		Remaining: s.limit - count - 1,
		ResetAt:   resetAt,
	}
}
