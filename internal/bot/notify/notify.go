// Package notify tells the telephony vendor that a held call can be connected
// to its room.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"q-pipecat/internal/observability"

	"github.com/cenkalti/backoff/v4"
)

// DialinReady is reported once the agent's room can accept the call
type DialinReady struct {
	CallID     string
	CallDomain string
	SIPURI     string
}

// Policy bounds how often a notification is attempted
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts:     maxAttempts,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
	}
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	b.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// retry runs op under the policy. op marks errors that must not be retried
// with backoff.Permanent.
func retry(ctx context.Context, policy Policy, logger *observability.Logger, what string, op func() error) error {
	attempt := 0
	operation := func() error {
		attempt++
		return op()
	}
	onRetry := func(err error, wait time.Duration) {
		ctx := observability.WithFields(ctx, observability.Field{Key: "attempt", Value: attempt})
		logger.InfoWithError(ctx, fmt.Sprintf("%s failed, retrying in %s", what, wait.Round(time.Millisecond)), err)
	}

	err := backoff.RetryNotify(operation, policy.backOff(ctx), onRetry)
	if err != nil {
		return fmt.Errorf("%s failed after %d attempt(s): %w", what, attempt, err)
	}
	return nil
}

// permanentUnless wraps err as permanent when retrying cannot help.
func permanentUnless(ctx context.Context, err error, temporary bool) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return backoff.Permanent(err)
	}
	if !temporary {
		return backoff.Permanent(err)
	}
	return err
}
