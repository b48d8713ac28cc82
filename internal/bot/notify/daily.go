package notify

import (
	"context"
	"errors"
	"fmt"

	"q-pipecat/internal/clients/daily"
	"q-pipecat/internal/observability"
)

// PinlessUpdater is the Daily operation the notifier needs
type PinlessUpdater interface {
	PinlessCallUpdate(ctx context.Context, update daily.PinlessCallUpdate) error
}

// DailyNotifier forwards a call that reached Daily's SIP URI.
type DailyNotifier struct {
	client PinlessUpdater
	policy Policy
	logger *observability.Logger
}

func NewDailyNotifier(client PinlessUpdater, policy Policy, logger *observability.Logger) *DailyNotifier {
	return &DailyNotifier{client: client, policy: policy, logger: logger}
}

func (n *DailyNotifier) NotifyDialinReady(ctx context.Context, ready DialinReady) error {
	update := daily.NewPinlessCallUpdate(ready.CallID, ready.CallDomain)

	err := retry(ctx, n.policy, n.logger, "pinless call update", func() error {
		err := n.client.PinlessCallUpdate(ctx, update)
		if err == nil {
			return nil
		}
		var statusErr *daily.StatusError
		if errors.As(err, &statusErr) {
			return permanentUnless(ctx, err, statusErr.Temporary())
		}
		// Transport errors are worth another attempt.
		return permanentUnless(ctx, err, true)
	})
	if err != nil {
		return err
	}

	n.logger.Info(ctx, fmt.Sprintf("Pinless call updated successfully for CallId: %s", ready.CallID))
	return nil
}
