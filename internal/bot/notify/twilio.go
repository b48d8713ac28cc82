package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"q-pipecat/internal/config"
	"q-pipecat/internal/observability"

	"github.com/twilio/twilio-go"
	twilioClient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

var ErrMissingSIPURI = errors.New("dial-in ready event has no SIP URI")

// CallUpdater is the Twilio operation the forwarder needs
type CallUpdater interface {
	UpdateCall(sid string, params *twilioApi.UpdateCallParams) (*twilioApi.ApiV2010Call, error)
}

// TwilioForwarder redirects a held Twilio call to the room's SIP URI.
type TwilioForwarder struct {
	calls  CallUpdater
	policy Policy
	logger *observability.Logger
}

func NewTwilioForwarder(cfg config.TwilioConfig, policy Policy, logger *observability.Logger) *TwilioForwarder {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return NewTwilioForwarderWithClient(client.Api, policy, logger)
}

func NewTwilioForwarderWithClient(calls CallUpdater, policy Policy, logger *observability.Logger) *TwilioForwarder {
	return &TwilioForwarder{calls: calls, policy: policy, logger: logger}
}

// ForwardTwiML renders the TwiML that dials the room's SIP URI
func ForwardTwiML(sipURI string) (string, error) {
	dial := &twiml.VoiceDial{
		InnerElements: []twiml.Element{
			&twiml.VoiceSip{SipUrl: sipURI},
		},
	}
	return twiml.Voice([]twiml.Element{dial})
}

func (f *TwilioForwarder) NotifyDialinReady(ctx context.Context, ready DialinReady) error {
	if ready.SIPURI == "" {
		return ErrMissingSIPURI
	}

	twimlResult, err := ForwardTwiML(ready.SIPURI)
	if err != nil {
		return fmt.Errorf("failed to render forward TwiML: %w", err)
	}

	params := &twilioApi.UpdateCallParams{}
	params.SetTwiml(twimlResult)

	err = retry(ctx, f.policy, f.logger, "twilio call update", func() error {
		_, err := f.calls.UpdateCall(ready.CallID, params)
		if err == nil {
			return nil
		}
		var restErr *twilioClient.TwilioRestError
		if errors.As(err, &restErr) {
			temporary := restErr.Status == http.StatusTooManyRequests || restErr.Status >= http.StatusInternalServerError
			return permanentUnless(ctx, err, temporary)
		}
		return permanentUnless(ctx, err, true)
	})
	if err != nil {
		return err
	}

	f.logger.Info(ctx, fmt.Sprintf("Twilio call %s forwarded to %s", ready.CallID, ready.SIPURI))
	return nil
}
