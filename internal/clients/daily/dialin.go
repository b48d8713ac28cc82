package daily

import (
	"context"
	"net/http"
)

// DialinSettings identifies the held call on Daily's SIP infrastructure.
type DialinSettings struct {
	CallID     string `json:"call_id"`
	CallDomain string `json:"call_domain"`
}

// PinlessCallUpdate is the body of the pinless call update request.
type PinlessCallUpdate struct {
	CallID     string         `json:"callId"`
	CallDomain string         `json:"callDomain"`
	SIPURI     DialinSettings `json:"sipUri"`
}

// NewPinlessCallUpdate builds the update that forwards a held call to the room.
func NewPinlessCallUpdate(callID, callDomain string) PinlessCallUpdate {
	return PinlessCallUpdate{
		CallID:     callID,
		CallDomain: callDomain,
		SIPURI:     DialinSettings{CallID: callID, CallDomain: callDomain},
	}
}

// PinlessCallUpdate tells Daily that the room is ready and the held call can be
// connected through. Any non-2xx answer is returned as *StatusError.
func (c *Client) PinlessCallUpdate(ctx context.Context, update PinlessCallUpdate) error {
	return c.do(ctx, http.MethodPost, "/dialin/pinlessCallUpdate", nil, update, nil)
}

// PinlessDialin maps a purchased number, or a name prefix, to the webhook that
// provisions rooms for inbound calls.
type PinlessDialin struct {
	PhoneNumber     string `json:"phone_number,omitempty"`
	RoomCreationAPI string `json:"room_creation_api"`
	NamePrefix      string `json:"name_prefix,omitempty"`
	HMAC            string `json:"hmac,omitempty"`
}

type domainProperties struct {
	PinlessDialin []PinlessDialin `json:"pinless_dialin"`
}

type domainConfig struct {
	Properties domainProperties `json:"properties"`
}

// ConfigurePinlessDialin replaces the domain's pinless dial-in configuration.
func (c *Client) ConfigurePinlessDialin(ctx context.Context, entries ...PinlessDialin) (map[string]interface{}, error) {
	var resp map[string]interface{}
	body := domainConfig{Properties: domainProperties{PinlessDialin: entries}}
	if err := c.do(ctx, http.MethodPost, "/", nil, body, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
