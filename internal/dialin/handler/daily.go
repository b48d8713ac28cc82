package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"q-pipecat/internal/apierrors"
	"q-pipecat/internal/dialin/processor"
	"q-pipecat/internal/observability"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

var errMissingCallProperties = fmt.Errorf("%w: missing properties 'callId' or 'callDomain'", processor.ErrInvalidRequest)

// DailyStartBotRequest is the pinless dial-in webhook body
type DailyStartBotRequest struct {
	CallID     string `json:"callId"`
	CallDomain string `json:"callDomain"`
}

// isTestWebhook reports whether the body carries a truthy "test" field. The
// other fields are not looked at.
func isTestWebhook(fields map[string]json.RawMessage) bool {
	raw, ok := fields["test"]
	if !ok {
		return false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return false
}

type DailyStartBotResponse struct {
	RoomURL string `json:"room_url"`
	SIPURI  string `json:"sipUri"`
}

// HandleDailyStartBot is invoked when a call reaches Daily's SIP URI. The call
// is held until the agent reports dial-in ready and forwards it.
func (h *Handler) HandleDailyStartBot(c *gin.Context) {
	ctx := c.Request.Context()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.responder.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidRequest, "failed to read request body"))
		return
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		h.responder.RespondWithError(c, errMissingCallProperties)
		return
	}

	// Reachability checks are answered before signature verification.
	if isTestWebhook(fields) {
		c.JSON(http.StatusOK, gin.H{"test": true})
		return
	}

	if h.opts.PinlessSecret != "" {
		if err := h.verifyPinlessSignature(c, body); err != nil {
			h.logger.InfoWithError(ctx, "rejected unsigned dial-in webhook", err)
			h.responder.RespondWithError(c, apierrors.Unauthorized("invalid webhook signature"))
			return
		}
	}

	var req DailyStartBotRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.responder.RespondWithError(c, errMissingCallProperties)
		return
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "call_id", Value: req.CallID},
		observability.Field{Key: "call_domain", Value: req.CallDomain},
	)
	h.logger.Info(ctx, fmt.Sprintf("CallId: %s, CallDomain: %s", req.CallID, req.CallDomain))

	result, err := h.provisioner.HandleDialin(ctx, processor.CallRequest{
		CallID:     req.CallID,
		CallDomain: req.CallDomain,
		Vendor:     processor.VendorDaily,
	})
	if err != nil {
		h.responder.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DailyStartBotResponse{
		RoomURL: result.RoomURL,
		SIPURI:  result.SIPURI,
	})
}
