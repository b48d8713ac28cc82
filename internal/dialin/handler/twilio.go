package handler

import (
	"fmt"
	"net/http"

	"q-pipecat/internal/dialin/processor"
	"q-pipecat/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/twiml"
)

const holdMessage = "Thank you for calling. Please hold while we connect you."

// HandleTwilioStartBot answers a Twilio voice webhook. The caller hears hold
// music while the agent starts; the agent later redirects the call to the
// room's SIP URI.
func (h *Handler) HandleTwilioStartBot(c *gin.Context) {
	ctx := c.Request.Context()

	callSID := c.PostForm("CallSid")
	ctx = observability.WithFields(ctx, observability.Field{Key: "call_id", Value: callSID})

	_, err := h.provisioner.HandleDialin(ctx, processor.CallRequest{
		CallID: callSID,
		Vendor: processor.VendorTwilio,
	})
	if err != nil {
		h.responder.RespondWithError(c, err)
		return
	}

	twimlResult, err := twiml.Voice([]twiml.Element{h.holdElement()})
	if err != nil {
		h.responder.RespondWithError(c, err)
		return
	}

	h.logger.Debug(ctx, fmt.Sprintf("Hold TwiML Response: %s", twimlResult))
	c.Header("Content-Type", "text/xml")
	c.String(http.StatusOK, twimlResult)
}

func (h *Handler) holdElement() twiml.Element {
	if h.opts.HoldMusicURL == "" {
		return &twiml.VoiceSay{Message: holdMessage}
	}
	return &twiml.VoicePlay{
		Url:  h.opts.HoldMusicURL,
		Loop: "0",
	}
}
