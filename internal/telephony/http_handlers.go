package telephony

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"call-receptionist/internal/dialog"
	"call-receptionist/pkg/logger"
)

// TurnHandler is the dialog engine as seen by the webhook.
type TurnHandler interface {
	Greet(ctx context.Context, t dialog.Turn) dialog.Response
	HandleTurn(ctx context.Context, t dialog.Turn) dialog.Response
}

// TwilioWebhookHandler converts Twilio webhooks to dialog turns and writes
// TwiML. No dialog logic lives here.
type TwilioWebhookHandler struct {
	Engine TurnHandler
	Gather GatherOptions
}

// HandleVoice answers the initial call webhook with the greeting.
func (h TwilioWebhookHandler) HandleVoice(c *gin.Context) {
	h.serve(c, "twilio voice webhook", func(ctx context.Context, t dialog.Turn) dialog.Response {
		return h.Engine.Greet(ctx, t)
	})
}

// HandleGather runs one dialog turn for the caller's speech (or silence).
func (h TwilioWebhookHandler) HandleGather(c *gin.Context) {
	h.serve(c, "twilio gather webhook", h.Engine.HandleTurn)
}

func (h TwilioWebhookHandler) serve(c *gin.Context, name string, fn func(context.Context, dialog.Turn) dialog.Response) {
	log := logger.FromGin(c)

	if h.Engine == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "dialog engine not configured"})
		return
	}

	form, err := ParseTwilioVoiceForm(c.Request)
	if err != nil {
		log.Warn(name+" parse failed", "err", err)
		msg := "invalid form"
		if errors.Is(err, ErrMissingCallSid) {
			msg = "CallSid is required"
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
		return
	}

	resp := fn(c.Request.Context(), form.ToTurn())

	twiml, err := RenderTwiML(resp, h.Gather)
	if err != nil {
		log.Error("twiml render failed", "err", err)
		// Still end the call cleanly rather than leave Twilio with a 500.
		twiml = `<?xml version="1.0" encoding="UTF-8"?>` + "\n<Response><Hangup/></Response>"
	}

	c.Header("Content-Type", "application/xml")
	c.String(http.StatusOK, twiml)
}
