package telephony

import (
	"errors"
	"net/http"
	"strings"

	"call-receptionist/internal/dialog"
)

// HeaderIdempotencyToken is set by Twilio on every webhook delivery and is
// repeated on retries of the same delivery.
const HeaderIdempotencyToken = "I-Twilio-Idempotency-Token"

// TwilioVoiceForm captures the subset of voice webhook fields the dialog
// needs. Twilio sends application/x-www-form-urlencoded.
// Ref: https://www.twilio.com/docs/voice/twiml/gather#action
type TwilioVoiceForm struct {
	CallSid      string
	AccountSid   string
	From         string
	To           string
	CallStatus   string
	SpeechResult string
	Confidence   string

	IdempotencyToken string
}

var ErrMissingCallSid = errors.New("telephony: CallSid is required")

func ParseTwilioVoiceForm(r *http.Request) (TwilioVoiceForm, error) {
	if err := r.ParseForm(); err != nil {
		return TwilioVoiceForm{}, err
	}
	f := TwilioVoiceForm{
		CallSid:          strings.TrimSpace(r.PostFormValue("CallSid")),
		AccountSid:       strings.TrimSpace(r.PostFormValue("AccountSid")),
		From:             normalizePhone(r.PostFormValue("From")),
		To:               normalizePhone(r.PostFormValue("To")),
		CallStatus:       r.PostFormValue("CallStatus"),
		SpeechResult:     strings.TrimSpace(r.PostFormValue("SpeechResult")),
		Confidence:       r.PostFormValue("Confidence"),
		IdempotencyToken: strings.TrimSpace(r.Header.Get(HeaderIdempotencyToken)),
	}
	if f.CallSid == "" {
		return TwilioVoiceForm{}, ErrMissingCallSid
	}
	return f, nil
}

func normalizePhone(s string) string {
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return strings.TrimSpace(s)
}

func (f TwilioVoiceForm) ToTurn() dialog.Turn {
	return dialog.Turn{
		CallID:       f.CallSid,
		DialedNumber: f.To,
		CallerNumber: f.From,
		Utterance:    f.SpeechResult,
		TurnID:       f.IdempotencyToken,
	}
}
