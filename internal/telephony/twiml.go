package telephony

import (
	"bytes"
	"encoding/xml"

	"call-receptionist/internal/dialog"
)

// TwiML is a minimal Twilio Markup Language response builder covering only
// the verbs the receptionist speaks: Say, Gather and Hangup.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName xml.Name `xml:"Say"`
	Voice   string   `xml:"voice,attr,omitempty"`
	Text    string   `xml:",chardata"`
}

type twimlGather struct {
	XMLName             xml.Name   `xml:"Gather"`
	Input               string     `xml:"input,attr"`
	Action              string     `xml:"action,attr,omitempty"`
	Method              string     `xml:"method,attr,omitempty"`
	Timeout             int        `xml:"timeout,attr,omitempty"`
	SpeechTimeout       string     `xml:"speechTimeout,attr,omitempty"`
	ActionOnEmptyResult bool       `xml:"actionOnEmptyResult,attr"`
	Says                []twimlSay `xml:"Say"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// GatherOptions is the speech-collection tuning owned by the telephony layer.
type GatherOptions struct {
	// Action is the URL Twilio posts the caller's speech to.
	Action        string
	Voice         string
	Timeout       int
	SpeechTimeout string
}

func (o GatherOptions) withDefaults() GatherOptions {
	if o.Voice == "" {
		o.Voice = "alice"
	}
	if o.Timeout <= 0 {
		o.Timeout = 4
	}
	if o.SpeechTimeout == "" {
		o.SpeechTimeout = "auto"
	}
	return o
}

// RenderTwiML maps a dialog response to TwiML. Listening responses nest the
// speech in a Gather so callers can barge in; actionOnEmptyResult makes
// Twilio post silence back to us as an empty SpeechResult.
func RenderTwiML(resp dialog.Response, opts GatherOptions) (string, error) {
	opts = opts.withDefaults()

	says := make([]twimlSay, 0, len(resp.Say))
	for _, s := range resp.Say {
		if s == "" {
			continue
		}
		says = append(says, twimlSay{Voice: opts.Voice, Text: s})
	}

	var r twimlResponse
	if resp.Hangup() {
		for _, s := range says {
			r.Verbs = append(r.Verbs, s)
		}
		r.Verbs = append(r.Verbs, twimlHangup{})
	} else {
		r.Verbs = append(r.Verbs, twimlGather{
			Input:               "speech",
			Action:              opts.Action,
			Method:              "POST",
			Timeout:             opts.Timeout,
			SpeechTimeout:       opts.SpeechTimeout,
			ActionOnEmptyResult: true,
			Says:                says,
		})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
