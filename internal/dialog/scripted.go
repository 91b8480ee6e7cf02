package dialog

import (
	"call-receptionist/internal/calllog"
	"call-receptionist/internal/intent"
	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
)

// outcome is the result of one transition, before it is persisted.
type outcome struct {
	next    sessions.Stage
	intent  intent.Intent
	data    sessions.Data
	say     []string
	end     bool
	capture bool
	silent  int
	kind    calllog.Outcome
}

func listen(next sessions.Stage, say ...string) outcome {
	return outcome{next: next, say: say, kind: calllog.OutcomeListen}
}

func hangup(kind calllog.Outcome, say ...string) outcome {
	return outcome{next: sessions.StageDone, say: say, end: true, kind: kind}
}

type captureStep struct {
	stage    sessions.Stage
	question string
	enabled  func(f tenants.CaptureFlags, in intent.Intent) bool
}

// captureSteps is the message-capture sequence, in order.
var captureSteps = []captureStep{
	{sessions.StageMsgName, questionName, func(f tenants.CaptureFlags, _ intent.Intent) bool { return f.Name }},
	{sessions.StageMsgPhone, questionPhone, func(f tenants.CaptureFlags, _ intent.Intent) bool { return f.Callback }},
	{sessions.StageAskTime, questionTime, func(f tenants.CaptureFlags, _ intent.Intent) bool { return f.PreferredTime }},
	{sessions.StageMsgBody, questionBody, func(f tenants.CaptureFlags, in intent.Intent) bool {
		return f.Reason && in == intent.Message
	}},
}

// nextCaptureStep returns the first enabled step after stage. An empty stage
// starts from the beginning.
func nextCaptureStep(after sessions.Stage, f tenants.CaptureFlags, in intent.Intent) (captureStep, bool) {
	started := after == ""
	for _, st := range captureSteps {
		if !started {
			started = st.stage == after
			continue
		}
		if st.enabled(f, in) {
			return st, true
		}
	}
	return captureStep{}, false
}

// advanceCapture moves past stage, either asking the next question or
// completing the capture.
func advanceCapture(t tenants.Tenant, after sessions.Stage, in intent.Intent, data sessions.Data, lead string) outcome {
	if st, ok := nextCaptureStep(after, t.Capture, in); ok {
		out := listen(st.stage, lead+" "+st.question)
		out.intent, out.data = in, data
		return out
	}
	out := hangup(calllog.OutcomeCompleted, promptMessageConfirm)
	out.intent, out.data, out.capture = in, data, true
	return out
}

// scripted is the message-mode state machine for a non-empty utterance.
func scripted(t tenants.Tenant, s sessions.Session, utterance string) outcome {
	in := intent.Intent(s.Intent)

	switch s.Stage {
	case sessions.StageRoot:
		in = intent.Classify(utterance)
		data := sessions.Data{FirstUtterance: utterance}
		if t.Capture.Reason {
			data.Reason = utterance
		}
		var out outcome
		switch in {
		case intent.Appointment:
			out = listen(sessions.StageApptDateTime, promptApptDateTime)
		case intent.Hours:
			out = listen(sessions.StageHoursLocation, promptHoursLocation)
		case intent.Pricing:
			out = listen(sessions.StagePricingDetails, promptPricingDetails)
		case intent.Message:
			return advanceCapture(t, "", in, data, leadMessage)
		default:
			return advanceCapture(t, "", in, data, leadGeneral)
		}
		out.intent, out.data = in, data
		return out

	case sessions.StageHoursLocation:
		return advanceCapture(t, "", in, sessions.Data{Location: utterance}, leadHours)

	case sessions.StagePricingDetails:
		return advanceCapture(t, "", in, sessions.Data{PricingDetails: utterance}, leadPricing)

	case sessions.StageApptDateTime:
		out := listen(sessions.StageApptName, promptApptName)
		out.intent, out.data = intent.Appointment, sessions.Data{ApptDateTime: utterance}
		return out

	case sessions.StageApptName:
		out := listen(sessions.StageApptPhone, promptApptPhone)
		out.intent, out.data = intent.Appointment, sessions.Data{Name: utterance}
		return out

	case sessions.StageApptPhone:
		out := hangup(calllog.OutcomeCompleted, promptApptConfirm)
		out.intent, out.data, out.capture = intent.Appointment, sessions.Data{Phone: utterance}, true
		return out

	case sessions.StageMsgName:
		return advanceCapture(t, s.Stage, in, sessions.Data{Name: utterance}, leadName)

	case sessions.StageMsgPhone:
		return advanceCapture(t, s.Stage, in, sessions.Data{Phone: utterance}, leadPhone)

	case sessions.StageAskTime:
		return advanceCapture(t, s.Stage, in, sessions.Data{PreferredTime: utterance}, leadTime)

	case sessions.StageMsgBody:
		return advanceCapture(t, s.Stage, in, sessions.Data{Message: utterance}, "")

	case sessions.StageDone:
		return hangup(calllog.OutcomeHangup, promptMessageConfirm)
	}

	// Unknown stage, or an ai-stage session whose tenant switched modes.
	out := listen(sessions.StageRoot, promptRestart)
	out.intent = in
	return out
}

// stageQuestion is what the caller is re-asked after a silent turn.
func stageQuestion(t tenants.Tenant, s sessions.Session) string {
	switch s.Stage {
	case sessions.StageRoot:
		if t.Mode == tenants.ModeAI {
			return promptAIOpen
		}
		return promptMenu
	case sessions.StageAI:
		return promptAIOpen
	case sessions.StageHoursLocation:
		return promptHoursLocation
	case sessions.StagePricingDetails:
		return promptPricingDetails
	case sessions.StageApptDateTime:
		return "What day and time would you like the appointment?"
	case sessions.StageApptName:
		return questionName
	case sessions.StageApptPhone:
		return questionPhone
	}
	for _, st := range captureSteps {
		if st.stage == s.Stage {
			return st.question
		}
	}
	return "Please tell me how I can help."
}
