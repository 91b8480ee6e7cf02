package dialog

import (
	"context"
	"strings"
	"unicode"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/intent"
	"call-receptionist/internal/responder"
	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
	"call-receptionist/pkg/logger"
)

var closingMarkers = []string{"goodbye", "bye", "hang up", "never mind", "cancel"}

// hasClosingMarker matches markers on word boundaries, so "bye-bye" ends
// the call and "cancellation policy" does not.
func hasClosingMarker(reply string) bool {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, reply)
	text := " " + strings.Join(strings.Fields(mapped), " ") + " "
	for _, m := range closingMarkers {
		if strings.Contains(text, " "+m+" ") {
			return true
		}
	}
	return false
}

func (e *Engine) aiTurn(ctx context.Context, t tenants.Tenant, s sessions.Session, utterance string) outcome {
	res := e.generate(ctx, responder.Request{Tenant: t, Recent: s.Data.RecentTurns, Utterance: utterance})
	reply := res.Utterance
	if !res.OK() {
		logger.From(ctx).Warn("responder failed, using fallback",
			"tenant_id", t.ID, "kind", string(res.Failure), "err", res.Err)
		e.metrics.ResponderFailure(string(res.Failure))
		reply = promptAIFallback
	}

	data := sessions.Data{
		RecentTurns: s.Data.AppendTurn(sessions.Turn{Caller: utterance, Assistant: reply}, e.opts.HistoryTurns),
	}
	in := intent.Intent(s.Intent)
	if s.Data.FirstUtterance == "" {
		data.FirstUtterance = utterance
		in = intent.Classify(utterance)
	}

	out := listen(sessions.StageAI, reply)
	if hasClosingMarker(reply) {
		out = hangup(calllog.OutcomeHangup, reply)
	}
	out.intent, out.data = in, data
	return out
}

func (e *Engine) generate(ctx context.Context, req responder.Request) responder.Result {
	if e.responder == nil {
		return responder.Result{Failure: responder.FailureUnavailable}
	}
	return e.responder.Generate(ctx, req)
}
