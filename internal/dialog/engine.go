// Package dialog runs the per-turn receptionist state machine.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/intent"
	"call-receptionist/internal/messages"
	"call-receptionist/internal/metrics"
	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
	"call-receptionist/pkg/logger"
)

// Options tunes the engine. Zero values take the defaults below.
type Options struct {
	// MaxSteps is the hard ceiling on turns per call.
	MaxSteps int
	// HistoryTurns is the AI-mode recent-turns capacity.
	HistoryTurns int
	// StoreTimeout bounds each directory, session, log and message operation.
	StoreTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxSteps <= 0 {
		o.MaxSteps = 12
	}
	if o.HistoryTurns <= 0 {
		o.HistoryTurns = 6
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 2 * time.Second
	}
	return o
}

// Deps are the engine's collaborators. Responder and Metrics may be nil.
type Deps struct {
	Tenants   TenantDirectory
	Sessions  sessions.Store
	CallLog   CallLog
	Messages  MessageSink
	Responder Responder
	Metrics   *metrics.Recorder
	Now       func() time.Time
}

type Engine struct {
	tenants   TenantDirectory
	sessions  sessions.Store
	calls     CallLog
	messages  MessageSink
	responder Responder
	metrics   *metrics.Recorder
	now       func() time.Time
	opts      Options
}

func NewEngine(d Deps, opts Options) *Engine {
	now := d.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		tenants:   d.Tenants,
		sessions:  d.Sessions,
		calls:     d.CallLog,
		messages:  d.Messages,
		responder: d.Responder,
		metrics:   d.Metrics,
		now:       now,
		opts:      opts.withDefaults(),
	}
}

// Greet answers a new call. It is not a turn: nothing is persisted.
func (e *Engine) Greet(ctx context.Context, t Turn) Response {
	ctx = logger.WithCall(ctx, t.CallID, t.DialedNumber)

	tenant, err := e.resolve(ctx, t.DialedNumber)
	name := unknownBusinessName
	question := promptMenu
	if err == nil {
		if n := strings.TrimSpace(tenant.BusinessName); n != "" {
			name = n
		}
		if tenant.Mode == tenants.ModeAI {
			question = promptAIOpen
		}
	} else if !errors.Is(err, tenants.ErrNotFound) {
		logger.From(ctx).Error("tenant lookup failed on greeting", "err", err)
	}

	return Response{
		Say: []string{
			promptRecordingNotice,
			fmt.Sprintf("Welcome to %s.", name),
			tenant.GreetingOrDefault(),
			question,
		},
		Action: ActionListen,
		Stage:  sessions.StageRoot,
	}
}

// HandleTurn advances the call by one turn. It never fails: every path ends
// in something spoken plus either listen or hangup.
func (e *Engine) HandleTurn(ctx context.Context, t Turn) Response {
	start := e.now()
	ctx = logger.WithCall(ctx, t.CallID, t.DialedNumber)
	log := logger.From(ctx)
	t.Utterance = strings.TrimSpace(t.Utterance)

	tenant, err := e.resolve(ctx, t.DialedNumber)
	if err != nil {
		out := hangup(calllog.OutcomeUnlinked, promptUnlinked)
		if !errors.Is(err, tenants.ErrNotFound) {
			log.Error("tenant lookup failed", "err", err)
			e.metrics.StoreError("tenant_resolve")
			out = hangup(calllog.OutcomeError, promptUnavailable)
		}
		e.record(ctx, t, tenants.Tenant{}, sessions.StageRoot, "", out)
		return e.respond(tenants.Tenant{}, sessions.StageRoot, out, start)
	}

	sess, err := e.getOrCreate(ctx, t.CallID, tenant.ID)
	if err != nil {
		log.Error("session load failed", "tenant_id", tenant.ID, "err", err)
		e.metrics.StoreError("session_get")
		out := hangup(calllog.OutcomeError, promptUnavailable)
		e.record(ctx, t, tenant, sessions.StageRoot, "", out)
		return e.respond(tenant, sessions.StageRoot, out, start)
	}

	// A telephony retry of the turn we already answered.
	if t.TurnID != "" && t.TurnID == sess.LastTurnID && len(sess.LastSay) > 0 {
		log.Info("replaying response for retried turn", "turn_id", t.TurnID)
		return Response{Say: append([]string(nil), sess.LastSay...), Action: ActionListen, Stage: sess.Stage, Intent: sess.Intent}
	}

	step := sess.Step + 1
	var out outcome
	switch {
	case step > e.opts.MaxSteps:
		log.Info("step cap reached, ending call", "tenant_id", tenant.ID, "step", step, "stage", string(sess.Stage))
		out = hangup(calllog.OutcomeForced, promptForcedEnd)
	case t.Utterance == "":
		out = silence(tenant, sess)
	case tenant.Mode == tenants.ModeAI:
		out = e.aiTurn(ctx, tenant, sess, t.Utterance)
	default:
		out = scripted(tenant, sess, t.Utterance)
	}

	e.commit(ctx, t, tenant, sess, step, out)
	e.record(ctx, t, tenant, sess.Stage, e.intentOf(sess, out), out)
	return e.respond(tenant, sess.Stage, out, start)
}

func silence(t tenants.Tenant, s sessions.Session) outcome {
	if s.SilentTurns >= 1 {
		return hangup(calllog.OutcomeHangup, promptSilenceGoodbye)
	}
	out := listen(s.Stage, promptSilenceRetry+" "+stageQuestion(t, s))
	out.silent = 1
	return out
}

// commit persists the transition. Failures are logged and the caller still
// hears the reply.
func (e *Engine) commit(ctx context.Context, t Turn, tenant tenants.Tenant, s sessions.Session, step int, out outcome) {
	log := logger.From(ctx)

	if out.capture && e.messages != nil {
		m := buildMessage(t, tenant, e.intentOf(s, out), s.Data.Merge(out.data))
		sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
		created, err := e.messages.Capture(sctx, m)
		cancel()
		switch {
		case err != nil:
			log.Error("message capture failed", "tenant_id", tenant.ID, "err", err)
			e.metrics.StoreError("message_capture")
		case created:
			e.metrics.MessageCaptured(m.Intent)
		}
	}

	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	if out.end {
		if err := e.sessions.Delete(sctx, t.CallID); err != nil {
			log.Error("session delete failed", "tenant_id", tenant.ID, "err", err)
			e.metrics.StoreError("session_delete")
		}
		return
	}

	silent := out.silent
	_, err := e.sessions.Update(sctx, t.CallID, sessions.Patch{
		Stage:       out.next,
		Intent:      string(out.intent),
		Step:        step,
		SilentTurns: &silent,
		Data:        out.data,
		LastTurnID:  t.TurnID,
		LastSay:     out.say,
	})
	if err != nil {
		log.Error("session update failed", "tenant_id", tenant.ID, "err", err)
		e.metrics.StoreError("session_update")
	}
}

// record appends the call log entry. Stage is the stage the turn was taken at.
func (e *Engine) record(ctx context.Context, t Turn, tenant tenants.Tenant, stage sessions.Stage, in intent.Intent, out outcome) {
	if e.calls == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	_, err := e.calls.Append(sctx, calllog.Entry{
		CallID:       t.CallID,
		TenantID:     tenant.ID,
		DialedNumber: tenants.NormalizeNumber(t.DialedNumber),
		CallerNumber: t.CallerNumber,
		Stage:        string(stage),
		Intent:       string(in),
		Utterance:    t.Utterance,
		Reply:        strings.Join(out.say, " "),
		Outcome:      out.kind,
		CreatedAt:    e.now(),
	})
	if err != nil {
		logger.From(ctx).Error("call log append failed", "err", err)
		e.metrics.StoreError("calllog_append")
	}
}

func (e *Engine) respond(t tenants.Tenant, stage sessions.Stage, out outcome, start time.Time) Response {
	mode := string(t.Mode)
	if mode == "" {
		mode = "unlinked"
	}
	e.metrics.Turn(string(stage), string(out.kind))
	e.metrics.TurnDuration(mode, e.now().Sub(start))

	r := Response{Say: out.say, Action: ActionListen, Stage: out.next, Intent: string(out.intent)}
	if out.end {
		r.Action = ActionHangup
		r.Stage = sessions.StageDone
	}
	return r
}

func (e *Engine) intentOf(s sessions.Session, out outcome) intent.Intent {
	if out.intent != "" {
		return out.intent
	}
	return intent.Intent(s.Intent)
}

func (e *Engine) resolve(ctx context.Context, dialed string) (tenants.Tenant, error) {
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	return e.tenants.Resolve(sctx, dialed)
}

func (e *Engine) getOrCreate(ctx context.Context, callID, tenantID string) (sessions.Session, error) {
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()
	return e.sessions.GetOrCreate(sctx, callID, tenantID)
}

func buildMessage(t Turn, tenant tenants.Tenant, in intent.Intent, d sessions.Data) messages.Message {
	m := messages.Message{
		CallID:         t.CallID,
		TenantID:       tenant.ID,
		CallerNumber:   t.CallerNumber,
		Name:           d.Name,
		CallbackNumber: d.Phone,
		PreferredTime:  d.PreferredTime,
		Intent:         string(in),
		Details:        d.Fields(),
	}
	if m.CallbackNumber == "" {
		m.CallbackNumber = t.CallerNumber
	}

	if in == intent.Appointment {
		m.ReasonOrMessage = fmt.Sprintf("Appointment request: %s | Caller said: %s", d.ApptDateTime, d.FirstUtterance)
		if m.PreferredTime == "" {
			m.PreferredTime = d.ApptDateTime
		}
		return m
	}

	parts := []string{firstNonEmpty(d.Message, d.Reason, d.FirstUtterance)}
	if d.Location != "" {
		parts = append(parts, "Location: "+d.Location)
	}
	if d.PricingDetails != "" {
		parts = append(parts, "Service: "+d.PricingDetails)
	}
	m.ReasonOrMessage = strings.Join(parts, " | ")
	return m
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
