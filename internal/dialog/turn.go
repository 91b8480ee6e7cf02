package dialog

import (
	"context"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
	"call-receptionist/internal/responder"
	"call-receptionist/internal/sessions"
	"call-receptionist/internal/tenants"
)

// Turn is one inbound telephony callback.
type Turn struct {
	CallID       string
	DialedNumber string
	CallerNumber string
	// Utterance is empty when no speech was detected.
	Utterance string
	// TurnID identifies a delivery attempt; retries carry the same id.
	TurnID string
}

type Action string

const (
	ActionListen Action = "listen"
	ActionHangup Action = "hangup"
)

// Response is the speak/listen/terminate answer for a turn.
type Response struct {
	Say    []string
	Action Action
	// Stage is the session stage after the turn; StageDone once the call ends.
	Stage  sessions.Stage
	Intent string
}

func (r Response) Hangup() bool { return r.Action == ActionHangup }

type TenantDirectory interface {
	Resolve(ctx context.Context, dialed string) (tenants.Tenant, error)
}

type CallLog interface {
	Append(ctx context.Context, e calllog.Entry) (calllog.Entry, error)
}

type MessageSink interface {
	Capture(ctx context.Context, m messages.Message) (bool, error)
}

type Responder interface {
	Generate(ctx context.Context, req responder.Request) responder.Result
}
