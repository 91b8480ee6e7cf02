package sessions

import (
	"errors"
	"time"
)

// Stage is the dialog position of a call.
type Stage string

const (
	StageRoot           Stage = "root"
	StageHoursLocation  Stage = "hours_location"
	StagePricingDetails Stage = "pricing_details"
	StageApptDateTime   Stage = "appt_datetime"
	StageApptName       Stage = "appt_name"
	StageApptPhone      Stage = "appt_phone"
	StageMsgName        Stage = "msg_name"
	StageMsgPhone       Stage = "msg_phone"
	StageAskTime        Stage = "ask_time"
	StageMsgBody        Stage = "msg_body"
	StageDone           Stage = "done"
	StageAI             Stage = "ai"
)

// Known reports whether s is one of the stages the dialog engine handles.
func (s Stage) Known() bool {
	switch s {
	case StageRoot, StageHoursLocation, StagePricingDetails,
		StageApptDateTime, StageApptName, StageApptPhone,
		StageMsgName, StageMsgPhone, StageAskTime, StageMsgBody,
		StageDone, StageAI:
		return true
	}
	return false
}

// Turn is one caller/assistant exchange kept for AI context.
type Turn struct {
	Caller    string `json:"caller"`
	Assistant string `json:"assistant"`
}

// Data is everything collected during a call.
type Data struct {
	FirstUtterance string `json:"first_utterance,omitempty"`
	Reason         string `json:"reason,omitempty"`
	Location       string `json:"location,omitempty"`
	PricingDetails string `json:"pricing_details,omitempty"`
	ApptDateTime   string `json:"appt_datetime,omitempty"`
	Name           string `json:"name,omitempty"`
	Phone          string `json:"phone,omitempty"`
	PreferredTime  string `json:"preferred_time,omitempty"`
	Message        string `json:"message,omitempty"`

	// RecentTurns is a FIFO of the latest exchanges, oldest first.
	RecentTurns []Turn `json:"recent_turns,omitempty"`
}

// Merge overlays non-empty fields of p onto d. A field, once set, is only
// ever replaced by another non-empty value, never cleared.
func (d Data) Merge(p Data) Data {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&d.FirstUtterance, p.FirstUtterance)
	set(&d.Reason, p.Reason)
	set(&d.Location, p.Location)
	set(&d.PricingDetails, p.PricingDetails)
	set(&d.ApptDateTime, p.ApptDateTime)
	set(&d.Name, p.Name)
	set(&d.Phone, p.Phone)
	set(&d.PreferredTime, p.PreferredTime)
	set(&d.Message, p.Message)
	if p.RecentTurns != nil {
		d.RecentTurns = append([]Turn(nil), p.RecentTurns...)
	}
	return d
}

// Fields returns the populated scalar fields keyed by their JSON names.
func (d Data) Fields() map[string]string {
	out := map[string]string{}
	add := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	add("first_utterance", d.FirstUtterance)
	add("reason", d.Reason)
	add("location", d.Location)
	add("pricing_details", d.PricingDetails)
	add("appt_datetime", d.ApptDateTime)
	add("name", d.Name)
	add("phone", d.Phone)
	add("preferred_time", d.PreferredTime)
	add("message", d.Message)
	return out
}

// AppendTurn returns the recent turns with t appended, evicting the oldest
// entries beyond capacity. The receiver is not modified.
func (d Data) AppendTurn(t Turn, capacity int) []Turn {
	if capacity <= 0 {
		return []Turn{}
	}
	out := make([]Turn, 0, capacity)
	out = append(out, d.RecentTurns...)
	out = append(out, t)
	if len(out) > capacity {
		out = out[len(out)-capacity:]
	}
	return out
}

// Session is the per-call record.
type Session struct {
	CallID      string    `json:"call_id"`
	TenantID    string    `json:"tenant_id"`
	Stage       Stage     `json:"stage"`
	Intent      string    `json:"intent,omitempty"`
	Step        int       `json:"step"`
	SilentTurns int       `json:"silent_turns"`
	Data        Data      `json:"data"`
	LastTurnID  string    `json:"last_turn_id,omitempty"`
	LastSay     []string  `json:"last_say,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newSession(callID, tenantID string, now time.Time) Session {
	return Session{
		CallID:    callID,
		TenantID:  tenantID,
		Stage:     StageRoot,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Patch is a partial update. Zero values leave the field unchanged.
// Step is absolute, so applying the same patch twice is a no-op.
type Patch struct {
	Stage       Stage
	Intent      string
	Step        int
	SilentTurns *int
	Data        Data
	LastTurnID  string
	LastSay     []string
}

// Apply returns s with p merged in. Step never decreases.
func (s Session) Apply(p Patch, now time.Time) Session {
	if p.Stage != "" {
		s.Stage = p.Stage
	}
	if p.Intent != "" {
		s.Intent = p.Intent
	}
	if p.Step > s.Step {
		s.Step = p.Step
	}
	if p.SilentTurns != nil {
		s.SilentTurns = *p.SilentTurns
	}
	s.Data = s.Data.Merge(p.Data)
	if p.LastTurnID != "" {
		s.LastTurnID = p.LastTurnID
		s.LastSay = append([]string(nil), p.LastSay...)
	}
	s.UpdatedAt = now
	return s
}

var (
	ErrNotFound = errors.New("sessions: not found")
	ErrConflict = errors.New("sessions: concurrent update")
)
