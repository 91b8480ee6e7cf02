package messages

import (
	"errors"
	"strings"
	"time"
)

// Message is a lead captured at the end of a scripted dialog. One per call,
// written once and never updated.
type Message struct {
	ID              string            `json:"id"`
	CallID          string            `json:"call_id"`
	TenantID        string            `json:"tenant_id"`
	CallerNumber    string            `json:"caller_number,omitempty"`
	Name            string            `json:"name,omitempty"`
	CallbackNumber  string            `json:"callback_number,omitempty"`
	ReasonOrMessage string            `json:"reason_or_message"`
	PreferredTime   string            `json:"preferred_time,omitempty"`
	Intent          string            `json:"intent"`
	Details         map[string]string `json:"details,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

var ErrInvalidMessage = errors.New("messages: invalid message")

func (m Message) Validate() error {
	if strings.TrimSpace(m.CallID) == "" || strings.TrimSpace(m.TenantID) == "" || m.Intent == "" {
		return ErrInvalidMessage
	}
	return nil
}

// Query selects messages for one tenant. Zero From/To are open bounds.
type Query struct {
	TenantID string
	From     time.Time
	To       time.Time
	Limit    int
}

func (q Query) matches(m Message) bool {
	if m.TenantID != q.TenantID {
		return false
	}
	if !q.From.IsZero() && m.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !m.CreatedAt.Before(q.To) {
		return false
	}
	return true
}
