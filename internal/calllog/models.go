package calllog

import "time"

// Entry is one dialog turn as seen by operators.
//
// Invariants:
// - Entries are never updated or deleted.
// - Every turn produces one entry, including silent turns and the closing turn.
// - TenantID is empty when the dialed number matched no tenant.
type Entry struct {
	ID           int64     `json:"id"`
	CallID       string    `json:"call_id"`
	TenantID     string    `json:"tenant_id,omitempty"`
	DialedNumber string    `json:"dialed_number"`
	CallerNumber string    `json:"caller_number"`
	Stage        string    `json:"stage"`
	Intent       string    `json:"intent,omitempty"`
	Utterance    string    `json:"utterance"`
	Reply        string    `json:"reply"`
	Outcome      Outcome   `json:"outcome"`
	CreatedAt    time.Time `json:"created_at"`
}

// Outcome classifies how a turn ended.
type Outcome string

const (
	OutcomeListen    Outcome = "listen"
	OutcomeCompleted Outcome = "completed"
	OutcomeHangup    Outcome = "hangup"
	OutcomeForced    Outcome = "forced_end"
	OutcomeUnlinked  Outcome = "unlinked"
	OutcomeError     Outcome = "error"
)

// Query selects entries for one tenant. Zero From/To are open bounds.
type Query struct {
	TenantID string
	From     time.Time
	To       time.Time
	Limit    int
}

func (q Query) matches(e Entry) bool {
	if e.TenantID != q.TenantID {
		return false
	}
	if !q.From.IsZero() && e.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !e.CreatedAt.Before(q.To) {
		return false
	}
	return true
}
