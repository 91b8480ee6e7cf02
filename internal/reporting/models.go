package reporting

import "time"

type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SummaryRequest asks for aggregated call activity of one tenant.
// Tenant isolation: TenantID is required.
type SummaryRequest struct {
	TenantID string    `json:"tenant_id"`
	Range    TimeRange `json:"range"`
}

type Summary struct {
	TenantID string    `json:"tenant_id"`
	Range    TimeRange `json:"range"`

	Calls       int `json:"calls"`
	Turns       int `json:"turns"`
	SilentTurns int `json:"silent_turns"`

	// Intents counts calls by the intent they were classified with. Calls
	// that hung up before classification land under "unclassified".
	Intents map[string]int `json:"intents"`

	CompletedCalls     int `json:"completed_calls"`
	CallerHangups      int `json:"caller_hangups"`
	ForcedTerminations int `json:"forced_terminations"`
	UnlinkedTurns      int `json:"unlinked_turns"`
	ErrorTurns         int `json:"error_turns"`

	MessagesCaptured    int            `json:"messages_captured"`
	MessagesByIntent    map[string]int `json:"messages_by_intent"`
	AverageTurnsPerCall float64        `json:"average_turns_per_call"`
}
