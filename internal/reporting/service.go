package reporting

import (
	"context"
	"errors"
	"time"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// maxRange bounds a single summary so one request cannot scan the whole log.
const maxRange = 93 * 24 * time.Hour

// Repository abstracts data access for reporting.
// Methods must enforce tenant filtering and read only the append-only
// sources (call log and captured messages).
type Repository interface {
	ListTurns(ctx context.Context, tenantID string, from, to time.Time) ([]calllog.Entry, error)
	ListMessages(ctx context.Context, tenantID string, from, to time.Time) ([]messages.Message, error)
}

// SourceRepo reads straight from the call log and message repositories.
type SourceRepo struct {
	Turns    calllog.Repository
	Messages messages.Repository
}

func (r SourceRepo) ListTurns(ctx context.Context, tenantID string, from, to time.Time) ([]calllog.Entry, error) {
	return r.Turns.List(ctx, calllog.Query{TenantID: tenantID, From: from, To: to})
}

func (r SourceRepo) ListMessages(ctx context.Context, tenantID string, from, to time.Time) ([]messages.Message, error) {
	return r.Messages.List(ctx, messages.Query{TenantID: tenantID, From: from, To: to})
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

const unclassified = "unclassified"

func (s *Service) Summary(ctx context.Context, req SummaryRequest) (Summary, error) {
	if req.TenantID == "" {
		return Summary{}, ErrInvalidRequest
	}
	if req.Range.From.IsZero() || req.Range.To.IsZero() || !req.Range.To.After(req.Range.From) {
		return Summary{}, ErrInvalidRequest
	}
	if req.Range.To.Sub(req.Range.From) > maxRange {
		return Summary{}, ErrInvalidRequest
	}
	if s.repo == nil {
		return Summary{}, errors.New("reporting: repository not configured")
	}

	turns, err := s.repo.ListTurns(ctx, req.TenantID, req.Range.From, req.Range.To)
	if err != nil {
		return Summary{}, err
	}
	msgs, err := s.repo.ListMessages(ctx, req.TenantID, req.Range.From, req.Range.To)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{
		TenantID:         req.TenantID,
		Range:            req.Range,
		Intents:          map[string]int{},
		MessagesByIntent: map[string]int{},
	}

	// A call's intent is the one recorded on any of its turns; it is fixed
	// once classified.
	callIntent := map[string]string{}
	for _, e := range turns {
		out.Turns++
		if _, seen := callIntent[e.CallID]; !seen {
			callIntent[e.CallID] = ""
		}
		if e.Intent != "" {
			callIntent[e.CallID] = e.Intent
		}
		if e.Utterance == "" {
			out.SilentTurns++
		}
		switch e.Outcome {
		case calllog.OutcomeCompleted:
			out.CompletedCalls++
		case calllog.OutcomeHangup:
			out.CallerHangups++
		case calllog.OutcomeForced:
			out.ForcedTerminations++
		case calllog.OutcomeUnlinked:
			out.UnlinkedTurns++
		case calllog.OutcomeError:
			out.ErrorTurns++
		case calllog.OutcomeListen:
			// mid-dialog
		}
	}
	out.Calls = len(callIntent)
	for _, in := range callIntent {
		if in == "" {
			in = unclassified
		}
		out.Intents[in]++
	}

	for _, m := range msgs {
		out.MessagesCaptured++
		out.MessagesByIntent[m.Intent]++
	}

	if out.Calls > 0 {
		out.AverageTurnsPerCall = float64(out.Turns) / float64(out.Calls)
	}
	return out, nil
}
