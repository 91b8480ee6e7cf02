package reporting

import (
	"context"
	"errors"
	"testing"
	"time"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
)

func window(now time.Time) TimeRange {
	return TimeRange{From: now.Add(-time.Hour), To: now.Add(time.Hour)}
}

func TestReporting_TenantIsolation(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Entries = []calllog.Entry{
		{CallID: "c1", TenantID: "t1", Stage: "root", Intent: "hours", Utterance: "hours", Outcome: calllog.OutcomeListen, CreatedAt: now},
		{CallID: "c2", TenantID: "t2", Stage: "root", Intent: "pricing", Utterance: "price", Outcome: calllog.OutcomeListen, CreatedAt: now},
	}
	svc := NewService(repo)

	out, err := svc.Summary(context.Background(), SummaryRequest{TenantID: "t1", Range: window(now)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Calls != 1 || out.Intents["hours"] != 1 || out.Intents["pricing"] != 0 {
		t.Fatalf("unexpected summary: %+v", out)
	}
}

func TestReporting_SummaryAggregates(t *testing.T) {
	repo := NewMemoryRepo()
	now := time.Unix(1700000000, 0).UTC()
	repo.Entries = []calllog.Entry{
		{CallID: "a", TenantID: "t", Stage: "root", Intent: "appointment", Utterance: "book", Outcome: calllog.OutcomeListen, CreatedAt: now},
		{CallID: "a", TenantID: "t", Stage: "appt_datetime", Intent: "appointment", Utterance: "", Outcome: calllog.OutcomeListen, CreatedAt: now},
		{CallID: "a", TenantID: "t", Stage: "appt_phone", Intent: "appointment", Utterance: "555", Outcome: calllog.OutcomeCompleted, CreatedAt: now},
		{CallID: "b", TenantID: "t", Stage: "root", Utterance: "", Outcome: calllog.OutcomeListen, CreatedAt: now},
		{CallID: "b", TenantID: "t", Stage: "root", Utterance: "", Outcome: calllog.OutcomeHangup, CreatedAt: now},
		{CallID: "c", TenantID: "t", Stage: "ai", Intent: "general", Utterance: "hi", Outcome: calllog.OutcomeForced, CreatedAt: now},
		{CallID: "old", TenantID: "t", Stage: "root", Utterance: "x", Outcome: calllog.OutcomeListen, CreatedAt: now.Add(-2 * time.Hour)},
	}
	repo.Messages = []messages.Message{
		{ID: "m1", CallID: "a", TenantID: "t", Intent: "appointment", CreatedAt: now},
	}

	out, err := NewService(repo).Summary(context.Background(), SummaryRequest{TenantID: "t", Range: window(now)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Calls != 3 || out.Turns != 6 || out.SilentTurns != 3 {
		t.Fatalf("unexpected counts: %+v", out)
	}
	if out.CompletedCalls != 1 || out.CallerHangups != 1 || out.ForcedTerminations != 1 {
		t.Fatalf("unexpected outcomes: %+v", out)
	}
	if out.Intents["appointment"] != 1 || out.Intents["general"] != 1 || out.Intents[unclassified] != 1 {
		t.Fatalf("unexpected intents: %+v", out.Intents)
	}
	if out.MessagesCaptured != 1 || out.MessagesByIntent["appointment"] != 1 {
		t.Fatalf("unexpected messages: %+v", out)
	}
	if out.AverageTurnsPerCall != 2 {
		t.Fatalf("expected 2 turns per call, got %v", out.AverageTurnsPerCall)
	}
}

func TestReporting_RejectsBadRange(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	now := time.Unix(1700000000, 0).UTC()
	for _, r := range []TimeRange{
		{},
		{From: now, To: now},
		{From: now, To: now.Add(200 * 24 * time.Hour)},
	} {
		if _, err := svc.Summary(context.Background(), SummaryRequest{TenantID: "t", Range: r}); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("range %+v: expected ErrInvalidRequest, got %v", r, err)
		}
	}
}

func TestSourceRepo_ReadsUnderlyingStores(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1700000000, 0).UTC()

	turns := calllog.NewMemoryRepo()
	msgs := messages.NewMemoryRepo()
	_, _ = turns.Append(ctx, calllog.Entry{CallID: "c", TenantID: "t", Stage: "root", Outcome: calllog.OutcomeListen, CreatedAt: now})
	_, _ = msgs.Create(ctx, messages.Message{ID: "m", CallID: "c", TenantID: "t", Intent: "message", CreatedAt: now})

	out, err := NewService(SourceRepo{Turns: turns, Messages: msgs}).Summary(ctx, SummaryRequest{TenantID: "t", Range: window(now)})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out.Turns != 1 || out.MessagesCaptured != 1 {
		t.Fatalf("unexpected summary: %+v", out)
	}
}
