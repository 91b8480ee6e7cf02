package calllog

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestService_AppendRequiresCallAndStage(t *testing.T) {
	svc := NewService(NewMemoryRepo())

	if _, err := svc.Append(context.Background(), Entry{Stage: "root"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
	if _, err := svc.Append(context.Background(), Entry{CallID: "CA1"}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected ErrInvalidEntry, got %v", err)
	}
}

func TestService_AppendKeepsEmptyUtterances(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	e, err := svc.Append(context.Background(), Entry{CallID: "CA1", Stage: "msg_phone", Reply: "I did not catch that."})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if e.ID != 1 || e.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp assigned, got %+v", e)
	}
	if got := repo.Entries(); len(got) != 1 || got[0].Utterance != "" {
		t.Fatalf("expected one silent entry, got %+v", got)
	}
}

func TestService_StripsMarkup(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Append(context.Background(), Entry{
		CallID:    "CA1",
		Stage:     "appt_datetime",
		Utterance: "<b>tuesday</b>   at 3 & 4",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := repo.Entries()[0].Utterance; got != "tuesday at 3 & 4" {
		t.Fatalf("unexpected cleaned utterance %q", got)
	}
}

func TestService_StripsEncodedMarkup(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_, err := svc.Append(context.Background(), Entry{
		CallID:    "CA1",
		Stage:     "root",
		Utterance: "&lt;b&gt;hi&lt;/b&gt; it's 3 &amp; 4",
		Reply:     "a < b",
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	e := repo.Entries()[0]
	if e.Utterance != "hi it's 3 & 4" {
		t.Fatalf("unexpected cleaned utterance %q", e.Utterance)
	}
	if e.Reply != "a &lt; b" {
		t.Fatalf("expected angle bracket to stay escaped, got %q", e.Reply)
	}
}

func TestService_TruncatesLongText(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	_, _ = svc.Append(context.Background(), Entry{CallID: "CA1", Stage: "ai", Reply: strings.Repeat("a", 5000)})
	if got := len(repo.Entries()[0].Reply); got != maxTextLen {
		t.Fatalf("expected reply truncated to %d, got %d", maxTextLen, got)
	}
}

func TestService_ListScopesByTenantNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, tenant := range []string{"t1", "t2", "t1", "t1"} {
		_, _ = svc.Append(context.Background(), Entry{
			CallID: "CA1", TenantID: tenant, Stage: "root", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got, err := svc.List(context.Background(), Query{TenantID: "t1", Limit: 2})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(got) != 2 || got[0].ID != 4 || got[1].ID != 3 {
		t.Fatalf("unexpected listing: %+v", got)
	}

	windowed, _ := svc.List(context.Background(), Query{TenantID: "t1", From: base.Add(time.Minute), To: base.Add(3 * time.Minute)})
	if len(windowed) != 1 || windowed[0].ID != 3 {
		t.Fatalf("unexpected windowed listing: %+v", windowed)
	}

	if _, err := svc.List(context.Background(), Query{}); !errors.Is(err, ErrInvalidEntry) {
		t.Fatalf("expected tenant required, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	if clampLimit(0) != defaultListLimit || clampLimit(500) != maxListLimit || clampLimit(7) != 7 {
		t.Fatalf("unexpected clamp results")
	}
}
