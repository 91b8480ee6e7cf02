package sessions

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestData_MergeNeverErases(t *testing.T) {
	d := Data{Name: "Ana", Phone: "555"}
	d = d.Merge(Data{Name: "", Message: "leaky tap"})
	if d.Name != "Ana" || d.Phone != "555" || d.Message != "leaky tap" {
		t.Fatalf("unexpected merge result: %+v", d)
	}
	d = d.Merge(Data{Name: "Ana Lopez"})
	if d.Name != "Ana Lopez" {
		t.Fatalf("expected overwrite with non-empty value, got %q", d.Name)
	}
}

func TestData_AppendTurnEvictsOldest(t *testing.T) {
	var d Data
	for i := 0; i < 8; i++ {
		d.RecentTurns = d.AppendTurn(Turn{Caller: string(rune('a' + i))}, 6)
	}
	if len(d.RecentTurns) != 6 {
		t.Fatalf("expected capacity 6, got %d", len(d.RecentTurns))
	}
	if d.RecentTurns[0].Caller != "c" || d.RecentTurns[5].Caller != "h" {
		t.Fatalf("unexpected order: %+v", d.RecentTurns)
	}
}

func TestData_Fields(t *testing.T) {
	f := Data{ApptDateTime: "tuesday 3pm", Name: "Ana", Phone: "555", FirstUtterance: "book"}.Fields()
	for _, k := range []string{"appt_datetime", "name", "phone", "first_utterance"} {
		if f[k] == "" {
			t.Fatalf("expected %s populated, got %+v", k, f)
		}
	}
	if _, ok := f["message"]; ok {
		t.Fatalf("expected empty fields omitted")
	}
}

func TestSession_ApplyIsIdempotent(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSession("c1", "t1", now)
	zero := 0
	p := Patch{Stage: StageMsgName, Intent: "message", Step: 1, SilentTurns: &zero, Data: Data{Reason: "leak"}, LastTurnID: "turn-1", LastSay: []string{"name?"}}

	once := s.Apply(p, now)
	twice := once.Apply(p, now)
	if once.Step != 1 || twice.Step != 1 {
		t.Fatalf("expected step 1 after repeated apply, got %d/%d", once.Step, twice.Step)
	}
	if twice.Stage != StageMsgName || twice.Data.Reason != "leak" || twice.LastTurnID != "turn-1" {
		t.Fatalf("unexpected session: %+v", twice)
	}

	back := twice.Apply(Patch{Step: 0}, now)
	if back.Step != 1 {
		t.Fatalf("step must never decrease, got %d", back.Step)
	}
}

func TestMemoryStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(time.Hour)

	s, err := st.GetOrCreate(ctx, "c1", "t1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Stage != StageRoot || s.Step != 0 {
		t.Fatalf("expected fresh root session, got %+v", s)
	}

	if _, err := st.Update(ctx, "c1", Patch{Stage: StageHoursLocation, Step: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := st.GetOrCreate(ctx, "c1", "t1")
	if again.Stage != StageHoursLocation {
		t.Fatalf("expected existing session returned, got %+v", again)
	}

	if err := st.Delete(ctx, "c1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := st.Delete(ctx, "c1"); err != nil {
		t.Fatalf("delete must be idempotent: %v", err)
	}
	if _, err := st.Get(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.Update(ctx, "c1", Patch{Step: 2}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update after delete, got %v", err)
	}
}

func TestMemoryStore_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewMemoryStore(time.Minute)
	st.SetClock(func() time.Time { return now })

	if _, err := st.GetOrCreate(ctx, "c1", "t1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := st.Get(ctx, "c1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired session to be gone, got %v", err)
	}
	if st.Len() != 0 {
		t.Fatalf("expected no live sessions")
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	_, _ = st.GetOrCreate(ctx, "c1", "t1")
	_, _ = st.Update(ctx, "c1", Patch{Data: Data{RecentTurns: []Turn{{Caller: "hi"}}}})

	s, _ := st.Get(ctx, "c1")
	s.Data.RecentTurns[0].Caller = "mutated"

	fresh, _ := st.Get(ctx, "c1")
	if fresh.Data.RecentTurns[0].Caller != "hi" {
		t.Fatalf("store state leaked through returned session")
	}
}

func TestMemoryStore_ConcurrentUpdatesDoNotLoseSteps(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore(0)
	_, _ = st.GetOrCreate(ctx, "c1", "t1")

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(step int) {
			defer wg.Done()
			_, _ = st.Update(ctx, "c1", Patch{Step: step})
		}(i)
	}
	wg.Wait()

	s, _ := st.Get(ctx, "c1")
	if s.Step != 50 {
		t.Fatalf("expected max step 50, got %d", s.Step)
	}
}

func TestStage_Known(t *testing.T) {
	if !StageAskTime.Known() || Stage("limbo").Known() {
		t.Fatalf("unexpected Known results")
	}
}
