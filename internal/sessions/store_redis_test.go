package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, ttl), mr, rdb
}

func TestRedisStore_GetOrCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newRedisStore(t, time.Hour)

	first, err := s.GetOrCreate(ctx, "CA1", "acme")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if first.Stage != StageRoot || first.TenantID != "acme" {
		t.Fatalf("unexpected new session: %+v", first)
	}

	if _, err := s.Update(ctx, "CA1", Patch{Stage: StageMsgName, Step: 1, Data: Data{FirstUtterance: "hi"}}); err != nil {
		t.Fatalf("update: %v", err)
	}

	again, err := s.GetOrCreate(ctx, "CA1", "other")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if again.TenantID != "acme" || again.Stage != StageMsgName || again.Step != 1 || again.Data.FirstUtterance != "hi" {
		t.Fatalf("expected existing session back, got %+v", again)
	}
	if ttl := mr.TTL(sessionKey("CA1")); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("expected retention ttl on key, got %v", ttl)
	}
}

func TestRedisStore_ExpiresAndDeletes(t *testing.T) {
	ctx := context.Background()
	s, mr, _ := newRedisStore(t, time.Minute)

	if _, err := s.GetOrCreate(ctx, "CA1", "acme"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := s.Get(ctx, "CA1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after ttl, got %v", err)
	}
	if _, err := s.Update(ctx, "CA1", Patch{Step: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected update of expired session to fail with ErrNotFound, got %v", err)
	}

	if _, err := s.GetOrCreate(ctx, "CA2", "acme"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := s.Delete(ctx, "CA2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "CA2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

// interferingHook writes the session from a second client right after the
// transaction's first read, so the WATCHed key changes before EXEC.
type interferingHook struct {
	active atomic.Bool
	fired  atomic.Bool
	reads  atomic.Int32
	other  *redis.Client
	callID string
}

func (h *interferingHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h *interferingHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func (h *interferingHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if cmd.Name() != "get" || !h.active.Load() {
			return err
		}
		h.reads.Add(1)
		if h.fired.CompareAndSwap(false, true) {
			sess, gerr := getSession(ctx, h.other, h.callID)
			if gerr != nil {
				return gerr
			}
			sess.Data.Name = "Ana"
			raw, _ := json.Marshal(sess)
			if serr := h.other.Set(ctx, sessionKey(h.callID), raw, time.Hour).Err(); serr != nil {
				return serr
			}
		}
		return err
	}
}

func TestRedisStore_UpdateRetriesOnConcurrentWrite(t *testing.T) {
	ctx := context.Background()
	s, mr, rdb := newRedisStore(t, time.Hour)

	other := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = other.Close() })

	if _, err := s.GetOrCreate(ctx, "CA1", "acme"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	hook := &interferingHook{other: other, callID: "CA1"}
	rdb.AddHook(hook)
	hook.active.Store(true)
	got, err := s.Update(ctx, "CA1", Patch{Stage: StageMsgPhone, Step: 2, Data: Data{Phone: "555 0101"}})
	hook.active.Store(false)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if hook.reads.Load() < 2 {
		t.Fatalf("expected the transaction to re-read after the conflict, reads=%d", hook.reads.Load())
	}
	if got.Data.Name != "Ana" || got.Data.Phone != "555 0101" || got.Step != 2 {
		t.Fatalf("expected both writes kept, got %+v", got)
	}

	stored, err := s.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Data.Name != "Ana" || stored.Data.Phone != "555 0101" {
		t.Fatalf("expected stored session to keep both writes, got %+v", stored.Data)
	}
}

func TestRedisStore_ConcurrentUpdatesKeepEveryField(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRedisStore(t, time.Hour)
	if _, err := s.GetOrCreate(ctx, "CA1", "acme"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	patches := []Data{
		{Reason: "r"}, {Location: "l"}, {PricingDetails: "p"}, {ApptDateTime: "a"},
		{Name: "n"}, {Phone: "ph"}, {PreferredTime: "t"}, {Message: "m"},
	}
	var wg sync.WaitGroup
	errs := make(chan error, len(patches))
	for i, d := range patches {
		wg.Add(1)
		go func(step int, d Data) {
			defer wg.Done()
			for {
				_, err := s.Update(ctx, "CA1", Patch{Step: step, Data: d})
				if errors.Is(err, ErrConflict) {
					continue
				}
				errs <- err
				return
			}
		}(i+1, d)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, err := s.Get(ctx, "CA1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := Data{Reason: "r", Location: "l", PricingDetails: "p", ApptDateTime: "a", Name: "n", Phone: "ph", PreferredTime: "t", Message: "m"}
	if got.Step != len(patches) || got.Data.Reason != want.Reason || got.Data.Location != want.Location ||
		got.Data.PricingDetails != want.PricingDetails || got.Data.ApptDateTime != want.ApptDateTime ||
		got.Data.Name != want.Name || got.Data.Phone != want.Phone ||
		got.Data.PreferredTime != want.PreferredTime || got.Data.Message != want.Message {
		t.Fatalf("lost update: %+v", got)
	}
}
