package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestConcurrencyCap_AcquireReleaseAgainstRedis(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	key := CapKey("responder", "acme")
	for i := 0; i < 2; i++ {
		ok, err := AcquireConcurrencyCap(ctx, rdb, key, 2, time.Minute)
		if err != nil || !ok {
			t.Fatalf("acquire %d: ok=%v err=%v", i, ok, err)
		}
	}
	ok, err := AcquireConcurrencyCap(ctx, rdb, key, 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if ok {
		t.Fatalf("expected third acquire to be rejected at limit 2")
	}
	if got, _ := mr.Get(key); got != "2" {
		t.Fatalf("rejected acquire must not leave the counter raised, got %q", got)
	}
	if ttl := mr.TTL(key); ttl <= 0 {
		t.Fatalf("expected counter to carry a ttl, got %v", ttl)
	}

	if err := ReleaseConcurrencyCap(ctx, rdb, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := ReleaseConcurrencyCap(ctx, rdb, key); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists(key) {
		t.Fatalf("expected counter key removed once it drops to zero")
	}
}

func TestConcurrencyCap_ExpiresLeakedSlots(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb, err := OpenRedis(ctx, RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	key := CapKey("responder", "acme")
	if ok, err := AcquireConcurrencyCap(ctx, rdb, key, 1, time.Second); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	mr.FastForward(2 * time.Second)
	if ok, err := AcquireConcurrencyCap(ctx, rdb, key, 1, time.Second); err != nil || !ok {
		t.Fatalf("expected slot to free after ttl: ok=%v err=%v", ok, err)
	}
}
