package database

import (
	"strings"
	"testing"
	"time"
)

func TestMigrations_SortedAndNonEmpty(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ms) == 0 {
		t.Fatalf("expected embedded migrations")
	}
	for i := 1; i < len(ms); i++ {
		if ms[i-1].Version >= ms[i].Version {
			t.Fatalf("migrations not sorted: %s before %s", ms[i-1].Version, ms[i].Version)
		}
	}
	if ms[0].Version != "0001_init" {
		t.Fatalf("unexpected first migration %q", ms[0].Version)
	}
}

func TestInitMigration_CreatesTables(t *testing.T) {
	ms, err := Migrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, table := range []string{"tenants", "call_sessions", "call_logs", "captured_messages"} {
		if !strings.Contains(ms[0].SQL, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			t.Fatalf("expected %s table in init migration", table)
		}
	}
	if !strings.Contains(ms[0].SQL, "call_id         TEXT NOT NULL UNIQUE") {
		t.Fatalf("expected captured_messages.call_id to be unique")
	}
}

func TestPoolConfig_Defaults(t *testing.T) {
	c := PoolConfig{MaxOpenConns: 10}.withDefaults()
	if c.MaxIdleConns != 10 {
		t.Fatalf("expected idle conns to follow open conns, got %d", c.MaxIdleConns)
	}
	if c.PingTimeout != 5*time.Second {
		t.Fatalf("expected 5s ping timeout, got %s", c.PingTimeout)
	}
}
