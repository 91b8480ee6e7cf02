package reporting

import (
	"context"
	"errors"
	"sync"
	"time"

	"call-receptionist/internal/calllog"
	"call-receptionist/internal/messages"
)

// MemoryRepo is a simple in-memory reporting repository for tests.
// It enforces tenant isolation on reads.
type MemoryRepo struct {
	mu sync.Mutex

	Entries  []calllog.Entry
	Messages []messages.Message
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) ListTurns(_ context.Context, tenantID string, from, to time.Time) ([]calllog.Entry, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]calllog.Entry, 0)
	for _, e := range r.Entries {
		if e.TenantID == tenantID && inRange(e.CreatedAt, from, to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListMessages(_ context.Context, tenantID string, from, to time.Time) ([]messages.Message, error) {
	if tenantID == "" {
		return nil, errors.New("tenant_id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]messages.Message, 0)
	for _, m := range r.Messages {
		if m.TenantID == tenantID && inRange(m.CreatedAt, from, to) {
			out = append(out, m)
		}
	}
	return out, nil
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}
