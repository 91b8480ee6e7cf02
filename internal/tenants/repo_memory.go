package tenants

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory tenant directory used in tests and local runs.
type MemoryRepo struct {
	mu       sync.RWMutex
	byNumber map[string]Tenant
	now      func() time.Time
}

func NewMemoryRepo(seed ...Tenant) *MemoryRepo {
	r := &MemoryRepo{byNumber: map[string]Tenant{}, now: func() time.Time { return time.Now().UTC() }}
	for _, t := range seed {
		if t.Mode == "" {
			t.Mode = ModeMessage
		}
		t.DialedNumber = NormalizeNumber(t.DialedNumber)
		r.byNumber[t.DialedNumber] = t
	}
	return r
}

func (r *MemoryRepo) Resolve(_ context.Context, dialed string) (Tenant, error) {
	key := NormalizeNumber(dialed)
	if key == "" {
		return Tenant{}, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byNumber[key]
	if !ok || !t.Active {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *MemoryRepo) Upsert(_ context.Context, t Tenant) (Tenant, error) {
	if err := t.Validate(); err != nil {
		return Tenant{}, err
	}
	t.DialedNumber = NormalizeNumber(t.DialedNumber)

	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if prev, ok := r.byNumber[t.DialedNumber]; ok {
		if prev.ID != t.ID {
			return Tenant{}, ErrDuplicateNumber
		}
		t.CreatedAt = prev.CreatedAt
	} else {
		t.CreatedAt = now
	}
	// A tenant moving to a new number releases its old one.
	for num, existing := range r.byNumber {
		if existing.ID == t.ID && num != t.DialedNumber {
			delete(r.byNumber, num)
		}
	}
	t.UpdatedAt = now
	r.byNumber[t.DialedNumber] = t
	return t, nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tenant, 0, len(r.byNumber))
	for _, t := range r.byNumber {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DialedNumber < out[j].DialedNumber })
	return out, nil
}
