package messages

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu     sync.Mutex
	items  []Message
	byCall map[string]struct{}
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{byCall: map[string]struct{}{}} }

func (r *MemoryRepo) Create(_ context.Context, m Message) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byCall[m.CallID]; dup {
		return false, nil
	}
	r.byCall[m.CallID] = struct{}{}
	m.Details = copyDetails(m.Details)
	r.items = append(r.items, m)
	return true, nil
}

func (r *MemoryRepo) List(_ context.Context, q Query) ([]Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for i := len(r.items) - 1; i >= 0; i-- {
		if !q.matches(r.items[i]) {
			continue
		}
		out = append(out, r.items[i])
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

// All returns every stored message, oldest first.
func (r *MemoryRepo) All() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.items))
	copy(out, r.items)
	return out
}

func copyDetails(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
