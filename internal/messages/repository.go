package messages

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists captured messages.
type Repository interface {
	// Create stores m unless a message for m.CallID already exists.
	// created reports whether this call inserted the row.
	Create(ctx context.Context, m Message) (created bool, err error)
	// List returns messages newest first.
	List(ctx context.Context, q Query) ([]Message, error)
}

// Sink stamps and validates messages before handing them to a Repository.
type Sink struct {
	repo  Repository
	clock func() time.Time
}

func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo, clock: time.Now}
}

// Capture is safe to call more than once per call; only the first succeeds
// in writing.
func (s *Sink) Capture(ctx context.Context, m Message) (bool, error) {
	if err := m.Validate(); err != nil {
		return false, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.clock().UTC()
	}
	return s.repo.Create(ctx, m)
}

func (s *Sink) List(ctx context.Context, q Query) ([]Message, error) {
	if q.TenantID == "" {
		return nil, ErrInvalidMessage
	}
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}
	return s.repo.List(ctx, q)
}
