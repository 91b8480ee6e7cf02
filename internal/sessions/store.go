package sessions

import (
	"context"
	"errors"
)

// Store persists sessions keyed by call id. Implementations are safe for
// concurrent use; concurrent writers to one call never interleave a
// partial update.
type Store interface {
	// GetOrCreate returns the session for callID, creating a root-stage
	// session owned by tenantID if none exists.
	GetOrCreate(ctx context.Context, callID, tenantID string) (Session, error)
	Get(ctx context.Context, callID string) (Session, error)
	// Update applies p atomically. Returns ErrNotFound if the session is gone.
	Update(ctx context.Context, callID string, p Patch) (Session, error)
	// Delete is idempotent.
	Delete(ctx context.Context, callID string) error
}

func validateCallID(callID string) error {
	if callID == "" {
		return errors.New("sessions: call id is required")
	}
	return nil
}
