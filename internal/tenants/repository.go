package tenants

import "context"

// Repository stores tenants keyed by normalized dialed number.
type Repository interface {
	// Resolve returns the active tenant for dialed, or ErrNotFound.
	Resolve(ctx context.Context, dialed string) (Tenant, error)
	// Upsert inserts or replaces the tenant owning t.DialedNumber.
	Upsert(ctx context.Context, t Tenant) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
}
