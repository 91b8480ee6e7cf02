package tenants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const tenantColumns = `id, dialed_number, business_name, greeting, faq, mode,
	capture_reason, capture_name, capture_callback, capture_preferred_time,
	active, created_at, updated_at`

// PostgresRepo reads and writes the tenants table.
type PostgresRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (Tenant, error) {
	var t Tenant
	var mode string
	err := row.Scan(
		&t.ID, &t.DialedNumber, &t.BusinessName, &t.Greeting, &t.FAQ, &mode,
		&t.Capture.Reason, &t.Capture.Name, &t.Capture.Callback, &t.Capture.PreferredTime,
		&t.Active, &t.CreatedAt, &t.UpdatedAt,
	)
	t.Mode = Mode(mode)
	return t, err
}

func (r *PostgresRepo) Resolve(ctx context.Context, dialed string) (Tenant, error) {
	key := NormalizeNumber(dialed)
	if key == "" {
		return Tenant{}, ErrNotFound
	}
	t, err := scanTenant(r.db.QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE dialed_number = $1 AND active`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return Tenant{}, ErrNotFound
	}
	if err != nil {
		return Tenant{}, fmt.Errorf("resolving tenant: %w", err)
	}
	return t, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, t Tenant) (Tenant, error) {
	if err := t.Validate(); err != nil {
		return Tenant{}, err
	}
	t.DialedNumber = NormalizeNumber(t.DialedNumber)
	now := r.now()

	out, err := scanTenant(r.db.QueryRowContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		ON CONFLICT (id) DO UPDATE SET
			dialed_number = EXCLUDED.dialed_number,
			business_name = EXCLUDED.business_name,
			greeting = EXCLUDED.greeting,
			faq = EXCLUDED.faq,
			mode = EXCLUDED.mode,
			capture_reason = EXCLUDED.capture_reason,
			capture_name = EXCLUDED.capture_name,
			capture_callback = EXCLUDED.capture_callback,
			capture_preferred_time = EXCLUDED.capture_preferred_time,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		RETURNING `+tenantColumns,
		t.ID, t.DialedNumber, t.BusinessName, t.Greeting, t.FAQ, string(t.Mode),
		t.Capture.Reason, t.Capture.Name, t.Capture.Callback, t.Capture.PreferredTime,
		t.Active, now,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Tenant{}, ErrDuplicateNumber
		}
		return Tenant{}, fmt.Errorf("upserting tenant: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) List(ctx context.Context) ([]Tenant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+tenantColumns+` FROM tenants ORDER BY dialed_number`)
	if err != nil {
		return nil, fmt.Errorf("listing tenants: %w", err)
	}
	defer rows.Close()

	var out []Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
