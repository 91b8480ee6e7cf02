package calllog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PostgresRepo stores entries in call_logs. The application only ever
// INSERTs and SELECTs.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Append(ctx context.Context, e Entry) (Entry, error) {
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO call_logs (call_id, tenant_id, dialed_number, caller_number, stage, intent, utterance, reply, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		e.CallID, e.TenantID, e.DialedNumber, e.CallerNumber, e.Stage, e.Intent, e.Utterance, e.Reply, string(e.Outcome), e.CreatedAt,
	).Scan(&e.ID)
	if err != nil {
		return Entry{}, fmt.Errorf("appending call log: %w", err)
	}
	return e, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Entry, error) {
	where := []string{"tenant_id = $1"}
	args := []any{q.TenantID}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where = append(where, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where = append(where, fmt.Sprintf("created_at < $%d", len(args)))
	}
	query := `SELECT id, call_id, tenant_id, dialed_number, caller_number, stage, intent, utterance, reply, outcome, created_at
		FROM call_logs WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing call logs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var outcome string
		if err := rows.Scan(&e.ID, &e.CallID, &e.TenantID, &e.DialedNumber, &e.CallerNumber,
			&e.Stage, &e.Intent, &e.Utterance, &e.Reply, &outcome, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning call log: %w", err)
		}
		e.Outcome = Outcome(outcome)
		out = append(out, e)
	}
	return out, rows.Err()
}
