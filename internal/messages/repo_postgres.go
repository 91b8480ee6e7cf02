package messages

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

func (r *PostgresRepo) Create(ctx context.Context, m Message) (bool, error) {
	details, err := json.Marshal(m.Details)
	if err != nil {
		return false, err
	}
	if m.Details == nil {
		details = []byte("{}")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO captured_messages (id, call_id, tenant_id, caller_number, name, callback_number, reason, preferred_time, intent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (call_id) DO NOTHING`,
		m.ID, m.CallID, m.TenantID, m.CallerNumber, m.Name, m.CallbackNumber, m.ReasonOrMessage, m.PreferredTime, m.Intent, details, m.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("inserting captured message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Message, error) {
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
	query := `SELECT id, call_id, tenant_id, caller_number, name, callback_number, reason, preferred_time, intent, details, created_at
		FROM captured_messages WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing captured messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		var details []byte
		if err := rows.Scan(&m.ID, &m.CallID, &m.TenantID, &m.CallerNumber, &m.Name, &m.CallbackNumber,
			&m.ReasonOrMessage, &m.PreferredTime, &m.Intent, &details, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning captured message: %w", err)
		}
		if err := json.Unmarshal(details, &m.Details); err != nil {
			return nil, fmt.Errorf("decoding message details: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
