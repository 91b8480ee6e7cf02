package sessions

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"call-receptionist/internal/database"
)

// PostgresStore keeps sessions in the call_sessions table. Rows past
// expires_at are treated as absent and replaced on the next GetOrCreate.
type PostgresStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func NewPostgresStore(db *sql.DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &PostgresStore{db: db, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

const sessionColumns = `call_id, tenant_id, stage, intent, step, silent_turns, data, last_turn_id, last_say, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var stage string
	var data, lastSay []byte
	if err := row.Scan(&sess.CallID, &sess.TenantID, &stage, &sess.Intent, &sess.Step, &sess.SilentTurns,
		&data, &sess.LastTurnID, &lastSay, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		return Session{}, err
	}
	sess.Stage = Stage(stage)
	if err := json.Unmarshal(data, &sess.Data); err != nil {
		return Session{}, fmt.Errorf("decoding session data: %w", err)
	}
	if err := json.Unmarshal(lastSay, &sess.LastSay); err != nil {
		return Session{}, fmt.Errorf("decoding last reply: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) GetOrCreate(ctx context.Context, callID, tenantID string) (Session, error) {
	if err := validateCallID(callID); err != nil {
		return Session{}, err
	}
	now := s.now()
	var out Session
	err := database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM call_sessions WHERE call_id = $1 AND expires_at < $2`, callID, now); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO call_sessions (call_id, tenant_id, stage, created_at, updated_at, expires_at)
			VALUES ($1, $2, $3, $4, $4, $5)
			ON CONFLICT (call_id) DO NOTHING`,
			callID, tenantID, string(StageRoot), now, now.Add(s.ttl)); err != nil {
			return err
		}
		sess, err := scanSession(tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM call_sessions WHERE call_id = $1`, callID))
		out = sess
		return err
	})
	if err != nil {
		return Session{}, fmt.Errorf("get or create session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, callID string) (Session, error) {
	sess, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM call_sessions WHERE call_id = $1 AND expires_at >= $2`, callID, s.now()))
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("reading session: %w", err)
	}
	return sess, nil
}

// Update locks the row so concurrent turns for one call serialize.
func (s *PostgresStore) Update(ctx context.Context, callID string, p Patch) (Session, error) {
	var out Session
	err := database.WithTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		now := s.now()
		sess, err := scanSession(tx.QueryRowContext(ctx,
			`SELECT `+sessionColumns+` FROM call_sessions WHERE call_id = $1 AND expires_at >= $2 FOR UPDATE`, callID, now))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		out = sess.Apply(p, now)
		data, err := json.Marshal(out.Data)
		if err != nil {
			return err
		}
		lastSay, err := json.Marshal(out.LastSay)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE call_sessions
			SET stage = $2, intent = $3, step = $4, silent_turns = $5, data = $6,
			    last_turn_id = $7, last_say = $8, updated_at = $9, expires_at = $10
			WHERE call_id = $1`,
			callID, string(out.Stage), out.Intent, out.Step, out.SilentTurns, data,
			out.LastTurnID, lastSay, now, now.Add(s.ttl))
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("updating session: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, callID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM call_sessions WHERE call_id = $1`, callID)
	return err
}

// PurgeExpired removes rows past their TTL and returns how many were deleted.
func (s *PostgresStore) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM call_sessions WHERE expires_at < $1`, s.now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
